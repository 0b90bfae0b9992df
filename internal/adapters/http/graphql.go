package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/fireshield/firewatch/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	hotspotType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Hotspot",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"location":   &graphql.Field{Type: geoPointType},
			"weight":     &graphql.Field{Type: graphql.Float},
			"satellite":  &graphql.Field{Type: graphql.String},
			"instrument": &graphql.Field{Type: graphql.String},
			"confidence": &graphql.Field{Type: graphql.String},
			"frp":        &graphql.Field{Type: graphql.Float},
			"daynight":   &graphql.Field{Type: graphql.String},
			"source":     &graphql.Field{Type: graphql.String},
			"age_group":  &graphql.Field{Type: graphql.String},
			"acquired_at": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if h, ok := p.Source.(domain.Hotspot); ok && h.AcquiredAt != nil {
						return h.AcquiredAt.UTC().Format(time.RFC3339), nil
					}
					return nil, nil
				},
			},
		},
	})

	thresholdsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Thresholds",
		Fields: graphql.Fields{
			"high_km":     &graphql.Field{Type: graphql.Float},
			"moderate_km": &graphql.Field{Type: graphql.Float},
			"pushout_km":  &graphql.Field{Type: graphql.Float},
		},
	})

	safePlaceType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SafePlace",
		Fields: graphql.Fields{
			"name": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return safePlaceOf(p.Source).Name, nil
				},
			},
			"location": &graphql.Field{
				Type: geoPointType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return safePlaceOf(p.Source).Location, nil
				},
			},
			"distance_km":        &graphql.Field{Type: graphql.Float},
			"hazard_distance_km": &graphql.Field{Type: graphql.Float},
			"clear":              &graphql.Field{Type: graphql.Boolean},
		},
	})

	riskType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RiskAssessment",
		Fields: graphql.Fields{
			"observer":             &graphql.Field{Type: geoPointType},
			"risk_tier":            &graphql.Field{Type: graphql.String},
			"distance_km":          &graphql.Field{Type: graphql.Float},
			"nearest_hazard":       &graphql.Field{Type: hotspotType},
			"suggested_safe_point": &graphql.Field{Type: geoPointType},
			"thresholds":           &graphql.Field{Type: thresholdsType},
			"safe_places":          &graphql.Field{Type: graphql.NewList(safePlaceType)},
			"emergency_contact":    &graphql.Field{Type: graphql.Boolean},
			"hazards_considered":   &graphql.Field{Type: graphql.Int},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"hotspots": &graphql.Field{
				Type:        graphql.NewList(hotspotType),
				Description: "Page through current fire detections",
				Args: graphql.FieldConfigArgument{
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 100},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					offset := p.Args["offset"].(int)
					limit := p.Args["limit"].(int)
					hotspots, _, err := deps.Hotspots.List(p.Context, nil, offset, limit)
					return hotspots, err
				},
			},
			"nearbyHotspots": &graphql.Field{
				Type:        graphql.NewList(hotspotType),
				Description: "Find detections near a location",
				Args: graphql.FieldConfigArgument{
					"lat":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius_km": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 50.0},
					"limit":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					pt := domain.GeoPoint{Lat: p.Args["lat"].(float64), Lon: p.Args["lon"].(float64)}
					radius := p.Args["radius_km"].(float64)
					limit := p.Args["limit"].(int)
					return deps.Hotspots.Nearby(p.Context, pt, radius, limit)
				},
			},
			"risk": &graphql.Field{
				Type:        riskType,
				Description: "Assess the wildfire proximity risk of an observer",
				Args: graphql.FieldConfigArgument{
					"lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					pt := domain.GeoPoint{Lat: p.Args["lat"].(float64), Lon: p.Args["lon"].(float64)}
					return deps.Risk.Assess(p.Context, pt, nil)
				},
			},
			"safePlaces": &graphql.Field{
				Type:        graphql.NewList(safePlaceType),
				Description: "Configured safe places",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Risk.SafePlaces(), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// safePlaceOf unwraps the embedded place of a ranked result.
func safePlaceOf(src interface{}) domain.SafePlace {
	switch v := src.(type) {
	case domain.SafePlace:
		return v
	case domain.RankedSafePlace:
		return v.SafePlace
	}
	return domain.SafePlace{}
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
