package http_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
)

// findOpenAPISpec locates api/openapi.yaml by walking up from the test directory.
func findOpenAPISpec(t *testing.T) string {
	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		candidate := filepath.Join(dir, "api", "openapi.yaml")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		dir = filepath.Dir(dir)
	}

	t.Fatalf("could not find api/openapi.yaml")
	return ""
}

func loadOpenAPISpec(t *testing.T) *openapi3.T {
	t.Helper()
	data, err := os.ReadFile(findOpenAPISpec(t))
	if err != nil {
		t.Fatalf("failed to read openapi.yaml: %v", err)
	}
	loader := &openapi3.Loader{IsExternalRefsAllowed: false}
	spec, err := loader.LoadFromData(data)
	if err != nil {
		t.Fatalf("failed to parse OpenAPI spec: %v", err)
	}
	return spec
}

// TestOpenAPISpec validates the document and checks every served route is described.
func TestOpenAPISpec(t *testing.T) {
	spec := loadOpenAPISpec(t)

	if err := spec.Validate(context.Background()); err != nil {
		t.Fatalf("OpenAPI spec validation failed: %v", err)
	}

	expectedPaths := []string{
		"/v1/health",
		"/v1/ready",
		"/v1/hotspots",
		"/v1/hotspots/nearby",
		"/v1/hotspots.geojson",
		"/v1/risk",
		"/v1/safe-places",
		"/v1/emergency-alerts",
		"/api/nasa-firms",
		"/graphql",
	}
	for _, path := range expectedPaths {
		if item := spec.Paths.Find(path); item == nil {
			t.Errorf("expected path %s not found in spec", path)
		}
	}

	if risk := spec.Paths.Find("/v1/risk"); risk != nil && (risk.Get == nil || risk.Post == nil) {
		t.Error("expected GET and POST on /v1/risk")
	}
	if legacy := spec.Paths.Find("/api/nasa-firms"); legacy != nil && legacy.Get != nil && !legacy.Get.Deprecated {
		t.Error("expected /api/nasa-firms to be marked deprecated")
	}

	expectedSchemas := []string{
		"GeoPoint",
		"Hotspot",
		"Thresholds",
		"RiskTier",
		"RiskAssessment",
		"RankedSafePlace",
		"EmergencyAlert",
		"APIError",
		"Pagination",
	}
	for _, schema := range expectedSchemas {
		if spec.Components.Schemas[schema] == nil {
			t.Errorf("expected schema %s not found", schema)
		}
	}

	t.Logf("OpenAPI spec valid: %d paths, %d schemas", len(spec.Paths.Map()), len(spec.Components.Schemas))
}

func TestOpenAPIRiskTiers(t *testing.T) {
	spec := loadOpenAPISpec(t)

	tier := spec.Components.Schemas["RiskTier"]
	if tier == nil || tier.Value == nil {
		t.Fatal("RiskTier schema missing")
	}
	want := map[string]bool{"safe": true, "moderate": true, "high": true}
	if len(tier.Value.Enum) != len(want) {
		t.Fatalf("expected %d tiers, got %v", len(want), tier.Value.Enum)
	}
	for _, v := range tier.Value.Enum {
		if s, ok := v.(string); !ok || !want[s] {
			t.Errorf("unexpected tier %v", v)
		}
	}
}

// TestOpenAPIInfo verifies spec metadata.
func TestOpenAPIInfo(t *testing.T) {
	spec := loadOpenAPISpec(t)

	if spec.Info.Title != "FireWatch API" {
		t.Errorf("expected title 'FireWatch API', got %q", spec.Info.Title)
	}
	if spec.Info.Version != "1.0.0" {
		t.Errorf("expected version 1.0.0, got %q", spec.Info.Version)
	}
	if spec.Info.Description == "" {
		t.Error("expected non-empty description")
	}
	if len(spec.Servers) == 0 {
		t.Fatal("expected at least one server")
	}

	t.Logf("OpenAPI Info: %s v%s @ %s", spec.Info.Title, spec.Info.Version, spec.Servers[0].URL)
}
