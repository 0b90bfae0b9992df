package telemetry

// Span attribute keys shared by the feed and risk paths.
const (
	// Feed
	AttrFeedSource      = "feed.source"
	AttrFeedAccepted    = "feed.accepted"
	AttrFeedMalformed   = "feed.malformed"
	AttrFeedOutOfRegion = "feed.out_of_region"

	// Risk
	AttrRiskTier       = "risk.tier"
	AttrRiskDistanceKm = "risk.distance_km"
	AttrRiskHazards    = "risk.hazards"

	// Alerts
	AttrAlertID = "alert.id"
)
