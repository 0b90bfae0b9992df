package natsadapter

import "github.com/fireshield/firewatch/internal/core/domain"

// NATS subjects carrying fire events.
const (
	SubjectAll               = "fire.>"
	SubjectHotspotsRefreshed = "fire.hotspots.refreshed"
	SubjectRiskPrefix        = "fire.risk."
	SubjectEmergencyAlert    = "fire.alerts.emergency"
)

// RiskSubject returns the subject an assessment of the given tier is published on.
func RiskSubject(tier domain.RiskTier) string {
	return SubjectRiskPrefix + string(tier)
}
