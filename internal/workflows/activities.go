package workflows

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/fireshield/firewatch/internal/core/domain"
	"github.com/fireshield/firewatch/internal/core/usecases"
)

// AlertActivities holds the activity implementations for the emergency alert workflow.
type AlertActivities struct {
	Risk   *usecases.RiskService
	Alerts *usecases.AlertService
}

// AssessObserver fails with a non-retryable error unless the observer is in the high-risk band.
func (a *AlertActivities) AssessObserver(ctx context.Context, observer domain.GeoPoint) error {
	assessment, err := a.Risk.Assess(ctx, observer, nil)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCoordinate) {
			return temporal.NewNonRetryableApplicationError(err.Error(), "InvalidCoordinate", err)
		}
		return fmt.Errorf("assess observer: %w", err)
	}
	if assessment.Tier != domain.RiskHigh {
		return temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("observer at %s is %s (%.2f km)", observer, assessment.Tier, assessment.DistanceKm),
			ErrTypeNotHighRisk, usecases.ErrNotHighRisk)
	}
	return nil
}

// SendSMS delivers the alert and returns it with its delivery status.
func (a *AlertActivities) SendSMS(ctx context.Context, alert domain.EmergencyAlert) (domain.EmergencyAlert, error) {
	if err := a.Alerts.Deliver(ctx, &alert); err != nil {
		if errors.Is(err, usecases.ErrNotifierDisabled) {
			return alert, temporal.NewNonRetryableApplicationError(err.Error(), "NotifierDisabled", err)
		}
		return alert, err
	}
	activity.GetLogger(ctx).Info("sms sent", "alertID", alert.ID, "sid", alert.ProviderSID)
	return alert, nil
}

// PublishAlert announces the alert on the event bus.
func (a *AlertActivities) PublishAlert(ctx context.Context, alert domain.EmergencyAlert) error {
	return a.Alerts.Announce(ctx, &alert)
}
