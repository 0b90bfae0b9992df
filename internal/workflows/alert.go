package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/fireshield/firewatch/internal/core/domain"
)

// TaskQueue is the default queue the alert worker listens on.
const TaskQueue = "firewatch-alerts"

// ErrTypeNotHighRisk marks the non-retryable failure raised when the
// observer left the high-risk band before the alert went out.
const ErrTypeNotHighRisk = "NotHighRisk"

// EmergencyAlertInput is the input for the emergency alert workflow.
type EmergencyAlertInput struct {
	Alert domain.EmergencyAlert
}

// EmergencyAlertWorkflow re-checks the observer, sends the SMS and announces
// the alert. An SMS that cannot be delivered is still announced with status
// failed so operators can follow up by other means.
func EmergencyAlertWorkflow(ctx workflow.Context, input EmergencyAlertInput) (*domain.EmergencyAlert, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting emergency alert workflow", "alertID", input.Alert.ID)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{ErrTypeNotHighRisk},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	var a *AlertActivities
	alert := input.Alert

	// Step 1: the observer must still be in the high-risk band
	if err := workflow.ExecuteActivity(ctx, a.AssessObserver, alert.Observer).Get(ctx, nil); err != nil {
		logger.Warn("observer no longer at high risk, dropping alert", "error", err)
		return nil, err
	}

	// Step 2: send the SMS
	var sent domain.EmergencyAlert
	if err := workflow.ExecuteActivity(ctx, a.SendSMS, alert).Get(ctx, &sent); err != nil {
		logger.Warn("sms delivery failed, announcing failure", "error", err)
		alert.Status = domain.AlertFailed
		_ = workflow.ExecuteActivity(ctx, a.PublishAlert, alert).Get(ctx, nil)
		return nil, err
	}

	// Step 3: announce; the SMS is already out so a failure here is not fatal
	if err := workflow.ExecuteActivity(ctx, a.PublishAlert, sent).Get(ctx, nil); err != nil {
		logger.Warn("alert announcement failed", "error", err)
	}

	logger.Info("Emergency alert sent", "alertID", sent.ID, "sid", sent.ProviderSID)
	return &sent, nil
}
