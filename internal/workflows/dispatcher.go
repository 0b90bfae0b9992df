package workflows

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.temporal.io/sdk/client"

	"github.com/fireshield/firewatch/internal/core/domain"
	"github.com/fireshield/firewatch/internal/core/usecases"
	"github.com/fireshield/firewatch/internal/pkg/telemetry"
)

// Dispatcher prepares alerts in-process and hands delivery to the alert workflow.
type Dispatcher struct {
	client    client.Client
	taskQueue string
	alerts    *usecases.AlertService
}

// NewDispatcher creates a Dispatcher starting workflows on taskQueue.
func NewDispatcher(c client.Client, taskQueue string, alerts *usecases.AlertService) *Dispatcher {
	if taskQueue == "" {
		taskQueue = TaskQueue
	}
	return &Dispatcher{client: c, taskQueue: taskQueue, alerts: alerts}
}

// Dispatch validates the observer is at high risk and starts delivery. The
// returned alert is still queued.
func (d *Dispatcher) Dispatch(ctx context.Context, observer domain.GeoPoint, note string) (*domain.EmergencyAlert, error) {
	ctx, span := otel.Tracer("firewatch/alerts").Start(ctx, "Dispatcher.Dispatch")
	defer span.End()

	alert, err := d.alerts.Prepare(ctx, observer, note)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String(telemetry.AttrAlertID, alert.ID))

	opts := client.StartWorkflowOptions{
		ID:        "emergency-alert-" + alert.ID,
		TaskQueue: d.taskQueue,
	}
	if _, err := d.client.ExecuteWorkflow(ctx, opts, EmergencyAlertWorkflow, EmergencyAlertInput{Alert: *alert}); err != nil {
		return nil, fmt.Errorf("start alert workflow: %w", err)
	}
	return alert, nil
}
