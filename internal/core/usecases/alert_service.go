package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/fireshield/firewatch/internal/core/domain"
	"github.com/fireshield/firewatch/internal/core/ports"
	"github.com/fireshield/firewatch/internal/pkg/metrics"
)

var (
	// ErrNotHighRisk is returned when an alert is requested outside the high-risk band.
	ErrNotHighRisk = errors.New("observer is not in the high-risk band")
	// ErrNotifierDisabled is returned when no SMS gateway is configured.
	ErrNotifierDisabled = errors.New("emergency notifier is not configured")
	// ErrNoRecipient is returned when no emergency contact number is configured.
	ErrNoRecipient = errors.New("emergency recipient is not configured")
)

// maxNoteLength caps the free-text note appended to an alert message, in characters.
const maxNoteLength = 280

// AlertService raises emergency alerts for observers in the high-risk band.
type AlertService struct {
	risk      *RiskService
	notifier  ports.NotificationService
	publisher ports.EventPublisher
	recipient string
	now       func() time.Time
	newID     func() string
}

// NewAlertService creates a new AlertService. notifier and publisher may be
// nil. Without a recipient nothing can be prepared; without a notifier
// alerts can be prepared for another process to deliver.
func NewAlertService(
	risk *RiskService,
	notifier ports.NotificationService,
	publisher ports.EventPublisher,
	recipient string,
) *AlertService {
	return &AlertService{
		risk:      risk,
		notifier:  notifier,
		publisher: publisher,
		recipient: recipient,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Enabled reports whether alerts can be delivered at all.
func (s *AlertService) Enabled() bool {
	return s.notifier != nil && s.recipient != ""
}

// Prepare re-assesses the observer and, when the risk is high, builds a
// queued alert ready for delivery.
func (s *AlertService) Prepare(ctx context.Context, observer domain.GeoPoint, note string) (*domain.EmergencyAlert, error) {
	if s.recipient == "" {
		return nil, ErrNoRecipient
	}

	assessment, err := s.risk.Assess(ctx, observer, nil)
	if err != nil {
		return nil, err
	}
	if assessment.Tier != domain.RiskHigh {
		return nil, fmt.Errorf("%w: tier %s, nearest hazard %.2f km", ErrNotHighRisk, assessment.Tier, assessment.DistanceKm)
	}

	return &domain.EmergencyAlert{
		ID:        s.newID(),
		Observer:  observer,
		Tier:      assessment.Tier,
		Recipient: s.recipient,
		Message:   ComposeAlertMessage(observer, note),
		Status:    domain.AlertQueued,
		CreatedAt: s.now().UTC(),
	}, nil
}

// Deliver sends a prepared alert and records the outcome on it.
func (s *AlertService) Deliver(ctx context.Context, alert *domain.EmergencyAlert) error {
	if s.notifier == nil {
		return ErrNotifierDisabled
	}

	sid, err := s.notifier.SendSMS(ctx, alert.Recipient, alert.Message)
	if err != nil {
		alert.Status = domain.AlertFailed
		metrics.AlertsSent.WithLabelValues(string(domain.AlertFailed)).Inc()
		return fmt.Errorf("send sms: %w", err)
	}

	sentAt := s.now().UTC()
	alert.Status = domain.AlertSent
	alert.ProviderSID = sid
	alert.SentAt = &sentAt
	metrics.AlertsSent.WithLabelValues(string(domain.AlertSent)).Inc()
	return nil
}

// Announce publishes the alert so connected clients and operators see it.
func (s *AlertService) Announce(ctx context.Context, alert *domain.EmergencyAlert) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.PublishEmergencyAlert(ctx, alert)
}

// Raise prepares, delivers and announces an alert in one call.
func (s *AlertService) Raise(ctx context.Context, observer domain.GeoPoint, note string) (*domain.EmergencyAlert, error) {
	alert, err := s.Prepare(ctx, observer, note)
	if err != nil {
		return nil, err
	}
	if err := s.Deliver(ctx, alert); err != nil {
		return alert, err
	}
	if err := s.Announce(ctx, alert); err != nil {
		slog.WarnContext(ctx, "publish emergency alert failed", "alert_id", alert.ID, "error", err)
	}
	return alert, nil
}

// ComposeAlertMessage builds the SMS body for an observer.
func ComposeAlertMessage(observer domain.GeoPoint, note string) string {
	msg := fmt.Sprintf("Emergency alert: I am in danger at %s. Please send help immediately.", observer)
	note = strings.TrimSpace(strings.ToValidUTF8(note, "\uFFFD"))
	if note == "" {
		return msg
	}
	if utf8.RuneCountInString(note) > maxNoteLength {
		note = string([]rune(note)[:maxNoteLength])
	}
	return msg + " Note: " + note
}
