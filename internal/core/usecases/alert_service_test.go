package usecases_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/fireshield/firewatch/internal/core/domain"
	"github.com/fireshield/firewatch/internal/core/usecases"
)

func newAlertService(hazards []domain.Hotspot, notifier *mockNotifier, pub *mockPublisher) *usecases.AlertService {
	risk := usecases.NewRiskService(staticHazards(hazards), defaultThresholds, nil, nil)
	if notifier == nil {
		return usecases.NewAlertService(risk, nil, pub, "+15550002222")
	}
	return usecases.NewAlertService(risk, notifier, pub, "+15550002222")
}

func TestAlertService_Raise(t *testing.T) {
	notifier := &mockNotifier{}
	pub := &mockPublisher{}
	svc := newAlertService([]domain.Hotspot{hotspotAt(45.018, -75)}, notifier, pub)

	alert, err := svc.Raise(context.Background(), observer, "  near the north trail ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if alert.Status != domain.AlertSent {
		t.Errorf("expected status sent, got %s", alert.Status)
	}
	if alert.ProviderSID != "SM0001" || alert.SentAt == nil {
		t.Errorf("expected provider sid and sent time, got %+v", alert)
	}
	if alert.ID == "" || alert.Recipient != "+15550002222" {
		t.Errorf("unexpected alert %+v", alert)
	}
	want := "Emergency alert: I am in danger at 45.0000, -75.0000. Please send help immediately. Note: near the north trail"
	if alert.Message != want {
		t.Errorf("message mismatch:\n got %q\nwant %q", alert.Message, want)
	}
	if len(notifier.sent) != 1 {
		t.Errorf("expected one sms, got %d", len(notifier.sent))
	}
	if len(pub.alerts) != 1 {
		t.Errorf("expected one alert event, got %d", len(pub.alerts))
	}
}

func TestAlertService_Raise_NotHighRisk(t *testing.T) {
	notifier := &mockNotifier{}
	svc := newAlertService([]domain.Hotspot{hotspotAt(45.036, -75)}, notifier, nil)

	_, err := svc.Raise(context.Background(), observer, "")
	if !errors.Is(err, usecases.ErrNotHighRisk) {
		t.Fatalf("expected ErrNotHighRisk, got %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Error("no sms must be sent outside the high-risk band")
	}
}

func TestAlertService_Raise_Disabled(t *testing.T) {
	svc := newAlertService([]domain.Hotspot{hotspotAt(45.018, -75)}, nil, nil)

	if svc.Enabled() {
		t.Error("expected disabled service without notifier")
	}
	if _, err := svc.Raise(context.Background(), observer, ""); !errors.Is(err, usecases.ErrNotifierDisabled) {
		t.Fatalf("expected ErrNotifierDisabled, got %v", err)
	}
}

func TestAlertService_Raise_SendFailure(t *testing.T) {
	notifier := &mockNotifier{
		sendFn: func(ctx context.Context, to, body string) (string, error) {
			return "", errors.New("gateway 500")
		},
	}
	pub := &mockPublisher{}
	svc := newAlertService([]domain.Hotspot{hotspotAt(45.018, -75)}, notifier, pub)

	alert, err := svc.Raise(context.Background(), observer, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if alert == nil || alert.Status != domain.AlertFailed {
		t.Errorf("expected failed alert, got %+v", alert)
	}
	if len(pub.alerts) != 0 {
		t.Error("failed alerts must not be announced")
	}
}

func TestAlertService_PublishFailureIsNotFatal(t *testing.T) {
	pub := &mockPublisher{err: errors.New("nats down")}
	svc := newAlertService([]domain.Hotspot{hotspotAt(45.018, -75)}, &mockNotifier{}, pub)

	alert, err := svc.Raise(context.Background(), observer, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if alert.Status != domain.AlertSent {
		t.Errorf("expected sent, got %s", alert.Status)
	}
}

func TestComposeAlertMessage(t *testing.T) {
	msg := usecases.ComposeAlertMessage(domain.GeoPoint{Lat: 56.1304, Lon: -106.34677}, "")
	if msg != "Emergency alert: I am in danger at 56.1304, -106.3468. Please send help immediately." {
		t.Errorf("unexpected message %q", msg)
	}

	long := usecases.ComposeAlertMessage(observer, strings.Repeat("x", 1000))
	if !strings.HasSuffix(long, " Note: "+strings.Repeat("x", 280)) {
		t.Errorf("expected note truncated to 280 characters, got length %d", len(long))
	}

	accented := usecases.ComposeAlertMessage(observer, "a"+strings.Repeat("é", 400))
	if !utf8.ValidString(accented) {
		t.Fatalf("message is not valid UTF-8: %q", accented)
	}
	if !strings.HasSuffix(accented, " Note: a"+strings.Repeat("é", 279)) {
		t.Errorf("expected multi-byte note truncated to 280 characters, got %q", accented)
	}

	broken := usecases.ComposeAlertMessage(observer, "smoke \xc3")
	if !utf8.ValidString(broken) {
		t.Errorf("invalid note bytes leaked into message: %q", broken)
	}
}

func TestAlertService_Prepare_NoRecipient(t *testing.T) {
	risk := usecases.NewRiskService(staticHazards{hotspotAt(45.018, -75)}, defaultThresholds, nil, nil)
	svc := usecases.NewAlertService(risk, &mockNotifier{}, nil, "")

	if _, err := svc.Prepare(context.Background(), observer, ""); !errors.Is(err, usecases.ErrNoRecipient) {
		t.Fatalf("expected ErrNoRecipient, got %v", err)
	}
}

func TestAlertService_PrepareWithoutNotifier(t *testing.T) {
	svc := newAlertService([]domain.Hotspot{hotspotAt(45.018, -75)}, nil, nil)

	alert, err := svc.Prepare(context.Background(), observer, "")
	if err != nil {
		t.Fatalf("prepare should not need a notifier: %v", err)
	}
	if alert.Status != domain.AlertQueued || alert.Tier != domain.RiskHigh {
		t.Errorf("unexpected prepared alert %+v", alert)
	}
	if err := svc.Deliver(context.Background(), alert); !errors.Is(err, usecases.ErrNotifierDisabled) {
		t.Errorf("expected ErrNotifierDisabled on deliver, got %v", err)
	}
}
