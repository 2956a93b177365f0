package notify

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"

	"bloodlink/internal/domain"
	"bloodlink/internal/store/memory"
)

// stubTransport fails delivery for tokens listed in failFor.
type stubTransport struct {
	mu      sync.Mutex
	sent    []string
	failFor map[string]bool
}

func (t *stubTransport) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failFor[token] {
		return errors.New("device unreachable")
	}
	t.sent = append(t.sent, token)
	return nil
}

func testDispatcher(failFor map[string]bool) (*Dispatcher, *stubTransport, *memory.NotificationRepository) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	transport := &stubTransport{failFor: failFor}
	repo := memory.NewNotificationRepository()
	return NewDispatcher(transport, repo, logger), transport, repo
}

func testAlert() *domain.Alert {
	return &domain.Alert{
		ID:        "alert-1",
		BloodType: domain.BloodOPos,
		Urgency:   domain.UrgencyHigh,
		RadiusKm:  10,
		Status:    domain.AlertStatusActive,
	}
}

func recipient(id, token string) *domain.Actor {
	return &domain.Actor{ID: id, Role: domain.RoleDonor, Active: true, PushToken: token}
}

func TestDispatch_SettlesAllAttempts(t *testing.T) {
	dispatcher, transport, repo := testDispatcher(map[string]bool{"tok-2": true})
	ctx := context.Background()

	recipients := []*domain.Actor{
		recipient("donor-1", "tok-1"),
		recipient("donor-2", "tok-2"),
		recipient("donor-3", "tok-3"),
	}

	summary := dispatcher.Dispatch(ctx, recipients, testAlert(), domain.EventNewAlert, "")

	if summary.Total != 3 {
		t.Errorf("Total = %d, want 3", summary.Total)
	}
	if summary.Successful != 2 {
		t.Errorf("Successful = %d, want 2", summary.Successful)
	}
	if summary.Failed != 1 {
		t.Errorf("Failed = %d, want 1", summary.Failed)
	}

	transport.mu.Lock()
	delivered := len(transport.sent)
	transport.mu.Unlock()
	if delivered != 2 {
		t.Errorf("transport deliveries = %d, want 2", delivered)
	}

	// Every attempt leaves a record, failed ones carry the error
	records, _ := repo.ListByAlert(ctx, "alert-1")
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
	var failed int
	for _, r := range records {
		if r.Status == domain.NotificationFailed {
			failed++
			if r.Error == "" {
				t.Error("failed record should carry the error description")
			}
		}
	}
	if failed != 1 {
		t.Errorf("failed records = %d, want 1", failed)
	}
}

func TestDispatch_SkipsRecipientsWithoutToken(t *testing.T) {
	dispatcher, _, repo := testDispatcher(nil)
	ctx := context.Background()

	recipients := []*domain.Actor{
		recipient("donor-1", "tok-1"),
		recipient("donor-2", ""),
	}

	summary := dispatcher.Dispatch(ctx, recipients, testAlert(), domain.EventNewAlert, "")

	if summary.Total != 1 {
		t.Errorf("Total = %d, want 1 (tokenless recipient not attempted)", summary.Total)
	}

	records, _ := repo.ListByAlert(ctx, "alert-1")
	if len(records) != 1 {
		t.Errorf("records = %d, want 1 (no record for skipped recipient)", len(records))
	}
}

func TestDispatch_UnknownEventType(t *testing.T) {
	dispatcher, transport, _ := testDispatcher(nil)

	summary := dispatcher.Dispatch(context.Background(),
		[]*domain.Actor{recipient("donor-1", "tok-1")},
		testAlert(), domain.EventType("BOGUS"), "")

	if summary.Total != 0 {
		t.Errorf("Total = %d, want 0 for unknown event type", summary.Total)
	}
	if len(transport.sent) != 0 {
		t.Error("nothing should be delivered for an unknown event type")
	}
}

func TestRender_DonorNameFallback(t *testing.T) {
	alert := testAlert()

	_, body, ok := render(domain.EventDonorAccepted, alert, "")
	if !ok {
		t.Fatal("render should know EventDonorAccepted")
	}
	if body != "A donor accepted your O+ alert" {
		t.Errorf("body = %q, want anonymous fallback", body)
	}

	_, body, _ = render(domain.EventDonorAccepted, alert, "Jo")
	if body != "Jo accepted your O+ alert" {
		t.Errorf("body = %q, want donor name used", body)
	}
}
