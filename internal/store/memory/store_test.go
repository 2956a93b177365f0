package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"bloodlink/internal/domain"
)

func makeAlert(id string, createdAt time.Time) *domain.Alert {
	return &domain.Alert{
		ID:          id,
		RequesterID: "doc-1",
		BloodType:   domain.BloodOPos,
		Urgency:     domain.UrgencyMedium,
		Status:      domain.AlertStatusActive,
		Origin:      domain.Location{Latitude: 3.87, Longitude: 11.52},
		RadiusKm:    10,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
		ExpiresAt:   createdAt.Add(domain.DefaultTTL),
	}
}

func TestAlertRepository_CopyOnRead(t *testing.T) {
	repo := NewAlertRepository()
	ctx := context.Background()

	alert := makeAlert("alert-1", time.Now().UTC())
	if err := repo.Create(ctx, alert); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	// Mutating the returned copy must not leak into the store
	got, _ := repo.GetByID(ctx, "alert-1")
	got.UpsertResponse("donor-1", domain.ResponseAccepted, "")

	again, _ := repo.GetByID(ctx, "alert-1")
	if len(again.Responses) != 0 {
		t.Error("mutation of a returned alert leaked into the store")
	}
}

func TestAlertRepository_UpdateMissing(t *testing.T) {
	repo := NewAlertRepository()
	err := repo.Update(context.Background(), makeAlert("missing", time.Now()))
	if !errors.Is(err, domain.ErrAlertNotFound) {
		t.Errorf("Update missing = %v, want ErrAlertNotFound", err)
	}
}

func TestAlertRepository_ListFilters(t *testing.T) {
	repo := NewAlertRepository()
	ctx := context.Background()
	base := time.Now().UTC()

	a := makeAlert("alert-1", base)
	a.FacilityID = "bank-1"

	b := makeAlert("alert-2", base.Add(time.Second))
	b.PropagatedTo = []string{"bank-1"}
	b.BloodType = domain.BloodABNeg

	c := makeAlert("alert-3", base.Add(2*time.Second))
	c.Status = domain.AlertStatusCancelled

	for _, alert := range []*domain.Alert{a, b, c} {
		_ = repo.Create(ctx, alert)
	}

	// Facility filter matches both targeted and propagated alerts
	got, _ := repo.List(ctx, domain.AlertFilter{FacilityID: "bank-1"})
	if len(got) != 2 {
		t.Errorf("facility filter = %d results, want 2", len(got))
	}

	got, _ = repo.List(ctx, domain.AlertFilter{Status: domain.AlertStatusActive})
	if len(got) != 2 {
		t.Errorf("status filter = %d results, want 2", len(got))
	}

	got, _ = repo.List(ctx, domain.AlertFilter{BloodType: domain.BloodABNeg})
	if len(got) != 1 || got[0].ID != "alert-2" {
		t.Errorf("blood type filter = %v, want alert-2 only", got)
	}

	// Newest first, pagination applies after sorting
	got, _ = repo.List(ctx, domain.AlertFilter{Limit: 2})
	if len(got) != 2 || got[0].ID != "alert-3" || got[1].ID != "alert-2" {
		t.Errorf("pagination order wrong: %v", got)
	}
	got, _ = repo.List(ctx, domain.AlertFilter{Limit: 2, Offset: 2})
	if len(got) != 1 || got[0].ID != "alert-1" {
		t.Errorf("offset page wrong: %v", got)
	}
}

func TestAlertRepository_ListActiveExpiredBefore(t *testing.T) {
	repo := NewAlertRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	overdue := makeAlert("overdue", now.Add(-48*time.Hour))
	fresh := makeAlert("fresh", now)
	closed := makeAlert("closed", now.Add(-48*time.Hour))
	closed.Status = domain.AlertStatusCancelled

	for _, alert := range []*domain.Alert{overdue, fresh, closed} {
		_ = repo.Create(ctx, alert)
	}

	due, _ := repo.ListActiveExpiredBefore(ctx, now)
	if len(due) != 1 || due[0].ID != "overdue" {
		t.Errorf("due = %v, want overdue only", due)
	}
}

func TestActorRepository_PushToken(t *testing.T) {
	repo := NewActorRepository()
	ctx := context.Background()

	repo.Put(&domain.Actor{ID: "donor-1", Role: domain.RoleDonor, Active: true})

	if err := repo.UpdatePushToken(ctx, "donor-1", "tok-9"); err != nil {
		t.Fatalf("UpdatePushToken error: %v", err)
	}
	actor, _ := repo.GetByID(ctx, "donor-1")
	if actor.PushToken != "tok-9" {
		t.Errorf("PushToken = %v, want tok-9", actor.PushToken)
	}

	err := repo.UpdatePushToken(ctx, "missing", "tok")
	if !errors.Is(err, domain.ErrActorNotFound) {
		t.Errorf("UpdatePushToken missing = %v, want ErrActorNotFound", err)
	}
}

func TestNotificationRepository_ListByRecipient(t *testing.T) {
	repo := NewNotificationRepository()
	ctx := context.Background()
	base := time.Now().UTC()

	for i, id := range []string{"n-1", "n-2", "n-3"} {
		_ = repo.Create(ctx, &domain.Notification{
			ID:          id,
			RecipientID: "donor-1",
			AlertID:     "alert-1",
			Type:        domain.EventNewAlert,
			Status:      domain.NotificationSent,
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		})
	}

	got, _ := repo.ListByRecipient(ctx, "donor-1", 2)
	if len(got) != 2 {
		t.Fatalf("limit not applied, got %d", len(got))
	}
	if got[0].ID != "n-3" || got[1].ID != "n-2" {
		t.Errorf("order = %v, %v, want newest first", got[0].ID, got[1].ID)
	}
}

func TestNotificationRepository_Superseded(t *testing.T) {
	repo := NewNotificationRepository()
	ctx := context.Background()

	read := &domain.Notification{ID: "n-read", RecipientID: "d-1", AlertID: "alert-1", CreatedAt: time.Now()}
	unread := &domain.Notification{ID: "n-unread", RecipientID: "d-2", AlertID: "alert-1", CreatedAt: time.Now()}
	other := &domain.Notification{ID: "n-other", RecipientID: "d-3", AlertID: "alert-2", CreatedAt: time.Now()}
	for _, n := range []*domain.Notification{read, unread, other} {
		_ = repo.Create(ctx, n)
	}
	_ = repo.MarkRead(ctx, "n-read")

	if err := repo.MarkSupersededByAlert(ctx, "alert-1"); err != nil {
		t.Fatalf("MarkSupersededByAlert error: %v", err)
	}

	got, _ := repo.GetByID(ctx, "n-unread")
	if !got.Superseded {
		t.Error("unread record for the alert should be superseded")
	}
	got, _ = repo.GetByID(ctx, "n-read")
	if got.Superseded {
		t.Error("read record should not be superseded")
	}
	got, _ = repo.GetByID(ctx, "n-other")
	if got.Superseded {
		t.Error("record for another alert should not be superseded")
	}
}

func TestNotificationRepository_ConcurrentCreate(t *testing.T) {
	repo := NewNotificationRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = repo.Create(ctx, &domain.Notification{
				ID:          fmt.Sprintf("n-%d", i),
				RecipientID: "donor-1",
				AlertID:     "alert-1",
				CreatedAt:   time.Now(),
			})
		}(i)
	}
	wg.Wait()

	got, _ := repo.ListByAlert(ctx, "alert-1")
	if len(got) != 50 {
		t.Errorf("concurrent creates = %d records, want 50", len(got))
	}
}

func TestAlertLocker_SerializesHolders(t *testing.T) {
	locker := NewAlertLocker()
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "alert-1")
	if err != nil {
		t.Fatalf("Lock error: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		unlock2, err := locker.Lock(ctx, "alert-1")
		if err != nil {
			t.Errorf("second Lock error: %v", err)
			close(acquired)
			return
		}
		close(acquired)
		unlock2()
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired the lock while held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second holder never acquired the lock after release")
	}
}

func TestAlertLocker_ContextCancel(t *testing.T) {
	locker := NewAlertLocker()

	unlock, err := locker.Lock(context.Background(), "alert-1")
	if err != nil {
		t.Fatalf("Lock error: %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := locker.Lock(ctx, "alert-1"); err == nil {
		t.Error("Lock should fail when the context expires while waiting")
	}

	// Different alerts do not contend
	unlockOther, err := locker.Lock(context.Background(), "alert-2")
	if err != nil {
		t.Fatalf("Lock on another alert error: %v", err)
	}
	unlockOther()
}
