package offers

import (
	"context"
	"testing"
	"time"

	"github.com/hirewire/pipeline/internal/app/domain/application"
	"github.com/hirewire/pipeline/internal/app/storage"
)

func seedOffer(t *testing.T, store *storage.Memory, applicant string, expiresAt time.Time) application.Application {
	t.Helper()
	ctx := context.Background()
	app, err := store.CreateApplication(ctx, application.Application{
		JobID:       "job-1",
		ApplicantID: applicant,
		Status:      application.StatusPending,
		Timeline:    []application.TimelineEntry{{Action: application.ActionSubmitted, Date: time.Now()}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	app.Status = application.StatusOfferMade
	app.Offer = &application.Offer{
		Salary:     80000,
		Status:     application.OfferExtended,
		ExtendedAt: time.Now().Add(-8 * 24 * time.Hour),
		ExpiresAt:  expiresAt,
	}
	updated, err := store.UpdateApplicationStatus(ctx, app)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	return updated
}

func TestSweepExpiresLapsedOffers(t *testing.T) {
	store := storage.NewMemory()
	lapsed := seedOffer(t, store, "alice", time.Now().Add(-time.Hour))
	fresh := seedOffer(t, store, "bob", time.Now().Add(24*time.Hour))

	sweeper := NewSweeper(store, "", nil)
	if err := sweeper.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	got, err := store.GetApplication(context.Background(), lapsed.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Offer.Status != application.OfferExpired {
		t.Fatalf("expected expired offer, got %s", got.Offer.Status)
	}
	last := got.Timeline[len(got.Timeline)-1]
	if last.Action != application.ActionOfferExpired {
		t.Fatalf("expected offer-expired timeline entry, got %s", last.Action)
	}
	// The pipeline status is untouched; a recruiter decides what happens next.
	if got.Status != application.StatusOfferMade {
		t.Fatalf("expected status unchanged, got %s", got.Status)
	}

	untouched, err := store.GetApplication(context.Background(), fresh.ID)
	if err != nil {
		t.Fatalf("get fresh: %v", err)
	}
	if untouched.Offer.Status != application.OfferExtended {
		t.Fatalf("expected fresh offer untouched, got %s", untouched.Offer.Status)
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	store := storage.NewMemory()
	lapsed := seedOffer(t, store, "alice", time.Now().Add(-time.Hour))

	sweeper := NewSweeper(store, "", nil)
	for i := 0; i < 2; i++ {
		if err := sweeper.Sweep(context.Background()); err != nil {
			t.Fatalf("sweep %d: %v", i, err)
		}
	}

	got, err := store.GetApplication(context.Background(), lapsed.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	expired := 0
	for _, entry := range got.Timeline {
		if entry.Action == application.ActionOfferExpired {
			expired++
		}
	}
	if expired != 1 {
		t.Fatalf("expected a single expiry entry, got %d", expired)
	}
}

func TestSweeperLifecycle(t *testing.T) {
	store := storage.NewMemory()
	sweeper := NewSweeper(store, "@every 1h", nil)

	ctx := context.Background()
	if err := sweeper.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := sweeper.Start(ctx); err != nil {
		t.Fatalf("double start should be a no-op: %v", err)
	}
	if err := sweeper.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := sweeper.Stop(ctx); err != nil {
		t.Fatalf("double stop should be a no-op: %v", err)
	}
}

func TestSweeperRejectsBadSchedule(t *testing.T) {
	sweeper := NewSweeper(storage.NewMemory(), "not a schedule", nil)
	if err := sweeper.Start(context.Background()); err == nil {
		t.Fatalf("expected invalid schedule to fail")
	}
}
