package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hirewire/pipeline/internal/app/domain/application"
)

func seedApplication(t *testing.T, m *Memory, jobID, applicantID string) application.Application {
	t.Helper()
	app, err := m.CreateApplication(context.Background(), application.Application{
		JobID:       jobID,
		ApplicantID: applicantID,
		CompanyID:   "comp-1",
		Status:      application.StatusPending,
		ResumeURL:   "https://cdn.example.com/resume.pdf",
		IsActive:    true,
		Timeline:    []application.TimelineEntry{{Action: application.ActionSubmitted, Date: time.Now()}},
	})
	if err != nil {
		t.Fatalf("create application: %v", err)
	}
	return app
}

func TestCreateApplicationUniqueness(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	app := seedApplication(t, m, "job-1", "alice")

	_, err := m.CreateApplication(ctx, application.Application{
		JobID: "job-1", ApplicantID: "alice", Status: application.StatusPending,
	})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}

	// Different job or applicant is fine.
	seedApplication(t, m, "job-2", "alice")
	seedApplication(t, m, "job-1", "bob")

	// A withdrawn record frees the slot.
	app.Status = application.StatusWithdrawn
	if _, err := m.UpdateApplicationStatus(ctx, app); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	seedApplication(t, m, "job-1", "alice")
}

func TestUpdateApplicationStatusConditional(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	app := seedApplication(t, m, "job-1", "alice")

	app.Status = application.StatusReviewing
	updated, err := m.UpdateApplicationStatus(ctx, app)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != application.StatusReviewing {
		t.Fatalf("expected reviewing, got %s", updated.Status)
	}
	if updated.Version != app.Version+1 {
		t.Fatalf("expected version bump to %d, got %d", app.Version+1, updated.Version)
	}

	// A second writer still holding the original snapshot must lose.
	stale := app
	stale.Status = application.StatusShortlisted
	if _, err := m.UpdateApplicationStatus(ctx, stale); !errors.Is(err, ErrStale) {
		t.Fatalf("expected stale, got %v", err)
	}

	missing := app
	missing.ID = "no-such-id"
	if _, err := m.UpdateApplicationStatus(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateApplicationStatusSelfEdgeRace(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seeded := seedApplication(t, m, "job-1", "alice")

	seeded.Status = application.StatusInterviewScheduled
	if _, err := m.UpdateApplicationStatus(ctx, seeded); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	// Two writers load the same snapshot and both reschedule: same status
	// before and after, so only the version distinguishes them.
	first, err := m.GetApplication(ctx, seeded.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	second, err := m.GetApplication(ctx, seeded.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	first.Timeline = append(first.Timeline, application.TimelineEntry{Action: application.ActionStatusChange, Note: "reschedule-1"})
	if _, err := m.UpdateApplicationStatus(ctx, first); err != nil {
		t.Fatalf("first reschedule: %v", err)
	}

	second.Timeline = append(second.Timeline, application.TimelineEntry{Action: application.ActionStatusChange, Note: "reschedule-2"})
	if _, err := m.UpdateApplicationStatus(ctx, second); !errors.Is(err, ErrStale) {
		t.Fatalf("expected the second reschedule to lose, got %v", err)
	}

	final, err := m.GetApplication(ctx, seeded.ID)
	if err != nil {
		t.Fatalf("get final: %v", err)
	}
	if len(final.Timeline) != len(first.Timeline) {
		t.Fatalf("expected timeline to grow once per applied write, got %d entries", len(final.Timeline))
	}
	if last := final.Timeline[len(final.Timeline)-1]; last.Note != "reschedule-1" {
		t.Fatalf("expected the winning entry to survive, got %q", last.Note)
	}
}

func TestListApplicationsFilter(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seedApplication(t, m, "job-1", "alice")
	seedApplication(t, m, "job-1", "bob")
	seedApplication(t, m, "job-2", "alice")

	byJob, err := m.ListApplications(ctx, ApplicationFilter{JobID: "job-1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(byJob) != 2 {
		t.Fatalf("expected 2 for job-1, got %d", len(byJob))
	}

	byApplicant, err := m.ListApplications(ctx, ApplicationFilter{ApplicantID: "alice"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(byApplicant) != 2 {
		t.Fatalf("expected 2 for alice, got %d", len(byApplicant))
	}

	counts, err := m.CountByStatus(ctx, ApplicationFilter{JobID: "job-1"})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts[application.StatusPending] != 2 {
		t.Fatalf("expected 2 pending, got %d", counts[application.StatusPending])
	}
}

func TestMonthlySubmissions(t *testing.T) {
	m := NewMemory()
	seedApplication(t, m, "job-1", "alice")
	seedApplication(t, m, "job-1", "bob")

	buckets, err := m.MonthlySubmissions(context.Background(), ApplicationFilter{}, 12)
	if err != nil {
		t.Fatalf("monthly: %v", err)
	}
	if len(buckets) != 1 {
		t.Fatalf("expected one bucket, got %d", len(buckets))
	}
	if buckets[0].Count != 2 {
		t.Fatalf("expected 2 submissions, got %d", buckets[0].Count)
	}
	now := time.Now().UTC()
	if buckets[0].Month.Month() != now.Month() || buckets[0].Month.Year() != now.Year() {
		t.Fatalf("expected current month, got %v", buckets[0].Month)
	}
}

func TestListExpiredOffers(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	app := seedApplication(t, m, "job-1", "alice")

	app.Status = application.StatusOfferMade
	app.Offer = &application.Offer{
		Salary:    90000,
		Status:    application.OfferExtended,
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	if _, err := m.UpdateApplicationStatus(ctx, app); err != nil {
		t.Fatalf("update: %v", err)
	}

	fresh := seedApplication(t, m, "job-2", "bob")
	fresh.Status = application.StatusOfferMade
	fresh.Offer = &application.Offer{
		Salary:    90000,
		Status:    application.OfferExtended,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	if _, err := m.UpdateApplicationStatus(ctx, fresh); err != nil {
		t.Fatalf("update: %v", err)
	}

	expired, err := m.ListExpiredOffers(ctx, time.Now())
	if err != nil {
		t.Fatalf("list expired: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != app.ID {
		t.Fatalf("expected only the lapsed offer, got %d", len(expired))
	}
}

func TestCloneIsolation(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	app := seedApplication(t, m, "job-1", "alice")

	got, err := m.GetApplication(ctx, app.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got.Timeline[0].Note = "mutated"
	got.Timeline = append(got.Timeline, application.TimelineEntry{Action: "extra"})

	again, err := m.GetApplication(ctx, app.ID)
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	if len(again.Timeline) != 1 || again.Timeline[0].Note == "mutated" {
		t.Fatalf("stored record mutated through a returned copy")
	}
}
