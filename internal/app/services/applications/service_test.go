package applications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hirewire/pipeline/internal/app/domain/application"
	"github.com/hirewire/pipeline/internal/app/domain/company"
	"github.com/hirewire/pipeline/internal/app/domain/job"
	"github.com/hirewire/pipeline/internal/app/storage"
)

const (
	testJobID     = "job-1"
	testCompanyID = "comp-1"
	testRecruiter = "recruiter-1"
	testHR        = "hr-1"
	testEmployee  = "plain-1"
	testApplicant = "candidate-1"
)

func newTestService(t *testing.T) (*Service, *storage.Memory) {
	t.Helper()
	store := storage.NewMemory()
	store.PutJob(job.Job{
		ID:        testJobID,
		CompanyID: testCompanyID,
		CreatedBy: testRecruiter,
		Title:     "Backend Engineer",
		Status:    job.StatusPublished,
		IsActive:  true,
	})
	store.PutCompany(company.Company{
		ID: testCompanyID,
		Employees: []company.Employee{
			{UserID: testHR, Role: company.RoleHR, IsActive: true},
			{UserID: testEmployee, Role: company.RoleEmployee, IsActive: true},
			{UserID: "former-1", Role: company.RoleAdmin, IsActive: false},
		},
	})
	return New(store, store, store, nil), store
}

func submit(t *testing.T, svc *Service, applicantID string) application.Application {
	t.Helper()
	app, err := svc.Submit(context.Background(), SubmitInput{
		JobID:       testJobID,
		ApplicantID: applicantID,
		ResumeURL:   "https://cdn.example.com/resume.pdf",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return app
}

func TestSubmit(t *testing.T) {
	svc, store := newTestService(t)

	app := submit(t, svc, testApplicant)
	if app.ID == "" {
		t.Fatalf("expected id to be generated")
	}
	if app.Status != application.StatusPending {
		t.Fatalf("expected pending status, got %s", app.Status)
	}
	if app.CompanyID != testCompanyID {
		t.Fatalf("expected company id from job, got %q", app.CompanyID)
	}
	if !app.IsActive {
		t.Fatalf("expected submission to be active")
	}
	if len(app.Timeline) != 1 || app.Timeline[0].Action != application.ActionSubmitted {
		t.Fatalf("expected one submitted timeline entry, got %+v", app.Timeline)
	}

	posting, err := store.GetJob(context.Background(), testJobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if posting.ApplicationCount != 1 {
		t.Fatalf("expected application count 1, got %d", posting.ApplicationCount)
	}
}

func TestSubmitDuplicate(t *testing.T) {
	svc, _ := newTestService(t)

	first := submit(t, svc, testApplicant)

	_, err := svc.Submit(context.Background(), SubmitInput{
		JobID:       testJobID,
		ApplicantID: testApplicant,
		ResumeURL:   "https://cdn.example.com/resume-v2.pdf",
	})
	if !errors.Is(err, ErrDuplicateApplication) {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	// Withdrawing releases the slot; re-application succeeds.
	if _, err := svc.Withdraw(context.Background(), testApplicant, first.ID, ""); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	submit(t, svc, testApplicant)
}

func TestSubmitValidation(t *testing.T) {
	svc, store := newTestService(t)

	_, err := svc.Submit(context.Background(), SubmitInput{JobID: testJobID, ApplicantID: testApplicant})
	if !errors.Is(err, ErrResumeRequired) {
		t.Fatalf("expected resume error, got %v", err)
	}

	_, err = svc.Submit(context.Background(), SubmitInput{
		JobID:       "no-such-job",
		ApplicantID: testApplicant,
		ResumeURL:   "https://cdn.example.com/resume.pdf",
	})
	if !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected job not found, got %v", err)
	}

	// The job checks run first: a missing job wins over a missing resume.
	_, err = svc.Submit(context.Background(), SubmitInput{
		JobID:       "no-such-job",
		ApplicantID: testApplicant,
	})
	if !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected job not found to take precedence, got %v", err)
	}

	store.PutJob(job.Job{
		ID:        "closed-job",
		CompanyID: testCompanyID,
		CreatedBy: testRecruiter,
		Status:    job.StatusPublished,
		IsActive:  false,
	})
	_, err = svc.Submit(context.Background(), SubmitInput{
		JobID:       "closed-job",
		ApplicantID: testApplicant,
		ResumeURL:   "https://cdn.example.com/resume.pdf",
	})
	if !errors.Is(err, ErrJobClosed) {
		t.Fatalf("expected job closed, got %v", err)
	}

	store.PutJob(job.Job{
		ID:                  "past-deadline",
		CompanyID:           testCompanyID,
		CreatedBy:           testRecruiter,
		Status:              job.StatusPublished,
		IsActive:            true,
		ApplicationDeadline: time.Now().Add(-time.Hour),
	})
	_, err = svc.Submit(context.Background(), SubmitInput{
		JobID:       "past-deadline",
		ApplicantID: testApplicant,
		ResumeURL:   "https://cdn.example.com/resume.pdf",
	})
	if !errors.Is(err, ErrJobClosed) {
		t.Fatalf("expected job closed after deadline, got %v", err)
	}
}

func TestGetRedactsForApplicant(t *testing.T) {
	svc, _ := newTestService(t)
	app := submit(t, svc, testApplicant)

	if _, err := svc.AddRecruiterNote(context.Background(), testHR, app.ID, "strong profile", true); err != nil {
		t.Fatalf("add note: %v", err)
	}
	if _, err := svc.RateApplication(context.Background(), testHR, app.ID, application.Rating{Overall: 4}); err != nil {
		t.Fatalf("rate: %v", err)
	}

	mine, err := svc.Get(context.Background(), testApplicant, app.ID)
	if err != nil {
		t.Fatalf("get as applicant: %v", err)
	}
	if len(mine.RecruiterNotes) != 0 || mine.Rating != nil {
		t.Fatalf("expected employer material redacted, got notes=%d rating=%v", len(mine.RecruiterNotes), mine.Rating)
	}

	theirs, err := svc.Get(context.Background(), testHR, app.ID)
	if err != nil {
		t.Fatalf("get as hr: %v", err)
	}
	if len(theirs.RecruiterNotes) != 1 || theirs.Rating == nil {
		t.Fatalf("expected employer view to keep notes and rating")
	}

	if _, err := svc.Get(context.Background(), "stranger-9", app.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for stranger, got %v", err)
	}
}

func TestListScoping(t *testing.T) {
	svc, _ := newTestService(t)
	submit(t, svc, testApplicant)
	submit(t, svc, "candidate-2")

	mine, err := svc.List(context.Background(), testApplicant, storage.ApplicationFilter{ApplicantID: testApplicant})
	if err != nil {
		t.Fatalf("list own: %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("expected 1 own application, got %d", len(mine))
	}

	if _, err := svc.List(context.Background(), testApplicant, storage.ApplicationFilter{ApplicantID: "candidate-2"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden listing someone else's applications, got %v", err)
	}

	byJob, err := svc.List(context.Background(), testRecruiter, storage.ApplicationFilter{JobID: testJobID})
	if err != nil {
		t.Fatalf("list by job: %v", err)
	}
	if len(byJob) != 2 {
		t.Fatalf("expected 2 applications for job, got %d", len(byJob))
	}

	if _, err := svc.List(context.Background(), "stranger-9", storage.ApplicationFilter{CompanyID: testCompanyID}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden company scope for stranger, got %v", err)
	}
}
