package applications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/hirewire/pipeline/internal/app/domain/application"
	"github.com/hirewire/pipeline/internal/app/metrics"
	"github.com/hirewire/pipeline/internal/app/services/notify"
	"github.com/hirewire/pipeline/internal/app/storage"
	"github.com/hirewire/pipeline/pkg/logger"
)

// Service drives the application lifecycle: submissions, status transitions,
// employer annotations and aggregate views. All writes funnel through here;
// stores persist whatever the service hands them.
type Service struct {
	store     storage.ApplicationStore
	jobs      storage.JobStore
	companies storage.CompanyStore
	access    *AccessResolver
	notifier  notify.Dispatcher
	cache     *redis.Client
	log       *logger.Logger

	now func() time.Time
}

// New constructs an application service.
func New(store storage.ApplicationStore, jobs storage.JobStore, companies storage.CompanyStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("applications")
	}
	return &Service{
		store:     store,
		jobs:      jobs,
		companies: companies,
		access:    NewAccessResolver(jobs, companies),
		log:       log,
		now:       time.Now,
	}
}

// AttachNotifier wires the best-effort notification dispatcher. Without one
// the service stays fully functional and simply skips notifications.
func (s *Service) AttachNotifier(d notify.Dispatcher) {
	s.notifier = d
}

// SubmitInput carries everything a candidate provides at submission time.
type SubmitInput struct {
	JobID             string                 `json:"job_id"`
	ApplicantID       string                 `json:"applicant_id"`
	CoverLetter       string                 `json:"cover_letter,omitempty"`
	ResumeURL         string                 `json:"resume_url"`
	Documents         []application.Document `json:"documents,omitempty"`
	Answers           []application.Answer   `json:"answers,omitempty"`
	Experience        string                 `json:"experience,omitempty"`
	Availability      string                 `json:"availability,omitempty"`
	SalaryExpectation int64                  `json:"salary_expectation,omitempty"`
}

// Submit creates a new application in the pending state. The job must exist
// and be accepting applications, and a resume is mandatory. The one-live-
// application-per-job rule is enforced by the store, so two concurrent
// submissions cannot both succeed.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (application.Application, error) {
	if in.JobID == "" {
		return application.Application{}, fmt.Errorf("%w: job_id is required", ErrInvalidInput)
	}
	if in.ApplicantID == "" {
		return application.Application{}, fmt.Errorf("%w: applicant_id is required", ErrInvalidInput)
	}

	// Precondition order: the job must exist and be open before payload
	// checks, so a dead posting reads as NotFound rather than a validation
	// failure.
	posting, err := s.jobs.GetJob(ctx, in.JobID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return application.Application{}, ErrJobNotFound
		}
		return application.Application{}, fmt.Errorf("load job: %w", err)
	}

	now := s.now().UTC()
	if !posting.Open(now) {
		return application.Application{}, ErrJobClosed
	}
	if strings.TrimSpace(in.ResumeURL) == "" {
		return application.Application{}, ErrResumeRequired
	}

	app := application.Application{
		JobID:             in.JobID,
		ApplicantID:       in.ApplicantID,
		CompanyID:         posting.CompanyID,
		Status:            application.StatusPending,
		CoverLetter:       in.CoverLetter,
		ResumeURL:         in.ResumeURL,
		Documents:         in.Documents,
		Answers:           in.Answers,
		Experience:        in.Experience,
		Availability:      in.Availability,
		SalaryExpectation: in.SalaryExpectation,
		IsActive:          true,
		Timeline: []application.TimelineEntry{{
			Action:      application.ActionSubmitted,
			Date:        now,
			Note:        "Application submitted",
			PerformedBy: in.ApplicantID,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := s.store.CreateApplication(ctx, app)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return application.Application{}, ErrDuplicateApplication
		}
		return application.Application{}, fmt.Errorf("create application: %w", err)
	}

	// Counter bump is advisory; losing it never rolls back the submission.
	if err := s.jobs.IncrementApplicationCount(ctx, in.JobID); err != nil {
		s.log.WithError(err).WithField("job_id", in.JobID).Warn("application count increment failed")
	}

	metrics.ObserveSubmission()
	s.log.WithField("application_id", created.ID).
		WithField("job_id", created.JobID).
		Info("application submitted")

	s.dispatch(ctx, notify.Message{
		Template:  notify.TemplateApplicationReceived,
		Recipient: created.ApplicantID,
		Context: map[string]string{
			"application_id": created.ID,
			"job_title":      posting.Title,
		},
	})
	return created, nil
}

// Get returns one application, redacted for the actor's role.
func (s *Service) Get(ctx context.Context, actorID, id string) (application.Application, error) {
	app, err := s.load(ctx, id)
	if err != nil {
		return application.Application{}, err
	}
	access, err := s.access.Resolve(ctx, actorID, &app)
	if err != nil {
		return application.Application{}, err
	}
	if !access.CanRead() {
		return application.Application{}, ErrForbidden
	}
	return redact(app, access), nil
}

// List returns applications matching the filter, redacted per actor. The
// filter must be scoped to something the actor may see: their own submissions,
// a job they created, or a company they belong to.
func (s *Service) List(ctx context.Context, actorID string, filter storage.ApplicationFilter) ([]application.Application, error) {
	if err := s.authorizeFilter(ctx, actorID, filter); err != nil {
		return nil, err
	}
	apps, err := s.store.ListApplications(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	out := make([]application.Application, 0, len(apps))
	for _, app := range apps {
		access, err := s.access.Resolve(ctx, actorID, &app)
		if err != nil {
			return nil, err
		}
		if !access.CanRead() {
			continue
		}
		out = append(out, redact(app, access))
	}
	return out, nil
}

// authorizeFilter checks that a list or statistics scope belongs to the actor.
func (s *Service) authorizeFilter(ctx context.Context, actorID string, filter storage.ApplicationFilter) error {
	if actorID == "" {
		return ErrForbidden
	}
	switch {
	case filter.ApplicantID != "":
		if filter.ApplicantID != actorID {
			return ErrForbidden
		}
		return nil
	case filter.JobID != "":
		posting, err := s.jobs.GetJob(ctx, filter.JobID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return ErrJobNotFound
			}
			return fmt.Errorf("load job: %w", err)
		}
		if posting.CreatedBy == actorID {
			return nil
		}
		return s.requireCompanyMember(ctx, actorID, posting.CompanyID)
	case filter.CompanyID != "":
		return s.requireCompanyMember(ctx, actorID, filter.CompanyID)
	default:
		return ErrForbidden
	}
}

func (s *Service) requireCompanyMember(ctx context.Context, actorID, companyID string) error {
	if companyID == "" {
		return ErrForbidden
	}
	comp, err := s.companies.GetCompany(ctx, companyID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrForbidden
		}
		return fmt.Errorf("load company: %w", err)
	}
	if comp.EmployeeByUser(actorID) == nil {
		return ErrForbidden
	}
	return nil
}

func (s *Service) load(ctx context.Context, id string) (application.Application, error) {
	if id == "" {
		return application.Application{}, ErrApplicationNotFound
	}
	app, err := s.store.GetApplication(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return application.Application{}, ErrApplicationNotFound
		}
		return application.Application{}, fmt.Errorf("load application: %w", err)
	}
	return app, nil
}

// redact strips employer-internal material from applicant-facing views.
func redact(app application.Application, access Access) application.Application {
	if access.Role != RoleApplicant {
		return app
	}
	app.RecruiterNotes = nil
	app.Rating = nil
	for i := range app.Interviews {
		app.Interviews[i].Feedback = nil
	}
	return app
}

// dispatch fires a notification without letting delivery problems surface.
func (s *Service) dispatch(ctx context.Context, msg notify.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		s.log.WithError(err).WithField("template", msg.Template).Warn("notification enqueue failed")
	}
}
