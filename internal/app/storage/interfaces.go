package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hirewire/pipeline/internal/app/domain/application"
	"github.com/hirewire/pipeline/internal/app/domain/company"
	"github.com/hirewire/pipeline/internal/app/domain/job"
)

// Store-level sentinels. Implementations must return these (possibly wrapped)
// so services can classify failures without knowing the backend.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate indicates the (job, applicant) uniqueness constraint fired.
	ErrDuplicate = errors.New("duplicate application")
	// ErrStale indicates a conditional status update lost a concurrent race:
	// the stored version no longer matches the one the writer read.
	ErrStale = errors.New("stale application snapshot")
)

// ApplicationFilter narrows list and aggregate queries. Zero values match
// everything.
type ApplicationFilter struct {
	ApplicantID string
	JobID       string
	CompanyID   string
}

// MonthBucket is one month of submission counts, keyed by the first day of
// the month in UTC.
type MonthBucket struct {
	Month time.Time
	Count int64
}

// ApplicationStore persists application aggregates.
type ApplicationStore interface {
	// CreateApplication inserts a new aggregate. At most one non-withdrawn
	// application may exist per (job, applicant); violations return
	// ErrDuplicate. The constraint lives in the store so concurrent
	// submissions cannot both succeed.
	CreateApplication(ctx context.Context, app application.Application) (application.Application, error)

	GetApplication(ctx context.Context, id string) (application.Application, error)

	// UpdateApplicationStatus persists app only if the stored version still
	// equals app.Version; otherwise it returns ErrStale. Conditioning on the
	// version rather than the status keeps self-edge transitions (reschedule,
	// offer re-extension) race-safe. The status change, the version bump and
	// the appended timeline entry land in one atomic write.
	UpdateApplicationStatus(ctx context.Context, app application.Application) (application.Application, error)

	// UpdateApplication persists sub-record changes (notes, ratings,
	// feedback, offer flags) that do not move the pipeline status.
	UpdateApplication(ctx context.Context, app application.Application) (application.Application, error)

	ListApplications(ctx context.Context, filter ApplicationFilter) ([]application.Application, error)

	CountByStatus(ctx context.Context, filter ApplicationFilter) (map[application.Status]int64, error)

	// MonthlySubmissions returns up to months buckets of submission counts,
	// most recent first.
	MonthlySubmissions(ctx context.Context, filter ApplicationFilter, months int) ([]MonthBucket, error)

	// ListExpiredOffers returns applications whose extended offer passed its
	// expiry before the given instant.
	ListExpiredOffers(ctx context.Context, before time.Time) ([]application.Application, error)
}

// JobStore exposes the posting snapshot owned by the job board's CRUD layer.
type JobStore interface {
	GetJob(ctx context.Context, id string) (job.Job, error)
	IncrementApplicationCount(ctx context.Context, id string) error
}

// CompanyStore exposes the roster snapshot the authorization resolver needs.
type CompanyStore interface {
	GetCompany(ctx context.Context, id string) (company.Company, error)
}
