package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hirewire/pipeline/internal/app/domain/application"
	"github.com/hirewire/pipeline/internal/app/domain/company"
	"github.com/hirewire/pipeline/internal/app/domain/job"
)

// Memory is a thread-safe in-memory persistence layer implementing the
// storage interfaces defined in this package. It is intended for tests and
// prototyping and deliberately keeps the implementation simple; the
// uniqueness and conditional-update guarantees match the postgres store.
type Memory struct {
	mu           sync.RWMutex
	applications map[string]application.Application
	jobs         map[string]job.Job
	companies    map[string]company.Company
}

var _ ApplicationStore = (*Memory)(nil)
var _ JobStore = (*Memory)(nil)
var _ CompanyStore = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		applications: make(map[string]application.Application),
		jobs:         make(map[string]job.Job),
		companies:    make(map[string]company.Company),
	}
}

// ApplicationStore implementation ---------------------------------------------

func (m *Memory) CreateApplication(_ context.Context, app application.Application) (application.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.applications {
		if existing.JobID == app.JobID && existing.ApplicantID == app.ApplicantID &&
			existing.Status != application.StatusWithdrawn {
			return application.Application{}, ErrDuplicate
		}
	}

	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	app.CreatedAt = now
	app.UpdatedAt = now
	app.Version = 1

	m.applications[app.ID] = cloneApplication(app)
	return cloneApplication(app), nil
}

func (m *Memory) GetApplication(_ context.Context, id string) (application.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	app, ok := m.applications[id]
	if !ok {
		return application.Application{}, fmt.Errorf("application %s: %w", id, ErrNotFound)
	}
	return cloneApplication(app), nil
}

func (m *Memory) UpdateApplicationStatus(_ context.Context, app application.Application) (application.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.applications[app.ID]
	if !ok {
		return application.Application{}, fmt.Errorf("application %s: %w", app.ID, ErrNotFound)
	}
	if stored.Version != app.Version {
		return application.Application{}, fmt.Errorf("read version %d, stored %d: %w", app.Version, stored.Version, ErrStale)
	}

	app.CreatedAt = stored.CreatedAt
	app.UpdatedAt = time.Now().UTC()
	app.Version++
	m.applications[app.ID] = cloneApplication(app)
	return cloneApplication(app), nil
}

func (m *Memory) UpdateApplication(_ context.Context, app application.Application) (application.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.applications[app.ID]
	if !ok {
		return application.Application{}, fmt.Errorf("application %s: %w", app.ID, ErrNotFound)
	}

	app.CreatedAt = stored.CreatedAt
	app.UpdatedAt = time.Now().UTC()
	m.applications[app.ID] = cloneApplication(app)
	return cloneApplication(app), nil
}

func (m *Memory) ListApplications(_ context.Context, filter ApplicationFilter) ([]application.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []application.Application
	for _, app := range m.applications {
		if matchesFilter(app, filter) {
			result = append(result, cloneApplication(app))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *Memory) CountByStatus(_ context.Context, filter ApplicationFilter) (map[application.Status]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[application.Status]int64)
	for _, app := range m.applications {
		if matchesFilter(app, filter) {
			counts[app.Status]++
		}
	}
	return counts, nil
}

func (m *Memory) MonthlySubmissions(_ context.Context, filter ApplicationFilter, months int) ([]MonthBucket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byMonth := make(map[time.Time]int64)
	for _, app := range m.applications {
		if !matchesFilter(app, filter) {
			continue
		}
		month := time.Date(app.CreatedAt.Year(), app.CreatedAt.Month(), 1, 0, 0, 0, 0, time.UTC)
		byMonth[month]++
	}

	buckets := make([]MonthBucket, 0, len(byMonth))
	for month, count := range byMonth {
		buckets = append(buckets, MonthBucket{Month: month, Count: count})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Month.After(buckets[j].Month)
	})
	if months > 0 && len(buckets) > months {
		buckets = buckets[:months]
	}
	return buckets, nil
}

func (m *Memory) ListExpiredOffers(_ context.Context, before time.Time) ([]application.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []application.Application
	for _, app := range m.applications {
		if app.Offer != nil && app.Offer.Status == application.OfferExtended &&
			app.Offer.ExpiresAt.Before(before) {
			result = append(result, cloneApplication(app))
		}
	}
	return result, nil
}

// JobStore / CompanyStore implementation --------------------------------------

func (m *Memory) GetJob(_ context.Context, id string) (job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[id]
	if !ok {
		return job.Job{}, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return j, nil
}

func (m *Memory) IncrementApplicationCount(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	j.ApplicationCount++
	m.jobs[id] = j
	return nil
}

func (m *Memory) GetCompany(_ context.Context, id string) (company.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.companies[id]
	if !ok {
		return company.Company{}, fmt.Errorf("company %s: %w", id, ErrNotFound)
	}
	return c, nil
}

// PutJob seeds a posting snapshot. Postings are owned by the job board's
// CRUD layer; tests and prototypes seed them directly.
func (m *Memory) PutJob(j job.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	m.jobs[j.ID] = j
}

// PutCompany seeds a company roster snapshot.
func (m *Memory) PutCompany(c company.Company) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	m.companies[c.ID] = c
}

func matchesFilter(app application.Application, filter ApplicationFilter) bool {
	if filter.ApplicantID != "" && app.ApplicantID != filter.ApplicantID {
		return false
	}
	if filter.JobID != "" && app.JobID != filter.JobID {
		return false
	}
	if filter.CompanyID != "" && app.CompanyID != filter.CompanyID {
		return false
	}
	return true
}

func cloneApplication(app application.Application) application.Application {
	out := app
	out.Documents = append([]application.Document(nil), app.Documents...)
	out.Answers = append([]application.Answer(nil), app.Answers...)
	out.Timeline = append([]application.TimelineEntry(nil), app.Timeline...)
	out.RecruiterNotes = append([]application.RecruiterNote(nil), app.RecruiterNotes...)

	out.Interviews = make([]application.Interview, len(app.Interviews))
	for i, iv := range app.Interviews {
		out.Interviews[i] = iv
		if iv.Feedback != nil {
			fb := *iv.Feedback
			out.Interviews[i].Feedback = &fb
		}
	}
	if app.Rating != nil {
		r := *app.Rating
		out.Rating = &r
	}
	if app.Offer != nil {
		o := *app.Offer
		o.Benefits = append([]string(nil), app.Offer.Benefits...)
		out.Offer = &o
	}
	if app.Feedback != nil {
		f := *app.Feedback
		out.Feedback = &f
	}
	return out
}
