package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/hirewire/pipeline/internal/app/domain/application"
	"github.com/hirewire/pipeline/internal/app/domain/company"
	"github.com/hirewire/pipeline/internal/app/domain/job"
	"github.com/hirewire/pipeline/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.ApplicationStore = (*Store)(nil)
var _ storage.JobStore = (*Store)(nil)
var _ storage.CompanyStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// applicationRow is the flat persistence shape; aggregate sub-records live in
// JSONB columns.
type applicationRow struct {
	ID                string    `db:"id"`
	JobID             string    `db:"job_id"`
	ApplicantID       string    `db:"applicant_id"`
	CompanyID         string    `db:"company_id"`
	Status            string    `db:"status"`
	CoverLetter       string    `db:"cover_letter"`
	ResumeURL         string    `db:"resume_url"`
	Documents         []byte    `db:"documents"`
	Answers           []byte    `db:"answers"`
	Experience        string    `db:"experience"`
	Availability      string    `db:"availability"`
	SalaryExpectation int64     `db:"salary_expectation"`
	Interviews        []byte    `db:"interviews"`
	Timeline          []byte    `db:"timeline"`
	RecruiterNotes    []byte    `db:"recruiter_notes"`
	Rating            []byte    `db:"rating"`
	Offer             []byte    `db:"offer"`
	Feedback          []byte    `db:"feedback"`
	IsActive          bool      `db:"is_active"`
	Version           int64     `db:"version"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

const applicationColumns = `id, job_id, applicant_id, company_id, status, cover_letter,
	resume_url, documents, answers, experience, availability, salary_expectation,
	interviews, timeline, recruiter_notes, rating, offer, feedback, is_active,
	version, created_at, updated_at`

func (s *Store) CreateApplication(ctx context.Context, app application.Application) (application.Application, error) {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	app.CreatedAt = now
	app.UpdatedAt = now
	app.Version = 1

	row, err := toRow(app)
	if err != nil {
		return application.Application{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO applications (`+applicationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`, row.ID, row.JobID, row.ApplicantID, row.CompanyID, row.Status, row.CoverLetter,
		row.ResumeURL, row.Documents, row.Answers, row.Experience, row.Availability,
		row.SalaryExpectation, row.Interviews, row.Timeline, row.RecruiterNotes,
		row.Rating, row.Offer, row.Feedback, row.IsActive, row.Version, row.CreatedAt,
		row.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return application.Application{}, storage.ErrDuplicate
		}
		return application.Application{}, fmt.Errorf("insert application: %w", err)
	}
	return app, nil
}

func (s *Store) GetApplication(ctx context.Context, id string) (application.Application, error) {
	var row applicationRow
	err := s.db.GetContext(ctx, &row, `
		SELECT `+applicationColumns+` FROM applications WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return application.Application{}, fmt.Errorf("application %s: %w", id, storage.ErrNotFound)
		}
		return application.Application{}, fmt.Errorf("load application: %w", err)
	}
	return fromRow(row)
}

// UpdateApplicationStatus is the single atomic write behind every transition:
// the status column, the timeline and the sub-records change only when the
// stored version still matches the one the caller read. Conditioning on the
// version keeps self-edge transitions (reschedule, offer re-extension)
// race-safe where a status condition would let a stale writer through.
func (s *Store) UpdateApplicationStatus(ctx context.Context, app application.Application) (application.Application, error) {
	app.UpdatedAt = time.Now().UTC()

	row, err := toRow(app)
	if err != nil {
		return application.Application{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE applications
		SET status = $3, interviews = $4, timeline = $5, offer = $6,
			feedback = $7, is_active = $8, updated_at = $9, version = version + 1
		WHERE id = $1 AND version = $2
	`, row.ID, row.Version, row.Status, row.Interviews, row.Timeline, row.Offer,
		row.Feedback, row.IsActive, row.UpdatedAt)
	if err != nil {
		return application.Application{}, fmt.Errorf("update application status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return application.Application{}, fmt.Errorf("update application status: %w", err)
	}
	if rows == 0 {
		// Either the record vanished or a concurrent transition won.
		if _, getErr := s.GetApplication(ctx, app.ID); getErr != nil {
			return application.Application{}, getErr
		}
		return application.Application{}, fmt.Errorf("application %s version %d superseded: %w", app.ID, app.Version, storage.ErrStale)
	}
	app.Version++
	return app, nil
}

func (s *Store) UpdateApplication(ctx context.Context, app application.Application) (application.Application, error) {
	app.UpdatedAt = time.Now().UTC()

	row, err := toRow(app)
	if err != nil {
		return application.Application{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE applications
		SET interviews = $2, recruiter_notes = $3, rating = $4, offer = $5,
			feedback = $6, timeline = $7, updated_at = $8
		WHERE id = $1
	`, row.ID, row.Interviews, row.RecruiterNotes, row.Rating, row.Offer,
		row.Feedback, row.Timeline, row.UpdatedAt)
	if err != nil {
		return application.Application{}, fmt.Errorf("update application: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return application.Application{}, fmt.Errorf("application %s: %w", app.ID, storage.ErrNotFound)
	}
	return app, nil
}

func (s *Store) ListApplications(ctx context.Context, filter storage.ApplicationFilter) ([]application.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications`
	where, args := filterClause(filter)
	query += where + ` ORDER BY created_at DESC`

	var rows []applicationRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}

	result := make([]application.Application, 0, len(rows))
	for _, row := range rows {
		app, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		result = append(result, app)
	}
	return result, nil
}

func (s *Store) CountByStatus(ctx context.Context, filter storage.ApplicationFilter) (map[application.Status]int64, error) {
	query := `SELECT status, COUNT(*) AS count FROM applications`
	where, args := filterClause(filter)
	query += where + ` GROUP BY status`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[application.Status]int64)
	for rows.Next() {
		var (
			status string
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[application.Status(status)] = count
	}
	return counts, rows.Err()
}

func (s *Store) MonthlySubmissions(ctx context.Context, filter storage.ApplicationFilter, months int) ([]storage.MonthBucket, error) {
	if months <= 0 {
		months = 12
	}
	query := `SELECT date_trunc('month', created_at) AS month, COUNT(*) AS count FROM applications`
	where, args := filterClause(filter)
	args = append(args, months)
	query += where + fmt.Sprintf(` GROUP BY month ORDER BY month DESC LIMIT $%d`, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("monthly submissions: %w", err)
	}
	defer rows.Close()

	var buckets []storage.MonthBucket
	for rows.Next() {
		var bucket storage.MonthBucket
		if err := rows.Scan(&bucket.Month, &bucket.Count); err != nil {
			return nil, fmt.Errorf("scan month bucket: %w", err)
		}
		bucket.Month = bucket.Month.UTC()
		buckets = append(buckets, bucket)
	}
	return buckets, rows.Err()
}

func (s *Store) ListExpiredOffers(ctx context.Context, before time.Time) ([]application.Application, error) {
	var rows []applicationRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+applicationColumns+` FROM applications
		WHERE offer IS NOT NULL
		  AND offer->>'status' = 'extended'
		  AND (offer->>'expires_at')::timestamptz < $1
	`, before)
	if err != nil {
		return nil, fmt.Errorf("list expired offers: %w", err)
	}

	result := make([]application.Application, 0, len(rows))
	for _, row := range rows {
		app, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		result = append(result, app)
	}
	return result, nil
}

// JobStore / CompanyStore ------------------------------------------------------

func (s *Store) GetJob(ctx context.Context, id string) (job.Job, error) {
	var j struct {
		ID               string       `db:"id"`
		CompanyID        string       `db:"company_id"`
		CreatedBy        string       `db:"created_by"`
		Title            string       `db:"title"`
		Status           string       `db:"status"`
		IsActive         bool         `db:"is_active"`
		Deadline         sql.NullTime `db:"application_deadline"`
		ApplicationCount int64        `db:"application_count"`
		CreatedAt        time.Time    `db:"created_at"`
		UpdatedAt        time.Time    `db:"updated_at"`
	}
	err := s.db.GetContext(ctx, &j, `
		SELECT id, company_id, created_by, title, status, is_active,
			application_deadline, application_count, created_at, updated_at
		FROM jobs WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return job.Job{}, fmt.Errorf("job %s: %w", id, storage.ErrNotFound)
		}
		return job.Job{}, fmt.Errorf("load job: %w", err)
	}

	out := job.Job{
		ID:               j.ID,
		CompanyID:        j.CompanyID,
		CreatedBy:        j.CreatedBy,
		Title:            j.Title,
		Status:           j.Status,
		IsActive:         j.IsActive,
		ApplicationCount: j.ApplicationCount,
		CreatedAt:        j.CreatedAt,
		UpdatedAt:        j.UpdatedAt,
	}
	if j.Deadline.Valid {
		out.ApplicationDeadline = j.Deadline.Time.UTC()
	}
	return out, nil
}

func (s *Store) IncrementApplicationCount(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET application_count = application_count + 1, updated_at = $2
		WHERE id = $1
	`, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("increment application count: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("job %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) GetCompany(ctx context.Context, id string) (company.Company, error) {
	var c struct {
		ID        string    `db:"id"`
		Name      string    `db:"name"`
		Employees []byte    `db:"employees"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}
	err := s.db.GetContext(ctx, &c, `
		SELECT id, name, employees, created_at, updated_at FROM companies WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return company.Company{}, fmt.Errorf("company %s: %w", id, storage.ErrNotFound)
		}
		return company.Company{}, fmt.Errorf("load company: %w", err)
	}

	out := company.Company{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
	if len(c.Employees) > 0 {
		if err := json.Unmarshal(c.Employees, &out.Employees); err != nil {
			return company.Company{}, fmt.Errorf("decode employees: %w", err)
		}
	}
	return out, nil
}

// Helpers ----------------------------------------------------------------------

func filterClause(filter storage.ApplicationFilter) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("applicant_id", filter.ApplicantID)
	add("job_id", filter.JobID)
	add("company_id", filter.CompanyID)

	if len(clauses) == 0 {
		return "", nil
	}
	where := " WHERE " + clauses[0]
	for _, clause := range clauses[1:] {
		where += " AND " + clause
	}
	return where, args
}

func toRow(app application.Application) (applicationRow, error) {
	row := applicationRow{
		ID:                app.ID,
		JobID:             app.JobID,
		ApplicantID:       app.ApplicantID,
		CompanyID:         app.CompanyID,
		Status:            string(app.Status),
		CoverLetter:       app.CoverLetter,
		ResumeURL:         app.ResumeURL,
		Experience:        app.Experience,
		Availability:      app.Availability,
		SalaryExpectation: app.SalaryExpectation,
		IsActive:          app.IsActive,
		Version:           app.Version,
		CreatedAt:         app.CreatedAt,
		UpdatedAt:         app.UpdatedAt,
	}

	var err error
	if row.Documents, err = marshalJSON(app.Documents); err != nil {
		return applicationRow{}, err
	}
	if row.Answers, err = marshalJSON(app.Answers); err != nil {
		return applicationRow{}, err
	}
	if row.Interviews, err = marshalJSON(app.Interviews); err != nil {
		return applicationRow{}, err
	}
	if row.Timeline, err = marshalJSON(app.Timeline); err != nil {
		return applicationRow{}, err
	}
	if row.RecruiterNotes, err = marshalJSON(app.RecruiterNotes); err != nil {
		return applicationRow{}, err
	}
	if row.Rating, err = marshalOptional(app.Rating); err != nil {
		return applicationRow{}, err
	}
	if row.Offer, err = marshalOptional(app.Offer); err != nil {
		return applicationRow{}, err
	}
	if row.Feedback, err = marshalOptional(app.Feedback); err != nil {
		return applicationRow{}, err
	}
	return row, nil
}

func fromRow(row applicationRow) (application.Application, error) {
	app := application.Application{
		ID:                row.ID,
		JobID:             row.JobID,
		ApplicantID:       row.ApplicantID,
		CompanyID:         row.CompanyID,
		Status:            application.Status(row.Status),
		CoverLetter:       row.CoverLetter,
		ResumeURL:         row.ResumeURL,
		Experience:        row.Experience,
		Availability:      row.Availability,
		SalaryExpectation: row.SalaryExpectation,
		IsActive:          row.IsActive,
		Version:           row.Version,
		CreatedAt:         row.CreatedAt.UTC(),
		UpdatedAt:         row.UpdatedAt.UTC(),
	}

	if err := unmarshalJSON(row.Documents, &app.Documents); err != nil {
		return application.Application{}, err
	}
	if err := unmarshalJSON(row.Answers, &app.Answers); err != nil {
		return application.Application{}, err
	}
	if err := unmarshalJSON(row.Interviews, &app.Interviews); err != nil {
		return application.Application{}, err
	}
	if err := unmarshalJSON(row.Timeline, &app.Timeline); err != nil {
		return application.Application{}, err
	}
	if err := unmarshalJSON(row.RecruiterNotes, &app.RecruiterNotes); err != nil {
		return application.Application{}, err
	}
	if len(row.Rating) > 0 {
		app.Rating = &application.Rating{}
		if err := json.Unmarshal(row.Rating, app.Rating); err != nil {
			return application.Application{}, fmt.Errorf("decode rating: %w", err)
		}
	}
	if len(row.Offer) > 0 {
		app.Offer = &application.Offer{}
		if err := json.Unmarshal(row.Offer, app.Offer); err != nil {
			return application.Application{}, fmt.Errorf("decode offer: %w", err)
		}
	}
	if len(row.Feedback) > 0 {
		app.Feedback = &application.Feedback{}
		if err := json.Unmarshal(row.Feedback, app.Feedback); err != nil {
			return application.Application{}, fmt.Errorf("decode feedback: %w", err)
		}
	}
	return app, nil
}

func marshalJSON(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json column: %w", err)
	}
	return data, nil
}

func marshalOptional(v interface{}) ([]byte, error) {
	switch ptr := v.(type) {
	case *application.Rating:
		if ptr == nil {
			return nil, nil
		}
	case *application.Offer:
		if ptr == nil {
			return nil, nil
		}
	case *application.Feedback:
		if ptr == nil {
			return nil, nil
		}
	}
	return marshalJSON(v)
}

func unmarshalJSON(data []byte, dst interface{}) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode json column: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
