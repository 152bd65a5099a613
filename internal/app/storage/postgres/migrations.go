package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// migrations holds the schema statements in apply order. Statements are
// idempotent so Apply can run at every startup.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		created_by TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'draft',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		application_deadline TIMESTAMPTZ,
		application_count BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS companies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		employees JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS applications (
		id TEXT PRIMARY KEY,
		job_id TEXT NOT NULL,
		applicant_id TEXT NOT NULL,
		company_id TEXT NOT NULL,
		status TEXT NOT NULL,
		cover_letter TEXT NOT NULL DEFAULT '',
		resume_url TEXT NOT NULL,
		documents JSONB,
		answers JSONB,
		experience TEXT NOT NULL DEFAULT '',
		availability TEXT NOT NULL DEFAULT '',
		salary_expectation BIGINT NOT NULL DEFAULT 0,
		interviews JSONB,
		timeline JSONB NOT NULL,
		recruiter_notes JSONB,
		rating JSONB,
		offer JSONB,
		feedback JSONB,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		version BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`ALTER TABLE applications ADD COLUMN IF NOT EXISTS version BIGINT NOT NULL DEFAULT 1`,
	// One live application per (job, applicant). Withdrawn records do not
	// block re-application.
	`CREATE UNIQUE INDEX IF NOT EXISTS applications_job_applicant_live
		ON applications (job_id, applicant_id)
		WHERE status <> 'withdrawn'`,
	`CREATE INDEX IF NOT EXISTS applications_applicant_idx ON applications (applicant_id)`,
	`CREATE INDEX IF NOT EXISTS applications_job_idx ON applications (job_id)`,
	`CREATE INDEX IF NOT EXISTS applications_company_idx ON applications (company_id)`,
}

// Apply executes every migration statement in order.
func Apply(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
