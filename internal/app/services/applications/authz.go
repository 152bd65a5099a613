package applications

import (
	"context"
	"errors"
	"fmt"

	"github.com/hirewire/pipeline/internal/app/domain/application"
	"github.com/hirewire/pipeline/internal/app/domain/company"
	"github.com/hirewire/pipeline/internal/app/storage"
)

// Role classifies the actor's relationship to an application. Roles are
// resolved against current job and company records on every call, so revoked
// company membership takes effect immediately.
type Role string

const (
	RoleNone            Role = "none"
	RoleApplicant       Role = "applicant"
	RoleJobCreator      Role = "job-creator"
	RoleCompanyEmployee Role = "company-employee"
)

// Access captures what a resolved actor may do with one application.
type Access struct {
	Role        Role
	CompanyRole company.EmployeeRole
}

// CanRead reports whether the actor may view the application at all.
func (a Access) CanRead() bool {
	return a.Role != RoleNone
}

// CanMutate reports whether the actor may drive status transitions and other
// employer-side operations. Applicants never qualify.
func (a Access) CanMutate() bool {
	switch a.Role {
	case RoleJobCreator:
		return true
	case RoleCompanyEmployee:
		return a.CompanyRole.Privileged()
	default:
		return false
	}
}

// CanWithdraw reports whether the actor may withdraw the application.
// Withdrawal is reserved for the applicant.
func (a Access) CanWithdraw() bool {
	return a.Role == RoleApplicant
}

// AccessResolver derives an actor's access to applications from job ownership
// and company membership.
type AccessResolver struct {
	jobs      storage.JobStore
	companies storage.CompanyStore
}

// NewAccessResolver constructs a resolver over the given stores.
func NewAccessResolver(jobs storage.JobStore, companies storage.CompanyStore) *AccessResolver {
	return &AccessResolver{jobs: jobs, companies: companies}
}

// Resolve determines the strongest role the actor holds for the application.
// Applicant identity wins outright; otherwise job creatorship is checked, then
// active membership in the hiring company.
func (r *AccessResolver) Resolve(ctx context.Context, actorID string, app *application.Application) (Access, error) {
	if actorID == "" || app == nil {
		return Access{Role: RoleNone}, nil
	}
	if actorID == app.ApplicantID {
		return Access{Role: RoleApplicant}, nil
	}

	if r.jobs != nil {
		posting, err := r.jobs.GetJob(ctx, app.JobID)
		switch {
		case err == nil:
			if posting.CreatedBy == actorID {
				return Access{Role: RoleJobCreator}, nil
			}
		case !errors.Is(err, storage.ErrNotFound):
			return Access{}, fmt.Errorf("resolve job: %w", err)
		}
	}

	if r.companies != nil && app.CompanyID != "" {
		comp, err := r.companies.GetCompany(ctx, app.CompanyID)
		switch {
		case err == nil:
			if emp := comp.EmployeeByUser(actorID); emp != nil {
				return Access{Role: RoleCompanyEmployee, CompanyRole: emp.Role}, nil
			}
		case !errors.Is(err, storage.ErrNotFound):
			return Access{}, fmt.Errorf("resolve company: %w", err)
		}
	}

	return Access{Role: RoleNone}, nil
}
