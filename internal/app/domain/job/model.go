package job

import "time"

// Job is the snapshot of a posting the lifecycle engine needs: availability
// checks and ownership. The posting itself is owned by the job board's CRUD
// layer.
type Job struct {
	ID                  string    `json:"id"`
	CompanyID           string    `json:"company_id"`
	CreatedBy           string    `json:"created_by"`
	Title               string    `json:"title"`
	Status              string    `json:"status"` // published, draft, closed
	IsActive            bool      `json:"is_active"`
	ApplicationDeadline time.Time `json:"application_deadline,omitempty"`
	ApplicationCount    int64     `json:"application_count"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// StatusPublished is the only posting status that accepts submissions.
const StatusPublished = "published"

// Open reports whether the posting accepts new applications at t.
func (j Job) Open(t time.Time) bool {
	if !j.IsActive || j.Status != StatusPublished {
		return false
	}
	if !j.ApplicationDeadline.IsZero() && j.ApplicationDeadline.Before(t) {
		return false
	}
	return true
}
