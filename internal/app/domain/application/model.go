package application

import "time"

// Timeline actions recorded on the audit trail. One entry is appended at
// submission and exactly one per subsequent status change; entries are never
// mutated or reordered.
const (
	ActionSubmitted    = "application-submitted"
	ActionStatusChange = "status-changed"
	ActionOfferExpired = "offer-expired"
)

// InterviewStatus tracks an interview sub-record independent of the
// application's pipeline status.
type InterviewStatus string

const (
	InterviewScheduled   InterviewStatus = "scheduled"
	InterviewCompleted   InterviewStatus = "completed"
	InterviewCancelled   InterviewStatus = "cancelled"
	InterviewRescheduled InterviewStatus = "rescheduled"
	InterviewNoShow      InterviewStatus = "no-show"
)

// OfferStatus tracks the offer sub-record.
type OfferStatus string

const (
	OfferExtended OfferStatus = "extended"
	OfferExpired  OfferStatus = "expired"
	OfferAccepted OfferStatus = "accepted"
	OfferDeclined OfferStatus = "declined"
)

// TimelineEntry is one append-only audit record.
type TimelineEntry struct {
	Action      string    `json:"action"`
	Date        time.Time `json:"date"`
	Note        string    `json:"note,omitempty"`
	PerformedBy string    `json:"performed_by,omitempty"`
}

// InterviewFeedback is the optional assessment attached after an interview.
type InterviewFeedback struct {
	Rating         int       `json:"rating"` // 1-5
	Notes          string    `json:"notes,omitempty"`
	Recommendation string    `json:"recommendation,omitempty"`
	SubmittedBy    string    `json:"submitted_by,omitempty"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// Interview is one scheduled interaction on the pipeline.
type Interview struct {
	ID          string             `json:"id"`
	Type        string             `json:"type,omitempty"`
	ScheduledAt time.Time          `json:"scheduled_at"`
	Interviewer string             `json:"interviewer,omitempty"`
	Status      InterviewStatus    `json:"status"`
	Feedback    *InterviewFeedback `json:"feedback,omitempty"`
}

// Offer is the sub-record created when the application first reaches an
// offer-bearing state.
type Offer struct {
	Salary     int64       `json:"salary"`
	Benefits   []string    `json:"benefits,omitempty"`
	StartDate  time.Time   `json:"start_date,omitempty"`
	ExpiresAt  time.Time   `json:"expires_at"`
	Negotiable bool        `json:"negotiable"`
	Status     OfferStatus `json:"status"`
	ExtendedAt time.Time   `json:"extended_at"`
}

// RecruiterNote is visible only to employer-side actors.
type RecruiterNote struct {
	Note    string    `json:"note"`
	AddedBy string    `json:"added_by"`
	AddedAt time.Time `json:"added_at"`
	Private bool      `json:"private"`
}

// Rating is the employer's multi-dimensional assessment, each dimension 1-5.
type Rating struct {
	Overall       int `json:"overall"`
	Technical     int `json:"technical,omitempty"`
	Communication int `json:"communication,omitempty"`
	Cultural      int `json:"cultural,omitempty"`
	Experience    int `json:"experience,omitempty"`
}

// Answer captures one screening question response at submission time.
type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Document is an additional uploaded attachment reference.
type Document struct {
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Feedback holds optional post-decision comments from either side.
type Feedback struct {
	Applicant string `json:"applicant,omitempty"`
	Employer  string `json:"employer,omitempty"`
}

// Application is the aggregate root: one candidate's submission to one job.
// Status, Timeline and the sub-records are mutated exclusively through the
// applications service; stores persist whatever they are handed.
type Application struct {
	ID          string `json:"id"`
	JobID       string `json:"job_id"`
	ApplicantID string `json:"applicant_id"`
	CompanyID   string `json:"company_id"`

	Status Status `json:"status"`

	CoverLetter string     `json:"cover_letter,omitempty"`
	ResumeURL   string     `json:"resume_url"`
	Documents   []Document `json:"documents,omitempty"`
	Answers     []Answer   `json:"answers,omitempty"`

	// Snapshots captured at submission; never re-validated against the
	// applicant's profile afterwards.
	Experience        string `json:"experience,omitempty"`
	Availability      string `json:"availability,omitempty"`
	SalaryExpectation int64  `json:"salary_expectation,omitempty"`

	Interviews     []Interview     `json:"interviews,omitempty"`
	Timeline       []TimelineEntry `json:"timeline"`
	RecruiterNotes []RecruiterNote `json:"recruiter_notes,omitempty"`
	Rating         *Rating         `json:"rating,omitempty"`
	Offer          *Offer          `json:"offer,omitempty"`
	Feedback       *Feedback       `json:"feedback,omitempty"`

	// IsActive is false once the application left active pipelines
	// (withdrawn or otherwise terminated); distinct from Status.
	IsActive bool `json:"is_active"`

	// Version increments on every status transition. Conditional writes
	// compare it so a stale snapshot can never overwrite a newer one, even
	// when both writes target the same status.
	Version int64 `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LatestInterview returns the most recently scheduled interview, or nil.
func (a *Application) LatestInterview() *Interview {
	if len(a.Interviews) == 0 {
		return nil
	}
	return &a.Interviews[len(a.Interviews)-1]
}

// InterviewByID looks up an interview sub-record.
func (a *Application) InterviewByID(id string) *Interview {
	for i := range a.Interviews {
		if a.Interviews[i].ID == id {
			return &a.Interviews[i]
		}
	}
	return nil
}
