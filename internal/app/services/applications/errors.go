package applications

import "errors"

// Sentinel errors returned by the application service. The HTTP layer maps
// them onto response codes, so callers should compare with errors.Is.
var (
	// ErrJobNotFound indicates the referenced job does not exist.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobClosed indicates the job exists but no longer accepts applications.
	ErrJobClosed = errors.New("job is not accepting applications")

	// ErrDuplicateApplication indicates the applicant already has a live
	// application for the job.
	ErrDuplicateApplication = errors.New("application already exists for this job")

	// ErrApplicationNotFound indicates the application id resolved to nothing.
	ErrApplicationNotFound = errors.New("application not found")

	// ErrForbidden indicates the actor has no standing to perform the operation.
	ErrForbidden = errors.New("actor is not permitted to perform this operation")

	// ErrUnknownStatus indicates the requested status is not a recognized state.
	ErrUnknownStatus = errors.New("unknown application status")

	// ErrInvalidTransition indicates the requested status is recognized but not
	// reachable from the current status.
	ErrInvalidTransition = errors.New("status transition not allowed")

	// ErrApplicationClosed indicates the application already reached a
	// terminal status and accepts no further transitions.
	ErrApplicationClosed = errors.New("application is in a terminal status")

	// ErrWithdrawLocked indicates withdrawal is blocked by the current status.
	ErrWithdrawLocked = errors.New("application cannot be withdrawn in its current status")

	// ErrNoPendingOffer indicates an offer response arrived without an open offer.
	ErrNoPendingOffer = errors.New("no pending offer to respond to")

	// Validation errors for transition payloads and submissions.
	ErrInvalidInput         = errors.New("invalid input")
	ErrResumeRequired       = errors.New("resume is required")
	ErrMissingInterviewDate = errors.New("interview date is required")
	ErrMissingSalary        = errors.New("offer salary is required")
	ErrInvalidRating        = errors.New("rating values must be between 1 and 5")
	ErrEmptyNote            = errors.New("note text is required")
	ErrEmptyFeedback        = errors.New("feedback text is required")
)
