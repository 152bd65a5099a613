package applications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hirewire/pipeline/internal/app/domain/application"
	"github.com/hirewire/pipeline/internal/app/metrics"
	"github.com/hirewire/pipeline/internal/app/services/notify"
	"github.com/hirewire/pipeline/internal/app/storage"
)

// OfferValidity is how long an extended offer stays open before the expiry
// sweeper flags it.
const OfferValidity = 7 * 24 * time.Hour

// TransitionInput carries a requested status change plus the payload some
// destinations require.
type TransitionInput struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`

	// Interview payload, required when moving to interview-scheduled.
	InterviewDate time.Time `json:"interview_date,omitempty"`
	InterviewType string    `json:"interview_type,omitempty"`
	Interviewer   string    `json:"interviewer,omitempty"`

	// Offer payload, required when moving to offer-made.
	Salary     int64     `json:"salary,omitempty"`
	Benefits   []string  `json:"benefits,omitempty"`
	StartDate  time.Time `json:"start_date,omitempty"`
	Negotiable *bool     `json:"negotiable,omitempty"`
}

// UpdateStatus applies one employer-driven transition. The write is
// conditional on the version the actor read, so two racing updates serialize
// even on a self-edge: the loser observes ErrStale and the timeline records
// exactly one entry per applied change.
func (s *Service) UpdateStatus(ctx context.Context, actorID, id string, in TransitionInput) (application.Application, error) {
	app, err := s.load(ctx, id)
	if err != nil {
		return application.Application{}, err
	}

	access, err := s.access.Resolve(ctx, actorID, &app)
	if err != nil {
		return application.Application{}, err
	}
	if !access.CanMutate() {
		return application.Application{}, ErrForbidden
	}

	target := application.Status(in.Status)
	if !target.Valid() {
		return application.Application{}, fmt.Errorf("%w: %q", ErrUnknownStatus, in.Status)
	}
	from := app.Status
	if from.Terminal() {
		return application.Application{}, fmt.Errorf("%w: %s", ErrApplicationClosed, from)
	}
	if !application.CanTransition(from, target) {
		return application.Application{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, target)
	}

	now := s.now().UTC()
	if err := s.applySideEffects(&app, target, in, actorID, now); err != nil {
		return application.Application{}, err
	}

	note := strings.TrimSpace(in.Note)
	if note == "" {
		note = fmt.Sprintf("Status changed to %s", target)
	}
	app.Status = target
	if target.Terminal() {
		app.IsActive = false
	}
	app.Timeline = append(app.Timeline, application.TimelineEntry{
		Action:      application.ActionStatusChange,
		Date:        now,
		Note:        note,
		PerformedBy: actorID,
	})
	app.UpdatedAt = now

	updated, err := s.store.UpdateApplicationStatus(ctx, app)
	if err != nil {
		if errors.Is(err, storage.ErrStale) {
			return application.Application{}, fmt.Errorf("%w: application changed concurrently", storage.ErrStale)
		}
		if errors.Is(err, storage.ErrNotFound) {
			return application.Application{}, ErrApplicationNotFound
		}
		return application.Application{}, fmt.Errorf("update status: %w", err)
	}

	metrics.ObserveTransition(string(target))
	entry := s.log.WithField("application_id", updated.ID).
		WithField("from", string(from)).
		WithField("to", string(target))
	if target == application.StatusHired && from != application.StatusOfferAccepted {
		entry = entry.WithField("shortcut", true)
	}
	entry.Info("status transition applied")

	if template, ok := notify.TemplateFor(target); ok {
		s.dispatch(ctx, notify.Message{
			Template:  template,
			Recipient: updated.ApplicantID,
			Context: map[string]string{
				"application_id": updated.ID,
				"status":         string(target),
			},
		})
	}
	return redact(updated, access), nil
}

// applySideEffects mutates sub-records required by the destination status.
func (s *Service) applySideEffects(app *application.Application, target application.Status, in TransitionInput, actorID string, now time.Time) error {
	switch target {
	case application.StatusInterviewScheduled:
		if in.InterviewDate.IsZero() {
			return ErrMissingInterviewDate
		}
		// A repeat transition into interview-scheduled reschedules the most
		// recent interview instead of stacking a new one.
		if app.Status == application.StatusInterviewScheduled {
			if iv := app.LatestInterview(); iv != nil && iv.Status == application.InterviewScheduled {
				iv.ScheduledAt = in.InterviewDate
				iv.Status = application.InterviewRescheduled
				if in.Interviewer != "" {
					iv.Interviewer = in.Interviewer
				}
				return nil
			}
		}
		app.Interviews = append(app.Interviews, application.Interview{
			ID:          uuid.NewString(),
			Type:        in.InterviewType,
			ScheduledAt: in.InterviewDate,
			Interviewer: in.Interviewer,
			Status:      application.InterviewScheduled,
		})

	case application.StatusInterviewed:
		if iv := app.LatestInterview(); iv != nil && iv.Status != application.InterviewCompleted {
			iv.Status = application.InterviewCompleted
		}

	case application.StatusOfferMade:
		if in.Salary <= 0 {
			return ErrMissingSalary
		}
		negotiable := true
		if in.Negotiable != nil {
			negotiable = *in.Negotiable
		}
		app.Offer = &application.Offer{
			Salary:     in.Salary,
			Benefits:   in.Benefits,
			StartDate:  in.StartDate,
			ExpiresAt:  now.Add(OfferValidity),
			Negotiable: negotiable,
			Status:     application.OfferExtended,
			ExtendedAt: now,
		}

	case application.StatusOfferAccepted:
		if app.Offer != nil {
			app.Offer.Status = application.OfferAccepted
		}

	case application.StatusOfferDeclined:
		if app.Offer != nil {
			app.Offer.Status = application.OfferDeclined
		}

	case application.StatusHired:
		if app.Offer != nil {
			if app.Offer.Status == application.OfferExtended {
				app.Offer.Status = application.OfferAccepted
			}
			if in.Salary > 0 {
				app.Offer.Salary = in.Salary
			}
			if !in.StartDate.IsZero() {
				app.Offer.StartDate = in.StartDate
			}
		}
	}
	return nil
}

// Withdraw retracts the application on behalf of the applicant. Withdrawal is
// refused once an offer is on the table or the application is already closed.
func (s *Service) Withdraw(ctx context.Context, actorID, id, note string) (application.Application, error) {
	app, err := s.load(ctx, id)
	if err != nil {
		return application.Application{}, err
	}

	access, err := s.access.Resolve(ctx, actorID, &app)
	if err != nil {
		return application.Application{}, err
	}
	if !access.CanWithdraw() {
		return application.Application{}, ErrForbidden
	}
	if !application.CanWithdraw(app.Status) {
		return application.Application{}, fmt.Errorf("%w: status %s", ErrWithdrawLocked, app.Status)
	}

	from := app.Status
	now := s.now().UTC()
	if strings.TrimSpace(note) == "" {
		note = "Application withdrawn by applicant"
	}
	app.Status = application.StatusWithdrawn
	app.IsActive = false
	app.Timeline = append(app.Timeline, application.TimelineEntry{
		Action:      application.ActionStatusChange,
		Date:        now,
		Note:        note,
		PerformedBy: actorID,
	})
	app.UpdatedAt = now

	updated, err := s.store.UpdateApplicationStatus(ctx, app)
	if err != nil {
		if errors.Is(err, storage.ErrStale) {
			return application.Application{}, fmt.Errorf("%w: application changed concurrently", storage.ErrStale)
		}
		return application.Application{}, fmt.Errorf("withdraw: %w", err)
	}

	metrics.ObserveTransition(string(application.StatusWithdrawn))
	s.log.WithField("application_id", updated.ID).WithField("from", string(from)).Info("application withdrawn")
	return redact(updated, access), nil
}

// RespondToOffer lets the applicant accept or decline an extended offer. The
// accept flag moves the pipeline to offer-accepted or offer-declined.
func (s *Service) RespondToOffer(ctx context.Context, actorID, id string, accept bool, note string) (application.Application, error) {
	app, err := s.load(ctx, id)
	if err != nil {
		return application.Application{}, err
	}

	access, err := s.access.Resolve(ctx, actorID, &app)
	if err != nil {
		return application.Application{}, err
	}
	if access.Role != RoleApplicant {
		return application.Application{}, ErrForbidden
	}
	if app.Status != application.StatusOfferMade || app.Offer == nil || app.Offer.Status != application.OfferExtended {
		return application.Application{}, ErrNoPendingOffer
	}

	now := s.now().UTC()
	target := application.StatusOfferDeclined
	offerState := application.OfferDeclined
	defaultNote := "Offer declined by applicant"
	if accept {
		target = application.StatusOfferAccepted
		offerState = application.OfferAccepted
		defaultNote = "Offer accepted by applicant"
	}
	if strings.TrimSpace(note) == "" {
		note = defaultNote
	}

	app.Status = target
	app.Offer.Status = offerState
	if target.Terminal() {
		app.IsActive = false
	}
	app.Timeline = append(app.Timeline, application.TimelineEntry{
		Action:      application.ActionStatusChange,
		Date:        now,
		Note:        note,
		PerformedBy: actorID,
	})
	app.UpdatedAt = now

	updated, err := s.store.UpdateApplicationStatus(ctx, app)
	if err != nil {
		if errors.Is(err, storage.ErrStale) {
			return application.Application{}, fmt.Errorf("%w: application changed concurrently", storage.ErrStale)
		}
		return application.Application{}, fmt.Errorf("respond to offer: %w", err)
	}

	metrics.ObserveTransition(string(target))
	s.log.WithField("application_id", updated.ID).
		WithField("accepted", accept).
		Info("offer response recorded")
	return redact(updated, access), nil
}
