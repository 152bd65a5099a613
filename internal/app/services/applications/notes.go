package applications

import (
	"context"
	"fmt"
	"strings"

	"github.com/hirewire/pipeline/internal/app/domain/application"
)

// AddRecruiterNote attaches an employer-internal note. Notes never appear in
// applicant-facing views.
func (s *Service) AddRecruiterNote(ctx context.Context, actorID, id, note string, private bool) (application.Application, error) {
	if strings.TrimSpace(note) == "" {
		return application.Application{}, ErrEmptyNote
	}
	app, access, err := s.loadForMutation(ctx, actorID, id)
	if err != nil {
		return application.Application{}, err
	}

	now := s.now().UTC()
	app.RecruiterNotes = append(app.RecruiterNotes, application.RecruiterNote{
		Note:    note,
		AddedBy: actorID,
		AddedAt: now,
		Private: private,
	})
	app.UpdatedAt = now

	updated, err := s.store.UpdateApplication(ctx, app)
	if err != nil {
		return application.Application{}, fmt.Errorf("add recruiter note: %w", err)
	}
	return redact(updated, access), nil
}

// RecordInterviewFeedback attaches an assessment to one interview sub-record.
func (s *Service) RecordInterviewFeedback(ctx context.Context, actorID, id, interviewID string, fb application.InterviewFeedback) (application.Application, error) {
	if fb.Rating < 1 || fb.Rating > 5 {
		return application.Application{}, ErrInvalidRating
	}
	if strings.TrimSpace(fb.Notes) == "" && strings.TrimSpace(fb.Recommendation) == "" {
		return application.Application{}, ErrEmptyFeedback
	}
	app, access, err := s.loadForMutation(ctx, actorID, id)
	if err != nil {
		return application.Application{}, err
	}

	iv := app.InterviewByID(interviewID)
	if iv == nil {
		return application.Application{}, fmt.Errorf("%w: interview %s", ErrApplicationNotFound, interviewID)
	}

	now := s.now().UTC()
	fb.SubmittedBy = actorID
	fb.SubmittedAt = now
	iv.Feedback = &fb
	if iv.Status == application.InterviewScheduled || iv.Status == application.InterviewRescheduled {
		iv.Status = application.InterviewCompleted
	}
	app.UpdatedAt = now

	updated, err := s.store.UpdateApplication(ctx, app)
	if err != nil {
		return application.Application{}, fmt.Errorf("record interview feedback: %w", err)
	}
	return redact(updated, access), nil
}

// RateApplication records the employer's overall assessment. Each provided
// dimension must be within 1 to 5; zero means not rated.
func (s *Service) RateApplication(ctx context.Context, actorID, id string, rating application.Rating) (application.Application, error) {
	for _, v := range []int{rating.Overall, rating.Technical, rating.Communication, rating.Cultural, rating.Experience} {
		if v < 0 || v > 5 {
			return application.Application{}, ErrInvalidRating
		}
	}
	if rating.Overall == 0 {
		return application.Application{}, ErrInvalidRating
	}
	app, access, err := s.loadForMutation(ctx, actorID, id)
	if err != nil {
		return application.Application{}, err
	}

	app.Rating = &rating
	app.UpdatedAt = s.now().UTC()

	updated, err := s.store.UpdateApplication(ctx, app)
	if err != nil {
		return application.Application{}, fmt.Errorf("rate application: %w", err)
	}
	return redact(updated, access), nil
}

// loadForMutation loads an application and verifies employer-side mutation
// rights in one step.
func (s *Service) loadForMutation(ctx context.Context, actorID, id string) (application.Application, Access, error) {
	app, err := s.load(ctx, id)
	if err != nil {
		return application.Application{}, Access{}, err
	}
	access, err := s.access.Resolve(ctx, actorID, &app)
	if err != nil {
		return application.Application{}, Access{}, err
	}
	if !access.CanMutate() {
		return application.Application{}, Access{}, ErrForbidden
	}
	return app, access, nil
}
