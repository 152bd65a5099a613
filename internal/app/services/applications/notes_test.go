package applications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hirewire/pipeline/internal/app/domain/application"
)

func TestAddRecruiterNote(t *testing.T) {
	svc, _ := newTestService(t)
	app := submit(t, svc, testApplicant)
	ctx := context.Background()

	if _, err := svc.AddRecruiterNote(ctx, testHR, app.ID, "  ", false); !errors.Is(err, ErrEmptyNote) {
		t.Fatalf("expected empty note error, got %v", err)
	}
	if _, err := svc.AddRecruiterNote(ctx, testApplicant, app.ID, "self note", false); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected applicant note to be forbidden, got %v", err)
	}

	updated, err := svc.AddRecruiterNote(ctx, testHR, app.ID, "good culture fit", true)
	if err != nil {
		t.Fatalf("add note: %v", err)
	}
	if len(updated.RecruiterNotes) != 1 {
		t.Fatalf("expected one note, got %d", len(updated.RecruiterNotes))
	}
	note := updated.RecruiterNotes[0]
	if note.AddedBy != testHR || !note.Private {
		t.Fatalf("unexpected note attribution: %+v", note)
	}
}

func TestRateApplication(t *testing.T) {
	svc, _ := newTestService(t)
	app := submit(t, svc, testApplicant)
	ctx := context.Background()

	if _, err := svc.RateApplication(ctx, testHR, app.ID, application.Rating{Overall: 6}); !errors.Is(err, ErrInvalidRating) {
		t.Fatalf("expected invalid rating above 5, got %v", err)
	}
	if _, err := svc.RateApplication(ctx, testHR, app.ID, application.Rating{}); !errors.Is(err, ErrInvalidRating) {
		t.Fatalf("expected missing overall to be invalid, got %v", err)
	}

	updated, err := svc.RateApplication(ctx, testHR, app.ID, application.Rating{Overall: 4, Technical: 5})
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if updated.Rating == nil || updated.Rating.Overall != 4 || updated.Rating.Technical != 5 {
		t.Fatalf("unexpected rating: %+v", updated.Rating)
	}
}

func TestRecordInterviewFeedback(t *testing.T) {
	svc, _ := newTestService(t)
	app := submit(t, svc, testApplicant)
	ctx := context.Background()

	scheduled := mustTransition(t, svc, testRecruiter, app.ID,
		TransitionInput{Status: "interview-scheduled", InterviewDate: time.Now().Add(24 * time.Hour)},
	)
	interviewID := scheduled.Interviews[0].ID

	if _, err := svc.RecordInterviewFeedback(ctx, testHR, app.ID, interviewID, application.InterviewFeedback{Rating: 0, Notes: "x"}); !errors.Is(err, ErrInvalidRating) {
		t.Fatalf("expected invalid rating, got %v", err)
	}
	if _, err := svc.RecordInterviewFeedback(ctx, testHR, app.ID, interviewID, application.InterviewFeedback{Rating: 3}); !errors.Is(err, ErrEmptyFeedback) {
		t.Fatalf("expected empty feedback error, got %v", err)
	}
	if _, err := svc.RecordInterviewFeedback(ctx, testHR, app.ID, "no-such-interview", application.InterviewFeedback{Rating: 3, Notes: "solid"}); err == nil {
		t.Fatalf("expected unknown interview to fail")
	}

	updated, err := svc.RecordInterviewFeedback(ctx, testHR, app.ID, interviewID, application.InterviewFeedback{
		Rating:         4,
		Notes:          "solid system design answers",
		Recommendation: "advance",
	})
	if err != nil {
		t.Fatalf("record feedback: %v", err)
	}
	iv := updated.Interviews[0]
	if iv.Feedback == nil || iv.Feedback.Rating != 4 || iv.Feedback.SubmittedBy != testHR {
		t.Fatalf("unexpected feedback: %+v", iv.Feedback)
	}
	if iv.Status != application.InterviewCompleted {
		t.Fatalf("expected feedback to complete the interview, got %s", iv.Status)
	}
}
