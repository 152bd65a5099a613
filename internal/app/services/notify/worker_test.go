package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hirewire/pipeline/internal/app/domain/application"
)

type captureSender struct {
	mu   sync.Mutex
	sent []Message
	fail bool
}

func (s *captureSender) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("smtp unavailable")
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *captureSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestWorkerDelivers(t *testing.T) {
	sender := &captureSender{}
	worker := NewWorker(sender, 8, nil)

	if err := worker.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	msg := Message{Template: TemplateApplicationReceived, Recipient: "candidate-1"}
	if err := worker.Notify(context.Background(), msg); err != nil {
		t.Fatalf("notify: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for sender.count() == 0 {
		select {
		case <-deadline:
			t.Fatalf("message was not delivered")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if err := worker.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestWorkerDropsWhenQueueFull(t *testing.T) {
	sender := &captureSender{}
	worker := NewWorker(sender, 1, nil)
	// Not started, so the queue never drains.

	first := worker.Notify(context.Background(), Message{Template: TemplateRejected})
	if first != nil {
		t.Fatalf("expected first enqueue to succeed, got %v", first)
	}
	// The second message overflows and is dropped, never blocking the caller.
	if err := worker.Notify(context.Background(), Message{Template: TemplateRejected}); err == nil {
		t.Fatalf("expected overflow to be reported")
	}
	if sender.count() != 0 {
		t.Fatalf("expected nothing delivered while stopped")
	}
}

func TestWorkerSurvivesSenderFailure(t *testing.T) {
	sender := &captureSender{fail: true}
	worker := NewWorker(sender, 8, nil)

	if err := worker.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := worker.Notify(context.Background(), Message{Template: TemplateHired}); err != nil {
		t.Fatalf("notify: %v", err)
	}

	// Failure is logged, not propagated; the worker keeps running.
	time.Sleep(50 * time.Millisecond)
	if err := worker.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestTemplateFor(t *testing.T) {
	cases := map[application.Status]string{
		application.StatusInterviewScheduled: TemplateInterviewInvite,
		application.StatusOfferMade:          TemplateOfferExtended,
		application.StatusRejected:           TemplateRejected,
		application.StatusHired:              TemplateHired,
	}
	for status, want := range cases {
		got, ok := TemplateFor(status)
		if !ok || got != want {
			t.Fatalf("TemplateFor(%s) = %q, %v", status, got, ok)
		}
	}
	if _, ok := TemplateFor(application.StatusReviewing); ok {
		t.Fatalf("expected no template for reviewing")
	}
}
