package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hirewire/pipeline/internal/app/metrics"
	"github.com/hirewire/pipeline/internal/app/system"
	"github.com/hirewire/pipeline/pkg/logger"
)

var _ system.Service = (*Worker)(nil)
var _ Dispatcher = (*Worker)(nil)

// Worker queues messages on a buffered channel and delivers them through a
// Sender off the request path. When the buffer is full the message is
// dropped and logged; callers never block on delivery.
type Worker struct {
	sender Sender
	log    *logger.Logger
	queue  chan Message

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewWorker creates a dispatch worker with the given buffer size.
func NewWorker(sender Sender, buffer int, log *logger.Logger) *Worker {
	if log == nil {
		log = logger.NewDefault("notify-worker")
	}
	if buffer <= 0 {
		buffer = 256
	}
	if sender == nil {
		sender = NewLogSender(log)
	}
	return &Worker{
		sender: sender,
		log:    log,
		queue:  make(chan Message, buffer),
	}
}

func (w *Worker) Name() string { return "notify-worker" }

// Notify enqueues a message. A full queue drops the message; notification
// loss is tolerated by contract.
func (w *Worker) Notify(_ context.Context, msg Message) error {
	select {
	case w.queue <- msg:
		return nil
	default:
		metrics.ObserveNotification("dropped")
		w.log.WithField("template", msg.Template).
			WithField("recipient", msg.Recipient).
			Warn("notification queue full, message dropped")
		return fmt.Errorf("notification queue full")
	}
}

func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-runCtx.Done():
				return
			case msg := <-w.queue:
				w.deliver(runCtx, msg)
			}
		}
	}()

	w.log.Info("notification worker started")
	return nil
}

func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	cancel := w.cancel
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	w.log.Info("notification worker stopped")
	return nil
}

func (w *Worker) deliver(ctx context.Context, msg Message) {
	sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := w.sender.Send(sendCtx, msg); err != nil {
		metrics.ObserveNotification("failed")
		w.log.WithError(err).
			WithField("template", msg.Template).
			WithField("recipient", msg.Recipient).
			Warn("notification delivery failed")
		return
	}
	metrics.ObserveNotification("sent")
}
