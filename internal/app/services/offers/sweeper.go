package offers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hirewire/pipeline/internal/app/domain/application"
	"github.com/hirewire/pipeline/internal/app/metrics"
	"github.com/hirewire/pipeline/internal/app/storage"
	"github.com/hirewire/pipeline/pkg/logger"
)

// DefaultSchedule is how often the sweeper scans for lapsed offers.
const DefaultSchedule = "@hourly"

// Sweeper marks extended offers as expired once their validity window passes.
// Expiry flags the offer sub-record and appends a timeline entry; the
// application's pipeline status is left for a recruiter to resolve.
type Sweeper struct {
	store    storage.ApplicationStore
	log      *logger.Logger
	schedule string
	now      func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewSweeper constructs an offer expiry sweeper. An empty schedule falls back
// to DefaultSchedule.
func NewSweeper(store storage.ApplicationStore, schedule string, log *logger.Logger) *Sweeper {
	if log == nil {
		log = logger.NewDefault("offer-sweeper")
	}
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Sweeper{store: store, log: log, schedule: schedule, now: time.Now}
}

// Name implements system.Service.
func (s *Sweeper) Name() string { return "offer-sweeper" }

// Start schedules the periodic sweep and runs one immediately.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() {
		if err := s.Sweep(context.Background()); err != nil {
			s.log.WithError(err).Warn("offer sweep failed")
		}
	}); err != nil {
		return fmt.Errorf("schedule %q: %w", s.schedule, err)
	}
	c.Start()
	s.cron = c
	s.running = true

	go func() {
		if err := s.Sweep(ctx); err != nil {
			s.log.WithError(err).Warn("initial offer sweep failed")
		}
	}()
	return nil
}

// Stop halts the schedule, waiting for an in-flight sweep to finish.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	done := s.cron.Stop().Done()
	s.cron = nil

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sweep expires every extended offer whose deadline passed. Each application
// is updated independently so one failure never blocks the rest.
func (s *Sweeper) Sweep(ctx context.Context) error {
	now := s.now().UTC()
	apps, err := s.store.ListExpiredOffers(ctx, now)
	if err != nil {
		return fmt.Errorf("list expired offers: %w", err)
	}

	for _, app := range apps {
		if app.Offer == nil || app.Offer.Status != application.OfferExtended {
			continue
		}
		app.Offer.Status = application.OfferExpired
		app.Timeline = append(app.Timeline, application.TimelineEntry{
			Action: application.ActionOfferExpired,
			Date:   now,
			Note:   "Offer validity window elapsed",
		})
		app.UpdatedAt = now

		if _, err := s.store.UpdateApplication(ctx, app); err != nil {
			s.log.WithError(err).WithField("application_id", app.ID).Warn("offer expiry update failed")
			continue
		}
		metrics.ObserveOfferExpired()
		s.log.WithField("application_id", app.ID).Info("offer expired")
	}
	return nil
}
