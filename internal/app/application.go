package app

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/hirewire/pipeline/internal/app/services/applications"
	"github.com/hirewire/pipeline/internal/app/services/notify"
	"github.com/hirewire/pipeline/internal/app/services/offers"
	"github.com/hirewire/pipeline/internal/app/storage"
	"github.com/hirewire/pipeline/internal/app/system"
	"github.com/hirewire/pipeline/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Applications storage.ApplicationStore
	Jobs         storage.JobStore
	Companies    storage.CompanyStore
}

// Options tunes optional wiring: the notification sender, the statistics
// cache and the offer sweep schedule.
type Options struct {
	Sender        notify.Sender
	NotifyBuffer  int
	Cache         *redis.Client
	SweepSchedule string
}

// Application ties the lifecycle services together and manages background
// workers.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Applications *applications.Service
	Notifier     *notify.Worker
	Sweeper      *offers.Sweeper
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := storage.NewMemory()
	if stores.Applications == nil {
		stores.Applications = mem
	}
	if stores.Jobs == nil {
		stores.Jobs = mem
	}
	if stores.Companies == nil {
		stores.Companies = mem
	}

	manager := system.NewManager()

	appService := applications.New(stores.Applications, stores.Jobs, stores.Companies, log)
	if opts.Cache != nil {
		appService.AttachCache(opts.Cache)
	}

	sender := opts.Sender
	if sender == nil {
		sender = notify.NewLogSender(log)
	}
	worker := notify.NewWorker(sender, opts.NotifyBuffer, log)
	appService.AttachNotifier(worker)

	sweeper := offers.NewSweeper(stores.Applications, opts.SweepSchedule, log)

	// The applications service is request-driven; it registers as a no-op so
	// the lifecycle registry lists every module.
	services := []system.Service{
		system.NoopService{ServiceName: "applications"},
		worker,
		sweeper,
	}
	for _, svc := range services {
		if err := manager.Register(svc); err != nil {
			return nil, fmt.Errorf("register %s: %w", svc.Name(), err)
		}
	}

	return &Application{
		manager:      manager,
		log:          log,
		Applications: appService,
		Notifier:     worker,
		Sweeper:      sweeper,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered background services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
