// Package app wires the engine together: two store clients, the
// per-entity repositories, the notifier, and the services, constructed
// once at process start and handed to call sites by reference. There are
// no global singletons.
package app

import (
	"fmt"

	"github.com/dojolist/dojolist-engine/internal/data/repos"
	"github.com/dojolist/dojolist-engine/internal/notify"
	"github.com/dojolist/dojolist-engine/internal/pkg/logger"
	"github.com/dojolist/dojolist-engine/internal/services"
	"github.com/dojolist/dojolist-engine/internal/store"
)

type Services struct {
	Program    services.ProgramService
	Enrollment services.EnrollmentService
	Progress   services.ProgressService
	Reconciler services.ProfileReconciler
	Feeds      *services.ChangeFeeds
}

type App struct {
	Log       *logger.Logger
	Cfg       Config
	Primary   store.Client
	Secondary store.Client
	Notifier  *notify.Notifier
	Repos     repos.Repos
	Services  Services
}

// New builds the whole engine. The onboarder is the external collaborator
// that creates primary-store profiles; it may be nil when the embedding
// app handles onboarding before calling Load.
func New(cfg Config, onboarder services.Onboarder) (*App, error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	primary, err := openStore(cfg.Primary, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("open primary store: %w", err)
	}
	secondary, err := openStore(cfg.Secondary, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("open secondary store: %w", err)
	}

	notifier := notify.NewWithBuffer(log, cfg.NotifierBuffer)
	reposet := repos.New(primary, secondary, notifier, log)

	serviceset := Services{
		Program:    services.NewProgramService(reposet.Program, log),
		Enrollment: services.NewEnrollmentService(reposet.Enrollment, reposet.Program, reposet.Profile, log),
		Progress:   services.NewProgressService(reposet.ProgramProgress, reposet.RankProgress, reposet.Program, log),
		Reconciler: services.NewProfileReconciler(reposet, onboarder, cfg.Reconciler, log),
		Feeds:      services.NewChangeFeeds(notifier),
	}

	return &App{
		Log:       log,
		Cfg:       cfg,
		Primary:   primary,
		Secondary: secondary,
		Notifier:  notifier,
		Repos:     reposet,
		Services:  serviceset,
	}, nil
}

// Close tears down the notifier and flushes the logger. Store clients with
// connections are closed by their owners via the returned App fields.
func (a *App) Close() {
	if a == nil {
		return
	}
	a.Notifier.Close()
	a.Log.Sync()
}
