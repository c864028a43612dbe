package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bassista/atlas/internal/config"
	"github.com/bassista/atlas/internal/feed"
	"github.com/bassista/atlas/internal/geo"
	"github.com/bassista/atlas/internal/logger"
	"github.com/bassista/atlas/internal/presenter"
	"github.com/bassista/atlas/internal/repository"
	"github.com/bassista/atlas/internal/store"
	"github.com/bassista/atlas/internal/trigger"
	"golang.org/x/sync/errgroup"
)

// App is the application container (immutable dependencies + lifecycle context).
// It is not a request context; handlers should still use gin's request context.
type App struct {
	Config    *config.Config
	Store     store.Store
	Source    feed.Source
	Repo      *repository.Repository
	Presenter *presenter.Controller
	// Trigger is created by Start when kafka.brokers is set. One-shot
	// commands never start the app, so they never join the consumer group.
	Trigger *trigger.KafkaTrigger

	BaseCtx context.Context
	Cancel  context.CancelFunc

	// streams ends long lived responses (SSE) before the HTTP server drains.
	streams     context.Context
	stopStreams context.CancelFunc

	mu      sync.Mutex
	group   *errgroup.Group
	stopped bool
}

func New(cfg *config.Config, st store.Store, src feed.Source, repo *repository.Repository, p *presenter.Controller) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if st == nil {
		return nil, errors.New("store is nil")
	}
	if src == nil {
		return nil, errors.New("feed source is nil")
	}
	if repo == nil {
		return nil, errors.New("repository is nil")
	}
	if p == nil {
		return nil, errors.New("presenter is nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	streams, stopStreams := context.WithCancel(ctx)
	return &App{
		Config:      cfg,
		Store:       st,
		Source:      src,
		Repo:        repo,
		Presenter:   p,
		BaseCtx:     ctx,
		Cancel:      cancel,
		streams:     streams,
		stopStreams: stopStreams,
	}, nil
}

// Build wires every component from cfg. The caller owns the returned App and
// must call Shutdown to release the store.
func Build(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	indexer, err := geo.NewIndexer(cfg.Geo.Resolution)
	if err != nil {
		return nil, err
	}
	src, err := feed.NewSourceFromConfig(cfg.Feed)
	if err != nil {
		return nil, fmt.Errorf("create feed source: %w", err)
	}
	st, err := store.NewStoreFromConfig(cfg.Store, indexer)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	repo := repository.New(src, st, indexer, cfg.Geo.MaxRings)
	p := presenter.New(repo, cfg.Presenter.RefreshInterval)

	a, err := New(cfg, st, src, repo, p)
	if err != nil {
		st.Close()
		return nil, err
	}
	return a, nil
}

// Start launches the presenter loop and the configured refresh triggers.
// They all stop when BaseCtx is cancelled.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.group != nil {
		return errors.New("app already started")
	}

	log := logger.WithComponent("app")
	g, ctx := errgroup.WithContext(a.BaseCtx)
	a.group = g

	presenterDone := a.Presenter.Start(ctx)
	g.Go(func() error {
		<-presenterDone
		return nil
	})

	if fs, ok := a.Source.(*feed.FileSource); ok && a.Config.Feed.Watch {
		if err := fs.Watch(ctx, a.Presenter.Refresh); err != nil {
			a.Cancel()
			return fmt.Errorf("start feed watcher: %w", err)
		}
		log.Info("Feed file watcher started")
	}

	if a.Trigger == nil && len(a.Config.Kafka.Brokers) > 0 {
		a.Trigger = trigger.NewKafkaTrigger(a.Config.Kafka.Brokers, a.Config.Kafka.Topic, a.Config.Kafka.GroupID, a.Presenter)
	}
	if a.Trigger != nil {
		g.Go(func() error {
			return a.Trigger.Run(ctx)
		})
	}

	return nil
}

// StopStreams ends every open streaming response. The server calls it before
// a graceful shutdown, which would otherwise wait for those handlers.
func (a *App) StopStreams() {
	a.stopStreams()
}

// StreamsDone is closed by StopStreams or Shutdown.
func (a *App) StreamsDone() <-chan struct{} {
	return a.streams.Done()
}

// Shutdown cancels background work, waits for it and closes the store.
func (a *App) Shutdown() error {
	if a == nil || a.Cancel == nil {
		return nil
	}
	a.Cancel()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return nil
	}
	a.stopped = true

	var runErr, triggerErr error
	if a.group != nil {
		runErr = a.group.Wait()
	}
	if a.Trigger != nil {
		triggerErr = a.Trigger.Close()
	}
	return errors.Join(runErr, triggerErr, a.Store.Close())
}
