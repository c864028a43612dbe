// Package presenter exposes the partner load state (loading, success, error)
// as a stream of immutable State values for UI-facing consumers.
package presenter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bassista/atlas/internal/logger"
	"github.com/bassista/atlas/internal/model"
	"github.com/bassista/atlas/internal/pubsub"
	"github.com/bassista/atlas/internal/repository"
	"github.com/sirupsen/logrus"
)

type Status string

const (
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// unknownErrorMessage is shown when a failure carries no text.
const unknownErrorMessage = "unknown error loading data"

// State is one snapshot of the presentation state machine.
// Partners is set only for success, Message only for error.
type State struct {
	Status   Status          `json:"status"`
	Partners []model.Partner `json:"partners,omitempty"`
	Message  string          `json:"message,omitempty"`
}

func Loading() State { return State{Status: StatusLoading} }

func Success(partners []model.Partner) State {
	if partners == nil {
		partners = []model.Partner{}
	}
	return State{Status: StatusSuccess, Partners: partners}
}

// Failure builds the error state for err.
func Failure(err error) State {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if msg == "" {
		msg = unknownErrorMessage
	}
	return State{Status: StatusError, Message: msg}
}

// Controller owns the state machine. Refresh requests are queued on a
// command channel and executed one at a time on the Start goroutine.
type Controller struct {
	refresher repository.PartnerRefresher
	interval  time.Duration

	commands chan struct{}
	states   *pubsub.Broker[State]

	mu      sync.Mutex
	current State

	log *logrus.Entry
}

// New creates a controller in the Loading state. interval > 0 enables
// periodic refreshes once started.
func New(refresher repository.PartnerRefresher, interval time.Duration) *Controller {
	return &Controller{
		refresher: refresher,
		interval:  interval,
		commands:  make(chan struct{}, 1),
		states:    pubsub.NewBroker[State](),
		current:   Loading(),
		log:       logger.WithComponent("presenter"),
	}
}

// Start runs the initial load and then serves refresh requests until ctx is
// done. The returned channel is closed when the loop has exited and every
// subscriber stream has been closed.
func (c *Controller) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer c.states.Close()

		var tick <-chan time.Time
		if c.interval > 0 {
			ticker := time.NewTicker(c.interval)
			defer ticker.Stop()
			tick = ticker.C
			c.log.Infof("Periodic refresh every %s", c.interval)
		}

		c.load(ctx)
		for {
			select {
			case <-ctx.Done():
				c.log.Debug("Presenter loop stopped")
				return
			case <-c.commands:
				c.load(ctx)
			case <-tick:
				c.load(ctx)
			}
		}
	}()
	return done
}

// Refresh requests a reload without blocking. Requests made while one is
// already pending collapse into it.
func (c *Controller) Refresh() {
	select {
	case c.commands <- struct{}{}:
	default:
		c.log.Debug("Refresh already pending")
	}
}

// Current returns the latest state.
func (c *Controller) Current() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Subscribe streams the current state followed by every later transition.
// Slow consumers only see the latest state. The channel closes when ctx is
// done or the controller stops.
func (c *Controller) Subscribe(ctx context.Context) <-chan State {
	c.mu.Lock()
	sub := c.states.SubscribeWith(c.current)
	c.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			c.states.Unsubscribe(sub)
		case <-c.states.Done():
		}
	}()
	return sub.C()
}

func (c *Controller) load(ctx context.Context) {
	c.set(Loading())

	partners, err := c.refreshSafely(ctx)
	if err != nil {
		c.log.WithError(err).Error("Partner refresh failed")
		c.set(Failure(err))
		return
	}
	c.log.Infof("Loaded %d partners", len(partners))
	c.set(Success(partners))
}

func (c *Controller) refreshSafely(ctx context.Context) (partners []model.Partner, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("refresh panicked: %v", r)
		}
	}()
	return c.refresher.RefreshPartners(ctx)
}

// set updates current and broadcasts under the same lock so a concurrent
// Subscribe observes either the old state followed by this one, or this one.
func (c *Controller) set(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = s
	c.states.Publish(s)
}
