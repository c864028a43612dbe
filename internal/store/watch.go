package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/bassista/atlas/internal/logger"
	"github.com/bassista/atlas/internal/model"
	"github.com/bassista/atlas/internal/pubsub"
)

var errClosed = errors.New("store closed")

// change is the token published after every committed write.
type change struct{}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", model.ErrStore, op, err)
}

// watch turns write tokens into full re-reads of a collection.
//
// The subscription is taken before the initial read so a write racing with
// the subscribe is never missed. Tokens coalesce in the buffer-1 subscription,
// so a slow consumer gets the latest collection rather than every
// intermediate one.
func watch[T any](ctx context.Context, changes *pubsub.Broker[change], done <-chan struct{}, load func(context.Context) ([]T, error)) (<-chan []T, error) {
	sub := changes.Subscribe()
	initial, err := load(ctx)
	if err != nil {
		changes.Unsubscribe(sub)
		return nil, err
	}

	log := logger.WithComponent("store").WithField("subscription", sub.ID())
	out := make(chan []T)
	go func() {
		defer close(out)
		defer changes.Unsubscribe(sub)

		current := initial
		for {
			select {
			case out <- current:
			case <-ctx.Done():
				return
			case <-done:
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case _, ok := <-sub.C():
				if !ok {
					return
				}
			}

			next, err := load(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.WithError(err).Warn("Re-read after change failed, closing stream")
				}
				return
			}
			current = next
		}
	}()

	return out, nil
}

// dedupe keeps the last occurrence of every key, in the order of those last occurrences.
func dedupe[T any](items []T, key func(T) string) []T {
	last := make(map[string]int, len(items))
	for i, item := range items {
		last[key(item)] = i
	}
	out := make([]T, 0, len(last))
	for i, item := range items {
		if last[key(item)] == i {
			out = append(out, item)
		}
	}
	return out
}

func partnerKey(p model.Partner) string         { return p.StoreID }
func stationKey(s model.DeliveryStation) string { return s.StoreID }
