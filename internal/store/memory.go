package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/bassista/atlas/internal/geo"
	"github.com/bassista/atlas/internal/model"
	"github.com/bassista/atlas/internal/pubsub"
)

// MemoryStore keeps both collections in memory. Replace swaps the slice under
// the write lock, and readers always get their own copy.
type MemoryStore struct {
	mu       sync.RWMutex
	partners []model.Partner
	stations []model.DeliveryStation
	closed   bool

	indexer   *geo.Indexer
	changes   *pubsub.Broker[change]
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryStore creates an empty store. indexer resolves PartnersInCells.
func NewMemoryStore(indexer *geo.Indexer) *MemoryStore {
	return &MemoryStore{
		partners: []model.Partner{},
		stations: []model.DeliveryStation{},
		indexer:  indexer,
		changes:  pubsub.NewBroker[change](),
		done:     make(chan struct{}),
	}
}

func (s *MemoryStore) ReplacePartners(ctx context.Context, items []model.Partner) error {
	if err := ctx.Err(); err != nil {
		return storeErr("replace partners", err)
	}
	return s.swapPartners(dedupe(items, partnerKey))
}

func (s *MemoryStore) ReplaceDeliveryStations(ctx context.Context, items []model.DeliveryStation) error {
	if err := ctx.Err(); err != nil {
		return storeErr("replace delivery stations", err)
	}
	return s.swapStations(dedupe(items, stationKey))
}

// swapPartners installs an already deduplicated collection. It does not look
// at any context: callers decide cancellation before they commit.
func (s *MemoryStore) swapPartners(next []model.Partner) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return storeErr("replace partners", errClosed)
	}
	s.partners = next
	s.mu.Unlock()

	s.changes.Publish(change{})
	return nil
}

func (s *MemoryStore) swapStations(next []model.DeliveryStation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storeErr("replace delivery stations", errClosed)
	}
	s.stations = next
	return nil
}

func (s *MemoryStore) Partners(ctx context.Context) ([]model.Partner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(ctx, "read partners"); err != nil {
		return nil, err
	}
	return slices.Clone(s.partners), nil
}

func (s *MemoryStore) DeliveryStations(ctx context.Context) ([]model.DeliveryStation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(ctx, "read delivery stations"); err != nil {
		return nil, err
	}
	return slices.Clone(s.stations), nil
}

func (s *MemoryStore) PartnerByID(ctx context.Context, id string) (model.Partner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(ctx, "read partner"); err != nil {
		return model.Partner{}, err
	}
	for _, p := range s.partners {
		if p.StoreID == id {
			return p, nil
		}
	}
	return model.Partner{}, fmt.Errorf("partner %q: %w", id, model.ErrNotFound)
}

func (s *MemoryStore) PartnersByStatus(ctx context.Context, status string) ([]model.Partner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(ctx, "filter partners"); err != nil {
		return nil, err
	}
	out := []model.Partner{}
	for _, p := range s.partners {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out, nil
}

// PartnersInCells computes each partner's cell on the fly; partners with
// coordinates that have no cell are skipped.
func (s *MemoryStore) PartnersInCells(ctx context.Context, cells []int64) ([]model.Partner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(ctx, "partners in cells"); err != nil {
		return nil, err
	}
	want := make(map[int64]struct{}, len(cells))
	for _, c := range cells {
		want[c] = struct{}{}
	}
	out := []model.Partner{}
	for _, p := range s.partners {
		cell, err := s.indexer.Cell(p.Latitude, p.Longitude)
		if err != nil {
			continue
		}
		if _, ok := want[cell]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemoryStore) WatchPartners(ctx context.Context) (<-chan []model.Partner, error) {
	return watch(ctx, s.changes, s.done, s.Partners)
}

// Close ends every watch stream. Later reads and writes fail.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
		s.changes.Close()
	})
	return nil
}

// readable must be called with s.mu held.
func (s *MemoryStore) readable(ctx context.Context, op string) error {
	if s.closed {
		return storeErr(op, errClosed)
	}
	if err := ctx.Err(); err != nil {
		return storeErr(op, err)
	}
	return nil
}
