// Package store is the local cache of partners and delivery stations.
//
// Every driver replaces a collection atomically: readers observe either the
// previous full collection or the new one, never a partial write.
package store

import (
	"context"

	"github.com/bassista/atlas/internal/model"
)

// PartnerStore is the partner half of the cache.
type PartnerStore interface {
	// ReplacePartners deletes every cached partner and inserts items in one commit.
	ReplacePartners(ctx context.Context, items []model.Partner) error
	Partners(ctx context.Context) ([]model.Partner, error)
	// PartnerByID returns model.ErrNotFound when id is not cached.
	PartnerByID(ctx context.Context, id string) (model.Partner, error)
	PartnersByStatus(ctx context.Context, status string) ([]model.Partner, error)
	PartnersInCells(ctx context.Context, cells []int64) ([]model.Partner, error)
	// WatchPartners emits the current collection immediately and again after
	// every committed partner write. The channel closes when ctx is done, the
	// store is closed, or a re-read fails.
	WatchPartners(ctx context.Context) (<-chan []model.Partner, error)
}

// StationStore is the delivery station half of the cache.
type StationStore interface {
	ReplaceDeliveryStations(ctx context.Context, items []model.DeliveryStation) error
	DeliveryStations(ctx context.Context) ([]model.DeliveryStation, error)
}

type Store interface {
	PartnerStore
	StationStore
	Close() error
}
