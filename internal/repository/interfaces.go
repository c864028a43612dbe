package repository

import (
	"context"

	"github.com/bassista/atlas/internal/model"
	"github.com/bassista/atlas/internal/store"
)

// Cache is the part of the local store the repository reads and replaces.
type Cache interface {
	store.PartnerStore
	store.StationStore
}

// PartnerRefresher is what the presenter needs to drive its state machine.
type PartnerRefresher interface {
	RefreshPartners(ctx context.Context) ([]model.Partner, error)
}

// SyncRepository is the full surface consumed by the HTTP API and the CLI.
type SyncRepository interface {
	PartnerRefresher
	RefreshDeliveryStations(ctx context.Context) ([]model.DeliveryStation, error)
	RefreshAll(ctx context.Context) (model.Snapshot, error)
	ObserveFeatures(ctx context.Context) (<-chan []model.Feature, error)
	FilterPartnersByStatus(ctx context.Context, status string) ([]model.Partner, error)
	Partners(ctx context.Context) ([]model.Partner, error)
	PartnerByID(ctx context.Context, id string) (model.Partner, error)
	DeliveryStations(ctx context.Context) ([]model.DeliveryStation, error)
	PartnersNear(ctx context.Context, lat, lon float64, rings int) ([]model.Partner, error)
}

var _ SyncRepository = (*Repository)(nil)
