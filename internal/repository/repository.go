// Package repository keeps the local cache in sync with the remote feed.
//
// A refresh fetches the remote snapshot and replaces the cached collection
// with it. When the fetch fails the cached collection is served instead, as
// long as there is one. Reads other than refreshes never touch the network.
package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bassista/atlas/internal/feed"
	"github.com/bassista/atlas/internal/geo"
	"github.com/bassista/atlas/internal/logger"
	"github.com/bassista/atlas/internal/model"
	"github.com/sirupsen/logrus"
)

// ErrInvalidRings is returned by PartnersNear for a negative or too large search radius.
var ErrInvalidRings = errors.New("invalid rings")

type Repository struct {
	source   feed.Source
	cache    Cache
	indexer  *geo.Indexer
	maxRings int

	// One lock per collection: replaces on the same collection never interleave.
	partnersMu sync.Mutex
	stationsMu sync.Mutex

	log *logrus.Entry
}

// New wires a repository. maxRings caps PartnersNear; 0 allows only the origin cell.
func New(source feed.Source, cache Cache, indexer *geo.Indexer, maxRings int) *Repository {
	return &Repository{
		source:   source,
		cache:    cache,
		indexer:  indexer,
		maxRings: maxRings,
		log:      logger.WithComponent("repo"),
	}
}

// RefreshPartners fetches the remote snapshot and replaces the cached partners.
//
// On fetch failure the cache is left untouched and its partners are returned
// if there are any; an empty cache yields *model.FetchError. A failed cache
// read during fallback yields *model.StoreReadError and a failed replace
// yields *model.StoreWriteError.
func (r *Repository) RefreshPartners(ctx context.Context) ([]model.Partner, error) {
	snap, err := r.source.Fetch(ctx)
	var fetched []model.Partner
	if err == nil {
		fetched = snap.Partners()
	}
	return r.partnersResult(ctx, fetched, err)
}

// RefreshDeliveryStations is RefreshPartners for the delivery station collection.
// It performs its own fetch.
func (r *Repository) RefreshDeliveryStations(ctx context.Context) ([]model.DeliveryStation, error) {
	snap, err := r.source.Fetch(ctx)
	var fetched []model.DeliveryStation
	if err == nil {
		fetched = snap.Stations()
	}
	return r.stationsResult(ctx, fetched, err)
}

// RefreshAll fetches once and applies the result to both collections. Each
// collection makes its own fallback decision; the returned error joins the
// per-collection errors, and the snapshot carries whatever succeeded.
func (r *Repository) RefreshAll(ctx context.Context) (model.Snapshot, error) {
	snap, fetchErr := r.source.Fetch(ctx)

	var (
		result                   model.Snapshot
		partnersErr, stationsErr error
		wg                       sync.WaitGroup
	)
	wg.Go(func() {
		var fetched []model.Partner
		if fetchErr == nil {
			fetched = snap.Partners()
		}
		result.Partners, partnersErr = r.partnersResult(ctx, fetched, fetchErr)
	})
	wg.Go(func() {
		var fetched []model.DeliveryStation
		if fetchErr == nil {
			fetched = snap.Stations()
		}
		result.DeliveryStations, stationsErr = r.stationsResult(ctx, fetched, fetchErr)
	})
	wg.Wait()

	return result, errors.Join(partnersErr, stationsErr)
}

func (r *Repository) partnersResult(ctx context.Context, fetched []model.Partner, fetchErr error) ([]model.Partner, error) {
	log := r.log.WithField("collection", "partners")
	if fetchErr != nil {
		return fallback(ctx, log, fetchErr, r.cache.Partners)
	}
	r.partnersMu.Lock()
	defer r.partnersMu.Unlock()
	return commit(ctx, log, fetched, r.cache.ReplacePartners)
}

func (r *Repository) stationsResult(ctx context.Context, fetched []model.DeliveryStation, fetchErr error) ([]model.DeliveryStation, error) {
	log := r.log.WithField("collection", "deliveryStations")
	if fetchErr != nil {
		return fallback(ctx, log, fetchErr, r.cache.DeliveryStations)
	}
	r.stationsMu.Lock()
	defer r.stationsMu.Unlock()
	return commit(ctx, log, fetched, r.cache.ReplaceDeliveryStations)
}

func commit[T any](ctx context.Context, log *logrus.Entry, fetched []T, replace func(context.Context, []T) error) ([]T, error) {
	if err := replace(ctx, fetched); err != nil {
		log.WithError(err).Error("Cache replace failed")
		return nil, &model.StoreWriteError{Cause: err}
	}
	log.Debugf("Cache replaced with %d items", len(fetched))
	return fetched, nil
}

// fallback serves the cached collection after a failed fetch. A cancelled
// caller gets the fetch error without a cache read.
func fallback[T any](ctx context.Context, log *logrus.Entry, fetchErr error, read func(context.Context) ([]T, error)) ([]T, error) {
	log.WithError(fetchErr).Error("Fetch failed")
	if ctx.Err() != nil {
		return nil, &model.FetchError{Cause: fetchErr}
	}

	cached, err := read(ctx)
	if err != nil {
		log.WithError(err).Error("Fallback cache read failed, discarding fetch error")
		return nil, &model.StoreReadError{Cause: err}
	}
	if len(cached) == 0 {
		return nil, &model.FetchError{Cause: fetchErr}
	}

	log.Warnf("Serving %d cached items after fetch failure", len(cached))
	return cached, nil
}

// ObserveFeatures streams the cached partners as GeoJSON features: once on
// subscribe and again after every partner replace. It never fetches. The
// channel closes when ctx is done or the store ends the stream.
func (r *Repository) ObserveFeatures(ctx context.Context) (<-chan []model.Feature, error) {
	partners, err := r.cache.WatchPartners(ctx)
	if err != nil {
		return nil, &model.StoreReadError{Cause: err}
	}

	out := make(chan []model.Feature)
	go func() {
		defer close(out)
		for batch := range partners {
			select {
			case out <- model.Features(batch):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// FilterPartnersByStatus reads cached partners with the given status.
// An unknown status is an empty result, not an error.
func (r *Repository) FilterPartnersByStatus(ctx context.Context, status string) ([]model.Partner, error) {
	partners, err := r.cache.PartnersByStatus(ctx, status)
	if err != nil {
		return nil, &model.StoreReadError{Cause: err}
	}
	return partners, nil
}

func (r *Repository) Partners(ctx context.Context) ([]model.Partner, error) {
	partners, err := r.cache.Partners(ctx)
	if err != nil {
		return nil, &model.StoreReadError{Cause: err}
	}
	return partners, nil
}

// PartnerByID passes model.ErrNotFound through unwrapped.
func (r *Repository) PartnerByID(ctx context.Context, id string) (model.Partner, error) {
	p, err := r.cache.PartnerByID(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return model.Partner{}, err
	}
	if err != nil {
		return model.Partner{}, &model.StoreReadError{Cause: err}
	}
	return p, nil
}

func (r *Repository) DeliveryStations(ctx context.Context) ([]model.DeliveryStation, error) {
	stations, err := r.cache.DeliveryStations(ctx)
	if err != nil {
		return nil, &model.StoreReadError{Cause: err}
	}
	return stations, nil
}

// PartnersNear returns cached partners whose H3 cell is within rings grid
// steps of the cell containing lat/lon.
func (r *Repository) PartnersNear(ctx context.Context, lat, lon float64, rings int) ([]model.Partner, error) {
	if rings < 0 || rings > r.maxRings {
		return nil, fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidRings, rings, r.maxRings)
	}
	cells, err := r.indexer.Disk(lat, lon, rings)
	if err != nil {
		return nil, err
	}
	partners, err := r.cache.PartnersInCells(ctx, cells)
	if err != nil {
		return nil, &model.StoreReadError{Cause: err}
	}
	return partners, nil
}
