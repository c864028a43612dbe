// Package geo maps coordinates to H3 cells so cached points can be queried by area.
package geo

import (
	"fmt"

	"github.com/bassista/atlas/internal/model"
	"github.com/uber/h3-go/v4"
)

const (
	// DefaultResolution gives cells of roughly 0.7 km², a reasonable grain for a city map.
	DefaultResolution = 8
	MaxResolution     = 15
)

// Indexer computes H3 cells at a fixed resolution.
type Indexer struct {
	resolution int
}

func NewIndexer(resolution int) (*Indexer, error) {
	if resolution < 0 || resolution > MaxResolution {
		return nil, fmt.Errorf("h3 resolution must be between 0 and %d, got %d", MaxResolution, resolution)
	}
	return &Indexer{resolution: resolution}, nil
}

// Resolution returns the configured H3 resolution.
func (ix *Indexer) Resolution() int { return ix.resolution }

// Cell returns the H3 cell containing lat/lon as an int64, the form stored in the cache.
func (ix *Indexer) Cell(lat, lon float64) (int64, error) {
	if !model.ValidCoordinate(lat, lon) {
		return 0, fmt.Errorf("%w: lat=%f lon=%f", model.ErrInvalidCoordinate, lat, lon)
	}
	cell, err := h3.LatLngToCell(h3.NewLatLng(lat, lon), ix.resolution)
	if err != nil {
		return 0, fmt.Errorf("error converting to h3 cell at res %d: %w", ix.resolution, err)
	}
	return int64(cell), nil
}

// Disk returns the cell of lat/lon plus every cell within rings grid steps of it.
func (ix *Indexer) Disk(lat, lon float64, rings int) ([]int64, error) {
	if rings < 0 {
		return nil, fmt.Errorf("rings must be >= 0, got %d", rings)
	}
	origin, err := ix.Cell(lat, lon)
	if err != nil {
		return nil, err
	}
	cells, err := h3.GridDisk(h3.Cell(origin), rings)
	if err != nil {
		return nil, fmt.Errorf("error computing h3 grid disk k=%d: %w", rings, err)
	}
	out := make([]int64, 0, len(cells))
	for _, c := range cells {
		out = append(out, int64(c))
	}
	return out, nil
}
