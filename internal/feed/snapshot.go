package feed

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bassista/atlas/internal/model"
	"github.com/go-playground/validator/v10"
)

// Snapshot is the remote document: every partner and every delivery station.
type Snapshot struct {
	AllMarkerData    []Record `json:"allMarkerData" validate:"dive"`
	DeliveryStations []Record `json:"deliveryStations" validate:"dive"`
}

// Record is one raw point as published by the feed.
type Record struct {
	StoreID  string  `json:"storeId" validate:"required"`
	Name     string  `json:"name"`
	Status   string  `json:"status"`
	Capacity int     `json:"capacity" validate:"gte=0"`
	Lat      float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon      float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// ApplyDefaults sets fallback values after decode.
func (s *Snapshot) ApplyDefaults() {
	if s.AllMarkerData == nil {
		s.AllMarkerData = []Record{}
	}
	if s.DeliveryStations == nil {
		s.DeliveryStations = []Record{}
	}
}

// Partner maps the record to the domain type.
func (r Record) Partner() model.Partner {
	return model.Partner{
		StoreID:   r.StoreID,
		Name:      r.Name,
		Status:    r.Status,
		Capacity:  r.Capacity,
		Latitude:  r.Lat,
		Longitude: r.Lon,
	}
}

// DeliveryStation maps the record to the domain type.
func (r Record) DeliveryStation() model.DeliveryStation {
	return model.DeliveryStation{
		StoreID:   r.StoreID,
		Name:      r.Name,
		Status:    r.Status,
		Capacity:  r.Capacity,
		Latitude:  r.Lat,
		Longitude: r.Lon,
	}
}

// Partners returns the partner sub-collection as domain values.
func (s *Snapshot) Partners() []model.Partner {
	out := make([]model.Partner, 0, len(s.AllMarkerData))
	for _, r := range s.AllMarkerData {
		out = append(out, r.Partner())
	}
	return out
}

// Stations returns the delivery-station sub-collection as domain values.
func (s *Snapshot) Stations() []model.DeliveryStation {
	out := make([]model.DeliveryStation, 0, len(s.DeliveryStations))
	for _, r := range s.DeliveryStations {
		out = append(out, r.DeliveryStation())
	}
	return out
}

// decodeSnapshot parses and validates a snapshot document.
// Every failure is classified as model.ErrDecode.
func decodeSnapshot(data []byte, v *validator.Validate) (*Snapshot, error) {
	if int64(len(data)) > maxSnapshotBytes {
		return nil, fmt.Errorf("%w: snapshot too large: more than %d bytes", model.ErrDecode, maxSnapshotBytes)
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	var snap Snapshot
	if err := decoder.Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: decode snapshot: %w", model.ErrDecode, err)
	}

	snap.ApplyDefaults()

	if v != nil {
		if err := v.Struct(&snap); err != nil {
			return nil, fmt.Errorf("%w: validate snapshot: %w", model.ErrDecode, err)
		}
	}

	return &snap, nil
}
