package feed

import (
	"errors"
	"testing"

	"github.com/bassista/atlas/internal/model"
	"github.com/go-playground/validator/v10"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSnapshot_Valid(t *testing.T) {
	snap, err := decodeSnapshot([]byte(validSnapshotJSON), validator.New())
	require.NoError(t, err)

	want := []model.Partner{
		{StoreID: "P1", Name: "Acme", Status: "active", Capacity: 10, Latitude: -23.5, Longitude: -46.6},
		{StoreID: "P2", Name: "Beta", Status: "inactive", Capacity: 5, Latitude: -23.6, Longitude: -46.7},
	}
	if diff := cmp.Diff(want, snap.Partners()); diff != "" {
		t.Errorf("partners mismatch (-want +got):\n%s", diff)
	}

	stations := snap.Stations()
	require.Len(t, stations, 1)
	assert.Equal(t, "S1", stations[0].StoreID)
	assert.Equal(t, -46.63, stations[0].Longitude)
}

func TestDecodeSnapshot_DefaultsEmptyCollections(t *testing.T) {
	snap, err := decodeSnapshot([]byte(`{}`), validator.New())
	require.NoError(t, err)

	assert.NotNil(t, snap.AllMarkerData)
	assert.NotNil(t, snap.DeliveryStations)
	assert.Empty(t, snap.Partners())
	assert.Empty(t, snap.Stations())
}

func TestDecodeSnapshot_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "not valid json"},
		{"wrong type", `{"allMarkerData": "nope"}`},
		{"missing store id", `{"allMarkerData": [{"name": "x", "lat": 0, "lon": 0}]}`},
		{"latitude out of range", `{"allMarkerData": [{"storeId": "P1", "lat": 95, "lon": 0}]}`},
		{"longitude out of range", `{"deliveryStations": [{"storeId": "S1", "lat": 0, "lon": -181}]}`},
		{"negative capacity", `{"allMarkerData": [{"storeId": "P1", "capacity": -1}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeSnapshot([]byte(tt.body), validator.New())
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrDecode), "expected decode error, got %v", err)
		})
	}
}

func TestDecodeSnapshot_TooLarge(t *testing.T) {
	setMaxSnapshotBytes(t, int64(len(validSnapshotJSON)))

	_, err := decodeSnapshot([]byte(validSnapshotJSON), validator.New())
	require.NoError(t, err, "a document exactly at the limit is accepted")

	_, err = decodeSnapshot([]byte(validSnapshotJSON+" "), validator.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrDecode))
	assert.Contains(t, err.Error(), "too large")
}
