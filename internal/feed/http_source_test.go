package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bassista/atlas/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPSource_EmptyURL(t *testing.T) {
	_, err := NewHTTPSource("", time.Second, "")
	assert.Error(t, err)
}

func TestHTTPSource_Fetch_Success(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(validSnapshotJSON))
	}))
	defer srv.Close()

	src, err := NewHTTPSource(srv.URL, time.Second, "")
	require.NoError(t, err)

	snap, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.AllMarkerData, 2)
	assert.Len(t, snap.DeliveryStations, 1)
	assert.Equal(t, defaultUserAgent, gotUA)
	assert.Equal(t, "application/json", gotAccept)
}

func TestHTTPSource_Fetch_Non2xxIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src, _ := NewHTTPSource(srv.URL, time.Second, "atlas-test")
	_, err := src.Fetch(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrTransport))
	assert.Contains(t, err.Error(), "503")
}

func TestHTTPSource_Fetch_MalformedIsDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"allMarkerData": [`))
	}))
	defer srv.Close()

	src, _ := NewHTTPSource(srv.URL, time.Second, "")
	_, err := src.Fetch(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrDecode))
	assert.False(t, errors.Is(err, model.ErrTransport))
}

func TestHTTPSource_Fetch_OversizeIsDecode(t *testing.T) {
	// The limit falls right after the JSON, so a truncating read would still parse.
	setMaxSnapshotBytes(t, int64(len(validSnapshotJSON)))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(validSnapshotJSON + strings.Repeat(" ", 64)))
	}))
	defer srv.Close()

	src, _ := NewHTTPSource(srv.URL, time.Second, "")
	snap, err := src.Fetch(context.Background())

	require.Error(t, err)
	assert.Nil(t, snap)
	assert.True(t, errors.Is(err, model.ErrDecode))
	assert.False(t, errors.Is(err, model.ErrTransport))
	assert.Contains(t, err.Error(), "too large")
}

func TestHTTPSource_Fetch_UnreachableIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	src, _ := NewHTTPSource(url, time.Second, "")
	_, err := src.Fetch(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrTransport))
}

func TestHTTPSource_Fetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	src, _ := NewHTTPSource(srv.URL, 50*time.Millisecond, "")
	_, err := src.Fetch(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrTransport))
}

func TestHTTPSource_Fetch_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(validSnapshotJSON))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src, _ := NewHTTPSource(srv.URL, time.Second, "")
	_, err := src.Fetch(ctx)

	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrTransport))
	assert.True(t, errors.Is(err, context.Canceled))
}
