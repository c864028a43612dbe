package app

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bassista/atlas/internal/config"
	"github.com/bassista/atlas/internal/feed"
	"github.com/bassista/atlas/internal/geo"
	"github.com/bassista/atlas/internal/presenter"
	"github.com/bassista/atlas/internal/repository"
	"github.com/bassista/atlas/internal/store"
	"github.com/bassista/atlas/internal/trigger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const snapshotJSON = `{
  "allMarkerData": [
    {"storeId": "P1", "name": "Acme", "status": "active", "capacity": 10, "lat": -23.5, "lon": -46.6}
  ],
  "deliveryStations": [
    {"storeId": "S1", "name": "Hub", "status": "active", "capacity": 100, "lat": -23.55, "lon": -46.63}
  ]
}`

func fileConfig(t *testing.T, watch bool) *config.Config {
	t.Helper()
	dir := t.TempDir()
	snapshot := filepath.Join(dir, "snapshot.json")
	require.NoError(t, os.WriteFile(snapshot, []byte(snapshotJSON), 0644))

	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: time.Second},
		Feed:   config.FeedConfig{Driver: feed.DriverFile, FilePath: snapshot, Watch: watch},
		Store:  config.StoreConfig{Driver: store.DriverSQLite, Path: filepath.Join(dir, "atlas.db")},
		Geo:    config.GeoConfig{Resolution: geo.DefaultResolution, MaxRings: 3},
	}
}

func TestNew_NilArguments(t *testing.T) {
	cfg := &config.Config{}
	ix, err := geo.NewIndexer(geo.DefaultResolution)
	require.NoError(t, err)
	st := store.NewMemoryStore(ix)
	defer st.Close()
	src, err := feed.NewFileSource("snapshot.json")
	require.NoError(t, err)
	repo := repository.New(src, st, ix, 1)
	p := presenter.New(repo, 0)

	tests := []struct {
		name string
		fn   func() (*App, error)
	}{
		{"nil config", func() (*App, error) { return New(nil, st, src, repo, p) }},
		{"nil store", func() (*App, error) { return New(cfg, nil, src, repo, p) }},
		{"nil source", func() (*App, error) { return New(cfg, st, nil, repo, p) }},
		{"nil repo", func() (*App, error) { return New(cfg, st, src, nil, p) }},
		{"nil presenter", func() (*App, error) { return New(cfg, st, src, repo, nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := tt.fn()
			assert.Error(t, err)
			assert.Nil(t, a)
		})
	}

	a, err := New(cfg, st, src, repo, p)
	require.NoError(t, err)
	assert.NotNil(t, a.BaseCtx)
	a.Cancel()
}

func TestBuild_InvalidConfig(t *testing.T) {
	_, err := Build(nil)
	assert.Error(t, err)

	cfg := fileConfig(t, false)
	cfg.Store.Driver = "redis"
	_, err = Build(cfg)
	assert.Error(t, err)

	cfg = fileConfig(t, false)
	cfg.Geo.Resolution = 99
	_, err = Build(cfg)
	assert.Error(t, err)
}

func TestApp_StartLoadsPartners(t *testing.T) {
	a, err := Build(fileConfig(t, false))
	require.NoError(t, err)
	assert.Nil(t, a.Trigger)

	require.NoError(t, a.Start())
	assert.Error(t, a.Start(), "second start is rejected")

	assert.Eventually(t, func() bool {
		return a.Presenter.Current().Status == presenter.StatusSuccess
	}, 2*time.Second, 10*time.Millisecond)

	partners, err := a.Repo.Partners(context.Background())
	require.NoError(t, err)
	require.Len(t, partners, 1)
	assert.Equal(t, "P1", partners[0].StoreID)

	require.NoError(t, a.Shutdown())
	require.NoError(t, a.Shutdown())
}

func TestApp_FileWatcherTriggersRefresh(t *testing.T) {
	cfg := fileConfig(t, true)
	a, err := Build(cfg)
	require.NoError(t, err)
	require.NoError(t, a.Start())
	defer a.Shutdown()

	require.Eventually(t, func() bool {
		return a.Presenter.Current().Status == presenter.StatusSuccess
	}, 2*time.Second, 10*time.Millisecond)

	updated := `{"allMarkerData":[
	  {"storeId":"P1","name":"Acme","status":"active","capacity":10,"lat":-23.5,"lon":-46.6},
	  {"storeId":"P2","name":"Beta","status":"inactive","capacity":5,"lat":-23.6,"lon":-46.7}
	],"deliveryStations":[]}`
	require.NoError(t, os.WriteFile(cfg.Feed.FilePath, []byte(updated), 0644))

	assert.Eventually(t, func() bool {
		partners, err := a.Repo.Partners(context.Background())
		return err == nil && len(partners) == 2
	}, 3*time.Second, 20*time.Millisecond)
}

func TestApp_BuildWithKafkaDoesNotJoinGroup(t *testing.T) {
	cfg := fileConfig(t, false)
	cfg.Kafka = config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "atlas.feed.updated", GroupID: "atlas-test"}

	a, err := Build(cfg)
	require.NoError(t, err)
	assert.Nil(t, a.Trigger, "one-shot commands build the app without starting it")

	// a refresh without Start must not need a consumer
	_, err = a.Repo.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Nil(t, a.Trigger)

	require.NoError(t, a.Shutdown())
}

// blockingReader waits for the consumer context and counts closes.
type blockingReader struct {
	closes atomic.Int32
}

func (r *blockingReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *blockingReader) CommitMessages(context.Context, ...kafka.Message) error { return nil }

func (r *blockingReader) Close() error {
	r.closes.Add(1)
	return nil
}

func TestApp_StartRunsTriggerAndShutdownClosesIt(t *testing.T) {
	a, err := Build(fileConfig(t, false))
	require.NoError(t, err)

	reader := &blockingReader{}
	a.Trigger = trigger.NewKafkaTriggerWithReader(reader, a.Presenter)
	require.NoError(t, a.Start())

	require.NoError(t, a.Shutdown())
	assert.Equal(t, int32(1), reader.closes.Load())
}

func TestApp_StopStreams(t *testing.T) {
	a, err := Build(fileConfig(t, false))
	require.NoError(t, err)

	select {
	case <-a.StreamsDone():
		t.Fatal("streams done before StopStreams")
	default:
	}

	a.StopStreams()
	select {
	case <-a.StreamsDone():
	case <-time.After(time.Second):
		t.Fatal("StopStreams did not close StreamsDone")
	}
	assert.NoError(t, a.BaseCtx.Err(), "stopping streams leaves background work running")

	require.NoError(t, a.Shutdown())
}

func TestApp_ShutdownNil(t *testing.T) {
	var a *App
	assert.NoError(t, a.Shutdown())
}
