package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bassista/atlas/internal/geo"
	"github.com/bassista/atlas/internal/logger"
	"github.com/bassista/atlas/internal/model"
	"github.com/sirupsen/logrus"
)

// fileDocument is the on-disk layout of a FileStore.
type fileDocument struct {
	Metadata         fileMetadata            `json:"metadata"`
	Partners         []model.Partner         `json:"partners"`
	DeliveryStations []model.DeliveryStation `json:"deliveryStations"`
}

type fileMetadata struct {
	LastUpdate int64 `json:"lastUpdate"`
}

// FileStore is a MemoryStore persisted write-through to a JSON document.
// A replace is written to disk first and only then becomes visible in memory,
// so a failed write leaves both the file and the cache untouched.
type FileStore struct {
	*MemoryStore

	path string
	dir  string
	base string
	// writeMu serializes persist+swap so the document always holds the
	// collection that was swapped in last.
	writeMu sync.Mutex
	log     *logrus.Entry
}

// NewFileStore loads path when it exists. A missing file is an empty store.
func NewFileStore(path string, indexer *geo.Indexer) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("store file path is required")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	s := &FileStore{
		MemoryStore: NewMemoryStore(indexer),
		path:        path,
		dir:         dir,
		base:        filepath.Base(path),
		log:         logger.WithComponent("store").WithField("driver", "file"),
	}

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	s.partners = dedupe(doc.Partners, partnerKey)
	s.stations = dedupe(doc.DeliveryStations, stationKey)
	s.log.Infof("Loaded %d partners and %d delivery stations from %s", len(s.partners), len(s.stations), path)

	return s, nil
}

func (s *FileStore) load() (*fileDocument, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &fileDocument{}, nil
	}
	if err != nil {
		return nil, storeErr("open store file", err)
	}
	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, storeErr("decode store file", err)
	}
	return &doc, nil
}

func (s *FileStore) ReplacePartners(ctx context.Context, items []model.Partner) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return storeErr("replace partners", err)
	}
	stations, err := s.MemoryStore.DeliveryStations(ctx)
	if err != nil {
		return err
	}
	next := dedupe(items, partnerKey)
	if err := s.persist(next, stations); err != nil {
		return storeErr("replace partners", err)
	}
	// The file is committed; the cache must follow even if ctx ends now.
	return s.MemoryStore.swapPartners(next)
}

func (s *FileStore) ReplaceDeliveryStations(ctx context.Context, items []model.DeliveryStation) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return storeErr("replace delivery stations", err)
	}
	partners, err := s.MemoryStore.Partners(ctx)
	if err != nil {
		return err
	}
	next := dedupe(items, stationKey)
	if err := s.persist(partners, next); err != nil {
		return storeErr("replace delivery stations", err)
	}
	return s.MemoryStore.swapStations(next)
}

// persist writes the document to a temp file in the same directory, syncs it
// and renames it over the previous one.
func (s *FileStore) persist(partners []model.Partner, stations []model.DeliveryStation) error {
	doc := fileDocument{
		Metadata:         fileMetadata{LastUpdate: time.Now().UnixMilli()},
		Partners:         partners,
		DeliveryStations: stations,
	}
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store document: %w", err)
	}

	tmpFile, err := os.CreateTemp(s.dir, s.base+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
	}()

	if _, err := tmpFile.Write(payload); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpFile.Name(), s.path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}

	s.log.Debugf("Persisted %d partners and %d delivery stations", len(partners), len(stations))
	return nil
}
