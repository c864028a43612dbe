package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bassista/atlas/internal/geo"
	"github.com/bassista/atlas/internal/logger"
	"github.com/bassista/atlas/internal/model"
	"github.com/bassista/atlas/internal/pubsub"
	"github.com/sirupsen/logrus"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS partners (
	store_id  TEXT PRIMARY KEY,
	position  INTEGER NOT NULL,
	name      TEXT NOT NULL,
	status    TEXT NOT NULL,
	capacity  INTEGER NOT NULL,
	latitude  REAL NOT NULL,
	longitude REAL NOT NULL,
	h3_cell   INTEGER
);
CREATE INDEX IF NOT EXISTS idx_partners_status ON partners(status);
CREATE INDEX IF NOT EXISTS idx_partners_h3_cell ON partners(h3_cell);

CREATE TABLE IF NOT EXISTS delivery_stations (
	store_id  TEXT PRIMARY KEY,
	position  INTEGER NOT NULL,
	name      TEXT NOT NULL,
	status    TEXT NOT NULL,
	capacity  INTEGER NOT NULL,
	latitude  REAL NOT NULL,
	longitude REAL NOT NULL,
	h3_cell   INTEGER
);
CREATE INDEX IF NOT EXISTS idx_delivery_stations_status ON delivery_stations(status);
`

const partnerColumns = "store_id, name, status, capacity, latitude, longitude"

// SQLiteStore is the durable cache. Each replace is a single transaction of
// DELETE plus INSERTs, and the pool is limited to one connection so reads
// queue behind an open replace instead of observing it.
type SQLiteStore struct {
	db      *sql.DB
	indexer *geo.Indexer
	log     *logrus.Entry

	changes   *pubsub.Broker[change]
	done      chan struct{}
	closeOnce sync.Once
}

// afterDeleteHook runs inside a replace transaction between DELETE and INSERT.
// Only tests set it.
var afterDeleteHook func()

// NewSQLiteStore opens (or creates) the database at path and applies the schema.
func NewSQLiteStore(path string, indexer *geo.Indexer) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	log := logger.WithComponent("store").WithField("driver", "sqlite")

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storeErr("open database", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		log.WithError(err).Debug("Failed to set busy_timeout")
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		log.WithError(err).Debug("Failed to set journal_mode=WAL")
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		log.WithError(err).Debug("Failed to set synchronous=NORMAL")
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, storeErr("apply schema", err)
	}

	log.Infof("Opened SQLite store at %s", path)
	return &SQLiteStore{
		db:      db,
		indexer: indexer,
		log:     log,
		changes: pubsub.NewBroker[change](),
		done:    make(chan struct{}),
	}, nil
}

func (s *SQLiteStore) ReplacePartners(ctx context.Context, items []model.Partner) error {
	rows := make([]row, 0, len(items))
	for _, p := range items {
		rows = append(rows, row{p.StoreID, p.Name, p.Status, p.Capacity, p.Latitude, p.Longitude})
	}
	if err := s.replace(ctx, "partners", rows); err != nil {
		return storeErr("replace partners", err)
	}
	s.changes.Publish(change{})
	return nil
}

func (s *SQLiteStore) ReplaceDeliveryStations(ctx context.Context, items []model.DeliveryStation) error {
	rows := make([]row, 0, len(items))
	for _, d := range items {
		rows = append(rows, row{d.StoreID, d.Name, d.Status, d.Capacity, d.Latitude, d.Longitude})
	}
	if err := s.replace(ctx, "delivery_stations", rows); err != nil {
		return storeErr("replace delivery stations", err)
	}
	return nil
}

// row is the column set shared by both tables.
type row struct {
	storeID   string
	name      string
	status    string
	capacity  int
	latitude  float64
	longitude float64
}

func (s *SQLiteStore) replace(ctx context.Context, table string, rows []row) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if afterDeleteHook != nil {
		afterDeleteHook()
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT OR REPLACE INTO "+table+
		" (store_id, position, name, status, capacity, latitude, longitude, h3_cell) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range rows {
		var cell sql.NullInt64
		if c, err := s.indexer.Cell(r.latitude, r.longitude); err == nil {
			cell = sql.NullInt64{Int64: c, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, r.storeID, i, r.name, r.status, r.capacity, r.latitude, r.longitude, cell); err != nil {
			return fmt.Errorf("insert %s: %w", r.storeID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.log.Debugf("Replaced %s with %d rows", table, len(rows))
	return nil
}

func (s *SQLiteStore) Partners(ctx context.Context) ([]model.Partner, error) {
	out, err := s.queryPartners(ctx, "SELECT "+partnerColumns+" FROM partners ORDER BY position")
	if err != nil {
		return nil, storeErr("read partners", err)
	}
	return out, nil
}

func (s *SQLiteStore) PartnerByID(ctx context.Context, id string) (model.Partner, error) {
	var p model.Partner
	err := s.db.QueryRowContext(ctx, "SELECT "+partnerColumns+" FROM partners WHERE store_id = ?", id).
		Scan(&p.StoreID, &p.Name, &p.Status, &p.Capacity, &p.Latitude, &p.Longitude)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Partner{}, fmt.Errorf("partner %q: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.Partner{}, storeErr("read partner", err)
	}
	return p, nil
}

func (s *SQLiteStore) PartnersByStatus(ctx context.Context, status string) ([]model.Partner, error) {
	out, err := s.queryPartners(ctx, "SELECT "+partnerColumns+" FROM partners WHERE status = ? ORDER BY position", status)
	if err != nil {
		return nil, storeErr("filter partners", err)
	}
	return out, nil
}

func (s *SQLiteStore) PartnersInCells(ctx context.Context, cells []int64) ([]model.Partner, error) {
	if len(cells) == 0 {
		return []model.Partner{}, nil
	}
	args := make([]any, 0, len(cells))
	for _, c := range cells {
		args = append(args, c)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(cells)), ",")
	query := "SELECT " + partnerColumns + " FROM partners WHERE h3_cell IN (" + placeholders + ") ORDER BY position"
	out, err := s.queryPartners(ctx, query, args...)
	if err != nil {
		return nil, storeErr("partners in cells", err)
	}
	return out, nil
}

func (s *SQLiteStore) queryPartners(ctx context.Context, query string, args ...any) ([]model.Partner, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Partner{}
	for rows.Next() {
		var p model.Partner
		if err := rows.Scan(&p.StoreID, &p.Name, &p.Status, &p.Capacity, &p.Latitude, &p.Longitude); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeliveryStations(ctx context.Context) ([]model.DeliveryStation, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+partnerColumns+" FROM delivery_stations ORDER BY position")
	if err != nil {
		return nil, storeErr("read delivery stations", err)
	}
	defer rows.Close()

	out := []model.DeliveryStation{}
	for rows.Next() {
		var d model.DeliveryStation
		if err := rows.Scan(&d.StoreID, &d.Name, &d.Status, &d.Capacity, &d.Latitude, &d.Longitude); err != nil {
			return nil, storeErr("read delivery stations", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("read delivery stations", err)
	}
	return out, nil
}

func (s *SQLiteStore) WatchPartners(ctx context.Context) (<-chan []model.Partner, error) {
	return watch(ctx, s.changes, s.done, s.Partners)
}

// Close ends every watch stream and closes the database.
func (s *SQLiteStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.changes.Close()
		err = s.db.Close()
	})
	return err
}
