package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fgferre/asteroids-roguefield/internal/config"
	"github.com/fgferre/asteroids-roguefield/internal/replay"
	"github.com/fgferre/asteroids-roguefield/internal/world"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("persist: not found")

// SnapshotMeta describes a stored snapshot without decoding it.
type SnapshotMeta struct {
	Tick      uint64
	Wave      int
	Live      int
	CreatedAt time.Time
}

// Store keeps session snapshots and replay journals.
type Store interface {
	SaveSnapshot(ctx context.Context, sessionID string, snap *world.Snapshot) error
	LatestSnapshot(ctx context.Context, sessionID string) (*world.Snapshot, error)
	ListSnapshots(ctx context.Context, sessionID string) ([]SnapshotMeta, error)
	SaveJournal(ctx context.Context, sessionID string, j *replay.Journal, digest uint64) error
	LoadJournal(ctx context.Context, sessionID string) (*replay.Journal, uint64, error)
	Close() error
}

// Open connects the store selected by cfg.Driver. Postgres schemas are
// migrated with goose; SQLite tables are auto-migrated by gorm.
func Open(ctx context.Context, cfg config.StoreConfig, log *zap.Logger) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		db, err := NewDB(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		if err := RunMigrations(ctx, db.Pool, log.Named("migrate")); err != nil {
			db.Close()
			return nil, err
		}
		return NewSnapshotRepo(db, cfg.Keep), nil
	case "sqlite":
		return OpenLocal(cfg.SQLitePath, cfg.Keep, log)
	case "none", "":
		log.Info("persistence disabled")
		return nopStore{}, nil
	}
	return nil, fmt.Errorf("persist: unknown driver %q", cfg.Driver)
}

type nopStore struct{}

func (nopStore) SaveSnapshot(context.Context, string, *world.Snapshot) error { return nil }
func (nopStore) LatestSnapshot(context.Context, string) (*world.Snapshot, error) {
	return nil, ErrNotFound
}
func (nopStore) ListSnapshots(context.Context, string) ([]SnapshotMeta, error) { return nil, nil }
func (nopStore) SaveJournal(context.Context, string, *replay.Journal, uint64) error {
	return nil
}
func (nopStore) LoadJournal(context.Context, string) (*replay.Journal, uint64, error) {
	return nil, 0, ErrNotFound
}
func (nopStore) Close() error { return nil }

func waveOf(snap *world.Snapshot) int {
	if snap.Wave == nil {
		return 0
	}
	return snap.Wave.Number
}
