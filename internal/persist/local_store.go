package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fgferre/asteroids-roguefield/internal/replay"
	"github.com/fgferre/asteroids-roguefield/internal/world"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type snapshotRecord struct {
	ID        uint64 `gorm:"primaryKey"`
	SessionID string `gorm:"not null;index:idx_session_snapshots_session_tick,priority:1"`
	Tick      int64  `gorm:"not null;index:idx_session_snapshots_session_tick,priority:2"`
	Wave      int    `gorm:"not null"`
	Live      int    `gorm:"not null"`
	Blob      []byte `gorm:"not null"`
	CreatedAt time.Time
}

func (snapshotRecord) TableName() string { return "session_snapshots" }

type journalRecord struct {
	SessionID string `gorm:"primaryKey"`
	Seed      int64  `gorm:"not null"`
	Frames    int    `gorm:"not null"`
	Digest    int64  `gorm:"not null"` // uint64 bits; sqlite rejects the high bit
	Blob      []byte `gorm:"not null"`
	CreatedAt time.Time
}

func (journalRecord) TableName() string { return "replay_journals" }

// LocalStore is the embedded SQLite store used when no Postgres is around.
type LocalStore struct {
	db   *gorm.DB
	keep int
	log  *zap.Logger
}

// OpenLocal opens (or creates) the SQLite file at path. An empty path keeps
// everything in memory.
func OpenLocal(path string, keep int, log *zap.Logger) (*LocalStore, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == "" {
		// Every pooled connection would get its own empty memory database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&snapshotRecord{}, &journalRecord{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	if path == "" {
		log.Info("using in-memory sqlite store")
	} else {
		log.Info("using local sqlite store", zap.String("path", path))
	}
	return &LocalStore{db: db, keep: keep, log: log}, nil
}

func (s *LocalStore) SaveSnapshot(ctx context.Context, sessionID string, snap *world.Snapshot) error {
	blob, err := EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	rec := snapshotRecord{
		SessionID: sessionID,
		Tick:      int64(snap.Tick),
		Wave:      waveOf(snap),
		Live:      len(snap.Entities),
		Blob:      blob,
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("snapshot insert: %w", err)
		}
		if s.keep <= 0 {
			return nil
		}
		newest := tx.Model(&snapshotRecord{}).
			Select("id").
			Where("session_id = ?", sessionID).
			Order("tick DESC, id DESC").
			Limit(s.keep)
		if err := tx.Where("session_id = ? AND id NOT IN (?)", sessionID, newest).
			Delete(&snapshotRecord{}).Error; err != nil {
			return fmt.Errorf("snapshot prune: %w", err)
		}
		return nil
	})
}

func (s *LocalStore) LatestSnapshot(ctx context.Context, sessionID string) (*world.Snapshot, error) {
	var rec snapshotRecord
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("tick DESC, id DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return DecodeSnapshot(rec.Blob)
}

func (s *LocalStore) ListSnapshots(ctx context.Context, sessionID string) ([]SnapshotMeta, error) {
	var recs []snapshotRecord
	if err := s.db.WithContext(ctx).
		Select("tick", "wave", "live", "created_at").
		Where("session_id = ?", sessionID).
		Order("tick DESC, id DESC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]SnapshotMeta, 0, len(recs))
	for _, r := range recs {
		out = append(out, SnapshotMeta{Tick: uint64(r.Tick), Wave: r.Wave, Live: r.Live, CreatedAt: r.CreatedAt})
	}
	return out, nil
}

// SaveJournal replaces the session's journal.
func (s *LocalStore) SaveJournal(ctx context.Context, sessionID string, j *replay.Journal, digest uint64) error {
	blob, err := EncodeJournal(j)
	if err != nil {
		return err
	}
	rec := journalRecord{
		SessionID: sessionID,
		Seed:      int64(j.Seed),
		Frames:    len(j.Frames),
		Digest:    int64(digest),
		Blob:      blob,
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return fmt.Errorf("journal save: %w", err)
	}
	return nil
}

func (s *LocalStore) LoadJournal(ctx context.Context, sessionID string) (*replay.Journal, uint64, error) {
	var rec journalRecord
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, err
	}
	j, err := DecodeJournal(rec.Blob)
	if err != nil {
		return nil, 0, err
	}
	return j, uint64(rec.Digest), nil
}

func (s *LocalStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var (
	_ Store = (*LocalStore)(nil)
	_ Store = (*SnapshotRepo)(nil)
	_ Store = nopStore{}
)
