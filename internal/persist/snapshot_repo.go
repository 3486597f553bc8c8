package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/fgferre/asteroids-roguefield/internal/replay"
	"github.com/fgferre/asteroids-roguefield/internal/world"
	"github.com/jackc/pgx/v5"
)

// SnapshotRepo is the Postgres store.
type SnapshotRepo struct {
	db   *DB
	keep int
}

func NewSnapshotRepo(db *DB, keep int) *SnapshotRepo {
	return &SnapshotRepo{db: db, keep: keep}
}

// SaveSnapshot inserts the snapshot and prunes the session down to the
// newest keep rows in the same transaction.
func (r *SnapshotRepo) SaveSnapshot(ctx context.Context, sessionID string, snap *world.Snapshot) error {
	blob, err := EncodeSnapshot(snap)
	if err != nil {
		return err
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("snapshot begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO session_snapshots (session_id, tick, wave, live, blob)
		 VALUES ($1, $2, $3, $4, $5)`,
		sessionID, int64(snap.Tick), waveOf(snap), len(snap.Entities), blob,
	); err != nil {
		return fmt.Errorf("snapshot insert: %w", err)
	}

	if r.keep > 0 {
		if _, err := tx.Exec(ctx,
			`DELETE FROM session_snapshots
			 WHERE session_id = $1 AND id NOT IN (
			     SELECT id FROM session_snapshots
			     WHERE session_id = $1
			     ORDER BY tick DESC, id DESC
			     LIMIT $2)`,
			sessionID, r.keep,
		); err != nil {
			return fmt.Errorf("snapshot prune: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *SnapshotRepo) LatestSnapshot(ctx context.Context, sessionID string) (*world.Snapshot, error) {
	var blob []byte
	err := r.db.Pool.QueryRow(ctx,
		`SELECT blob FROM session_snapshots
		 WHERE session_id = $1
		 ORDER BY tick DESC, id DESC
		 LIMIT 1`, sessionID,
	).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return DecodeSnapshot(blob)
}

func (r *SnapshotRepo) ListSnapshots(ctx context.Context, sessionID string) ([]SnapshotMeta, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT tick, wave, live, created_at FROM session_snapshots
		 WHERE session_id = $1
		 ORDER BY tick DESC, id DESC`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SnapshotMeta
	for rows.Next() {
		var m SnapshotMeta
		var tick int64
		if err := rows.Scan(&tick, &m.Wave, &m.Live, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Tick = uint64(tick)
		result = append(result, m)
	}
	return result, rows.Err()
}

// SaveJournal replaces the session's journal.
func (r *SnapshotRepo) SaveJournal(ctx context.Context, sessionID string, j *replay.Journal, digest uint64) error {
	blob, err := EncodeJournal(j)
	if err != nil {
		return err
	}
	_, err = r.db.Pool.Exec(ctx,
		`INSERT INTO replay_journals (session_id, seed, frames, digest, blob)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (session_id) DO UPDATE SET
		     seed = EXCLUDED.seed, frames = EXCLUDED.frames,
		     digest = EXCLUDED.digest, blob = EXCLUDED.blob, created_at = NOW()`,
		sessionID, int64(j.Seed), len(j.Frames), int64(digest), blob,
	)
	if err != nil {
		return fmt.Errorf("journal upsert: %w", err)
	}
	return nil
}

func (r *SnapshotRepo) LoadJournal(ctx context.Context, sessionID string) (*replay.Journal, uint64, error) {
	var blob []byte
	var digest int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT digest, blob FROM replay_journals WHERE session_id = $1`, sessionID,
	).Scan(&digest, &blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, err
	}
	j, err := DecodeJournal(blob)
	if err != nil {
		return nil, 0, err
	}
	return j, uint64(digest), nil
}

func (r *SnapshotRepo) Close() error {
	r.db.Close()
	return nil
}
