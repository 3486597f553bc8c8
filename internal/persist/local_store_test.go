package persist

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fgferre/asteroids-roguefield/internal/config"
	"github.com/fgferre/asteroids-roguefield/internal/replay"
	"github.com/fgferre/asteroids-roguefield/internal/rng"
	"github.com/fgferre/asteroids-roguefield/internal/wave"
	"github.com/fgferre/asteroids-roguefield/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestStore(t *testing.T, keep int) *LocalStore {
	t.Helper()
	s, err := OpenLocal(filepath.Join(t.TempDir(), "wavesim.db"), keep, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func snapshotAt(tick uint64, waveNo int) *world.Snapshot {
	return &world.Snapshot{
		Version:      world.SnapshotVersion,
		Tick:         tick,
		RootSeed:     2025,
		Orchestrator: "inline",
		NextID:       3,
		Wave:         &wave.State{Number: waveNo, Phase: wave.PhaseActive, Total: 4},
		Stats:        &world.Stats{Ticks: tick, VariantSpawns: map[string]int{"common": 2}},
		Scopes:       []rng.Captured{{Name: rng.ScopeSpawn, Seed: 11, Sequence: 1}},
		Entities: []world.EntityDescriptor{
			{ID: 1, Variant: "common", HP: 10, MaxHP: 10, Radius: 12, Seed: 99},
			{ID: 2, Parent: 1, Variant: "gold", HP: 3, MaxHP: 5, Radius: 6, Generation: 1, Seed: 1 << 63},
		},
	}
}

func TestLocalStoreSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, 0)

	_, err := s.LatestSnapshot(ctx, "alpha")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SaveSnapshot(ctx, "alpha", snapshotAt(100, 1)))
	require.NoError(t, s.SaveSnapshot(ctx, "alpha", snapshotAt(300, 2)))
	require.NoError(t, s.SaveSnapshot(ctx, "beta", snapshotAt(900, 5)))

	got, err := s.LatestSnapshot(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, snapshotAt(300, 2), got)

	metas, err := s.ListSnapshots(ctx, "alpha")
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, uint64(300), metas[0].Tick)
	assert.Equal(t, 2, metas[0].Wave)
	assert.Equal(t, 2, metas[0].Live)
	assert.Equal(t, uint64(100), metas[1].Tick)
}

func TestLocalStorePrunesToKeep(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, 2)
	for i := 1; i <= 5; i++ {
		require.NoError(t, s.SaveSnapshot(ctx, "alpha", snapshotAt(uint64(i*100), i)))
	}
	require.NoError(t, s.SaveSnapshot(ctx, "beta", snapshotAt(50, 1)))

	metas, err := s.ListSnapshots(ctx, "alpha")
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, uint64(500), metas[0].Tick)
	assert.Equal(t, uint64(400), metas[1].Tick)

	metas, err = s.ListSnapshots(ctx, "beta")
	require.NoError(t, err)
	assert.Len(t, metas, 1)
}

func TestLocalStoreJournal(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, 0)

	_, _, err := s.LoadJournal(ctx, "alpha")
	assert.ErrorIs(t, err, ErrNotFound)

	j := &replay.Journal{
		Version:      replay.JournalVersion,
		Seed:         1 << 63,
		Orchestrator: "director",
		Frames: []replay.Frame{
			{Dt: 16 * time.Millisecond},
			{Dt: 16 * time.Millisecond, Hits: []world.Hit{{Target: 4, Amount: 30}, {Target: 2, Kill: true}}},
			{Dt: 16 * time.Millisecond, Orchestrator: "inline"},
		},
	}
	digest := uint64(0xfeedface_deadbeef)
	require.NoError(t, s.SaveJournal(ctx, "alpha", j, digest))

	got, gotDigest, err := s.LoadJournal(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, j, got)
	assert.Equal(t, digest, gotDigest)

	// Saving again replaces the journal.
	j.Frames = j.Frames[:1]
	require.NoError(t, s.SaveJournal(ctx, "alpha", j, 7))
	got, gotDigest, err = s.LoadJournal(ctx, "alpha")
	require.NoError(t, err)
	assert.Len(t, got.Frames, 1)
	assert.Equal(t, uint64(7), gotDigest)
}

func TestInMemoryLocalStore(t *testing.T) {
	ctx := context.Background()
	s, err := OpenLocal("", 0, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.SaveSnapshot(ctx, "mem", snapshotAt(10, 1)))
	got, err := s.LatestSnapshot(ctx, "mem")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), got.Tick)
}

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StoreConfig{Driver: "none"}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.SaveSnapshot(ctx, "x", snapshotAt(1, 1)))
	_, err = s.LatestSnapshot(ctx, "x")
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = s.LoadJournal(ctx, "x")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, s.Close())

	s, err = Open(ctx, config.StoreConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "s.db")}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, config.StoreConfig{Driver: "redis"}, zap.NewNop())
	assert.Error(t, err)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := DecodeSnapshot([]byte{0xc1})
	assert.Error(t, err)
	_, err = DecodeJournal([]byte{0xc1})
	assert.Error(t, err)
}
