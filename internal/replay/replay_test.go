package replay

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/fgferre/asteroids-roguefield/internal/config"
	"github.com/fgferre/asteroids-roguefield/internal/data"
	"github.com/fgferre/asteroids-roguefield/internal/variant"
	"github.com/fgferre/asteroids-roguefield/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const dt = 50 * time.Millisecond

func testDeps(t *testing.T) world.Deps {
	t.Helper()
	cfg := config.Defaults()
	cfg.Wave.BreakDuration = 500 * time.Millisecond
	tbl, err := data.LoadVariantTable(filepath.Join("..", "..", "data", "yaml", "variants.yaml"))
	require.NoError(t, err)
	return world.Deps{
		Config:   cfg,
		Log:      zap.NewNop(),
		Variants: variant.NewEngine(tbl, zap.NewNop()),
		Arena:    world.NewStaticArena(cfg.Arena),
	}
}

// play records n ticks of a deterministic shooter.
func play(t *testing.T, deps world.Deps, n int, switchAt int) *Recorder {
	t.Helper()
	h, err := world.New(deps)
	require.NoError(t, err)
	t.Cleanup(h.Close)
	rec, err := NewRecorder(h)
	require.NoError(t, err)

	player := deps.Arena.PlayerPosition()
	for i := 0; i < n; i++ {
		if i == switchAt {
			require.NoError(t, rec.SetOrchestrator("director"))
		}
		if i%3 == 0 {
			var best *world.Entity
			bestD := math.Inf(1)
			for _, e := range h.Entities() {
				if d := e.Pos().Dist(player); d < bestD {
					best, bestD = e, d
				}
			}
			if best != nil {
				rec.Hit(best.ID, 30)
			}
		}
		if i%11 == 0 {
			if es := h.Entities(); len(es) > 0 {
				rec.Kill(es[len(es)-1].ID)
			}
		}
		require.NoError(t, rec.Tick(dt))
	}
	return rec
}

func TestReplayReproducesSession(t *testing.T) {
	rec := play(t, testDeps(t), 800, 400)
	j := rec.Journal()
	require.Len(t, j.Frames, 800)
	assert.Equal(t, "director", j.Frames[400].Orchestrator)

	res, err := Verify(context.Background(), testDeps(t), j, rec.Sum64())
	require.NoError(t, err)
	assert.Positive(t, res.Events)
	assert.Equal(t, uint64(800), res.Ticks)
	assert.GreaterOrEqual(t, res.Wave, 2)
}

func TestReplayDetectsTamperedJournal(t *testing.T) {
	rec := play(t, testDeps(t), 300, -1)
	j := rec.Journal()

	tampered := rec.Journal()
	for i := range tampered.Frames {
		tampered.Frames[i].Hits = nil
	}
	_, err := Verify(context.Background(), testDeps(t), tampered, rec.Sum64())
	assert.ErrorIs(t, err, ErrDiverged)

	reseeded := rec.Journal()
	reseeded.Seed++
	_, err = Verify(context.Background(), testDeps(t), reseeded, rec.Sum64())
	assert.ErrorIs(t, err, ErrDiverged)

	// The original is untouched by edits to copies.
	_, err = Verify(context.Background(), testDeps(t), j, rec.Sum64())
	assert.NoError(t, err)
}

func TestRecorderRequiresFreshHub(t *testing.T) {
	h, err := world.New(testDeps(t))
	require.NoError(t, err)
	defer h.Close()
	require.NoError(t, h.Tick(dt))
	_, err = NewRecorder(h)
	assert.ErrorIs(t, err, ErrNotFresh)
}

func TestPausedTicksAreNotJournaled(t *testing.T) {
	h, err := world.New(testDeps(t))
	require.NoError(t, err)
	defer h.Close()
	rec, err := NewRecorder(h)
	require.NoError(t, err)

	require.NoError(t, rec.Tick(dt))
	h.Pause()
	require.NoError(t, rec.Tick(dt))
	h.Resume()
	require.NoError(t, rec.Tick(dt))
	assert.Len(t, rec.Journal().Frames, 2)
}

func TestRunRejectsBadJournals(t *testing.T) {
	ctx := context.Background()
	_, err := Run(ctx, testDeps(t), nil)
	assert.Error(t, err)
	_, err = Run(ctx, testDeps(t), &Journal{Version: 99, Orchestrator: "inline"})
	assert.Error(t, err)
	_, err = Run(ctx, testDeps(t), &Journal{Version: JournalVersion, Orchestrator: "inline", Frames: []Frame{{Dt: -dt}}})
	assert.Error(t, err)
	_, err = Run(ctx, testDeps(t), &Journal{Version: JournalVersion, Orchestrator: "scripted"})
	assert.Error(t, err)
}

func TestRunHonoursCancellation(t *testing.T) {
	rec := play(t, testDeps(t), 50, -1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, testDeps(t), rec.Journal())
	assert.ErrorIs(t, err, context.Canceled)
}
