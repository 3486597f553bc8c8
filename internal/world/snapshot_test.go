package world

import (
	"testing"

	"github.com/fgferre/asteroids-roguefield/internal/component"
	"github.com/fgferre/asteroids-roguefield/internal/rng"
	"github.com/fgferre/asteroids-roguefield/internal/wave"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestSnapshotRoundTrip(t *testing.T) {
	a, _ := newTestHub(t, testConfig())
	drive(t, a, 0, 300)
	require.Positive(t, a.Live())

	blob, err := msgpack.Marshal(a.Export())
	require.NoError(t, err)
	var snap Snapshot
	require.NoError(t, msgpack.Unmarshal(blob, &snap))

	cfg := testConfig()
	cfg.Session.Seed = 99 // the snapshot's root seed wins
	b, _ := newTestHub(t, cfg)
	drive(t, b, 0, 40)
	require.NoError(t, b.Import(&snap))
	assert.Equal(t, a.Export(), b.Export())

	recA, recB := record(a), record(b)
	drive(t, a, 300, 600)
	drive(t, b, 300, 600)
	require.NotEmpty(t, *recA)
	assert.Equal(t, *recA, *recB)
	assert.Equal(t, a.Export(), b.Export())
}

func TestExportIsDeepCopy(t *testing.T) {
	h, _ := newTestHub(t, testConfig())
	drive(t, h, 0, 200)
	snap := h.Export()
	wantWave := *snap.Wave
	wantSpawns := snap.Stats.VariantSpawns["common"]
	wantEntities := append([]EntityDescriptor(nil), snap.Entities...)

	drive(t, h, 200, 200)
	assert.Equal(t, wantWave, *snap.Wave)
	assert.Equal(t, wantSpawns, snap.Stats.VariantSpawns["common"])
	assert.Equal(t, wantEntities, snap.Entities)
}

func TestExportOmitsDestroyed(t *testing.T) {
	h, _ := newTestHub(t, testConfig())
	a := place(h, component.SizeSmall, h.variants.Common(), component.Vec2{X: 10, Y: 10})
	b := place(h, component.SizeSmall, h.variants.Common(), component.Vec2{X: 20, Y: 20})
	h.destroy(a, "direct", 0)

	snap := h.Export()
	require.Len(t, snap.Entities, 1)
	assert.Equal(t, b.ID, snap.Entities[0].ID)
}

func TestImportRestoresFallback(t *testing.T) {
	a, _ := newTestHub(t, testConfig())
	drive(t, a, 0, 100)
	a.orch.(*wave.Director).Sync(wave.State{Number: 9, Phase: wave.PhaseBreak})
	drive(t, a, 100, 5)
	require.True(t, a.FellBack())

	b, _ := newTestHub(t, testConfig())
	require.NoError(t, b.Import(a.Export()))
	assert.True(t, b.FellBack())
	assert.Equal(t, "inline", b.Orchestrator())
}

func TestImportMalformedResets(t *testing.T) {
	valid := func(t *testing.T) *Snapshot {
		h, _ := newTestHub(t, testConfig())
		drive(t, h, 0, 200)
		snap := h.Export()
		require.NotEmpty(t, snap.Entities)
		return snap
	}
	tests := []struct {
		name   string
		mutate func(*Snapshot) *Snapshot
	}{
		{"nil", func(*Snapshot) *Snapshot { return nil }},
		{"version", func(s *Snapshot) *Snapshot { s.Version = 99; return s }},
		{"missing wave", func(s *Snapshot) *Snapshot { s.Wave = nil; return s }},
		{"missing stats", func(s *Snapshot) *Snapshot { s.Stats = nil; return s }},
		{"missing scopes", func(s *Snapshot) *Snapshot { s.Scopes = nil; return s }},
		{"partial scopes", func(s *Snapshot) *Snapshot {
			s.Scopes = []rng.Captured{{Name: rng.ScopeSpawn, Seed: 1}}
			return s
		}},
		{"active wave without quota", func(s *Snapshot) *Snapshot {
			s.Wave.Phase, s.Wave.Total = wave.PhaseActive, 0
			return s
		}},
		{"zero identity", func(s *Snapshot) *Snapshot { s.Entities[0].ID = 0; return s }},
		{"identity past next", func(s *Snapshot) *Snapshot { s.Entities[0].ID = s.NextID; return s }},
		{"duplicate identity", func(s *Snapshot) *Snapshot {
			s.Entities = append(s.Entities, s.Entities[0])
			return s
		}},
		{"invalid size", func(s *Snapshot) *Snapshot { s.Entities[0].Size = 7; return s }},
		{"missing variant", func(s *Snapshot) *Snapshot { s.Entities[0].Variant = ""; return s }},
		{"dead entity", func(s *Snapshot) *Snapshot { s.Entities[0].HP = 0; return s }},
		{"unknown orchestrator", func(s *Snapshot) *Snapshot { s.Orchestrator = "mystery"; return s }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := tt.mutate(valid(t))
			h, _ := newTestHub(t, testConfig())
			drive(t, h, 0, 150)
			place(h, component.SizeSmall, h.variants.Common(), component.Vec2{X: 10, Y: 10})
			require.Positive(t, h.Live())

			err := h.Import(snap)
			assert.ErrorIs(t, err, ErrMalformedSnapshot)
			assert.Zero(t, h.Live())
			assert.Equal(t, wave.State{}, h.Wave())
			assert.Zero(t, h.Stats().Ticks)
			assert.Equal(t, h.cfg.Session.Seed, h.Seed())

			// The reset hub runs exactly like a fresh one.
			fresh, _ := newTestHub(t, testConfig())
			recA, recB := record(h), record(fresh)
			drive(t, h, 0, 200)
			drive(t, fresh, 0, 200)
			assert.Equal(t, *recB, *recA)
		})
	}
}
