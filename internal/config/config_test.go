package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fgferre/asteroids-roguefield/internal/component"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	require.NoError(t, Defaults().Validate())
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[session]
seed = 77
tick_rate = "20ms"

[wave]
orchestrator = "inline"
base_quota = 6

[wave.director_size_weights]
large = 30
medium = 40
small = 30
`), "inline")
	require.NoError(t, err)
	assert.Equal(t, uint64(77), cfg.Session.Seed)
	assert.Equal(t, 20*time.Millisecond, cfg.Session.TickRate)
	assert.Equal(t, "inline", cfg.Wave.Orchestrator)
	assert.Equal(t, 6, cfg.Wave.BaseQuota)
	assert.Equal(t, 1.3, cfg.Wave.Multiplier, "untouched keys keep defaults")
	require.NotNil(t, cfg.Wave.DirectorSizeWeights)
	assert.Equal(t, 40, cfg.Wave.DirectorSizeWeights.Medium)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown orchestrator", "[wave]\norchestrator = \"hybrid\""},
		{"zero quota", "[wave]\nbase_quota = 0"},
		{"negative multiplier", "[wave]\nmultiplier = -1.0"},
		{"cap below base", "[wave]\nbase_quota = 10\nmax_quota = 5"},
		{"bad jitter", "[wave]\ncadence_jitter_min = 0.9\ncadence_jitter_max = 0.2"},
		{"empty weights", "[wave.size_weights]\nlarge = 0\nmedium = 0\nsmall = 0"},
		{"bad size stats", "[entity.small]\nradius = 0.0"},
		{"unknown store", "[store]\ndriver = \"redis\""},
		{"negative keep", "[store]\nkeep = -1"},
		{"malformed toml", "[wave\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), tt.name)
			assert.Error(t, err)
		})
	}
}

func TestLoadShippedConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "wavesim.toml"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Fragments.Count(component.SizeLarge))
	assert.Equal(t, 0, cfg.Fragments.Count(component.SizeSmall))
	assert.Equal(t, 48.0, cfg.Entity.For(component.SizeLarge).Radius)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
	assert.False(t, os.IsExist(err))
}
