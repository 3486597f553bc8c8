package world

import (
	"maps"

	"github.com/fgferre/asteroids-roguefield/internal/core/ecs"
	"go.uber.org/zap"
)

// Stats are the session statistics. Everything except Pool and
// FallbackForks is carried in snapshots.
type Stats struct {
	Ticks                 uint64         `json:"ticks" msgpack:"ticks"`
	Spawned               int            `json:"spawned" msgpack:"spawned"`
	Destroyed             int            `json:"destroyed" msgpack:"destroyed"`
	Fragments             int            `json:"fragments" msgpack:"fragments"`
	WavesCleared          int            `json:"waves_cleared" msgpack:"waves_cleared"`
	WavesTimedOut         int            `json:"waves_timed_out" msgpack:"waves_timed_out"`
	Explosions            int            `json:"explosions" msgpack:"explosions"`
	PlayerDamage          float64        `json:"player_damage" msgpack:"player_damage"`
	VariantSpawns         map[string]int `json:"variant_spawns" msgpack:"variant_spawns"`
	OrchestratorFallbacks int            `json:"orchestrator_fallbacks" msgpack:"orchestrator_fallbacks"`
	ConsistencyWarnings   int            `json:"consistency_warnings" msgpack:"consistency_warnings"`

	FallbackForks int64         `json:"-" msgpack:"-"`
	Pool          ecs.PoolStats `json:"-" msgpack:"-"`
}

func newStats() Stats {
	return Stats{VariantSpawns: make(map[string]int)}
}

func (s Stats) clone() Stats {
	s.VariantSpawns = maps.Clone(s.VariantSpawns)
	if s.VariantSpawns == nil {
		s.VariantSpawns = make(map[string]int)
	}
	return s
}

// onceLog emits each keyed message at most once per session.
type onceLog struct {
	log  *zap.Logger
	seen map[string]bool
}

func newOnceLog(log *zap.Logger) *onceLog {
	return &onceLog{log: log, seen: make(map[string]bool)}
}

func (o *onceLog) first(key string) bool {
	if o.seen[key] {
		return false
	}
	o.seen[key] = true
	return true
}

func (o *onceLog) Warn(key, msg string, fields ...zap.Field) {
	if o.first(key) {
		o.log.Warn(msg, fields...)
	}
}

func (o *onceLog) Info(key, msg string, fields ...zap.Field) {
	if o.first(key) {
		o.log.Info(msg, fields...)
	}
}

func (o *onceLog) reset() { clear(o.seen) }
