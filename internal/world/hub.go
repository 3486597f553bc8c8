// Package world is the simulation hub: it owns the live entity collection,
// the random scope table, the wave state and the entity pool, and drives the
// per-tick systems. It is the only package other code talks to directly.
package world

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/fgferre/asteroids-roguefield/internal/component"
	"github.com/fgferre/asteroids-roguefield/internal/config"
	"github.com/fgferre/asteroids-roguefield/internal/core/ecs"
	"github.com/fgferre/asteroids-roguefield/internal/core/event"
	"github.com/fgferre/asteroids-roguefield/internal/core/system"
	"github.com/fgferre/asteroids-roguefield/internal/rng"
	"github.com/fgferre/asteroids-roguefield/internal/variant"
	"github.com/fgferre/asteroids-roguefield/internal/wave"
	"go.uber.org/zap"
)

var (
	// ErrMalformedSnapshot is returned by Import when the snapshot cannot be
	// restored. The hub has been reset when it is returned.
	ErrMalformedSnapshot = errors.New("world: malformed snapshot")
	// ErrClosed is returned by Tick after Close.
	ErrClosed = errors.New("world: hub closed")
)

const (
	hitSpinKick   = 0.35 // max angular velocity change per hit, rad/s
	scatterJitter = 0.3  // max fragment heading jitter, rad
)

// Deps is the dependency bundle for New.
type Deps struct {
	Config   *config.Config
	Log      *zap.Logger
	Variants *variant.Engine
	Arena    Arena
	Physics  Physics    // nil: a Grid sized by arena.cell_size
	Bus      *event.Bus // nil: a private bus
	// Rewards resolves the reward collaborator. It is called again on
	// every destruction until it returns non-nil, so a collaborator may
	// attach after the hub is built.
	Rewards func() Reward
}

// Hit is a queued damage command, applied at the start of the next tick.
type Hit struct {
	Target ecs.PoolID `json:"target" msgpack:"target"`
	Amount float64    `json:"amount,omitempty" msgpack:"amount,omitempty"`
	Kill   bool       `json:"kill,omitempty" msgpack:"kill,omitempty"` // destroy regardless of HP
}

// Hub is the simulation hub. Single-goroutine access only (the tick loop).
type Hub struct {
	cfg      *config.Config
	log      *zap.Logger
	once     *onceLog
	variants *variant.Engine
	arena    Arena
	physics  Physics
	bus      *event.Bus

	rewardsFn func() Reward
	reward    Reward

	params   wave.Params
	orch     wave.Orchestrator
	fellBack bool

	seed   uint64
	scopes *rng.Scopes
	pool   *ecs.Pool[*Entity]
	ids    *ecs.IdentityAllocator
	live   *ecs.Arena[*Entity]
	index  *ecs.Index[Entity]
	runner *system.Runner

	wave  wave.State
	stats Stats
	hits  []Hit

	paused bool
	closed bool
}

// New builds a hub. Unusable dependencies fail here rather than at the
// first tick.
func New(deps Deps) (*Hub, error) {
	switch {
	case deps.Config == nil:
		return nil, errors.New("world: nil config")
	case deps.Log == nil:
		return nil, errors.New("world: nil logger")
	case deps.Variants == nil:
		return nil, errors.New("world: nil variant engine")
	case deps.Arena == nil:
		return nil, errors.New("world: nil arena")
	}
	cfg := deps.Config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	orch, err := newOrchestrator(cfg.Wave, cfg.Wave.Orchestrator)
	if err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}

	h := &Hub{
		cfg:       cfg,
		log:       deps.Log,
		once:      newOnceLog(deps.Log),
		variants:  deps.Variants,
		arena:     deps.Arena,
		physics:   deps.Physics,
		bus:       deps.Bus,
		rewardsFn: deps.Rewards,
		params:    wave.ParamsFrom(cfg.Wave),
		orch:      orch,
		seed:      cfg.Session.Seed,
		ids:       ecs.NewIdentityAllocator(),
		live:      ecs.NewArena(isDestroyed),
		index:     ecs.NewIndex[Entity](),
		runner:    system.NewRunner(),
		stats:     newStats(),
	}
	if h.physics == nil {
		h.physics = NewGrid(cfg.Arena.CellSize)
	}
	if h.bus == nil {
		h.bus = event.NewBus()
	}
	h.scopes = rng.NewScopes(h.seed, h.log.Named("rng"))
	h.pool = ecs.NewPool(newEntity, (*Entity).reset, cfg.Session.MaxLive, cfg.Session.MaxLive)
	h.pool.OnExhausted = func(live int) {
		h.log.Warn("entity pool exhausted, constructing outside the pool", zap.Int("live", live))
	}

	h.runner.Register(&inputSystem{h: h})
	h.runner.Register(&waveSystem{h: h})
	h.runner.Register(&motionSystem{h: h})
	h.runner.Register(&checkSystem{h: h})
	h.runner.Register(&outputSystem{h: h})
	h.runner.Register(&cleanupSystem{h: h})

	h.syncOrchestrator()
	return h, nil
}

func newOrchestrator(c config.WaveConfig, name string) (wave.Orchestrator, error) {
	p := wave.ParamsFrom(c)
	switch name {
	case "inline":
		return wave.NewInline(p), nil
	case "director":
		var weights []wave.SizeWeight
		if c.DirectorSizeWeights != nil {
			weights = wave.WeightsFrom(*c.DirectorSizeWeights)
		}
		return wave.NewDirector(p, weights), nil
	}
	return nil, fmt.Errorf("unknown orchestrator %q", name)
}

// Tick advances the simulation by dt. A paused hub ignores ticks.
func (h *Hub) Tick(dt time.Duration) error {
	if h.closed {
		return ErrClosed
	}
	if h.paused {
		return nil
	}
	h.runner.Tick(dt)
	h.stats.Ticks = h.runner.Ticks()
	return nil
}

// Queue schedules a hit for the next tick. Hits apply in queue order.
func (h *Hub) Queue(hit Hit) {
	if h.closed {
		return
	}
	h.hits = append(h.hits, hit)
}

// Hit queues amount damage on the entity with the given identity.
func (h *Hub) Hit(id ecs.PoolID, amount float64) {
	h.Queue(Hit{Target: id, Amount: amount})
}

// Kill queues a destruction of the entity regardless of its health.
func (h *Hub) Kill(id ecs.PoolID) {
	h.Queue(Hit{Target: id, Kill: true})
}

// Pause halts ticking. State is preserved.
func (h *Hub) Pause() { h.paused = true }

// Resume continues ticking after Pause.
func (h *Hub) Resume() { h.paused = false }

func (h *Hub) Paused() bool { return h.paused }

// Close releases every entity and pooled instance. The hub cannot be used
// afterwards.
func (h *Hub) Close() {
	if h.closed {
		return
	}
	h.releaseAll()
	h.pool.Clear()
	h.index.Clear()
	h.bus.Discard()
	h.hits = nil
	h.closed = true
}

// Reset restarts the session from the current root seed.
func (h *Hub) Reset() { h.ResetSeed(h.seed) }

// ResetSeed restarts the session from seed: every entity is released, the
// scope table is rebuilt and the wave machine returns to its initial phase.
// The configured orchestrator is restored even after a fallback.
func (h *Hub) ResetSeed(seed uint64) {
	if h.closed {
		return
	}
	h.releaseAll()
	h.ids.Restart(1)
	h.seed = seed
	h.scopes.Reset(seed)
	h.wave = wave.State{}
	h.stats = newStats()
	h.hits = h.hits[:0]
	h.bus.Discard()
	h.runner.SetTicks(0)
	h.once.reset()
	h.resetRewards()
	if h.fellBack {
		h.orch, _ = newOrchestrator(h.cfg.Wave, h.cfg.Wave.Orchestrator)
		h.fellBack = false
	}
	h.syncOrchestrator()
}

// SetOrchestrator switches the wave strategy at runtime. Both strategies
// draw identically, so switching does not change the decision stream.
func (h *Hub) SetOrchestrator(name string) error {
	orch, err := newOrchestrator(h.cfg.Wave, name)
	if err != nil {
		return err
	}
	h.orch = orch
	h.fellBack = false
	h.syncOrchestrator()
	return nil
}

// Orchestrator returns the name of the active wave strategy.
func (h *Hub) Orchestrator() string { return h.orch.Name() }

// FellBack reports whether the session has fallen back to the inline scheduler.
func (h *Hub) FellBack() bool { return h.fellBack }

func (h *Hub) Config() *config.Config { return h.cfg }
func (h *Hub) Bus() *event.Bus        { return h.bus }
func (h *Hub) Seed() uint64           { return h.seed }
func (h *Hub) Wave() wave.State       { return h.wave }

// Stats returns a copy of the session statistics.
func (h *Hub) Stats() Stats {
	s := h.stats.clone()
	s.Ticks = h.runner.Ticks()
	s.FallbackForks = h.scopes.FallbackForks()
	s.Pool = h.pool.Stats()
	return s
}

// Live returns the number of active, non-destroyed entities.
func (h *Hub) Live() int { return len(h.live.Active()) }

// Entities returns the active entities in spawn order.
func (h *Hub) Entities() []*Entity {
	return append([]*Entity(nil), h.live.Active()...)
}

// Entity looks up a live entity by pool identity.
func (h *Hub) Entity(id ecs.PoolID) (*Entity, bool) {
	e, ok := h.index.Get(id)
	if !ok || !e.Alive() {
		return nil, false
	}
	return e, true
}

func (h *Hub) syncOrchestrator() {
	if s, ok := h.orch.(wave.Syncer); ok {
		s.Sync(h.wave)
	}
}

func (h *Hub) fallback(err error) {
	from := h.orch.Name()
	h.log.Warn("orchestrator reported malformed state, falling back to inline scheduler",
		zap.String("from", from), zap.Int("wave", h.wave.Number), zap.Error(err))
	h.orch = wave.NewInline(h.params)
	h.fellBack = true
	h.stats.OrchestratorFallbacks++
	emit(h, event.OrchestratorFallback{From: from, Reason: err.Error()})
}

func (h *Hub) rewards() Reward {
	if h.reward == nil && h.rewardsFn != nil {
		h.reward = h.rewardsFn()
	}
	if h.reward == nil {
		h.once.Info("reward", "no reward collaborator attached, destruction rewards skipped")
	}
	return h.reward
}

// resetRewards clears an already resolved reward. An unresolved one has
// nothing to clear.
func (h *Hub) resetRewards() {
	if rr, ok := h.reward.(RewardResetter); ok {
		rr.ResetRewards()
	}
}

func emit[T any](h *Hub, ev T) {
	if !event.HasSubscribers[T](h.bus) {
		name := fmt.Sprintf("%T", ev)
		h.once.Info("nosub:"+name, "event has no subscribers", zap.String("event", name))
	}
	event.Emit(h.bus, ev)
}

// --- entity life cycle ---

// acquire takes an instance from the pool and claims an identity for it,
// preferring preferred when it is free.
func (h *Hub) acquire(preferred ecs.PoolID) *Entity {
	e, pooled := h.pool.Acquire()
	e.reset()
	e.ID = h.ids.Claim(preferred)
	e.pooled = pooled
	return e
}

// init sets up a freshly acquired entity. The private stream is forked from
// the entities scope and the initial spin drawn from it.
func (h *Hub) init(e *Entity, size component.Size, id variant.ID, kin component.Kinematics, parent ecs.PoolID, generation int) {
	stats := h.cfg.Entity.For(size)
	def := h.variants.Def(id)
	e.Parent = parent
	e.Size = size
	e.Variant = id
	e.Wave = h.wave.Number
	e.Generation = generation
	e.MaxHP = stats.Health * def.Health
	e.HP = e.MaxHP
	e.Radius = stats.Radius
	e.Kinematics = kin
	e.rand = h.scopes.Sub(rng.ScopeEntities)
	e.Kinematics.AngVel = e.rand.Range(-stats.MaxSpin, stats.MaxSpin)
}

// admit appends the entity to the live collection and registers it.
func (h *Hub) admit(e *Entity) {
	h.live.Add(e)
	h.index.Set(e.ID, e)
	h.physics.Register(e)
	h.stats.Spawned++
	h.stats.VariantSpawns[string(e.Variant)]++
	emit(h, event.EntitySpawned{
		EntityID:   e.ID,
		ParentID:   e.Parent,
		Position:   e.Pos(),
		Size:       e.Size,
		Variant:    string(e.Variant),
		Wave:       e.Wave,
		Generation: e.Generation,
	})
}

// release returns a tombstoned entity to the pool and frees its identity.
func (h *Hub) release(e *Entity) {
	h.index.Remove(e.ID)
	h.ids.Free(e.ID)
	h.pool.Release(e, e.pooled)
}

func (h *Hub) releaseAll() {
	h.live.Drain(func(e *Entity) {
		if !e.Destroyed {
			h.physics.Unregister(e)
		}
		h.release(e)
	})
}

func (h *Hub) bounds() component.Rect { return h.arena.Bounds() }

// spawn creates a top-level entity from an orchestrator order. The variant
// roll uses the variants scope only.
func (h *Hub) spawn(o wave.SpawnOrder) *Entity {
	id := h.variants.Decide(o.Size, variant.Context{Wave: h.wave.Number}, h.scopes.Get(rng.ScopeVariants))
	stats := h.cfg.Entity.For(o.Size)
	speed := (stats.MinSpeed + o.SpeedRoll*(stats.MaxSpeed-stats.MinSpeed)) * h.variants.Def(id).Speed
	e := h.acquire(0)
	h.init(e, o.Size, id, component.Kinematics{
		Pos: o.Pos,
		Vel: component.FromAngle(o.Heading, speed),
		Rot: o.Heading,
	}, 0, 0)
	h.admit(e)
	return e
}

func (h *Hub) damage(e *Entity, amount float64, cause string, depth int) {
	if !e.Alive() || amount <= 0 {
		return
	}
	e.HP -= amount
	e.Kinematics.AngVel += e.rand.Range(-hitSpinKick, hitSpinKick)
	if e.HP <= 0 {
		h.destroy(e, cause, depth)
	}
}

// destroy tombstones e, fragments it, updates wave accounting and notifies
// rewards and subscribers. Release happens in the cleanup phase.
func (h *Hub) destroy(e *Entity, cause string, depth int) {
	if !e.Alive() {
		return
	}
	e.Destroyed = true
	e.HP = 0
	h.live.MarkForRelease()
	h.physics.Unregister(e)
	h.stats.Destroyed++

	frags := h.fragment(e)
	h.stats.Fragments += len(frags)
	if h.wave.Phase == wave.PhaseActive {
		h.wave.Killed++
		h.wave.Total += len(frags)
		h.wave.Spawned += len(frags)
		if obs, ok := h.orch.(wave.Observer); ok {
			obs.Observe(wave.Feedback{Killed: 1, Fragments: len(frags)})
		}
	}

	if r := h.rewards(); r != nil {
		r.DropRewards(e, frags)
	}
	fragIDs := make([]ecs.PoolID, len(frags))
	for i, f := range frags {
		fragIDs[i] = f.ID
	}
	emit(h, event.EntityDestroyed{
		EntityID:  e.ID,
		Position:  e.Pos(),
		Size:      e.Size,
		Variant:   string(e.Variant),
		Wave:      e.Wave,
		Cause:     cause,
		Fragments: fragIDs,
	})
	for _, f := range frags {
		h.admit(f)
	}

	if h.variants.Def(e.Variant).Explodes {
		h.explode(e, depth)
	}
}

// fragment builds the fragments of a destroyed parent. Variants, headings and
// speeds all come from the fragments scope, in a fixed order.
func (h *Hub) fragment(parent *Entity) []*Entity {
	fc := h.cfg.Fragments
	size, ok := parent.Size.Smaller()
	if !fc.Enabled || !ok {
		return nil
	}
	count := fc.Count(parent.Size) + h.variants.Def(parent.Variant).Fragments
	if count <= 0 {
		return nil
	}
	src := h.scopes.Get(rng.ScopeFragments)
	ids := h.variants.DecideFragments(parent.Size, count, h.wave.Number, src)
	stats := h.cfg.Entity.For(size)
	base := src.Range(0, 2*math.Pi)
	out := make([]*Entity, 0, count)
	for i, id := range ids {
		angle := base + float64(i)*2*math.Pi/float64(count) + src.Range(-scatterJitter, scatterJitter)
		speed := fc.ScatterSpeed * src.Range(0.8, 1.2) * h.variants.Def(id).Speed
		e := h.acquire(0)
		h.init(e, size, id, component.Kinematics{
			Pos: h.bounds().Wrap(parent.Pos().Add(component.FromAngle(angle, stats.Radius))),
			Vel: parent.Kinematics.Vel.Scale(fc.Inherit).Add(component.FromAngle(angle, speed)),
			Rot: angle,
		}, parent.ID, parent.Generation+1)
		out = append(out, e)
	}
	return out
}

// explode applies area damage around a destroyed explosive entity. Chained
// explosions stop at entity.max_chain_depth.
func (h *Hub) explode(e *Entity, depth int) {
	c := h.cfg.Entity
	if c.ExplosionRadius <= 0 || c.ExplosionDamage <= 0 {
		return
	}
	if c.MaxChainDepth > 0 && depth >= c.MaxChainDepth {
		h.once.Info("chain-depth", "explosion chain depth reached", zap.Int("depth", depth))
		return
	}
	h.stats.Explosions++
	pos := e.Pos()
	for _, n := range h.physics.Nearby(pos, c.ExplosionRadius) {
		if n == e || n.Parent == e.ID {
			continue
		}
		h.damage(n, c.ExplosionDamage, event.CauseExplosion, depth+1)
	}
	if pos.Dist(h.arena.PlayerPosition()) <= c.ExplosionRadius {
		h.arena.ApplyDirectDamage(c.ExplosionDamage, event.CauseExplosion)
		h.stats.PlayerDamage += c.ExplosionDamage
	}
}
