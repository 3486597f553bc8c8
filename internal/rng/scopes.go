package rng

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Well-known scope names. Each decision domain draws only from its own scope;
// mixing them couples the spawn sequence to unrelated activity.
const (
	ScopeSpawn     = "spawn"     // orchestrator cadence, size and placement
	ScopeVariants  = "variants"  // top-level variant rolls
	ScopeFragments = "fragments" // fragment variants and scatter
	ScopeEntities  = "entities"  // private per-entity forks
)

// DefaultScopes is the scope set a simulation session declares up front.
var DefaultScopes = []string{ScopeSpawn, ScopeVariants, ScopeFragments, ScopeEntities}

type scope struct {
	src *Source
	seq uint64 // sub-fork sequence
}

// Captured is the serialisable state of one scope.
type Captured struct {
	Name     string `json:"name" msgpack:"name"`
	Seed     uint64 `json:"seed" msgpack:"seed"`
	Sequence uint64 `json:"sequence" msgpack:"sequence"`
}

// Scopes is the random scope table: named streams forked from one root seed.
type Scopes struct {
	rootSeed uint64
	root     *Source
	scopes   map[string]*scope
	declared []string
	log      *zap.Logger

	undeclaredLogged map[string]bool
	fallbackLogged   bool
	fallbacks        int64
}

// NewScopes forks every declared scope from a root seeded with rootSeed.
func NewScopes(rootSeed uint64, log *zap.Logger, names ...string) *Scopes {
	if log == nil {
		log = zap.NewNop()
	}
	if len(names) == 0 {
		names = DefaultScopes
	}
	s := &Scopes{
		declared:         append([]string(nil), names...),
		log:              log,
		undeclaredLogged: make(map[string]bool),
	}
	s.Reset(rootSeed)
	return s
}

// RootSeed returns the seed the table was last reset with.
func (s *Scopes) RootSeed() uint64 { return s.rootSeed }

// Reset rebuilds every declared scope from a fresh root.
func (s *Scopes) Reset(rootSeed uint64) {
	s.rootSeed = rootSeed
	s.root = New(rootSeed)
	s.fallbacks = 0
	s.scopes = make(map[string]*scope, len(s.declared))
	for _, name := range s.declared {
		s.scopes[name] = s.fork(name)
	}
}

func (s *Scopes) fork(name string) *scope {
	if !s.root.Seeded() && !s.fallbackLogged {
		s.fallbackLogged = true
		s.log.Warn("rng scope forked from unseeded root, using fallback",
			zap.String("scope", name), zap.String("fallback", FallbackLabel))
	}
	if !s.root.Seeded() {
		s.fallbacks++
	}
	return &scope{src: s.root.Fork(name)}
}

// Get returns the stream for name. Undeclared names are forked lazily and
// logged once; they are not part of snapshots.
func (s *Scopes) Get(name string) *Source {
	if sc, ok := s.scopes[name]; ok {
		return sc.src
	}
	if !s.undeclaredLogged[name] {
		s.undeclaredLogged[name] = true
		s.log.Warn("rng scope not declared", zap.String("scope", name))
	}
	sc := s.fork(name)
	s.scopes[name] = sc
	return sc.src
}

// Sub returns the next sequenced child of a scope. The scope's own stream is
// not advanced; the sequence counter keeps children distinct.
func (s *Scopes) Sub(name string) *Source {
	s.Get(name)
	sc := s.scopes[name]
	sc.seq++
	return sc.src.Fork(fmt.Sprintf("%s#%d", name, sc.seq))
}

// FallbackForks is the number of forks this table served from the fallback
// root since its last Reset. Non-zero means the session's streams are no
// longer tied to its seed.
func (s *Scopes) FallbackForks() int64 { return s.fallbacks }

// Sequence returns the sub-fork counter of a scope.
func (s *Scopes) Sequence(name string) uint64 {
	if sc, ok := s.scopes[name]; ok {
		return sc.seq
	}
	return 0
}

// Capture returns the current state of every declared scope, sorted by name.
func (s *Scopes) Capture() []Captured {
	out := make([]Captured, 0, len(s.declared))
	for _, name := range s.declared {
		sc := s.scopes[name]
		out = append(out, Captured{Name: name, Seed: sc.src.Seed(), Sequence: sc.seq})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Restore reseeds scopes from captured state. Every declared scope must be
// present; the table is left untouched on error.
func (s *Scopes) Restore(rootSeed uint64, captured []Captured) error {
	byName := make(map[string]Captured, len(captured))
	for _, c := range captured {
		byName[c.Name] = c
	}
	for _, name := range s.declared {
		if _, ok := byName[name]; !ok {
			return fmt.Errorf("scope %q missing from capture", name)
		}
	}
	s.rootSeed = rootSeed
	s.root = New(rootSeed)
	s.fallbacks = 0
	for _, name := range s.declared {
		c := byName[name]
		sc := s.fork(name)
		s.scopes[name] = sc
		sc.src.Reset(c.Seed)
		sc.seq = c.Sequence
	}
	return nil
}
