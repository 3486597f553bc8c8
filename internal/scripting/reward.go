package scripting

import (
	"maps"

	"github.com/fgferre/asteroids-roguefield/internal/world"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Ledger accumulates what the reward scripts paid out during a session.
type Ledger struct {
	Score   int            `json:"score"`
	Credits int            `json:"credits"`
	Waves   int            `json:"waves"`
	Kills   map[string]int `json:"kills"` // per variant
}

func newLedger() Ledger {
	return Ledger{Kills: make(map[string]int)}
}

// Ledger returns a copy of the accumulated rewards.
func (e *Engine) Ledger() Ledger {
	l := e.ledger
	l.Kills = maps.Clone(e.ledger.Kills)
	return l
}

// ResetRewards clears the ledger. The hub calls it on reset and import.
func (e *Engine) ResetRewards() {
	e.ledger = newLedger()
}

// DropRewards calls the Lua drop_rewards function once per destruction.
// The script receives a context table and returns {score=, credits=}.
func (e *Engine) DropRewards(destroyed *world.Entity, fragments []*world.Entity) {
	e.ledger.Kills[string(destroyed.Variant)]++

	fn := e.lookup("drop_rewards")
	if fn == nil {
		return
	}

	t := e.vm.NewTable()
	t.RawSetString("size", lua.LString(destroyed.Size.String()))
	t.RawSetString("variant", lua.LString(string(destroyed.Variant)))
	t.RawSetString("wave", lua.LNumber(destroyed.Wave))
	t.RawSetString("generation", lua.LNumber(destroyed.Generation))
	t.RawSetString("max_hp", lua.LNumber(destroyed.MaxHP))
	t.RawSetString("fragments", lua.LNumber(len(fragments)))

	frags := e.vm.NewTable()
	for _, f := range fragments {
		frags.Append(lua.LString(string(f.Variant)))
	}
	t.RawSetString("fragment_variants", frags)

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.errorOnce("call:drop_rewards", "lua drop_rewards error", zap.Error(err))
		return
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		e.errorOnce("ret:drop_rewards", "lua drop_rewards returned non-table")
		return
	}
	e.ledger.Score += lInt(rt, "score")
	e.ledger.Credits += lInt(rt, "credits")
	if note := lStr(rt, "note"); note != "" {
		e.log.Debug("reward note", zap.String("variant", string(destroyed.Variant)), zap.String("note", note))
	}
}

// WaveCleared calls the Lua wave_bonus function when a wave completes.
func (e *Engine) WaveCleared(wave int) {
	e.ledger.Waves++
	e.ledger.Score += e.callIntFunc("wave_bonus", wave)
}

var (
	_ world.Reward         = (*Engine)(nil)
	_ world.WaveRewarder   = (*Engine)(nil)
	_ world.RewardResetter = (*Engine)(nil)
)
