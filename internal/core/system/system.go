package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: apply queued hits
	PhaseWave                    // 1: orchestrate the wave, spawn
	PhaseUpdate                  // 2: kinematics, physics sync
	PhasePostUpdate              // 3: wave completion, consistency checks
	PhaseOutput                  // 4: deliver queued events
	PhaseCleanup                 // 5: release tombstoned entities
)

var phaseNames = [...]string{"input", "wave", "update", "post_update", "output", "cleanup"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
