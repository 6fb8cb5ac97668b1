package pool

// Action is a scaling decision.
type Action int

const (
	// ActionNone leaves capacity unchanged.
	ActionNone Action = iota
	// ActionScaleOut adds up to Step resources.
	ActionScaleOut
	// ActionScaleIn removes up to Step idle resources.
	ActionScaleIn
)

// String returns the action name for logging.
func (a Action) String() string {
	switch a {
	case ActionScaleOut:
		return "scale-out"
	case ActionScaleIn:
		return "scale-in"
	default:
		return "none"
	}
}

// Snapshot is the capacity state a Policy decides from. LowWater is the
// minimum idle count observed since the previous scaling tick.
type Snapshot struct {
	LowWater        int
	Idle            int
	Capacity        int
	InitialCapacity int
	MaxCapacity     int
	Step            int
	MinIdle         int
}

// slack is the capacity above the initial floor.
func (s Snapshot) slack() int {
	return s.Capacity - s.InitialCapacity
}

// Policy turns an observed Snapshot into a scaling Action. Decide is only
// ever called from the pool's scaling goroutine, one call at a time, so
// implementations may keep unsynchronized state across calls.
type Policy interface {
	Decide(s Snapshot) Action
}

// LowWaterPolicy is the default policy. It acts on each observation window
// in isolation: a low-water-mark that stayed above Step means the pool
// carried more than a full scaling step of unused resources for the whole
// window, so it shrinks (when there is more than a step of slack above the
// initial floor). A low-water-mark that dipped below MinIdle means demand
// nearly drained the pool, so it grows (when below the ceiling).
type LowWaterPolicy struct{}

// Decide implements Policy.
func (LowWaterPolicy) Decide(s Snapshot) Action {
	if s.LowWater > s.Step && s.slack() > s.Step {
		return ActionScaleIn
	}
	if s.LowWater < s.MinIdle && s.Capacity < s.MaxCapacity {
		return ActionScaleOut
	}
	return ActionNone
}

// WindowPolicy retains the low-water-mark of several consecutive ticks and
// only acts once the window is full, which damps reactions to a single
// noisy interval. Scale-in requires every mark in the window to exceed
// Step; scale-out requires every mark to fall below MinIdle. The history is
// cleared after each full window.
type WindowPolicy struct {
	// Window is the number of ticks accumulated before a decision.
	// Values below 2 behave like LowWaterPolicy.
	Window int

	marks []int
}

// Decide implements Policy.
func (w *WindowPolicy) Decide(s Snapshot) Action {
	if w.Window < 2 {
		return LowWaterPolicy{}.Decide(s)
	}

	w.marks = append(w.marks, s.LowWater)
	if len(w.marks) < w.Window {
		return ActionNone
	}

	lo, hi := w.marks[0], w.marks[0]
	for _, m := range w.marks[1:] {
		if m < lo {
			lo = m
		}
		if m > hi {
			hi = m
		}
	}
	w.marks = w.marks[:0]

	if lo > s.Step && s.slack() > s.Step {
		return ActionScaleIn
	}
	if hi < s.MinIdle && s.Capacity < s.MaxCapacity {
		return ActionScaleOut
	}
	return ActionNone
}
