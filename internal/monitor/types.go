package monitor

// #region phase
// Phase is the monitor's verdict for one step.
type Phase string

const (
	PhaseRunning Phase = "running"
	PhaseAdvance Phase = "advance"
	PhaseReplan  Phase = "replan"
	PhaseSuccess Phase = "success"
	PhaseAborted Phase = "aborted"
)

// Terminal reports whether no further steps follow this phase.
func (p Phase) Terminal() bool {
	return p == PhaseSuccess || p == PhaseAborted
}

// #endregion phase

// #region thresholds
// Thresholds holds the per-goal-type patience budgets.
type Thresholds struct {
	AdvanceDebounce int `json:"advance_debounce" yaml:"advance_debounce"` // advance only once goal_eps exceeds this
	CraftPatience   int `json:"craft_patience" yaml:"craft_patience"`     // replan craft goals once goal_eps exceeds this
	SmeltPatience   int `json:"smelt_patience" yaml:"smelt_patience"`     // replan smelt goals once goal_eps exceeds this
	MaxReplanRounds int `json:"max_replan_rounds" yaml:"max_replan_rounds"`
}

// DefaultThresholds returns the stock budgets.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AdvanceDebounce: 1,
		CraftPatience:   150,
		SmeltPatience:   200,
		MaxReplanRounds: 12,
	}
}

// #endregion thresholds

// #region episode-state
// EpisodeState is the per-episode counter set owned by the driver.
type EpisodeState struct {
	Step         int `json:"step"`          // environment steps taken in the loop
	GoalEps      int `json:"goal_eps"`      // steps spent on the current goal
	ReplanRounds int `json:"replan_rounds"` // replans this episode, never decreases
}

// Tick records one environment step.
func (s EpisodeState) Tick() EpisodeState {
	s.Step++
	s.GoalEps++
	return s
}

// #endregion episode-state

// #region verdict
// Verdict is the output of Evaluate.
type Verdict struct {
	Phase  Phase
	Reason string
}

// #endregion verdict
