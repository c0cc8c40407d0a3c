package logging

import "time"

// #region transition-entry
// TransitionEntry is a single row in the transition_log table.
type TransitionEntry struct {
	EpisodeID    string
	Timestep     int
	Kind         string // "start" | "advance" | "replan" | "success"
	PlanJSON     string
	GoalJSON     string
	DialogueJSON string
	Result       *bool
	CreatedAt    time.Time
}
// #endregion transition-entry
