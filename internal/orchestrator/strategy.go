package orchestrator

import (
	"fmt"

	"github.com/danielpatrickdp/horizon/go-controller/internal/goal"
)

// #region default-mapping

// defaultMapping maps goal type → strategy.
var defaultMapping = map[goal.Type]StrategyID{
	goal.Mine:  StrategyWindowedPolicy,
	goal.Craft: StrategyScriptedCraft,
	goal.Smelt: StrategyScriptedCraft,
}

// #endregion

// #region select

// SelectStrategy returns the strategy for t, or ErrUnsupportedGoalType.
func SelectStrategy(t goal.Type) (StrategyID, error) {
	sid, ok := defaultMapping[t]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedGoalType, t)
	}
	return sid, nil
}

// #endregion
