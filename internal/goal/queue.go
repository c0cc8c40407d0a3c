package goal

// #region queue

// Queue is an ordered, immutable sequence of subgoals. The head is the current goal.
// Every operation returns a new Queue; the version changes on each advance or replace
// so holders can detect a goal change without comparing goal values.
type Queue struct {
	goals   []Subgoal
	version int
}

// NewQueue builds a queue from plan, seeding the fallback goal when plan is empty.
func NewQueue(plan []Subgoal) Queue {
	return Queue{goals: seed(plan), version: 1}
}

// Replace discards the current contents and rebuilds from plan.
func (q Queue) Replace(plan []Subgoal) Queue {
	return Queue{goals: seed(plan), version: q.version + 1}
}

// Advance drops the head. It fails with ErrPlanExhausted if nothing would remain.
func (q Queue) Advance() (Queue, error) {
	if len(q.goals) <= 1 {
		return q, ErrPlanExhausted
	}
	rest := make([]Subgoal, len(q.goals)-1)
	copy(rest, q.goals[1:])
	return Queue{goals: rest, version: q.version + 1}, nil
}

// Current returns the head goal.
func (q Queue) Current() (Subgoal, error) {
	if len(q.goals) == 0 {
		return Subgoal{}, ErrEmptyQueue
	}
	return q.goals[0].clone(), nil
}

// Goals returns a deep copy of the remaining goals, head first.
func (q Queue) Goals() []Subgoal {
	out := make([]Subgoal, len(q.goals))
	for i, g := range q.goals {
		out[i] = g.clone()
	}
	return out
}

// Len returns the number of remaining goals.
func (q Queue) Len() int { return len(q.goals) }

// Version identifies this queue state. The zero Queue has version 0.
func (q Queue) Version() int { return q.version }

func seed(plan []Subgoal) []Subgoal {
	if len(plan) == 0 {
		return []Subgoal{FallbackGoal()}
	}
	goals := make([]Subgoal, len(plan))
	for i, g := range plan {
		goals[i] = g.clone()
	}
	return goals
}

// #endregion
