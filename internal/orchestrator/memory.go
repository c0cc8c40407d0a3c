package orchestrator

// #region imports
import (
	"database/sql"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/danielpatrickdp/horizon/go-controller/internal/goal"
)

// #endregion

// #region schema

const goalOutcomesSchema = `
CREATE TABLE IF NOT EXISTS goal_outcomes (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    episode_id    TEXT NOT NULL,
    task          TEXT NOT NULL,
    goal_name     TEXT NOT NULL,
    goal_type     TEXT NOT NULL,
    strategy_id   TEXT NOT NULL,
    outcome       TEXT NOT NULL,
    steps         INTEGER NOT NULL,
    created_at    TEXT NOT NULL
);
`

const goalOutcomesIndex = `
CREATE INDEX IF NOT EXISTS idx_goal_outcomes_lookup
ON goal_outcomes(goal_name, goal_type);
`

// #endregion

// #region memory-struct

// GoalMemory persists per-goal outcomes in SQLite and queries decay-weighted completion rates.
type GoalMemory struct {
	db *sql.DB
}

// NewGoalMemory initializes the goal_outcomes table and returns a GoalMemory.
func NewGoalMemory(db *sql.DB) (*GoalMemory, error) {
	if _, err := db.Exec(goalOutcomesSchema); err != nil {
		return nil, fmt.Errorf("create goal_outcomes: %w", err)
	}
	if _, err := db.Exec(goalOutcomesIndex); err != nil {
		return nil, fmt.Errorf("index goal_outcomes: %w", err)
	}
	return &GoalMemory{db: db}, nil
}

// #endregion

// #region record-outcome

// RecordOutcome persists a single goal outcome row.
func (m *GoalMemory) RecordOutcome(rec GoalOutcome) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := m.db.Exec(`
		INSERT INTO goal_outcomes
		(episode_id, task, goal_name, goal_type, strategy_id, outcome, steps, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.EpisodeID,
		rec.Task,
		rec.GoalName,
		string(rec.GoalType),
		string(rec.Strategy),
		string(rec.Outcome),
		rec.Steps,
		rec.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record goal outcome: %w", err)
	}
	return nil
}

// #endregion

// #region completion-rates

// CompletionRates returns the decay-weighted share of completed outcomes per goal
// name, sorted by name. Goals with fewer than minSamples rows are omitted.
func (m *GoalMemory) CompletionRates(minSamples int) ([]GoalRate, error) {
	rows, err := m.db.Query(`
		SELECT goal_name, goal_type, outcome, created_at
		FROM goal_outcomes`)
	if err != nil {
		return nil, fmt.Errorf("query goal outcomes: %w", err)
	}
	defer rows.Close()

	type goalAccum struct {
		goalType    goal.Type
		weightedHit float64
		totalWeight float64
		count       int
	}

	now := time.Now()
	halfLife := 7.0 * 24.0 // 7 days in hours
	accum := make(map[string]*goalAccum)

	for rows.Next() {
		var name, gtype, outcome, createdAtStr string
		if err := rows.Scan(&name, &gtype, &outcome, &createdAtStr); err != nil {
			return nil, err
		}
		createdAt, err := time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			continue
		}
		ageHours := now.Sub(createdAt).Hours()
		weight := math.Exp(-ageHours / halfLife)

		a, ok := accum[name]
		if !ok {
			a = &goalAccum{goalType: goal.Type(gtype)}
			accum[name] = a
		}
		if Outcome(outcome) == OutcomeCompleted {
			a.weightedHit += weight
		}
		a.totalWeight += weight
		a.count++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var rates []GoalRate
	for name, a := range accum {
		if a.count < minSamples || a.totalWeight == 0 {
			continue
		}
		rates = append(rates, GoalRate{
			GoalName: name,
			GoalType: a.goalType,
			Samples:  a.count,
			Rate:     float32(a.weightedHit / a.totalWeight),
		})
	}
	sort.Slice(rates, func(i, j int) bool { return rates[i].GoalName < rates[j].GoalName })
	return rates, nil
}

// #endregion
