package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/danielpatrickdp/horizon/go-controller/internal/trace"
)

// #region log-transition
// LogTransition writes a transition entry to the transition_log table.
func LogTransition(db *sql.DB, entry TransitionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var result interface{}
	if entry.Result != nil {
		if *entry.Result {
			result = 1
		} else {
			result = 0
		}
	}

	_, err := db.Exec(
		`INSERT INTO transition_log (episode_id, timestep, kind, plan_json, goal_json, dialogue_json, result, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.EpisodeID,
		entry.Timestep,
		entry.Kind,
		entry.PlanJSON,
		entry.GoalJSON,
		nullIfEmpty(entry.DialogueJSON),
		result,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log transition: %w", err)
	}
	return nil
}
// #endregion log-transition

// #region list-transitions
// ListTransitions returns an episode's transitions in timestep order.
func ListTransitions(db *sql.DB, episodeID string) ([]TransitionEntry, error) {
	rows, err := db.Query(
		`SELECT episode_id, timestep, kind, plan_json, goal_json, dialogue_json, result, created_at
		 FROM transition_log WHERE episode_id = ? ORDER BY timestep, id`, episodeID,
	)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var entries []TransitionEntry
	for rows.Next() {
		var e TransitionEntry
		var dialogue sql.NullString
		var result sql.NullInt64
		var createdStr string
		if err := rows.Scan(&e.EpisodeID, &e.Timestep, &e.Kind, &e.PlanJSON, &e.GoalJSON, &dialogue, &result, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if dialogue.Valid {
			e.DialogueJSON = dialogue.String
		}
		if result.Valid {
			ok := result.Int64 == 1
			e.Result = &ok
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
// #endregion list-transitions

// #region sqlite-sink
// SQLiteSink appends each new trace entry as a transition_log row.
type SQLiteSink struct {
	db        *sql.DB
	episodeID string
}

// NewSQLiteSink creates a sink bound to one episode.
func NewSQLiteSink(db *sql.DB, episodeID string) *SQLiteSink {
	return &SQLiteSink{db: db, episodeID: episodeID}
}

// Flush writes only latest; earlier entries were written by earlier flushes.
func (s *SQLiteSink) Flush(latest trace.Entry, _ []trace.Entry) error {
	entry, err := FromTraceEntry(s.episodeID, latest)
	if err != nil {
		return err
	}
	return LogTransition(s.db, entry)
}

// FromTraceEntry serializes a trace entry into a row.
func FromTraceEntry(episodeID string, e trace.Entry) (TransitionEntry, error) {
	plan, err := json.Marshal(e.Plan)
	if err != nil {
		return TransitionEntry{}, fmt.Errorf("marshal plan: %w", err)
	}
	g, err := json.Marshal(e.Goal)
	if err != nil {
		return TransitionEntry{}, fmt.Errorf("marshal goal: %w", err)
	}
	var dialogue string
	if len(e.Dialogue) > 0 {
		d, err := json.Marshal(e.Dialogue)
		if err != nil {
			return TransitionEntry{}, fmt.Errorf("marshal dialogue: %w", err)
		}
		dialogue = string(d)
	}
	return TransitionEntry{
		EpisodeID:    episodeID,
		Timestep:     e.Timestep,
		Kind:         string(e.Kind),
		PlanJSON:     string(plan),
		GoalJSON:     string(g),
		DialogueJSON: dialogue,
		Result:       e.Result,
	}, nil
}

// ToTraceEntry decodes a row back into a trace entry.
func (t TransitionEntry) ToTraceEntry() (trace.Entry, error) {
	e := trace.Entry{Timestep: t.Timestep, Kind: trace.Kind(t.Kind), Result: t.Result}
	if err := json.Unmarshal([]byte(t.PlanJSON), &e.Plan); err != nil {
		return trace.Entry{}, fmt.Errorf("unmarshal plan: %w", err)
	}
	if err := json.Unmarshal([]byte(t.GoalJSON), &e.Goal); err != nil {
		return trace.Entry{}, fmt.Errorf("unmarshal goal: %w", err)
	}
	if t.DialogueJSON != "" {
		if err := json.Unmarshal([]byte(t.DialogueJSON), &e.Dialogue); err != nil {
			return trace.Entry{}, fmt.Errorf("unmarshal dialogue: %w", err)
		}
	}
	return e, nil
}
// #endregion sqlite-sink

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
