package state

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS episodes (
	episode_id    TEXT PRIMARY KEY,
	task          TEXT NOT NULL,
	attempt       INTEGER NOT NULL,
	outcome       TEXT NOT NULL DEFAULT 'running',
	steps         INTEGER NOT NULL DEFAULT 0,
	replan_rounds INTEGER NOT NULL DEFAULT 0,
	deaths        INTEGER NOT NULL DEFAULT 0,
	trace_path    TEXT,
	started_at    TEXT NOT NULL,
	finished_at   TEXT
);

CREATE TABLE IF NOT EXISTS transition_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	episode_id    TEXT NOT NULL,
	timestep      INTEGER NOT NULL,
	kind          TEXT NOT NULL,
	plan_json     TEXT NOT NULL,
	goal_json     TEXT NOT NULL,
	dialogue_json TEXT,
	result        INTEGER,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (episode_id) REFERENCES episodes(episode_id)
);

CREATE TABLE IF NOT EXISTS episode_steps (
	episode_id     TEXT NOT NULL,
	step           INTEGER NOT NULL,
	goal_name      TEXT NOT NULL,
	inventory_json TEXT NOT NULL,
	PRIMARY KEY (episode_id, step),
	FOREIGN KEY (episode_id) REFERENCES episodes(episode_id)
);

CREATE TABLE IF NOT EXISTS goal_embeddings (
	label         TEXT PRIMARY KEY,
	dim           INTEGER NOT NULL,
	embedding     BLOB NOT NULL,
	created_at    TEXT NOT NULL
);
`
// #endregion schema

// #region store-struct
// Store persists episodes, step logs and goal embeddings in SQLite.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion db-accessor

// #region episodes
// BeginEpisode inserts a running episode row with a fresh ID.
func (s *Store) BeginEpisode(task string, attempt int) (EpisodeRecord, error) {
	rec := EpisodeRecord{
		EpisodeID: uuid.New().String(),
		Task:      task,
		Attempt:   attempt,
		Outcome:   "running",
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO episodes (episode_id, task, attempt, outcome, started_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.EpisodeID, rec.Task, rec.Attempt, rec.Outcome, rec.StartedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return EpisodeRecord{}, fmt.Errorf("insert episode: %w", err)
	}
	return rec, nil
}

// FinishEpisode stores the final counters and outcome of rec.
func (s *Store) FinishEpisode(rec EpisodeRecord) error {
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = time.Now().UTC()
	}
	res, err := s.db.Exec(
		`UPDATE episodes
		 SET outcome = ?, steps = ?, replan_rounds = ?, deaths = ?, trace_path = ?, finished_at = ?
		 WHERE episode_id = ?`,
		rec.Outcome, rec.Steps, rec.ReplanRounds, rec.Deaths, nullIfEmpty(rec.TracePath),
		rec.FinishedAt.Format(time.RFC3339Nano), rec.EpisodeID,
	)
	if err != nil {
		return fmt.Errorf("finish episode: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("episode %s not found", rec.EpisodeID)
	}
	return nil
}

// GetEpisode retrieves one episode by ID.
func (s *Store) GetEpisode(id string) (EpisodeRecord, error) {
	row := s.db.QueryRow(
		`SELECT episode_id, task, attempt, outcome, steps, replan_rounds, deaths, trace_path, started_at, finished_at
		 FROM episodes WHERE episode_id = ?`, id,
	)
	rec, err := scanEpisode(row)
	if err != nil {
		return EpisodeRecord{}, fmt.Errorf("get episode %s: %w", id, err)
	}
	return rec, nil
}

// ListEpisodes returns the most recent episodes, newest first.
func (s *Store) ListEpisodes(limit int) ([]EpisodeRecord, error) {
	rows, err := s.db.Query(
		`SELECT episode_id, task, attempt, outcome, steps, replan_rounds, deaths, trace_path, started_at, finished_at
		 FROM episodes ORDER BY rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	var records []EpisodeRecord
	for rows.Next() {
		rec, err := scanEpisode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// TaskStats aggregates finished episodes per task, ordered by task name.
func (s *Store) TaskStats() ([]TaskStats, error) {
	rows, err := s.db.Query(
		`SELECT task,
		        COUNT(*),
		        SUM(CASE WHEN outcome = 'success' THEN 1 ELSE 0 END),
		        COALESCE(AVG(CASE WHEN outcome = 'success' THEN steps END), 0)
		 FROM episodes WHERE outcome != 'running'
		 GROUP BY task ORDER BY task`,
	)
	if err != nil {
		return nil, fmt.Errorf("task stats: %w", err)
	}
	defer rows.Close()

	var stats []TaskStats
	for rows.Next() {
		var ts TaskStats
		var avg float64
		if err := rows.Scan(&ts.Task, &ts.Attempts, &ts.Successes, &avg); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		ts.AvgLength = float32(avg)
		if ts.Attempts > 0 {
			ts.SuccessRate = float32(ts.Successes) / float32(ts.Attempts)
		}
		stats = append(stats, ts)
	}
	return stats, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEpisode(r rowScanner) (EpisodeRecord, error) {
	var rec EpisodeRecord
	var tracePath, finishedStr sql.NullString
	var startedStr string
	if err := r.Scan(&rec.EpisodeID, &rec.Task, &rec.Attempt, &rec.Outcome, &rec.Steps,
		&rec.ReplanRounds, &rec.Deaths, &tracePath, &startedStr, &finishedStr); err != nil {
		return EpisodeRecord{}, err
	}
	if tracePath.Valid {
		rec.TracePath = tracePath.String
	}
	rec.StartedAt, _ = time.Parse(time.RFC3339Nano, startedStr)
	if finishedStr.Valid {
		rec.FinishedAt, _ = time.Parse(time.RFC3339Nano, finishedStr.String)
	}
	return rec, nil
}
// #endregion episodes

// #region steps
// RecordStep stores the inventory observed after one step.
func (s *Store) RecordStep(rec StepRecord) error {
	invJSON, err := json.Marshal(rec.Inventory)
	if err != nil {
		return fmt.Errorf("marshal inventory: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO episode_steps (episode_id, step, goal_name, inventory_json) VALUES (?, ?, ?, ?)
		 ON CONFLICT(episode_id, step) DO UPDATE SET goal_name = excluded.goal_name, inventory_json = excluded.inventory_json`,
		rec.EpisodeID, rec.Step, rec.GoalName, string(invJSON),
	)
	if err != nil {
		return fmt.Errorf("record step: %w", err)
	}
	return nil
}

// ListSteps returns every recorded step of an episode in step order.
func (s *Store) ListSteps(episodeID string) ([]StepRecord, error) {
	rows, err := s.db.Query(
		`SELECT step, goal_name, inventory_json FROM episode_steps
		 WHERE episode_id = ? ORDER BY step`, episodeID,
	)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	var steps []StepRecord
	for rows.Next() {
		rec := StepRecord{EpisodeID: episodeID}
		var invJSON string
		if err := rows.Scan(&rec.Step, &rec.GoalName, &invJSON); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(invJSON), &rec.Inventory); err != nil {
			return nil, fmt.Errorf("unmarshal inventory: %w", err)
		}
		steps = append(steps, rec)
	}
	return steps, rows.Err()
}
// #endregion steps

// #region embeddings
// SaveEmbedding stores or replaces the embedding for a goal label.
func (s *Store) SaveEmbedding(label string, vec []float32) error {
	_, err := s.db.Exec(
		`INSERT INTO goal_embeddings (label, dim, embedding, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(label) DO UPDATE SET dim = excluded.dim, embedding = excluded.embedding, created_at = excluded.created_at`,
		label, len(vec), encodeVector(vec), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save embedding %q: %w", label, err)
	}
	return nil
}

// LoadEmbeddings returns every cached embedding keyed by label.
func (s *Store) LoadEmbeddings() (map[string][]float32, error) {
	rows, err := s.db.Query(`SELECT label, dim, embedding FROM goal_embeddings`)
	if err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]float32)
	for rows.Next() {
		var label string
		var dim int
		var blob []byte
		if err := rows.Scan(&label, &dim, &blob); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out[label] = decodeVector(blob, dim)
	}
	return out, rows.Err()
}
// #endregion embeddings

// #region vector-encoding
func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte, dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		if i*4+4 <= len(b) {
			v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
		}
	}
	return v
}
// #endregion vector-encoding

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
