package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/danielpatrickdp/horizon/go-controller/internal/logging"
	"github.com/danielpatrickdp/horizon/go-controller/internal/orchestrator"
	"github.com/danielpatrickdp/horizon/go-controller/internal/state"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFA500"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD75F"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#D75F5F"))
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to horizon.db")
	last := flag.Int("last", 20, "show N most recent episodes")
	episodeID := flag.String("episode", "", "show one episode with its transition trace")
	stats := flag.Bool("stats", false, "show per-task success rates")
	goals := flag.Bool("goals", false, "show per-goal completion rates")
	minSamples := flag.Int("min-samples", 1, "omit goals with fewer outcomes (with --goals)")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/horizon.db [--last N] [--episode id] [--stats] [--goals] [--json]")
		os.Exit(2)
	}

	store, err := state.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	switch {
	case *episodeID != "":
		err = runDetailMode(store, *episodeID, *jsonOut)
	case *stats:
		err = runStatsMode(store, *jsonOut)
	case *goals:
		err = runGoalsMode(store, *minSamples, *jsonOut)
	default:
		err = runListMode(store, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	EpisodeID    string `json:"episode_id"`
	Task         string `json:"task"`
	Attempt      int    `json:"attempt"`
	Outcome      string `json:"outcome"`
	Steps        int    `json:"steps"`
	ReplanRounds int    `json:"replan_rounds"`
	Deaths       int    `json:"deaths"`
	StartedAt    string `json:"started_at"`
}

func toRow(r state.EpisodeRecord) listRow {
	return listRow{
		EpisodeID:    r.EpisodeID,
		Task:         r.Task,
		Attempt:      r.Attempt,
		Outcome:      r.Outcome,
		Steps:        r.Steps,
		ReplanRounds: r.ReplanRounds,
		Deaths:       r.Deaths,
		StartedAt:    r.StartedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func runListMode(store *state.Store, last int, jsonOut bool) error {
	episodes, err := store.ListEpisodes(last)
	if err != nil {
		return err
	}
	if len(episodes) == 0 {
		fmt.Fprintln(os.Stderr, "no episodes found")
		return nil
	}

	// store returns newest first, reverse for chronological
	rows := make([]listRow, len(episodes))
	for i, ep := range episodes {
		rows[len(episodes)-1-i] = toRow(ep)
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("%-10s  %-26s  %4s  %-9s  %6s  %6s  %6s  %s",
		"Episode", "Task", "Try", "Outcome", "Steps", "Replan", "Deaths", "Started")))
	for _, r := range rows {
		fmt.Printf("%-10s  %-26s  %4d  %s  %6d  %6d  %6d  %s\n",
			shortID(r.EpisodeID), r.Task, r.Attempt, outcome(r.Outcome, 9), r.Steps, r.ReplanRounds, r.Deaths, r.StartedAt)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	listRow
	FinishedAt  string            `json:"finished_at,omitempty"`
	TracePath   string            `json:"trace_path,omitempty"`
	Transitions []transitionEntry `json:"transitions"`
}

type transitionEntry struct {
	Timestep int      `json:"timestep"`
	Kind     string   `json:"kind"`
	Goal     string   `json:"goal"`
	Plan     []string `json:"plan"`
}

func runDetailMode(store *state.Store, episodeID string, jsonOut bool) error {
	ep, err := store.GetEpisode(episodeID)
	if err != nil {
		return err
	}
	rows, err := logging.ListTransitions(store.DB(), episodeID)
	if err != nil {
		return err
	}

	out := detailOutput{listRow: toRow(ep), TracePath: ep.TracePath}
	if !ep.FinishedAt.IsZero() {
		out.FinishedAt = ep.FinishedAt.Format("2006-01-02T15:04:05Z")
	}
	for _, row := range rows {
		e, err := row.ToTraceEntry()
		if err != nil {
			return fmt.Errorf("transition at t=%d: %w", row.Timestep, err)
		}
		te := transitionEntry{Timestep: e.Timestep, Kind: string(e.Kind), Goal: e.Goal.Name}
		for _, g := range e.Plan {
			te.Plan = append(te.Plan, g.Name)
		}
		out.Transitions = append(out.Transitions, te)
	}

	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("Episode:    %s\n", out.EpisodeID)
	fmt.Printf("Task:       %s (attempt %d)\n", out.Task, out.Attempt)
	fmt.Printf("Outcome:    %s\n", outcome(out.Outcome, 0))
	fmt.Printf("Steps:      %d | Replans: %d | Deaths: %d\n", out.Steps, out.ReplanRounds, out.Deaths)
	fmt.Printf("Started:    %s\n", out.StartedAt)
	if out.FinishedAt != "" {
		fmt.Printf("Finished:   %s\n", out.FinishedAt)
	}
	if out.TracePath != "" {
		fmt.Printf("Trace:      %s\n", out.TracePath)
	}

	fmt.Printf("\n%s\n", headerStyle.Render("Transitions:"))
	if len(out.Transitions) == 0 {
		fmt.Println(dimStyle.Render("  (none)"))
	}
	for _, t := range out.Transitions {
		fmt.Printf("  t=%-6d %-8s %-24s %s\n", t.Timestep, t.Kind, t.Goal, dimStyle.Render(strings.Join(t.Plan, " → ")))
	}
	return nil
}

// #endregion detail-mode

// #region stats-mode

type statsRow struct {
	Task        string  `json:"task"`
	Attempts    int     `json:"attempts"`
	Successes   int     `json:"successes"`
	SuccessRate float32 `json:"success_rate"`
	AvgLength   float32 `json:"avg_length"`
}

func runStatsMode(store *state.Store, jsonOut bool) error {
	stats, err := store.TaskStats()
	if err != nil {
		return err
	}
	rows := make([]statsRow, len(stats))
	for i, s := range stats {
		rows[i] = statsRow{Task: s.Task, Attempts: s.Attempts, Successes: s.Successes, SuccessRate: s.SuccessRate, AvgLength: s.AvgLength}
	}
	if jsonOut {
		return printJSON(rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "no finished episodes")
		return nil
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("%-26s  %8s  %9s  %7s  %10s", "Task", "Attempts", "Successes", "Rate", "Avg Length")))
	for _, r := range rows {
		fmt.Printf("%-26s  %8d  %9d  %7.3f  %10.1f\n", r.Task, r.Attempts, r.Successes, r.SuccessRate, r.AvgLength)
	}
	return nil
}

// #endregion stats-mode

// #region goals-mode

type goalRow struct {
	Goal    string  `json:"goal"`
	Type    string  `json:"type"`
	Samples int     `json:"samples"`
	Rate    float32 `json:"completion_rate"`
}

func runGoalsMode(store *state.Store, minSamples int, jsonOut bool) error {
	mem, err := orchestrator.NewGoalMemory(store.DB())
	if err != nil {
		return err
	}
	rates, err := mem.CompletionRates(minSamples)
	if err != nil {
		return err
	}
	rows := make([]goalRow, len(rates))
	for i, r := range rates {
		rows[i] = goalRow{Goal: r.GoalName, Type: string(r.GoalType), Samples: r.Samples, Rate: r.Rate}
	}
	if jsonOut {
		return printJSON(rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "no goal outcomes")
		return nil
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("%-28s  %-6s  %7s  %s", "Goal", "Type", "Samples", "Completion")))
	for _, r := range rows {
		fmt.Printf("%-28s  %-6s  %7d  %.3f\n", r.Goal, r.Type, r.Samples, r.Rate)
	}
	return nil
}

// #endregion goals-mode

// #region output

func outcome(o string, width int) string {
	padded := o
	if width > len(o) {
		padded = o + strings.Repeat(" ", width-len(o))
	}
	switch o {
	case "success":
		return okStyle.Render(padded)
	case "running":
		return dimStyle.Render(padded)
	}
	return failStyle.Render(padded)
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
