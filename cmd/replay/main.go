package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/horizon/go-controller/internal/config"
	"github.com/danielpatrickdp/horizon/go-controller/internal/replay"
	"github.com/danielpatrickdp/horizon/go-controller/internal/state"
	"github.com/danielpatrickdp/horizon/go-controller/internal/trace"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to horizon.db (DB mode)")
	episodeID := flag.String("episode", "", "episode to replay (DB mode)")
	configPath := flag.String("config", "configs/defaults.yaml", "evaluation config for thresholds and the task table (DB mode)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	flag.Parse()

	dbMode := *dbPath != "" && *episodeID != ""
	if dbMode == (*fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/horizon.db --episode id [--config configs/defaults.yaml]")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath)
	} else {
		exitCode = runDBMode(*dbPath, *episodeID, *configPath)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region modes

func runDBMode(dbPath, episodeID, configPath string) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 2
	}
	store, err := state.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer store.Close()

	ep, err := store.GetEpisode(episodeID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}
	object, err := taskObject(cfg, ep.Task)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}

	f, err := replay.FromStore(store, episodeID, object, cfg.Monitor)
	if err != nil {
		fmt.Fprintf(os.Stderr, "extract episode: %v\n", err)
		return 2
	}
	return compare(&f)
}

func runFixtureMode(path string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}
	return compare(f)
}

func taskObject(cfg config.Config, task string) (string, error) {
	tasks, err := config.LoadTasks(cfg.Paths.TaskInfo)
	if err != nil {
		return "", err
	}
	t, err := tasks.Get(task)
	if err != nil {
		return "", err
	}
	return t.Object, nil
}

// #endregion modes

// #region output

// compare replays f and prints expected against replayed transitions. It
// returns 1 when they diverge.
func compare(f *replay.Fixture) int {
	results, entries := f.Run()

	fmt.Printf("%-4s| %-24s| %-24s| %s\n", "#", "Expected", "Replayed", "Match")
	fmt.Printf("%-4s+%-25s+%-25s+%s\n", "----", "-------------------------", "-------------------------", "------")

	n := len(f.Expected)
	if len(entries) > n {
		n = len(entries)
	}
	matches := 0
	for i := 0; i < n; i++ {
		exp, got := "-", "-"
		if i < len(f.Expected) {
			e := f.Expected[i]
			exp = label(e.Kind, e.Step, e.Goal)
		}
		if i < len(entries) {
			e := entries[i]
			got = label(e.Kind, e.Timestep, e.Goal.Name)
		}
		match := "DIFF"
		if exp == got {
			match = "OK"
			matches++
		}
		fmt.Printf("%-4d| %-24s| %-24s| %s\n", i, exp, got, match)
	}

	s := replay.Summarize(results)
	fmt.Printf("\nReplayed %d steps: %d advances, %d replans, final %s (%s)\n",
		s.TotalSteps, s.Advances, s.Replans, s.Final, s.Reason)
	fmt.Printf("Summary: %d total, %d match, %d diverge\n", n, matches, n-matches)

	if diffs := f.Check(results, entries); len(diffs) > 0 {
		for _, d := range diffs {
			fmt.Fprintln(os.Stderr, d)
		}
		return 1
	}
	return 0
}

func label(kind trace.Kind, step int, goal string) string {
	return fmt.Sprintf("%s@%d %s", kind, step, goal)
}

// #endregion output
