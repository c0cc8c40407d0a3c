package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/horizon/go-controller/internal/config"
	"github.com/danielpatrickdp/horizon/go-controller/internal/replay"
	"github.com/danielpatrickdp/horizon/go-controller/internal/state"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to horizon.db")
	episodeID := flag.String("episode", "", "episode to export (default: most recent finished)")
	configPath := flag.String("config", "configs/defaults.yaml", "evaluation config for thresholds and the task table")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/db --out path/to/fixture.json [--episode id] [--config path]")
		os.Exit(2)
	}

	if err := run(*dbPath, *episodeID, *configPath, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

func run(dbPath, episodeID, configPath, outPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	tasks, err := config.LoadTasks(cfg.Paths.TaskInfo)
	if err != nil {
		return err
	}

	store, err := state.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	if episodeID == "" {
		episodeID, err = latestFinished(store)
		if err != nil {
			return err
		}
	}
	ep, err := store.GetEpisode(episodeID)
	if err != nil {
		return err
	}
	task, err := tasks.Get(ep.Task)
	if err != nil {
		return err
	}

	fixture, err := replay.FromStore(store, episodeID, task.Object, cfg.Monitor)
	if err != nil {
		return err
	}
	fmt.Printf("Episode %s: %d steps, %d transitions, %d replans\n",
		episodeID, len(fixture.Steps), len(fixture.Expected), len(fixture.Replans))

	return writeFixture(fixture, outPath)
}

// latestFinished returns the newest episode that is no longer running.
func latestFinished(store *state.Store) (string, error) {
	episodes, err := store.ListEpisodes(50)
	if err != nil {
		return "", err
	}
	for _, ep := range episodes {
		if ep.Outcome != "running" {
			return ep.EpisodeID, nil
		}
	}
	return "", fmt.Errorf("no finished episodes in the last %d", len(episodes))
}

// #endregion extract

// #region output

func writeFixture(f replay.Fixture, path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}
	fmt.Printf("Fixture written to %s\n", path)
	return nil
}

// #endregion output
