package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// #region config-tests
func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Data.WindowLen != 20 || cfg.Monitor.CraftPatience != 150 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestLoad_OverlaysFile(t *testing.T) {
	path := writeFile(t, "cfg.yaml", "eval:\n  goal_ratio: 3\ndata:\n  skip_frame: 2\nmonitor:\n  craft_patience: 10\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Eval.GoalRatio != 3 || cfg.Data.SkipFrame != 2 || cfg.Data.WindowLen != 20 {
		t.Errorf("unexpected overlay %+v", cfg.Data)
	}
	if cfg.Monitor.CraftPatience != 10 || cfg.Monitor.SmeltPatience != 200 {
		t.Errorf("monitor overlay lost defaults: %+v", cfg.Monitor)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CODEC_ADDR", "bridge:9000")
	t.Setenv("HORIZON_DB", "/tmp/x.db")
	t.Setenv("GEMINI_API_KEY", "k")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Bridge.Addr != "bridge:9000" || cfg.Paths.DB != "/tmp/x.db" || cfg.Planner.APIKey != "k" {
		t.Errorf("env not applied: %+v", cfg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	path := writeFile(t, "cfg.yaml", "data:\n  window_len: 0\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoad_RepoDefaults(t *testing.T) {
	cfg, err := Load("../../configs/defaults.yaml")
	if err != nil {
		t.Fatalf("repo defaults should load: %v", err)
	}
	if cfg.Paths.Recipes == "" {
		t.Error("expected recipes path")
	}
}

// #endregion config-tests

// #region table-tests
func TestLoadTasks(t *testing.T) {
	path := writeFile(t, "tasks.json", `{"obtain_planks": {"object": "planks", "episode": 1500, "question": "obtain planks", "group": "wooden"}}`)
	tasks, err := LoadTasks(path)
	if err != nil {
		t.Fatal(err)
	}
	task, err := tasks.Get("obtain_planks")
	if err != nil || task.Object != "planks" || task.Episode != 1500 {
		t.Errorf("unexpected task %+v err=%v", task, err)
	}
	if _, err := tasks.Get("obtain_elytra"); !errors.Is(err, ErrUnknownTask) {
		t.Errorf("expected ErrUnknownTask, got %v", err)
	}
}

func TestLoadGoalMapping(t *testing.T) {
	m, err := LoadGoalMapping("../../data/goal_mapping.json")
	if err != nil {
		t.Fatal(err)
	}
	if m.Horizon["log"] != "chop a tree" {
		t.Errorf("unexpected mapping %v", m.Horizon)
	}
	labels := m.Labels()
	for i := 1; i < len(labels); i++ {
		if labels[i-1] >= labels[i] {
			t.Fatalf("labels not sorted and distinct: %v", labels)
		}
	}
}

func TestLoadGoalMapping_EmptyHorizon(t *testing.T) {
	path := writeFile(t, "m.json", `{"mineclip": {"log": "chop"}}`)
	if _, err := LoadGoalMapping(path); err == nil {
		t.Fatal("expected error for missing horizon section")
	}
}

// #endregion table-tests
