package config

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/horizon/go-controller/internal/monitor"
)

// ErrUnknownTask is returned when a task name is missing from the task table.
var ErrUnknownTask = errors.New("unknown task")

// #region types
// Config is the evaluation configuration read from configs/defaults.yaml.
type Config struct {
	Eval      EvalConfig         `yaml:"eval"`
	Data      DataConfig         `yaml:"data"`
	GoalModel GoalModelConfig    `yaml:"goal_model"`
	Record    RecordConfig       `yaml:"record"`
	Simulator SimulatorConfig    `yaml:"simulator"`
	Monitor   monitor.Thresholds `yaml:"monitor"`
	Paths     PathsConfig        `yaml:"paths"`
	Bridge    BridgeConfig       `yaml:"bridge"`
	Planner   PlannerConfig      `yaml:"planner"`
}

type EvalConfig struct {
	EnvName   string `yaml:"env_name"`
	TaskName  string `yaml:"task_name"`
	GoalRatio int    `yaml:"goal_ratio"`
	FPS       int    `yaml:"fps"`
	Workers   int    `yaml:"workers"`
}

type DataConfig struct {
	WindowLen int `yaml:"window_len"`
	SkipFrame int `yaml:"skip_frame"`
}

// GoalModelConfig is carried for compatibility with existing config files.
type GoalModelConfig struct {
	Freq           int  `yaml:"freq"`
	QueueSize      int  `yaml:"queue_size"`
	UseRankingGoal bool `yaml:"use_ranking_goal"`
}

type RecordConfig struct {
	Steps int `yaml:"steps"`
}

type SimulatorConfig struct {
	Resolution []int `yaml:"resolution"`
}

type PathsConfig struct {
	TaskInfo    string `yaml:"task_info"`
	GoalMapping string `yaml:"goal_mapping"`
	Recipes     string `yaml:"recipes"`
	DB          string `yaml:"db"`
	TraceDir    string `yaml:"trace_dir"`
}

type BridgeConfig struct {
	Addr string `yaml:"addr"`
}

type PlannerConfig struct {
	Model  string `yaml:"model"`
	APIKey string `yaml:"-"`
}
// #endregion types

// #region defaults
// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Eval:      EvalConfig{EnvName: "Plains", TaskName: "obtain_wooden_pickaxe", GoalRatio: 30, FPS: 200},
		Data:      DataConfig{WindowLen: 20, SkipFrame: 5},
		GoalModel: GoalModelConfig{Freq: 20, QueueSize: 20},
		Simulator: SimulatorConfig{Resolution: []int{640, 360}},
		Monitor:   monitor.DefaultThresholds(),
		Paths: PathsConfig{
			TaskInfo:    "data/task_info.json",
			GoalMapping: "data/goal_mapping.json",
			Recipes:     "data/recipes.yaml",
			DB:          "horizon.db",
			TraceDir:    "logs",
		},
		Bridge: BridgeConfig{Addr: "localhost:50051"},
	}
}
// #endregion defaults

// #region load
// Load reads path over the defaults, then applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from CODEC_ADDR, HORIZON_DB, GEMINI_API_KEY,
// GEMINI_MODEL and TRACE_DIR.
func (c *Config) ApplyEnv() {
	c.Bridge.Addr = envOr("CODEC_ADDR", c.Bridge.Addr)
	c.Paths.DB = envOr("HORIZON_DB", c.Paths.DB)
	c.Paths.TraceDir = envOr("TRACE_DIR", c.Paths.TraceDir)
	c.Planner.APIKey = envOr("GEMINI_API_KEY", c.Planner.APIKey)
	c.Planner.Model = envOr("GEMINI_MODEL", c.Planner.Model)
}

// Validate rejects settings the driver cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Data.WindowLen < 1:
		return fmt.Errorf("config: data.window_len must be >= 1, got %d", c.Data.WindowLen)
	case c.Data.SkipFrame < 1:
		return fmt.Errorf("config: data.skip_frame must be >= 1, got %d", c.Data.SkipFrame)
	case c.Eval.GoalRatio < 1:
		return fmt.Errorf("config: eval.goal_ratio must be >= 1, got %d", c.Eval.GoalRatio)
	case c.Monitor.MaxReplanRounds < 0:
		return fmt.Errorf("config: monitor.max_replan_rounds must be >= 0")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
// #endregion load

// #region tasks
// Task is one row of the task table.
type Task struct {
	Object   string `yaml:"object"`
	Episode  int    `yaml:"episode"`
	Question string `yaml:"question"`
	Group    string `yaml:"group"`
}

// Tasks maps task name to its definition.
type Tasks map[string]Task

// LoadTasks reads the task table. JSON input is accepted since it is valid YAML.
func LoadTasks(path string) (Tasks, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task info: %w", err)
	}
	var tasks Tasks
	if err := yaml.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("parse task info: %w", err)
	}
	return tasks, nil
}

// Get returns the named task.
func (t Tasks) Get(name string) (Task, error) {
	task, ok := t[name]
	if !ok {
		return Task{}, fmt.Errorf("%w: %q", ErrUnknownTask, name)
	}
	if task.Episode < 1 {
		return Task{}, fmt.Errorf("task %q: episode length must be >= 1", name)
	}
	return task, nil
}

// Names lists the tasks in sorted order.
func (t Tasks) Names() []string {
	out := make([]string, 0, len(t))
	for name := range t {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
// #endregion tasks

// #region goal-mapping
// GoalMapping holds the item → prompt tables. Horizon is the one the policy is
// conditioned on; MineCLIP and CLIP are kept for alternative encoders.
type GoalMapping struct {
	MineCLIP map[string]string `yaml:"mineclip"`
	CLIP     map[string]string `yaml:"clip"`
	Horizon  map[string]string `yaml:"horizon"`
}

// LoadGoalMapping reads the goal mapping file.
func LoadGoalMapping(path string) (GoalMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return GoalMapping{}, fmt.Errorf("read goal mapping: %w", err)
	}
	var m GoalMapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return GoalMapping{}, fmt.Errorf("parse goal mapping: %w", err)
	}
	if len(m.Horizon) == 0 {
		return GoalMapping{}, fmt.Errorf("parse goal mapping: empty horizon section")
	}
	return m, nil
}

// Labels returns the distinct horizon goal labels in sorted order.
func (m GoalMapping) Labels() []string {
	seen := make(map[string]bool, len(m.Horizon))
	var out []string
	for _, label := range m.Horizon {
		if !seen[label] {
			seen[label] = true
			out = append(out, label)
		}
	}
	sort.Strings(out)
	return out
}
// #endregion goal-mapping
