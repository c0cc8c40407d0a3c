package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/danielpatrickdp/horizon/go-controller/internal/codec"
	"github.com/danielpatrickdp/horizon/go-controller/internal/config"
	"github.com/danielpatrickdp/horizon/go-controller/internal/craft"
	"github.com/danielpatrickdp/horizon/go-controller/internal/episode"
	"github.com/danielpatrickdp/horizon/go-controller/internal/eval"
	"github.com/danielpatrickdp/horizon/go-controller/internal/monitor"
	"github.com/danielpatrickdp/horizon/go-controller/internal/orchestrator"
	"github.com/danielpatrickdp/horizon/go-controller/internal/planner"
	"github.com/danielpatrickdp/horizon/go-controller/internal/state"
	"github.com/danielpatrickdp/horizon/go-controller/internal/tui"
)

// #region main
func main() {
	configPath := flag.String("config", "configs/defaults.yaml", "evaluation config")
	taskName := flag.String("task", "", "task to evaluate (default eval.task_name)")
	loops := flag.Int("loops", 0, "attempts to run (default eval.goal_ratio)")
	workers := flag.Int("workers", 0, "parallel attempts, each with its own bridge connection (default eval.workers)")
	useTUI := flag.Bool("tui", false, "show the live evaluation view")
	flag.Parse()

	_ = godotenv.Load(".env")

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(2)
	}
	if *taskName != "" {
		cfg.Eval.TaskName = *taskName
	}
	if *loops > 0 {
		cfg.Eval.GoalRatio = *loops
	}
	if *workers > 0 {
		cfg.Eval.Workers = *workers
	}
	if cfg.Eval.Workers < 1 {
		cfg.Eval.Workers = 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *useTUI); err != nil {
		log.Fatalf("evaluate: %v", err)
	}
}

// #endregion main

// #region setup
func run(ctx context.Context, cfg config.Config, useTUI bool) error {
	tasks, err := config.LoadTasks(cfg.Paths.TaskInfo)
	if err != nil {
		return err
	}
	t, err := tasks.Get(cfg.Eval.TaskName)
	if err != nil {
		return err
	}
	task := episode.Task{
		Name:     cfg.Eval.TaskName,
		Object:   t.Object,
		MaxSteps: t.Episode,
		Question: t.Question,
		Group:    t.Group,
	}

	mapping, err := config.LoadGoalMapping(cfg.Paths.GoalMapping)
	if err != nil {
		return err
	}
	recipes, err := craft.LoadCatalogue(cfg.Paths.Recipes)
	if err != nil {
		return err
	}

	store, err := state.NewStore(cfg.Paths.DB)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	memory, err := orchestrator.NewGoalMemory(store.DB())
	if err != nil {
		return err
	}

	bridges, err := newBridgePool(cfg.Bridge.Addr, cfg.Eval.Workers)
	if err != nil {
		return err
	}
	defer bridges.Close()

	// goal embeddings are computed once per run and shared by every attempt
	embeddings, err := eval.EnsureEmbeddings(ctx, store, bridges.first(), mapping.Labels(), false)
	if err != nil {
		return err
	}

	gen, err := planner.NewGeminiGenerator(ctx, cfg.Planner.APIKey, cfg.Planner.Model)
	if err != nil {
		return err
	}
	defer gen.Close()

	thresholds := cfg.Monitor
	factory := func(_ context.Context, a eval.Attempt) (*episode.Driver, error) {
		bridge := bridges.acquire(a.Iteration)
		tracker := craft.NewTracker(bridge)
		controller := craft.NewController(recipes, bridge, tracker)
		dispatcher := orchestrator.NewDispatcher(bridge, controller, bridge, mapping.Horizon, embeddings)
		return episode.NewDriver(tracker, planner.NewLLMPlanner(gen), dispatcher, monitor.NewMonitor(thresholds), a.Recorder,
			episode.Options{
				EpisodeID: a.EpisodeID,
				WindowLen: cfg.Data.WindowLen,
				SkipFrame: cfg.Data.SkipFrame,
				FPS:       cfg.Eval.FPS,
			}), nil
	}

	ec := eval.DefaultEvalConfig()
	ec.TraceDir = cfg.Paths.TraceDir
	ec.Workers = cfg.Eval.Workers

	var out io.Writer = os.Stdout
	if useTUI {
		out = io.Discard
	}
	evaluator := eval.NewEvaluator(ec, store, store.DB(), memory, factory, out)
	evaluator.OnAttempt(func(r eval.AttemptResult) { bridges.release(r.Iteration) })

	fmt.Fprintf(os.Stderr, "Horizon evaluator ready.\n  Task: %s | Attempts: %d | Workers: %d\n  DB: %s | Bridge: %s\n",
		task.Name, cfg.Eval.GoalRatio, cfg.Eval.Workers, cfg.Paths.DB, cfg.Bridge.Addr)

	if !useTUI {
		_, err := evaluate(ctx, evaluator, task, cfg.Eval.GoalRatio, cfg.Eval.Workers)
		return err
	}
	return runTUI(ctx, evaluator, task, cfg.Eval.GoalRatio, cfg.Eval.Workers)
}

func evaluate(ctx context.Context, ev *eval.Evaluator, task episode.Task, loops, workers int) (eval.Summary, error) {
	if workers > 1 {
		return ev.RunParallel(ctx, task, loops)
	}
	return ev.Evaluate(ctx, task, loops)
}

// #endregion setup

// #region tui
// runTUI drives the evaluation behind the live view. Quitting the view cancels
// the evaluation.
func runTUI(ctx context.Context, ev *eval.Evaluator, task episode.Task, loops, workers int) error {
	logFile, err := tea.LogToFile("evaluate.log", "")
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	feed := tui.NewFeed(64)
	ev.Observe(feed)
	ev.OnAttempt(feed.Attempt)

	var (
		summary eval.Summary
		evalErr error
		done    = make(chan struct{})
	)
	go func() {
		defer close(done)
		summary, evalErr = evaluate(ctx, ev, task, loops, workers)
		feed.Finish(summary)
	}()

	p := tea.NewProgram(tui.New(task.Name, loops, task.MaxSteps, feed), tea.WithAltScreen())
	_, err = p.Run()
	cancel()
	<-done
	if err != nil {
		return fmt.Errorf("run tui: %w", err)
	}

	fmt.Printf("success rate: %g\naverage episode length: %g\n", summary.SuccessRate, summary.AvgEpisodeLength)
	return evalErr
}

// #endregion tui

// #region bridges
// bridgePool hands each concurrent attempt its own bridge connection.
type bridgePool struct {
	mu    sync.Mutex
	all   []*codec.CodecClient
	free  chan *codec.CodecClient
	inUse map[int]*codec.CodecClient
}

func newBridgePool(addr string, size int) (*bridgePool, error) {
	p := &bridgePool{free: make(chan *codec.CodecClient, size), inUse: make(map[int]*codec.CodecClient)}
	for i := 0; i < size; i++ {
		c, err := codec.NewCodecClient(addr)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("connect to bridge at %s: %w", addr, err)
		}
		p.all = append(p.all, c)
		p.free <- c
	}
	return p, nil
}

func (p *bridgePool) first() *codec.CodecClient { return p.all[0] }

func (p *bridgePool) acquire(iteration int) *codec.CodecClient {
	c := <-p.free
	p.mu.Lock()
	p.inUse[iteration] = c
	p.mu.Unlock()
	return c
}

func (p *bridgePool) release(iteration int) {
	p.mu.Lock()
	c, ok := p.inUse[iteration]
	delete(p.inUse, iteration)
	p.mu.Unlock()
	if ok {
		p.free <- c
	}
}

func (p *bridgePool) Close() {
	for _, c := range p.all {
		c.Close()
	}
}

// #endregion bridges
