package eval

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/danielpatrickdp/horizon/go-controller/internal/episode"
	"github.com/danielpatrickdp/horizon/go-controller/internal/logging"
	"github.com/danielpatrickdp/horizon/go-controller/internal/orchestrator"
	"github.com/danielpatrickdp/horizon/go-controller/internal/state"
	"github.com/danielpatrickdp/horizon/go-controller/internal/trace"
)

// #region evaluator
// Evaluator runs repeated attempts of a task and aggregates the results.
type Evaluator struct {
	config  EvalConfig
	store   Store
	db      *sql.DB
	memory  *orchestrator.GoalMemory
	factory DriverFactory
	out     io.Writer

	observers []episode.Observer
	onAttempt []func(AttemptResult)
	mu        sync.Mutex // guards out
}

// NewEvaluator creates an evaluator. db receives transition rows and may be
// nil; memory may be nil. Progress lines are written to out.
func NewEvaluator(config EvalConfig, store Store, db *sql.DB, memory *orchestrator.GoalMemory, factory DriverFactory, out io.Writer) *Evaluator {
	if config.Workers < 1 {
		config.Workers = 1
	}
	return &Evaluator{
		config:  config,
		store:   store,
		db:      db,
		memory:  memory,
		factory: factory,
		out:     out,
	}
}

// Observe adds observers attached to every attempt's driver.
func (e *Evaluator) Observe(obs ...episode.Observer) {
	e.observers = append(e.observers, obs...)
}

// OnAttempt registers fn to be called after every finished attempt. Under
// RunParallel fn is called from the worker goroutines.
func (e *Evaluator) OnAttempt(fn func(AttemptResult)) {
	e.onAttempt = append(e.onAttempt, fn)
}

// #endregion evaluator

// #region evaluate
// Evaluate runs loops attempts of task one after another. An attempt that
// errors counts as a failure with length zero and evaluation continues.
func (e *Evaluator) Evaluate(ctx context.Context, task episode.Task, loops int) (Summary, error) {
	results := make([]AttemptResult, 0, loops)
	successes := 0
	for i := 0; i < loops; i++ {
		if err := ctx.Err(); err != nil {
			return summarize(task.Name, results), err
		}
		r := e.attempt(ctx, task, i)
		results = append(results, r)
		if r.Success {
			successes++
		}
		e.printIteration(task.Name, r, successes, i+1)
	}
	s := summarize(task.Name, results)
	e.printSummary(s)
	return s, nil
}

// RunParallel runs loops attempts of task across the configured workers.
// Results are ordered by iteration regardless of completion order. The
// success rate printed per iteration is over attempts finished so far.
func (e *Evaluator) RunParallel(ctx context.Context, task episode.Task, loops int) (Summary, error) {
	results := make([]AttemptResult, loops)
	ran := make([]bool, loops)
	jobs := make(chan int)

	var (
		progress            sync.Mutex
		finished, successes int
	)
	var wg sync.WaitGroup
	for w := 0; w < e.config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				r := e.attempt(ctx, task, i)
				results[i], ran[i] = r, true

				progress.Lock()
				finished++
				if r.Success {
					successes++
				}
				e.printIteration(task.Name, r, successes, finished)
				progress.Unlock()
			}
		}()
	}

	var err error
	for i := 0; i < loops; i++ {
		if err = ctx.Err(); err != nil {
			break
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var done []AttemptResult
	for i, r := range results {
		if ran[i] {
			done = append(done, r)
		}
	}
	s := summarize(task.Name, done)
	e.printSummary(s)
	return s, err
}

// #endregion evaluate

// #region attempt
// attempt runs one episode with fresh state and persists its outcome.
func (e *Evaluator) attempt(ctx context.Context, task episode.Task, i int) AttemptResult {
	out := AttemptResult{Iteration: i}

	rec, err := e.store.BeginEpisode(task.Name, i)
	if err != nil {
		out.Err = err
		log.Printf("[EVAL] iteration %d: %v", i, err)
		for _, fn := range e.onAttempt {
			fn(out)
		}
		return out
	}
	out.EpisodeID = rec.EpisodeID

	var sinks []trace.Sink
	if e.config.TraceDir != "" {
		fileSink, err := trace.NewJSONFileSink(e.config.TraceDir, task.Name, shortID(rec.EpisodeID))
		if err != nil {
			log.Printf("[EVAL] iteration %d: trace file disabled: %v", i, err)
		} else {
			sinks = append(sinks, fileSink)
			rec.TracePath = fileSink.Path()
		}
	}
	if e.db != nil {
		sinks = append(sinks, logging.NewSQLiteSink(e.db, rec.EpisodeID))
	}

	drv, err := e.factory(ctx, Attempt{Iteration: i, EpisodeID: rec.EpisodeID, Recorder: trace.NewRecorder(sinks...)})
	if err != nil {
		out.Err = fmt.Errorf("build driver: %w", err)
	} else {
		if e.memory != nil {
			drv.WithGoalMemory(e.memory)
		}
		drv.Observe(e.stepLog(rec.EpisodeID))
		drv.Observe(e.observers...)
		out.Result, out.Err = drv.Run(ctx, task)
	}

	if out.Err != nil {
		log.Printf("[EVAL] %s iteration %d failed: %v", task.Name, i, out.Err)
		rec.Outcome = "error"
	} else {
		out.Success = out.Result.Success
		out.Length = out.Result.Steps
		rec.Outcome = out.Result.Outcome()
	}
	rec.Steps = out.Length
	rec.ReplanRounds = out.Result.ReplanRounds
	rec.Deaths = out.Result.Deaths
	if err := e.store.FinishEpisode(rec); err != nil {
		log.Printf("[EVAL] finish episode %s: %v", rec.EpisodeID, err)
	}
	for _, fn := range e.onAttempt {
		fn(out)
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// stepLog writes the inventory of every step to the store.
func (e *Evaluator) stepLog(episodeID string) episode.Observer {
	return episode.ObserverFunc(func(ev episode.Event) {
		err := e.store.RecordStep(state.StepRecord{
			EpisodeID: episodeID,
			Step:      ev.Step,
			GoalName:  ev.Goal.Name,
			Inventory: ev.Inventory,
		})
		if err != nil {
			log.Printf("[EVAL] record step %d: %v", ev.Step, err)
		}
	})
}

// #endregion attempt

// #region summary
func summarize(task string, results []AttemptResult) Summary {
	s := Summary{Task: task, Attempts: len(results), Results: results}
	total := 0
	for _, r := range results {
		if r.Success {
			s.Successes++
			total += r.Length
		}
	}
	if s.Attempts > 0 {
		s.SuccessRate = float64(s.Successes) / float64(s.Attempts)
	}
	if s.Successes > 0 {
		s.AvgEpisodeLength = float64(total) / float64(s.Successes)
	}
	return s
}

func (e *Evaluator) printIteration(task string, r AttemptResult, successes, finished int) {
	e.printf("Task %s | Iteration %d | Successful %t | Episode length %d | Success rate %g\n",
		task, r.Iteration, r.Success, r.Length, float64(successes)/float64(finished))
}

func (e *Evaluator) printSummary(s Summary) {
	e.printf("success rate: %g\n", s.SuccessRate)
	e.printf("average episode length: %g\n", s.AvgEpisodeLength)
}

func (e *Evaluator) printf(format string, args ...any) {
	if e.out == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprintf(e.out, format, args...)
}

// #endregion summary
