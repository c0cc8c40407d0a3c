package episode

// #region imports
import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/danielpatrickdp/horizon/go-controller/internal/env"
	"github.com/danielpatrickdp/horizon/go-controller/internal/goal"
	"github.com/danielpatrickdp/horizon/go-controller/internal/inventory"
	"github.com/danielpatrickdp/horizon/go-controller/internal/monitor"
	"github.com/danielpatrickdp/horizon/go-controller/internal/orchestrator"
	"github.com/danielpatrickdp/horizon/go-controller/internal/trace"
	"github.com/danielpatrickdp/horizon/go-controller/internal/window"
)

// #endregion

// #region driver-struct

// Driver runs one episode at a time. It owns the goal queue, the episode
// counters and the observation buffer for the duration of Run.
type Driver struct {
	env        Environment
	planner    Planner
	dispatcher Dispatcher
	monitor    *monitor.Monitor
	recorder   *trace.Recorder
	opts       Options

	outcomes  OutcomeRecorder
	observers []Observer
}

// NewDriver wires a driver. recorder receives every goal transition.
func NewDriver(e Environment, p Planner, d Dispatcher, m *monitor.Monitor, recorder *trace.Recorder, opts Options) *Driver {
	return &Driver{
		env:        e,
		planner:    p,
		dispatcher: d,
		monitor:    m,
		recorder:   recorder,
		opts:       opts,
	}
}

// WithGoalMemory records per-goal outcomes in mem.
func (d *Driver) WithGoalMemory(mem OutcomeRecorder) *Driver {
	d.outcomes = mem
	return d
}

// Observe adds observers notified after every step.
func (d *Driver) Observe(obs ...Observer) *Driver {
	d.observers = append(d.observers, obs...)
	return d
}

// #endregion

// #region run

// run is the mutable state of one Run call.
type run struct {
	task       Task
	q          goal.Queue
	st         monitor.EpisodeState
	buf        *window.Buffer
	inv        inventory.Snapshot
	initDeaths int
	deaths     int
	version    int
	seek       int
	goalStart  int
	strategy   orchestrator.StrategyID
}

// markGoalStart notes the step the current goal began at.
func (r *run) markGoalStart() { r.goalStart = r.st.Step }

func (r *run) result() Result {
	return Result{
		Final:        monitor.PhaseRunning,
		Steps:        r.st.Step,
		ReplanRounds: r.st.ReplanRounds,
		Deaths:       r.deaths - r.initDeaths,
	}
}

// Run plays task until success, abort or the step budget runs out.
// Environment, policy and planner errors are returned as-is for the caller to
// recover; a run that cannot continue returns ErrEpisodeAborted.
func (d *Driver) Run(ctx context.Context, task Task) (Result, error) {
	r, err := d.start(ctx, task)
	if err != nil {
		return Result{}, err
	}

	for r.st.Step < task.MaxSteps {
		if err := ctx.Err(); err != nil {
			return r.result(), err
		}
		d.delay()

		g, err := r.q.Current()
		if err != nil {
			return d.abort(r, err)
		}
		if r.q.Version() != r.version {
			r.version = r.q.Version()
			r.seek = r.buf.Len() - 1
			d.dispatcher.ResetGoal()
			log.Printf("[EPISODE] step %d: current goal %s", r.st.Step, g)
		}

		action, err := d.act(ctx, r, g)
		if err != nil {
			return r.result(), err
		}

		out, err := d.env.Step(ctx, action)
		if err != nil {
			return r.result(), fmt.Errorf("step environment: %w", err)
		}
		r.buf.Append(window.Preprocess(out.Obs), action)
		r.inv = out.Info.Inventory
		r.deaths = out.Info.Deaths
		r.st = r.st.Tick()

		verdict := d.monitor.Evaluate(r.st, g, task.Object, r.inv)
		done, res, err := d.apply(ctx, r, g, verdict)
		d.notify(r, g, verdict)
		if done || err != nil {
			return res, err
		}
	}

	log.Printf("[EPISODE] %s: step budget %d exhausted", task.Name, task.MaxSteps)
	d.recordUnfinished(r)
	res := r.result()
	res.Reason = "step budget exhausted"
	return res, nil
}

// start plans, resets the environment and takes the no-op tick that reads the
// initial inventory and death counter.
func (d *Driver) start(ctx context.Context, task Task) (*run, error) {
	d.planner.Reset()
	plan, err := d.planner.InitialPlanning(ctx, task.Group, task.Question)
	if err != nil {
		return nil, fmt.Errorf("initial planning: %w", err)
	}
	r := &run{
		task: task,
		q:    goal.NewQueue(d.planner.GenerateGoalList(plan)),
		buf:  window.NewBuffer(env.ActionDim),
	}

	obs, err := d.env.Reset(ctx)
	if err != nil {
		return nil, fmt.Errorf("reset environment: %w", err)
	}
	r.buf.Append(window.Preprocess(obs), nil)

	first, err := d.env.Step(ctx, d.env.NoOp())
	if err != nil {
		return nil, fmt.Errorf("initial step: %w", err)
	}
	r.inv = first.Info.Inventory
	r.initDeaths = first.Info.Deaths
	r.deaths = first.Info.Deaths

	d.recorder.Record(0, trace.KindStart, r.q, d.planner.Dialogue())
	log.Printf("[EPISODE] %s: start with %d goals, budget %d", task.Name, r.q.Len(), task.MaxSteps)
	return r, nil
}

// #endregion

// #region act

// act dispatches g and steps any equip actions. Goals of an unsupported type
// become a no-op step so the episode keeps ticking. A mine target with no goal
// label fails the attempt.
func (d *Driver) act(ctx context.Context, r *run, g goal.Subgoal) (env.Action, error) {
	states := r.buf.ReadWindow(r.seek, d.opts.WindowLen, d.opts.SkipFrame)

	r.strategy = ""
	dec, err := d.dispatcher.Dispatch(ctx, g, states, r.inv)
	switch {
	case err == nil:
	case errors.Is(err, orchestrator.ErrUnsupportedGoalType):
		log.Printf("[EPISODE] step %d goal=%s: %v, stepping no-op", r.st.Step, g.Name, err)
		return d.env.NoOp(), nil
	default:
		return nil, fmt.Errorf("dispatch %s: %w", g.Name, err)
	}
	r.strategy = dec.Strategy

	for _, eq := range dec.Equip {
		if _, err := d.env.Step(ctx, eq); err != nil {
			return nil, fmt.Errorf("equip step: %w", err)
		}
	}
	if dec.Action == nil {
		return d.env.NoOp(), nil
	}
	return dec.Action, nil
}

// #endregion

// #region transitions

// apply carries out the monitor's verdict. done reports that the episode ended.
func (d *Driver) apply(ctx context.Context, r *run, g goal.Subgoal, v monitor.Verdict) (bool, Result, error) {
	switch v.Phase {
	case monitor.PhaseSuccess:
		log.Printf("[EPISODE] %s: success at step %d (%s)", r.task.Name, r.st.Step, v.Reason)
		d.planner.SuccessDescription(g.Ranking)
		d.recordOutcome(r, g, orchestrator.OutcomeCompleted)
		d.recorder.Record(r.st.Step, trace.KindSuccess, r.q, d.planner.Dialogue())
		res := r.result()
		res.Final = monitor.PhaseSuccess
		res.Success = true
		res.Reason = v.Reason
		return true, res, nil

	case monitor.PhaseAdvance:
		log.Printf("[EPISODE] step %d: finish goal %s", r.st.Step, g.Name)
		d.planner.SuccessDescription(g.Ranking)
		d.recordOutcome(r, g, orchestrator.OutcomeCompleted)
		st, q, err := d.monitor.Advance(r.st, r.q)
		if err != nil {
			res, err := d.abort(r, err)
			return true, res, err
		}
		r.st, r.q = st, q
		r.markGoalStart()
		d.recorder.Record(r.st.Step, trace.KindAdvance, r.q, d.planner.Dialogue())

	case monitor.PhaseReplan:
		log.Printf("[EPISODE] step %d: replan (%s)", r.st.Step, v.Reason)
		d.planner.FailureDescription(g.Ranking)
		d.planner.InventoryDescription(r.inv)
		if err := d.planner.Explanation(ctx); err != nil {
			return true, r.result(), fmt.Errorf("explain failure: %w", err)
		}
		plan, err := d.planner.Replan(ctx, r.task.Question)
		if err != nil {
			return true, r.result(), fmt.Errorf("replan: %w", err)
		}
		d.recordOutcome(r, g, orchestrator.OutcomeReplanned)

		st, q, phase := d.monitor.Replan(r.st, r.q, d.planner.GenerateGoalList(plan))
		r.st, r.q = st, q
		r.markGoalStart()
		d.recorder.Record(r.st.Step, trace.KindReplan, r.q, d.planner.Dialogue())
		if phase == monitor.PhaseAborted {
			log.Printf("[EPISODE] %s: replan rounds exhausted at step %d", r.task.Name, r.st.Step)
			res := r.result()
			res.Final = monitor.PhaseAborted
			res.Reason = "replan budget exhausted"
			return true, res, nil
		}
	}
	return false, Result{}, nil
}

// abort ends the episode on a queue error.
func (d *Driver) abort(r *run, cause error) (Result, error) {
	log.Printf("[EPISODE] %s: aborted at step %d: %v", r.task.Name, r.st.Step, cause)
	res := r.result()
	res.Final = monitor.PhaseAborted
	res.Aborted = true
	res.Reason = cause.Error()
	return res, fmt.Errorf("%w: %w", ErrEpisodeAborted, cause)
}

// #endregion

// #region bookkeeping

func (d *Driver) recordOutcome(r *run, g goal.Subgoal, outcome orchestrator.Outcome) {
	if d.outcomes == nil {
		return
	}
	sid, _ := orchestrator.SelectStrategy(g.Type)
	err := d.outcomes.RecordOutcome(orchestrator.GoalOutcome{
		EpisodeID: d.opts.EpisodeID,
		Task:      r.task.Name,
		GoalName:  g.Name,
		GoalType:  g.Type,
		Strategy:  sid,
		Outcome:   outcome,
		Steps:     r.st.Step - r.goalStart,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Printf("[EPISODE] record outcome for %s: %v", g.Name, err)
	}
}

func (d *Driver) recordUnfinished(r *run) {
	if g, err := r.q.Current(); err == nil {
		d.recordOutcome(r, g, orchestrator.OutcomeUnfinished)
	}
}

func (d *Driver) notify(r *run, g goal.Subgoal, v monitor.Verdict) {
	if len(d.observers) == 0 {
		return
	}
	ev := Event{
		EpisodeID:    d.opts.EpisodeID,
		Step:         r.st.Step,
		GoalEps:      r.st.GoalEps,
		Goal:         g,
		Strategy:     r.strategy,
		Verdict:      v,
		Inventory:    append(inventory.Snapshot(nil), r.inv...),
		ReplanRounds: r.st.ReplanRounds,
		Deaths:       r.deaths - r.initDeaths,
	}
	for _, o := range d.observers {
		o.OnStep(ev)
	}
}

func (d *Driver) delay() {
	if d.opts.FPS > 0 {
		time.Sleep(time.Second / time.Duration(d.opts.FPS))
	}
}

// #endregion
