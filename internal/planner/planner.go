package planner

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log"
	"regexp"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/horizon/go-controller/internal/goal"
	"github.com/danielpatrickdp/horizon/go-controller/internal/inventory"
)

//go:embed prompts/initial_planning.txt
var initialPlanningPrompt string

//go:embed prompts/replan.txt
var replanPrompt string

//go:embed prompts/explanation.txt
var explanationPrompt string

var (
	initialTmpl     = template.Must(template.New("initial_planning").Parse(initialPlanningPrompt))
	replanTmpl      = template.Must(template.New("replan").Parse(replanPrompt))
	explanationTmpl = template.Must(template.New("explanation").Parse(explanationPrompt))
)

var fencedYAML = regexp.MustCompile("(?s)```(?:yaml|yml)?\\s*\\n(.*?)```")

// #region generator
// Generator turns a prompt into model text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
// #endregion generator

// #region planner
// LLMPlanner keeps the running dialogue with a language model and turns its
// replies into goal lists.
type LLMPlanner struct {
	gen      Generator
	dialogue []string
}

// NewLLMPlanner creates a planner backed by gen.
func NewLLMPlanner(gen Generator) *LLMPlanner {
	return &LLMPlanner{gen: gen}
}

// Reset clears the dialogue for a new episode.
func (p *LLMPlanner) Reset() {
	p.dialogue = nil
}

// Dialogue returns a copy of the dialogue so far.
func (p *LLMPlanner) Dialogue() []string {
	return append([]string(nil), p.dialogue...)
}

// InitialPlanning asks for the first plan of the task.
func (p *LLMPlanner) InitialPlanning(ctx context.Context, group, question string) (string, error) {
	prompt, err := render(initialTmpl, struct{ Group, Question string }{group, question})
	if err != nil {
		return "", err
	}
	p.say("Human", fmt.Sprintf("How to %s?", question))
	plan, err := p.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("initial planning: %w", err)
	}
	p.say("Planner", plan)
	log.Printf("[PLANNER] initial plan for %q: %d chars", question, len(plan))
	return plan, nil
}

// Replan asks for a corrected plan given the dialogue so far.
func (p *LLMPlanner) Replan(ctx context.Context, question string) (string, error) {
	prompt, err := render(replanTmpl, struct {
		Dialogue []string
		Question string
	}{p.dialogue, question})
	if err != nil {
		return "", err
	}
	p.say("Human", fmt.Sprintf("Please fix the above errors and replan the task %q.", question))
	plan, err := p.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("replan: %w", err)
	}
	p.say("Planner", plan)
	log.Printf("[PLANNER] replan for %q: %d chars", question, len(plan))
	return plan, nil
}

// Explanation asks the model why the last goal failed and keeps the answer.
func (p *LLMPlanner) Explanation(ctx context.Context) error {
	prompt, err := render(explanationTmpl, struct{ Dialogue []string }{p.dialogue})
	if err != nil {
		return err
	}
	text, err := p.gen.Generate(ctx, prompt)
	if err != nil {
		return fmt.Errorf("explanation: %w", err)
	}
	p.say("Planner", text)
	return nil
}

// SuccessDescription notes that the goal at ranking finished.
func (p *LLMPlanner) SuccessDescription(ranking int) {
	p.say("Human", fmt.Sprintf("I succeed on step %d.", ranking))
}

// FailureDescription notes that the goal at ranking failed.
func (p *LLMPlanner) FailureDescription(ranking int) {
	p.say("Human", fmt.Sprintf("I fail on step %d.", ranking))
}

// InventoryDescription narrates the current inventory.
func (p *LLMPlanner) InventoryDescription(inv inventory.Snapshot) {
	p.say("Human", fmt.Sprintf("My inventory now has %s.", inventory.Describe(inv)))
}

// GenerateGoalList extracts the goal list from a plan. Anything that does not
// parse yields an empty list, which the queue replaces with its fallback goal.
func (p *LLMPlanner) GenerateGoalList(plan string) []goal.Subgoal {
	return ParseGoalList(plan)
}

func (p *LLMPlanner) say(speaker, text string) {
	p.dialogue = append(p.dialogue, speaker+": "+strings.TrimSpace(text))
}
// #endregion planner

// #region parse
// ParseGoalList reads the last fenced YAML block of text, or the whole text
// when there is no fence, as a list of subgoals. Goals with an unknown type or
// no object are dropped.
func ParseGoalList(text string) []goal.Subgoal {
	body := text
	if m := fencedYAML.FindAllStringSubmatch(text, -1); len(m) > 0 {
		body = m[len(m)-1][1]
	}

	var raw []goal.Subgoal
	if err := yaml.Unmarshal([]byte(body), &raw); err != nil {
		log.Printf("[PLANNER] goal list did not parse: %v", err)
		return []goal.Subgoal{}
	}

	out := make([]goal.Subgoal, 0, len(raw))
	for i, g := range raw {
		if !g.Type.Valid() || len(g.Object) == 0 {
			log.Printf("[PLANNER] dropping goal %d %q: type=%q object=%v", i, g.Name, g.Type, g.Object)
			continue
		}
		if g.Precondition == nil {
			g.Precondition = inventory.Requirements{}
		}
		if g.Ranking == 0 {
			g.Ranking = len(out) + 1
		}
		out = append(out, g)
	}
	return out
}
// #endregion parse

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}
