package craft

import (
	"context"
	"log"
	"sync"

	"github.com/danielpatrickdp/horizon/go-controller/internal/env"
	"github.com/danielpatrickdp/horizon/go-controller/internal/goal"
	"github.com/danielpatrickdp/horizon/go-controller/internal/inventory"
)

// Placement budgets per target.
const (
	DefaultPlaceAttempts  = 3
	DefaultCraftsPerPlace = 20
)

// #region interfaces
// Environment is the subset of the simulator the tracker wraps.
type Environment interface {
	Reset(ctx context.Context) (env.Observation, error)
	Step(ctx context.Context, action env.Action) (env.StepResult, error)
	NoOp() env.Action
}

// InventorySource reports the most recent inventory.
type InventorySource interface {
	Inventory() inventory.Snapshot
}
// #endregion interfaces

// #region tracker
// Tracker passes calls through to an Environment and remembers the inventory
// of the last step so the controller can pick slots.
type Tracker struct {
	Environment

	mu  sync.Mutex
	inv inventory.Snapshot
}

// NewTracker wraps e.
func NewTracker(e Environment) *Tracker {
	return &Tracker{Environment: e}
}

// Reset clears the remembered inventory and resets the wrapped environment.
func (t *Tracker) Reset(ctx context.Context) (env.Observation, error) {
	t.mu.Lock()
	t.inv = nil
	t.mu.Unlock()
	return t.Environment.Reset(ctx)
}

// Step forwards action and records the resulting inventory.
func (t *Tracker) Step(ctx context.Context, action env.Action) (env.StepResult, error) {
	res, err := t.Environment.Step(ctx, action)
	if err != nil {
		return res, err
	}
	t.mu.Lock()
	t.inv = append(inventory.Snapshot(nil), res.Info.Inventory...)
	t.mu.Unlock()
	return res, nil
}

// Inventory returns the inventory seen on the last successful step.
func (t *Tracker) Inventory() inventory.Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append(inventory.Snapshot(nil), t.inv...)
}
// #endregion tracker

// #region controller
type phase int

const (
	phasePlace phase = iota
	phaseCraft
)

// Controller is the scripted crafting strategy. For each target it places the
// required station, then issues the craft action. If CraftsPerPlace crafts go by
// without the target count rising, the station is placed again, at most
// PlaceAttempts times.
type Controller struct {
	recipes *Catalogue
	space   interface{ NoOp() env.Action }
	inv     InventorySource

	PlaceAttempts  int
	CraftsPerPlace int

	target   string
	phase    phase
	placed   int
	crafts   int
	baseline int
}

// NewController creates a controller. space supplies the no-op action every
// emitted action is derived from; inv supplies slot indices for placement.
func NewController(recipes *Catalogue, space interface{ NoOp() env.Action }, inv InventorySource) *Controller {
	return &Controller{
		recipes:        recipes,
		space:          space,
		inv:            inv,
		PlaceAttempts:  DefaultPlaceAttempts,
		CraftsPerPlace: DefaultCraftsPerPlace,
	}
}

// GetAction returns the next action toward target and whether the controller
// considers its script finished. done is a hint only.
func (c *Controller) GetAction(preconditions []string, t goal.Type, target string) (env.Action, bool) {
	noop := c.space.NoOp()
	inv := c.inv.Inventory()
	if target != c.target {
		c.reset(target, inventory.Count(inv, target))
	}

	rec, ok := c.recipes.Lookup(target)
	if !ok {
		log.Printf("[CRAFT] no recipe for %q", target)
		return noop, false
	}
	station := stationFor(t, preconditions, rec)

	if c.phase == phaseCraft && station != StationHand && c.crafts >= c.CraftsPerPlace {
		if have := inventory.Count(inv, target); have <= c.baseline && c.placed < c.PlaceAttempts {
			log.Printf("[CRAFT] %s not produced after %d crafts, placing %s again", target, c.crafts, station)
			c.phase = phasePlace
		}
		c.baseline = inventory.Count(inv, target)
		c.crafts = 0
	}

	if c.phase == phasePlace {
		c.phase = phaseCraft
		if station != StationHand && c.placed < c.PlaceAttempts {
			if slot, ok := inventory.FindSlot(inv, string(station)); ok {
				c.placed++
				log.Printf("[CRAFT] place %s from slot %d for %s (attempt %d)", station, slot.Index, target, c.placed)
				return env.Place(noop, slot.Index), false
			}
		}
	}

	if !inventory.Holds(inv, rec.Inputs) {
		log.Printf("[CRAFT] missing inputs for %s: have %s", target, inventory.Describe(inv))
		return noop, false
	}
	c.crafts++
	return env.Craft(noop, rec.ID), true
}

// Reset forgets the current target so the next GetAction starts a fresh script
// with the full placement budget, even for the same item.
func (c *Controller) Reset() {
	c.target = ""
	c.phase = phasePlace
	c.placed = 0
	c.crafts = 0
	c.baseline = 0
}

// Target returns the item the controller is currently working toward.
func (c *Controller) Target() string { return c.target }

func (c *Controller) reset(target string, have int) {
	c.target = target
	c.phase = phasePlace
	c.placed = 0
	c.crafts = 0
	c.baseline = have
}

// stationFor resolves where target must be made. Smelting always needs a
// furnace; crafting needs a table only when the goal lists one.
func stationFor(t goal.Type, preconditions []string, rec Recipe) Station {
	switch t {
	case goal.Smelt:
		return StationFurnace
	case goal.Craft:
		for _, p := range preconditions {
			if p == string(StationCraftingTable) {
				return StationCraftingTable
			}
		}
		if rec.Station == StationFurnace {
			return StationFurnace
		}
	}
	return StationHand
}
// #endregion controller
