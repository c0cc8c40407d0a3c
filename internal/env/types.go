package env

import "github.com/danielpatrickdp/horizon/go-controller/internal/inventory"

// #region observation
// Observation is one raw multi-modal frame returned by the simulator.
type Observation struct {
	RGB     []byte     `json:"rgb,omitempty"`
	Width   int        `json:"width"`
	Height  int        `json:"height"`
	Voxels  []int64    `json:"voxels"`
	Compass []float32  `json:"compass"`
	GPS     [3]float64 `json:"gps"`
	Biome   int64      `json:"biome_id"`
}
// #endregion observation

// #region action
// Action is a MineDojo multi-discrete action vector.
type Action []int32

// MineDojo action layout (8 dimensions).
const (
	ActionDim = 8

	IndexFunctional = 5
	IndexCraftArg   = 6
	IndexSlot       = 7

	FunctionalCraft = 4
	FunctionalEquip = 5
	FunctionalPlace = 6
)

// NoOp returns the MineDojo identity action. Camera pitch and yaw (dims 3, 4)
// rest at their centre bin.
func NoOp() Action {
	return Action{0, 0, 0, 12, 12, 0, 0, 0}
}

// Clone returns an independent copy of a.
func (a Action) Clone() Action {
	return append(Action(nil), a...)
}

// IsZero reports whether every component is zero.
func (a Action) IsZero() bool {
	for _, v := range a {
		if v != 0 {
			return false
		}
	}
	return true
}

// Equip derives an inventory-select action for slot from noop.
func Equip(noop Action, slot int) Action {
	act := padded(noop)
	act[IndexFunctional] = FunctionalEquip
	act[IndexSlot] = int32(slot)
	return act
}

// Place derives a place-block action for the item in slot.
func Place(noop Action, slot int) Action {
	act := padded(noop)
	act[IndexFunctional] = FunctionalPlace
	act[IndexSlot] = int32(slot)
	return act
}

// Craft derives a craft action for recipe id.
func Craft(noop Action, recipe int) Action {
	act := padded(noop)
	act[IndexFunctional] = FunctionalCraft
	act[IndexCraftArg] = int32(recipe)
	return act
}

func padded(noop Action) Action {
	act := make(Action, ActionDim)
	copy(act, noop)
	return act
}
// #endregion action

// #region step-result
// Info is the subset of simulator info the controller reads.
type Info struct {
	Inventory inventory.Snapshot `json:"inventory"`
	Deaths    int                `json:"deaths"`
}

// StepResult is the outcome of one environment step.
type StepResult struct {
	Obs    Observation
	Reward float64
	Done   bool
	Info   Info
}
// #endregion step-result
