package inventory

import (
	"fmt"
	"sort"
	"strings"
)

// #region types
// Slot is one occupied inventory slot as reported by the simulator.
type Slot struct {
	Name     string `json:"name" yaml:"name"`
	Quantity int    `json:"quantity" yaml:"quantity"`
	Index    int    `json:"index" yaml:"index"`
}

// Snapshot is the full inventory at one timestep. Slot 0 is the active hotbar item.
type Snapshot []Slot

// Requirements maps item name to the minimum count that must be held.
type Requirements map[string]int
// #endregion types

// #region tools
var toolSet = map[string]bool{
	"wooden_pickaxe":  true,
	"stone_pickaxe":   true,
	"iron_pickaxe":    true,
	"diamond_pickaxe": true,
	"wooden_axe":      true,
	"stone_axe":       true,
	"iron_axe":        true,
	"diamond_axe":     true,
}

// IsTool reports whether name belongs to the tiered pickaxe/axe set.
func IsTool(name string) bool {
	return toolSet[name]
}
// #endregion tools

// #region predicates
// Count sums the quantity of every slot named name.
func Count(inv Snapshot, name string) int {
	total := 0
	for _, s := range inv {
		if s.Name == name {
			total += s.Quantity
		}
	}
	return total
}

// Holds reports whether every requirement is met by the summed slot quantities.
// Empty requirements always hold.
func Holds(inv Snapshot, req Requirements) bool {
	for name, want := range req {
		if Count(inv, name) < want {
			return false
		}
	}
	return true
}

// Contains reports whether any slot carries name, regardless of quantity.
func Contains(inv Snapshot, name string) bool {
	for _, s := range inv {
		if s.Name == name {
			return true
		}
	}
	return false
}

// Held returns the name of the active item (slot 0), or "" for an empty snapshot.
func Held(inv Snapshot) string {
	if len(inv) == 0 {
		return ""
	}
	return inv[0].Name
}

// FindSlot returns the first non-active slot holding a positive quantity of name.
func FindSlot(inv Snapshot, name string) (Slot, bool) {
	for _, s := range inv {
		if s.Name == name && s.Quantity > 0 && s.Index > 0 {
			return s, true
		}
	}
	return Slot{}, false
}
// #endregion predicates

// #region describe
// Describe renders the inventory as a short sentence fragment, e.g. "1 log, 4 planks".
// Names are listed alphabetically with summed quantities; "air" slots are skipped.
func Describe(inv Snapshot) string {
	totals := make(map[string]int)
	for _, s := range inv {
		if s.Name == "" || s.Name == "air" || s.Quantity <= 0 {
			continue
		}
		totals[s.Name] += s.Quantity
	}
	if len(totals) == 0 {
		return "nothing"
	}

	names := make([]string, 0, len(totals))
	for n := range totals {
		names = append(names, n)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%d %s", totals[n], n)
	}
	return strings.Join(parts, ", ")
}
// #endregion describe

// #region clone
// Clone returns a deep copy of req. A nil map clones to an empty one.
func (req Requirements) Clone() Requirements {
	out := make(Requirements, len(req))
	for k, v := range req {
		out[k] = v
	}
	return out
}

// Keys returns the requirement names in sorted order.
func (req Requirements) Keys() []string {
	keys := make([]string, 0, len(req))
	for k := range req {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
// #endregion clone
