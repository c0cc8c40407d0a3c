package inventory

import "testing"

func sampleInventory() Snapshot {
	return Snapshot{
		{Name: "wooden_pickaxe", Quantity: 1, Index: 0},
		{Name: "log", Quantity: 2, Index: 1},
		{Name: "planks", Quantity: 3, Index: 2},
		{Name: "log", Quantity: 1, Index: 5},
		{Name: "stone_pickaxe", Quantity: 1, Index: 7},
	}
}

func TestHolds_SumsAcrossSlots(t *testing.T) {
	inv := sampleInventory()

	if !Holds(inv, Requirements{"log": 3}) {
		t.Error("expected 2+1 logs to satisfy log:3")
	}
	if Holds(inv, Requirements{"log": 4}) {
		t.Error("expected log:4 to fail with 3 logs")
	}
	if Holds(inv, Requirements{"log": 1, "stick": 1}) {
		t.Error("expected missing stick to fail")
	}
}

func TestHolds_EmptyRequirements(t *testing.T) {
	if !Holds(nil, nil) {
		t.Error("nil requirements should hold on nil inventory")
	}
	if !Holds(sampleInventory(), Requirements{}) {
		t.Error("empty requirements should hold")
	}
}

func TestHolds_Monotonic(t *testing.T) {
	reqs := []Requirements{
		{"log": 1},
		{"log": 3, "planks": 3},
		{"planks": 4},
		{"stone_pickaxe": 1, "log": 2},
	}
	for _, req := range reqs {
		inv := sampleInventory()
		before := Holds(inv, req)
		for i := range inv {
			grown := append(Snapshot(nil), inv...)
			grown[i].Quantity += 5
			if before && !Holds(grown, req) {
				t.Errorf("adding quantity to slot %d flipped %v from true to false", i, req)
			}
		}
	}
}

func TestContains_IgnoresQuantity(t *testing.T) {
	inv := Snapshot{{Name: "iron_ingot", Quantity: 0, Index: 3}}
	if !Contains(inv, "iron_ingot") {
		t.Error("expected Contains to match by name only")
	}
	if Contains(inv, "diamond") {
		t.Error("unexpected match for diamond")
	}
}

func TestHeldAndFindSlot(t *testing.T) {
	inv := sampleInventory()
	if got := Held(inv); got != "wooden_pickaxe" {
		t.Errorf("Held = %q, want wooden_pickaxe", got)
	}
	if got := Held(nil); got != "" {
		t.Errorf("Held(nil) = %q, want empty", got)
	}

	slot, ok := FindSlot(inv, "stone_pickaxe")
	if !ok || slot.Index != 7 {
		t.Errorf("FindSlot stone_pickaxe = %+v, %v", slot, ok)
	}
	// The active slot (index 0) is never selected.
	if _, ok := FindSlot(inv, "wooden_pickaxe"); ok {
		t.Error("FindSlot should skip index 0")
	}
	empty := Snapshot{{Name: "iron_axe", Quantity: 0, Index: 4}}
	if _, ok := FindSlot(empty, "iron_axe"); ok {
		t.Error("FindSlot should skip zero quantity")
	}
}

func TestIsTool(t *testing.T) {
	for _, name := range []string{"wooden_pickaxe", "diamond_axe", "iron_pickaxe"} {
		if !IsTool(name) {
			t.Errorf("expected %s to be a tool", name)
		}
	}
	for _, name := range []string{"crafting_table", "golden_pickaxe", "stick", ""} {
		if IsTool(name) {
			t.Errorf("expected %s not to be a tool", name)
		}
	}
}

func TestDescribe(t *testing.T) {
	inv := Snapshot{
		{Name: "planks", Quantity: 4, Index: 0},
		{Name: "air", Quantity: 0, Index: 1},
		{Name: "log", Quantity: 1, Index: 2},
		{Name: "planks", Quantity: 2, Index: 3},
	}
	if got := Describe(inv); got != "1 log, 6 planks" {
		t.Errorf("Describe = %q", got)
	}
	if got := Describe(nil); got != "nothing" {
		t.Errorf("Describe(nil) = %q", got)
	}
}

func TestRequirementsCloneIsIndependent(t *testing.T) {
	req := Requirements{"log": 1}
	c := req.Clone()
	c["log"] = 9
	if req["log"] != 1 {
		t.Error("Clone shares storage with the original")
	}
	if got := Requirements(nil).Clone(); got == nil {
		t.Error("Clone of nil should be an empty map")
	}
}
