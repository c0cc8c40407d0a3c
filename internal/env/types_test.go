package env

import "testing"

func TestEquipDoesNotMutateNoop(t *testing.T) {
	noop := make(Action, ActionDim)
	act := Equip(noop, 4)

	if act[IndexFunctional] != FunctionalEquip || act[IndexSlot] != 4 {
		t.Errorf("unexpected equip action %v", act)
	}
	if !noop.IsZero() {
		t.Errorf("noop was mutated: %v", noop)
	}
}

func TestCraftAndPlace(t *testing.T) {
	noop := make(Action, ActionDim)
	noop[0] = 0

	craft := Craft(noop, 12)
	if craft[IndexFunctional] != FunctionalCraft || craft[IndexCraftArg] != 12 {
		t.Errorf("unexpected craft action %v", craft)
	}
	place := Place(noop, 3)
	if place[IndexFunctional] != FunctionalPlace || place[IndexSlot] != 3 {
		t.Errorf("unexpected place action %v", place)
	}
}

func TestActionsPadShortNoop(t *testing.T) {
	act := Equip(Action{1, 0}, 2)
	if len(act) != ActionDim {
		t.Fatalf("len = %d, want %d", len(act), ActionDim)
	}
	if act[0] != 1 {
		t.Errorf("noop prefix not preserved: %v", act)
	}
}

func TestNoOpIsFresh(t *testing.T) {
	a := NoOp()
	a[3] = 0
	if NoOp()[3] != 12 {
		t.Error("NoOp must return a fresh slice")
	}
}
