package models

import "testing"

func testMech() *Entity {
	punch := Action{Name: "punch/kick", Type: ActionMelee, Cost: "M", Dice: "2 red", Range: 1}
	return &Entity{
		ID: "m1", Kind: KindMech, Controller: ControllerPlayer, Status: EntityOK, Stance: StanceDefense,
		Parts: map[Slot]*Part{
			SlotCore:     {Name: "core", Armor: 6, Structure: 2, Status: PartOK, Electronics: 2},
			SlotLegs:     {Name: "legs", Armor: 5, Evasion: 3, Status: PartOK, Actions: []Action{{Name: "run", Type: ActionMove, Cost: "M", Range: 4}}},
			SlotLeftArm:  {Name: "shield", Armor: 5, Parry: 2, Status: PartOK, Tags: []string{TagEmptyHand}},
			SlotRightArm: {Name: "rifle", Armor: 4, Status: PartOK, Tags: []string{TagHandheld}, Actions: []Action{{Name: "burst", Type: ActionRanged, Cost: "M", Range: 6}}},
			SlotBackpack: {Name: "pack", Armor: 3, Evasion: 2, Status: PartOK},
		},
		Pilot:   &Pilot{Name: "test", LinkPoints: 5},
		Generic: []GenericAction{{Action: punch, RequiredSlots: []Slot{SlotLeftArm, SlotRightArm, SlotLegs}}},
	}
}

func TestActionsIncludeGenericWhileUnlocked(t *testing.T) {
	m := testMech()
	if _, ok := m.ActionAt(SlotGeneric, "punch/kick"); !ok {
		t.Fatal("generic action missing")
	}
	for _, s := range []Slot{SlotLeftArm, SlotRightArm, SlotLegs} {
		m.Parts[s].Status = PartDestroyed
	}
	if _, ok := m.ActionAt(SlotGeneric, "punch/kick"); ok {
		t.Fatal("generic action should lock when every required slot is destroyed")
	}
	if m.HasMeleeAction() {
		t.Fatal("no melee action expected")
	}
}

func TestTotalsSkipDestroyedParts(t *testing.T) {
	m := testMech()
	if got := m.TotalEvasion(); got != 5 {
		t.Fatalf("evasion = %d, want 5", got)
	}
	m.Parts[SlotBackpack].Status = PartDestroyed
	if got := m.TotalEvasion(); got != 3 {
		t.Fatalf("evasion = %d, want 3", got)
	}
	if got := m.ActiveParts(); got != 4 {
		t.Fatalf("active parts = %d, want 4", got)
	}
}

func TestOtherHandEmpty(t *testing.T) {
	m := testMech()
	if !m.OtherHandEmpty(SlotRightArm) {
		t.Fatal("left arm is an empty hand")
	}
	if m.OtherHandEmpty(SlotLeftArm) {
		t.Fatal("right arm holds a rifle")
	}
	m.Parts[SlotLeftArm].Status = PartDestroyed
	if m.OtherHandEmpty(SlotRightArm) {
		t.Fatal("destroyed arm cannot count as empty hand")
	}
}

func TestCloneIsDeep(t *testing.T) {
	m := testMech()
	cp := m.Clone()
	cp.Parts[SlotCore].Status = PartDamaged
	cp.Pilot.LinkPoints = 0
	if m.Parts[SlotCore].Status != PartOK || m.Pilot.LinkPoints != 5 {
		t.Fatal("clone shares state with original")
	}
}

func TestProjectileVariant(t *testing.T) {
	p := &Entity{Kind: KindProjectile, Status: EntityOK, Evasion: 4, Parts: map[Slot]*Part{
		SlotCore: {Structure: 1, Status: PartOK, Actions: []Action{{Name: "warhead", Type: ActionImmediate, Dice: "3 red"}}},
	}}
	if p.TotalEvasion() != 4 {
		t.Fatalf("evasion = %d, want 4", p.TotalEvasion())
	}
	if _, ok := p.ActionByTiming(ActionImmediate); !ok {
		t.Fatal("payload missing")
	}
	if p.HasMeleeAction() {
		t.Fatal("projectiles never lock")
	}
}
