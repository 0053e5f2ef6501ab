package game

import (
	"testing"

	"github.com/pefman/mechduel/internal/catalog"
	"github.com/pefman/mechduel/internal/engine"
	"github.com/pefman/mechduel/internal/grid"
	"github.com/pefman/mechduel/internal/models"
)

// testMech has five armor-4 parts and no parry anywhere.
func testMech(id string, ctrl models.Controller, pos models.Pos, o models.Orientation, link int) *models.Entity {
	part := func(name string, actions ...models.Action) *models.Part {
		return &models.Part{Name: name, Armor: 4, Structure: 2, Status: models.PartOK, Actions: actions}
	}
	return &models.Entity{
		ID: id, Kind: models.KindMech, Controller: ctrl, Name: id,
		Pos: pos, Orientation: o, Status: models.EntityOK, Stance: models.StanceDefense,
		Parts: map[models.Slot]*models.Part{
			models.SlotCore:     part("core"),
			models.SlotLegs:     {Name: "legs", Armor: 4, Structure: 2, AdjustMove: 1, Status: models.PartOK, Actions: []models.Action{{Name: "Run", Type: models.ActionMove, Cost: "M", Range: 4}}},
			models.SlotLeftArm:  part("left"),
			models.SlotRightArm: part("right"),
			models.SlotBackpack: part("pack"),
		},
		Pilot: &models.Pilot{Name: id + " pilot", LinkPoints: link},
		Turn:  models.TurnState{AP: 2, TP: 1, Phase: models.PhaseMain, Timing: models.ActionRanged},
	}
}

func newTestMatch(src engine.Source, ents ...*models.Entity) *Match {
	m := &Match{
		ID:        "test",
		Mode:      ModeDuel,
		Board:     grid.Standard,
		Entities:  map[string]*models.Entity{},
		Ammo:      map[string]int{},
		AITimings: map[string]models.ActionType{},
		Round:     1,
	}
	m.SetSource(src)
	for _, e := range ents {
		m.AddEntity(e)
	}
	return m
}

func seq(v ...int) *engine.Sequence { return &engine.Sequence{Values: v} }

func testController(t *testing.T, opts ...Option) *Controller {
	t.Helper()
	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog.Load() error = %v", err)
	}
	return NewController(cat, opts...)
}

var gun = models.Action{Name: "Gun", Type: models.ActionRanged, Cost: "S", Dice: "3 yellow 1 red", Range: 6}
