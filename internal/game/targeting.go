package game

import (
	"fmt"

	"github.com/pefman/mechduel/internal/grid"
	"github.com/pefman/mechduel/internal/models"
)

// Vantage is where an attack would be made from.
type Vantage struct {
	Pos    models.Pos
	Facing models.Orientation
	TP     int
}

// VantageOf is the entity's current vantage.
func VantageOf(e *models.Entity) Vantage {
	return Vantage{Pos: e.Pos, Facing: e.Orientation, TP: e.Turn.TP}
}

// FinalRange applies the static and two-handed range bonuses.
func FinalRange(e *models.Entity, slot models.Slot, a models.Action, tp int) int {
	r := a.Range
	if a.Effects.StaticRangeBonus > 0 && tp >= 1 {
		r += a.Effects.StaticRangeBonus
	}
	if a.Effects.TwoHandedRangeBonus > 0 && e.IsMech() && e.OtherHandEmpty(slot) {
		r += a.Effects.TwoHandedRangeBonus
	}
	return r
}

// InAttackRange reports whether target can be hit with a from v.
func InAttackRange(e *models.Entity, slot models.Slot, a models.Action, v Vantage, target models.Pos) bool {
	switch a.Type {
	case models.ActionMelee:
		return grid.InMeleeReach(v.Pos, v.Facing, target)
	case models.ActionRanged, models.ActionLobbed:
		d := grid.Distance(v.Pos, target)
		if d == 0 || d > FinalRange(e, slot, a, v.TP) {
			return false
		}
		return a.Curved() || grid.InForwardArc(v.Pos, v.Facing, target)
	}
	return false
}

// Target is a highlightable attack target.
type Target struct {
	EntityID   string     `json:"entity_id"`
	Pos        models.Pos `json:"pos"`
	BackAttack bool       `json:"back_attack"`
}

// AttackTargets lists valid targets and, for lobbed actions, the empty
// cells a projectile may be launched at.
func (m *Match) AttackTargets(e *models.Entity, slot models.Slot, a models.Action) ([]Target, []models.Pos) {
	targets := []Target{}
	cells := []models.Pos{}
	if !a.Type.IsAttack() && a.Type != models.ActionLobbed {
		return targets, cells
	}
	v := VantageOf(e)
	for _, t := range m.Enemies(e) {
		if !InAttackRange(e, slot, a, v, t.Pos) {
			continue
		}
		back := t.IsMech() && grid.IsBackAttack(e.Pos, t.Pos, t.Orientation)
		targets = append(targets, Target{EntityID: t.ID, Pos: t.Pos, BackAttack: back})
	}
	if a.Type == models.ActionLobbed {
		taken := map[models.Pos]bool{}
		for _, o := range m.Living() {
			taken[o.Pos] = true
		}
		for _, p := range m.Board.Cells() {
			if !taken[p] && InAttackRange(e, slot, a, v, p) {
				cells = append(cells, p)
			}
		}
	}
	return targets, cells
}

// AdjustBudget is the adjustment-phase move allowance from the legs.
func AdjustBudget(e *models.Entity) int {
	legs := e.Part(models.SlotLegs)
	if !legs.Alive() {
		return 0
	}
	n := legs.AdjustMove
	if e.Stance == models.StanceAgile {
		n *= 2
	}
	return n
}

// AdjustRange lists the cells the adjustment move may reach.
func (m *Match) AdjustRange(e *models.Entity) []models.Pos {
	budget := AdjustBudget(e)
	if budget <= 0 {
		return []models.Pos{}
	}
	return m.GroundCosts(e, budget).Moves(budget)
}

// MoveRange lists destinations of a move action.
func (m *Match) MoveRange(e *models.Entity, slot models.Slot, name string) ([]models.Pos, error) {
	a, ok := e.ActionAt(slot, name)
	if !ok {
		return nil, reject(ErrUnknownAction, "no action %q on %s", name, slot)
	}
	if a.Type != models.ActionMove {
		return nil, reject(ErrUnknownAction, "%s is not a move action", a.Name)
	}
	return m.moveCells(e, a), nil
}

func (m *Match) moveCells(e *models.Entity, a models.Action) []models.Pos {
	budget := a.Range
	if budget <= 0 {
		return []models.Pos{}
	}
	seen := map[models.Pos]bool{}
	if a.Effects.FlightMovement {
		occupied := m.Occupied(e.ID)
		for _, p := range grid.Flight(e.Pos, budget, m.Board).Moves(budget) {
			if !occupied[p] {
				seen[p] = true
			}
		}
	} else {
		for _, p := range m.GroundCosts(e, budget).Moves(budget) {
			seen[p] = true
		}
		if bonus := a.Effects.StraightLineBonus; bonus > 0 {
			for p := range grid.StraightLine(e.Pos, budget+bonus, m.Terrain(e)) {
				seen[p] = true
			}
		}
	}
	out := []models.Pos{}
	for _, p := range m.Board.Cells() {
		if seen[p] {
			out = append(out, p)
		}
	}
	return out
}

func containsPos(ps []models.Pos, p models.Pos) bool {
	for _, q := range ps {
		if q == p {
			return true
		}
	}
	return false
}

func posString(p models.Pos) string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }
