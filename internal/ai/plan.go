package ai

import (
	"github.com/pefman/mechduel/internal/game"
	"github.com/pefman/mechduel/internal/grid"
	"github.com/pefman/mechduel/internal/models"
)

// Intent labels what a plan is trying to achieve.
type Intent string

const (
	IntentExecution Intent = "execution"
	IntentShock     Intent = "shock"
	IntentBarrage   Intent = "barrage"
	IntentDamage    Intent = "damage"
	IntentManeuver  Intent = "maneuver"
)

// Adjustment is the TP spend of a plan: a short move or a turn in place.
type Adjustment struct {
	Move   bool
	To     models.Pos
	Facing models.Orientation
}

// Step is one main-phase action. To and Facing only matter for moves.
type Step struct {
	Slot   models.Slot
	Action models.Action
	To     models.Pos
	Facing models.Orientation
}

// Plan is a full turn decided up front.
type Plan struct {
	Intent Intent
	Timing models.ActionType
	Stance models.Stance
	Adjust *Adjustment
	Steps  []Step
	Score  float64
}

// executor turns plans and single steps into controller calls. Rejected
// steps are logged and skipped; the controller has the final word.
type executor struct {
	c       *game.Controller
	m       *game.Match
	e       *models.Entity
	target  *models.Entity
	rep     *game.Report
	intents []game.AttackIntent
}

func newExecutor(c *game.Controller, m *game.Match, e, target *models.Entity, rep *game.Report) *executor {
	return &executor{c: c, m: m, e: e, target: target, rep: rep}
}

// prelude applies timing, stance and the adjustment, leaving e in the
// main phase.
func (x *executor) prelude(p Plan) {
	x.e.Turn.Timing = p.Timing
	x.e.Turn.Phase = models.PhaseStance
	if p.Stance != "" {
		x.e.Stance = p.Stance
	}
	x.e.Turn.Phase = models.PhaseAdjustment
	if a := p.Adjust; a != nil {
		var err error
		if a.Move {
			err = x.c.ExecuteAdjust(x.m, x.e, a.To, a.Facing, x.rep)
		} else {
			err = x.c.ExecuteReorient(x.m, x.e, a.Facing, x.rep)
		}
		if err != nil {
			x.rep.Logf("> %s skips the adjustment: %v.", x.e.Name, err)
		}
	}
	x.e.Turn.Phase = models.PhaseMain
}

// step runs one action and reports whether the controller accepted it.
func (x *executor) step(s Step) bool {
	if s.Action.Type == models.ActionMove {
		if err := x.c.ExecuteMove(x.m, x.e, s.Slot, s.Action, s.To, s.Facing, x.rep); err != nil {
			x.rep.Logf("> %s cannot use [%s]: %v.", x.e.Name, s.Action.Name, err)
			return false
		}
		return true
	}
	intents, err := x.c.ExecuteAttack(x.m, x.e, s.Slot, s.Action, x.target.ID, nil, x.rep)
	if err != nil {
		x.rep.Logf("> %s cannot use [%s]: %v.", x.e.Name, s.Action.Name, err)
		return false
	}
	x.intents = append(x.intents, intents...)
	return true
}

// run executes a whole plan.
func (x *executor) run(p Plan) {
	x.prelude(p)
	for _, s := range p.Steps {
		x.step(s)
	}
}

// moveMap is the cost map a move action is planned on. Flight ignores
// occupation, so the caller still checks destinations against MoveRange.
func moveMap(m *game.Match, e *models.Entity, a models.Action) grid.CostMap {
	if a.Effects.FlightMovement {
		return grid.Flight(e.Pos, a.Range, m.Board)
	}
	return m.GroundCosts(e, a.Range)
}

// moveGoal picks a destination for a move action.
type moveGoal func(cm grid.CostMap, budget int, target models.Pos) (models.Pos, bool)

func closest(cm grid.CostMap, budget int, target models.Pos) (models.Pos, bool) {
	return cm.Closest(budget, target)
}

func farthest(cm grid.CostMap, budget int, target models.Pos) (models.Pos, bool) {
	return cm.Farthest(budget, target)
}

func ideal(lo, hi int) moveGoal {
	return func(cm grid.CostMap, budget int, target models.Pos) (models.Pos, bool) {
		return cm.Ideal(budget, lo, hi, target)
	}
}

func farthestInRange(lo, hi int) moveGoal {
	return func(cm grid.CostMap, budget int, target models.Pos) (models.Pos, bool) {
		return cm.FarthestInRange(budget, lo, hi, target)
	}
}

// destination resolves a goal to a legal cell for the move action, falling
// back to the legal cell closest to target when the goal has no answer.
// ok is false when the mech should stay put.
func destination(m *game.Match, e *models.Entity, sa models.SlottedAction, target models.Pos, goal moveGoal) (models.Pos, bool) {
	legal, err := m.MoveRange(e, sa.Slot, sa.Action.Name)
	if err != nil || len(legal) == 0 {
		return models.Pos{}, false
	}
	cm := moveMap(m, e, sa.Action)
	if p, ok := goal(cm, sa.Action.Range, target); ok {
		if p == e.Pos {
			return p, false
		}
		if contains(legal, p) {
			return p, true
		}
	}
	best, bestDist := legal[0], grid.Far
	for _, p := range legal {
		if d := grid.Distance(p, target); d < bestDist {
			best, bestDist = p, d
		}
	}
	return best, true
}

func contains(ps []models.Pos, p models.Pos) bool {
	for _, q := range ps {
		if q == p {
			return true
		}
	}
	return false
}

func partStatus(e *models.Entity, slot models.Slot) models.PartStatus {
	if p := e.Part(slot); p != nil {
		return p.Status
	}
	return models.PartDestroyed
}
