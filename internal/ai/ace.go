package ai

import (
	"math"

	"github.com/pefman/mechduel/internal/game"
	"github.com/pefman/mechduel/internal/grid"
	"github.com/pefman/mechduel/internal/models"
)

// AceName is the planner key loadouts use to pick the ace.
const AceName = "ace"

// Ace enumerates short action chains, scores them and plays the best. It
// also declares its timing during the player's turn for the initiative
// clash.
type Ace struct{}

// DecideTiming picks the timing the ace will announce, looking only at
// distance and what it carries.
func (Ace) DecideTiming(m *game.Match, e, opponent *models.Entity) models.ActionType {
	if !opponent.Alive() {
		return models.ActionMove
	}
	dist := grid.Distance(e.Pos, opponent.Pos)
	var melee, ranged, lobbed []models.Action
	for _, sa := range arsenal(m, e) {
		switch sa.Action.Type {
		case models.ActionMelee:
			melee = append(melee, sa.Action)
		case models.ActionRanged:
			ranged = append(ranged, sa.Action)
		case models.ActionLobbed:
			lobbed = append(lobbed, sa.Action)
		}
	}
	if partStatus(opponent, models.SlotCore) == models.PartDamaged && dist <= 2 && len(melee) > 0 {
		return models.ActionMelee
	}
	if dist <= 2 && len(melee) > 0 {
		return models.ActionMelee
	}
	if dist >= 3 && dist <= 5 {
		if len(lobbed) > 0 {
			return models.ActionLobbed
		}
		if len(ranged) > 0 {
			return models.ActionRanged
		}
	}
	if dist >= 6 {
		switch {
		case longest(ranged) >= dist:
			return models.ActionRanged
		case longest(lobbed) >= dist:
			return models.ActionLobbed
		}
		return models.ActionMove
	}
	switch {
	case len(melee) > 0:
		return models.ActionMelee
	case len(ranged) > 0:
		return models.ActionRanged
	case len(lobbed) > 0:
		return models.ActionLobbed
	}
	return models.ActionMove
}

func longest(as []models.Action) int {
	r := 0
	for _, a := range as {
		r = max(r, a.Range)
	}
	return r
}

// vantage is a candidate position after the TP spend.
type vantage struct {
	game.Vantage
	adjust *Adjustment
}

type acePlanner struct {
	c      *game.Controller
	m      *game.Match
	e      *models.Entity
	target *models.Entity
	locked func(models.Pos) bool
}

// PlanTurn plays the best scoring chain, then fills leftover AP with
// cheap attacks.
func (Ace) PlanTurn(c *game.Controller, m *game.Match, e *models.Entity, rep *game.Report) []game.AttackIntent {
	target := m.Player()
	if !target.Alive() {
		rep.Logf("> [Ace] %s finds no target and stands by.", e.Name)
		return nil
	}
	p := &acePlanner{c: c, m: m, e: e, target: target, locked: m.LockPredicate(e)}
	plans := p.candidates()
	if len(plans) == 0 {
		rep.Logf("> [Ace] %s has no workable plan and stands by.", e.Name)
		return nil
	}
	for i := range plans {
		p.score(&plans[i])
	}
	best := pickPlan(m, plans)
	rep.Logf("> [Ace] %s weighed %d plans; going with [%s] on [%s] (score %.1f).", e.Name, len(plans), best.Intent, best.Timing, best.Score)

	x := newExecutor(c, m, e, target, rep)
	x.run(best)
	p.followUp(x)
	return x.intents
}

// pickPlan takes the highest score; ties are broken by the match dice.
func pickPlan(m *game.Match, plans []Plan) Plan {
	top := math.Inf(-1)
	for _, p := range plans {
		top = math.Max(top, p.Score)
	}
	var tied []Plan
	for _, p := range plans {
		if p.Score >= top-1e-9 {
			tied = append(tied, p)
		}
	}
	if len(tied) == 1 {
		return tied[0]
	}
	return tied[m.RNG().Intn(len(tied))]
}

// vantages lists where the turn could start from: staying, turning to face
// the target, or any adjustment cell in the agile stance.
func (p *acePlanner) vantages() []vantage {
	e := p.e
	out := []vantage{{Vantage: game.VantageOf(e)}}
	if e.Turn.TP < 1 {
		return out
	}
	face := grid.OrientationToward(e.Pos, p.target.Pos)
	if face != e.Orientation {
		out = append(out, vantage{
			Vantage: game.Vantage{Pos: e.Pos, Facing: face, TP: e.Turn.TP - 1},
			adjust:  &Adjustment{Facing: face},
		})
	}
	legs := e.Part(models.SlotLegs)
	if !legs.Alive() || legs.AdjustMove <= 0 {
		return out
	}
	budget := legs.AdjustMove * 2
	for _, cell := range p.m.GroundCosts(e, budget).Moves(budget) {
		face := grid.OrientationToward(cell, p.target.Pos)
		out = append(out, vantage{
			Vantage: game.Vantage{Pos: cell, Facing: face, TP: e.Turn.TP - 1},
			adjust:  &Adjustment{Move: true, To: cell, Facing: face},
		})
	}
	return out
}

// hits reports whether a can strike the target from v.
func (p *acePlanner) hits(sa models.SlottedAction, v game.Vantage) bool {
	if sa.Action.Type == models.ActionRanged && p.locked(v.Pos) {
		return false
	}
	return game.InAttackRange(p.e, sa.Slot, sa.Action, v, p.target.Pos)
}

// candidates enumerates single attacks and two-step chains from every
// vantage, plus move-first chains from the current cell.
func (p *acePlanner) candidates() []Plan {
	var attacks, moves []models.SlottedAction
	for _, sa := range usable(p.m, p.e) {
		if sa.Action.Type == models.ActionMove {
			moves = append(moves, sa)
		} else {
			attacks = append(attacks, sa)
		}
	}
	ap := p.e.Turn.AP
	var plans []Plan
	for _, v := range p.vantages() {
		for i, a1 := range attacks {
			ap1, tp1 := Cost(a1.Action)
			if ap1 > ap || tp1 > v.TP || !p.hits(a1, v.Vantage) {
				continue
			}
			first := Step{Slot: a1.Slot, Action: a1.Action}
			plans = append(plans, p.plan(v, first))
			after := v.Vantage
			after.TP -= tp1
			for j, a2 := range attacks {
				ap2, tp2 := Cost(a2.Action)
				if i == j || a2.Action.Cost == "L" || ap1+ap2 > ap || tp1+tp2 > v.TP || !p.hits(a2, after) {
					continue
				}
				plans = append(plans, p.plan(v, first, Step{Slot: a2.Slot, Action: a2.Action}))
			}
			if v.adjust != nil && v.adjust.Move {
				continue
			}
			for _, mv := range moves {
				apm, _ := Cost(mv.Action)
				if ap1+apm > ap {
					continue
				}
				if to, ok := destination(p.m, p.e, mv, p.target.Pos, ideal(3, 5)); ok {
					plans = append(plans, p.plan(v, first, p.moveStep(mv, to)))
				}
			}
		}
	}
	for _, mv := range moves {
		apm, _ := Cost(mv.Action)
		if apm > ap {
			continue
		}
		here := vantage{Vantage: game.VantageOf(p.e)}
		goal := ideal(3, 5)
		if p.locked(p.e.Pos) || grid.Distance(p.e.Pos, p.target.Pos) <= 1 {
			goal = farthest
		}
		if to, ok := destination(p.m, p.e, mv, p.target.Pos, goal); ok {
			plans = append(plans, p.plan(here, p.moveStep(mv, to)))
		}
		for _, a2 := range attacks {
			ap2, tp2 := Cost(a2.Action)
			if a2.Action.Cost == "L" || apm+ap2 > ap || tp2 > p.e.Turn.TP {
				continue
			}
			if to, ok := p.strikeCell(mv, a2); ok {
				plans = append(plans, p.plan(here, p.moveStep(mv, to), Step{Slot: a2.Slot, Action: a2.Action}))
			}
		}
	}
	return plans
}

func (p *acePlanner) moveStep(mv models.SlottedAction, to models.Pos) Step {
	return Step{Slot: mv.Slot, Action: mv.Action, To: to, Facing: grid.OrientationToward(to, p.target.Pos)}
}

// strikeCell is the cheapest legal cell of mv from which a can hit the
// target, preferring the 3..5 band for shots.
func (p *acePlanner) strikeCell(mv models.SlottedAction, a models.SlottedAction) (models.Pos, bool) {
	legal, err := p.m.MoveRange(p.e, mv.Slot, mv.Action.Name)
	if err != nil {
		return models.Pos{}, false
	}
	cm := moveMap(p.m, p.e, mv.Action)
	var best models.Pos
	found := false
	bestKey := [2]int{}
	for _, cell := range legal {
		v := game.Vantage{Pos: cell, Facing: grid.OrientationToward(cell, p.target.Pos), TP: p.e.Turn.TP}
		if !p.hits(a, v) {
			continue
		}
		off := 0
		if a.Action.Type != models.ActionMelee {
			d := grid.Distance(cell, p.target.Pos)
			off = max(0, 3-d) + max(0, d-5)
		}
		cost, ok := cm.Cost(cell)
		if !ok {
			cost = grid.Distance(p.e.Pos, cell)
		}
		key := [2]int{off, cost}
		if !found || key[0] < bestKey[0] || (key[0] == bestKey[0] && key[1] < bestKey[1]) {
			best, bestKey, found = cell, key, true
		}
	}
	return best, found
}

// plan assembles a candidate; the first step sets the timing and the
// first attack sets the intent.
func (p *acePlanner) plan(v vantage, steps ...Step) Plan {
	pl := Plan{
		Timing: steps[0].Action.Type,
		Stance: models.StanceDefense,
		Adjust: v.adjust,
		Steps:  steps,
		Intent: IntentManeuver,
	}
	for _, s := range steps {
		if s.Action.Type != models.ActionMove {
			pl.Intent = intentOf(s.Action)
			break
		}
	}
	if pl.Intent == IntentManeuver || (v.adjust != nil && v.adjust.Move) {
		pl.Stance = models.StanceAgile
	}
	return pl
}

func intentOf(a models.Action) Intent {
	switch {
	case a.Cost == "L" || (a.Type == models.ActionMelee && a.Effects.Devastating):
		return IntentExecution
	case a.Effects.Shock:
		return IntentShock
	case a.Type == models.ActionLobbed:
		return IntentBarrage
	}
	return IntentDamage
}

// score rates a plan: intent bonus, expected damage, a band bonus for
// ending 3..5 away, and penalties for spent TP, heavy openers and unspent
// AP.
func (p *acePlanner) score(pl *Plan) {
	dist := grid.Distance(p.e.Pos, p.target.Pos)
	s := 0.0
	switch pl.Intent {
	case IntentExecution:
		switch {
		case p.target.Downed():
			s += 1000
		case partStatus(p.target, models.SlotCore) == models.PartDamaged:
			s += 500
		default:
			s += 100
		}
	case IntentShock:
		if dist <= 2 {
			s += 300
		} else {
			s += 50
		}
	case IntentBarrage:
		s += 200
	case IntentDamage:
		s += 150
	case IntentManeuver:
		switch {
		case p.locked(p.e.Pos):
			s += 400
		case dist <= 1:
			s += 200
		default:
			s += 10
		}
	}
	end := p.e.Pos
	if pl.Adjust != nil && pl.Adjust.Move {
		end = pl.Adjust.To
	}
	spent := 0
	for i, st := range pl.Steps {
		ap, _ := Cost(st.Action)
		spent += ap
		if i == 0 && ap >= 2 {
			s -= 10
		}
		if st.Action.Type == models.ActionMove {
			end = st.To
			continue
		}
		s += Strength(st.Action, p.c.Catalog(), 2, true) * 20
	}
	if d := grid.Distance(end, p.target.Pos); d >= 3 && d <= 5 {
		s += 15
	}
	if pl.Adjust != nil {
		s -= 10
	}
	s -= 5 * float64(max(0, p.e.Turn.AP-spent))
	if declared, ok := p.m.AITimings[p.e.ID]; ok && declared == pl.Timing {
		s += 20
	}
	pl.Score = s
}

// followUp spends leftover AP on S attacks that still connect.
func (p *acePlanner) followUp(x *executor) {
	rejected := map[models.ActionKey]bool{}
	for p.e.Turn.AP >= 1 && p.target.Alive() {
		var pick *models.SlottedAction
		v := game.VantageOf(p.e)
		for _, sa := range usable(p.m, p.e) {
			key := models.ActionKey{Slot: sa.Slot, Name: sa.Action.Name}
			if sa.Action.Cost != "S" || sa.Action.Type == models.ActionMove || rejected[key] || !p.hits(sa, v) {
				continue
			}
			sa := sa
			pick = &sa
			break
		}
		if pick == nil {
			return
		}
		x.rep.Logf("> [Ace] %s follows up with [%s].", p.e.Name, pick.Action.Name)
		if !x.step(Step{Slot: pick.Slot, Action: pick.Action}) {
			rejected[models.ActionKey{Slot: pick.Slot, Name: pick.Action.Name}] = true
		}
	}
}
