package ai

import (
	"sort"

	"github.com/pefman/mechduel/internal/game"
	"github.com/pefman/mechduel/internal/grid"
	"github.com/pefman/mechduel/internal/models"
)

type personality string

const (
	brawler personality = "brawler"
	sniper  personality = "sniper"
)

// Heuristic is the default planner. It reads the situation once, commits
// to a timing, stance and adjustment, then spends AP greedily.
type Heuristic struct{}

// scored is an action with its strength.
type scored struct {
	models.SlottedAction
	strength float64
}

// situation is what the heuristic knows at the start of the turn.
type situation struct {
	target        *models.Entity
	locked        bool
	evasion       int
	damaged       bool
	adjacent      bool
	targetDamaged bool
	available     []models.SlottedAction
	cheap         int
}

func (h Heuristic) read(m *game.Match, e, target *models.Entity) situation {
	locked, _ := m.Locked(e)
	available := usable(m, e)
	return situation{
		target:        target,
		locked:        locked,
		evasion:       e.TotalEvasion(),
		damaged:       partStatus(e, models.SlotCore) == models.PartDamaged || partStatus(e, models.SlotLegs) == models.PartDamaged,
		adjacent:      grid.IsAdjacent(e.Pos, target.Pos),
		targetDamaged: partStatus(target, models.SlotCore) == models.PartDamaged,
		available:     available,
		cheap:         cheapAttacks(available),
	}
}

// inReach lists the attacks of a given family that can hit target from v.
func inReach(c *game.Controller, e *models.Entity, actions []models.SlottedAction, v game.Vantage, target models.Pos, locked, melee bool, cheap int) []scored {
	var out []scored
	for _, sa := range actions {
		a := sa.Action
		isMelee := a.Type == models.ActionMelee
		isShot := a.Type == models.ActionRanged || a.Type == models.ActionLobbed
		if (melee && !isMelee) || (!melee && !isShot) {
			continue
		}
		if !game.InAttackRange(e, sa.Slot, a, v, target) {
			continue
		}
		if isShot && locked && a.Type != models.ActionLobbed {
			continue
		}
		out = append(out, scored{sa, Strength(a, c.Catalog(), cheap, true)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].strength > out[j].strength })
	return out
}

// bestL is the strongest L-cost action of a family, valued as if in range
// when any action of that family already is.
func bestL(c *game.Controller, actions []models.SlottedAction, melee, inRange bool, cheap int) (scored, bool) {
	var best scored
	found := false
	for _, sa := range actions {
		a := sa.Action
		if a.Cost != "L" {
			continue
		}
		isMelee := a.Type == models.ActionMelee
		isShot := a.Type == models.ActionRanged || a.Type == models.ActionLobbed
		if (melee && !isMelee) || (!melee && !isShot) {
			continue
		}
		s := Strength(a, c.Catalog(), cheap, inRange)
		if !found || s > best.strength {
			best, found = scored{sa, s}, true
		}
	}
	return best, found
}

// PlanTurn runs the whole turn of e against the player mech.
func (h Heuristic) PlanTurn(c *game.Controller, m *game.Match, e *models.Entity, rep *game.Report) []game.AttackIntent {
	target := m.Player()
	if !target.Alive() {
		rep.Logf("> [AI] %s finds no target and skips the turn.", e.Name)
		return nil
	}
	st := h.read(m, e, target)
	if st.locked {
		rep.Logf("> [AI] %s is locked in melee.", e.Name)
	}
	if st.damaged {
		rep.Logf("> [AI] %s has a damaged core or legs.", e.Name)
	}
	if st.targetDamaged {
		rep.Logf("> [AI] %s spots the damaged core of %s.", e.Name, target.Name)
	}

	face := grid.OrientationToward(e.Pos, target.Pos)
	sim := game.Vantage{Pos: e.Pos, Facing: face, TP: e.Turn.TP}
	meleeNow := inReach(c, e, st.available, sim, target.Pos, st.locked, true, st.cheap)
	shootNow := inReach(c, e, st.available, sim, target.Pos, st.locked, false, st.cheap)

	var bestMelee, bestShoot *scored
	if len(meleeNow) > 0 {
		bestMelee = &meleeNow[0]
	}
	if len(shootNow) > 0 {
		bestShoot = &shootNow[0]
	}
	if l, ok := bestL(c, st.available, true, len(meleeNow) > 0, st.cheap); ok && (bestMelee == nil || l.strength > bestMelee.strength) {
		bestMelee = &l
	}
	if l, ok := bestL(c, st.available, false, len(shootNow) > 0, st.cheap); ok && (bestShoot == nil || l.strength > bestShoot.strength) {
		bestShoot = &l
	}
	strength := func(s *scored) float64 {
		if s == nil {
			return 0
		}
		return s.strength
	}

	kind := brawler
	if strength(bestShoot) > strength(bestMelee) {
		kind = sniper
	}

	// Timing and stance.
	plan := Plan{Timing: models.ActionMove, Stance: models.StanceAgile}
	var opener *scored
	dist := grid.Distance(e.Pos, target.Pos)
	switch kind {
	case brawler:
		if len(meleeNow) > 0 || (bestMelee != nil && bestMelee.Action.Cost == "L") {
			plan.Timing, plan.Stance, opener = models.ActionMelee, models.StanceAttack, bestMelee
		}
	case sniper:
		if st.locked || dist < 3 {
			rep.Logf("> [AI] %s (sniper) is in a bad spot (locked %t, distance %d).", e.Name, st.locked, dist)
		} else if len(shootNow) > 0 || (bestShoot != nil && bestShoot.Action.Cost == "L") {
			plan.Timing, plan.Stance, opener = bestShoot.Action.Type, models.StanceAttack, bestShoot
		}
	}
	plan.Timing = h.openable(e, st, plan.Timing, meleeNow, shootNow)
	rep.Logf("> [AI] %s (%s) picks timing [%s].", e.Name, kind, plan.Timing)

	inAttackRange := len(meleeNow) > 0 || len(shootNow) > 0
	switch {
	case st.targetDamaged && inAttackRange:
		plan.Stance = models.StanceAttack
	case st.locked && !inAttackRange, st.damaged && st.adjacent:
		plan.Stance = models.StanceDefense
		if st.evasion > 5 {
			plan.Stance = models.StanceAgile
		}
	case plan.Stance == models.StanceAttack && st.evasion > 5:
		if opener == nil || opener.Action.Cost != "L" {
			plan.Stance = models.StanceAgile
		}
	case plan.Timing == models.ActionMove && plan.Stance != models.StanceDefense:
		plan.Stance = models.StanceAgile
	}
	rep.Logf("> [AI] %s takes the [%s] stance.", e.Name, plan.Stance)

	plan.Adjust, plan.Timing = h.adjustment(c, m, e, st, kind, plan, opener, rep)

	x := newExecutor(c, m, e, target, rep)
	x.prelude(plan)
	h.mainLoop(x, st, kind)
	return x.intents
}

// openable keeps timing when some usable action can open with it, and
// otherwise switches to the first timing that can open the turn at all.
func (h Heuristic) openable(e *models.Entity, st situation, timing models.ActionType, melee, shoot []scored) models.ActionType {
	opens := func(t models.ActionType) bool {
		for _, sa := range st.available {
			if sa.Action.Type == t && affordable(e, sa.Action) {
				return true
			}
		}
		return false
	}
	if opens(timing) {
		return timing
	}
	for _, s := range shoot {
		if affordable(e, s.Action) {
			return s.Action.Type
		}
	}
	for _, s := range melee {
		if affordable(e, s.Action) {
			return s.Action.Type
		}
	}
	for _, t := range []models.ActionType{models.ActionMove, models.ActionRanged, models.ActionLobbed, models.ActionMelee} {
		if opens(t) {
			return t
		}
	}
	return timing
}

// adjustment picks the TP spend: a short move into an attack band, or
// turning to face the target unless the TP is worth more as a static
// range bonus.
func (h Heuristic) adjustment(c *game.Controller, m *game.Match, e *models.Entity, st situation, kind personality, plan Plan, opener *scored, rep *game.Report) (*Adjustment, models.ActionType) {
	timing := plan.Timing
	if e.Turn.TP < 1 {
		return nil, timing
	}
	budget := 0
	if legs := e.Part(models.SlotLegs); legs.Alive() {
		budget = legs.AdjustMove
		if plan.Stance == models.StanceAgile {
			budget *= 2
		}
	}
	target := st.target.Pos
	var to *models.Pos
	next := timing
	if budget > 0 {
		cm := m.GroundCosts(e, budget)
		if best := strongest(c, st, true); best != nil {
			if p, ok := cm.Ideal(budget, 1, 1, target); ok {
				to, next = &p, models.ActionMelee
			}
		}
		if to == nil && !st.locked {
			if best := strongest(c, st, false); best != nil {
				var p models.Pos
				var ok bool
				switch {
				case kind == sniper && grid.Distance(e.Pos, target) < 3:
					p, ok = cm.FarthestInRange(budget, 5, 8, target)
				case kind == sniper:
					p, ok = cm.Ideal(budget, 5, 8, target)
				default:
					p, ok = cm.Ideal(budget, 2, 5, target)
				}
				if ok {
					to, next = &p, best.Type
				}
			}
		}
	}
	if to != nil && *to != e.Pos && h.opensAfter(e, st, next) {
		if next != timing {
			rep.Logf("> [AI] %s switches timing from [%s] to [%s].", e.Name, timing, next)
		}
		return &Adjustment{Move: true, To: *to, Facing: grid.OrientationToward(*to, target)}, next
	}
	face := grid.OrientationToward(e.Pos, target)
	if face == e.Orientation {
		return nil, timing
	}
	if (timing == models.ActionRanged || timing == models.ActionLobbed) && opener != nil {
		a := opener.Action
		if a.Effects.StaticRangeBonus > 0 && grid.Distance(e.Pos, target) > a.Range {
			rep.Logf("> [AI] %s keeps the TP for the static range bonus of [%s].", e.Name, a.Name)
			return nil, timing
		}
	}
	return &Adjustment{Facing: face}, timing
}

// opensAfter reports whether timing still has an affordable opener once
// the adjustment TP is spent.
func (h Heuristic) opensAfter(e *models.Entity, st situation, timing models.ActionType) bool {
	for _, sa := range st.available {
		ap, tp := Cost(sa.Action)
		if sa.Action.Type == timing && ap <= e.Turn.AP && tp <= e.Turn.TP-1 {
			return true
		}
	}
	return false
}

// strongest is the best non-L action of a family regardless of range.
func strongest(c *game.Controller, st situation, melee bool) *models.Action {
	var best *models.Action
	bestS := -1.0
	for _, sa := range st.available {
		a := sa.Action
		if a.Cost == "L" {
			continue
		}
		isMelee := a.Type == models.ActionMelee
		isShot := a.Type == models.ActionRanged || a.Type == models.ActionLobbed
		if (melee && !isMelee) || (!melee && !isShot) {
			continue
		}
		if s := Strength(a, c.Catalog(), st.cheap, false); s > bestS {
			a := a
			best, bestS = &a, s
		}
	}
	return best
}

// mainLoop spends AP: first an opener matching the timing, then the
// strongest affordable non-L extras, until nothing more can be done.
func (h Heuristic) mainLoop(x *executor, st situation, kind personality) {
	e, c, m := x.e, x.c, x.m
	target := st.target
	rejected := map[models.ActionKey]bool{}
	for e.Turn.AP > 0 && target.Alive() {
		var available []models.SlottedAction
		for _, sa := range usable(m, e) {
			if !rejected[models.ActionKey{Slot: sa.Slot, Name: sa.Action.Name}] {
				available = append(available, sa)
			}
		}
		if len(available) == 0 {
			x.rep.Logf("> [AI] %s has no actions left.", e.Name)
			return
		}
		cheap := cheapAttacks(available)
		locked, _ := m.Locked(e)
		v := game.VantageOf(e)
		melee := inReach(c, e, available, v, target.Pos, locked, true, cheap)
		shoot := inReach(c, e, available, v, target.Pos, locked, false, cheap)
		var moves []scored
		for _, sa := range available {
			if sa.Action.Type == models.ActionMove {
				moves = append(moves, scored{sa, 0.5})
			}
		}
		sort.SliceStable(moves, func(i, j int) bool { return moves[i].Action.Range > moves[j].Action.Range })

		var pick *scored
		if !e.Turn.OpeningTaken {
			var openers []scored
			switch e.Turn.Timing {
			case models.ActionMelee:
				openers = append(openers, melee...)
			case models.ActionRanged, models.ActionLobbed:
				openers = append(openers, shoot...)
			case models.ActionMove:
				openers = append(openers, moves...)
			}
			for i := range openers {
				if openers[i].Action.Type == e.Turn.Timing && affordable(e, openers[i].Action) {
					pick = &openers[i]
					break
				}
			}
			if pick == nil {
				x.rep.Logf("> [AI] %s finds no opening action for [%s].", e.Name, e.Turn.Timing)
				return
			}
		} else {
			all := append(append(append([]scored{}, melee...), shoot...), moves...)
			for i := range all {
				if all[i].Action.Cost == "L" || !affordable(e, all[i].Action) {
					continue
				}
				if pick == nil || all[i].strength > pick.strength {
					pick = &all[i]
				}
			}
			if pick == nil {
				x.rep.Logf("> [AI] %s has nothing affordable left (AP %d).", e.Name, e.Turn.AP)
				return
			}
		}

		step := Step{Slot: pick.Slot, Action: pick.Action}
		if pick.Action.Type == models.ActionMove {
			to, ok := destination(m, e, pick.SlottedAction, target.Pos, h.moveGoal(m, e, kind, target))
			if !ok {
				x.rep.Logf("> [AI] %s finds no useful cell for [%s].", e.Name, pick.Action.Name)
				rejected[models.ActionKey{Slot: pick.Slot, Name: pick.Action.Name}] = true
				continue
			}
			step.To, step.Facing = to, grid.OrientationToward(to, target.Pos)
		}
		if !x.step(step) {
			rejected[models.ActionKey{Slot: pick.Slot, Name: pick.Action.Name}] = true
		}
	}
}

// moveGoal is where a main-phase move should head: brawlers close in,
// snipers flee a lock, back off to 5..8 when closer than 5, and otherwise
// hold the middle of that band.
func (h Heuristic) moveGoal(m *game.Match, e *models.Entity, kind personality, target *models.Entity) moveGoal {
	if kind == brawler {
		return closest
	}
	if locked, _ := m.Locked(e); locked {
		return farthest
	}
	if grid.Distance(e.Pos, target.Pos) < 5 {
		return farthestInRange(5, 8)
	}
	return ideal(5, 8)
}
