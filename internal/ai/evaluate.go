// Package ai holds the computer opponents: a heuristic planner for most
// loadouts and a combinatorial one for aces. Both decide a turn and hand
// the resulting attacks back to the game controller.
package ai

import (
	"github.com/pefman/mechduel/internal/catalog"
	"github.com/pefman/mechduel/internal/engine"
	"github.com/pefman/mechduel/internal/game"
	"github.com/pefman/mechduel/internal/models"
)

// Strength is the expected damage of an action, adjusted by cost and
// keyword bonuses. cheapCount is the number of S-cost attacks the mech
// has; inRange tells whether an L action could hit right now.
func Strength(a models.Action, cat *catalog.Catalog, cheapCount int, inRange bool) float64 {
	if a.Effects.Interceptor > 0 {
		return 0
	}
	var ev float64
	switch {
	case a.Type == models.ActionLobbed:
		ev = payloadStrength(a, cat)
	case a.Type.IsAttack():
		ev = engine.ExpectedHits(a.Pool(), a.Effects.ConvertLightning)
	default:
		return 0
	}
	switch a.Cost {
	case "S":
		ev *= 1.2
		if cheapCount == 1 {
			ev *= 0.7
		}
	case "L":
		ev *= 0.8
		if inRange {
			ev *= 1.5
		}
	}
	fx := a.Effects
	ev += 0.5 * float64(fx.ArmorPiercing)
	if fx.Devastating {
		ev++
	}
	if fx.Scattershot {
		ev += 0.8
	}
	if fx.Cleave {
		ev += 0.8
	}
	if fx.TwoHandedDevastating {
		ev++
	}
	if fx.TwoHandedSniper {
		ev += 0.5
	}
	return ev
}

// payloadStrength values a launcher by what its projectiles carry.
func payloadStrength(a models.Action, cat *catalog.Catalog) float64 {
	if cat == nil {
		return 0
	}
	t, ok := cat.Projectile(a.Projectile)
	if !ok {
		return 0
	}
	best := 0.0
	for _, pa := range t.Actions {
		ev := engine.ExpectedHits(pa.Pool(), pa.Effects.ConvertLightning)
		if pa.Type == models.ActionDelayed {
			ev *= 1.3
		}
		best = max(best, ev)
	}
	return best * float64(max(1, a.Effects.Salvo))
}

// Cost is the AP and TP an action takes.
func Cost(a models.Action) (ap, tp int) { return game.ActionCost(a) }

// cheapAttacks counts the S-cost attacks among actions.
func cheapAttacks(actions []models.SlottedAction) int {
	n := 0
	for _, sa := range actions {
		if sa.Action.Cost == "S" && (sa.Action.Type.IsAttack() || sa.Action.Type == models.ActionLobbed) {
			n++
		}
	}
	return n
}

// arsenal lists the actions a planner may consider: ammo left, not a
// passive interceptor or a jettison.
func arsenal(m *game.Match, e *models.Entity) []models.SlottedAction {
	var out []models.SlottedAction
	for _, sa := range e.Actions() {
		a := sa.Action
		if a.Effects.Interceptor > 0 || a.Effects.Jettison {
			continue
		}
		switch a.Type {
		case models.ActionMelee, models.ActionRanged, models.ActionLobbed, models.ActionMove:
		default:
			continue
		}
		if a.Ammo > 0 && m.AmmoLeft(e.ID, sa.Slot, a) <= 0 {
			continue
		}
		out = append(out, sa)
	}
	return out
}

// usable is the arsenal minus what was already used this turn.
func usable(m *game.Match, e *models.Entity) []models.SlottedAction {
	var out []models.SlottedAction
	for _, sa := range arsenal(m, e) {
		if !e.Turn.HasUsed(sa.Slot, sa.Action.Name) {
			out = append(out, sa)
		}
	}
	return out
}

func affordable(e *models.Entity, a models.Action) bool {
	ap, tp := Cost(a)
	return e.Turn.AP >= ap && e.Turn.TP >= tp
}
