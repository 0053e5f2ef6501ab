package main

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/pefman/mechduel/internal/ai"
	"github.com/pefman/mechduel/internal/api"
	"github.com/pefman/mechduel/internal/catalog"
	"github.com/pefman/mechduel/internal/game"
	"github.com/pefman/mechduel/internal/grid"
	"github.com/pefman/mechduel/internal/models"
)

// pilot plays the player side of a match through a backend: the strongest
// attack with a target opens, the other attacks follow, and with nothing
// in reach the mech closes in on the nearest enemy.
type pilot struct {
	b   backend
	cat *catalog.Catalog
	out io.Writer
	log *zap.Logger
}

// opener is the attack the pilot commits its timing to.
type opener struct {
	sa     models.SlottedAction
	target string
}

func (p *pilot) print(resp *api.MatchResponse) {
	if resp == nil || resp.Report == nil || p.out == nil {
		return
	}
	for _, line := range resp.Report.Logs {
		fmt.Fprintln(p.out, line)
	}
}

// play runs a match until it ends or maxRounds player turns have passed.
func (p *pilot) play(ctx context.Context, req api.CreateMatchRequest, maxRounds int) (*game.Match, error) {
	cat, err := p.b.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	p.cat = cat
	resp, err := p.b.CreateMatch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}
	m := resp.Match
	p.log.Info("duel: start", zap.String("match", m.ID), zap.String("mode", string(m.Mode)), zap.String("ai", m.AILoadout))
	for m.GameOver == game.GameRunning && m.Round <= maxRounds {
		if err := ctx.Err(); err != nil {
			return m, err
		}
		next, err := p.turn(ctx, m)
		if err != nil {
			return m, err
		}
		m = next
	}
	return m, nil
}

// turn plays one player turn and hands over to the AI.
func (p *pilot) turn(ctx context.Context, m *game.Match) (*game.Match, error) {
	id := m.ID
	me := m.Player()
	op, ok := p.pickOpener(ctx, m, me)
	timing := models.ActionMove
	stance := models.StanceAgile
	if ok {
		timing, stance = op.sa.Action.Type, models.StanceAttack
	}
	m = p.try(ctx, m, "timing", func() (*api.MatchResponse, error) { return p.b.SelectTiming(ctx, id, timing) })
	m = p.try(ctx, m, "stance", func() (*api.MatchResponse, error) { return p.b.SetStance(ctx, id, stance) })
	m = p.try(ctx, m, "skip-adjustment", func() (*api.MatchResponse, error) { return p.b.SkipAdjustment(ctx, id) })

	if ok {
		m = p.attack(ctx, m, op)
		for _, sa := range m.Player().Actions() {
			if m.GameOver != game.GameRunning || m.Pending() {
				break
			}
			if (sa.Slot == op.sa.Slot && sa.Action.Name == op.sa.Action.Name) || !attacking(sa.Action) {
				continue
			}
			if t, ok := p.targetFor(ctx, m, sa); ok {
				m = p.attack(ctx, m, opener{sa: sa, target: t})
			}
		}
	} else {
		m = p.advance(ctx, m)
	}
	if m.GameOver != game.GameRunning {
		return m, nil
	}
	resp, err := p.b.EndTurn(ctx, id)
	if err != nil {
		return m, fmt.Errorf("end turn: %w", err)
	}
	p.print(resp)
	return p.settle(ctx, resp)
}

// try runs a step whose rejection is not fatal: the pilot logs it and
// carries on with the match it had.
func (p *pilot) try(ctx context.Context, m *game.Match, step string, fn func() (*api.MatchResponse, error)) *game.Match {
	resp, err := fn()
	if err != nil {
		p.log.Debug("duel: step rejected", zap.String("match", m.ID), zap.String("step", step), zap.Error(err))
		return m
	}
	p.print(resp)
	next, err := p.settle(ctx, resp)
	if err != nil {
		p.log.Warn("duel: decision failed", zap.String("match", m.ID), zap.Error(err))
	}
	if next == nil {
		return m
	}
	return next
}

// settle answers pending decisions: no rerolls, first effect offered.
func (p *pilot) settle(ctx context.Context, resp *api.MatchResponse) (*game.Match, error) {
	for i := 0; resp.Report != nil && resp.Report.Decision != nil; i++ {
		if i > 50 {
			return resp.Match, fmt.Errorf("match %s keeps asking for decisions", resp.Match.ID)
		}
		d := resp.Report.Decision
		var err error
		switch d.Kind {
		case game.DecisionReroll:
			resp, err = p.b.Reroll(ctx, resp.Match.ID, game.RerollSelection{})
		case game.DecisionEffect:
			resp, err = p.b.Effect(ctx, resp.Match.ID, d.Options[0])
		default:
			return resp.Match, nil
		}
		if err != nil {
			return nil, err
		}
		p.print(resp)
	}
	return resp.Match, nil
}

func attacking(a models.Action) bool {
	return a.Type == models.ActionMelee || a.Type == models.ActionRanged || a.Type == models.ActionLobbed
}

func (p *pilot) targetFor(ctx context.Context, m *game.Match, sa models.SlottedAction) (string, bool) {
	if sa.Action.Ammo > 0 && m.AmmoLeft(game.PlayerID, sa.Slot, sa.Action) <= 0 {
		return "", false
	}
	at, err := p.b.AttackTargets(ctx, m.ID, sa.Slot, sa.Action.Name)
	if err != nil || len(at.Targets) == 0 {
		return "", false
	}
	return at.Targets[0].EntityID, true
}

// pickOpener ranks attacks with a target in reach by expected strength.
func (p *pilot) pickOpener(ctx context.Context, m *game.Match, me *models.Entity) (opener, bool) {
	actions := me.Actions()
	cheap := 0
	for _, sa := range actions {
		if sa.Action.Cost == "S" && attacking(sa.Action) {
			cheap++
		}
	}
	var best opener
	bestScore := -1.0
	for _, sa := range actions {
		if !attacking(sa.Action) {
			continue
		}
		ap, tp := ai.Cost(sa.Action)
		if ap > me.Turn.AP || tp > me.Turn.TP {
			continue
		}
		t, ok := p.targetFor(ctx, m, sa)
		if !ok {
			continue
		}
		if s := ai.Strength(sa.Action, p.cat, cheap, true); s > bestScore {
			best, bestScore = opener{sa: sa, target: t}, s
		}
	}
	return best, bestScore >= 0
}

// attack declares op, picking the first offered part when asked.
func (p *pilot) attack(ctx context.Context, m *game.Match, op opener) *game.Match {
	req := game.AttackRequest{AttackerID: game.PlayerID, Slot: op.sa.Slot, Action: op.sa.Action.Name, TargetID: op.target}
	resp, err := p.b.Attack(ctx, m.ID, req)
	if err == nil && resp.Report != nil && resp.Report.Decision != nil && resp.Report.Decision.Kind == game.DecisionSelectPart {
		p.print(resp)
		if parts := resp.Report.Decision.Parts; len(parts) > 0 {
			req.TargetSlot = parts[0]
			resp, err = p.b.Attack(ctx, m.ID, req)
		}
	}
	if err != nil {
		p.log.Debug("duel: attack rejected", zap.String("match", m.ID), zap.String("action", op.sa.Action.Name), zap.Error(err))
		return m
	}
	p.print(resp)
	next, err := p.settle(ctx, resp)
	if err != nil || next == nil {
		return m
	}
	return next
}

// advance spends the move action on the cell closest to the nearest enemy.
func (p *pilot) advance(ctx context.Context, m *game.Match) *game.Match {
	me := m.Player()
	enemy := nearestEnemy(m, me)
	if enemy == nil {
		return m
	}
	for _, sa := range me.Actions() {
		if sa.Action.Type != models.ActionMove {
			continue
		}
		cells, err := p.b.MoveRange(ctx, m.ID, sa.Slot, sa.Action.Name)
		if err != nil || len(cells) == 0 {
			continue
		}
		best, bestDist := me.Pos, grid.Distance(me.Pos, enemy.Pos)
		for _, c := range cells {
			if d := grid.Distance(c, enemy.Pos); d < bestDist && d > 0 {
				best, bestDist = c, d
			}
		}
		if best == me.Pos {
			return m
		}
		facing := grid.OrientationToward(best, enemy.Pos)
		return p.try(ctx, m, "move", func() (*api.MatchResponse, error) {
			return p.b.Move(ctx, m.ID, sa.Slot, sa.Action.Name, best, facing)
		})
	}
	return m
}

func nearestEnemy(m *game.Match, me *models.Entity) *models.Entity {
	var best *models.Entity
	for _, e := range m.AIMechs() {
		if best == nil || grid.Distance(me.Pos, e.Pos) < grid.Distance(me.Pos, best.Pos) {
			best = e
		}
	}
	return best
}
