package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pefman/mechduel/internal/api"
	"github.com/pefman/mechduel/internal/catalog"
	"github.com/pefman/mechduel/internal/game"
	"github.com/pefman/mechduel/internal/models"
	"github.com/pefman/mechduel/internal/stats"
)

// backend is what the pilot drives: the server through api.Client, or an
// engine in this process.
type backend interface {
	Catalog(ctx context.Context) (*catalog.Catalog, error)
	CreateMatch(ctx context.Context, req api.CreateMatchRequest) (*api.MatchResponse, error)
	SelectTiming(ctx context.Context, id string, t models.ActionType) (*api.MatchResponse, error)
	SetStance(ctx context.Context, id string, s models.Stance) (*api.MatchResponse, error)
	SkipAdjustment(ctx context.Context, id string) (*api.MatchResponse, error)
	Move(ctx context.Context, id string, slot models.Slot, action string, to models.Pos, facing models.Orientation) (*api.MatchResponse, error)
	Attack(ctx context.Context, id string, req game.AttackRequest) (*api.MatchResponse, error)
	Reroll(ctx context.Context, id string, sel game.RerollSelection) (*api.MatchResponse, error)
	Effect(ctx context.Context, id string, effect game.Effect) (*api.MatchResponse, error)
	EndTurn(ctx context.Context, id string) (*api.MatchResponse, error)
	MoveRange(ctx context.Context, id string, slot models.Slot, action string) ([]models.Pos, error)
	AttackTargets(ctx context.Context, id string, slot models.Slot, action string) (*api.AttackTargets, error)
	Stats(ctx context.Context, matchID string) (*api.Stats, error)
}

var _ backend = (*api.Client)(nil)

// local runs matches in process. Not safe for concurrent use.
type local struct {
	ctrl    *game.Controller
	seed    int64
	matches map[string]*game.Match
	stats   *stats.Tracker
}

func newLocal(ctrl *game.Controller, seed int64) *local {
	return &local{ctrl: ctrl, seed: seed, matches: map[string]*game.Match{}, stats: stats.NewTracker()}
}

func (l *local) match(id string) (*game.Match, error) {
	m, ok := l.matches[id]
	if !ok {
		return nil, fmt.Errorf("match %s not found", id)
	}
	return m, nil
}

// call runs fn on match id and wraps the outcome like the server does.
func (l *local) call(id string, fn func(m *game.Match) (*game.Report, error)) (*api.MatchResponse, error) {
	m, err := l.match(id)
	if err != nil {
		return nil, err
	}
	rep, err := fn(m)
	if rep != nil {
		l.stats.Record(m, rep)
		m.DrainEvents()
	}
	if err != nil {
		return nil, err
	}
	return &api.MatchResponse{Match: m, Report: rep}, nil
}

func (l *local) Catalog(context.Context) (*catalog.Catalog, error) { return l.ctrl.Catalog(), nil }

func (l *local) CreateMatch(_ context.Context, req api.CreateMatchRequest) (*api.MatchResponse, error) {
	seed := req.Seed
	if seed == 0 {
		seed = l.seed
	}
	m, err := game.NewMatch(l.ctrl.Catalog(), game.Setup{
		ID:            uuid.NewString(),
		Mode:          req.Mode,
		PlayerLoadout: req.PlayerLoadout,
		AILoadout:     req.AILoadout,
		Seed:          seed,
	})
	if err != nil {
		return nil, err
	}
	l.matches[m.ID] = m
	return &api.MatchResponse{Match: m}, nil
}

func (l *local) SelectTiming(_ context.Context, id string, t models.ActionType) (*api.MatchResponse, error) {
	return l.call(id, func(m *game.Match) (*game.Report, error) { return l.ctrl.SelectTiming(m, game.PlayerID, t) })
}

func (l *local) SetStance(_ context.Context, id string, s models.Stance) (*api.MatchResponse, error) {
	return l.call(id, func(m *game.Match) (*game.Report, error) { return l.ctrl.SetStance(m, game.PlayerID, s) })
}

func (l *local) SkipAdjustment(_ context.Context, id string) (*api.MatchResponse, error) {
	return l.call(id, func(m *game.Match) (*game.Report, error) { return l.ctrl.SkipAdjustment(m, game.PlayerID) })
}

func (l *local) Move(_ context.Context, id string, slot models.Slot, action string, to models.Pos, facing models.Orientation) (*api.MatchResponse, error) {
	return l.call(id, func(m *game.Match) (*game.Report, error) {
		return l.ctrl.Move(m, game.PlayerID, slot, action, to, facing)
	})
}

func (l *local) Attack(_ context.Context, id string, req game.AttackRequest) (*api.MatchResponse, error) {
	req.AttackerID = game.PlayerID
	return l.call(id, func(m *game.Match) (*game.Report, error) { return l.ctrl.DeclareAttack(m, req) })
}

func (l *local) Reroll(_ context.Context, id string, sel game.RerollSelection) (*api.MatchResponse, error) {
	return l.call(id, func(m *game.Match) (*game.Report, error) { return l.ctrl.SubmitReroll(m, sel) })
}

func (l *local) Effect(_ context.Context, id string, effect game.Effect) (*api.MatchResponse, error) {
	return l.call(id, func(m *game.Match) (*game.Report, error) { return l.ctrl.SubmitEffectChoice(m, effect) })
}

func (l *local) EndTurn(_ context.Context, id string) (*api.MatchResponse, error) {
	return l.call(id, l.ctrl.EndTurn)
}

func (l *local) MoveRange(_ context.Context, id string, slot models.Slot, action string) ([]models.Pos, error) {
	m, err := l.match(id)
	if err != nil {
		return nil, err
	}
	p, err := m.Entity(game.PlayerID)
	if err != nil {
		return nil, err
	}
	return m.MoveRange(p, slot, action)
}

func (l *local) AttackTargets(_ context.Context, id string, slot models.Slot, action string) (*api.AttackTargets, error) {
	m, err := l.match(id)
	if err != nil {
		return nil, err
	}
	p, err := m.Entity(game.PlayerID)
	if err != nil {
		return nil, err
	}
	a, ok := p.ActionAt(slot, action)
	if !ok {
		return nil, fmt.Errorf("no action %q on %s", action, slot)
	}
	targets, cells := m.AttackTargets(p, slot, a)
	return &api.AttackTargets{Targets: targets, Cells: cells}, nil
}

func (l *local) Stats(_ context.Context, matchID string) (*api.Stats, error) {
	out := &api.Stats{Daily: l.stats.Daily()}
	if tally, ok := l.stats.Match(matchID); ok {
		out.Match = &tally
	}
	return out, nil
}
