package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/pefman/mechduel/internal/game"
	"github.com/pefman/mechduel/internal/models"
)

// MatchResponse is returned by every match endpoint.
type MatchResponse struct {
	Match  *game.Match  `json:"match"`
	Report *game.Report `json:"report,omitempty"`
}

type createRequest struct {
	Mode          game.Mode `json:"mode"`
	PlayerLoadout string    `json:"player_loadout"`
	AILoadout     string    `json:"ai_loadout"`
	Seed          int64     `json:"seed"`
}

type timingRequest struct {
	Timing models.ActionType `json:"timing"`
}

type stanceRequest struct {
	Stance models.Stance `json:"stance"`
}

type positionRequest struct {
	To     models.Pos         `json:"to"`
	Facing models.Orientation `json:"facing"`
}

type moveRequest struct {
	Slot   models.Slot        `json:"slot"`
	Action string             `json:"action"`
	To     models.Pos         `json:"to"`
	Facing models.Orientation `json:"facing"`
}

type slotRequest struct {
	Slot models.Slot `json:"slot"`
}

type effectRequest struct {
	Effect game.Effect `json:"effect"`
}

// AttackTargetsResponse lists what an action can hit from where the mech
// stands.
type AttackTargetsResponse struct {
	Targets []game.Target `json:"targets"`
	Cells   []models.Pos  `json:"cells"`
}

type MoveRangeResponse struct {
	Cells []models.Pos `json:"cells"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Catalog())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{"daily": s.stats.Daily()}
	if id := r.URL.Query().Get("match"); id != "" {
		tally, ok := s.stats.Match(id)
		if !ok {
			writeError(w, http.StatusNotFound, "no stats for match "+id)
			return
		}
		out["match"] = tally
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decode(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	e, err := s.create(r.Context(), game.Setup{
		Mode:          req.Mode,
		PlayerLoadout: req.PlayerLoadout,
		AILoadout:     req.AILoadout,
		Seed:          req.Seed,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	writeJSON(w, http.StatusCreated, MatchResponse{Match: e.m})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, "no match storage configured")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := s.store.ListMatches(r.Context(), limit)
	if err != nil {
		s.log.Error("store: list matches", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list matches")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// view runs fn under the match lock without changing anything.
func (s *Server) view(w http.ResponseWriter, r *http.Request, fn func(m *game.Match) (any, error)) {
	e, err := s.lookup(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out, err := fn(e.m)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// act runs one controller call under the match lock and publishes what it
// did. A report that comes back together with an error still changed the
// match and is persisted.
func (s *Server) act(w http.ResponseWriter, r *http.Request, name string, fn func(m *game.Match) (*game.Report, error)) {
	id := mux.Vars(r)["id"]
	e, err := s.lookup(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	rep, err := fn(e.m)
	if rep != nil {
		s.persist(context.WithoutCancel(r.Context()), e.m, rep)
	}
	if err != nil {
		s.log.Debug("match: rejected", zap.String("match", id), zap.String("action", name), zap.Error(err))
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.log.Debug("match: action", zap.String("match", id), zap.String("action", name), zap.Int("results", len(rep.Results)))
	writeJSON(w, http.StatusOK, MatchResponse{Match: e.m, Report: rep})
}

// bind decodes the request body into v, answering 400 on failure.
func bind(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := decode(r, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(m *game.Match) (any, error) {
		return MatchResponse{Match: m}, nil
	})
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, "no match storage configured")
		return
	}
	s.view(w, r, func(m *game.Match) (any, error) {
		return s.store.Resolutions(r.Context(), m.ID)
	})
}

// queryAction resolves the slot and action query parameters against the
// player mech.
func queryAction(m *game.Match, r *http.Request) (*models.Entity, models.Slot, models.Action, error) {
	p, err := m.Entity(game.PlayerID)
	if err != nil {
		return nil, "", models.Action{}, err
	}
	q := r.URL.Query()
	slot := models.Slot(q.Get("slot"))
	a, ok := p.ActionAt(slot, q.Get("action"))
	if !ok {
		return nil, "", models.Action{}, &game.ValidationError{Err: game.ErrUnknownAction, Reason: fmt.Sprintf("no action %q on %s", q.Get("action"), slot)}
	}
	return p, slot, a, nil
}

func (s *Server) handleMoveRange(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(m *game.Match) (any, error) {
		p, err := m.Entity(game.PlayerID)
		if err != nil {
			return nil, err
		}
		q := r.URL.Query()
		cells, err := m.MoveRange(p, models.Slot(q.Get("slot")), q.Get("action"))
		if err != nil {
			return nil, err
		}
		return MoveRangeResponse{Cells: cells}, nil
	})
}

func (s *Server) handleAttackTargets(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(m *game.Match) (any, error) {
		p, slot, a, err := queryAction(m, r)
		if err != nil {
			return nil, err
		}
		targets, cells := m.AttackTargets(p, slot, a)
		return AttackTargetsResponse{Targets: targets, Cells: cells}, nil
	})
}

func (s *Server) handleTiming(w http.ResponseWriter, r *http.Request) {
	var req timingRequest
	if !bind(w, r, &req) {
		return
	}
	s.act(w, r, "timing", func(m *game.Match) (*game.Report, error) {
		return s.ctrl.SelectTiming(m, game.PlayerID, req.Timing)
	})
}

func (s *Server) handleStance(w http.ResponseWriter, r *http.Request) {
	var req stanceRequest
	if !bind(w, r, &req) {
		return
	}
	s.act(w, r, "stance", func(m *game.Match) (*game.Report, error) {
		return s.ctrl.SetStance(m, game.PlayerID, req.Stance)
	})
}

func (s *Server) handleAdjust(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if !bind(w, r, &req) {
		return
	}
	s.act(w, r, "adjust", func(m *game.Match) (*game.Report, error) {
		return s.ctrl.AdjustMove(m, game.PlayerID, req.To, req.Facing)
	})
}

func (s *Server) handleReorient(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if !bind(w, r, &req) {
		return
	}
	s.act(w, r, "reorient", func(m *game.Match) (*game.Report, error) {
		return s.ctrl.Reorient(m, game.PlayerID, req.Facing)
	})
}

func (s *Server) handleSkipAdjustment(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, "skip-adjustment", func(m *game.Match) (*game.Report, error) {
		return s.ctrl.SkipAdjustment(m, game.PlayerID)
	})
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !bind(w, r, &req) {
		return
	}
	s.act(w, r, "move", func(m *game.Match) (*game.Report, error) {
		return s.ctrl.Move(m, game.PlayerID, req.Slot, req.Action, req.To, req.Facing)
	})
}

func (s *Server) handleAttack(w http.ResponseWriter, r *http.Request) {
	var req game.AttackRequest
	if !bind(w, r, &req) {
		return
	}
	req.AttackerID = game.PlayerID
	s.act(w, r, "attack", func(m *game.Match) (*game.Report, error) {
		return s.ctrl.DeclareAttack(m, req)
	})
}

func (s *Server) handleJettison(w http.ResponseWriter, r *http.Request) {
	var req slotRequest
	if !bind(w, r, &req) {
		return
	}
	s.act(w, r, "jettison", func(m *game.Match) (*game.Report, error) {
		return s.ctrl.Jettison(m, game.PlayerID, req.Slot)
	})
}

func (s *Server) handleReroll(w http.ResponseWriter, r *http.Request) {
	var req game.RerollSelection
	if !bind(w, r, &req) {
		return
	}
	s.act(w, r, "reroll", func(m *game.Match) (*game.Report, error) {
		return s.ctrl.SubmitReroll(m, req)
	})
}

func (s *Server) handleEffect(w http.ResponseWriter, r *http.Request) {
	var req effectRequest
	if !bind(w, r, &req) {
		return
	}
	s.act(w, r, "effect", func(m *game.Match) (*game.Report, error) {
		return s.ctrl.SubmitEffectChoice(m, req.Effect)
	})
}

func (s *Server) handleEndTurn(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, "end-turn", func(m *game.Match) (*game.Report, error) {
		return s.ctrl.EndTurn(m)
	})
}

func (s *Server) handleProjectilePhase(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, "projectile-phase", func(m *game.Match) (*game.Report, error) {
		return s.ctrl.RunProjectilePhase(m)
	})
}

func (s *Server) handleRespawn(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, "respawn", func(m *game.Match) (*game.Report, error) {
		return s.ctrl.RespawnRange(m)
	})
}
