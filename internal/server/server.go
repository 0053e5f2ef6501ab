// Package server exposes matches over HTTP and streams their visual events
// over websockets.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/pefman/mechduel/internal/game"
	"github.com/pefman/mechduel/internal/stats"
	"github.com/pefman/mechduel/internal/store"
)

// Storage persists match snapshots and the resolution journal.
type Storage interface {
	SaveMatch(ctx context.Context, m *game.Match) error
	LoadMatch(ctx context.Context, id string) (*game.Match, error)
	ListMatches(ctx context.Context, limit int) ([]store.MatchSummary, error)
	RecordResolutions(ctx context.Context, matchID string, results []game.AttackResult) error
	Resolutions(ctx context.Context, matchID string) ([]game.AttackResult, error)
}

// errMatchNotFound is returned for ids that are neither live nor stored.
var errMatchNotFound = errors.New("match not found")

// entry serializes access to one match.
type entry struct {
	mu sync.Mutex
	m  *game.Match
}

// Server owns live matches. Each match is guarded by its own mutex; the
// engine itself is not safe for concurrent use.
type Server struct {
	ctrl   *game.Controller
	store  Storage
	stats  *stats.Tracker
	hub    *Hub
	log    *zap.Logger
	origin string
	seed   int64

	mu      sync.Mutex
	matches map[string]*entry
}

type Option func(*Server)

// WithStore persists every match change. Without it matches live in
// memory only.
func WithStore(st Storage) Option { return func(s *Server) { s.store = st } }

func WithStats(t *stats.Tracker) Option { return func(s *Server) { s.stats = t } }

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithOrigin restricts CORS and websocket upgrades to one origin. "*"
// allows any.
func WithOrigin(origin string) Option { return func(s *Server) { s.origin = origin } }

// WithSeed fixes the dice seed of matches created without one.
func WithSeed(seed int64) Option { return func(s *Server) { s.seed = seed } }

func New(ctrl *game.Controller, opts ...Option) *Server {
	s := &Server{
		ctrl:    ctrl,
		log:     zap.NewNop(),
		origin:  "*",
		matches: map[string]*entry{},
	}
	for _, o := range opts {
		o(s)
	}
	if s.stats == nil {
		s.stats = stats.NewTracker()
	}
	s.hub = NewHub(s.log, s.origin)
	return s
}

// Handler returns the routed and CORS-wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/catalog", s.handleCatalog).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/matches", s.handleCreate).Methods(http.MethodPost)
	api.HandleFunc("/matches", s.handleList).Methods(http.MethodGet)

	api.HandleFunc("/matches/{id}", s.handleGet).Methods(http.MethodGet)

	m := api.PathPrefix("/matches/{id}").Subrouter()
	m.HandleFunc("/journal", s.handleJournal).Methods(http.MethodGet)
	m.HandleFunc("/move-range", s.handleMoveRange).Methods(http.MethodGet)
	m.HandleFunc("/attack-targets", s.handleAttackTargets).Methods(http.MethodGet)
	m.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)
	m.HandleFunc("/timing", s.handleTiming).Methods(http.MethodPost)
	m.HandleFunc("/stance", s.handleStance).Methods(http.MethodPost)
	m.HandleFunc("/adjust", s.handleAdjust).Methods(http.MethodPost)
	m.HandleFunc("/reorient", s.handleReorient).Methods(http.MethodPost)
	m.HandleFunc("/skip-adjustment", s.handleSkipAdjustment).Methods(http.MethodPost)
	m.HandleFunc("/move", s.handleMove).Methods(http.MethodPost)
	m.HandleFunc("/attack", s.handleAttack).Methods(http.MethodPost)
	m.HandleFunc("/jettison", s.handleJettison).Methods(http.MethodPost)
	m.HandleFunc("/reroll", s.handleReroll).Methods(http.MethodPost)
	m.HandleFunc("/effect", s.handleEffect).Methods(http.MethodPost)
	m.HandleFunc("/end-turn", s.handleEndTurn).Methods(http.MethodPost)
	m.HandleFunc("/projectile-phase", s.handleProjectilePhase).Methods(http.MethodPost)
	m.HandleFunc("/respawn", s.handleRespawn).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "unsupported path")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, r.Method+" not allowed")
	})
	return s.withCORS(r)
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// create builds, registers and persists a new match.
func (s *Server) create(ctx context.Context, setup game.Setup) (*entry, error) {
	setup.ID = uuid.NewString()
	if setup.Seed == 0 {
		setup.Seed = s.seed
	}
	m, err := game.NewMatch(s.ctrl.Catalog(), setup)
	if err != nil {
		return nil, err
	}
	e := &entry{m: m}
	s.mu.Lock()
	s.matches[m.ID] = e
	s.mu.Unlock()
	s.persist(ctx, m, nil)
	s.log.Info("match: created", zap.String("match", m.ID), zap.String("mode", string(m.Mode)), zap.String("ai", m.AILoadout))
	return e, nil
}

// lookup returns a live match, loading it from storage on first use.
func (s *Server) lookup(ctx context.Context, id string) (*entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.matches[id]; ok {
		return e, nil
	}
	if s.store == nil {
		return nil, fmt.Errorf("%w: %s", errMatchNotFound, id)
	}
	m, err := s.store.LoadMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	e := &entry{m: m}
	s.matches[id] = e
	s.log.Info("match: loaded", zap.String("match", id), zap.Int64("epoch", m.Epoch))
	return e, nil
}

// persist hands a report to stats, storage and websocket subscribers.
// Storage failures are logged; the in-memory match stays authoritative.
func (s *Server) persist(ctx context.Context, m *game.Match, rep *game.Report) {
	if rep != nil {
		s.stats.Record(m, rep)
	}
	if s.store != nil {
		if err := s.store.SaveMatch(ctx, m); err != nil {
			s.log.Error("store: save match", zap.String("match", m.ID), zap.Error(err))
		}
		if rep != nil && len(rep.Results) > 0 {
			if err := s.store.RecordResolutions(ctx, m.ID, rep.Results); err != nil {
				s.log.Error("store: record resolutions", zap.String("match", m.ID), zap.Error(err))
			}
		}
	}
	var logs []string
	if rep != nil {
		logs = rep.Logs
	}
	s.hub.Publish(m.ID, m.DrainEvents(), logs)
}
