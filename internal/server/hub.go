package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pefman/mechduel/internal/game"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 64
)

// wsMsg is the envelope of every websocket frame.
type wsMsg struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans visual events out to the websocket subscribers of each match.
// Slow subscribers are dropped rather than blocking the match.
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
}

func NewHub(log *zap.Logger, origin string) *Hub {
	h := &Hub{log: log, subs: map[string]map[*subscriber]struct{}{}}
	h.upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool {
		return origin == "*" || r.Header.Get("Origin") == "" || r.Header.Get("Origin") == origin
	}}
	return h
}

// Publish sends events, then the report log, to every subscriber of match.
func (h *Hub) Publish(matchID string, events []game.Event, logs []string) {
	var frames [][]byte
	for _, ev := range events {
		if b, err := json.Marshal(wsMsg{Type: ev.Type, Data: ev}); err == nil {
			frames = append(frames, b)
		}
	}
	if len(logs) > 0 {
		if b, err := json.Marshal(wsMsg{Type: "log", Data: logs}); err == nil {
			frames = append(frames, b)
		}
	}
	if len(frames) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[matchID] {
	fanout:
		for _, f := range frames {
			select {
			case sub.send <- f:
			default:
				h.log.Warn("ws: subscriber too slow, dropping", zap.String("match", matchID))
				h.removeLocked(matchID, sub)
				break fanout
			}
		}
	}
}

// Subscribers counts the live subscribers of a match.
func (h *Hub) Subscribers(matchID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[matchID])
}

func (h *Hub) add(matchID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[matchID] == nil {
		h.subs[matchID] = map[*subscriber]struct{}{}
	}
	h.subs[matchID][sub] = struct{}{}
}

func (h *Hub) remove(matchID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(matchID, sub)
}

func (h *Hub) removeLocked(matchID string, sub *subscriber) {
	set := h.subs[matchID]
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.send)
	if len(set) == 0 {
		delete(h.subs, matchID)
	}
}

// serve upgrades the request and streams until the client goes away.
// hello is the first frame the client receives.
func (h *Hub) serve(w http.ResponseWriter, r *http.Request, matchID string, hello wsMsg) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws: upgrade failed", zap.String("match", matchID), zap.Error(err))
		return
	}
	sub := &subscriber{conn: conn, send: make(chan []byte, sendBuffer)}
	if b, err := json.Marshal(hello); err == nil {
		sub.send <- b
	}
	h.add(matchID, sub)
	h.log.Info("ws: connect", zap.String("match", matchID), zap.String("from", r.RemoteAddr))
	go h.writer(sub)
	h.reader(matchID, sub)
}

// reader drains client frames so pongs and close frames are processed.
func (h *Hub) reader(matchID string, sub *subscriber) {
	defer func() {
		h.remove(matchID, sub)
		_ = sub.conn.Close()
		h.log.Info("ws: closed", zap.String("match", matchID))
	}()
	_ = sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("ws: read error", zap.String("match", matchID), zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writer(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = sub.conn.Close()
	}()
	for {
		select {
		case b, ok := <-sub.send:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = sub.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	e, err := s.lookup(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	e.mu.Lock()
	b, err := json.Marshal(MatchResponse{Match: e.m})
	e.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not encode match")
		return
	}
	s.hub.serve(w, r, id, wsMsg{Type: "state", Data: json.RawMessage(b)})
}
