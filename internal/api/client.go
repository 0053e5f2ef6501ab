// Package api is an HTTP client for the match server.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pefman/mechduel/internal/catalog"
	"github.com/pefman/mechduel/internal/game"
	"github.com/pefman/mechduel/internal/models"
	"github.com/pefman/mechduel/internal/stats"
)

var httpClient = &http.Client{Timeout: 8 * time.Second}

const catalogCacheTTL = 5 * time.Minute

// Config holds API configuration
type Config struct {
	BaseURL string
}

type Client struct {
	config Config

	// The catalog only changes with a server deploy.
	catalogMu   sync.RWMutex
	catalog     *catalog.Catalog
	catalogTime time.Time
}

func NewClient(baseURL string) *Client {
	return &Client{
		config: Config{BaseURL: baseURL},
	}
}

// Error is a non-2xx answer from the server.
type Error struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

// MatchResponse mirrors what every match endpoint returns.
type MatchResponse struct {
	Match  *game.Match  `json:"match"`
	Report *game.Report `json:"report,omitempty"`
}

// CreateMatchRequest starts a match. Zero values pick server defaults.
type CreateMatchRequest struct {
	Mode          game.Mode `json:"mode,omitempty"`
	PlayerLoadout string    `json:"player_loadout,omitempty"`
	AILoadout     string    `json:"ai_loadout,omitempty"`
	Seed          int64     `json:"seed,omitempty"`
}

// AttackTargets is what an action can hit right now.
type AttackTargets struct {
	Targets []game.Target `json:"targets"`
	Cells   []models.Pos  `json:"cells"`
}

// Stats is the body of /api/stats.
type Stats struct {
	Daily stats.Daily  `json:"daily"`
	Match *stats.Tally `json:"match,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	base := strings.TrimRight(c.config.BaseURL, "/")
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		apiErr.Status = resp.StatusCode
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) apiGet(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// post sends in to a match endpoint. A nil body is sent as {}.
func (c *Client) post(ctx context.Context, id, action string, in any) (*MatchResponse, error) {
	if in == nil {
		in = struct{}{}
	}
	var out MatchResponse
	if err := c.do(ctx, http.MethodPost, "/api/matches/"+url.PathEscape(id)+"/"+action, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Health(ctx context.Context) error {
	var out map[string]string
	if err := c.apiGet(ctx, "/healthz", &out); err != nil {
		return err
	}
	if out["status"] != "ok" {
		return fmt.Errorf("unhealthy: %v", out)
	}
	return nil
}

// Catalog fetches the reference tables, cached for a few minutes.
func (c *Client) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	c.catalogMu.RLock()
	if c.catalog != nil && time.Since(c.catalogTime) < catalogCacheTTL {
		cat := c.catalog
		c.catalogMu.RUnlock()
		return cat, nil
	}
	c.catalogMu.RUnlock()

	var cat catalog.Catalog
	if err := c.apiGet(ctx, "/api/catalog", &cat); err != nil {
		return nil, err
	}
	c.catalogMu.Lock()
	c.catalog, c.catalogTime = &cat, time.Now()
	c.catalogMu.Unlock()
	return &cat, nil
}

func (c *Client) Stats(ctx context.Context, matchID string) (*Stats, error) {
	path := "/api/stats"
	if matchID != "" {
		path += "?match=" + url.QueryEscape(matchID)
	}
	var out Stats
	if err := c.apiGet(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateMatch(ctx context.Context, req CreateMatchRequest) (*MatchResponse, error) {
	var out MatchResponse
	if err := c.do(ctx, http.MethodPost, "/api/matches", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Match(ctx context.Context, id string) (*MatchResponse, error) {
	var out MatchResponse
	if err := c.apiGet(ctx, "/api/matches/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SelectTiming(ctx context.Context, id string, t models.ActionType) (*MatchResponse, error) {
	return c.post(ctx, id, "timing", map[string]any{"timing": t})
}

func (c *Client) SetStance(ctx context.Context, id string, s models.Stance) (*MatchResponse, error) {
	return c.post(ctx, id, "stance", map[string]any{"stance": s})
}

func (c *Client) AdjustMove(ctx context.Context, id string, to models.Pos, facing models.Orientation) (*MatchResponse, error) {
	return c.post(ctx, id, "adjust", map[string]any{"to": to, "facing": facing})
}

func (c *Client) Reorient(ctx context.Context, id string, facing models.Orientation) (*MatchResponse, error) {
	return c.post(ctx, id, "reorient", map[string]any{"facing": facing})
}

func (c *Client) SkipAdjustment(ctx context.Context, id string) (*MatchResponse, error) {
	return c.post(ctx, id, "skip-adjustment", nil)
}

func (c *Client) Move(ctx context.Context, id string, slot models.Slot, action string, to models.Pos, facing models.Orientation) (*MatchResponse, error) {
	return c.post(ctx, id, "move", map[string]any{"slot": slot, "action": action, "to": to, "facing": facing})
}

func (c *Client) Attack(ctx context.Context, id string, req game.AttackRequest) (*MatchResponse, error) {
	return c.post(ctx, id, "attack", req)
}

func (c *Client) Jettison(ctx context.Context, id string, slot models.Slot) (*MatchResponse, error) {
	return c.post(ctx, id, "jettison", map[string]any{"slot": slot})
}

func (c *Client) Reroll(ctx context.Context, id string, sel game.RerollSelection) (*MatchResponse, error) {
	return c.post(ctx, id, "reroll", sel)
}

func (c *Client) Effect(ctx context.Context, id string, effect game.Effect) (*MatchResponse, error) {
	return c.post(ctx, id, "effect", map[string]any{"effect": effect})
}

func (c *Client) EndTurn(ctx context.Context, id string) (*MatchResponse, error) {
	return c.post(ctx, id, "end-turn", nil)
}

func (c *Client) RunProjectilePhase(ctx context.Context, id string) (*MatchResponse, error) {
	return c.post(ctx, id, "projectile-phase", nil)
}

func (c *Client) Respawn(ctx context.Context, id string) (*MatchResponse, error) {
	return c.post(ctx, id, "respawn", nil)
}

func actionQuery(slot models.Slot, action string) string {
	q := url.Values{}
	q.Set("slot", string(slot))
	q.Set("action", action)
	return q.Encode()
}

func (c *Client) MoveRange(ctx context.Context, id string, slot models.Slot, action string) ([]models.Pos, error) {
	var out struct {
		Cells []models.Pos `json:"cells"`
	}
	if err := c.apiGet(ctx, "/api/matches/"+url.PathEscape(id)+"/move-range?"+actionQuery(slot, action), &out); err != nil {
		return nil, err
	}
	return out.Cells, nil
}

func (c *Client) AttackTargets(ctx context.Context, id string, slot models.Slot, action string) (*AttackTargets, error) {
	var out AttackTargets
	if err := c.apiGet(ctx, "/api/matches/"+url.PathEscape(id)+"/attack-targets?"+actionQuery(slot, action), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
