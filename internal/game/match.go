package game

import (
	"fmt"
	"strings"

	"github.com/pefman/mechduel/internal/catalog"
	"github.com/pefman/mechduel/internal/engine"
	"github.com/pefman/mechduel/internal/grid"
	"github.com/pefman/mechduel/internal/models"
)

// Mode selects spawn layout and the win condition.
type Mode string

const (
	ModeDuel     Mode = "duel"
	ModeHorde    Mode = "horde"
	ModeRange    Mode = "range"
	ModeStandard Mode = "standard"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeDuel, ModeHorde, ModeRange, ModeStandard:
		return true
	}
	return false
}

// GameOver is empty while the match runs.
type GameOver string

const (
	GameRunning      GameOver = ""
	GameAIWin        GameOver = "ai_win"
	GamePlayerWin    GameOver = "player_win"
	GameRangeCleared GameOver = "ai_defeated_in_range"
)

// Continuation is the work left after the attack queue drains.
type Continuation string

const (
	ContinueNone            Continuation = ""
	ContinueProjectilePhase Continuation = "projectile_phase"
	ContinuePlayerTurn      Continuation = "player_turn"
)

// Event is a visual event for the presentation layer.
type Event struct {
	Seq  int            `json:"seq"`
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// PlayerID is the id of the player mech.
const PlayerID = "player_1"

// Match is the whole serializable game state. All counters are match scoped.
type Match struct {
	ID         string                       `json:"id"`
	Mode       Mode                         `json:"mode"`
	Board      grid.Board                   `json:"board"`
	Entities   map[string]*models.Entity    `json:"entities"`
	Order      []string                     `json:"order"`
	Ammo       map[string]int               `json:"ammo"`
	Events     []Event                      `json:"events,omitempty"`
	Queue      []AttackIntent               `json:"queue,omitempty"`
	Active     *Resolution                  `json:"active,omitempty"`
	PartChoice *PartChoice                  `json:"part_choice,omitempty"`
	Next       Continuation                 `json:"next,omitempty"`
	GameOver   GameOver                     `json:"game_over,omitempty"`
	AILoadout  string                       `json:"ai_loadout"`
	AIDefeats  int                          `json:"ai_defeats"`
	Round      int                          `json:"round"`
	Seed       int64                        `json:"seed"`
	Epoch      int64                        `json:"epoch"`
	Seq        int                          `json:"seq"`
	Initiative *InitiativeResult            `json:"initiative,omitempty"`
	AITimings  map[string]models.ActionType `json:"ai_timings,omitempty"`
	Fallen     []string                     `json:"fallen,omitempty"`

	src engine.Source
}

// Setup describes a new match.
type Setup struct {
	ID            string
	Mode          Mode
	PlayerLoadout string
	AILoadout     string
	Seed          int64
}

type spawn struct {
	pos models.Pos
	o   models.Orientation
}

var modeSpawns = map[Mode][2]spawn{
	ModeDuel:     {{models.Pos{X: 1, Y: 5}, models.East}, {models.Pos{X: 10, Y: 5}, models.West}},
	ModeRange:    {{models.Pos{X: 5, Y: 3}, models.South}, {models.Pos{X: 5, Y: 8}, models.North}},
	ModeStandard: {{models.Pos{X: 5, Y: 2}, models.North}, {models.Pos{X: 5, Y: 8}, models.South}},
	ModeHorde:    {{models.Pos{X: 5, Y: 2}, models.North}, {}},
}

// NewMatch builds the starting state from catalog loadouts.
func NewMatch(cat *catalog.Catalog, s Setup) (*Match, error) {
	if s.Mode == "" {
		s.Mode = ModeDuel
	}
	if !s.Mode.Valid() {
		return nil, fmt.Errorf("game: unknown mode %q", s.Mode)
	}
	if s.PlayerLoadout == "" {
		s.PlayerLoadout = "player_default"
	}
	if s.AILoadout == "" {
		s.AILoadout = "heavy"
	}
	if s.Seed == 0 {
		s.Seed = engine.NewSeed()
	}
	m := &Match{
		ID:        s.ID,
		Mode:      s.Mode,
		Board:     grid.Standard,
		Entities:  map[string]*models.Entity{},
		Ammo:      map[string]int{},
		AILoadout: s.AILoadout,
		Seed:      s.Seed,
		Round:     1,
		AITimings: map[string]models.ActionType{},
	}
	sp := modeSpawns[s.Mode]
	player, err := cat.BuildMech(PlayerID, models.ControllerPlayer, s.PlayerLoadout, sp[0].pos, sp[0].o)
	if err != nil {
		return nil, err
	}
	m.AddEntity(player)
	if s.Mode == ModeHorde {
		if _, err := m.spawnHordeAI(cat); err != nil {
			return nil, err
		}
	} else {
		ai, err := cat.BuildMech("ai_1", models.ControllerAI, s.AILoadout, sp[1].pos, sp[1].o)
		if err != nil {
			return nil, err
		}
		m.AddEntity(ai)
	}
	return m, nil
}

// spawnHordeAI drops a fresh AI on a free cell of the two rows farthest
// from the player's side.
func (m *Match) spawnHordeAI(cat *catalog.Catalog) (*models.Entity, error) {
	occupied := m.Occupied("")
	var free []models.Pos
	for y := m.Board.Height - 1; y <= m.Board.Height; y++ {
		for x := 1; x <= m.Board.Width; x++ {
			p := models.Pos{X: x, Y: y}
			if !occupied[p] {
				free = append(free, p)
			}
		}
	}
	if len(free) == 0 {
		return nil, fmt.Errorf("game: no free spawn cell")
	}
	pos := free[m.RNG().Intn(len(free))]
	loadout := m.AILoadout
	if m.AIDefeats > 0 {
		keys := AILoadouts(cat)
		loadout = keys[m.RNG().Intn(len(keys))]
	}
	ai, err := cat.BuildMech(m.nextID("ai"), models.ControllerAI, loadout, pos, models.North)
	if err != nil {
		return nil, err
	}
	m.AddEntity(ai)
	return ai, nil
}

// RNG returns the match random source, reseeded after every rehydration.
func (m *Match) RNG() engine.Source {
	if m.src == nil {
		m.src = engine.NewRNG(m.Seed ^ (m.Epoch * 0x5DEECE66D))
	}
	return m.src
}

// SetSource overrides the random source, for tests.
func (m *Match) SetSource(src engine.Source) { m.src = src }

// Rehydrated must be called after a match is loaded from storage so the
// next rolls do not replay the previous ones.
func (m *Match) Rehydrated() {
	m.Epoch++
	m.src = nil
	if m.Entities == nil {
		m.Entities = map[string]*models.Entity{}
	}
	if m.Ammo == nil {
		m.Ammo = map[string]int{}
	}
	if m.AITimings == nil {
		m.AITimings = map[string]models.ActionType{}
	}
}

func (m *Match) nextID(prefix string) string {
	m.Seq++
	return fmt.Sprintf("%s_%d", prefix, m.Seq)
}

// AILoadouts lists loadouts an AI may be spawned with.
func AILoadouts(cat *catalog.Catalog) []string {
	out := []string{}
	for _, k := range cat.LoadoutKeys() {
		if !strings.HasPrefix(k, "player") {
			out = append(out, k)
		}
	}
	return out
}

// AddEntity registers an entity and its ammo.
func (m *Match) AddEntity(e *models.Entity) {
	if _, ok := m.Entities[e.ID]; !ok {
		m.Order = append(m.Order, e.ID)
	}
	m.Entities[e.ID] = e
	if e.IsMech() {
		for k, n := range catalog.AmmoFor(e) {
			m.Ammo[ammoKey(e.ID, k.Slot, k.Name)] = n
		}
	}
}

// remove drops an entity and its ammo.
func (m *Match) remove(id string) {
	delete(m.Entities, id)
	for i, o := range m.Order {
		if o == id {
			m.Order = append(m.Order[:i], m.Order[i+1:]...)
			break
		}
	}
	prefix := id + "|"
	for k := range m.Ammo {
		if strings.HasPrefix(k, prefix) {
			delete(m.Ammo, k)
		}
	}
	delete(m.AITimings, id)
}

// fallen reports whether the defeat of an AI mech was already counted.
func (m *Match) fallen(id string) bool {
	for _, f := range m.Fallen {
		if f == id {
			return true
		}
	}
	return false
}

// Entity looks up an entity by id.
func (m *Match) Entity(id string) (*models.Entity, error) {
	e, ok := m.Entities[id]
	if !ok || e == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, id)
	}
	return e, nil
}

// All lists entities in spawn order.
func (m *Match) All() []*models.Entity {
	out := make([]*models.Entity, 0, len(m.Order))
	for _, id := range m.Order {
		if e := m.Entities[id]; e != nil {
			out = append(out, e)
		}
	}
	return out
}

// Living lists entities that are still in play.
func (m *Match) Living() []*models.Entity {
	out := []*models.Entity{}
	for _, e := range m.All() {
		if e.Alive() {
			out = append(out, e)
		}
	}
	return out
}

// Player returns the player mech, alive or not.
func (m *Match) Player() *models.Entity { return m.Entities[PlayerID] }

// AIMechs lists living AI mechs.
func (m *Match) AIMechs() []*models.Entity {
	out := []*models.Entity{}
	for _, e := range m.Living() {
		if e.IsMech() && e.Controller == models.ControllerAI {
			out = append(out, e)
		}
	}
	return out
}

// Enemies lists living entities controlled by the other side.
func (m *Match) Enemies(of *models.Entity) []*models.Entity {
	out := []*models.Entity{}
	for _, e := range m.Living() {
		if e.Controller != of.Controller {
			out = append(out, e)
		}
	}
	return out
}

// EnemyMechs lists living enemy mechs.
func (m *Match) EnemyMechs(of *models.Entity) []*models.Entity {
	out := []*models.Entity{}
	for _, e := range m.Enemies(of) {
		if e.IsMech() {
			out = append(out, e)
		}
	}
	return out
}

// EntitiesAt lists living entities on a cell.
func (m *Match) EntitiesAt(p models.Pos, excludeID string) []*models.Entity {
	out := []*models.Entity{}
	for _, e := range m.Living() {
		if e.ID != excludeID && e.Pos == p {
			out = append(out, e)
		}
	}
	return out
}

// Occupied marks cells holding a living mech. Projectiles do not block.
func (m *Match) Occupied(excludeID string) map[models.Pos]bool {
	out := map[models.Pos]bool{}
	for _, e := range m.Living() {
		if e.ID != excludeID && e.IsMech() {
			out[e.Pos] = true
		}
	}
	return out
}

func ammoKey(id string, slot models.Slot, name string) string {
	return id + "|" + string(slot) + "|" + name
}

// AmmoLeft returns remaining ammo, or -1 for actions without ammo.
func (m *Match) AmmoLeft(id string, slot models.Slot, a models.Action) int {
	if a.Ammo <= 0 {
		return -1
	}
	return m.Ammo[ammoKey(id, slot, a.Name)]
}

func (m *Match) spendAmmo(id string, slot models.Slot, a models.Action, n int) {
	if a.Ammo <= 0 {
		return
	}
	k := ammoKey(id, slot, a.Name)
	m.Ammo[k] = max(0, m.Ammo[k]-n)
}

// emit appends a visual event. The sink never blocks.
func (m *Match) emit(typ string, data map[string]any) {
	m.Seq++
	m.Events = append(m.Events, Event{Seq: m.Seq, Type: typ, Data: data})
}

// DrainEvents hands the pending visual events to the caller.
func (m *Match) DrainEvents() []Event {
	out := m.Events
	m.Events = nil
	return out
}

// Pending reports whether a resolution is suspended on a player decision.
func (m *Match) Pending() bool { return m.Active != nil }
