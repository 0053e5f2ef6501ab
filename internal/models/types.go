package models

import (
	"github.com/pefman/mechduel/internal/engine"
)

// ========================= Domain Models =========================
// Shapes shared by the engine, the planners and the HTTP layer.

// Pos is a board cell. The board is 1-based.
type Pos struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

func (p Pos) Add(dx, dy int) Pos { return Pos{X: p.X + dx, Y: p.Y + dy} }

type Orientation string

const (
	North Orientation = "N"
	South Orientation = "S"
	East  Orientation = "E"
	West  Orientation = "W"
	NoDir Orientation = ""
)

// Opposite flips an orientation; NoDir stays NoDir.
func (o Orientation) Opposite() Orientation {
	switch o {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	}
	return NoDir
}

func (o Orientation) Valid() bool {
	return o == North || o == South || o == East || o == West
}

type Slot string

const (
	SlotCore     Slot = "core"
	SlotLegs     Slot = "legs"
	SlotLeftArm  Slot = "left_arm"
	SlotRightArm Slot = "right_arm"
	SlotBackpack Slot = "backpack"
	// SlotGeneric owns actions every mech gets while the unlocking parts survive.
	SlotGeneric Slot = "generic"
)

// PartSlots lists the physical slots in a fixed order.
var PartSlots = []Slot{SlotCore, SlotLegs, SlotLeftArm, SlotRightArm, SlotBackpack}

type PartStatus string

const (
	PartOK        PartStatus = "ok"
	PartDamaged   PartStatus = "damaged"
	PartDestroyed PartStatus = "destroyed"
)

type Stance string

const (
	StanceDefense Stance = "defense"
	StanceAgile   Stance = "agile"
	StanceAttack  Stance = "attack"
	StanceDowned  Stance = "downed"
)

type Controller string

const (
	ControllerPlayer Controller = "player"
	ControllerAI     Controller = "ai"
)

// Opponent returns the other side.
func (c Controller) Opponent() Controller {
	if c == ControllerPlayer {
		return ControllerAI
	}
	return ControllerPlayer
}

type ActionType string

const (
	ActionMelee     ActionType = "melee"
	ActionRanged    ActionType = "ranged"
	ActionMove      ActionType = "move"
	ActionLobbed    ActionType = "lobbed"
	ActionPassive   ActionType = "passive"
	ActionTactical  ActionType = "tactical"
	ActionQuick     ActionType = "quick"
	ActionImmediate ActionType = "immediate"
	ActionDelayed   ActionType = "delayed"
)

// IsAttack reports whether the action type rolls attack dice at a target.
func (t ActionType) IsAttack() bool {
	switch t {
	case ActionMelee, ActionRanged, ActionImmediate, ActionDelayed:
		return true
	}
	return false
}

// DiceBoost adds dice when the owner's stance and the action type match.
type DiceBoost struct {
	TriggerStance Stance       `json:"trigger_stance" yaml:"trigger_stance"`
	TriggerType   ActionType   `json:"trigger_type" yaml:"trigger_type"`
	RatioBase     int          `json:"ratio_base" yaml:"ratio_base"`
	RatioAdd      int          `json:"ratio_add" yaml:"ratio_add"`
	DiceType      engine.Color `json:"dice_type" yaml:"dice_type"`
}

// Bonus is floor(base / ratio_base) * ratio_add.
func (b DiceBoost) Bonus(base int) int {
	if b.RatioBase <= 0 {
		return 0
	}
	return (base / b.RatioBase) * b.RatioAdd
}

// Effects are the typed rule keywords an action can carry.
type Effects struct {
	ArmorPiercing        int        `json:"armor_piercing,omitempty" yaml:"armor_piercing"`
	ConvertLightning     bool       `json:"convert_lightning_to_crit,omitempty" yaml:"convert_lightning_to_crit"`
	PassiveDiceBoost     *DiceBoost `json:"passive_dice_boost,omitempty" yaml:"passive_dice_boost"`
	Static               bool       `json:"is_static,omitempty" yaml:"is_static"`
	StaticRangeBonus     int        `json:"static_range_bonus,omitempty" yaml:"static_range_bonus"`
	YellowDiceBonus      int        `json:"yellow_dice_bonus,omitempty" yaml:"yellow_dice_bonus"`
	TwoHandedRangeBonus  int        `json:"two_handed_range_bonus,omitempty" yaml:"two_handed_range_bonus"`
	TwoHandedSniper      bool       `json:"two_handed_sniper,omitempty" yaml:"two_handed_sniper"`
	Devastating          bool       `json:"devastating,omitempty" yaml:"devastating"`
	TwoHandedDevastating bool       `json:"two_handed_devastating,omitempty" yaml:"two_handed_devastating"`
	Scattershot          bool       `json:"scattershot,omitempty" yaml:"scattershot"`
	Cleave               bool       `json:"cleave,omitempty" yaml:"cleave"`
	FlightMovement       bool       `json:"flight_movement,omitempty" yaml:"flight_movement"`
	Jettison             bool       `json:"jettison_part,omitempty" yaml:"jettison_part"`
	Salvo                int        `json:"salvo,omitempty" yaml:"salvo"`
	Interceptor          int        `json:"interceptor,omitempty" yaml:"interceptor"`
	InterceptRange       int        `json:"intercept_range,omitempty" yaml:"intercept_range"`
	Shock                bool       `json:"shock,omitempty" yaml:"shock"`
	StraightLineBonus    int        `json:"straight_line_bonus,omitempty" yaml:"straight_line_bonus"`
	Display              []string   `json:"display_effects,omitempty" yaml:"display"`
}

// Action is an immutable descriptor granted by a part.
type Action struct {
	Name       string     `json:"name" yaml:"name"`
	Type       ActionType `json:"type" yaml:"type"`
	Cost       string     `json:"cost" yaml:"cost"`
	Dice       string     `json:"dice,omitempty" yaml:"dice"`
	Range      int        `json:"range" yaml:"range"`
	Ammo       int        `json:"ammo,omitempty" yaml:"ammo"`
	Style      string     `json:"style,omitempty" yaml:"style"`
	Projectile string     `json:"projectile,omitempty" yaml:"projectile"`
	Effects    Effects    `json:"effects" yaml:"effects"`
}

// Pool parses the dice expression. Catalog loading rejects bad expressions,
// so an error here yields an empty pool.
func (a Action) Pool() engine.Pool {
	p, err := engine.ParsePool(a.Dice)
	if err != nil {
		return engine.Pool{}
	}
	return p
}

// Curved actions ignore the forward arc.
func (a Action) Curved() bool { return a.Style == "curved" }

// ActionKey identifies an action use within a turn.
type ActionKey struct {
	Slot Slot   `json:"slot"`
	Name string `json:"name"`
}

// SlottedAction pairs an action with the slot granting it.
type SlottedAction struct {
	Slot   Slot   `json:"slot"`
	Action Action `json:"action"`
}

// Part tags.
const (
	TagEmptyHand = "empty_hand"
	TagHandheld  = "handheld"
)

type Part struct {
	Name        string     `json:"name" yaml:"name"`
	Armor       int        `json:"armor" yaml:"armor"`
	Structure   int        `json:"structure" yaml:"structure"`
	Parry       int        `json:"parry,omitempty" yaml:"parry"`
	Evasion     int        `json:"evasion,omitempty" yaml:"evasion"`
	Electronics int        `json:"electronics,omitempty" yaml:"electronics"`
	AdjustMove  int        `json:"adjust_move,omitempty" yaml:"adjust_move"`
	Status      PartStatus `json:"status" yaml:"-"`
	Actions     []Action   `json:"actions,omitempty" yaml:"-"`
	Tags        []string   `json:"tags,omitempty" yaml:"tags"`
	JettisonTo  string     `json:"jettison_to,omitempty" yaml:"jettison_to"`
}

func (p *Part) Alive() bool { return p != nil && p.Status != PartDestroyed }

func (p *Part) HasTag(tag string) bool {
	if p == nil {
		return false
	}
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Clone copies the part including its action list.
func (p *Part) Clone() *Part {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Actions = append([]Action(nil), p.Actions...)
	cp.Tags = append([]string(nil), p.Tags...)
	return &cp
}

type Pilot struct {
	Name       string         `json:"name" yaml:"name"`
	LinkPoints int            `json:"link_points" yaml:"link_points"`
	SpeedStats map[string]int `json:"speed_stats,omitempty" yaml:"speed_stats"`
	Skills     []string       `json:"skills,omitempty" yaml:"skills"`
}

// DefaultSpeed is used for timings a pilot has no stat for.
const DefaultSpeed = 5

// Speed returns the pilot's speed stat for a timing (lower is faster).
func (p *Pilot) Speed(timing ActionType) int {
	if p == nil || p.SpeedStats == nil {
		return DefaultSpeed
	}
	if v, ok := p.SpeedStats[string(timing)]; ok {
		return v
	}
	return DefaultSpeed
}

func (p *Pilot) HasSkill(skill string) bool {
	if p == nil {
		return false
	}
	for _, s := range p.Skills {
		if s == skill {
			return true
		}
	}
	return false
}

// TurnPhase is the single enum driving the interactive turn.
type TurnPhase string

const (
	PhaseTiming     TurnPhase = "timing"
	PhaseStance     TurnPhase = "stance"
	PhaseAdjustment TurnPhase = "adjustment"
	PhaseMain       TurnPhase = "main"
	PhaseDone       TurnPhase = "done"
)

type TurnState struct {
	AP           int         `json:"ap"`
	TP           int         `json:"tp"`
	Phase        TurnPhase   `json:"phase"`
	Timing       ActionType  `json:"timing,omitempty"`
	OpeningTaken bool        `json:"opening_taken"`
	Used         []ActionKey `json:"used,omitempty"`
}

func (t *TurnState) HasUsed(slot Slot, name string) bool {
	for _, k := range t.Used {
		if k.Slot == slot && k.Name == name {
			return true
		}
	}
	return false
}

// WsMsg is the envelope pushed over the event stream.
type WsMsg struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}
