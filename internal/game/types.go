package game

import (
	"fmt"

	"github.com/pefman/mechduel/internal/engine"
	"github.com/pefman/mechduel/internal/models"
)

// Stage of a resolution. Only the resume entry point matching the stage may run.
type Stage string

const (
	StageInitialRoll          Stage = "initial_roll"
	StageAwaitingAttackReroll Stage = "awaiting_attack_reroll"
	StageAwaitingEffectChoice Stage = "awaiting_effect_choice"
	StageAwaitingEffectReroll Stage = "awaiting_effect_reroll"
	StageResolved             Stage = "resolved"
)

// Outcome of a finished resolution.
type Outcome string

const (
	OutcomePending    Outcome = "pending"
	OutcomePenetrated Outcome = "penetrated"
	OutcomeNoDamage   Outcome = "no_damage"
	OutcomeInvalid    Outcome = "invalid"
)

// Effect is an overflow bonus effect.
type Effect string

const (
	EffectDevastating Effect = "devastating"
	EffectScattershot Effect = "scattershot"
	EffectCleave      Effect = "cleave"
)

// effectPriority is the order AI attackers pick effects in.
var effectPriority = []Effect{EffectDevastating, EffectCleave, EffectScattershot}

// DecisionKind tells the caller what input resumes the game.
type DecisionKind string

const (
	DecisionReroll     DecisionKind = "reroll_choice"
	DecisionEffect     DecisionKind = "effect_choice"
	DecisionSelectPart DecisionKind = "select_part"
)

// AttackIntent is one queued attack. Planners, projectiles and the player
// all feed the same queue.
type AttackIntent struct {
	AttackerID   string        `json:"attacker_id"`
	DefenderID   string        `json:"defender_id"`
	Slot         models.Slot   `json:"slot"`
	Action       models.Action `json:"action"`
	TargetSlot   models.Slot   `json:"target_slot,omitempty"`
	BackAttack   bool          `json:"back_attack,omitempty"`
	Interception bool          `json:"interception,omitempty"`
}

// AttackRequest is a player attack declaration.
type AttackRequest struct {
	AttackerID string      `json:"attacker_id"`
	Slot       models.Slot `json:"slot"`
	Action     string      `json:"action"`
	TargetID   string      `json:"target_id,omitempty"`
	TargetPos  *models.Pos `json:"target_pos,omitempty"`
	TargetSlot models.Slot `json:"target_slot,omitempty"`
}

// PartChange records one part status transition.
type PartChange struct {
	EntityID string            `json:"entity_id"`
	Slot     models.Slot       `json:"slot"`
	Part     string            `json:"part"`
	From     models.PartStatus `json:"from"`
	To       models.PartStatus `json:"to"`
}

// PilotChange records link points lost by a pilot.
type PilotChange struct {
	EntityID  string `json:"entity_id"`
	Pilot     string `json:"pilot"`
	Delta     int    `json:"delta"`
	Remaining int    `json:"remaining"`
	Reason    string `json:"reason"`
}

// ChangeSet is the resolver's output contract.
type ChangeSet struct {
	Parts     []PartChange  `json:"parts,omitempty"`
	Pilots    []PilotChange `json:"pilots,omitempty"`
	Destroyed []string      `json:"destroyed,omitempty"`
	Downed    []string      `json:"downed,omitempty"`
}

// Clone copies every list so later appends never reach the copy.
func (c ChangeSet) Clone() ChangeSet {
	return ChangeSet{
		Parts:     append([]PartChange(nil), c.Parts...),
		Pilots:    append([]PilotChange(nil), c.Pilots...),
		Destroyed: append([]string(nil), c.Destroyed...),
		Downed:    append([]string(nil), c.Downed...),
	}
}

func (c *ChangeSet) Merge(o ChangeSet) {
	c.Parts = append(c.Parts, o.Parts...)
	c.Pilots = append(c.Pilots, o.Pilots...)
	c.Destroyed = append(c.Destroyed, o.Destroyed...)
	c.Downed = append(c.Downed, o.Downed...)
}

func (c ChangeSet) Empty() bool {
	return len(c.Parts) == 0 && len(c.Pilots) == 0 && len(c.Destroyed) == 0 && len(c.Downed) == 0
}

// RollDetails is the dice breakdown of one roll step, for the UI.
type RollDetails struct {
	Type          string           `json:"type"`
	AttackInput   engine.Pool      `json:"attack_input,omitempty"`
	AttackResult  engine.Breakdown `json:"attack_result,omitempty"`
	DefenseInput  engine.Pool      `json:"defense_input,omitempty"`
	DefenseResult engine.Breakdown `json:"defense_result,omitempty"`
}

// Decision is the machine readable "input required" payload.
type Decision struct {
	Kind             DecisionKind     `json:"kind"`
	ResolutionID     string           `json:"resolution_id,omitempty"`
	AttackerID       string           `json:"attacker_id"`
	DefenderID       string           `json:"defender_id"`
	PlayerIsAttacker bool             `json:"player_is_attacker"`
	PlayerIsDefender bool             `json:"player_is_defender"`
	AttackRaw        engine.RawRoll   `json:"attack_raw,omitempty"`
	DefenseRaw       engine.RawRoll   `json:"defense_raw,omitempty"`
	Attack           engine.Breakdown `json:"attack,omitempty"`
	Defense          engine.Breakdown `json:"defense,omitempty"`
	Options          []Effect         `json:"options,omitempty"`
	OverflowLight    int              `json:"overflow_light,omitempty"`
	OverflowHeavy    int              `json:"overflow_heavy,omitempty"`
	LinkPoints       int              `json:"link_points,omitempty"`
	Parts            []models.Slot    `json:"parts,omitempty"`
}

// AttackResult is what one resolution step hands back.
type AttackResult struct {
	ResolutionID string        `json:"resolution_id"`
	AttackerID   string        `json:"attacker_id"`
	DefenderID   string        `json:"defender_id"`
	Action       string        `json:"action"`
	Logs         []string      `json:"logs"`
	Stage        Stage         `json:"stage"`
	Outcome      Outcome       `json:"outcome"`
	Changes      ChangeSet     `json:"changes"`
	Dice         []RollDetails `json:"dice,omitempty"`
	Decision     *Decision     `json:"decision,omitempty"`
}

// Report aggregates everything a controller call did.
type Report struct {
	Logs     []string       `json:"logs"`
	Results  []AttackResult `json:"results,omitempty"`
	Decision *Decision      `json:"decision,omitempty"`
	GameOver GameOver       `json:"game_over,omitempty"`
}

// Logf appends a formatted log line.
func (r *Report) Logf(format string, args ...any) {
	r.Logs = append(r.Logs, fmt.Sprintf(format, args...))
}

func (r *Report) add(res AttackResult) {
	r.Logs = append(r.Logs, res.Logs...)
	r.Results = append(r.Results, res)
	if res.Decision != nil {
		r.Decision = res.Decision
	}
}

// Changes merges the change sets of the report. Results carry cumulative
// changes per resolution, so only the last result of each counts.
func (r *Report) Changes() ChangeSet {
	last := map[string]int{}
	for i, res := range r.Results {
		last[res.ResolutionID] = i
	}
	var cs ChangeSet
	for i, res := range r.Results {
		if last[res.ResolutionID] == i {
			cs.Merge(res.Changes)
		}
	}
	return cs
}

// PartChoice remembers a pending target part selection. Nothing has been
// spent yet; a resubmission with a slot picks it up.
type PartChoice struct {
	AttackerID string      `json:"attacker_id"`
	DefenderID string      `json:"defender_id"`
	Slot       models.Slot `json:"slot"`
	Action     string      `json:"action"`
}
