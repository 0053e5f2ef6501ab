package game

import (
	"fmt"

	"github.com/pefman/mechduel/internal/models"
)

var timingPriority = map[models.ActionType]int{
	models.ActionQuick:    1,
	models.ActionMelee:    2,
	models.ActionLobbed:   3,
	models.ActionRanged:   4,
	models.ActionMove:     5,
	models.ActionTactical: 6,
}

// TimingPriority is lower for faster timings; unknown timings come last.
func TimingPriority(t models.ActionType) int {
	if p, ok := timingPriority[t]; ok {
		return p
	}
	return 99
}

// InitiativeResult is who acts first when both sides declared a timing.
type InitiativeResult struct {
	Winner       models.Controller `json:"winner"`
	PlayerTiming models.ActionType `json:"player_timing"`
	AITiming     models.ActionType `json:"ai_timing"`
	AIID         string            `json:"ai_id,omitempty"`
	Reason       string            `json:"reason"`
}

// CheckInitiative settles a timing clash: faster timing wins, then the
// lower pilot speed stat, and a full tie goes to the player. A player
// without pilot data loses any tie.
func CheckInitiative(player, ai models.ActionType, playerPilot, aiPilot *models.Pilot) InitiativeResult {
	out := InitiativeResult{PlayerTiming: player, AITiming: ai}
	pp, ap := TimingPriority(player), TimingPriority(ai)
	switch {
	case pp < ap:
		out.Winner = models.ControllerPlayer
		out.Reason = fmt.Sprintf("player [%s] (%d) beats AI [%s] (%d).", player, pp, ai, ap)
		return out
	case ap < pp:
		out.Winner = models.ControllerAI
		out.Reason = fmt.Sprintf("AI [%s] (%d) beats player [%s] (%d).", ai, ap, player, pp)
		return out
	}
	if playerPilot == nil {
		out.Winner = models.ControllerAI
		out.Reason = fmt.Sprintf("same timing [%s] and the player has no pilot: AI wins.", player)
		return out
	}
	ps, as := playerPilot.Speed(player), aiPilot.Speed(ai)
	switch {
	case ps < as:
		out.Winner = models.ControllerPlayer
		out.Reason = fmt.Sprintf("same timing [%s], player speed %d beats AI %d.", player, ps, as)
	case as < ps:
		out.Winner = models.ControllerAI
		out.Reason = fmt.Sprintf("same timing [%s], AI speed %d beats player %d.", ai, as, ps)
	default:
		out.Winner = models.ControllerPlayer
		out.Reason = "timing and speed tie: the player edges it."
	}
	return out
}
