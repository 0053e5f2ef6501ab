package ai

import (
	"fmt"

	"github.com/pefman/mechduel/internal/game"
	"github.com/pefman/mechduel/internal/models"
)

// Planners registers the heuristic as the default planner and the ace
// under AceName.
func Planners() []game.Option {
	return []game.Option{
		game.WithPlanner(game.DefaultPlanner, Heuristic{}),
		game.WithPlanner(AceName, Ace{}),
	}
}

// RunTurn plays the turn of AI mech id and returns its log lines and the
// attacks it declared. The attacks are not queued.
func RunTurn(c *game.Controller, m *game.Match, id string) ([]string, []game.AttackIntent, error) {
	e, err := m.Entity(id)
	if err != nil {
		return nil, nil, err
	}
	if !e.Alive() || e.Controller != models.ControllerAI || !e.IsMech() {
		return nil, nil, fmt.Errorf("%w: %s is not an active AI mech", game.ErrUnknownEntity, id)
	}
	rep, intents := c.RunAITurn(m, e)
	return rep.Logs, intents, nil
}

// DecideAceTiming is the timing an ace announces against opponent.
func DecideAceTiming(m *game.Match, e, opponent *models.Entity) models.ActionType {
	return Ace{}.DecideTiming(m, e, opponent)
}
