package game

import (
	"github.com/pefman/mechduel/internal/models"
)

// SkillPursuit grants an extra AP while any enemy mech is compromised.
const SkillPursuit = "pursuit"

// ActionCost maps a cost tier to AP and TP. L is two AP plus one TP;
// otherwise every M costs two AP and every S one.
func ActionCost(a models.Action) (ap, tp int) {
	if a.Cost == "L" {
		return 2, 1
	}
	for _, r := range a.Cost {
		switch r {
		case 'M':
			ap += 2
		case 'S':
			ap++
		}
	}
	return ap, 0
}

// StartTurn resets the turn resources of e. A downed unit recovers with a
// single AP, no TP and the defense stance.
func (c *Controller) StartTurn(m *Match, e *models.Entity) []string {
	var logs []string
	e.Turn = models.TurnState{AP: 2, TP: 1, Phase: models.PhaseTiming}
	e.LastPos = nil
	if e.Downed() {
		e.Turn.AP, e.Turn.TP = 1, 0
		e.Stance = models.StanceDefense
		logs = append(logs, "> "+e.Name+" recovers from downed: AP 1, TP 0, defense stance.")
		return logs
	}
	if e.Pilot.HasSkill(SkillPursuit) {
		for _, en := range m.EnemyMechs(e) {
			if en.Compromised() {
				e.Turn.AP++
				logs = append(logs, "> [Pursuit] "+en.Name+" is compromised: +1 AP.")
				break
			}
		}
	}
	return logs
}

// openingTimings are the timings a turn may open with.
var openingTimings = map[models.ActionType]bool{
	models.ActionMelee:    true,
	models.ActionRanged:   true,
	models.ActionLobbed:   true,
	models.ActionMove:     true,
	models.ActionQuick:    true,
	models.ActionTactical: true,
}

// ValidateAction checks whether e may use a now. The checks run in a fixed
// order: already used, ammo, AP, TP, opening timing.
func ValidateAction(m *Match, e *models.Entity, slot models.Slot, a models.Action) (ap, tp int, err error) {
	if e.Turn.HasUsed(slot, a.Name) {
		return 0, 0, reject(ErrActionUsed, "[%s] was already used this turn", a.Name)
	}
	if a.Ammo > 0 && m.AmmoLeft(e.ID, slot, a) <= 0 {
		return 0, 0, reject(ErrNoAmmo, "[%s] is out of ammo", a.Name)
	}
	ap, tp = ActionCost(a)
	if e.Turn.AP < ap {
		return 0, 0, reject(ErrInsufficientAP, "[%s] needs %d AP, %d left", a.Name, ap, e.Turn.AP)
	}
	if e.Turn.TP < tp {
		return 0, 0, reject(ErrInsufficientTP, "[%s] needs %d TP, %d left", a.Name, tp, e.Turn.TP)
	}
	if !e.Turn.OpeningTaken && a.Type != models.ActionQuick && a.Type != e.Turn.Timing {
		return 0, 0, reject(ErrWrongTiming, "opening action must be %s, [%s] is %s", e.Turn.Timing, a.Name, a.Type)
	}
	return ap, tp, nil
}

// commit spends the resources of a validated action. Lobbed and
// interceptor ammo is spent by their own flows.
func commit(m *Match, e *models.Entity, slot models.Slot, a models.Action, ap, tp int) {
	e.Turn.AP -= ap
	e.Turn.TP -= tp
	e.Turn.OpeningTaken = true
	e.Turn.Used = append(e.Turn.Used, models.ActionKey{Slot: slot, Name: a.Name})
	if a.Type != models.ActionLobbed && a.Effects.Interceptor == 0 {
		m.spendAmmo(e.ID, slot, a, 1)
	}
}

func phaseIs(e *models.Entity, p models.TurnPhase) error {
	if e.Turn.Phase != p {
		return reject(ErrWrongPhase, "%s is in the %s phase, not %s", e.Name, e.Turn.Phase, p)
	}
	return nil
}

func (c *Controller) playerTurn(m *Match, id string) (*models.Entity, error) {
	if m.GameOver != GameRunning {
		return nil, ErrGameOver
	}
	if m.Pending() {
		return nil, ErrDecisionPending
	}
	e, err := m.Entity(id)
	if err != nil {
		return nil, err
	}
	if !e.Alive() || e.Controller != models.ControllerPlayer {
		return nil, reject(ErrUnknownEntity, "%s cannot act", id)
	}
	return e, nil
}

// SelectTiming declares the opening action type and moves to the stance
// phase. Ace opponents answer with their own timing and the initiative
// clash is settled.
func (c *Controller) SelectTiming(m *Match, id string, t models.ActionType) (*Report, error) {
	e, err := c.playerTurn(m, id)
	if err != nil {
		return nil, err
	}
	if err := phaseIs(e, models.PhaseTiming); err != nil {
		return nil, err
	}
	if !openingTimings[t] {
		return nil, reject(ErrInvalidChoice, "%q is not a timing", t)
	}
	rep := &Report{}
	e.Turn.Timing = t
	e.Turn.Phase = models.PhaseStance
	rep.Logf("> Timing set to [%s]. Choose a stance.", t)
	for _, ai := range m.AIMechs() {
		d, ok := c.planners[ai.Planner].(TimingDecider)
		if !ok {
			continue
		}
		at := d.DecideTiming(m, ai, e)
		m.AITimings[ai.ID] = at
		res := CheckInitiative(t, at, e.Pilot, ai.Pilot)
		res.AIID = ai.ID
		m.Initiative = &res
		rep.Logs = append(rep.Logs, "> [Initiative] "+res.Reason)
		m.emit("initiative", map[string]any{"winner": res.Winner, "player": t, "ai": at, "ai_id": ai.ID})
	}
	return rep, nil
}

// SetStance picks the stance for the turn and opens the adjustment phase.
func (c *Controller) SetStance(m *Match, id string, s models.Stance) (*Report, error) {
	e, err := c.playerTurn(m, id)
	if err != nil {
		return nil, err
	}
	if err := phaseIs(e, models.PhaseStance); err != nil {
		return nil, err
	}
	switch s {
	case models.StanceDefense, models.StanceAgile, models.StanceAttack:
	default:
		return nil, reject(ErrInvalidChoice, "%q is not a selectable stance", s)
	}
	e.Stance = s
	e.Turn.Phase = models.PhaseAdjustment
	rep := &Report{}
	rep.Logf("> Stance set to [%s].", s)
	return rep, nil
}

// AdjustMove spends the TP on a short leg move and enters the main phase.
func (c *Controller) AdjustMove(m *Match, id string, to models.Pos, facing models.Orientation) (*Report, error) {
	e, err := c.playerTurn(m, id)
	if err != nil {
		return nil, err
	}
	if err := phaseIs(e, models.PhaseAdjustment); err != nil {
		return nil, err
	}
	rep := &Report{}
	if err := c.ExecuteAdjust(m, e, to, facing, rep); err != nil {
		return nil, err
	}
	e.Turn.Phase = models.PhaseMain
	return rep, nil
}

// ExecuteAdjust spends the TP on a short leg move. It leaves the phase
// alone so planners can run it mid-sequence.
func (c *Controller) ExecuteAdjust(m *Match, e *models.Entity, to models.Pos, facing models.Orientation, rep *Report) error {
	if e.Turn.TP < 1 {
		return reject(ErrInsufficientTP, "adjustment needs 1 TP")
	}
	if !facing.Valid() {
		return reject(ErrInvalidChoice, "bad orientation %q", facing)
	}
	if !containsPos(m.AdjustRange(e), to) {
		return reject(ErrBlocked, "%s is not reachable by adjustment", posString(to))
	}
	from := e.Pos
	e.LastPos = &from
	e.Pos = to
	e.Orientation = facing
	e.Turn.TP--
	m.emit("move", map[string]any{"entity": e.ID, "from": from, "to": to})
	rep.Logf("> %s adjusts to %s facing %s.", e.Name, posString(to), facing)
	return nil
}

// Reorient spends the TP on turning in place.
func (c *Controller) Reorient(m *Match, id string, facing models.Orientation) (*Report, error) {
	e, err := c.playerTurn(m, id)
	if err != nil {
		return nil, err
	}
	if err := phaseIs(e, models.PhaseAdjustment); err != nil {
		return nil, err
	}
	rep := &Report{}
	if err := c.ExecuteReorient(m, e, facing, rep); err != nil {
		return nil, err
	}
	e.Turn.Phase = models.PhaseMain
	return rep, nil
}

// ExecuteReorient spends the TP on turning in place.
func (c *Controller) ExecuteReorient(m *Match, e *models.Entity, facing models.Orientation, rep *Report) error {
	if e.Turn.TP < 1 {
		return reject(ErrInsufficientTP, "turning needs 1 TP")
	}
	if !facing.Valid() {
		return reject(ErrInvalidChoice, "bad orientation %q", facing)
	}
	e.Orientation = facing
	e.Turn.TP--
	m.emit("turn", map[string]any{"entity": e.ID, "facing": facing})
	rep.Logf("> %s turns to face %s.", e.Name, facing)
	return nil
}

// SkipAdjustment enters the main phase keeping the TP.
func (c *Controller) SkipAdjustment(m *Match, id string) (*Report, error) {
	e, err := c.playerTurn(m, id)
	if err != nil {
		return nil, err
	}
	if err := phaseIs(e, models.PhaseAdjustment); err != nil {
		return nil, err
	}
	e.Turn.Phase = models.PhaseMain
	rep := &Report{}
	rep.Logf("> %s skips the adjustment.", e.Name)
	return rep, nil
}

// Move runs a move action of the player mech.
func (c *Controller) Move(m *Match, id string, slot models.Slot, name string, to models.Pos, facing models.Orientation) (*Report, error) {
	e, err := c.playerTurn(m, id)
	if err != nil {
		return nil, err
	}
	if err := phaseIs(e, models.PhaseMain); err != nil {
		return nil, err
	}
	a, ok := e.ActionAt(slot, name)
	if !ok {
		return nil, reject(ErrUnknownAction, "no action %q on %s", name, slot)
	}
	rep := &Report{}
	if err := c.ExecuteMove(m, e, slot, a, to, facing, rep); err != nil {
		return nil, err
	}
	return rep, nil
}

// ExecuteMove validates, pays for and performs a move action. Planners use
// it directly.
func (c *Controller) ExecuteMove(m *Match, e *models.Entity, slot models.Slot, a models.Action, to models.Pos, facing models.Orientation, rep *Report) error {
	if a.Type != models.ActionMove {
		return reject(ErrUnknownAction, "[%s] is not a move", a.Name)
	}
	if !facing.Valid() {
		facing = e.Orientation
	}
	if !containsPos(m.moveCells(e, a), to) {
		return reject(ErrBlocked, "%s is not reachable with [%s]", posString(to), a.Name)
	}
	ap, tp, err := ValidateAction(m, e, slot, a)
	if err != nil {
		return err
	}
	commit(m, e, slot, a, ap, tp)
	from := e.Pos
	e.LastPos = &from
	e.Pos = to
	e.Orientation = facing
	m.emit("move", map[string]any{"entity": e.ID, "from": from, "to": to})
	rep.Logf("> %s uses [%s]: %s -> %s, facing %s.", e.Name, a.Name, posString(from), posString(to), facing)
	return nil
}

// Jettison drops the handheld gear of an arm, swapping the part for its
// jettisoned variant. Status carries over.
func (c *Controller) Jettison(m *Match, id string, slot models.Slot) (*Report, error) {
	e, err := c.playerTurn(m, id)
	if err != nil {
		return nil, err
	}
	if err := phaseIs(e, models.PhaseMain); err != nil {
		return nil, err
	}
	rep := &Report{}
	if err := c.ExecuteJettison(m, e, slot, rep); err != nil {
		return nil, err
	}
	return rep, nil
}

// ExecuteJettison performs the jettison quick action.
func (c *Controller) ExecuteJettison(m *Match, e *models.Entity, slot models.Slot, rep *Report) error {
	part := e.Part(slot)
	if !part.Alive() || part.JettisonTo == "" {
		return reject(ErrUnknownAction, "nothing to jettison on %s", slot)
	}
	var action models.Action
	found := false
	for _, a := range part.Actions {
		if a.Effects.Jettison {
			action, found = a, true
		}
	}
	if !found {
		return reject(ErrUnknownAction, "[%s] cannot jettison", part.Name)
	}
	ap, tp, err := ValidateAction(m, e, slot, action)
	if err != nil {
		return err
	}
	next, err := c.cat.Part(slot, part.JettisonTo)
	if err != nil {
		return err
	}
	commit(m, e, slot, action, ap, tp)
	next.Status = part.Status
	e.Parts[slot] = next
	for _, a := range next.Actions {
		k := ammoKey(e.ID, slot, a.Name)
		if _, ok := m.Ammo[k]; !ok && a.Ammo > 0 {
			m.Ammo[k] = a.Ammo
		}
	}
	m.emit("jettison", map[string]any{"entity": e.ID, "slot": slot, "part": next.Name})
	rep.Logf("> %s jettisons [%s]; %s is now [%s].", e.Name, part.Name, slot, next.Name)
	return nil
}
