package game

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/pefman/mechduel/internal/catalog"
	"github.com/pefman/mechduel/internal/engine"
	"github.com/pefman/mechduel/internal/models"
)

// Planner plans the turn of a computer-controlled mech. Moves are
// performed through the controller; attacks come back as intents for the
// shared resolution queue.
type Planner interface {
	PlanTurn(c *Controller, m *Match, e *models.Entity, rep *Report) []AttackIntent
}

// TimingDecider is a planner that commits to a timing while the player is
// still choosing theirs.
type TimingDecider interface {
	DecideTiming(m *Match, e, opponent *models.Entity) models.ActionType
}

// DefaultPlanner is used for loadouts that name no planner.
const DefaultPlanner = "heuristic"

// Controller sequences turns, attacks and decisions over a Match. It holds
// no match state of its own.
type Controller struct {
	cat      *catalog.Catalog
	log      *zap.Logger
	planners map[string]Planner
}

type Option func(*Controller)

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithPlanner registers a planner under the name loadouts refer to.
func WithPlanner(name string, p Planner) Option {
	return func(c *Controller) { c.planners[name] = p }
}

func NewController(cat *catalog.Catalog, opts ...Option) *Controller {
	c := &Controller{cat: cat, log: zap.NewNop(), planners: map[string]Planner{}}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Catalog exposes the read-only tables.
func (c *Controller) Catalog() *catalog.Catalog { return c.cat }

// attackPlan is a validated, not yet paid, attack.
type attackPlan struct {
	slot   models.Slot
	action models.Action
	target *models.Entity
	back   bool
	cell   models.Pos
	shell  catalog.ProjectileTemplate
	ap, tp int
}

// checkAttack validates an attack without spending anything.
func (c *Controller) checkAttack(m *Match, e *models.Entity, slot models.Slot, a models.Action, targetID string, at *models.Pos) (attackPlan, error) {
	plan := attackPlan{slot: slot, action: a}
	targets, cells := m.AttackTargets(e, slot, a)
	var defender *models.Entity
	if targetID != "" {
		d, err := m.Entity(targetID)
		if err != nil || !d.Alive() {
			return plan, reject(ErrUnknownEntity, "no target %q", targetID)
		}
		defender = d
	}
	switch a.Type {
	case models.ActionLobbed:
		t, ok := c.cat.Projectile(a.Projectile)
		if !ok {
			return plan, reject(ErrUnknownAction, "[%s] has no projectile %q", a.Name, a.Projectile)
		}
		plan.shell = t
		switch {
		case defender != nil:
			plan.cell = defender.Pos
		case at != nil:
			plan.cell = *at
		default:
			return plan, reject(ErrOutOfRange, "[%s] needs a target cell", a.Name)
		}
		ok = containsPos(cells, plan.cell)
		for _, t := range targets {
			ok = ok || t.Pos == plan.cell
		}
		if !ok {
			return plan, reject(ErrOutOfRange, "%s is outside the launch range of [%s]", posString(plan.cell), a.Name)
		}
	case models.ActionMelee, models.ActionRanged:
		if defender == nil {
			return plan, reject(ErrOutOfRange, "[%s] needs a target", a.Name)
		}
		var hit *Target
		for i := range targets {
			if targets[i].EntityID == defender.ID {
				hit = &targets[i]
			}
		}
		if hit == nil {
			return plan, reject(ErrOutOfRange, "%s is out of range or arc of [%s]", defender.Name, a.Name)
		}
		if a.Type == models.ActionRanged {
			if locked, by := m.Locked(e); locked {
				return plan, reject(ErrLocked, "%s is locked in melee by %s and cannot shoot", e.Name, by.Name)
			}
		}
		plan.target = defender
		plan.back = hit.BackAttack
	default:
		return plan, reject(ErrUnknownAction, "[%s] is not an attack", a.Name)
	}
	ap, tp, err := ValidateAction(m, e, slot, a)
	if err != nil {
		return plan, err
	}
	plan.ap, plan.tp = ap, tp
	return plan, nil
}

// ExecuteAttack validates and pays for an attack and returns the intents to
// resolve. Planners use it directly; lobbed actions launch here.
func (c *Controller) ExecuteAttack(m *Match, e *models.Entity, slot models.Slot, a models.Action, targetID string, at *models.Pos, rep *Report) ([]AttackIntent, error) {
	plan, err := c.checkAttack(m, e, slot, a, targetID, at)
	if err != nil {
		return nil, err
	}
	commit(m, e, slot, a, plan.ap, plan.tp)
	if a.Type == models.ActionLobbed {
		return c.launch(m, e, slot, a, plan.shell, plan.cell, rep)
	}
	rep.Logf("> %s declares [%s] on %s.", e.Name, a.Name, plan.target.Name)
	return []AttackIntent{{
		AttackerID: e.ID,
		DefenderID: plan.target.ID,
		Slot:       slot,
		Action:     a,
		BackAttack: plan.back,
	}}, nil
}

// DeclareAttack is the player's attack entry point. When the target part is
// the player's to pick, a select_part decision comes back and nothing is
// spent until the declaration is repeated with a slot.
func (c *Controller) DeclareAttack(m *Match, req AttackRequest) (*Report, error) {
	e, err := c.playerTurn(m, req.AttackerID)
	if err != nil {
		return nil, err
	}
	if err := phaseIs(e, models.PhaseMain); err != nil {
		return nil, err
	}
	a, ok := e.ActionAt(req.Slot, req.Action)
	if !ok {
		return nil, reject(ErrUnknownAction, "no action %q on %s", req.Action, req.Slot)
	}
	rep := &Report{}
	if a.Type == models.ActionQuick && a.Effects.Jettison {
		if err := c.ExecuteJettison(m, e, req.Slot, rep); err != nil {
			return nil, err
		}
		return rep, nil
	}
	plan, err := c.checkAttack(m, e, req.Slot, a, req.TargetID, req.TargetPos)
	if err != nil {
		return nil, err
	}
	if a.Type == models.ActionLobbed {
		commit(m, e, req.Slot, a, plan.ap, plan.tp)
		intents, err := c.launch(m, e, req.Slot, a, plan.shell, plan.cell, rep)
		if err != nil {
			return nil, err
		}
		m.Queue = append(m.Queue, intents...)
		c.drain(m, rep)
		return rep, nil
	}
	slot, decision, err := c.choosePart(m, e, plan, req, rep)
	if err != nil {
		return nil, err
	}
	if decision != nil {
		rep.Decision = decision
		return rep, nil
	}
	m.PartChoice = nil
	commit(m, e, req.Slot, a, plan.ap, plan.tp)
	rep.Logf("> %s declares [%s] on %s.", e.Name, a.Name, plan.target.Name)
	m.Queue = append(m.Queue, AttackIntent{
		AttackerID: e.ID,
		DefenderID: plan.target.ID,
		Slot:       req.Slot,
		Action:     a,
		TargetSlot: slot,
		BackAttack: plan.back,
	})
	c.drain(m, rep)
	return rep, nil
}

// choosePart settles the target part of a player attack before anything
// is spent. Back attacks and two-handed sniping let the player aim; an
// "any" on the part die does too.
func (c *Controller) choosePart(m *Match, e *models.Entity, plan attackPlan, req AttackRequest, rep *Report) (models.Slot, *Decision, error) {
	def := plan.target
	if !def.IsMech() {
		return models.SlotCore, nil, nil
	}
	a := plan.action
	sniper := a.Effects.TwoHandedSniper && e.OtherHandEmpty(req.Slot)
	pending := m.PartChoice != nil && *m.PartChoice == PartChoice{AttackerID: e.ID, DefenderID: def.ID, Slot: req.Slot, Action: a.Name}
	if req.TargetSlot != "" {
		if !plan.back && !sniper && !pending {
			return "", nil, reject(ErrInvalidChoice, "the target part cannot be chosen for this attack")
		}
		if !def.Part(req.TargetSlot).Alive() {
			return "", nil, reject(ErrInvalidChoice, "%s has no usable %s", def.Name, req.TargetSlot)
		}
		return req.TargetSlot, nil, nil
	}
	ask := func(why string) (models.Slot, *Decision, error) {
		m.PartChoice = &PartChoice{AttackerID: e.ID, DefenderID: def.ID, Slot: req.Slot, Action: a.Name}
		rep.Logf("> %s: choose the part to hit.", why)
		d := &Decision{Kind: DecisionSelectPart, AttackerID: e.ID, DefenderID: def.ID, PlayerIsAttacker: true}
		for _, s := range models.PartSlots {
			if def.Part(s).Alive() {
				d.Parts = append(d.Parts, s)
			}
		}
		m.emit("decision_required", map[string]any{"kind": DecisionSelectPart, "attacker": e.ID, "defender": def.ID})
		return "", d, nil
	}
	switch {
	case pending:
		return ask("Part selection pending")
	case plan.back:
		return ask("Back attack")
	case sniper:
		return ask("[Two-Handed Sniper]")
	}
	if a.Type == models.ActionMelee && !def.Downed() {
		if _, ok := parrySlot(def); ok {
			return "", nil, nil
		}
	}
	face := engine.RollPart(m.RNG())
	rep.Logf("> Part die: %s.", face)
	if face == engine.PartAny {
		return ask("Part die shows any")
	}
	return models.Slot(face), nil, nil
}

// drain resolves queued attacks in order until the queue is empty or a
// resolution suspends, then runs the pending continuation.
func (c *Controller) drain(m *Match, rep *Report) {
	for {
		if m.GameOver != GameRunning {
			m.Queue = nil
			m.Next = ContinueNone
			rep.GameOver = m.GameOver
			return
		}
		if m.Active != nil {
			rep.Decision = decisionFor(m, m.Active)
			return
		}
		if len(m.Queue) == 0 {
			switch m.Next {
			case ContinueProjectilePhase:
				m.Next = ContinuePlayerTurn
				m.Queue = append(m.Queue, c.runProjectilePhase(m, rep)...)
				c.checkGameOver(m, rep)
				continue
			case ContinuePlayerTurn:
				m.Next = ContinueNone
				m.Round++
				if p := m.Player(); p.Alive() {
					rep.Logs = append(rep.Logs, c.StartTurn(m, p)...)
				}
				rep.Logf("> Round %d. Your turn.", m.Round)
				m.emit("turn_start", map[string]any{"round": m.Round})
			}
			return
		}
		in := m.Queue[0]
		m.Queue = m.Queue[1:]
		att, def := m.Entities[in.AttackerID], m.Entities[in.DefenderID]
		if !att.Alive() || !def.Alive() {
			rep.Logf("> [%s] is dropped: a participant is gone.", in.Action.Name)
			continue
		}
		res, out := c.Resolve(m, in)
		rep.add(out)
		if !res.Done() {
			m.Active = res
			return
		}
		c.checkGameOver(m, rep)
	}
}

// QueueAttacks appends intents to the resolution queue and drains it.
func (c *Controller) QueueAttacks(m *Match, intents []AttackIntent) *Report {
	rep := &Report{}
	m.Queue = append(m.Queue, intents...)
	c.drain(m, rep)
	return rep
}

// SubmitReroll answers a pending reroll decision and resumes the queue.
func (c *Controller) SubmitReroll(m *Match, sel RerollSelection) (*Report, error) {
	if m.Active == nil {
		return nil, ErrNoPendingDecision
	}
	res := m.Active
	rep := &Report{}
	wrongStage := res.Stage != StageAwaitingAttackReroll && res.Stage != StageAwaitingEffectReroll
	stage := res.Stage
	rep.add(c.ResumeReroll(m, res, sel))
	c.settle(m, res, rep)
	if wrongStage {
		return rep, fmt.Errorf("%w: stage %s", ErrStageMismatch, stage)
	}
	return rep, nil
}

// SubmitEffectChoice answers a pending overflow effect choice.
func (c *Controller) SubmitEffectChoice(m *Match, effect Effect) (*Report, error) {
	if m.Active == nil {
		return nil, ErrNoPendingDecision
	}
	res := m.Active
	rep := &Report{}
	out, err := c.ResumeEffectChoice(m, res, effect)
	if err != nil && IsValidation(err) {
		return nil, err
	}
	rep.add(out)
	c.settle(m, res, rep)
	return rep, err
}

func (c *Controller) settle(m *Match, res *Resolution, rep *Report) {
	if !res.Done() {
		m.Active = res
		rep.Decision = decisionFor(m, res)
		return
	}
	m.Active = nil
	rep.Decision = nil
	c.checkGameOver(m, rep)
	c.drain(m, rep)
}

// RunAITurn starts the turn of an AI mech and lets its planner act. The
// returned intents are not queued.
func (c *Controller) RunAITurn(m *Match, e *models.Entity) (*Report, []AttackIntent) {
	rep := &Report{}
	rep.Logs = append(rep.Logs, c.StartTurn(m, e)...)
	name := e.Planner
	if name == "" {
		name = DefaultPlanner
	}
	p, ok := c.planners[name]
	if !ok {
		p, ok = c.planners[DefaultPlanner]
	}
	if !ok {
		rep.Logf("> %s has no planner and idles.", e.Name)
		return rep, nil
	}
	intents := p.PlanTurn(c, m, e, rep)
	e.Turn.Phase = models.PhaseDone
	return rep, intents
}

// EndTurn hands over to the AI side, then runs the projectile phase and
// opens the next player turn. Any step may pause on a player decision;
// the rest continues once it is answered.
func (c *Controller) EndTurn(m *Match) (*Report, error) {
	p, err := c.playerTurn(m, PlayerID)
	if err != nil {
		return nil, err
	}
	p.Turn.Phase = models.PhaseDone
	m.PartChoice = nil
	rep := &Report{}
	rep.Logf("> %s ends the turn.", p.Name)
	for _, ai := range m.AIMechs() {
		r, intents := c.RunAITurn(m, ai)
		rep.Logs = append(rep.Logs, r.Logs...)
		rep.Results = append(rep.Results, r.Results...)
		m.Queue = append(m.Queue, intents...)
	}
	c.checkGameOver(m, rep)
	m.Next = ContinueProjectilePhase
	c.drain(m, rep)
	return rep, nil
}

// checkGameOver applies the end conditions: a mech with a destroyed core
// or fewer than three parts is out.
func (c *Controller) checkGameOver(m *Match, rep *Report) {
	if m.GameOver != GameRunning {
		rep.GameOver = m.GameOver
		return
	}
	p := m.Player()
	if p == nil || !p.Alive() || p.ActiveParts() < 3 {
		m.GameOver = GameAIWin
		rep.GameOver = m.GameOver
		rep.Logf("> %s is out. The AI wins.", nameOf(p))
		m.emit("game_over", map[string]any{"result": m.GameOver})
		return
	}
	for _, e := range m.All() {
		if !e.IsMech() || e.Controller != models.ControllerAI || m.fallen(e.ID) {
			continue
		}
		if e.Alive() && e.ActiveParts() >= 3 {
			continue
		}
		e.Status = models.EntityDestroyed
		m.Fallen = append(m.Fallen, e.ID)
		rep.Logf("> %s is out of action.", e.Name)
		switch m.Mode {
		case ModeHorde:
			m.AIDefeats++
			next, err := m.spawnHordeAI(c.cat)
			if err != nil {
				c.log.Error("horde respawn failed", zap.String("match", m.ID), zap.Error(err))
				continue
			}
			rep.Logf("> [Horde] %d down. %s enters at %s.", m.AIDefeats, next.Name, posString(next.Pos))
		case ModeRange:
			m.AIDefeats++
			m.GameOver = GameRangeCleared
		}
	}
	if m.GameOver == GameRunning && m.Mode != ModeHorde && len(m.AIMechs()) == 0 {
		m.GameOver = GamePlayerWin
	}
	if m.GameOver != GameRunning {
		rep.GameOver = m.GameOver
		rep.Logf("> Game over: %s.", m.GameOver)
		m.emit("game_over", map[string]any{"result": m.GameOver})
	}
}

func nameOf(e *models.Entity) string {
	if e == nil {
		return "player"
	}
	return e.Name
}

// RespawnRange puts a fresh random target on the range and resets the
// player's turn and ammo.
func (c *Controller) RespawnRange(m *Match) (*Report, error) {
	if m.Mode != ModeRange {
		return nil, reject(ErrWrongPhase, "respawn is only available on the range")
	}
	if m.Pending() {
		return nil, ErrDecisionPending
	}
	for _, id := range append([]string(nil), m.Order...) {
		if e := m.Entities[id]; e != nil && e.Controller == models.ControllerAI {
			m.remove(id)
		}
	}
	keys := AILoadouts(c.cat)
	key := keys[m.RNG().Intn(len(keys))]
	ai, err := c.cat.BuildMech(fmt.Sprintf("ai_range_%d", m.AIDefeats+1), models.ControllerAI, key, models.Pos{X: 5, Y: 8}, models.North)
	if err != nil {
		return nil, err
	}
	m.AddEntity(ai)
	rep := &Report{}
	if p := m.Player(); p != nil {
		p.Turn = models.TurnState{AP: 2, TP: 1, Phase: models.PhaseTiming}
		p.LastPos = nil
		m.AddEntity(p)
	}
	m.Queue, m.Next, m.PartChoice = nil, ContinueNone, nil
	m.GameOver = GameRunning
	m.Events = nil
	rep.Logf("> A new target appears: %s.", ai.Name)
	return rep, nil
}

// RunProjectilePhase runs a projectile phase on demand and resolves the
// strikes it produces.
func (c *Controller) RunProjectilePhase(m *Match) (*Report, error) {
	if m.GameOver != GameRunning {
		return nil, ErrGameOver
	}
	if m.Pending() {
		return nil, ErrDecisionPending
	}
	rep := &Report{}
	m.Queue = append(m.Queue, c.runProjectilePhase(m, rep)...)
	c.checkGameOver(m, rep)
	c.drain(m, rep)
	return rep, nil
}
