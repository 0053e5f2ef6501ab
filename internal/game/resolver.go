package game

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pefman/mechduel/internal/engine"
	"github.com/pefman/mechduel/internal/models"
)

// Resolution is one attack from declaration to final damage. Every field
// needed to resume after a suspension is exported, so a match persisted
// mid-decision resumes exactly where it stopped.
type Resolution struct {
	ID      string       `json:"id"`
	Stage   Stage        `json:"stage"`
	Outcome Outcome      `json:"outcome"`
	Intent  AttackIntent `json:"intent"`
	Reason  string       `json:"reason,omitempty"`

	TargetSlot     models.Slot       `json:"target_slot"`
	OriginalStatus models.PartStatus `json:"original_status"`
	PlayerAttacker bool              `json:"player_attacker"`
	PlayerDefender bool              `json:"player_defender"`
	AttackStance   string            `json:"attack_stance"`
	Convert        bool              `json:"convert"`

	AttackPool       engine.Pool         `json:"attack_pool"`
	DefensePool      engine.Pool         `json:"defense_pool"`
	AttackRaw        engine.RawRoll      `json:"attack_raw"`
	DefenseRaw       engine.RawRoll      `json:"defense_raw"`
	AttackerRerolled bool                `json:"attacker_rerolled"`
	DefenderRerolled bool                `json:"defender_rerolled"`
	Cancel           engine.Cancellation `json:"cancel"`

	OverflowLight int               `json:"overflow_light"`
	OverflowHeavy int               `json:"overflow_heavy"`
	Options       []Effect          `json:"options,omitempty"`
	Effect        Effect            `json:"effect,omitempty"`
	EffectSlot    models.Slot       `json:"effect_slot,omitempty"`
	EffectStatus  models.PartStatus `json:"effect_status,omitempty"`
	EffectPool    engine.Pool       `json:"effect_pool,omitempty"`
	EffectRaw     engine.RawRoll    `json:"effect_raw,omitempty"`

	Changes ChangeSet     `json:"changes"`
	Logs    []string      `json:"logs"`
	Dice    []RollDetails `json:"dice,omitempty"`
}

// RerollSelection lists the dice each side wants thrown again. An empty
// side declines and keeps its link points.
type RerollSelection struct {
	Attacker []engine.DieRef `json:"attacker,omitempty"`
	Defender []engine.DieRef `json:"defender,omitempty"`
}

func (r *Resolution) logf(format string, args ...any) {
	r.Logs = append(r.Logs, fmt.Sprintf(format, args...))
}

func (r *Resolution) fail(reason string) {
	r.Stage = StageResolved
	r.Outcome = OutcomeInvalid
	r.Reason = reason
	r.logf("  > [invalid] %s", reason)
}

// Done reports whether the resolution reached its terminal stage.
func (r *Resolution) Done() bool { return r.Stage == StageResolved }

type stepFunc func(m *Match, res *Resolution, att, def *models.Entity) error

// step runs one stage atomically. Attacker, defender and the change-set
// are snapshotted first; a failed or panicking stage restores them and
// ends the resolution as invalid. Changes of earlier stages stay recorded.
func (c *Controller) step(m *Match, res *Resolution, fn stepFunc) (out AttackResult) {
	mark, diceMark := len(res.Logs), len(res.Dice)
	att, err := m.Entity(res.Intent.AttackerID)
	if err != nil {
		res.fail(err.Error())
		return c.result(m, res, mark, diceMark)
	}
	def, err := m.Entity(res.Intent.DefenderID)
	if err != nil {
		res.fail(err.Error())
		return c.result(m, res, mark, diceMark)
	}
	snapAtt, snapDef := att.Clone(), def.Clone()
	snapChanges := res.Changes.Clone()
	restore := func() {
		m.Entities[snapAtt.ID] = snapAtt
		m.Entities[snapDef.ID] = snapDef
		res.Changes = snapChanges
	}
	defer func() {
		if r := recover(); r != nil {
			restore()
			c.log.Error("resolution panicked",
				zap.String("match", m.ID),
				zap.String("resolution", res.ID),
				zap.String("stage", string(res.Stage)),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			res.fail(fmt.Sprintf("internal error: %v", r))
			out = c.result(m, res, mark, diceMark)
		}
	}()
	if err := fn(m, res, att, def); err != nil {
		restore()
		c.log.Warn("resolution aborted",
			zap.String("match", m.ID),
			zap.String("resolution", res.ID),
			zap.String("stage", string(res.Stage)),
			zap.Error(err),
		)
		res.fail(err.Error())
	}
	return c.result(m, res, mark, diceMark)
}

func (c *Controller) result(m *Match, res *Resolution, mark, diceMark int) AttackResult {
	out := AttackResult{
		ResolutionID: res.ID,
		AttackerID:   res.Intent.AttackerID,
		DefenderID:   res.Intent.DefenderID,
		Action:       res.Intent.Action.Name,
		Logs:         append([]string(nil), res.Logs[mark:]...),
		Stage:        res.Stage,
		Outcome:      res.Outcome,
		Changes:      res.Changes,
		Dice:         append([]RollDetails(nil), res.Dice[diceMark:]...),
	}
	if !res.Done() {
		out.Decision = decisionFor(m, res)
	}
	return out
}

// Resolve starts a resolution for intent and runs it until it finishes or
// suspends. The caller keeps the returned resolution when it suspends.
func (c *Controller) Resolve(m *Match, in AttackIntent) (*Resolution, AttackResult) {
	res := &Resolution{
		ID:      uuid.NewString(),
		Stage:   StageInitialRoll,
		Outcome: OutcomePending,
		Intent:  in,
	}
	out := c.step(m, res, c.initialRoll)
	return res, out
}

// ResumeReroll continues a resolution waiting on a reroll choice.
func (c *Controller) ResumeReroll(m *Match, res *Resolution, sel RerollSelection) AttackResult {
	switch res.Stage {
	case StageAwaitingAttackReroll:
		return c.step(m, res, func(m *Match, res *Resolution, att, def *models.Entity) error {
			c.applyAttackRerolls(m, res, att, def, sel)
			return c.applyPrimary(m, res, att, def)
		})
	case StageAwaitingEffectReroll:
		return c.step(m, res, func(m *Match, res *Resolution, att, def *models.Entity) error {
			if len(sel.Attacker) > 0 {
				res.logf("  > Attacker dice are not part of the %s roll; selection ignored.", res.Effect)
			}
			if len(sel.Defender) > 0 && res.PlayerDefender && !res.DefenderRerolled && linkPoints(def) > 0 {
				res.EffectRaw = engine.Reroll(m.RNG(), res.EffectRaw, sel.Defender)
				res.DefenderRerolled = true
				c.drainLink(res, def, 1, "reroll")
				res.logf("  > %s rerolls %d defense dice.", def.Name, len(sel.Defender))
			}
			return c.applyEffect(m, res, att, def)
		})
	}
	return c.mismatch(m, res, "reroll")
}

// ResumeEffectChoice continues a resolution waiting on an overflow effect
// choice. An effect outside the offered options is rejected without
// touching the resolution.
func (c *Controller) ResumeEffectChoice(m *Match, res *Resolution, effect Effect) (AttackResult, error) {
	if res.Stage != StageAwaitingEffectChoice {
		return c.mismatch(m, res, "effect choice"), fmt.Errorf("%w: stage %s", ErrStageMismatch, res.Stage)
	}
	ok := false
	for _, o := range res.Options {
		if o == effect {
			ok = true
		}
	}
	if !ok {
		return AttackResult{}, reject(ErrInvalidChoice, "effect %q is not one of %v", effect, res.Options)
	}
	return c.step(m, res, func(m *Match, res *Resolution, att, def *models.Entity) error {
		res.logf("> [player] chooses [%s].", effect)
		return c.startEffect(m, res, att, def, effect)
	}), nil
}

func (c *Controller) mismatch(m *Match, res *Resolution, what string) AttackResult {
	mark, diceMark := len(res.Logs), len(res.Dice)
	c.log.Warn("resume does not match stage",
		zap.String("match", m.ID),
		zap.String("resolution", res.ID),
		zap.String("stage", string(res.Stage)),
		zap.String("resume", what),
	)
	if !res.Done() {
		res.fail(fmt.Sprintf("%s submitted while %s", what, res.Stage))
	}
	return c.result(m, res, mark, diceMark)
}

func (c *Controller) initialRoll(m *Match, res *Resolution, att, def *models.Entity) error {
	a := res.Intent.Action
	if !att.Alive() {
		return fmt.Errorf("%w: attacker %s is destroyed", ErrUnknownEntity, att.ID)
	}
	if !def.Alive() {
		return fmt.Errorf("%w: defender %s is destroyed", ErrUnknownEntity, def.ID)
	}
	res.PlayerAttacker = att.IsMech() && att.Controller == models.ControllerPlayer
	res.PlayerDefender = def.IsMech() && def.Controller == models.ControllerPlayer
	res.logf("> %s uses [%s] on %s.", att.Name, a.Name, def.Name)

	slot := c.targetPart(m, res, att, def)
	part := def.Part(slot)
	if !part.Alive() {
		return fmt.Errorf("target %s has no usable %s part", def.ID, slot)
	}
	res.TargetSlot = slot
	res.OriginalStatus = part.Status

	res.AttackPool = attackPool(res, att, a)
	res.AttackStance = engine.StanceDefense
	if att.IsMech() && att.Stance == models.StanceAttack {
		res.AttackStance = engine.StanceAttack
	}
	res.Convert = a.Effects.ConvertLightning
	res.DefensePool = c.defensePool(res, a, def, part, res.OriginalStatus, !res.Intent.BackAttack)

	src := m.RNG()
	res.AttackRaw = engine.Roll(src, res.AttackPool)
	res.DefenseRaw = engine.Roll(src, res.DefensePool)
	res.logf("  > Attack %s vs defense %s.", res.AttackPool, res.DefensePool)

	if res.Intent.Interception {
		return c.applyPrimary(m, res, att, def)
	}
	c.aiRerolls(m, res, att, def)
	if (res.PlayerAttacker && linkPoints(att) > 0) || (res.PlayerDefender && linkPoints(def) > 0) {
		res.Stage = StageAwaitingAttackReroll
		who := att
		if !res.PlayerAttacker {
			who = def
		}
		res.logf("  > Link points: %d. Waiting for a reroll decision...", linkPoints(who))
		m.emit("decision_required", map[string]any{"kind": DecisionReroll, "resolution_id": res.ID})
		return nil
	}
	return c.applyPrimary(m, res, att, def)
}

// targetPart picks the part an attack lands on. Projectiles only have a
// core. A chosen slot wins when it still holds a part; melee is parried
// by the best parry part; otherwise the black die decides.
func (c *Controller) targetPart(m *Match, res *Resolution, att, def *models.Entity) models.Slot {
	if !def.IsMech() {
		res.logf("  > Hits the core of %s.", def.Name)
		return models.SlotCore
	}
	a := res.Intent.Action
	if s := res.Intent.TargetSlot; s != "" {
		if def.Part(s).Alive() {
			if res.Intent.BackAttack {
				res.logf("  > Back attack! The defender cannot parry. Aimed at %s.", s)
			} else {
				res.logf("  > Aimed at %s.", s)
			}
			return s
		}
		res.logf("  > %s is gone; the hit falls through to the core.", s)
		return models.SlotCore
	}
	if res.Intent.BackAttack {
		res.logf("  > Back attack! The defender cannot parry.")
		if def.Part(models.SlotCore).Alive() {
			return models.SlotCore
		}
		return randomPart(m, def, "")
	}
	if a.Type == models.ActionMelee && !def.Downed() {
		if s, ok := parrySlot(def); ok {
			res.logf("  > %s parries with [%s].", def.Name, def.Part(s).Name)
			return s
		}
	}
	face := engine.RollPart(m.RNG())
	if face == engine.PartAny {
		s := randomPart(m, def, "")
		res.logf("  > Part die shows any: %s is hit.", s)
		return s
	}
	s := models.Slot(face)
	if !def.Part(s).Alive() {
		res.logf("  > Part die shows %s, which is gone; the core is hit.", s)
		return models.SlotCore
	}
	res.logf("  > Part die shows %s.", s)
	return s
}

// parrySlot is the surviving part with the highest parry, if any parries.
func parrySlot(e *models.Entity) (models.Slot, bool) {
	best, bestParry := models.Slot(""), 0
	for _, s := range models.PartSlots {
		p := e.Part(s)
		if p.Alive() && p.Parry > bestParry {
			best, bestParry = s, p.Parry
		}
	}
	return best, bestParry > 0
}

// randomPart picks a surviving part other than exclude, in slot order.
func randomPart(m *Match, e *models.Entity, exclude models.Slot) models.Slot {
	var alive []models.Slot
	for _, s := range models.PartSlots {
		if s != exclude && e.Part(s).Alive() {
			alive = append(alive, s)
		}
	}
	if len(alive) == 0 {
		return ""
	}
	return alive[m.RNG().Intn(len(alive))]
}

// attackPool applies passive dice boosts and the static yellow bonus.
func attackPool(res *Resolution, att *models.Entity, a models.Action) engine.Pool {
	pool := engine.Pool{}
	for k, v := range a.Pool() {
		pool[k] = v
	}
	if !att.IsMech() {
		return pool
	}
	for _, eff := range att.PassiveEffects() {
		b := eff.PassiveDiceBoost
		if b == nil || att.Stance != b.TriggerStance || a.Type != b.TriggerType {
			continue
		}
		base := pool[b.DiceType]
		if bonus := b.Bonus(base); bonus > 0 {
			pool[b.DiceType] = base + bonus
			res.logf("  > [%s] %s dice %d -> %d.", displayName(eff), b.DiceType, base, base+bonus)
		}
	}
	if a.Effects.Static && a.Effects.YellowDiceBonus > 0 && att.Turn.TP >= 1 {
		pool[engine.Yellow] += a.Effects.YellowDiceBonus
		res.logf("  > [Static] +%d yellow.", a.Effects.YellowDiceBonus)
	}
	return pool
}

func displayName(e models.Effects) string {
	if len(e.Display) > 0 {
		return e.Display[0]
	}
	return "passive"
}

// defensePool sizes the defense roll: armor while the part is intact,
// structure once damaged, blue dice for agile defenders, parry for melee.
func (c *Controller) defensePool(res *Resolution, a models.Action, def *models.Entity, part *models.Part, status models.PartStatus, canParry bool) engine.Pool {
	white := part.Armor
	if status == models.PartDamaged {
		white = part.Structure
	}
	if ap := a.Effects.ArmorPiercing; ap > 0 {
		if status == models.PartDamaged {
			res.logf("  > [Armor Piercing %d] has no effect on structure.", ap)
		} else {
			white = max(0, white-ap)
			res.logf("  > [Armor Piercing %d] defense white dice reduced to %d.", ap, white)
		}
	}
	if canParry && a.Type == models.ActionMelee && part.Parry > 0 && def.IsMech() && !def.Downed() {
		white += part.Parry
		res.logf("  > [Parry] +%d white.", part.Parry)
	}
	pool := engine.Pool{engine.White: white}
	if def.Stance == models.StanceAgile {
		if blue := def.TotalEvasion(); blue > 0 {
			pool[engine.Blue] = blue
		}
	}
	return pool
}

func linkPoints(e *models.Entity) int {
	if e == nil || !e.IsMech() || e.Pilot == nil {
		return 0
	}
	return e.Pilot.LinkPoints
}

// drainLink removes link points. Reaching zero forces the downed stance.
func (c *Controller) drainLink(res *Resolution, e *models.Entity, n int, reason string) {
	if n <= 0 || e.Pilot == nil || e.Pilot.LinkPoints <= 0 {
		return
	}
	n = min(n, e.Pilot.LinkPoints)
	e.Pilot.LinkPoints -= n
	res.Changes.Pilots = append(res.Changes.Pilots, PilotChange{
		EntityID: e.ID, Pilot: e.Pilot.Name, Delta: -n, Remaining: e.Pilot.LinkPoints, Reason: reason,
	})
	res.logf("  > Pilot %s loses %d link (%s), %d left.", e.Pilot.Name, n, reason, e.Pilot.LinkPoints)
	if e.Pilot.LinkPoints == 0 && e.Stance != models.StanceDowned {
		e.Stance = models.StanceDowned
		res.Changes.Downed = append(res.Changes.Downed, e.ID)
		res.logf("  > Link depleted! %s is downed.", e.Name)
	}
}

// aiRerolls lets computer-controlled mechs spend one link on their own
// failed dice before the player is offered anything. The AI keeps its last
// link point.
func (c *Controller) aiRerolls(m *Match, res *Resolution, att, def *models.Entity) {
	a := res.Intent.Action
	if att.IsMech() && att.Controller == models.ControllerAI && !res.AttackerRerolled && linkPoints(att) > 1 {
		if c.projected(res, def).Damage == 0 {
			bd, _ := engine.Process(res.AttackRaw, res.AttackStance, res.Convert)
			if refs := failedDice(bd, a.Effects.Shock, true); len(refs) > 0 {
				res.AttackRaw = engine.Reroll(m.RNG(), res.AttackRaw, refs)
				res.AttackerRerolled = true
				c.drainLink(res, att, 1, "reroll")
				res.logf("  > [AI] %s rerolls %d attack dice.", att.Name, len(refs))
			}
		}
	}
	if def.IsMech() && def.Controller == models.ControllerAI && !res.DefenderRerolled && linkPoints(def) > 1 {
		if c.projected(res, def).Damage > 0 {
			bd, _ := engine.Process(res.DefenseRaw, string(def.Stance), false)
			if refs := failedDice(bd, false, false); len(refs) > 0 {
				res.DefenseRaw = engine.Reroll(m.RNG(), res.DefenseRaw, refs)
				res.DefenderRerolled = true
				c.drainLink(res, def, 1, "reroll")
				res.logf("  > [AI] %s rerolls %d defense dice.", def.Name, len(refs))
			}
		}
	}
}

func (c *Controller) projected(res *Resolution, def *models.Entity) engine.Cancellation {
	_, ac := engine.Process(res.AttackRaw, res.AttackStance, res.Convert)
	_, dc := engine.Process(res.DefenseRaw, string(def.Stance), false)
	return engine.Cancel(ac, dc)
}

// failedDice lists dice that produced nothing useful for their side.
func failedDice(bd engine.Breakdown, keepLightning, attack bool) []engine.DieRef {
	var refs []engine.DieRef
	for _, col := range engine.Colors {
		for i, outs := range bd[col] {
			useful := false
			for _, o := range outs {
				switch o {
				case engine.LightHit, engine.HeavyHit:
					useful = useful || attack
				case engine.Defense, engine.Evasion:
					useful = useful || !attack
				case engine.Lightning:
					useful = useful || keepLightning
				}
			}
			if !useful {
				refs = append(refs, engine.DieRef{Color: col, Index: i})
			}
		}
	}
	return refs
}

func (c *Controller) applyAttackRerolls(m *Match, res *Resolution, att, def *models.Entity, sel RerollSelection) {
	if len(sel.Attacker) > 0 {
		switch {
		case !res.PlayerAttacker:
			res.logf("  > Attacker is not player controlled; selection ignored.")
		case res.AttackerRerolled || linkPoints(att) == 0:
			res.logf("  > Attacker cannot reroll again.")
		default:
			res.AttackRaw = engine.Reroll(m.RNG(), res.AttackRaw, sel.Attacker)
			res.AttackerRerolled = true
			c.drainLink(res, att, 1, "reroll")
			res.logf("  > %s rerolls %d attack dice.", att.Name, len(sel.Attacker))
		}
	}
	if len(sel.Defender) > 0 {
		switch {
		case !res.PlayerDefender:
			res.logf("  > Defender is not player controlled; selection ignored.")
		case res.DefenderRerolled || linkPoints(def) == 0:
			res.logf("  > Defender cannot reroll again.")
		default:
			res.DefenseRaw = engine.Reroll(m.RNG(), res.DefenseRaw, sel.Defender)
			res.DefenderRerolled = true
			c.drainLink(res, def, 1, "reroll")
			res.logf("  > %s rerolls %d defense dice.", def.Name, len(sel.Defender))
		}
	}
}

// applyPrimary cancels the main roll and applies damage, shock and the
// overflow effect selection.
func (c *Controller) applyPrimary(m *Match, res *Resolution, att, def *models.Entity) error {
	a := res.Intent.Action
	abd, ac := engine.Process(res.AttackRaw, res.AttackStance, res.Convert)
	dbd, dc := engine.Process(res.DefenseRaw, string(def.Stance), false)
	roll := RollDetails{Type: "attack_roll", AttackInput: res.AttackPool, AttackResult: abd, DefenseInput: res.DefensePool, DefenseResult: dbd}
	res.Dice = append(res.Dice, roll)
	m.emit("dice_roll", map[string]any{"resolution_id": res.ID, "roll": roll})
	res.logf("  > Attack: %s. Defense: %s.", ac, dc)

	cx := engine.Cancel(ac, dc)
	res.Cancel = cx
	res.logf("  > %d defense cancel %d light; %d evasion cancel %d heavy and %d light.",
		cx.Defense, cx.LightByDefense, cx.Evasion, cx.HeavyByEvasion, cx.LightByEvasion)

	if a.Effects.Shock && def.IsMech() {
		if net := engine.NetLightning(ac, dc); net > 0 {
			res.logf("  > [Shock] %d lightning get through.", net)
			c.drainLink(res, def, net, "shock")
		}
	}

	part := def.Part(res.TargetSlot)
	if part == nil {
		return fmt.Errorf("part %s vanished from %s", res.TargetSlot, def.ID)
	}
	if cx.Damage == 0 {
		res.Outcome = OutcomeNoDamage
		res.logf("  > Everything is cancelled. No damage.")
		c.finish(m, res, att, def)
		return nil
	}
	res.Outcome = OutcomePenetrated
	res.logf("  > Penetrated!")
	to := nextStatus(def, part, res.OriginalStatus)
	c.setPartStatus(res, def, res.TargetSlot, to)

	if !def.IsMech() {
		c.finish(m, res, att, def)
		return nil
	}
	res.OverflowLight, res.OverflowHeavy = overflowAfter(cx)
	res.Options = effectOptions(res, att, def, part, to)
	switch {
	case len(res.Options) == 0:
		c.finish(m, res, att, def)
		return nil
	case len(res.Options) > 1 && res.PlayerAttacker:
		res.Stage = StageAwaitingEffectChoice
		res.logf("> [player] %d effects triggered. Choose one...", len(res.Options))
		m.emit("decision_required", map[string]any{"kind": DecisionEffect, "resolution_id": res.ID})
		return nil
	}
	choice := res.Options[0]
	if len(res.Options) > 1 {
		for _, e := range effectPriority {
			if containsEffect(res.Options, e) {
				choice = e
				break
			}
		}
		res.logf("> [AI] picks [%s].", choice)
	}
	return c.startEffect(m, res, att, def, choice)
}

// nextStatus is the single step a penetrating hit causes.
func nextStatus(def *models.Entity, part *models.Part, from models.PartStatus) models.PartStatus {
	switch {
	case !def.IsMech():
		return models.PartDestroyed
	case part.Structure == 0:
		return models.PartDestroyed
	case from == models.PartOK:
		return models.PartDamaged
	}
	return models.PartDestroyed
}

// overflowAfter keeps what is left once one hit paid for the transition.
// The light hit is spent first.
func overflowAfter(cx engine.Cancellation) (light, heavy int) {
	light, heavy = cx.RemainingLight, cx.RemainingHeavy
	if light > 0 {
		light--
	} else if heavy > 0 {
		heavy--
	}
	return light, heavy
}

func effectOptions(res *Resolution, att *models.Entity, def *models.Entity, part *models.Part, to models.PartStatus) []Effect {
	if res.OriginalStatus != models.PartOK || to != models.PartDamaged {
		return nil
	}
	if res.OverflowLight+res.OverflowHeavy == 0 {
		return nil
	}
	fx := res.Intent.Action.Effects
	others := false
	for _, s := range models.PartSlots {
		if s != res.TargetSlot && def.Part(s).Alive() {
			others = true
		}
	}
	var out []Effect
	devastating := fx.Devastating
	if !devastating && fx.TwoHandedDevastating && att.IsMech() && att.OtherHandEmpty(res.Intent.Slot) {
		res.logf("  > [Two-Handed Devastating] the other hand is empty.")
		devastating = true
	}
	if devastating && part.Structure > 0 {
		out = append(out, EffectDevastating)
	}
	if fx.Scattershot && others {
		out = append(out, EffectScattershot)
	}
	if fx.Cleave && others {
		out = append(out, EffectCleave)
	}
	return out
}

func containsEffect(es []Effect, e Effect) bool {
	for _, x := range es {
		if x == e {
			return true
		}
	}
	return false
}

// setPartStatus records a transition and runs the cascades: a destroyed
// part costs the pilot one link, a destroyed core removes the entity.
func (c *Controller) setPartStatus(res *Resolution, def *models.Entity, slot models.Slot, to models.PartStatus) {
	part := def.Part(slot)
	from := part.Status
	if from == to || from == models.PartDestroyed {
		return
	}
	part.Status = to
	res.Changes.Parts = append(res.Changes.Parts, PartChange{EntityID: def.ID, Slot: slot, Part: part.Name, From: from, To: to})
	res.logf("  > [%s] %s -> %s.", part.Name, from, to)
	if to != models.PartDestroyed {
		return
	}
	if def.IsMech() {
		c.drainLink(res, def, 1, "part destroyed")
	}
	if slot == models.SlotCore && def.Status != models.EntityDestroyed {
		def.Status = models.EntityDestroyed
		res.Changes.Destroyed = append(res.Changes.Destroyed, def.ID)
		res.logf("  > %s is destroyed!", def.Name)
	}
}

// startEffect rolls the secondary defense of the chosen overflow effect.
func (c *Controller) startEffect(m *Match, res *Resolution, att, def *models.Entity, effect Effect) error {
	res.Effect = effect
	res.logf("  > [%s] triggers with %d heavy and %d light overflow.", effect, res.OverflowHeavy, res.OverflowLight)
	var white int
	switch effect {
	case EffectDevastating:
		res.EffectSlot = res.TargetSlot
		part := def.Part(res.EffectSlot)
		res.EffectStatus = part.Status
		white = part.Structure
	case EffectScattershot, EffectCleave:
		res.EffectSlot = randomPart(m, def, res.TargetSlot)
		if res.EffectSlot == "" {
			res.logf("  > No other part to carry the overflow.")
			c.finish(m, res, att, def)
			return nil
		}
		part := def.Part(res.EffectSlot)
		res.EffectStatus = part.Status
		white = part.Armor
		if part.Status == models.PartDamaged {
			white = part.Structure
		}
		res.logf("  > Overflow carries to [%s].", part.Name)
	default:
		return fmt.Errorf("%w: effect %q", ErrInvalidChoice, effect)
	}
	pool := engine.Pool{engine.White: white}
	if def.Stance == models.StanceAgile {
		if blue := def.TotalEvasion(); blue > 0 {
			pool[engine.Blue] = blue
		}
	}
	res.EffectPool = pool
	res.EffectRaw = engine.Roll(m.RNG(), pool)
	if res.PlayerDefender && !res.DefenderRerolled && linkPoints(def) > 0 {
		res.Stage = StageAwaitingEffectReroll
		res.logf("  > Link points: %d. Waiting for a reroll decision...", linkPoints(def))
		m.emit("decision_required", map[string]any{"kind": DecisionReroll, "resolution_id": res.ID})
		return nil
	}
	return c.applyEffect(m, res, att, def)
}

func (c *Controller) applyEffect(m *Match, res *Resolution, att, def *models.Entity) error {
	part := def.Part(res.EffectSlot)
	if part == nil {
		return fmt.Errorf("part %s vanished from %s", res.EffectSlot, def.ID)
	}
	dbd, dc := engine.Process(res.EffectRaw, string(def.Stance), false)
	roll := RollDetails{Type: string(res.Effect) + "_roll", DefenseInput: res.EffectPool, DefenseResult: dbd}
	res.Dice = append(res.Dice, roll)
	m.emit("dice_roll", map[string]any{"resolution_id": res.ID, "roll": roll})
	ac := engine.Counts{}
	ac.Add(engine.LightHit, res.OverflowLight)
	ac.Add(engine.HeavyHit, res.OverflowHeavy)
	cx := engine.Cancel(ac, dc)
	res.logf("  > [%s] defense %s; %d get through.", res.Effect, dc, cx.Damage)
	if cx.Damage == 0 {
		res.logf("  > The overflow is absorbed.")
		c.finish(m, res, att, def)
		return nil
	}
	to := models.PartDestroyed
	if res.Effect != EffectDevastating {
		to = nextStatus(def, part, res.EffectStatus)
	}
	c.setPartStatus(res, def, res.EffectSlot, to)
	c.finish(m, res, att, def)
	return nil
}

// finish closes the resolution. Projectiles detonate after attacking.
func (c *Controller) finish(m *Match, res *Resolution, att, def *models.Entity) {
	if att.Kind == models.KindProjectile && att.Alive() {
		att.Status = models.EntityDestroyed
		res.Changes.Destroyed = append(res.Changes.Destroyed, att.ID)
		res.logf("  > %s detonates and is removed.", att.Name)
	}
	res.Stage = StageResolved
	m.emit("attack_result", map[string]any{
		"resolution_id": res.ID,
		"attacker":      att.ID,
		"defender":      def.ID,
		"pos":           def.Pos,
		"outcome":       res.Outcome,
	})
}

// decisionFor renders the pending decision of a suspended resolution.
func decisionFor(m *Match, res *Resolution) *Decision {
	d := &Decision{
		ResolutionID:     res.ID,
		AttackerID:       res.Intent.AttackerID,
		DefenderID:       res.Intent.DefenderID,
		PlayerIsAttacker: res.PlayerAttacker,
		PlayerIsDefender: res.PlayerDefender,
	}
	def := m.Entities[res.Intent.DefenderID]
	stance := ""
	if def != nil {
		stance = string(def.Stance)
	}
	switch res.Stage {
	case StageAwaitingAttackReroll:
		d.Kind = DecisionReroll
		d.AttackRaw = res.AttackRaw.Clone()
		d.DefenseRaw = res.DefenseRaw.Clone()
		d.Attack, _ = engine.Process(res.AttackRaw, res.AttackStance, res.Convert)
		d.Defense, _ = engine.Process(res.DefenseRaw, stance, false)
		if res.PlayerAttacker {
			d.LinkPoints = linkPoints(m.Entities[res.Intent.AttackerID])
		} else {
			d.LinkPoints = linkPoints(def)
		}
	case StageAwaitingEffectChoice:
		d.Kind = DecisionEffect
		d.Options = append([]Effect(nil), res.Options...)
		d.OverflowLight, d.OverflowHeavy = res.OverflowLight, res.OverflowHeavy
	case StageAwaitingEffectReroll:
		d.Kind = DecisionReroll
		d.PlayerIsAttacker = false
		d.DefenseRaw = res.EffectRaw.Clone()
		d.Defense, _ = engine.Process(res.EffectRaw, stance, false)
		d.LinkPoints = linkPoints(def)
	default:
		return nil
	}
	return d
}
