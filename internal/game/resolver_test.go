package game

import (
	"errors"
	"testing"

	"github.com/pefman/mechduel/internal/engine"
	"github.com/pefman/mechduel/internal/models"
)

func TestResolveCancellationArithmetic(t *testing.T) {
	c := testController(t)
	att := testMech(PlayerID, models.ControllerPlayer, models.Pos{X: 5, Y: 5}, models.South, 0)
	att.Stance = models.StanceAttack
	def := testMech("ai_1", models.ControllerAI, models.Pos{X: 5, Y: 8}, models.North, 1)
	// yellow: light_hit_2, light_hit, hollow light; red: heavy.
	// white: defense, hollow defense x2, eye, blank.
	m := newTestMatch(seq(0, 2, 4, 0, 0, 1, 6, 7), att, def)

	res, out := c.Resolve(m, AttackIntent{AttackerID: att.ID, DefenderID: def.ID, Slot: models.SlotRightArm, Action: gun, TargetSlot: models.SlotCore})
	if !res.Done() || out.Decision != nil {
		t.Fatalf("stage = %s, want resolved", res.Stage)
	}
	if got := res.DefensePool[engine.White]; got != 4 {
		t.Fatalf("defense white dice = %d, want 4", got)
	}
	cx := res.Cancel
	if cx.Light != 4 || cx.Heavy != 1 || cx.Defense != 3 {
		t.Fatalf("counts = %+v", cx)
	}
	if cx.LightByDefense != 3 || cx.RemainingLight != 1 || cx.RemainingHeavy != 1 || cx.Damage != 2 {
		t.Fatalf("cancellation = %+v", cx)
	}
	if res.Outcome != OutcomePenetrated {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if got := def.Parts[models.SlotCore].Status; got != models.PartDamaged {
		t.Fatalf("core status = %s, want damaged", got)
	}
	if res.OverflowLight != 0 || res.OverflowHeavy != 1 {
		t.Fatalf("overflow = %d light %d heavy", res.OverflowLight, res.OverflowHeavy)
	}
	if len(out.Changes.Parts) != 1 || out.Changes.Parts[0].To != models.PartDamaged {
		t.Fatalf("changes = %+v", out.Changes)
	}
}

func TestPartStatusOnlyProgresses(t *testing.T) {
	c := testController(t)
	att := testMech(PlayerID, models.ControllerPlayer, models.Pos{X: 5, Y: 5}, models.South, 0)
	def := testMech("ai_1", models.ControllerAI, models.Pos{X: 5, Y: 8}, models.North, 1)
	def.Parts[models.SlotLeftArm].Status = models.PartDamaged
	heavy := models.Action{Name: "Heavy", Type: models.ActionRanged, Cost: "S", Dice: "2 red", Range: 6}
	// red heavy x2; structure 2 white: blank x2.
	m := newTestMatch(seq(0, 0, 7, 7), att, def)

	res, out := c.Resolve(m, AttackIntent{AttackerID: att.ID, DefenderID: def.ID, Slot: models.SlotRightArm, Action: heavy, TargetSlot: models.SlotLeftArm})
	if !res.Done() {
		t.Fatalf("stage = %s", res.Stage)
	}
	if got := def.Parts[models.SlotLeftArm].Status; got != models.PartDestroyed {
		t.Fatalf("left arm = %s, want destroyed", got)
	}
	if def.Pilot.LinkPoints != 0 || def.Stance != models.StanceDowned {
		t.Fatalf("pilot link = %d stance = %s", def.Pilot.LinkPoints, def.Stance)
	}
	for _, ch := range out.Changes.Parts {
		if ch.From == models.PartDestroyed || (ch.From == models.PartDamaged && ch.To == models.PartOK) {
			t.Fatalf("status regressed: %+v", ch)
		}
	}
	if len(res.Options) != 0 {
		t.Fatalf("a damaged part cannot trigger overflow effects, got %v", res.Options)
	}

	// A second hit on the destroyed arm falls through to the core.
	m.SetSource(seq(0, 0, 7, 7, 7, 7))
	res, _ = c.Resolve(m, AttackIntent{AttackerID: att.ID, DefenderID: def.ID, Slot: models.SlotRightArm, Action: heavy, TargetSlot: models.SlotLeftArm})
	if res.TargetSlot != models.SlotCore {
		t.Fatalf("target = %s, want core", res.TargetSlot)
	}
	if got := def.Parts[models.SlotLeftArm].Status; got != models.PartDestroyed {
		t.Fatalf("left arm = %s", got)
	}
}

func TestEmptyRerollMatchesNoOffer(t *testing.T) {
	c := testController(t)
	values := []int{1, 3, 5, 0, 0, 4, 2, 7}
	run := func(offer bool) (*Resolution, *models.Entity) {
		att := testMech(PlayerID, models.ControllerPlayer, models.Pos{X: 5, Y: 5}, models.South, 3)
		def := testMech("ai_1", models.ControllerAI, models.Pos{X: 5, Y: 8}, models.North, 1)
		m := newTestMatch(seq(values...), att, def)
		in := AttackIntent{AttackerID: att.ID, DefenderID: def.ID, Slot: models.SlotRightArm, Action: gun, TargetSlot: models.SlotCore, Interception: !offer}
		res, _ := c.Resolve(m, in)
		if offer {
			if res.Stage != StageAwaitingAttackReroll {
				t.Fatalf("stage = %s, want awaiting_attack_reroll", res.Stage)
			}
			c.ResumeReroll(m, res, RerollSelection{})
		}
		return res, m.Entities[def.ID]
	}
	offered, defA := run(true)
	plain, defB := run(false)
	if !offered.Done() || !plain.Done() {
		t.Fatal("both resolutions must finish")
	}
	if offered.Outcome != plain.Outcome || offered.Cancel != plain.Cancel {
		t.Fatalf("offered %s %+v vs plain %s %+v", offered.Outcome, offered.Cancel, plain.Outcome, plain.Cancel)
	}
	for _, s := range models.PartSlots {
		if defA.Parts[s].Status != defB.Parts[s].Status {
			t.Fatalf("%s: %s vs %s", s, defA.Parts[s].Status, defB.Parts[s].Status)
		}
	}
	if offered.AttackerRerolled {
		t.Fatal("an empty selection must not spend link")
	}
}

func TestShockDownsAndNextTurnRecovers(t *testing.T) {
	c := testController(t)
	zap := models.Action{Name: "Zap", Type: models.ActionMelee, Cost: "S", Dice: "2 yellow", Range: 1, Effects: models.Effects{Shock: true}}
	att := testMech("ai_1", models.ControllerAI, models.Pos{X: 5, Y: 4}, models.South, 1)
	def := testMech(PlayerID, models.ControllerPlayer, models.Pos{X: 5, Y: 5}, models.North, 1)
	// yellow lightning x2; white blank x4.
	m := newTestMatch(seq(5, 5, 7, 7, 7, 7), att, def)

	res, out := c.Resolve(m, AttackIntent{AttackerID: att.ID, DefenderID: def.ID, Slot: models.SlotLeftArm, Action: zap, TargetSlot: models.SlotCore})
	if res.Stage != StageAwaitingAttackReroll || out.Decision == nil || !out.Decision.PlayerIsDefender {
		t.Fatalf("expected a defender reroll offer, stage = %s", res.Stage)
	}
	out = c.ResumeReroll(m, res, RerollSelection{})
	if !res.Done() || res.Outcome != OutcomeNoDamage {
		t.Fatalf("stage = %s outcome = %s", res.Stage, res.Outcome)
	}
	if def.Pilot.LinkPoints != 0 || def.Stance != models.StanceDowned {
		t.Fatalf("link = %d stance = %s", def.Pilot.LinkPoints, def.Stance)
	}
	if len(out.Changes.Downed) != 1 || out.Changes.Downed[0] != def.ID {
		t.Fatalf("downed = %v", out.Changes.Downed)
	}
	c.StartTurn(m, def)
	if def.Turn.AP != 1 || def.Turn.TP != 0 || def.Stance != models.StanceDefense {
		t.Fatalf("turn = %+v stance = %s", def.Turn, def.Stance)
	}
}

func TestWrongStageResumeIsInvalid(t *testing.T) {
	c := testController(t)
	att := testMech(PlayerID, models.ControllerPlayer, models.Pos{X: 5, Y: 5}, models.South, 2)
	def := testMech("ai_1", models.ControllerAI, models.Pos{X: 5, Y: 8}, models.North, 1)
	m := newTestMatch(seq(0, 0, 0, 0, 7, 7, 7, 7), att, def)

	res, _ := c.Resolve(m, AttackIntent{AttackerID: att.ID, DefenderID: def.ID, Slot: models.SlotRightArm, Action: gun, TargetSlot: models.SlotCore})
	if res.Stage != StageAwaitingAttackReroll {
		t.Fatalf("stage = %s", res.Stage)
	}
	out, err := c.ResumeEffectChoice(m, res, EffectCleave)
	if !errors.Is(err, ErrStageMismatch) {
		t.Fatalf("err = %v, want stage mismatch", err)
	}
	if out.Outcome != OutcomeInvalid || !res.Done() {
		t.Fatalf("outcome = %s stage = %s", out.Outcome, res.Stage)
	}
	if def.Parts[models.SlotCore].Status != models.PartOK {
		t.Fatal("an invalid resolution must not apply damage")
	}
}

func TestEffectChoiceOutsideOptionsIsRejected(t *testing.T) {
	c := testController(t)
	att := testMech(PlayerID, models.ControllerPlayer, models.Pos{X: 5, Y: 5}, models.South, 0)
	def := testMech("ai_1", models.ControllerAI, models.Pos{X: 5, Y: 8}, models.North, 1)
	both := models.Action{Name: "Both", Type: models.ActionRanged, Cost: "S", Dice: "4 red", Range: 6, Effects: models.Effects{Devastating: true, Cleave: true}}
	// red heavy x4; white blank x4.
	m := newTestMatch(seq(0, 0, 0, 0, 7, 7, 7, 7), att, def)

	res, out := c.Resolve(m, AttackIntent{AttackerID: att.ID, DefenderID: def.ID, Slot: models.SlotRightArm, Action: both, TargetSlot: models.SlotCore})
	if res.Stage != StageAwaitingEffectChoice || out.Decision == nil || out.Decision.Kind != DecisionEffect {
		t.Fatalf("stage = %s", res.Stage)
	}
	if _, err := c.ResumeEffectChoice(m, res, EffectScattershot); !IsValidation(err) || !errors.Is(err, ErrInvalidChoice) {
		t.Fatalf("err = %v, want invalid choice", err)
	}
	if res.Stage != StageAwaitingEffectChoice {
		t.Fatalf("a rejected choice must leave the stage alone, got %s", res.Stage)
	}
	m.SetSource(seq(7))
	if _, err := c.ResumeEffectChoice(m, res, EffectDevastating); err != nil {
		t.Fatalf("ResumeEffectChoice() error = %v", err)
	}
	if !res.Done() || def.Parts[models.SlotCore].Status != models.PartDestroyed {
		t.Fatalf("stage = %s core = %s", res.Stage, def.Parts[models.SlotCore].Status)
	}
	if def.Alive() {
		t.Fatal("a destroyed core removes the mech")
	}
}

func TestAIPicksEffectByPriority(t *testing.T) {
	c := testController(t)
	att := testMech("ai_1", models.ControllerAI, models.Pos{X: 5, Y: 5}, models.South, 1)
	def := testMech("ai_2", models.ControllerPlayer, models.Pos{X: 5, Y: 8}, models.North, 0)
	fx := models.Action{Name: "Spread", Type: models.ActionRanged, Cost: "S", Dice: "4 red", Range: 6, Effects: models.Effects{Scattershot: true, Cleave: true}}
	m := newTestMatch(seq(0, 0, 0, 0, 7, 7, 7, 7, 0, 7), att, def)

	res, _ := c.Resolve(m, AttackIntent{AttackerID: att.ID, DefenderID: def.ID, Slot: models.SlotRightArm, Action: fx, TargetSlot: models.SlotCore})
	if res.Effect != EffectCleave {
		t.Fatalf("effect = %q, want cleave", res.Effect)
	}
	if !res.Done() {
		t.Fatalf("stage = %s", res.Stage)
	}
}

func TestFailedStepRestoresEntities(t *testing.T) {
	c := testController(t)
	zap := models.Action{Name: "Zap", Type: models.ActionMelee, Cost: "S", Dice: "2 yellow", Range: 1, Effects: models.Effects{Shock: true}}
	att := testMech("ai_1", models.ControllerAI, models.Pos{X: 5, Y: 4}, models.South, 1)
	def := testMech(PlayerID, models.ControllerPlayer, models.Pos{X: 5, Y: 5}, models.North, 3)
	m := newTestMatch(seq(5, 5, 7, 7, 7, 7), att, def)

	res, _ := c.Resolve(m, AttackIntent{AttackerID: att.ID, DefenderID: def.ID, Slot: models.SlotLeftArm, Action: zap, TargetSlot: models.SlotCore})
	if res.Stage != StageAwaitingAttackReroll {
		t.Fatalf("stage = %s", res.Stage)
	}
	// The target part disappears while the decision is pending: shock has
	// already drained link when the damage step notices.
	delete(def.Parts, models.SlotCore)
	out := c.ResumeReroll(m, res, RerollSelection{})
	if out.Outcome != OutcomeInvalid {
		t.Fatalf("outcome = %s, want invalid", out.Outcome)
	}
	if got := m.Entities[def.ID].Pilot.LinkPoints; got != 3 {
		t.Fatalf("link = %d, want 3 after rollback", got)
	}
	if !out.Changes.Empty() {
		t.Fatalf("changes = %+v, want none", out.Changes)
	}
}

func TestPlayerRerollSpendsOneLinkOnce(t *testing.T) {
	c := testController(t)
	att := testMech(PlayerID, models.ControllerPlayer, models.Pos{X: 5, Y: 5}, models.South, 2)
	def := testMech("ai_1", models.ControllerAI, models.Pos{X: 5, Y: 8}, models.North, 1)
	m := newTestMatch(seq(7, 7, 7, 7, 7, 7, 7, 7), att, def)

	res, _ := c.Resolve(m, AttackIntent{AttackerID: att.ID, DefenderID: def.ID, Slot: models.SlotRightArm, Action: gun, TargetSlot: models.SlotCore})
	sel := RerollSelection{Attacker: []engine.DieRef{{Color: engine.Yellow, Index: 0}, {Color: engine.Red, Index: 0}}}
	m.SetSource(seq(0, 0))
	c.ResumeReroll(m, res, sel)
	if att.Pilot.LinkPoints != 1 || !res.AttackerRerolled {
		t.Fatalf("link = %d rerolled = %v", att.Pilot.LinkPoints, res.AttackerRerolled)
	}
	if res.AttackRaw[engine.Yellow][0] != engine.FaceLightHit2 || res.AttackRaw[engine.Red][0] != engine.FaceHeavyHit {
		t.Fatalf("rerolled faces = %v", res.AttackRaw)
	}
	if res.AttackRaw[engine.Yellow][1] != engine.FaceBlank {
		t.Fatal("unselected dice must keep their faces")
	}
}

func TestFailedEffectStepKeepsEarlierChanges(t *testing.T) {
	c := testController(t)
	cleave := models.Action{Name: "Cleaver", Type: models.ActionRanged, Cost: "S", Dice: "4 red", Range: 6, Effects: models.Effects{Cleave: true}}
	att := testMech("ai_1", models.ControllerAI, models.Pos{X: 5, Y: 4}, models.South, 1)
	def := testMech(PlayerID, models.ControllerPlayer, models.Pos{X: 5, Y: 5}, models.North, 1)
	// red heavy x4; white blank x4.
	m := newTestMatch(seq(0, 0, 0, 0, 7, 7, 7, 7), att, def)

	res, _ := c.Resolve(m, AttackIntent{AttackerID: att.ID, DefenderID: def.ID, Slot: models.SlotRightArm, Action: cleave, TargetSlot: models.SlotCore})
	if res.Stage != StageAwaitingAttackReroll {
		t.Fatalf("stage = %s", res.Stage)
	}
	// legs carry the overflow; white blank x4.
	m.SetSource(seq(0, 7, 7, 7, 7))
	out := c.ResumeReroll(m, res, RerollSelection{})
	if res.Stage != StageAwaitingEffectReroll || len(out.Changes.Parts) != 1 {
		t.Fatalf("stage = %s changes = %+v", res.Stage, out.Changes)
	}

	delete(def.Parts, res.EffectSlot)
	out = c.ResumeReroll(m, res, RerollSelection{})
	if out.Outcome != OutcomeInvalid {
		t.Fatalf("outcome = %s, want invalid", out.Outcome)
	}
	if got := m.Entities[def.ID].Parts[models.SlotCore].Status; got != models.PartDamaged {
		t.Fatalf("core = %s, want damaged", got)
	}
	if len(out.Changes.Parts) != 1 || out.Changes.Parts[0].Slot != models.SlotCore || out.Changes.Parts[0].To != models.PartDamaged {
		t.Fatalf("changes = %+v, want the core transition kept", out.Changes)
	}
}

func TestPlayerDefenderRerollsEffectDice(t *testing.T) {
	c := testController(t)
	cleave := models.Action{Name: "Cleaver", Type: models.ActionRanged, Cost: "S", Dice: "4 red", Range: 6, Effects: models.Effects{Cleave: true}}
	att := testMech("ai_1", models.ControllerAI, models.Pos{X: 5, Y: 4}, models.South, 1)
	def := testMech(PlayerID, models.ControllerPlayer, models.Pos{X: 5, Y: 5}, models.North, 2)
	m := newTestMatch(seq(0, 0, 0, 0, 7, 7, 7, 7), att, def)

	res, _ := c.Resolve(m, AttackIntent{AttackerID: att.ID, DefenderID: def.ID, Slot: models.SlotRightArm, Action: cleave, TargetSlot: models.SlotCore})
	m.SetSource(seq(0, 7, 7, 7, 7))
	out := c.ResumeReroll(m, res, RerollSelection{})
	if res.Stage != StageAwaitingEffectReroll || out.Decision == nil || out.Decision.Kind != DecisionReroll {
		t.Fatalf("stage = %s decision = %+v", res.Stage, out.Decision)
	}
	if res.EffectSlot != models.SlotLegs || res.OverflowHeavy != 3 {
		t.Fatalf("effect slot = %s overflow heavy = %d", res.EffectSlot, res.OverflowHeavy)
	}

	// white evasion x4 absorbs the three heavy hits.
	m.SetSource(seq(3))
	sel := RerollSelection{Defender: []engine.DieRef{
		{Color: engine.White, Index: 0}, {Color: engine.White, Index: 1},
		{Color: engine.White, Index: 2}, {Color: engine.White, Index: 3},
	}}
	out = c.ResumeReroll(m, res, sel)
	if !res.Done() || !res.DefenderRerolled {
		t.Fatalf("stage = %s rerolled = %v", res.Stage, res.DefenderRerolled)
	}
	if def.Pilot.LinkPoints != 1 {
		t.Fatalf("link = %d, want 1", def.Pilot.LinkPoints)
	}
	if got := def.Parts[models.SlotLegs].Status; got != models.PartOK {
		t.Fatalf("legs = %s, want ok", got)
	}
	if len(out.Changes.Parts) != 1 || len(out.Changes.Pilots) != 1 {
		t.Fatalf("changes = %+v", out.Changes)
	}
}

func TestResolverPaths(t *testing.T) {
	salvo := func(fx models.Effects) models.Action {
		return models.Action{Name: "Salvo", Type: models.ActionRanged, Cost: "S", Dice: "4 red", Range: 6, Effects: fx}
	}
	blanks := []int{7}
	boost := models.Action{Name: "Targeting", Type: models.ActionPassive, Effects: models.Effects{
		PassiveDiceBoost: &models.DiceBoost{TriggerStance: models.StanceAttack, TriggerType: models.ActionRanged, RatioBase: 2, RatioAdd: 1, DiceType: engine.Yellow},
	}}
	tests := []struct {
		name      string
		aiAttacks bool
		attLink   int
		defLink   int
		action    models.Action
		target    models.Slot
		setup     func(att, def *models.Entity)
		dice      []int
		check     func(t *testing.T, res *Resolution, out AttackResult, att, def *models.Entity)
	}{
		{
			name: "ai attacker rerolls failed dice", aiAttacks: true, attLink: 2,
			action: gun, target: models.SlotCore,
			// all blank, then yellow light_hit_2 x3 and red heavy on the reroll.
			dice: []int{7, 7, 7, 7, 7, 7, 7, 7, 0, 0, 0, 0},
			check: func(t *testing.T, res *Resolution, out AttackResult, att, def *models.Entity) {
				if !res.AttackerRerolled || att.Pilot.LinkPoints != 1 {
					t.Fatalf("rerolled = %v link = %d", res.AttackerRerolled, att.Pilot.LinkPoints)
				}
				if res.Outcome != OutcomePenetrated || def.Parts[models.SlotCore].Status != models.PartDamaged {
					t.Fatalf("outcome = %s core = %s", res.Outcome, def.Parts[models.SlotCore].Status)
				}
			},
		},
		{
			name: "ai attacker keeps its last link", aiAttacks: true, attLink: 1,
			action: gun, target: models.SlotCore, dice: blanks,
			check: func(t *testing.T, res *Resolution, out AttackResult, att, def *models.Entity) {
				if res.AttackerRerolled || att.Pilot.LinkPoints != 1 {
					t.Fatalf("rerolled = %v link = %d", res.AttackerRerolled, att.Pilot.LinkPoints)
				}
				if res.Outcome != OutcomeNoDamage {
					t.Fatalf("outcome = %s", res.Outcome)
				}
			},
		},
		{
			name: "ai defender rerolls failed defense", defLink: 2,
			action: gun, target: models.SlotCore,
			// yellow light_hit_2 x3, red heavy; white blank x4, rerolled to defense x4.
			dice: []int{0, 0, 0, 0, 7, 7, 7, 7, 0, 0, 0, 0},
			check: func(t *testing.T, res *Resolution, out AttackResult, att, def *models.Entity) {
				if !res.DefenderRerolled || def.Pilot.LinkPoints != 1 {
					t.Fatalf("rerolled = %v link = %d", res.DefenderRerolled, def.Pilot.LinkPoints)
				}
				if res.Cancel.LightByDefense != 4 || res.Cancel.Damage != 3 {
					t.Fatalf("cancellation = %+v", res.Cancel)
				}
			},
		},
		{
			name: "parry adds white dice against melee", defLink: 1,
			action: models.Action{Name: "Claw", Type: models.ActionMelee, Cost: "S", Dice: "2 red", Range: 1},
			setup:  func(att, def *models.Entity) { def.Parts[models.SlotLeftArm].Parry = 2 },
			dice:   []int{0, 0, 7, 7, 7, 7, 7, 7},
			check: func(t *testing.T, res *Resolution, out AttackResult, att, def *models.Entity) {
				if res.TargetSlot != models.SlotLeftArm || res.DefensePool[engine.White] != 6 {
					t.Fatalf("target = %s defense = %v", res.TargetSlot, res.DefensePool)
				}
			},
		},
		{
			name: "armor piercing strips armor dice", defLink: 1,
			action: models.Action{Name: "Needle", Type: models.ActionRanged, Cost: "S", Dice: "3 yellow 1 red", Range: 6, Effects: models.Effects{ArmorPiercing: 2}},
			target: models.SlotCore, dice: blanks,
			check: func(t *testing.T, res *Resolution, out AttackResult, att, def *models.Entity) {
				if got := res.DefensePool[engine.White]; got != 2 {
					t.Fatalf("defense white = %d, want 2", got)
				}
			},
		},
		{
			name: "passive boost in the trigger stance", defLink: 1,
			action: gun, target: models.SlotCore, dice: blanks,
			setup: func(att, def *models.Entity) {
				att.Stance = models.StanceAttack
				att.Parts[models.SlotBackpack].Actions = []models.Action{boost}
			},
			check: func(t *testing.T, res *Resolution, out AttackResult, att, def *models.Entity) {
				if got := res.AttackPool[engine.Yellow]; got != 4 {
					t.Fatalf("attack yellow = %d, want 4", got)
				}
			},
		},
		{
			name: "passive boost ignores other stances", defLink: 1,
			action: gun, target: models.SlotCore, dice: blanks,
			setup: func(att, def *models.Entity) {
				att.Parts[models.SlotBackpack].Actions = []models.Action{boost}
			},
			check: func(t *testing.T, res *Resolution, out AttackResult, att, def *models.Entity) {
				if got := res.AttackPool[engine.Yellow]; got != 3 {
					t.Fatalf("attack yellow = %d, want 3", got)
				}
			},
		},
		{
			name: "agile defender rolls blue dice", defLink: 1,
			action: gun, target: models.SlotCore, dice: blanks,
			setup: func(att, def *models.Entity) {
				def.Stance = models.StanceAgile
				def.Parts[models.SlotLegs].Evasion = 2
			},
			check: func(t *testing.T, res *Resolution, out AttackResult, att, def *models.Entity) {
				if res.DefensePool[engine.Blue] != 2 || res.DefensePool[engine.White] != 4 {
					t.Fatalf("defense = %v", res.DefensePool)
				}
			},
		},
		{
			name: "scattershot damages a second part", defLink: 1,
			action: salvo(models.Effects{Scattershot: true}), target: models.SlotCore,
			// red heavy x4; white blank x4; legs; white blank x4.
			dice: []int{0, 0, 0, 0, 7, 7, 7, 7, 0, 7, 7, 7, 7},
			check: func(t *testing.T, res *Resolution, out AttackResult, att, def *models.Entity) {
				if res.Effect != EffectScattershot || res.EffectSlot != models.SlotLegs {
					t.Fatalf("effect = %s on %s", res.Effect, res.EffectSlot)
				}
				if def.Parts[models.SlotLegs].Status != models.PartDamaged || len(out.Changes.Parts) != 2 {
					t.Fatalf("legs = %s changes = %+v", def.Parts[models.SlotLegs].Status, out.Changes)
				}
			},
		},
		{
			name: "cleave damages a second part", defLink: 1,
			action: salvo(models.Effects{Cleave: true}), target: models.SlotCore,
			// the part die index 1 picks the left arm.
			dice: []int{0, 0, 0, 0, 7, 7, 7, 7, 1, 7, 7, 7, 7},
			check: func(t *testing.T, res *Resolution, out AttackResult, att, def *models.Entity) {
				if res.Effect != EffectCleave || res.EffectSlot != models.SlotLeftArm {
					t.Fatalf("effect = %s on %s", res.Effect, res.EffectSlot)
				}
				if def.Parts[models.SlotLeftArm].Status != models.PartDamaged || len(out.Changes.Parts) != 2 {
					t.Fatalf("left arm = %s changes = %+v", def.Parts[models.SlotLeftArm].Status, out.Changes)
				}
			},
		},
		{
			name: "ai picks devastating over cleave", aiAttacks: true, attLink: 1,
			action: salvo(models.Effects{Devastating: true, Cleave: true, Scattershot: true}), target: models.SlotCore,
			// red heavy x4; white blank x4; structure blank x2.
			dice: []int{0, 0, 0, 0, 7, 7, 7, 7, 7, 7},
			check: func(t *testing.T, res *Resolution, out AttackResult, att, def *models.Entity) {
				if len(res.Options) != 3 || res.Effect != EffectDevastating {
					t.Fatalf("options = %v effect = %s", res.Options, res.Effect)
				}
				if def.Parts[models.SlotCore].Status != models.PartDestroyed || def.Alive() {
					t.Fatalf("core = %s alive = %v", def.Parts[models.SlotCore].Status, def.Alive())
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testController(t)
			var att, def *models.Entity
			if tt.aiAttacks {
				att = testMech("ai_1", models.ControllerAI, models.Pos{X: 5, Y: 5}, models.South, tt.attLink)
				def = testMech(PlayerID, models.ControllerPlayer, models.Pos{X: 5, Y: 6}, models.North, tt.defLink)
			} else {
				att = testMech(PlayerID, models.ControllerPlayer, models.Pos{X: 5, Y: 5}, models.South, tt.attLink)
				def = testMech("ai_1", models.ControllerAI, models.Pos{X: 5, Y: 6}, models.North, tt.defLink)
			}
			if tt.setup != nil {
				tt.setup(att, def)
			}
			m := newTestMatch(seq(tt.dice...), att, def)

			res, out := c.Resolve(m, AttackIntent{AttackerID: att.ID, DefenderID: def.ID, Slot: models.SlotRightArm, Action: tt.action, TargetSlot: tt.target})
			if !res.Done() {
				t.Fatalf("stage = %s, want resolved", res.Stage)
			}
			tt.check(t, res, out, att, def)
		})
	}
}
