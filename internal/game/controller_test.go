package game

import (
	"errors"
	"testing"

	"github.com/pefman/mechduel/internal/models"
)

// volley fires its gun at the player n times without paying for it.
type volley struct{ n int }

func (v volley) PlanTurn(c *Controller, m *Match, e *models.Entity, rep *Report) []AttackIntent {
	var out []AttackIntent
	for i := 0; i < v.n; i++ {
		out = append(out, AttackIntent{AttackerID: e.ID, DefenderID: PlayerID, Slot: models.SlotRightArm, Action: gun, TargetSlot: models.SlotCore})
	}
	return out
}

func duelPair(playerLink, aiLink int) (*models.Entity, *models.Entity) {
	p := testMech(PlayerID, models.ControllerPlayer, models.Pos{X: 5, Y: 5}, models.South, playerLink)
	p.Parts[models.SlotRightArm].Actions = []models.Action{gun}
	ai := testMech("ai_1", models.ControllerAI, models.Pos{X: 5, Y: 7}, models.North, aiLink)
	ai.Parts[models.SlotRightArm].Actions = []models.Action{gun}
	return p, ai
}

func TestValidateActionOrder(t *testing.T) {
	e := testMech(PlayerID, models.ControllerPlayer, models.Pos{X: 1, Y: 1}, models.East, 1)
	shell := models.Action{Name: "Shell", Type: models.ActionRanged, Cost: "M", Dice: "1 red", Range: 4, Ammo: 1}
	e.Parts[models.SlotRightArm].Actions = []models.Action{shell}
	m := newTestMatch(seq(0), e)

	m.Ammo[ammoKey(e.ID, models.SlotRightArm, "Shell")] = 0
	e.Turn.AP = 0
	e.Turn.Used = []models.ActionKey{{Slot: models.SlotRightArm, Name: "Shell"}}
	cases := []struct {
		name  string
		setup func()
		want  error
	}{
		{"used beats everything", func() {}, ErrActionUsed},
		{"ammo before AP", func() { e.Turn.Used = nil }, ErrNoAmmo},
		{"AP before timing", func() {
			m.Ammo[ammoKey(e.ID, models.SlotRightArm, "Shell")] = 1
			e.Turn.Timing = models.ActionMelee
		}, ErrInsufficientAP},
		{"timing last", func() { e.Turn.AP = 2 }, ErrWrongTiming},
		{"valid", func() { e.Turn.Timing = models.ActionRanged }, nil},
	}
	for _, tc := range cases {
		tc.setup()
		_, _, err := ValidateAction(m, e, models.SlotRightArm, shell)
		if tc.want == nil {
			if err != nil {
				t.Fatalf("%s: err = %v", tc.name, err)
			}
			continue
		}
		if !errors.Is(err, tc.want) || !IsValidation(err) {
			t.Fatalf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}

	long := models.Action{Name: "Long", Type: models.ActionQuick, Cost: "L"}
	e.Turn.TP = 0
	if _, _, err := ValidateAction(m, e, models.SlotCore, long); !errors.Is(err, ErrInsufficientTP) {
		t.Fatalf("err = %v, want insufficient TP", err)
	}
	e.Turn.TP = 1
	if ap, tp, err := ValidateAction(m, e, models.SlotCore, long); err != nil || ap != 2 || tp != 1 {
		t.Fatalf("quick actions ignore the opening timing: ap=%d tp=%d err=%v", ap, tp, err)
	}
}

func TestDeclareAttackResolvesAndSpends(t *testing.T) {
	c := testController(t)
	p, ai := duelPair(0, 1)
	m := newTestMatch(seq(7), p, ai)

	rep, err := c.DeclareAttack(m, AttackRequest{AttackerID: PlayerID, Slot: models.SlotRightArm, Action: "Gun", TargetID: ai.ID})
	if err != nil {
		t.Fatalf("DeclareAttack() error = %v", err)
	}
	if len(rep.Results) != 1 || rep.Results[0].Outcome != OutcomeNoDamage {
		t.Fatalf("results = %+v", rep.Results)
	}
	if p.Turn.AP != 1 || !p.Turn.OpeningTaken || !p.Turn.HasUsed(models.SlotRightArm, "Gun") {
		t.Fatalf("turn = %+v", p.Turn)
	}
	if _, err := c.DeclareAttack(m, AttackRequest{AttackerID: PlayerID, Slot: models.SlotRightArm, Action: "Gun", TargetID: ai.ID}); !errors.Is(err, ErrActionUsed) {
		t.Fatalf("err = %v, want action used", err)
	}
}

func TestDeclareAttackRejectsWithoutSpending(t *testing.T) {
	c := testController(t)
	p, ai := duelPair(0, 1)
	ai.Pos = models.Pos{X: 5, Y: 10}
	p.Pos = models.Pos{X: 5, Y: 1}
	m := newTestMatch(seq(7), p, ai)

	_, err := c.DeclareAttack(m, AttackRequest{AttackerID: PlayerID, Slot: models.SlotRightArm, Action: "Gun", TargetID: ai.ID})
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("err = %v, want out of range", err)
	}
	if p.Turn.AP != 2 || len(p.Turn.Used) != 0 {
		t.Fatalf("a rejected attack spent resources: %+v", p.Turn)
	}

	p.Pos = models.Pos{X: 5, Y: 5}
	ai.Pos = models.Pos{X: 5, Y: 6}
	ai.Parts[models.SlotLeftArm].Actions = []models.Action{{Name: "Claw", Type: models.ActionMelee, Cost: "S", Dice: "1 red", Range: 1}}
	_, err = c.DeclareAttack(m, AttackRequest{AttackerID: PlayerID, Slot: models.SlotRightArm, Action: "Gun", TargetID: ai.ID})
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("err = %v, want locked", err)
	}

	p.Turn.Phase = models.PhaseStance
	if _, err := c.DeclareAttack(m, AttackRequest{AttackerID: PlayerID, Slot: models.SlotRightArm, Action: "Gun", TargetID: ai.ID}); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("err = %v, want wrong phase", err)
	}
}

func TestBackAttackAsksForPart(t *testing.T) {
	c := testController(t)
	p, ai := duelPair(0, 1)
	ai.Orientation = models.South
	m := newTestMatch(seq(7), p, ai)
	req := AttackRequest{AttackerID: PlayerID, Slot: models.SlotRightArm, Action: "Gun", TargetID: ai.ID}

	rep, err := c.DeclareAttack(m, req)
	if err != nil {
		t.Fatalf("DeclareAttack() error = %v", err)
	}
	if rep.Decision == nil || rep.Decision.Kind != DecisionSelectPart || len(rep.Decision.Parts) != 5 {
		t.Fatalf("decision = %+v", rep.Decision)
	}
	if p.Turn.AP != 2 || m.PartChoice == nil {
		t.Fatalf("nothing may be spent before the part is chosen: %+v", p.Turn)
	}

	req.TargetSlot = models.SlotLegs
	rep, err = c.DeclareAttack(m, req)
	if err != nil {
		t.Fatalf("DeclareAttack() error = %v", err)
	}
	if len(rep.Results) != 1 || m.PartChoice != nil || p.Turn.AP != 1 {
		t.Fatalf("results = %d choice = %v turn = %+v", len(rep.Results), m.PartChoice, p.Turn)
	}
	if m.Queue != nil && len(m.Queue) != 0 {
		t.Fatalf("queue = %v", m.Queue)
	}
}

func TestChosenPartNeedsPermission(t *testing.T) {
	c := testController(t)
	p, ai := duelPair(0, 1)
	m := newTestMatch(seq(7), p, ai)

	_, err := c.DeclareAttack(m, AttackRequest{AttackerID: PlayerID, Slot: models.SlotRightArm, Action: "Gun", TargetID: ai.ID, TargetSlot: models.SlotLegs})
	if !errors.Is(err, ErrInvalidChoice) {
		t.Fatalf("err = %v, want invalid choice", err)
	}
	if p.Turn.AP != 2 {
		t.Fatal("AP spent on a rejected declaration")
	}
}

func TestEndTurnDefersQueuedAttacks(t *testing.T) {
	c := testController(t, WithPlanner(DefaultPlanner, volley{n: 2}))
	p, ai := duelPair(2, 1)
	m := newTestMatch(seq(7), p, ai)

	rep, err := c.EndTurn(m)
	if err != nil {
		t.Fatalf("EndTurn() error = %v", err)
	}
	if rep.Decision == nil || rep.Decision.Kind != DecisionReroll || !rep.Decision.PlayerIsDefender {
		t.Fatalf("decision = %+v", rep.Decision)
	}
	if len(m.Queue) != 1 || !m.Pending() || m.Next != ContinueProjectilePhase {
		t.Fatalf("queue = %d pending = %v next = %q", len(m.Queue), m.Pending(), m.Next)
	}
	if _, err := c.EndTurn(m); !errors.Is(err, ErrDecisionPending) {
		t.Fatalf("err = %v, want decision pending", err)
	}

	rep, err = c.SubmitReroll(m, RerollSelection{})
	if err != nil {
		t.Fatalf("SubmitReroll() error = %v", err)
	}
	if len(m.Queue) != 0 || !m.Pending() || rep.Decision == nil {
		t.Fatal("the second attack should now wait for its own decision")
	}
	if m.Round != 1 {
		t.Fatalf("round = %d before the queue drained", m.Round)
	}

	if _, err := c.SubmitReroll(m, RerollSelection{}); err != nil {
		t.Fatalf("SubmitReroll() error = %v", err)
	}
	if m.Pending() || m.Round != 2 || m.Next != ContinueNone {
		t.Fatalf("pending = %v round = %d next = %q", m.Pending(), m.Round, m.Next)
	}
	if p.Turn.Phase != models.PhaseTiming || p.Turn.AP != 2 {
		t.Fatalf("player turn = %+v", p.Turn)
	}
	if _, err := c.SubmitReroll(m, RerollSelection{}); !errors.Is(err, ErrNoPendingDecision) {
		t.Fatalf("err = %v, want no pending decision", err)
	}
}

func TestSubmitWrongDecisionKind(t *testing.T) {
	c := testController(t, WithPlanner(DefaultPlanner, volley{n: 1}))
	p, ai := duelPair(2, 1)
	m := newTestMatch(seq(7), p, ai)
	if _, err := c.EndTurn(m); err != nil {
		t.Fatalf("EndTurn() error = %v", err)
	}
	rep, err := c.SubmitEffectChoice(m, EffectCleave)
	if !errors.Is(err, ErrStageMismatch) {
		t.Fatalf("err = %v, want stage mismatch", err)
	}
	if len(rep.Results) != 1 || rep.Results[0].Outcome != OutcomeInvalid {
		t.Fatalf("results = %+v", rep.Results)
	}
	if m.Pending() || m.Round != 2 {
		t.Fatalf("the invalid attack should be dropped and the turn continue: pending = %v round = %d", m.Pending(), m.Round)
	}
}

func crippled(ai *models.Entity) {
	ai.Parts[models.SlotRightArm].Status = models.PartDestroyed
	ai.Parts[models.SlotBackpack].Status = models.PartDestroyed
	ai.Parts[models.SlotLeftArm].Status = models.PartDamaged
}

var crusher = models.Action{Name: "Crusher", Type: models.ActionRanged, Cost: "S", Dice: "2 red", Range: 6}

func TestLosingAPartEndsTheDuel(t *testing.T) {
	c := testController(t)
	p, ai := duelPair(0, 3)
	crippled(ai)
	m := newTestMatch(seq(0, 0, 7, 7), p, ai)

	rep := c.QueueAttacks(m, []AttackIntent{{AttackerID: p.ID, DefenderID: ai.ID, Slot: models.SlotRightArm, Action: crusher, TargetSlot: models.SlotLeftArm}})
	if rep.GameOver != GamePlayerWin || m.GameOver != GamePlayerWin {
		t.Fatalf("game over = %q", m.GameOver)
	}
	if ai.Alive() {
		t.Fatal("a mech down to two parts is out")
	}
	if _, err := c.DeclareAttack(m, AttackRequest{AttackerID: PlayerID, Slot: models.SlotRightArm, Action: "Gun", TargetID: ai.ID}); !errors.Is(err, ErrGameOver) {
		t.Fatalf("err = %v, want game over", err)
	}
}

func TestHordeRespawnsDefeatedAI(t *testing.T) {
	c := testController(t)
	p, ai := duelPair(0, 3)
	crippled(ai)
	m := newTestMatch(seq(0, 0, 7, 7), p, ai)
	m.Mode = ModeHorde

	rep := c.QueueAttacks(m, []AttackIntent{{AttackerID: p.ID, DefenderID: ai.ID, Slot: models.SlotRightArm, Action: crusher, TargetSlot: models.SlotLeftArm}})
	if rep.GameOver != GameRunning || m.AIDefeats != 1 {
		t.Fatalf("game over = %q defeats = %d", rep.GameOver, m.AIDefeats)
	}
	mechs := m.AIMechs()
	if len(mechs) != 1 || mechs[0].ID == ai.ID {
		t.Fatalf("AI mechs = %v", mechs)
	}
	if y := mechs[0].Pos.Y; y < m.Board.Height-1 {
		t.Fatalf("horde spawn row = %d", y)
	}
}

func TestRangeRespawn(t *testing.T) {
	c := testController(t)
	p, ai := duelPair(0, 3)
	crippled(ai)
	m := newTestMatch(seq(0, 0, 7, 7), p, ai)
	m.Mode = ModeRange

	c.QueueAttacks(m, []AttackIntent{{AttackerID: p.ID, DefenderID: ai.ID, Slot: models.SlotRightArm, Action: crusher, TargetSlot: models.SlotLeftArm}})
	if m.GameOver != GameRangeCleared {
		t.Fatalf("game over = %q", m.GameOver)
	}
	p.Turn.AP = 0
	if _, err := c.RespawnRange(m); err != nil {
		t.Fatalf("RespawnRange() error = %v", err)
	}
	if m.GameOver != GameRunning || p.Turn.AP != 2 || p.Turn.Phase != models.PhaseTiming {
		t.Fatalf("game over = %q turn = %+v", m.GameOver, p.Turn)
	}
	if _, ok := m.Entities[ai.ID]; ok {
		t.Fatal("the old target should be gone")
	}
	mechs := m.AIMechs()
	if len(mechs) != 1 || mechs[0].Pos != (models.Pos{X: 5, Y: 8}) {
		t.Fatalf("AI mechs = %v", mechs)
	}
}

func TestInterceptorShootsDownRocket(t *testing.T) {
	c := testController(t)
	p, ai := duelPair(0, 1)
	ams := models.Action{Name: "Auto Intercept", Type: models.ActionPassive, Dice: "3 yellow", Range: 3, Ammo: 3, Effects: models.Effects{Interceptor: 3, InterceptRange: 3}}
	p.Parts[models.SlotBackpack].Actions = []models.Action{ams}
	rocket := models.Action{Name: "Rocket", Type: models.ActionLobbed, Cost: "M", Range: 12, Style: "direct", Projectile: "RA_81_ROCKET", Ammo: 2}
	ai.Parts[models.SlotLeftArm].Actions = []models.Action{rocket}
	ai.Turn.Timing = models.ActionLobbed
	// Every die shows its first face: 6 light hits against 4 evasion.
	m := newTestMatch(seq(0), p, ai)

	rep := &Report{}
	intents, err := c.ExecuteAttack(m, ai, models.SlotLeftArm, rocket, PlayerID, nil, rep)
	if err != nil {
		t.Fatalf("ExecuteAttack() error = %v", err)
	}
	if len(intents) != 0 {
		t.Fatalf("an intercepted rocket must not strike, got %d intents", len(intents))
	}
	if got := m.AmmoLeft(p.ID, models.SlotBackpack, ams); got != 2 {
		t.Fatalf("interceptor ammo = %d, want 2", got)
	}
	if got := m.AmmoLeft(ai.ID, models.SlotLeftArm, rocket); got != 1 {
		t.Fatalf("rocket ammo = %d, want 1", got)
	}
	for _, e := range m.All() {
		if e.Kind == models.KindProjectile && e.Alive() {
			t.Fatalf("%s survived interception", e.ID)
		}
	}
	if ai.Turn.AP != 0 {
		t.Fatalf("AP = %d", ai.Turn.AP)
	}
}

func TestRocketStrikesWithoutInterceptor(t *testing.T) {
	c := testController(t)
	p, ai := duelPair(0, 1)
	rocket := models.Action{Name: "Rocket", Type: models.ActionLobbed, Cost: "M", Range: 12, Style: "direct", Projectile: "RA_81_ROCKET", Ammo: 2}
	ai.Parts[models.SlotLeftArm].Actions = []models.Action{rocket}
	ai.Turn.Timing = models.ActionLobbed
	m := newTestMatch(seq(7), p, ai)

	rep := &Report{}
	intents, err := c.ExecuteAttack(m, ai, models.SlotLeftArm, rocket, PlayerID, nil, rep)
	if err != nil {
		t.Fatalf("ExecuteAttack() error = %v", err)
	}
	if len(intents) != 1 || intents[0].DefenderID != PlayerID {
		t.Fatalf("intents = %+v", intents)
	}
	proj := intents[0].AttackerID
	c.QueueAttacks(m, intents)
	if m.Entities[proj].Alive() {
		t.Fatal("the rocket detonates after its strike")
	}
}

func TestLaunchWithoutTemplateSpendsNothing(t *testing.T) {
	c := testController(t)
	p, ai := duelPair(0, 1)
	dud := models.Action{Name: "Dud", Type: models.ActionLobbed, Cost: "M", Range: 12, Style: "direct", Projectile: "NO_SUCH_SHELL", Ammo: 2}
	ai.Parts[models.SlotLeftArm].Actions = []models.Action{dud}
	ai.Turn.Timing = models.ActionLobbed
	m := newTestMatch(seq(7), p, ai)

	_, err := c.ExecuteAttack(m, ai, models.SlotLeftArm, dud, PlayerID, nil, &Report{})
	if !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("err = %v, want ErrUnknownAction", err)
	}
	if ai.Turn.AP != 2 || ai.Turn.TP != 1 || ai.Turn.HasUsed(models.SlotLeftArm, dud.Name) {
		t.Fatalf("turn = %+v, want nothing spent", ai.Turn)
	}
	if got := m.AmmoLeft(ai.ID, models.SlotLeftArm, dud); got != 2 {
		t.Fatalf("ammo = %d, want 2", got)
	}
}

func TestDelayedProjectileHomes(t *testing.T) {
	c := testController(t)
	p, ai := duelPair(0, 1)
	p.Pos = models.Pos{X: 5, Y: 5}
	ai.Pos = models.Pos{X: 1, Y: 10}
	m := newTestMatch(seq(7), p, ai)
	tmpl, ok := c.cat.Projectile("MC_3_SWORD_MISSILE")
	if !ok {
		t.Fatal("sword missile template missing")
	}
	missile := spawnProjectile(m, ai, tmpl, models.Pos{X: 5, Y: 1})

	rep := &Report{}
	if intents := c.runProjectilePhase(m, rep); len(intents) != 0 {
		t.Fatalf("out of reach, got %d intents", len(intents))
	}
	if missile.Pos != (models.Pos{X: 5, Y: 4}) || missile.LifeSpan != tmpl.LifeSpan-1 {
		t.Fatalf("missile at %v life %d", missile.Pos, missile.LifeSpan)
	}
	intents := c.runProjectilePhase(m, rep)
	if len(intents) != 1 || intents[0].DefenderID != PlayerID || missile.Pos != p.Pos {
		t.Fatalf("intents = %+v pos = %v", intents, missile.Pos)
	}
}

func TestRunProjectilePhase(t *testing.T) {
	c := testController(t)
	p, ai := duelPair(0, 1)
	m := newTestMatch(seq(7), p, ai)

	m.Active = &Resolution{}
	if _, err := c.RunProjectilePhase(m); !errors.Is(err, ErrDecisionPending) {
		t.Fatalf("pending: err = %v, want ErrDecisionPending", err)
	}
	m.Active = nil
	m.GameOver = GameAIWin
	if _, err := c.RunProjectilePhase(m); !errors.Is(err, ErrGameOver) {
		t.Fatalf("game over: err = %v, want ErrGameOver", err)
	}
	m.GameOver = GameRunning

	tmpl, ok := c.cat.Projectile("MC_3_SWORD_MISSILE")
	if !ok {
		t.Fatal("sword missile template missing")
	}
	spawnProjectile(m, ai, tmpl, models.Pos{X: 5, Y: 4})
	rep, err := c.RunProjectilePhase(m)
	if err != nil {
		t.Fatalf("RunProjectilePhase() error = %v", err)
	}
	if len(rep.Results) == 0 || rep.Results[0].DefenderID != PlayerID {
		t.Fatalf("results = %+v", rep.Results)
	}
}

func TestReportChangesKeepsLastPerResolution(t *testing.T) {
	first := ChangeSet{Pilots: []PilotChange{{EntityID: "a", Delta: -1}}}
	second := first
	second.Parts = []PartChange{{EntityID: "a", Slot: models.SlotCore, To: models.PartDamaged}}
	rep := &Report{Results: []AttackResult{
		{ResolutionID: "r1", Changes: first},
		{ResolutionID: "r1", Changes: second},
		{ResolutionID: "r2", Changes: ChangeSet{Destroyed: []string{"b"}}},
	}}
	cs := rep.Changes()
	if len(cs.Pilots) != 1 || len(cs.Parts) != 1 || len(cs.Destroyed) != 1 {
		t.Fatalf("changes = %+v", cs)
	}
}
