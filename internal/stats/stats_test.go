package stats

import (
	"testing"
	"time"

	"github.com/pefman/mechduel/internal/game"
	"github.com/pefman/mechduel/internal/models"
)

func testMatch() *game.Match {
	return &game.Match{
		ID: "m1",
		Entities: map[string]*models.Entity{
			"player_1": {ID: "player_1", Name: "Vanguard"},
			"ai_1":     {ID: "ai_1", Name: "Brute"},
		},
	}
}

func fixedTracker(at time.Time) *Tracker {
	tr := NewTracker()
	tr.now = func() time.Time { return at }
	return tr
}

func resolved(id string, out game.Outcome, cs game.ChangeSet) game.AttackResult {
	return game.AttackResult{
		ResolutionID: id,
		AttackerID:   "player_1",
		DefenderID:   "ai_1",
		Action:       "Gun",
		Stage:        game.StageResolved,
		Outcome:      out,
		Changes:      cs,
	}
}

func TestDamage(t *testing.T) {
	cs := game.ChangeSet{Parts: []game.PartChange{
		{From: models.PartOK, To: models.PartDamaged},
		{From: models.PartDamaged, To: models.PartDestroyed},
		{From: models.PartOK, To: models.PartDestroyed},
	}}
	if got := Damage(cs); got != 4 {
		t.Fatalf("Damage = %d, want 4", got)
	}
}

func TestRecordTalliesFinishedResolutions(t *testing.T) {
	tr := fixedTracker(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	m := testMatch()
	rep := &game.Report{Results: []game.AttackResult{
		resolved("r1", game.OutcomePenetrated, game.ChangeSet{
			Parts:  []game.PartChange{{EntityID: "ai_1", From: models.PartOK, To: models.PartDamaged}},
			Pilots: []game.PilotChange{{EntityID: "ai_1", Delta: -2}},
		}),
		resolved("r2", game.OutcomeNoDamage, game.ChangeSet{}),
		{ResolutionID: "r3", AttackerID: "player_1", Stage: game.StageAwaitingAttackReroll, Outcome: game.OutcomePending},
		resolved("r4", game.OutcomeInvalid, game.ChangeSet{}),
	}}
	tr.Record(m, rep)

	tally, ok := tr.Match("m1")
	if !ok {
		t.Fatal("expected a tally for m1")
	}
	side := tally.Sides["player_1"]
	if side == nil {
		t.Fatal("expected a side for player_1")
	}
	want := Side{Name: "Vanguard", Attacks: 2, Penetrations: 1, PartsDamaged: 1, LinkDrained: 2}
	if *side != want {
		t.Fatalf("side = %+v, want %+v", *side, want)
	}
}

func TestMatchReturnsCopy(t *testing.T) {
	tr := fixedTracker(time.Now())
	m := testMatch()
	tr.Record(m, &game.Report{Results: []game.AttackResult{resolved("r1", game.OutcomeNoDamage, game.ChangeSet{})}})
	tally, _ := tr.Match("m1")
	tally.Sides["player_1"].Attacks = 99
	again, _ := tr.Match("m1")
	if again.Sides["player_1"].Attacks != 1 {
		t.Fatalf("Attacks = %d, want 1", again.Sides["player_1"].Attacks)
	}
	tr.Forget("m1")
	if _, ok := tr.Match("m1"); ok {
		t.Fatal("expected tally to be forgotten")
	}
}

func TestDailyKeepsLargest(t *testing.T) {
	tr := fixedTracker(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	m := testMatch()
	big := game.ChangeSet{Parts: []game.PartChange{{From: models.PartOK, To: models.PartDestroyed}}}
	small := game.ChangeSet{Parts: []game.PartChange{{From: models.PartOK, To: models.PartDamaged}}}
	tr.Record(m, &game.Report{Results: []game.AttackResult{resolved("r1", game.OutcomePenetrated, big)}})
	tr.Record(m, &game.Report{Results: []game.AttackResult{resolved("r2", game.OutcomePenetrated, small)}})

	d := tr.Daily()
	if d.Date != "2026-03-01" {
		t.Fatalf("Date = %q, want 2026-03-01", d.Date)
	}
	if d.TopDamage.Damage != 2 || d.TopDamage.Attacker != "Vanguard" || d.TopDamage.Defender != "Brute" {
		t.Fatalf("TopDamage = %+v, want 2 by Vanguard on Brute", d.TopDamage)
	}
	if d.BiggestShock.Drained != 0 {
		t.Fatalf("BiggestShock = %+v, want none", d.BiggestShock)
	}
}

func TestDailyRollsOver(t *testing.T) {
	day := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	tr := fixedTracker(day)
	m := testMatch()
	cs := game.ChangeSet{Parts: []game.PartChange{{From: models.PartOK, To: models.PartDamaged}}}
	tr.Record(m, &game.Report{Results: []game.AttackResult{resolved("r1", game.OutcomePenetrated, cs)}})
	if tr.Daily().TopDamage.Damage != 1 {
		t.Fatal("expected a top damage record")
	}
	tr.now = func() time.Time { return day.Add(2 * time.Hour) }
	d := tr.Daily()
	if d.Date != "2026-03-02" || d.TopDamage.Damage != 0 {
		t.Fatalf("Daily = %+v, want a fresh 2026-03-02", d)
	}
}

func TestResetDaily(t *testing.T) {
	tr := fixedTracker(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	m := testMatch()
	cs := game.ChangeSet{Pilots: []game.PilotChange{{Delta: -3}}}
	tr.Record(m, &game.Report{Results: []game.AttackResult{resolved("r1", game.OutcomeNoDamage, cs)}})
	if tr.Daily().BiggestShock.Drained != 3 {
		t.Fatal("expected a shock record")
	}
	tr.ResetDaily()
	if d := tr.Daily(); d.BiggestShock.Drained != 0 {
		t.Fatalf("BiggestShock = %+v after reset, want none", d.BiggestShock)
	}
}
