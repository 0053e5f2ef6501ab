package engine

import "testing"

func TestParsePool(t *testing.T) {
	tests := []struct {
		in   string
		want Pool
	}{
		{"3 yellow 1 red", Pool{Yellow: 3, Red: 1}},
		{"3y1r", Pool{Yellow: 3, Red: 1}},
		{"4 white 2 blue", Pool{White: 4, Blue: 2}},
		{"", Pool{}},
	}
	for _, tt := range tests {
		got, err := ParsePool(tt.in)
		if err != nil {
			t.Fatalf("ParsePool(%q) error = %v", tt.in, err)
		}
		for _, c := range Colors {
			if got[c] != tt.want[c] {
				t.Fatalf("ParsePool(%q)[%s] = %d, want %d", tt.in, c, got[c], tt.want[c])
			}
		}
	}
	if _, err := ParsePool("lots of dice"); err == nil {
		t.Fatal("expected error for pool without terms")
	}
}

func TestRollOmitsEmptyColors(t *testing.T) {
	raw := Roll(NewRNG(1), Pool{Yellow: 2, Red: 0})
	if _, ok := raw[Red]; ok {
		t.Fatal("red present with zero dice")
	}
	if len(raw[Yellow]) != 2 {
		t.Fatalf("yellow dice = %d, want 2", len(raw[Yellow]))
	}
}

func TestProcessHitsNeverExceedMaximum(t *testing.T) {
	rng := NewRNG(42)
	for i := 0; i < 2000; i++ {
		y, r := rng.Intn(6), rng.Intn(6)
		raw := Roll(rng, Pool{Yellow: y, Red: r})
		for _, stance := range []string{StanceAttack, StanceDefense} {
			for _, conv := range []bool{false, true} {
				_, counts := Process(raw, stance, conv)
				if got, max := counts[LightHit]+counts[HeavyHit], 2*y+r; got > max {
					t.Fatalf("hits = %d, want <= %d (y=%d r=%d)", got, max, y, r)
				}
			}
		}
	}
}

func TestProcessStanceRules(t *testing.T) {
	raw := RawRoll{
		Yellow: {FaceHollowLight, FaceLightHit2},
		Red:    {FaceHollowHeavy, FaceLightning},
		White:  {FaceHollowDefense2},
	}

	_, atk := Process(raw, StanceAttack, false)
	if atk[LightHit] != 3 || atk[HeavyHit] != 1 || atk[Lightning] != 1 {
		t.Fatalf("attack counts = %v", atk)
	}
	if atk[HollowDefense] != 2 {
		t.Fatalf("hollow_defense = %d, want 2", atk[HollowDefense])
	}

	bd, def := Process(raw, StanceDefense, true)
	if def[HollowLight] != 1 || def[HollowHeavy] != 1 {
		t.Fatalf("defense stance should keep hollows: %v", def)
	}
	if def[Defense] != 2 {
		t.Fatalf("defense = %d, want 2", def[Defense])
	}
	if def[HeavyHit] != 1 || def[Lightning] != 0 {
		t.Fatalf("lightning conversion failed: %v", def)
	}
	if len(bd[Yellow][1]) != 2 {
		t.Fatalf("double face should expand on one die, got %v", bd[Yellow][1])
	}
}

func TestProcessDropsZeroCounts(t *testing.T) {
	_, counts := Process(RawRoll{Blue: {FaceBlank}}, StanceDefense, false)
	for k, v := range counts {
		if v == 0 {
			t.Fatalf("zero count stored for %s", k)
		}
	}
	if len(counts) != 1 {
		t.Fatalf("counts = %v, want only blank", counts)
	}
}

func TestCancelMatchesClosedForm(t *testing.T) {
	for light := 0; light <= 6; light++ {
		for heavy := 0; heavy <= 6; heavy++ {
			for defense := 0; defense <= 6; defense++ {
				for evasion := 0; evasion <= 6; evasion++ {
					c := Cancel(Counts{LightHit: light, HeavyHit: heavy}, Counts{Defense: defense, Evasion: evasion})
					wantHeavy := max(0, heavy-evasion)
					leftEvasion := max(0, evasion-heavy)
					wantLight := max(0, max(0, light-defense)-leftEvasion)
					if c.RemainingHeavy != wantHeavy || c.RemainingLight != wantLight {
						t.Fatalf("Cancel(l=%d h=%d d=%d e=%d) = %d/%d, want %d/%d",
							light, heavy, defense, evasion, c.RemainingLight, c.RemainingHeavy, wantLight, wantHeavy)
					}
					if c.Damage != wantLight+wantHeavy {
						t.Fatalf("damage = %d, want %d", c.Damage, wantLight+wantHeavy)
					}
				}
			}
		}
	}
}

func TestRerollOnlyTouchesSelectedDice(t *testing.T) {
	raw := RawRoll{Yellow: {FaceBlank, FaceEye}, Red: {FaceHeavyHit}}
	// Sequence index 0 is light_hit_2 on yellow.
	out := Reroll(&Sequence{Values: []int{0}}, raw, []DieRef{{Color: Yellow, Index: 1}, {Color: Red, Index: 9}})
	if out[Yellow][0] != FaceBlank {
		t.Fatalf("unselected die changed: %v", out[Yellow][0])
	}
	if out[Yellow][1] != FaceLightHit2 {
		t.Fatalf("selected die = %v, want %v", out[Yellow][1], FaceLightHit2)
	}
	if raw[Yellow][1] != FaceEye {
		t.Fatal("Reroll mutated its input")
	}
	if same := Reroll(NewRNG(3), raw, nil); same[Red][0] != FaceHeavyHit || same[Yellow][1] != FaceEye {
		t.Fatal("empty selection must be a no-op")
	}
}

func TestExpectedHits(t *testing.T) {
	got := ExpectedHits(Pool{Yellow: 1, Red: 3}, false)
	if want := 0.875 + 3*1.0625; got != want {
		t.Fatalf("ExpectedHits = %v, want %v", got, want)
	}
	if conv := ExpectedHits(Pool{Yellow: 1, Red: 3}, true); conv <= got {
		t.Fatalf("conversion should raise EV: %v <= %v", conv, got)
	}
}

func TestRollPartCoversAllFaces(t *testing.T) {
	seq := &Sequence{Values: []int{0, 1, 2, 3, 4, 5}}
	want := []PartFace{PartCore, PartLegs, PartLeftArm, PartRightArm, PartBackpack, PartAny}
	for i, w := range want {
		if got := RollPart(seq); got != w {
			t.Fatalf("roll %d = %s, want %s", i, got, w)
		}
	}
}
