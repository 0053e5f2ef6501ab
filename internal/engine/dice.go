package engine

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Color is a dice category. Attack pools use yellow and red, defense pools
// use white and blue.
type Color string

const (
	Yellow Color = "yellow"
	Red    Color = "red"
	White  Color = "white"
	Blue   Color = "blue"
)

// Colors lists every pool color in display order.
var Colors = []Color{Yellow, Red, White, Blue}

// Face is a raw face exactly as it landed.
type Face string

const (
	FaceLightHit2      Face = "light_hit_2"
	FaceLightHit       Face = "light_hit"
	FaceHeavyHit       Face = "heavy_hit"
	FaceHollowLight    Face = "hollow_light_hit"
	FaceHollowHeavy    Face = "hollow_heavy_hit"
	FaceDefense        Face = "defense"
	FaceHollowDefense2 Face = "hollow_defense_2"
	FaceEvasion        Face = "evasion"
	FaceLightning      Face = "lightning"
	FaceEye            Face = "eye"
	FaceBlank          Face = "blank"
)

// Outcome is a processed result. A single face may expand into two outcomes.
type Outcome string

const (
	HeavyHit      Outcome = "heavy_hit"
	LightHit      Outcome = "light_hit"
	Defense       Outcome = "defense"
	Evasion       Outcome = "evasion"
	HollowHeavy   Outcome = "hollow_heavy_hit"
	HollowLight   Outcome = "hollow_light_hit"
	HollowDefense Outcome = "hollow_defense"
	Lightning     Outcome = "lightning"
	Eye           Outcome = "eye"
	Blank         Outcome = "blank"
)

// Processing stances. Only the attack stance fills hollow hits, only the
// defense stance fills hollow shields.
const (
	StanceAttack  = "attack"
	StanceDefense = "defense"
)

var faceTables = map[Color][8]Face{
	Yellow: {FaceLightHit2, FaceLightHit2, FaceLightHit, FaceLightHit, FaceHollowLight, FaceLightning, FaceEye, FaceBlank},
	Red:    {FaceHeavyHit, FaceHeavyHit, FaceHeavyHit, FaceHeavyHit, FaceHollowHeavy, FaceHollowLight, FaceLightning, FaceEye},
	White:  {FaceDefense, FaceHollowDefense2, FaceHollowDefense2, FaceEvasion, FaceLightning, FaceLightning, FaceEye, FaceBlank},
	Blue:   {FaceEvasion, FaceEvasion, FaceEye, FaceEye, FaceLightning, FaceBlank, FaceBlank, FaceBlank},
}

// Faces returns the face table of a color (nil for unknown colors).
func Faces(c Color) []Face {
	t, ok := faceTables[c]
	if !ok {
		return nil
	}
	out := make([]Face, len(t))
	copy(out, t[:])
	return out
}

// Pool is the number of dice to throw per color.
type Pool map[Color]int

// Total counts dice across all colors.
func (p Pool) Total() int {
	n := 0
	for _, v := range p {
		if v > 0 {
			n += v
		}
	}
	return n
}

// String renders "3 yellow 1 red" style, colors in display order.
func (p Pool) String() string {
	parts := []string{}
	for _, c := range Colors {
		if p[c] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", p[c], c))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}

var poolRe = regexp.MustCompile(`(?i)(\d+)\s*(yellow|red|white|blue|y|r|w|b)\b`)

// ParsePool supports "3 yellow 1 red", "3y1r" and "" (empty pool).
func ParsePool(expr string) (Pool, error) {
	expr = strings.TrimSpace(expr)
	p := Pool{}
	if expr == "" {
		return p, nil
	}
	matches := poolRe.FindAllStringSubmatch(expr, -1)
	if matches == nil {
		return nil, fmt.Errorf("parse pool %q: no dice terms", expr)
	}
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("parse pool %q: %w", expr, err)
		}
		switch strings.ToLower(m[2]) {
		case "yellow", "y":
			p[Yellow] += n
		case "red", "r":
			p[Red] += n
		case "white", "w":
			p[White] += n
		case "blue", "b":
			p[Blue] += n
		}
	}
	return p, nil
}

// RawRoll holds raw faces per color, one entry per die.
type RawRoll map[Color][]Face

// Clone deep-copies the roll.
func (r RawRoll) Clone() RawRoll {
	out := RawRoll{}
	for c, faces := range r {
		cp := make([]Face, len(faces))
		copy(cp, faces)
		out[c] = cp
	}
	return out
}

// Dice counts the dice in the roll.
func (r RawRoll) Dice() int {
	n := 0
	for _, faces := range r {
		n += len(faces)
	}
	return n
}

// Roll throws the pool. Colors with zero dice are omitted.
func Roll(src Source, pool Pool) RawRoll {
	out := RawRoll{}
	for _, c := range Colors {
		n := pool[c]
		if n <= 0 {
			continue
		}
		table := faceTables[c]
		faces := make([]Face, n)
		for i := range faces {
			faces[i] = table[src.Intn(len(table))]
		}
		out[c] = faces
	}
	return out
}

// DieRef addresses a single die of a roll.
type DieRef struct {
	Color Color `json:"color"`
	Index int   `json:"index"`
}

// Reroll returns a copy of raw with the referenced dice thrown again.
// Out-of-range references are ignored; a die referenced twice is rerolled once.
func Reroll(src Source, raw RawRoll, refs []DieRef) RawRoll {
	out := raw.Clone()
	seen := map[DieRef]bool{}
	for _, ref := range refs {
		if seen[ref] {
			continue
		}
		seen[ref] = true
		faces, ok := out[ref.Color]
		if !ok || ref.Index < 0 || ref.Index >= len(faces) {
			continue
		}
		table := faceTables[ref.Color]
		faces[ref.Index] = table[src.Intn(len(table))]
	}
	return out
}

// Breakdown is the processed roll: per color, per die, the outcomes it produced.
type Breakdown map[Color][][]Outcome

// Counts aggregates outcomes. Zero counts are never stored.
type Counts map[Outcome]int

// Add increments an outcome count.
func (c Counts) Add(o Outcome, n int) {
	if n <= 0 {
		return
	}
	c[o] += n
}

// String renders counts deterministically, e.g. "heavy_hit:1 light_hit:2".
func (c Counts) String() string {
	keys := make([]string, 0, len(c))
	for k, v := range c {
		if v > 0 {
			keys = append(keys, string(k))
		}
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%d", k, c[Outcome(k)]))
	}
	if len(parts) == 0 {
		return "nothing"
	}
	return strings.Join(parts, " ")
}

// Process applies stance and lightning conversion to a raw roll.
func Process(raw RawRoll, stance string, convertLightning bool) (Breakdown, Counts) {
	bd := Breakdown{}
	counts := Counts{}
	attack := stance == StanceAttack
	for _, c := range Colors {
		faces := raw[c]
		if len(faces) == 0 {
			continue
		}
		dice := make([][]Outcome, 0, len(faces))
		for _, f := range faces {
			var outs []Outcome
			switch f {
			case FaceLightHit2:
				outs = []Outcome{LightHit, LightHit}
			case FaceLightHit:
				outs = []Outcome{LightHit}
			case FaceHeavyHit:
				outs = []Outcome{HeavyHit}
			case FaceHollowLight:
				if attack {
					outs = []Outcome{LightHit}
				} else {
					outs = []Outcome{HollowLight}
				}
			case FaceHollowHeavy:
				if attack {
					outs = []Outcome{HeavyHit}
				} else {
					outs = []Outcome{HollowHeavy}
				}
			case FaceDefense:
				outs = []Outcome{Defense}
			case FaceHollowDefense2:
				if stance == StanceDefense {
					outs = []Outcome{Defense, Defense}
				} else {
					outs = []Outcome{HollowDefense, HollowDefense}
				}
			case FaceEvasion:
				outs = []Outcome{Evasion}
			case FaceLightning:
				if convertLightning {
					outs = []Outcome{HeavyHit}
				} else {
					outs = []Outcome{Lightning}
				}
			case FaceEye:
				outs = []Outcome{Eye}
			default:
				outs = []Outcome{Blank}
			}
			for _, o := range outs {
				counts.Add(o, 1)
			}
			dice = append(dice, outs)
		}
		bd[c] = dice
	}
	return bd, counts
}

// PartFace is a face of the black part-selection die.
type PartFace string

const (
	PartCore     PartFace = "core"
	PartLegs     PartFace = "legs"
	PartLeftArm  PartFace = "left_arm"
	PartRightArm PartFace = "right_arm"
	PartBackpack PartFace = "backpack"
	PartAny      PartFace = "any"
)

var partFaces = [6]PartFace{PartCore, PartLegs, PartLeftArm, PartRightArm, PartBackpack, PartAny}

// RollPart throws the black die.
func RollPart(src Source) PartFace {
	return partFaces[src.Intn(len(partFaces))]
}
