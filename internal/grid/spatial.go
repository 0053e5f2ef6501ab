// Package grid holds the pure board geometry: distances, facing arcs,
// adjacency and reachability.
package grid

import (
	"github.com/pefman/mechduel/internal/models"
)

// Far is the distance reported when a position is unknown.
const Far = 999

// Board is the playable rectangle, 1-based and inclusive.
type Board struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Standard is the 10x10 board every mode plays on.
var Standard = Board{Width: 10, Height: 10}

func (b Board) Contains(p models.Pos) bool {
	return p.X >= 1 && p.X <= b.Width && p.Y >= 1 && p.Y <= b.Height
}

// Cells lists every cell row by row.
func (b Board) Cells() []models.Pos {
	out := make([]models.Pos, 0, b.Width*b.Height)
	for y := 1; y <= b.Height; y++ {
		for x := 1; x <= b.Width; x++ {
			out = append(out, models.Pos{X: x, Y: y})
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Distance is the Manhattan distance.
func Distance(a, b models.Pos) int { return abs(a.X-b.X) + abs(a.Y-b.Y) }

// DistanceOf tolerates missing positions.
func DistanceOf(a, b *models.Pos) int {
	if a == nil || b == nil {
		return Far
	}
	return Distance(*a, *b)
}

// InForwardArc reports whether target lies in the 90 degree wedge the viewer
// faces. y grows southwards.
func InForwardArc(viewer models.Pos, o models.Orientation, target models.Pos) bool {
	vx, vy, tx, ty := viewer.X, viewer.Y, target.X, target.Y
	switch o {
	case models.North:
		return ty <= vy && abs(tx-vx) <= vy-ty
	case models.South:
		return ty >= vy && abs(tx-vx) <= ty-vy
	case models.East:
		return tx >= vx && abs(ty-vy) <= tx-vx
	case models.West:
		return tx <= vx && abs(ty-vy) <= vx-tx
	}
	return false
}

// IsBackAttack reports whether the attacker stands in the defender's rear arc.
func IsBackAttack(attacker, defender models.Pos, defenderFacing models.Orientation) bool {
	if !defenderFacing.Valid() {
		return false
	}
	return InForwardArc(defender, defenderFacing.Opposite(), attacker)
}

// IsAdjacent is Chebyshev distance one, never the same cell.
func IsAdjacent(a, b models.Pos) bool {
	dx, dy := abs(a.X-b.X), abs(a.Y-b.Y)
	return dx <= 1 && dy <= 1 && dx+dy > 0
}

// MeleeCells are the three cells in front of p.
func MeleeCells(p models.Pos, o models.Orientation) []models.Pos {
	switch o {
	case models.North:
		return []models.Pos{p.Add(0, -1), p.Add(-1, -1), p.Add(1, -1)}
	case models.South:
		return []models.Pos{p.Add(0, 1), p.Add(-1, 1), p.Add(1, 1)}
	case models.East:
		return []models.Pos{p.Add(1, 0), p.Add(1, -1), p.Add(1, 1)}
	case models.West:
		return []models.Pos{p.Add(-1, 0), p.Add(-1, -1), p.Add(-1, 1)}
	}
	return nil
}

// InMeleeReach reports whether target is one of the front cells.
func InMeleeReach(p models.Pos, o models.Orientation, target models.Pos) bool {
	for _, c := range MeleeCells(p, o) {
		if c == target {
			return true
		}
	}
	return false
}

// OrientationToward faces the dominant axis toward target; ties favour N/S.
func OrientationToward(from, to models.Pos) models.Orientation {
	dx, dy := to.X-from.X, to.Y-from.Y
	if abs(dx) > abs(dy) {
		if dx > 0 {
			return models.East
		}
		return models.West
	}
	if dy > 0 {
		return models.South
	}
	return models.North
}
