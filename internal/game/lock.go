package game

import (
	"github.com/pefman/mechduel/internal/grid"
	"github.com/pefman/mechduel/internal/models"
)

// TileLockedBy reports whether locker pins a unit standing on tile. The
// locker's facing does not matter; any of the eight neighbours is locked.
func TileLockedBy(tile models.Pos, locker *models.Entity) bool {
	if !locker.Alive() || !locker.IsMech() || locker.Downed() {
		return false
	}
	return locker.HasMeleeAction() && grid.IsAdjacent(tile, locker.Pos)
}

// LockPredicate returns the lock test used by ground pathfinding for e.
func (m *Match) LockPredicate(e *models.Entity) func(models.Pos) bool {
	lockers := m.EnemyMechs(e)
	return func(p models.Pos) bool {
		for _, l := range lockers {
			if TileLockedBy(p, l) {
				return true
			}
		}
		return false
	}
}

// Locked reports whether e currently stands in an enemy's melee lock, and
// by whom.
func (m *Match) Locked(e *models.Entity) (bool, *models.Entity) {
	for _, l := range m.EnemyMechs(e) {
		if TileLockedBy(e.Pos, l) {
			return true, l
		}
	}
	return false, nil
}

// Terrain describes the board as seen by a ground mover.
func (m *Match) Terrain(e *models.Entity) grid.Terrain {
	return grid.Terrain{
		Board:    m.Board,
		Occupied: m.Occupied(e.ID),
		Locked:   m.LockPredicate(e),
	}
}

// GroundCosts runs the ground search for e once; callers reuse the map for
// every position query of a planning pass.
func (m *Match) GroundCosts(e *models.Entity, budget int) grid.CostMap {
	return grid.Ground(e.Pos, budget, m.Terrain(e))
}
