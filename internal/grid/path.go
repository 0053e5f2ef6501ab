package grid

import (
	"container/heap"
	"math"

	"github.com/pefman/mechduel/internal/models"
)

// Unbounded computes the full cost map.
const Unbounded = math.MaxInt32

// Terrain describes what the mover must respect.
type Terrain struct {
	Board Board
	// Occupied cells are never entered by ground movers.
	Occupied map[models.Pos]bool
	// Locked reports whether leaving a cell costs double.
	Locked func(models.Pos) bool
}

// CostMap holds the cheapest known cost to every reachable cell,
// the start cell included at cost zero.
type CostMap struct {
	Start models.Pos
	Costs map[models.Pos]int
	board Board
}

type node struct {
	pos  models.Pos
	cost int
}

type queue []node

func (q queue) Len() int { return len(q) }
func (q queue) Less(i, j int) bool {
	if q[i].cost != q[j].cost {
		return q[i].cost < q[j].cost
	}
	if q[i].pos.Y != q[j].pos.Y {
		return q[i].pos.Y < q[j].pos.Y
	}
	return q[i].pos.X < q[j].pos.X
}
func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *queue) Push(x any)   { *q = append(*q, x.(node)) }
func (q *queue) Pop() any {
	old := *q
	n := old[len(old)-1]
	*q = old[:len(old)-1]
	return n
}

var steps = [4][2]int{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}

// Ground runs Dijkstra over 4-neighbours. Leaving a locked cell costs 2.
func Ground(start models.Pos, budget int, t Terrain) CostMap {
	cm := CostMap{Start: start, Costs: map[models.Pos]int{start: 0}, board: t.Board}
	q := &queue{{pos: start}}
	for q.Len() > 0 {
		cur := heap.Pop(q).(node)
		if cur.cost > cm.Costs[cur.pos] {
			continue
		}
		step := 1
		if t.Locked != nil && t.Locked(cur.pos) {
			step = 2
		}
		for _, d := range steps {
			next := cur.pos.Add(d[0], d[1])
			if !t.Board.Contains(next) || t.Occupied[next] {
				continue
			}
			nc := cur.cost + step
			if nc > budget {
				continue
			}
			if old, seen := cm.Costs[next]; seen && old <= nc {
				continue
			}
			cm.Costs[next] = nc
			heap.Push(q, node{pos: next, cost: nc})
		}
	}
	return cm
}

// Flight costs 1 per step, ignores occupancy and locks, and never
// lands back on the start cell.
func Flight(start models.Pos, budget int, b Board) CostMap {
	cm := CostMap{Start: start, Costs: map[models.Pos]int{start: 0}, board: b}
	q := &queue{{pos: start}}
	for q.Len() > 0 {
		cur := heap.Pop(q).(node)
		if cur.cost > cm.Costs[cur.pos] {
			continue
		}
		for _, d := range steps {
			next := cur.pos.Add(d[0], d[1])
			if !b.Contains(next) || next == start {
				continue
			}
			nc := cur.cost + 1
			if nc > budget {
				continue
			}
			if old, seen := cm.Costs[next]; seen && old <= nc {
				continue
			}
			cm.Costs[next] = nc
			heap.Push(q, node{pos: next, cost: nc})
		}
	}
	return cm
}

// Cost returns the cost to reach p.
func (cm CostMap) Cost(p models.Pos) (int, bool) {
	c, ok := cm.Costs[p]
	return c, ok
}

// Within lists cells with cost <= budget, start included, in row order.
func (cm CostMap) Within(budget int) []models.Pos {
	out := []models.Pos{}
	for _, p := range cm.board.Cells() {
		if c, ok := cm.Costs[p]; ok && c <= budget {
			out = append(out, p)
		}
	}
	return out
}

// Moves lists destinations with 0 < cost <= budget.
func (cm CostMap) Moves(budget int) []models.Pos {
	out := []models.Pos{}
	for _, p := range cm.Within(budget) {
		if cm.Costs[p] > 0 {
			out = append(out, p)
		}
	}
	return out
}

// Closest minimises distance to target, then cost.
func (cm CostMap) Closest(budget int, target models.Pos) (models.Pos, bool) {
	var best models.Pos
	found := false
	bestDist, bestCost := 0, 0
	for _, p := range cm.Within(budget) {
		d, c := Distance(p, target), cm.Costs[p]
		if !found || d < bestDist || (d == bestDist && c < bestCost) {
			best, bestDist, bestCost, found = p, d, c, true
		}
	}
	return best, found
}

// Ideal picks the cell in [lo, hi] nearest the band midpoint, then cheapest.
func (cm CostMap) Ideal(budget, lo, hi int, target models.Pos) (models.Pos, bool) {
	mid := float64(lo+hi) / 2
	var best models.Pos
	found := false
	bestOff, bestCost := 0.0, 0
	for _, p := range cm.Within(budget) {
		d := Distance(p, target)
		if d < lo || d > hi {
			continue
		}
		off := math.Abs(float64(d) - mid)
		c := cm.Costs[p]
		if !found || off < bestOff || (off == bestOff && c < bestCost) {
			best, bestOff, bestCost, found = p, off, c, true
		}
	}
	return best, found
}

// FarthestInRange maximises distance inside [lo, hi], then prefers cheaper cells.
func (cm CostMap) FarthestInRange(budget, lo, hi int, target models.Pos) (models.Pos, bool) {
	var best models.Pos
	found := false
	bestDist, bestCost := 0, 0
	for _, p := range cm.Within(budget) {
		d := Distance(p, target)
		if d < lo || d > hi {
			continue
		}
		c := cm.Costs[p]
		if !found || d > bestDist || (d == bestDist && c < bestCost) {
			best, bestDist, bestCost, found = p, d, c, true
		}
	}
	return best, found
}

// Farthest maximises distance among real moves (cost > 0).
func (cm CostMap) Farthest(budget int, target models.Pos) (models.Pos, bool) {
	var best models.Pos
	found := false
	bestDist, bestCost := 0, 0
	for _, p := range cm.Moves(budget) {
		d, c := Distance(p, target), cm.Costs[p]
		if !found || d > bestDist || (d == bestDist && c < bestCost) {
			best, bestDist, bestCost, found = p, d, c, true
		}
	}
	return best, found
}

// StraightLine lists cells along the four axes from start, up to reach
// steps, stopping at the board edge or the first occupied cell.
func StraightLine(start models.Pos, reach int, t Terrain) map[models.Pos]int {
	out := map[models.Pos]int{}
	for _, d := range steps {
		p := start
		for i := 1; i <= reach; i++ {
			p = p.Add(d[0], d[1])
			if !t.Board.Contains(p) || t.Occupied[p] {
				break
			}
			out[p] = i
		}
	}
	return out
}
