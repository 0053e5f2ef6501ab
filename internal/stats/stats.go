// Package stats keeps in-memory combat statistics: a damage tally per
// match and the day's most notable hits.
package stats

import (
	"sync"
	"time"

	"github.com/pefman/mechduel/internal/game"
	"github.com/pefman/mechduel/internal/models"
)

// Side is what one entity dealt during a match.
type Side struct {
	Name           string `json:"name"`
	Attacks        int    `json:"attacks"`
	Penetrations   int    `json:"penetrations"`
	PartsDamaged   int    `json:"parts_damaged"`
	PartsDestroyed int    `json:"parts_destroyed"`
	LinkDrained    int    `json:"link_drained"`
}

// Tally is the per-match damage record, keyed by attacker id.
type Tally struct {
	MatchID string           `json:"match_id"`
	Sides   map[string]*Side `json:"sides"`
	Updated int64            `json:"updated"`
}

// Tracker accumulates tallies and the daily records. Safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	now     func() time.Time
	matches map[string]*Tally
	daily   Daily
}

// NewTracker returns an empty tracker using the wall clock.
func NewTracker() *Tracker {
	return &Tracker{now: time.Now, matches: map[string]*Tally{}}
}

// rank orders part statuses so a transition can be counted in steps.
func rank(s models.PartStatus) int {
	switch s {
	case models.PartDamaged:
		return 1
	case models.PartDestroyed:
		return 2
	}
	return 0
}

// Damage is the number of status steps a change set inflicted.
func Damage(cs game.ChangeSet) int {
	n := 0
	for _, pc := range cs.Parts {
		if d := rank(pc.To) - rank(pc.From); d > 0 {
			n += d
		}
	}
	return n
}

// drained is the link points a change set took from pilots.
func drained(cs game.ChangeSet) int {
	n := 0
	for _, pc := range cs.Pilots {
		if pc.Delta < 0 {
			n -= pc.Delta
		}
	}
	return n
}

// Record folds the finished resolutions of rep into the tally of m.
// Suspended resolutions are skipped; they are counted by the report that
// finishes them.
func (t *Tracker) Record(m *game.Match, rep *game.Report) {
	if m == nil || rep == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	tally := t.matches[m.ID]
	if tally == nil {
		tally = &Tally{MatchID: m.ID, Sides: map[string]*Side{}}
		t.matches[m.ID] = tally
	}
	now := t.now()
	t.rollover(now)
	for _, res := range rep.Results {
		if res.Stage != game.StageResolved || res.Outcome == game.OutcomeInvalid {
			continue
		}
		side := tally.Sides[res.AttackerID]
		if side == nil {
			side = &Side{Name: entityName(m, res.AttackerID)}
			tally.Sides[res.AttackerID] = side
		}
		side.Attacks++
		if res.Outcome == game.OutcomePenetrated {
			side.Penetrations++
		}
		for _, pc := range res.Changes.Parts {
			switch {
			case pc.To == models.PartDestroyed:
				side.PartsDestroyed++
			case pc.To == models.PartDamaged && pc.From == models.PartOK:
				side.PartsDamaged++
			}
		}
		link := drained(res.Changes)
		side.LinkDrained += link
		t.maybeTopDamage(m, res, Damage(res.Changes), now)
		t.maybeBiggestShock(m, res, link, now)
	}
	tally.Updated = now.Unix()
}

// Match returns a copy of the tally of match id.
func (t *Tracker) Match(id string) (Tally, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tally, ok := t.matches[id]
	if !ok {
		return Tally{}, false
	}
	out := Tally{MatchID: tally.MatchID, Sides: make(map[string]*Side, len(tally.Sides)), Updated: tally.Updated}
	for k, s := range tally.Sides {
		cp := *s
		out.Sides[k] = &cp
	}
	return out, true
}

// Forget drops the tally of a finished or deleted match.
func (t *Tracker) Forget(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.matches, id)
}

func entityName(m *game.Match, id string) string {
	if e, ok := m.Entities[id]; ok && e != nil {
		return e.Name
	}
	return id
}
