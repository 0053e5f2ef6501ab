package stats

import (
	"time"

	"github.com/pefman/mechduel/internal/game"
)

const dateLayout = "2006-01-02"

// TopDamage is the resolution that inflicted the most part damage today.
type TopDamage struct {
	Damage   int    `json:"damage"`
	MatchID  string `json:"match_id,omitempty"`
	Attacker string `json:"attacker,omitempty"`
	Defender string `json:"defender,omitempty"`
	Action   string `json:"action,omitempty"`
	Time     int64  `json:"time"`
}

// BiggestShock is the resolution that drained the most link points today.
type BiggestShock struct {
	Drained  int    `json:"drained"`
	MatchID  string `json:"match_id,omitempty"`
	Attacker string `json:"attacker,omitempty"`
	Defender string `json:"defender,omitempty"`
	Action   string `json:"action,omitempty"`
	Time     int64  `json:"time"`
}

// Daily holds the records of one UTC day.
type Daily struct {
	Date         string       `json:"date"`
	TopDamage    TopDamage    `json:"top_damage"`
	BiggestShock BiggestShock `json:"biggest_shock"`
}

// Daily returns today's records.
func (t *Tracker) Daily() Daily {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover(t.now())
	return t.daily
}

// ResetDaily clears today's records.
func (t *Tracker) ResetDaily() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.daily = Daily{Date: t.now().UTC().Format(dateLayout)}
}

// rollover starts a fresh day when the date changed. Callers hold mu.
func (t *Tracker) rollover(now time.Time) {
	today := now.UTC().Format(dateLayout)
	if t.daily.Date != today {
		t.daily = Daily{Date: today}
	}
}

func (t *Tracker) maybeTopDamage(m *game.Match, res game.AttackResult, dmg int, now time.Time) {
	if dmg <= t.daily.TopDamage.Damage {
		return
	}
	t.daily.TopDamage = TopDamage{
		Damage:   dmg,
		MatchID:  m.ID,
		Attacker: entityName(m, res.AttackerID),
		Defender: entityName(m, res.DefenderID),
		Action:   res.Action,
		Time:     now.Unix(),
	}
}

func (t *Tracker) maybeBiggestShock(m *game.Match, res game.AttackResult, drained int, now time.Time) {
	if drained <= t.daily.BiggestShock.Drained {
		return
	}
	t.daily.BiggestShock = BiggestShock{
		Drained:  drained,
		MatchID:  m.ID,
		Attacker: entityName(m, res.AttackerID),
		Defender: entityName(m, res.DefenderID),
		Action:   res.Action,
		Time:     now.Unix(),
	}
}
