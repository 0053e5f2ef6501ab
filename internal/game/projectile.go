package game

import (
	"github.com/pefman/mechduel/internal/catalog"
	"github.com/pefman/mechduel/internal/grid"
	"github.com/pefman/mechduel/internal/models"
)

// spawnProjectile places a projectile from a template. It belongs to the
// launcher's side and keeps its payload in a one-structure core.
func spawnProjectile(m *Match, launcher *models.Entity, t catalog.ProjectileTemplate, at models.Pos) *models.Entity {
	p := &models.Entity{
		ID:          m.nextID("proj"),
		Kind:        models.KindProjectile,
		Controller:  launcher.Controller,
		Name:        t.Name,
		Pos:         at,
		Orientation: models.NoDir,
		Status:      models.EntityOK,
		Stance:      models.StanceAgile,
		Parts: map[models.Slot]*models.Part{
			models.SlotCore: {
				Name:      t.Name,
				Armor:     0,
				Structure: 1,
				Status:    models.PartOK,
				Actions:   append([]models.Action(nil), t.Actions...),
			},
		},
		Template:    t.Key,
		Evasion:     t.Evasion,
		Electronics: t.Electronics,
		LifeSpan:    t.LifeSpan,
		MoveRange:   t.MoveRange,
	}
	m.AddEntity(p)
	m.emit("spawn", map[string]any{"entity": p.ID, "template": t.Key, "pos": at})
	return p
}

// launch fires a lobbed action at target: up to salvo projectiles, limited
// by ammo. Interceptions resolve on the spot; the returned intents are the
// detonations still to be resolved.
func (c *Controller) launch(m *Match, e *models.Entity, slot models.Slot, a models.Action, t catalog.ProjectileTemplate, target models.Pos, rep *Report) ([]AttackIntent, error) {
	n := max(1, a.Effects.Salvo)
	if a.Ammo > 0 {
		n = min(n, m.AmmoLeft(e.ID, slot, a))
	}
	if n <= 0 {
		return nil, reject(ErrNoAmmo, "[%s] is out of ammo", a.Name)
	}
	m.spendAmmo(e.ID, slot, a, n)
	rep.Logf("> %s launches [%s] at %s.", e.Name, a.Name, posString(target))
	if n > 1 {
		rep.Logf("> [Salvo %d] %d projectiles away.", n, n)
	}
	if a.Ammo > 0 {
		rep.Logf("> %d ammo spent, %d left.", n, m.AmmoLeft(e.ID, slot, a))
	}
	var intents []AttackIntent
	for i := 0; i < n; i++ {
		p := spawnProjectile(m, e, t, target)
		if _, ok := p.ActionByTiming(models.ActionImmediate); ok {
			intents = append(intents, c.projectileImmediate(m, p, rep)...)
			continue
		}
		c.intercept(m, p, rep)
	}
	return intents, nil
}

// intercept lets every enemy interceptor in range fire at p, shot by shot,
// until p dies or the ammo runs out. Interception never offers rerolls.
func (c *Controller) intercept(m *Match, p *models.Entity, rep *Report) {
	for _, e := range m.EnemyMechs(p) {
		for _, sa := range e.InterceptorActions() {
			if !p.Alive() {
				return
			}
			d := grid.Distance(e.Pos, p.Pos)
			if d > sa.Action.Range {
				continue
			}
			rep.Logf("> [Intercept] %s's [%s] tracks %s at %s (%d tiles).", e.Name, sa.Action.Name, p.Name, posString(p.Pos), d)
			shots := 0
			for p.Alive() {
				if sa.Action.Ammo > 0 {
					if m.AmmoLeft(e.ID, sa.Slot, sa.Action) <= 0 {
						rep.Logf("> [Intercept] %s is out of interceptor ammo.", e.Name)
						break
					}
					m.spendAmmo(e.ID, sa.Slot, sa.Action, 1)
				} else if shots > 0 {
					break
				}
				shots++
				_, out := c.Resolve(m, AttackIntent{
					AttackerID:   e.ID,
					DefenderID:   p.ID,
					Slot:         sa.Slot,
					Action:       sa.Action,
					TargetSlot:   models.SlotCore,
					Interception: true,
				})
				rep.add(out)
			}
			if !p.Alive() {
				rep.Logf("> [Intercept] %s shot down after %d shots.", p.Name, shots)
			}
		}
	}
}

// detonations queues the payload against every enemy sharing p's cell.
func detonations(m *Match, p *models.Entity, sa models.SlottedAction, rep *Report) []AttackIntent {
	var out []AttackIntent
	for _, t := range m.EntitiesAt(p.Pos, p.ID) {
		if t.Controller == p.Controller {
			continue
		}
		rep.Logf("> [Projectile] %s strikes at %s on %s.", p.Name, t.Name, posString(p.Pos))
		out = append(out, AttackIntent{AttackerID: p.ID, DefenderID: t.ID, Slot: sa.Slot, Action: sa.Action})
	}
	return out
}

func (c *Controller) projectileImmediate(m *Match, p *models.Entity, rep *Report) []AttackIntent {
	sa, ok := p.ActionByTiming(models.ActionImmediate)
	if !ok {
		return nil
	}
	rep.Logf("> [Projectile] %s at %s fires [%s].", p.Name, posString(p.Pos), sa.Action.Name)
	c.intercept(m, p, rep)
	if !p.Alive() {
		rep.Logf("> [Projectile] %s was intercepted before detonating.", p.Name)
		return nil
	}
	return detonations(m, p, sa, rep)
}

// projectileDelayed homes p on the closest enemy by flight, then runs
// interception and detonation at the landing cell.
func (c *Controller) projectileDelayed(m *Match, p *models.Entity, rep *Report) []AttackIntent {
	sa, ok := p.ActionByTiming(models.ActionDelayed)
	if !ok {
		return nil
	}
	rep.Logf("> [Projectile] %s at %s activates [%s].", p.Name, posString(p.Pos), sa.Action.Name)
	var target *models.Entity
	best := grid.Far
	for _, e := range m.Enemies(p) {
		if e.Kind == models.KindProjectile {
			continue
		}
		if d := grid.Distance(p.Pos, e.Pos); d < best {
			target, best = e, d
		}
	}
	if target == nil {
		p.Status = models.EntityDestroyed
		rep.Logf("> [Projectile] %s finds no target and self-destructs.", p.Name)
		m.emit("destroyed", map[string]any{"entity": p.ID})
		return nil
	}
	rep.Logf("> [Projectile] %s locks onto %s at %s.", p.Name, target.Name, posString(target.Pos))
	if best > 0 {
		var dest *models.Pos
		for _, cell := range grid.Flight(p.Pos, p.MoveRange, m.Board).Moves(p.MoveRange) {
			if d := grid.Distance(cell, target.Pos); d < best {
				cell := cell
				dest, best = &cell, d
			}
		}
		if dest != nil {
			from := p.Pos
			p.LastPos = &from
			p.Pos = *dest
			m.emit("move", map[string]any{"entity": p.ID, "from": from, "to": *dest})
			rep.Logf("> [Projectile] %s flies to %s, %d from its target.", p.Name, posString(*dest), best)
		} else {
			rep.Logf("> [Projectile] %s cannot close in and holds at %s.", p.Name, posString(p.Pos))
		}
	}
	c.intercept(m, p, rep)
	if !p.Alive() {
		rep.Logf("> [Projectile] %s was intercepted before detonating.", p.Name)
		return nil
	}
	return detonations(m, p, sa, rep)
}

// runProjectilePhase runs delayed payloads and ages every projectile.
// Projectiles that queued a strike detonate when it resolves; the rest
// lose one turn of life and expire at zero.
func (c *Controller) runProjectilePhase(m *Match, rep *Report) []AttackIntent {
	var intents []AttackIntent
	for _, e := range m.Living() {
		switch e.Kind {
		case models.KindProjectile:
			strikes := c.projectileDelayed(m, e, rep)
			intents = append(intents, strikes...)
			if len(strikes) > 0 || !e.Alive() {
				continue
			}
			e.LifeSpan--
			if e.LifeSpan <= 0 {
				e.Status = models.EntityDestroyed
				rep.Logf("> [Projectile] %s burns out.", e.Name)
				m.emit("destroyed", map[string]any{"entity": e.ID})
			}
		case models.KindDrone:
			rep.Logf("> [Drone] %s holds position.", e.Name)
		case models.KindMech:
		}
	}
	return intents
}
