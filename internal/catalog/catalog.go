// Package catalog loads the read-only reference tables: actions, parts,
// projectile templates, pilots and loadouts.
package catalog

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/pefman/mechduel/internal/engine"
	"github.com/pefman/mechduel/internal/models"
)

//go:embed catalog.yaml
var embedded []byte

type partDef struct {
	models.Part `yaml:",inline"`
	ActionKeys  []string `yaml:"actions"`
}

type projectileDef struct {
	Name        string   `yaml:"name"`
	Evasion     int      `yaml:"evasion"`
	Electronics int      `yaml:"electronics"`
	LifeSpan    int      `yaml:"life_span"`
	MoveRange   int      `yaml:"move_range"`
	ActionKeys  []string `yaml:"actions"`
}

type file struct {
	Actions     map[string]models.Action           `yaml:"actions"`
	Generic     []models.GenericAction             `yaml:"generic_actions"`
	Parts       map[models.Slot]map[string]partDef `yaml:"parts"`
	Projectiles map[string]projectileDef           `yaml:"projectiles"`
	Pilots      map[string]models.Pilot            `yaml:"pilots"`
	Loadouts    map[string]Loadout                 `yaml:"loadouts"`
}

// Loadout names one part per slot plus an optional pilot and planner.
type Loadout struct {
	Name      string                 `json:"name" yaml:"name"`
	Pilot     string                 `json:"pilot,omitempty" yaml:"pilot"`
	Planner   string                 `json:"planner,omitempty" yaml:"planner"`
	Selection map[models.Slot]string `json:"selection" yaml:"selection"`
}

// ProjectileTemplate describes what a lobbed action spawns.
type ProjectileTemplate struct {
	Key         string          `json:"key"`
	Name        string          `json:"name"`
	Evasion     int             `json:"evasion"`
	Electronics int             `json:"electronics"`
	LifeSpan    int             `json:"life_span"`
	MoveRange   int             `json:"move_range"`
	Actions     []models.Action `json:"actions"`
}

// Catalog is immutable after Load.
type Catalog struct {
	Actions     map[string]models.Action               `json:"actions"`
	Generic     []models.GenericAction                 `json:"generic_actions"`
	Parts       map[models.Slot]map[string]models.Part `json:"parts"`
	Projectiles map[string]ProjectileTemplate          `json:"projectiles"`
	Pilots      map[string]models.Pilot                `json:"pilots"`
	Loadouts    map[string]Loadout                     `json:"loadouts"`
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) { return Parse(embedded) }

// MustLoad panics when the embedded catalog is broken.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse decodes and cross-checks a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	c := &Catalog{
		Actions:     f.Actions,
		Generic:     f.Generic,
		Parts:       map[models.Slot]map[string]models.Part{},
		Projectiles: map[string]ProjectileTemplate{},
		Pilots:      f.Pilots,
		Loadouts:    f.Loadouts,
	}
	if c.Actions == nil {
		c.Actions = map[string]models.Action{}
	}
	for key, a := range c.Actions {
		if _, err := engine.ParsePool(a.Dice); err != nil {
			return nil, fmt.Errorf("catalog: action %s: %w", key, err)
		}
	}
	resolve := func(owner string, keys []string) ([]models.Action, error) {
		out := make([]models.Action, 0, len(keys))
		for _, k := range keys {
			a, ok := c.Actions[k]
			if !ok {
				return nil, fmt.Errorf("catalog: %s: unknown action %q", owner, k)
			}
			out = append(out, a)
		}
		return out, nil
	}
	for slot, parts := range f.Parts {
		c.Parts[slot] = map[string]models.Part{}
		for name, def := range parts {
			p := def.Part
			p.Name = name
			acts, err := resolve("part "+name, def.ActionKeys)
			if err != nil {
				return nil, err
			}
			p.Actions = acts
			c.Parts[slot][name] = p
		}
	}
	for key, def := range f.Projectiles {
		acts, err := resolve("projectile "+key, def.ActionKeys)
		if err != nil {
			return nil, err
		}
		c.Projectiles[key] = ProjectileTemplate{
			Key: key, Name: def.Name, Evasion: def.Evasion, Electronics: def.Electronics,
			LifeSpan: def.LifeSpan, MoveRange: def.MoveRange, Actions: acts,
		}
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) validate() error {
	for key, a := range c.Actions {
		if a.Type == models.ActionLobbed {
			if _, ok := c.Projectiles[a.Projectile]; !ok {
				return fmt.Errorf("catalog: action %s: unknown projectile %q", key, a.Projectile)
			}
		}
	}
	for slot, parts := range c.Parts {
		for name, p := range parts {
			if p.JettisonTo == "" {
				continue
			}
			if _, ok := parts[p.JettisonTo]; !ok {
				return fmt.Errorf("catalog: part %s (%s): unknown jettison variant %q", name, slot, p.JettisonTo)
			}
		}
	}
	for key, l := range c.Loadouts {
		for _, slot := range models.PartSlots {
			name, ok := l.Selection[slot]
			if !ok {
				return fmt.Errorf("catalog: loadout %s: missing %s", key, slot)
			}
			if _, ok := c.Parts[slot][name]; !ok {
				return fmt.Errorf("catalog: loadout %s: unknown %s part %q", key, slot, name)
			}
		}
		if l.Pilot != "" {
			if _, ok := c.Pilots[l.Pilot]; !ok {
				return fmt.Errorf("catalog: loadout %s: unknown pilot %q", key, l.Pilot)
			}
		}
	}
	return nil
}

// Part returns a fresh, undamaged copy of a part.
func (c *Catalog) Part(slot models.Slot, name string) (*models.Part, error) {
	p, ok := c.Parts[slot][name]
	if !ok {
		return nil, fmt.Errorf("catalog: unknown %s part %q", slot, name)
	}
	cp := (&p).Clone()
	cp.Status = models.PartOK
	return cp, nil
}

// Pilot returns a copy of a pilot, or the default test pilot for "".
func (c *Catalog) Pilot(key string) (*models.Pilot, error) {
	if key == "" {
		key = "test"
	}
	p, ok := c.Pilots[key]
	if !ok {
		return nil, fmt.Errorf("catalog: unknown pilot %q", key)
	}
	cp := p
	if cp.LinkPoints == 0 {
		cp.LinkPoints = 5
	}
	cp.Skills = append([]string(nil), p.Skills...)
	if p.SpeedStats != nil {
		cp.SpeedStats = map[string]int{}
		for k, v := range p.SpeedStats {
			cp.SpeedStats[k] = v
		}
	}
	return &cp, nil
}

// Projectile looks up a template.
func (c *Catalog) Projectile(key string) (ProjectileTemplate, bool) {
	t, ok := c.Projectiles[key]
	return t, ok
}

// LoadoutKeys lists loadouts in sorted order.
func (c *Catalog) LoadoutKeys() []string {
	keys := make([]string, 0, len(c.Loadouts))
	for k := range c.Loadouts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BuildMech assembles a mech entity from a loadout.
func (c *Catalog) BuildMech(id string, ctrl models.Controller, loadoutKey string, pos models.Pos, o models.Orientation) (*models.Entity, error) {
	l, ok := c.Loadouts[loadoutKey]
	if !ok {
		return nil, fmt.Errorf("catalog: unknown loadout %q", loadoutKey)
	}
	pilot, err := c.Pilot(l.Pilot)
	if err != nil {
		return nil, err
	}
	e := &models.Entity{
		ID:          id,
		Kind:        models.KindMech,
		Controller:  ctrl,
		Name:        l.Name,
		Pos:         pos,
		Orientation: o,
		Status:      models.EntityOK,
		Stance:      models.StanceDefense,
		Parts:       map[models.Slot]*models.Part{},
		Pilot:       pilot,
		Planner:     l.Planner,
		Generic:     append([]models.GenericAction(nil), c.Generic...),
		Turn:        models.TurnState{AP: 2, TP: 1, Phase: models.PhaseTiming},
	}
	for _, slot := range models.PartSlots {
		p, err := c.Part(slot, l.Selection[slot])
		if err != nil {
			return nil, err
		}
		e.Parts[slot] = p
	}
	return e, nil
}

// AmmoFor returns the starting ammo table of a mech, keyed by slot and
// action name. Actions without ammo are unlimited and omitted.
func AmmoFor(e *models.Entity) map[models.ActionKey]int {
	out := map[models.ActionKey]int{}
	for _, sa := range e.Actions() {
		if sa.Action.Ammo > 0 {
			out[models.ActionKey{Slot: sa.Slot, Name: sa.Action.Name}] = sa.Action.Ammo
		}
	}
	return out
}
