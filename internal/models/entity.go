package models

type EntityKind string

const (
	KindMech       EntityKind = "mech"
	KindProjectile EntityKind = "projectile"
	KindDrone      EntityKind = "drone"
)

type EntityStatus string

const (
	EntityOK        EntityStatus = "ok"
	EntityDestroyed EntityStatus = "destroyed"
)

// GenericAction is granted to a mech while any of its required slots survives.
type GenericAction struct {
	Action        Action `json:"action" yaml:"action"`
	RequiredSlots []Slot `json:"required_slots" yaml:"required_slots"`
}

// Entity is a closed tagged variant. Kind selects which of the variant
// fields are meaningful; every capability query switches on it.
type Entity struct {
	ID          string       `json:"id"`
	Kind        EntityKind   `json:"kind"`
	Controller  Controller   `json:"controller"`
	Name        string       `json:"name"`
	Pos         Pos          `json:"pos"`
	LastPos     *Pos         `json:"last_pos,omitempty"`
	Orientation Orientation  `json:"orientation"`
	Status      EntityStatus `json:"status"`
	Stance      Stance       `json:"stance"`

	// mech (the projectile keeps its payload in a synthetic core part)
	Parts   map[Slot]*Part  `json:"parts,omitempty"`
	Pilot   *Pilot          `json:"pilot,omitempty"`
	Turn    TurnState       `json:"turn"`
	Planner string          `json:"planner,omitempty"`
	Generic []GenericAction `json:"generic,omitempty"`

	// projectile
	Template    string `json:"template,omitempty"`
	Evasion     int    `json:"evasion,omitempty"`
	Electronics int    `json:"electronics,omitempty"`
	LifeSpan    int    `json:"life_span,omitempty"`
	MoveRange   int    `json:"move_range,omitempty"`
}

func (e *Entity) Alive() bool { return e != nil && e.Status != EntityDestroyed }

func (e *Entity) IsMech() bool { return e != nil && e.Kind == KindMech }

func (e *Entity) Downed() bool { return e != nil && e.Stance == StanceDowned }

// Part returns the part in slot or nil.
func (e *Entity) Part(slot Slot) *Part {
	if e == nil || e.Parts == nil {
		return nil
	}
	return e.Parts[slot]
}

// Actions lists every usable action with its slot.
func (e *Entity) Actions() []SlottedAction {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case KindMech:
		out := []SlottedAction{}
		for _, slot := range PartSlots {
			p := e.Parts[slot]
			if !p.Alive() {
				continue
			}
			for _, a := range p.Actions {
				out = append(out, SlottedAction{Slot: slot, Action: a})
			}
		}
		for _, g := range e.Generic {
			for _, req := range g.RequiredSlots {
				if e.Parts[req].Alive() {
					out = append(out, SlottedAction{Slot: SlotGeneric, Action: g.Action})
					break
				}
			}
		}
		return out
	case KindProjectile:
		core := e.Parts[SlotCore]
		if !core.Alive() {
			return nil
		}
		out := make([]SlottedAction, 0, len(core.Actions))
		for _, a := range core.Actions {
			out = append(out, SlottedAction{Slot: SlotCore, Action: a})
		}
		return out
	case KindDrone:
		return nil
	}
	return nil
}

// ActionAt finds an action by slot and name.
func (e *Entity) ActionAt(slot Slot, name string) (Action, bool) {
	for _, sa := range e.Actions() {
		if sa.Slot == slot && sa.Action.Name == name {
			return sa.Action, true
		}
	}
	return Action{}, false
}

// ActionByTiming returns the first action of the given type.
func (e *Entity) ActionByTiming(t ActionType) (SlottedAction, bool) {
	for _, sa := range e.Actions() {
		if sa.Action.Type == t {
			return sa, true
		}
	}
	return SlottedAction{}, false
}

// SlotOfAction finds the slot granting the named action.
func (e *Entity) SlotOfAction(name string) (Slot, bool) {
	for _, sa := range e.Actions() {
		if sa.Action.Name == name {
			return sa.Slot, true
		}
	}
	return "", false
}

func (e *Entity) TotalEvasion() int {
	if e == nil {
		return 0
	}
	switch e.Kind {
	case KindMech:
		n := 0
		for _, p := range e.Parts {
			if p.Alive() {
				n += p.Evasion
			}
		}
		return n
	case KindProjectile:
		return e.Evasion
	case KindDrone:
		return e.Evasion
	}
	return 0
}

func (e *Entity) TotalElectronics() int {
	if e == nil {
		return 0
	}
	switch e.Kind {
	case KindMech:
		n := 0
		for _, p := range e.Parts {
			if p.Alive() {
				n += p.Electronics
			}
		}
		return n
	case KindProjectile, KindDrone:
		return e.Electronics
	}
	return 0
}

func (e *Entity) HasMeleeAction() bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case KindMech:
		for _, sa := range e.Actions() {
			if sa.Action.Type == ActionMelee {
				return true
			}
		}
	case KindProjectile, KindDrone:
	}
	return false
}

// ActiveParts counts surviving parts.
func (e *Entity) ActiveParts() int {
	if e == nil {
		return 0
	}
	switch e.Kind {
	case KindMech, KindProjectile:
		n := 0
		for _, p := range e.Parts {
			if p.Alive() {
				n++
			}
		}
		return n
	case KindDrone:
		if e.Alive() {
			return 1
		}
	}
	return 0
}

// PassiveEffects collects the effects of surviving passive actions.
func (e *Entity) PassiveEffects() []Effects {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case KindMech:
		out := []Effects{}
		for _, sa := range e.Actions() {
			if sa.Action.Type == ActionPassive {
				out = append(out, sa.Action.Effects)
			}
		}
		return out
	case KindProjectile, KindDrone:
	}
	return nil
}

// InterceptorActions lists passive actions that can shoot down projectiles.
func (e *Entity) InterceptorActions() []SlottedAction {
	if e == nil || e.Kind != KindMech {
		return nil
	}
	out := []SlottedAction{}
	for _, sa := range e.Actions() {
		if sa.Action.Type == ActionPassive && sa.Action.Effects.Interceptor > 0 {
			out = append(out, sa)
		}
	}
	return out
}

// OtherArm maps an arm slot to its sibling; other slots map to "".
func OtherArm(slot Slot) Slot {
	switch slot {
	case SlotLeftArm:
		return SlotRightArm
	case SlotRightArm:
		return SlotLeftArm
	}
	return ""
}

// OtherHandEmpty reports whether the sibling arm of slot is a surviving
// empty-hand part, the condition for two-handed bonuses.
func (e *Entity) OtherHandEmpty(slot Slot) bool {
	other := OtherArm(slot)
	if other == "" {
		return false
	}
	p := e.Part(other)
	return p.Alive() && p.HasTag(TagEmptyHand)
}

// Compromised reports whether any part is damaged or destroyed.
func (e *Entity) Compromised() bool {
	if e == nil || e.Kind != KindMech {
		return false
	}
	for _, p := range e.Parts {
		if p != nil && p.Status != PartOK {
			return true
		}
	}
	return false
}

// Clone deep-copies the entity.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	cp := *e
	if e.LastPos != nil {
		lp := *e.LastPos
		cp.LastPos = &lp
	}
	if e.Parts != nil {
		cp.Parts = make(map[Slot]*Part, len(e.Parts))
		for k, p := range e.Parts {
			cp.Parts[k] = p.Clone()
		}
	}
	if e.Pilot != nil {
		pl := *e.Pilot
		pl.Skills = append([]string(nil), e.Pilot.Skills...)
		if e.Pilot.SpeedStats != nil {
			pl.SpeedStats = make(map[string]int, len(e.Pilot.SpeedStats))
			for k, v := range e.Pilot.SpeedStats {
				pl.SpeedStats[k] = v
			}
		}
		cp.Pilot = &pl
	}
	cp.Turn.Used = append([]ActionKey(nil), e.Turn.Used...)
	cp.Generic = append([]GenericAction(nil), e.Generic...)
	return &cp
}
