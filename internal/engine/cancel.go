package engine

// Cancellation is the outcome of pitting processed attack counts against
// processed defense counts.
type Cancellation struct {
	Light          int `json:"light"`
	Heavy          int `json:"heavy"`
	Defense        int `json:"defense"`
	Evasion        int `json:"evasion"`
	LightByDefense int `json:"light_by_defense"`
	HeavyByEvasion int `json:"heavy_by_evasion"`
	LightByEvasion int `json:"light_by_evasion"`
	RemainingLight int `json:"remaining_light"`
	RemainingHeavy int `json:"remaining_heavy"`
	Damage         int `json:"damage"`
}

// Overflow reports whether anything got through.
func (c Cancellation) Overflow() bool { return c.RemainingLight > 0 || c.RemainingHeavy > 0 }

// Cancel runs the cancellation rules: defense cancels light hits one for one,
// evasion cancels heavy hits first and then light hits.
func Cancel(attack, defense Counts) Cancellation {
	c := Cancellation{
		Light:   attack[LightHit],
		Heavy:   attack[HeavyHit],
		Defense: defense[Defense],
		Evasion: defense[Evasion],
	}
	light, heavy := c.Light, c.Heavy

	c.LightByDefense = min(light, c.Defense)
	light -= c.LightByDefense

	c.HeavyByEvasion = min(heavy, c.Evasion)
	heavy -= c.HeavyByEvasion
	evasionLeft := c.Evasion - c.HeavyByEvasion

	c.LightByEvasion = min(light, evasionLeft)
	light -= c.LightByEvasion

	c.RemainingLight = light
	c.RemainingHeavy = heavy
	c.Damage = light + heavy
	return c
}

// NetLightning is attack lightning left after the defender's own lightning
// faces, floor zero.
func NetLightning(attack, defense Counts) int {
	n := attack[Lightning] - defense[Lightning]
	if n < 0 {
		return 0
	}
	return n
}
