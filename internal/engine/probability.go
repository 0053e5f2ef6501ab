package engine

// Expected damage per die, weighting a heavy hit 1.5 and a light hit 1.0.
const (
	EVYellow = 0.875
	EVRed    = 1.0625
	// LightningShare is the chance of a lightning face on an attack die.
	LightningShare = 1.0 / 8.0
	// HeavyWeight is the value of a converted lightning face.
	HeavyWeight = 1.5
)

// ExpectedHits estimates the damage of an attack pool before defense.
func ExpectedHits(pool Pool, convertLightning bool) float64 {
	y, r := float64(pool[Yellow]), float64(pool[Red])
	ev := y*EVYellow + r*EVRed
	if convertLightning {
		ev += (y + r) * LightningShare * HeavyWeight
	}
	return ev
}
