package xp

import "math"

// DefaultMultiplier is the exponent of the level curve: level = floor(xp ^ 0.30).
// Changing it does not migrate levels already stored.
const DefaultMultiplier = 0.30

// LevelEpsilon absorbs float rounding so exact powers (1024^0.3 == 8) do not
// land one level short. Stores computing the level server side must use it too.
const LevelEpsilon = 1e-9

// Curve converts XP into levels
type Curve struct {
	Multiplier float64
}

// DefaultCurve returns the curve used when no multiplier is configured
func DefaultCurve() Curve {
	return Curve{Multiplier: DefaultMultiplier}
}

// Level returns floor(xp ^ multiplier). Non-positive XP is level 0.
func (c Curve) Level(xp int64) int64 {
	if xp <= 0 {
		return 0
	}
	return int64(math.Floor(math.Pow(float64(xp), c.multiplier()) + LevelEpsilon))
}

// Threshold returns the smallest XP amount whose level is at least level.
func (c Curve) Threshold(level int64) int64 {
	if level <= 0 {
		return 0
	}

	t := int64(math.Ceil(math.Pow(float64(level), 1/c.multiplier())))
	// the float estimate can be off by one in either direction
	for t > 0 && c.Level(t-1) >= level {
		t--
	}
	for c.Level(t) < level {
		t++
	}
	return t
}

// ToNextLevel returns the XP still missing to reach the level after the current one
func (c Curve) ToNextLevel(xp int64) int64 {
	if xp < 0 {
		xp = 0
	}
	missing := c.Threshold(c.Level(xp)+1) - xp
	if missing < 0 {
		return 0
	}
	return missing
}

// Exponent returns the effective multiplier
func (c Curve) Exponent() float64 {
	return c.multiplier()
}

func (c Curve) multiplier() float64 {
	if c.Multiplier <= 0 {
		return DefaultMultiplier
	}
	return c.Multiplier
}
