// Nebula density field using layered simplex noise.
// Dense regions breed volatile stars when placement is nebula-weighted.
package galaxy

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// Nebula samples a smooth density in [0, 1] over screen space.
type Nebula struct {
	noise       opensimplex.Noise
	Octaves     int
	Frequency   float64
	Persistence float64
}

// NewNebula creates a density field for the given seed.
func NewNebula(seed int64) *Nebula {
	return &Nebula{
		noise:       opensimplex.NewNormalized(seed),
		Octaves:     3,
		Frequency:   0.004,
		Persistence: 0.5,
	}
}

// Density returns the nebula density at (x, y).
func (n *Nebula) Density(x, y float64) float64 {
	if n == nil {
		return 0
	}
	d := octaveNoise(n.noise, x, y, n.Octaves, n.Frequency, n.Persistence)
	if d < 0 {
		return 0
	}
	if d > 1 {
		return 1
	}
	return d
}

// octaveNoise sums several noise octaves with halving amplitude.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	if maxVal == 0 {
		return 0
	}
	return total / maxVal
}
