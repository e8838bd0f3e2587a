package scene

import "math/rand"

// Points is a point-sprite particle system.
type Points struct {
	Positions [][3]float32
	// Scales is the per-point aScale attribute in [0, 1).
	Scales   []float32
	Material *FirefliesMaterial
}

// NewFireflies scatters count points over a 4x6x4 box standing on the
// origin: x and z in [-2, 2), y in [0, 6).
func NewFireflies(count int, rng *rand.Rand, mat *FirefliesMaterial) *Points {
	p := &Points{
		Positions: make([][3]float32, count),
		Scales:    make([]float32, count),
		Material:  mat,
	}
	for i := 0; i < count; i++ {
		p.Positions[i] = [3]float32{
			(rng.Float32() - 0.5) * 4,
			rng.Float32() * 1.5 * 4,
			(rng.Float32() - 0.5) * 4,
		}
		p.Scales[i] = rng.Float32()
	}
	return p
}
