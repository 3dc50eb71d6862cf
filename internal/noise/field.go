package noise

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

// seedOffsetRange bounds each component of the seed-derived sampling offset.
const seedOffsetRange = 100

// Octave is one (frequency, amplitude) layer of the density noise.
type Octave struct {
	Frequency float32 `json:"frequency" yaml:"frequency"`
	Amplitude float32 `json:"amplitude" yaml:"amplitude"`
}

// SeedOffset derives the sampling offset for a seed. Every component is drawn
// uniformly from [-100, 100); the same seed always yields the same offset.
func SeedOffset(seed int64) mgl32.Vec3 {
	rng := rand.New(rand.NewSource(seed))
	var offset mgl32.Vec3
	for i := range offset {
		offset[i] = float32(rng.Float64()*2*seedOffsetRange - seedOffsetRange)
	}
	return offset
}

// Field is the terrain density function. Density falls off with height around
// FloorOffset and is perturbed by layered noise sampled at the point shifted
// by Offset.
type Field struct {
	Offset      mgl32.Vec3
	FloorOffset float32
	Octaves     []Octave
}

// NewField builds a field whose offset is derived from seed.
func NewField(seed int64, floorOffset float32, octaves []Octave) Field {
	return Field{
		Offset:      SeedOffset(seed),
		FloorOffset: floorOffset,
		Octaves:     octaves,
	}
}

// Density returns -(p.y - FloorOffset) plus the octave noise at p.
func (f Field) Density(p mgl32.Vec3) float32 {
	return -(p.Y() - f.FloorOffset) + f.Noise(p)
}

// Noise sums Perlin3D over the octaves, each sampled at (p + Offset) * frequency
// and scaled by its amplitude. No octaves means no noise.
func (f Field) Noise(p mgl32.Vec3) float32 {
	if len(f.Octaves) == 0 {
		return 0
	}
	sample := p.Add(f.Offset)
	var sum float32
	for _, octave := range f.Octaves {
		scaled := sample.Mul(octave.Frequency)
		n := Perlin3D(float64(scaled.X()), float64(scaled.Y()), float64(scaled.Z()))
		sum += float32(n) * octave.Amplitude
	}
	return sum
}
