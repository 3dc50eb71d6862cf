package noise

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestPerlin2DLatticePointsAreCentered(t *testing.T) {
	for _, pt := range [][2]float64{{0, 0}, {1, 0}, {3, 7}, {-4, 12}, {255, 256}} {
		if got := Perlin2D(pt[0], pt[1]); got != 0.5 {
			t.Fatalf("Perlin2D(%v, %v) = %v, want 0.5", pt[0], pt[1], got)
		}
	}
}

func TestPerlin2DStaysInUnitRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var varied bool
	for i := 0; i < 5000; i++ {
		x := rng.Float64()*512 - 256
		y := rng.Float64()*512 - 256
		v := Perlin2D(x, y)
		if v < 0 || v > 1 {
			t.Fatalf("Perlin2D(%v, %v) = %v outside [0,1]", x, y, v)
		}
		if math.Abs(v-0.5) > 0.05 {
			varied = true
		}
	}
	if !varied {
		t.Fatalf("expected noise to vary away from 0.5")
	}
}

func TestPerlin3DUsesOrderedPairs(t *testing.T) {
	x, y, z := 1.37, 4.21, 9.83
	want := ((Perlin2D(x, y)*2 - 1) +
		(Perlin2D(y, z)*2 - 1) +
		(Perlin2D(x, z)*2 - 1) +
		(Perlin2D(y, x)*2 - 1) +
		(Perlin2D(z, y)*2 - 1) +
		(Perlin2D(z, x)*2 - 1)) / 6
	if got := Perlin3D(x, y, z); math.Abs(got-want) > 1e-12 {
		t.Fatalf("Perlin3D = %v, want %v", got, want)
	}
	if got := Perlin3D(2, 5, -3); got != 0 {
		t.Fatalf("Perlin3D at lattice point = %v, want 0", got)
	}
}

func TestSeedOffsetDeterministic(t *testing.T) {
	a := SeedOffset(14)
	b := SeedOffset(14)
	if a != b {
		t.Fatalf("same seed produced different offsets: %v vs %v", a, b)
	}
	if c := SeedOffset(15); c == a {
		t.Fatalf("different seeds produced identical offsets: %v", a)
	}
	for i, v := range a {
		if v < -seedOffsetRange || v >= seedOffsetRange {
			t.Fatalf("offset component %d = %v outside range", i, v)
		}
	}
}

func TestFieldWithoutOctavesIsHeightPlane(t *testing.T) {
	field := NewField(99, 3, nil)
	tests := []struct {
		point mgl32.Vec3
		want  float32
	}{
		{mgl32.Vec3{0, 0, 0}, 3},
		{mgl32.Vec3{5, 3, -2}, 0},
		{mgl32.Vec3{1, 10, 1}, -7},
	}
	for _, tt := range tests {
		if got := field.Density(tt.point); got != tt.want {
			t.Fatalf("Density(%v) = %v, want %v", tt.point, got, tt.want)
		}
	}
}

func TestFieldOctavesScaleNoise(t *testing.T) {
	octaves := []Octave{{Frequency: 0.13, Amplitude: 4}}
	field := NewField(3, 0, octaves)
	double := NewField(3, 0, []Octave{{Frequency: 0.13, Amplitude: 8}})

	p := mgl32.Vec3{2.5, 1, 7.25}
	n := field.Noise(p)
	if got := double.Noise(p); math.Abs(float64(got-2*n)) > 1e-5 {
		t.Fatalf("doubling amplitude: got %v, want %v", got, 2*n)
	}
	if got := field.Density(p); math.Abs(float64(got-(-1+n))) > 1e-6 {
		t.Fatalf("Density = %v, want %v", got, -1+n)
	}
}

func TestFieldSeedChangesNoise(t *testing.T) {
	octaves := []Octave{{Frequency: 0.1, Amplitude: 10}, {Frequency: 0.2, Amplitude: 5}}
	a := NewField(1, 0, octaves)
	b := NewField(2, 0, octaves)

	var differs bool
	for x := 0; x < 8 && !differs; x++ {
		p := mgl32.Vec3{float32(x), 0.5, float32(x) * 0.7}
		if a.Density(p) != b.Density(p) {
			differs = true
		}
	}
	if !differs {
		t.Fatalf("expected different seeds to change density")
	}
}
