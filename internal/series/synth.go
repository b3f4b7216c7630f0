package series

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/MishaelXV/Diplom-project/internal/thermal"
)

// Synthetic is a generated profile: the noise-free model and the observation
// with Gaussian noise added on the physical scale.
type Synthetic struct {
	Depths []float64
	True   []float64
	Noisy  []float64
}

// Observed returns the noisy profile as a Series.
func (s Synthetic) Observed() Series {
	return Series{
		Depths: append([]float64(nil), s.Depths...),
		Temps:  append([]float64(nil), s.Noisy...),
	}
}

// Exact returns the noise-free profile as a Series.
func (s Synthetic) Exact() Series {
	return Series{
		Depths: append([]float64(nil), s.Depths...),
		Temps:  append([]float64(nil), s.True...),
	}
}

// Synthesizer builds sample series from a known segment partition.
type Synthesizer struct {
	Physics thermal.Physics
	Sigma   float64
	Seed    uint64
}

// NewSynthesizer returns a Synthesizer with reproducible noise for seed.
func NewSynthesizer(p thermal.Physics, sigma float64, seed uint64) *Synthesizer {
	return &Synthesizer{Physics: p, Sigma: sigma, Seed: seed}
}

// Synthesize samples the model at n depths spanning the first left boundary
// to the last right boundary and adds noise with standard deviation Sigma.
func (s *Synthesizer) Synthesize(b thermal.Boundaries, pe []float64, n int) (Synthetic, error) {
	if err := thermal.Validate(b, pe, s.Physics); err != nil {
		return Synthetic{}, err
	}

	lo, hi := b.Span()
	z := Linspace(lo, hi, n)
	exact, err := thermal.Profile(z, b, pe, s.Physics)
	if err != nil {
		return Synthetic{}, err
	}

	return Synthetic{
		Depths: z,
		True:   exact,
		Noisy:  AddNoise(exact, s.Sigma, s.Seed),
	}, nil
}

// AddNoise returns temps plus independent N(0, sigma²) samples. The same
// seed always yields the same noise; sigma <= 0 returns a copy.
func AddNoise(temps []float64, sigma float64, seed uint64) []float64 {
	out := append([]float64(nil), temps...)
	if sigma <= 0 {
		return out
	}

	noise := distuv.Normal{
		Mu:    0,
		Sigma: sigma,
		Src:   rand.NewPCG(seed, seed^0x9e3779b97f4a7c15),
	}
	for i := range out {
		out[i] += noise.Rand()
	}
	return out
}
