package workload

import (
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
)

// ArrivalSampler generates inter-arrival times in simulated seconds.
type ArrivalSampler interface {
	// SampleIAT returns the next inter-arrival time. Always >= 0.
	SampleIAT(rng *rand.Rand) float64
}

// PoissonSampler generates exponentially-distributed inter-arrival times (CV=1).
type PoissonSampler struct {
	rate float64 // tasks per second
}

func (s *PoissonSampler) SampleIAT(rng *rand.Rand) float64 {
	return rng.ExpFloat64() / s.rate
}

// ConstantSampler spaces arrivals exactly 1/rate apart.
type ConstantSampler struct {
	interval float64
}

func (s *ConstantSampler) SampleIAT(_ *rand.Rand) float64 {
	return s.interval
}

// GammaSampler generates Gamma-distributed inter-arrival times. CV > 1
// produces bursty arrivals. Marsaglia-Tsang for shape >= 1, with the
// Ahrens-Dieter boost for shape < 1.
type GammaSampler struct {
	shape float64 // 1/CV²
	scale float64 // CV²/rate, seconds
}

func (s *GammaSampler) SampleIAT(rng *rand.Rand) float64 {
	return gammaRand(rng, s.shape, s.scale)
}

func gammaRand(rng *rand.Rand, shape, scale float64) float64 {
	if shape < 1.0 {
		u := rng.Float64()
		return gammaRand(rng, shape+1.0, scale) * math.Pow(u, 1.0/shape)
	}

	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9.0*d)
	for {
		var x, v float64
		for {
			x = rng.NormFloat64()
			v = 1.0 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1.0-0.0331*(x*x)*(x*x) {
			return d * v * scale
		}
		if math.Log(u) < 0.5*x*x+d*(1.0-v+math.Log(v)) {
			return d * v * scale
		}
	}
}

// NewArrivalSampler builds the sampler for process at rate tasks per second.
// Unknown processes fall back to Poisson; Validate rejects them earlier.
func NewArrivalSampler(process string, rate float64, cv *float64) ArrivalSampler {
	if rate < 1e-15 {
		rate = 1e-15
	}
	switch process {
	case "", ArrivalPoisson:
		return &PoissonSampler{rate: rate}
	case ArrivalConstant:
		return &ConstantSampler{interval: 1.0 / rate}
	case ArrivalGamma:
		c := 1.0
		if cv != nil && *cv > 0 {
			c = *cv
		}
		shape := 1.0 / (c * c)
		if shape < 0.01 {
			logrus.Warnf("Gamma shape %.4f (CV=%.1f) is very small; falling back to Poisson", shape, c)
			return &PoissonSampler{rate: rate}
		}
		return &GammaSampler{shape: shape, scale: c * c / rate}
	default:
		return &PoissonSampler{rate: rate}
	}
}
