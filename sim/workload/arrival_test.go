package workload

import (
	"math"
	"math/rand"
	"testing"
)

func TestPoissonSampler_MeanIAT_MatchesRate(t *testing.T) {
	// GIVEN a Poisson sampler at 10 tasks/sec
	rng := rand.New(rand.NewSource(42))
	sampler := NewArrivalSampler(ArrivalPoisson, 10, nil)

	// WHEN 10000 IATs are sampled
	n := 10000
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = sampler.SampleIAT(rng)
	}
	mean, _ := meanAndVariance(vals)

	// THEN mean IAT ≈ 1/rate = 0.1 s (within 5%)
	if math.Abs(mean-0.1)/0.1 > 0.05 {
		t.Errorf("mean IAT = %.4f s, want ≈ 0.1 s (within 5%%)", mean)
	}
}

func TestPoissonSampler_EmptyProcessIsPoisson(t *testing.T) {
	if _, ok := NewArrivalSampler("", 1, nil).(*PoissonSampler); !ok {
		t.Error("empty arrival process should build a PoissonSampler")
	}
}

func TestGammaSampler_HighCV_ProducesBurstierArrivals(t *testing.T) {
	// GIVEN a Gamma sampler with CV=3.5 and a Poisson sampler at the same rate
	rng1 := rand.New(rand.NewSource(42))
	rng2 := rand.New(rand.NewSource(42))
	cv := 3.5
	gamma := NewArrivalSampler(ArrivalGamma, 10, &cv)
	poisson := NewArrivalSampler(ArrivalPoisson, 10, nil)

	// WHEN 10000 IATs are sampled from each
	n := 10000
	gammaIATs := make([]float64, n)
	poissonIATs := make([]float64, n)
	for i := 0; i < n; i++ {
		gammaIATs[i] = gamma.SampleIAT(rng1)
		poissonIATs[i] = poisson.SampleIAT(rng2)
	}

	// THEN Gamma CV > 2.0 and Poisson CV ≈ 1.0
	if gammaCV := coefficientOfVariation(gammaIATs); gammaCV < 2.0 {
		t.Errorf("gamma CV = %.2f, want > 2.0", gammaCV)
	}
	if poissonCV := coefficientOfVariation(poissonIATs); poissonCV < 0.8 || poissonCV > 1.2 {
		t.Errorf("poisson CV = %.2f, want ≈ 1.0", poissonCV)
	}
}

func TestGammaSampler_MeanAndVariance_MatchTheoretical(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	cv := 2.0
	sampler := NewArrivalSampler(ArrivalGamma, 10, &cv)

	n := 50000
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = sampler.SampleIAT(rng)
	}
	// mean = 1/rate, variance = mean² * CV²
	mean, variance := meanAndVariance(vals)
	expectedMean := 0.1
	expectedVar := expectedMean * expectedMean * cv * cv
	if math.Abs(mean-expectedMean)/expectedMean > 0.05 {
		t.Errorf("gamma mean = %.4f, want ≈ %.4f (within 5%%)", mean, expectedMean)
	}
	if math.Abs(variance-expectedVar)/expectedVar > 0.15 {
		t.Errorf("gamma variance = %.5f, want ≈ %.5f (within 15%%)", variance, expectedVar)
	}
}

func TestGammaSampler_TinyShape_FallsBackToPoisson(t *testing.T) {
	cv := 20.0 // shape 1/400
	if _, ok := NewArrivalSampler(ArrivalGamma, 1, &cv).(*PoissonSampler); !ok {
		t.Error("CV=20 should fall back to PoissonSampler")
	}
}

func TestPoissonSampler_NeverNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	sampler := NewArrivalSampler(ArrivalPoisson, 10, nil)
	for i := 0; i < 10000; i++ {
		if iat := sampler.SampleIAT(rng); iat < 0 {
			t.Fatalf("IAT must be >= 0, got %v at iteration %d", iat, i)
		}
	}
}

func TestConstantArrivalSampler_ExactIntervals(t *testing.T) {
	sampler := NewArrivalSampler(ArrivalConstant, 4, nil)
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 100; i++ {
		if iat := sampler.SampleIAT(rng); iat != 0.25 {
			t.Fatalf("iteration %d: SampleIAT = %v, want 0.25", i, iat)
		}
	}
}

func TestConstantArrivalSampler_DifferentSeeds_SameResult(t *testing.T) {
	sampler := NewArrivalSampler(ArrivalConstant, 5, nil)
	rng1 := rand.New(rand.NewSource(1))
	rng2 := rand.New(rand.NewSource(999))
	for i := 0; i < 50; i++ {
		if a, b := sampler.SampleIAT(rng1), sampler.SampleIAT(rng2); a != b {
			t.Fatalf("iteration %d: different seeds produced different IATs: %v vs %v", i, a, b)
		}
	}
}

// coefficientOfVariation computes std_dev / mean.
func coefficientOfVariation(vals []float64) float64 {
	mean, variance := meanAndVariance(vals)
	return math.Sqrt(variance) / mean
}

func meanAndVariance(vals []float64) (float64, float64) {
	n := float64(len(vals))
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	mean := sum / n
	sumSq := 0.0
	for _, v := range vals {
		d := v - mean
		sumSq += d * d
	}
	return mean, sumSq / n
}
