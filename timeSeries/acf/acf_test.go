package acf

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
	"isingstat/ml/curvefit"
)

// x_t = φ x_{t-1} + ε, τ_exp = -1/ln φ
func ar1(rng *rand.Rand, n int, tau float64) []float64 {
	phi := math.Exp(-1 / tau)
	x := make([]float64, n)
	x[0] = rng.NormFloat64() / math.Sqrt(1-phi*phi)
	for i := 1; i < n; i++ {
		x[i] = phi*x[i-1] + rng.NormFloat64()
	}
	return x
}

func TestAutocorrelationLagZeroIsOne(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	series := ar1(rng, 500, 5)
	for _, m := range []Method{FFT, Direct} {
		c, err := Compute(m, series, 100)
		require.NoError(t, err)
		assert.Len(t, c, 100)
		assert.Equal(t, 1.0, c[0])
	}
}

func TestAutocorrelationSinusoid(t *testing.T) {
	const (
		n      = 2000
		period = 20.0
	)
	series := make([]float64, n)
	for i := range series {
		series[i] = math.Sin(2 * math.Pi * float64(i) / period)
	}
	c, err := Autocorrelation(series, 60)
	require.NoError(t, err)
	for tau := 0; tau < 60; tau++ {
		want := float64(n-tau) / n * math.Cos(2*math.Pi*float64(tau)/period)
		assert.InDelta(t, want, c[tau], 0.01, "tau=%d", tau)
	}
	// 半周期处反相, 整周期处回到正峰
	assert.Less(t, c[10], -0.9)
	assert.Greater(t, c[20], 0.9)
}

func TestFFTMatchesDirect(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	series := ar1(rng, 777, 12)
	fast, err := Autocorrelation(series, 776)
	require.NoError(t, err)
	slow, err := AutocorrelationDirect(series, 776)
	require.NoError(t, err)
	assert.InDeltaSlice(t, slow, fast, 1e-9)
}

func TestAutocorrelationInvalidLag(t *testing.T) {
	series := []float64{1, 2, 3, 4, 5}
	for _, lag := range []int{0, -1, 5, 6} {
		_, err := Autocorrelation(series, lag)
		require.Error(t, err)
		assert.True(t, errorx.Is(err, errCode.INVALID_LAG), "lag=%d", lag)
	}
	_, err := Autocorrelation([]float64{2, 2, 2, 2}, 2)
	assert.True(t, errorx.Is(err, errCode.INVALID_VALUE))
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("Direct")
	require.NoError(t, err)
	assert.Equal(t, Direct, m)
	m, err = ParseMethod("")
	require.NoError(t, err)
	assert.Equal(t, FFT, m)
	_, err = ParseMethod("wavelet")
	assert.True(t, errorx.Is(err, errCode.INVALID_VALUE))
}

func TestMeanOfRunsTruncatesToShortest(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	runs := [][]float64{ar1(rng, 300, 4), ar1(rng, 200, 4), ar1(rng, 250, 4)}
	mean, err := MeanOfRuns(context.Background(), runs, 0, FFT, 2)
	require.NoError(t, err)
	assert.Len(t, mean, 199)
	assert.InDelta(t, 1.0, mean[0], 1e-12)

	capped, err := MeanOfRuns(context.Background(), runs, 50, FFT, 2)
	require.NoError(t, err)
	assert.Len(t, capped, 50)
	assert.InDeltaSlice(t, mean[:50], capped, 1e-12)
}

func TestRelaxationFitExactExponential(t *testing.T) {
	acf := make([]float64, 400)
	for i := range acf {
		acf[i] = math.Exp(-float64(i) / 37.4)
	}
	rf := NewRelaxationFitter(curvefit.NewLevenbergMarquardt(1000))
	fit, err := rf.Fit(context.Background(), acf)
	require.NoError(t, err)
	assert.True(t, fit.Valid)
	assert.InDelta(t, 37.4, fit.Tau, 1e-4)
	assert.Equal(t, 37, fit.TauSteps)
	assert.InDelta(t, 1.0, fit.Amplitude, 1e-6)
}

func TestRelaxationFitAR1(t *testing.T) {
	rng := rand.New(rand.NewSource(20240611))
	runs := make([][]float64, 8)
	for i := range runs {
		runs[i] = ar1(rng, 20000, 20)
	}
	mean, err := MeanOfRuns(context.Background(), runs, 200, FFT, 4)
	require.NoError(t, err)

	for _, seed := range []bool{false, true} {
		rf := NewRelaxationFitter(curvefit.NewLevenbergMarquardt(1000))
		rf.AutoSeed = seed
		fit, err := rf.Fit(context.Background(), mean)
		require.NoError(t, err)
		assert.Equal(t, seed, fit.Seeded)
		assert.InDelta(t, 20, fit.Tau, 4)
	}
}

func TestRelaxationFitDoesNotConverge(t *testing.T) {
	acf := make([]float64, 100)
	for i := range acf {
		acf[i] = math.Exp(-float64(i) / 10)
	}
	rf := NewRelaxationFitter(&curvefit.LevenbergMarquardt{MaxIter: 1, FTol: 1e-15, XTol: 1e-15, GTol: 1e-15})
	_, err := rf.Fit(context.Background(), acf)
	require.Error(t, err)
	assert.True(t, errorx.Is(err, errCode.FIT_DID_NOT_CONVERGE))
}

func TestSeedExpDecay(t *testing.T) {
	acf := make([]float64, 200)
	for i := range acf {
		acf[i] = 0.8 * math.Exp(-float64(i)/15)
	}
	_, end := SeedRange(acf)
	assert.Equal(t, 42, end) // 0.8·e^{-41/15} > 0.05 >= 0.8·e^{-42/15}
	a, tau, err := SeedExpDecay(acf)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, a, 1e-9)
	assert.InDelta(t, 15, tau, 1e-9)

	_, _, err = SeedExpDecay([]float64{1, 0.01, 0})
	assert.Error(t, err)
}

var benchSeries = ar1(rand.New(rand.NewSource(1)), 4096, 30)

func BenchmarkAutocorrelationFFT(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = Autocorrelation(benchSeries, 1024)
	}
}

func BenchmarkAutocorrelationDirect(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = AutocorrelationDirect(benchSeries, 1024)
	}
}
