package analysis

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
	"isingstat/ising/observables"
	"isingstat/ml/curvefit"
	"isingstat/timeSeries/acf"
	"isingstat/timeSeries/blocking"
	"isingstat/timeSeries/jackknife"
)

func ar1(rng *rand.Rand, n int, phi, mean float64) []float64 {
	x := make([]float64, n)
	for i := 1; i < n; i++ {
		x[i] = phi*x[i-1] + rng.NormFloat64()
	}
	for i := range x {
		x[i] = mean + 0.1*x[i]
	}
	return x
}

func sample(seed int64, L int, beta float64, n int) Sample {
	rng := rand.New(rand.NewSource(seed))
	return Sample{L: L, Beta: beta, M: ar1(rng, n, 0.8, 0.6), E: ar1(rng, n, 0.6, -1.4)}
}

func idx(t *testing.T, name string) int {
	i, err := observables.Index(name)
	require.NoError(t, err)
	return i
}

func TestAnalyzePointMatchesEstimators(t *testing.T) {
	s := sample(1, 8, 0.42, 4000)
	a := &Analyzer{DefaultK: 20, KFor: func(name string) int {
		if name == "U" {
			return 10
		}
		return 0
	}}
	res := a.AnalyzePoint(context.Background(), s)
	require.Empty(t, res.Failures)

	m, err := blocking.EstimateMean(s.M, 20, blocking.Identity)
	require.NoError(t, err)
	assert.Equal(t, m, res.Values[idx(t, "m")])

	e, err := blocking.EstimateMean(s.E, 20, blocking.Identity)
	require.NoError(t, err)
	assert.Equal(t, e, res.Values[idx(t, "e")])

	// χ = V<m²>
	chi, err := jackknife.Estimate(context.Background(), s.M,
		[]blocking.Transform{func(x float64) float64 { return x * x }},
		func(m []float64) float64 { return 64 * m[0] }, 20)
	require.NoError(t, err)
	assert.InDelta(t, chi.Mean, res.Values[idx(t, "chi")].Mean, 1e-12)
	assert.InDelta(t, chi.Err, res.Values[idx(t, "chi")].Err, 1e-12)

	assert.Equal(t, 10, res.Ks[idx(t, "U")])
	assert.Equal(t, 20, res.Ks[idx(t, "C")])
}

func TestAnalyzePointIsolatesFailures(t *testing.T) {
	s := sample(2, 8, 0.40, 500)
	s.E = nil
	res := (&Analyzer{DefaultK: 16}).AnalyzePoint(context.Background(), s)

	assert.Len(t, res.Failures, 2)
	assert.True(t, errorx.Is(res.Failures["e"], errCode.EMPTY_VALUE))
	assert.True(t, math.IsNaN(res.Values[idx(t, "C")].Mean))
	assert.False(t, math.IsNaN(res.Values[idx(t, "U")].Mean))

	res = (&Analyzer{DefaultK: 600}).AnalyzePoint(context.Background(), sample(3, 8, 0.4, 500))
	assert.Len(t, res.Failures, len(observables.All()))
	assert.True(t, errorx.Is(res.Failures["chi_prime"], errCode.INVALID_BLOCK_COUNT))
}

func TestAnalyzeBatchSorted(t *testing.T) {
	samples := []Sample{sample(4, 16, 0.44, 800), sample(5, 8, 0.45, 800), sample(6, 8, 0.41, 800)}
	out, err := (&Analyzer{DefaultK: 8, Workers: 2, Diagnose: true}).AnalyzeBatch(context.Background(), samples)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, []int{8, 8, 16}, []int{out[0].L, out[1].L, out[2].L})
	assert.Equal(t, 0.41, out[0].Beta)
	require.NotNil(t, out[0].Diagnostics)
	assert.True(t, out[0].Diagnostics.Stationary)
}

func TestScanKSkipsInvalid(t *testing.T) {
	s := sample(7, 4, 0.3, 30)
	scans := ScanK(context.Background(), s, []int{4, 8, 40}, 0.01)
	require.Len(t, scans, len(observables.All()))
	for _, sc := range scans {
		assert.Equal(t, []int{4, 8}, sc.Ks, sc.Observable)
	}
}

func TestScanKConsecutive(t *testing.T) {
	s := sample(11, 16, 0.44, 48000)
	ks := blocking.KRange(4, 48, 1)
	require.Len(t, ks, 45)
	scans := ScanK(context.Background(), s, ks, 0.01)

	for _, sc := range scans {
		if sc.Observable != "m" {
			continue
		}
		require.Equal(t, ks, sc.Ks)
		// 第一个与前一个 k 相比相对变化 < 1% 的 k
		wantK, found := 0, false
		prev, err := blocking.EstimateMean(s.M, ks[0], blocking.Identity)
		require.NoError(t, err)
		for _, k := range ks[1:] {
			cur, err := blocking.EstimateMean(s.M, k, blocking.Identity)
			require.NoError(t, err)
			if math.Abs(cur.Err-prev.Err)/prev.Err < 0.01 {
				wantK, found = k, true
				break
			}
			prev = cur
		}
		assert.Equal(t, found, sc.Found)
		if found {
			assert.Equal(t, wantK, sc.K)
			i := sc.K - ks[0]
			assert.Less(t, math.Abs(sc.Errs[i]-sc.Errs[i-1])/sc.Errs[i-1], 0.01)
		}
		return
	}
	t.Fatal("m missing from scan")
}

func TestEstimateRelaxationTimes(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	runs := make([][]float64, 4)
	for i := range runs {
		runs[i] = ar1(rng, 5000, math.Exp(-1.0/5), 0)
	}
	runsByL := map[int][][]float64{
		8:  runs,
		16: {{1, 1, 1, 1, 1, 1}},
	}
	rf := acf.NewRelaxationFitter(curvefit.NewLevenbergMarquardt(500))
	res := EstimateRelaxationTimes(context.Background(), runsByL, RelaxationOptions{
		Method: acf.FFT, MaxLag: 100, Workers: 2, Fitter: rf,
	})
	require.Len(t, res, 2)
	assert.Equal(t, 8, res[0].L)
	require.NoError(t, res[0].Err)
	assert.Equal(t, 100, res[0].Lags)
	assert.InDelta(t, 5, res[0].Fit.Tau, 1.5)
	assert.Error(t, res[1].Err)

	taus := Taus(res)
	assert.Len(t, taus, 1)
	assert.Equal(t, res[0].Fit.TauSteps, taus[8])
}

func TestDiagnoseFlagsDrift(t *testing.T) {
	rng := rand.New(rand.NewSource(10))
	walk := make([]float64, 5000)
	for i := 1; i < len(walk); i++ {
		walk[i] = walk[i-1] + 0.5 + rng.NormFloat64()
	}
	d, err := Diagnose(walk, 16)
	require.NoError(t, err)
	assert.False(t, d.Stationary)
	assert.True(t, d.LBReject)
}
