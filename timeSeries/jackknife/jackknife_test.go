package jackknife

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
	"isingstat/timeSeries/blocking"
)

func identity(means []float64) float64 { return means[0] }

func ar1(rng *rand.Rand, n int, phi float64) []float64 {
	x := make([]float64, n)
	for i := 1; i < n; i++ {
		x[i] = phi*x[i-1] + rng.NormFloat64()
	}
	return x
}

func TestIdentityMatchesBlocking(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	series := ar1(rng, 10007, 0.9)

	for _, k := range []int{2, 5, 16, 50} {
		jk, err := Estimate(context.Background(), series, []blocking.Transform{blocking.Identity}, identity, k)
		require.NoError(t, err)
		bl, err := blocking.EstimateMean(series, k, blocking.Identity)
		require.NoError(t, err)

		assert.InDelta(t, bl.Mean, jk.Mean, 1e-12, "k=%d", k)
		assert.InDelta(t, bl.Err, jk.Err, 1e-12, "k=%d", k)
	}
}

func TestHandComputed(t *testing.T) {
	series := []float64{1, 1, 1, 1, 2, 2, 2, 2}
	replicas, err := Replicas(context.Background(), series, []blocking.Transform{blocking.Identity}, identity, 4)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{10.0 / 6, 10.0 / 6, 8.0 / 6, 8.0 / 6}, replicas, 1e-15)

	est := FromReplicas(replicas)
	assert.InDelta(t, 1.5, est.Mean, 1e-15)
	assert.InDelta(t, math.Sqrt(1.0/12), est.Err, 1e-15)
}

func TestBinderCumulantOfIsingSpins(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	series := make([]float64, 1000)
	for i := range series {
		series[i] = 1
		if rng.Intn(2) == 0 {
			series[i] = -1
		}
	}
	m2 := func(x float64) float64 { return x * x }
	m4 := func(x float64) float64 { return x * x * x * x }
	u := func(means []float64) float64 { return 1 - means[1]/(3*means[0]*means[0]) }

	est, err := Estimate(context.Background(), series, []blocking.Transform{m2, m4}, u, 10)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, est.Mean, 1e-12)
	assert.InDelta(t, 0.0, est.Err, 1e-12)
}

// 次级量的误差要考虑 primaries 之间的相关: 对 <x²> - <x>², 非线性 g 也能给出有限正误差
func TestVarianceSecondary(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	series := make([]float64, 20000)
	for i := range series {
		series[i] = rng.NormFloat64()
	}
	sq := func(x float64) float64 { return x * x }
	variance := func(means []float64) float64 { return means[1] - means[0]*means[0] }

	est, err := Estimate(context.Background(), series, []blocking.Transform{blocking.Identity, sq}, variance, 20)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, est.Mean, 0.05)
	// Var(s²) ≈ 2σ⁴/N
	assert.InEpsilon(t, math.Sqrt(2.0/20000), est.Err, 0.5)
}

func TestInvalidBlockCount(t *testing.T) {
	_, err := Estimate(context.Background(), []float64{1, 2, 3, 4, 5}, []blocking.Transform{blocking.Identity}, identity, 6)
	require.Error(t, err)
	assert.True(t, errorx.Is(err, errCode.INVALID_BLOCK_COUNT))

	_, err = Estimate(context.Background(), []float64{1, 2, 3}, []blocking.Transform{blocking.Identity}, identity, 1)
	assert.True(t, errorx.Is(err, errCode.INVALID_BLOCK_COUNT))
}

func TestNonFiniteSurfaces(t *testing.T) {
	series := []float64{1, -1, 1, -1}
	inv := func(means []float64) float64 { return 1 / means[0] }
	_, err := Estimate(context.Background(), series, []blocking.Transform{blocking.Identity}, inv, 2)
	require.Error(t, err)
	assert.True(t, errorx.Is(err, errCode.NON_FINITE))
}

func TestEmptyPrimaries(t *testing.T) {
	_, err := Estimate(context.Background(), []float64{1, 2, 3, 4}, nil, identity, 2)
	assert.True(t, errorx.Is(err, errCode.EMPTY_VALUE))
}
