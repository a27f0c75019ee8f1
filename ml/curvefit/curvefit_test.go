package curvefit

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
)

func expDecay(x float64, p []float64) float64 {
	return p[0] * math.Exp(-x/p[1])
}

func TestLMRecoversExponential(t *testing.T) {
	xs := make([]float64, 60)
	ys := make([]float64, 60)
	for i := range xs {
		xs[i] = float64(i)
		ys[i] = 0.9 * math.Exp(-xs[i]/12.5)
	}
	res, err := NewLevenbergMarquardt(1000).Fit(context.Background(), Problem{
		Model: expDecay, X: xs, Y: ys, P0: []float64{1, 5},
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.9, res.Params[0], 1e-6)
	assert.InDelta(t, 12.5, res.Params[1], 1e-5)
	assert.Equal(t, 58, res.Dof)
	assert.Less(t, res.ChiSq, 1e-12)
}

func TestLMWeightedQuadratic(t *testing.T) {
	model := func(x float64, p []float64) float64 {
		d := x - p[1]
		return p[0]*d*d + p[2]
	}
	xs := []float64{0.40, 0.41, 0.42, 0.43, 0.44, 0.45, 0.46}
	ys := make([]float64, len(xs))
	sig := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = model(x, []float64{-500, 0.433, 12})
		sig[i] = 0.1
	}
	res, err := NewLevenbergMarquardt(0).Fit(context.Background(), Problem{
		Model: model, X: xs, Y: ys, Sigma: sig, P0: []float64{-100, 0.43, 11}, AbsoluteSigma: true,
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.433, res.Params[1], 1e-7)
	assert.InDelta(t, 12, res.Params[2], 1e-6)
	// 绝对 σ: 误差不随 χ² 缩放
	assert.Greater(t, res.Errors[2], 0.0)
}

func TestLMDoesNotConvergeWithinBudget(t *testing.T) {
	xs := make([]float64, 40)
	ys := make([]float64, 40)
	for i := range xs {
		xs[i] = float64(i)
		ys[i] = 2 * math.Exp(-xs[i]/30)
	}
	_, err := (&LevenbergMarquardt{MaxIter: 1, FTol: 1e-15, XTol: 1e-15, GTol: 1e-15}).Fit(context.Background(), Problem{
		Model: expDecay, X: xs, Y: ys, P0: []float64{1, 100},
	})
	require.Error(t, err)
	assert.True(t, errorx.Is(err, errCode.FIT_DID_NOT_CONVERGE))
}

func TestLMHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLevenbergMarquardt(100).Fit(ctx, Problem{
		Model: expDecay, X: []float64{0, 1, 2}, Y: []float64{1, 0.5, 0.25}, P0: []float64{1, 1},
	})
	require.Error(t, err)
	assert.True(t, errorx.Is(err, errCode.FIT_DID_NOT_CONVERGE))
}

func TestProblemValidation(t *testing.T) {
	lm := NewLevenbergMarquardt(10)
	ctx := context.Background()

	_, err := lm.Fit(ctx, Problem{Model: expDecay, X: []float64{1}, Y: []float64{1, 2}, P0: []float64{1, 1}})
	assert.True(t, errorx.Is(err, errCode.INVALID_VALUE))

	_, err = lm.Fit(ctx, Problem{Model: expDecay, X: []float64{1}, Y: []float64{1}, P0: []float64{1, 1}})
	assert.True(t, errorx.Is(err, errCode.INVALID_VALUE))

	_, err = lm.Fit(ctx, Problem{Model: expDecay, X: []float64{1, 2}, Y: []float64{1, math.NaN()}, P0: []float64{1, 1}})
	assert.True(t, errorx.Is(err, errCode.NON_FINITE))

	_, err = lm.Fit(ctx, Problem{Model: expDecay, X: []float64{1, 2}, Y: []float64{1, 2}, Sigma: []float64{1, 0}, P0: []float64{1, 1}})
	assert.True(t, errorx.Is(err, errCode.INVALID_VALUE))
}
