// 非线性最小二乘拟合接口, 实现可替换; 默认实现为 Levenberg-Marquardt
package curvefit

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"

	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
)

// Model y = f(x; p)
type Model func(x float64, p []float64) float64

type Problem struct {
	Model Model
	X     []float64
	Y     []float64
	Sigma []float64 // nil 时全部取 1
	P0    []float64
	// true: Sigma 是绝对误差, 协方差直接取 (JᵀWJ)⁻¹;
	// false: 按 χ²/dof 缩放 (仅有相对权重时)
	AbsoluteSigma bool
}

type Result struct {
	Params     []float64
	Errors     []float64 // sqrt(diag(Cov))
	Cov        *mat.Dense
	ChiSq      float64
	Dof        int
	Iterations int
}

type Fitter interface {
	Fit(ctx context.Context, p Problem) (Result, error)
}

func (p Problem) validate() error {
	if p.Model == nil {
		return errorx.New(errCode.INVALID_VALUE, "nil model")
	}
	n := len(p.X)
	if n == 0 {
		return errorx.New(errCode.EMPTY_VALUE, "no data points")
	}
	if len(p.Y) != n {
		return errorx.Newf(errCode.INVALID_VALUE, "len(x)=%d != len(y)=%d", n, len(p.Y))
	}
	if p.Sigma != nil && len(p.Sigma) != n {
		return errorx.Newf(errCode.INVALID_VALUE, "len(sigma)=%d != len(x)=%d", len(p.Sigma), n)
	}
	if len(p.P0) == 0 {
		return errorx.New(errCode.INVALID_VALUE, "empty initial guess")
	}
	if n < len(p.P0) {
		return errorx.Newf(errCode.INVALID_VALUE, "%d points cannot determine %d parameters", n, len(p.P0))
	}
	for i := 0; i < n; i++ {
		if !finite(p.X[i]) || !finite(p.Y[i]) {
			return errorx.Newf(errCode.NON_FINITE, "non-finite data point %d", i)
		}
		if p.Sigma != nil && (!(p.Sigma[i] > 0) || math.IsInf(p.Sigma[i], 0)) {
			return errorx.Newf(errCode.INVALID_VALUE, "sigma[%d]=%v must be positive and finite", i, p.Sigma[i])
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
