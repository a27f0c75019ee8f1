// 有限尺寸标度: 每个 L 的峰值定位, 跨 L 的标度拟合, Binder 累积量交点
package fss

import (
	"context"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
	"isingstat/ml/curvefit"
	"isingstat/ml/ols"
)

// Point 一个 (β, 观测量, 误差)
type Point struct {
	Beta  float64
	Value float64
	Err   float64
}

type Peak struct {
	L         int
	Beta      float64 // β_pc
	BetaErr   float64
	Value     float64 // 峰高
	ValueErr  float64
	Curvature float64 // a < 0
	Points    int     // 参与拟合的点数
	ChiSq     float64
}

// Parabola v(β) = a(β - β_pc)² + v_max, p = [a, β_pc, v_max]
func Parabola(beta float64, p []float64) float64 {
	d := beta - p[1]
	return p[0]*d*d + p[2]
}

// PeakWindow 最大值下标两侧各 w 个点, 在数组边界处截断
func PeakWindow(values []float64, w int) (lo, hi int) {
	idx := floats.MaxIdx(values)
	lo = max(0, idx-w)
	hi = min(len(values), idx+w+1)
	return lo, hi
}

// LocatePeak 局部抛物线加权拟合 (权重 1/err²), σ 视为绝对误差
func LocatePeak(ctx context.Context, points []Point, window int, fitter curvefit.Fitter) (Peak, error) {
	if len(points) == 0 {
		return Peak{}, errorx.New(errCode.PEAK_FIT_FAILED, "no points")
	}
	if window < 1 {
		return Peak{}, errorx.Newf(errCode.PEAK_FIT_FAILED, "half window %d must be >= 1", window)
	}
	pts := append([]Point(nil), points...)
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Beta < pts[j].Beta })

	values := make([]float64, len(pts))
	for i, p := range pts {
		values[i] = p.Value
	}
	lo, hi := PeakWindow(values, window)
	if hi-lo < 3 {
		return Peak{}, errorx.Newf(errCode.PEAK_FIT_FAILED, "window holds %d points, need >= 3", hi-lo)
	}

	n := hi - lo
	x := make([]float64, n)
	y := make([]float64, n)
	sig := make([]float64, n)
	for i, p := range pts[lo:hi] {
		if !(p.Err > 0) || math.IsInf(p.Err, 0) || math.IsNaN(p.Value) {
			return Peak{}, errorx.Newf(errCode.PEAK_FIT_FAILED, "point beta=%g has value %g and error %g", p.Beta, p.Value, p.Err)
		}
		x[i], y[i], sig[i] = p.Beta, p.Value, p.Err
	}

	p0 := seedParabola(x, y, sig)
	res, err := fitter.Fit(ctx, curvefit.Problem{
		Model: Parabola, X: x, Y: y, Sigma: sig, P0: p0, AbsoluteSigma: true,
	})
	if err != nil {
		return Peak{}, errorx.Wrapf(err, errCode.PEAK_FIT_FAILED, "parabola fit over beta [%g, %g]", x[0], x[n-1])
	}
	if !(res.Params[0] < 0) {
		return Peak{}, errorx.Newf(errCode.PEAK_FIT_FAILED, "fitted curvature %g is not a maximum", res.Params[0])
	}

	return Peak{
		Beta:      res.Params[1],
		BetaErr:   res.Errors[1],
		Value:     res.Params[2],
		ValueErr:  res.Errors[2],
		Curvature: res.Params[0],
		Points:    n,
		ChiSq:     res.ChiSq,
	}, nil
}

// 初值: 以窗口中心平移后的加权二次回归 v = c0 + c1 t + c2 t²;
// 自由度不足时退化为过最大值及其邻点的三点抛物线
func seedParabola(x, y, sig []float64) []float64 {
	center := (x[0] + x[len(x)-1]) / 2
	if len(x) > 3 {
		X := make([][]float64, len(x))
		for i, b := range x {
			t := b - center
			X[i] = []float64{t, t * t}
		}
		if m, err := ols.WeightedRegression(X, y, sig, true); err == nil && m.Coeffs[2] != 0 {
			c0, c1, c2 := m.Coeffs[0], m.Coeffs[1], m.Coeffs[2]
			return []float64{c2, center - c1/(2*c2), c0 - c1*c1/(4*c2)}
		}
	}

	i := floats.MaxIdx(y)
	i = min(max(i, 1), len(y)-2)
	x0, x1, x2 := x[i-1], x[i], x[i+1]
	y0, y1, y2 := y[i-1], y[i], y[i+1]
	d01 := (y1 - y0) / (x1 - x0)
	d12 := (y2 - y1) / (x2 - x1)
	a := (d12 - d01) / (x2 - x0)
	if a == 0 {
		return []float64{-1, x1, y1}
	}
	// v = a(x-x0)(x-x1) + d01(x-x0) + y0
	bpc := (x0 + x1 - d01/a) / 2
	vmax := a*(bpc-x0)*(bpc-x1) + d01*(bpc-x0) + y0
	return []float64{a, bpc, vmax}
}
