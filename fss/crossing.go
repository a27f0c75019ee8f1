package fss

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"

	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
	"isingstat/ml/roots"
)

// 在重叠区间上扫描符号变化的网格点数
const crossingGrid = 256

// Curve 某个 L 的 U(β), Beta 严格递增
type Curve struct {
	L    int
	Beta []float64
	U    []float64
}

// Crossing 相邻两个 L 的交点; Found 为 false 时 Err 给出原因
type Crossing struct {
	L1, L2 int
	Beta   float64
	Found  bool
	Err    error
}

// Interpolate 三次样条 (not-a-knot), 点数不够时依次退化为自然样条, 分段线性
func Interpolate(beta, u []float64) (interp.Predictor, error) {
	if len(beta) != len(u) {
		return nil, errorx.Newf(errCode.INVALID_VALUE, "len(beta)=%d != len(U)=%d", len(beta), len(u))
	}
	if len(beta) < 2 {
		return nil, errorx.Newf(errCode.INVALID_VALUE, "%d points cannot be interpolated", len(beta))
	}
	for i := 1; i < len(beta); i++ {
		if !(beta[i] > beta[i-1]) {
			return nil, errorx.Newf(errCode.INVALID_VALUE, "beta must be strictly increasing at index %d", i)
		}
	}
	for _, v := range u {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errorx.New(errCode.NON_FINITE, "non-finite U value")
		}
	}

	var nak interp.NotAKnotCubic
	if err := nak.Fit(beta, u); err == nil {
		return &nak, nil
	}
	var nat interp.NaturalCubic
	if err := nat.Fit(beta, u); err == nil {
		return &nat, nil
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(beta, u); err != nil {
		return nil, errorx.Wrap(err, errCode.INVALID_VALUE, "interpolation")
	}
	return &pl, nil
}

// CrossingOf 两条曲线在 β 重叠区间内的第一个交点
func CrossingOf(a, b Curve, finder roots.Finder) (float64, error) {
	fa, err := Interpolate(a.Beta, a.U)
	if err != nil {
		return math.NaN(), errorx.Wrapf(err, errorx.CodeOf(err), "L=%d", a.L)
	}
	fb, err := Interpolate(b.Beta, b.U)
	if err != nil {
		return math.NaN(), errorx.Wrapf(err, errorx.CodeOf(err), "L=%d", b.L)
	}

	lo := math.Max(a.Beta[0], b.Beta[0])
	hi := math.Min(a.Beta[len(a.Beta)-1], b.Beta[len(b.Beta)-1])
	if !(hi > lo) {
		return math.NaN(), errorx.Newf(errCode.CROSSING_NOT_FOUND, "beta domains of L=%d and L=%d do not overlap", a.L, b.L)
	}

	diff := func(x float64) float64 { return fa.Predict(x) - fb.Predict(x) }
	step := (hi - lo) / crossingGrid
	x0, d0 := lo, diff(lo)
	if d0 == 0 {
		return x0, nil
	}
	for i := 1; i <= crossingGrid; i++ {
		x1 := lo + float64(i)*step
		if i == crossingGrid {
			x1 = hi
		}
		d1 := diff(x1)
		if d1 == 0 {
			return x1, nil
		}
		if d0*d1 < 0 {
			return finder.Root(diff, x0, x1)
		}
		x0, d0 = x1, d1
	}
	return math.NaN(), errorx.Newf(errCode.CROSSING_NOT_FOUND, "U(L=%d) - U(L=%d) has no sign change in [%g, %g]", a.L, b.L, lo, hi)
}

// FindCumulantCrossings 按 L 排序后对相邻两条曲线求交点; 单对失败只记录不中断
func FindCumulantCrossings(curves []Curve, finder roots.Finder) []Crossing {
	sorted := append([]Curve(nil), curves...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].L < sorted[j].L })

	out := make([]Crossing, 0, max(len(sorted)-1, 0))
	for i := 0; i+1 < len(sorted); i++ {
		a, b := sorted[i], sorted[i+1]
		c := Crossing{L1: a.L, L2: b.L, Beta: math.NaN()}
		beta, err := CrossingOf(a, b, finder)
		if err != nil {
			c.Err = err
		} else {
			c.Beta, c.Found = beta, true
		}
		out = append(out, c)
	}
	return out
}

// Betas 已找到的交点 β, 按 L 顺序
func Betas(crossings []Crossing) []float64 {
	out := make([]float64, 0, len(crossings))
	for _, c := range crossings {
		if c.Found {
			out = append(out, c.Beta)
		}
	}
	return out
}
