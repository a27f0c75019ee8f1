package fss

import (
	"context"
	"math"

	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
	"isingstat/ml/curvefit"
	"isingstat/ml/ols"
)

// CriticalFit β_pc(L) = β_c + b·L^(-1/ν)
type CriticalFit struct {
	BetaC    float64
	BetaCErr float64
	B        float64
	InvNu    float64
	InvNuErr float64
	Nu       float64
	NuErr    float64 // σ_{1/ν} / (1/ν)²
	ChiSq    float64
	Dof      int
}

// AmplitudeFit v_max(L) = c0 + c1·L^(γ/ν)
type AmplitudeFit struct {
	C0             float64
	C1             float64
	GammaOverNu    float64
	GammaOverNuErr float64
	ChiSq          float64
	Dof            int
}

func ShiftedPowerLaw(L float64, p []float64) float64 {
	return p[0] + p[1]*math.Pow(L, -p[2])
}

func PowerLawAmplitude(L float64, p []float64) float64 {
	return p[0] + p[1]*math.Pow(L, p[2])
}

func checkSizes(Ls, ys, errs []float64) error {
	if len(Ls) != len(ys) || len(Ls) != len(errs) {
		return errorx.Newf(errCode.INVALID_VALUE, "length mismatch: %d sizes, %d values, %d errors", len(Ls), len(ys), len(errs))
	}
	distinct := make(map[float64]struct{}, len(Ls))
	for i, L := range Ls {
		if !(L > 0) {
			return errorx.Newf(errCode.INVALID_VALUE, "lattice size %g must be positive", L)
		}
		if math.IsNaN(ys[i]) || math.IsInf(ys[i], 0) {
			return errorx.Newf(errCode.NON_FINITE, "value at L=%g is not finite", L)
		}
		distinct[L] = struct{}{}
	}
	if len(distinct) < 3 {
		return errorx.Newf(errCode.INSUFFICIENT_SIZES, "%d distinct sizes, need >= 3", len(distinct))
	}
	return nil
}

func extremes(Ls []float64) (iMin, iMax int) {
	for i, L := range Ls {
		if L < Ls[iMin] {
			iMin = i
		}
		if L > Ls[iMax] {
			iMax = i
		}
	}
	return iMin, iMax
}

// FitScaling 由各 L 的峰位外推 β_c 与 ν
func FitScaling(ctx context.Context, fitter curvefit.Fitter, Ls, betas, errs []float64) (CriticalFit, error) {
	if err := checkSizes(Ls, betas, errs); err != nil {
		return CriticalFit{}, err
	}
	// 初值: 最大 L 的峰位近似 β_c, 指数取 1
	iMin, iMax := extremes(Ls)
	bc0 := betas[iMax]
	b0 := (betas[iMin] - bc0) * Ls[iMin]
	if b0 == 0 {
		b0 = 1e-3
	}

	res, err := fitter.Fit(ctx, curvefit.Problem{
		Model: ShiftedPowerLaw, X: Ls, Y: betas, Sigma: errs,
		P0: []float64{bc0, b0, 1}, AbsoluteSigma: true,
	})
	if err != nil {
		return CriticalFit{}, errorx.Wrap(err, errCode.FIT_DID_NOT_CONVERGE, "beta_pc(L) scaling fit")
	}
	x, sx := res.Params[2], res.Errors[2]
	if x == 0 {
		return CriticalFit{}, errorx.New(errCode.FIT_DID_NOT_CONVERGE, "fitted 1/nu is zero")
	}
	return CriticalFit{
		BetaC:    res.Params[0],
		BetaCErr: res.Errors[0],
		B:        res.Params[1],
		InvNu:    x,
		InvNuErr: sx,
		Nu:       1 / x,
		NuErr:    sx / (x * x),
		ChiSq:    res.ChiSq,
		Dof:      res.Dof,
	}, nil
}

// FitScalingAmplitude 由各 L 的峰高得到 γ/ν
func FitScalingAmplitude(ctx context.Context, fitter curvefit.Fitter, Ls, values, errs []float64) (AmplitudeFit, error) {
	if err := checkSizes(Ls, values, errs); err != nil {
		return AmplitudeFit{}, err
	}

	// 初值: 端点的 log-log 斜率给指数, 再对 L^g 线性回归给 c0, c1
	g0 := 1.0
	iMin, iMax := extremes(Ls)
	if values[iMin] > 0 && values[iMax] > 0 {
		if s := math.Log(values[iMax]/values[iMin]) / math.Log(Ls[iMax]/Ls[iMin]); s > 0 {
			g0 = s
		}
	}
	X := make([][]float64, len(Ls))
	for i, L := range Ls {
		X[i] = []float64{math.Pow(L, g0)}
	}
	c0, c1 := 0.0, values[iMax]/math.Pow(Ls[iMax], g0)
	if m, err := ols.MultiRegression(X, values, true); err == nil {
		c0, c1 = m.Coeffs[0], m.Coeffs[1]
	}

	res, err := fitter.Fit(ctx, curvefit.Problem{
		Model: PowerLawAmplitude, X: Ls, Y: values, Sigma: errs,
		P0: []float64{c0, c1, g0}, AbsoluteSigma: true,
	})
	if err != nil {
		return AmplitudeFit{}, errorx.Wrap(err, errCode.FIT_DID_NOT_CONVERGE, "peak height scaling fit")
	}
	return AmplitudeFit{
		C0:             res.Params[0],
		C1:             res.Params[1],
		GammaOverNu:    res.Params[2],
		GammaOverNuErr: res.Errors[2],
		ChiSq:          res.ChiSq,
		Dof:            res.Dof,
	}, nil
}
