package acf

import (
	"context"
	"math"
	"time"

	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
	"isingstat/ml/curvefit"
)

// ExpDecay C(τ) = A·exp(-τ/τ_exp), p = [A, τ_exp]
func ExpDecay(tau float64, p []float64) float64 {
	return p[0] * math.Exp(-tau/p[1])
}

type RelaxationFit struct {
	Amplitude float64
	AmpErr    float64
	Tau       float64
	TauErr    float64
	TauSteps  int // Tau 四舍五入到整数步
	ChiSq     float64
	Seeded    bool // 初值来自对数线性回归
	Valid     bool
}

type RelaxationFitter struct {
	Fitter      curvefit.Fitter
	P0Amplitude float64
	P0Tau       float64
	AutoSeed    bool
	Timeout     time.Duration
}

func NewRelaxationFitter(fitter curvefit.Fitter) *RelaxationFitter {
	return &RelaxationFitter{Fitter: fitter, P0Amplitude: 1, P0Tau: 100}
}

// Fit 在全部 lag 上无权重最小二乘拟合 ExpDecay
func (rf *RelaxationFitter) Fit(ctx context.Context, acf []float64) (RelaxationFit, error) {
	if len(acf) < 3 {
		return RelaxationFit{}, errorx.Newf(errCode.INVALID_VALUE, "acf has %d lags, need >= 3", len(acf))
	}
	if rf.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rf.Timeout)
		defer cancel()
	}

	p0 := []float64{rf.P0Amplitude, rf.P0Tau}
	seeded := false
	if rf.AutoSeed {
		if a, tau, err := SeedExpDecay(acf); err == nil {
			p0 = []float64{a, tau}
			seeded = true
		}
	}

	lags := make([]float64, len(acf))
	for i := range lags {
		lags[i] = float64(i)
	}
	res, err := rf.Fitter.Fit(ctx, curvefit.Problem{Model: ExpDecay, X: lags, Y: acf, P0: p0})
	if err != nil {
		return RelaxationFit{}, errorx.Wrapf(err, errCode.FIT_DID_NOT_CONVERGE, "exp decay fit from p0=%v", p0)
	}
	tau := res.Params[1]
	if !(tau > 0) || math.IsInf(tau, 0) {
		return RelaxationFit{}, errorx.Newf(errCode.FIT_DID_NOT_CONVERGE, "fitted tau_exp=%g is not a positive decay time", tau)
	}

	return RelaxationFit{
		Amplitude: res.Params[0],
		AmpErr:    res.Errors[0],
		Tau:       tau,
		TauErr:    res.Errors[1],
		TauSteps:  int(math.Round(tau)),
		ChiSq:     res.ChiSq,
		Seeded:    seeded,
		Valid:     true,
	}, nil
}
