package analysis

import (
	"context"
	"sort"

	"isingstat/infra/observe/log/staticLog"
	"isingstat/timeSeries/acf"
)

// TauResult 某个 L 的 τ_exp, 由多条 run 的平均自相关拟合得到
type TauResult struct {
	L    int
	Runs int
	Lags int
	Fit  acf.RelaxationFit
	Err  error
}

type RelaxationOptions struct {
	Method  acf.Method
	MaxLag  int // <= 0: 每条 run 取 len-1
	Workers int
	Fitter  *acf.RelaxationFitter
}

// EstimateRelaxationTimes 逐 L 平均自相关后拟合; 失败的 L 记录并跳过
func EstimateRelaxationTimes(ctx context.Context, runsByL map[int][][]float64, opts RelaxationOptions) []TauResult {
	Ls := make([]int, 0, len(runsByL))
	for L := range runsByL {
		Ls = append(Ls, L)
	}
	sort.Ints(Ls)

	out := make([]TauResult, 0, len(Ls))
	for _, L := range Ls {
		runs := runsByL[L]
		r := TauResult{L: L, Runs: len(runs)}
		mean, err := acf.MeanOfRuns(ctx, runs, opts.MaxLag, opts.Method, opts.Workers)
		if err == nil {
			r.Lags = len(mean)
			r.Fit, err = opts.Fitter.Fit(ctx, mean)
		}
		if err != nil {
			r.Err = err
			staticLog.Log.WithField("L", L).Warnf("relaxation time skipped: %v", err)
		} else {
			staticLog.Log.WithField("L", L).Infof("tau_exp=%d (%d runs, %d lags)", r.Fit.TauSteps, r.Runs, r.Lags)
		}
		out = append(out, r)
	}
	return out
}

// Taus 成功拟合的 L -> τ_exp
func Taus(results []TauResult) map[int]int {
	out := make(map[int]int)
	for _, r := range results {
		if r.Err == nil && r.Fit.Valid {
			out[r.L] = r.Fit.TauSteps
		}
	}
	return out
}
