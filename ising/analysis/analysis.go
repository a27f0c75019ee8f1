// 每个 (L, β) 分析单元的观测量估计, 以及批量调度
package analysis

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
	"isingstat/infra/observe/log/staticLog"
	"isingstat/ising/observables"
	"isingstat/timeSeries/blocking"
	"isingstat/timeSeries/jackknife"
)

// Sample 一个 (L, β) 的磁化强度与能量序列
type Sample struct {
	L    int
	Beta float64
	M    []float64
	E    []float64
}

func (s Sample) source(src observables.Source) []float64 {
	if src == observables.Energy {
		return s.E
	}
	return s.M
}

// PointResult 按目录顺序的估计值; 失败项为 NaN, 原因记在 Failures
type PointResult struct {
	L           int
	Beta        float64
	Values      []blocking.Estimate
	Ks          []int
	Failures    map[string]error
	Diagnostics *Diagnostics
}

type Analyzer struct {
	Workers  int
	DefaultK int
	KFor     func(observable string) int // 可为 nil
	Diagnose bool
}

func (a *Analyzer) k(name string) int {
	if a.KFor != nil {
		if k := a.KFor(name); k > 0 {
			return k
		}
	}
	return a.DefaultK
}

// EstimateObservable 初级量走分块, 次级量走 jackknife
func EstimateObservable(ctx context.Context, o observables.Observable, s Sample, k int) (blocking.Estimate, error) {
	series := s.source(o.Source)
	if len(series) == 0 {
		return blocking.Estimate{}, errorx.Newf(errCode.EMPTY_VALUE, "no %s samples", o.Source)
	}
	if o.Kind == observables.Primary {
		return blocking.EstimateMean(series, k, o.Primaries[0])
	}
	return jackknife.Estimate(ctx, series, o.Primaries, o.Secondary(s.L), k)
}

// AnalyzePoint 单个观测量失败不影响其余
func (a *Analyzer) AnalyzePoint(ctx context.Context, s Sample) PointResult {
	cat := observables.All()
	res := PointResult{
		L:        s.L,
		Beta:     s.Beta,
		Values:   make([]blocking.Estimate, len(cat)),
		Ks:       make([]int, len(cat)),
		Failures: map[string]error{},
	}
	for i, o := range cat {
		k := a.k(o.Name)
		res.Ks[i] = k
		est, err := EstimateObservable(ctx, o, s, k)
		if err != nil {
			res.Values[i] = blocking.Estimate{Mean: math.NaN(), Err: math.NaN()}
			res.Failures[o.Name] = err
			staticLog.Unit(s.L, s.Beta, o.Name).Warnf("estimate failed (k=%d): %v", k, err)
			continue
		}
		res.Values[i] = est
	}
	if a.Diagnose {
		d, err := Diagnose(s.M, a.k("abs_m"))
		if err != nil {
			staticLog.Unit(s.L, s.Beta, "m").Debugf("diagnostics skipped: %v", err)
		} else {
			res.Diagnostics = &d
			d.Log(s.L, s.Beta)
		}
	}
	return res
}

// AnalyzeBatch 各单元并行, 结果按 (L, β) 排序
func (a *Analyzer) AnalyzeBatch(ctx context.Context, samples []Sample) ([]PointResult, error) {
	out := make([]PointResult, len(samples))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(a.Workers, 1))
	for i, s := range samples {
		i, s := i, s
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = a.AnalyzePoint(gctx, s)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].L != out[j].L {
			return out[i].L < out[j].L
		}
		return out[i].Beta < out[j].Beta
	})
	return out, nil
}
