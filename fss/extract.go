package fss

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
	"isingstat/infra/observe/log/staticLog"
	"isingstat/ml/curvefit"
)

// SizeTable 某个 L 的观测量随 β 变化表
type SizeTable struct {
	L      int
	Points []Point
}

type Result struct {
	Peaks        []Peak        // 成功拟合的 L, 升序
	PeakErrs     map[int]error // 拟合失败的 L
	Critical     *CriticalFit
	CriticalErr  error
	Amplitude    *AmplitudeFit
	AmplitudeErr error
}

type Extractor struct {
	Fitter     curvefit.Fitter
	Observable string
	Window     int
	Workers    int
	Timeout    time.Duration // 单次拟合
}

func (e *Extractor) fitCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.Timeout > 0 {
		return context.WithTimeout(ctx, e.Timeout)
	}
	return context.WithCancel(ctx)
}

// Run 并行定位各 L 的峰, 跳过失败的 L, 再做两次跨尺寸标度拟合.
// 只有 ctx 取消才返回 error, 其余失败记录在 Result 中.
func (e *Extractor) Run(ctx context.Context, tables []SizeTable) (Result, error) {
	peaks := make([]Peak, len(tables))
	errs := make([]error, len(tables))

	var g errgroup.Group
	g.SetLimit(max(e.Workers, 1))
	for i, tab := range tables {
		i, tab := i, tab
		g.Go(func() error {
			fctx, cancel := e.fitCtx(ctx)
			defer cancel()
			p, err := LocatePeak(fctx, tab.Points, e.Window, e.Fitter)
			if err != nil {
				errs[i] = err
				return nil
			}
			p.L = tab.L
			peaks[i] = p
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res := Result{PeakErrs: map[int]error{}}
	for i, tab := range tables {
		if errs[i] != nil {
			res.PeakErrs[tab.L] = errs[i]
			staticLog.Log.WithFields(logrus.Fields{"L": tab.L, "observable": e.Observable}).
				Warnf("peak fit skipped: %v", errs[i])
			continue
		}
		res.Peaks = append(res.Peaks, peaks[i])
	}
	sort.Slice(res.Peaks, func(i, j int) bool { return res.Peaks[i].L < res.Peaks[j].L })

	Ls := make([]float64, len(res.Peaks))
	betas := make([]float64, len(res.Peaks))
	betaErrs := make([]float64, len(res.Peaks))
	values := make([]float64, len(res.Peaks))
	valueErrs := make([]float64, len(res.Peaks))
	for i, p := range res.Peaks {
		Ls[i], betas[i], betaErrs[i], values[i], valueErrs[i] = float64(p.L), p.Beta, p.BetaErr, p.Value, p.ValueErr
	}

	fctx, cancel := e.fitCtx(ctx)
	cf, err := FitScaling(fctx, e.Fitter, Ls, betas, betaErrs)
	cancel()
	if err != nil {
		res.CriticalErr = err
		e.logAggregate("beta_pc(L)", err)
	} else {
		res.Critical = &cf
	}

	fctx, cancel = e.fitCtx(ctx)
	af, err := FitScalingAmplitude(fctx, e.Fitter, Ls, values, valueErrs)
	cancel()
	if err != nil {
		res.AmplitudeErr = err
		e.logAggregate("peak height", err)
	} else {
		res.Amplitude = &af
	}
	return res, nil
}

func (e *Extractor) logAggregate(what string, err error) {
	entry := staticLog.Log.WithField("observable", e.Observable)
	if errorx.Is(err, errCode.INSUFFICIENT_SIZES) {
		entry.Warnf("%s scaling fit skipped: %v", what, err)
		return
	}
	entry.Errorf("%s scaling fit failed: %v", what, err)
}
