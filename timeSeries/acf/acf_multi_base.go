// 同一 (L, β) 的多条独立 run: 各自计算自相关, 按 lag 逐点平均后只拟合一次
package acf

import (
	"context"

	"golang.org/x/sync/errgroup"

	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
)

type MultiRuns struct {
	runs    [][]float64
	method  Method
	workers int
}

func NewMultiRuns(runs [][]float64, method Method, workers int) (*MultiRuns, error) {
	if len(runs) == 0 {
		return nil, errorx.New(errCode.EMPTY_VALUE, "runs is empty")
	}
	for i, r := range runs {
		if len(r) < 2 {
			return nil, errorx.Newf(errCode.EMPTY_VALUE, "run %d has %d samples, need >= 2", i, len(r))
		}
	}
	if workers <= 0 {
		workers = 1
	}
	return &MultiRuns{runs: runs, method: method, workers: workers}, nil
}

// MaxLagFor 每条 run 的 maxLag: len-1, 或 min(cap, len-1); cap <= 0 表示不设上限
func MaxLagFor(n, cap int) int {
	if cap <= 0 || cap > n-1 {
		return n - 1
	}
	return cap
}

// Mean 逐 run 自相关, 截到最短长度后逐点平均
func (s *MultiRuns) Mean(ctx context.Context, maxLagCap int) ([]float64, error) {
	acfs := make([][]float64, len(s.runs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, run := range s.runs {
		i, run := i, run
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c, err := Compute(s.method, run, MaxLagFor(len(run), maxLagCap))
			if err != nil {
				return errorx.Wrapf(err, errorx.CodeOf(err), "run %d", i)
			}
			acfs[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	shortest := len(acfs[0])
	for _, c := range acfs[1:] {
		shortest = min(shortest, len(c))
	}
	mean := make([]float64, shortest)
	for _, c := range acfs {
		for k := 0; k < shortest; k++ {
			mean[k] += c[k]
		}
	}
	inv := 1.0 / float64(len(acfs))
	for k := range mean {
		mean[k] *= inv
	}
	return mean, nil
}

// MeanOfRuns 便捷入口
func MeanOfRuns(ctx context.Context, runs [][]float64, maxLagCap int, method Method, workers int) ([]float64, error) {
	s, err := NewMultiRuns(runs, method, workers)
	if err != nil {
		return nil, err
	}
	return s.Mean(ctx, maxLagCap)
}
