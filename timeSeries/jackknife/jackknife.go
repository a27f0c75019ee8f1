// 次级观测量 g(<f_1>, ..., <f_n>) 的 jackknife 估计.
// 同一个样本上算出的各个 <f_j> 彼此相关, 直接做误差传递会错; 这里每次删掉一整块
// 重新计算所有 <f_j> 和 g, 由 k 个副本的离散程度得到误差, 块内残余的短程相关作为整体被删除.
package jackknife

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
	"isingstat/timeSeries/blocking"
)

// Secondary g(m_1, ..., m_n), means 与 primaries 一一对应
type Secondary func(means []float64) float64

// Replicas k 个删块副本 F_i = g(<f_j>_{(i)})
//
// 与 blocking 共用同一个分块, 每块先求 Σf_j, 删块后的均值为 (S_j - s_ji) / ((k-1)M)
func Replicas(ctx context.Context, series []float64, primaries []blocking.Transform, g Secondary, k int) ([]float64, error) {
	if len(primaries) == 0 {
		return nil, errorx.New(errCode.EMPTY_VALUE, "no primary transforms")
	}
	if g == nil {
		return nil, errorx.New(errCode.INVALID_VALUE, "nil secondary function")
	}
	blocks, err := blocking.Partition(series, k)
	if err != nil {
		return nil, err
	}

	// 每个 primary 的块和, 各写各的槽位
	sums := make([][]float64, len(primaries))
	grp, _ := errgroup.WithContext(ctx)
	grp.SetLimit(runtime.GOMAXPROCS(0))
	for j, f := range primaries {
		j, f := j, f
		grp.Go(func() error {
			s, err := blocks.Sums(f)
			if err != nil {
				return errorx.Wrapf(err, errCode.NON_FINITE, "primary %d", j)
			}
			sums[j] = s
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	total := make([]float64, len(primaries))
	for j := range sums {
		for _, s := range sums[j] {
			total[j] += s
		}
	}

	reduced := float64((k - 1) * blocks.M())
	replicas := make([]float64, k)
	for i := 0; i < k; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		means := make([]float64, len(primaries))
		for j := range primaries {
			means[j] = (total[j] - sums[j][i]) / reduced
		}
		v := g(means)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errorx.Newf(errCode.NON_FINITE, "non-finite secondary value in replica %d (block %d removed)", i, i)
		}
		replicas[i] = v
	}
	return replicas, nil
}

// Estimate 均值 = 副本平均, 方差 = (k-1)/k Σ(F_i - F̄)²
func Estimate(ctx context.Context, series []float64, primaries []blocking.Transform, g Secondary, k int) (blocking.Estimate, error) {
	replicas, err := Replicas(ctx, series, primaries, g, k)
	if err != nil {
		return blocking.Estimate{}, err
	}
	return FromReplicas(replicas), nil
}

func FromReplicas(replicas []float64) blocking.Estimate {
	k := float64(len(replicas))
	mean := 0.0
	for _, v := range replicas {
		mean += v
	}
	mean /= k

	ss := 0.0
	for _, v := range replicas {
		d := v - mean
		ss += d * d
	}
	return blocking.Estimate{Mean: mean, Err: math.Sqrt((k - 1) / k * ss)}
}
