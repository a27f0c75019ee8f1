package analysis

import (
	"context"

	"isingstat/ising/observables"
	"isingstat/timeSeries/blocking"
)

type KScan struct {
	Observable string
	blocking.Saturation
}

// ScanK 每个观测量在 ks 上扫描误差, 找第一个相对变化 < relTol 的 k
func ScanK(ctx context.Context, s Sample, ks []int, relTol float64) []KScan {
	cat := observables.All()
	out := make([]KScan, 0, len(cat))
	for _, o := range cat {
		errAt := func(k int) (float64, error) {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
			est, err := EstimateObservable(ctx, o, s, k)
			return est.Err, err
		}
		out = append(out, KScan{Observable: o.Name, Saturation: blocking.ScanK(ks, errAt, relTol)})
	}
	return out
}
