package blocking

import (
	"math"

	"github.com/gonum/stat"
)

// Estimate 均值及其标准误
type Estimate struct {
	Mean float64
	Err  float64
}

// EstimateMean <F(x)> 的分块估计.
//
// 误差取 k 个块均值的标准误:
//
//	err = sqrt( Σ(b_i - b̄)² / (k(k-1)) ) = std_{ddof=1}(b) / sqrt(k)
//
// 块足够长时块均值近似独立, k 个独立量的均值标准误即上式.
func EstimateMean(series []float64, k int, fn Transform) (Estimate, error) {
	blocks, err := Partition(series, k)
	if err != nil {
		return Estimate{}, err
	}
	means, err := blocks.Means(fn)
	if err != nil {
		return Estimate{}, err
	}
	return FromBlockMeans(means), nil
}

// FromBlockMeans 由块均值直接得到估计, k = len(means) >= 2
func FromBlockMeans(means []float64) Estimate {
	k := float64(len(means))
	mean := stat.Mean(means, nil)
	sd := stat.StdDev(means, nil) // Bessel 修正
	return Estimate{Mean: mean, Err: sd / math.Sqrt(k)}
}
