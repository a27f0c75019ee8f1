// 磁化强度分布 P(m)
package histogram

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
)

// HistogramBin 每个分箱的结构
type HistogramBin struct {
	From    float64
	To      float64
	Count   int
	Density float64 // Count / (total·width), 积分为 1
}

func (b HistogramBin) Center() float64 { return (b.From + b.To) / 2 }

// Hist 等宽分箱, 最后一个箱包含右端点
func Hist(data []float64, bins int) ([]HistogramBin, error) {
	if len(data) == 0 {
		return nil, errorx.New(errCode.EMPTY_VALUE, "no samples")
	}
	if bins <= 0 {
		return nil, errorx.Newf(errCode.INVALID_VALUE, "bins=%d must be > 0", bins)
	}
	if floats.HasNaN(data) {
		return nil, errorx.New(errCode.NON_FINITE, "samples contain NaN")
	}
	return HistRange(data, bins, floats.Min(data), floats.Max(data))
}

// HistRange 固定区间 [lo, hi] 分箱, 便于不同 L 的分布对齐; 区间外的样本丢弃
func HistRange(data []float64, bins int, lo, hi float64) ([]HistogramBin, error) {
	if bins <= 0 {
		return nil, errorx.Newf(errCode.INVALID_VALUE, "bins=%d must be > 0", bins)
	}
	// 避免 max == min 导致除0
	if hi == lo {
		hi = lo + 1e-9
	}
	if !(hi > lo) {
		return nil, errorx.Newf(errCode.INVALID_VALUE, "empty range [%g, %g]", lo, hi)
	}

	width := (hi - lo) / float64(bins)
	result := make([]HistogramBin, bins)
	for i := range result {
		result[i] = HistogramBin{From: lo + float64(i)*width, To: lo + float64(i+1)*width}
	}

	total := 0
	for _, v := range data {
		if v < lo || v > hi {
			continue
		}
		idx := int(math.Floor((v - lo) / width))
		if idx >= bins { // v == hi
			idx = bins - 1
		}
		result[idx].Count++
		total++
	}
	if total > 0 {
		norm := 1 / (float64(total) * width)
		for i := range result {
			result[i].Density = float64(result[i].Count) * norm
		}
	}
	return result, nil
}
