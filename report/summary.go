package report

import (
	"math"

	"github.com/montanaflynn/stats"

	"isingstat/fss"
	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
)

type Summary struct {
	N      int
	Mean   float64
	Median float64
	StdDev float64
	Min    float64
	Max    float64
}

// Summarize 忽略 NaN; 全空时返回 EMPTY_VALUE
func Summarize(values []float64) (Summary, error) {
	data := make(stats.Float64Data, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			data = append(data, v)
		}
	}
	if len(data) == 0 {
		return Summary{}, errorx.New(errCode.EMPTY_VALUE, "no finite values to summarize")
	}
	s := Summary{N: len(data)}
	var err error
	if s.Mean, err = stats.Mean(data); err != nil {
		return Summary{}, errorx.Wrap(err, errCode.INVALID_VALUE, "mean")
	}
	if s.Median, err = stats.Median(data); err != nil {
		return Summary{}, errorx.Wrap(err, errCode.INVALID_VALUE, "median")
	}
	// 样本标准差
	if len(data) > 1 {
		if s.StdDev, err = stats.StandardDeviationSample(data); err != nil {
			return Summary{}, errorx.Wrap(err, errCode.INVALID_VALUE, "stddev")
		}
	}
	s.Min, _ = stats.Min(data)
	s.Max, _ = stats.Max(data)
	return s, nil
}

// CrossingSummary 成功找到的 β_cross 的统计
func CrossingSummary(crossings []fss.Crossing) (Summary, error) {
	return Summarize(fss.Betas(crossings))
}

func TauSummary(taus map[int]int) (Summary, error) {
	values := make([]float64, 0, len(taus))
	for _, t := range taus {
		values = append(values, float64(t))
	}
	return Summarize(values)
}
