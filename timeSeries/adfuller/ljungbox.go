package adfuller

import (
	"github.com/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
)

// Ljung-Box检验
// 样本自相关系数: rk = Σ((rt - rmean)(rt-k - rmean)) / Σ((rt - rmean)^2)
// Ljung-Box统计量: Q = n(n+2)Σ(rk^2/(n-k))  k=1~lags
// Q服从自由度为lags的卡方分布
// output: reject 是否拒绝原假设(白噪声); Q 统计量; pValue p值
func LjungBoxTest(resid []float64, lags int, alpha float64) (reject bool, Q float64, pValue float64, err error) {
	n := float64(len(resid))
	if lags < 1 {
		return false, 0, 0, errorx.Newf(errCode.INVALID_VALUE, "lags=%d must be >= 1", lags)
	}
	if n <= float64(lags) {
		return false, 0, 0, errorx.New(errCode.INVALID_VALUE, "样本量过小, 无法进行Ljung-Box检验")
	}
	rmean := stat.Mean(resid, nil)
	var denom float64
	for _, v := range resid {
		denom += (v - rmean) * (v - rmean)
	}
	if denom == 0 {
		return false, 0, 1, nil
	}
	for k := 1; k <= lags; k++ {
		var num float64
		for t := k; t < len(resid); t++ {
			num += (resid[t] - rmean) * (resid[t-k] - rmean)
		}
		rk := num / denom
		Q += rk * rk / (n - float64(k))
	}
	Q = n * (n + 2) * Q

	chi2 := distuv.ChiSquared{K: float64(lags)}
	pValue = 1 - chi2.CDF(Q)
	return pValue < alpha, Q, pValue, nil
}
