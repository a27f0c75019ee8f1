package acf

import (
	"math"

	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
	"isingstat/ml/ols"
)

// 低于该值的 C(τ) 噪声占主导, 不进入对数回归
const seedFloor = 0.05

// SeedRange 对数线性区间 [0, end): 从 lag 0 开始的连续 C(τ) > seedFloor 段
func SeedRange(acf []float64) (start, end int) {
	n := len(acf)
	end = 0
	for end < n && acf[end] > seedFloor && !math.IsNaN(acf[end]) {
		end++
	}
	return 0, end
}

// SeedExpDecay log C(τ) = log A - τ/τ_exp 的 OLS, 给出指数拟合初值
func SeedExpDecay(acf []float64) (amplitude, tau float64, err error) {
	start, end := SeedRange(acf)
	if end-start < 3 {
		return math.NaN(), math.NaN(), errorx.Newf(errCode.INVALID_VALUE, "leading positive segment too short (%d lags)", end-start)
	}

	x := make([]float64, 0, end-start)
	y := make([]float64, 0, end-start)
	for lag := start; lag < end; lag++ {
		x = append(x, float64(lag))
		y = append(y, math.Log(acf[lag]))
	}
	model := ols.Regression(x, y)
	if !(model.Slope < 0) {
		return math.NaN(), math.NaN(), errorx.Newf(errCode.INVALID_VALUE, "log-acf slope %g is not negative", model.Slope)
	}
	return math.Exp(model.Intercept), -1 / model.Slope, nil
}
