package ols

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// 定义线性回归模型的参数
type LinearRegressionModel struct {
	Slope     float64
	Intercept float64
}

// Regression 返回ols斜率项和截距项, 任一侧为 NaN 的点被剔除
func Regression(x, y []float64) LinearRegressionModel {
	if maskX, maskY, ok := paramsValidate(x, y); ok {
		n := float64(len(maskX))
		mx, my := stat.Mean(maskX, nil), stat.Mean(maskY, nil)
		m := (floats.Dot(maskX, maskY) - n*mx*my) / (floats.Dot(maskX, maskX) - n*mx*mx)
		b := my - m*mx
		return LinearRegressionModel{Slope: m, Intercept: b}
	} else {
		return LinearRegressionModel{Slope: math.NaN(), Intercept: math.NaN()}
	}
}

func paramsValidate(x, y []float64) ([]float64, []float64, bool) {
	if len(x) != len(y) {
		return nil, nil, false
	}
	maskX, maskY := maskIsNaNBoth(x, y)
	if len(maskX) < 2 {
		return nil, nil, false
	}
	return maskX, maskY, true
}

func maskIsNaNBoth(x, y []float64) ([]float64, []float64) {
	mx := make([]float64, 0, len(x))
	my := make([]float64, 0, len(y))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		mx = append(mx, x[i])
		my = append(my, y[i])
	}
	return mx, my
}
