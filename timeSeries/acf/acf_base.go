// 自相关函数
//
//	         Σ_t (x_t - μ)(x_{t+τ} - μ)
//	C(τ) = ───────────────────────────── ,  τ = 0 .. maxLag-1
//	           Σ_t (x_t - μ)²
//
// 不按 (N-τ) 修正, 大 τ 尾部对数少, 不可信.
package acf

import (
	"strings"

	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
	"isingstat/numpy/npCorr"
)

type Method string

const (
	FFT    Method = "fft"
	Direct Method = "direct"
)

func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case FFT, "":
		return FFT, nil
	case Direct:
		return Direct, nil
	}
	return "", errorx.Newf(errCode.INVALID_VALUE, "unknown acf method %q (fft|direct)", s)
}

// Compute 按 method 计算归一化自相关
func Compute(method Method, series []float64, maxLag int) ([]float64, error) {
	if method == Direct {
		return AutocorrelationDirect(series, maxLag)
	}
	return Autocorrelation(series, maxLag)
}

// 校验并去均值
func centered(series []float64, maxLag int) ([]float64, error) {
	n := len(series)
	if n == 0 {
		return nil, errorx.New(errCode.EMPTY_VALUE, "input series empty")
	}
	if maxLag <= 0 {
		return nil, errorx.Newf(errCode.INVALID_LAG, "maxLag=%d must be > 0", maxLag)
	}
	if maxLag >= n {
		return nil, errorx.Newf(errCode.INVALID_LAG, "maxLag=%d must be < N=%d", maxLag, n)
	}
	constant := true
	sum := 0.0
	for _, x := range series {
		if x != series[0] {
			constant = false
		}
		sum += x
	}
	if constant {
		return nil, errorx.New(errCode.INVALID_VALUE, "series has zero variance")
	}
	mean := sum / float64(n)
	u := make([]float64, n)
	for i, x := range series {
		u[i] = x - mean
	}
	return u, nil
}

// AutocorrelationDirect O(N²) 直接相关, 用作 FFT 版本的对照
func AutocorrelationDirect(series []float64, maxLag int) ([]float64, error) {
	u, err := centered(series, maxLag)
	if err != nil {
		return nil, err
	}
	n := len(u)

	full, err := npCorr.Correlate(u, u, npCorr.FULL_MODE)
	if err != nil {
		return nil, err
	}
	// 正 lag 部分: full[n-1:]
	acf := append([]float64(nil), full[n-1:n-1+maxLag]...)
	return normalize(acf)
}

func normalize(acf []float64) ([]float64, error) {
	c0 := acf[0]
	if !(c0 > 0) {
		return nil, errorx.Newf(errCode.NON_FINITE, "lag-0 autocovariance %g is not positive", c0)
	}
	for k := range acf {
		acf[k] /= c0
	}
	acf[0] = 1
	return acf, nil
}
