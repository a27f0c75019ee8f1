// 平稳性诊断.
// ADF: H0 存在单位根 (非平稳), 用于发现未热化 (仍在漂移) 的 run;
// Ljung-Box: H0 无自相关, 用于检查块均值是否近似独立.
package adfuller

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
	"isingstat/ml/ols"
)

type ADFResult struct {
	Gamma     float64            // 单位根系数
	TStat     float64            // ADF统计量 (t值)
	PValue    float64            // t 分布 p 值, 仅供参考, 判定用 Criticals
	UsedLag   int                // 选用的滞后阶数
	NObs      int                // 有效样本量
	AIC       float64            // Akaike信息准则
	BIC       float64            // 贝叶斯信息准则
	Method    LagMode            // autolag选择方法
	Trend     string             // 趋势类型 ("n"、"c"、"ct")
	Criticals map[string]float64 // 临界值（1%, 5%, 10%）
	Coeffs    []float64          // 回归系数
}

// Stationary 在 level ("1%", "5%", "10%") 下拒绝单位根
func (r ADFResult) Stationary(level string) bool {
	c, ok := r.Criticals[level]
	return ok && r.TStat < c
}

// SchwertLag 12·(n/100)^(1/4)
func SchwertLag(n int) int {
	return int(math.Floor(12 * math.Pow(float64(n)/100, 0.25)))
}

func diff(x []float64) []float64 {
	d := make([]float64, len(x)-1)
	for i := 1; i < len(x); i++ {
		d[i-1] = x[i] - x[i-1]
	}
	return d
}

func (r *ADFResult) better(m ols.MultiLinearModel, mode LagMode) bool {
	switch mode {
	case LAG_MODE_BIC:
		return m.BIC < r.BIC
	case LAG_MODE_TSTAT:
		return m.TStats[0] < r.TStat || r.TStat == 0
	default:
		return m.AIC < r.AIC
	}
}

// AdfTest 左尾 ADF 检验
// Δy_t = γ y_{t-1} + [c] + [δ t] + Σ_{j=1..lag} φ_j Δy_{t-j} + ε_t
// 所有 lag 使用同一段样本 (去掉前 maxLag 个), 以便信息准则可比
func AdfTest(series []float64, regr string, maxLag int, autolag LagMode) (ADFResult, error) {
	crit, ok := adfCriticalValues[regr]
	if !ok {
		return ADFResult{}, errorx.Newf(errCode.INVALID_VALUE, "unknown trend %q", regr)
	}
	if autolag == LAG_MODE_ERROR {
		return ADFResult{}, errorx.New(errCode.INVALID_VALUE, "unknown autolag mode")
	}
	if maxLag < 0 || len(series) < maxLag+12 {
		return ADFResult{}, errorx.Newf(errCode.INVALID_VALUE, "%d samples too few for maxLag=%d", len(series), maxLag)
	}

	result := ADFResult{
		AIC:       math.Inf(1),
		BIC:       math.Inf(1),
		Method:    autolag,
		Criticals: crit,
		Trend:     regr,
	}

	dy := diff(series) // len = n-1
	ylag := series[:len(series)-1]
	dy1 := dy[maxLag:]
	ylag1 := ylag[maxLag:]
	nRow := len(dy1)

	for lag := 0; lag <= maxLag; lag++ {
		nCol := lag + 1
		if regr != TREND_NONE {
			nCol++
		}
		if regr == TREND_CONST_TS {
			nCol++
		}
		X := make([]float64, nRow*nCol)
		pos := 0
		for i := 0; i < nRow; i++ {
			X[pos] = ylag1[i]
			pos++
			if regr != TREND_NONE {
				X[pos] = 1
				pos++
			}
			if regr == TREND_CONST_TS {
				X[pos] = float64(i + 1)
				pos++
			}
			for j := 1; j <= lag; j++ {
				X[pos] = dy[maxLag+i-j]
				pos++
			}
		}

		model, err := ols.MultiRegressionMat(mat.NewDense(nRow, nCol, X), mat.NewVecDense(nRow, dy1))
		if err != nil {
			continue
		}
		if result.better(model, autolag) {
			result.Gamma = model.Coeffs[0]
			result.TStat = model.TStats[0]
			result.PValue = model.PValues[0]
			result.AIC = model.AIC
			result.BIC = model.BIC
			result.UsedLag = lag
			result.NObs = nRow
			result.Coeffs = model.Coeffs
		}
	}

	if math.IsInf(result.AIC, 1) || result.TStat == 0 || math.IsNaN(result.TStat) {
		return result, errorx.New(errCode.INVALID_VALUE, "ADF检验失败, 可能样本量过小或数据异常")
	}
	return result, nil
}
