package analysis

import (
	"isingstat/infra/observe/log/staticLog"
	"isingstat/timeSeries/adfuller"
	"isingstat/timeSeries/blocking"
)

// ADF 前先把原始序列分块平均到不超过该长度
const adfPoints = 1000

type Diagnostics struct {
	ADF        adfuller.ADFResult
	Stationary bool // 5% 水平拒绝单位根
	LBQ        float64
	LBPValue   float64
	LBReject   bool // 块均值之间仍有显著相关, k 偏大
}

// Diagnose 只给出警告, 不改变估计
func Diagnose(series []float64, k int) (Diagnostics, error) {
	var d Diagnostics

	coarse := series
	if len(series) > adfPoints {
		b, err := blocking.Partition(series, adfPoints)
		if err != nil {
			return d, err
		}
		if coarse, err = b.Means(blocking.Identity); err != nil {
			return d, err
		}
	}
	adf, err := adfuller.AdfTest(coarse, adfuller.TREND_CONST, adfuller.SchwertLag(len(coarse)), adfuller.LAG_MODE_AIC)
	if err != nil {
		return d, err
	}
	d.ADF = adf
	d.Stationary = adf.Stationary("5%")

	b, err := blocking.Partition(series, k)
	if err != nil {
		return d, err
	}
	means, err := b.Means(blocking.Identity)
	if err != nil {
		return d, err
	}
	lags := max(1, min(10, k/4))
	d.LBReject, d.LBQ, d.LBPValue, err = adfuller.LjungBoxTest(means, lags, 0.05)
	return d, err
}

func (d Diagnostics) Log(L int, beta float64) {
	entry := staticLog.Unit(L, beta, "m")
	if !d.Stationary {
		entry.Warnf("series looks non-stationary (ADF t=%.3f, lag %d): check thermalization", d.ADF.TStat, d.ADF.UsedLag)
	}
	if d.LBReject {
		entry.Warnf("block means are correlated (Ljung-Box Q=%.2f, p=%.3g): blocks shorter than the autocorrelation time", d.LBQ, d.LBPValue)
	}
}
