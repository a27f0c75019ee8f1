package ols

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
	"isingstat/infra/observe/log/staticLog"
)

type MultiLinearModel struct {
	Coeffs      []float64 // 回归系数
	SE          []float64 // 标准误
	TStats      []float64 // t统计量
	PValues     []float64 // p值（双尾）
	Resids      []float64 // 残差
	Cov         *mat.Dense
	AIC         float64
	BIC         float64
	Sigma2      float64 // 残差方差
	RSquared    float64
	AdjRSquared float64
}

func MultiRegressionMat(matX *mat.Dense, matY *mat.VecDense) (MultiLinearModel, error) {
	n, k := matX.Dims()
	df := float64(n - k)
	if df <= 0 {
		return MultiLinearModel{}, errorx.New(errCode.INVALID_VALUE, fmt.Sprintf("自由度 df=%v 非法：样本数 n 必须大于参数数 k", df))
	}

	// 计算 (X'X)
	var XTX mat.Dense
	XTX.Mul(matX.T(), matX)

	// (X'X)^(-1), 不可逆时退化到广义逆
	var invXTX mat.Dense
	if err := invXTX.Inverse(&XTX); err != nil {
		staticLog.Log.Debugf("warning XTX矩阵不可逆 %s", err)
		pinv, errSVD := PseudoInverse(&XTX)
		if errSVD != nil {
			return MultiLinearModel{}, errSVD
		}
		invXTX.CloneFrom(pinv)
	}

	// β = (X'X)^(-1) * (X'Y)
	var XTY mat.VecDense
	XTY.MulVec(matX.T(), matY)
	var beta mat.VecDense
	beta.MulVec(&invXTX, &XTY)

	// 预测值 & 残差
	Yhat := mat.NewVecDense(n, nil)
	Yhat.MulVec(matX, &beta)
	resid := mat.NewVecDense(n, nil)
	resid.SubVec(matY, Yhat)

	RSS := mat.Dot(resid, resid)
	// 残差方差 σ² = RSS / (n - k)
	sigma2 := RSS / df

	// 标准误 SE = sqrt( diag(σ² * (X'X)^(-1)) )
	SE := make([]float64, k)
	tStats := make([]float64, k)
	pValues := make([]float64, k)
	tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	for i := 0; i < k; i++ {
		SE[i] = math.Sqrt(sigma2 * invXTX.At(i, i))
		tStats[i] = beta.AtVec(i) / SE[i]
		pValues[i] = 2 * tdist.Survival(math.Abs(tStats[i]))
	}

	// R² & 调整后R²
	Ymean := mat.Sum(matY) / float64(n)
	TSS := 0.0
	for i := 0; i < n; i++ {
		diff := matY.AtVec(i) - Ymean
		TSS += diff * diff
	}
	RSq := 1 - RSS/TSS
	AdjRSq := 1 - (1-RSq)*float64(n-1)/df

	// AIC / BIC
	logLik := -0.5 * float64(n) * (1 + math.Log(2*math.Pi*RSS/float64(n)))
	AIC := -2*logLik + 2*float64(k)
	BIC := -2*logLik + float64(k)*math.Log(float64(n))

	coeffs := make([]float64, k)
	for i := 0; i < k; i++ {
		coeffs[i] = beta.AtVec(i)
	}
	return MultiLinearModel{
		Coeffs:      coeffs,
		SE:          SE,
		TStats:      tStats,
		PValues:     pValues,
		Resids:      resid.RawVector().Data,
		Cov:         &invXTX,
		AIC:         AIC,
		BIC:         BIC,
		Sigma2:      sigma2,
		RSquared:    RSq,
		AdjRSquared: AdjRSq,
	}, nil
}

func MultiRegression(X [][]float64, Y []float64, withConst bool) (MultiLinearModel, error) {
	matX, matY, err := buildMat(X, Y, nil, withConst)
	if err != nil {
		return MultiLinearModel{}, err
	}
	return MultiRegressionMat(matX, matY)
}

// WeightedRegression 加权最小二乘, 权重 1/σ²; 每行同乘 1/σ 后按普通 OLS 求解.
// 返回的 Cov 为 (X'WX)^(-1), 即 σ 当作绝对误差时的系数协方差.
func WeightedRegression(X [][]float64, Y []float64, sigma []float64, withConst bool) (MultiLinearModel, error) {
	if len(sigma) != len(Y) {
		return MultiLinearModel{}, errorx.New(errCode.INVALID_VALUE, "sigma 长度与 Y 不匹配")
	}
	for _, s := range sigma {
		if !(s > 0) || math.IsInf(s, 0) {
			return MultiLinearModel{}, errorx.New(errCode.INVALID_VALUE, fmt.Sprintf("sigma 必须为正的有限值, got %v", s))
		}
	}
	matX, matY, err := buildMat(X, Y, sigma, withConst)
	if err != nil {
		return MultiLinearModel{}, err
	}
	return MultiRegressionMat(matX, matY)
}

func buildMat(X [][]float64, Y []float64, sigma []float64, withConst bool) (*mat.Dense, *mat.VecDense, error) {
	n := len(Y)
	if n == 0 || len(X) == 0 {
		return nil, nil, errorx.New(errCode.EMPTY_VALUE, "输入数据为空")
	}
	if n != len(X) {
		return nil, nil, errorx.New(errCode.INVALID_VALUE, "数据长度不匹配")
	}
	if withConst {
		X = addConstantColumn(X)
	}
	k := len(X[0])

	dataX := make([]float64, n*k)
	dataY := make([]float64, n)
	for i := 0; i < n; i++ {
		if len(X[i]) != k {
			return nil, nil, errorx.New(errCode.INVALID_VALUE, "X 行长度不一致")
		}
		w := 1.0
		if sigma != nil {
			w = 1 / sigma[i]
		}
		for j := 0; j < k; j++ {
			dataX[i*k+j] = X[i][j] * w
		}
		dataY[i] = Y[i] * w
	}
	return mat.NewDense(n, k, dataX), mat.NewVecDense(n, dataY), nil
}

// PseudoInverse 用SVD 求解广义逆矩阵
func PseudoInverse(A mat.Matrix) (*mat.Dense, error) {
	var svd mat.SVD
	ok := svd.Factorize(A, mat.SVDThin)
	if !ok {
		return nil, errorx.New(errCode.INVALID_VALUE, "SVD分解失败")
	}

	// 提取 U, Σ, Vᵀ
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	// 取 Σ 的倒数, 小奇异值截断
	sigma := svd.Values(nil)
	tol := 1e-12
	if len(sigma) > 0 {
		tol *= sigma[0]
	}
	sInv := mat.NewDense(len(sigma), len(sigma), nil)
	for i, val := range sigma {
		if val > tol {
			sInv.Set(i, i, 1.0/val)
		}
	}

	// 计算伪逆 A⁺ = V * Σ⁺ * Uᵀ
	var temp mat.Dense
	temp.Mul(&v, sInv)
	var pinv mat.Dense
	pinv.Mul(&temp, u.T())

	return &pinv, nil
}

// 添加常数项
func addConstantColumn(X [][]float64) [][]float64 {
	n := len(X)
	if n == 0 {
		return X
	}
	k := len(X[0])

	// 新矩阵 n × (k+1)
	newX := make([][]float64, n)
	for i := 0; i < n; i++ {
		newRow := make([]float64, k+1)
		newRow[0] = 1.0 // 第一列为常数项
		copy(newRow[1:], X[i])
		newX[i] = newRow
	}
	return newX
}
