package curvefit

import (
	"context"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
	"isingstat/infra/observe/log/staticLog"
	"isingstat/ml/ols"
)

const (
	lambdaInit = 1e-3
	lambdaMin  = 1e-12
	lambdaMax  = 1e16
)

// LevenbergMarquardt 加权残差 r_i = (y_i - f(x_i; p)) / σ_i, Jacobian 用中心差分
type LevenbergMarquardt struct {
	MaxIter int
	FTol    float64 // χ² 相对下降
	XTol    float64 // 步长相对参数
	GTol    float64 // 残差与 Jacobian 列夹角余弦
}

func NewLevenbergMarquardt(maxIter int) *LevenbergMarquardt {
	if maxIter <= 0 {
		maxIter = 1000
	}
	return &LevenbergMarquardt{MaxIter: maxIter, FTol: 1e-12, XTol: 1e-10, GTol: 1e-10}
}

type lmState struct {
	prob  Problem
	n, np int
	w     []float64
}

func (s *lmState) resid(dst, p []float64) {
	for i := 0; i < s.n; i++ {
		dst[i] = (s.prob.Y[i] - s.prob.Model(s.prob.X[i], p)) * s.w[i]
	}
}

func (s *lmState) jacobian(J *mat.Dense, p []float64) {
	fd.Jacobian(J, s.resid, p, &fd.JacobianSettings{Formula: fd.Central})
}

// 最大 |cos(r, J_i)|
func gradCosine(J *mat.Dense, r, g []float64) float64 {
	rn := floats.Norm(r, 2)
	if rn == 0 {
		return 0
	}
	_, np := J.Dims()
	worst := 0.0
	for i := 0; i < np; i++ {
		cn := mat.Norm(J.ColView(i), 2)
		if cn == 0 {
			continue
		}
		if c := math.Abs(g[i]) / (cn * rn); c > worst {
			worst = c
		}
	}
	return worst
}

func (lm *LevenbergMarquardt) Fit(ctx context.Context, prob Problem) (Result, error) {
	if err := prob.validate(); err != nil {
		return Result{}, err
	}
	s := &lmState{prob: prob, n: len(prob.X), np: len(prob.P0), w: make([]float64, len(prob.X))}
	for i := range s.w {
		s.w[i] = 1
		if prob.Sigma != nil {
			s.w[i] = 1 / prob.Sigma[i]
		}
	}

	p := append([]float64(nil), prob.P0...)
	r := make([]float64, s.n)
	s.resid(r, p)
	cost := floats.Dot(r, r)
	if !finite(cost) {
		return Result{}, errorx.Newf(errCode.NON_FINITE, "model is not finite at initial guess %v", p)
	}

	// 精确数据在舍入噪声处停下
	scale := 0.0
	for i, y := range prob.Y {
		scale += (y * s.w[i]) * (y * s.w[i])
	}
	costFloor := 1e-26 * math.Max(scale, 1e-300)

	J := mat.NewDense(s.n, s.np, nil)
	var A, Ad mat.Dense
	g := make([]float64, s.np)
	pNew := make([]float64, s.np)
	rNew := make([]float64, s.n)
	lambda := lambdaInit

	converged := false
	iter := 0
	for iter = 1; iter <= lm.MaxIter && !converged; iter++ {
		if err := ctx.Err(); err != nil {
			return Result{}, errorx.Wrapf(err, errCode.FIT_DID_NOT_CONVERGE, "fit interrupted after %d iterations", iter-1)
		}

		// 1) 法方程 A = JᵀJ, g = Jᵀr
		s.jacobian(J, p)
		A.Reset()
		A.Mul(J.T(), J)
		gv := mat.NewVecDense(s.np, g)
		gv.MulVec(J.T(), mat.NewVecDense(s.n, r))

		if cost <= costFloor || gradCosine(J, r, g) <= lm.GTol {
			converged = true
			break
		}

		// 2) 阻尼步, 不下降就加大 λ
		for {
			Ad.Reset()
			Ad.CloneFrom(&A)
			for i := 0; i < s.np; i++ {
				Ad.Set(i, i, A.At(i, i)+lambda*math.Max(A.At(i, i), 1e-12))
			}
			negG := mat.NewVecDense(s.np, nil)
			negG.ScaleVec(-1, gv)
			var delta mat.VecDense
			solveErr := delta.SolveVec(&Ad, negG)
			if solveErr == nil {
				floats.AddTo(pNew, p, delta.RawVector().Data)
				s.resid(rNew, pNew)
				costNew := floats.Dot(rNew, rNew)
				if finite(costNew) && costNew < cost {
					step := floats.Norm(delta.RawVector().Data, 2)
					if cost-costNew <= lm.FTol*cost || step <= lm.XTol*(floats.Norm(p, 2)+lm.XTol) {
						converged = true
					}
					copy(p, pNew)
					copy(r, rNew)
					cost = costNew
					lambda = math.Max(lambda/10, lambdaMin)
					break
				}
			}
			lambda *= 10
			if lambda > lambdaMax {
				// 任何方向都无法再下降: 梯度足够小时视为已在极小点
				if cost <= costFloor || gradCosine(J, r, g) <= 1e-4 {
					converged = true
				}
				break
			}
		}
		if lambda > lambdaMax && !converged {
			break
		}
	}
	if !converged {
		return Result{}, errorx.Newf(errCode.FIT_DID_NOT_CONVERGE, "no convergence after %d iterations (chi2=%g, p=%v)", iter-1, cost, p)
	}

	// 3) 解处的协方差
	s.jacobian(J, p)
	A.Reset()
	A.Mul(J.T(), J)
	var cov mat.Dense
	if err := cov.Inverse(&A); err != nil {
		staticLog.Log.Debugf("curvefit: JᵀJ ill-conditioned (%v), using pseudo-inverse", err)
		pinv, errSVD := ols.PseudoInverse(&A)
		if errSVD != nil {
			return Result{}, errorx.Wrap(errSVD, errCode.FIT_DID_NOT_CONVERGE, "covariance")
		}
		cov.CloneFrom(pinv)
	}
	dof := s.n - s.np
	if !prob.AbsoluteSigma && dof > 0 {
		cov.Scale(cost/float64(dof), &cov)
	}

	errs := make([]float64, s.np)
	for i := range errs {
		errs[i] = math.Sqrt(cov.At(i, i))
		if !finite(errs[i]) {
			return Result{}, errorx.Newf(errCode.FIT_DID_NOT_CONVERGE, "parameter %d has undefined uncertainty", i)
		}
	}

	return Result{
		Params:     p,
		Errors:     errs,
		Cov:        &cov,
		ChiSq:      cost,
		Dof:        dof,
		Iterations: iter,
	}, nil
}
