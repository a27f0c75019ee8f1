// 一维求根
package roots

import (
	"math"

	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
)

type Func func(x float64) float64

type Finder interface {
	// Root 在 [a, b] 中找 f 的零点, 要求 f(a)·f(b) <= 0
	Root(f Func, a, b float64) (float64, error)
}

// Brent 二分 + 割线 + 逆二次插值
type Brent struct {
	XTol    float64
	MaxIter int
}

func NewBrent() *Brent {
	return &Brent{XTol: 1e-12, MaxIter: 200}
}

func (br *Brent) Root(f Func, a, b float64) (float64, error) {
	fa, fb := f(a), f(b)
	if math.IsNaN(fa) || math.IsNaN(fb) {
		return math.NaN(), errorx.Newf(errCode.NON_FINITE, "f is NaN at bracket end [%g, %g]", a, b)
	}
	if fa == 0 {
		return a, nil
	}
	if fb == 0 {
		return b, nil
	}
	if fa*fb > 0 {
		return math.NaN(), errorx.Newf(errCode.NO_BRACKET, "f(%g)=%g and f(%g)=%g have the same sign", a, fa, b, fb)
	}

	c, fc := a, fa
	d := b - a
	e := d
	for i := 0; i < br.MaxIter; i++ {
		if fb*fc > 0 {
			c, fc = a, fa
			d = b - a
			e = d
		}
		if math.Abs(fc) < math.Abs(fb) {
			a, b, c = b, c, b
			fa, fb, fc = fb, fc, fb
		}
		tol := 2*1e-16*math.Abs(b) + 0.5*br.XTol
		m := 0.5 * (c - b)
		if math.Abs(m) <= tol || fb == 0 {
			return b, nil
		}
		if math.Abs(e) >= tol && math.Abs(fa) > math.Abs(fb) {
			var p, q float64
			s := fb / fa
			if a == c {
				p = 2 * m * s
				q = 1 - s
			} else {
				qq := fa / fc
				r := fb / fc
				p = s * (2*m*qq*(qq-r) - (b-a)*(r-1))
				q = (qq - 1) * (r - 1) * (s - 1)
			}
			if p > 0 {
				q = -q
			} else {
				p = -p
			}
			if 2*p < math.Min(3*m*q-math.Abs(tol*q), math.Abs(e*q)) {
				e = d
				d = p / q
			} else {
				d = m
				e = d
			}
		} else {
			d = m
			e = d
		}
		a, fa = b, fb
		if math.Abs(d) > tol {
			b += d
		} else {
			b += math.Copysign(tol, m)
		}
		fb = f(b)
		if math.IsNaN(fb) {
			return math.NaN(), errorx.Newf(errCode.NON_FINITE, "f is NaN at %g", b)
		}
	}
	return b, errorx.Newf(errCode.CROSSING_NOT_FOUND, "brent did not converge in %d iterations", br.MaxIter)
}
