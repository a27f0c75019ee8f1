package npCorr

import (
	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
)

// Correlate 与 np.correlate 一致:
//
//	full[i] = Σ_j a[i-(m-1)+j] · v[j],  i = 0 .. n+m-2
//
// same 取 full 中间 max(n,m) 个, valid 取 n-m+1 个 (要求 n >= m)
func Correlate(a, v []float64, mode CORRELATE_MODE) ([]float64, error) {
	n, m := len(a), len(v)
	if n == 0 || m == 0 {
		return nil, errorx.New(errCode.EMPTY_VALUE, "input length is not enough")
	}
	if mode != FULL_MODE && mode != VALID_MODE && mode != SAME_MODE {
		return nil, errorx.New(errCode.INVALID_VALUE, "invalid mode, expected 'full', 'same' or 'valid'")
	}
	if mode != FULL_MODE && m > n {
		return []float64{}, errorx.New(errCode.INVALID_VALUE, "same/valid mode requires len(a) >= len(v)")
	}

	var outLen, start int
	switch mode {
	case FULL_MODE:
		outLen = n + m - 1
	case SAME_MODE:
		outLen = n
		start = (m - 1) / 2
	case VALID_MODE:
		outLen = n - m + 1
		start = m - 1
	}

	out := make([]float64, outLen)
	for i := 0; i < outLen; i++ {
		shift := i + start - (m - 1) // a 相对 v 的偏移
		jLo, jHi := 0, m
		if shift < 0 {
			jLo = -shift
		}
		if shift+m > n {
			jHi = n - shift
		}
		sum := 0.0
		for j := jLo; j < jHi; j++ {
			sum += a[shift+j] * v[j]
		}
		out[i] = sum
	}

	return out, nil
}

type CORRELATE_MODE uint

const (
	FULL_MODE CORRELATE_MODE = iota
	VALID_MODE
	SAME_MODE
)
