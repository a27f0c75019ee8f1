// 自相关 => 卷积, 用 FFT 加速:
//  1. 去均值, 零填充到 L = nextPow2(2N) 避免循环卷积回绕
//  2. X = FFT(x)
//  3. |X|² = X·conj(X)
//  4. IFFT(|X|²)/L 即线性自相关和
//
// 复杂度 O(N·maxLag) => O(N log N)
package acf

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// Autocorrelation 归一化自相关 C(0..maxLag-1), C(0) = 1
func Autocorrelation(series []float64, maxLag int) ([]float64, error) {
	u, err := centered(series, maxLag)
	if err != nil {
		return nil, err
	}
	n := len(u)

	L := nextPow2(2 * n)
	seq := make([]float64, L)
	copy(seq, u)

	fft := fourier.NewFFT(L)
	coeff := fft.Coefficients(nil, seq) // len = L/2 + 1
	for i, c := range coeff {
		re, im := real(c), imag(c)
		coeff[i] = complex(re*re+im*im, 0)
	}
	// Coefficients 再 Sequence 会乘以 L
	acTime := fft.Sequence(nil, coeff)
	scale := 1.0 / float64(L)

	acf := make([]float64, maxLag)
	for k := range acf {
		acf[k] = acTime[k] * scale
	}
	return normalize(acf)
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
