package blocking

// Saturation 分块数扫描结果
type Saturation struct {
	Ks    []int
	Errs  []float64
	K     int  // 第一个误差稳定的 k
	Found bool // 未稳定时 K 无意义
}

// ErrorAt 给定 k 的误差估计, blocking 或 jackknife 都可以
type ErrorAt func(k int) (float64, error)

// ScanK 按 ks 顺序估计误差, 返回第一个相对前一个 k 变化小于 relTol 的 k.
// 非法 k (比如大于样本长度) 直接跳过.
func ScanK(ks []int, errAt ErrorAt, relTol float64) Saturation {
	sat := Saturation{Ks: make([]int, 0, len(ks)), Errs: make([]float64, 0, len(ks))}
	for _, k := range ks {
		e, err := errAt(k)
		if err != nil {
			continue
		}
		sat.Ks = append(sat.Ks, k)
		sat.Errs = append(sat.Errs, e)
	}

	for i := 1; i < len(sat.Errs); i++ {
		prev := sat.Errs[i-1]
		if prev == 0 {
			continue
		}
		delta := sat.Errs[i] - prev
		if delta < 0 {
			delta = -delta
		}
		if prev < 0 {
			prev = -prev
		}
		if delta/prev < relTol {
			sat.K = sat.Ks[i]
			sat.Found = true
			break
		}
	}
	return sat
}

// KRange [min, max] 步长 step
func KRange(min, max, step int) []int {
	if step <= 0 {
		step = 1
	}
	ks := make([]int, 0, (max-min)/step+1)
	for k := min; k <= max; k += step {
		ks = append(ks, k)
	}
	return ks
}
