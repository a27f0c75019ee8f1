// 分块: 把相关的时间序列切成 k 个等长连续块, 块内保留短程相关, 只在块之间做平均
package blocking

import (
	"math"

	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
)

// Transform 作用在单个样本上的函数 F(x)
type Transform func(x float64) float64

func Identity(x float64) float64 { return x }

// Blocks 只读视图, 不复制原序列
type Blocks struct {
	data []float64 // 前 M*k 个样本
	k    int
	m    int
	n    int // 原始长度
}

// Partition 2 <= k <= N; M = N/k 向下取整, 尾部 N-M*k 个样本丢弃
func Partition(series []float64, k int) (*Blocks, error) {
	n := len(series)
	if k < 2 {
		return nil, errorx.Newf(errCode.INVALID_BLOCK_COUNT, "invalid block count k=%d: must be >= 2", k)
	}
	if k > n {
		return nil, errorx.Newf(errCode.INVALID_BLOCK_COUNT, "invalid block count k=%d: must be <= N=%d", k, n)
	}
	m := n / k
	return &Blocks{data: series[:m*k], k: k, m: m, n: n}, nil
}

func (b *Blocks) K() int { return b.k }

// M 每块长度
func (b *Blocks) M() int { return b.m }

func (b *Blocks) Used() int { return b.m * b.k }

func (b *Blocks) Dropped() int { return b.n - b.m*b.k }

// Block 第 i 块, 返回子切片, 调用方不得修改
func (b *Blocks) Block(i int) []float64 {
	return b.data[i*b.m : (i+1)*b.m]
}

// Sums 每块 F(x) 的和; 出现 NaN/Inf 时报错
func (b *Blocks) Sums(fn Transform) ([]float64, error) {
	if fn == nil {
		fn = Identity
	}
	sums := make([]float64, b.k)
	for i := 0; i < b.k; i++ {
		s := 0.0
		for _, x := range b.Block(i) {
			s += fn(x)
		}
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, errorx.Newf(errCode.NON_FINITE, "non-finite transform sum in block %d", i)
		}
		sums[i] = s
	}
	return sums, nil
}

// Means 每块 F(x) 的平均
func (b *Blocks) Means(fn Transform) ([]float64, error) {
	sums, err := b.Sums(fn)
	if err != nil {
		return nil, err
	}
	for i := range sums {
		sums[i] /= float64(b.m)
	}
	return sums, nil
}
