// 观测量目录: 封闭的具名集合, 每一项带着自己的初级变换和组合函数
package observables

import (
	"math"

	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
	"isingstat/timeSeries/blocking"
)

// BetaCritical 二维方格 Ising 模型的精确临界点 ln(1+√2)/2
const BetaCritical = 0.4406867935097715

type Source int

const (
	Magnetization Source = iota
	Energy
)

func (s Source) String() string {
	if s == Energy {
		return "e"
	}
	return "m"
}

type Kind int

const (
	Primary   Kind = iota // 分块均值
	Secondary             // jackknife
)

// Combiner 由初级均值组合出次级量, volume = L²
type Combiner func(means []float64, volume float64) float64

type Observable struct {
	Name      string
	Label     string // 表头列名
	Source    Source
	Kind      Kind
	Primaries []blocking.Transform
	Combine   Combiner // Primary 为 nil
}

func square(x float64) float64 { return x * x }
func fourth(x float64) float64 { x2 := x * x; return x2 * x2 }

// 表格列顺序固定
var catalog = []Observable{
	{Name: "m", Label: "<m>", Source: Magnetization, Kind: Primary, Primaries: []blocking.Transform{blocking.Identity}},
	{Name: "abs_m", Label: "<|m|>", Source: Magnetization, Kind: Primary, Primaries: []blocking.Transform{math.Abs}},
	{Name: "m2", Label: "<m^2>", Source: Magnetization, Kind: Primary, Primaries: []blocking.Transform{square}},
	{Name: "e", Label: "<e>", Source: Energy, Kind: Primary, Primaries: []blocking.Transform{blocking.Identity}},
	{
		Name: "abs_m_sq", Label: "<|m|>^2", Source: Magnetization, Kind: Secondary,
		Primaries: []blocking.Transform{math.Abs},
		Combine:   func(m []float64, _ float64) float64 { return m[0] * m[0] },
	},
	{
		Name: "chi_prime", Label: "chi'", Source: Magnetization, Kind: Secondary,
		Primaries: []blocking.Transform{square, math.Abs},
		Combine:   func(m []float64, v float64) float64 { return v * (m[0] - m[1]*m[1]) },
	},
	{
		Name: "chi", Label: "chi", Source: Magnetization, Kind: Secondary,
		Primaries: []blocking.Transform{square},
		Combine:   func(m []float64, v float64) float64 { return v * m[0] },
	},
	{
		Name: "U", Label: "U", Source: Magnetization, Kind: Secondary,
		Primaries: []blocking.Transform{square, fourth},
		Combine:   func(m []float64, _ float64) float64 { return 1 - m[1]/(3*m[0]*m[0]) },
	},
	{
		Name: "C", Label: "C", Source: Energy, Kind: Secondary,
		Primaries: []blocking.Transform{blocking.Identity, square},
		Combine:   func(m []float64, v float64) float64 { return v * (m[1] - m[0]*m[0]) },
	},
}

func All() []Observable {
	return append([]Observable(nil), catalog...)
}

func Names() []string {
	out := make([]string, len(catalog))
	for i, o := range catalog {
		out[i] = o.Name
	}
	return out
}

func Lookup(name string) (Observable, error) {
	for _, o := range catalog {
		if o.Name == name {
			return o, nil
		}
	}
	return Observable{}, errorx.Newf(errCode.INVALID_VALUE, "unknown observable %q", name)
}

// Index 在表格中的列序号 (从 0 起, 不含 β 列)
func Index(name string) (int, error) {
	for i, o := range catalog {
		if o.Name == name {
			return i, nil
		}
	}
	return -1, errorx.Newf(errCode.INVALID_VALUE, "unknown observable %q", name)
}

// Secondary 绑定体积后的 jackknife 组合函数
func (o Observable) Secondary(L int) func(means []float64) float64 {
	v := float64(L) * float64(L)
	return func(means []float64) float64 { return o.Combine(means, v) }
}
