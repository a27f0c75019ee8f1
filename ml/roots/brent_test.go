package roots

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
)

func TestBrentRoots(t *testing.T) {
	br := NewBrent()
	cases := []struct {
		name string
		f    Func
		a, b float64
		want float64
	}{
		{"linear", func(x float64) float64 { return 2*x - 1 }, 0, 1, 0.5},
		{"cubic", func(x float64) float64 { return x*x*x - 2 }, 0, 2, math.Cbrt(2)},
		{"cos", math.Cos, 1, 2, math.Pi / 2},
		{"endpoint", func(x float64) float64 { return x - 3 }, 3, 4, 3},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := br.Root(c.f, c.a, c.b)
			require.NoError(t, err)
			assert.InDelta(t, c.want, got, 1e-10)
		})
	}
}

func TestBrentNoBracket(t *testing.T) {
	_, err := NewBrent().Root(func(x float64) float64 { return x*x + 1 }, -1, 1)
	require.Error(t, err)
	assert.True(t, errorx.Is(err, errCode.NO_BRACKET))
}
