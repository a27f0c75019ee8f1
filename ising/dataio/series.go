// 文本表格的读写: 原始时间序列, 观测量表, τ_exp 表, k 饱和表, 版本化文件
package dataio

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
)

// Series 模拟器输出: 每行 "step m e"
type Series struct {
	Steps []float64
	M     []float64
	E     []float64
}

func (s Series) Len() int { return len(s.M) }

func ReadSeries(path string) (Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return Series{}, errorx.Wrapf(err, errCode.IO_ERROR, "open %s", path)
	}
	defer f.Close()
	s, err := ParseSeries(f)
	if err != nil {
		return Series{}, errorx.Wrapf(err, errorx.CodeOf(err), "%s", path)
	}
	return s, nil
}

// ParseSeries 跳过空行, '#' 注释和非数值表头
func ParseSeries(r io.Reader) (Series, error) {
	var s Series
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		cols := strings.Fields(text)
		if len(cols) < 3 {
			return Series{}, errorx.Newf(errCode.INVALID_VALUE, "line %d: want >= 3 columns (step m e), got %d", line, len(cols))
		}
		vals, err := parseFloats(cols[:3])
		if err != nil {
			if len(s.M) == 0 {
				continue // 表头
			}
			return Series{}, errorx.Wrapf(err, errCode.INVALID_VALUE, "line %d", line)
		}
		s.Steps = append(s.Steps, vals[0])
		s.M = append(s.M, vals[1])
		s.E = append(s.E, vals[2])
	}
	if err := sc.Err(); err != nil {
		return Series{}, errorx.Wrap(err, errCode.IO_ERROR, "scan series")
	}
	if len(s.M) == 0 {
		return Series{}, errorx.New(errCode.EMPTY_VALUE, "no samples")
	}
	return s, nil
}

func parseFloats(cols []string) ([]float64, error) {
	out := make([]float64, len(cols))
	for i, c := range cols {
		v, err := strconv.ParseFloat(c, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// 浮点统一格式, NaN 原样写出
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 8, 64)
}
