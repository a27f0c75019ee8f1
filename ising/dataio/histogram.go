package dataio

import (
	"bufio"
	"fmt"
	"io"

	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
	"isingstat/ising/histogram"
)

// WriteHistogram 三列: 箱中心, P(m), 计数
func WriteHistogram(w io.Writer, L int, beta float64, bins []histogram.HistogramBin) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# L=%d beta=%s\n", L, formatFloat(beta))
	fmt.Fprintln(bw, "# m\tP(m)\tcount")
	for _, b := range bins {
		fmt.Fprintf(bw, "%s\t%s\t%d\n", formatFloat(b.Center()), formatFloat(b.Density), b.Count)
	}
	if err := bw.Flush(); err != nil {
		return errorx.Wrap(err, errCode.IO_ERROR, "write histogram")
	}
	return nil
}

// WriteHistogramFile 写入 <dir>/L<L>_beta<β>_v<N+1>.txt
func WriteHistogramFile(dir string, L int, beta float64, bins []histogram.HistogramBin) (string, error) {
	return writeVersioned(dir, PointDirName(L, beta), func(w io.Writer) error {
		return WriteHistogram(w, L, beta, bins)
	})
}
