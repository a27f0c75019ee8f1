package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
	"isingstat/infra/observe/log/staticLog"
	"isingstat/ising/dataio"
	"isingstat/ising/histogram"
)

func newHistogramCmd() *cobra.Command {
	var (
		L      int
		beta   float64
		bins   int
		toFile bool
	)
	cmd := &cobra.Command{
		Use:   "histogram",
		Short: "Magnetization distribution P(m) for the point closest to (L, beta)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistogram(L, beta, bins, toFile)
		},
	}
	cmd.Flags().IntVar(&L, "L", 0, "Lattice size")
	cmd.Flags().Float64Var(&beta, "beta", 0, "Inverse temperature; the closest available directory is used")
	cmd.Flags().IntVar(&bins, "bins", 50, "Number of equal-width bins")
	cmd.Flags().BoolVar(&toFile, "save", false, "Write <out>/L<L>/hist/<point>_v<N>.txt instead of stdout")
	_ = cmd.MarkFlagRequired("L")
	_ = cmd.MarkFlagRequired("beta")
	return cmd
}

func runHistogram(L int, beta float64, bins int, toFile bool) error {
	dirs, err := dataio.ScanPointDirs(opts.dataRoot)
	if err != nil {
		return err
	}
	d, ok := dataio.Closest(dirs, L, beta)
	if !ok {
		return errorx.Newf(errCode.EMPTY_VALUE, "no series for L=%d under %s", L, opts.dataRoot)
	}
	if d.Beta != beta {
		staticLog.Unit(L, beta, "m").Infof("using closest beta=%s", dataio.FormatBeta(d.Beta))
	}
	path, _, err := dataio.LatestVersion(d.Path)
	if err != nil {
		return err
	}
	s, err := dataio.ReadSeries(path)
	if err != nil {
		return err
	}
	hist, err := histogram.Hist(s.M, bins)
	if err != nil {
		return err
	}

	if !toFile {
		return dataio.WriteHistogram(os.Stdout, d.L, d.Beta, hist)
	}
	// 单独子目录, 避免与观测量表的版本号混在一起
	outPath, err := dataio.WriteHistogramFile(filepath.Join(dataio.SizeDir(opts.outRoot, d.L), "hist"), d.L, d.Beta, hist)
	if err != nil {
		return err
	}
	staticLog.Log.Infof("histogram written to %s", outPath)
	return nil
}
