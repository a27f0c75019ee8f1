package main

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"isingstat/infra/config"
	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
	"isingstat/infra/observe/log/staticLog"
	"isingstat/ising/analysis"
	"isingstat/ising/dataio"
	"isingstat/ising/observables"
	"isingstat/report"
	"isingstat/timeSeries/acf"
)

func newTauCmd() *cobra.Command {
	var (
		Ls     []int
		beta   float64
		output string
	)
	cmd := &cobra.Command{
		Use:   "tau",
		Short: "Fit the exponential relaxation time of m per lattice size",
		Long: `For every L the directory whose beta is closest to --beta is used, and every
*_v<N>.txt file in it is treated as an independent run. The run autocorrelations of m
are averaged and fitted with A*exp(-t/tau_exp); the result is merged into the tau table.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = filepath.Join(opts.outRoot, "tau_exp.txt")
			}
			return runTau(cmd.Context(), config.Get(), Ls, beta, output)
		},
	}
	cmd.Flags().IntSliceVar(&Ls, "L", nil, "Lattice sizes (default all)")
	cmd.Flags().Float64Var(&beta, "beta", observables.BetaCritical, "Target inverse temperature")
	cmd.Flags().StringVar(&output, "output", "", "tau table to merge into (default <out>/tau_exp.txt)")
	return cmd
}

func loadRuns(dataRoot string, keep func(int) bool, beta float64) (map[int][][]float64, error) {
	dirs, err := dataio.ScanPointDirs(dataRoot)
	if err != nil {
		return nil, err
	}
	groups := dataio.GroupByL(dirs)
	sizes := make([]int, 0, len(groups))
	for L := range groups {
		if keep(L) {
			sizes = append(sizes, L)
		}
	}
	sort.Ints(sizes)

	runsByL := make(map[int][][]float64, len(sizes))
	for _, L := range sizes {
		d, _ := dataio.Closest(groups[L], L, beta)
		paths, err := dataio.Versions(d.Path)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			s, err := dataio.ReadSeries(p)
			if err != nil {
				staticLog.Unit(L, d.Beta, "m").Warnf("run skipped: %v", err)
				continue
			}
			runsByL[L] = append(runsByL[L], s.M)
		}
		if len(runsByL[L]) == 0 {
			staticLog.Unit(L, d.Beta, "m").Warn("no readable runs, size skipped")
			delete(runsByL, L)
			continue
		}
		staticLog.Unit(L, d.Beta, "m").Infof("%d runs", len(runsByL[L]))
	}
	if len(runsByL) == 0 {
		return nil, errorx.Newf(errCode.EMPTY_VALUE, "no readable runs under %s", dataRoot)
	}
	return runsByL, nil
}

func relaxationFitter(cfg *config.Config) *acf.RelaxationFitter {
	rf := acf.NewRelaxationFitter(newFitter(cfg))
	rf.P0Amplitude = cfg.ACF.P0Amplitude
	rf.P0Tau = cfg.ACF.P0Tau
	rf.AutoSeed = cfg.ACF.AutoSeed
	rf.Timeout = cfg.Fit.Timeout
	return rf
}

func runTau(ctx context.Context, cfg *config.Config, Ls []int, beta float64, output string) error {
	method, err := acf.ParseMethod(cfg.ACF.Method)
	if err != nil {
		return err
	}
	runsByL, err := loadRuns(opts.dataRoot, wantL(Ls), beta)
	if err != nil {
		return err
	}
	results := analysis.EstimateRelaxationTimes(ctx, runsByL, analysis.RelaxationOptions{
		Method:  method,
		MaxLag:  cfg.ACF.MaxLag,
		Workers: workers(cfg),
		Fitter:  relaxationFitter(cfg),
	})
	if err := ctx.Err(); err != nil {
		return err
	}
	taus := analysis.Taus(results)
	if err := dataio.MergeTauTable(output, taus); err != nil {
		return err
	}
	if sum, err := report.TauSummary(taus); err == nil {
		staticLog.Log.Infof("tau_exp over %d sizes: mean=%.1f median=%.1f min=%.0f max=%.0f",
			sum.N, sum.Mean, sum.Median, sum.Min, sum.Max)
	}

	store, runID, err := openRun(ctx, cfg, "tau")
	if err != nil || store == nil {
		return err
	}
	defer store.Close()
	return store.SaveRelaxation(ctx, runID, results)
}
