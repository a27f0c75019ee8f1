package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"isingstat/fss"
	"isingstat/infra/config"
	"isingstat/infra/observe/log/staticLog"
	"isingstat/ising/dataio"
	"isingstat/ml/roots"
	"isingstat/report"
)

func newFSSCmd() *cobra.Command {
	var observable string
	cmd := &cobra.Command{
		Use:   "fss",
		Short: "Locate per-size peaks and fit beta_c, nu and the peak-height exponent",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			if observable == "" {
				observable = cfg.FSS.Observable
			}
			return runFSS(cmd.Context(), cfg, observable)
		},
	}
	cmd.Flags().StringVar(&observable, "observable", "", "Observable whose peak is tracked (default fss.observable)")
	return cmd
}

func newCrossingCmd() *cobra.Command {
	var observable string
	cmd := &cobra.Command{
		Use:   "crossing",
		Short: "Find the Binder cumulant crossings of consecutive lattice sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			if observable == "" {
				observable = cfg.FSS.BinderObservable
			}
			return runCrossing(cmd.Context(), cfg, observable)
		},
	}
	cmd.Flags().StringVar(&observable, "observable", "", "Cumulant column (default fss.binder_observable)")
	return cmd
}

func sortedSizes(tables map[int][]dataio.Row) []int {
	sizes := make([]int, 0, len(tables))
	for L := range tables {
		sizes = append(sizes, L)
	}
	sort.Ints(sizes)
	return sizes
}

func runFSS(ctx context.Context, cfg *config.Config, observable string) error {
	tables, err := dataio.LoadSizeTables(opts.outRoot)
	if err != nil {
		return err
	}
	var sizeTables []fss.SizeTable
	for _, L := range sortedSizes(tables) {
		pts, err := dataio.Column(tables[L], observable)
		if err != nil {
			return err
		}
		sizeTables = append(sizeTables, fss.SizeTable{L: L, Points: pts})
	}

	ex := &fss.Extractor{
		Fitter:     newFitter(cfg),
		Observable: observable,
		Window:     cfg.FSS.Window,
		Workers:    workers(cfg),
		Timeout:    cfg.Fit.Timeout,
	}
	res, err := ex.Run(ctx, sizeTables)
	if err != nil {
		return err
	}

	out := os.Stdout
	fmt.Fprintf(out, "# %s peaks\n# L\tbeta_pc\terr\tmax\terr\n", observable)
	for _, p := range res.Peaks {
		fmt.Fprintf(out, "%d\t%.8f\t%.8f\t%.6f\t%.6f\n", p.L, p.Beta, p.BetaErr, p.Value, p.ValueErr)
	}
	if c := res.Critical; c != nil {
		fmt.Fprintf(out, "beta_c = %.8f +- %.8f\nnu = %.4f +- %.4f\n", c.BetaC, c.BetaCErr, c.Nu, c.NuErr)
	}
	if a := res.Amplitude; a != nil {
		fmt.Fprintf(out, "gamma/nu = %.4f +- %.4f\n", a.GammaOverNu, a.GammaOverNuErr)
	}

	if cfg.Output.XlsxPath != "" {
		wb := report.Workbook{Tables: tables, FSS: map[string]fss.Result{observable: res}}
		if err := wb.Save(cfg.Output.XlsxPath); err != nil {
			return err
		}
		staticLog.Log.Infof("workbook written to %s", cfg.Output.XlsxPath)
	}

	store, runID, err := openRun(ctx, cfg, "fss")
	if err != nil || store == nil {
		return err
	}
	defer store.Close()
	return store.SaveFSS(ctx, runID, observable, res)
}

func runCrossing(ctx context.Context, cfg *config.Config, observable string) error {
	tables, err := dataio.LoadSizeTables(opts.outRoot)
	if err != nil {
		return err
	}
	var curves []fss.Curve
	for _, L := range sortedSizes(tables) {
		pts, err := dataio.Column(tables[L], observable)
		if err != nil {
			return err
		}
		c := fss.Curve{L: L}
		for _, p := range pts {
			c.Beta = append(c.Beta, p.Beta)
			c.U = append(c.U, p.Value)
		}
		curves = append(curves, c)
	}

	crossings := fss.FindCumulantCrossings(curves, roots.NewBrent())
	fmt.Fprintf(os.Stdout, "# L1\tL2\tbeta_cross\n")
	for _, c := range crossings {
		if c.Found {
			fmt.Fprintf(os.Stdout, "%d\t%d\t%.8f\n", c.L1, c.L2, c.Beta)
		} else {
			fmt.Fprintf(os.Stdout, "%d\t%d\tNA\n", c.L1, c.L2)
		}
	}
	if sum, err := report.CrossingSummary(crossings); err == nil {
		fmt.Fprintf(os.Stdout, "beta_cross: mean=%.8f median=%.8f std=%.8f (n=%d)\n", sum.Mean, sum.Median, sum.StdDev, sum.N)
	} else {
		staticLog.Log.Warnf("no crossing found: %v", err)
	}

	if cfg.Output.XlsxPath != "" {
		wb := report.Workbook{Tables: tables, Crossings: crossings}
		if err := wb.Save(cfg.Output.XlsxPath); err != nil {
			return err
		}
	}

	store, runID, err := openRun(ctx, cfg, "crossing")
	if err != nil || store == nil {
		return err
	}
	defer store.Close()
	return store.SaveCrossings(ctx, runID, crossings)
}
