package main

import (
	"context"
	"sort"

	"github.com/spf13/cobra"

	"isingstat/infra/config"
	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
	"isingstat/infra/observe/log/staticLog"
	"isingstat/ising/analysis"
	"isingstat/ising/dataio"
	"isingstat/ising/observables"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		Ls       []int
		kTable   string
		diagnose bool
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Estimate every observable with errors for each (L, beta) point",
		Long: `Reads the latest *_v<N>.txt series in every L<L>_beta<beta> directory, estimates the
observable catalog (blocking for primaries, jackknife for secondaries) and writes one
versioned table per L under --out.

Example: isingstat analyze --data data --out results --L 16,32 --k-table results/k_saturation.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), config.Get(), Ls, kTable, diagnose)
		},
	}
	cmd.Flags().IntSliceVar(&Ls, "L", nil, "Lattice sizes to analyze (default all)")
	cmd.Flags().StringVar(&kTable, "k-table", "", "k saturation table; its entries override analysis.k_per_observable")
	cmd.Flags().BoolVar(&diagnose, "diagnose", false, "Run ADF and Ljung-Box diagnostics on the magnetization")
	return cmd
}

func loadSamples(dataRoot string, keep func(int) bool) ([]analysis.Sample, error) {
	dirs, err := dataio.ScanPointDirs(dataRoot)
	if err != nil {
		return nil, err
	}
	var samples []analysis.Sample
	for _, d := range dirs {
		if !keep(d.L) {
			continue
		}
		path, version, err := dataio.LatestVersion(d.Path)
		if err != nil {
			staticLog.Unit(d.L, d.Beta, "").Warnf("skipped: %v", err)
			continue
		}
		s, err := dataio.ReadSeries(path)
		if err != nil {
			staticLog.Unit(d.L, d.Beta, "").Warnf("skipped: %v", err)
			continue
		}
		staticLog.Unit(d.L, d.Beta, "").Debugf("loaded v%d with %d samples", version, s.Len())
		samples = append(samples, analysis.Sample{L: d.L, Beta: d.Beta, M: s.M, E: s.E})
	}
	if len(samples) == 0 {
		return nil, errorx.Newf(errCode.EMPTY_VALUE, "no readable series under %s", dataRoot)
	}
	return samples, nil
}

func kSelector(cfg *config.Config, kTable string) (func(string) int, error) {
	override := map[string]int{}
	if kTable != "" {
		entries, err := dataio.ReadKTable(kTable)
		if err != nil {
			return nil, err
		}
		override = dataio.SelectK(entries, observables.BetaCritical)
		staticLog.Log.Infof("k from %s: %v", kTable, override)
	}
	return func(name string) int {
		if k, ok := override[name]; ok {
			return k
		}
		return cfg.KFor(name)
	}, nil
}

func runAnalyze(ctx context.Context, cfg *config.Config, Ls []int, kTable string, diagnose bool) error {
	samples, err := loadSamples(opts.dataRoot, wantL(Ls))
	if err != nil {
		return err
	}
	kFor, err := kSelector(cfg, kTable)
	if err != nil {
		return err
	}
	a := &analysis.Analyzer{
		Workers:  workers(cfg),
		DefaultK: cfg.Analysis.DefaultK,
		KFor:     kFor,
		Diagnose: diagnose,
	}
	results, err := a.AnalyzeBatch(ctx, samples)
	if err != nil {
		return err
	}

	bySize := map[int][]dataio.Row{}
	failed := 0
	for _, r := range results {
		bySize[r.L] = append(bySize[r.L], dataio.Row{Beta: r.Beta, Values: r.Values})
		failed += len(r.Failures)
	}
	sizes := make([]int, 0, len(bySize))
	for L := range bySize {
		sizes = append(sizes, L)
	}
	sort.Ints(sizes)
	for _, L := range sizes {
		path, err := dataio.WriteObservablesFile(opts.outRoot, L, bySize[L])
		if err != nil {
			return err
		}
		staticLog.Log.WithField("L", L).Infof("%d points written to %s", len(bySize[L]), path)
	}
	if failed > 0 {
		staticLog.Log.Warnf("%d observable estimates failed, written as NaN", failed)
	}

	store, runID, err := openRun(ctx, cfg, "analyze")
	if err != nil || store == nil {
		return err
	}
	defer store.Close()
	return store.SaveObservables(ctx, runID, results)
}
