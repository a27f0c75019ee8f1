package main

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"isingstat/infra/config"
	"isingstat/infra/observe/log/staticLog"
	"isingstat/ising/analysis"
	"isingstat/ising/dataio"
	"isingstat/timeSeries/blocking"
)

func newKScanCmd() *cobra.Command {
	var (
		Ls     []int
		output string
	)
	cmd := &cobra.Command{
		Use:   "kscan",
		Short: "Find the block count at which each observable's error saturates",
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = filepath.Join(opts.outRoot, "k_saturation.txt")
			}
			return runKScan(cmd.Context(), config.Get(), Ls, output)
		},
	}
	cmd.Flags().IntSliceVar(&Ls, "L", nil, "Lattice sizes to scan (default all)")
	cmd.Flags().StringVar(&output, "output", "", "k table to merge into (default <out>/k_saturation.txt)")
	return cmd
}

func runKScan(ctx context.Context, cfg *config.Config, Ls []int, output string) error {
	samples, err := loadSamples(opts.dataRoot, wantL(Ls))
	if err != nil {
		return err
	}
	ks := blocking.KRange(cfg.KScan.Min, cfg.KScan.Max, cfg.KScan.Step)
	var entries []dataio.KEntry
	for _, s := range samples {
		fileID := dataio.PointDirName(s.L, s.Beta)
		for _, scan := range analysis.ScanK(ctx, s, ks, cfg.KScan.RelTol) {
			if err := ctx.Err(); err != nil {
				return err
			}
			entries = append(entries, dataio.KEntry{
				FileID:     fileID,
				Observable: scan.Observable,
				K:          scan.K,
				Found:      scan.Found,
			})
			if !scan.Found {
				staticLog.Unit(s.L, s.Beta, scan.Observable).Warnf("error did not saturate for k in [%d, %d]", cfg.KScan.Min, cfg.KScan.Max)
			}
		}
	}
	if err := dataio.MergeKTable(output, entries); err != nil {
		return err
	}
	staticLog.Log.Infof("%d k entries merged into %s", len(entries), output)
	return nil
}
