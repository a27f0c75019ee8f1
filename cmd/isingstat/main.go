package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"isingstat/infra/config"
	"isingstat/infra/observe/log/staticLog"
	"isingstat/ml/curvefit"
)

type rootOptions struct {
	configPath string
	dataRoot   string // L<L>_beta<β>/ 输入目录
	outRoot    string // L<L>/ 结果目录
}

var (
	opts      rootOptions
	logCloser io.Closer
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "isingstat",
		Short:         "Statistical analysis of 2D Ising Monte Carlo time series",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Init(opts.configPath)
			if err != nil {
				return err
			}
			logCloser = staticLog.Init(cfg.Log)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logCloser != nil {
				logCloser.Close()
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&opts.dataRoot, "data", "data", "Root of the L<L>_beta<beta> series directories")
	rootCmd.PersistentFlags().StringVar(&opts.outRoot, "out", "results", "Root of the per-size result tables")

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newKScanCmd(),
		newTauCmd(),
		newFSSCmd(),
		newCrossingCmd(),
		newHistogramCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

func workers(cfg *config.Config) int {
	if cfg.Analysis.Workers > 0 {
		return cfg.Analysis.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func newFitter(cfg *config.Config) curvefit.Fitter {
	return curvefit.NewLevenbergMarquardt(cfg.Fit.MaxIter)
}

// 只保留 Ls 中的尺寸; Ls 为空时全部保留
func wantL(Ls []int) func(int) bool {
	if len(Ls) == 0 {
		return func(int) bool { return true }
	}
	set := make(map[int]bool, len(Ls))
	for _, L := range Ls {
		set[L] = true
	}
	return func(L int) bool { return set[L] }
}
