package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"isingstat/infra/config"
	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
	"isingstat/ising/dataio"
)

func TestWantL(t *testing.T) {
	all := wantL(nil)
	assert.True(t, all(8))
	some := wantL([]int{8, 32})
	assert.True(t, some(32))
	assert.False(t, some(16))
}

func TestKSelector(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.KPerObservable["chi"] = 20

	path := filepath.Join(t.TempDir(), "k.txt")
	require.NoError(t, dataio.MergeKTable(path, []dataio.KEntry{
		{FileID: "L32_beta0.44", Observable: "U", K: 40, Found: true},
		{FileID: "L8_beta0.44", Observable: "chi", K: 8, Found: true},
	}))
	kFor, err := kSelector(cfg, path)
	require.NoError(t, err)
	assert.Equal(t, 40, kFor("U"))
	assert.Equal(t, 20, kFor("chi"))
	assert.Equal(t, cfg.Analysis.DefaultK, kFor("m"))
}

func writeSeries(t *testing.T, dir, name string, n int, rng *rand.Rand) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	var b strings.Builder
	b.WriteString("step m e\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%d %.6f %.6f\n", i, 0.5+0.1*rng.NormFloat64(), -1.5+0.1*rng.NormFloat64())
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(b.String()), 0o644))
}

func TestAnalyzeWritesTables(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	opts.dataRoot = t.TempDir()
	opts.outRoot = t.TempDir()
	for _, beta := range []string{"0.43", "0.44"} {
		dir := filepath.Join(opts.dataRoot, "L8_beta"+beta)
		writeSeries(t, dir, "run_v1.txt", 400, rng)
		writeSeries(t, dir, "run_v2.txt", 400, rng)
	}

	cfg := config.Default()
	require.NoError(t, runAnalyze(context.Background(), cfg, nil, "", false))

	tables, err := dataio.LoadSizeTables(opts.outRoot)
	require.NoError(t, err)
	require.Len(t, tables[8], 2)
	assert.Equal(t, 0.43, tables[8][0].Beta)
	assert.InDelta(t, 0.5, tables[8][0].Values[0].Mean, 0.05)

	runs, err := loadRuns(opts.dataRoot, wantL(nil), 0.44)
	require.NoError(t, err)
	assert.Len(t, runs[8], 2)
}

func TestCorruptSeriesIsSkipped(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	root := t.TempDir()
	writeSeries(t, filepath.Join(root, "L8_beta0.40"), "data_v1.txt", 200, rng)
	bad := filepath.Join(root, "L8_beta0.41")
	require.NoError(t, os.MkdirAll(bad, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bad, "data_v1.txt"), []byte("0 0.5 -1\n1 oops -1\n"), 0o644))

	samples, err := loadSamples(root, wantL(nil))
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, 0.40, samples[0].Beta)

	// 同一目录下坏的 run 被跳过, 好的保留
	writeSeries(t, bad, "data_v2.txt", 200, rng)
	runs, err := loadRuns(root, wantL(nil), 0.41)
	require.NoError(t, err)
	assert.Len(t, runs[8], 1)

	only := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(only, "L4_beta0.3"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(only, "L4_beta0.3", "data_v1.txt"), []byte("0 x 1\n1 y 2\n"), 0o644))
	_, err = loadSamples(only, wantL(nil))
	assert.True(t, errorx.Is(err, errCode.EMPTY_VALUE))
	_, err = loadRuns(only, wantL(nil), 0.3)
	assert.True(t, errorx.Is(err, errCode.EMPTY_VALUE))
}

func TestRunsKeepMagnetizationSign(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "L8_beta0.44")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run_v1.txt"), []byte("0 0.5 -1\n1 -0.5 -1\n2 0.25 -1\n"), 0o644))

	runs, err := loadRuns(root, wantL(nil), 0.44)
	require.NoError(t, err)
	require.Len(t, runs[8], 1)
	assert.Equal(t, []float64{0.5, -0.5, 0.25}, runs[8][0])
}
