package dataio

import (
	"bytes"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
	"isingstat/ising/histogram"
	"isingstat/ising/observables"
	"isingstat/timeSeries/blocking"
)

func TestParseSeries(t *testing.T) {
	in := "# generated\nstep m e\n0 0.5 -1.2\n1 -0.25 -1.4\n\n2 1 -2\n"
	s, err := ParseSeries(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []float64{0.5, -0.25, 1}, s.M)
	assert.Equal(t, []float64{-1.2, -1.4, -2}, s.E)

	_, err = ParseSeries(strings.NewReader("0 1 2\n1 x 3\n"))
	assert.True(t, errorx.Is(err, errCode.INVALID_VALUE))

	_, err = ParseSeries(strings.NewReader("# only a comment\n"))
	assert.True(t, errorx.Is(err, errCode.EMPTY_VALUE))
}

func TestScanPointDirsAndVersions(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"L16_beta0.44", "L8_beta0.45", "L8_beta0.40", "notes", "L8_betaX"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o755))
	}
	dir := filepath.Join(root, "L8_beta0.40")
	for _, f := range []string{"L8_beta0.40_v1.txt", "L8_beta0.40_v10.txt", "L8_beta0.40_v2.txt", "readme.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("0 1 1\n"), 0o644))
	}

	dirs, err := ScanPointDirs(root)
	require.NoError(t, err)
	require.Len(t, dirs, 3)
	assert.Equal(t, 8, dirs[0].L)
	assert.Equal(t, 0.40, dirs[0].Beta)
	assert.Equal(t, 0.45, dirs[1].Beta)
	assert.Equal(t, 16, dirs[2].L)
	assert.Len(t, GroupByL(dirs)[8], 2)

	c, ok := Closest(dirs, 8, 0.44)
	require.True(t, ok)
	assert.Equal(t, 0.45, c.Beta)

	path, v, err := LatestVersion(dir)
	require.NoError(t, err)
	assert.Equal(t, 10, v)
	assert.Equal(t, "L8_beta0.40_v10.txt", filepath.Base(path))

	next, err := NextVersionPath(dir, "L8_beta0.40")
	require.NoError(t, err)
	assert.Equal(t, "L8_beta0.40_v11.txt", filepath.Base(next))

	all, err := Versions(dir)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "L8_beta0.40_v1.txt", filepath.Base(all[0]))
	assert.Equal(t, "L8_beta0.40_v10.txt", filepath.Base(all[2]))

	assert.Equal(t, "L8_beta0.4", PointDirName(8, 0.40))
	assert.Equal(t, "0.4406867935", FormatBeta(0.4406867935))

	_, _, err = LatestVersion(filepath.Join(root, "notes"))
	assert.True(t, errorx.Is(err, errCode.EMPTY_VALUE))
}

func sampleRow(beta float64) Row {
	n := len(observables.All())
	r := Row{Beta: beta, Values: make([]blocking.Estimate, n)}
	for i := range r.Values {
		r.Values[i] = blocking.Estimate{Mean: beta + float64(i), Err: 0.01 * float64(i+1)}
	}
	return r
}

func TestObservablesTableRoundTrip(t *testing.T) {
	root := t.TempDir()
	bad := sampleRow(0.42)
	bad.Values[5] = blocking.Estimate{Mean: math.NaN(), Err: math.NaN()}
	rows := []Row{sampleRow(0.44), bad, sampleRow(0.40)}

	path, err := WriteObservablesFile(root, 16, rows)
	require.NoError(t, err)
	assert.Equal(t, "observables_v1.txt", filepath.Base(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "# beta\t<m>\terr<m>\t<|m|>"))

	tables, err := LoadSizeTables(root)
	require.NoError(t, err)
	got := tables[16]
	require.Len(t, got, 3)
	assert.Equal(t, []float64{0.40, 0.42, 0.44}, []float64{got[0].Beta, got[1].Beta, got[2].Beta})
	assert.InDelta(t, 0.44+3, got[2].Values[3].Mean, 1e-8)

	pts, err := Column(got, "chi_prime")
	require.NoError(t, err)
	assert.Len(t, pts, 2) // NaN 行被跳过
	assert.InDelta(t, 0.40+5, pts[0].Value, 1e-8)
	assert.InDelta(t, 0.06, pts[0].Err, 1e-8)

	_, err = Column(got, "xi")
	assert.True(t, errorx.Is(err, errCode.INVALID_VALUE))
}

func TestMergeTauTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tau_exp_results.txt")
	require.NoError(t, MergeTauTable(path, map[int]int{16: 40, 8: 12}))
	require.NoError(t, MergeTauTable(path, map[int]int{16: 44, 32: 150}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# L    tau_exp\n8    12\n16   44\n32   150\n", string(raw))
}

func TestKTableMergeAndSelect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "k_saturation.txt")
	require.NoError(t, MergeKTable(path, []KEntry{
		{FileID: "L32_beta0.43_v1", Observable: "m", K: 20, Found: true},
		{FileID: "L64_beta0.40_v1", Observable: "m", K: 12, Found: true},
	}))
	require.NoError(t, MergeKTable(path, []KEntry{
		{FileID: "L64_beta0.44_v2", Observable: "m", K: 28, Found: true},
		{FileID: "L64_beta0.44_v2", Observable: "U", Found: false},
		{FileID: "L64_beta0.40_v1", Observable: "m", K: 16, Found: true},
	}))

	entries, err := ReadKTable(path)
	require.NoError(t, err)
	assert.Len(t, entries, 4)

	ks := SelectK(entries, 0.4406867935)
	assert.Equal(t, map[string]int{"m": 28}, ks)
}

func TestWriteHistogram(t *testing.T) {
	bins, err := histogram.Hist([]float64{-1, 1}, 2)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WriteHistogram(&buf, 8, 0.5, bins))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "-0.50000000\t0.50000000\t1", lines[2])
}

func TestWriteVersionedReportsErrors(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "L8", "hist")
	bins, err := histogram.Hist([]float64{-1, 0, 1}, 3)
	require.NoError(t, err)

	first, err := WriteHistogramFile(dir, 8, 0.44, bins)
	require.NoError(t, err)
	assert.Equal(t, "L8_beta0.44_v1.txt", filepath.Base(first))
	raw, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "# L=8 beta=0.44000000\n"))

	second, err := WriteHistogramFile(dir, 8, 0.44, bins)
	require.NoError(t, err)
	assert.Equal(t, "L8_beta0.44_v2.txt", filepath.Base(second))

	_, err = writeVersioned(dir, "broken", func(io.Writer) error {
		return errorx.New(errCode.IO_ERROR, "disk full")
	})
	assert.True(t, errorx.Is(err, errCode.IO_ERROR))

	// 目标路径被同名目录占用
	blocked := filepath.Join(t.TempDir(), "blocked")
	require.NoError(t, os.MkdirAll(filepath.Join(blocked, "x_v1.txt", "inner"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(blocked, "x_v0.txt"), nil, 0o644))
	_, err = writeVersioned(blocked, "x", func(io.Writer) error { return nil })
	assert.Error(t, err)
}
