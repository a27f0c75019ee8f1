package dataio

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"isingstat/fss"
	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
	"isingstat/ising/observables"
	"isingstat/timeSeries/blocking"
)

// Row 观测量表的一行: β 和按目录顺序排列的 (均值, 误差)
type Row struct {
	Beta   float64
	Values []blocking.Estimate
}

// ObservablesHeader "# beta <m> err<m> ..."
func ObservablesHeader() string {
	cols := []string{"beta"}
	for _, o := range observables.All() {
		cols = append(cols, o.Label, "err"+o.Label)
	}
	return "# " + strings.Join(cols, "\t")
}

func WriteObservables(w io.Writer, rows []Row) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, ObservablesHeader())
	n := len(observables.All())
	for _, r := range rows {
		if len(r.Values) != n {
			return errorx.Newf(errCode.INVALID_VALUE, "row beta=%g has %d values, want %d", r.Beta, len(r.Values), n)
		}
		cols := make([]string, 0, 1+2*n)
		cols = append(cols, formatFloat(r.Beta))
		for _, v := range r.Values {
			cols = append(cols, formatFloat(v.Mean), formatFloat(v.Err))
		}
		fmt.Fprintln(bw, strings.Join(cols, "\t"))
	}
	if err := bw.Flush(); err != nil {
		return errorx.Wrap(err, errCode.IO_ERROR, "write observables")
	}
	return nil
}

// WriteObservablesFile 写入 <root>/L<L>/observables_v<N+1>.txt
func WriteObservablesFile(root string, L int, rows []Row) (string, error) {
	return writeVersioned(SizeDir(root, L), "observables", func(w io.Writer) error {
		return WriteObservables(w, rows)
	})
}

// writeVersioned 写入 <dir>/<base>_v<N+1>.txt; Close 的错误同样返回
func writeVersioned(dir, base string, write func(io.Writer) error) (path string, err error) {
	path, err = NextVersionPath(dir, base)
	if err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", errorx.Wrapf(err, errCode.IO_ERROR, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errorx.Wrapf(cerr, errCode.IO_ERROR, "close %s", path)
		}
	}()
	if err := write(f); err != nil {
		return path, err
	}
	return path, nil
}

// ReadObservables 行按 β 升序返回
func ReadObservables(r io.Reader) ([]Row, error) {
	n := len(observables.All())
	var rows []Row
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		cols := strings.Fields(text)
		if len(cols) < 1+2*n {
			return nil, errorx.Newf(errCode.INVALID_VALUE, "line %d: %d columns, want %d", line, len(cols), 1+2*n)
		}
		vals, err := parseFloats(cols[:1+2*n])
		if err != nil {
			return nil, errorx.Wrapf(err, errCode.INVALID_VALUE, "line %d", line)
		}
		row := Row{Beta: vals[0], Values: make([]blocking.Estimate, n)}
		for i := 0; i < n; i++ {
			row.Values[i] = blocking.Estimate{Mean: vals[1+2*i], Err: vals[2+2*i]}
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, errorx.Wrap(err, errCode.IO_ERROR, "scan observables")
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Beta < rows[j].Beta })
	return rows, nil
}

func ReadObservablesFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errorx.Wrapf(err, errCode.IO_ERROR, "open %s", path)
	}
	defer f.Close()
	return ReadObservables(f)
}

// Column 某个观测量的 (β, 值, 误差), 跳过 NaN 行
func Column(rows []Row, name string) ([]fss.Point, error) {
	idx, err := observables.Index(name)
	if err != nil {
		return nil, err
	}
	pts := make([]fss.Point, 0, len(rows))
	for _, r := range rows {
		v := r.Values[idx]
		if math.IsNaN(v.Mean) || math.IsNaN(v.Err) {
			continue
		}
		pts = append(pts, fss.Point{Beta: r.Beta, Value: v.Mean, Err: v.Err})
	}
	return pts, nil
}

// LoadSizeTables 每个 L<L> 目录中最新版本的观测量表
func LoadSizeTables(root string) (map[int][]Row, error) {
	dirs, err := ScanSizeDirs(root)
	if err != nil {
		return nil, err
	}
	out := make(map[int][]Row, len(dirs))
	for L, dir := range dirs {
		path, _, err := LatestVersion(dir)
		if err != nil {
			continue
		}
		rows, err := ReadObservablesFile(path)
		if err != nil {
			return nil, err
		}
		out[L] = rows
	}
	if len(out) == 0 {
		return nil, errorx.Newf(errCode.EMPTY_VALUE, "no observables tables under %s", root)
	}
	return out, nil
}

// ---- τ_exp 表: "# L    tau_exp" ----

func ReadTauTable(path string) (map[int]int, error) {
	out := make(map[int]int)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return out, nil
	}
	if err != nil {
		return nil, errorx.Wrapf(err, errCode.IO_ERROR, "open %s", path)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		cols := strings.Fields(text)
		if len(cols) < 2 {
			continue
		}
		L, err1 := strconv.Atoi(cols[0])
		tau, err2 := strconv.Atoi(cols[1])
		if err1 != nil || err2 != nil {
			continue
		}
		out[L] = tau
	}
	return out, sc.Err()
}

// MergeTauTable 更新已有的 L, 追加新的 L, 按 L 升序重写
func MergeTauTable(path string, taus map[int]int) error {
	merged, err := ReadTauTable(path)
	if err != nil {
		return err
	}
	for L, tau := range taus {
		merged[L] = tau
	}
	Ls := make([]int, 0, len(merged))
	for L := range merged {
		Ls = append(Ls, L)
	}
	sort.Ints(Ls)

	var b strings.Builder
	b.WriteString("# L    tau_exp\n")
	for _, L := range Ls {
		fmt.Fprintf(&b, "%-4d %d\n", L, merged[L])
	}
	return writeFile(path, b.String())
}

// ---- k 饱和表: "# file_id observable k_saturation" ----

type KEntry struct {
	FileID     string
	Observable string
	K          int
	Found      bool // false 写作 NA
}

func ReadKTable(path string) ([]KEntry, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errorx.Wrapf(err, errCode.IO_ERROR, "open %s", path)
	}
	defer f.Close()
	var out []KEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		cols := strings.Fields(text)
		if len(cols) < 3 {
			continue
		}
		e := KEntry{FileID: cols[0], Observable: cols[1]}
		if cols[2] != "NA" {
			k, err := strconv.Atoi(cols[2])
			if err != nil {
				continue
			}
			e.K, e.Found = k, true
		}
		out = append(out, e)
	}
	return out, sc.Err()
}

// MergeKTable 以 (file_id, observable) 为键合并
func MergeKTable(path string, entries []KEntry) error {
	old, err := ReadKTable(path)
	if err != nil {
		return err
	}
	type key struct{ id, obs string }
	merged := make(map[key]KEntry)
	for _, e := range append(old, entries...) {
		merged[key{e.FileID, e.Observable}] = e
	}
	keys := make([]key, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].id != keys[j].id {
			return keys[i].id < keys[j].id
		}
		return keys[i].obs < keys[j].obs
	})

	var b strings.Builder
	fmt.Fprintf(&b, "# %-28s %-14s %s\n", "file_id", "observable", "k_saturation")
	for _, k := range keys {
		e := merged[k]
		kv := "NA"
		if e.Found {
			kv = strconv.Itoa(e.K)
		}
		fmt.Fprintf(&b, "%-30s %-14s %s\n", e.FileID, e.Observable, kv)
	}
	return writeFile(path, b.String())
}

var fileIDPattern = regexp.MustCompile(`^L(\d+)_beta([0-9]+(?:\.[0-9]+)?)`)

// SelectK 每个观测量取最大 L 且 β 最接近 betaC 的那组记录的 k; NA 记录不进入结果
func SelectK(entries []KEntry, betaC float64) map[string]int {
	type rec struct {
		L    int
		beta float64
		e    KEntry
	}
	var recs []rec
	Lmax := -1
	for _, e := range entries {
		m := fileIDPattern.FindStringSubmatch(e.FileID)
		if m == nil {
			continue
		}
		L, _ := strconv.Atoi(m[1])
		beta, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		recs = append(recs, rec{L, beta, e})
		Lmax = max(Lmax, L)
	}
	best := math.Inf(1)
	for _, r := range recs {
		if r.L == Lmax {
			best = math.Min(best, math.Abs(r.beta-betaC))
		}
	}
	out := make(map[string]int)
	for _, r := range recs {
		if r.L == Lmax && math.Abs(r.beta-betaC) == best && r.e.Found {
			out[r.e.Observable] = r.e.K
		}
	}
	return out
}

func writeFile(path, content string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errorx.Wrapf(err, errCode.IO_ERROR, "mkdir %s", dir)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return errorx.Wrapf(err, errCode.IO_ERROR, "write %s", path)
	}
	return nil
}
