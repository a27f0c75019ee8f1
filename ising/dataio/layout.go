package dataio

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
)

var (
	pointDirPattern = regexp.MustCompile(`^L(\d+)_beta([0-9.]+)$`)
	sizeDirPattern  = regexp.MustCompile(`^L(\d+)$`)
	versionPattern  = regexp.MustCompile(`_v(\d+)\.txt$`)
)

// PointDir 一个 (L, β) 的输入目录 L<L>_beta<β>
type PointDir struct {
	L    int
	Beta float64
	Path string
}

// ScanPointDirs 按 (L, β) 排序
func ScanPointDirs(root string) ([]PointDir, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errorx.Wrapf(err, errCode.IO_ERROR, "read %s", root)
	}
	var out []PointDir
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m := pointDirPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		L, _ := strconv.Atoi(m[1])
		beta, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		out = append(out, PointDir{L: L, Beta: beta, Path: filepath.Join(root, e.Name())})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].L != out[j].L {
			return out[i].L < out[j].L
		}
		return out[i].Beta < out[j].Beta
	})
	return out, nil
}

// FormatBeta 目录名中 β 的写法, 最短精确表示
func FormatBeta(beta float64) string {
	return strconv.FormatFloat(beta, 'f', -1, 64)
}

// PointDirName L<L>_beta<β>
func PointDirName(L int, beta float64) string {
	return fmt.Sprintf("L%d_beta%s", L, FormatBeta(beta))
}

// GroupByL 保持每组内 β 升序
func GroupByL(dirs []PointDir) map[int][]PointDir {
	out := make(map[int][]PointDir)
	for _, d := range dirs {
		out[d.L] = append(out[d.L], d)
	}
	return out
}

// Closest 给定 L 中 β 最接近 target 的目录
func Closest(dirs []PointDir, L int, target float64) (PointDir, bool) {
	best, found := PointDir{}, false
	for _, d := range dirs {
		if d.L != L {
			continue
		}
		if !found || abs(d.Beta-target) < abs(best.Beta-target) {
			best, found = d, true
		}
	}
	return best, found
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// LatestVersion 目录中版本号最大的 *_v<N>.txt
func LatestVersion(dir string) (path string, version int, err error) {
	versions, err := listVersions(dir)
	if err != nil {
		return "", 0, err
	}
	if len(versions) == 0 {
		return "", 0, errorx.Newf(errCode.EMPTY_VALUE, "no *_v<N>.txt file in %s", dir)
	}
	v := versions[len(versions)-1]
	return v.path, v.n, nil
}

// Versions 目录中所有 *_v<N>.txt, 版本号升序; 弛豫时间分析把它们当作独立的 run
func Versions(dir string) ([]string, error) {
	versions, err := listVersions(dir)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(versions))
	for i, v := range versions {
		out[i] = v.path
	}
	return out, nil
}

// NextVersionPath <dir>/<base>_v<max+1>.txt, 目录不存在时创建
func NextVersionPath(dir, base string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errorx.Wrapf(err, errCode.IO_ERROR, "mkdir %s", dir)
	}
	versions, err := listVersions(dir)
	if err != nil {
		return "", err
	}
	next := 1
	if len(versions) > 0 {
		next = versions[len(versions)-1].n + 1
	}
	return filepath.Join(dir, fmt.Sprintf("%s_v%d.txt", base, next)), nil
}

type versioned struct {
	n    int
	path string
}

func listVersions(dir string) ([]versioned, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errorx.Wrapf(err, errCode.IO_ERROR, "read %s", dir)
	}
	var out []versioned
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := versionPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		out = append(out, versioned{n: n, path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].n < out[j].n })
	return out, nil
}

// SizeDir 分析结果目录 <root>/L<L>
func SizeDir(root string, L int) string {
	return filepath.Join(root, fmt.Sprintf("L%d", L))
}

// ScanSizeDirs 分析结果根目录下的 L<L> 子目录, L 升序
func ScanSizeDirs(root string) (map[int]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errorx.Wrapf(err, errCode.IO_ERROR, "read %s", root)
	}
	out := make(map[int]string)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if m := sizeDirPattern.FindStringSubmatch(e.Name()); m != nil {
			L, _ := strconv.Atoi(m[1])
			out[L] = filepath.Join(root, e.Name())
		}
	}
	return out, nil
}
