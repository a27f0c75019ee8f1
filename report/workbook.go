package report

import (
	"fmt"
	"math"
	"sort"

	"github.com/xuri/excelize/v2"

	"isingstat/fss"
	"isingstat/infra/errorx"
	"isingstat/infra/errorx/errCode"
	"isingstat/ising/dataio"
	"isingstat/ising/observables"
)

const FSSSheet = "fss"

// Workbook 一个 xlsx: 每个 L 一张观测量表, 外加 fss 汇总
type Workbook struct {
	Tables    map[int][]dataio.Row
	FSS       map[string]fss.Result // observable -> 结果
	Crossings []fss.Crossing
}

func SizeSheet(L int) string { return fmt.Sprintf("L%d", L) }

// NaN 留空
func cell(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return v
}

func (w Workbook) Save(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	Ls := make([]int, 0, len(w.Tables))
	for L := range w.Tables {
		Ls = append(Ls, L)
	}
	sort.Ints(Ls)

	first := true
	for _, L := range Ls {
		name := SizeSheet(L)
		if first {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return errorx.Wrap(err, errCode.IO_ERROR, "rename sheet")
			}
			first = false
		} else if _, err := f.NewSheet(name); err != nil {
			return errorx.Wrapf(err, errCode.IO_ERROR, "new sheet %s", name)
		}
		if err := writeSizeSheet(f, name, w.Tables[L]); err != nil {
			return err
		}
	}

	if first {
		if err := f.SetSheetName("Sheet1", FSSSheet); err != nil {
			return errorx.Wrap(err, errCode.IO_ERROR, "rename sheet")
		}
	} else if _, err := f.NewSheet(FSSSheet); err != nil {
		return errorx.Wrap(err, errCode.IO_ERROR, "new fss sheet")
	}
	if err := w.writeFSSSheet(f); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return errorx.Wrapf(err, errCode.IO_ERROR, "save %s", path)
	}
	return nil
}

func writeSizeSheet(f *excelize.File, sheet string, rows []dataio.Row) error {
	header := []any{"beta"}
	for _, o := range observables.All() {
		header = append(header, o.Name, o.Name+"_err")
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return errorx.Wrapf(err, errCode.IO_ERROR, "write header %s", sheet)
	}
	for i, r := range rows {
		line := []any{r.Beta}
		for _, v := range r.Values {
			line = append(line, cell(v.Mean), cell(v.Err))
		}
		axis, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, axis, &line); err != nil {
			return errorx.Wrapf(err, errCode.IO_ERROR, "write row %s", axis)
		}
	}
	return nil
}

func (w Workbook) writeFSSSheet(f *excelize.File) error {
	row := 1
	put := func(values ...any) error {
		axis, _ := excelize.CoordinatesToCellName(1, row)
		row++
		if err := f.SetSheetRow(FSSSheet, axis, &values); err != nil {
			return errorx.Wrapf(err, errCode.IO_ERROR, "write fss %s", axis)
		}
		return nil
	}

	names := make([]string, 0, len(w.FSS))
	for name := range w.FSS {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		res := w.FSS[name]
		if err := put("observable", name); err != nil {
			return err
		}
		if err := put("L", "beta_pc", "beta_pc_err", "value_max", "value_max_err"); err != nil {
			return err
		}
		for _, p := range res.Peaks {
			if err := put(p.L, cell(p.Beta), cell(p.BetaErr), cell(p.Value), cell(p.ValueErr)); err != nil {
				return err
			}
		}
		if c := res.Critical; c != nil {
			if err := put("beta_c", cell(c.BetaC), cell(c.BetaCErr), "nu", cell(c.Nu), cell(c.NuErr)); err != nil {
				return err
			}
		}
		if a := res.Amplitude; a != nil {
			if err := put("gamma/nu", cell(a.GammaOverNu), cell(a.GammaOverNuErr)); err != nil {
				return err
			}
		}
		row++
	}

	if len(w.Crossings) > 0 {
		if err := put("L1", "L2", "beta_cross"); err != nil {
			return err
		}
		for _, c := range w.Crossings {
			b := any("")
			if c.Found {
				b = cell(c.Beta)
			}
			if err := put(c.L1, c.L2, b); err != nil {
				return err
			}
		}
	}
	return nil
}
