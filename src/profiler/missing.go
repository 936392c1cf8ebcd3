// missing.go
package profiler

import (
	"fmt"
	"io"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/floats/scalar"
)

// MissingEntry 单列缺失值统计
type MissingEntry struct {
	Index             int     // 列在原表中的位置
	Column            string  // 列名
	MissingValues     int     // 缺失值个数
	MissingPercentage float64 // 缺失值占比(%)，保留两位小数
}

// MissingnessReport 缺失值报告
type MissingnessReport struct {
	Rows    int            // 计算时的行数
	Entries []MissingEntry // 仅包含存在缺失值的列，按占比降序
}

// Empty 报告中没有任何存在缺失值的列
func (r MissingnessReport) Empty() bool {
	return len(r.Entries) == 0
}

// Index 每一行对应的原表列位置
func (r MissingnessReport) Index() []int {
	idx := make([]int, len(r.Entries))
	for i, e := range r.Entries {
		idx[i] = e.Index
	}
	return idx
}

// Frame 把报告转换为DataFrame，列名与控制台输出一致
func (r MissingnessReport) Frame() dataframe.DataFrame {
	cols := make([]string, len(r.Entries))
	counts := make([]int, len(r.Entries))
	pcts := make([]float64, len(r.Entries))
	for i, e := range r.Entries {
		cols[i] = e.Column
		counts[i] = e.MissingValues
		pcts[i] = e.MissingPercentage
	}
	return dataframe.New(
		series.New(cols, series.String, "Column"),
		series.New(counts, series.Int, "Missing Values"),
		series.New(pcts, series.Float, "Missing Percentage"),
	)
}

// MissingValues 统计每一列的缺失值个数和占比
// 占比 = round(缺失个数 / 当前行数 * 100, 2)
func MissingValues(df dataframe.DataFrame) (MissingnessReport, error) {
	if df.Err != nil {
		return MissingnessReport{}, df.Err
	}
	if df.Ncol() == 0 {
		return MissingnessReport{}, ErrEmptyTable
	}

	rows := df.Nrow()
	report := MissingnessReport{Rows: rows}
	for j, name := range df.Names() {
		missing := 0
		for _, na := range df.Col(name).IsNaN() {
			if na {
				missing++
			}
		}
		if missing == 0 {
			continue
		}
		report.Entries = append(report.Entries, MissingEntry{
			Index:             j,
			Column:            name,
			MissingValues:     missing,
			MissingPercentage: scalar.Round(float64(missing)/float64(rows)*100, 2),
		})
	}

	sort.SliceStable(report.Entries, func(i, j int) bool {
		return report.Entries[i].MissingPercentage > report.Entries[j].MissingPercentage
	})
	return report, nil
}

// ReportMissingValues 在控制台输出缺失值报告
func ReportMissingValues(w io.Writer, df dataframe.DataFrame) error {
	report, err := MissingValues(df)
	if err != nil {
		return err
	}

	if report.Empty() {
		_, err = fmt.Fprintln(w, "There are no missing values in the DataFrame.")
		return err
	}

	if _, err := fmt.Fprintln(w, "Columns with missing values:"); err != nil {
		return err
	}
	return WriteIndexedTable(w, report.Frame(), report.Index())
}
