// duplicate.go
package profiler

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// rowSep 拼接行键时使用的分隔符，不会出现在正常文本中
const rowSep = "\x1f"

// DuplicateEntry 单列重复值统计
type DuplicateEntry struct {
	Index                int     // 列在原表中的位置
	Column               string  // 列名
	DuplicatedRows       int     // 重复行子集中该列重复出现的非缺失值个数
	DuplicatedPercentage float64 // 重复行占全表行数的比例(%)，所有列相同
}

// DuplicationReport 重复行报告
type DuplicationReport struct {
	Rows           int              // 计算时的行数
	DuplicatedRows int              // 与至少一行完全相同的行数
	Percentage     float64          // DuplicatedRows占Rows的比例(%)
	Entries        []DuplicateEntry // 仅包含计数大于0的列
}

// Empty 表中没有重复行
func (r DuplicationReport) Empty() bool {
	return r.DuplicatedRows == 0
}

// Index 每一行对应的原表列位置
func (r DuplicationReport) Index() []int {
	idx := make([]int, len(r.Entries))
	for i, e := range r.Entries {
		idx[i] = e.Index
	}
	return idx
}

// Frame 把报告转换为DataFrame
func (r DuplicationReport) Frame() dataframe.DataFrame {
	cols := make([]string, len(r.Entries))
	counts := make([]int, len(r.Entries))
	pcts := make([]float64, len(r.Entries))
	for i, e := range r.Entries {
		cols[i] = e.Column
		counts[i] = e.DuplicatedRows
		pcts[i] = e.DuplicatedPercentage
	}
	return dataframe.New(
		series.New(cols, series.String, "Column"),
		series.New(counts, series.Int, "Duplicated Rows"),
		series.New(pcts, series.Float, "Duplicated Percentage"),
	)
}

// DuplicatedRowIndices 返回所有与其他行完全相同的行下标(缺失值视为相等)
func DuplicatedRowIndices(df dataframe.DataFrame) []int {
	nrow := df.Nrow()
	if nrow <= 1 {
		return nil
	}

	cols := make([]series.Series, df.Ncol())
	for j, name := range df.Names() {
		cols[j] = df.Col(name)
	}
	keys := make([]string, nrow)
	counts := make(map[string]int, nrow)
	row := make([]string, len(cols))
	for i := range keys {
		for j, col := range cols {
			row[j] = ValueKey(col.Elem(i))
		}
		keys[i] = strings.Join(row, rowSep)
		counts[keys[i]]++
	}

	var indices []int
	for i, key := range keys {
		if counts[key] > 1 {
			indices = append(indices, i)
		}
	}
	return indices
}

// DuplicateRows 统计重复行
// 注意: 每一列的占比都是同一个全表重复行占比，这是沿用下来的行为
func DuplicateRows(df dataframe.DataFrame) (DuplicationReport, error) {
	if df.Err != nil {
		return DuplicationReport{}, df.Err
	}
	if df.Ncol() == 0 {
		return DuplicationReport{}, ErrEmptyTable
	}

	report := DuplicationReport{Rows: df.Nrow()}
	indices := DuplicatedRowIndices(df)
	if len(indices) == 0 {
		return report, nil
	}

	report.DuplicatedRows = len(indices)
	report.Percentage = float64(len(indices)) / float64(report.Rows) * 100

	dup := df.Subset(indices)
	for j, name := range dup.Names() {
		n := repeatedValues(dup.Col(name))
		if n == 0 {
			continue
		}
		report.Entries = append(report.Entries, DuplicateEntry{
			Index:                j,
			Column:               name,
			DuplicatedRows:       n,
			DuplicatedPercentage: report.Percentage,
		})
	}

	sort.SliceStable(report.Entries, func(i, j int) bool {
		a, b := report.Entries[i], report.Entries[j]
		if a.DuplicatedPercentage != b.DuplicatedPercentage {
			return a.DuplicatedPercentage > b.DuplicatedPercentage
		}
		return a.DuplicatedRows > b.DuplicatedRows
	})
	return report, nil
}

// repeatedValues 统计列中重复出现(非首次出现)的非缺失值个数
func repeatedValues(col series.Series) int {
	seen := make(map[string]bool, col.Len())
	n := 0
	for i := 0; i < col.Len(); i++ {
		e := col.Elem(i)
		if e.IsNA() {
			continue
		}
		v := ValueKey(e)
		if seen[v] {
			n++
			continue
		}
		seen[v] = true
	}
	return n
}

// ReportDuplicateRows 在控制台输出重复行报告
func ReportDuplicateRows(w io.Writer, df dataframe.DataFrame) error {
	report, err := DuplicateRows(df)
	if err != nil {
		return err
	}

	if report.Empty() {
		_, err = fmt.Fprintln(w, "There are no duplicated rows in the DataFrame.")
		return err
	}

	if _, err := fmt.Fprintln(w, "Columns with duplicated rows:"); err != nil {
		return err
	}
	return WriteIndexedTable(w, report.Frame(), report.Index())
}
