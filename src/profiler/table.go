// table.go
package profiler

import (
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// WriteTable 以带行号的对齐表格输出DataFrame，浮点列保留两位小数
// dataframe.String()最多只显示10行，报告需要完整输出
func WriteTable(w io.Writer, df dataframe.DataFrame) error {
	return WriteIndexedTable(w, df, nil)
}

// WriteIndexedTable 同WriteTable，行号取index中的值
// index为nil或长度与行数不一致时按0..n-1编号
func WriteIndexedTable(w io.Writer, df dataframe.DataFrame, index []int) error {
	if df.Err != nil {
		return df.Err
	}
	if len(index) != df.Nrow() {
		index = nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	header := append([]string{""}, df.Names()...)
	if _, err := io.WriteString(tw, strings.Join(header, "\t")+"\t\n"); err != nil {
		return err
	}

	cols := make([][]string, df.Ncol())
	for j, name := range df.Names() {
		cols[j] = formatColumn(df.Col(name))
	}
	for i := 0; i < df.Nrow(); i++ {
		row := make([]string, 0, df.Ncol()+1)
		n := i
		if index != nil {
			n = index[i]
		}
		row = append(row, strconv.Itoa(n))
		for j := range cols {
			row = append(row, cols[j][i])
		}
		if _, err := io.WriteString(tw, strings.Join(row, "\t")+"\t\n"); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func formatColumn(col series.Series) []string {
	if col.Type() != series.Float {
		return col.Records()
	}
	values := make([]string, col.Len())
	for i := 0; i < col.Len(); i++ {
		e := col.Elem(i)
		if e.IsNA() {
			values[i] = "NaN"
			continue
		}
		values[i] = strconv.FormatFloat(e.Float(), 'f', 2, 64)
	}
	return values
}
