// unique.go
package profiler

import (
	"fmt"
	"io"

	"github.com/go-gota/gota/dataframe"
)

// UniqueCount 单列去重计数
type UniqueCount struct {
	Column string
	Unique int // 非缺失值的去重个数
}

// UniqueValues 计算指定列的非缺失去重个数，顺序与传入的列一致
func UniqueValues(df dataframe.DataFrame, cols []string) ([]UniqueCount, error) {
	counts := make([]UniqueCount, 0, len(cols))
	for _, name := range cols {
		col, err := Column(df, name)
		if err != nil {
			return nil, err
		}
		counts = append(counts, UniqueCount{
			Column: name,
			Unique: len(CountBy(col)),
		})
	}
	return counts, nil
}

// CountUniqueValues 逐列输出去重个数
func CountUniqueValues(w io.Writer, df dataframe.DataFrame, cols []string) error {
	counts, err := UniqueValues(df, cols)
	if err != nil {
		return err
	}
	for _, c := range counts {
		if _, err := fmt.Fprintf(w, "Columns %s: %d unique values\n", c.Column, c.Unique); err != nil {
			return err
		}
	}
	return nil
}
