// columns.go
package profiler

import (
	"fmt"
	"strconv"

	"ChurnInsight/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// IsCategorical 判断列的逻辑类型是否为分类(文本)类型
// 只有String是分类列，Int、Float、Bool都按数值列处理
func IsCategorical(t series.Type) bool {
	return t == series.String
}

// SplitColumns 按逻辑类型把所有列名划分为分类列和数值列
// 参数:
//
//	df: 待划分的数据表
//
// 返回值:
//
//	catCols: 分类列(文本)
//	numCols: 数值列
func SplitColumns(df dataframe.DataFrame) (catCols, numCols []string) {
	names := df.Names()
	types := df.Types()
	for i, name := range names {
		if IsCategorical(types[i]) {
			catCols = append(catCols, name)
		} else {
			numCols = append(numCols, name)
		}
	}
	return catCols, numCols
}

// Column 按列名取列，列不存在时返回ErrColumnNotFound
func Column(df dataframe.DataFrame, name string) (series.Series, error) {
	if df.Err != nil {
		return series.Series{}, df.Err
	}
	if !utils.HasColumn(df, name) {
		return series.Series{}, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	return df.Col(name), nil
}

// NumericValues 返回数值列中所有非缺失值
func NumericValues(df dataframe.DataFrame, name string) ([]float64, error) {
	col, err := Column(df, name)
	if err != nil {
		return nil, err
	}
	if IsCategorical(col.Type()) {
		return nil, fmt.Errorf("%w: %s(%s)", ErrNotNumeric, name, col.Type())
	}

	values := make([]float64, 0, col.Len())
	for i := 0; i < col.Len(); i++ {
		e := col.Elem(i)
		if e.IsNA() {
			continue
		}
		values = append(values, e.Float())
	}
	return values, nil
}

// naKey 缺失值的键，缺失值之间视为相等
const naKey = "\x00NA"

// ValueKey 返回元素用于比较的键
// 浮点数按精确值格式化，Elem.String()只保留6位小数
func ValueKey(e series.Element) string {
	if e.IsNA() {
		return naKey
	}
	if e.Type() == series.Float {
		return strconv.FormatFloat(e.Float(), 'g', -1, 64)
	}
	return e.String()
}

// Categories 按首次出现顺序返回列中的非缺失取值(ValueKey)
func Categories(col series.Series) []string {
	seen := make(map[string]bool)
	var values []string
	for i := 0; i < col.Len(); i++ {
		e := col.Elem(i)
		if e.IsNA() {
			continue
		}
		v := ValueKey(e)
		if !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	return values
}

// CountBy 统计列中每个取值(ValueKey)出现的次数，不含缺失值
func CountBy(col series.Series) map[string]int {
	counts := make(map[string]int)
	for i := 0; i < col.Len(); i++ {
		e := col.Elem(i)
		if e.IsNA() {
			continue
		}
		counts[ValueKey(e)]++
	}
	return counts
}
