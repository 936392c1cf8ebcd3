// describe.go
package profiler

import (
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// NumericSummary 数值列的描述统计(只针对非缺失值)
type NumericSummary struct {
	Column string
	Count  int
	Mean   float64
	Median float64
	Std    float64 // 样本标准差(n-1)
	Min    float64
	Max    float64
}

// Median 非缺失值的中位数，偶数个时取中间两个值的平均
func Median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return series.Floats(values).Median()
}

// Mean 非缺失值的均值
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return stat.Mean(values, nil)
}

// Summarize 计算单个数值列的描述统计
func Summarize(df dataframe.DataFrame, name string) (NumericSummary, error) {
	values, err := NumericValues(df, name)
	if err != nil {
		return NumericSummary{}, err
	}

	s := NumericSummary{
		Column: name,
		Count:  len(values),
		Mean:   math.NaN(),
		Median: math.NaN(),
		Std:    math.NaN(),
		Min:    math.NaN(),
		Max:    math.NaN(),
	}
	if len(values) == 0 {
		return s, nil
	}

	s.Mean = Mean(values)
	s.Median = Median(values)
	if len(values) > 1 {
		s.Std = stat.StdDev(values, nil)
	}
	s.Min = floats.Min(values)
	s.Max = floats.Max(values)
	return s, nil
}

// Describe 对所有数值列做描述统计
// 与dataframe.Describe不同，这里会先去掉缺失值
func Describe(df dataframe.DataFrame) ([]NumericSummary, error) {
	if df.Err != nil {
		return nil, df.Err
	}
	_, numCols := SplitColumns(df)

	summaries := make([]NumericSummary, 0, len(numCols))
	for _, name := range numCols {
		s, err := Summarize(df, name)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// SummaryFrame 把描述统计转换为DataFrame，每行一个数值列
func SummaryFrame(summaries []NumericSummary) dataframe.DataFrame {
	n := len(summaries)
	names := make([]string, n)
	counts := make([]int, n)
	means := make([]float64, n)
	medians := make([]float64, n)
	stds := make([]float64, n)
	mins := make([]float64, n)
	maxs := make([]float64, n)
	for i, s := range summaries {
		names[i] = s.Column
		counts[i] = s.Count
		means[i] = s.Mean
		medians[i] = s.Median
		stds[i] = s.Std
		mins[i] = s.Min
		maxs[i] = s.Max
	}
	return dataframe.New(
		series.New(names, series.String, "Column"),
		series.New(counts, series.Int, "Count"),
		series.New(means, series.Float, "Mean"),
		series.New(medians, series.Float, "Median"),
		series.New(stds, series.Float, "Std"),
		series.New(mins, series.Float, "Min"),
		series.New(maxs, series.Float, "Max"),
	)
}
