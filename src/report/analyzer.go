// analyzer.go
package report

import (
	"fmt"
	"io"

	"ChurnInsight/src/chart"
	"ChurnInsight/src/profiler"

	"github.com/go-gota/gota/dataframe"
)

// Analyzer 持有一张表和输出位置，以方法的形式提供全部分析操作
// 每次调用都重新计算，不缓存结果
type Analyzer struct {
	df     dataframe.DataFrame
	out    io.Writer
	charts *chart.Renderer
}

// NewAnalyzer 创建分析器，out接收控制台报告，charts负责图表输出
func NewAnalyzer(df dataframe.DataFrame, out io.Writer, charts *chart.Renderer) *Analyzer {
	return &Analyzer{df: df, out: out, charts: charts}
}

// Frame 被分析的表
func (a *Analyzer) Frame() dataframe.DataFrame {
	return a.df
}

func (a *Analyzer) ReportMissingValues() error {
	return profiler.ReportMissingValues(a.out, a.df)
}

func (a *Analyzer) ReportDuplicateRows() error {
	return profiler.ReportDuplicateRows(a.out, a.df)
}

func (a *Analyzer) SplitColumns() (catCols, numCols []string) {
	return profiler.SplitColumns(a.df)
}

func (a *Analyzer) CountUniqueValues(cols []string) error {
	return profiler.CountUniqueValues(a.out, a.df, cols)
}

// Describe 输出数值列的描述统计
func (a *Analyzer) Describe() error {
	summaries, err := profiler.Describe(a.df)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		_, err = fmt.Fprintln(a.out, "There are no numeric columns in the DataFrame.")
		return err
	}
	if _, err := fmt.Fprintln(a.out, "Numeric summary:"); err != nil {
		return err
	}
	return profiler.WriteTable(a.out, profiler.SummaryFrame(summaries))
}

func (a *Analyzer) PlotCategorical(column, target string) (string, error) {
	return a.charts.PlotCategorical(a.df, column, target)
}

func (a *Analyzer) PlotNumeric(column, target string) (string, error) {
	return a.charts.PlotNumeric(a.df, column, target)
}

func (a *Analyzer) PlotTargetDistribution(target string) (string, error) {
	return a.charts.PlotTargetDistribution(a.df, target)
}

func (a *Analyzer) PlotSegmentedNumeric(column, segmentColumn string, segments []string, labelColumn string) (string, error) {
	return a.charts.PlotSegmentedNumeric(a.df, column, segmentColumn, segments, labelColumn)
}

func (a *Analyzer) PlotContractSegments(column string) (string, error) {
	return a.charts.PlotContractSegments(a.df, column)
}

func (a *Analyzer) Scatter(x, y, target string) (string, error) {
	return a.charts.Scatter(a.df, x, y, target)
}

func (a *Analyzer) Line(x, y, target string) (string, error) {
	return a.charts.Line(a.df, x, y, target)
}
