package report

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"ChurnInsight/src/chart"
	"ChurnInsight/src/config"
	"ChurnInsight/src/profiler"
	"ChurnInsight/src/storage"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func churnFrame() dataframe.DataFrame {
	return dataframe.LoadRecords([][]string{
		{"gender", "tenure", "MonthlyCharges", "Contract", "Churn"},
		{"Female", "1", "29.85", "Month-to-month", "No"},
		{"Male", "34", "56.95", "One year", "No"},
		{"Male", "2", "53.85", "Month-to-month", "Yes"},
		{"Male", "45", "NaN", "One year", "No"},
		{"Female", "2", "70.70", "Month-to-month", "Yes"},
		{"Female", "8", "99.65", "Two year", "Yes"},
		{"Female", "1", "29.85", "Month-to-month", "No"},
	})
}

func newAnalyzer(t *testing.T, df dataframe.DataFrame) (*Analyzer, *bytes.Buffer, string) {
	t.Helper()
	dir := t.TempDir()
	r, err := chart.NewRenderer(chart.Options{OutputDir: filepath.Join(dir, "charts")})
	require.NoError(t, err)
	var out bytes.Buffer
	return NewAnalyzer(df, &out, r), &out, dir
}

func testLogger(t *testing.T) *storage.Logger {
	t.Helper()
	logger, err := storage.NewLogger("", nil)
	require.NoError(t, err)
	return logger
}

func TestAnalyzerMethods(t *testing.T) {
	a, out, _ := newAnalyzer(t, churnFrame())

	cat, num := a.SplitColumns()
	assert.Equal(t, []string{"gender", "Contract", "Churn"}, cat)
	assert.Equal(t, []string{"tenure", "MonthlyCharges"}, num)

	require.NoError(t, a.ReportMissingValues())
	require.NoError(t, a.ReportDuplicateRows())
	require.NoError(t, a.CountUniqueValues([]string{"Contract"}))

	text := out.String()
	assert.Contains(t, text, "Columns with missing values:")
	assert.Contains(t, text, "Columns with duplicated rows:")
	assert.Contains(t, text, "Columns Contract: 3 unique values")

	path, err := a.PlotContractSegments("tenure")
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestRun(t *testing.T) {
	a, out, dir := newAnalyzer(t, churnFrame())
	reportFile := filepath.Join(dir, "out", "report.xlsx")
	dupFile := filepath.Join(dir, "out", "duplicates.xlsx")

	res, err := a.Run(Options{
		Target: "Churn",
		Segment: Segment{
			Column: "Contract",
			Values: chart.DefaultSegments,
			Label:  "Churn",
		},
		Relations:      []config.Relation{{X: "tenure", Y: "MonthlyCharges", Kind: "line"}},
		ReportFile:     reportFile,
		DuplicatesFile: dupFile,
	}, testLogger(t))
	require.NoError(t, err)

	assert.Equal(t, 7, res.Rows)
	assert.Equal(t, 5, res.Cols)
	assert.Empty(t, res.Failed)
	// 目标分布1 + 分类2 + 直方图2 + 分段2 + 折线1
	assert.Len(t, res.Charts, 8)
	for _, p := range res.Charts {
		assert.FileExists(t, p)
	}
	assert.Equal(t, reportFile, res.Workbook)
	assert.Equal(t, 2, res.Duplicates.DuplicatedRows)

	text := out.String()
	assert.Contains(t, text, "Categorical columns: gender, Contract, Churn")
	assert.Contains(t, text, "Numeric summary:")

	f, err := excelize.OpenFile(reportFile)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Missing", "Duplicates", "Columns", "Unique", "Summary", "Charts"}, f.GetSheetList())
	assert.Equal(t, f.GetSheetList(), res.Sheets)
	pics, err := f.GetPictureCells("Charts")
	require.NoError(t, err)
	assert.Len(t, pics, 8)

	body := res.Text()
	assert.Contains(t, body, "7 行 × 5 列")
	assert.Contains(t, body, "生成图表 8 张")
	assert.Contains(t, body, "重复行明细见 duplicates.xlsx")

	// 重复行明细: 列名 + 两条完全相同的行
	assert.Equal(t, dupFile, res.DupFile)
	dup, err := excelize.OpenFile(dupFile)
	require.NoError(t, err)
	defer dup.Close()
	rows, err := dup.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"gender", "tenure", "MonthlyCharges", "Contract", "Churn"}, rows[0])
	assert.Equal(t, rows[1], rows[2])
	assert.Equal(t, "Female", rows[1][0])
}

func TestRunSkipsDuplicatesFileWithoutDuplicates(t *testing.T) {
	df := dataframe.LoadRecords([][]string{
		{"plan", "score"},
		{"basic", "1"},
		{"pro", "2"},
	})
	a, _, dir := newAnalyzer(t, df)
	dupFile := filepath.Join(dir, "duplicates.xlsx")

	res, err := a.Run(Options{DuplicatesFile: dupFile}, testLogger(t))
	require.NoError(t, err)
	assert.Empty(t, res.DupFile)
	assert.NoFileExists(t, dupFile)
}

func TestRunInfiniteValue(t *testing.T) {
	df := dataframe.New(
		series.New([]string{"a", "b", "a"}, series.String, "plan"),
		series.New([]float64{1, math.Inf(1), 3}, series.Float, "score"),
	)
	a, _, _ := newAnalyzer(t, df)

	res, err := a.Run(Options{Target: "plan"}, testLogger(t))
	require.NoError(t, err)
	require.Len(t, res.Failed, 1)
	assert.True(t, strings.HasPrefix(res.Failed[0], "hist score"))
	assert.Len(t, res.Charts, 1)
}

func TestRunUnknownTarget(t *testing.T) {
	a, _, _ := newAnalyzer(t, churnFrame())
	_, err := a.Run(Options{Target: "Exited"}, testLogger(t))
	assert.ErrorIs(t, err, profiler.ErrColumnNotFound)
}

func TestRunRecordsChartFailures(t *testing.T) {
	df := dataframe.LoadRecords([][]string{
		{"plan", "score", "label"},
		{"basic", "NaN", "a"},
		{"pro", "NaN", "b"},
	}, dataframe.WithTypes(map[string]series.Type{"score": series.Float}))
	a, _, _ := newAnalyzer(t, df)

	res, err := a.Run(Options{
		Target:    "label",
		Relations: []config.Relation{{X: "plan", Y: "score", Kind: "scatter"}},
	}, testLogger(t))
	require.NoError(t, err)
	assert.Empty(t, res.Workbook)
	require.Len(t, res.Failed, 2)
	assert.True(t, strings.HasPrefix(res.Failed[0], "hist score"))
	assert.Contains(t, res.Text(), "失败 2 张")
}
