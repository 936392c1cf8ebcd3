package chart

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"ChurnInsight/src/profiler"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/plotter"
)

func churnFrame() dataframe.DataFrame {
	return dataframe.LoadRecords([][]string{
		{"customerID", "gender", "tenure", "MonthlyCharges", "Contract", "Churn"},
		{"7590-VHVEG", "Female", "1", "29.85", "Month-to-month", "No"},
		{"5575-GNVDE", "Male", "34", "56.95", "One year", "No"},
		{"3668-QPYBK", "Male", "2", "53.85", "Month-to-month", "Yes"},
		{"7795-CFOCW", "Male", "45", "42.30", "One year", "No"},
		{"9237-HQITU", "Female", "2", "70.70", "Month-to-month", "Yes"},
		{"9305-CDSKC", "Female", "8", "NaN", "Month-to-month", "Yes"},
		{"1452-KIOVK", "Male", "22", "89.10", "Month-to-month", "No"},
		{"6713-OKOMC", "Female", "10", "29.75", "Month-to-month", "No"},
		{"7892-POOKP", "Female", "28", "104.80", "Month-to-month", "Yes"},
	})
}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(Options{OutputDir: filepath.Join(t.TempDir(), "charts")})
	require.NoError(t, err)
	return r
}

func assertFile(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestNewRendererDefaults(t *testing.T) {
	r := newTestRenderer(t)
	opts := r.Options()
	assert.Equal(t, DefaultFormat, opts.Format)
	assert.Equal(t, DefaultWidth, opts.Width)
	assert.Equal(t, DefaultHeight, opts.Height)
	info, err := os.Stat(opts.OutputDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "count_Payment_Method_Churn", fileName("count", "Payment Method", "Churn"))
	assert.Equal(t, "hist_tenure", fileName("hist", "tenure", ""))
}

func TestBinCount(t *testing.T) {
	assert.Equal(t, 1, BinCount(0))
	assert.Equal(t, 1, BinCount(3))
	assert.Equal(t, 3, BinCount(9))
	assert.Equal(t, 3, BinCount(15))
	assert.Equal(t, 83, BinCount(7043))
}

func TestHistogramCountsCoverMax(t *testing.T) {
	values := []float64{5, 1, 3, 2, 4}
	d := Dividers(1, 5, 2)
	require.Len(t, d, 3)
	counts := HistogramCounts(values, d)
	assert.Equal(t, []float64{2, 3}, counts)
	// 原切片顺序不变
	assert.Equal(t, []float64{5, 1, 3, 2, 4}, values)
}

func TestDividersDegenerateRange(t *testing.T) {
	d := Dividers(7, 7, 1)
	assert.Equal(t, 6.5, d[0])
	assert.Equal(t, []float64{1}, HistogramCounts([]float64{7}, d))
}

func TestKDE(t *testing.T) {
	assert.Nil(t, KDE([]float64{1}))
	assert.Nil(t, KDE([]float64{2, 2, 2}))

	f := KDE([]float64{-1, 0, 1})
	require.NotNil(t, f)
	assert.Greater(t, f(0), f(3))
	assert.InDelta(t, f(-0.5), f(0.5), 1e-12)
}

func TestStatsExactMeanAndMedian(t *testing.T) {
	st, err := Stats(churnFrame(), "MonthlyCharges")
	require.NoError(t, err)
	values := []float64{29.85, 56.95, 53.85, 42.30, 70.70, 89.10, 29.75, 104.80}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	assert.InDelta(t, sum/8, st.Mean, 1e-9)
	assert.InDelta(t, (53.85+56.95)/2, st.Median, 1e-9)
	assert.Equal(t, 3, st.Bins)
	assert.Equal(t, 29.75, st.Min)
	assert.Equal(t, 104.80, st.Max)
}

func TestStatsTextColumn(t *testing.T) {
	_, err := Stats(churnFrame(), "gender")
	assert.ErrorIs(t, err, profiler.ErrNotNumeric)
}

func TestCounts(t *testing.T) {
	data, err := Counts(churnFrame(), "Contract", "Churn")
	require.NoError(t, err)
	assert.Equal(t, []string{"Month-to-month", "One year"}, data.Categories)
	assert.Equal(t, []string{"No", "Yes"}, data.Groups)
	assert.Equal(t, [][]float64{{3, 2}, {4, 0}}, data.Counts)
	assert.Equal(t, 9, data.Total)
	assert.InDelta(t, 100.0*4/9, data.Percent(1, 0), 1e-9)

	total := 0.0
	for g := range data.Groups {
		for c := range data.Categories {
			total += data.Percent(g, c)
		}
	}
	assert.InDelta(t, 100, total, 1e-9)
}

func TestCountsWithoutTarget(t *testing.T) {
	data, err := Counts(churnFrame(), "Churn", "")
	require.NoError(t, err)
	assert.Empty(t, data.Groups)
	assert.Equal(t, [][]float64{{5, 4}}, data.Counts)
}

func TestMeanByX(t *testing.T) {
	got := MeanByX(plotter.XYs{{X: 2, Y: 4}, {X: 1, Y: 1}, {X: 2, Y: 6}, {X: 1, Y: 3}})
	assert.Equal(t, plotter.XYs{{X: 1, Y: 2}, {X: 2, Y: 5}}, got)
}

func TestPlotsWriteFiles(t *testing.T) {
	r := newTestRenderer(t)
	df := churnFrame()

	path, err := r.PlotCategorical(df, "gender", "Churn")
	require.NoError(t, err)
	assert.Equal(t, "count_gender_Churn.png", filepath.Base(path))
	assertFile(t, path)

	path, err = r.PlotTargetDistribution(df, "Churn")
	require.NoError(t, err)
	assertFile(t, path)

	path, err = r.PlotNumeric(df, "MonthlyCharges", "Churn")
	require.NoError(t, err)
	assert.Equal(t, "hist_MonthlyCharges_Churn.png", filepath.Base(path))
	assertFile(t, path)

	path, err = r.Scatter(df, "tenure", "MonthlyCharges", "Churn")
	require.NoError(t, err)
	assertFile(t, path)

	path, err = r.Line(df, "tenure", "MonthlyCharges", "")
	require.NoError(t, err)
	assertFile(t, path)
}

func TestPlotContractSegments(t *testing.T) {
	r := newTestRenderer(t)
	// 没有Two year的行，对应分面为空白
	path, err := r.PlotContractSegments(churnFrame(), "tenure")
	require.NoError(t, err)
	assert.Equal(t, ".png", filepath.Ext(path))
	assertFile(t, path)
}

func TestPlotErrors(t *testing.T) {
	r := newTestRenderer(t)
	df := churnFrame()

	_, err := r.PlotNumeric(df, "Contract", "Churn")
	assert.ErrorIs(t, err, profiler.ErrNotNumeric)

	_, err = r.PlotCategorical(df, "missing", "")
	assert.ErrorIs(t, err, profiler.ErrColumnNotFound)

	_, err = r.Scatter(df, "tenure", "gender", "")
	assert.ErrorIs(t, err, profiler.ErrNotNumeric)

	_, err = r.PlotSegmentedNumeric(df, "tenure", "Contract", nil, "Churn")
	assert.Error(t, err)
}

func TestInfiniteValues(t *testing.T) {
	df := dataframe.New(
		series.New([]float64{1, math.Inf(1), 3}, series.Float, "x"),
		series.New([]float64{2, 4, 6}, series.Float, "y"),
	)
	r := newTestRenderer(t)

	_, err := Stats(df, "x")
	assert.ErrorIs(t, err, profiler.ErrNonFinite)

	_, err = r.PlotNumeric(df, "x", "")
	assert.ErrorIs(t, err, profiler.ErrNonFinite)

	_, err = r.Scatter(df, "x", "y", "")
	assert.Error(t, err)
	_, err = r.Line(df, "x", "y", "")
	assert.Error(t, err)

	path, err := r.PlotNumeric(df, "y", "")
	require.NoError(t, err)
	assertFile(t, path)
}

func TestCountsFloatTargetKeepsExactGroups(t *testing.T) {
	df := dataframe.New(
		series.New([]string{"a", "a", "b"}, series.String, "plan"),
		series.New([]float64{0.1234561, 0.1234562, 0.1234561}, series.Float, "score"),
	)
	data, err := Counts(df, "plan", "score")
	require.NoError(t, err)
	assert.Equal(t, []string{"0.1234561", "0.1234562"}, data.Groups)
	assert.Equal(t, [][]float64{{1, 1}, {1, 0}}, data.Counts)
}
