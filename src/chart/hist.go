// hist.go
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"

	"ChurnInsight/src/profiler"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var errNoValues = errors.New("没有非缺失的数值")

// 分段直方图的默认参数
const (
	DefaultSegmentColumn = "Contract"
	DefaultLabelColumn   = "Churn"
)

// DefaultSegments 默认的合同类型分段
var DefaultSegments = []string{"Month-to-month", "One year", "Two year"}

// 参考线样式
var (
	meanColor   = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	medianColor = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	refDashes   = []vg.Length{vg.Points(6), vg.Points(3)}
)

// NumericStats 直方图的统计信息
type NumericStats struct {
	Bins   int     // 分箱数
	Mean   float64 // 非缺失值的均值
	Median float64 // 非缺失值的中位数
	Min    float64
	Max    float64
}

// BinCount 分箱数 = floor(sqrt(行数))，至少为1
func BinCount(rows int) int {
	n := int(math.Floor(math.Sqrt(float64(rows))))
	if n < 1 {
		return 1
	}
	return n
}

// Dividers 在[min, max]上生成n个等宽分箱的n+1个边界
// 最后一个边界取max之后的下一个浮点数，保证最大值落在最后一个箱内
func Dividers(min, max float64, n int) []float64 {
	if min == max {
		min -= 0.5
		max += 0.5
	}
	d := floats.Span(make([]float64, n+1), min, max)
	d[n] = math.Nextafter(max, math.Inf(1))
	return d
}

// HistogramCounts 统计每个分箱中的值个数，values不会被修改
func HistogramCounts(values, dividers []float64) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return stat.Histogram(nil, dividers, sorted, nil)
}

// KDE 高斯核密度估计，带宽按Scott规则 h = σ·n^(-1/5)
// 少于两个值或方差为0时返回nil
func KDE(values []float64) func(float64) float64 {
	n := len(values)
	if n < 2 {
		return nil
	}
	std := stat.StdDev(values, nil)
	if std == 0 || math.IsNaN(std) {
		return nil
	}
	kernel := distuv.Normal{Mu: 0, Sigma: std * math.Pow(float64(n), -0.2)}
	return func(x float64) float64 {
		sum := 0.0
		for _, v := range values {
			sum += kernel.Prob(x - v)
		}
		return sum / float64(n)
	}
}

// Stats 计算数值列直方图用到的统计量，分箱数按表的行数计算
// 含有无穷大时返回ErrNonFinite，无法确定分箱边界
func Stats(df dataframe.DataFrame, column string) (NumericStats, error) {
	values, err := profiler.NumericValues(df, column)
	if err != nil {
		return NumericStats{}, err
	}
	if len(values) == 0 {
		return NumericStats{}, fmt.Errorf("%w: %s", errNoValues, column)
	}
	for _, v := range values {
		if math.IsInf(v, 0) {
			return NumericStats{}, fmt.Errorf("%w: %s", profiler.ErrNonFinite, column)
		}
	}
	return NumericStats{
		Bins:   BinCount(df.Nrow()),
		Mean:   profiler.Mean(values),
		Median: profiler.Median(values),
		Min:    floats.Min(values),
		Max:    floats.Max(values),
	}, nil
}

// groupValues 按目标列把数值列的非缺失值分组
// target为空时返回一个包含全部值的分组
func groupValues(df dataframe.DataFrame, column, target string) ([]string, [][]float64, error) {
	if target == "" {
		values, err := profiler.NumericValues(df, column)
		if err != nil {
			return nil, nil, err
		}
		return []string{column}, [][]float64{values}, nil
	}

	col, err := profiler.Column(df, column)
	if err != nil {
		return nil, nil, err
	}
	if profiler.IsCategorical(col.Type()) {
		return nil, nil, fmt.Errorf("%w: %s", profiler.ErrNotNumeric, column)
	}
	tcol, err := profiler.Column(df, target)
	if err != nil {
		return nil, nil, err
	}

	groups := profiler.Categories(tcol)
	idx := make(map[string]int, len(groups))
	for i, g := range groups {
		idx[g] = i
	}
	values := make([][]float64, len(groups))
	for i := 0; i < col.Len(); i++ {
		v, t := col.Elem(i), tcol.Elem(i)
		if v.IsNA() || t.IsNA() {
			continue
		}
		g := idx[profiler.ValueKey(t)]
		values[g] = append(values[g], v.Float())
	}
	return groups, values, nil
}

// histPlot 绘制按目标列分组的直方图和核密度曲线
// refLines为true时叠加均值和中位数参考线
func histPlot(df dataframe.DataFrame, column, target, title string, refLines bool) (*plot.Plot, error) {
	st, err := Stats(df, column)
	if err != nil {
		return nil, err
	}
	groups, values, err := groupValues(df, column, target)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = column
	p.Y.Label.Text = "count"
	p.Legend.Top = true

	dividers := Dividers(st.Min, st.Max, st.Bins)
	width := dividers[1] - dividers[0]
	ymax := 0.0

	for g, vals := range values {
		if len(vals) == 0 {
			continue
		}
		counts := HistogramCounts(vals, dividers)
		h := &plotter.Histogram{
			Bins:      make([]plotter.HistogramBin, len(counts)),
			Width:     width,
			FillColor: palette(g, 110),
			LineStyle: plotter.DefaultLineStyle,
		}
		for i, c := range counts {
			h.Bins[i] = plotter.HistogramBin{Min: dividers[i], Max: dividers[i+1], Weight: c}
			ymax = math.Max(ymax, c)
		}
		p.Add(h)
		if target != "" {
			p.Legend.Add(groups[g], h)
		}

		// 核密度按计数缩放: 密度 × 样本数 × 箱宽
		if kde := KDE(vals); kde != nil {
			scale := float64(len(vals)) * width
			fn := plotter.NewFunction(func(x float64) float64 { return kde(x) * scale })
			fn.XMin, fn.XMax = dividers[0], dividers[len(dividers)-1]
			fn.Samples = 200
			fn.Color = palette(g, 255)
			fn.Width = vg.Points(1.5)
			p.Add(fn)
		}
	}

	if refLines {
		top := ymax * 1.05
		mean, err := refLine(st.Mean, top, meanColor)
		if err != nil {
			return nil, err
		}
		median, err := refLine(st.Median, top, medianColor)
		if err != nil {
			return nil, err
		}
		p.Add(mean, median)
		p.Legend.Add(fmt.Sprintf("Mean: %.2f", st.Mean), mean)
		p.Legend.Add(fmt.Sprintf("Median: %.2f", st.Median), median)
	}
	return p, nil
}

// refLine 在x处画一条竖直虚线
func refLine(x, top float64, c color.Color) (*plotter.Line, error) {
	l, err := plotter.NewLine(plotter.XYs{{X: x, Y: 0}, {X: x, Y: top}})
	if err != nil {
		return nil, fmt.Errorf("创建参考线失败: %w", err)
	}
	l.Color = c
	l.Width = vg.Points(1.5)
	l.Dashes = refDashes
	return l, nil
}

// PlotNumeric 数值列直方图(带核密度曲线)，按目标列分组，叠加均值和中位数参考线
func (r *Renderer) PlotNumeric(df dataframe.DataFrame, column, target string) (string, error) {
	p, err := histPlot(df, column, target, column, true)
	if err != nil {
		return "", err
	}
	return r.save(p, fileName("hist", column, target))
}

// PlotSegmentedNumeric 按分段列的取值把数值列拆成并排的直方图，每个分面按标签列着色
// 分面图固定输出为PNG
func (r *Renderer) PlotSegmentedNumeric(df dataframe.DataFrame, column, segmentColumn string, segments []string, labelColumn string) (string, error) {
	if len(segments) == 0 {
		return "", fmt.Errorf("分段列 %s 没有指定分段取值", segmentColumn)
	}
	if _, err := profiler.Column(df, segmentColumn); err != nil {
		return "", err
	}
	if _, err := profiler.NumericValues(df, column); err != nil {
		return "", err
	}

	plots := make([]*plot.Plot, len(segments))
	for i, seg := range segments {
		sub := df.Filter(dataframe.F{Colname: segmentColumn, Comparator: series.Eq, Comparando: seg})
		if sub.Err != nil {
			return "", fmt.Errorf("筛选分段 %s=%s 失败: %w", segmentColumn, seg, sub.Err)
		}
		p, err := histPlot(sub, column, labelColumn, seg, false)
		if errors.Is(err, errNoValues) {
			// 空分段保留一个空白分面，位置与分段顺序对应
			p = plot.New()
			p.Title.Text = seg
			p.X.Label.Text = column
		} else if err != nil {
			return "", err
		}
		plots[i] = p
	}

	pad := 3 * vg.Millimeter
	tiles := draw.Tiles{
		Rows: 1, Cols: len(plots),
		PadX: pad, PadY: pad,
		PadTop: pad, PadBottom: pad, PadLeft: pad, PadRight: pad,
	}
	img := vgimg.New(r.opts.Width*vg.Length(len(plots))*0.6, r.opts.Height)
	canvases := plot.Align([][]*plot.Plot{plots}, tiles, draw.New(img))
	for j, p := range plots {
		p.Draw(canvases[0][j])
	}

	path := filepath.Join(r.opts.OutputDir, fileName("segments", column, segmentColumn)+".png")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("创建图表文件失败: %w", err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return "", fmt.Errorf("写入图表 %s 失败: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("关闭图表文件失败: %w", err)
	}
	return path, nil
}

// PlotContractSegments 按合同类型分段绘制数值列，标签列为Churn
func (r *Renderer) PlotContractSegments(df dataframe.DataFrame, column string) (string, error) {
	return r.PlotSegmentedNumeric(df, column, DefaultSegmentColumn, DefaultSegments, DefaultLabelColumn)
}
