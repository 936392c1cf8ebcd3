// count.go
package chart

import (
	"fmt"
	"math"

	"ChurnInsight/src/profiler"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
)

// groupWidth 一个分类下所有分组柱子的总宽度
const groupWidth = 24 * vg.Millimeter

// CountData 计数图数据
type CountData struct {
	Categories []string    // x轴分类，按首次出现顺序
	Groups     []string    // 分组(目标列取值)，没有目标列时为空
	Counts     [][]float64 // Counts[分组][分类]
	Total      int         // 表的总行数，百分比的分母
}

// Percent 第g组第c类柱子占总行数的百分比
func (d CountData) Percent(g, c int) float64 {
	if d.Total == 0 {
		return 0
	}
	return 100 * d.Counts[g][c] / float64(d.Total)
}

// Counts 统计column每个取值在target每个取值下的行数
// target为空时只统计column本身
func Counts(df dataframe.DataFrame, column, target string) (CountData, error) {
	col, err := profiler.Column(df, column)
	if err != nil {
		return CountData{}, err
	}

	data := CountData{
		Categories: profiler.Categories(col),
		Total:      df.Nrow(),
	}
	catIdx := make(map[string]int, len(data.Categories))
	for i, c := range data.Categories {
		catIdx[c] = i
	}

	if target == "" {
		counts := profiler.CountBy(col)
		row := make([]float64, len(data.Categories))
		for c, i := range catIdx {
			row[i] = float64(counts[c])
		}
		data.Counts = [][]float64{row}
		return data, nil
	}

	tcol, err := profiler.Column(df, target)
	if err != nil {
		return CountData{}, err
	}
	data.Groups = profiler.Categories(tcol)
	groupIdx := make(map[string]int, len(data.Groups))
	data.Counts = make([][]float64, len(data.Groups))
	for i, g := range data.Groups {
		groupIdx[g] = i
		data.Counts[i] = make([]float64, len(data.Categories))
	}

	for i := 0; i < col.Len(); i++ {
		c, t := col.Elem(i), tcol.Elem(i)
		if c.IsNA() || t.IsNA() {
			continue
		}
		data.Counts[groupIdx[profiler.ValueKey(t)]][catIdx[profiler.ValueKey(c)]]++
	}
	return data, nil
}

// PlotCategorical 分类列计数图，按目标列分组着色，每根柱子标注占总行数的百分比
func (r *Renderer) PlotCategorical(df dataframe.DataFrame, column, target string) (string, error) {
	data, err := Counts(df, column, target)
	if err != nil {
		return "", err
	}
	p, err := countPlot(data, column)
	if err != nil {
		return "", err
	}
	p.X.Label.Text = column
	return r.save(p, fileName("count", column, target))
}

// PlotTargetDistribution 目标列自身的计数图
func (r *Renderer) PlotTargetDistribution(df dataframe.DataFrame, target string) (string, error) {
	data, err := Counts(df, target, "")
	if err != nil {
		return "", err
	}
	p, err := countPlot(data, target)
	if err != nil {
		return "", err
	}
	p.X.Label.Text = target
	return r.save(p, fileName("target", target))
}

// countPlot 绘制分组柱状图并添加百分比标注
func countPlot(data CountData, title string) (*plot.Plot, error) {
	if len(data.Categories) == 0 {
		return nil, fmt.Errorf("列 %s 没有非缺失值，无法绘制计数图", title)
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "count"
	p.Y.Min = 0

	n := len(data.Counts)
	barWidth := groupWidth / vg.Length(n)
	maxCount := 0.0

	for g, counts := range data.Counts {
		bars, err := plotter.NewBarChart(plotter.Values(counts), barWidth)
		if err != nil {
			return nil, fmt.Errorf("创建柱状图失败: %w", err)
		}
		offset := (vg.Length(g) - vg.Length(n-1)/2) * barWidth
		bars.Offset = offset
		bars.LineStyle.Width = 0
		bars.Color = palette(g, 255)
		p.Add(bars)
		if len(data.Groups) > 0 {
			p.Legend.Add(data.Groups[g], bars)
		}

		labels, err := percentLabels(data, g, offset)
		if err != nil {
			return nil, err
		}
		p.Add(labels)

		for _, c := range counts {
			maxCount = math.Max(maxCount, c)
		}
	}

	// 给柱顶标注留出空间
	p.Y.Max = maxCount * 1.12
	p.Legend.Top = true
	p.NominalX(data.Categories...)
	p.X.Tick.Label.Rotation = math.Pi / 2
	p.X.Tick.Label.XAlign = text.XRight
	p.X.Tick.Label.YAlign = text.YCenter
	return p, nil
}

func percentLabels(data CountData, g int, offset vg.Length) (*plotter.Labels, error) {
	xyl := plotter.XYLabels{
		XYs:    make(plotter.XYs, len(data.Categories)),
		Labels: make([]string, len(data.Categories)),
	}
	for c := range data.Categories {
		xyl.XYs[c].X = float64(c)
		xyl.XYs[c].Y = data.Counts[g][c]
		xyl.Labels[c] = fmt.Sprintf("%.1f%%", data.Percent(g, c))
	}

	labels, err := plotter.NewLabels(xyl)
	if err != nil {
		return nil, fmt.Errorf("创建百分比标注失败: %w", err)
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].XAlign = text.XCenter
		labels.TextStyle[i].Font.Size = vg.Points(7)
	}
	labels.Offset = vg.Point{X: offset, Y: vg.Points(2)}
	return labels, nil
}
