// relation.go
package chart

import (
	"fmt"
	"sort"

	"ChurnInsight/src/profiler"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// pairs 收集x、y都不缺失的点，按目标列分组
func pairs(df dataframe.DataFrame, x, y, target string) ([]string, []plotter.XYs, error) {
	xcol, err := numericColumn(df, x)
	if err != nil {
		return nil, nil, err
	}
	ycol, err := numericColumn(df, y)
	if err != nil {
		return nil, nil, err
	}

	if target == "" {
		var xys plotter.XYs
		for i := 0; i < xcol.Len(); i++ {
			xe, ye := xcol.Elem(i), ycol.Elem(i)
			if xe.IsNA() || ye.IsNA() {
				continue
			}
			xys = append(xys, plotter.XY{X: xe.Float(), Y: ye.Float()})
		}
		return []string{y}, []plotter.XYs{xys}, nil
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
	points := make([]plotter.XYs, len(groups))
	for i := 0; i < xcol.Len(); i++ {
		xe, ye, te := xcol.Elem(i), ycol.Elem(i), tcol.Elem(i)
		if xe.IsNA() || ye.IsNA() || te.IsNA() {
			continue
		}
		g := idx[profiler.ValueKey(te)]
		points[g] = append(points[g], plotter.XY{X: xe.Float(), Y: ye.Float()})
	}
	return groups, points, nil
}

// numericColumn 取数值列，文本列返回ErrNotNumeric
func numericColumn(df dataframe.DataFrame, name string) (series.Series, error) {
	col, err := profiler.Column(df, name)
	if err != nil {
		return series.Series{}, err
	}
	if profiler.IsCategorical(col.Type()) {
		return series.Series{}, fmt.Errorf("%w: %s", profiler.ErrNotNumeric, name)
	}
	return col, nil
}

// MeanByX 对相同x的点取y的均值，结果按x升序
func MeanByX(xys plotter.XYs) plotter.XYs {
	sums := make(map[float64]float64)
	counts := make(map[float64]int)
	for _, p := range xys {
		sums[p.X] += p.Y
		counts[p.X]++
	}
	out := make(plotter.XYs, 0, len(sums))
	for x, sum := range sums {
		out = append(out, plotter.XY{X: x, Y: sum / float64(counts[x])})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].X < out[j].X })
	return out
}

// relationPlot 两个数值列关系图的公共部分
func relationPlot(x, y string) *plot.Plot {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s vs %s", x, y)
	p.X.Label.Text = x
	p.Y.Label.Text = y
	p.Legend.Top = true
	return p
}

// Scatter 散点图，按目标列着色
func (r *Renderer) Scatter(df dataframe.DataFrame, x, y, target string) (string, error) {
	groups, points, err := pairs(df, x, y, target)
	if err != nil {
		return "", err
	}

	p := relationPlot(x, y)
	for g, xys := range points {
		if len(xys) == 0 {
			continue
		}
		s, err := plotter.NewScatter(xys)
		if err != nil {
			return "", fmt.Errorf("创建散点失败: %w", err)
		}
		s.GlyphStyle.Color = palette(g, 180)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Radius = vg.Points(2)
		p.Add(s)
		if target != "" {
			p.Legend.Add(groups[g], s)
		}
	}
	return r.save(p, fileName("scatter", x, y, target))
}

// Line 折线图，每条线是目标列一个取值下各x对应y的均值
func (r *Renderer) Line(df dataframe.DataFrame, x, y, target string) (string, error) {
	groups, points, err := pairs(df, x, y, target)
	if err != nil {
		return "", err
	}

	p := relationPlot(x, y)
	for g, xys := range points {
		if len(xys) == 0 {
			continue
		}
		l, err := plotter.NewLine(MeanByX(xys))
		if err != nil {
			return "", fmt.Errorf("创建折线失败: %w", err)
		}
		l.Color = palette(g, 255)
		l.Width = vg.Points(1.5)
		p.Add(l)
		if target != "" {
			p.Legend.Add(groups[g], l)
		}
	}
	return r.save(p, fileName("line", x, y, target))
}
