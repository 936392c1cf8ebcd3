// run.go
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ChurnInsight/src/config"
	"ChurnInsight/src/profiler"
	"ChurnInsight/src/storage"
	"ChurnInsight/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// chartGap 工作簿中相邻图片之间的行数
const chartGap = 32

// Segment 分段直方图参数
type Segment struct {
	Column string
	Values []string
	Label  string
}

// Options 一次完整分析的参数
type Options struct {
	Target     string            // 目标列，为空时图表不分组
	Segment    Segment           // 分段列不存在时跳过分段图
	Relations  []config.Relation // 额外的散点图/折线图
	ReportFile string            // 汇总工作簿路径，为空不输出
	// DuplicatesFile 重复行明细的Excel路径，为空或没有重复行时不输出
	DuplicatesFile string
}

// Result 一次完整分析的结果
type Result struct {
	Rows, Cols  int
	Missing     profiler.MissingnessReport
	Duplicates  profiler.DuplicationReport
	Categorical []string
	Numeric     []string
	Unique      []profiler.UniqueCount
	Summary     []profiler.NumericSummary
	Charts      []string // 成功输出的图表
	Failed      []string // 失败的图表及原因
	Workbook    string
	Sheets      []string // 汇总工作簿中的工作表
	DupFile     string   // 重复行明细文件
	Elapsed     time.Duration
}

// Text 用于邮件正文的简要说明
func (r *Result) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "数据规模: %d 行 × %d 列\n", r.Rows, r.Cols)
	fmt.Fprintf(&b, "分类列 %d 个，数值列 %d 个\n", len(r.Categorical), len(r.Numeric))
	if r.Missing.Empty() {
		b.WriteString("没有缺失值\n")
	} else {
		fmt.Fprintf(&b, "%d 列存在缺失值，最高 %s %.2f%%\n",
			len(r.Missing.Entries), r.Missing.Entries[0].Column, r.Missing.Entries[0].MissingPercentage)
	}
	if r.Duplicates.Empty() {
		b.WriteString("没有重复行\n")
	} else {
		fmt.Fprintf(&b, "重复行 %d 行，占 %.2f%%\n", r.Duplicates.DuplicatedRows, r.Duplicates.Percentage)
		if r.DupFile != "" {
			fmt.Fprintf(&b, "重复行明细见 %s\n", filepath.Base(r.DupFile))
		}
	}
	fmt.Fprintf(&b, "生成图表 %d 张", len(r.Charts))
	if len(r.Failed) > 0 {
		fmt.Fprintf(&b, "，失败 %d 张", len(r.Failed))
	}
	b.WriteString("\n")
	return b.String()
}

// Run 输出控制台报告、全部图表和汇总工作簿
// 单张图表失败只记录日志，不中断其余输出
func (a *Analyzer) Run(opts Options, logger *storage.Logger) (*Result, error) {
	start := time.Now()
	if a.df.Err != nil {
		return nil, fmt.Errorf("数据表无效: %w", a.df.Err)
	}
	if opts.Target != "" && !utils.HasColumn(a.df, opts.Target) {
		return nil, fmt.Errorf("目标列 %w: %s", profiler.ErrColumnNotFound, opts.Target)
	}

	res := &Result{Rows: a.df.Nrow(), Cols: a.df.Ncol()}
	if err := a.console(res); err != nil {
		return nil, err
	}
	logger.Infof("控制台报告完成: %d 行 %d 列", res.Rows, res.Cols)

	if opts.DuplicatesFile != "" && !res.Duplicates.Empty() {
		if err := a.writeDuplicates(opts.DuplicatesFile); err != nil {
			return nil, err
		}
		res.DupFile = opts.DuplicatesFile
		logger.Infof("重复行明细已保存到: %s", opts.DuplicatesFile)
	}

	a.plotAll(opts, res, logger)
	logger.Infof("图表输出完成: 成功 %d 张，失败 %d 张", len(res.Charts), len(res.Failed))

	if opts.ReportFile != "" {
		if err := a.writeWorkbook(opts.ReportFile, res); err != nil {
			return nil, err
		}
		res.Workbook = opts.ReportFile
		logger.Infof("汇总工作簿已保存到: %s", opts.ReportFile)
	}

	res.Elapsed = time.Since(start)
	return res, nil
}

// console 依次输出各项报告并记录结果
func (a *Analyzer) console(res *Result) error {
	var err error
	if res.Missing, err = profiler.MissingValues(a.df); err != nil {
		return err
	}
	if res.Duplicates, err = profiler.DuplicateRows(a.df); err != nil {
		return err
	}
	res.Categorical, res.Numeric = a.SplitColumns()
	if res.Unique, err = profiler.UniqueValues(a.df, res.Categorical); err != nil {
		return err
	}
	if res.Summary, err = profiler.Describe(a.df); err != nil {
		return err
	}

	steps := []func() error{
		a.ReportMissingValues,
		a.ReportDuplicateRows,
		func() error {
			_, err := fmt.Fprintf(a.out, "Categorical columns: %s\nNumeric columns: %s\n",
				strings.Join(res.Categorical, ", "), strings.Join(res.Numeric, ", "))
			return err
		},
		func() error { return a.CountUniqueValues(res.Categorical) },
		a.Describe,
	}
	for i, step := range steps {
		if i > 0 {
			if _, err := fmt.Fprintln(a.out); err != nil {
				return err
			}
		}
		if err := step(); err != nil {
			return fmt.Errorf("输出报告失败: %w", err)
		}
	}
	return nil
}

// plotAll 按配置输出全部图表
func (a *Analyzer) plotAll(opts Options, res *Result, logger *storage.Logger) {
	record := func(name string, path string, err error) {
		if err != nil {
			logger.Warningf("图表 %s 输出失败: %v", name, err)
			res.Failed = append(res.Failed, fmt.Sprintf("%s: %v", name, err))
			return
		}
		logger.Debugf("图表已保存: %s", path)
		res.Charts = append(res.Charts, path)
	}

	target := opts.Target
	if target != "" {
		path, err := a.PlotTargetDistribution(target)
		record("target "+target, path, err)
	}
	for _, col := range res.Categorical {
		if col == target {
			continue
		}
		path, err := a.PlotCategorical(col, target)
		record("count "+col, path, err)
	}
	for _, col := range res.Numeric {
		if col == target {
			continue
		}
		path, err := a.PlotNumeric(col, target)
		record("hist "+col, path, err)
	}

	seg := opts.Segment
	if seg.Column != "" && utils.HasColumn(a.df, seg.Column) && len(seg.Values) > 0 {
		label := seg.Label
		if label != "" && !utils.HasColumn(a.df, label) {
			label = ""
		}
		for _, col := range res.Numeric {
			if col == seg.Column || col == label {
				continue
			}
			path, err := a.PlotSegmentedNumeric(col, seg.Column, seg.Values, label)
			record("segments "+col, path, err)
		}
	} else if seg.Column != "" {
		logger.Infof("没有分段列 %s，跳过分段图", seg.Column)
	}

	for _, rel := range opts.Relations {
		var (
			path string
			err  error
		)
		if rel.Kind == "line" {
			path, err = a.Line(rel.X, rel.Y, target)
		} else {
			path, err = a.Scatter(rel.X, rel.Y, target)
		}
		record(rel.Kind+" "+rel.X+" vs "+rel.Y, path, err)
	}
}

// ensureParent 创建文件所在的目录
func ensureParent(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建报告目录失败: %w", err)
		}
	}
	return nil
}

// writeDuplicates 把所有重复行按原顺序写入单表Excel
func (a *Analyzer) writeDuplicates(path string) error {
	if err := ensureParent(path); err != nil {
		return err
	}
	dup := a.df.Subset(profiler.DuplicatedRowIndices(a.df))
	if err := utils.SaveToExcel(dup, path); err != nil {
		return fmt.Errorf("保存重复行明细失败: %w", err)
	}
	return nil
}

// writeWorkbook 每项报告一个工作表，图片放在Charts表中
func (a *Analyzer) writeWorkbook(path string, res *Result) error {
	if err := ensureParent(path); err != nil {
		return err
	}

	wb := utils.NewWorkbook()
	sheets := []struct {
		name string
		df   dataframe.DataFrame
	}{
		{"Missing", res.Missing.Frame()},
		{"Duplicates", res.Duplicates.Frame()},
		{"Columns", columnsFrame(res.Categorical, res.Numeric)},
		{"Unique", uniqueFrame(res.Unique)},
		{"Summary", profiler.SummaryFrame(res.Summary)},
	}
	for _, s := range sheets {
		if err := wb.AddFrame(s.name, s.df); err != nil {
			return fmt.Errorf("写入工作表 %s 失败: %w", s.name, err)
		}
	}

	var pictures []string
	for _, p := range res.Charts {
		switch strings.ToLower(filepath.Ext(p)) {
		case ".png", ".jpg", ".jpeg":
			pictures = append(pictures, p)
		}
	}
	if len(pictures) > 0 {
		if err := wb.AddPictures("Charts", pictures, chartGap); err != nil {
			return err
		}
	}
	res.Sheets = wb.Sheets()
	return wb.SaveAs(path)
}

func columnsFrame(catCols, numCols []string) dataframe.DataFrame {
	names := append(append([]string(nil), catCols...), numCols...)
	kinds := make([]string, 0, len(names))
	for range catCols {
		kinds = append(kinds, "categorical")
	}
	for range numCols {
		kinds = append(kinds, "numeric")
	}
	return dataframe.New(
		series.New(names, series.String, "Column"),
		series.New(kinds, series.String, "Kind"),
	)
}

func uniqueFrame(counts []profiler.UniqueCount) dataframe.DataFrame {
	names := make([]string, len(counts))
	values := make([]int, len(counts))
	for i, c := range counts {
		names[i] = c.Column
		values[i] = c.Unique
	}
	return dataframe.New(
		series.New(names, series.String, "Column"),
		series.New(values, series.Int, "Unique"),
	)
}
