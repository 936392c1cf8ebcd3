// chart.go
package chart

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

const (
	DefaultFormat = "png"
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 6 * vg.Inch
)

// 文件名中只保留字母、数字和汉字，其余字符替换为下划线
var unsafeName = regexp.MustCompile(`[^A-Za-z0-9\p{Han}]+`)

// Options 图表输出配置
type Options struct {
	OutputDir string    // 图片输出目录
	Format    string    // png、svg、pdf等，由gonum/plot根据扩展名决定
	Width     vg.Length // 单张图宽度
	Height    vg.Length // 单张图高度
}

// Renderer 把图表渲染为图片文件
// 每次调用都在文件写完并关闭后才返回文件路径
type Renderer struct {
	opts Options
}

// NewRenderer 创建渲染器，并确保输出目录存在
func NewRenderer(opts Options) (*Renderer, error) {
	if opts.OutputDir == "" {
		opts.OutputDir = "charts"
	}
	if opts.Format == "" {
		opts.Format = DefaultFormat
	}
	opts.Format = strings.TrimPrefix(strings.ToLower(opts.Format), ".")
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}

	if err := ensureDir(opts.OutputDir); err != nil {
		return nil, fmt.Errorf("创建图表目录失败: %w", err)
	}
	return &Renderer{opts: opts}, nil
}

// Options 返回实际生效的配置
func (r *Renderer) Options() Options {
	return r.opts
}

// ensureDir 确保目录存在
func ensureDir(dirPath string) error {
	if info, err := os.Stat(dirPath); err == nil {
		if info.IsDir() {
			return nil
		}
		return fmt.Errorf("%s exists but is not a directory", dirPath)
	}
	return os.MkdirAll(dirPath, 0755)
}

// fileName 由图表种类和列名生成文件名
func fileName(kind string, parts ...string) string {
	name := kind
	for _, p := range parts {
		if p == "" {
			continue
		}
		name += "_" + strings.Trim(unsafeName.ReplaceAllString(p, "_"), "_")
	}
	return name
}

// save 保存单张图
func (r *Renderer) save(p *plot.Plot, name string) (string, error) {
	path := filepath.Join(r.opts.OutputDir, name+"."+r.opts.Format)
	if err := p.Save(r.opts.Width, r.opts.Height, path); err != nil {
		return "", fmt.Errorf("保存图表 %s 失败: %w", path, err)
	}
	return path, nil
}

// palette 第i个分组的颜色，alpha用于重叠的直方图
func palette(i int, alpha uint8) color.Color {
	r, g, b, _ := plotutil.Color(i).RGBA()
	return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: alpha}
}
