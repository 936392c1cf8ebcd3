// reader.go
package file

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ChurnInsight/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// ErrUnsupported 不支持的文件类型
var ErrUnsupported = errors.New("不支持的文件类型")

// defaultNAValues gota默认的缺失值标记，再加上空字符串
var defaultNAValues = []string{"NA", "NaN", "<nil>", ""}

// Options 加载选项
type Options struct {
	Sheet       string            // XLSX工作表名，为空取第一个
	HeaderRow   int               // XLSX表头所在行，从0开始
	NAValues    []string          // 额外的缺失值标记
	Types       map[string]string // 列类型覆盖: int/float/string/bool
	Encoding    string            // CSV编码: utf-8 或 gbk
	DropColumns []string          // 加载后删除的列
}

// Dataset 加载后的数据集
type Dataset struct {
	Name    string // 文件名
	Path    string
	ModTime time.Time
	Frame   dataframe.DataFrame
}

// Supported 判断文件扩展名是否可以加载
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}

// Load 按扩展名加载CSV或XLSX文件
func Load(path string, opts Options) (*Dataset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("读取数据文件失败: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取数据文件失败: %w", err)
	}

	df, err := LoadBytes(info.Name(), data, opts)
	if err != nil {
		return nil, fmt.Errorf("加载 %s 失败: %w", path, err)
	}
	return &Dataset{
		Name:    info.Name(),
		Path:    path,
		ModTime: info.ModTime(),
		Frame:   df,
	}, nil
}

// LoadBytes 按文件名扩展名解析内存中的文件内容，用于邮件附件
func LoadBytes(name string, data []byte, opts Options) (dataframe.DataFrame, error) {
	var (
		df  dataframe.DataFrame
		err error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		df, err = ReadCSV(bytes.NewReader(data), opts)
	case ".xlsx":
		df, err = ReadXLSXBinary(data, opts)
	default:
		return dataframe.DataFrame{}, fmt.Errorf("%w: %s", ErrUnsupported, name)
	}
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	return DropColumns(df, opts.DropColumns), nil
}

// ReadCSV 读取CSV，按配置处理编码、缺失值和列类型
func ReadCSV(r io.Reader, opts Options) (dataframe.DataFrame, error) {
	switch strings.ToLower(opts.Encoding) {
	case "", "utf-8", "utf8":
	case "gbk":
		r = transform.NewReader(r, simplifiedchinese.GBK.NewDecoder())
	default:
		return dataframe.DataFrame{}, fmt.Errorf("不支持的编码: %s", opts.Encoding)
	}

	loadOpts, err := loadOptions(opts)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	df := dataframe.ReadCSV(r, loadOpts...)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("解析CSV失败: %w", df.Err)
	}
	return df, nil
}

// ReadXLSX 读取XLSX文件中的一个工作表
func ReadXLSX(filePath string, opts Options) (dataframe.DataFrame, error) {
	// 使用tealeg/xlsx打开Excel文件
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("xlsx open file false: %w", err)
	}
	return sheetToDataFrame(xlFile, opts)
}

// ReadXLSXBinary 从内存读取XLSX
func ReadXLSXBinary(data []byte, opts Options) (dataframe.DataFrame, error) {
	xlFile, err := xlsx.OpenBinary(data)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("xlsx open binary false: %w", err)
	}
	return sheetToDataFrame(xlFile, opts)
}

// sheetToDataFrame 将工作表转换为dataframe.DataFrame，列类型由gota推断
func sheetToDataFrame(xlFile *xlsx.File, opts Options) (dataframe.DataFrame, error) {
	if len(xlFile.Sheets) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("excel文件中没有工作表")
	}
	sheet := xlFile.Sheets[0]
	if opts.Sheet != "" {
		s, ok := xlFile.Sheet[opts.Sheet]
		if !ok {
			return dataframe.DataFrame{}, fmt.Errorf("工作表 %s 不存在", opts.Sheet)
		}
		sheet = s
	}
	if opts.HeaderRow < 0 || opts.HeaderRow >= len(sheet.Rows) {
		return dataframe.DataFrame{}, fmt.Errorf("工作表 %s 没有第 %d 行表头", sheet.Name, opts.HeaderRow)
	}

	// 获取列名
	var headers []string
	for _, cell := range sheet.Rows[opts.HeaderRow].Cells {
		headers = append(headers, strings.TrimSpace(cell.Value))
	}
	for len(headers) > 0 && headers[len(headers)-1] == "" {
		headers = headers[:len(headers)-1]
	}
	if len(headers) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("工作表 %s 表头为空", sheet.Name)
	}

	// 填充数据，短行补空，完全空的行跳过
	records := [][]string{headers}
	for _, row := range sheet.Rows[opts.HeaderRow+1:] {
		if row == nil {
			continue
		}
		record := make([]string, len(headers))
		empty := true
		for i, cell := range row.Cells {
			if i >= len(headers) || cell == nil {
				break
			}
			record[i] = cell.Value
			if cell.Value != "" {
				empty = false
			}
		}
		if !empty {
			records = append(records, record)
		}
	}

	loadOpts, err := loadOptions(opts)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	df := dataframe.LoadRecords(records, loadOpts...)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("转换工作表 %s 失败: %w", sheet.Name, df.Err)
	}
	return df, nil
}

// loadOptions 把配置转换为gota的加载选项
func loadOptions(opts Options) ([]dataframe.LoadOption, error) {
	na := append([]string(nil), defaultNAValues...)
	for _, v := range opts.NAValues {
		if !utils.Contains(na, v) {
			na = append(na, v)
		}
	}
	out := []dataframe.LoadOption{dataframe.NaNValues(na)}

	if len(opts.Types) > 0 {
		types := make(map[string]series.Type, len(opts.Types))
		for col, name := range opts.Types {
			t, err := ParseType(name)
			if err != nil {
				return nil, fmt.Errorf("列 %s: %w", col, err)
			}
			types[col] = t
		}
		out = append(out, dataframe.WithTypes(types))
	}
	return out, nil
}

// ParseType 解析配置中的列类型名
func ParseType(name string) (series.Type, error) {
	switch strings.ToLower(name) {
	case "int":
		return series.Int, nil
	case "float":
		return series.Float, nil
	case "string":
		return series.String, nil
	case "bool":
		return series.Bool, nil
	}
	return "", fmt.Errorf("未知的列类型 %q", name)
}

// DropColumns 删除存在的列，不存在的忽略
func DropColumns(df dataframe.DataFrame, cols []string) dataframe.DataFrame {
	var drop []string
	for _, c := range cols {
		if utils.HasColumn(df, c) {
			drop = append(drop, c)
		}
	}
	if len(drop) == 0 {
		return df
	}
	return df.Drop(drop)
}

// FindLatest 查找目录下名称包含keyword且可加载的最新文件
func FindLatest(dir, keyword string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory: %w", err)
	}

	var (
		latest  string
		modTime time.Time
	)
	for _, entry := range entries {
		if entry.IsDir() || !Supported(entry.Name()) || !strings.Contains(entry.Name(), keyword) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(modTime) {
			latest = filepath.Join(dir, entry.Name())
			modTime = info.ModTime()
		}
	}

	if latest == "" {
		return "", fmt.Errorf("%s 中没有匹配的数据文件", dir)
	}
	return latest, nil
}
