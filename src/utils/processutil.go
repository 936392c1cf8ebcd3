package utils

import (
	"fmt"
	_ "image/jpeg"
	_ "image/png"

	"github.com/go-gota/gota/dataframe"
	"github.com/xuri/excelize/v2"
)

func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// 辅助函数：判断DataFrame是否有某列
func HasColumn(df dataframe.DataFrame, name string) bool {
	return Contains(df.Names(), name)
}

// Workbook 对excelize.File的简单封装，用于输出分析报告
type Workbook struct {
	f      *excelize.File
	sheets []string
}

// NewWorkbook 创建一个空的工作簿
func NewWorkbook() *Workbook {
	return &Workbook{f: excelize.NewFile()}
}

// Sheets 已写入的工作表名称
func (w *Workbook) Sheets() []string {
	return w.sheets
}

// sheet 返回可写入的工作表，第一个表复用默认的Sheet1
func (w *Workbook) sheet(name string) error {
	if len(w.sheets) == 0 {
		if err := w.f.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("重命名工作表失败: %w", err)
		}
	} else if Contains(w.sheets, name) {
		return fmt.Errorf("工作表 %s 已存在", name)
	} else if _, err := w.f.NewSheet(name); err != nil {
		return fmt.Errorf("创建工作表失败: %w", err)
	}
	w.sheets = append(w.sheets, name)
	return nil
}

// AddFrame 把DataFrame写入新的工作表，第一行为列名，缺失值留空
func (w *Workbook) AddFrame(name string, df dataframe.DataFrame) error {
	if df.Err != nil {
		return df.Err
	}
	if err := w.sheet(name); err != nil {
		return err
	}

	// 写入列名
	colNames := df.Names()
	header := make([]interface{}, len(colNames))
	for i, n := range colNames {
		header[i] = n
	}
	if err := w.f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("写入列名失败: %w", err)
	}

	// 写入数据
	for rowIdx := 0; rowIdx < df.Nrow(); rowIdx++ {
		row := make([]interface{}, len(colNames))
		for colIdx, colName := range colNames {
			row[colIdx] = df.Col(colName).Val(rowIdx)
		}
		cell, _ := excelize.CoordinatesToCellName(1, rowIdx+2)
		if err := w.f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("写入第%d行失败: %w", rowIdx+1, err)
		}
	}
	return nil
}

// AddPictures 在新的工作表中纵向插入图片，每张图片之间间隔rowGap行
func (w *Workbook) AddPictures(name string, paths []string, rowGap int) error {
	if err := w.sheet(name); err != nil {
		return err
	}
	for i, p := range paths {
		cell, _ := excelize.CoordinatesToCellName(1, i*rowGap+1)
		if err := w.f.AddPicture(name, cell, p, &excelize.GraphicOptions{
			ScaleX: 0.5,
			ScaleY: 0.5,
		}); err != nil {
			return fmt.Errorf("插入图片 %s 失败: %w", p, err)
		}
	}
	return nil
}

// SaveAs 保存工作簿并释放资源
func (w *Workbook) SaveAs(filePath string) error {
	defer w.f.Close()

	if len(w.sheets) > 0 {
		w.f.SetActiveSheet(0)
	}
	if err := w.f.SaveAs(filePath); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return nil
}

// SaveToExcel 将DataFrame保存到单个工作表的Excel文件
func SaveToExcel(df dataframe.DataFrame, filePath string) error {
	wb := NewWorkbook()
	if err := wb.AddFrame("Sheet1", df); err != nil {
		wb.f.Close()
		return err
	}
	return wb.SaveAs(filePath)
}
