package profiler

import "errors"

var (
	// ErrEmptyTable 数据表没有任何列
	ErrEmptyTable = errors.New("数据表没有任何列")
	// ErrColumnNotFound 引用了不存在的列
	ErrColumnNotFound = errors.New("列不存在")
	// ErrNotNumeric 对非数值列做了数值运算
	ErrNotNumeric = errors.New("列不是数值类型")
	// ErrNonFinite 数值列中有无穷大，无法分箱或确定坐标轴范围
	ErrNonFinite = errors.New("列中包含无穷大")
)
