package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// 运行模式
const (
	ModeOnce     = "once"
	ModeSchedule = "schedule"
	ModeWatch    = "watch"
	ModeMail     = "mail"
)

// Relation 需要绘制的两列关系图
type Relation struct {
	X    string `json:"x"`
	Y    string `json:"y"`
	Kind string `json:"kind"` // scatter 或 line
}

// Config 结构体定义了应用程序的配置结构
type Config struct {
	Mode string `json:"mode"` // once、schedule、watch、mail，命令行参数优先

	Dataset struct {
		Path      string `json:"path"`       // CSV或XLSX文件
		Sheet     string `json:"sheet"`      // XLSX工作表名，为空取第一个
		HeaderRow int    `json:"header_row"` // 表头所在行，从0开始
	} `json:"dataset"`

	Target    string     `json:"target"`    // 着色/分组用的目标列
	Relations []Relation `json:"relations"` // 额外的散点图/折线图

	Segment struct {
		Column string   `json:"column"` // 分段列
		Values []string `json:"values"` // 分段取值，按顺序排列分面
		Label  string   `json:"label"`  // 分面内着色的列
	} `json:"segment"`

	Chart struct {
		Dir    string  `json:"dir"`    // 图片输出目录
		Format string  `json:"format"` // png、svg、pdf
		Width  float64 `json:"width"`  // 英寸
		Height float64 `json:"height"` // 英寸
	} `json:"chart"`

	ReportFile string `json:"report_file"` // 汇总工作簿路径
	// DuplicatesFile 重复行明细输出路径
	DuplicatesFile string `json:"duplicates_file"`
	LogName    string `json:"log_name"`
	LogMaxSize string `json:"log_max_size"` // 日志轮转阈值，支持 "10 * 1024 * 1024" 这样的表达式

	Schedule struct {
		Interval Duration `json:"interval"` // 定时分析的间隔
	} `json:"schedule"`

	Watch struct {
		Dir string `json:"dir"` // 监控的数据目录
	} `json:"watch"`

	Email struct {
		Server        string   `json:"server"`         // 邮件服务器地址
		Username      string   `json:"username"`       // 邮箱用户名
		Password      string   `json:"password"`       // 邮箱密码
		TargetSubject string   `json:"target_subject"` // 需要匹配的邮件主题
		CheckInterval Duration `json:"check_interval"` // 检查新邮件的间隔时间
		SaveDir       string   `json:"save_dir"`       // 附件保存目录
	} `json:"email"`

	SendEmail struct {
		Server   string   `json:"server"` // host:port
		Username string   `json:"username"`
		Password string   `json:"password"`
		To       []string `json:"to"`
		Subject  string   `json:"subject"`
	} `json:"send_email"`
}

// DataConfig 数据加载相关的配置
type DataConfig struct {
	ColumnTypes map[string]string `json:"column_types"` // 列名 -> int/float/string/bool
	NAValues    []string          `json:"na_values"`    // 视为缺失的额外取值
	DropColumns []string          `json:"drop_columns"` // 加载后删除的列(如客户ID)
	Encoding    string            `json:"encoding"`     // utf-8 或 gbk
}

var (
	once               sync.Once
	instance           *Config
	dataConfigInstance *DataConfig
	mu                 sync.RWMutex
)

func LoadConfig(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	var err error
	once.Do(func() {
		instance, dataConfigInstance, err = loadConfigs(jsonFolder, jsonFile, dataJsonFile)
	})
	return instance, dataConfigInstance, err
}

func loadConfigs(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	configFile := filepath.Join(jsonFolder, jsonFile)
	dataConfigFile := filepath.Join(jsonFolder, dataJsonFile)

	configData, err := readFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	dataConfigData, err := readFile(dataConfigFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取数据配置文件失败: %w", err)
	}

	cfgChan := make(chan *Config, 1)
	dcfgChan := make(chan *DataConfig, 1)
	errChan := make(chan error, 2)

	go parseConfig(configData, cfgChan, errChan)
	go parseDataConfig(dataConfigData, dcfgChan, errChan)

	cfg, dcfg, err := waitForResults(cfgChan, dcfgChan, errChan)
	if err != nil {
		return nil, nil, err
	}

	if err := combineErrors(nonNil(cfg.Validate(), dcfg.Validate())); err != nil {
		return nil, nil, err
	}
	return cfg, dcfg, nil
}

func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	return data, nil
}

func parseConfig(data []byte, resultChan chan<- *Config, errChan chan<- error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		errChan <- fmt.Errorf("解析Config失败: %w", err)
		return
	}
	resultChan <- &cfg
}

func parseDataConfig(data []byte, resultChan chan<- *DataConfig, errChan chan<- error) {
	var dcfg DataConfig
	if err := json.Unmarshal(data, &dcfg); err != nil {
		errChan <- fmt.Errorf("解析DataConfig失败: %w", err)
		return
	}
	resultChan <- &dcfg
}

func waitForResults(
	cfgChan <-chan *Config,
	dcfgChan <-chan *DataConfig,
	errChan <-chan error,
) (*Config, *DataConfig, error) {
	var (
		cfg    *Config
		dcfg   *DataConfig
		errors []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
		case d := <-dcfgChan:
			dcfg = d
		case err := <-errChan:
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return nil, nil, combineErrors(errors)
	}

	if cfg == nil || dcfg == nil {
		return nil, nil, fmt.Errorf("部分配置未加载成功")
	}

	return cfg, dcfg, nil
}

func nonNil(errs ...error) []error {
	var out []error
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	msg := "配置加载遇到多个错误:"
	for _, err := range errs {
		msg = fmt.Sprintf("%s\n- %v", msg, err)
	}
	return fmt.Errorf("%s", msg)
}

// Validate 校验配置并填充默认值
func (c *Config) Validate() error {
	if c.Mode == "" {
		c.Mode = ModeOnce
	}
	if !ValidMode(c.Mode) {
		return fmt.Errorf("未知的运行模式: %s", c.Mode)
	}
	if c.Chart.Dir == "" {
		c.Chart.Dir = "charts"
	}
	if c.Chart.Format == "" {
		c.Chart.Format = "png"
	}
	if c.Chart.Width <= 0 {
		c.Chart.Width = 8
	}
	if c.Chart.Height <= 0 {
		c.Chart.Height = 6
	}
	if c.Segment.Column == "" {
		c.Segment.Column = "Contract"
		c.Segment.Label = "Churn"
		c.Segment.Values = []string{"Month-to-month", "One year", "Two year"}
	}
	if c.Segment.Label == "" {
		c.Segment.Label = c.Target
	}
	if c.LogName == "" {
		c.LogName = "app.log"
	}
	if c.LogMaxSize == "" {
		c.LogMaxSize = "10 * 1024 * 1024"
	}
	if c.Schedule.Interval <= 0 {
		c.Schedule.Interval = Duration(time.Hour)
	}
	if c.Email.CheckInterval <= 0 {
		c.Email.CheckInterval = Duration(5 * time.Minute)
	}
	if c.Email.SaveDir == "" {
		c.Email.SaveDir = "downloads"
	}
	for i, r := range c.Relations {
		if r.X == "" || r.Y == "" {
			return fmt.Errorf("relations[%d] 缺少x或y", i)
		}
		switch r.Kind {
		case "":
			c.Relations[i].Kind = "scatter"
		case "scatter", "line":
		default:
			return fmt.Errorf("relations[%d] 未知的图表类型: %s", i, r.Kind)
		}
	}
	return nil
}

// ValidMode 判断运行模式是否合法
func ValidMode(mode string) bool {
	switch mode {
	case ModeOnce, ModeSchedule, ModeWatch, ModeMail:
		return true
	}
	return false
}

// Validate 校验数据配置并填充默认值
func (dc *DataConfig) Validate() error {
	mu.Lock()
	defer mu.Unlock()
	dc.Encoding = strings.ToLower(strings.TrimSpace(dc.Encoding))
	switch dc.Encoding {
	case "":
		dc.Encoding = "utf-8"
	case "utf-8", "utf8", "gbk":
	default:
		return fmt.Errorf("不支持的编码: %s", dc.Encoding)
	}
	if dc.ColumnTypes == nil {
		dc.ColumnTypes = make(map[string]string)
	}
	for col, t := range dc.ColumnTypes {
		switch t {
		case "int", "float", "string", "bool":
		default:
			return fmt.Errorf("列 %s 的类型 %s 不合法", col, t)
		}
	}
	return nil
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON序列化和反序列化
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
// 用于从JSON字符串解析Duration
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON 实现json.Marshaler接口
// 用于将Duration序列化为JSON字符串
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (dc *DataConfig) GetColumnType(colName string) string {
	mu.RLock()
	defer mu.RUnlock()
	return dc.ColumnTypes[colName]
}

func (dc *DataConfig) SetColumnType(colName, value string) {
	mu.Lock()
	defer mu.Unlock()
	if dc.ColumnTypes == nil {
		dc.ColumnTypes = make(map[string]string)
	}
	dc.ColumnTypes[colName] = value
}

// GetColumnTypes 返回类型覆盖的副本
func (dc *DataConfig) GetColumnTypes() map[string]string {
	mu.RLock()
	defer mu.RUnlock()
	out := make(map[string]string, len(dc.ColumnTypes))
	for k, v := range dc.ColumnTypes {
		out[k] = v
	}
	return out
}

func (dc *DataConfig) GetNAValues() []string {
	mu.RLock()
	defer mu.RUnlock()
	return append([]string(nil), dc.NAValues...)
}

func (dc *DataConfig) GetDropColumns() []string {
	mu.RLock()
	defer mu.RUnlock()
	return append([]string(nil), dc.DropColumns...)
}

func (dc *DataConfig) GetEncoding() string {
	mu.RLock()
	defer mu.RUnlock()
	return dc.Encoding
}
