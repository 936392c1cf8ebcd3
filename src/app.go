package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ChurnInsight/src/chart"
	"ChurnInsight/src/config"
	"ChurnInsight/src/datasource/email"
	"ChurnInsight/src/datasource/file"
	"ChurnInsight/src/report"
	"ChurnInsight/src/storage"

	"github.com/go-gota/gota/dataframe"
	"github.com/robfig/cron"
	"gonum.org/v1/plot/vg"
)

// app 把配置、数据源和分析串起来
type app struct {
	cfg      *config.Config
	dcfg     *config.DataConfig
	logger   *storage.Logger
	out      io.Writer
	renderer *chart.Renderer
	mu       sync.Mutex // 同一时间只跑一次分析
}

func newApp(cfg *config.Config, dcfg *config.DataConfig, logger *storage.Logger, out io.Writer) (*app, error) {
	renderer, err := chart.NewRenderer(chart.Options{
		OutputDir: cfg.Chart.Dir,
		Format:    cfg.Chart.Format,
		Width:     vg.Length(cfg.Chart.Width) * vg.Inch,
		Height:    vg.Length(cfg.Chart.Height) * vg.Inch,
	})
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, dcfg: dcfg, logger: logger, out: out, renderer: renderer}, nil
}

// applyTypes 用命令行参数覆盖列类型，格式为 col=type,col=type
func applyTypes(dcfg *config.DataConfig, overrides string) error {
	if strings.TrimSpace(overrides) == "" {
		return nil
	}
	for _, pair := range strings.Split(overrides, ",") {
		col, kind, ok := strings.Cut(strings.TrimSpace(pair), "=")
		col, kind = strings.TrimSpace(col), strings.ToLower(strings.TrimSpace(kind))
		if !ok || col == "" || kind == "" {
			return fmt.Errorf("列类型参数格式错误: %q", pair)
		}
		dcfg.SetColumnType(col, kind)
	}
	return dcfg.Validate()
}

// loadOptions 数据加载选项
func (a *app) loadOptions() file.Options {
	return file.Options{
		Sheet:       a.cfg.Dataset.Sheet,
		HeaderRow:   a.cfg.Dataset.HeaderRow,
		NAValues:    a.dcfg.GetNAValues(),
		Types:       a.dcfg.GetColumnTypes(),
		Encoding:    a.dcfg.GetEncoding(),
		DropColumns: a.dcfg.GetDropColumns(),
	}
}

func (a *app) run(ctx context.Context) error {
	switch a.cfg.Mode {
	case config.ModeOnce:
		_, err := a.runFile(a.cfg.Dataset.Path)
		return err
	case config.ModeSchedule:
		return a.every(ctx, time.Duration(a.cfg.Schedule.Interval), func() {
			if _, err := a.runFile(a.cfg.Dataset.Path); err != nil {
				a.logger.Error("定时分析失败: " + err.Error())
			}
		})
	case config.ModeWatch:
		return a.watch(ctx)
	case config.ModeMail:
		client := email.NewEmailClient(a.cfg.Email.Server, a.cfg.Email.Username, a.cfg.Email.Password, a.logger)
		handler := email.NewAttachmentHandler(a.cfg.Email.TargetSubject, a.cfg.Email.SaveDir, a.logger)
		dfw := &email.DataFrameWrapper{}
		return a.every(ctx, time.Duration(a.cfg.Email.CheckInterval), func() {
			if _, err := a.checkMail(client, handler, dfw); err != nil {
				a.logger.Error("检查处理邮件失败: " + err.Error())
			}
		})
	}
	return fmt.Errorf("未知的运行模式: %s", a.cfg.Mode)
}

// every 按间隔执行job，直到ctx取消
func (a *app) every(ctx context.Context, interval time.Duration, job func()) error {
	cronSpec := fmt.Sprintf("@every %s", interval)
	c := cron.New()
	if err := c.AddFunc(cronSpec, job); err != nil {
		return fmt.Errorf("创建定时任务失败: %w", err)
	}

	c.Start()
	defer c.Stop()

	a.logger.Infof("定时任务已启动(%s)，按Ctrl+C退出", cronSpec)
	<-ctx.Done()
	return nil
}

// watch 先分析目录中最新的文件，之后每次文件变化都重新分析
func (a *app) watch(ctx context.Context) error {
	dir := a.cfg.Watch.Dir
	if dir == "" {
		dir = filepath.Dir(a.cfg.Dataset.Path)
	}
	monitor, err := file.NewFileMonitor(dir)
	if err != nil {
		return err
	}

	if latest, err := file.FindLatest(dir, ""); err == nil {
		if _, err := a.runFile(latest); err != nil {
			a.logger.Error(err.Error())
		}
	}

	a.logger.Infof("开始监控目录: %s", dir)
	return monitor.Watch(ctx, func(path string) {
		a.logger.Infof("New file detected: %s", path)
		if _, err := a.runFile(path); err != nil {
			a.logger.Error(err.Error())
		}
	})
}

// runFile 加载文件并分析
func (a *app) runFile(path string) (*report.Result, error) {
	if path == "" {
		return nil, fmt.Errorf("没有配置数据文件")
	}
	ds, err := file.Load(path, a.loadOptions())
	if err != nil {
		return nil, err
	}
	a.logger.Infof("已加载 %s: %d 行 %d 列", ds.Name, ds.Frame.Nrow(), ds.Frame.Ncol())
	return a.analyze(ds.Frame, ds.Name)
}

// checkMail 取最新的目标邮件，保存附件并分析，已处理过的邮件跳过
func (a *app) checkMail(svc email.MailService, handler *email.AttachmentHandler, dfw *email.DataFrameWrapper) (*report.Result, error) {
	msg, err := email.CheckAndProcessEmails(svc, a.cfg.Email.TargetSubject, a.logger)
	if err != nil || msg == nil {
		return nil, err
	}
	if handler.IsProcessed(msg.UID) {
		a.logger.Debugf("邮件 %d 已处理过", msg.UID)
		return nil, nil
	}

	if err := handler.Handle(msg); err != nil {
		a.logger.Error(fmt.Sprintf("处理邮件失败(UID:%d): %v", msg.UID, err))
	}

	if _, err := dfw.LoadAttachment(msg, a.loadOptions()); err != nil {
		return nil, err
	}
	name, uid := dfw.Source()
	a.logger.Infof("已从邮件(UID:%d)加载附件 %s", uid, name)
	return a.analyze(dfw.GetDF(), name)
}

// analyze 跑一次完整分析，配置了收件人时发送报告
func (a *app) analyze(df dataframe.DataFrame, source string) (*report.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	fmt.Fprintf(a.out, "==== %s ====\n", source)
	analyzer := report.NewAnalyzer(df, a.out, a.renderer)
	res, err := analyzer.Run(report.Options{
		Target: a.cfg.Target,
		Segment: report.Segment{
			Column: a.cfg.Segment.Column,
			Values: a.cfg.Segment.Values,
			Label:  a.cfg.Segment.Label,
		},
		Relations:      a.cfg.Relations,
		ReportFile:     a.cfg.ReportFile,
		DuplicatesFile: a.cfg.DuplicatesFile,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("分析 %s 失败: %w", source, err)
	}
	a.logger.Infof("分析 %s 完成，耗时: %v", source, res.Elapsed)

	if _, err := a.logger.CheckRotate(a.cfg.LogMaxSize); err != nil {
		a.logger.Warning(err.Error())
	}

	if a.cfg.SendEmail.Server != "" && len(a.cfg.SendEmail.To) > 0 {
		attachments := append([]string(nil), res.Charts...)
		for _, f := range []string{res.Workbook, res.DupFile} {
			if f != "" {
				attachments = append(attachments, f)
			}
		}
		body := fmt.Sprintf("数据来源: %s\n%s", source, res.Text())
		if err := email.SendReport(a.cfg, body, attachments); err != nil {
			a.logger.Error(err.Error())
		} else {
			a.logger.Infof("报告已发送给: %s", strings.Join(a.cfg.SendEmail.To, ", "))
		}
	}
	return res, nil
}
