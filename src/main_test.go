package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ChurnInsight/src/config"
	"ChurnInsight/src/datasource/email"
	"ChurnInsight/src/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const churnCSV = "customerID,gender,tenure,MonthlyCharges,Contract,Churn\n" +
	"7590-VHVEG,Female,1,29.85,Month-to-month,No\n" +
	"5575-GNVDE,Male,34,56.95,One year,No\n" +
	"3668-QPYBK,Male,2,53.85,Month-to-month,Yes\n" +
	"7795-CFOCW,Male,45,,One year,No\n" +
	"9237-HQITU,Female,2,70.70,Two year,Yes\n"

func newTestApp(t *testing.T, mode string) (*app, *bytes.Buffer, string) {
	t.Helper()
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "telco.csv")
	require.NoError(t, os.WriteFile(dataPath, []byte(churnCSV), 0644))

	cfg := &config.Config{Mode: mode, Target: "Churn"}
	cfg.Dataset.Path = dataPath
	cfg.Chart.Dir = filepath.Join(dir, "charts")
	cfg.ReportFile = filepath.Join(dir, "report.xlsx")
	cfg.LogName = filepath.Join(dir, "app.log")
	cfg.Email.TargetSubject = "客户流失"
	cfg.Email.SaveDir = filepath.Join(dir, "downloads")
	require.NoError(t, cfg.Validate())

	dcfg := &config.DataConfig{DropColumns: []string{"customerID"}}
	require.NoError(t, dcfg.Validate())

	logger, err := storage.NewLogger(cfg.LogName, nil)
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })

	var out bytes.Buffer
	a, err := newApp(cfg, dcfg, logger, &out)
	require.NoError(t, err)
	return a, &out, dir
}

func TestRunOnce(t *testing.T) {
	a, out, dir := newTestApp(t, config.ModeOnce)

	require.NoError(t, a.run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "==== telco.csv ====")
	assert.Contains(t, text, "Columns with missing values:")
	assert.Contains(t, text, "There are no duplicated rows in the DataFrame.")
	assert.NotContains(t, text, "customerID")
	assert.FileExists(t, filepath.Join(dir, "report.xlsx"))
	assert.FileExists(t, filepath.Join(dir, "charts", "target_Churn.png"))

	logData, err := os.ReadFile(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	assert.Contains(t, string(logData), "已加载 telco.csv")
}

func TestRunFileMissing(t *testing.T) {
	a, _, _ := newTestApp(t, config.ModeOnce)
	a.cfg.Dataset.Path = ""
	assert.Error(t, a.run(context.Background()))

	a.cfg.Dataset.Path = filepath.Join(t.TempDir(), "absent.csv")
	assert.Error(t, a.run(context.Background()))
}

func TestRunScheduleStopsOnCancel(t *testing.T) {
	a, _, _ := newTestApp(t, config.ModeSchedule)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.NoError(t, a.run(ctx))
}

type fakeMailbox struct {
	emails []*email.Email
}

func (f *fakeMailbox) Connect() error { return nil }
func (f *fakeMailbox) Disconnect()    {}
func (f *fakeMailbox) FetchUnreadEmails() ([]*email.Email, error) {
	return f.emails, nil
}

func TestCheckMail(t *testing.T) {
	a, out, dir := newTestApp(t, config.ModeMail)
	svc := &fakeMailbox{emails: []*email.Email{{
		UID:         42,
		Subject:     "客户流失数据 6月",
		Date:        time.Now(),
		Attachments: []*email.Attachment{{Filename: "june.csv", Content: []byte(churnCSV)}},
	}}}
	handler := email.NewAttachmentHandler(a.cfg.Email.TargetSubject, a.cfg.Email.SaveDir, a.logger)
	dfw := &email.DataFrameWrapper{}

	res, err := a.checkMail(svc, handler, dfw)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 5, res.Rows)
	assert.Contains(t, out.String(), "==== june.csv ====")
	assert.FileExists(t, filepath.Join(dir, "downloads", "june.csv"))

	// 同一封邮件不会重复分析
	res, err = a.checkMail(svc, handler, dfw)
	require.NoError(t, err)
	assert.Nil(t, res)

	res, err = a.checkMail(&fakeMailbox{}, handler, dfw)
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestApplyTypes(t *testing.T) {
	dcfg := &config.DataConfig{}
	require.NoError(t, dcfg.Validate())

	require.NoError(t, applyTypes(dcfg, ""))
	assert.Empty(t, dcfg.GetColumnTypes())

	require.NoError(t, applyTypes(dcfg, "SeniorCitizen=string, tenure = INT"))
	assert.Equal(t, "string", dcfg.GetColumnType("SeniorCitizen"))
	assert.Equal(t, "int", dcfg.GetColumnType("tenure"))

	assert.Error(t, applyTypes(dcfg, "tenure"))
	assert.Error(t, applyTypes(dcfg, "tenure=decimal"))
}
