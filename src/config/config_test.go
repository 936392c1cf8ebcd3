package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `{
	"dataset": {"path": "data/telco.csv"},
	"target": "Churn",
	"relations": [{"x": "tenure", "y": "MonthlyCharges"}],
	"chart": {"dir": "out"},
	"schedule": {"interval": "30m"},
	"email": {"server": "imap.example.com:993", "target_subject": "客户数据"}
}`

const testDataConfig = `{
	"column_types": {"SeniorCitizen": "string"},
	"na_values": [" "],
	"drop_columns": ["customerID"],
	"encoding": "GBK"
}`

func writeConfigs(t *testing.T, cfg, dcfg string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(cfg), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dataconfig.json"), []byte(dcfg), 0644))
	return dir
}

func TestLoadConfigs(t *testing.T) {
	dir := writeConfigs(t, testConfig, testDataConfig)

	cfg, dcfg, err := loadConfigs(dir, "config.json", "dataconfig.json")
	require.NoError(t, err)

	assert.Equal(t, "data/telco.csv", cfg.Dataset.Path)
	assert.Equal(t, ModeOnce, cfg.Mode)
	assert.Equal(t, "out", cfg.Chart.Dir)
	assert.Equal(t, "png", cfg.Chart.Format)
	assert.Equal(t, 8.0, cfg.Chart.Width)
	assert.Equal(t, Duration(30*time.Minute), cfg.Schedule.Interval)
	assert.Equal(t, Duration(5*time.Minute), cfg.Email.CheckInterval)
	assert.Equal(t, "scatter", cfg.Relations[0].Kind)
	assert.Equal(t, "Contract", cfg.Segment.Column)
	assert.Equal(t, []string{"Month-to-month", "One year", "Two year"}, cfg.Segment.Values)
	assert.Equal(t, "Churn", cfg.Segment.Label)
	assert.Equal(t, "10 * 1024 * 1024", cfg.LogMaxSize)

	assert.Equal(t, "gbk", dcfg.GetEncoding())
	assert.Equal(t, "string", dcfg.GetColumnType("SeniorCitizen"))
	assert.Equal(t, []string{"customerID"}, dcfg.GetDropColumns())
	assert.Equal(t, []string{" "}, dcfg.GetNAValues())
}

func TestLoadConfigsErrors(t *testing.T) {
	dir := writeConfigs(t, `{"mode": 1}`, `{bad`)
	_, _, err := loadConfigs(dir, "config.json", "dataconfig.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "解析Config失败")
	assert.Contains(t, err.Error(), "解析DataConfig失败")

	_, _, err = loadConfigs(t.TempDir(), "config.json", "dataconfig.json")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	var cfg Config
	cfg.Mode = "daemon"
	assert.Error(t, cfg.Validate())

	cfg = Config{Relations: []Relation{{X: "a", Y: "b", Kind: "pie"}}}
	assert.Error(t, cfg.Validate())

	dcfg := DataConfig{Encoding: "latin1"}
	assert.Error(t, dcfg.Validate())

	dcfg = DataConfig{ColumnTypes: map[string]string{"a": "date"}}
	assert.Error(t, dcfg.Validate())
}

func TestDataConfigSetters(t *testing.T) {
	var dcfg DataConfig
	dcfg.SetColumnType("tenure", "float")
	assert.Equal(t, "float", dcfg.GetColumnType("tenure"))

	types := dcfg.GetColumnTypes()
	types["tenure"] = "int"
	assert.Equal(t, "float", dcfg.GetColumnType("tenure"))
}

func TestDurationJSON(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"1m30s"`), &d))
	assert.Equal(t, Duration(90*time.Second), d)

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &d))
}
