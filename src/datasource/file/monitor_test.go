package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileMonitorWatch(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "incoming")
	monitor, err := NewFileMonitor(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, monitor.Dir())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan string, 10)
	done := make(chan error, 1)
	go func() {
		done <- monitor.Watch(ctx, func(name string) { changed <- name })
	}()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0644))
	target := filepath.Join(dir, "churn.csv")
	require.NoError(t, os.WriteFile(target, []byte(telcoCSV), 0644))

	select {
	case name := <-changed:
		assert.Equal(t, target, name)
	case <-time.After(5 * time.Second):
		t.Fatal("没有收到文件变更通知")
	}
	assert.Equal(t, target, monitor.LastFile())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch没有退出")
	}
}

func TestIsNewFile(t *testing.T) {
	m := &FileMonitor{}
	now := time.Now()
	assert.True(t, m.isNewFile("a.csv", now))
	assert.False(t, m.isNewFile("a.csv", now))
	assert.True(t, m.isNewFile("a.csv", now.Add(time.Second)))
	assert.True(t, m.isNewFile("b.csv", now))
}
