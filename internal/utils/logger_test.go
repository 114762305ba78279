package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initTestLogger(t *testing.T, level string) string {
	t.Helper()
	config := DefaultLogConfig()
	config.Level = level
	config.LogDir = filepath.Join(t.TempDir(), "logs")
	config.Compress = false
	require.NoError(t, InitLogger(config))
	t.Cleanup(func() {
		Logger = zerolog.Nop()
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	})
	return config.LogDir
}

func readLog(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if os.IsNotExist(err) {
		return ""
	}
	require.NoError(t, err)
	return string(data)
}

func TestInitLogger_Levels(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, false},
		{"", false, true},
		{"not-a-level", false, true},
	}

	for _, tt := range tests {
		t.Run("级别="+tt.level, func(t *testing.T) {
			dir := initTestLogger(t, tt.level)

			Debugf("调试消息 %d", 1)
			Infof("普通消息 %s", "商品")
			Warnf("警告消息")

			content := readLog(t, dir, MainLogFile)
			assert.Equal(t, tt.wantDebug, strings.Contains(content, "调试消息 1"))
			assert.Equal(t, tt.wantInfo, strings.Contains(content, "普通消息 商品"))
			assert.Contains(t, content, "警告消息")
		})
	}
}

func TestInitLogger_ErrorFileOnlyErrors(t *testing.T) {
	dir := initTestLogger(t, "info")

	Info("普通信息不应进入错误日志")
	Errorf("加载失败: %s", "boom")

	errContent := readLog(t, dir, ErrorLogFile)
	assert.Contains(t, errContent, "boom")
	assert.NotContains(t, errContent, "普通信息不应进入错误日志")

	mainContent := readLog(t, dir, MainLogFile)
	assert.Contains(t, mainContent, "boom")
	assert.Contains(t, mainContent, "普通信息不应进入错误日志")
}

func TestInitLogger_StructuredFields(t *testing.T) {
	dir := initTestLogger(t, "info")

	Logger.Warn().Int("row", 3).Str("column", "Google_Headings").Msg("页面加载失败")

	content := readLog(t, dir, MainLogFile)
	assert.Contains(t, content, `"row":3`)
	assert.Contains(t, content, `"column":"Google_Headings"`)
}

func TestLevelFilter(t *testing.T) {
	var buf strings.Builder
	f := &LevelFilter{Writer: &buf, MinLevel: zerolog.ErrorLevel}

	n, err := f.Write([]byte("plain"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	_, _ = f.WriteLevel(zerolog.WarnLevel, []byte("warn"))
	_, _ = f.WriteLevel(zerolog.ErrorLevel, []byte("error"))
	assert.Equal(t, "error", buf.String())
}
