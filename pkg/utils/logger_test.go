package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	err := InitLogger(LogLevelNormal, "")
	assert.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, Log.GetLevel())

	tempLogFile := filepath.Join(t.TempDir(), "logs", "test.log")
	err = InitLogger(LogLevelVerbose, tempLogFile)
	assert.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, Log.GetLevel())

	// 日志目录和文件应被创建
	assert.FileExists(t, tempLogFile)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, parseLevel("verbose"))
	assert.Equal(t, logrus.WarnLevel, parseLevel(LogLevelQuiet))
	assert.Equal(t, logrus.ErrorLevel, parseLevel("error"))
	assert.Equal(t, logrus.InfoLevel, parseLevel("不存在"))
}

func TestLogLevels(t *testing.T) {
	tempLogFile := filepath.Join(t.TempDir(), "level_test.log")

	err := InitLogger(LogLevelQuiet, tempLogFile)
	require.NoError(t, err)

	Debug("debug message")
	Info("info message")
	Warn("warning %s", "message")
	Error("error message")

	data, err := os.ReadFile(tempLogFile)
	require.NoError(t, err)
	content := string(data)
	assert.False(t, strings.Contains(content, "info message"))
	assert.Contains(t, content, "warning message")
	assert.Contains(t, content, "error message")
}

func TestWithFieldLogging(t *testing.T) {
	Log = nil
	// 未初始化时也不能 panic
	WithField("key", "value").Info("Test with field")

	err := InitLogger(LogLevelNormal, "")
	assert.NoError(t, err)

	WithField("key", "value").Info("Test with field")
	WithFields(logrus.Fields{
		"key1": "value1",
		"key2": "value2",
	}).Info("Test with fields")
}
