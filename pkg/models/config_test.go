package models

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempConfig(t *testing.T) *Config {
	dir, err := os.MkdirTemp("", "clipper_config_test")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	config := NewDefaultConfig()
	config.MediaFolder = filepath.Join(dir, "media")
	config.OutputFolder = filepath.Join(dir, "output")
	return config
}

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	// 验证默认值是否正确设置
	assert.Equal(t, "./media", config.MediaFolder)
	assert.Equal(t, "./output", config.OutputFolder)
	assert.Equal(t, 3, config.MaxRetries)
	assert.Equal(t, 0, config.MaxWorkers)
	assert.Equal(t, 0.995, config.EmotionThresholds[EmotionJoy])
	assert.Equal(t, EmotionTiming{LeadTime: -1.5, FollowTime: 10}, config.EmotionTiming[EmotionAnger])
	assert.Equal(t, EmotionTiming{LeadTime: -2, FollowTime: 8}, config.EmotionTiming[DefaultTimingKey])
	assert.Equal(t, 45.0, config.HighlightWindowSeconds)
	assert.Equal(t, 4, config.HighlightMinSpikes)
	assert.Equal(t, 15.0, config.HighlightMinClipLength)
	assert.Equal(t, 60.0, config.HighlightMaxClipLength)
	assert.Equal(t, 2, config.HighlightRequiredEmotionVariety)
	assert.Equal(t, 0.4, config.HighlightOverlapThreshold)
	assert.Equal(t, -40.0, config.SilenceThresholdDB)
	assert.Equal(t, 500, config.MinSilenceMs)
	assert.True(t, config.ExportSRT)
}

func TestConfigValidate(t *testing.T) {
	// 测试有效配置
	config := tempConfig(t)
	err := config.Validate()
	assert.NoError(t, err)
	assert.DirExists(t, config.MediaFolder)

	// 测试无效的MaxRetries
	config.MaxRetries = 0
	err = config.Validate()
	assert.Error(t, err)
	configErr, ok := err.(*ConfigValidationError)
	assert.True(t, ok)
	assert.Equal(t, "MaxRetries", configErr.Field)

	// 恢复有效值并测试另一个字段
	config.MaxRetries = 3
	delete(config.EmotionTiming, DefaultTimingKey)
	err = config.Validate()
	assert.Error(t, err)
	configErr, ok = err.(*ConfigValidationError)
	assert.True(t, ok)
	assert.Equal(t, "EmotionTiming", configErr.Field)

	config.EmotionTiming = DefaultEmotionTiming()
	config.Classifier = "magic"
	err = config.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Classifier")
}

func TestConfigValidateMinLongerThanMax(t *testing.T) {
	config := tempConfig(t)
	config.HighlightMinClipLength = 90
	config.HighlightMaxClipLength = 60

	// 最短长度优先，不视为错误
	assert.NoError(t, config.Validate())
}

func TestConfigSaveAndLoad(t *testing.T) {
	config := tempConfig(t)
	tempFile := filepath.Join(filepath.Dir(config.MediaFolder), "test_config.json")

	// 创建并保存配置
	config.MaxRetries = 5
	config.ExportSRT = false
	config.EmotionThresholds[EmotionJoy] = 0.9

	err := config.SaveToFile(tempFile)
	assert.NoError(t, err)

	// 从文件加载配置
	loadedConfig := NewDefaultConfig()
	err = loadedConfig.LoadFromFile(tempFile)
	assert.NoError(t, err)

	assert.Equal(t, config.MediaFolder, loadedConfig.MediaFolder)
	assert.Equal(t, config.MaxRetries, loadedConfig.MaxRetries)
	assert.Equal(t, config.ExportSRT, loadedConfig.ExportSRT)
	assert.Equal(t, 0.9, loadedConfig.EmotionThresholds[EmotionJoy])
}

func TestConfigLoadYAML(t *testing.T) {
	config := tempConfig(t)
	tempFile := filepath.Join(filepath.Dir(config.MediaFolder), "clipper.yaml")

	content := "media_folder: " + config.MediaFolder + "\n" +
		"output_folder: " + config.OutputFolder + "\n" +
		"classifier: http\n" +
		"highlight_min_spikes: 3\n" +
		"emotion_timing:\n" +
		"  default:\n" +
		"    lead_time: -1\n" +
		"    follow_time: 5\n"
	require.NoError(t, os.WriteFile(tempFile, []byte(content), 0644))

	loaded := NewDefaultConfig()
	err := loaded.LoadFromFile(tempFile)
	require.NoError(t, err)

	assert.Equal(t, "http", loaded.Classifier)
	assert.Equal(t, 3, loaded.HighlightMinSpikes)
	assert.Equal(t, EmotionTiming{LeadTime: -1, FollowTime: 5}, loaded.EmotionTiming[DefaultTimingKey])
	// 未出现在文件中的字段保持默认值
	assert.Equal(t, 60.0, loaded.HighlightMaxClipLength)
}

func TestConfigUpdate(t *testing.T) {
	config := tempConfig(t)

	// 有效更新
	updates := map[string]interface{}{
		"max_retries": 5,
		"export_srt":  false,
		"top_k":       3,
	}

	err := config.Update(updates)
	assert.NoError(t, err)
	assert.Equal(t, 5, config.MaxRetries)
	assert.False(t, config.ExportSRT)
	assert.Equal(t, 3, config.TopK)

	// 无效更新
	invalidUpdates := map[string]interface{}{
		"max_retries":        20, // 超出最大值10
		"emotion_thresholds": map[string]float64{"joy": 0.5},
	}

	err = config.Update(invalidUpdates)
	assert.Error(t, err)
	assert.Equal(t, 5, config.MaxRetries) // 应该保持原值
	assert.Equal(t, 0.995, config.EmotionThresholds[EmotionJoy])
}

func TestPrintConfigMasksKey(t *testing.T) {
	config := NewDefaultConfig()
	config.LLMAPIKey = "secret-key"

	out := &bytes.Buffer{}
	require.NoError(t, config.PrintConfig(out))
	assert.Contains(t, out.String(), "当前配置:")
	assert.Contains(t, out.String(), `"llm_api_key": "******"`)
	assert.NotContains(t, out.String(), "secret-key")
	assert.Equal(t, "secret-key", config.LLMAPIKey)
}

func TestConfigWorkDir(t *testing.T) {
	config := NewDefaultConfig()
	assert.Equal(t, filepath.Join(os.TempDir(), "emotion-clipper"), config.WorkDir())

	config.TempDir = "/srv/clipper/tmp"
	assert.Equal(t, "/srv/clipper/tmp", config.WorkDir())
}
