package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ccp-p/emotion-clipper/pkg/utils"
)

// ProgressCallback 是进度回调函数类型
type ProgressCallback func(current, total int, message string)

// ProgressReporter 进度条接口，由终端界面实现
type ProgressReporter interface {
	CreateProgressBar(id string, total int, prefix, suffix string)
	UpdateProgressBar(id string, current int, suffix string)
	CompleteProgressBar(id string, suffix string)
}

// AudioExtractor 音频提取器
type AudioExtractor struct {
	TempDir          string
	ProgressCallback ProgressCallback
	Progress         ProgressReporter
}

// NewAudioExtractor 创建新的音频提取器
func NewAudioExtractor(tempDir string, callback ProgressCallback) *AudioExtractor {
	// 确保临时目录存在
	os.MkdirAll(tempDir, 0755)

	return &AudioExtractor{
		TempDir:          tempDir,
		ProgressCallback: callback,
	}
}

// SetProgressReporter 设置进度条
func (e *AudioExtractor) SetProgressReporter(p ProgressReporter) {
	e.Progress = p
}

func (e *AudioExtractor) report(id string, current int, suffix string) {
	if e.Progress != nil {
		e.Progress.UpdateProgressBar(id, current, suffix)
	}
	if e.ProgressCallback != nil {
		e.ProgressCallback(current, 100, suffix)
	}
}

func (e *AudioExtractor) fail(id string, err error) {
	if e.Progress != nil {
		e.Progress.CompleteProgressBar(id, fmt.Sprintf("失败: %v", err))
	}
	if e.ProgressCallback != nil {
		e.ProgressCallback(100, 100, fmt.Sprintf("提取失败: %v", err))
	}
}

// PrepareAudio 返回可供转录与静音检测使用的音频路径。
// 音频文件原样返回，视频文件提取为临时目录下的 mp3。
func (e *AudioExtractor) PrepareAudio(ctx context.Context, mediaPath string) (string, error) {
	if utils.IsAudioFile(mediaPath) {
		return mediaPath, nil
	}
	if !utils.IsVideoFile(mediaPath) {
		return "", fmt.Errorf("不支持的文件格式: %s", filepath.Ext(mediaPath))
	}
	audioPath, _, err := e.ExtractAudioFromVideo(ctx, mediaPath, e.TempDir)
	return audioPath, err
}

// ExtractAudioFromVideo 从视频文件提取音频，第二个返回值表示是否新生成
func (e *AudioExtractor) ExtractAudioFromVideo(ctx context.Context, videoPath, outputFolder string) (string, bool, error) {
	baseName := utils.BaseNameWithoutExt(videoPath)
	audioPath := filepath.Join(outputFolder, baseName+".mp3")

	// 检查音频文件是否已经存在
	if utils.CheckFileExists(audioPath) {
		utils.Info("音频已存在: %s", audioPath)
		return audioPath, false, nil
	}

	if err := utils.EnsureDirExists(outputFolder); err != nil {
		return "", false, err
	}

	progressID := fmt.Sprintf("extract_%s", baseName)
	if e.Progress != nil {
		e.Progress.CreateProgressBar(progressID, 100, fmt.Sprintf("提取 %s", filepath.Base(videoPath)), "准备中")
	}

	cmd := exec.CommandContext(ctx,
		"ffmpeg",
		"-i", videoPath,
		"-q:a", "0",
		"-map", "a",
		audioPath,
		"-y", // 覆盖已存在的文件
	)

	utils.Info("正在从视频提取音频: %s", filepath.Base(videoPath))
	e.report(progressID, 30, "正在提取")

	if err := cmd.Run(); err != nil {
		os.Remove(audioPath)
		err = fmt.Errorf("音频提取失败: %w", err)
		e.fail(progressID, err)
		return "", false, err
	}

	if !utils.CheckFileExists(audioPath) {
		err := fmt.Errorf("音频文件未生成: %s", audioPath)
		e.fail(progressID, err)
		return "", false, err
	}

	if e.Progress != nil {
		e.Progress.CompleteProgressBar(progressID, "提取完成")
	}
	if e.ProgressCallback != nil {
		e.ProgressCallback(100, 100, "音频提取完成")
	}

	utils.Info("音频提取完成: %s", audioPath)
	return audioPath, true, nil
}

var errFFprobeMissing = errors.New("未找到ffprobe")

// GetAudioDuration 使用 ffprobe 获取媒体时长（秒）
func GetAudioDuration(ctx context.Context, audioPath string) (float64, error) {
	if !utils.CheckFFprobe() {
		return 0, errFFprobeMissing
	}

	cmd := exec.CommandContext(ctx,
		"ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		audioPath,
	)

	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("获取音频时长失败: %w", err)
	}

	return parseDuration(string(output))
}

func parseDuration(output string) (float64, error) {
	duration, err := strconv.ParseFloat(strings.TrimSpace(output), 64)
	if err != nil {
		return 0, fmt.Errorf("解析音频时长失败: %w", err)
	}
	return duration, nil
}
