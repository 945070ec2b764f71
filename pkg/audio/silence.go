package audio

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"sort"
	"strconv"

	"github.com/ccp-p/emotion-clipper/pkg/models"
	"github.com/ccp-p/emotion-clipper/pkg/utils"
)

// SilenceDetector 检测媒体文件中的静音区间
type SilenceDetector interface {
	Detect(ctx context.Context, mediaPath string) ([]models.SilenceInterval, error)
}

// FFmpegSilenceDetector 基于 ffmpeg silencedetect 滤镜的静音检测
type FFmpegSilenceDetector struct {
	ThresholdDB float64 // 静音阈值，如 -40
	MinSilence  float64 // 最短静音时长（秒）
}

// NewFFmpegSilenceDetector 按配置创建静音检测器
func NewFFmpegSilenceDetector(config *models.Config) *FFmpegSilenceDetector {
	return &FFmpegSilenceDetector{
		ThresholdDB: config.SilenceThresholdDB,
		MinSilence:  float64(config.MinSilenceMs) / 1000.0,
	}
}

// Available 检查 ffmpeg 是否可用
func (d *FFmpegSilenceDetector) Available() bool {
	return utils.CheckFFmpeg()
}

// Filter 返回传给 ffmpeg 的滤镜参数
func (d *FFmpegSilenceDetector) Filter() string {
	return fmt.Sprintf("silencedetect=noise=%gdB:d=%g", d.ThresholdDB, d.MinSilence)
}

// Detect 运行 ffmpeg 并解析其 stderr 输出
func (d *FFmpegSilenceDetector) Detect(ctx context.Context, mediaPath string) ([]models.SilenceInterval, error) {
	cmd := exec.CommandContext(ctx,
		"ffmpeg",
		"-hide_banner",
		"-nostats",
		"-i", mediaPath,
		"-af", d.Filter(),
		"-f", "null",
		"-",
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	utils.Debug("静音检测: %s (%s)", mediaPath, d.Filter())
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("静音检测失败: %w", err)
	}

	silences, err := ParseSilenceLog(&stderr, d.mediaDuration(ctx, mediaPath))
	if err != nil {
		return nil, fmt.Errorf("解析静音检测输出失败: %w", err)
	}
	utils.Info("检测到 %d 段静音: %s", len(silences), mediaPath)
	return silences, nil
}

// mediaDuration 用 ffprobe 获取时长，失败时返回0，由日志中的 Duration 行兜底
func (d *FFmpegSilenceDetector) mediaDuration(ctx context.Context, mediaPath string) float64 {
	duration, err := GetAudioDuration(ctx, mediaPath)
	if err != nil {
		utils.Debug("获取媒体时长失败: %v", err)
		return 0
	}
	return duration
}

var (
	silenceStartRe = regexp.MustCompile(`silence_start:\s*(-?[0-9.]+)`)
	silenceEndRe   = regexp.MustCompile(`silence_end:\s*(-?[0-9.]+)`)
	durationRe     = regexp.MustCompile(`Duration:\s*([0-9]+:[0-9]+:[0-9.]+)`)
)

// ParseSilenceLog 从 silencedetect 日志中提取静音区间。
// 文件以静音结尾时 ffmpeg 只输出 silence_start，该区间在媒体结尾处闭合；
// duration 不大于0时使用日志中的 Duration 行，两者都没有时丢弃该区间。
func ParseSilenceLog(r io.Reader, duration float64) ([]models.SilenceInterval, error) {
	var (
		result  []models.SilenceInterval
		start   float64
		pending bool
		logged  float64
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		if m := durationRe.FindStringSubmatch(line); m != nil && logged == 0 {
			if v, err := utils.ParseTimeString(m[1]); err == nil {
				logged = v
			}
			continue
		}

		if m := silenceStartRe.FindStringSubmatch(line); m != nil {
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			start = max(v, 0)
			pending = true
			continue
		}

		if m := silenceEndRe.FindStringSubmatch(line); m != nil && pending {
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			if v > start {
				result = append(result, models.SilenceInterval{Start: start, End: v})
			}
			pending = false
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if duration <= 0 {
		duration = logged
	}
	if pending && duration > start {
		result = append(result, models.SilenceInterval{Start: start, End: duration})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Start < result[j].Start
	})
	return result, nil
}
