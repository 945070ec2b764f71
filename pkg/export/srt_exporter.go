package export

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/ccp-p/emotion-clipper/pkg/models"
	"github.com/ccp-p/emotion-clipper/pkg/utils"
)

// HighlightSRTExporter 负责将高光导出为SRT字幕文件，每个高光一条
type HighlightSRTExporter struct {
	OutputFolder string
}

// NewHighlightSRTExporter 创建一个新的SRT导出器
func NewHighlightSRTExporter(outputFolder string) *HighlightSRTExporter {
	return &HighlightSRTExporter{
		OutputFolder: outputFolder,
	}
}

// FormatSRTTime 将秒数格式化为SRT时间格式 (HH:MM:SS,mmm)
func FormatSRTTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMs := int64(math.Round(seconds * 1000))
	hours := totalMs / 3600000
	minutes := totalMs % 3600000 / 60000
	secs := totalMs % 60000 / 1000
	ms := totalMs % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, ms)
}

// GenerateSRTContent 生成SRT格式内容
func (e *HighlightSRTExporter) GenerateSRTContent(highlights []models.Highlight) string {
	var srtLines []string

	for i, h := range highlights {
		srtLines = append(srtLines, fmt.Sprintf("%d", i+1))
		srtLines = append(srtLines, fmt.Sprintf("%s --> %s", FormatSRTTime(h.Start), FormatSRTTime(h.End)))
		srtLines = append(srtLines, h.Text)
		srtLines = append(srtLines, "") // 空行分隔
	}

	return strings.Join(srtLines, "\n")
}

// Export 写出 <base>_highlights.srt
func (e *HighlightSRTExporter) Export(result *models.DetectionResult) (string, error) {
	if err := os.MkdirAll(e.OutputFolder, 0755); err != nil {
		return "", fmt.Errorf("创建输出目录失败: %w", err)
	}

	outputFile := outputPath(e.OutputFolder, result.MediaPath, "_highlights.srt")

	if err := os.WriteFile(outputFile, []byte(e.GenerateSRTContent(result.Highlights)), 0644); err != nil {
		return "", fmt.Errorf("写入SRT文件失败: %w", err)
	}

	utils.Info("已导出高光字幕: %s", outputFile)
	return outputFile, nil
}
