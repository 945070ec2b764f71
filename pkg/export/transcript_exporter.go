package export

import (
	"fmt"
	"os"
	"strings"

	"github.com/ccp-p/emotion-clipper/pkg/models"
	"github.com/ccp-p/emotion-clipper/pkg/utils"
)

// TranscriptExporter 将转录文本按行导出，每行带开始时间
type TranscriptExporter struct {
	OutputFolder string
}

// NewTranscriptExporter 创建转录文本导出器
func NewTranscriptExporter(outputFolder string) *TranscriptExporter {
	return &TranscriptExporter{OutputFolder: outputFolder}
}

// GenerateContent 生成形如 "[00:01:05] 文本" 的内容
func (e *TranscriptExporter) GenerateContent(segments []models.TranscriptSegment) string {
	var b strings.Builder
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "[%s] %s\n", utils.FormatTime(seg.Start), text)
	}
	return b.String()
}

// Export 写出 <base>_transcript.txt
func (e *TranscriptExporter) Export(result *models.DetectionResult) (string, error) {
	if err := os.MkdirAll(e.OutputFolder, 0755); err != nil {
		return "", fmt.Errorf("创建输出目录失败: %w", err)
	}

	outputFile := outputPath(e.OutputFolder, result.MediaPath, "_transcript.txt")
	if err := os.WriteFile(outputFile, []byte(e.GenerateContent(result.Transcript)), 0644); err != nil {
		return "", fmt.Errorf("写入转录文件失败: %w", err)
	}

	utils.Info("已导出转录文本: %s", outputFile)
	return outputFile, nil
}
