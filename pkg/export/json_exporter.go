package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ccp-p/emotion-clipper/pkg/models"
	"github.com/ccp-p/emotion-clipper/pkg/utils"
)

// HighlightEntry 导出文件中的一个高光
type HighlightEntry struct {
	Index        int     `json:"index"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	StartTime    string  `json:"start_time"` // HH:MM:SS
	EndTime      string  `json:"end_time"`
	Duration     float64 `json:"duration"`
	EmotionLabel string  `json:"emotion_label"`
	Text         string  `json:"text"`
}

// HighlightReport 高光JSON文件的整体结构
type HighlightReport struct {
	RunID      string           `json:"run_id"`
	MediaPath  string           `json:"media_path"`
	Cancelled  bool             `json:"cancelled"`
	ChunkCount int              `json:"chunk_count"`
	SpikeCount int              `json:"spike_count"`
	Highlights []HighlightEntry `json:"highlights"`
	FullText   string           `json:"full_text"` // 完整合并后的转录文本
}

// HighlightJSONExporter 负责将检测结果导出为JSON文件
type HighlightJSONExporter struct {
	OutputFolder string
}

// NewHighlightJSONExporter 创建一个新的JSON导出器
func NewHighlightJSONExporter(outputFolder string) *HighlightJSONExporter {
	return &HighlightJSONExporter{
		OutputFolder: outputFolder,
	}
}

// GenerateReport 根据检测结果生成导出结构
func (e *HighlightJSONExporter) GenerateReport(result *models.DetectionResult) HighlightReport {
	report := HighlightReport{
		RunID:      result.RunID,
		MediaPath:  result.MediaPath,
		Cancelled:  result.Cancelled,
		ChunkCount: result.ChunkCount,
		SpikeCount: result.SpikeCount,
		Highlights: make([]HighlightEntry, 0, len(result.Highlights)),
		FullText:   FullText(result.Transcript),
	}

	for i, h := range result.Highlights {
		report.Highlights = append(report.Highlights, HighlightEntry{
			Index:        i + 1,
			Start:        h.Start,
			End:          h.End,
			StartTime:    utils.FormatTime(h.Start),
			EndTime:      utils.FormatTime(h.End),
			Duration:     h.Duration(),
			EmotionLabel: h.EmotionLabel,
			Text:         h.Text,
		})
	}
	return report
}

// Export 写出 <base>_highlights.json
func (e *HighlightJSONExporter) Export(result *models.DetectionResult) (string, error) {
	if err := os.MkdirAll(e.OutputFolder, 0755); err != nil {
		return "", fmt.Errorf("创建输出目录失败: %w", err)
	}

	outputFile := outputPath(e.OutputFolder, result.MediaPath, "_highlights.json")

	jsonData, err := json.MarshalIndent(e.GenerateReport(result), "", "  ")
	if err != nil {
		return "", fmt.Errorf("JSON编码失败: %w", err)
	}

	if err := os.WriteFile(outputFile, jsonData, 0644); err != nil {
		return "", fmt.Errorf("写入JSON文件失败: %w", err)
	}

	utils.Info("已导出高光JSON: %s", outputFile)
	return outputFile, nil
}

// FullText 以空格连接全部转录文本
func FullText(segments []models.TranscriptSegment) string {
	var b strings.Builder
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(text)
	}
	return b.String()
}

func outputPath(folder, mediaPath, suffix string) string {
	return filepath.Join(folder, utils.BaseNameWithoutExt(mediaPath)+suffix)
}
