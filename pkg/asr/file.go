package asr

import (
	"context"
	"fmt"

	"github.com/ccp-p/emotion-clipper/pkg/models"
	"github.com/ccp-p/emotion-clipper/pkg/utils"
)

// whisperResult Whisper 风格的转录JSON
type whisperResult struct {
	Text     string                     `json:"text"`
	Segments []models.TranscriptSegment `json:"segments"`
	Language string                     `json:"language"`
}

// FileTranscriber 从预先生成的JSON文件读取转录结果。
// 未指定 Path 时读取与媒体同名的 <media>.json 旁路文件。
type FileTranscriber struct {
	Path string
}

// NewFileTranscriber 创建文件转录器
func NewFileTranscriber(path string) *FileTranscriber {
	return &FileTranscriber{Path: path}
}

// SidecarPath 返回媒体文件对应的转录JSON路径
func SidecarPath(mediaPath string) string {
	return mediaPath + ".json"
}

// Transcribe 实现 Transcriber
func (f *FileTranscriber) Transcribe(ctx context.Context, mediaPath string, callback ProgressCallback) ([]models.TranscriptSegment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := f.Path
	if path == "" {
		path = SidecarPath(mediaPath)
	}

	var result whisperResult
	if err := utils.LoadJSONFile(path, &result); err != nil {
		return nil, fmt.Errorf("读取转录文件 %s 失败: %w", path, err)
	}

	segments := normalizeSegments(result.Segments)
	if len(segments) == 0 {
		return nil, fmt.Errorf("转录文件 %s 中没有有效片段", path)
	}

	report(callback, 100, fmt.Sprintf("已加载 %d 个转录片段", len(segments)))
	return segments, nil
}
