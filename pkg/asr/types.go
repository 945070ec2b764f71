// Package asr 提供语音转录服务及其选择器
package asr

import (
	"context"
	"sort"
	"strings"

	"github.com/ccp-p/emotion-clipper/pkg/models"
)

// ProgressCallback 是进度回调函数，用于通知识别过程的进度
type ProgressCallback func(percent int, message string)

// Transcriber 语音转录服务，返回按开始时间排序的片段
type Transcriber interface {
	Transcribe(ctx context.Context, mediaPath string, callback ProgressCallback) ([]models.TranscriptSegment, error)
}

// normalizeSegments 去掉空文本与非法时间的片段并按开始时间稳定排序
func normalizeSegments(segments []models.TranscriptSegment) []models.TranscriptSegment {
	out := make([]models.TranscriptSegment, 0, len(segments))
	for _, seg := range segments {
		if strings.TrimSpace(seg.Text) == "" || seg.End < seg.Start || seg.Start < 0 {
			continue
		}
		out = append(out, seg)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start < out[j].Start
	})
	return out
}

func report(callback ProgressCallback, percent int, message string) {
	if callback != nil {
		callback(percent, message)
	}
}
