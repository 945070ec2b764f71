// Package segment 将转录片段切分为供情绪分类的文本块
package segment

import (
	"sort"
	"strings"

	"github.com/ccp-p/emotion-clipper/pkg/models"
)

// Options 切分参数
type Options struct {
	MinSpeechGap float64 // 两段静音之间至少需要的语音时长（秒）
	SliceSeconds float64 // 无静音数据时的固定切片长度（秒）
}

// DefaultOptions 返回默认切分参数
func DefaultOptions() Options {
	return Options{
		MinSpeechGap: 1.0,
		SliceSeconds: 10,
	}
}

// Segmenter 文本块切分器，无内部状态
type Segmenter struct {
	opts Options
}

// NewSegmenter 创建切分器，非法参数回退为默认值
func NewSegmenter(opts Options) *Segmenter {
	def := DefaultOptions()
	if opts.MinSpeechGap < 0 {
		opts.MinSpeechGap = def.MinSpeechGap
	}
	if opts.SliceSeconds <= 0 {
		opts.SliceSeconds = def.SliceSeconds
	}
	return &Segmenter{opts: opts}
}

// Segment 把转录片段转换为按时间升序排列的文本块。
// silences 可以为空，此时对长片段按固定时长切片。
func (s *Segmenter) Segment(segments []models.TranscriptSegment, silences []models.SilenceInterval) []models.Chunk {
	var chunks []models.Chunk

	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" || seg.End < seg.Start {
			continue
		}

		if len(silences) > 0 {
			if contained := containedSilences(silences, seg.Start, seg.End); len(contained) > 0 {
				chunks = append(chunks, s.splitBySilence(seg, text, contained)...)
				continue
			}
		}

		chunks = append(chunks, s.splitByTime(seg, text)...)
	}

	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Timestamp < chunks[j].Timestamp
	})
	return chunks
}

// splitBySilence 以静音区间为自然断点
func (s *Segmenter) splitBySilence(seg models.TranscriptSegment, text string, contained []models.SilenceInterval) []models.Chunk {
	var chunks []models.Chunk
	lastPoint := seg.Start
	for _, sil := range contained {
		if sil.Start-lastPoint > s.opts.MinSpeechGap {
			chunks = append(chunks, models.Chunk{Timestamp: lastPoint, Text: text})
		}
		lastPoint = sil.End
	}
	if seg.End-lastPoint > s.opts.MinSpeechGap {
		chunks = append(chunks, models.Chunk{Timestamp: lastPoint, Text: text})
	}
	return chunks
}

// splitByTime 固定时长切片，所有子块共享原文本
func (s *Segmenter) splitByTime(seg models.TranscriptSegment, text string) []models.Chunk {
	duration := seg.End - seg.Start
	if duration <= s.opts.SliceSeconds {
		return []models.Chunk{{Timestamp: seg.Start, Text: text}}
	}

	numSlices := int(duration/s.opts.SliceSeconds) + 1
	chunks := make([]models.Chunk, 0, numSlices)
	for i := 0; i < numSlices; i++ {
		sliceStart := seg.Start + float64(i)*s.opts.SliceSeconds
		// 时长恰为切片整数倍时，最后一个窗口长度为0
		if sliceStart >= seg.End {
			break
		}
		chunks = append(chunks, models.Chunk{Timestamp: sliceStart, Text: text})
	}
	return chunks
}

func containedSilences(silences []models.SilenceInterval, start, end float64) []models.SilenceInterval {
	var contained []models.SilenceInterval
	for _, sil := range silences {
		if sil.Start >= start && sil.End <= end {
			contained = append(contained, sil)
		}
	}
	sort.SliceStable(contained, func(i, j int) bool {
		return contained[i].Start < contained[j].Start
	})
	return contained
}
