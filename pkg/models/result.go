package models

import "time"

// DetectionResult 一次高光检测运行的最终结果
type DetectionResult struct {
	RunID      string              `json:"run_id"`      // 运行ID
	MediaPath  string              `json:"media_path"`  // 处理的媒体文件路径
	Highlights []Highlight         `json:"highlights"`  // 检测到的高光
	Transcript []TranscriptSegment `json:"transcript"`  // 转录结果
	ChunkCount int                 `json:"chunk_count"` // 分类的文本块数量
	Processed  int                 `json:"processed"`   // 已完成分类的文本块数量
	SpikeCount int                 `json:"spike_count"` // 情绪峰值数量
	Cancelled  bool                `json:"cancelled"`   // 是否被中途取消
	Duration   time.Duration       `json:"duration_ns"` // 处理耗时
}

// EmotionCounts 按情绪标签统计高光数量，保持首次出现顺序
func (r *DetectionResult) EmotionCounts() ([]string, map[string]int) {
	var order []string
	counts := make(map[string]int)
	for _, h := range r.Highlights {
		if _, ok := counts[h.EmotionLabel]; !ok {
			order = append(order, h.EmotionLabel)
		}
		counts[h.EmotionLabel]++
	}
	return order, counts
}
