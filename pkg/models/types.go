package models

// 受监控的情绪标签
const (
	EmotionJoy      = "joy"
	EmotionSurprise = "surprise"
	EmotionAnger    = "anger"
	EmotionFear     = "fear"
	EmotionSadness  = "sadness"

	// MultiEmotionLabel 多峰值高光使用的情绪标签
	MultiEmotionLabel = "multi-emotion"
	// DefaultTimingKey 情绪时间表中的兜底键
	DefaultTimingKey = "default"
)

// TranscriptSegment 表示转录服务返回的一个语音片段
type TranscriptSegment struct {
	Start float64 `json:"start"` // 开始时间（秒）
	End   float64 `json:"end"`   // 结束时间（秒）
	Text  string  `json:"text"`  // 识别出的文本内容
}

// SilenceInterval 表示一段静音区间（秒）
type SilenceInterval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Chunk 是交给情绪分类器的最小文本单元，只带锚点时间戳
type Chunk struct {
	Timestamp float64 `json:"timestamp"`
	Text      string  `json:"text"`
}

// EmotionScore 分类器输出的一项 (标签, 置信度)
type EmotionScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// SpikeCandidate 单个通过阈值的情绪峰值及其剪辑窗口
type SpikeCandidate struct {
	ClipStart float64 `json:"clip_start"`
	ClipEnd   float64 `json:"clip_end"`
	Label     string  `json:"label"`
	Text      string  `json:"text"`
	Score     float64 `json:"score"`
}

// Duration 返回剪辑窗口长度，可能为非正数
func (s SpikeCandidate) Duration() float64 {
	return s.ClipEnd - s.ClipStart
}

// Highlight 最终输出给审阅者的高光片段
type Highlight struct {
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Text         string  `json:"text"`
	EmotionLabel string  `json:"emotion_label"`
}

// Duration 返回高光时长（秒）
func (h Highlight) Duration() float64 {
	return h.End - h.Start
}

// EmotionTiming 某种情绪的前置/后续时间，LeadTime 通常为负数
type EmotionTiming struct {
	LeadTime   float64 `json:"lead_time" yaml:"lead_time"`
	FollowTime float64 `json:"follow_time" yaml:"follow_time"`
}

// Capabilities 描述本次运行可用的可选协作者
type Capabilities struct {
	HasSilenceDetection      bool `json:"has_silence_detection"`
	HasResourceIntrospection bool `json:"has_resource_introspection"`
}
