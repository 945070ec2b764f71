// Package highlight 将情绪峰值聚合为多峰值高光片段
package highlight

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ccp-p/emotion-clipper/pkg/models"
)

// TextSeparator 组合文本中各峰值之间的分隔符
const TextSeparator = " → "

// topTexts 组合文本最多包含的峰值数量
const topTexts = 3

// Settings 聚合参数
type Settings struct {
	WindowSeconds          float64
	MinSpikes              int
	MinClipLength          float64
	MaxClipLength          float64
	RequiredEmotionVariety int
	OverlapThreshold       float64
}

// SettingsFromConfig 从配置构建聚合参数
func SettingsFromConfig(cfg *models.Config) Settings {
	return Settings{
		WindowSeconds:          cfg.HighlightWindowSeconds,
		MinSpikes:              cfg.HighlightMinSpikes,
		MinClipLength:          cfg.HighlightMinClipLength,
		MaxClipLength:          cfg.HighlightMaxClipLength,
		RequiredEmotionVariety: cfg.HighlightRequiredEmotionVariety,
		OverlapThreshold:       cfg.HighlightOverlapThreshold,
	}
}

// Aggregator 高光聚合器。Aggregate 是纯函数，Notify 仅用于输出提示信息。
type Aggregator struct {
	settings Settings
	// Notify 可选的实时提示回调
	Notify func(msg string)
}

// NewAggregator 创建聚合器
func NewAggregator(settings Settings) *Aggregator {
	if settings.MinSpikes < 1 {
		settings.MinSpikes = 1
	}
	return &Aggregator{settings: settings}
}

// Settings 返回聚合参数
func (a *Aggregator) Settings() Settings {
	return a.settings
}

func (a *Aggregator) notify(format string, args ...interface{}) {
	if a.Notify != nil {
		a.Notify(fmt.Sprintf(format, args...))
	}
}

// Aggregate 以滑动窗口扫描峰值，返回按锚点时间升序的高光列表。
// 输入不会被修改，结果为空时返回非 nil 的空切片。
func (a *Aggregator) Aggregate(spikes []models.SpikeCandidate) []models.Highlight {
	s := a.settings
	highlights := []models.Highlight{}

	sorted := validSpikes(spikes)
	if len(sorted) < s.MinSpikes {
		a.notify("高置信度的情绪峰值不足，至少需要 %d 个", s.MinSpikes)
		return highlights
	}

	consumed := make(map[int]bool)
	for i := 0; i <= len(sorted)-s.MinSpikes; i++ {
		if consumed[i] {
			continue
		}

		startTime := sorted[i].ClipStart
		windowEnd := startTime + s.WindowSeconds
		window := inWindow(sorted, startTime, windowEnd)

		if len(window) < s.MinSpikes {
			continue
		}

		labels := distinctLabels(window)
		if len(labels) < s.RequiredEmotionVariety {
			continue
		}

		if !hasTransition(window) {
			continue
		}

		candidate := models.Highlight{
			Start:        startTime,
			End:          a.clipEnd(startTime, window),
			Text:         fmt.Sprintf("[%s] %s", summary(window), combinedText(window)),
			EmotionLabel: models.MultiEmotionLabel,
		}

		if HasMajorOverlap(candidate, highlights, s.OverlapThreshold) {
			continue
		}

		highlights = append(highlights, candidate)
		a.notify("发现高质量高光: %d 个峰值, %d 种情绪", len(window), len(labels))

		for j, sp := range sorted {
			if sp.ClipStart >= startTime && sp.ClipStart <= windowEnd {
				consumed[j] = true
			}
		}
	}

	if len(highlights) > 0 {
		a.notify("共找到 %d 个符合条件的高光", len(highlights))
	} else {
		a.notify("没有片段满足高光条件")
	}
	return highlights
}

// clipEnd 先按最大长度截断，再保证最小长度，两者冲突时最小长度优先
func (a *Aggregator) clipEnd(start float64, window []models.SpikeCandidate) float64 {
	rawEnd := window[0].ClipEnd
	for _, sp := range window[1:] {
		if sp.ClipEnd > rawEnd {
			rawEnd = sp.ClipEnd
		}
	}
	end := rawEnd
	if limit := start + a.settings.MaxClipLength; end > limit {
		end = limit
	}
	if floor := start + a.settings.MinClipLength; end < floor {
		end = floor
	}
	return end
}

// HasMajorOverlap 判断 clip 与任一已有片段的重叠是否超过任意一方时长的 threshold
func HasMajorOverlap(clip models.Highlight, existing []models.Highlight, threshold float64) bool {
	newDuration := clip.Duration()
	for _, e := range existing {
		overlapStart := max(clip.Start, e.Start)
		overlapEnd := min(clip.End, e.End)
		if overlapEnd <= overlapStart {
			continue
		}
		overlap := overlapEnd - overlapStart
		existingDuration := e.Duration()
		if (newDuration > 0 && overlap/newDuration > threshold) ||
			(existingDuration > 0 && overlap/existingDuration > threshold) {
			return true
		}
	}
	return false
}

// validSpikes 过滤掉 ClipEnd <= ClipStart 的峰值并按 ClipStart 稳定排序，返回副本
func validSpikes(spikes []models.SpikeCandidate) []models.SpikeCandidate {
	out := make([]models.SpikeCandidate, 0, len(spikes))
	for _, sp := range spikes {
		if sp.ClipEnd > sp.ClipStart {
			out = append(out, sp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ClipStart < out[j].ClipStart
	})
	return out
}

func inWindow(sorted []models.SpikeCandidate, start, end float64) []models.SpikeCandidate {
	var window []models.SpikeCandidate
	for _, sp := range sorted {
		if sp.ClipStart >= start && sp.ClipStart <= end {
			window = append(window, sp)
		}
	}
	return window
}

func distinctLabels(window []models.SpikeCandidate) map[string]bool {
	labels := make(map[string]bool)
	for _, sp := range window {
		labels[sp.Label] = true
	}
	return labels
}

// hasTransition 相邻峰值中至少有一次情绪变化
func hasTransition(window []models.SpikeCandidate) bool {
	for j := 1; j < len(window); j++ {
		if window[j-1].Label != window[j].Label {
			return true
		}
	}
	return false
}

// summary 形如 3SUR+2ANG，按首次出现顺序
func summary(window []models.SpikeCandidate) string {
	var order []string
	counts := make(map[string]int)
	for _, sp := range window {
		if _, ok := counts[sp.Label]; !ok {
			order = append(order, sp.Label)
		}
		counts[sp.Label]++
	}

	parts := make([]string, len(order))
	for i, label := range order {
		parts[i] = fmt.Sprintf("%d%s", counts[label], strings.ToUpper(abbrev(label)))
	}
	return strings.Join(parts, "+")
}

func abbrev(label string) string {
	r := []rune(label)
	if len(r) > 3 {
		r = r[:3]
	}
	return string(r)
}

// combinedText 取按标签降序（稳定）排列的前3个峰值文本
func combinedText(window []models.SpikeCandidate) string {
	ordered := make([]models.SpikeCandidate, len(window))
	copy(ordered, window)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Label > ordered[j].Label
	})
	if len(ordered) > topTexts {
		ordered = ordered[:topTexts]
	}

	texts := make([]string, len(ordered))
	for i, sp := range ordered {
		texts[i] = sp.Text
	}
	return strings.Join(texts, TextSeparator)
}
