// Package review 审阅者逐个浏览、剔除高光
package review

import (
	"fmt"
	"strings"

	"github.com/ccp-p/emotion-clipper/pkg/models"
	"github.com/ccp-p/emotion-clipper/pkg/utils"
)

// Session 一次审阅会话。持有高光的副本，检测结果本身不会被修改。
type Session struct {
	highlights []models.Highlight
	index      int // -1 表示尚未选中
}

// NewSession 创建审阅会话
func NewSession(highlights []models.Highlight) *Session {
	cp := make([]models.Highlight, len(highlights))
	copy(cp, highlights)
	return &Session{highlights: cp, index: -1}
}

// Len 剩余高光数量
func (s *Session) Len() int {
	return len(s.highlights)
}

// Index 当前位置，从0开始，未选中时为 -1
func (s *Session) Index() int {
	return s.index
}

// Highlights 返回剩余高光的副本
func (s *Session) Highlights() []models.Highlight {
	cp := make([]models.Highlight, len(s.highlights))
	copy(cp, s.highlights)
	return cp
}

// Current 返回当前高光
func (s *Session) Current() (models.Highlight, bool) {
	if s.index < 0 || s.index >= len(s.highlights) {
		return models.Highlight{}, false
	}
	return s.highlights[s.index], true
}

// Next 移动到下一个高光，末尾回绕到第一个
func (s *Session) Next() (models.Highlight, bool) {
	if len(s.highlights) == 0 {
		return models.Highlight{}, false
	}
	if s.index < len(s.highlights)-1 {
		s.index++
	} else {
		s.index = 0
	}
	return s.Current()
}

// Previous 移动到上一个高光，开头回绕到最后一个
func (s *Session) Previous() (models.Highlight, bool) {
	if len(s.highlights) == 0 {
		return models.Highlight{}, false
	}
	if s.index > 0 {
		s.index--
	} else {
		s.index = len(s.highlights) - 1
	}
	return s.Current()
}

// Select 直接跳到第 n 个高光（从1开始）
func (s *Session) Select(n int) (models.Highlight, bool) {
	if n < 1 || n > len(s.highlights) {
		return models.Highlight{}, false
	}
	s.index = n - 1
	return s.Current()
}

// Reject 移除当前高光，返回被移除的高光。
// 之后的当前位置指向原来的下一个，移除的是最后一个时指向新的末尾。
func (s *Session) Reject() (models.Highlight, bool) {
	removed, ok := s.Current()
	if !ok {
		return models.Highlight{}, false
	}

	s.highlights = append(s.highlights[:s.index], s.highlights[s.index+1:]...)
	switch {
	case len(s.highlights) == 0:
		s.index = -1
	case s.index >= len(s.highlights):
		s.index = len(s.highlights) - 1
	}
	return removed, true
}

// Status 当前位置的描述
func (s *Session) Status() string {
	h, ok := s.Current()
	if !ok {
		if len(s.highlights) == 0 {
			return "所有高光均已审阅"
		}
		return fmt.Sprintf("共 %d 个高光，尚未选中", len(s.highlights))
	}
	return fmt.Sprintf("正在查看 %s 高光 #%d/%d (%s - %s)",
		h.EmotionLabel, s.index+1, len(s.highlights), utils.FormatTime(h.Start), utils.FormatTime(h.End))
}

// Summary 形如 "检测到 3 个高光: 2 multi-emotion, 1 joy"
func Summary(highlights []models.Highlight) string {
	result := models.DetectionResult{Highlights: highlights}
	order, counts := result.EmotionCounts()
	if len(order) == 0 {
		return fmt.Sprintf("检测到 %d 个高光", len(highlights))
	}

	parts := make([]string, len(order))
	for i, label := range order {
		parts[i] = fmt.Sprintf("%d %s", counts[label], label)
	}
	return fmt.Sprintf("检测到 %d 个高光: %s", len(highlights), strings.Join(parts, ", "))
}

// Summary 剩余高光的汇总
func (s *Session) Summary() string {
	return Summary(s.highlights)
}
