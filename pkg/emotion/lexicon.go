package emotion

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/ccp-p/emotion-clipper/pkg/models"
)

// NeutralLabel 未命中任何情绪词时返回的标签
const NeutralLabel = "neutral"

// DefaultLexicon 内置情绪词表，英文按单词匹配，中文按子串匹配。
// 日常高频词（what、really、run、什么 等）不收录，否则普通对话也会命中。
var DefaultLexicon = map[string][]string{
	models.EmotionJoy: {
		"happy", "glad", "love", "awesome", "amazing", "great", "haha", "lol", "yay", "wonderful", "fantastic",
		"开心", "高兴", "太好了", "哈哈", "好棒", "喜欢",
	},
	models.EmotionSurprise: {
		"wow", "whoa", "unbelievable", "incredible", "omg", "shocking", "unexpected",
		"天哪", "竟然", "居然", "没想到", "卧槽",
	},
	models.EmotionAnger: {
		"angry", "hate", "damn", "furious", "stupid", "annoying", "ridiculous",
		"生气", "气死", "讨厌", "闭嘴", "愤怒",
	},
	models.EmotionFear: {
		"scared", "afraid", "terrified", "danger", "scary", "creepy",
		"害怕", "可怕", "救命", "快跑", "危险", "吓死",
	},
	models.EmotionSadness: {
		"sad", "cry", "crying", "tears", "heartbroken",
		"难过", "伤心", "哭", "遗憾", "想念", "心碎",
	},
}

// LexiconClassifier 基于关键词的离线分类器，结果确定，不依赖模型服务
type LexiconClassifier struct {
	TopK int

	words   map[string][]string // 英文单词 -> 标签
	phrases map[string][]string // 非ASCII短语 -> 标签
}

// NewLexiconClassifier 使用给定词表创建分类器，lexicon 为 nil 时使用内置词表
func NewLexiconClassifier(lexicon map[string][]string, topK int) *LexiconClassifier {
	if lexicon == nil {
		lexicon = DefaultLexicon
	}
	if topK <= 0 {
		topK = 2
	}
	c := &LexiconClassifier{
		TopK:    topK,
		words:   make(map[string][]string),
		phrases: make(map[string][]string),
	}
	for label, keywords := range lexicon {
		for _, kw := range keywords {
			kw = strings.ToLower(kw)
			if isASCII(kw) {
				c.words[kw] = append(c.words[kw], label)
			} else {
				c.phrases[kw] = append(c.phrases[kw], label)
			}
		}
	}
	return c
}

// Classify 实现 Classifier。
// 命中数越多置信度越高：share * (1 - 0.5^(hits+6))，感叹号为得分最高的情绪加一次命中。
func (c *LexiconClassifier) Classify(_ context.Context, text string) ([]models.EmotionScore, error) {
	lower := strings.ToLower(text)
	hits := make(map[string]int)

	for _, tok := range strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	}) {
		for _, label := range c.words[tok] {
			hits[label]++
		}
	}
	for phrase, labels := range c.phrases {
		if n := strings.Count(lower, phrase); n > 0 {
			for _, label := range labels {
				hits[label] += n
			}
		}
	}

	if len(hits) == 0 {
		return []models.EmotionScore{{Label: NeutralLabel, Score: 1}}, nil
	}

	if strings.ContainsAny(text, "!！") {
		best := ""
		for label, n := range hits {
			if best == "" || n > hits[best] || (n == hits[best] && label < best) {
				best = label
			}
		}
		hits[best]++
	}

	total := 0
	for _, n := range hits {
		total += n
	}

	scores := make([]models.EmotionScore, 0, len(hits))
	for label, n := range hits {
		share := float64(n) / float64(total)
		scores = append(scores, models.EmotionScore{
			Label: label,
			Score: share * (1 - math.Pow(0.5, float64(n+6))),
		})
	}
	// map 遍历无序，先按标签排序保证并列时结果确定
	sort.Slice(scores, func(i, j int) bool {
		return scores[i].Label < scores[j].Label
	})
	return rank(scores, c.TopK), nil
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}
