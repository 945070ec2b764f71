package emotion

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ccp-p/emotion-clipper/pkg/llm"
	"github.com/ccp-p/emotion-clipper/pkg/models"
)

// ChatCompleter 大模型对话接口，由 llm.VolcesAPIClient 实现
type ChatCompleter interface {
	Chat(ctx context.Context, messages []llm.ChatMessage) (string, error)
}

const llmSystemPrompt = "你是一个情绪分类器。只能使用以下标签: %s。" +
	"对用户给出的文本，返回一个JSON数组，元素形如 {\"label\": \"joy\", \"score\": 0.97}，" +
	"score 为0到1之间的置信度，按置信度从高到低排列。不要输出任何其他内容。"

// LLMClassifier 通过大模型进行情绪分类
type LLMClassifier struct {
	client ChatCompleter
	labels []string
	topK   int
}

// NewLLMClassifier 创建大模型分类器，labels 为允许的标签集合
func NewLLMClassifier(client ChatCompleter, labels []string, topK int) *LLMClassifier {
	sorted := append([]string(nil), labels...)
	sort.Strings(sorted)
	if topK <= 0 {
		topK = 2
	}
	return &LLMClassifier{client: client, labels: sorted, topK: topK}
}

// Classify 实现 Classifier
func (c *LLMClassifier) Classify(ctx context.Context, text string) ([]models.EmotionScore, error) {
	reply, err := c.client.Chat(ctx, []llm.ChatMessage{
		{Role: "system", Content: fmt.Sprintf(llmSystemPrompt, strings.Join(c.labels, ", "))},
		{Role: "user", Content: text},
	})
	if err != nil {
		return nil, err
	}

	scores, err := parseLLMScores(reply)
	if err != nil {
		return nil, err
	}

	allowed := make(map[string]bool, len(c.labels))
	for _, l := range c.labels {
		allowed[l] = true
	}
	filtered := scores[:0]
	for _, s := range scores {
		s.Label = strings.ToLower(strings.TrimSpace(s.Label))
		if (allowed[s.Label] || s.Label == NeutralLabel) && s.Score >= 0 && s.Score <= 1 {
			filtered = append(filtered, s)
		}
	}
	if len(filtered) == 0 {
		return nil, fmt.Errorf("大模型未返回有效标签: %q", reply)
	}
	return rank(filtered, c.topK), nil
}

// parseLLMScores 从模型回复中提取JSON数组，兼容 ``` 代码块包裹
func parseLLMScores(reply string) ([]models.EmotionScore, error) {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("大模型回复中没有JSON数组: %q", reply)
	}

	var scores []models.EmotionScore
	if err := json.Unmarshal([]byte(reply[start:end+1]), &scores); err != nil {
		return nil, fmt.Errorf("解析大模型回复失败: %w", err)
	}
	return scores, nil
}
