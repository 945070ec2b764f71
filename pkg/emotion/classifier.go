// Package emotion 负责文本块的情绪分类与峰值判定
package emotion

import (
	"context"
	"sort"

	"github.com/ccp-p/emotion-clipper/pkg/models"
)

// Classifier 将一段文本映射为按置信度降序排列的 (标签, 置信度) 列表
type Classifier interface {
	Classify(ctx context.Context, text string) ([]models.EmotionScore, error)
}

// ClassifierFunc 函数适配器
type ClassifierFunc func(ctx context.Context, text string) ([]models.EmotionScore, error)

// Classify 实现 Classifier
func (f ClassifierFunc) Classify(ctx context.Context, text string) ([]models.EmotionScore, error) {
	return f(ctx, text)
}

// rank 按置信度降序排序并截取前 topK 项，topK<=0 表示不截取
func rank(scores []models.EmotionScore, topK int) []models.EmotionScore {
	out := make([]models.EmotionScore, len(scores))
	copy(out, scores)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}
