package emotion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccp-p/emotion-clipper/pkg/models"
)

func TestLexiconClassifier(t *testing.T) {
	c := NewLexiconClassifier(nil, 2)
	ctx := context.Background()

	scores, err := c.Classify(ctx, "I am so happy, this is awesome and I love it!")
	require.NoError(t, err)
	require.NotEmpty(t, scores)
	assert.Equal(t, models.EmotionJoy, scores[0].Label)
	assert.Greater(t, scores[0].Score, 0.995)

	// 单个关键词不足以越过默认阈值
	scores, err = c.Classify(ctx, "happy")
	require.NoError(t, err)
	assert.Equal(t, models.EmotionJoy, scores[0].Label)
	assert.Less(t, scores[0].Score, 0.995)

	scores, err = c.Classify(ctx, "救命！好可怕，快跑")
	require.NoError(t, err)
	assert.Equal(t, models.EmotionFear, scores[0].Label)
	assert.Greater(t, scores[0].Score, 0.995)

	scores, err = c.Classify(ctx, "the weather report for tuesday")
	require.NoError(t, err)
	assert.Equal(t, []models.EmotionScore{{Label: NeutralLabel, Score: 1}}, scores)
}

func TestLexiconIgnoresEverydayWords(t *testing.T) {
	c := NewLexiconClassifier(nil, 2)

	for _, text := range []string{
		"what do you really want? run the help command!",
		"sorry, I lost my keys and miss the bus",
		"你说什么？滚动一下页面",
	} {
		scores, err := c.Classify(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, []models.EmotionScore{{Label: NeutralLabel, Score: 1}}, scores, text)
	}
}

func TestLexiconClassifierMixedIsRankedAndDeterministic(t *testing.T) {
	c := NewLexiconClassifier(nil, 2)
	text := "wow that is amazing, I hate it"

	first, err := c.Classify(context.Background(), text)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := c.Classify(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	require.Len(t, first, 2)
	assert.GreaterOrEqual(t, first[0].Score, first[1].Score)
	// 混合情绪时份额被摊薄，不会产生峰值
	assert.Less(t, first[0].Score, 0.995)
}

func TestLexiconCustomWords(t *testing.T) {
	c := NewLexiconClassifier(map[string][]string{"anger": {"Grr"}}, 1)
	scores, err := c.Classify(context.Background(), "grr grr grr")
	require.NoError(t, err)
	assert.Len(t, scores, 1)
	assert.Equal(t, "anger", scores[0].Label)
}
