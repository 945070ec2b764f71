package emotion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ccp-p/emotion-clipper/pkg/llm"
)

type MockChat struct {
	mock.Mock
}

func (m *MockChat) Chat(ctx context.Context, messages []llm.ChatMessage) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

func TestLLMClassifier(t *testing.T) {
	chat := new(MockChat)
	chat.On("Chat", mock.Anything, mock.MatchedBy(func(msgs []llm.ChatMessage) bool {
		return len(msgs) == 2 && msgs[1].Content == "no way" && msgs[0].Role == "system"
	})).Return("```json\n[{\"label\":\"Joy\",\"score\":0.2},{\"label\":\"surprise\",\"score\":0.998},{\"label\":\"pride\",\"score\":0.9}]\n```", nil)

	c := NewLLMClassifier(chat, []string{"surprise", "joy"}, 2)
	scores, err := c.Classify(context.Background(), "no way")
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, "surprise", scores[0].Label)
	assert.Equal(t, "joy", scores[1].Label)
	chat.AssertExpectations(t)
}

func TestLLMClassifierBadReplies(t *testing.T) {
	for _, reply := range []string{"I think it's joyful", "[{\"label\":\"pride\",\"score\":0.9}]", "[{bad json]"} {
		chat := new(MockChat)
		chat.On("Chat", mock.Anything, mock.Anything).Return(reply, nil)
		_, err := NewLLMClassifier(chat, []string{"joy"}, 2).Classify(context.Background(), "x")
		assert.Error(t, err, reply)
	}

	chat := new(MockChat)
	chat.On("Chat", mock.Anything, mock.Anything).Return("", errors.New("timeout"))
	_, err := NewLLMClassifier(chat, []string{"joy"}, 2).Classify(context.Background(), "x")
	assert.ErrorContains(t, err, "timeout")
}
