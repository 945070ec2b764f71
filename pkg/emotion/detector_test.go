package emotion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ccp-p/emotion-clipper/pkg/models"
	"github.com/ccp-p/emotion-clipper/pkg/utils"
)

type MockClassifier struct {
	mock.Mock
}

func (m *MockClassifier) Classify(ctx context.Context, text string) ([]models.EmotionScore, error) {
	args := m.Called(ctx, text)
	scores, _ := args.Get(0).([]models.EmotionScore)
	return scores, args.Error(1)
}

func newTestDetector(c Classifier) *Detector {
	return NewDetector(c, models.DefaultEmotionThresholds(), models.DefaultEmotionTiming(), utils.NewErrorHandler(1, 0))
}

func TestDetectSpike(t *testing.T) {
	c := new(MockClassifier)
	c.On("Classify", mock.Anything, "what a twist").Return([]models.EmotionScore{
		{Label: "surprise", Score: 0.9972},
		{Label: "joy", Score: 0.002},
	}, nil)

	spike, ok := newTestDetector(c).Detect(context.Background(), models.Chunk{Timestamp: 30, Text: "what a twist"})

	assert.True(t, ok)
	assert.Equal(t, 27.0, spike.ClipStart)
	assert.Equal(t, 37.0, spike.ClipEnd)
	assert.Equal(t, "surprise", spike.Label)
	assert.Equal(t, "[SURPRISE 0.997] what a twist", spike.Text)
	assert.Equal(t, 0.9972, spike.Score)
	c.AssertExpectations(t)
}

func TestDetectTimingTable(t *testing.T) {
	tests := []struct {
		label     string
		timestamp float64
		start     float64
		end       float64
	}{
		{"anger", 20, 18.5, 30},
		{"fear", 10, 7, 17},
		{"joy", 10, 8, 18},      // 使用 default
		{"sadness", 1, 0, 9},    // clip_start 不小于0
		{"Sadness", 50, 48, 58}, // 标签大小写不敏感
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			c := ClassifierFunc(func(ctx context.Context, text string) ([]models.EmotionScore, error) {
				return []models.EmotionScore{{Label: tt.label, Score: 0.999}}, nil
			})
			spike, ok := newTestDetector(c).Detect(context.Background(), models.Chunk{Timestamp: tt.timestamp, Text: "x"})
			assert.True(t, ok)
			assert.Equal(t, tt.start, spike.ClipStart)
			assert.Equal(t, tt.end, spike.ClipEnd)
			assert.GreaterOrEqual(t, spike.ClipStart, 0.0)
		})
	}
}

func TestDetectBelowThresholdOrUnmonitored(t *testing.T) {
	cases := [][]models.EmotionScore{
		{{Label: "joy", Score: 0.995}},      // 必须严格大于阈值
		{{Label: "joy", Score: 0.5}},
		{{Label: "neutral", Score: 0.9999}}, // 未监控的标签
		{{Label: "disgust", Score: 0.9999}, {Label: "joy", Score: 0.9998}},
	}
	for _, scores := range cases {
		scores := scores
		c := ClassifierFunc(func(ctx context.Context, text string) ([]models.EmotionScore, error) {
			return scores, nil
		})
		_, ok := newTestDetector(c).Detect(context.Background(), models.Chunk{Timestamp: 5, Text: "x"})
		assert.False(t, ok, "%v", scores)
	}
}

func TestDetectClassifierFailures(t *testing.T) {
	errs := utils.NewErrorHandler(1, 0)

	failing := ClassifierFunc(func(ctx context.Context, text string) ([]models.EmotionScore, error) {
		return nil, errors.New("model error")
	})
	empty := ClassifierFunc(func(ctx context.Context, text string) ([]models.EmotionScore, error) {
		return nil, nil
	})
	panicking := ClassifierFunc(func(ctx context.Context, text string) ([]models.EmotionScore, error) {
		panic("index out of range")
	})

	for _, c := range []Classifier{failing, empty, panicking} {
		d := NewDetector(c, nil, nil, errs)
		assert.NotPanics(t, func() {
			_, ok := d.Detect(context.Background(), models.Chunk{Timestamp: 1, Text: "x"})
			assert.False(t, ok)
		})
	}

	assert.Equal(t, 3, errs.ErrorCount(OperationClassify))
}

func TestNewDetectorMergesDefaultTiming(t *testing.T) {
	c := ClassifierFunc(func(ctx context.Context, text string) ([]models.EmotionScore, error) {
		return []models.EmotionScore{{Label: "joy", Score: 1}}, nil
	})
	d := NewDetector(c, map[string]float64{"joy": 0.5}, map[string]models.EmotionTiming{
		"anger": {LeadTime: 0, FollowTime: 1},
	}, nil)

	spike, ok := d.Detect(context.Background(), models.Chunk{Timestamp: 100, Text: "x"})
	assert.True(t, ok)
	assert.Equal(t, 98.0, spike.ClipStart)
	assert.Equal(t, 108.0, spike.ClipEnd)
	assert.Equal(t, 0, d.ErrorCount())
}

func TestDetectMixedCaseConfigKeys(t *testing.T) {
	c := ClassifierFunc(func(ctx context.Context, text string) ([]models.EmotionScore, error) {
		return []models.EmotionScore{{Label: "Joy", Score: 0.99}}, nil
	})
	d := NewDetector(c, map[string]float64{"Joy": 0.5}, map[string]models.EmotionTiming{
		"JOY":     {LeadTime: -1, FollowTime: 4},
		"Default": {LeadTime: -2, FollowTime: 8},
	}, nil)

	spike, ok := d.Detect(context.Background(), models.Chunk{Timestamp: 10, Text: "yay"})
	assert.True(t, ok)
	assert.Equal(t, "joy", spike.Label)
	assert.Equal(t, 9.0, spike.ClipStart)
	assert.Equal(t, 14.0, spike.ClipEnd)
	assert.Equal(t, "[JOY 0.990] yay", spike.Text)
}
