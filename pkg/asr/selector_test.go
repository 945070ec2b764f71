package asr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ccp-p/emotion-clipper/pkg/models"
)

type MockTranscriber struct {
	mock.Mock
}

func (m *MockTranscriber) Transcribe(ctx context.Context, mediaPath string, callback ProgressCallback) ([]models.TranscriptSegment, error) {
	args := m.Called(ctx, mediaPath)
	segs, _ := args.Get(0).([]models.TranscriptSegment)
	return segs, args.Error(1)
}

var sampleSegments = []models.TranscriptSegment{{Start: 0, End: 4, Text: "hello"}}

func TestSelectorNamedService(t *testing.T) {
	a := new(MockTranscriber)
	a.On("Transcribe", mock.Anything, "talk.mp3").Return(sampleSegments, nil)
	b := new(MockTranscriber)

	s := NewSelector("a")
	s.RegisterService("a", a, 1)
	s.RegisterService("b", b, 100)

	segs, err := s.Transcribe(context.Background(), "talk.mp3", nil)
	require.NoError(t, err)
	assert.Equal(t, sampleSegments, segs)
	b.AssertNotCalled(t, "Transcribe", mock.Anything, mock.Anything)

	s.Service = "missing"
	_, err = s.Transcribe(context.Background(), "talk.mp3", nil)
	assert.ErrorContains(t, err, "未知的转录服务")
}

func TestSelectorAutoFallsBack(t *testing.T) {
	bad := new(MockTranscriber)
	bad.On("Transcribe", mock.Anything, mock.Anything).Return(nil, errors.New("quota"))
	good := new(MockTranscriber)
	good.On("Transcribe", mock.Anything, mock.Anything).Return(sampleSegments, nil)

	s := NewSelector(ServiceAuto)
	s.RegisterService("bad", bad, 1)
	s.RegisterService("good", good, 0)

	segs, err := s.Transcribe(context.Background(), "x.wav", nil)
	require.NoError(t, err)
	assert.Len(t, segs, 1)

	stats := s.GetStats()
	assert.Equal(t, "0.0%", stats["bad"]["success_rate"])
	assert.Equal(t, "100.0%", stats["good"]["success_rate"])
}

func TestSelectorAllFail(t *testing.T) {
	bad := new(MockTranscriber)
	bad.On("Transcribe", mock.Anything, mock.Anything).Return([]models.TranscriptSegment{}, nil)

	s := NewSelector("")
	s.RegisterService("empty", bad, 1)

	_, err := s.Transcribe(context.Background(), "x.wav", nil)
	assert.ErrorContains(t, err, "未返回任何转录片段")

	_, err = NewSelector(ServiceAuto).Transcribe(context.Background(), "x.wav", nil)
	assert.ErrorContains(t, err, "没有可用的转录服务")
}

func TestSelectorRoundRobinAndAvailability(t *testing.T) {
	s := NewSelector(ServiceAuto)
	s.RegisterService("a", new(MockTranscriber), 1)
	s.RegisterService("b", new(MockTranscriber), 1)

	first, _, ok := s.SelectService(StrategyRoundRobin)
	require.True(t, ok)
	second, _, _ := s.SelectService(StrategyRoundRobin)
	assert.NotEqual(t, first, second)

	for i := 0; i < 6; i++ {
		s.ReportResult("a", false)
	}
	assert.Equal(t, false, s.GetStats()["a"]["available"])

	for i := 0; i < 10; i++ {
		name, _, ok := s.SelectService(StrategyWeightedRandom)
		require.True(t, ok)
		assert.Equal(t, "b", name)
	}

	s.ReportResult("a", true)
	assert.Equal(t, true, s.GetStats()["a"]["available"])
	assert.Equal(t, []string{"a", "b"}, s.Services())
}
