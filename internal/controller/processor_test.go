package controller

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccp-p/emotion-clipper/pkg/asr"
	"github.com/ccp-p/emotion-clipper/pkg/emotion"
	"github.com/ccp-p/emotion-clipper/pkg/highlight"
	"github.com/ccp-p/emotion-clipper/pkg/models"
	"github.com/ccp-p/emotion-clipper/pkg/pipeline"
	"github.com/ccp-p/emotion-clipper/pkg/utils"
)

type stubTranscriber struct {
	segments []models.TranscriptSegment
	err      error
}

func (s stubTranscriber) Transcribe(ctx context.Context, mediaPath string, cb asr.ProgressCallback) ([]models.TranscriptSegment, error) {
	if filepath.Base(mediaPath) == "broken.mp3" {
		return nil, errors.New("服务不可用")
	}
	return s.segments, s.err
}

var labels = map[string]string{
	"wow":  models.EmotionSurprise,
	"nice": models.EmotionJoy,
	"grr":  models.EmotionAnger,
	"run":  models.EmotionFear,
}

func newTestController(t *testing.T) (*ProcessorController, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()

	config := models.NewDefaultConfig()
	config.MediaFolder = filepath.Join(dir, "media")
	config.OutputFolder = filepath.Join(dir, "out")
	config.TempDir = filepath.Join(dir, "tmp")
	config.ShowProgress = false
	config.MaxWorkers = 2
	config.ResourceIntrospection = false
	require.NoError(t, os.MkdirAll(config.MediaFolder, 0755))

	classifier := emotion.ClassifierFunc(func(ctx context.Context, text string) ([]models.EmotionScore, error) {
		if label, ok := labels[text]; ok {
			return []models.EmotionScore{{Label: label, Score: 0.999}}, nil
		}
		return []models.EmotionScore{{Label: "neutral", Score: 0.9}}, nil
	})

	detector := pipeline.NewDetector(config, pipeline.Collaborators{
		Transcriber: stubTranscriber{segments: []models.TranscriptSegment{
			{Start: 11, End: 13, Text: "wow"},
			{Start: 20.5, End: 22, Text: "nice"},
			{Start: 28.5, End: 30, Text: "grr"},
			{Start: 40, End: 41, Text: "run"},
		}},
		SpikeDetector: emotion.NewDetector(classifier, config.EmotionThresholds, config.EmotionTiming, utils.NewErrorHandler(1, 0)),
	}, models.Capabilities{})

	pc, err := NewWithConfig(config, detector)
	require.NoError(t, err)
	t.Cleanup(pc.Cleanup)

	out := &bytes.Buffer{}
	pc.Out = out
	return pc, out
}

func writeMedia(t *testing.T, pc *ProcessorController, name string) string {
	t.Helper()
	path := filepath.Join(pc.Config.MediaFolder, name)
	require.NoError(t, os.WriteFile(path, []byte("audio"), 0644))
	return path
}

func TestDetectFile(t *testing.T) {
	pc, _ := newTestController(t)
	media := writeMedia(t, pc, "show.mp3")

	result, err := pc.DetectFile(context.Background(), media)
	require.NoError(t, err)
	require.Len(t, result.Highlights, 1)
	assert.Equal(t, models.MultiEmotionLabel, result.Highlights[0].EmotionLabel)
	assert.False(t, result.Cancelled)
}

func TestProcessMediaScansMediaFolder(t *testing.T) {
	pc, out := newTestController(t)
	writeMedia(t, pc, "show.mp3")
	writeMedia(t, pc, "broken.mp3")
	writeMedia(t, pc, "notes.txt")

	results, err := pc.ProcessMedia(nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	stats := pc.Stats()
	assert.Equal(t, 2, stats.TotalFiles)
	assert.Equal(t, 1, stats.SuccessfulFiles)
	assert.Equal(t, 1, stats.FailedFiles)
	assert.Equal(t, 1, stats.Highlights)

	assert.FileExists(t, filepath.Join(pc.Config.OutputFolder, "show_highlights.json"))
	assert.FileExists(t, filepath.Join(pc.Config.OutputFolder, "show_highlights.srt"))
	assert.Contains(t, out.String(), "处理失败")
	assert.True(t, pc.Adapter.IsProcessed(filepath.Join(pc.Config.MediaFolder, "show.mp3")))

	// 已处理的文件不会被再次扫描
	results, err = pc.ProcessMedia(nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "broken.mp3", filepath.Base(results[0].FilePath))
}

func TestProcessMediaTimeRange(t *testing.T) {
	pc, out := newTestController(t)
	media := writeMedia(t, pc, "show.mp3")

	pc.Range = highlight.TimeRange{From: 70}
	results, err := pc.ProcessMedia([]string{media})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].Result.Highlights)
	assert.Equal(t, 0, pc.Stats().Highlights)

	pc.Range = highlight.TimeRange{From: 0, To: 20}
	results, err = pc.ProcessMedia([]string{media})
	require.NoError(t, err)
	require.Len(t, results[0].Result.Highlights, 1)

	pc.PrintStats()
	assert.Contains(t, out.String(), "共 2 个文件")
	assert.Regexp(t, `总用时: \d+秒`, out.String())
}

func TestOptionsOverrides(t *testing.T) {
	assert.Empty(t, Options{ConfigFile: "c.yaml"}.overrides())
	assert.Equal(t, map[string]interface{}{
		"log_level":     "debug",
		"output_folder": "/tmp/out",
	}, Options{LogLevel: "debug", OutputFolder: "/tmp/out"}.overrides())
}

func TestProcessMediaNothingToDo(t *testing.T) {
	pc, _ := newTestController(t)

	results, err := pc.ProcessMedia(nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestProcessMediaMissingFolder(t *testing.T) {
	pc, _ := newTestController(t)
	pc.Config.MediaFolder = filepath.Join(t.TempDir(), "missing")

	_, err := pc.ProcessMedia(nil)
	assert.Error(t, err)
}

func TestCancelStopsBatch(t *testing.T) {
	pc, _ := newTestController(t)
	media := writeMedia(t, pc, "show.mp3")

	pc.Cancel()
	results, err := pc.ProcessMedia([]string{media})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Error, context.Canceled)
	assert.Equal(t, 1, pc.Stats().FailedFiles)
}

func TestCleanupIdempotent(t *testing.T) {
	pc, _ := newTestController(t)
	calls := 0
	pc.addCleanup(func() { calls++ })

	pc.Cleanup()
	pc.Cleanup()
	assert.Equal(t, 1, calls)
	assert.Error(t, pc.Context().Err())
}
