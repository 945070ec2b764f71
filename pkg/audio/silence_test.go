package audio

import (
	"bufio"
	"context"
	"strings"
	"testing"

	"github.com/ccp-p/emotion-clipper/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSilenceLog = `Input #0, wav, from 'talk.wav':
  Duration: 00:00:30.00, bitrate: 256 kb/s
[silencedetect @ 0x7f9c2c004a00] silence_start: 4.52
[silencedetect @ 0x7f9c2c004a00] silence_end: 6.1 | silence_duration: 1.58
[silencedetect @ 0x7f9c2c004a00] silence_start: 12
[silencedetect @ 0x7f9c2c004a00] silence_end: 13.25 | silence_duration: 1.25
size=N/A time=00:00:30.00 bitrate=N/A speed= 812x
[silencedetect @ 0x7f9c2c004a00] silence_start: 29.4
`

func TestParseSilenceLog(t *testing.T) {
	got, err := ParseSilenceLog(strings.NewReader(sampleSilenceLog), 0)
	require.NoError(t, err)

	// 结尾未闭合的静音在日志给出的时长处闭合
	assert.Equal(t, []models.SilenceInterval{
		{Start: 4.52, End: 6.1},
		{Start: 12, End: 13.25},
		{Start: 29.4, End: 30},
	}, got)
}

func TestParseSilenceLogTrailingSilence(t *testing.T) {
	log := "silence_start: 2\n" +
		"silence_end: 3 | silence_duration: 1\n" +
		"silence_start: 57.5\n"

	got, err := ParseSilenceLog(strings.NewReader(log), 60.2)
	require.NoError(t, err)
	assert.Equal(t, []models.SilenceInterval{{Start: 2, End: 3}, {Start: 57.5, End: 60.2}}, got)

	// 传入的时长优先于日志中的 Duration 行
	got, err = ParseSilenceLog(strings.NewReader(sampleSilenceLog), 31)
	require.NoError(t, err)
	assert.Equal(t, models.SilenceInterval{Start: 29.4, End: 31}, got[len(got)-1])

	// 无法得知时长时丢弃
	got, err = ParseSilenceLog(strings.NewReader(log), 0)
	require.NoError(t, err)
	assert.Equal(t, []models.SilenceInterval{{Start: 2, End: 3}}, got)
}

func TestParseSilenceLogEdgeCases(t *testing.T) {
	got, err := ParseSilenceLog(strings.NewReader(""), 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	// 没有开始的结束行被忽略，负的开始时间截断为0
	log := "silence_end: 3.0 | silence_duration: 1\n" +
		"silence_start: -0.02\n" +
		"silence_end: 1.5 | silence_duration: 1.52\n"
	got, err = ParseSilenceLog(strings.NewReader(log), 0)
	require.NoError(t, err)
	assert.Equal(t, []models.SilenceInterval{{Start: 0, End: 1.5}}, got)

	// 超长行导致扫描失败
	_, err = ParseSilenceLog(strings.NewReader(strings.Repeat("x", bufio.MaxScanTokenSize+1)), 0)
	assert.Error(t, err)
}

func TestGetAudioDurationWithoutFFprobe(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	_, err := GetAudioDuration(context.Background(), "talk.wav")
	assert.ErrorIs(t, err, errFFprobeMissing)
}

func TestFFmpegSilenceDetectorFilter(t *testing.T) {
	config := models.NewDefaultConfig()
	d := NewFFmpegSilenceDetector(config)

	assert.Equal(t, -40.0, d.ThresholdDB)
	assert.Equal(t, 0.5, d.MinSilence)
	assert.Equal(t, "silencedetect=noise=-40dB:d=0.5", d.Filter())
}
