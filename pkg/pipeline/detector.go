// Package pipeline 组装转录、切分、情绪分类与高光聚合
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ccp-p/emotion-clipper/pkg/asr"
	"github.com/ccp-p/emotion-clipper/pkg/audio"
	"github.com/ccp-p/emotion-clipper/pkg/dispatch"
	"github.com/ccp-p/emotion-clipper/pkg/highlight"
	"github.com/ccp-p/emotion-clipper/pkg/models"
	"github.com/ccp-p/emotion-clipper/pkg/resource"
	"github.com/ccp-p/emotion-clipper/pkg/segment"
	"github.com/ccp-p/emotion-clipper/pkg/utils"
)

// Collaborators 一次检测需要的协作者。Silence 与 Extractor 可以为 nil。
type Collaborators struct {
	Transcriber   asr.Transcriber
	Silence       audio.SilenceDetector
	Extractor     *audio.AudioExtractor
	SpikeDetector dispatch.SpikeDetector
	Advisor       *resource.Advisor
	Segmenter     *segment.Segmenter
	Aggregator    *highlight.Aggregator
}

// Events 调用方持有的通知通道，均需带缓冲，任意一个都可以为 nil。
// Done 在每次 Run 结束时恰好收到一次最终结果。
type Events struct {
	Progress chan<- int
	Live     chan<- string
	Done     chan<- *models.DetectionResult
}

// Detector 高光检测流水线
type Detector struct {
	c          Collaborators
	caps       models.Capabilities
	maxWorkers int
	dispatch   dispatch.Options
}

// NewDetector 创建流水线。config.MaxWorkers 大于0时覆盖资源顾问的建议。
func NewDetector(config *models.Config, c Collaborators, caps models.Capabilities) *Detector {
	if c.Segmenter == nil {
		c.Segmenter = segment.NewSegmenter(segment.DefaultOptions())
	}
	if c.Aggregator == nil {
		c.Aggregator = highlight.NewAggregator(highlight.SettingsFromConfig(config))
	}
	if c.Advisor == nil {
		c.Advisor = resource.NewAdvisor(nil, false)
	}
	if !caps.HasSilenceDetection {
		c.Silence = nil
	}

	return &Detector{
		c:          c,
		caps:       caps,
		maxWorkers: config.MaxWorkers,
		dispatch:   dispatch.DefaultOptions(),
	}
}

// Capabilities 返回本次运行可用的能力
func (d *Detector) Capabilities() models.Capabilities {
	return d.caps
}

// SetDispatchOptions 调整调度参数，MaxWorkers 字段会被忽略
func (d *Detector) SetDispatchOptions(opts dispatch.Options) {
	d.dispatch = opts
}

// Advisor 返回资源顾问
func (d *Detector) Advisor() *resource.Advisor {
	return d.c.Advisor
}

// Run 对单个媒体文件执行检测。
// 只有转录失败会返回错误；取消时返回已完成部分的结果。
func (d *Detector) Run(ctx context.Context, mediaPath string, events Events) (*models.DetectionResult, error) {
	start := time.Now()
	result := &models.DetectionResult{
		RunID:      uuid.NewString(),
		MediaPath:  mediaPath,
		Highlights: []models.Highlight{},
	}
	log := utils.WithFields(logrus.Fields{"run": result.RunID, "media": mediaPath})

	finish := func() *models.DetectionResult {
		result.Duration = time.Since(start)
		if events.Done != nil {
			select {
			case events.Done <- result:
			default:
				log.Warn("结果通道已满，丢弃完成通知")
			}
		}
		return result
	}

	segments, audioPath, err := d.transcribe(ctx, mediaPath)
	if err != nil {
		if ctx.Err() != nil {
			log.Info("转录阶段被取消")
			result.Cancelled = true
			sendProgress(events.Progress, 100)
			return finish(), nil
		}
		return nil, err
	}
	result.Transcript = segments
	log.Infof("转录完成，共 %d 个片段", len(segments))

	silences := d.detectSilences(ctx, audioPath, log)

	chunks := d.c.Segmenter.Segment(segments, silences)
	result.ChunkCount = len(chunks)

	batchSize, workers := d.c.Advisor.Recommend(resource.TaskEmotion)
	if d.maxWorkers > 0 {
		workers = d.maxWorkers
	}
	log.Debugf("文本块 %d 个，批大小 %d，工作协程 %d", len(chunks), batchSize, workers)

	opts := d.dispatch
	opts.MaxWorkers = workers
	report := dispatch.New(d.c.SpikeDetector, opts).Run(ctx, chunks, dispatch.Events{
		Progress: events.Progress,
		Live:     events.Live,
	})
	result.Processed = report.Completed
	result.SpikeCount = len(report.Spikes)
	result.Cancelled = report.Cancelled

	agg := *d.c.Aggregator
	agg.Notify = func(msg string) { sendLive(events.Live, msg) }
	result.Highlights = agg.Aggregate(report.Spikes)

	log.WithFields(logrus.Fields{
		"spikes":     result.SpikeCount,
		"highlights": len(result.Highlights),
		"cancelled":  result.Cancelled,
	}).Info("高光检测完成")

	return finish(), nil
}

// transcribe 返回转录片段以及供静音检测使用的音频路径
func (d *Detector) transcribe(ctx context.Context, mediaPath string) ([]models.TranscriptSegment, string, error) {
	audioPath := mediaPath

	// 预先生成的转录文件优先于任何转录服务
	if sidecar := asr.SidecarPath(mediaPath); utils.CheckFileExists(sidecar) {
		utils.Info("使用已有转录文件: %s", sidecar)
		segments, err := asr.NewFileTranscriber(sidecar).Transcribe(ctx, mediaPath, nil)
		if err == nil {
			return segments, audioPath, nil
		}
		utils.Warn("转录文件不可用，改用转录服务: %v", err)
	}

	if d.c.Extractor != nil {
		prepared, err := d.c.Extractor.PrepareAudio(ctx, mediaPath)
		if err != nil {
			return nil, "", fmt.Errorf("准备音频失败: %w", err)
		}
		audioPath = prepared
	}

	if d.c.Transcriber == nil {
		return nil, "", errors.New("未配置转录服务")
	}

	segments, err := d.c.Transcriber.Transcribe(ctx, audioPath, func(percent int, message string) {
		utils.Debug("转录进度 %d%%: %s", percent, message)
	})
	if err != nil {
		return nil, "", fmt.Errorf("转录失败: %w", err)
	}
	return segments, audioPath, nil
}

// detectSilences 静音检测失败时返回 nil，切分器随后按固定时长切片
func (d *Detector) detectSilences(ctx context.Context, audioPath string, log *logrus.Entry) []models.SilenceInterval {
	if d.c.Silence == nil {
		return nil
	}
	silences, err := d.c.Silence.Detect(ctx, audioPath)
	if err != nil {
		log.Warnf("静音检测失败，改用固定切片: %v", err)
		return nil
	}
	return silences
}

func sendProgress(ch chan<- int, pct int) {
	if ch == nil {
		return
	}
	select {
	case ch <- pct:
	default:
	}
}

func sendLive(ch chan<- string, msg string) {
	if ch == nil {
		return
	}
	select {
	case ch <- msg:
	default:
	}
}
