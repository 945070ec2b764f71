package emotion

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ccp-p/emotion-clipper/pkg/models"
	"github.com/ccp-p/emotion-clipper/pkg/utils"
)

// OperationClassify 错误统计中分类失败使用的操作名
const OperationClassify = "emotion_classify"

var errEmptyPrediction = errors.New("分类器返回空结果")

// Detector 对单个文本块分类，并在置信度超过阈值时生成情绪峰值
type Detector struct {
	classifier Classifier
	thresholds map[string]float64
	timing     map[string]models.EmotionTiming
	errs       *utils.ErrorHandler
}

// NewDetector 创建峰值检测器。thresholds 的键即受监控的情绪集合，
// timing 必须包含 default 项，缺失时使用内置默认值。两者的键均不区分大小写。
func NewDetector(classifier Classifier, thresholds map[string]float64, timing map[string]models.EmotionTiming, errs *utils.ErrorHandler) *Detector {
	if len(thresholds) == 0 {
		thresholds = models.DefaultEmotionThresholds()
	}
	thresholds = lowerKeys(thresholds)
	timing = lowerKeys(timing)
	if _, ok := timing[models.DefaultTimingKey]; !ok {
		merged := models.DefaultEmotionTiming()
		for k, v := range timing {
			merged[k] = v
		}
		timing = merged
	}
	if errs == nil {
		errs = utils.NewErrorHandler(1, 0)
	}
	return &Detector{
		classifier: classifier,
		thresholds: thresholds,
		timing:     timing,
		errs:       errs,
	}
}

// Detect 返回该文本块对应的情绪峰值。分类失败或 panic 均视为无峰值。
func (d *Detector) Detect(ctx context.Context, chunk models.Chunk) (spike models.SpikeCandidate, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.errs.RecordError(OperationClassify, fmt.Errorf("panic: %v", r))
			utils.Debug("情绪分类异常 (%.1fs): %v", chunk.Timestamp, r)
			spike, ok = models.SpikeCandidate{}, false
		}
	}()

	scores, err := d.classifier.Classify(ctx, chunk.Text)
	if err == nil && len(scores) == 0 {
		err = errEmptyPrediction
	}
	if err != nil {
		d.errs.RecordError(OperationClassify, err)
		utils.Debug("情绪分类失败 (%.1fs): %v", chunk.Timestamp, err)
		return models.SpikeCandidate{}, false
	}

	top := scores[0]
	label := strings.ToLower(top.Label)
	threshold, monitored := d.thresholds[label]
	if !monitored || !(top.Score > threshold) {
		return models.SpikeCandidate{}, false
	}

	timing, found := d.timing[label]
	if !found {
		timing = d.timing[models.DefaultTimingKey]
	}

	return models.SpikeCandidate{
		ClipStart: math.Max(0, chunk.Timestamp+timing.LeadTime),
		ClipEnd:   chunk.Timestamp + timing.FollowTime,
		Label:     label,
		Text:      fmt.Sprintf("[%s %.3f] %s", strings.ToUpper(label), top.Score, chunk.Text),
		Score:     top.Score,
	}, true
}

// lowerKeys 返回键转为小写的副本，分类器标签在比较前同样转为小写
func lowerKeys[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}

// ErrorCount 返回累计的分类失败次数
func (d *Detector) ErrorCount() int {
	return d.errs.ErrorCount(OperationClassify)
}
