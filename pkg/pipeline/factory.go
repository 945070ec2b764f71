package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ccp-p/emotion-clipper/pkg/asr"
	"github.com/ccp-p/emotion-clipper/pkg/audio"
	"github.com/ccp-p/emotion-clipper/pkg/dispatch"
	"github.com/ccp-p/emotion-clipper/pkg/emotion"
	"github.com/ccp-p/emotion-clipper/pkg/highlight"
	"github.com/ccp-p/emotion-clipper/pkg/llm"
	"github.com/ccp-p/emotion-clipper/pkg/models"
	"github.com/ccp-p/emotion-clipper/pkg/resource"
	"github.com/ccp-p/emotion-clipper/pkg/segment"
	"github.com/ccp-p/emotion-clipper/pkg/utils"
)

// 转录服务名称
const (
	ServiceHTTP     = "http"
	ServiceFile     = "file"
	ServiceKuaiShou = "kuaishou"
)

// DetectCapabilities 探测可选协作者是否可用
func DetectCapabilities(config *models.Config) models.Capabilities {
	caps := models.Capabilities{
		HasSilenceDetection:      config.SilenceDetection && utils.CheckFFmpeg(),
		HasResourceIntrospection: config.ResourceIntrospection,
	}
	if config.SilenceDetection && !caps.HasSilenceDetection {
		utils.Warn("未找到ffmpeg，静音检测已禁用")
	}
	return caps
}

// NewClassifier 按配置创建情绪分类器
func NewClassifier(config *models.Config, errs *utils.ErrorHandler) (emotion.Classifier, error) {
	switch config.Classifier {
	case "http":
		return emotion.NewHTTPClassifier(config.EmotionURL, config.TopK, errs), nil
	case "llm":
		key := config.LLMAPIKey
		if key == "" {
			key = os.Getenv("ARK_API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("使用llm分类器需要设置 llm_api_key 或 ARK_API_KEY")
		}
		client := llm.NewVolcesAPIClient(key, config.LLMModel)
		return emotion.NewLLMClassifier(client, monitoredLabels(config), config.TopK), nil
	case "", "lexicon":
		return emotion.NewLexiconClassifier(emotion.DefaultLexicon, config.TopK), nil
	default:
		return nil, fmt.Errorf("未知的分类器: %s", config.Classifier)
	}
}

// NewTranscriber 按配置注册全部转录服务
func NewTranscriber(config *models.Config) *asr.Selector {
	selector := asr.NewSelector(config.ASRService)

	cache := asr.NewResultCache(filepath.Join(config.WorkDir(), "asr_cache"), config.ASRCache)
	selector.RegisterService(ServiceHTTP, asr.NewHTTPTranscriber(config.ASRURL), 10)
	selector.RegisterService(ServiceKuaiShou, asr.NewKuaiShouTranscriber(cache), 5)
	selector.RegisterService(ServiceFile, asr.NewFileTranscriber(""), 1)

	return selector
}

// Build 从配置组装完整的检测流水线，progress 为 nil 时视频提取不显示进度条
func Build(config *models.Config, errs *utils.ErrorHandler, progress audio.ProgressReporter) (*Detector, error) {
	if errs == nil {
		errs = utils.NewErrorHandler(config.MaxRetries, config.RetryDelay)
	}

	classifier, err := NewClassifier(config, errs)
	if err != nil {
		return nil, err
	}

	caps := DetectCapabilities(config)

	var silence audio.SilenceDetector
	if caps.HasSilenceDetection {
		silence = audio.NewFFmpegSilenceDetector(config)
	}

	var extractor *audio.AudioExtractor
	if utils.CheckFFmpeg() {
		extractor = audio.NewAudioExtractor(filepath.Join(config.WorkDir(), "audio"), nil)
		if progress != nil {
			extractor.SetProgressReporter(progress)
		}
	}

	collaborators := Collaborators{
		Transcriber:   NewTranscriber(config),
		Silence:       silence,
		Extractor:     extractor,
		SpikeDetector: emotion.NewDetector(classifier, config.EmotionThresholds, config.EmotionTiming, errs),
		Advisor:       resource.NewAdvisor(resource.NewHostProbe(), caps.HasResourceIntrospection),
		Segmenter:     segment.NewSegmenter(segment.DefaultOptions()),
		Aggregator:    highlight.NewAggregator(highlight.SettingsFromConfig(config)),
	}

	utils.Info("流水线就绪: 分类器=%s 转录=%s 静音检测=%v 资源探测=%v",
		config.Classifier, config.ASRService, caps.HasSilenceDetection, caps.HasResourceIntrospection)

	detector := NewDetector(config, collaborators, caps)
	detector.SetDispatchOptions(DispatchOptions(config))
	return detector, nil
}

// DispatchOptions 由配置得到调度参数，工作协程数在每次运行时再决定
func DispatchOptions(config *models.Config) dispatch.Options {
	opts := dispatch.DefaultOptions()
	if config.PickupTimeout > 0 {
		opts.PickupTimeout = time.Duration(config.PickupTimeout * float64(time.Second))
	}
	return opts
}

func monitoredLabels(config *models.Config) []string {
	labels := make([]string, 0, len(config.EmotionThresholds))
	for label := range config.EmotionThresholds {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
