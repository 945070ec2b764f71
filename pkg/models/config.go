package models

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config 表示应用程序的配置
type Config struct {
	MediaFolder   string  `json:"media_folder" yaml:"media_folder"`     // 媒体文件所在文件夹
	OutputFolder  string  `json:"output_folder" yaml:"output_folder"`   // 输出结果文件夹
	TempDir       string  `json:"temp_dir" yaml:"temp_dir"`             // 临时目录
	LogLevel      string  `json:"log_level" yaml:"log_level"`           // 日志级别
	LogFile       string  `json:"log_file" yaml:"log_file"`             // 日志文件
	MaxRetries    int     `json:"max_retries" yaml:"max_retries"`       // 最大重试次数
	RetryDelay    float64 `json:"retry_delay" yaml:"retry_delay"`       // 重试延迟（秒）
	MaxWorkers    int     `json:"max_workers" yaml:"max_workers"`       // 情绪分类工作协程数，0 表示由资源顾问决定
	PickupTimeout float64 `json:"pickup_timeout" yaml:"pickup_timeout"` // 工作协程取任务的空闲超时（秒）

	// 情绪检测
	EmotionThresholds map[string]float64       `json:"emotion_thresholds" yaml:"emotion_thresholds"` // 各情绪触发阈值
	EmotionTiming     map[string]EmotionTiming `json:"emotion_timing" yaml:"emotion_timing"`         // 各情绪剪辑前后时间
	Classifier        string                   `json:"classifier" yaml:"classifier"`                 // 分类器: http, lexicon, llm
	EmotionURL        string                   `json:"emotion_url" yaml:"emotion_url"`               // 情绪服务地址
	TopK              int                      `json:"top_k" yaml:"top_k"`                           // 保留的候选情绪数量
	LLMAPIKey         string                   `json:"llm_api_key" yaml:"llm_api_key"`               // 大模型API密钥
	LLMModel          string                   `json:"llm_model" yaml:"llm_model"`                   // 大模型名称

	// 高光聚合
	HighlightWindowSeconds          float64 `json:"highlight_window_seconds" yaml:"highlight_window_seconds"`
	HighlightMinSpikes              int     `json:"highlight_min_spikes" yaml:"highlight_min_spikes"`
	HighlightMinClipLength          float64 `json:"highlight_min_clip_length" yaml:"highlight_min_clip_length"`
	HighlightMaxClipLength          float64 `json:"highlight_max_clip_length" yaml:"highlight_max_clip_length"`
	HighlightRequiredEmotionVariety int     `json:"highlight_required_emotion_variety" yaml:"highlight_required_emotion_variety"`
	HighlightOverlapThreshold       float64 `json:"highlight_overlap_threshold" yaml:"highlight_overlap_threshold"`
	HighlightMinEmotionIntensity    float64 `json:"highlight_min_emotion_intensity" yaml:"highlight_min_emotion_intensity"` // 保留字段，当前未参与计算

	// 转录与静音检测
	ASRService            string  `json:"asr_service" yaml:"asr_service"`                       // ASR服务选择 (http, file, kuaishou, auto)
	ASRURL                string  `json:"asr_url" yaml:"asr_url"`                               // ASR服务地址
	ASRCache              bool    `json:"asr_cache" yaml:"asr_cache"`                           // 是否缓存ASR结果
	SilenceDetection      bool    `json:"silence_detection" yaml:"silence_detection"`           // 是否启用静音检测
	SilenceThresholdDB    float64 `json:"silence_threshold_db" yaml:"silence_threshold_db"`     // 静音阈值（dB）
	MinSilenceMs          int     `json:"min_silence_ms" yaml:"min_silence_ms"`                 // 最短静音时长（毫秒）
	ResourceIntrospection bool    `json:"resource_introspection" yaml:"resource_introspection"` // 是否探测系统资源

	// 输出
	ExportSRT    bool `json:"export_srt" yaml:"export_srt"`       // 是否导出SRT字幕文件
	ExportJSON   bool `json:"export_json" yaml:"export_json"`     // 是否导出JSON结果
	ShowProgress bool `json:"show_progress" yaml:"show_progress"` // 显示进度条
	WatchMode    bool `json:"watch_mode" yaml:"watch_mode"`       // 是否启用监听模式
}

// ConfigValidationError 表示配置验证错误
type ConfigValidationError struct {
	Field   string
	Message string
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("配置验证错误: %s - %s", e.Field, e.Message)
}

// DefaultEmotionThresholds 默认情绪阈值
func DefaultEmotionThresholds() map[string]float64 {
	return map[string]float64{
		EmotionJoy:      0.995,
		EmotionSurprise: 0.995,
		EmotionAnger:    0.995,
		EmotionFear:     0.995,
		EmotionSadness:  0.995,
	}
}

// DefaultEmotionTiming 默认情绪剪辑时间
func DefaultEmotionTiming() map[string]EmotionTiming {
	return map[string]EmotionTiming{
		EmotionSurprise:  {LeadTime: -3, FollowTime: 7},
		EmotionFear:      {LeadTime: -3, FollowTime: 7},
		EmotionAnger:     {LeadTime: -1.5, FollowTime: 10},
		DefaultTimingKey: {LeadTime: -2, FollowTime: 8},
	}
}

// NewDefaultConfig 创建默认配置
func NewDefaultConfig() *Config {
	return &Config{
		MediaFolder:   "./media",
		OutputFolder:  "./output",
		TempDir:       "",
		LogLevel:      "INFO",
		LogFile:       "",
		MaxRetries:    3,
		RetryDelay:    1.0,
		MaxWorkers:    0,
		PickupTimeout: 1.0,

		EmotionThresholds: DefaultEmotionThresholds(),
		EmotionTiming:     DefaultEmotionTiming(),
		Classifier:        "lexicon",
		EmotionURL:        "http://localhost:8002",
		TopK:              2,
		LLMModel:          "doubao-1-5-pro-256k-250115",

		HighlightWindowSeconds:          45,
		HighlightMinSpikes:              4,
		HighlightMinClipLength:          15,
		HighlightMaxClipLength:          60,
		HighlightRequiredEmotionVariety: 2,
		HighlightOverlapThreshold:       0.4,
		HighlightMinEmotionIntensity:    0.2,

		ASRService:            "auto",
		ASRURL:                "http://localhost:8001",
		ASRCache:              true,
		SilenceDetection:      true,
		SilenceThresholdDB:    -40,
		MinSilenceMs:          500,
		ResourceIntrospection: true,

		ExportSRT:    true,
		ExportJSON:   true,
		ShowProgress: true,
		WatchMode:    false,
	}
}

// Validate 验证配置是否有效
func (c *Config) Validate() error {
	// 验证文件夹路径
	if err := ensureDirExists(c.MediaFolder); err != nil {
		return &ConfigValidationError{"MediaFolder", err.Error()}
	}

	if err := ensureDirExists(c.OutputFolder); err != nil {
		return &ConfigValidationError{"OutputFolder", err.Error()}
	}

	// 验证数值范围
	if c.MaxRetries < 1 || c.MaxRetries > 10 {
		return &ConfigValidationError{"MaxRetries", "必须在1-10之间"}
	}

	if c.MaxWorkers < 0 || c.MaxWorkers > 32 {
		return &ConfigValidationError{"MaxWorkers", "必须在0-32之间"}
	}

	if c.RetryDelay < 0.1 || c.RetryDelay > 10.0 {
		return &ConfigValidationError{"RetryDelay", "必须在0.1-10.0秒之间"}
	}

	if c.PickupTimeout < 0.1 || c.PickupTimeout > 60 {
		return &ConfigValidationError{"PickupTimeout", "必须在0.1-60秒之间"}
	}

	if len(c.EmotionThresholds) == 0 {
		return &ConfigValidationError{"EmotionThresholds", "至少需要一个受监控的情绪"}
	}
	for label, thr := range c.EmotionThresholds {
		if thr <= 0 || thr > 1 {
			return &ConfigValidationError{"EmotionThresholds", fmt.Sprintf("%s 的阈值必须在(0,1]之间", label)}
		}
	}

	if _, ok := c.EmotionTiming[DefaultTimingKey]; !ok {
		return &ConfigValidationError{"EmotionTiming", "必须包含 default 项"}
	}

	if c.HighlightWindowSeconds <= 0 {
		return &ConfigValidationError{"HighlightWindowSeconds", "必须大于0"}
	}

	if c.HighlightMinSpikes < 1 {
		return &ConfigValidationError{"HighlightMinSpikes", "必须大于等于1"}
	}

	if c.HighlightMinClipLength <= 0 || c.HighlightMaxClipLength <= 0 {
		return &ConfigValidationError{"HighlightClipLength", "剪辑长度必须大于0"}
	}

	if c.HighlightMinClipLength > c.HighlightMaxClipLength {
		// 最短长度优先，仅提示
		logrus.Warnf("最短剪辑长度(%.1f)大于最长剪辑长度(%.1f)，将以最短长度为准",
			c.HighlightMinClipLength, c.HighlightMaxClipLength)
	}

	if c.HighlightRequiredEmotionVariety < 1 {
		return &ConfigValidationError{"HighlightRequiredEmotionVariety", "必须大于等于1"}
	}

	if c.HighlightOverlapThreshold < 0 || c.HighlightOverlapThreshold > 1 {
		return &ConfigValidationError{"HighlightOverlapThreshold", "必须在0-1之间"}
	}

	if c.TopK < 1 {
		return &ConfigValidationError{"TopK", "必须大于等于1"}
	}

	switch c.Classifier {
	case "http", "lexicon", "llm":
	default:
		return &ConfigValidationError{"Classifier", "必须是 http, lexicon 或 llm"}
	}

	switch c.ASRService {
	case "http", "file", "kuaishou", "auto":
	default:
		return &ConfigValidationError{"ASRService", "必须是 http, file, kuaishou 或 auto"}
	}

	if c.MinSilenceMs < 0 {
		return &ConfigValidationError{"MinSilenceMs", "不能为负数"}
	}

	return nil
}

// LoadFromFile 从文件加载配置，.yaml/.yml 按YAML解析，其余按JSON解析
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Errorf("读取配置文件失败: %v", err)
		return err
	}

	if isYAML(path) {
		err = yaml.Unmarshal(data, c)
	} else {
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		logrus.Errorf("解析配置文件失败: %v", err)
		return err
	}

	if err := c.Validate(); err != nil {
		logrus.Errorf("配置验证失败: %v", err)
		return err
	}

	return nil
}

// SaveToFile 保存配置到文件
func (c *Config) SaveToFile(path string) error {
	// 确保目录存在
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logrus.Errorf("创建目录失败: %v", err)
		return err
	}

	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		logrus.Errorf("序列化配置失败: %v", err)
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		logrus.Errorf("写入配置文件失败: %v", err)
		return err
	}

	return nil
}

// Update 批量更新配置
func (c *Config) Update(updates map[string]interface{}) error {
	// 保存当前配置用于回滚，map字段需要深拷贝
	tempConfig := c.Clone()

	// 将更新序列化为JSON再反序列化到结构体中
	updateBytes, err := json.Marshal(updates)
	if err != nil {
		logrus.Errorf("序列化更新数据失败: %v", err)
		return err
	}

	if err := json.Unmarshal(updateBytes, c); err != nil {
		*c = *tempConfig
		logrus.Errorf("应用配置更新失败: %v", err)
		return err
	}

	if err := c.Validate(); err != nil {
		*c = *tempConfig
		logrus.Errorf("配置验证失败: %v", err)
		return err
	}

	return nil
}

// Clone 返回配置的深拷贝
func (c *Config) Clone() *Config {
	cp := *c
	cp.EmotionThresholds = make(map[string]float64, len(c.EmotionThresholds))
	for k, v := range c.EmotionThresholds {
		cp.EmotionThresholds[k] = v
	}
	cp.EmotionTiming = make(map[string]EmotionTiming, len(c.EmotionTiming))
	for k, v := range c.EmotionTiming {
		cp.EmotionTiming[k] = v
	}
	return &cp
}

// WorkDir 返回临时工作目录，未配置时使用系统临时目录
func (c *Config) WorkDir() string {
	if c.TempDir != "" {
		return c.TempDir
	}
	return filepath.Join(os.TempDir(), "emotion-clipper")
}

// PrintConfig 以JSON格式输出当前配置，隐藏API密钥
func (c *Config) PrintConfig(w io.Writer) error {
	shown := c.Clone()
	if shown.LLMAPIKey != "" {
		shown.LLMAPIKey = "******"
	}
	bytes, err := json.MarshalIndent(shown, "", "  ")
	if err != nil {
		logrus.Errorf("序列化配置失败: %v", err)
		return err
	}
	_, err = fmt.Fprintf(w, "当前配置:\n%s\n", bytes)
	return err
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// 确保目录存在，如果不存在则创建
func ensureDirExists(path string) error {
	if path == "" {
		return nil // 空路径视为可选
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, 0755)
	}

	return nil
}
