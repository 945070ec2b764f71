package resource

import (
	"fmt"

	"github.com/ccp-p/emotion-clipper/pkg/utils"
)

// TaskType 任务类型
type TaskType int

const (
	// TaskTranscription 语音转录，内存密集且不可批处理
	TaskTranscription TaskType = iota
	// TaskEmotion 情绪分类，CPU密集可批处理
	TaskEmotion
)

func (t TaskType) String() string {
	switch t {
	case TaskTranscription:
		return "transcription"
	case TaskEmotion:
		return "emotion"
	}
	return fmt.Sprintf("TaskType(%d)", int(t))
}

// 无法探测系统资源时使用的保守默认值
const (
	DefaultBatchSize  = 10
	DefaultMaxWorkers = 2
)

// SystemProbe 查询主机资源
type SystemProbe interface {
	PhysicalCores() (int, error)
	AvailableMemoryGB() (float64, error)
}

// Advisor 根据主机资源给出批大小和工作协程数建议
type Advisor struct {
	probe   SystemProbe
	enabled bool
}

// NewAdvisor 创建资源顾问，probe 为 nil 或 enabled 为 false 时总是返回默认值
func NewAdvisor(probe SystemProbe, enabled bool) *Advisor {
	return &Advisor{
		probe:   probe,
		enabled: enabled && probe != nil,
	}
}

// Enabled 返回是否启用了资源探测
func (a *Advisor) Enabled() bool {
	return a.enabled
}

// Recommend 返回 (batchSize, maxWorkers)，maxWorkers 永远不小于1
func (a *Advisor) Recommend(task TaskType) (batchSize, maxWorkers int) {
	if !a.enabled {
		return DefaultBatchSize, DefaultMaxWorkers
	}

	defer func() {
		if r := recover(); r != nil {
			utils.Warn("资源探测异常，使用默认配置: %v", r)
			batchSize, maxWorkers = DefaultBatchSize, DefaultMaxWorkers
		}
	}()

	cores, err := a.probe.PhysicalCores()
	if err != nil {
		utils.Debug("获取物理核心数失败，使用默认配置: %v", err)
		return DefaultBatchSize, DefaultMaxWorkers
	}
	if cores <= 0 {
		cores = 2
	}

	memGB, err := a.probe.AvailableMemoryGB()
	if err != nil {
		utils.Debug("获取可用内存失败，使用默认配置: %v", err)
		return DefaultBatchSize, DefaultMaxWorkers
	}

	switch task {
	case TaskEmotion:
		batchSize, maxWorkers = emotionTier(cores, memGB)
	case TaskTranscription:
		batchSize, maxWorkers = transcriptionTier(cores, memGB)
	default:
		return DefaultBatchSize, DefaultMaxWorkers
	}

	utils.Debug("资源建议 [%s]: 核心=%d 可用内存=%.1fGB -> 批大小=%d 工作协程=%d",
		task, cores, memGB, batchSize, maxWorkers)
	return batchSize, maxWorkers
}

func emotionTier(cores int, memGB float64) (int, int) {
	workers := clamp(cores-1, 1, 4)
	switch {
	case memGB > 8 && cores >= 4:
		return 32, workers
	case memGB > 4 && cores >= 2:
		return 16, workers
	default:
		return 8, workers
	}
}

func transcriptionTier(cores int, memGB float64) (int, int) {
	workers := clamp(cores-1, 1, 2)
	if memGB <= 4 {
		workers = 1
	}
	return 1, workers
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
