package asr

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/ccp-p/emotion-clipper/pkg/models"
	"github.com/ccp-p/emotion-clipper/pkg/utils"
)

// 选择策略
const (
	StrategyWeightedRandom = "weighted_random"
	StrategyRoundRobin     = "round_robin"

	// ServiceAuto 自动选择服务
	ServiceAuto = "auto"
)

// ServiceStats 服务统计数据
type ServiceStats struct {
	SuccessCount int
	TotalCount   int
	Available    bool
}

// Selector 转录服务选择器，在多个服务之间做负载均衡，本身也实现 Transcriber
type Selector struct {
	// Service 使用的服务名，auto 表示按策略自动选择
	Service  string
	Strategy string

	mu              sync.RWMutex
	services        map[string]Transcriber
	weights         map[string]int
	counters        map[string]int
	stats           map[string]*ServiceStats
	roundRobinIndex int
	serviceList     []string
	rng             *rand.Rand
}

// NewSelector 创建新的服务选择器
func NewSelector(service string) *Selector {
	if service == "" {
		service = ServiceAuto
	}
	return &Selector{
		Service:     service,
		Strategy:    StrategyWeightedRandom,
		services:    make(map[string]Transcriber),
		weights:     make(map[string]int),
		counters:    make(map[string]int),
		stats:       make(map[string]*ServiceStats),
		serviceList: make([]string, 0),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// RegisterService 注册转录服务
func (s *Selector) RegisterService(name string, t Transcriber, weight int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.services[name]; !exists {
		s.serviceList = append(s.serviceList, name)
	}
	s.services[name] = t
	s.weights[name] = weight
	s.counters[name] = 0
	s.stats[name] = &ServiceStats{Available: true}

	utils.Info("注册转录服务: %s, 权重: %d", name, weight)
}

// Services 返回已注册的服务名（注册顺序）
func (s *Selector) Services() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.serviceList...)
}

// ReportResult 报告服务调用结果
func (s *Selector) ReportResult(serviceName string, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stat, exists := s.stats[serviceName]
	if !exists {
		return
	}
	if success {
		stat.SuccessCount++
	}
	stat.TotalCount++

	// 成功率过低时临时禁用
	if !success && stat.TotalCount > 5 && float64(stat.SuccessCount)/float64(stat.TotalCount) < 0.2 {
		stat.Available = false
		utils.Warn("转录服务 %s 成功率过低，临时禁用", serviceName)
	} else if success && !stat.Available {
		stat.Available = true
		utils.Info("转录服务 %s 恢复可用", serviceName)
	}
}

// SelectService 根据策略选择一个可用服务
func (s *Selector) SelectService(strategy string) (string, Transcriber, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.services) == 0 {
		return "", nil, false
	}

	switch strategy {
	case StrategyRoundRobin:
		return s.selectByRoundRobin()
	default:
		return s.selectByWeightedRandom()
	}
}

func (s *Selector) available() []string {
	names := make([]string, 0, len(s.serviceList))
	for _, name := range s.serviceList {
		if s.stats[name].Available {
			names = append(names, name)
		}
	}
	return names
}

func (s *Selector) selectByRoundRobin() (string, Transcriber, bool) {
	names := s.available()
	if len(names) == 0 {
		return "", nil, false
	}

	selected := names[s.roundRobinIndex%len(names)]
	s.roundRobinIndex = (s.roundRobinIndex + 1) % len(names)
	s.counters[selected]++
	return selected, s.services[selected], true
}

func (s *Selector) selectByWeightedRandom() (string, Transcriber, bool) {
	names := s.available()
	totalWeight := 0
	for _, name := range names {
		totalWeight += s.weights[name]
	}

	if totalWeight <= 0 {
		// 权重都为0时退化为第一个可用服务
		if len(names) == 0 {
			return "", nil, false
		}
		s.counters[names[0]]++
		return names[0], s.services[names[0]], true
	}

	r := s.rng.Intn(totalWeight)
	cumWeight := 0
	for _, name := range names {
		cumWeight += s.weights[name]
		if r < cumWeight {
			s.counters[name]++
			return name, s.services[name], true
		}
	}
	return "", nil, false
}

// GetStats 获取服务使用统计信息
func (s *Selector) GetStats() map[string]map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]map[string]interface{})
	for name, stat := range s.stats {
		successRate := 0.0
		if stat.TotalCount > 0 {
			successRate = float64(stat.SuccessCount) / float64(stat.TotalCount) * 100
		}

		result[name] = map[string]interface{}{
			"count":        s.counters[name],
			"success_rate": fmt.Sprintf("%.1f%%", successRate),
			"available":    stat.Available,
			"weight":       s.weights[name],
		}
	}
	return result
}

// Transcribe 使用指定服务或自动选择的服务执行转录。
// 自动模式下某个服务失败后会依次尝试其余可用服务。
func (s *Selector) Transcribe(ctx context.Context, mediaPath string, callback ProgressCallback) ([]models.TranscriptSegment, error) {
	if s.Service != ServiceAuto {
		s.mu.RLock()
		t, ok := s.services[s.Service]
		s.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("未知的转录服务: %s", s.Service)
		}
		return s.run(ctx, s.Service, t, mediaPath, callback)
	}

	name, t, ok := s.SelectService(s.Strategy)
	if !ok {
		return nil, fmt.Errorf("没有可用的转录服务")
	}

	segments, err := s.run(ctx, name, t, mediaPath, callback)
	if err == nil {
		return segments, nil
	}
	lastErr := err

	for _, other := range s.Services() {
		if other == name || ctx.Err() != nil {
			continue
		}
		s.mu.RLock()
		alt, available := s.services[other], s.stats[other].Available
		s.mu.RUnlock()
		if !available {
			continue
		}

		utils.Warn("转录服务 %s 失败，尝试 %s", name, other)
		segments, err = s.run(ctx, other, alt, mediaPath, callback)
		if err == nil {
			return segments, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (s *Selector) run(ctx context.Context, name string, t Transcriber, mediaPath string, callback ProgressCallback) ([]models.TranscriptSegment, error) {
	utils.Debug("使用转录服务 %s 处理 %s", name, mediaPath)
	segments, err := t.Transcribe(ctx, mediaPath, callback)
	s.ReportResult(name, err == nil && len(segments) > 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("%s: 未返回任何转录片段", name)
	}
	return segments, nil
}
