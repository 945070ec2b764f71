package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/ccp-p/emotion-clipper/pkg/models"
	"github.com/ccp-p/emotion-clipper/pkg/resource"
	"github.com/ccp-p/emotion-clipper/pkg/utils"
)

// BatchResult 单个文件的批处理结果
type BatchResult struct {
	FilePath    string
	Result      *models.DetectionResult
	Error       error
	ProcessTime time.Duration
}

// Success 返回处理是否成功
func (r BatchResult) Success() bool {
	return r.Error == nil && r.Result != nil
}

// BatchProgressCallback 每完成一个文件调用一次
type BatchProgressCallback func(current, total int, result *BatchResult)

// Runner 单文件检测，由 Detector 实现
type Runner interface {
	Run(ctx context.Context, mediaPath string, events Events) (*models.DetectionResult, error)
}

// RunnerFunc 把普通函数适配为 Runner
type RunnerFunc func(ctx context.Context, mediaPath string, events Events) (*models.DetectionResult, error)

// Run 实现 Runner
func (f RunnerFunc) Run(ctx context.Context, mediaPath string, events Events) (*models.DetectionResult, error) {
	return f(ctx, mediaPath, events)
}

// BatchProcessor 批量处理多个媒体文件
type BatchProcessor struct {
	Runner           Runner
	MaxConcurrency   int
	ProgressCallback BatchProgressCallback
}

// NewBatchProcessor 创建批处理器，并发数取资源顾问对转录任务的建议
func NewBatchProcessor(runner Runner, advisor *resource.Advisor, callback BatchProgressCallback) *BatchProcessor {
	concurrency := 1
	if advisor != nil {
		_, concurrency = advisor.Recommend(resource.TaskTranscription)
	}
	return &BatchProcessor{
		Runner:           runner,
		MaxConcurrency:   max(concurrency, 1),
		ProgressCallback: callback,
	}
}

// ProcessFiles 并发处理文件，结果顺序与输入一致
func (p *BatchProcessor) ProcessFiles(ctx context.Context, files []string) []BatchResult {
	if len(files) == 0 {
		return nil
	}

	utils.Info("开始批量处理 %d 个文件，并发数: %d", len(files), p.MaxConcurrency)

	results := make([]BatchResult, len(files))
	sem := make(chan struct{}, max(p.MaxConcurrency, 1))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		completed int
	)

	for i, filePath := range files {
		wg.Add(1)
		go func(index int, path string) {
			defer wg.Done()

			// 获取信号量
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[index] = BatchResult{FilePath: path, Error: ctx.Err()}
				p.done(&mu, &completed, len(files), &results[index])
				return
			}

			results[index] = p.processSingleFile(ctx, path)
			p.done(&mu, &completed, len(files), &results[index])
		}(i, filePath)
	}

	wg.Wait()
	return results
}

func (p *BatchProcessor) done(mu *sync.Mutex, completed *int, total int, result *BatchResult) {
	mu.Lock()
	defer mu.Unlock()
	*completed++
	if p.ProgressCallback != nil {
		p.ProgressCallback(*completed, total, result)
	}
}

func (p *BatchProcessor) processSingleFile(ctx context.Context, filePath string) BatchResult {
	start := time.Now()
	result := BatchResult{FilePath: filePath}

	if err := ctx.Err(); err != nil {
		result.Error = err
		return result
	}

	detection, err := p.Runner.Run(ctx, filePath, Events{})
	result.ProcessTime = time.Since(start)
	if err != nil {
		result.Error = fmt.Errorf("处理 %s 失败: %w", filepath.Base(filePath), err)
		utils.Error("%v", result.Error)
		return result
	}

	result.Result = detection
	utils.Info("%s 处理完成，高光 %d 个，用时 %s",
		filepath.Base(filePath), len(detection.Highlights), utils.FormatTimeDuration(result.ProcessTime.Seconds()))
	return result
}
