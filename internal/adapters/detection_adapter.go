// Package adapters 把检测流水线适配为监控模式使用的处理器
package adapters

import (
	"context"
	"fmt"
	"sync"

	"github.com/ccp-p/emotion-clipper/pkg/export"
	"github.com/ccp-p/emotion-clipper/pkg/models"
	"github.com/ccp-p/emotion-clipper/pkg/utils"
)

// MediaProcessor 是处理媒体文件的接口
type MediaProcessor interface {
	ProcessFile(ctx context.Context, filePath string) error
	IsProcessed(filePath string) bool
	Forget(filePath string)
}

// DetectFunc 对单个文件执行检测
type DetectFunc func(ctx context.Context, filePath string) (*models.DetectionResult, error)

// DetectionAdapter 检测并导出单个文件，记录本进程内已处理的文件
type DetectionAdapter struct {
	Detect    DetectFunc
	Exporters []export.Exporter
	// OnResult 可选，导出后调用
	OnResult func(result *models.DetectionResult, files []string)

	mu        sync.Mutex
	processed map[string]bool
}

// NewDetectionAdapter 创建检测适配器
func NewDetectionAdapter(detect DetectFunc, exporters []export.Exporter) *DetectionAdapter {
	return &DetectionAdapter{
		Detect:    detect,
		Exporters: exporters,
		processed: make(map[string]bool),
	}
}

// ProcessFile 检测并导出，已处理过的文件直接跳过
func (a *DetectionAdapter) ProcessFile(ctx context.Context, filePath string) error {
	if a.IsProcessed(filePath) {
		utils.Debug("文件已处理，跳过: %s", filePath)
		return nil
	}

	result, err := a.Detect(ctx, filePath)
	if err != nil {
		return err
	}

	files, err := export.ExportAll(a.Exporters, result)
	if err != nil {
		utils.Warn("部分导出失败: %v", err)
	}

	// 被取消的结果不完整，下次仍需重新处理
	if !result.Cancelled {
		a.MarkProcessed(filePath)
	}

	if a.OnResult != nil {
		a.OnResult(result, files)
	}
	if result.Cancelled {
		return fmt.Errorf("处理 %s 时被取消: %w", filePath, context.Canceled)
	}
	return nil
}

// MarkProcessed 标记文件为已处理
func (a *DetectionAdapter) MarkProcessed(filePath string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.processed[filePath] = true
}

// IsProcessed 检查文件是否已处理
func (a *DetectionAdapter) IsProcessed(filePath string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.processed[filePath]
}

// Forget 移除处理记录，文件被删除或改名时调用
func (a *DetectionAdapter) Forget(filePath string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.processed, filePath)
}

// Processed 返回已处理文件集合的副本
func (a *DetectionAdapter) Processed() map[string]bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	cp := make(map[string]bool, len(a.processed))
	for k, v := range a.processed {
		cp[k] = v
	}
	return cp
}
