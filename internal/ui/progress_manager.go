package ui

import (
	"io"
	"os"
	"sync"
)

// ProgressManager 管理多个进度条
type ProgressManager struct {
	progressBars map[string]*ProgressBar
	mutex        sync.Mutex
	enabled      bool
	out          io.Writer
}

// NewProgressManager 创建新的进度管理器
func NewProgressManager(enabled bool) *ProgressManager {
	return NewProgressManagerWithWriter(enabled, os.Stdout)
}

// NewProgressManagerWithWriter 创建输出到指定 writer 的进度管理器
func NewProgressManagerWithWriter(enabled bool, out io.Writer) *ProgressManager {
	return &ProgressManager{
		progressBars: make(map[string]*ProgressBar),
		enabled:      enabled,
		out:          out,
	}
}

// Enabled 返回是否显示进度条
func (pm *ProgressManager) Enabled() bool {
	return pm.enabled
}

// CreateProgressBar 创建并注册一个新的进度条
func (pm *ProgressManager) CreateProgressBar(id string, total int, prefix string, suffix string) {
	if !pm.enabled {
		return
	}

	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	// 如果已经存在同名进度条，先完成它
	if bar, exists := pm.progressBars[id]; exists {
		bar.Complete("已被替换")
	}
	pm.progressBars[id] = newProgressBar(pm.out, total, prefix, suffix)
}

// GetProgressBar 获取已存在的进度条
func (pm *ProgressManager) GetProgressBar(id string) *ProgressBar {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	return pm.progressBars[id]
}

// UpdateProgressBar 更新进度条
func (pm *ProgressManager) UpdateProgressBar(id string, current int, suffix string) {
	if bar := pm.GetProgressBar(id); bar != nil {
		bar.Update(current, suffix)
	}
}

// CompleteProgressBar 完成并移除进度条
func (pm *ProgressManager) CompleteProgressBar(id string, suffix string) {
	pm.mutex.Lock()
	bar, exists := pm.progressBars[id]
	delete(pm.progressBars, id)
	pm.mutex.Unlock()

	if exists {
		bar.Complete(suffix)
	}
}

// CloseAll 完成所有进度条
func (pm *ProgressManager) CloseAll(suffix string) {
	pm.mutex.Lock()
	bars := pm.progressBars
	pm.progressBars = make(map[string]*ProgressBar)
	pm.mutex.Unlock()

	for _, bar := range bars {
		bar.Complete(suffix)
	}
}
