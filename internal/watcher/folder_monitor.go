// Package watcher 监控媒体文件夹中的新文件
package watcher

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ccp-p/emotion-clipper/pkg/utils"
)

// FileEventHandler 是处理文件事件的接口
type FileEventHandler interface {
	OnFileCreated(filePath string)
	OnFileDeleted(filePath string)
}

// FolderMonitor 监控文件夹变化，同一文件的连续写入在 debounceTime 内合并为一次事件
type FolderMonitor struct {
	watcher      *fsnotify.Watcher
	folderPath   string
	accept       func(path string) bool
	handler      FileEventHandler
	debounceTime time.Duration
	pendingFiles map[string]*time.Timer
	mutex        sync.Mutex
	stopChan     chan struct{}
	stopOnce     sync.Once
}

// NewFolderMonitor 创建新的文件夹监控器，accept 为 nil 时接受所有文件
func NewFolderMonitor(folderPath string, accept func(string) bool, handler FileEventHandler, debounceTime time.Duration) (*FolderMonitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建文件监控器失败: %w", err)
	}
	if accept == nil {
		accept = func(string) bool { return true }
	}

	return &FolderMonitor{
		watcher:      watcher,
		folderPath:   folderPath,
		accept:       accept,
		handler:      handler,
		debounceTime: debounceTime,
		pendingFiles: make(map[string]*time.Timer),
		stopChan:     make(chan struct{}),
	}, nil
}

// Start 开始监控文件夹
func (m *FolderMonitor) Start() error {
	if err := os.MkdirAll(m.folderPath, 0755); err != nil {
		return fmt.Errorf("创建文件夹失败: %w", err)
	}

	if err := m.watcher.Add(m.folderPath); err != nil {
		return fmt.Errorf("添加监控文件夹失败: %w", err)
	}

	go m.watchLoop()

	utils.Info("开始监控文件夹: %s", m.folderPath)
	return nil
}

// Stop 停止监控，可重复调用
func (m *FolderMonitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
		m.watcher.Close()

		m.mutex.Lock()
		for path, timer := range m.pendingFiles {
			timer.Stop()
			delete(m.pendingFiles, path)
		}
		m.mutex.Unlock()

		utils.Info("停止监控文件夹: %s", m.folderPath)
	})
}

func (m *FolderMonitor) watchLoop() {
	for {
		select {
		case <-m.stopChan:
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			m.handleFileEvent(event)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			utils.Error("监控文件夹时出错: %v", err)
		}
	}
}

func (m *FolderMonitor) handleFileEvent(event fsnotify.Event) {
	filePath := event.Name
	if !m.accept(filePath) {
		return
	}

	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		m.cancelPending(filePath)
		if m.handler != nil {
			m.handler.OnFileDeleted(filePath)
		}
		return
	}

	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	if info, err := os.Stat(filePath); err != nil || info.IsDir() {
		return
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	select {
	case <-m.stopChan:
		return
	default:
	}

	// 文件仍在写入时重新计时
	if timer, exists := m.pendingFiles[filePath]; exists {
		timer.Stop()
	}
	m.pendingFiles[filePath] = time.AfterFunc(m.debounceTime, func() {
		m.processFile(filePath)
	})

	utils.Debug("检测到文件变化: %s", filePath)
}

func (m *FolderMonitor) cancelPending(filePath string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if timer, exists := m.pendingFiles[filePath]; exists {
		timer.Stop()
		delete(m.pendingFiles, filePath)
	}
}

func (m *FolderMonitor) processFile(filePath string) {
	m.mutex.Lock()
	delete(m.pendingFiles, filePath)
	m.mutex.Unlock()

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return
	}

	utils.Info("准备处理文件: %s", filePath)
	if m.handler != nil {
		m.handler.OnFileCreated(filePath)
	}
}
