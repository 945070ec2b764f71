package watcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ccp-p/emotion-clipper/internal/adapters"
	"github.com/ccp-p/emotion-clipper/pkg/scanner"
	"github.com/ccp-p/emotion-clipper/pkg/utils"
)

// DefaultDebounce 文件写入完成的判定时间
const DefaultDebounce = 5 * time.Second

// MediaWatcher 监控媒体文件夹，新文件按到达顺序逐个交给处理器
type MediaWatcher struct {
	monitor   *FolderMonitor
	processor adapters.MediaProcessor
	queue     chan string

	mu      sync.Mutex
	queued  map[string]bool
	stopped bool
	wg      sync.WaitGroup
}

// NewMediaWatcher 创建媒体文件监控器
func NewMediaWatcher(folder string, processor adapters.MediaProcessor, debounce time.Duration) (*MediaWatcher, error) {
	w := &MediaWatcher{
		processor: processor,
		queue:     make(chan string, 64),
		queued:    make(map[string]bool),
	}

	monitor, err := NewFolderMonitor(folder, scanner.IsMediaFile, w, debounce)
	if err != nil {
		return nil, err
	}
	w.monitor = monitor
	return w, nil
}

// Start 启动监控与处理协程，ctx 取消后处理协程退出
func (w *MediaWatcher) Start(ctx context.Context) error {
	if err := w.monitor.Start(); err != nil {
		return err
	}

	w.wg.Add(1)
	go w.processLoop(ctx)

	utils.Info("媒体文件监控已启动")
	return nil
}

// Stop 停止监控并等待当前文件处理结束
func (w *MediaWatcher) Stop() {
	w.monitor.Stop()

	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.queue)
	}
	w.mu.Unlock()

	w.wg.Wait()
	utils.Info("媒体文件监控已停止")
}

// Enqueue 把文件加入处理队列，已在队列中的文件被忽略
func (w *MediaWatcher) Enqueue(filePath string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped || w.queued[filePath] {
		return
	}
	select {
	case w.queue <- filePath:
		w.queued[filePath] = true
	default:
		utils.Warn("处理队列已满，丢弃文件: %s", filePath)
	}
}

// OnFileCreated 实现 FileEventHandler
func (w *MediaWatcher) OnFileCreated(filePath string) {
	if w.processor.IsProcessed(filePath) {
		return
	}
	w.Enqueue(filePath)
}

// OnFileDeleted 实现 FileEventHandler
func (w *MediaWatcher) OnFileDeleted(filePath string) {
	w.processor.Forget(filePath)
}

func (w *MediaWatcher) processLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case filePath, ok := <-w.queue:
			if !ok {
				return
			}

			w.mu.Lock()
			delete(w.queued, filePath)
			w.mu.Unlock()

			if err := w.processor.ProcessFile(ctx, filePath); err != nil {
				if errors.Is(err, context.Canceled) {
					utils.Warn("%v", err)
					continue
				}
				utils.Error("处理文件失败 %s: %v", filePath, err)
			}
		}
	}
}
