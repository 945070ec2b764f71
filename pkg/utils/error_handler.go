package utils

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ClipperError 是本工具错误的基础类型
type ClipperError struct {
	Message string
	Cause   error
}

// Error 实现error接口
func (e *ClipperError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause.Error())
	}
	return e.Message
}

// Unwrap 支持error chain
func (e *ClipperError) Unwrap() error {
	return e.Cause
}

// NewError 创建一个新的ClipperError
func NewError(message string, cause error) error {
	return &ClipperError{
		Message: message,
		Cause:   cause,
	}
}

// ErrorHandler 处理错误和重试，可被多个工作协程共享
type ErrorHandler struct {
	MaxRetries int
	RetryDelay float64

	mu         sync.Mutex
	errorStats map[string]map[string]int // 操作 -> 错误信息 -> 计数
}

// NewErrorHandler 创建新的错误处理器
func NewErrorHandler(maxRetries int, retryDelay float64) *ErrorHandler {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &ErrorHandler{
		MaxRetries: maxRetries,
		RetryDelay: retryDelay,
		errorStats: make(map[string]map[string]int),
	}
}

// RetryContext 执行函数并在失败时重试，等待重试期间可被 ctx 取消
func (h *ErrorHandler) RetryContext(ctx context.Context, operation string, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < h.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		h.RecordError(operation, err)

		if attempt < h.MaxRetries-1 {
			delay := h.RetryDelay * float64(attempt+1)
			Warn("操作 %s 失败 (尝试 %d/%d): %s", operation, attempt+1, h.MaxRetries, err)
			Debug("等待 %.1f 秒后重试...", delay)

			select {
			case <-ctx.Done():
				return NewError(fmt.Sprintf("操作 %s 已取消", operation), ctx.Err())
			case <-time.After(time.Duration(delay * float64(time.Second))):
			}
		}
	}

	return NewError(fmt.Sprintf("操作 %s 重试 %d 次后仍然失败", operation, h.MaxRetries), lastErr)
}

// SafeExecute 安全地执行函数，并在失败时进行清理
func (h *ErrorHandler) SafeExecute(operation string, fn func() error, cleanup func()) error {
	err := fn()
	if err != nil {
		h.RecordError(operation, err)

		if cleanup != nil {
			Info("执行清理操作...")
			cleanup()
		}

		return NewError(fmt.Sprintf("操作 %s 失败", operation), err)
	}
	return nil
}

// RecordError 记录一次错误
func (h *ErrorHandler) RecordError(operation string, err error) {
	if err == nil {
		return
	}
	h.updateErrorStats(operation, err.Error())
}

func (h *ErrorHandler) updateErrorStats(operation string, errMsg string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.errorStats[operation] == nil {
		h.errorStats[operation] = make(map[string]int)
	}
	h.errorStats[operation][errMsg]++
}

// GetErrorStats 获取错误统计信息的副本
func (h *ErrorHandler) GetErrorStats() map[string]map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()

	stats := make(map[string]map[string]int, len(h.errorStats))
	for op, errs := range h.errorStats {
		inner := make(map[string]int, len(errs))
		for msg, n := range errs {
			inner[msg] = n
		}
		stats[op] = inner
	}
	return stats
}

// ErrorCount 返回某个操作累计的错误次数
func (h *ErrorHandler) ErrorCount(operation string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	total := 0
	for _, n := range h.errorStats[operation] {
		total += n
	}
	return total
}

// PrintErrorStats 打印错误统计信息
func (h *ErrorHandler) PrintErrorStats() {
	stats := h.GetErrorStats()
	if len(stats) == 0 {
		Info("没有错误记录")
		return
	}

	Info("\n错误统计:")
	for operation, errors := range stats {
		Info("\n操作: %s", operation)
		for errMsg, count := range errors {
			Info("  - %s: %d次", errMsg, count)
		}
	}
}
