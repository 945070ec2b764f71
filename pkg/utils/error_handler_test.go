package utils

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewErrorHandler(t *testing.T) {
	handler := NewErrorHandler(3, 0.1)
	assert.Equal(t, 3, handler.MaxRetries)
	assert.Equal(t, 0.1, handler.RetryDelay)
	assert.Empty(t, handler.GetErrorStats())

	// 重试次数至少为1
	assert.Equal(t, 1, NewErrorHandler(0, 0.1).MaxRetries)
}

func TestRetry(t *testing.T) {
	InitLogger(LogLevelNormal, "")
	ctx := context.Background()

	handler := NewErrorHandler(3, 0.01) // 使用很小的延迟以加速测试

	callCount := 0
	err := handler.RetryContext(ctx, "test_success", func() error {
		callCount++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, callCount)

	callCount = 0
	err = handler.RetryContext(ctx, "test_retry_success", func() error {
		callCount++
		if callCount < 2 {
			return errors.New("预期错误")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, callCount)

	callCount = 0
	testErr := errors.New("总是失败")
	err = handler.RetryContext(ctx, "test_always_fail", func() error {
		callCount++
		return testErr
	})
	assert.Error(t, err)
	assert.ErrorIs(t, err, testErr)
	assert.Equal(t, handler.MaxRetries, callCount)

	stats := handler.GetErrorStats()
	assert.Equal(t, 2, len(stats))
	assert.Equal(t, 1, stats["test_retry_success"]["预期错误"])
	assert.Equal(t, handler.MaxRetries, stats["test_always_fail"]["总是失败"])
}

func TestRetryContextCancelled(t *testing.T) {
	handler := NewErrorHandler(5, 10) // 长延迟，依赖取消提前返回
	ctx, cancel := context.WithCancel(context.Background())

	callCount := 0
	err := handler.RetryContext(ctx, "test_cancel", func() error {
		callCount++
		cancel()
		return errors.New("失败")
	})

	assert.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, callCount)
}

func TestSafeExecute(t *testing.T) {
	InitLogger(LogLevelNormal, "")

	handler := NewErrorHandler(3, 0.01)

	executed := false
	cleaned := false
	err := handler.SafeExecute("test_safe_success", func() error {
		executed = true
		return nil
	}, func() {
		cleaned = true
	})
	assert.NoError(t, err)
	assert.True(t, executed)
	assert.False(t, cleaned) // 成功执行不应该调用清理函数

	executed = false
	cleaned = false
	err = handler.SafeExecute("test_safe_fail", func() error {
		executed = true
		return errors.New("预期错误")
	}, func() {
		cleaned = true
	})
	assert.Error(t, err)
	assert.True(t, executed)
	assert.True(t, cleaned)

	var clipperErr *ClipperError
	assert.ErrorAs(t, err, &clipperErr)
	assert.Equal(t, 1, handler.GetErrorStats()["test_safe_fail"]["预期错误"])
}

func TestErrorStatsConcurrent(t *testing.T) {
	handler := NewErrorHandler(3, 0.01)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				handler.RecordError("op1", errors.New("err1"))
			} else {
				handler.RecordError("op2", errors.New("err2"))
			}
		}(i)
	}
	wg.Wait()

	handler.RecordError("op1", nil) // nil 错误不计数

	stats := handler.GetErrorStats()
	assert.Equal(t, 2, len(stats))
	assert.Equal(t, 25, stats["op1"]["err1"])
	assert.Equal(t, 25, handler.ErrorCount("op2"))

	// 返回的是副本
	stats["op1"]["err1"] = 0
	assert.Equal(t, 25, handler.ErrorCount("op1"))

	handler.PrintErrorStats()
}
