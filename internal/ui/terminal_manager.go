package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// TerminalManager 管理终端输出，确保进度条和消息不会混乱
type TerminalManager struct {
	mu  sync.Mutex
	out io.Writer
}

var (
	// 全局终端管理器实例
	globalTerminalManager *TerminalManager
	once                  sync.Once
)

// GetTerminalManager 获取全局终端管理器实例
func GetTerminalManager() *TerminalManager {
	once.Do(func() {
		globalTerminalManager = NewTerminalManager(os.Stdout)
	})
	return globalTerminalManager
}

// NewTerminalManager 创建输出到指定 writer 的终端管理器
func NewTerminalManager(out io.Writer) *TerminalManager {
	return &TerminalManager{out: out}
}

// PrintMsg 清除当前行后打印一条消息
func (tm *TerminalManager) PrintMsg(format string, args ...interface{}) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	fmt.Fprint(tm.out, "\033[2K\r")
	if len(args) > 0 {
		fmt.Fprintf(tm.out, format+"\n", args...)
	} else {
		// 没有参数时直接打印，避免文本中的%被解析
		fmt.Fprintln(tm.out, format)
	}
}
