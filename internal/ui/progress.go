// Package ui 终端进度条与输出
package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// ProgressBar 进度条结构
type ProgressBar struct {
	Total      int       // 总步数
	Current    int       // 当前进度
	Prefix     string    // 前缀
	Suffix     string    // 后缀
	Width      int       // 进度条宽度
	FillChar   string    // 填充字符
	EmptyChar  string    // 空白字符
	StartTime  time.Time // 开始时间
	LastUpdate time.Time // 上次更新时间

	mu  sync.Mutex
	out io.Writer
}

func newProgressBar(out io.Writer, total int, prefix, suffix string) *ProgressBar {
	if total <= 0 {
		total = 1
	}
	return &ProgressBar{
		Total:      total,
		Prefix:     prefix,
		Suffix:     suffix,
		Width:      30,
		FillChar:   "█",
		EmptyChar:  "░",
		StartTime:  time.Now(),
		LastUpdate: time.Now(),
		out:        out,
	}
}

// Update 更新进度，负值被忽略，超出总数时截断
func (p *ProgressBar) Update(current int, suffix string) {
	if current < 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.Current = min(current, p.Total)
	if suffix != "" {
		p.Suffix = suffix
	}
	p.LastUpdate = time.Now()
	p.draw()
}

// Complete 完成进度条
func (p *ProgressBar) Complete(suffix string) {
	p.Update(p.Total, suffix)
	fmt.Fprintln(p.out)
}

// 绘制进度条
func (p *ProgressBar) draw() {
	percent := float64(p.Current) / float64(p.Total)

	elapsed := time.Since(p.StartTime)
	var remaining time.Duration
	if p.Current > 0 {
		remaining = time.Duration(float64(elapsed) / percent * (1 - percent))
	}

	line := fmt.Sprintf("\r%s [%s] %3.0f%% | %d/%d | %s<%s | %s",
		p.Prefix, p.bar(), percent*100, p.Current, p.Total,
		formatDuration(elapsed), formatDuration(remaining), p.Suffix)

	fmt.Fprint(p.out, color.CyanString(line))
}

func (p *ProgressBar) bar() string {
	filled := int(float64(p.Current) / float64(p.Total) * float64(p.Width))
	filled = max(0, min(filled, p.Width))
	return strings.Repeat(p.FillChar, filled) + strings.Repeat(p.EmptyChar, p.Width-filled)
}

// 格式化持续时间为 MM:SS 格式
func formatDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// String 返回进度条的字符串表示
func (p *ProgressBar) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	percent := float64(p.Current) / float64(p.Total) * 100
	return fmt.Sprintf("%s [%s] %3.0f%% | %d/%d", p.Prefix, p.bar(), percent, p.Current, p.Total)
}
