package ui

import "strings"

// DetectionView 将检测过程中的进度与实时文本渲染到终端
type DetectionView struct {
	Progress *ProgressManager
	Terminal *TerminalManager
}

// NewDetectionView 创建检测视图
func NewDetectionView(pm *ProgressManager, tm *TerminalManager) *DetectionView {
	return &DetectionView{Progress: pm, Terminal: tm}
}

// Follow 消费进度与实时通道，直到两者都被关闭。
// 返回的通道在消费结束后关闭。
func (v *DetectionView) Follow(id, prefix string, progress <-chan int, live <-chan string) <-chan struct{} {
	done := make(chan struct{})
	if v.Progress != nil {
		v.Progress.CreateProgressBar(id, 100, prefix, "情绪分析中")
	}

	go func() {
		defer close(done)
		for progress != nil || live != nil {
			select {
			case pct, ok := <-progress:
				if !ok {
					progress = nil
					continue
				}
				if v.Progress != nil {
					v.Progress.UpdateProgressBar(id, pct, "")
				}
			case text, ok := <-live:
				if !ok {
					live = nil
					continue
				}
				if v.Terminal != nil {
					for _, line := range strings.Split(text, "\n") {
						v.Terminal.PrintMsg(line)
					}
				}
			}
		}
		if v.Progress != nil {
			v.Progress.CompleteProgressBar(id, "完成")
		}
	}()

	return done
}
