package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/ccp-p/emotion-clipper/pkg/models"
	"github.com/ccp-p/emotion-clipper/pkg/utils"
)

// PrintHighlight 打印单个高光
func PrintHighlight(w io.Writer, index, total int, h models.Highlight) {
	header := color.New(color.FgYellow, color.Bold).SprintfFunc()
	fmt.Fprintln(w, header("高光 %d/%d  %s - %s (%.1f秒)",
		index, total, utils.FormatTime(h.Start), utils.FormatTime(h.End), h.Duration()))
	fmt.Fprintf(w, "  %s %s\n", color.MagentaString("[%s]", h.EmotionLabel), h.Text)
}

// PrintResult 打印一次检测的结果汇总
func PrintResult(w io.Writer, result *models.DetectionResult) {
	title := color.New(color.FgGreen, color.Bold).SprintFunc()
	fmt.Fprintln(w, title(fmt.Sprintf("\n=== %s ===", result.MediaPath)))

	if result.Cancelled {
		fmt.Fprintln(w, color.RedString("检测已取消，以下为部分结果"))
	}
	fmt.Fprintf(w, "文本块: %d/%d  峰值: %d  用时: %s\n",
		result.Processed, result.ChunkCount, result.SpikeCount,
		utils.FormatTimeDuration(result.Duration.Seconds()))

	if len(result.Highlights) == 0 {
		fmt.Fprintln(w, color.HiBlackString("未检测到高光"))
		return
	}
	for i, h := range result.Highlights {
		PrintHighlight(w, i+1, len(result.Highlights), h)
	}
}
