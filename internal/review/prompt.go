package review

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/ccp-p/emotion-clipper/internal/ui"
	"github.com/ccp-p/emotion-clipper/pkg/models"
)

const helpText = "命令: n 下一个, p 上一个, r 剔除当前, <序号> 跳转, q 结束"

// Run 在终端中交互审阅高光，读到 q 或输入结束时返回保留下来的高光
func Run(in io.Reader, out io.Writer, highlights []models.Highlight) []models.Highlight {
	s := NewSession(highlights)
	if s.Len() == 0 {
		fmt.Fprintln(out, s.Status())
		return s.Highlights()
	}

	fmt.Fprintln(out, s.Summary())
	fmt.Fprintln(out, helpText)
	show(out, s, s.Next)

	prompt := color.New(color.FgCyan).SprintFunc()
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, prompt("> "))
		if !scanner.Scan() {
			break
		}

		cmd := strings.ToLower(strings.TrimSpace(scanner.Text()))
		switch cmd {
		case "":
			continue
		case "q", "quit":
			fmt.Fprintln(out, s.Summary())
			return s.Highlights()
		case "n", "next":
			show(out, s, s.Next)
		case "p", "prev":
			show(out, s, s.Previous)
		case "r", "reject":
			removed, ok := s.Reject()
			if !ok {
				fmt.Fprintln(out, s.Status())
				continue
			}
			fmt.Fprintln(out, color.RedString("已剔除 %s - %s", formatRange(removed), removed.EmotionLabel))
			if s.Len() == 0 {
				fmt.Fprintln(out, s.Status())
				return s.Highlights()
			}
			show(out, s, s.Current)
		default:
			n, err := strconv.Atoi(cmd)
			if err != nil {
				fmt.Fprintln(out, helpText)
				continue
			}
			show(out, s, func() (models.Highlight, bool) { return s.Select(n) })
		}
	}

	fmt.Fprintln(out, s.Summary())
	return s.Highlights()
}

func show(out io.Writer, s *Session, move func() (models.Highlight, bool)) {
	h, ok := move()
	if !ok {
		fmt.Fprintln(out, color.YellowString("没有这个高光"))
		return
	}
	ui.PrintHighlight(out, s.Index()+1, s.Len(), h)
}

func formatRange(h models.Highlight) string {
	return fmt.Sprintf("%.1fs-%.1fs", h.Start, h.End)
}
