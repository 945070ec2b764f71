package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccp-p/emotion-clipper/pkg/asr"
	"github.com/ccp-p/emotion-clipper/pkg/models"
	"github.com/ccp-p/emotion-clipper/pkg/pipeline"
	"github.com/ccp-p/emotion-clipper/pkg/utils"
)

func newTranscribeCmd(flags *rootFlags) *cobra.Command {
	var (
		service string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "transcribe <媒体文件>",
		Short: "只做语音转录，打印分段结果与服务统计",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config := models.NewDefaultConfig()
			if flags.configFile != "" {
				if err := config.LoadFromFile(flags.configFile); err != nil {
					return err
				}
			}
			if flags.logLevel != "" {
				config.LogLevel = flags.logLevel
			}
			if err := utils.InitLogger(config.LogLevel, flags.logFile); err != nil {
				return err
			}
			if service != "" {
				config.ASRService = service
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			selector := pipeline.NewTranscriber(config)
			start := time.Now()
			segments, err := selector.Transcribe(ctx, args[0], func(percent int, message string) {
				utils.Info("进度 [%d%%] %s", percent, message)
			})
			if err != nil {
				return fmt.Errorf("识别失败: %w", err)
			}
			utils.Info("识别完成，耗时 %.2f 秒", time.Since(start).Seconds())

			out := cmd.OutOrStdout()
			printSegments(out, segments)
			printServiceStats(out, selector)
			return nil
		},
	}
	cmd.Flags().StringVar(&service, "service", "", "ASR服务 (http, file, kuaishou, auto)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "识别超时时间")
	return cmd
}

func printSegments(out io.Writer, segments []models.TranscriptSegment) {
	if len(segments) == 0 {
		fmt.Fprintln(out, "未识别出任何内容")
		return
	}
	fmt.Fprintf(out, "识别结果 (%d 段):\n", len(segments))
	for i, seg := range segments {
		fmt.Fprintf(out, "[%02d] %s-%s: %s\n", i+1, utils.FormatTime(seg.Start), utils.FormatTime(seg.End), seg.Text)
	}
}

func printServiceStats(out io.Writer, selector *asr.Selector) {
	stats := selector.GetStats()
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(out, "ASR服务统计信息:")
	for _, name := range names {
		stat := stats[name]
		fmt.Fprintf(out, "%s: 调用次数=%v, 成功率=%v, 可用=%v\n",
			name, stat["count"], stat["success_rate"], stat["available"])
	}
}
