package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ccp-p/emotion-clipper/internal/controller"
	"github.com/ccp-p/emotion-clipper/internal/review"
	"github.com/ccp-p/emotion-clipper/pkg/highlight"
	"github.com/ccp-p/emotion-clipper/pkg/models"
	"github.com/ccp-p/emotion-clipper/pkg/resource"
	"github.com/ccp-p/emotion-clipper/pkg/utils"
)

type rootFlags struct {
	configFile string
	logLevel   string
	logFile    string
	output     string
}

func (f *rootFlags) options() controller.Options {
	return controller.Options{
		ConfigFile:   f.configFile,
		LogLevel:     f.logLevel,
		LogFile:      f.logFile,
		OutputFolder: f.output,
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "clipper",
		Short:         "情绪高光检测工具",
		Long:          "对音视频做语音转录与情绪分类，找出多种情绪集中出现的高光片段",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "配置文件路径 (json 或 yaml)")
	pf.StringVar(&flags.logLevel, "log-level", "", "日志级别 (debug, info, warn, error)")
	pf.StringVar(&flags.logFile, "log-file", "", "日志文件路径")
	pf.StringVar(&flags.output, "output", "", "输出目录")

	root.AddCommand(
		newDetectCmd(flags),
		newWatchCmd(flags),
		newAdviseCmd(flags),
		newTranscribeCmd(flags),
		newServeCmd(flags),
	)
	return root
}

func newDetectCmd(flags *rootFlags) *cobra.Command {
	var (
		interactive bool
		from, to    string
	)

	cmd := &cobra.Command{
		Use:   "detect [媒体文件...]",
		Short: "检测媒体文件中的高光，未指定文件时处理媒体目录",
		RunE: func(cmd *cobra.Command, args []string) error {
			span, err := highlight.ParseTimeRange(from, to)
			if err != nil {
				return fmt.Errorf("无效的时间范围: %w", err)
			}
			opts := flags.options()
			opts.Range = span

			pc, err := controller.NewProcessorController(opts)
			if err != nil {
				return err
			}
			defer pc.Cleanup()

			printWelcome()
			results, err := pc.ProcessMedia(args)
			if err != nil {
				return err
			}
			pc.PrintStats()

			if !interactive {
				return nil
			}
			for _, r := range results {
				if !r.Success() || len(r.Result.Highlights) == 0 {
					continue
				}
				color.Cyan("\n审阅 %s", r.FilePath)
				kept := review.Run(cmd.InOrStdin(), cmd.OutOrStdout(), r.Result.Highlights)
				fmt.Fprintln(cmd.OutOrStdout(), review.Summary(kept))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&interactive, "review", false, "检测完成后逐个审阅高光")
	cmd.Flags().StringVar(&from, "from", "", "只保留该时间之后的高光 (HH:MM:SS、MM:SS 或秒)")
	cmd.Flags().StringVar(&to, "to", "", "只保留该时间之前的高光")
	return cmd
}

func newWatchCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "监控媒体目录，新文件到达后自动检测",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pc, err := controller.NewProcessorController(flags.options())
			if err != nil {
				return err
			}
			defer pc.Cleanup()

			printWelcome()
			return pc.StartWatchMode()
		},
	}
}

func newAdviseCmd(flags *rootFlags) *cobra.Command {
	var (
		showConfig bool
		saveConfig string
	)

	cmd := &cobra.Command{
		Use:   "advise",
		Short: "显示资源顾问对各类任务的建议",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config := models.NewDefaultConfig()
			if flags.configFile != "" {
				if err := config.LoadFromFile(flags.configFile); err != nil {
					return err
				}
			}
			level := config.LogLevel
			if flags.logLevel != "" {
				level = flags.logLevel
			}
			if err := utils.InitLogger(level, flags.logFile); err != nil {
				return err
			}

			probe := resource.NewHostProbe()
			printAdvice(cmd, probe, resource.NewAdvisor(probe, config.ResourceIntrospection))
			if showConfig {
				if err := config.PrintConfig(cmd.OutOrStdout()); err != nil {
					return err
				}
			}
			if saveConfig != "" {
				if err := config.SaveToFile(saveConfig); err != nil {
					return err
				}
				color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "配置已保存到 %s\n", saveConfig)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showConfig, "show-config", false, "同时输出生效的配置")
	cmd.Flags().StringVar(&saveConfig, "save-config", "", "把生效的配置写入文件 (json 或 yaml)")
	return cmd
}

func printAdvice(cmd *cobra.Command, probe *resource.HostProbe, advisor *resource.Advisor) {
	out := cmd.OutOrStdout()

	if !advisor.Enabled() {
		color.New(color.FgYellow).Fprintln(out, "资源探测已关闭，使用默认配置")
	} else {
		cores, _ := probe.PhysicalCores()
		mem, _ := probe.AvailableMemoryGB()
		load, _ := probe.LoadPercent()
		fmt.Fprintf(out, "物理核心: %d  可用内存: %.1fGB  CPU占用: %.0f%%\n", cores, mem, load)
	}

	for _, task := range []resource.TaskType{resource.TaskTranscription, resource.TaskEmotion} {
		batch, workers := advisor.Recommend(task)
		fmt.Fprintf(out, "%-14s 批大小=%-3d 工作协程=%d\n", task, batch, workers)
	}
}

func printWelcome() {
	fmt.Println()
	color.Cyan("================================")
	color.Cyan("     情绪高光检测 - clipper     ")
	color.Cyan("================================")
	fmt.Println()
}
