// Package controller 协调配置、流水线、界面与监控模式
package controller

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/ccp-p/emotion-clipper/internal/adapters"
	"github.com/ccp-p/emotion-clipper/internal/ui"
	"github.com/ccp-p/emotion-clipper/internal/watcher"
	"github.com/ccp-p/emotion-clipper/pkg/export"
	"github.com/ccp-p/emotion-clipper/pkg/highlight"
	"github.com/ccp-p/emotion-clipper/pkg/models"
	"github.com/ccp-p/emotion-clipper/pkg/pipeline"
	"github.com/ccp-p/emotion-clipper/pkg/scanner"
	"github.com/ccp-p/emotion-clipper/pkg/utils"
)

// Options 创建控制器的参数，非空字段覆盖配置文件
type Options struct {
	ConfigFile   string
	LogLevel     string
	LogFile      string
	OutputFolder string
	Range        highlight.TimeRange // 只保留该范围内的高光
}

// Stats 处理统计
type Stats struct {
	StartTime       time.Time
	TotalFiles      int
	SuccessfulFiles int
	FailedFiles     int
	CancelledFiles  int
	Highlights      int
}

// ProcessorController 处理器控制器，协调各个组件工作
type ProcessorController struct {
	Config *models.Config

	// UI组件
	ProgressManager *ui.ProgressManager
	Terminal        *ui.TerminalManager
	Out             io.Writer

	// 处理组件
	Detector  *pipeline.Detector
	Adapter   *adapters.DetectionAdapter
	Scanner   *scanner.MediaScanner
	Exporters []export.Exporter
	Errors    *utils.ErrorHandler
	Range     highlight.TimeRange

	// 上下文控制
	ctx        context.Context
	cancelFunc context.CancelFunc

	statsMu sync.Mutex
	stats   Stats

	// 资源管理
	cleanup []func() // 清理函数列表
	mu      sync.Mutex
}

// NewProcessorController 加载配置、初始化日志并组装流水线
func NewProcessorController(opts Options) (*ProcessorController, error) {
	config := models.NewDefaultConfig()
	if opts.ConfigFile != "" {
		if err := config.LoadFromFile(opts.ConfigFile); err != nil {
			return nil, fmt.Errorf("加载配置失败: %w", err)
		}
	}
	if err := config.Update(opts.overrides()); err != nil {
		return nil, err
	}

	if err := utils.InitLogger(config.LogLevel, config.LogFile); err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	pc, err := NewWithConfig(config, nil)
	if err != nil {
		return nil, err
	}
	pc.Range = opts.Range
	return pc, nil
}

// overrides 命令行参数对应的配置更新，键与配置文件一致
func (o Options) overrides() map[string]interface{} {
	updates := make(map[string]interface{})
	if o.LogLevel != "" {
		updates["log_level"] = o.LogLevel
	}
	if o.LogFile != "" {
		updates["log_file"] = o.LogFile
	}
	if o.OutputFolder != "" {
		updates["output_folder"] = o.OutputFolder
	}
	return updates
}

// NewWithConfig 使用已验证的配置创建控制器，detector 为 nil 时按配置组装
func NewWithConfig(config *models.Config, detector *pipeline.Detector) (*ProcessorController, error) {
	ctx, cancel := context.WithCancel(context.Background())

	pc := &ProcessorController{
		Config:          config,
		ProgressManager: ui.NewProgressManager(config.ShowProgress),
		Terminal:        ui.GetTerminalManager(),
		Out:             os.Stdout,
		Scanner:         scanner.NewMediaScanner(),
		Exporters:       export.ForConfig(config),
		Errors:          utils.NewErrorHandler(config.MaxRetries, config.RetryDelay),
		ctx:             ctx,
		cancelFunc:      cancel,
	}

	if detector == nil {
		var err error
		detector, err = pipeline.Build(config, pc.Errors, pc.ProgressManager)
		if err != nil {
			cancel()
			return nil, err
		}
	}
	pc.Detector = detector
	pc.Adapter = adapters.NewDetectionAdapter(pc.DetectFile, pc.Exporters)
	pc.Adapter.OnResult = pc.onResult

	if config.ShowProgress {
		utils.EnableTerminalProgress()
		pc.addCleanup(utils.DisableTerminalProgress)
	}

	pc.setupSignalHandlers()
	return pc, nil
}

// Context 返回控制器的上下文，收到中断信号后取消
func (pc *ProcessorController) Context() context.Context {
	return pc.ctx
}

// Cancel 取消所有进行中的处理
func (pc *ProcessorController) Cancel() {
	pc.cancelFunc()
}

// DetectFile 对单个文件执行检测，并把进度与实时文本渲染到终端
func (pc *ProcessorController) DetectFile(ctx context.Context, mediaPath string) (*models.DetectionResult, error) {
	progress := make(chan int, 16)
	live := make(chan string, 16)

	view := ui.NewDetectionView(pc.ProgressManager, pc.Terminal)
	id := "detect_" + utils.BaseNameWithoutExt(mediaPath)
	followed := view.Follow(id, "分析 "+filepath.Base(mediaPath), progress, live)

	result, err := pc.Detector.Run(ctx, mediaPath, pipeline.Events{Progress: progress, Live: live})

	// Run 返回后不会再有发送
	close(progress)
	close(live)
	<-followed

	return result, err
}

// ProcessMedia 批量检测并导出，files 为空时扫描媒体目录
func (pc *ProcessorController) ProcessMedia(files []string) ([]pipeline.BatchResult, error) {
	pc.statsMu.Lock()
	pc.stats.StartTime = time.Now()
	pc.statsMu.Unlock()

	if len(files) == 0 {
		scanned, err := pc.Scanner.ScanDirectory(pc.Config.MediaFolder)
		if err != nil {
			return nil, fmt.Errorf("扫描媒体目录失败: %w", err)
		}
		files = scanner.Paths(pc.Scanner.FilterNewFiles(scanned, pc.Adapter.Processed()))
	}
	if len(files) == 0 {
		utils.Info("没有需要处理的媒体文件")
		return nil, nil
	}

	runner := pipeline.RunnerFunc(func(ctx context.Context, mediaPath string, _ pipeline.Events) (*models.DetectionResult, error) {
		var result *models.DetectionResult
		err := pc.Errors.SafeExecute("detect_file", func() error {
			var err error
			result, err = pc.DetectFile(ctx, mediaPath)
			return err
		}, nil)
		if err != nil {
			return nil, err
		}
		pc.exportResult(result)
		return result, nil
	})

	processor := pipeline.NewBatchProcessor(runner, pc.Detector.Advisor(), pc.batchProgressCallback)
	results := processor.ProcessFiles(pc.ctx, files)
	pc.updateStats(results)
	return results, nil
}

// exportResult 导出结果并记录已处理文件
func (pc *ProcessorController) exportResult(result *models.DetectionResult) {
	if !pc.Range.IsZero() {
		before := len(result.Highlights)
		result.Highlights = pc.Range.Filter(result.Highlights)
		utils.Info("时间范围 %s 内保留 %d/%d 个高光", pc.Range, len(result.Highlights), before)
	}
	files, err := export.ExportAll(pc.Exporters, result)
	if err != nil {
		utils.Warn("部分导出失败: %v", err)
	}
	if !result.Cancelled {
		pc.Adapter.MarkProcessed(result.MediaPath)
	}
	pc.onResult(result, files)
}

func (pc *ProcessorController) onResult(result *models.DetectionResult, files []string) {
	ui.PrintResult(pc.Out, result)
	for _, f := range files {
		fmt.Fprintf(pc.Out, "输出文件: %s\n", f)
	}
}

func (pc *ProcessorController) batchProgressCallback(current, total int, result *pipeline.BatchResult) {
	name := filepath.Base(result.FilePath)
	if result.Success() {
		color.New(color.FgGreen).Fprintf(pc.Out, "[%d/%d] 处理成功: %s\n", current, total, name)
		fmt.Fprintf(pc.Out, "处理用时: %s\n", utils.FormatTimeDuration(result.ProcessTime.Seconds()))
		return
	}
	color.New(color.FgRed).Fprintf(pc.Out, "[%d/%d] 处理失败: %s - %v\n", current, total, name, result.Error)
}

// StartWatchMode 监控媒体目录，新文件到达后自动检测，直到收到中断信号
func (pc *ProcessorController) StartWatchMode() error {
	if err := utils.EnsureDirExists(pc.Config.MediaFolder); err != nil {
		return err
	}

	w, err := watcher.NewMediaWatcher(pc.Config.MediaFolder, pc.Adapter, watcher.DefaultDebounce)
	if err != nil {
		return err
	}
	if err := w.Start(pc.ctx); err != nil {
		return err
	}
	pc.addCleanup(w.Stop)

	// 已存在但尚未处理的文件也加入队列
	if existing, err := pc.Scanner.ScanDirectory(pc.Config.MediaFolder); err == nil {
		for _, f := range pc.Scanner.FilterNewFiles(existing, pc.Adapter.Processed()) {
			w.Enqueue(f.Path)
		}
	}

	utils.Info("监控已启动，按Ctrl+C退出...")
	pc.Terminal.PrintMsg("正在监控 %s，按Ctrl+C退出", pc.Config.MediaFolder)

	return pc.waitForTermination()
}

// Stats 返回处理统计的副本
func (pc *ProcessorController) Stats() Stats {
	pc.statsMu.Lock()
	defer pc.statsMu.Unlock()
	return pc.stats
}

// PrintStats 打印处理统计
func (pc *ProcessorController) PrintStats() {
	s := pc.Stats()
	if s.TotalFiles == 0 {
		return
	}
	fmt.Fprintln(pc.Out, color.CyanString("\n处理完成: 共 %d 个文件", s.TotalFiles))
	fmt.Fprintf(pc.Out, "成功: %d  失败: %d  取消: %d  高光: %d  总用时: %s\n",
		s.SuccessfulFiles, s.FailedFiles, s.CancelledFiles, s.Highlights,
		utils.FormatChineseTimeDuration(time.Since(s.StartTime).Seconds()))
	pc.Errors.PrintErrorStats()
}

// 添加清理函数
func (pc *ProcessorController) addCleanup(cleanup func()) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.cleanup = append(pc.cleanup, cleanup)
}

// Cleanup 逆序执行所有清理函数，可重复调用
func (pc *ProcessorController) Cleanup() {
	pc.mu.Lock()
	cleanup := pc.cleanup
	pc.cleanup = nil
	pc.mu.Unlock()

	for i := len(cleanup) - 1; i >= 0; i-- {
		cleanup[i]()
	}

	if pc.ProgressManager != nil {
		pc.ProgressManager.CloseAll("已完成")
	}
	pc.cancelFunc()
}

// 设置中断处理
func (pc *ProcessorController) setupSignalHandlers() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	pc.addCleanup(func() { signal.Stop(c) })

	go func() {
		select {
		case <-c:
			utils.Info("接收到中断信号，正在停止...")
			pc.Cancel()
		case <-pc.ctx.Done():
		}
	}()
}

// 等待终止信号
func (pc *ProcessorController) waitForTermination() error {
	<-pc.ctx.Done()
	return nil
}

// 统计处理结果
func (pc *ProcessorController) updateStats(results []pipeline.BatchResult) {
	pc.statsMu.Lock()
	defer pc.statsMu.Unlock()

	pc.stats.TotalFiles += len(results)
	for _, result := range results {
		switch {
		case !result.Success():
			pc.stats.FailedFiles++
		case result.Result.Cancelled:
			pc.stats.CancelledFiles++
		default:
			pc.stats.SuccessfulFiles++
		}
		if result.Result != nil {
			pc.stats.Highlights += len(result.Result.Highlights)
		}
	}
}
