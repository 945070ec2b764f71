// Package dispatch 将文本块分发给有界工作池进行情绪分类
package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ccp-p/emotion-clipper/pkg/models"
	"github.com/ccp-p/emotion-clipper/pkg/utils"
)

// LivePrefix 实时通知中每个峰值的前缀
const LivePrefix = "发现潜在高光: "

const minMonitorInterval = 500 * time.Millisecond

// SpikeDetector 单个文本块的峰值检测，由 emotion.Detector 实现
type SpikeDetector interface {
	Detect(ctx context.Context, chunk models.Chunk) (models.SpikeCandidate, bool)
}

// Options 调度参数
type Options struct {
	MaxWorkers      int           // 工作协程数，至少为1
	PickupTimeout   time.Duration // 取任务的空闲超时
	MonitorInterval time.Duration // 监控周期，不小于500ms
	ReclaimEvery    time.Duration // 主动归还内存的周期，0 表示不归还
}

// DefaultOptions 返回默认调度参数
func DefaultOptions() Options {
	return Options{
		MaxWorkers:      2,
		PickupTimeout:   time.Second,
		MonitorInterval: minMonitorInterval,
		ReclaimEvery:    5 * time.Second,
	}
}

// Events 调用方持有的通知通道，发送均为非阻塞，消费不及时会丢弃中间通知。
// 调度器不会关闭这些通道。
type Events struct {
	Progress chan<- int    // 0-100，单次运行内单调不减
	Live     chan<- string // 批量的实时文本
}

// Report 一次调度的结果
type Report struct {
	Spikes    []models.SpikeCandidate // 按 ClipStart 升序
	Total     int
	Completed int
	Cancelled bool
	Elapsed   time.Duration
}

// Dispatcher 并发调度器
type Dispatcher struct {
	detector SpikeDetector
	opts     Options
}

// New 创建调度器
func New(detector SpikeDetector, opts Options) *Dispatcher {
	def := DefaultOptions()
	if opts.MaxWorkers < 1 {
		opts.MaxWorkers = 1
	}
	if opts.PickupTimeout <= 0 {
		opts.PickupTimeout = def.PickupTimeout
	}
	if opts.MonitorInterval < minMonitorInterval {
		opts.MonitorInterval = minMonitorInterval
	}
	if opts.ReclaimEvery < 0 {
		opts.ReclaimEvery = 0
	}
	return &Dispatcher{detector: detector, opts: opts}
}

// Options 返回生效的调度参数
func (d *Dispatcher) Options() Options {
	return d.opts
}

// Run 分类所有文本块并返回检测到的峰值。
// 取消是协作式的：工作协程完成手头的文本块后停止，已收集的峰值照常返回。
func (d *Dispatcher) Run(ctx context.Context, chunks []models.Chunk, events Events) Report {
	start := time.Now()
	total := len(chunks)

	work := make(chan models.Chunk, total)
	for _, c := range chunks {
		work <- c
	}
	close(work)

	results := make(chan models.SpikeCandidate, total)
	var completed atomic.Int64

	workers := d.opts.MaxWorkers
	if total > 0 && workers > total {
		workers = total
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			d.worker(ctx, id, work, results, &completed)
		}(i)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	m := &monitor{
		total:     total,
		completed: &completed,
		events:    events,
		lastPct:   -1,
	}
	spikes := m.run(results, d.opts)

	sort.SliceStable(spikes, func(i, j int) bool {
		return spikes[i].ClipStart < spikes[j].ClipStart
	})

	done := int(completed.Load())
	report := Report{
		Spikes:    spikes,
		Total:     total,
		Completed: done,
		Cancelled: ctx.Err() != nil && done < total,
		Elapsed:   time.Since(start),
	}

	m.sendFinalProgress(ctx, d.opts.PickupTimeout)

	utils.WithFields(logrus.Fields{
		"chunks":    total,
		"completed": done,
		"spikes":    len(spikes),
		"workers":   workers,
		"cancelled": report.Cancelled,
	}).Debugf("情绪分类调度完成，用时 %v", report.Elapsed)

	return report
}

func (d *Dispatcher) worker(ctx context.Context, id int, work <-chan models.Chunk, results chan<- models.SpikeCandidate, completed *atomic.Int64) {
	// 正在进行的分类不受取消影响
	callCtx := context.WithoutCancel(ctx)
	idle := time.NewTimer(d.opts.PickupTimeout)
	defer idle.Stop()

	for {
		if ctx.Err() != nil {
			utils.Debug("工作协程 %d 收到取消信号", id)
			return
		}

		if !idle.Stop() {
			select {
			case <-idle.C:
			default:
			}
		}
		idle.Reset(d.opts.PickupTimeout)

		select {
		case <-ctx.Done():
			return
		case <-idle.C:
			return
		case chunk, ok := <-work:
			if !ok {
				return
			}
			if spike, found := d.detector.Detect(callCtx, chunk); found {
				// results 容量等于文本块总数，不会阻塞
				results <- spike
			}
			completed.Add(1)
		}
	}
}

// monitor 汇总结果并发出进度与实时通知，自身从不做分类
type monitor struct {
	total     int
	completed *atomic.Int64
	events    Events
	lastPct   int
	pending   []string
}

func (m *monitor) run(results <-chan models.SpikeCandidate, opts Options) []models.SpikeCandidate {
	var spikes []models.SpikeCandidate

	ticker := time.NewTicker(opts.MonitorInterval)
	defer ticker.Stop()
	lastReclaim := time.Now()

	for {
		select {
		case spike, ok := <-results:
			if !ok {
				m.emitProgress()
				m.flushLive()
				return spikes
			}
			spikes = append(spikes, spike)
			m.pending = append(m.pending, LivePrefix+spike.Text)
		case now := <-ticker.C:
			m.emitProgress()
			m.flushLive()
			if opts.ReclaimEvery > 0 && now.Sub(lastReclaim) >= opts.ReclaimEvery {
				debug.FreeOSMemory()
				lastReclaim = now
			}
		}
	}
}

func (m *monitor) percent() int {
	if m.total == 0 {
		return 100
	}
	pct := int(100 * m.completed.Load() / int64(m.total))
	if pct > 100 {
		pct = 100
	}
	return pct
}

func (m *monitor) emitProgress() {
	pct := m.percent()
	if pct <= m.lastPct || m.events.Progress == nil {
		return
	}
	select {
	case m.events.Progress <- pct:
		m.lastPct = pct
	default:
	}
}

func (m *monitor) flushLive() {
	if len(m.pending) == 0 {
		return
	}
	text := strings.Join(m.pending, "\n")
	m.pending = m.pending[:0]
	if m.events.Live == nil {
		return
	}
	select {
	case m.events.Live <- text:
	default:
		utils.Debug("实时通知通道已满，丢弃 %d 字节", len(text))
	}
}

// sendFinalProgress 保证最终进度送达，最多等待 wait
func (m *monitor) sendFinalProgress(ctx context.Context, wait time.Duration) {
	pct := m.percent()
	if pct <= m.lastPct || m.events.Progress == nil {
		return
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case m.events.Progress <- pct:
		m.lastPct = pct
	case <-timer.C:
		utils.Debug("最终进度 %d%% 未被消费", pct)
	case <-ctx.Done():
		// 已取消时只尝试一次
		select {
		case m.events.Progress <- pct:
			m.lastPct = pct
		default:
		}
	}
}

func (r Report) String() string {
	return fmt.Sprintf("%d/%d 个文本块, %d 个峰值, 取消=%v", r.Completed, r.Total, len(r.Spikes), r.Cancelled)
}
