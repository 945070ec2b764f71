package resource

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

const bytesPerGB = 1024 * 1024 * 1024

// HostProbe 基于 gopsutil 的系统资源探测
type HostProbe struct {
	Timeout time.Duration
}

// NewHostProbe 创建主机探测器
func NewHostProbe() *HostProbe {
	return &HostProbe{Timeout: 2 * time.Second}
}

func (p *HostProbe) context() (context.Context, context.CancelFunc) {
	if p.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), p.Timeout)
}

// PhysicalCores 返回物理核心数
func (p *HostProbe) PhysicalCores() (int, error) {
	ctx, cancel := p.context()
	defer cancel()
	return cpu.CountsWithContext(ctx, false)
}

// AvailableMemoryGB 返回可用内存（GB）
func (p *HostProbe) AvailableMemoryGB() (float64, error) {
	ctx, cancel := p.context()
	defer cancel()

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return float64(vm.Available) / bytesPerGB, nil
}

// LoadPercent 返回当前CPU总体占用率，仅用于展示
func (p *HostProbe) LoadPercent() (float64, error) {
	ctx, cancel := p.context()
	defer cancel()

	percents, err := cpu.PercentWithContext(ctx, 200*time.Millisecond, false)
	if err != nil || len(percents) == 0 {
		return 0, err
	}
	return percents[0], nil
}
