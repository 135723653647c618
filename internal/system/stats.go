package system

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Stats is the host and process snapshot reported by the health endpoint
type Stats struct {
	CPU       CPUStats     `json:"cpu"`
	Memory    MemoryStats  `json:"memory"`
	Disk      DiskStats    `json:"disk"`
	Process   ProcessStats `json:"process"`
	Timestamp time.Time    `json:"timestamp"`
}

// CPUStats represents CPU usage statistics
type CPUStats struct {
	UsagePercent float64 `json:"usage_percent"`
	Cores        int     `json:"cores"`
}

// MemoryStats represents memory usage statistics
type MemoryStats struct {
	Total        uint64  `json:"total_bytes"`
	Used         uint64  `json:"used_bytes"`
	Available    uint64  `json:"available_bytes"`
	UsagePercent float64 `json:"usage_percent"`
}

// DiskStats represents disk usage statistics
type DiskStats struct {
	Total        uint64  `json:"total_bytes"`
	Used         uint64  `json:"used_bytes"`
	Free         uint64  `json:"free_bytes"`
	UsagePercent float64 `json:"usage_percent"`
	Path         string  `json:"path"`
}

// ProcessStats describes the running server process
type ProcessStats struct {
	PID           int32   `json:"pid"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	ResidentBytes uint64  `json:"resident_bytes"`
	Goroutines    int     `json:"goroutines"`
}

// Collector collects host and process statistics
type Collector struct {
	startedAt time.Time
	diskPath  string
	logger    *slog.Logger
}

// NewCollector creates a collector. Uptime is measured from startedAt and
// disk usage is reported for diskPath.
func NewCollector(startedAt time.Time, diskPath string, logger *slog.Logger) *Collector {
	if diskPath == "" {
		diskPath = "/"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{startedAt: startedAt, diskPath: diskPath, logger: logger}
}

// Collect gathers all statistics. Individual readings that fail are logged
// and reported as zero values.
func (c *Collector) Collect(ctx context.Context) *Stats {
	var (
		cpuStats  CPUStats
		memStats  MemoryStats
		diskStats DiskStats
		procStats ProcessStats
	)

	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		cpuStats = c.getCPUStats(ctx)
	}()

	go func() {
		defer wg.Done()
		memStats = c.getMemoryStats(ctx)
	}()

	go func() {
		defer wg.Done()
		diskStats = c.getDiskStats(ctx)
	}()

	go func() {
		defer wg.Done()
		procStats = c.getProcessStats(ctx)
	}()

	wg.Wait()

	return &Stats{
		CPU:       cpuStats,
		Memory:    memStats,
		Disk:      diskStats,
		Process:   procStats,
		Timestamp: time.Now(),
	}
}

func (c *Collector) getCPUStats(ctx context.Context) CPUStats {
	cores, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		c.logger.Warn("failed to get CPU count", "error", err)
		cores = 1
	}

	// Zero interval compares against the previous call instead of blocking.
	percentages, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		c.logger.Warn("failed to get CPU usage", "error", err)
		return CPUStats{Cores: cores}
	}

	usage := 0.0
	if len(percentages) > 0 {
		usage = percentages[0]
	}
	return CPUStats{UsagePercent: usage, Cores: cores}
}

func (c *Collector) getMemoryStats(ctx context.Context) MemoryStats {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		c.logger.Warn("failed to get memory stats", "error", err)
		return MemoryStats{}
	}
	return MemoryStats{
		Total:        vm.Total,
		Used:         vm.Used,
		Available:    vm.Available,
		UsagePercent: vm.UsedPercent,
	}
}

func (c *Collector) getDiskStats(ctx context.Context) DiskStats {
	usage, err := disk.UsageWithContext(ctx, c.diskPath)
	if err != nil {
		c.logger.Warn("failed to get disk stats", "path", c.diskPath, "error", err)
		return DiskStats{Path: c.diskPath}
	}
	return DiskStats{
		Total:        usage.Total,
		Used:         usage.Used,
		Free:         usage.Free,
		UsagePercent: usage.UsedPercent,
		Path:         c.diskPath,
	}
}

func (c *Collector) getProcessStats(ctx context.Context) ProcessStats {
	pid := int32(os.Getpid())
	stats := ProcessStats{
		PID:           pid,
		UptimeSeconds: time.Since(c.startedAt).Seconds(),
		Goroutines:    runtime.NumGoroutine(),
	}

	proc, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		c.logger.Warn("failed to open process", "pid", pid, "error", err)
		return stats
	}
	memInfo, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		c.logger.Warn("failed to get process memory", "pid", pid, "error", err)
		return stats
	}
	stats.ResidentBytes = memInfo.RSS
	return stats
}
