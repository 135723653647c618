package system

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestCollector_Collect(t *testing.T) {
	startedAt := time.Now().Add(-90 * time.Second)
	collector := NewCollector(startedAt, t.TempDir(), nil)

	stats := collector.Collect(context.Background())

	if stats.CPU.Cores < 1 {
		t.Errorf("expected at least one core, got %d", stats.CPU.Cores)
	}
	if stats.Process.PID != int32(os.Getpid()) {
		t.Errorf("expected pid %d, got %d", os.Getpid(), stats.Process.PID)
	}
	if stats.Process.UptimeSeconds < 90 {
		t.Errorf("expected uptime measured from start, got %f", stats.Process.UptimeSeconds)
	}
	if stats.Process.Goroutines < 1 {
		t.Errorf("expected goroutine count, got %d", stats.Process.Goroutines)
	}
	if stats.Timestamp.IsZero() {
		t.Error("expected timestamp")
	}
}

func TestCollector_MissingDiskPath(t *testing.T) {
	collector := NewCollector(time.Now(), "/does/not/exist/anywhere", nil)

	stats := collector.Collect(context.Background())

	if stats.Disk.Path != "/does/not/exist/anywhere" {
		t.Errorf("expected path echoed, got %q", stats.Disk.Path)
	}
	if stats.Disk.Total != 0 {
		t.Errorf("expected zero usage for missing path, got %d", stats.Disk.Total)
	}
}

func TestNewCollector_Defaults(t *testing.T) {
	collector := NewCollector(time.Now(), "", nil)

	if collector.diskPath != "/" {
		t.Errorf("expected root disk path, got %q", collector.diskPath)
	}
	if collector.logger == nil {
		t.Error("expected default logger")
	}
}
