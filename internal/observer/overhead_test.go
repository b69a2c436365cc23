package observer

import (
	"context"
	"testing"
)

func TestDeltaSubtractsBeforeFromNow(t *testing.T) {
	summary := delta(
		procSnapshot{userMs: 1000, systemMs: 250, rssBytes: 8192, readBytes: 500, writeBytes: 55, voluntary: 11, nonvoluntary: 2},
		procSnapshot{userMs: 400, systemMs: 50, rssBytes: 4096, readBytes: 100, writeBytes: 5, voluntary: 1, nonvoluntary: 0},
	)

	if summary.CPUUserMs != 600 {
		t.Errorf("CPUUserMs = %d, want 600", summary.CPUUserMs)
	}
	if summary.CPUSystemMs != 200 {
		t.Errorf("CPUSystemMs = %d, want 200", summary.CPUSystemMs)
	}
	if summary.DiskReadBytes != 400 {
		t.Errorf("DiskReadBytes = %d, want 400", summary.DiskReadBytes)
	}
	if summary.DiskWriteBytes != 50 {
		t.Errorf("DiskWriteBytes = %d, want 50", summary.DiskWriteBytes)
	}
	if summary.ContextSwitches != 12 {
		t.Errorf("ContextSwitches = %d, want 12", summary.ContextSwitches)
	}
}

func TestDeltaReportsCurrentNotDeltaMemory(t *testing.T) {
	summary := delta(procSnapshot{rssBytes: 8192}, procSnapshot{rssBytes: 4096})
	if summary.MemoryRSSBytes != 8192 {
		t.Errorf("MemoryRSSBytes = %d, want the current resident size 8192", summary.MemoryRSSBytes)
	}
}

func TestReadProcSnapshotNonexistentPIDIsZero(t *testing.T) {
	snap := readProcSnapshot(context.Background(), 1<<30)
	if snap != (procSnapshot{}) {
		t.Errorf("expected zero snapshot for a nonexistent PID, got %+v", snap)
	}
}

func TestSnapshotAfterWithoutBeforeIsZero(t *testing.T) {
	tracker := NewTracker()

	summary := tracker.SnapshotAfter(context.Background())

	if summary.SelfPID != tracker.SelfPID() {
		t.Errorf("SelfPID = %d, want %d", summary.SelfPID, tracker.SelfPID())
	}
	if summary.CPUUserMs != 0 || summary.CPUSystemMs != 0 {
		t.Errorf("expected zero CPU values without SnapshotBefore, got user=%d sys=%d",
			summary.CPUUserMs, summary.CPUSystemMs)
	}
}

func TestSnapshotBeforeAfterTracksSelf(t *testing.T) {
	tracker := NewTracker()
	ctx := context.Background()

	tracker.SnapshotBefore(ctx)
	summary := tracker.SnapshotAfter(ctx)

	if summary.SelfPID != tracker.SelfPID() {
		t.Errorf("SelfPID = %d, want %d", summary.SelfPID, tracker.SelfPID())
	}
	// The running test binary itself has non-negative resident memory;
	// a negative reading would indicate a broken snapshot.
	if summary.MemoryRSSBytes < 0 {
		t.Errorf("MemoryRSSBytes = %d, want >= 0", summary.MemoryRSSBytes)
	}
}
