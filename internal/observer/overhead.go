package observer

import (
	"context"

	"github.com/shirou/gopsutil/v4/process"
)

// OverheadSummary captures WADES's own resource consumption across one
// controller cadence tick, logged at debug level rather than rendered as a
// human-facing report — WADES is a long-lived daemon, not a one-shot CLI
// tool, so there is no natural point to print a final summary to a user.
// Memory is the current resident size; the other fields are deltas over
// the tick.
type OverheadSummary struct {
	SelfPID         int
	CPUUserMs       int64
	CPUSystemMs     int64
	MemoryRSSBytes  int64
	DiskReadBytes   int64
	DiskWriteBytes  int64
	ContextSwitches int64
}

type procSnapshot struct {
	userMs, systemMs        int64
	rssBytes                int64
	readBytes, writeBytes   int64
	voluntary, nonvoluntary int64
}

// SnapshotBefore records the daemon's current resource usage. Call this
// at the start of a controller tick.
func (t *Tracker) SnapshotBefore(ctx context.Context) {
	snap := readProcSnapshot(ctx, t.selfPID)
	t.before = &snap
}

// SnapshotAfter reads current resource usage and returns the delta since
// SnapshotBefore. Without a prior SnapshotBefore it returns a summary
// whose only non-zero field is SelfPID.
func (t *Tracker) SnapshotAfter(ctx context.Context) OverheadSummary {
	if t.before == nil {
		return OverheadSummary{SelfPID: t.selfPID}
	}
	now := readProcSnapshot(ctx, t.selfPID)
	summary := delta(now, *t.before)
	summary.SelfPID = t.selfPID
	return summary
}

func delta(now, before procSnapshot) OverheadSummary {
	return OverheadSummary{
		CPUUserMs:       now.userMs - before.userMs,
		CPUSystemMs:     now.systemMs - before.systemMs,
		MemoryRSSBytes:  now.rssBytes,
		DiskReadBytes:   now.readBytes - before.readBytes,
		DiskWriteBytes:  now.writeBytes - before.writeBytes,
		ContextSwitches: (now.voluntary - before.voluntary) + (now.nonvoluntary - before.nonvoluntary),
	}
}

// readProcSnapshot reads one process's resource counters via gopsutil.
// Returns the zero value if the process has exited.
func readProcSnapshot(ctx context.Context, pid int) procSnapshot {
	var snap procSnapshot

	proc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return snap
	}

	if times, err := proc.TimesWithContext(ctx); err == nil && times != nil {
		snap.userMs = int64(times.User * 1000)
		snap.systemMs = int64(times.System * 1000)
	}
	if mem, err := proc.MemoryInfoWithContext(ctx); err == nil && mem != nil {
		snap.rssBytes = int64(mem.RSS)
	}
	if io, err := proc.IOCountersWithContext(ctx); err == nil && io != nil {
		snap.readBytes = int64(io.ReadBytes)
		snap.writeBytes = int64(io.WriteBytes)
	}
	if sw, err := proc.NumCtxSwitchesWithContext(ctx); err == nil && sw != nil {
		snap.voluntary = sw.Voluntary
		snap.nonvoluntary = sw.Involuntary
	}

	return snap
}
