// Package probe implements the OS probe: one two-phase, per-process
// snapshot per sampler cycle, built on gopsutil/v4/process.
package probe

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// Record is one process's extracted attributes for a single snapshot.
type Record struct {
	Name              string
	PID               int32
	Username          string
	RSSBytes          int64
	CPUPercent        float64
	OpenFiles         []string
	ChildrenCount     int64
	ThreadsNumber     int64
	ConnectionsNumber int64
}

// Snapshot is the result of one OS probe pass: every successfully read
// process record plus the single wall-clock timestamp the whole pass is
// attributed to, taken at the start of the two-phase sample.
type Snapshot struct {
	RetrievedAt time.Time
	Records     []Record
	// Skipped holds one error per PID that could not be read, classified
	// via Classify. The sampler logs these at info (transient) or warn
	// (unclassified) and otherwise ignores them.
	Skipped []error
}

// Excluder reports whether a PID should be skipped entirely — used to keep
// the WADES daemon's own process out of its own profiles.
type Excluder interface {
	IsOwnPID(pid int) bool
}

// Prober takes one OS probe snapshot.
type Prober struct {
	// Settle is the wait between priming a process's CPU counter and
	// reading it back, at least 100ms. The probe sleeps this once per
	// snapshot, not once per PID.
	Settle time.Duration
	// Exclude, if set, filters out PIDs belonging to WADES itself.
	Exclude Excluder
}

// New returns a Prober, enforcing the 100ms minimum settle time.
func New(settle time.Duration, exclude Excluder) *Prober {
	if settle < 100*time.Millisecond {
		settle = 100 * time.Millisecond
	}
	return &Prober{Settle: settle, Exclude: exclude}
}

// Snapshot enumerates every process, primes CPU-percent counters, waits
// once, then reads every attribute back. Per-PID failures (AccessDenied,
// NoSuchProcess, Zombie) are classified by Classify and skipped rather than
// aborting the whole pass; partial snapshots are acceptable.
func (p *Prober) Snapshot(ctx context.Context) (Snapshot, error) {
	retrievedAt := time.Now()

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	tracked := procs[:0]
	for _, proc := range procs {
		if p.Exclude != nil && p.Exclude.IsOwnPID(int(proc.Pid)) {
			continue
		}
		tracked = append(tracked, proc)
	}

	// Phase 1: prime every tracked process's CPU counter.
	for _, proc := range tracked {
		_, _ = proc.PercentWithContext(ctx, 0)
	}

	// Single settle wait for the whole snapshot, not per-PID.
	select {
	case <-time.After(p.Settle):
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}

	// Phase 2: read back every attribute.
	records := make([]Record, 0, len(tracked))
	var skipped []error
	for _, proc := range tracked {
		rec, err := readRecord(ctx, proc)
		if err != nil {
			// Transient per-PID failures (access denied, vanished PID,
			// zombie) are expected churn, not snapshot failures; the
			// caller logs them via Classify and moves on.
			skipped = append(skipped, err)
			continue
		}
		records = append(records, rec)
	}

	return Snapshot{RetrievedAt: retrievedAt, Records: records, Skipped: skipped}, nil
}

func readRecord(ctx context.Context, proc *process.Process) (Record, error) {
	name, err := proc.NameWithContext(ctx)
	if err != nil {
		return Record{}, err
	}

	rec := Record{Name: name, PID: proc.Pid}

	if username, err := proc.UsernameWithContext(ctx); err == nil {
		rec.Username = username
	}

	if mem, err := proc.MemoryInfoWithContext(ctx); err == nil && mem != nil {
		rec.RSSBytes = int64(mem.RSS)
	}

	if pct, err := proc.PercentWithContext(ctx, 0); err == nil {
		rec.CPUPercent = pct
	}

	if threads, err := proc.NumThreadsWithContext(ctx); err == nil {
		rec.ThreadsNumber = int64(threads)
	}

	if children, err := proc.ChildrenWithContext(ctx); err == nil {
		rec.ChildrenCount = int64(len(children))
	}

	if files, err := proc.OpenFilesWithContext(ctx); err == nil {
		paths := make([]string, 0, len(files))
		for _, f := range files {
			paths = append(paths, f.Path)
		}
		rec.OpenFiles = paths
	}
	// Kernel threads and processes without an open-files view legitimately
	// have none; leave rec.OpenFiles nil rather than treating the read
	// failure as fatal for the whole record.

	if conns, err := proc.ConnectionsWithContext(ctx); err == nil {
		rec.ConnectionsNumber = int64(len(conns))
	}

	return rec, nil
}
