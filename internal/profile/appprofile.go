// Package profile implements AppProfile, the per-application time-series
// WADES accumulates one sample row at a time. The batch boundary is the
// trailing run of rows sharing the last retrieval timestamp.
package profile

import (
	"fmt"
	"time"
)

// Row is one sample for one process, as appended by the sampler. A cycle
// that discovers N processes for the same application name appends N rows
// sharing RetrievedAt.
type Row struct {
	MemoryRSS         int64
	CPUPercent        float64
	ChildrenCount     int64
	ThreadsNumber     int64
	ConnectionsNumber int64
	Username          string
	OpenFiles         []string
	RetrievedAt       time.Time
}

// AppProfile is the per-application time-series. Rows is the row-record
// form of what the on-disk encoding stores as parallel vectors, so
// per-attribute vectors can never drift out of length with each other.
type AppProfile struct {
	Name      string
	CreatedAt time.Time
	Rows      []Row
}

// New creates an empty profile for name, created at createdAt.
func New(name string, createdAt time.Time) *AppProfile {
	return &AppProfile{Name: name, CreatedAt: createdAt}
}

// Append adds one row to the profile, deduplicating the row's open-files
// list before storage. RetrievedAt must be >= the profile's current last
// timestamp; Append returns an error otherwise, since retrieval
// timestamps must stay non-decreasing.
func (p *AppProfile) Append(row Row) error {
	if n := len(p.Rows); n > 0 {
		last := p.Rows[n-1].RetrievedAt
		if row.RetrievedAt.Before(last) {
			return fmt.Errorf("profile: append to %q with timestamp %s before last %s", p.Name, row.RetrievedAt, last)
		}
	}
	row.OpenFiles = dedupe(row.OpenFiles)
	p.Rows = append(p.Rows, row)
	return nil
}

func dedupe(files []string) []string {
	if len(files) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(files))
	out := make([]string, 0, len(files))
	for _, f := range files {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// LastTimestamp returns the profile's most recent retrieval timestamp, or
// the zero time if the profile has no rows.
func (p *AppProfile) LastTimestamp() time.Time {
	if len(p.Rows) == 0 {
		return time.Time{}
	}
	return p.Rows[len(p.Rows)-1].RetrievedAt
}

// LatestBatchSize returns the count of the trailing run of rows sharing
// the profile's last timestamp — the size of the most recent sampler
// cycle's contribution. The boundary is defined by timestamp equality,
// never by a fixed window size.
func (p *AppProfile) LatestBatchSize() int {
	if len(p.Rows) == 0 {
		return 0
	}
	last := p.Rows[len(p.Rows)-1].RetrievedAt
	n := 0
	for i := len(p.Rows) - 1; i >= 0; i-- {
		if !p.Rows[i].RetrievedAt.Equal(last) {
			break
		}
		n++
	}
	return n
}

// LatestBatch returns the trailing run of rows sharing the last timestamp.
func (p *AppProfile) LatestBatch() []Row {
	n := p.LatestBatchSize()
	return p.Rows[len(p.Rows)-n:]
}

// Historical returns every row strictly before the latest batch.
func (p *AppProfile) Historical() []Row {
	n := p.LatestBatchSize()
	return p.Rows[:len(p.Rows)-n]
}

// Validate checks the profile-level invariants: parallel-vector length
// equality (automatically true of the Row slice representation) and
// timestamp monotonicity.
func (p *AppProfile) Validate() error {
	var prev time.Time
	for i, r := range p.Rows {
		if i > 0 && r.RetrievedAt.Before(prev) {
			return fmt.Errorf("profile: %q retrieval_timestamps not non-decreasing at row %d", p.Name, i)
		}
		prev = r.RetrievedAt
	}
	return nil
}
