// Package sampler implements one probe-group-append-persist pass over
// the running process set. It is the only writer of AppProfile rows and
// of the last_sample_ts marker.
package sampler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/silvs110/wades/internal/probe"
	"github.com/silvs110/wades/internal/profile"
	"github.com/silvs110/wades/internal/store"
)

// Prober takes one OS probe snapshot.
type Prober interface {
	Snapshot(ctx context.Context) (probe.Snapshot, error)
}

// Sampler drives one collect_cycle() pass at a time. It holds no
// cross-cycle state of its own; all persistent state lives in the Store.
type Sampler struct {
	prober Prober
	store  *store.Store
	log    zerolog.Logger
}

// New builds a Sampler reading from prober and writing through st.
func New(prober Prober, st *store.Store, log zerolog.Logger) *Sampler {
	return &Sampler{prober: prober, store: st, log: log}
}

// Result summarizes one completed cycle. The controller does not use it;
// detection is gated on the persisted last_sample_ts marker instead.
type Result struct {
	RetrievedAt    string
	AppsTouched    int
	RecordsApplied int
	Skipped        int
}

// CollectCycle runs one full sampler pass: snapshot, group by application
// name, append one row per record to the matching profile, persist every
// mutated profile, and finally persist last_sample_ts. Every row written
// in this call shares the snapshot's single retrieval timestamp, and a
// store write failure abandons the whole cycle rather than leaving
// last_sample_ts pointing past partially-written profiles.
func (s *Sampler) CollectCycle(ctx context.Context) (Result, error) {
	snap, err := s.prober.Snapshot(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("sampler: probe snapshot: %w", err)
	}

	for _, skipErr := range snap.Skipped {
		if probe.IsTransient(skipErr) {
			s.log.Info().Err(skipErr).Msg("skipped transient probe error")
		} else {
			s.log.Warn().Err(skipErr).Msg("skipped unclassified probe error")
		}
	}

	groups := groupByName(snap.Records)

	touched := make([]*profile.AppProfile, 0, len(groups))
	for name, records := range groups {
		p, err := s.store.GetOrCreate(name, snap.RetrievedAt)
		if err != nil {
			return Result{}, fmt.Errorf("sampler: loading profile %q: %w", name, err)
		}
		for _, rec := range records {
			row := profile.Row{
				MemoryRSS:         rec.RSSBytes,
				CPUPercent:        rec.CPUPercent,
				ChildrenCount:     rec.ChildrenCount,
				ThreadsNumber:     rec.ThreadsNumber,
				ConnectionsNumber: rec.ConnectionsNumber,
				Username:          rec.Username,
				OpenFiles:         rec.OpenFiles,
				RetrievedAt:       snap.RetrievedAt,
			}
			if err := p.Append(row); err != nil {
				return Result{}, fmt.Errorf("sampler: appending to %q: %w", name, err)
			}
		}
		touched = append(touched, p)
	}

	// All profile writes precede the last_sample_ts write, so a detector
	// reading the marker first never observes a cycle in progress.
	for _, p := range touched {
		if err := s.store.Put(p); err != nil {
			return Result{}, fmt.Errorf("sampler: persisting %q: %w", p.Name, err)
		}
	}
	if err := s.store.SetLastSampleTS(snap.RetrievedAt); err != nil {
		return Result{}, fmt.Errorf("sampler: persisting last_sample_ts: %w", err)
	}

	return Result{
		RetrievedAt:    snap.RetrievedAt.String(),
		AppsTouched:    len(touched),
		RecordsApplied: len(snap.Records),
		Skipped:        len(snap.Skipped),
	}, nil
}

func groupByName(records []probe.Record) map[string][]probe.Record {
	groups := make(map[string][]probe.Record)
	for _, r := range records {
		groups[r.Name] = append(groups[r.Name], r)
	}
	return groups
}
