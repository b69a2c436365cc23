// Package controller implements the pipeline controller: shared-cadence
// scheduling of the sampler and detector tasks, the pause/resume state
// machine, and graceful shutdown.
package controller

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/silvs110/wades/internal/detector"
	"github.com/silvs110/wades/internal/observer"
	"github.com/silvs110/wades/internal/sampler"
	"github.com/silvs110/wades/internal/store"
	"github.com/silvs110/wades/internal/summary"
	"github.com/silvs110/wades/internal/wadesconfig"
)

// Status is the controller's externally-visible state, returned by the
// query interface's "modeller status" command.
type Status struct {
	Paused           bool
	DetectionEnabled bool
	Period           time.Duration
	LastSampleTS     time.Time
	LastDetectionTS  time.Time
	CyclesCompleted  int64
}

// Controller drives the sampler and detector tasks on one shared
// cadence. The pause flag is read and written atomically; the detection
// bookkeeping (last detection timestamp, cycle count, current summaries)
// is guarded by mu.
type Controller struct {
	cfg      wadesconfig.Config
	sampler  *sampler.Sampler
	detector *detector.Detector
	store    *store.Store
	tracker  *observer.Tracker
	log      zerolog.Logger

	paused atomic.Bool

	mu               sync.RWMutex
	lastDetectionTS  time.Time
	cyclesCompleted  int64
	currentSummaries map[string]summary.AppSummary
}

// New builds a Controller. cfg.DetectionEnabled gates the detector task only;
// the sampler always runs.
func New(cfg wadesconfig.Config, smp *sampler.Sampler, det *detector.Detector, st *store.Store, tracker *observer.Tracker, log zerolog.Logger) *Controller {
	return &Controller{
		cfg:              cfg,
		sampler:          smp,
		detector:         det,
		store:            st,
		tracker:          tracker,
		log:              log,
		currentSummaries: make(map[string]summary.AppSummary),
	}
}

// Pause stops scheduling future detection runs. It never interrupts a
// run already in progress, and resumption only takes effect on the next
// tick.
func (c *Controller) Pause() {
	c.paused.Store(true)
}

// Continue resumes detection scheduling.
func (c *Controller) Continue() {
	c.paused.Store(false)
}

// Paused reports the current pause state.
func (c *Controller) Paused() bool {
	return c.paused.Load()
}

// CurrentSummaries returns a snapshot of the most recent detection run's
// summaries, keyed by application name.
func (c *Controller) CurrentSummaries() map[string]summary.AppSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]summary.AppSummary, len(c.currentSummaries))
	for k, v := range c.currentSummaries {
		out[k] = v
	}
	return out
}

// Status reports the controller's current externally-visible state.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	lastSampleTS, _ := c.store.GetLastSampleTS()
	return Status{
		Paused:           c.paused.Load(),
		DetectionEnabled: c.cfg.DetectionEnabled,
		Period:           c.cfg.EffectivePeriod(),
		LastSampleTS:     lastSampleTS,
		LastDetectionTS:  c.lastDetectionTS,
		CyclesCompleted:  c.cyclesCompleted,
	}
}

// Run drives the controller's cadence loop until ctx is canceled or a
// SIGINT/SIGTERM arrives, at which point it finishes the in-progress
// cycle (best effort) and returns.
func (c *Controller) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			c.log.Info().Str("signal", sig.String()).Msg("received signal, finishing current cycle")
			cancel()
		case <-ctx.Done():
		}
	}()
	defer signal.Stop(sigCh)

	period := c.cfg.EffectivePeriod()
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	c.runTick(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.runTick(ctx)
		}
	}
}

// runTick runs one cadence tick: sampler always, detector gated by
// DetectionEnabled, pause, and the last_sample_ts advancement check.
func (c *Controller) runTick(ctx context.Context) {
	if c.tracker != nil {
		c.tracker.SnapshotBefore(ctx)
	}

	if _, err := c.sampler.CollectCycle(ctx); err != nil {
		c.log.Error().Err(err).Msg("sampler cycle failed, discarding cycle state")
	}

	if c.cfg.DetectionEnabled && !c.Paused() {
		c.runDetection(ctx)
	}

	c.mu.Lock()
	c.cyclesCompleted++
	c.mu.Unlock()

	if c.tracker != nil {
		overhead := c.tracker.SnapshotAfter(ctx)
		c.log.Debug().
			Int64("cpu_user_ms", overhead.CPUUserMs).
			Int64("cpu_system_ms", overhead.CPUSystemMs).
			Int64("memory_rss_bytes", overhead.MemoryRSSBytes).
			Msg("self overhead")
	}
}

// runDetection is the detector task for one tick: it reads
// last_sample_ts first, then individual profiles, to avoid observing a
// sampler cycle in progress; it then skips any profile whose own last
// timestamp doesn't match (not seen this cycle), so detection runs at
// most once per new sample batch.
func (c *Controller) runDetection(ctx context.Context) {
	lastSampleTS, err := c.store.GetLastSampleTS()
	if err != nil {
		c.log.Error().Err(err).Msg("reading last_sample_ts failed")
		return
	}
	if lastSampleTS.IsZero() {
		return
	}

	c.mu.RLock()
	alreadyDetected := !c.lastDetectionTS.Before(lastSampleTS) && !c.lastDetectionTS.IsZero()
	c.mu.RUnlock()
	if alreadyDetected {
		return
	}

	names := c.store.ListNames()
	summaries := make(map[string]summary.AppSummary, len(names))
	now := time.Now()
	for _, name := range names {
		p, err := c.store.Get(name)
		if err != nil || p == nil {
			continue
		}
		if !p.LastTimestamp().Equal(lastSampleTS) {
			continue // not touched by the cycle we're detecting on
		}
		s := c.detector.Detect(p, now)
		summaries[name] = s
		if s.IsAnomalous() {
			if err := c.store.AppendAnomaly(s); err != nil {
				c.log.Error().Err(err).Str("app", name).Msg("appending anomaly failed")
			}
		}
	}

	c.mu.Lock()
	c.currentSummaries = summaries
	c.lastDetectionTS = lastSampleTS
	c.mu.Unlock()

	c.log.Info().Int("apps_scanned", len(names)).Int("apps_detected", len(summaries)).Time("batch_ts", lastSampleTS).Msg("detection cycle complete")
}
