// Package query implements the operator command vocabulary: modelled
// apps, abnormal apps[--history], modeller pause|continue|status.
// Handler is the transport-independent core; protocol.go exposes it over
// a plain-text loopback stream and mcpadapter.go exposes the same
// operations as MCP tools.
package query

import (
	"sort"
	"time"

	"github.com/silvs110/wades/internal/controller"
	"github.com/silvs110/wades/internal/enums"
	"github.com/silvs110/wades/internal/store"
	"github.com/silvs110/wades/internal/summary"
	"github.com/silvs110/wades/internal/summarydiff"
)

// Handler implements the query interface's logical operations against a
// running Controller and its Store. It holds no mutable state of its
// own; the controller owns the pause flag.
type Handler struct {
	controller *controller.Controller
	store      *store.Store
}

// New builds a Handler over ctrl and st.
func New(ctrl *controller.Controller, st *store.Store) *Handler {
	return &Handler{controller: ctrl, store: st}
}

// ModelledApps returns every application name the store currently tracks,
// sorted for deterministic display.
func (h *Handler) ModelledApps() []string {
	names := h.store.ListNames()
	sort.Strings(names)
	return names
}

// AbnormalApps returns the most recent detection run's summaries whose
// risk is not none, sorted by application name.
func (h *Handler) AbnormalApps() []summary.AppSummary {
	current := h.controller.CurrentSummaries()
	out := make([]summary.AppSummary, 0, len(current))
	for _, s := range current {
		if s.IsAnomalous() {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppName < out[j].AppName })
	return out
}

// HistoryEntry is one row of "abnormal apps --history"'s response: a
// logged anomaly log entry plus its diff against the application's
// immediately preceding logged entry.
type HistoryEntry struct {
	AppName              string
	Risk                 enums.RiskLevel
	ErrorMessage         string
	AbnormalAttributes   []string
	LatestBatchTimestamp time.Time
	Diff                 *summarydiff.Diff
}

// AbnormalAppsHistory returns every logged anomaly for every application,
// in the order they were recorded. The anomaly log is append-only and not
// deduplicated, so a persisting anomaly appears once per detection cycle.
// Each entry after the first for a given application carries a diff
// against its predecessor.
func (h *Handler) AbnormalAppsHistory() (map[string][]HistoryEntry, error) {
	logged, err := h.store.ReadAnomalies()
	if err != nil {
		return nil, err
	}

	out := make(map[string][]HistoryEntry, len(logged))
	for name, entries := range logged {
		rows := make([]HistoryEntry, 0, len(entries))
		var previous *summary.AppSummary
		for _, e := range entries {
			current := summary.AppSummary{
				AppName:            e.AppName,
				Risk:               e.Risk,
				ErrorMessage:       e.ErrorMessage,
				AbnormalAttributes: parseAttrs(e.AbnormalAttributes),
				DetectedAt:         e.LatestBatchTimestamp,
			}
			row := HistoryEntry{
				AppName:              e.AppName,
				Risk:                 e.Risk,
				ErrorMessage:         e.ErrorMessage,
				AbnormalAttributes:   e.AbnormalAttributes,
				LatestBatchTimestamp: e.LatestBatchTimestamp,
			}
			if previous != nil {
				d := summarydiff.Compare(*previous, current)
				row.Diff = &d
			}
			rows = append(rows, row)
			previous = &current
		}
		out[name] = rows
	}
	return out, nil
}

// parseAttrs reverses AppProfileAttribute.String for the names persisted
// in the anomaly log, dropping any that no longer parse (e.g. a log
// written by an older binary with a retired attribute name) rather than
// failing the whole history read.
func parseAttrs(names []string) []enums.AppProfileAttribute {
	out := make([]enums.AppProfileAttribute, 0, len(names))
	for _, n := range names {
		a, err := enums.ParseAppProfileAttribute(n)
		if err != nil {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Pause stops future detection scheduling.
func (h *Handler) Pause() {
	h.controller.Pause()
}

// Continue resumes detection scheduling.
func (h *Handler) Continue() {
	h.controller.Continue()
}

// Status returns the controller's current state.
func (h *Handler) Status() controller.Status {
	return h.controller.Status()
}
