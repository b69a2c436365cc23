// Package summary defines AppSummary, the detector's per-application
// output.
package summary

import (
	"time"

	"github.com/silvs110/wades/internal/enums"
)

// AnomalyMessage is the fixed error_message text the detector attaches to
// every anomalous summary.
const AnomalyMessage = "Anomalies found."

// Snapshot is a point-in-time view of an application's attribute values,
// used for both the latest batch and the historical model in an
// AppSummary.
type Snapshot struct {
	MemoryRSS         []int64
	CPUPercent        []float64
	ChildrenCount     []int64
	ThreadsNumber     []int64
	ConnectionsNumber []int64
	Usernames         []string
	OpenFiles         []string
	Timestamps        []time.Time
}

// AppSummary is the detector's output for one application in one
// detection cycle.
type AppSummary struct {
	AppName            string
	ErrorMessage       string
	Risk               enums.RiskLevel
	AbnormalAttributes []enums.AppProfileAttribute
	LatestSnapshot     Snapshot
	ModelSnapshot      Snapshot
	DetectedAt         time.Time
}

// IsAnomalous reports whether this summary represents a detected anomaly.
// New ties ErrorMessage to Risk; AbnormalAttributes is taken as the caller
// passes it, and the detector flags an attribute only when it contributes
// a risk above none.
func (s AppSummary) IsAnomalous() bool {
	return s.Risk != enums.RiskNone
}

// New builds an AppSummary, deriving ErrorMessage automatically from the
// risk level so the message cannot drift apart from the risk. The flagged
// attributes are stored as given; New does not check them against risk.
func New(appName string, risk enums.RiskLevel, flagged []enums.AppProfileAttribute, latest, model Snapshot, at time.Time) AppSummary {
	s := AppSummary{
		AppName:            appName,
		Risk:               risk,
		AbnormalAttributes: flagged,
		LatestSnapshot:     latest,
		ModelSnapshot:      model,
		DetectedAt:         at,
	}
	if s.IsAnomalous() {
		s.ErrorMessage = AnomalyMessage
	}
	return s
}
