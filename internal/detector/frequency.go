package detector

import (
	"time"

	"github.com/silvs110/wades/internal/enums"
	"github.com/silvs110/wades/internal/profile"
	"github.com/silvs110/wades/internal/summary"
	"github.com/silvs110/wades/internal/wadesconfig"
)

// Detector runs the frequency/outlier technique over one AppProfile at a
// time. It holds no per-application state: every Detect call is
// independent, so running it twice on an unchanged profile produces
// identical summaries.
type Detector struct {
	minHistory      int
	minBinSupport   int
	prohibitedFiles map[string]struct{}
}

// New builds a Detector from cfg.
func New(cfg wadesconfig.Config) *Detector {
	prohibited := make(map[string]struct{}, len(cfg.ProhibitedFiles))
	for _, f := range cfg.ProhibitedFiles {
		prohibited[f] = struct{}{}
	}
	return &Detector{
		minHistory:      cfg.MinHistory,
		minBinSupport:   cfg.MinBinSupport,
		prohibitedFiles: prohibited,
	}
}

// numericExtractor pulls one numeric attribute's value out of a row.
type numericExtractor func(profile.Row) float64

var numericExtractors = map[enums.AppProfileAttribute]numericExtractor{
	enums.AttrMemoryRSS:         func(r profile.Row) float64 { return float64(r.MemoryRSS) },
	enums.AttrCPUPercent:        func(r profile.Row) float64 { return r.CPUPercent },
	enums.AttrChildrenCount:     func(r profile.Row) float64 { return float64(r.ChildrenCount) },
	enums.AttrThreadsNumber:     func(r profile.Row) float64 { return float64(r.ThreadsNumber) },
	enums.AttrConnectionsNumber: func(r profile.Row) float64 { return float64(r.ConnectionsNumber) },
}

// Detect runs the full frequency technique against p, producing one
// AppSummary. A profile with an empty latest batch yields a none-risk
// summary rather than an error.
func (d *Detector) Detect(p *profile.AppProfile, now time.Time) summary.AppSummary {
	historical := p.Historical()
	latest := p.LatestBatch()

	if len(latest) == 0 {
		return summary.New(p.Name, enums.RiskNone, nil, toSnapshot(latest), toSnapshot(historical), now)
	}

	maxRisk := enums.RiskNone
	var flagged []enums.AppProfileAttribute

	for _, attr := range enums.NumericProfileAttributes {
		extract := numericExtractors[attr]
		anomalous, risk := d.detectNumeric(historical, latest, extract)
		if anomalous {
			flagged = append(flagged, attr)
		}
		maxRisk = maxRisk.Max(risk)
	}

	userAnomalous, userRisk := d.detectUsernames(historical, latest)
	if userAnomalous {
		flagged = append(flagged, enums.AttrUsernames)
	}
	maxRisk = maxRisk.Max(userRisk)

	fileAnomalous, fileRisk := d.detectOpenFiles(historical, latest)
	if fileAnomalous {
		flagged = append(flagged, enums.AttrOpenFiles)
	}
	maxRisk = maxRisk.Max(fileRisk)

	return summary.New(p.Name, maxRisk, flagged, toSnapshot(latest), toSnapshot(historical), now)
}

// detectNumeric scores one numeric attribute: Tukey fences over the
// historical values decide the base risk, then fence proximity and
// histogram bin support each lower it one step. The first anomalous
// point in the latest batch decides the attribute's risk.
func (d *Detector) detectNumeric(historical, latest []profile.Row, extract numericExtractor) (bool, enums.RiskLevel) {
	if len(historical) < d.minHistory {
		return false, enums.RiskNone
	}

	histVals := make([]float64, len(historical))
	for i, r := range historical {
		histVals[i] = extract(r)
	}

	fences := ComputeFences(histVals)
	hist := BuildHistogram(histVals, fences.IQR)

	for _, r := range latest {
		x := extract(r)
		binCount := hist.Count(x)

		switch {
		case x < fences.Lower:
			risk := enums.RiskMedium
			distToLowest := x - fences.Min
			distToOutlier := fences.Lower - x
			if fences.Lower > fences.Min && distToLowest > 0 && distToOutlier < distToLowest {
				risk = risk.Add(-1)
			}
			if binCount > d.minBinSupport && risk > enums.RiskLow {
				risk = risk.Add(-1)
			}
			return true, risk

		case x > fences.Upper:
			risk := enums.RiskHigh
			distToHighest := fences.Max - x
			distToOutlier := x - fences.Upper
			if fences.Upper < fences.Max && distToHighest > 0 && distToOutlier < distToHighest {
				risk = risk.Add(-1)
			}
			if binCount > d.minBinSupport && risk > enums.RiskLow {
				risk = risk.Add(-1)
			}
			return true, risk
		}
	}
	return false, enums.RiskNone
}

// detectUsernames whitelists against every username seen in history: any
// unseen username in the latest batch is a medium-risk anomaly.
func (d *Detector) detectUsernames(historical, latest []profile.Row) (bool, enums.RiskLevel) {
	if len(historical) < d.minHistory {
		return false, enums.RiskNone
	}
	known := make(map[string]struct{}, len(historical))
	for _, r := range historical {
		known[r.Username] = struct{}{}
	}
	for _, r := range latest {
		if _, ok := known[r.Username]; !ok {
			return true, enums.RiskMedium
		}
	}
	return false, enums.RiskNone
}

// detectOpenFiles runs both open-file checks: a whitelist pass against
// history (medium risk, gated on minimum history) and a blacklist pass
// against the configured prohibited set (high risk, always active).
func (d *Detector) detectOpenFiles(historical, latest []profile.Row) (bool, enums.RiskLevel) {
	histSet := flattenFiles(historical)
	latestSet := flattenFiles(latest)

	anomalous := false
	risk := enums.RiskNone

	if len(historical) >= d.minHistory {
		for f := range latestSet {
			if _, ok := histSet[f]; !ok {
				anomalous = true
				risk = risk.Max(enums.RiskMedium)
				break
			}
		}
	}

	for f := range latestSet {
		if _, prohibited := d.prohibitedFiles[f]; !prohibited {
			continue
		}
		if _, seenBefore := histSet[f]; seenBefore {
			continue // already present in history; does not re-raise
		}
		anomalous = true
		risk = risk.Max(enums.RiskHigh)
		break
	}

	return anomalous, risk
}

func flattenFiles(rows []profile.Row) map[string]struct{} {
	out := make(map[string]struct{})
	for _, r := range rows {
		for _, f := range r.OpenFiles {
			out[f] = struct{}{}
		}
	}
	return out
}

func toSnapshot(rows []profile.Row) summary.Snapshot {
	s := summary.Snapshot{
		MemoryRSS:         make([]int64, len(rows)),
		CPUPercent:        make([]float64, len(rows)),
		ChildrenCount:     make([]int64, len(rows)),
		ThreadsNumber:     make([]int64, len(rows)),
		ConnectionsNumber: make([]int64, len(rows)),
		Usernames:         make([]string, len(rows)),
		Timestamps:        make([]time.Time, len(rows)),
	}
	for i, r := range rows {
		s.MemoryRSS[i] = r.MemoryRSS
		s.CPUPercent[i] = r.CPUPercent
		s.ChildrenCount[i] = r.ChildrenCount
		s.ThreadsNumber[i] = r.ThreadsNumber
		s.ConnectionsNumber[i] = r.ConnectionsNumber
		s.Usernames[i] = r.Username
		s.Timestamps[i] = r.RetrievedAt
		s.OpenFiles = append(s.OpenFiles, r.OpenFiles...)
	}
	return s
}
