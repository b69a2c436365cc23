// Package summarydiff compares two AppSummary snapshots for the same
// application across detector runs, rendering how its risk and abnormal
// attribute set evolved. Used by the query interface's
// "abnormal apps --history" view.
package summarydiff

import (
	"sort"

	"github.com/silvs110/wades/internal/enums"
	"github.com/silvs110/wades/internal/summary"
)

// Direction classifies risk movement between two successive summaries.
type Direction int

const (
	DirectionUnchanged Direction = iota
	DirectionWorsened
	DirectionImproved
)

func (d Direction) String() string {
	switch d {
	case DirectionWorsened:
		return "worsened"
	case DirectionImproved:
		return "improved"
	default:
		return "unchanged"
	}
}

// Diff is the comparison between an application's previous and current
// AppSummary.
type Diff struct {
	AppName            string
	PreviousRisk       enums.RiskLevel
	CurrentRisk        enums.RiskLevel
	Direction          Direction
	NewAttributes      []string
	ResolvedAttributes []string
	StillAbnormal      []string
}

// Compare builds a Diff between previous and current, the same application's
// summaries from two successive detector runs. previous may be the zero
// value (no prior summary on record), in which case every currently
// abnormal attribute is reported as new.
func Compare(previous, current summary.AppSummary) Diff {
	prevAttrs := attrSet(previous.AbnormalAttributes)
	curAttrs := attrSet(current.AbnormalAttributes)

	d := Diff{
		AppName:      current.AppName,
		PreviousRisk: previous.Risk,
		CurrentRisk:  current.Risk,
	}

	switch {
	case current.Risk > previous.Risk:
		d.Direction = DirectionWorsened
	case current.Risk < previous.Risk:
		d.Direction = DirectionImproved
	default:
		d.Direction = DirectionUnchanged
	}

	for name := range curAttrs {
		if _, ok := prevAttrs[name]; ok {
			d.StillAbnormal = append(d.StillAbnormal, name)
		} else {
			d.NewAttributes = append(d.NewAttributes, name)
		}
	}
	for name := range prevAttrs {
		if _, ok := curAttrs[name]; !ok {
			d.ResolvedAttributes = append(d.ResolvedAttributes, name)
		}
	}

	sort.Strings(d.NewAttributes)
	sort.Strings(d.ResolvedAttributes)
	sort.Strings(d.StillAbnormal)

	return d
}

func attrSet(attrs []enums.AppProfileAttribute) map[string]struct{} {
	out := make(map[string]struct{}, len(attrs))
	for _, a := range attrs {
		out[a.String()] = struct{}{}
	}
	return out
}
