package summarydiff

import (
	"testing"
	"time"

	"github.com/silvs110/wades/internal/enums"
	"github.com/silvs110/wades/internal/summary"
)

func fixedTime() time.Time {
	return time.Unix(1_700_000_000, 0)
}

func TestCompareNoPriorSummaryReportsAllAsNew(t *testing.T) {
	current := summary.New("nginx", enums.RiskHigh, []enums.AppProfileAttribute{enums.AttrMemoryRSS}, summary.Snapshot{}, summary.Snapshot{}, fixedTime())
	d := Compare(summary.AppSummary{}, current)
	if d.Direction != DirectionWorsened {
		t.Errorf("Direction = %v, want worsened", d.Direction)
	}
	if len(d.NewAttributes) != 1 || d.NewAttributes[0] != "memory_rss" {
		t.Errorf("NewAttributes = %v", d.NewAttributes)
	}
}

func TestCompareResolvedAttributeNoLongerAbnormal(t *testing.T) {
	previous := summary.New("nginx", enums.RiskMedium, []enums.AppProfileAttribute{enums.AttrUsernames}, summary.Snapshot{}, summary.Snapshot{}, fixedTime())
	current := summary.New("nginx", enums.RiskNone, nil, summary.Snapshot{}, summary.Snapshot{}, fixedTime())
	d := Compare(previous, current)
	if d.Direction != DirectionImproved {
		t.Errorf("Direction = %v, want improved", d.Direction)
	}
	if len(d.ResolvedAttributes) != 1 || d.ResolvedAttributes[0] != "usernames" {
		t.Errorf("ResolvedAttributes = %v", d.ResolvedAttributes)
	}
}

func TestCompareUnchangedSameAttributes(t *testing.T) {
	attrs := []enums.AppProfileAttribute{enums.AttrOpenFiles}
	previous := summary.New("nginx", enums.RiskHigh, attrs, summary.Snapshot{}, summary.Snapshot{}, fixedTime())
	current := summary.New("nginx", enums.RiskHigh, attrs, summary.Snapshot{}, summary.Snapshot{}, fixedTime())
	d := Compare(previous, current)
	if d.Direction != DirectionUnchanged {
		t.Errorf("Direction = %v, want unchanged", d.Direction)
	}
	if len(d.StillAbnormal) != 1 || d.StillAbnormal[0] != "open_files" {
		t.Errorf("StillAbnormal = %v", d.StillAbnormal)
	}
}
