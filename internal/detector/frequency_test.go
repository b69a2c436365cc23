package detector

import (
	"testing"
	"time"

	"github.com/silvs110/wades/internal/enums"
	"github.com/silvs110/wades/internal/profile"
	"github.com/silvs110/wades/internal/wadesconfig"
)

// baselineRSS is the common ten-sample memory history the outlier
// scenarios below model against.
var baselineRSS = []int64{100, 110, 95, 105, 120, 98, 102, 107, 99, 101}

func buildProfile(t *testing.T, historicalRSS []int64, latestRSS ...int64) *profile.AppProfile {
	t.Helper()
	p := profile.New("testapp", time.Unix(0, 0))
	ts := time.Unix(1000, 0)
	for _, rss := range historicalRSS {
		if err := p.Append(profile.Row{MemoryRSS: rss, Username: "alice", RetrievedAt: ts}); err != nil {
			t.Fatalf("Append historical: %v", err)
		}
		ts = ts.Add(time.Minute)
	}
	latestTS := ts.Add(time.Minute)
	for _, rss := range latestRSS {
		if err := p.Append(profile.Row{MemoryRSS: rss, Username: "alice", RetrievedAt: latestTS}); err != nil {
			t.Fatalf("Append latest: %v", err)
		}
	}
	return p
}

func newTestDetector() *Detector {
	cfg := wadesconfig.DefaultConfig()
	return New(cfg)
}

func hasAttr(attrs []enums.AppProfileAttribute, want enums.AppProfileAttribute) bool {
	for _, a := range attrs {
		if a == want {
			return true
		}
	}
	return false
}

// A common-case memory value produces no anomaly.
func TestDetectCommonCaseMemoryIsNone(t *testing.T) {
	d := newTestDetector()
	p := buildProfile(t, baselineRSS, 108)
	s := d.Detect(p, time.Now())
	if s.Risk != enums.RiskNone {
		t.Errorf("Risk = %v, want none", s.Risk)
	}
	if len(s.AbnormalAttributes) != 0 {
		t.Errorf("AbnormalAttributes = %v, want empty", s.AbnormalAttributes)
	}
	if s.ErrorMessage != "" {
		t.Errorf("ErrorMessage = %q, want empty", s.ErrorMessage)
	}
}

// A very-high memory value is flagged high risk.
func TestDetectVeryHighMemoryIsHigh(t *testing.T) {
	d := newTestDetector()
	p := buildProfile(t, baselineRSS, 10000)
	s := d.Detect(p, time.Now())
	if s.Risk != enums.RiskHigh {
		t.Errorf("Risk = %v, want high", s.Risk)
	}
	if !hasAttr(s.AbnormalAttributes, enums.AttrMemoryRSS) {
		t.Errorf("AbnormalAttributes = %v, want memory_rss flagged", s.AbnormalAttributes)
	}
	if s.ErrorMessage == "" {
		t.Error("expected a non-empty error message for an anomalous summary")
	}
}

// A moderately-high value — above the upper fence but inside the
// historically observed range, closer to the fence than to the recorded
// maximum, in a sparsely populated bin — is decremented from high to
// medium. With the baseline history the upper fence sits near 117.4 and
// the maximum at 120, so 118 exercises exactly this window.
func TestDetectModeratelyHighMemoryIsMedium(t *testing.T) {
	d := newTestDetector()
	p := buildProfile(t, baselineRSS, 118)
	s := d.Detect(p, time.Now())
	if s.Risk != enums.RiskMedium {
		t.Errorf("Risk = %v, want medium", s.Risk)
	}
	if !hasAttr(s.AbnormalAttributes, enums.AttrMemoryRSS) {
		t.Errorf("AbnormalAttributes = %v, want memory_rss flagged", s.AbnormalAttributes)
	}
}

// A point beyond the recorded maximum gets no fence-proximity decrement:
// the decrement only rewards values still inside the observed range.
func TestDetectAboveObservedMaximumStaysHigh(t *testing.T) {
	d := newTestDetector()
	p := buildProfile(t, baselineRSS, 150)
	s := d.Detect(p, time.Now())
	if s.Risk != enums.RiskHigh {
		t.Errorf("Risk = %v, want high for a point beyond the observed maximum", s.Risk)
	}
}

// A very-low memory value is flagged medium risk.
func TestDetectVeryLowMemoryIsMedium(t *testing.T) {
	d := newTestDetector()
	p := buildProfile(t, baselineRSS, 1)
	s := d.Detect(p, time.Now())
	if s.Risk != enums.RiskMedium {
		t.Errorf("Risk = %v, want medium", s.Risk)
	}
	if !hasAttr(s.AbnormalAttributes, enums.AttrMemoryRSS) {
		t.Errorf("AbnormalAttributes = %v, want memory_rss flagged", s.AbnormalAttributes)
	}
}

// An unseen username in the latest batch is flagged medium risk.
func TestDetectUnknownUserIsMedium(t *testing.T) {
	d := newTestDetector()
	p := profile.New("testapp", time.Unix(0, 0))
	ts := time.Unix(1000, 0)
	for i := 0; i < 10; i++ {
		if err := p.Append(profile.Row{MemoryRSS: baselineRSS[i], Username: "alice", RetrievedAt: ts}); err != nil {
			t.Fatal(err)
		}
		ts = ts.Add(time.Minute)
	}
	latestTS := ts.Add(time.Minute)
	if err := p.Append(profile.Row{MemoryRSS: 105, Username: "mallory", RetrievedAt: latestTS}); err != nil {
		t.Fatal(err)
	}

	s := d.Detect(p, time.Now())
	if s.Risk != enums.RiskMedium {
		t.Errorf("Risk = %v, want medium", s.Risk)
	}
	if !hasAttr(s.AbnormalAttributes, enums.AttrUsernames) {
		t.Errorf("AbnormalAttributes = %v, want usernames flagged", s.AbnormalAttributes)
	}
}

// A blacklisted path untouched in history but opened in the latest
// batch is flagged high risk.
func TestDetectBlacklistedNewFileIsHigh(t *testing.T) {
	cfg := wadesconfig.DefaultConfig()
	d := New(cfg)

	p := profile.New("testapp", time.Unix(0, 0))
	ts := time.Unix(1000, 0)
	for i := 0; i < 10; i++ {
		if err := p.Append(profile.Row{MemoryRSS: baselineRSS[i], Username: "alice", OpenFiles: []string{"/var/log/testapp.log"}, RetrievedAt: ts}); err != nil {
			t.Fatal(err)
		}
		ts = ts.Add(time.Minute)
	}
	latestTS := ts.Add(time.Minute)
	if err := p.Append(profile.Row{MemoryRSS: 105, Username: "alice", OpenFiles: []string{"/etc/shadow"}, RetrievedAt: latestTS}); err != nil {
		t.Fatal(err)
	}

	s := d.Detect(p, time.Now())
	if s.Risk != enums.RiskHigh {
		t.Errorf("Risk = %v, want high", s.Risk)
	}
	if !hasAttr(s.AbnormalAttributes, enums.AttrOpenFiles) {
		t.Errorf("AbnormalAttributes = %v, want open_files flagged", s.AbnormalAttributes)
	}
}

// A blacklisted path already present in history does not re-raise.
func TestDetectBlacklistedFileAlreadySeenDoesNotReRaise(t *testing.T) {
	d := newTestDetector()
	p := profile.New("testapp", time.Unix(0, 0))
	ts := time.Unix(1000, 0)
	for i := 0; i < 10; i++ {
		if err := p.Append(profile.Row{MemoryRSS: baselineRSS[i], Username: "alice", OpenFiles: []string{"/etc/shadow"}, RetrievedAt: ts}); err != nil {
			t.Fatal(err)
		}
		ts = ts.Add(time.Minute)
	}
	latestTS := ts.Add(time.Minute)
	if err := p.Append(profile.Row{MemoryRSS: 105, Username: "alice", OpenFiles: []string{"/etc/shadow"}, RetrievedAt: latestTS}); err != nil {
		t.Fatal(err)
	}

	s := d.Detect(p, time.Now())
	if s.Risk != enums.RiskNone {
		t.Errorf("Risk = %v, want none (file already in history)", s.Risk)
	}
}

// Below the minimum history size, no attribute is modeled regardless of an extreme
// outlier in the latest batch.
func TestDetectShortHistoryIsNone(t *testing.T) {
	d := newTestDetector()
	p := buildProfile(t, []int64{100, 105, 98}, 999999)
	s := d.Detect(p, time.Now())
	if s.Risk != enums.RiskNone {
		t.Errorf("Risk = %v, want none below min_history", s.Risk)
	}
}

// An empty latest batch (no rows at all) yields a none-risk summary
// rather than an error.
func TestDetectEmptyProfileIsNone(t *testing.T) {
	d := newTestDetector()
	p := profile.New("ghost", time.Unix(0, 0))
	s := d.Detect(p, time.Now())
	if s.Risk != enums.RiskNone {
		t.Errorf("Risk = %v, want none for an empty profile", s.Risk)
	}
}

// Running the detector twice on an unchanged profile produces identical
// summaries.
func TestDetectIsIdempotent(t *testing.T) {
	d := newTestDetector()
	p := buildProfile(t, baselineRSS, 10000)
	at := time.Unix(5_000_000, 0)

	first := d.Detect(p, at)
	second := d.Detect(p, at)

	if first.Risk != second.Risk {
		t.Errorf("Risk differs across runs: %v vs %v", first.Risk, second.Risk)
	}
	if len(first.AbnormalAttributes) != len(second.AbnormalAttributes) {
		t.Errorf("AbnormalAttributes differ across runs: %v vs %v", first.AbnormalAttributes, second.AbnormalAttributes)
	}
}

// Aggregation takes the max across attributes: a blacklisted-file hit
// (high) alongside an unknown user (medium) aggregates to high.
func TestDetectAggregatesToMaxRisk(t *testing.T) {
	d := newTestDetector()
	p := profile.New("testapp", time.Unix(0, 0))
	ts := time.Unix(1000, 0)
	for i := 0; i < 10; i++ {
		if err := p.Append(profile.Row{MemoryRSS: baselineRSS[i], Username: "alice", RetrievedAt: ts}); err != nil {
			t.Fatal(err)
		}
		ts = ts.Add(time.Minute)
	}
	latestTS := ts.Add(time.Minute)
	if err := p.Append(profile.Row{MemoryRSS: 105, Username: "mallory", OpenFiles: []string{"/etc/shadow"}, RetrievedAt: latestTS}); err != nil {
		t.Fatal(err)
	}

	s := d.Detect(p, time.Now())
	if s.Risk != enums.RiskHigh {
		t.Errorf("Risk = %v, want high (max of medium username + high blacklist)", s.Risk)
	}
	if !hasAttr(s.AbnormalAttributes, enums.AttrUsernames) || !hasAttr(s.AbnormalAttributes, enums.AttrOpenFiles) {
		t.Errorf("AbnormalAttributes = %v, want both usernames and open_files", s.AbnormalAttributes)
	}
}
