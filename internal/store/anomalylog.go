package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/silvs110/wades/internal/enums"
	"github.com/silvs110/wades/internal/summary"
)

var anomalyColumns = []string{
	"app_name", "risk", "error_message", "abnormal_attributes", "latest_batch_timestamp",
}

// AnomalyEntry is one row of the persisted anomaly log.
type AnomalyEntry struct {
	AppName              string
	Risk                 enums.RiskLevel
	ErrorMessage         string
	AbnormalAttributes   []string
	LatestBatchTimestamp time.Time
}

// appendAnomaly appends one entry to the anomaly log at path, writing the
// header row only the first time the file is created. Checking file
// existence rather than tracking header state in memory keeps the
// header-once behavior intact across daemon restarts. The
// latest_batch_timestamp column is the last timestamp of the summary's
// latest snapshot, or DetectedAt when that snapshot is empty.
func appendAnomaly(path string, s summary.AppSummary, layout string) error {
	_, statErr := os.Stat(path)
	needsHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("store: opening anomaly log %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if needsHeader {
		if err := w.Write(anomalyColumns); err != nil {
			return err
		}
	}

	attrNames := make([]string, len(s.AbnormalAttributes))
	for i, a := range s.AbnormalAttributes {
		attrNames[i] = a.String()
	}
	attrsJSON, err := json.Marshal(attrNames)
	if err != nil {
		return err
	}

	batchTS := s.DetectedAt
	if n := len(s.LatestSnapshot.Timestamps); n > 0 {
		batchTS = s.LatestSnapshot.Timestamps[n-1]
	}

	record := []string{
		s.AppName,
		s.Risk.String(),
		s.ErrorMessage,
		string(attrsJSON),
		batchTS.Format(layout),
	}
	if err := w.Write(record); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// readAnomalies reads every entry in the anomaly log, grouped by app
// name, in file order (oldest first). The log is append-only and never
// deduplicated: the same anomaly logged twice appears as two entries.
func readAnomalies(path string, layout string) (map[string][]AnomalyEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]AnomalyEntry{}, nil
		}
		return nil, fmt.Errorf("store: opening anomaly log %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		// Malformed anomaly log: treat as empty rather than fatal.
		return map[string][]AnomalyEntry{}, nil
	}
	if len(records) == 0 {
		return map[string][]AnomalyEntry{}, nil
	}

	out := map[string][]AnomalyEntry{}
	for _, rec := range records[1:] { // skip header
		if len(rec) != len(anomalyColumns) {
			continue
		}
		risk, err := enums.ParseRiskLevel(rec[1])
		if err != nil {
			continue
		}
		var attrs []string
		if err := json.Unmarshal([]byte(rec[3]), &attrs); err != nil {
			continue
		}
		ts, err := time.Parse(layout, rec[4])
		if err != nil {
			continue
		}
		entry := AnomalyEntry{
			AppName:              rec[0],
			Risk:                 risk,
			ErrorMessage:         rec[2],
			AbnormalAttributes:   attrs,
			LatestBatchTimestamp: ts,
		}
		out[entry.AppName] = append(out[entry.AppName], entry)
	}
	return out, nil
}
