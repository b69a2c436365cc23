package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/silvs110/wades/internal/profile"
)

// Profile files are a record-oriented tabular form, one row per
// application: a header row naming the columns, then a single data row
// whose parallel-vector columns hold JSON-array text. encoding/json
// gives a strict, round-trippable grammar for the nested
// int/float/string arrays without hand-rolling a literal-sequence
// parser.
var profileColumns = []string{
	"name", "created_at", "memory_rss", "cpu_percent", "children_count",
	"threads_number", "connections_number", "usernames", "open_files_batches",
	"retrieval_timestamps",
}

func encodeProfile(w io.Writer, p *profile.AppProfile, layout string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(profileColumns); err != nil {
		return err
	}

	memory := make([]int64, len(p.Rows))
	cpu := make([]float64, len(p.Rows))
	children := make([]int64, len(p.Rows))
	threads := make([]int64, len(p.Rows))
	connections := make([]int64, len(p.Rows))
	usernames := make([]string, len(p.Rows))
	openFiles := make([][]string, len(p.Rows))
	timestamps := make([]string, len(p.Rows))

	for i, row := range p.Rows {
		memory[i] = row.MemoryRSS
		cpu[i] = row.CPUPercent
		children[i] = row.ChildrenCount
		threads[i] = row.ThreadsNumber
		connections[i] = row.ConnectionsNumber
		usernames[i] = row.Username
		openFiles[i] = row.OpenFiles
		timestamps[i] = row.RetrievedAt.Format(layout)
	}

	record := []string{
		p.Name,
		p.CreatedAt.Format(layout),
		mustJSON(memory),
		mustJSON(cpu),
		mustJSON(children),
		mustJSON(threads),
		mustJSON(connections),
		mustJSON(usernames),
		mustJSON(openFiles),
		mustJSON(timestamps),
	}
	if err := cw.Write(record); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func mustJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		// Every value passed here is a slice of a JSON-trivial type
		// (int64, float64, string, []string); Marshal cannot fail for
		// these, so a failure here indicates a programming error.
		panic(fmt.Sprintf("store: marshal %T: %v", v, err))
	}
	return string(b)
}

func decodeProfile(r io.Reader, layout string) (*profile.AppProfile, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("store: reading profile header: %w", err)
	}
	if len(header) != len(profileColumns) {
		return nil, fmt.Errorf("store: profile header has %d columns, want %d", len(header), len(profileColumns))
	}

	record, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("store: reading profile row: %w", err)
	}

	createdAt, err := time.Parse(layout, record[1])
	if err != nil {
		return nil, fmt.Errorf("store: parsing created_at: %w", err)
	}

	var memory []int64
	var cpu []float64
	var children, threads, connections []int64
	var usernames []string
	var openFiles [][]string
	var timestampStrs []string

	fields := []struct {
		raw string
		out interface{}
	}{
		{record[2], &memory},
		{record[3], &cpu},
		{record[4], &children},
		{record[5], &threads},
		{record[6], &connections},
		{record[7], &usernames},
		{record[8], &openFiles},
		{record[9], &timestampStrs},
	}
	for _, f := range fields {
		if err := json.Unmarshal([]byte(f.raw), f.out); err != nil {
			return nil, fmt.Errorf("store: decoding profile column: %w", err)
		}
	}

	n := len(timestampStrs)
	if len(memory) != n || len(cpu) != n || len(children) != n || len(threads) != n ||
		len(connections) != n || len(usernames) != n || len(openFiles) != n {
		return nil, fmt.Errorf("store: %q decoded with mismatched column lengths", record[0])
	}

	p := profile.New(record[0], createdAt)
	p.Rows = make([]profile.Row, n)
	for i := 0; i < n; i++ {
		ts, err := time.Parse(layout, timestampStrs[i])
		if err != nil {
			return nil, fmt.Errorf("store: parsing retrieval timestamp: %w", err)
		}
		p.Rows[i] = profile.Row{
			MemoryRSS:         memory[i],
			CPUPercent:        cpu[i],
			ChildrenCount:     children[i],
			ThreadsNumber:     threads[i],
			ConnectionsNumber: connections[i],
			Username:          usernames[i],
			OpenFiles:         openFiles[i],
			RetrievedAt:       ts,
		}
	}

	// Rows was rebuilt straight from the file, bypassing Append's
	// write-path checks; a corrupted or hand-edited profile could
	// otherwise come back with out-of-order timestamps and a silently
	// wrong historical/latest split.
	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}
