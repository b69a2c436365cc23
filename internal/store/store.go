// Package store implements the on-disk profile store: per-application
// profile files behind a name→id index, the latest-sample marker, and
// the append-only anomaly log.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/silvs110/wades/internal/profile"
	"github.com/silvs110/wades/internal/summary"
)

const (
	indexFileName   = "index.csv"
	markerFileName  = "last_sample_ts.txt"
	anomalyFileName = "anomalies.csv"
	profilesDirName = "profiles"
)

// Store is the on-disk profile store rooted at a directory. It is safe
// for concurrent use: the sampler writes profiles while the detector
// reads them, tolerable because a torn read is caught by the
// last_sample_ts gate on the next cycle.
type Store struct {
	root   string
	layout string

	mu  sync.Mutex
	idx *nameIndex
}

// Open creates (if needed) the store's directory layout under root and
// loads its name index.
func Open(root, timestampLayout string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, profilesDirName), 0o755); err != nil {
		return nil, fmt.Errorf("store: creating %s: %w", root, err)
	}
	idx, err := loadNameIndex(filepath.Join(root, indexFileName))
	if err != nil {
		return nil, err
	}
	return &Store{root: root, layout: timestampLayout, idx: idx}, nil
}

func (s *Store) profilePath(id int) string {
	return filepath.Join(s.root, profilesDirName, fmt.Sprintf("%d.csv", id))
}

// Get loads the named application's profile. A missing profile file
// returns (nil, nil): an absent profile is an empty one, not an error.
func (s *Store) Get(name string) (*profile.AppProfile, error) {
	s.mu.Lock()
	id, known := s.idx.nameID[name]
	s.mu.Unlock()
	if !known {
		return nil, nil
	}

	f, err := os.Open(s.profilePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: opening profile %q: %w", name, err)
	}
	defer f.Close()

	p, err := decodeProfile(f, s.layout)
	if err != nil {
		// Malformed stored data is treated as empty rather than fatal;
		// the next Put re-establishes well-formed content.
		return nil, nil
	}
	return p, nil
}

// GetOrCreate loads name's profile, or creates an empty one timestamped at
// createdAt if none exists yet.
func (s *Store) GetOrCreate(name string, createdAt time.Time) (*profile.AppProfile, error) {
	p, err := s.Get(name)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = profile.New(name, createdAt)
	}
	return p, nil
}

// Put persists p's full current representation, overwriting whatever was
// previously stored for that name. Append-only semantics are a profile
// value property (profile.AppProfile.Append only ever grows Rows), not a
// store-level one.
func (s *Store) Put(p *profile.AppProfile) error {
	s.mu.Lock()
	id, err := s.idx.idFor(p.Name)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	tmp := s.profilePath(id) + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("store: writing profile %q: %w", p.Name, err)
	}
	if err := encodeProfile(f, p, s.layout); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("store: encoding profile %q: %w", p.Name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, s.profilePath(id)); err != nil {
		return fmt.Errorf("store: committing profile %q: %w", p.Name, err)
	}
	return nil
}

// ListNames returns every application name currently known to the store.
func (s *Store) ListNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx.names()
}

func (s *Store) markerPath() string {
	return filepath.Join(s.root, markerFileName)
}

// GetLastSampleTS reads the latest-retrieval marker. A missing or
// malformed marker file is treated as "no prior cycle": it returns the
// zero time and no error.
func (s *Store) GetLastSampleTS() (time.Time, error) {
	data, err := os.ReadFile(s.markerPath())
	if err != nil {
		return time.Time{}, nil
	}
	line := strings.TrimSpace(string(data))
	ts, err := time.Parse(s.layout, line)
	if err != nil {
		return time.Time{}, nil
	}
	return ts, nil
}

// SetLastSampleTS persists the latest-retrieval marker.
func (s *Store) SetLastSampleTS(t time.Time) error {
	line := t.Format(s.layout)
	if err := os.WriteFile(s.markerPath(), []byte(line), 0o644); err != nil {
		return fmt.Errorf("store: writing last_sample_ts: %w", err)
	}
	return nil
}

func (s *Store) anomalyPath() string {
	return filepath.Join(s.root, anomalyFileName)
}

// AppendAnomaly atomically appends one summary to the anomaly log.
func (s *Store) AppendAnomaly(sum summary.AppSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendAnomaly(s.anomalyPath(), sum, s.layout)
}

// ReadAnomalies returns every logged anomaly, grouped by application name.
func (s *Store) ReadAnomalies() (map[string][]AnomalyEntry, error) {
	return readAnomalies(s.anomalyPath(), s.layout)
}
