package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// nameIndex is the name → integer-id mapping behind profile file naming:
// application names may contain characters unsafe for file paths, so
// profile files are named by a stable small integer instead of the name
// itself. The index grows lazily as new names are sighted.
type nameIndex struct {
	path   string
	nameID map[string]int
	idName map[int]string
	nextID int
}

func loadNameIndex(path string) (*nameIndex, error) {
	idx := &nameIndex{path: path, nameID: make(map[string]int), idName: make(map[int]string)}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, fmt.Errorf("store: opening index %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		// A corrupt index is treated as empty rather than fatal; the
		// next write re-creates well-formed content.
		return &nameIndex{path: path, nameID: make(map[string]int), idName: make(map[int]string)}, nil
	}

	for _, rec := range records {
		if len(rec) != 2 {
			continue
		}
		id, err := strconv.Atoi(rec[0])
		if err != nil {
			continue
		}
		idx.nameID[rec[1]] = id
		idx.idName[id] = rec[1]
		if id >= idx.nextID {
			idx.nextID = id + 1
		}
	}
	return idx, nil
}

// idFor returns the existing id for name, or allocates and persists a new
// one.
func (idx *nameIndex) idFor(name string) (int, error) {
	if id, ok := idx.nameID[name]; ok {
		return id, nil
	}
	id := idx.nextID
	idx.nextID++
	idx.nameID[name] = id
	idx.idName[id] = name
	if err := idx.save(); err != nil {
		return 0, err
	}
	return id, nil
}

func (idx *nameIndex) names() []string {
	names := make([]string, 0, len(idx.nameID))
	for name := range idx.nameID {
		names = append(names, name)
	}
	return names
}

func (idx *nameIndex) save() error {
	f, err := os.Create(idx.path)
	if err != nil {
		return fmt.Errorf("store: writing index %s: %w", idx.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for id, name := range idx.idName {
		if err := w.Write([]string{strconv.Itoa(id), name}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
