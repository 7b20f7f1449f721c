package kvstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// generationKind distinguishes a blessed (live, readable) generation file
// from the single temporary file that may exist mid-compaction.
type generationKind int

const (
	// blessed generations are named "<gen>.log" and are visible to replay
	// and to readers.
	blessed generationKind = iota
	// temporary generations are named "<gen>.tmp" and exist only during
	// compaction; replay and readers never consult them before they are
	// renamed to blessed.
	temporary
)

func (k generationKind) extension() string {
	if k == temporary {
		return "tmp"
	}
	return "log"
}

// generationPath returns the path for generation gen of the given kind
// inside dir.
func generationPath(dir string, gen uint64, kind generationKind) string {
	return filepath.Join(dir, fmt.Sprintf("%d.%s", gen, kind.extension()))
}

// sortedGenerations scans dir for files named "<decimal>.log", discards any
// name that isn't a clean unsigned 64 bit decimal, and returns the
// generation ids found in ascending order.
func sortedGenerations(dir string) ([]uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var gens []uint64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		stem, ok := strings.CutSuffix(name, ".log")
		if !ok {
			continue
		}
		gen, err := strconv.ParseUint(stem, 10, 64)
		if err != nil {
			continue
		}
		gens = append(gens, gen)
	}
	sort.Slice(gens, func(i, j int) bool { return gens[i] < gens[j] })
	return gens, nil
}

// openWriter opens generationPath(dir, gen, kind) for append, creating it if
// necessary. All writes through the returned handle extend the file;
// concurrent appenders to the same generation are not supported.
func openWriter(dir string, gen uint64, kind generationKind) (*os.File, error) {
	return os.OpenFile(generationPath(dir, gen, kind), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// openReader opens generationPath(dir, gen, kind) read-only and seekable.
func openReader(dir string, gen uint64, kind generationKind) (*os.File, error) {
	return os.Open(generationPath(dir, gen, kind))
}

// renameGeneration promotes a temporary compaction target to a blessed log
// file in a single filesystem rename.
func renameGeneration(dir string, gen uint64) error {
	return os.Rename(generationPath(dir, gen, temporary), generationPath(dir, gen, blessed))
}

// removeGeneration deletes the blessed log file for gen. Used by the
// compactor to retire generations once their live data has been rewritten
// elsewhere.
func removeGeneration(dir string, gen uint64) error {
	return os.Remove(generationPath(dir, gen, blessed))
}
