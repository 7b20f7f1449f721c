package kvstore

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/gholt/brimtext"
	"github.com/gholt/kvstore/index"
)

// Store is an open key-value database directory: an in-memory index, one
// append-only writer on the active generation, and one cached reader per
// generation on disk. A Store is owned by a single goroutine at a time; it
// has no internal locking because the concurrency model it targets is
// single-threaded and synchronous (see compact.go and the package doc).
type Store struct {
	dir         string
	cfg         *Config
	idx         *index.Index
	currentGen  uint64
	writer      *os.File
	readers     map[uint64]*os.File
	wastedBytes int
}

// Open opens the store rooted at dir, creating it (and generation 1) if the
// directory has no existing generations, and replaying every existing
// generation in ascending order to rebuild the index.
func Open(dir string, opts ...ConfigOption) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("kvstore: creating directory %s: %w", dir, err)
	}
	cfg := resolveConfig(opts...)

	s := &Store{
		dir:     dir,
		cfg:     cfg,
		idx:     index.New(),
		readers: make(map[uint64]*os.File),
	}

	gens, err := sortedGenerations(dir)
	if err != nil {
		return nil, fmt.Errorf("kvstore: listing generations in %s: %w", dir, err)
	}

	if len(gens) == 0 {
		s.currentGen = 1
		writer, err := openWriter(dir, 1, blessed)
		if err != nil {
			return nil, fmt.Errorf("kvstore: creating generation 1: %w", err)
		}
		s.writer = writer
		reader, err := openReader(dir, 1, blessed)
		if err != nil {
			writer.Close()
			return nil, fmt.Errorf("kvstore: opening generation 1 for reading: %w", err)
		}
		s.readers[1] = reader
		return s, nil
	}

	s.currentGen = gens[len(gens)-1]
	writer, err := openWriter(dir, s.currentGen, blessed)
	if err != nil {
		return nil, fmt.Errorf("kvstore: opening generation %d for writing: %w", s.currentGen, err)
	}
	s.writer = writer

	for _, gen := range gens {
		if err := s.replay(gen); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// replay reads generation gen from offset 0, applying every Set/Remove
// record to the index, and caches the reader it used for later Gets. A
// partial record at the tail of the file (decodeCommand returning io.EOF
// having consumed no complete frame) ends replay of that generation
// cleanly; any other decode error is fatal to Open.
func (s *Store) replay(gen uint64) error {
	reader, err := openReader(s.dir, gen, blessed)
	if err != nil {
		return fmt.Errorf("kvstore: opening generation %d for replay: %w", gen, err)
	}
	for {
		offset, err := reader.Seek(0, io.SeekCurrent)
		if err != nil {
			reader.Close()
			return fmt.Errorf("kvstore: seeking generation %d during replay: %w", gen, err)
		}
		cmd, err := decodeCommand(reader)
		if err == io.EOF {
			break
		}
		if err != nil {
			reader.Close()
			return fmt.Errorf("kvstore: replaying generation %d: %w", gen, err)
		}
		switch cmd.Kind {
		case KindSet:
			s.wastedBytes += s.idx.Set(cmd.Key, gen, offset, cmd.EstimatedBytes())
		case KindRemove:
			if wasted, ok := s.idx.Remove(cmd.Key); ok {
				s.wastedBytes += wasted
			}
		}
	}
	s.readers[gen] = reader
	return nil
}

// Set writes value for key, overwriting any prior value.
func (s *Store) Set(key, value string) error {
	offset, err := s.writer.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("kvstore: seeking active generation: %w", err)
	}
	cmd := SetCommand(key, value)
	if err := encodeCommand(s.writer, cmd); err != nil {
		return fmt.Errorf("kvstore: appending set record: %w", err)
	}
	s.wastedBytes += s.idx.Set(key, s.currentGen, offset, cmd.EstimatedBytes())
	return s.maybeCompact()
}

// Get returns the value for key and true if present, or "" and false if
// not. A non-nil error indicates the index referenced on-disk data that
// could not be read back correctly (ErrIndexInconsistent) or an I/O error.
func (s *Store) Get(key string) (string, bool, error) {
	entry, ok := s.idx.Get(key)
	if !ok {
		return "", false, nil
	}
	reader, ok := s.readers[entry.Generation]
	if !ok {
		return "", false, fmt.Errorf("%w: no reader cached for generation %d", ErrIndexInconsistent, entry.Generation)
	}
	if _, err := reader.Seek(entry.FilePos, io.SeekStart); err != nil {
		return "", false, fmt.Errorf("kvstore: seeking generation %d: %w", entry.Generation, err)
	}
	cmd, err := decodeCommand(reader)
	if err != nil {
		return "", false, fmt.Errorf("%w: decoding generation %d at offset %d: %v", ErrIndexInconsistent, entry.Generation, entry.FilePos, err)
	}
	if cmd.Kind != KindSet || cmd.Key != key {
		return "", false, fmt.Errorf("%w: expected Set(%q) at generation %d offset %d, found %s(%q)",
			ErrIndexInconsistent, key, entry.Generation, entry.FilePos, cmd.Kind, cmd.Key)
	}
	return cmd.Value, true, nil
}

// Remove deletes key. It fails with ErrKeyNotFound if key is not present.
func (s *Store) Remove(key string) error {
	if _, ok := s.idx.Get(key); !ok {
		return ErrKeyNotFound
	}
	if err := encodeCommand(s.writer, RemoveCommand(key)); err != nil {
		return fmt.Errorf("kvstore: appending remove record: %w", err)
	}
	if wasted, ok := s.idx.Remove(key); ok {
		s.wastedBytes += wasted
	}
	return s.maybeCompact()
}

// Keys returns every live key currently tracked by the index, sorted.
func (s *Store) Keys() []string {
	return s.idx.Keys()
}

// Close flushes and releases the active writer and every cached reader.
// It is safe to call Close more than once.
func (s *Store) Close() error {
	var firstErr error
	if s.writer != nil {
		if err := s.writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.writer = nil
	}
	gens := make([]uint64, 0, len(s.readers))
	for gen := range s.readers {
		gens = append(gens, gen)
	}
	sort.Slice(gens, func(i, j int) bool { return gens[i] < gens[j] })
	for _, gen := range gens {
		if err := s.readers[gen].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.readers, gen)
	}
	return firstErr
}

// Stats returns a human-readable snapshot of the store's live key count,
// open generation count, and wasted-byte counter, formatted as an aligned
// table. debug additionally lists every open generation id.
func (s *Store) Stats(debug bool) fmt.Stringer {
	rows := [][]string{
		{"keys", fmt.Sprintf("%d", s.idx.Len())},
		{"generations", fmt.Sprintf("%d", len(s.readers))},
		{"current generation", fmt.Sprintf("%d", s.currentGen)},
		{"wasted bytes", fmt.Sprintf("%d", s.wastedBytes)},
		{"compaction threshold", fmt.Sprintf("%d", s.cfg.CompactionThreshold)},
	}
	if debug {
		gens := make([]uint64, 0, len(s.readers))
		for gen := range s.readers {
			gens = append(gens, gen)
		}
		sort.Slice(gens, func(i, j int) bool { return gens[i] < gens[j] })
		for _, gen := range gens {
			rows = append(rows, []string{"open generation", fmt.Sprintf("%d", gen)})
		}
	}
	return storeStats(brimtext.Align(rows, nil))
}

type storeStats string

func (s storeStats) String() string { return string(s) }
