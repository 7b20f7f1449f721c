package kvstore

import "io"

// maybeCompact runs compaction synchronously, inline with the write that
// just pushed wastedBytes to or past the configured threshold. See compact
// for the full protocol.
func (s *Store) maybeCompact() error {
	if s.wastedBytes < s.cfg.CompactionThreshold {
		return nil
	}
	if err := s.compact(); err != nil {
		return &CompactionError{Cause: err}
	}
	return nil
}

// compact rewrites the live key/value set into a fresh generation and
// retires every generation that existed when compaction began. It runs in
// four phases:
//
//  1. Prepare: snapshot the existing blessed generations G, open two new
//     generations -- c (the compaction target, a .tmp file) and n (where new
//     writes will go starting now) -- and swap the active writer to n.
//  2. Rewrite: scan every generation in G in ascending order; for each Set,
//     if the key hasn't been handled yet this compaction, write its current
//     (canonical, via the index) value to c and re-point the index at c.
//  3. Bless: close c, rename it from .tmp to .log, and reset wastedBytes.
//  4. Retire: delete every generation in G.
//
// Any I/O error aborts compaction; the caller (maybeCompact) wraps it in a
// CompactionError. Callers should treat a failed compaction as fatal to the
// Store: the generation list and index may be mid-transition and are not
// rolled back. The Store itself does not refuse later calls.
func (s *Store) compact() error {
	gens, err := sortedGenerations(s.dir)
	if err != nil {
		return err
	}

	compactionGen := s.currentGen + 1
	newWritesGen := s.currentGen + 2

	compactionWriter, err := openWriter(s.dir, compactionGen, temporary)
	if err != nil {
		return err
	}
	newWriter, err := openWriter(s.dir, newWritesGen, blessed)
	if err != nil {
		compactionWriter.Close()
		return err
	}

	oldWriter := s.writer
	s.writer = newWriter
	if err := oldWriter.Close(); err != nil {
		s.cfg.LogWarning("closing retired active writer: %v", err)
	}

	compactionReader, err := openReader(s.dir, compactionGen, temporary)
	if err != nil {
		return err
	}
	s.readers[compactionGen] = compactionReader

	newWritesReader, err := openReader(s.dir, newWritesGen, blessed)
	if err != nil {
		return err
	}
	s.readers[newWritesGen] = newWritesReader

	s.currentGen = newWritesGen

	rewritten := make(map[string]bool)
	for _, gen := range gens {
		if err := s.rewriteGeneration(gen, compactionGen, compactionWriter, rewritten); err != nil {
			return err
		}
	}

	if err := compactionWriter.Close(); err != nil {
		return err
	}
	if err := renameGeneration(s.dir, compactionGen); err != nil {
		return err
	}
	if err := s.readers[compactionGen].Close(); err != nil {
		s.cfg.LogWarning("closing temporary compaction reader: %v", err)
	}
	blessedReader, err := openReader(s.dir, compactionGen, blessed)
	if err != nil {
		return err
	}
	s.readers[compactionGen] = blessedReader
	s.wastedBytes = 0

	for _, gen := range gens {
		if r, ok := s.readers[gen]; ok {
			if err := r.Close(); err != nil {
				s.cfg.LogWarning("closing retired generation %d: %v", gen, err)
			}
			delete(s.readers, gen)
		}
		if err := removeGeneration(s.dir, gen); err != nil {
			return err
		}
	}
	return nil
}

// rewriteGeneration scans one old generation in full, writing the current
// canonical value of every not-yet-handled key it mentions to the
// compaction writer, and marks every key it sees (Set or Remove) as handled
// so later generations in G don't rewrite it again.
func (s *Store) rewriteGeneration(gen, compactionGen uint64, compactionWriter interface {
	io.Writer
	Seek(offset int64, whence int) (int64, error)
}, rewritten map[string]bool) error {
	reader, err := openReader(s.dir, gen, blessed)
	if err != nil {
		return err
	}
	defer reader.Close()

	for {
		cmd, err := decodeCommand(reader)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch cmd.Kind {
		case KindSet:
			if rewritten[cmd.Key] {
				continue
			}
			value, ok, err := s.Get(cmd.Key)
			if err != nil {
				return err
			}
			if !ok {
				rewritten[cmd.Key] = true
				continue
			}
			offset, err := compactionWriter.Seek(0, io.SeekEnd)
			if err != nil {
				return err
			}
			setCmd := SetCommand(cmd.Key, value)
			if err := encodeCommand(compactionWriter, setCmd); err != nil {
				return err
			}
			s.idx.Set(cmd.Key, compactionGen, offset, setCmd.EstimatedBytes())
			rewritten[cmd.Key] = true
		case KindRemove:
			rewritten[cmd.Key] = true
		}
	}
}
