package kvstore

import "errors"

// ErrKeyNotFound is returned by Remove when the key is not present in the
// index, and by Get's callers (via Store.Get returning ok=false) is not an
// error at all -- only Remove treats a missing key as failure.
var ErrKeyNotFound = errors.New("kvstore: key not found")

// ErrIndexInconsistent indicates the in-memory index pointed at a record
// that, once read back from disk, was not a Set record for the expected key
// (or could not be decoded at all). This always indicates corruption of the
// on-disk log or a programming error; it is never expected in normal
// operation.
var ErrIndexInconsistent = errors.New("kvstore: index inconsistent with on-disk log")

// ErrCorrupt indicates a record in the middle of a generation file failed to
// decode (bad checksum, unknown tag). Unlike a clean
// end-of-stream at the tail of a file (which is treated as a recoverable
// crash boundary during replay), this is always fatal to Open.
var ErrCorrupt = errors.New("kvstore: corrupt record")

// CompactionError wraps any I/O failure encountered during compaction. Per
// the compaction protocol, a CompactionError is treated as fatal: the
// triggering Set/Remove that caused compaction to run has already been
// written to the active generation at the time compaction starts, but the
// caller should treat the Store as unusable once this error is returned,
// since the generation list and index may be mid-transition.
type CompactionError struct {
	Cause error
}

func (e *CompactionError) Error() string {
	return "kvstore: compaction failed: " + e.Cause.Error()
}

func (e *CompactionError) Unwrap() error {
	return e.Cause
}
