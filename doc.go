// Package kvstore provides a disk-backed key-value store for use in storing
// UTF-8 string values referenced by UTF-8 string keys.
//
// It is embedded and single-process: one Store is owned by one goroutine at
// a time and there is no concurrent-writer or cross-process locking support.
// All location information about each key is kept in memory for O(1) lookup
// plus one disk seek; values themselves live on disk in a sequence of
// append-only generation files.
//
// A directory holds zero or more files named "<generation>.log" where
// <generation> is a decimal, strictly-increasing, unsigned 64 bit integer.
// Exactly one generation is ever the active writer at a time; the rest are
// read-only. Each log file is a concatenation of self-delimiting Command
// records (see record.go).
//
// Periodically, when enough of the on-disk log has become logically dead
// (overwritten or removed keys), Store runs a compaction pass: it rewrites
// the live key/value set into a fresh generation and atomically retires the
// old generations. See compact.go for the exact protocol.
package kvstore
