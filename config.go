package kvstore

import (
	"log"
	"os"
	"strconv"
)

// LogFunc is the shape of every pluggable log sink a Store accepts. Callers
// inject formatted-log callbacks instead of relying on a global logger, so
// embedding applications can route kvstore's diagnostics into whatever
// logging setup they already have.
type LogFunc func(format string, v ...interface{})

func defaultLogFunc(prefix string) LogFunc {
	return func(format string, v ...interface{}) {
		log.Printf(prefix+format, v...)
	}
}

// defaultCompactionThreshold is the cumulative wasted-byte count, in bytes,
// at which a write synchronously triggers compaction.
const defaultCompactionThreshold = 1 << 20 // 1 MiB

// Config holds the resolved, effective configuration for an open Store.
// Build one with resolveConfig and a set of ConfigOption values; do not
// construct Config directly.
type Config struct {
	CompactionThreshold int
	LogCritical         LogFunc
	LogError            LogFunc
	LogWarning          LogFunc
	LogInfo             LogFunc
	LogDebug            LogFunc
}

// ConfigOption mutates a Config during resolveConfig.
type ConfigOption func(*Config)

// OptCompactionThreshold overrides the wasted-byte threshold that triggers
// synchronous compaction. Defaults to env KVSTORE_COMPACTION_THRESHOLD or
// 1 MiB.
func OptCompactionThreshold(n int) ConfigOption {
	return func(cfg *Config) { cfg.CompactionThreshold = n }
}

// OptLogCritical overrides the sink for unrecoverable errors.
func OptLogCritical(f LogFunc) ConfigOption {
	return func(cfg *Config) { cfg.LogCritical = f }
}

// OptLogError overrides the sink for recoverable errors worth surfacing.
func OptLogError(f LogFunc) ConfigOption {
	return func(cfg *Config) { cfg.LogError = f }
}

// OptLogWarning overrides the sink for non-fatal anomalies, such as a close
// error on a file already being retired.
func OptLogWarning(f LogFunc) ConfigOption {
	return func(cfg *Config) { cfg.LogWarning = f }
}

// OptLogInfo overrides the sink for routine lifecycle events.
func OptLogInfo(f LogFunc) ConfigOption {
	return func(cfg *Config) { cfg.LogInfo = f }
}

// OptLogDebug overrides the sink for verbose diagnostic detail.
func OptLogDebug(f LogFunc) ConfigOption {
	return func(cfg *Config) { cfg.LogDebug = f }
}

func resolveConfig(opts ...ConfigOption) *Config {
	cfg := &Config{}
	if env := os.Getenv("KVSTORE_COMPACTION_THRESHOLD"); env != "" {
		if val, err := strconv.Atoi(env); err == nil && val > 0 {
			cfg.CompactionThreshold = val
		}
	}
	if cfg.CompactionThreshold <= 0 {
		cfg.CompactionThreshold = defaultCompactionThreshold
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.LogCritical == nil {
		cfg.LogCritical = defaultLogFunc("kvstore critical: ")
	}
	if cfg.LogError == nil {
		cfg.LogError = defaultLogFunc("kvstore error: ")
	}
	if cfg.LogWarning == nil {
		cfg.LogWarning = defaultLogFunc("kvstore warning: ")
	}
	if cfg.LogInfo == nil {
		cfg.LogInfo = defaultLogFunc("kvstore info: ")
	}
	if cfg.LogDebug == nil {
		cfg.LogDebug = func(string, ...interface{}) {}
	}
	return cfg
}
