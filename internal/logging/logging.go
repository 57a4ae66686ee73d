// Package logging provides categorized structured logging for craftfolio.
// Each subsystem logs through a named zap logger so log output can be
// filtered per category without threading logger instances through every
// constructor.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies a logging subsystem.
type Category string

const (
	CategoryOrchestrator Category = "orchestrator" // turn dispatch, merges, checkpoint advances
	CategorySubagent     Category = "subagent"     // subagent lifecycle and batches
	CategoryProvider     Category = "provider"     // generation provider calls
	CategoryFallback     Category = "fallback"     // deterministic extraction
	CategoryTools        Category = "tools"        // operation registry and intent classification
	CategoryStore        Category = "store"        // persistence
	CategoryCheckpoint   Category = "checkpoint"   // workflow phase evaluation
	CategoryVocab        Category = "vocab"        // vocabulary loading and reloads
	CategoryServer       Category = "server"       // MCP operation surface
)

var (
	mu      sync.RWMutex
	base    *zap.SugaredLogger
	loggers = make(map[Category]*zap.SugaredLogger)
)

// Init builds the process-wide logger. With debug=true a development
// config is used (console encoding, debug level); otherwise production
// JSON at info level. Safe to call more than once; the last call wins.
func Init(debug bool) error {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	base = logger.Sugar()
	loggers = make(map[Category]*zap.SugaredLogger)
	return nil
}

// Get returns the sugared logger for a category.
func Get(cat Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := loggers[cat]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if base == nil {
		base = zap.NewNop().Sugar()
	}
	if l, ok := loggers[cat]; ok {
		return l
	}
	l := base.Named(string(cat))
	loggers[cat] = l
	return l
}

// Sync flushes buffered log entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if base != nil {
		_ = base.Sync()
	}
}

// Convenience wrappers matching the call shape used across the codebase:
// Orchestrator("merged %d results", n) etc.

func Orchestrator(format string, args ...any) { Get(CategoryOrchestrator).Infof(format, args...) }
func Subagent(format string, args ...any)     { Get(CategorySubagent).Infof(format, args...) }
func Provider(format string, args ...any)     { Get(CategoryProvider).Infof(format, args...) }
func Fallback(format string, args ...any)     { Get(CategoryFallback).Infof(format, args...) }
func Tools(format string, args ...any)        { Get(CategoryTools).Infof(format, args...) }
func Store(format string, args ...any)        { Get(CategoryStore).Infof(format, args...) }
func Checkpoint(format string, args ...any)   { Get(CategoryCheckpoint).Infof(format, args...) }
func Vocab(format string, args ...any)        { Get(CategoryVocab).Infof(format, args...) }
func Server(format string, args ...any)       { Get(CategoryServer).Infof(format, args...) }

func OrchestratorDebug(format string, args ...any) { Get(CategoryOrchestrator).Debugf(format, args...) }
func SubagentDebug(format string, args ...any)     { Get(CategorySubagent).Debugf(format, args...) }
func ProviderDebug(format string, args ...any)     { Get(CategoryProvider).Debugf(format, args...) }
func FallbackDebug(format string, args ...any)     { Get(CategoryFallback).Debugf(format, args...) }
func ToolsDebug(format string, args ...any)        { Get(CategoryTools).Debugf(format, args...) }
func StoreDebug(format string, args ...any)        { Get(CategoryStore).Debugf(format, args...) }
