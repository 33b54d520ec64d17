// Package trace holds the process-wide tracers for SQL execution, errors,
// database operations and corruption notifications.
package trace

import (
	"sync"
	"time"

	"litebridge/dberror"
)

// PerformanceTracer receives every executed statement with its cost.
type PerformanceTracer func(tag int64, path string, handleID uint64, sql string, cost time.Duration)

// SQLTracer receives every executed statement.
type SQLTracer func(tag int64, path string, handleID uint64, sql string)

// ErrorTracer receives every bridged error.
type ErrorTracer func(err *dberror.Error)

// OperationTracer receives lifecycle operations of databases.
type OperationTracer func(path string, tag int64, op Operation)

// CorruptionNotification is called when a database file is first observed corrupted.
type CorruptionNotification func(path string, tag int64)

// Operation is a database lifecycle event.
type Operation int

const (
	OperationCreate Operation = iota
	OperationSetTag
	OperationOpenHandle
	OperationClose
)

func (o Operation) String() string {
	switch o {
	case OperationCreate:
		return "create"
	case OperationSetTag:
		return "set_tag"
	case OperationOpenHandle:
		return "open_handle"
	case OperationClose:
		return "close"
	}
	return "unknown"
}

type registry struct {
	mu          sync.RWMutex
	performance PerformanceTracer
	sql         SQLTracer
	errors      ErrorTracer
	operations  OperationTracer
	pathErrors  map[string]ErrorTracer
	corruptions map[string]CorruptionNotification
	corrupted   map[string]bool
}

var global = &registry{
	pathErrors:  make(map[string]ErrorTracer),
	corruptions: make(map[string]CorruptionNotification),
	corrupted:   make(map[string]bool),
}

// TracePerformance installs the global performance tracer. nil removes it.
func TracePerformance(fn PerformanceTracer) {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.performance = fn
}

// TraceSQL installs the global SQL tracer. nil removes it.
func TraceSQL(fn SQLTracer) {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.sql = fn
}

// TraceError installs the global error tracer. nil removes it.
func TraceError(fn ErrorTracer) {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.errors = fn
}

// TraceErrorAt installs an error tracer for errors of a single database path.
func TraceErrorAt(path string, fn ErrorTracer) {
	global.mu.Lock()
	defer global.mu.Unlock()
	if fn == nil {
		delete(global.pathErrors, path)
		return
	}
	global.pathErrors[path] = fn
}

// TraceOperation installs the global operation tracer. nil removes it.
func TraceOperation(fn OperationTracer) {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.operations = fn
}

// SetCorruptionNotification installs the notification for a database path.
func SetCorruptionNotification(path string, fn CorruptionNotification) {
	global.mu.Lock()
	defer global.mu.Unlock()
	if fn == nil {
		delete(global.corruptions, path)
		return
	}
	global.corruptions[path] = fn
}

// MarkCorrupted records that path is corrupted. The path's notification runs
// only the first time; later calls return false.
func MarkCorrupted(path string, tag int64) bool {
	global.mu.Lock()
	if global.corrupted[path] {
		global.mu.Unlock()
		return false
	}
	global.corrupted[path] = true
	fn := global.corruptions[path]
	global.mu.Unlock()

	if fn != nil {
		fn(path, tag)
	}
	return true
}

// IsObservedCorrupted reports whether path has been marked corrupted.
func IsObservedCorrupted(path string) bool {
	global.mu.RLock()
	defer global.mu.RUnlock()
	return global.corrupted[path]
}

// ClearCorrupted forgets a corruption observation, e.g. after a retrieve.
func ClearCorrupted(path string) {
	global.mu.Lock()
	defer global.mu.Unlock()
	delete(global.corrupted, path)
}

func DispatchPerformance(tag int64, path string, handleID uint64, sql string, cost time.Duration) {
	global.mu.RLock()
	fn := global.performance
	global.mu.RUnlock()
	if fn != nil {
		fn(tag, path, handleID, sql, cost)
	}
}

func DispatchSQL(tag int64, path string, handleID uint64, sql string) {
	global.mu.RLock()
	fn := global.sql
	global.mu.RUnlock()
	if fn != nil {
		fn(tag, path, handleID, sql)
	}
}

// DispatchError hands err to the tracer of its path, then to the global tracer.
func DispatchError(err *dberror.Error) {
	if err == nil {
		return
	}
	global.mu.RLock()
	pathFn := global.pathErrors[err.Path()]
	fn := global.errors
	global.mu.RUnlock()

	if pathFn != nil {
		pathFn(err)
	}
	if fn != nil {
		fn(err)
	}
}

func DispatchOperation(path string, tag int64, op Operation) {
	global.mu.RLock()
	fn := global.operations
	global.mu.RUnlock()
	if fn != nil {
		fn(path, tag, op)
	}
}

// Report raises an error from Go code through the same channel engine errors use.
func Report(level dberror.Level, code dberror.Code, infos dberror.Infos) *dberror.Error {
	err := dberror.New(level, code, infos)
	DispatchError(err)
	return err
}

// Reset removes every tracer and corruption observation.
func Reset() {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.performance = nil
	global.sql = nil
	global.errors = nil
	global.operations = nil
	global.pathErrors = make(map[string]ErrorTracer)
	global.corruptions = make(map[string]CorruptionNotification)
	global.corrupted = make(map[string]bool)
}
