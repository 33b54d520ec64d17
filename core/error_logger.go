package core

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"litebridge/dberror"
	"litebridge/models"

	"github.com/goccy/go-json"
)

// ErrorLogger records error logs (in-memory KV-style store)
type ErrorLogger struct {
	logs      []*models.ErrorLog
	logsMap   map[int]*models.ErrorLog
	mu        sync.RWMutex
	maxLogs   int
	idCounter int
}

var ErrorLoggerInstance = NewErrorLogger(100)

// NewErrorLogger creates a logger keeping at most maxLogs entries.
func NewErrorLogger(maxLogs int) *ErrorLogger {
	if maxLogs < 1 {
		maxLogs = 1
	}
	return &ErrorLogger{
		logs:    make([]*models.ErrorLog, 0, maxLogs),
		logsMap: make(map[int]*models.ErrorLog),
		maxLogs: maxLogs,
	}
}

// SetMaxLogs changes the capacity, evicting the oldest entries if needed.
func (e *ErrorLogger) SetMaxLogs(maxLogs int) {
	if maxLogs < 1 {
		maxLogs = 1
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.maxLogs = maxLogs
	for len(e.logs) > e.maxLogs {
		e.evictOldest()
	}
}

// LogError records an error log entry
func (e *ErrorLogger) LogError(level, source, message, detail string, contextData map[string]interface{}) *models.ErrorLog {
	// Capture stack trace (skip first 3 frames)
	stack := getStackTrace(3)

	return e.save(&models.ErrorLog{
		Level:   level,
		Source:  source,
		Message: message,
		Detail:  detail,
		Stack:   stack,
		Context: encodeContext(contextData),
	})
}

// Record stores a bridged database error. Well-known keys become columns;
// extension keys go to Context.
func (e *ErrorLogger) Record(err *dberror.Error) *models.ErrorLog {
	var ext map[string]interface{}
	if len(err.ExtInfos) > 0 {
		ext = make(map[string]interface{}, len(err.ExtInfos))
		for k, v := range err.ExtInfos {
			ext[k] = v.Interface()
		}
	}

	detail := ""
	if code, ok := err.ExtendedCode(); ok {
		detail = fmt.Sprintf("extended code %d", code)
	}
	source := err.Source()
	if source == "" {
		source = "database"
	}

	return e.save(&models.ErrorLog{
		Level:   err.Level.String(),
		Code:    int(err.Code),
		Source:  source,
		Path:    err.Path(),
		SQL:     err.SQL(),
		Message: err.Message(),
		Detail:  detail,
		Stack:   getStackTrace(3),
		Context: encodeContext(ext),
	})
}

func (e *ErrorLogger) save(errorLog *models.ErrorLog) *models.ErrorLog {
	e.mu.Lock()
	defer e.mu.Unlock()

	// LRU eviction
	if len(e.logs) >= e.maxLogs {
		e.evictOldest()
	}

	e.idCounter++
	errorLog.ID = e.idCounter
	errorLog.Timestamp = time.Now()

	e.logs = append(e.logs, errorLog)
	e.logsMap[errorLog.ID] = errorLog
	return errorLog
}

func (e *ErrorLogger) evictOldest() {
	oldLog := e.logs[0]
	delete(e.logsMap, oldLog.ID)
	e.logs = e.logs[1:]
}

func encodeContext(contextData map[string]interface{}) string {
	if contextData == nil {
		return ""
	}
	data, err := json.Marshal(contextData)
	if err != nil {
		return ""
	}
	return string(data)
}

// GetErrorLogs returns recent error logs, latest first
func (e *ErrorLogger) GetErrorLogs() []*models.ErrorLog {
	e.mu.RLock()
	defer e.mu.RUnlock()

	total := len(e.logs)
	result := make([]*models.ErrorLog, total)

	// Return in reverse order (latest first)
	for i := 0; i < total; i++ {
		result[i] = e.logs[total-1-i]
	}

	return result
}

// GetErrorLogByID returns a single error log by ID
func (e *ErrorLogger) GetErrorLogByID(id int) *models.ErrorLog {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.logsMap[id]
}

// ClearErrorLogs removes all error logs
func (e *ErrorLogger) ClearErrorLogs() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logs = make([]*models.ErrorLog, 0, e.maxLogs)
	e.logsMap = make(map[int]*models.ErrorLog)
	e.idCounter = 0
}

// getStackTrace captures stack trace information
func getStackTrace(skip int) string {
	const maxDepth = 10
	var stack string

	for i := skip; i < skip+maxDepth; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		funcName := "unknown"
		if fn != nil {
			funcName = fn.Name()
		}

		stack += fmt.Sprintf("%s:%d %s\n", file, line, funcName)
	}

	return stack
}

// Helper functions for different log levels

// LogErrorSimple records a simple error
func LogErrorSimple(source, message string) {
	ErrorLoggerInstance.LogError("ERROR", source, message, "", nil)
}

// LogErrorWithDetail records an error with details
func LogErrorWithDetail(source, message, detail string) {
	ErrorLoggerInstance.LogError("ERROR", source, message, detail, nil)
}

// LogWarn records a warning
func LogWarn(source, message, detail string) {
	ErrorLoggerInstance.LogError("WARNING", source, message, detail, nil)
}
