package handlers

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"litebridge/core"
	"litebridge/database"
	"litebridge/service"
	"litebridge/state"
	"litebridge/version"

	"github.com/gin-gonic/gin"
)

// ShutdownManager manages shutdown confirmation codes
type ShutdownManager struct {
	code      string
	expiresAt time.Time
	mu        sync.RWMutex
}

var shutdownMgr = &ShutdownManager{}

// HealthCheck health endpoint
func HealthCheck(c *gin.Context) {
	db := service.GlobalServices.Database.Database()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	dbHealthy := db.Ping(ctx) == nil

	health := gin.H{
		"status":     "healthy",
		"timestamp":  time.Now().Unix(),
		"databases":  len(state.Global.Paths()),
		"db_healthy": dbHealthy,
		"corrupted":  db.IsAlreadyCorrupted(),
		"blockaded":  db.IsBlockaded(),
		"version":    version.GetFullVersion(),
	}

	if !dbHealthy || db.IsAlreadyCorrupted() {
		health["status"] = "degraded"
	}

	c.JSON(http.StatusOK, health)
}

type metricsSnapshot struct {
	timestamp int64
	db        service.Stats
	errorLogs int
	mem       runtime.MemStats
}

func collectMetricsSnapshot() (metricsSnapshot, error) {
	st, err := service.GlobalServices.Database.Stats()
	if err != nil {
		return metricsSnapshot{}, err
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return metricsSnapshot{
		timestamp: time.Now().Unix(),
		db:        st,
		errorLogs: len(service.GlobalServices.Logs.GetErrorLogs()),
		mem:       mem,
	}, nil
}

// GetMetrics gathers system metrics
func GetMetrics(c *gin.Context) {
	s, err := collectMetricsSnapshot()
	if err != nil {
		failWith(c, "Failed to collect metrics", err)
		return
	}

	metrics := gin.H{
		"timestamp": s.timestamp,
		"database":  s.db,
		"error_logs": gin.H{
			"total": s.errorLogs,
		},
		"system": gin.H{
			"goroutines":   runtime.NumGoroutine(),
			"memory_alloc": s.mem.Alloc,
			"memory_total": s.mem.TotalAlloc,
			"memory_sys":   s.mem.Sys,
			"gc_runs":      s.mem.NumGC,
		},
	}

	c.JSON(http.StatusOK, metrics)
}

func promLabelEscape(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

func promBool(b bool) int {
	if b {
		return 1
	}
	return 0
}

// GetPrometheusMetrics writes metrics in the Prometheus text exposition format.
func GetPrometheusMetrics(c *gin.Context) {
	s, err := collectMetricsSnapshot()
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}

	var buf bytes.Buffer
	gauge := func(name, help string, value any) {
		fmt.Fprintf(&buf, "# HELP %s %s\n# TYPE %s gauge\n%s %v\n", name, help, name, name, value)
	}
	counter := func(name, help string, value any) {
		fmt.Fprintf(&buf, "# HELP %s %s\n# TYPE %s counter\n%s %v\n", name, help, name, name, value)
	}

	buf.WriteString("# HELP litebridge_build_info Build information.\n")
	buf.WriteString("# TYPE litebridge_build_info gauge\n")
	fmt.Fprintf(
		&buf,
		"litebridge_build_info{version=\"%s\",commit=\"%s\",build_time=\"%s\"} 1\n",
		promLabelEscape(version.Version),
		promLabelEscape(version.CommitHash),
		promLabelEscape(version.BuildTime),
	)

	gauge("litebridge_sqlite_opened", "SQLite connection pool open (1=open, 0=closed).", promBool(s.db.Opened))
	gauge("litebridge_sqlite_corrupted", "Corruption observed on the database (1=yes).", promBool(s.db.Corrupted))
	gauge("litebridge_sqlite_file_size_bytes", "Total size of the database files.", s.db.FileSize)
	counter("litebridge_sqlite_handles_total", "Driver connections opened.", s.db.Handles)
	counter("litebridge_sqlite_errors_total", "Total SQLite errors observed.", s.db.ErrorsTotal)
	counter("litebridge_sqlite_busy_errors_total", "Total SQLite busy errors observed.", s.db.BusyErrors)
	counter("litebridge_sqlite_locked_errors_total", "Total SQLite locked errors observed.", s.db.LockedErrors)
	counter("litebridge_sqlite_corrupt_errors_total", "Total SQLite corruption errors observed.", s.db.CorruptErrors)

	buf.WriteString("# HELP litebridge_sqlite_errors_by_code_total SQLite errors observed per result code.\n")
	buf.WriteString("# TYPE litebridge_sqlite_errors_by_code_total counter\n")
	byCode := database.SQLiteErrorsByCode()
	codes := make([]string, 0, len(byCode))
	for code := range byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		fmt.Fprintf(&buf, "litebridge_sqlite_errors_by_code_total{code=\"%s\"} %d\n", promLabelEscape(code), byCode[code])
	}

	gauge("litebridge_trace_subscribers", "Connected trace stream subscribers.", s.db.TraceSubscribers)
	counter("litebridge_trace_dropped_total", "Trace events dropped for slow subscribers.", s.db.TraceDropped)
	gauge("litebridge_error_logs_total", "Error log entries kept in memory.", s.errorLogs)
	gauge("litebridge_go_goroutines", "Number of goroutines.", runtime.NumGoroutine())
	gauge("litebridge_memory_alloc_bytes", "Bytes of allocated heap objects.", s.mem.Alloc)
	gauge("litebridge_memory_sys_bytes", "Bytes obtained from the OS.", s.mem.Sys)
	counter("litebridge_gc_runs_total", "Number of completed GC cycles.", s.mem.NumGC)

	c.Data(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8", buf.Bytes())
}

// GetErrorLogs returns recent error logs
func GetErrorLogs(c *gin.Context) {
	ok(c, service.GlobalServices.Logs.GetErrorLogs())
}

// GetErrorLogDetail returns a single error log
func GetErrorLogDetail(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid error log id", "invalid error log id")
		return
	}
	entry := service.GlobalServices.Logs.GetErrorLogByID(id)
	if entry == nil {
		fail(c, http.StatusNotFound, CodeNotFound, "Error log not found", nil)
		return
	}
	ok(c, entry)
}

// ClearErrorLogs wipes error logs
func ClearErrorLogs(c *gin.Context) {
	service.GlobalServices.Logs.ClearErrorLogs()
	ok(c, gin.H{"ok": true, "message": "Error logs cleared"})
}

// GenerateShutdownCode creates a shutdown confirmation code
func GenerateShutdownCode(c *gin.Context) {
	shutdownMgr.mu.Lock()
	defer shutdownMgr.mu.Unlock()

	// Generate a 6-digit random number
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to generate code", nil)
		return
	}

	shutdownMgr.code = fmt.Sprintf("%06d", n.Int64())
	shutdownMgr.expiresAt = time.Now().Add(5 * time.Minute) // 5-minute expiration

	ok(c, gin.H{
		"code":       shutdownMgr.code,
		"expires_at": shutdownMgr.expiresAt.Unix(),
	})
}

// VerifyAndShutdown validates the confirmation code and shuts the app down
func VerifyAndShutdown(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid request", err.Error())
		return
	}

	shutdownMgr.mu.Lock()
	storedCode := shutdownMgr.code
	expiresAt := shutdownMgr.expiresAt
	switch {
	case storedCode == "":
		shutdownMgr.mu.Unlock()
		fail(c, http.StatusBadRequest, CodeInvalidRequest, "No shutdown code generated. Please generate one first.", nil)
		return
	case time.Now().After(expiresAt):
		shutdownMgr.code = ""
		shutdownMgr.mu.Unlock()
		fail(c, http.StatusBadRequest, CodeInvalidRequest, "Shutdown code expired. Please generate a new one.", nil)
		return
	case req.Code != storedCode:
		shutdownMgr.mu.Unlock()
		fail(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid shutdown code", nil)
		return
	}
	shutdownMgr.code = ""
	shutdownMgr.mu.Unlock()

	ok(c, gin.H{"ok": true, "message": "Shutdown initiated"})

	// Perform graceful shutdown in the background
	go func() {
		time.Sleep(500 * time.Millisecond) // Give clients time to receive the response
		core.LogErrorWithDetail("System", "Shutdown requested via API", "User initiated shutdown with confirmation code")
		if shutdownChan != nil {
			select {
			case shutdownChan <- true:
			default:
			}
		}
	}()
}

// Global shutdown channel (must be initialized by the serve command)
var shutdownChan chan bool

// SetShutdownChannel sets the shutdown channel
func SetShutdownChannel(ch chan bool) {
	shutdownChan = ch
}
