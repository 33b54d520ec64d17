// Package database wraps a SQLite file behind GORM and routes everything the
// engine reports (statements, costs, errors, corruption) into the trace package.
package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"litebridge/config"
	"litebridge/dberror"
	"litebridge/trace"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// Options configure how a Database opens its connections.
type Options struct {
	Driver         string
	PragmasEnabled bool
	BusyTimeoutMS  int
	JournalMode    string
	Synchronous    string
	ForeignKeys    bool
	MaxOpenConns   int
	MaxIdleConns   int
	ConnMaxIdleSec int
	ConnMaxLifeSec int

	SlowThreshold time.Duration
	LogAllSQL     bool
	PausableSlice time.Duration
}

// DefaultOptions returns the options derived from config.Defaults.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Defaults())
}

// OptionsFromConfig maps runtime settings onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Driver:         cfg.SQLiteDriver,
		PragmasEnabled: cfg.SQLitePragmasEnabled,
		BusyTimeoutMS:  cfg.SQLiteBusyTimeoutMS,
		JournalMode:    cfg.SQLiteJournalMode,
		Synchronous:    cfg.SQLiteSynchronous,
		ForeignKeys:    cfg.SQLiteForeignKeys,
		MaxOpenConns:   cfg.SQLiteMaxOpenConns,
		MaxIdleConns:   cfg.SQLiteMaxIdleConns,
		ConnMaxIdleSec: cfg.SQLiteConnMaxIdleSec,
		ConnMaxLifeSec: cfg.SQLiteConnMaxLifeSec,
		SlowThreshold:  time.Duration(cfg.SlowQueryThresholdMS) * time.Millisecond,
		LogAllSQL:      cfg.TraceAllSQL,
		PausableSlice:  time.Duration(cfg.PausableSliceMS) * time.Millisecond,
	}
}

// ErrClosing is returned by operations attempted while Close is running.
var ErrClosing = errors.New("database is closing")

var nextDatabaseID atomic.Uint64

// Database is one SQLite file. Connections are opened lazily on first use
// and reopened after Close.
type Database struct {
	path string
	opts Options
	id   uint64
	tag  atomic.Int64

	mu    sync.Mutex
	orm   *gorm.DB
	sqlDB *sql.DB

	handles atomic.Int64

	// gate is held shared by every operation and exclusively by Blockade and Close.
	gate      sync.RWMutex
	blockaded atomic.Bool

	tracerMu    sync.RWMutex
	performance trace.PerformanceTracer
	sqlTracer   trace.SQLTracer

	configMu     sync.RWMutex
	configs      map[string]Config
	backupFilter func(table string) bool

	checks singleflight.Group
}

// Open prepares a Database for path. The directory is created if missing;
// the file itself is created on first use.
func Open(path string, opts Options) (*Database, error) {
	if path == "" {
		return nil, errors.New("empty database path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving database path: %w", err)
	}
	if _, ok := lookupDriver(opts.Driver); !ok {
		return nil, fmt.Errorf("unknown sqlite driver %q", opts.Driver)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o750); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db := &Database{
		path:    abs,
		opts:    opts,
		id:      nextDatabaseID.Add(1),
		configs: make(map[string]Config),
	}
	trace.DispatchOperation(db.path, 0, trace.OperationCreate)
	return db, nil
}

// Path returns the absolute path of the main database file.
func (db *Database) Path() string { return db.path }

// ID identifies this Database in traces; it is reported as the handle id.
func (db *Database) ID() uint64 { return db.id }

func (db *Database) Tag() int64 { return db.tag.Load() }

// SetTag changes the tag attached to traces and errors of this database.
func (db *Database) SetTag(tag int64) {
	db.tag.Store(tag)
	trace.DispatchOperation(db.path, tag, trace.OperationSetTag)
}

// TracePerformance installs a performance tracer for this database only.
func (db *Database) TracePerformance(fn trace.PerformanceTracer) {
	db.tracerMu.Lock()
	defer db.tracerMu.Unlock()
	db.performance = fn
}

// TraceSQL installs a SQL tracer for this database only.
func (db *Database) TraceSQL(fn trace.SQLTracer) {
	db.tracerMu.Lock()
	defer db.tracerMu.Unlock()
	db.sqlTracer = fn
}

// TraceError installs an error tracer for this database's path.
func (db *Database) TraceError(fn trace.ErrorTracer) {
	trace.TraceErrorAt(db.path, fn)
}

// ORM returns the GORM handle, opening the connection pool if needed.
// Statements run through it are traced, but they bypass Blockade.
func (db *Database) ORM() (*gorm.DB, error) {
	return db.handle()
}

func (db *Database) handle() (*gorm.DB, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.orm != nil {
		return db.orm, nil
	}

	drv, _ := lookupDriver(db.opts.Driver)
	dsn := drv.dsn(db.path, db.opts)
	connector, err := newConnector(drv.name, dsn, db.onConnect)
	if err != nil {
		return nil, db.bridge(err)
	}

	sqlDB := sql.OpenDB(connector)
	pool := poolConfig(db.opts)
	sqlDB.SetMaxOpenConns(pool.maxOpenConns)
	sqlDB.SetMaxIdleConns(pool.maxIdleConns)
	sqlDB.SetConnMaxIdleTime(time.Duration(pool.maxIdleSec) * time.Second)
	sqlDB.SetConnMaxLifetime(time.Duration(pool.maxLifeSec) * time.Second)

	orm, err := gorm.Open(&sqlite.Dialector{DriverName: drv.name, DSN: dsn, Conn: sqlDB}, &gorm.Config{
		Logger: newTraceLogger(db),
	})
	if err != nil {
		sqlDB.Close() //nolint:errcheck // best effort on error path
		return nil, db.bridge(err)
	}

	db.orm = orm
	db.sqlDB = sqlDB
	log.Debug().Str("path", db.path).Str("driver", drv.name).Msg("database opened")
	return orm, nil
}

// onConnect runs for every new driver connection.
func (db *Database) onConnect(ctx context.Context, conn driver.Conn) error {
	db.handles.Add(1)
	trace.DispatchOperation(db.path, db.Tag(), trace.OperationOpenHandle)

	for _, cfg := range db.sortedConfigs() {
		for _, stmt := range cfg.Invoke {
			if err := execOnConn(ctx, conn, stmt); err != nil {
				return fmt.Errorf("config %s: %w", cfg.Name, err)
			}
		}
	}
	return nil
}

// enter blocks while the database is blockaded.
func (db *Database) enter() func() {
	db.gate.RLock()
	return db.gate.RUnlock
}

// session returns the handle bound to ctx.
func (db *Database) session(ctx context.Context) (*gorm.DB, error) {
	orm, err := db.handle()
	if err != nil {
		return nil, err
	}
	return orm.WithContext(ctx), nil
}

// CanOpen reports whether the database file can be opened and queried.
func (db *Database) CanOpen() bool {
	release := db.enter()
	defer release()
	return db.Ping(context.Background()) == nil
}

// Ping verifies connectivity, opening the pool if needed.
func (db *Database) Ping(ctx context.Context) error {
	if _, err := db.handle(); err != nil {
		return err
	}
	db.mu.Lock()
	sqlDB := db.sqlDB
	db.mu.Unlock()
	if sqlDB == nil {
		return ErrClosing
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
	}
	return db.bridge(sqlDB.PingContext(ctx))
}

// IsOpened reports whether the connection pool is currently open.
func (db *Database) IsOpened() bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.orm != nil
}

// Handles returns how many driver connections have been opened so far.
func (db *Database) Handles() int64 { return db.handles.Load() }

// Blockade waits for running operations to finish and blocks new ones
// until Unblockade.
func (db *Database) Blockade() {
	db.gate.Lock()
	db.blockaded.Store(true)
}

// Unblockade releases a Blockade. It must only follow Blockade.
func (db *Database) Unblockade() {
	if db.blockaded.CompareAndSwap(true, false) {
		db.gate.Unlock()
	}
}

func (db *Database) IsBlockaded() bool { return db.blockaded.Load() }

// Close waits for running operations, closes every connection, then calls
// onClosed (which may be nil) before new operations are admitted again.
// Called during a Blockade, it reuses the blockade instead of waiting on it.
func (db *Database) Close(onClosed func()) error {
	if !db.blockaded.Load() {
		db.gate.Lock()
		defer db.gate.Unlock()
	}

	err := db.closePool()
	if onClosed != nil {
		onClosed()
	}
	trace.DispatchOperation(db.path, db.Tag(), trace.OperationClose)
	return err
}

func (db *Database) closePool() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.sqlDB == nil {
		return nil
	}
	err := db.sqlDB.Close()
	db.sqlDB = nil
	db.orm = nil
	if err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	log.Debug().Str("path", db.path).Msg("database closed")
	return nil
}

// Purge closes idle connections so that the next statement opens a fresh
// one, re-running every config.
func (db *Database) Purge() {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.sqlDB == nil {
		return
	}
	db.sqlDB.SetMaxIdleConns(0)
	db.sqlDB.SetMaxIdleConns(poolConfig(db.opts).maxIdleConns)
}

// ExistTable reports whether table exists.
func (db *Database) ExistTable(ctx context.Context, table string) (bool, error) {
	release := db.enter()
	defer release()
	orm, err := db.session(ctx)
	if err != nil {
		return false, err
	}
	return orm.Migrator().HasTable(table), nil
}

func (db *Database) errorContext(sql, source string) dberror.Context {
	return dberror.Context{Path: db.path, SQL: sql, Tag: db.Tag(), Source: source}
}

// bridge converts err to a *dberror.Error carrying this database's context.
func (db *Database) bridge(err error) error {
	if err == nil {
		return nil
	}
	return dberror.FromDriverError(err, db.errorContext("", ""))
}

// observeError counts, traces and reacts to an error reported by the engine.
func (db *Database) observeError(err *dberror.Error) {
	if err == nil {
		return
	}
	recordSQLiteError(err)
	trace.DispatchError(err)
	if err.Code == dberror.CodeCorrupt || err.Code == dberror.CodeNotADatabase {
		if trace.MarkCorrupted(db.path, db.Tag()) {
			log.Error().Str("path", db.path).Msg("database corruption observed")
		}
	}
}

// Config is a named set of statements executed on every new connection.
// Configs run in ascending Priority order; ties are ordered by name.
type Config struct {
	Name     string
	Priority int
	Invoke   []string
	Uninvoke []string
}

// Config priorities.
const (
	PriorityHighest = -100
	PriorityHigh    = -50
	PriorityDefault = 0
	PriorityLow     = 50
)

// SetConfig installs or replaces a config and purges idle connections so it
// applies to every connection used afterwards.
func (db *Database) SetConfig(name string, cfg Config) {
	cfg.Name = name
	db.configMu.Lock()
	db.configs[name] = cfg
	db.configMu.Unlock()
	db.Purge()
}

// RemoveConfig runs the config's Uninvoke statements and forgets it.
func (db *Database) RemoveConfig(name string) {
	db.configMu.Lock()
	cfg, ok := db.configs[name]
	delete(db.configs, name)
	db.configMu.Unlock()
	if !ok {
		return
	}

	if db.IsOpened() {
		if orm, err := db.handle(); err == nil {
			for _, stmt := range cfg.Uninvoke {
				if err := orm.Exec(stmt).Error; err != nil {
					log.Warn().Err(err).Str("path", db.path).Str("config", name).Str("sql", stmt).Msg("uninvoke statement failed")
				}
			}
		}
	}
	db.Purge()
}

func (db *Database) sortedConfigs() []Config {
	db.configMu.RLock()
	defer db.configMu.RUnlock()
	out := make([]Config, 0, len(db.configs))
	for _, c := range db.configs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}
