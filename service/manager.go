package service

import (
	"context"
	"fmt"
	"sync"

	"litebridge/config"
	"litebridge/database"
	"litebridge/orm"
	"litebridge/state"

	"github.com/rs/zerolog/log"
)

// Manager is a convenience layer over one database. Its operations never
// fail: errors are logged and turned into empty results, so callers that
// only display data need no error handling. Use database.Table directly
// when failures matter.
type Manager struct {
	db *database.Database
}

var (
	sharedOnce sync.Once
	shared     *Manager
	sharedErr  error
)

// Shared returns the process-wide manager for config.Settings.DatabasePath.
// The database is opened on first call.
func Shared() (*Manager, error) {
	sharedOnce.Do(func() {
		db, err := database.Open(config.Settings.DatabasePath, database.OptionsFromConfig(config.Settings))
		if err != nil {
			sharedErr = fmt.Errorf("opening shared database: %w", err)
			return
		}
		db.SetNotificationWhenCorrupted(logCorruption)
		state.Global.AddDatabase(db)
		shared = NewManager(db)
	})
	return shared, sharedErr
}

// NewManager wraps db.
func NewManager(db *database.Database) *Manager {
	return &Manager{db: db}
}

func (m *Manager) Database() *database.Database { return m.db }

// Option customises a Manager operation.
type Option func(*options)

type options struct {
	table   string
	columns []string
}

// InTable targets the named table instead of the record type's name.
func InTable(name string) Option {
	return func(o *options) { o.table = name }
}

// OnColumns restricts inserts to the given columns.
func OnColumns(columns ...string) Option {
	return func(o *options) { o.columns = columns }
}

func applyOptions(opts []Option) options {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

func table[T any](m *Manager, o options) *database.Table[T] {
	return database.GetTable[T](m.db, o.table)
}

func logFailure(op, tableName string, err error) {
	log.Warn().Err(err).Str("op", op).Str("table", tableName).Msg("database operation failed")
}

// CreateTable creates the table of T and its indexes.
func CreateTable[T any](ctx context.Context, m *Manager, opts ...Option) {
	t := table[T](m, applyOptions(opts))
	if err := t.Create(ctx); err != nil {
		logFailure("create", t.Name(), err)
	}
}

// InsertOrReplace inserts objs, replacing conflicting rows.
func InsertOrReplace[T any](ctx context.Context, m *Manager, objs []T, opts ...Option) {
	o := applyOptions(opts)
	t := table[T](m, o)
	if _, err := t.InsertOrReplace(ctx, objs, o.columns...); err != nil {
		logFailure("insert_or_replace", t.Name(), err)
	}
}

// InsertOrIgnore inserts objs, skipping conflicting rows.
func InsertOrIgnore[T any](ctx context.Context, m *Manager, objs []T, opts ...Option) {
	o := applyOptions(opts)
	t := table[T](m, o)
	if _, err := t.InsertOrIgnore(ctx, objs, o.columns...); err != nil {
		logFailure("insert_or_ignore", t.Name(), err)
	}
}

// Delete removes the rows of T's table selected by q.
func Delete[T any](ctx context.Context, m *Manager, q orm.Query, opts ...Option) {
	t := table[T](m, applyOptions(opts))
	if _, err := t.Delete(ctx, q); err != nil {
		logFailure("delete", t.Name(), err)
	}
}

// Update writes columns of obj into the rows selected by q.
func Update[T any](ctx context.Context, m *Manager, columns []string, obj T, q orm.Query, opts ...Option) {
	t := table[T](m, applyOptions(opts))
	if _, err := t.Update(ctx, columns, obj, q); err != nil {
		logFailure("update", t.Name(), err)
	}
}

// GetObjects returns the rows selected by q, or an empty slice on failure.
func GetObjects[T any](ctx context.Context, m *Manager, q orm.Query, opts ...Option) []T {
	t := table[T](m, applyOptions(opts))
	objs, err := t.GetObjects(ctx, q)
	if err != nil {
		logFailure("get_objects", t.Name(), err)
		return []T{}
	}
	return objs
}

// GetObject returns the first row selected by q. The second result is
// false when there is no row or the query failed.
func GetObject[T any](ctx context.Context, m *Manager, q orm.Query, opts ...Option) (T, bool) {
	t := table[T](m, applyOptions(opts))
	obj, ok, err := t.GetObject(ctx, q)
	if err != nil {
		logFailure("get_object", t.Name(), err)
		var zero T
		return zero, false
	}
	return obj, ok
}

func logCorruption(db *database.Database) {
	log.Error().Int64("tag", db.Tag()).Str("path", db.Path()).
		Bool("already_corrupted", db.IsAlreadyCorrupted()).
		Msg("database is corrupted")
}
