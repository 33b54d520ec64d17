package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"litebridge/dberror"
	"litebridge/trace"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// traceLogger is the GORM logger of a Database. Every statement GORM runs
// passes through Trace, which feeds the SQL, performance and error tracers.
type traceLogger struct {
	db    *Database
	level logger.LogLevel
}

func newTraceLogger(db *Database) logger.Interface {
	return traceLogger{db: db, level: logger.Warn}
}

func (l traceLogger) LogMode(level logger.LogLevel) logger.Interface {
	return traceLogger{db: l.db, level: level}
}

func (l traceLogger) Info(ctx context.Context, s string, args ...interface{}) {
	if l.level >= logger.Info {
		log.Info().Str("path", l.db.path).Msg(fmt.Sprintf(s, args...))
	}
}

func (l traceLogger) Warn(ctx context.Context, s string, args ...interface{}) {
	if l.level >= logger.Warn {
		log.Warn().Str("path", l.db.path).Msg(fmt.Sprintf(s, args...))
	}
}

func (l traceLogger) Error(ctx context.Context, s string, args ...interface{}) {
	if l.level >= logger.Error {
		log.Error().Str("path", l.db.path).Msg(fmt.Sprintf(s, args...))
	}
}

func (l traceLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	cost := time.Since(begin)
	sql, rows := fc()
	db := l.db
	tag := db.Tag()

	trace.DispatchSQL(tag, db.path, db.id, sql)
	trace.DispatchPerformance(tag, db.path, db.id, sql, cost)

	db.tracerMu.RLock()
	sqlTracer, perfTracer := db.sqlTracer, db.performance
	db.tracerMu.RUnlock()
	if sqlTracer != nil {
		sqlTracer(tag, db.path, db.id, sql)
	}
	if perfTracer != nil {
		perfTracer(tag, db.path, db.id, sql, cost)
	}

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		bridged := dberror.FromDriverError(err, db.errorContext(sql, "gorm"))
		db.observeError(bridged)
		if l.level >= logger.Error {
			logEvent(bridged.Level).
				Str("path", db.path).
				Int("code", int(bridged.Code)).
				Str("sql", sql).
				Dur("cost", cost).
				Msg(bridged.Message())
		}
		return
	}

	switch {
	case db.opts.SlowThreshold > 0 && cost > db.opts.SlowThreshold && l.level >= logger.Warn:
		log.Warn().Str("path", db.path).Str("sql", sql).Int64("rows", rows).Dur("cost", cost).Msg("slow statement")
	case db.opts.LogAllSQL:
		log.Debug().Str("path", db.path).Str("sql", sql).Int64("rows", rows).Dur("cost", cost).Msg("statement")
	}
}

func logEvent(level dberror.Level) *zerolog.Event {
	l := &log.Logger
	switch level {
	case dberror.LevelIgnore, dberror.LevelDebug:
		return l.Debug()
	case dberror.LevelNotice:
		return l.Info()
	case dberror.LevelWarning:
		return l.Warn()
	default:
		return l.Error()
	}
}
