package core

import (
	"fmt"
	"time"

	"litebridge/dberror"
	"litebridge/trace"

	"github.com/rs/zerolog/log"
)

// TraceOptions control how engine traces are reported.
type TraceOptions struct {
	// AssertNoFatal panics when a FATAL error is traced. Enable it in
	// development builds only.
	AssertNoFatal bool
	// LogPerformance logs every statement cost at debug level.
	LogPerformance bool
}

// InstallTracers installs the global tracers: errors are recorded in logger,
// everything is published to hub. hub may be nil.
func InstallTracers(logger *ErrorLogger, hub *trace.Hub, opts TraceOptions) {
	trace.TracePerformance(func(tag int64, path string, handleID uint64, sql string, cost time.Duration) {
		if opts.LogPerformance {
			log.Debug().Int64("tag", tag).Uint64("handle", handleID).Str("path", path).
				Dur("cost", cost).Str("sql", sql).Msg("performance")
		}
		if hub != nil {
			hub.Publish(trace.Event{
				Kind: "performance", Path: path, Tag: tag, HandleID: handleID, SQL: sql,
				CostMS: float64(cost.Microseconds()) / 1000,
			})
		}
	})

	trace.TraceSQL(func(tag int64, path string, handleID uint64, sql string) {
		if hub != nil {
			hub.Publish(trace.Event{Kind: "sql", Path: path, Tag: tag, HandleID: handleID, SQL: sql})
		}
	})

	trace.TraceError(func(err *dberror.Error) {
		if opts.AssertNoFatal && err.Level == dberror.LevelFatal {
			panic(fmt.Sprintf("fatal database error: %v", err))
		}

		if err.Level == dberror.LevelIgnore {
			log.Debug().Fields(err.Fields()).Msg("ignorable database message")
		} else {
			logger.Record(err)
			log.Error().Fields(err.Fields()).Msg("database error")
		}

		if hub != nil {
			tag, _ := err.Tag()
			hub.Publish(trace.Event{
				Kind: "error", Path: err.Path(), Tag: tag, SQL: err.SQL(),
				Level: err.Level.String(), Code: int(err.Code), Message: err.Message(),
				Detail: err.Fields(),
			})
		}
	})

	trace.TraceOperation(func(path string, tag int64, op trace.Operation) {
		log.Debug().Str("path", path).Int64("tag", tag).Stringer("operation", op).Msg("database operation")
		if hub != nil {
			hub.Publish(trace.Event{Kind: "operation", Path: path, Tag: tag, Detail: map[string]any{"operation": op.String()}})
		}
	})
}

// UninstallTracers removes every global tracer.
func UninstallTracers() {
	trace.TracePerformance(nil)
	trace.TraceSQL(nil)
	trace.TraceError(nil)
	trace.TraceOperation(nil)
}
