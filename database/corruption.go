package database

import (
	"context"
	"errors"
	"strings"

	"litebridge/dberror"
	"litebridge/trace"

	"github.com/rs/zerolog/log"
)

// SetNotificationWhenCorrupted registers fn to run the first time corruption
// is observed on this database, either by an integrity check or by an
// engine error. nil removes the notification.
func (db *Database) SetNotificationWhenCorrupted(fn func(*Database)) {
	if fn == nil {
		trace.SetCorruptionNotification(db.path, nil)
		return
	}
	trace.SetCorruptionNotification(db.path, func(string, int64) { fn(db) })
}

// IsAlreadyCorrupted reports whether corruption has been observed since the
// last successful Retrieve.
func (db *Database) IsAlreadyCorrupted() bool {
	return trace.IsObservedCorrupted(db.path)
}

// CheckIfCorrupted runs PRAGMA quick_check. Concurrent callers share a
// single run and its result.
func (db *Database) CheckIfCorrupted(ctx context.Context) (bool, error) {
	v, err, _ := db.checks.Do("quick_check", func() (interface{}, error) {
		return db.quickCheck(ctx)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (db *Database) quickCheck(ctx context.Context) (bool, error) {
	release := db.enter()
	defer release()

	orm, err := db.session(ctx)
	if err != nil {
		return db.corruptedBy(err)
	}

	var rows []string
	if err := orm.Raw("PRAGMA quick_check").Scan(&rows).Error; err != nil {
		return db.corruptedBy(db.bridge(err))
	}

	if len(rows) == 1 && strings.EqualFold(rows[0], "ok") {
		return false, nil
	}

	log.Error().Str("path", db.path).Strs("problems", rows).Msg("integrity check failed")
	trace.MarkCorrupted(db.path, db.Tag())
	return true, nil
}

// corruptedBy turns a failure of the check itself into a verdict when the
// engine reports the file as damaged.
func (db *Database) corruptedBy(err error) (bool, error) {
	var bridged *dberror.Error
	if errors.As(err, &bridged) && (bridged.Code == dberror.CodeCorrupt || bridged.Code == dberror.CodeNotADatabase) {
		trace.MarkCorrupted(db.path, db.Tag())
		return true, nil
	}
	return false, err
}
