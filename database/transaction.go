package database

import (
	"context"
	"runtime"
	"time"

	"gorm.io/gorm"
)

const defaultPausableSlice = 50 * time.Millisecond

// RunTransaction runs fn inside a transaction. It commits when fn returns
// nil and rolls back otherwise.
func (db *Database) RunTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	release := db.enter()
	defer release()

	orm, err := db.session(ctx)
	if err != nil {
		return err
	}
	return db.bridge(orm.Transaction(fn))
}

// RunPausableTransaction calls fn repeatedly until it reports stop or fails.
// Calls are grouped into transactions of at most one time slice; between
// slices the transaction is committed and other operations, including a
// Blockade, get a chance to run. isNew is true for the first call of each
// transaction. Cancelling ctx stops the loop after the current call.
func (db *Database) RunPausableTransaction(ctx context.Context, fn func(tx *gorm.DB, isNew bool) (stop bool, err error)) error {
	slice := db.opts.PausableSlice
	if slice <= 0 {
		slice = defaultPausableSlice
	}

	for {
		if err := ctx.Err(); err != nil {
			return db.bridge(err)
		}

		stopped := false
		err := db.RunTransaction(ctx, func(tx *gorm.DB) error {
			deadline := time.Now().Add(slice)
			isNew := true
			for {
				stop, err := fn(tx, isNew)
				if err != nil {
					return err
				}
				if stop {
					stopped = true
					return nil
				}
				isNew = false
				if time.Now().After(deadline) || ctx.Err() != nil {
					return nil
				}
			}
		})
		if err != nil || stopped {
			return err
		}
		runtime.Gosched()
	}
}
