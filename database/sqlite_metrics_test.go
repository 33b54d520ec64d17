package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"litebridge/dberror"

	"github.com/stretchr/testify/assert"
)

func TestClassifySQLiteError(t *testing.T) {
	cases := []struct {
		name         string
		err          error
		busy, locked bool
	}{
		{"nil", nil, false, false},
		{"busy message", errors.New("SQLITE_BUSY: database is locked"), true, false},
		{"locked message", errors.New("SQLITE_LOCKED: database table is locked"), false, true},
		{"cancelled", fmt.Errorf("query: %w", context.Canceled), false, false},
		{"bridged locked", dberror.New(dberror.LevelError, dberror.CodeLocked, dberror.Infos{
			dberror.KeyMessage: dberror.StringValue("whatever"),
		}), false, true},
		{"bridged busy", dberror.New(dberror.LevelError, dberror.CodeBusy, nil), true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			busy, locked := classifySQLiteError(tc.err)
			assert.Equal(t, tc.busy, busy)
			assert.Equal(t, tc.locked, locked)
		})
	}
}

func TestRecordSQLiteError(t *testing.T) {
	total, corrupt := SQLiteErrorsTotal(), SQLiteCorruptErrorsTotal()
	byCode := SQLiteErrorsByCode()[dberror.CodeCorrupt.String()]

	recordSQLiteError(dberror.New(dberror.LevelError, dberror.CodeCorrupt, nil))
	recordSQLiteError(dberror.New(dberror.LevelError, dberror.CodeNotADatabase, nil))

	assert.Equal(t, total+2, SQLiteErrorsTotal())
	assert.Equal(t, corrupt+2, SQLiteCorruptErrorsTotal())
	assert.Equal(t, byCode+1, SQLiteErrorsByCode()[dberror.CodeCorrupt.String()])
}
