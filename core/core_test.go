package core

import (
	"testing"

	"litebridge/dberror"
	"litebridge/trace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorLoggerEvictsOldest(t *testing.T) {
	l := NewErrorLogger(2)
	l.LogError("ERROR", "a", "one", "", nil)
	l.LogError("ERROR", "a", "two", "", nil)
	l.LogError("ERROR", "a", "three", "", map[string]interface{}{"k": 1})

	logs := l.GetErrorLogs()
	require.Len(t, logs, 2)
	assert.Equal(t, "three", logs[0].Message)
	assert.Equal(t, `{"k":1}`, logs[0].Context)
	assert.Equal(t, "two", logs[1].Message)
	assert.Nil(t, l.GetErrorLogByID(1))
	assert.NotNil(t, l.GetErrorLogByID(3))

	l.SetMaxLogs(1)
	assert.Len(t, l.GetErrorLogs(), 1)

	l.ClearErrorLogs()
	assert.Empty(t, l.GetErrorLogs())
}

func TestErrorLoggerRecordBridgedError(t *testing.T) {
	l := NewErrorLogger(10)
	err := dberror.New(dberror.LevelError, dberror.CodeBusy, dberror.Infos{
		dberror.KeyPath:         dberror.StringValue("/tmp/a.db"),
		dberror.KeySQL:          dberror.StringValue("SELECT 1"),
		dberror.KeyMessage:      dberror.StringValue("database is locked"),
		dberror.KeyExtendedCode: dberror.IntValue(261),
	})
	err.ExtInfos["retry"] = dberror.IntValue(2)

	got := l.Record(err)
	assert.Equal(t, "ERROR", got.Level)
	assert.Equal(t, 5, got.Code)
	assert.Equal(t, "database", got.Source)
	assert.Equal(t, "/tmp/a.db", got.Path)
	assert.Equal(t, "SELECT 1", got.SQL)
	assert.Equal(t, "database is locked", got.Message)
	assert.Equal(t, "extended code 261", got.Detail)
	assert.Equal(t, `{"retry":2}`, got.Context)
}

func TestInstallTracersRoutesErrors(t *testing.T) {
	t.Cleanup(trace.Reset)

	l := NewErrorLogger(10)
	hub := trace.NewHub(8)
	events, cancel := hub.Subscribe()
	defer cancel()
	InstallTracers(l, hub, TraceOptions{})

	trace.Report(dberror.LevelIgnore, dberror.CodeRow, dberror.Infos{dberror.KeyMessage: dberror.StringValue("noise")})
	trace.Report(dberror.LevelError, dberror.CodeCorrupt, dberror.Infos{dberror.KeyMessage: dberror.StringValue("bad page")})

	logs := l.GetErrorLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, "bad page", logs[0].Message)

	first := <-events
	second := <-events
	assert.Equal(t, "error", first.Kind)
	assert.Equal(t, "noise", first.Message)
	assert.Equal(t, int(dberror.CodeCorrupt), second.Code)

	UninstallTracers()
	trace.Report(dberror.LevelError, dberror.CodeBusy, nil)
	assert.Len(t, l.GetErrorLogs(), 1)
}

func TestInstallTracersAssertsNoFatal(t *testing.T) {
	t.Cleanup(trace.Reset)
	InstallTracers(NewErrorLogger(1), nil, TraceOptions{AssertNoFatal: true})

	assert.Panics(t, func() {
		trace.Report(dberror.LevelFatal, dberror.CodeCorrupt, nil)
	})
	assert.NotPanics(t, func() {
		trace.Report(dberror.LevelError, dberror.CodeCorrupt, nil)
	})
}

func TestAPIErrorUnwrap(t *testing.T) {
	assert.ErrorIs(t, NewNotFoundError("sample 3 not found"), ErrSampleNotFound)
	assert.ErrorIs(t, NewBadRequestError("bad"), ErrInvalidRequest)
	assert.ErrorIs(t, NewDatabaseBusyError("busy", dberror.ErrBusy), ErrDatabaseBusy)
	assert.Equal(t, 409, NewDatabaseBusyError("busy", nil).Code)
}
