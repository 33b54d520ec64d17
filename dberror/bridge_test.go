package dberror

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNative struct {
	level   int
	code    int
	message string
	entries []fakeEntry
}

type fakeEntry struct {
	key  string
	kind ValueKind
	i    int64
	f    float64
	s    string
}

func (n fakeNative) Level() int      { return n.level }
func (n fakeNative) Code() int       { return n.code }
func (n fakeNative) Message() string { return n.message }
func (n fakeNative) EnumerateInfo(fn func(string, ValueKind, int64, float64, string)) {
	for _, e := range n.entries {
		fn(e.key, e.kind, e.i, e.f, e.s)
	}
}

func TestFromNativeCopiesEveryEntry(t *testing.T) {
	n := fakeNative{
		level:   int(LevelWarning),
		code:    int(CodeBusy),
		message: "database is locked",
		entries: []fakeEntry{
			{key: "Path", kind: KindString, s: "/tmp/a.db"},
			{key: "Tag", kind: KindInteger, i: 42},
			{key: "ExtCode", kind: KindInteger, i: 261},
			{key: "SQL", kind: KindString, s: "SELECT 1"},
			{key: "Cost", kind: KindFloat, f: 0.25},
			{key: "Handle", kind: KindString, s: "main"},
		},
	}

	e := FromNative(n)
	require.Equal(t, LevelWarning, e.Level)
	require.Equal(t, CodeBusy, e.Code)
	assert.Equal(t, "database is locked", e.Message())
	assert.Equal(t, "/tmp/a.db", e.Path())
	assert.Equal(t, "SELECT 1", e.SQL())

	tag, ok := e.Tag()
	require.True(t, ok)
	assert.Equal(t, int64(42), tag)

	ext, ok := e.ExtendedCode()
	require.True(t, ok)
	assert.Equal(t, 261, ext)

	require.Len(t, e.ExtInfos, 2)
	assert.Equal(t, KindFloat, e.ExtInfos["Cost"].Kind())
	assert.Equal(t, 0.25, e.ExtInfos["Cost"].Float())
	assert.Equal(t, "main", e.ExtInfos["Handle"].String())
}

func TestFromNativeSkipsUnknownKinds(t *testing.T) {
	e := FromNative(fakeNative{
		level:   int(LevelError),
		code:    int(CodeError),
		message: "boom",
		entries: []fakeEntry{{key: "Path", kind: ValueKind(99), s: "ignored"}},
	})
	_, ok := e.Infos[KeyPath]
	assert.False(t, ok)
	assert.Empty(t, e.ExtInfos)
}

func TestFromNativeUnknownLevelAndCodeFallBackToError(t *testing.T) {
	e := FromNative(fakeNative{level: 77, code: 250, message: "?"})
	assert.Equal(t, LevelError, e.Level)
	assert.Equal(t, CodeError, e.Code)
}

func TestMappingsRoundTrip(t *testing.T) {
	for l := range levelNames {
		assert.Equal(t, l, LevelFromRaw(int(l)), "level %s", l)
		parsed, ok := ParseLevel(l.String())
		require.True(t, ok)
		assert.Equal(t, l, parsed)
	}
	for c := range codeNames {
		assert.Equal(t, c, CodeFromRaw(int(c)), "code %s", c)
	}
	for _, k := range wellKnownKeys {
		assert.Equal(t, k, KeyFromString(k.String()))
	}
	assert.Equal(t, KeyInvalid, KeyFromString("NotAKey"))
}

func TestCodeFromRawReducesExtendedCodes(t *testing.T) {
	// SQLITE_BUSY_SNAPSHOT = 517
	assert.Equal(t, CodeBusy, CodeFromRaw(517))
	// SQLITE_CONSTRAINT_UNIQUE = 2067
	assert.Equal(t, CodeConstraint, CodeFromRaw(2067))
}

type codedErr struct{ code int }

func (e codedErr) Error() string { return fmt.Sprintf("sqlite error %d", e.code) }
func (e codedErr) Code() int     { return e.code }

func TestFromDriverErrorUsesDriverCode(t *testing.T) {
	err := fmt.Errorf("insert: %w", codedErr{code: 2067})
	e := FromDriverError(err, Context{Path: "/data/a.db", SQL: "INSERT INTO t VALUES (1)", Tag: 7})

	require.NotNil(t, e)
	assert.Equal(t, CodeConstraint, e.Code)
	assert.Equal(t, LevelError, e.Level)
	ext, ok := e.ExtendedCode()
	require.True(t, ok)
	assert.Equal(t, 2067, ext)
	assert.Equal(t, "/data/a.db", e.Path())
	assert.True(t, errors.Is(e, ErrConstraint))
	assert.False(t, errors.Is(e, ErrBusy))
	assert.True(t, errors.Is(e, err))
}

func TestFromDriverErrorContextCancel(t *testing.T) {
	e := FromDriverError(context.Canceled, Context{})
	assert.Equal(t, CodeInterrupt, e.Code)
	assert.True(t, errors.Is(e, context.Canceled))
}

func TestFromDriverErrorPassesBridgedThrough(t *testing.T) {
	orig := New(LevelFatal, CodeCorrupt, Infos{KeyMessage: StringValue("malformed")})
	e := FromDriverError(fmt.Errorf("wrap: %w", orig), Context{Path: "/x.db"})
	assert.Same(t, orig, e)
	assert.Equal(t, "/x.db", e.Path())
	assert.Nil(t, FromDriverError(nil, Context{}))
}

func TestErrorString(t *testing.T) {
	e := New(LevelError, CodeBusy, Infos{
		KeyMessage: StringValue("database is locked"),
		KeyPath:    StringValue("/a.db"),
	})
	e.ExtInfos["z"] = IntValue(1)
	e.ExtInfos["a"] = StringValue("x")
	assert.Equal(t, "[ERROR, 5] Path: /a.db, Message: database is locked, a: x, z: 1", e.Error())
}
