// Package dberror carries errors raised by the SQLite engine into Go as
// leveled, coded values with typed key/value details.
package dberror

import (
	"sort"
	"strconv"
	"strings"
)

// Error is a database error bridged from the engine.
type Error struct {
	Level    Level
	Code     Code
	Infos    Infos
	ExtInfos ExtInfos

	cause error
}

// New builds an Error. A nil infos map is allowed.
func New(level Level, code Code, infos Infos) *Error {
	e := &Error{Level: level, Code: code, Infos: Infos{}, ExtInfos: ExtInfos{}}
	for k, v := range infos {
		e.Infos[k] = v
	}
	return e
}

// Sentinels for errors.Is. Matching compares codes only.
var (
	ErrBusy       = &Error{Code: CodeBusy}
	ErrLocked     = &Error{Code: CodeLocked}
	ErrCorrupt    = &Error{Code: CodeCorrupt}
	ErrConstraint = &Error{Code: CodeConstraint}
	ErrInterrupt  = &Error{Code: CodeInterrupt}
	ErrMisuse     = &Error{Code: CodeMisuse}
)

func (e *Error) Message() string { return e.Infos[KeyMessage].String() }
func (e *Error) Path() string    { return e.Infos[KeyPath].String() }
func (e *Error) SQL() string     { return e.Infos[KeySQL].String() }
func (e *Error) Source() string  { return e.Infos[KeySource].String() }
func (e *Error) Type() string    { return e.Infos[KeyType].String() }

// Tag returns the database tag, if the error carries one.
func (e *Error) Tag() (int64, bool) {
	v, ok := e.Infos[KeyTag]
	if !ok {
		return 0, false
	}
	return v.Int(), true
}

// ExtendedCode returns the engine's extended result code, if present.
func (e *Error) ExtendedCode() (int, bool) {
	v, ok := e.Infos[KeyExtendedCode]
	if !ok {
		return 0, false
	}
	return int(v.Int()), true
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(e.Level.String())
	b.WriteString(", ")
	b.WriteString(strconv.Itoa(int(e.Code)))
	b.WriteString("]")

	first := true
	write := func(k, v string) {
		if first {
			b.WriteString(" ")
			first = false
		} else {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
	}
	for _, k := range wellKnownKeys {
		if v, ok := e.Infos[k]; ok {
			write(string(k), v.String())
		}
	}

	keys := make([]string, 0, len(e.ExtInfos))
	for k := range e.ExtInfos {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		write(k, e.ExtInfos[k].String())
	}
	return b.String()
}

// Unwrap returns the driver error this error was bridged from, if any.
func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Fields flattens infos and ext infos into a single map for structured logs.
func (e *Error) Fields() map[string]any {
	out := make(map[string]any, len(e.Infos)+len(e.ExtInfos))
	for k, v := range e.Infos {
		out[string(k)] = v.Interface()
	}
	for k, v := range e.ExtInfos {
		out[k] = v.Interface()
	}
	return out
}
