package dberror

import (
	"context"
	"errors"
)

// Context describes where a driver error happened.
type Context struct {
	Path   string
	SQL    string
	Tag    int64
	Source string
}

// codeExtractor pulls the raw (possibly extended) result code out of a driver error.
type codeExtractor func(err error) (primary, extended int, ok bool)

var extractors = []codeExtractor{codedError}

// registerExtractor is used by driver-specific files guarded by build tags.
func registerExtractor(fn codeExtractor) {
	extractors = append(extractors, fn)
}

// codedError covers the pure-Go SQLite driver, whose errors expose Code().
func codedError(err error) (int, int, bool) {
	var coded interface{ Code() int }
	if !errors.As(err, &coded) {
		return 0, 0, false
	}
	raw := coded.Code()
	return raw & 0xff, raw, true
}

// FromDriverError bridges an error returned by a database/sql driver.
// It returns nil for a nil err.
func FromDriverError(err error, ctx Context) *Error {
	if err == nil {
		return nil
	}

	var bridged *Error
	if errors.As(err, &bridged) {
		fillContext(bridged, ctx)
		return bridged
	}

	code := CodeError
	extended := -1
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = CodeInterrupt
	default:
		for _, extract := range extractors {
			if primary, ext, ok := extract(err); ok {
				code = CodeFromRaw(primary)
				extended = ext
				break
			}
		}
	}

	e := &Error{
		Level:    levelForCode(code),
		Code:     code,
		Infos:    Infos{KeyMessage: StringValue(err.Error())},
		ExtInfos: ExtInfos{},
		cause:    err,
	}
	if extended >= 0 {
		e.Infos[KeyExtendedCode] = IntValue(int64(extended))
	}
	e.Infos[KeyType] = StringValue("SQLite")
	fillContext(e, ctx)
	return e
}

func fillContext(e *Error, ctx Context) {
	if e.Infos == nil {
		e.Infos = Infos{}
	}
	if ctx.Path != "" {
		if _, ok := e.Infos[KeyPath]; !ok {
			e.Infos[KeyPath] = StringValue(ctx.Path)
		}
	}
	if ctx.SQL != "" {
		if _, ok := e.Infos[KeySQL]; !ok {
			e.Infos[KeySQL] = StringValue(ctx.SQL)
		}
	}
	if ctx.Tag != 0 {
		if _, ok := e.Infos[KeyTag]; !ok {
			e.Infos[KeyTag] = IntValue(ctx.Tag)
		}
	}
	if ctx.Source != "" {
		if _, ok := e.Infos[KeySource]; !ok {
			e.Infos[KeySource] = StringValue(ctx.Source)
		}
	}
}
