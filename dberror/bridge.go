package dberror

// Native is an error object exposed by an engine binding: a level, a code,
// a message and a flat sequence of typed key/value pairs.
type Native interface {
	Level() int
	Code() int
	Message() string
	// EnumerateInfo calls fn once per info entry. Only the argument matching
	// kind is meaningful.
	EnumerateInfo(fn func(key string, kind ValueKind, i int64, f float64, s string))
}

// FromNative copies a native error field by field. Entries of an unknown kind
// are skipped; entries with keys that are not well known go to ExtInfos.
func FromNative(n Native) *Error {
	e := &Error{
		Level:    LevelFromRaw(n.Level()),
		Code:     CodeFromRaw(n.Code()),
		Infos:    Infos{KeyMessage: StringValue(n.Message())},
		ExtInfos: ExtInfos{},
	}
	n.EnumerateInfo(func(key string, kind ValueKind, i int64, f float64, s string) {
		var v Value
		switch kind {
		case KindInteger:
			v = IntValue(i)
		case KindFloat:
			v = FloatValue(f)
		case KindString:
			v = StringValue(s)
		default:
			return
		}
		if k := KeyFromString(key); k != KeyInvalid {
			e.Infos[k] = v
		} else {
			e.ExtInfos[key] = v
		}
	})
	return e
}
