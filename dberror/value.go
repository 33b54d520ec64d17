package dberror

import (
	"strconv"
)

// ValueKind is the type tag of an info value.
type ValueKind int

const (
	KindInteger ValueKind = iota + 1
	KindFloat
	KindString
)

// Value is a typed error info value holding exactly one of an integer,
// a float or a string.
type Value struct {
	kind ValueKind
	i    int64
	f    float64
	s    string
}

func IntValue(v int64) Value     { return Value{kind: KindInteger, i: v} }
func FloatValue(v float64) Value { return Value{kind: KindFloat, f: v} }
func StringValue(v string) Value { return Value{kind: KindString, s: v} }

func (v Value) Kind() ValueKind { return v.kind }

// Int returns the value as an integer, converting floats and numeric strings.
func (v Value) Int() int64 {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindFloat:
		return int64(v.f)
	case KindString:
		n, _ := strconv.ParseInt(v.s, 10, 64)
		return n
	}
	return 0
}

// Float returns the value as a float, converting integers and numeric strings.
func (v Value) Float() float64 {
	switch v.kind {
	case KindInteger:
		return float64(v.i)
	case KindFloat:
		return v.f
	case KindString:
		f, _ := strconv.ParseFloat(v.s, 64)
		return f
	}
	return 0
}

func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	}
	return ""
}

// Interface returns the underlying Go value, for JSON and log fields.
func (v Value) Interface() any {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	}
	return nil
}

// Infos holds well-known error info entries.
type Infos map[Key]Value

// ExtInfos holds entries whose key is not well known.
type ExtInfos map[string]Value
