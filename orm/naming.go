package orm

import "reflect"

// DefaultTableName returns the Go name of T, dereferencing pointer types.
// Sample and *Sample both map to "Sample".
func DefaultTableName[T any]() string {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	return typ.Name()
}

// TableName returns name when set, otherwise the default table name of T.
func TableName[T any](name string) string {
	if name != "" {
		return name
	}
	return DefaultTableName[T]()
}
