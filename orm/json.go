package orm

import (
	"context"
	"database/sql/driver"
	"fmt"
	"reflect"

	"github.com/goccy/go-json"
	"gorm.io/gorm/schema"
)

func init() {
	schema.RegisterSerializer("jsonblob", JSONBlobSerializer{})
}

// JSON stores V as a JSON blob. An empty or NULL column scans as the zero V
// with Valid false.
type JSON[V any] struct {
	V     V
	Valid bool
}

// NewJSON wraps v as a valid JSON column value.
func NewJSON[V any](v V) JSON[V] {
	return JSON[V]{V: v, Valid: true}
}

func (j JSON[V]) Value() (driver.Value, error) {
	if !j.Valid {
		return nil, nil
	}
	return json.Marshal(j.V)
}

func (j *JSON[V]) Scan(src any) error {
	var zero V
	j.V, j.Valid = zero, false

	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("orm.JSON: cannot scan %T", src)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &j.V); err != nil {
		return fmt.Errorf("orm.JSON: %w", err)
	}
	j.Valid = true
	return nil
}

// GormDataType stores JSON columns as BLOB.
func (JSON[V]) GormDataType() string { return "blob" }

// JSONBlobSerializer stores a field as a JSON BLOB. It is selected with the
// `serializer:jsonblob` tag. NULL, empty and undecodable column values scan
// as the field's zero value, so a pointer field reads back as nil.
type JSONBlobSerializer struct{}

func (JSONBlobSerializer) Scan(ctx context.Context, field *schema.Field, dst reflect.Value, dbValue any) error {
	var data []byte
	switch v := dbValue.(type) {
	case nil:
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("jsonblob: cannot scan %T into %s", dbValue, field.Name)
	}

	decoded := reflect.New(field.FieldType)
	if len(data) > 0 {
		if err := json.Unmarshal(data, decoded.Interface()); err != nil {
			decoded = reflect.New(field.FieldType)
		}
	}
	field.ReflectValueOf(ctx, dst).Set(decoded.Elem())
	return nil
}

func (JSONBlobSerializer) Value(_ context.Context, _ *schema.Field, _ reflect.Value, fieldValue any) (any, error) {
	if fieldValue == nil {
		return nil, nil
	}
	if rv := reflect.ValueOf(fieldValue); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, nil
	}
	data, err := json.Marshal(fieldValue)
	if err != nil {
		return nil, fmt.Errorf("jsonblob: %w", err)
	}
	return data, nil
}
