package orm

import (
	"context"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

type Widget struct{}

func TestDefaultTableName(t *testing.T) {
	assert.Equal(t, "Widget", DefaultTableName[Widget]())
	assert.Equal(t, "Widget", DefaultTableName[*Widget]())
	assert.Equal(t, "custom", TableName[Widget]("custom"))
	assert.Equal(t, "Widget", TableName[Widget](""))
}

func TestConditionAnd(t *testing.T) {
	c := Where("id > ?", 1).And(Where("description = ?", "x"))
	assert.Equal(t, "(id > ?) AND (description = ?)", c.Expr)
	assert.Equal(t, []any{1, "x"}, c.Args)

	var nilCond *Condition
	assert.Same(t, c, nilCond.And(c))
	assert.Same(t, c, c.And(nil))
}

func TestQueryWindowed(t *testing.T) {
	assert.False(t, Query{Where: Where("id = 1")}.Windowed())
	assert.True(t, Query{Limit: Limit(1)}.Windowed())
	assert.True(t, Query{OrderBy: []OrderBy{Desc("id")}}.Windowed())
}

func TestIndexCreateSQL(t *testing.T) {
	ix := Index{Suffix: "_multiIndex", Columns: []IndexColumn{Column("id"), DescColumn("description")}}
	sql, err := ix.CreateSQL("Sample")
	require.NoError(t, err)
	assert.Equal(t, `CREATE INDEX IF NOT EXISTS "Sample_multiIndex" ON "Sample"("id", "description" DESC)`, sql)

	unique := Index{Suffix: "_uniqueIndex", Columns: []IndexColumn{Column("id")}, Unique: true}
	sql, err = unique.CreateSQL("sampleTable")
	require.NoError(t, err)
	assert.Equal(t, `CREATE UNIQUE INDEX IF NOT EXISTS "sampleTable_uniqueIndex" ON "sampleTable"("id")`, sql)

	_, err = Index{Suffix: "_x"}.CreateSQL("t")
	assert.Error(t, err)
}

func TestJSONColumn(t *testing.T) {
	v, err := NewJSON(map[string]string{"a": "b"}).Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"b"}`, string(v.([]byte)))

	var j JSON[map[string]string]
	require.NoError(t, j.Scan([]byte(`{"a":"b"}`)))
	assert.True(t, j.Valid)
	assert.Equal(t, "b", j.V["a"])

	require.NoError(t, j.Scan([]byte{}))
	assert.False(t, j.Valid)

	empty, err := JSON[int]{}.Value()
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestSealedRoundTrip(t *testing.T) {
	t.Cleanup(func() { _ = ConfigCipher(nil) })

	assert.False(t, CipherConfigured())
	_, err := Sealed("secret").Value()
	require.ErrorIs(t, err, ErrNoCipher)

	require.NoError(t, ConfigCipher([]byte("passphrase")))
	assert.True(t, CipherConfigured())
	v, err := Sealed("secret").Value()
	require.NoError(t, err)
	box := v.([]byte)
	assert.NotContains(t, string(box), "secret")

	var s Sealed
	require.NoError(t, s.Scan(box))
	assert.Equal(t, Sealed("secret"), s)

	require.NoError(t, ConfigCipher([]byte("other")))
	assert.Error(t, s.Scan(box))

	nilValue, err := Sealed("").Value()
	require.NoError(t, err)
	assert.Nil(t, nilValue)
}

type jsonBlobRow struct {
	ID   int64
	Body *map[string]string `gorm:"type:blob;serializer:jsonblob"`
}

func TestJSONBlobSerializer(t *testing.T) {
	sch, err := schema.Parse(&jsonBlobRow{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)
	field := sch.LookUpField("body")
	require.NotNil(t, field)
	ctx := context.Background()

	var row jsonBlobRow
	dst := reflect.ValueOf(&row).Elem()
	require.NoError(t, JSONBlobSerializer{}.Scan(ctx, field, dst, []byte(`{"a":"b"}`)))
	require.NotNil(t, row.Body)
	assert.Equal(t, "b", (*row.Body)["a"])

	for _, raw := range []any{nil, []byte{}, []byte("{{"), "42"} {
		row.Body = &map[string]string{"stale": "x"}
		require.NoError(t, JSONBlobSerializer{}.Scan(ctx, field, dst, raw))
		assert.Nil(t, row.Body, "%v", raw)
	}
	assert.Error(t, JSONBlobSerializer{}.Scan(ctx, field, dst, 42))

	v, err := JSONBlobSerializer{}.Value(ctx, field, dst, row.Body)
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = JSONBlobSerializer{}.Value(ctx, field, dst, &map[string]string{"a": "b"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"b"}`, string(v.([]byte)))
}
