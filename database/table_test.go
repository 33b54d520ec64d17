package database

import (
	"context"
	"testing"

	"litebridge/orm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableCreateAddsIndexes(t *testing.T) {
	db := openTestDB(t)
	seedItems(t, db, 0)

	g, err := db.ORM()
	require.NoError(t, err)
	var names []string
	require.NoError(t, g.Raw(`SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = 'item'`).Scan(&names).Error)
	assert.Contains(t, names, "item_nameIndex")
}

func TestTableCustomName(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	tbl := GetTable[item](db, "items_v2")
	require.NoError(t, tbl.Create(ctx))
	_, err := tbl.InsertOrReplace(ctx, []item{{ID: 1, Name: "a"}})
	require.NoError(t, err)

	assert.Equal(t, "items_v2", tbl.Name())
	assert.Equal(t, int64(1), countRows(t, db, "items_v2"))
}

func TestTableInsertOrIgnoreKeepsExisting(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	tbl := seedItems(t, db, 2)

	n, err := tbl.InsertOrIgnore(ctx, []item{{ID: 1, Name: "changed"}, {ID: 3, Name: "c"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	got, ok, err := tbl.GetObject(ctx, orm.Query{Where: orm.Where("id = ?", 1)})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", got.Name)
	assert.Equal(t, int64(3), countRows(t, db, "item"))

	n, err = tbl.InsertOrReplace(ctx, []item{{ID: 1, Name: "changed"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	got, _, err = tbl.GetObject(ctx, orm.Query{Where: orm.Where("id = ?", 1)})
	require.NoError(t, err)
	assert.Equal(t, "changed", got.Name)
}

func TestTableInsertColumns(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	tbl := seedItems(t, db, 0)

	_, err := tbl.InsertOrReplace(ctx, []item{{ID: 7, Name: "n", Score: 99}}, "id", "name")
	require.NoError(t, err)
	got, ok, err := tbl.GetObject(ctx, orm.Query{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "n", got.Name)
	assert.Zero(t, got.Score)
}

func TestTableEmptyInsertIsNoop(t *testing.T) {
	db := openTestDB(t)
	tbl := seedItems(t, db, 0)
	n, err := tbl.InsertOrReplace(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTableInsertOrIgnoreReportsConflicts(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	tbl := seedItems(t, db, 0)

	n, err := tbl.InsertOrIgnore(ctx, []item{{ID: 5, Name: "e"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = tbl.InsertOrIgnore(ctx, []item{{ID: 5, Name: "e"}})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTableGetObjectsOrderLimitOffset(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	tbl := seedItems(t, db, 5)

	got, err := tbl.GetObjects(ctx, orm.Query{
		OrderBy: []orm.OrderBy{orm.Desc("id")},
		Limit:   orm.Limit(2),
		Offset:  orm.Offset(1),
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(4), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)

	none, err := tbl.GetObjects(ctx, orm.Query{Where: orm.Where("id > ?", 100)})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	_, ok, err := tbl.GetObject(ctx, orm.Query{Where: orm.Where("id > ?", 100)})
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := tbl.Count(ctx, orm.Query{Where: orm.Where("id > ?", 2), Limit: orm.Limit(1)})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestTableDeleteWindowed(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	tbl := seedItems(t, db, 5)

	n, err := tbl.Delete(ctx, orm.Query{OrderBy: []orm.OrderBy{orm.Desc("id")}, Limit: orm.Limit(2)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rest, err := tbl.GetObjects(ctx, orm.Query{OrderBy: []orm.OrderBy{orm.Asc("id")}})
	require.NoError(t, err)
	require.Len(t, rest, 3)
	assert.Equal(t, int64(3), rest[2].ID)

	n, err = tbl.Delete(ctx, orm.Query{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestTableUpdate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	tbl := seedItems(t, db, 3)

	n, err := tbl.Update(ctx, []string{"name"}, item{Name: "renamed", Score: 1}, orm.Query{Where: orm.Where("id = ?", 2)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, _, err := tbl.GetObject(ctx, orm.Query{Where: orm.Where("id = ?", 2)})
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.Equal(t, 20, got.Score)

	n, err = tbl.Update(ctx, nil, item{Name: "all", Score: 5}, orm.Query{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = tbl.Update(ctx, []string{"Score"}, item{Score: 0}, orm.Query{
		OrderBy: []orm.OrderBy{orm.Asc("id")},
		Limit:   orm.Limit(1),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestTableUpdateUnknownColumn(t *testing.T) {
	db := openTestDB(t)
	tbl := seedItems(t, db, 1)
	_, err := tbl.Update(context.Background(), []string{"missing"}, item{}, orm.Query{})
	require.Error(t, err)
}
