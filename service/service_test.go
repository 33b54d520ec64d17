package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"litebridge/core"
	"litebridge/database"
	"litebridge/models"
	"litebridge/orm"
	"litebridge/trace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "service.db"), database.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close(nil) //nolint:errcheck
		trace.Reset()
	})
	return db
}

func strPtr(s string) *string { return &s }

func TestManagerSuppressesErrors(t *testing.T) {
	ctx := context.Background()
	m := NewManager(openTestDB(t))

	// The table was never created: every query fails and yields nothing.
	assert.Empty(t, GetObjects[models.Sample](ctx, m, orm.Query{}))
	assert.NotNil(t, GetObjects[models.Sample](ctx, m, orm.Query{}))
	_, ok := GetObject[models.Sample](ctx, m, orm.Query{})
	assert.False(t, ok)
	assert.NotPanics(t, func() {
		Delete[models.Sample](ctx, m, orm.Query{})
		InsertOrReplace(ctx, m, []models.Sample{{ID: 1}})
	})
}

func TestManagerCustomTable(t *testing.T) {
	ctx := context.Background()
	m := NewManager(openTestDB(t))

	CreateTable[models.Sample](ctx, m, InTable("other"))
	InsertOrReplace(ctx, m, []models.Sample{{ID: 1, Description: strPtr("x")}}, InTable("other"))
	InsertOrIgnore(ctx, m, []models.Sample{{ID: 2, Description: strPtr("y")}}, InTable("other"), OnColumns("id"))

	got := GetObjects[models.Sample](ctx, m, orm.Query{OrderBy: []orm.OrderBy{orm.Asc("id")}}, InTable("other"))
	require.Len(t, got, 2)
	assert.Equal(t, "x", *got[0].Description)
	assert.Nil(t, got[1].Description)

	exists, err := m.Database().ExistTable(ctx, "Sample")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRunDemo(t *testing.T) {
	ctx := context.Background()
	m := NewManager(openTestDB(t))

	report, err := RunDemo(ctx, m, 5)
	require.NoError(t, err)

	assert.Equal(t, 5, report.Inserted)
	assert.Equal(t, 6, report.AfterIgnore)
	require.NotNil(t, report.AfterUpdate)
	assert.Equal(t, "updated", *report.AfterUpdate.Description)
	require.NotNil(t, report.AfterUpdate.MyClass)
	assert.Equal(t, "v1-2", report.AfterUpdate.MyClass.Variable1)

	require.Len(t, report.FirstPage, 3)
	assert.Equal(t, int64(6), report.FirstPage[0].ID)
	assert.Equal(t, 4, report.AfterDelete)
	assert.Equal(t, 50, report.PausableRows)
	assert.False(t, report.Corrupted)

	first, ok := GetObject[models.Sample](ctx, m, orm.Query{Where: orm.Where("id = ?", 1)})
	require.True(t, ok)
	assert.Equal(t, "sample 1", *first.Description)

	// A second run replaces rows instead of failing on conflicts.
	_, err = RunDemo(ctx, m, 5)
	require.NoError(t, err)
}

func TestSampleServiceCRUD(t *testing.T) {
	ctx := context.Background()
	svc := NewSampleService(openTestDB(t), "")
	require.NoError(t, svc.EnsureTable(ctx))
	assert.Equal(t, "Sample", svc.TableName())

	created, err := svc.Create(ctx, models.SampleCreate{ID: 1, SampleFields: models.SampleFields{Description: strPtr(" first ")}})
	require.NoError(t, err)
	assert.Equal(t, "first", *created.Description)

	_, err = svc.Create(ctx, models.SampleCreate{ID: 1, SampleFields: models.SampleFields{Description: strPtr("other")}})
	assert.ErrorIs(t, err, ErrSampleAlreadyExists)
	// Resubmitting the stored payload is still a conflict.
	_, err = svc.Create(ctx, models.SampleCreate{ID: 1, SampleFields: models.SampleFields{Description: strPtr("first")}})
	assert.ErrorIs(t, err, ErrSampleAlreadyExists)

	_, err = svc.Save(ctx, models.SampleCreate{ID: 2, SampleFields: models.SampleFields{Description: strPtr("second"), MyClass: &models.Customer{Variable1: "a"}}})
	require.NoError(t, err)

	list, total, err := svc.ListPage(ctx, 1, 10, "-id")
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, list, 2)
	assert.Equal(t, int64(2), list[0].ID)
	assert.Equal(t, "a", list[0].MyClass.Variable1)

	_, _, err = svc.ListPage(ctx, 1, 10, "password")
	var apiErr *core.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 400, apiErr.Code)

	updated, err := svc.Update(ctx, 1, models.SampleUpdate{Columns: []string{"description"}, Values: models.SampleFields{Description: strPtr("renamed")}})
	require.NoError(t, err)
	assert.Equal(t, "renamed", *updated.Description)

	_, err = svc.Update(ctx, 1, models.SampleUpdate{Columns: []string{"id"}})
	assert.ErrorIs(t, err, core.ErrInvalidRequest)
	_, err = svc.Update(ctx, 99, models.SampleUpdate{Columns: []string{"description"}})
	assert.ErrorIs(t, err, core.ErrSampleNotFound)

	require.NoError(t, svc.Delete(ctx, 1))
	assert.ErrorIs(t, svc.Delete(ctx, 1), core.ErrSampleNotFound)
	_, err = svc.Get(ctx, 1)
	assert.ErrorIs(t, err, core.ErrSampleNotFound)
}

func TestSampleServiceSealedNote(t *testing.T) {
	ctx := context.Background()
	svc := NewSampleService(openTestDB(t), "")
	require.NoError(t, svc.EnsureTable(ctx))

	require.NoError(t, orm.ConfigCipher(nil))
	_, err := svc.Save(ctx, models.SampleCreate{ID: 1, SampleFields: models.SampleFields{Note: "secret"}})
	assert.ErrorIs(t, err, orm.ErrNoCipher)
	_, err = svc.Create(ctx, models.SampleCreate{ID: 1, SampleFields: models.SampleFields{Note: "secret"}})
	assert.ErrorIs(t, err, orm.ErrNoCipher)

	_, err = svc.Save(ctx, models.SampleCreate{ID: 1})
	require.NoError(t, err)
	_, err = svc.Update(ctx, 1, models.SampleUpdate{Columns: []string{"note"}, Values: models.SampleFields{Note: "secret"}})
	assert.ErrorIs(t, err, orm.ErrNoCipher)
	// Clearing the note needs no key.
	_, err = svc.Update(ctx, 1, models.SampleUpdate{Columns: []string{"note"}})
	require.NoError(t, err)

	require.NoError(t, orm.ConfigCipher([]byte("test key")))
	t.Cleanup(func() { orm.ConfigCipher(nil) }) //nolint:errcheck

	_, err = svc.Save(ctx, models.SampleCreate{ID: 1, SampleFields: models.SampleFields{Note: "secret"}})
	require.NoError(t, err)
	got, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, orm.Sealed("secret"), got.Note)
}

func TestSampleServiceUnreadableCustomer(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	svc := NewSampleService(db, "")
	require.NoError(t, svc.EnsureTable(ctx))

	g, err := db.ORM()
	require.NoError(t, err)
	require.NoError(t, g.Exec(`INSERT INTO "Sample" (id, my_class) VALUES (1, x''), (2, x'7b7b'), (3, NULL)`).Error)
	require.NoError(t, g.Exec(`INSERT INTO "Sample" (id, my_class) VALUES (4, '{"variable1":"a"}')`).Error)

	got, err := database.GetTable[models.Sample](db, "").GetObjects(ctx, orm.Query{OrderBy: []orm.OrderBy{orm.Asc("id")}})
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Nil(t, got[0].MyClass)
	assert.Nil(t, got[1].MyClass)
	assert.Nil(t, got[2].MyClass)
	require.NotNil(t, got[3].MyClass)
	assert.Equal(t, models.Customer{Variable1: "a"}, *got[3].MyClass)
}

func TestDatabaseServiceMaintenance(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	hub := trace.NewHub(16)
	svc := NewDatabaseService(db, hub)
	samples := NewSampleService(db, "")
	require.NoError(t, samples.EnsureTable(ctx))
	_, err := samples.Save(ctx, models.SampleCreate{ID: 1})
	require.NoError(t, err)

	corrupted, err := svc.CheckIntegrity(ctx)
	require.NoError(t, err)
	assert.False(t, corrupted)

	require.NoError(t, svc.Checkpoint(ctx, "truncate"))
	require.NoError(t, svc.Checkpoint(ctx, ""))
	require.Error(t, svc.Checkpoint(ctx, "full"))
	require.NoError(t, svc.Backup(ctx))

	events, cancel := hub.Subscribe()
	defer cancel()
	score, err := svc.Retrieve(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-9)
	ev := <-events
	assert.Equal(t, "retrieve", ev.Kind)

	st, err := svc.Stats()
	require.NoError(t, err)
	assert.Equal(t, db.Path(), st.Path)
	assert.True(t, st.HasDeposits)
	assert.Equal(t, 1, st.TraceSubscribers)

	_, err = samples.Get(ctx, 1)
	require.NoError(t, err)
}

func TestDatabaseServicePublishesObservedCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.db")
	garbage := make([]byte, 4096)
	for i := range garbage {
		garbage[i] = 'x'
	}
	require.NoError(t, os.WriteFile(path, garbage, 0o600))

	opts := database.DefaultOptions()
	opts.PragmasEnabled = false
	db, err := database.Open(path, opts)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close(nil) //nolint:errcheck
		trace.Reset()
	})

	hub := trace.NewHub(16)
	svc := NewDatabaseService(db, hub)
	events, cancel := hub.Subscribe()
	defer cancel()

	next := func() trace.Event {
		t.Helper()
		select {
		case ev := <-events:
			return ev
		case <-time.After(2 * time.Second):
			t.Fatal("no event published")
			return trace.Event{}
		}
	}

	// An ordinary query fails on the garbage file and is enough to publish.
	g, err := db.ORM()
	require.NoError(t, err)
	require.Error(t, g.Exec("SELECT * FROM sqlite_master").Error)
	ev := next()
	assert.Equal(t, "corruption", ev.Kind)
	assert.Equal(t, db.Path(), ev.Path)

	corrupted, err := svc.CheckIntegrity(context.Background())
	require.NoError(t, err)
	assert.True(t, corrupted)
	assert.Equal(t, "corruption", next().Kind)
}
