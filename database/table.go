package database

import (
	"context"
	"fmt"
	"reflect"

	"litebridge/orm"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Table binds a record type to a table of a Database. Every method returns
// errors as *dberror.Error.
type Table[T any] struct {
	db   *Database
	name string
}

// GetTable returns the table called name, or the record type's name when
// name is empty. The table is not created.
func GetTable[T any](db *Database, name string) *Table[T] {
	return &Table[T]{db: db, name: orm.TableName[T](name)}
}

func (t *Table[T]) Name() string { return t.name }

func (t *Table[T]) Database() *Database { return t.db }

// Create creates the table, adds missing columns, and creates the indexes
// declared through orm.IndexedTable.
func (t *Table[T]) Create(ctx context.Context) error {
	release := t.db.enter()
	defer release()

	tx, err := t.db.session(ctx)
	if err != nil {
		return err
	}
	if err := tx.Table(t.name).AutoMigrate(new(T)); err != nil {
		return t.db.bridge(err)
	}

	for _, ix := range indexesOf[T]() {
		stmt, err := ix.CreateSQL(t.name)
		if err != nil {
			return t.db.bridge(err)
		}
		if err := tx.Exec(stmt).Error; err != nil {
			return t.db.bridge(err)
		}
	}
	return nil
}

func indexesOf[T any]() []orm.Index {
	var zero T
	if it, ok := any(zero).(orm.IndexedTable); ok {
		return it.TableIndexes()
	}
	if it, ok := any(&zero).(orm.IndexedTable); ok {
		return it.TableIndexes()
	}
	return nil
}

// InsertOrReplace inserts objs, replacing rows that conflict on a unique
// constraint. columns restricts the inserted columns; none means all. It
// returns the number of rows written.
func (t *Table[T]) InsertOrReplace(ctx context.Context, objs []T, columns ...string) (int64, error) {
	return t.insert(ctx, "OR REPLACE", objs, columns)
}

// InsertOrIgnore inserts objs, skipping rows that conflict on a unique
// constraint. Generated primary keys written back into objs are only
// reliable when no row was skipped. It returns the number of rows actually
// inserted, so zero means every row conflicted.
func (t *Table[T]) InsertOrIgnore(ctx context.Context, objs []T, columns ...string) (int64, error) {
	return t.insert(ctx, "OR IGNORE", objs, columns)
}

func (t *Table[T]) insert(ctx context.Context, modifier string, objs []T, columns []string) (int64, error) {
	if len(objs) == 0 {
		return 0, nil
	}
	release := t.db.enter()
	defer release()

	tx, err := t.db.session(ctx)
	if err != nil {
		return 0, err
	}
	tx = tx.Table(t.name).Clauses(clause.Insert{Modifier: modifier})
	if len(columns) > 0 {
		tx = tx.Select(columns)
	}
	res := tx.Create(&objs)
	if err := t.db.bridge(res.Error); err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

// Delete removes the rows selected by q and returns how many were deleted.
func (t *Table[T]) Delete(ctx context.Context, q orm.Query) (int64, error) {
	release := t.db.enter()
	defer release()

	tx, err := t.db.session(ctx)
	if err != nil {
		return 0, err
	}
	res := t.scope(tx, q).Delete(new(T))
	if res.Error != nil {
		return 0, t.db.bridge(res.Error)
	}
	return res.RowsAffected, nil
}

// Update sets columns of the rows selected by q to the values in obj.
// Columns are database column names; none means every non-key column.
func (t *Table[T]) Update(ctx context.Context, columns []string, obj T, q orm.Query) (int64, error) {
	release := t.db.enter()
	defer release()

	tx, err := t.db.session(ctx)
	if err != nil {
		return 0, err
	}
	values, err := columnValues(ctx, tx, &obj, columns)
	if err != nil {
		return 0, t.db.bridge(err)
	}
	res := t.scope(tx, q).Updates(values)
	if res.Error != nil {
		return 0, t.db.bridge(res.Error)
	}
	return res.RowsAffected, nil
}

// scope restricts tx to the rows selected by q. Ordering and windowing are
// applied through a rowid sub-select since SQLite only honours them on
// DELETE and UPDATE when built with a compile-time option.
func (t *Table[T]) scope(tx *gorm.DB, q orm.Query) *gorm.DB {
	scoped := tx.Table(t.name)
	if q.Windowed() {
		sub := q.Apply(tx.Session(&gorm.Session{NewDB: true}).Table(t.name).Select("rowid"))
		return scoped.Where("rowid IN (?)", sub)
	}
	if q.Where == nil || q.Where.Expr == "" {
		return scoped.Session(&gorm.Session{AllowGlobalUpdate: true})
	}
	return q.ApplyWhere(scoped)
}

func columnValues(ctx context.Context, tx *gorm.DB, obj any, columns []string) (map[string]any, error) {
	stmt := &gorm.Statement{DB: tx}
	if err := stmt.Parse(obj); err != nil {
		return nil, fmt.Errorf("parsing model: %w", err)
	}

	wanted := make(map[string]bool, len(columns))
	for _, c := range columns {
		wanted[c] = true
	}

	rv := reflect.ValueOf(obj).Elem()
	values := make(map[string]any)
	for _, f := range stmt.Schema.Fields {
		if f.DBName == "" {
			continue
		}
		if len(columns) > 0 {
			if !wanted[f.DBName] && !wanted[f.Name] {
				continue
			}
		} else if f.PrimaryKey {
			continue
		}
		v, _ := f.ValueOf(ctx, rv)
		values[f.DBName] = v
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("update of %s: no matching columns", stmt.Schema.Name)
	}
	return values, nil
}

// GetObjects returns the rows selected by q. The slice is never nil.
func (t *Table[T]) GetObjects(ctx context.Context, q orm.Query) ([]T, error) {
	release := t.db.enter()
	defer release()

	tx, err := t.db.session(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0)
	if err := q.Apply(tx.Table(t.name)).Find(&out).Error; err != nil {
		return nil, t.db.bridge(err)
	}
	return out, nil
}

// Count returns how many rows the condition of q selects. Ordering and
// windowing of q are ignored.
func (t *Table[T]) Count(ctx context.Context, q orm.Query) (int64, error) {
	release := t.db.enter()
	defer release()

	tx, err := t.db.session(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := q.ApplyWhere(tx.Table(t.name)).Count(&n).Error; err != nil {
		return 0, t.db.bridge(err)
	}
	return n, nil
}

// GetObject returns the first row selected by q. The limit of q is ignored.
func (t *Table[T]) GetObject(ctx context.Context, q orm.Query) (T, bool, error) {
	q.Limit = orm.Limit(1)
	var zero T
	objs, err := t.GetObjects(ctx, q)
	if err != nil || len(objs) == 0 {
		return zero, false, err
	}
	return objs[0], true, nil
}
