package orm

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Condition is a SQL boolean expression with positional arguments.
type Condition struct {
	Expr string
	Args []any
}

// Where builds a Condition, e.g. Where("id > ?", 3).
func Where(expr string, args ...any) *Condition {
	return &Condition{Expr: expr, Args: args}
}

// And joins two conditions. A nil side is ignored.
func (c *Condition) And(other *Condition) *Condition {
	switch {
	case c == nil:
		return other
	case other == nil:
		return c
	}
	args := make([]any, 0, len(c.Args)+len(other.Args))
	args = append(args, c.Args...)
	args = append(args, other.Args...)
	return &Condition{Expr: "(" + c.Expr + ") AND (" + other.Expr + ")", Args: args}
}

// OrderBy is one ordering term.
type OrderBy struct {
	Column string
	Desc   bool
}

func Asc(column string) OrderBy  { return OrderBy{Column: column} }
func Desc(column string) OrderBy { return OrderBy{Column: column, Desc: true} }

// Query carries the optional parts of a table-scoped statement.
// A nil Limit means no limit; a nil Offset means no offset.
type Query struct {
	Where   *Condition
	OrderBy []OrderBy
	Limit   *int
	Offset  *int
}

// Limit and Offset return pointers for use in Query literals.
func Limit(n int) *int  { return &n }
func Offset(n int) *int { return &n }

// Windowed reports whether the query orders or windows its rows.
func (q Query) Windowed() bool {
	return len(q.OrderBy) > 0 || q.Limit != nil || q.Offset != nil
}

// ApplyWhere adds the condition to tx.
func (q Query) ApplyWhere(tx *gorm.DB) *gorm.DB {
	if q.Where != nil && q.Where.Expr != "" {
		tx = tx.Where(q.Where.Expr, q.Where.Args...)
	}
	return tx
}

// Apply adds condition, ordering, limit and offset to tx.
func (q Query) Apply(tx *gorm.DB) *gorm.DB {
	tx = q.ApplyWhere(tx)
	for _, o := range q.OrderBy {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: o.Column}, Desc: o.Desc})
	}
	if q.Limit != nil {
		tx = tx.Limit(*q.Limit)
	}
	if q.Offset != nil {
		tx = tx.Offset(*q.Offset)
	}
	return tx
}
