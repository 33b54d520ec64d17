package orm

import (
	"fmt"
	"strings"
)

// IndexColumn is one column of an index, optionally descending.
type IndexColumn struct {
	Name string
	Desc bool
}

// Index declares an index whose name is the table name followed by Suffix,
// so the same model can back several tables without name clashes.
type Index struct {
	Suffix  string
	Columns []IndexColumn
	Unique  bool
}

// IndexedTable is implemented by models that declare indexes.
type IndexedTable interface {
	TableIndexes() []Index
}

// Column and DescColumn build IndexColumns.
func Column(name string) IndexColumn     { return IndexColumn{Name: name} }
func DescColumn(name string) IndexColumn { return IndexColumn{Name: name, Desc: true} }

// Name returns the index name for table.
func (ix Index) Name(table string) string {
	return table + ix.Suffix
}

// CreateSQL renders the CREATE INDEX statement for table.
func (ix Index) CreateSQL(table string) (string, error) {
	if ix.Suffix == "" {
		return "", fmt.Errorf("index on %s: empty suffix", table)
	}
	if len(ix.Columns) == 0 {
		return "", fmt.Errorf("index %s: no columns", ix.Name(table))
	}

	cols := make([]string, 0, len(ix.Columns))
	for _, c := range ix.Columns {
		col := quoteIdent(c.Name)
		if c.Desc {
			col += " DESC"
		}
		cols = append(cols, col)
	}

	unique := ""
	if ix.Unique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s(%s)",
		unique, quoteIdent(ix.Name(table)), quoteIdent(table), strings.Join(cols, ", ")), nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
