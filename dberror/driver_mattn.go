//go:build cgo

package dberror

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

func init() {
	registerExtractor(mattnError)
}

func mattnError(err error) (int, int, bool) {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return 0, 0, false
	}
	return int(se.Code), int(se.ExtendedCode), true
}
