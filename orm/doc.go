// Package orm holds the declarative pieces shared by row models and the
// table layer: default table naming, query options, index declarations and
// column codecs.
package orm
