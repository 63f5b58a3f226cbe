// Package table implements the in-memory, column-oriented dataset that flows
// from upload through the transform operations into the forecast dispatcher.
//
// A Table is an ordered list of named columns. Every column has one Kind:
//
//	Numeric  float64 cells, missing cells are NaN
//	Text     string cells with a validity mask
//	Date     time.Time cells with a validity mask
//
// All columns share one length and names are unique. Tables are treated as
// values: mutating helpers return a new Table and leave the receiver intact,
// so an operation that fails half way never corrupts the caller's table.
package table
