// Package query implements the query language (component G): an
// Expression AST, a recursive-descent parser for the directory's query
// syntax, and an evaluator that resolves an Expression against a
// Resolver into a result Bitvector using the bigger-accumulator
// AND/OR strategy and NOT-via-universe-complement.
package query
