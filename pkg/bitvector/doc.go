// Package bitvector implements the directory node's Bitvector primitive:
// a variable-length, Lsb0-ordered bit sequence used as the unit of the
// inverted index (one bit per DocIndex). It is backed by
// github.com/RoaringBitmap/roaring/v2, which gives compact storage, fast
// AND/OR/NOT, and a stable binary encoding for the round-trip guarantee
// §6 of the spec requires.
package bitvector
