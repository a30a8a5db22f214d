// Package bitio provides the bit- and byte-level primitives CRAM blocks are
// built from: an MSB-first bit reader/writer over a block's byte buffer, the
// zero-run/one-run helpers the codec catalogue's unary-prefixed codecs rely
// on, and the ITF-8/LTF-8 variable-length integer encodings used throughout
// container, slice and block headers.
package bitio
