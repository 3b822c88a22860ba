// Package codec implements the compact binary format underneath the catalog
// cache.
//
// Format building blocks:
//   - Fixed-size little-endian primitives
//   - Compressed unsigned integers (1, 2 or 4 bytes, smaller values shorter)
//   - Counted lists: compressed count followed by the elements
//   - Interleaved deduplication tables for strings and reusable objects: the
//     first occurrence writes a "new" marker and its payload, later
//     occurrences write only the table index
//
// Writer and Reader keep a sequential cursor and a deduplication table; they
// are not safe for concurrent use. Both use sticky errors: after the first
// failure every further operation is a no-op and Err reports that failure.
// Any failure while reading is a *DecodeError and is fatal to the whole
// decode.
package codec
