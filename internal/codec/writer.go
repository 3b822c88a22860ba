package codec

import (
	"bufio"
	"cmp"
	"encoding/binary"
	"fmt"
	"io"
	"maps"
	"math"
	"slices"
)

// MaxCompressedUint is the largest value WriteCompressedUint accepts.
const MaxCompressedUint = 0x1FFFFFFF

// Writer encodes values onto a stream.
type Writer struct {
	w   *bufio.Writer
	n   int64
	err error
	buf [8]byte

	strings map[string]uint32
	objects map[any]uint32
	next    uint32 // next object table index
}

// NewWriter returns a Writer on w. estimatedObjects pre-sizes the
// deduplication tables.
func NewWriter(w io.Writer, estimatedObjects int) *Writer {
	estimatedObjects = max(estimatedObjects, 0)

	return &Writer{
		w:       bufio.NewWriter(w),
		strings: make(map[string]uint32, estimatedObjects),
		objects: make(map[any]uint32, estimatedObjects),
	}
}

// Err returns the first error encountered.
func (w *Writer) Err() error {
	return w.err
}

// Fail records err unless an earlier error is already recorded.
func (w *Writer) Fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

// Offset returns the number of bytes written so far.
func (w *Writer) Offset() int64 {
	return w.n
}

// Flush writes buffered output to the underlying writer.
func (w *Writer) Flush() error {
	if w.err == nil {
		if err := w.w.Flush(); err != nil {
			w.err = fmt.Errorf("flush: %w", err)
		}
	}

	return w.err
}

// Finish flushes buffered output and releases the deduplication tables. The
// Writer must not be used afterwards.
func (w *Writer) Finish() error {
	_ = w.Flush()

	w.strings = nil
	w.objects = nil

	return w.err
}

func (w *Writer) write(p []byte) {
	if w.err != nil {
		return
	}

	n, err := w.w.Write(p)
	w.n += int64(n)
	if err != nil {
		w.err = err
	}
}

// WriteUint8 writes a single byte.
func (w *Writer) WriteUint8(v uint8) {
	w.buf[0] = v
	w.write(w.buf[:1])
}

// WriteBool writes a boolean as one byte.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteUint8(1)
	} else {
		w.WriteUint8(0)
	}
}

// WriteUint16 writes a little-endian uint16.
func (w *Writer) WriteUint16(v uint16) {
	binary.LittleEndian.PutUint16(w.buf[:2], v)
	w.write(w.buf[:2])
}

// WriteUint32 writes a little-endian uint32.
func (w *Writer) WriteUint32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[:4], v)
	w.write(w.buf[:4])
}

// WriteUint64 writes a little-endian uint64.
func (w *Writer) WriteUint64(v uint64) {
	binary.LittleEndian.PutUint64(w.buf[:8], v)
	w.write(w.buf[:8])
}

// WriteInt8 writes a signed byte.
func (w *Writer) WriteInt8(v int8) { w.WriteUint8(uint8(v)) }

// WriteInt16 writes a little-endian int16.
func (w *Writer) WriteInt16(v int16) { w.WriteUint16(uint16(v)) }

// WriteInt32 writes a little-endian int32.
func (w *Writer) WriteInt32(v int32) { w.WriteUint32(uint32(v)) }

// WriteInt64 writes a little-endian int64.
func (w *Writer) WriteInt64(v int64) { w.WriteUint64(uint64(v)) }

// WriteFloat32 writes an IEEE 754 float32.
func (w *Writer) WriteFloat32(v float32) { w.WriteUint32(math.Float32bits(v)) }

// WriteFloat64 writes an IEEE 754 float64.
func (w *Writer) WriteFloat64(v float64) { w.WriteUint64(math.Float64bits(v)) }

// WriteCompressedUint writes v in 1, 2 or 4 bytes.
func (w *Writer) WriteCompressedUint(v uint32) {
	switch {
	case v <= 0x7F:
		w.WriteUint8(uint8(v))
	case v <= 0x3FFF:
		w.buf[0] = 0x80 | uint8(v>>8)
		w.buf[1] = uint8(v)
		w.write(w.buf[:2])
	case v <= MaxCompressedUint:
		w.buf[0] = 0xC0 | uint8(v>>24)
		w.buf[1] = uint8(v >> 16)
		w.buf[2] = uint8(v >> 8)
		w.buf[3] = uint8(v)
		w.write(w.buf[:4])
	default:
		w.Fail(fmt.Errorf("%w: %d", ErrValueTooLarge, v))
	}
}

// WriteCount writes a non-negative length as a compressed integer.
func (w *Writer) WriteCount(n int) {
	if n < 0 || n > MaxCompressedUint {
		w.Fail(fmt.Errorf("%w: count %d", ErrValueTooLarge, n))
		return
	}

	w.WriteCompressedUint(uint32(n))
}

// WriteRawString writes a length-prefixed string without deduplication.
func (w *Writer) WriteRawString(s string) {
	w.WriteCount(len(s))
	if w.err != nil {
		return
	}

	n, err := w.w.WriteString(s)
	w.n += int64(n)
	if err != nil {
		w.err = err
	}
}

// WriteString writes s through the string table.
func (w *Writer) WriteString(s string) {
	if i, ok := w.strings[s]; ok {
		w.WriteCompressedUint(i + 1)
		return
	}

	w.strings[s] = uint32(len(w.strings))
	w.WriteCompressedUint(0)
	w.WriteRawString(s)
}

// BeginObject writes the object-table marker for key, a comparable identity of
// the object. It reports whether the object is new; if so the caller must
// write its payload immediately.
func (w *Writer) BeginObject(key any) bool {
	if i, ok := w.objects[key]; ok {
		w.WriteCompressedUint(i + 1)
		return false
	}

	w.objects[key] = w.next
	w.next++
	w.WriteCompressedUint(0)

	return true
}

// WriteList writes the count of items followed by each item.
func WriteList[T any](w *Writer, items []T, write func(*Writer, T)) {
	w.WriteCount(len(items))
	for _, item := range items {
		if w.err != nil {
			return
		}

		write(w, item)
	}
}

// WriteMap writes the count of entries followed by key/value pairs in
// ascending key order, so equal maps always encode to equal bytes.
func WriteMap[K cmp.Ordered, V any](w *Writer, m map[K]V, writeKey func(*Writer, K), writeValue func(*Writer, V)) {
	w.WriteCount(len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		if w.err != nil {
			return
		}

		writeKey(w, k)
		writeValue(w, m[k])
	}
}
