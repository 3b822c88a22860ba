package codec

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"slices"
)

const (
	// maxPrealloc bounds slice preallocation driven by counts read from the stream.
	maxPrealloc = 1024
	// maxStringLen rejects absurd string lengths before any bytes are read.
	maxStringLen = 1 << 24
)

// pending marks an object table slot reserved but not yet filled.
type pending struct{}

// Reader decodes values from a stream produced by Writer.
type Reader struct {
	r   *bufio.Reader
	n   int64
	err error
	buf [8]byte

	strings []string
	objects []any
}

// NewReader returns a Reader on r. estimatedObjects pre-sizes the
// deduplication tables.
func NewReader(r io.Reader, estimatedObjects int) *Reader {
	estimatedObjects = min(max(estimatedObjects, 0), maxPrealloc)

	return &Reader{
		r:       bufio.NewReader(r),
		strings: make([]string, 0, estimatedObjects),
		objects: make([]any, 0, estimatedObjects),
	}
}

// Err returns the first error encountered. It is nil or a *DecodeError.
func (r *Reader) Err() error {
	return r.err
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int64 {
	return r.n
}

// Fail records a decode failure at the current offset.
func (r *Reader) Fail(reason string, err error) {
	if r.err == nil {
		r.err = &DecodeError{Offset: r.n, Reason: reason, Err: err}
	}
}

// Done releases the deduplication tables and reports the first error.
func (r *Reader) Done() error {
	r.strings = nil
	r.objects = nil

	return r.err
}

// AtEOF reports whether the stream is fully consumed.
func (r *Reader) AtEOF() bool {
	if r.err != nil {
		return false
	}

	_, err := r.r.Peek(1)

	return errors.Is(err, io.EOF)
}

func (r *Reader) read(p []byte) bool {
	if r.err != nil {
		return false
	}

	n, err := io.ReadFull(r.r, p)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}

		r.Fail("truncated stream", err)
		r.n += int64(n)

		return false
	}

	r.n += int64(n)

	return true
}

// ReadUint8 reads a single byte.
func (r *Reader) ReadUint8() uint8 {
	if !r.read(r.buf[:1]) {
		return 0
	}

	return r.buf[0]
}

// ReadBool reads a boolean. Any byte other than 0 or 1 is an error.
func (r *Reader) ReadBool() bool {
	switch b := r.ReadUint8(); b {
	case 0:
		return false
	case 1:
		return true
	default:
		r.Fail("invalid boolean", nil)
		return false
	}
}

// ReadUint16 reads a little-endian uint16.
func (r *Reader) ReadUint16() uint16 {
	if !r.read(r.buf[:2]) {
		return 0
	}

	return binary.LittleEndian.Uint16(r.buf[:2])
}

// ReadUint32 reads a little-endian uint32.
func (r *Reader) ReadUint32() uint32 {
	if !r.read(r.buf[:4]) {
		return 0
	}

	return binary.LittleEndian.Uint32(r.buf[:4])
}

// ReadUint64 reads a little-endian uint64.
func (r *Reader) ReadUint64() uint64 {
	if !r.read(r.buf[:8]) {
		return 0
	}

	return binary.LittleEndian.Uint64(r.buf[:8])
}

// ReadInt8 reads a signed byte.
func (r *Reader) ReadInt8() int8 { return int8(r.ReadUint8()) }

// ReadInt16 reads a little-endian int16.
func (r *Reader) ReadInt16() int16 { return int16(r.ReadUint16()) }

// ReadInt32 reads a little-endian int32.
func (r *Reader) ReadInt32() int32 { return int32(r.ReadUint32()) }

// ReadInt64 reads a little-endian int64.
func (r *Reader) ReadInt64() int64 { return int64(r.ReadUint64()) }

// ReadFloat32 reads an IEEE 754 float32.
func (r *Reader) ReadFloat32() float32 { return math.Float32frombits(r.ReadUint32()) }

// ReadFloat64 reads an IEEE 754 float64.
func (r *Reader) ReadFloat64() float64 { return math.Float64frombits(r.ReadUint64()) }

// ReadCompressedUint reads a value written by WriteCompressedUint.
func (r *Reader) ReadCompressedUint() uint32 {
	b := r.ReadUint8()
	if r.err != nil {
		return 0
	}

	switch {
	case b&0x80 == 0:
		return uint32(b)
	case b&0xC0 == 0x80:
		lo := r.ReadUint8()
		return uint32(b&0x3F)<<8 | uint32(lo)
	case b&0xE0 == 0xC0:
		if !r.read(r.buf[:3]) {
			return 0
		}

		return uint32(b&0x1F)<<24 | uint32(r.buf[0])<<16 | uint32(r.buf[1])<<8 | uint32(r.buf[2])
	default:
		r.n--
		r.Fail("invalid compressed integer prefix", nil)
		r.n++

		return 0
	}
}

// ReadCount reads a length written by WriteCount.
func (r *Reader) ReadCount() int {
	return int(r.ReadCompressedUint())
}

// ReadRawString reads a string written by WriteRawString.
func (r *Reader) ReadRawString() string {
	n := r.ReadCount()
	if r.err != nil {
		return ""
	}

	if n > maxStringLen {
		r.Fail("string length out of range", nil)
		return ""
	}

	var sb bytes.Buffer
	m, err := io.CopyN(&sb, r.r, int64(n))
	r.n += m
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}

		r.Fail("truncated string", err)

		return ""
	}

	return sb.String()
}

// ReadString reads a string written by WriteString.
func (r *Reader) ReadString() string {
	marker := r.ReadCompressedUint()
	if r.err != nil {
		return ""
	}

	if marker == 0 {
		s := r.ReadRawString()
		if r.err == nil {
			r.strings = append(r.strings, s)
		}

		return s
	}

	i := int(marker - 1)
	if i >= len(r.strings) {
		r.Fail("string reference out of range", nil)
		return ""
	}

	return r.strings[i]
}

// BeginObject reads an object-table marker. For a reference to an earlier
// object it returns that object and existing=true. For a new object it
// reserves a slot; the caller decodes the payload and calls EndObject with the
// returned slot.
func (r *Reader) BeginObject() (value any, slot int, existing bool) {
	marker := r.ReadCompressedUint()
	if r.err != nil {
		return nil, -1, false
	}

	if marker == 0 {
		r.objects = append(r.objects, pending{})
		return nil, len(r.objects) - 1, false
	}

	i := int(marker - 1)
	if i >= len(r.objects) {
		r.Fail("object reference out of range", nil)
		return nil, -1, false
	}

	if _, ok := r.objects[i].(pending); ok {
		r.Fail("object referenced inside its own definition", nil)
		return nil, -1, false
	}

	return r.objects[i], i, true
}

// EndObject fills the slot reserved by BeginObject.
func (r *Reader) EndObject(slot int, value any) {
	if r.err != nil || slot < 0 || slot >= len(r.objects) {
		return
	}

	r.objects[slot] = value
}

// ReadList reads a list written by WriteList. An empty list decodes as nil.
func ReadList[T any](r *Reader, read func(*Reader) T) []T {
	n := r.ReadCount()
	if r.err != nil || n == 0 {
		return nil
	}

	out := make([]T, 0, min(n, maxPrealloc))
	for range n {
		v := read(r)
		if r.err != nil {
			return nil
		}

		out = append(out, v)
	}

	return slices.Clip(out)
}

// ReadMap reads a map written by WriteMap. Duplicate keys are an error; an
// empty map decodes as nil.
func ReadMap[K comparable, V any](r *Reader, readKey func(*Reader) K, readValue func(*Reader) V) map[K]V {
	n := r.ReadCount()
	if r.err != nil || n == 0 {
		return nil
	}

	out := make(map[K]V, min(n, maxPrealloc))
	for range n {
		k := readKey(r)
		v := readValue(r)
		if r.err != nil {
			return nil
		}

		if _, dup := out[k]; dup {
			r.Fail("duplicate dictionary key", nil)
			return nil
		}

		out[k] = v
	}

	return out
}
