package cache

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"composition-cache/internal/codec"
	"composition-cache/internal/reference"
)

//go:generate go tool stringer -type=valueKind -trimprefix=value -output=valuekind_string.go

// ErrUnsupportedValue is returned when a metadata value has no boxed encoding.
var ErrUnsupportedValue = errors.New("unsupported metadata value")

// valueKind tags a boxed metadata value on the wire. The numbering is part
// of the format.
type valueKind uint8

const (
	valueNull valueKind = iota
	valueBool
	valueInt
	valueInt8
	valueInt16
	valueInt32
	valueInt64
	valueUint
	valueUint8
	valueUint16
	valueUint32
	valueUint64
	valueFloat32
	valueFloat64
	valueString
	valueTypeRef
	valueArray
)

// scalarTypes maps each scalar kind to the exact Go type it decodes to.
var scalarTypes = [...]reflect.Type{
	valueBool:    reflect.TypeFor[bool](),
	valueInt:     reflect.TypeFor[int](),
	valueInt8:    reflect.TypeFor[int8](),
	valueInt16:   reflect.TypeFor[int16](),
	valueInt32:   reflect.TypeFor[int32](),
	valueInt64:   reflect.TypeFor[int64](),
	valueUint:    reflect.TypeFor[uint](),
	valueUint8:   reflect.TypeFor[uint8](),
	valueUint16:  reflect.TypeFor[uint16](),
	valueUint32:  reflect.TypeFor[uint32](),
	valueUint64:  reflect.TypeFor[uint64](),
	valueFloat32: reflect.TypeFor[float32](),
	valueFloat64: reflect.TypeFor[float64](),
	valueString:  reflect.TypeFor[string](),
	valueTypeRef: reflect.TypeFor[reference.TypeRef](),
}

func scalarKind(t reflect.Type) (valueKind, bool) {
	for k, st := range scalarTypes {
		if st != nil && st == t {
			return valueKind(k), true
		}
	}

	return valueNull, false
}

func (k valueKind) isScalar() bool {
	return int(k) < len(scalarTypes) && scalarTypes[k] != nil
}

// boxKey identifies a boxed value in the object table. repr is injective
// for a given kind and element kind.
type boxKey struct {
	kind, elem valueKind
	repr       string
}

// writeValue writes a boxed metadata value: a kind byte, then, unless the
// value is null, an object-table marker and the payload on first use. Slices
// of a scalar type are written as arrays.
func writeValue(w *codec.Writer, v any) {
	if v == nil {
		w.WriteUint8(uint8(valueNull))
		return
	}

	rv := reflect.ValueOf(v)
	if k, ok := scalarKind(rv.Type()); ok {
		w.WriteUint8(uint8(k))
		if w.BeginObject(boxKey{kind: k, repr: scalarRepr(k, rv)}) {
			writeScalar(w, k, rv)
		}

		return
	}

	if rv.Kind() == reflect.Slice {
		if k, ok := scalarKind(rv.Type().Elem()); ok {
			w.WriteUint8(uint8(valueArray))
			if !w.BeginObject(boxKey{kind: valueArray, elem: k, repr: arrayRepr(k, rv)}) {
				return
			}

			w.WriteUint8(uint8(k))
			w.WriteCount(rv.Len())
			for i := range rv.Len() {
				writeScalar(w, k, rv.Index(i))
			}

			return
		}
	}

	w.Fail(fmt.Errorf("%w: %T", ErrUnsupportedValue, v))
}

// scalarRepr returns the exact textual identity of a scalar value.
func scalarRepr(k valueKind, rv reflect.Value) string {
	switch k {
	case valueBool:
		return strconv.FormatBool(rv.Bool())
	case valueInt, valueInt8, valueInt16, valueInt32, valueInt64:
		return strconv.FormatInt(rv.Int(), 10)
	case valueUint, valueUint8, valueUint16, valueUint32, valueUint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case valueFloat32:
		return strconv.FormatUint(uint64(math.Float32bits(float32(rv.Float()))), 16)
	case valueFloat64:
		return strconv.FormatUint(math.Float64bits(rv.Float()), 16)
	case valueString:
		return rv.String()
	case valueTypeRef:
		return rv.Interface().(reference.TypeRef).Key()
	default:
		return ""
	}
}

// arrayRepr joins length-prefixed element representations.
func arrayRepr(k valueKind, rv reflect.Value) string {
	var sb strings.Builder
	for i := range rv.Len() {
		repr := scalarRepr(k, rv.Index(i))
		sb.WriteString(strconv.Itoa(len(repr)))
		sb.WriteByte(':')
		sb.WriteString(repr)
	}

	return sb.String()
}

func writeScalar(w *codec.Writer, k valueKind, rv reflect.Value) {
	switch k {
	case valueBool:
		w.WriteBool(rv.Bool())
	case valueInt, valueInt64:
		w.WriteInt64(rv.Int())
	case valueInt8:
		w.WriteInt8(int8(rv.Int()))
	case valueInt16:
		w.WriteInt16(int16(rv.Int()))
	case valueInt32:
		w.WriteInt32(int32(rv.Int()))
	case valueUint, valueUint64:
		w.WriteUint64(rv.Uint())
	case valueUint8:
		w.WriteUint8(uint8(rv.Uint()))
	case valueUint16:
		w.WriteUint16(uint16(rv.Uint()))
	case valueUint32:
		w.WriteUint32(uint32(rv.Uint()))
	case valueFloat32:
		w.WriteFloat32(float32(rv.Float()))
	case valueFloat64:
		w.WriteFloat64(rv.Float())
	case valueString:
		w.WriteString(rv.String())
	case valueTypeRef:
		writeTypeRef(w, rv.Interface().(reference.TypeRef))
	}
}

func readValue(r *codec.Reader) any {
	k := valueKind(r.ReadUint8())
	if r.Err() != nil || k == valueNull {
		return nil
	}

	if !k.isScalar() && k != valueArray {
		r.Fail(fmt.Sprintf("unknown value kind %s", k), nil)
		return nil
	}

	v, slot, existing := r.BeginObject()
	switch {
	case r.Err() != nil:
		return nil
	case existing:
		if !boxedAs(k, v) {
			r.Fail(fmt.Sprintf("object reference is not a %s value", k), nil)
			return nil
		}

		return v
	}

	if k.isScalar() {
		v = readScalar(r, k).Interface()
	} else {
		v = readArray(r)
	}

	if r.Err() != nil {
		return nil
	}

	r.EndObject(slot, v)

	return v
}

// boxedAs reports whether a table entry holds a value of kind k.
func boxedAs(k valueKind, v any) bool {
	t := reflect.TypeOf(v)
	if t == nil {
		return false
	}

	if k == valueArray {
		if t.Kind() != reflect.Slice {
			return false
		}

		_, ok := scalarKind(t.Elem())

		return ok
	}

	return t == scalarTypes[k]
}

func readArray(r *codec.Reader) any {
	elem := valueKind(r.ReadUint8())
	if r.Err() == nil && !elem.isScalar() {
		r.Fail(fmt.Sprintf("invalid array element kind %s", elem), nil)
	}

	items := codec.ReadList(r, func(r *codec.Reader) reflect.Value { return readScalar(r, elem) })
	if r.Err() != nil {
		return nil
	}

	out := reflect.MakeSlice(reflect.SliceOf(scalarTypes[elem]), 0, len(items))
	if len(items) == 0 {
		return reflect.Zero(out.Type()).Interface()
	}

	return reflect.Append(out, items...).Interface()
}

// readScalar returns a value of exactly scalarTypes[k].
func readScalar(r *codec.Reader, k valueKind) reflect.Value {
	var v any
	switch k {
	case valueBool:
		v = r.ReadBool()
	case valueInt:
		v = int(r.ReadInt64())
	case valueInt8:
		v = r.ReadInt8()
	case valueInt16:
		v = r.ReadInt16()
	case valueInt32:
		v = r.ReadInt32()
	case valueInt64:
		v = r.ReadInt64()
	case valueUint:
		v = uint(r.ReadUint64())
	case valueUint8:
		v = r.ReadUint8()
	case valueUint16:
		v = r.ReadUint16()
	case valueUint32:
		v = r.ReadUint32()
	case valueUint64:
		v = r.ReadUint64()
	case valueFloat32:
		v = r.ReadFloat32()
	case valueFloat64:
		v = r.ReadFloat64()
	case valueString:
		v = r.ReadString()
	case valueTypeRef:
		v = readTypeRef(r)
	default:
		return reflect.Zero(reflect.TypeFor[any]())
	}

	return reflect.ValueOf(v)
}
