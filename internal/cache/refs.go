package cache

import (
	"fmt"

	"composition-cache/internal/codec"
	"composition-cache/internal/reference"
)

// Object table key prefixes. Keys only need to be distinct within one stream.
const (
	typeKeyPrefix   = "t:"
	methodKeyPrefix = "m:"
	fieldKeyPrefix  = "f:"
)

func writeModule(w *codec.Writer, m reference.ModuleRef) {
	w.WriteString(m.ImportPath)
	w.WriteString(m.ModulePath)
}

func readModule(r *codec.Reader) reference.ModuleRef {
	return reference.ModuleRef{ImportPath: r.ReadString(), ModulePath: r.ReadString()}
}

func writeTypeRef(w *codec.Writer, t reference.TypeRef) {
	if err := t.Validate(); err != nil {
		w.Fail(fmt.Errorf("write type reference: %w", err))
		return
	}

	writeValidTypeRef(w, t)
}

// writeValidTypeRef writes a reference that passed Validate.
func writeValidTypeRef(w *codec.Writer, t reference.TypeRef) {
	if !w.BeginObject(typeKeyPrefix + t.Key()) {
		return
	}

	w.WriteUint8(uint8(t.Kind))

	switch t.Kind {
	case reference.TypeKindBasic:
		w.WriteString(t.Name)
	case reference.TypeKindNamed:
		writeModule(w, t.Module)
		w.WriteString(t.Name)
		w.WriteCount(t.Arity)
		codec.WriteList(w, t.Args, writeValidTypeRef)
	case reference.TypeKindPointer, reference.TypeKindSlice:
		writeValidTypeRef(w, t.Args[0])
	case reference.TypeKindArray:
		w.WriteCount(t.Len)
		writeValidTypeRef(w, t.Args[0])
	case reference.TypeKindMap:
		writeValidTypeRef(w, t.Args[0])
		writeValidTypeRef(w, t.Args[1])
	case reference.TypeKindTypeParam:
		w.WriteCount(t.Len)
		w.WriteString(t.Name)
	default:
		w.Fail(fmt.Errorf("write type reference: invalid kind %s", t.Kind))
	}
}

func readTypeRef(r *codec.Reader) reference.TypeRef {
	v, slot, existing := r.BeginObject()
	if existing {
		t, ok := v.(reference.TypeRef)
		if !ok {
			r.Fail("object reference is not a type reference", nil)
		}

		return t
	}

	var t reference.TypeRef
	switch kind := reference.TypeKind(r.ReadUint8()); kind {
	case reference.TypeKindBasic:
		t = reference.Basic(r.ReadString())
	case reference.TypeKindNamed:
		module := readModule(r)
		name := r.ReadString()
		arity := r.ReadCount()
		t = reference.Named(module, name, arity, codec.ReadList(r, readTypeRef)...)
	case reference.TypeKindPointer:
		t = reference.PointerTo(readTypeRef(r))
	case reference.TypeKindSlice:
		t = reference.SliceOf(readTypeRef(r))
	case reference.TypeKindArray:
		n := r.ReadCount()
		t = reference.ArrayOf(n, readTypeRef(r))
	case reference.TypeKindMap:
		key := readTypeRef(r)
		t = reference.MapOf(key, readTypeRef(r))
	case reference.TypeKindTypeParam:
		index := r.ReadCount()
		t = reference.TypeParam(index, r.ReadString())
	default:
		r.Fail("unknown type kind "+kind.String(), nil)
	}

	r.EndObject(slot, t)

	return t
}

func writeMethodRef(w *codec.Writer, m reference.MethodRef) {
	if !w.BeginObject(methodKeyPrefix + m.Key()) {
		return
	}

	writeTypeRef(w, m.DeclaringType)
	w.WriteString(m.Name)
	codec.WriteList(w, m.Params, writeTypeRef)
	w.WriteCompressedUint(m.Token)
	w.WriteBool(m.Func)
}

func readMethodRef(r *codec.Reader) reference.MethodRef {
	v, slot, existing := r.BeginObject()
	if existing {
		m, ok := v.(reference.MethodRef)
		if !ok {
			r.Fail("object reference is not a method reference", nil)
		}

		return m
	}

	m := reference.MethodRef{
		DeclaringType: readTypeRef(r),
		Name:          r.ReadString(),
		Params:        codec.ReadList(r, readTypeRef),
		Token:         r.ReadCompressedUint(),
		Func:          r.ReadBool(),
	}
	r.EndObject(slot, m)

	return m
}

func writeFieldRef(w *codec.Writer, f reference.FieldRef) {
	if !w.BeginObject(fieldKeyPrefix + f.Key()) {
		return
	}

	writeTypeRef(w, f.DeclaringType)
	w.WriteString(f.Name)
	w.WriteCompressedUint(f.Token)
	w.WriteUint8(uint8(f.Accessor))
}

func readFieldRef(r *codec.Reader) reference.FieldRef {
	v, slot, existing := r.BeginObject()
	if existing {
		f, ok := v.(reference.FieldRef)
		if !ok {
			r.Fail("object reference is not a field reference", nil)
		}

		return f
	}

	f := reference.FieldRef{
		DeclaringType: readTypeRef(r),
		Name:          r.ReadString(),
		Token:         r.ReadCompressedUint(),
		Accessor:      reference.Accessor(r.ReadUint8()),
	}
	if r.Err() == nil && f.Accessor != reference.AccessorGet && f.Accessor != reference.AccessorSet {
		r.Fail("unknown field accessor "+f.Accessor.String(), nil)
	}

	r.EndObject(slot, f)

	return f
}

func writeMemberRef(w *codec.Writer, m reference.MemberRef) {
	w.WriteUint8(uint8(m.Kind))

	switch m.Kind {
	case reference.MemberField:
		writeFieldRef(w, m.Field)
	case reference.MemberMethod:
		writeMethodRef(w, m.Method)
	default:
		w.Fail(fmt.Errorf("write member reference: invalid kind %s", m.Kind))
	}
}

func readMemberRef(r *codec.Reader) reference.MemberRef {
	switch kind := reference.MemberKind(r.ReadUint8()); kind {
	case reference.MemberField:
		return reference.FieldMember(readFieldRef(r))
	case reference.MemberMethod:
		return reference.MethodMember(readMethodRef(r))
	default:
		r.Fail("unknown member kind "+kind.String(), nil)
		return reference.MemberRef{}
	}
}

func writeParameterRef(w *codec.Writer, p reference.ParameterRef) {
	writeMethodRef(w, p.Method)
	w.WriteCount(p.Position)
}

func readParameterRef(r *codec.Reader) reference.ParameterRef {
	return reference.ParameterRef{Method: readMethodRef(r), Position: r.ReadCount()}
}
