package reference

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"composition-cache/internal/common"
)

//go:generate go tool stringer -type=TypeKind,MemberKind,Accessor -output=kind_string.go

// ModuleRef identifies the Go package owning an entity.
type ModuleRef struct {
	ImportPath string // e.g., "example.com/app/store"
	ModulePath string // version-free Go module path, empty for the standard library
}

// IsZero reports whether the reference names no package (predeclared types).
func (m ModuleRef) IsZero() bool {
	return m.ImportPath == "" && m.ModulePath == ""
}

// String returns the import path, qualified by module path when it is known.
func (m ModuleRef) String() string {
	if m.ModulePath == "" || m.ModulePath == m.ImportPath {
		return m.ImportPath
	}

	return m.ImportPath + " (" + m.ModulePath + ")"
}

// TypeKind discriminates the shape a TypeRef describes.
type TypeKind uint8

const (
	TypeKindInvalid   TypeKind = iota
	TypeKindBasic              // predeclared: int, string, any, error, comparable
	TypeKindNamed              // defined type or alias declared in a package
	TypeKindPointer            // *Args[0]
	TypeKindSlice              // []Args[0]
	TypeKindArray              // [Len]Args[0]
	TypeKindMap                // map[Args[0]]Args[1]
	TypeKindTypeParam          // type parameter Len of the enclosing declaration
)

// TypeRef is a durable surrogate for a Go type.
type TypeRef struct {
	Kind   TypeKind
	Module ModuleRef // owning package, for TypeKindNamed
	Name   string    // predeclared name, declared name, or type parameter name
	Arity  int       // number of type parameters of the generic definition
	Len    int       // array length or type parameter index
	Args   []TypeRef // type arguments or element types
}

// Basic returns a reference to a predeclared type.
func Basic(name string) TypeRef {
	return TypeRef{Kind: TypeKindBasic, Name: name}
}

// Named returns a reference to a declared type. With no args it denotes the
// definition itself.
func Named(module ModuleRef, name string, arity int, args ...TypeRef) TypeRef {
	return TypeRef{Kind: TypeKindNamed, Module: module, Name: name, Arity: arity, Args: args}
}

// PointerTo returns a reference to *elem.
func PointerTo(elem TypeRef) TypeRef {
	return TypeRef{Kind: TypeKindPointer, Args: []TypeRef{elem}}
}

// SliceOf returns a reference to []elem.
func SliceOf(elem TypeRef) TypeRef {
	return TypeRef{Kind: TypeKindSlice, Args: []TypeRef{elem}}
}

// ArrayOf returns a reference to [n]elem.
func ArrayOf(n int, elem TypeRef) TypeRef {
	return TypeRef{Kind: TypeKindArray, Len: n, Args: []TypeRef{elem}}
}

// MapOf returns a reference to map[key]elem.
func MapOf(key, elem TypeRef) TypeRef {
	return TypeRef{Kind: TypeKindMap, Args: []TypeRef{key, elem}}
}

// TypeParam returns a reference to the index-th type parameter of the
// enclosing generic declaration.
func TypeParam(index int, name string) TypeRef {
	return TypeRef{Kind: TypeKindTypeParam, Name: name, Len: index}
}

// IsZero reports whether t is the zero TypeRef.
func (t TypeRef) IsZero() bool {
	return t.Kind == TypeKindInvalid
}

// Elem returns the element type of a pointer, slice, array or map.
func (t TypeRef) Elem() TypeRef {
	switch t.Kind {
	case TypeKindPointer, TypeKindSlice, TypeKindArray:
		return t.arg(0)
	case TypeKindMap:
		return t.arg(1)
	default:
		return TypeRef{}
	}
}

// Definition returns the generic definition of a named type (its args dropped).
func (t TypeRef) Definition() TypeRef {
	if t.Kind != TypeKindNamed {
		return t
	}

	return TypeRef{Kind: TypeKindNamed, Module: t.Module, Name: t.Name, Arity: t.Arity}
}

// IsGenericDefinition reports whether t names an uninstantiated generic type.
func (t TypeRef) IsGenericDefinition() bool {
	return t.Kind == TypeKindNamed && t.Arity > 0 && len(t.Args) == 0
}

// Key returns the canonical identity string of the reference. Two references
// have equal keys if and only if they are Equal.
func (t TypeRef) Key() string {
	var sb strings.Builder
	t.writeKey(&sb, true)

	return sb.String()
}

// SignatureKey is Key without module paths and type parameter names. It
// compares references derived from packages whose module information is
// unavailable, or whose declarations renamed a type parameter.
func (t TypeRef) SignatureKey() string {
	var sb strings.Builder
	t.writeKey(&sb, false)

	return sb.String()
}

// Equal reports structural equality.
func (t TypeRef) Equal(other TypeRef) bool {
	if t.Kind != other.Kind || t.Module != other.Module || t.Name != other.Name ||
		t.Arity != other.Arity || t.Len != other.Len {
		return false
	}

	return slices.EqualFunc(t.Args, other.Args, TypeRef.Equal)
}

// arg returns Args[i], or the zero TypeRef when t is malformed.
func (t TypeRef) arg(i int) TypeRef {
	if i < len(t.Args) {
		return t.Args[i]
	}

	return TypeRef{}
}

// writeKey writes the canonical key. full adds module paths and type
// parameter names.
func (t TypeRef) writeKey(sb *strings.Builder, full bool) {
	switch t.Kind {
	case TypeKindBasic:
		sb.WriteString(t.Name)
	case TypeKindNamed:
		sb.WriteString(t.Module.ImportPath)
		if full && t.Module.ModulePath != "" {
			sb.WriteByte('@')
			sb.WriteString(t.Module.ModulePath)
		}
		sb.WriteByte('.')
		sb.WriteString(t.Name)
		if t.Arity > 0 {
			sb.WriteByte('`')
			sb.WriteString(strconv.Itoa(t.Arity))
		}
		writeArgKeys(sb, t.Args, full)
	case TypeKindPointer:
		sb.WriteByte('*')
		t.arg(0).writeKey(sb, full)
	case TypeKindSlice:
		sb.WriteString("[]")
		t.arg(0).writeKey(sb, full)
	case TypeKindArray:
		sb.WriteByte('[')
		sb.WriteString(strconv.Itoa(t.Len))
		sb.WriteByte(']')
		t.arg(0).writeKey(sb, full)
	case TypeKindMap:
		sb.WriteString("map[")
		t.arg(0).writeKey(sb, full)
		sb.WriteByte(']')
		t.arg(1).writeKey(sb, full)
	case TypeKindTypeParam:
		sb.WriteByte('$')
		sb.WriteString(strconv.Itoa(t.Len))
		if full {
			sb.WriteByte(':')
			sb.WriteString(t.Name)
		}
	default:
		sb.WriteString("<invalid>")
	}
}

func writeArgKeys(sb *strings.Builder, args []TypeRef, full bool) {
	if len(args) == 0 {
		return
	}

	sb.WriteByte('[')
	for i, a := range args {
		if i > 0 {
			sb.WriteByte(',')
		}
		a.writeKey(sb, full)
	}
	sb.WriteByte(']')
}

// Validate checks that t and every nested reference is well formed: a known
// kind, the element count its kind requires and the names it needs.
func (t TypeRef) Validate() error {
	switch t.Kind {
	case TypeKindBasic:
		if t.Name == "" || len(t.Args) > 0 {
			return invalidf(t, "predeclared type needs a name and no arguments")
		}
	case TypeKindNamed:
		if t.Name == "" || t.Module.ImportPath == "" {
			return invalidf(t, "declared type needs a name and a package")
		}
		if t.Arity < 0 || (len(t.Args) > 0 && len(t.Args) != t.Arity) {
			return invalidf(t, "%d type arguments for %d type parameters", len(t.Args), t.Arity)
		}
	case TypeKindPointer, TypeKindSlice:
		if len(t.Args) != 1 {
			return invalidf(t, "%s needs one element type, has %d", t.Kind, len(t.Args))
		}
	case TypeKindArray:
		if len(t.Args) != 1 || t.Len < 0 {
			return invalidf(t, "array needs one element type and a length")
		}
	case TypeKindMap:
		if len(t.Args) != 2 {
			return invalidf(t, "map needs a key and an element type, has %d types", len(t.Args))
		}
	case TypeKindTypeParam:
		if t.Name == "" || t.Len < 0 || len(t.Args) > 0 {
			return invalidf(t, "type parameter needs a name and an index")
		}
	default:
		return fmt.Errorf("%w: %s", ErrInvalidReference, t.Kind)
	}

	for _, a := range t.Args {
		if err := a.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// String returns the reference as it would be spelled in Go source, qualified
// by package alias (e.g., "*store.Box[int]").
func (t TypeRef) String() string {
	switch t.Kind {
	case TypeKindBasic, TypeKindTypeParam:
		return t.Name
	case TypeKindNamed:
		var sb strings.Builder
		if alias := common.PkgAlias(t.Module.ImportPath); alias != "" {
			sb.WriteString(alias)
			sb.WriteByte('.')
		}
		sb.WriteString(t.Name)
		if len(t.Args) > 0 {
			sb.WriteByte('[')
			for i, a := range t.Args {
				if i > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(a.String())
			}
			sb.WriteByte(']')
		}

		return sb.String()
	case TypeKindPointer:
		return "*" + t.arg(0).String()
	case TypeKindSlice:
		return "[]" + t.arg(0).String()
	case TypeKindArray:
		return "[" + strconv.Itoa(t.Len) + "]" + t.arg(0).String()
	case TypeKindMap:
		return "map[" + t.arg(0).String() + "]" + t.arg(1).String()
	default:
		return common.UnknownStr
	}
}
