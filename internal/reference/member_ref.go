package reference

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// MethodRef is a durable surrogate for a method or a factory function.
type MethodRef struct {
	// DeclaringType is the generic definition of the receiver base type, or of
	// the type a factory function constructs.
	DeclaringType TypeRef
	Name          string
	// Params holds the parameter types, receiver excluded. A variadic
	// parameter is recorded as its slice type.
	Params []TypeRef
	// Token is the 1-based ordinal of the method on its named type, or of the
	// function among its package scope's sorted names.
	Token uint32
	// Func marks a package-level function resolved in the declaring type's package.
	Func bool
}

// IsZero reports whether m is the zero MethodRef.
func (m MethodRef) IsZero() bool {
	return m.Name == "" && m.DeclaringType.IsZero()
}

// Module returns the package the method is declared in.
func (m MethodRef) Module() ModuleRef {
	return m.DeclaringType.Module
}

// Key returns the canonical identity string of the method.
func (m MethodRef) Key() string {
	var sb strings.Builder
	m.writeKey(&sb, true, true)

	return sb.String()
}

// SignatureKey identifies the method by declaring type, name and parameter
// types only, ignoring its token and module paths.
func (m MethodRef) SignatureKey() string {
	var sb strings.Builder
	m.writeKey(&sb, false, false)

	return sb.String()
}

func (m MethodRef) writeKey(sb *strings.Builder, withModule, withToken bool) {
	if m.Func {
		sb.WriteString("func ")
	}
	m.DeclaringType.writeKey(sb, withModule)
	sb.WriteString("::")
	sb.WriteString(m.Name)
	sb.WriteByte('(')
	for i, p := range m.Params {
		if i > 0 {
			sb.WriteByte(',')
		}
		p.writeKey(sb, withModule)
	}
	sb.WriteByte(')')
	if withToken {
		sb.WriteByte('#')
		sb.WriteString(strconv.FormatUint(uint64(m.Token), 10))
	}
}

// Validate checks that the declaring type and every parameter type are well
// formed.
func (m MethodRef) Validate() error {
	if m.Name == "" {
		return invalidf(m, "method needs a name")
	}

	if err := validateDeclaring(m.DeclaringType); err != nil {
		return err
	}

	for _, p := range m.Params {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%s: %w", m, err)
		}
	}

	return nil
}

func validateDeclaring(t TypeRef) error {
	if t.Kind != TypeKindNamed {
		return invalidf(t, "declaring type is %s, not a declared type", t.Kind)
	}

	return t.Validate()
}

// Equal reports structural equality.
func (m MethodRef) Equal(other MethodRef) bool {
	return m.Name == other.Name && m.Token == other.Token && m.Func == other.Func &&
		m.DeclaringType.Equal(other.DeclaringType) &&
		slices.EqualFunc(m.Params, other.Params, TypeRef.Equal)
}

// String returns a readable form such as "store.Order.Total(int)".
func (m MethodRef) String() string {
	var sb strings.Builder
	sb.WriteString(m.DeclaringType.String())
	if m.Func {
		sb.WriteString("/")
	} else {
		sb.WriteString(".")
	}
	sb.WriteString(m.Name)
	sb.WriteByte('(')
	for i, p := range m.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.String())
	}
	sb.WriteByte(')')

	return sb.String()
}

// Accessor distinguishes reading a field from assigning it.
type Accessor uint8

const (
	AccessorGet Accessor = iota
	AccessorSet
)

// FieldRef is a durable surrogate for a struct field accessor.
type FieldRef struct {
	DeclaringType TypeRef
	Name          string
	Token         uint32 // 1-based field index in the struct
	Accessor      Accessor
}

// Key returns the canonical identity string of the field accessor.
func (f FieldRef) Key() string {
	var sb strings.Builder
	f.DeclaringType.writeKey(&sb, true)
	sb.WriteString("::")
	sb.WriteString(f.Name)
	sb.WriteByte('#')
	sb.WriteString(strconv.FormatUint(uint64(f.Token), 10))
	if f.Accessor == AccessorSet {
		sb.WriteString("=set")
	} else {
		sb.WriteString("=get")
	}

	return sb.String()
}

// Validate checks the declaring type, the name and the accessor.
func (f FieldRef) Validate() error {
	if f.Name == "" {
		return invalidf(f, "field needs a name")
	}

	if f.Accessor != AccessorGet && f.Accessor != AccessorSet {
		return invalidf(f, "unknown accessor %s", f.Accessor)
	}

	return validateDeclaring(f.DeclaringType)
}

// Equal reports structural equality.
func (f FieldRef) Equal(other FieldRef) bool {
	return f.Name == other.Name && f.Token == other.Token && f.Accessor == other.Accessor &&
		f.DeclaringType.Equal(other.DeclaringType)
}

func (f FieldRef) String() string {
	return f.DeclaringType.String() + "." + f.Name + "{" + f.Accessor.String() + "}"
}

// MemberKind discriminates MemberRef.
type MemberKind uint8

const (
	MemberInvalid MemberKind = iota
	MemberField
	MemberMethod
)

// MemberRef refers to either a field accessor or a method.
type MemberRef struct {
	Kind   MemberKind
	Field  FieldRef  // valid when Kind == MemberField
	Method MethodRef // valid when Kind == MemberMethod
}

// FieldMember wraps a field accessor.
func FieldMember(f FieldRef) MemberRef {
	return MemberRef{Kind: MemberField, Field: f}
}

// MethodMember wraps a method.
func MethodMember(m MethodRef) MemberRef {
	return MemberRef{Kind: MemberMethod, Method: m}
}

// DeclaringType returns the type declaring the member.
func (m MemberRef) DeclaringType() TypeRef {
	if m.Kind == MemberField {
		return m.Field.DeclaringType
	}

	return m.Method.DeclaringType
}

// Key returns the canonical identity string of the member.
func (m MemberRef) Key() string {
	switch m.Kind {
	case MemberField:
		return "field:" + m.Field.Key()
	case MemberMethod:
		return "method:" + m.Method.Key()
	default:
		return "<invalid>"
	}
}

// Validate checks the kind and the wrapped reference.
func (m MemberRef) Validate() error {
	switch m.Kind {
	case MemberField:
		return m.Field.Validate()
	case MemberMethod:
		return m.Method.Validate()
	default:
		return fmt.Errorf("%w: member kind %s", ErrInvalidReference, m.Kind)
	}
}

// Equal reports structural equality.
func (m MemberRef) Equal(other MemberRef) bool {
	if m.Kind != other.Kind {
		return false
	}

	switch m.Kind {
	case MemberField:
		return m.Field.Equal(other.Field)
	case MemberMethod:
		return m.Method.Equal(other.Method)
	default:
		return true
	}
}

func (m MemberRef) String() string {
	switch m.Kind {
	case MemberField:
		return m.Field.String()
	case MemberMethod:
		return m.Method.String()
	default:
		return "<invalid member>"
	}
}

// ParameterRef identifies a positional parameter of a method or factory.
type ParameterRef struct {
	Method   MethodRef
	Position int
}

// Key returns the canonical identity string of the parameter.
func (p ParameterRef) Key() string {
	return p.Method.Key() + "@" + strconv.Itoa(p.Position)
}

// Validate checks the method and the position.
func (p ParameterRef) Validate() error {
	if p.Position < 0 {
		return invalidf(p, "negative parameter position")
	}

	return p.Method.Validate()
}

// Equal reports structural equality.
func (p ParameterRef) Equal(other ParameterRef) bool {
	return p.Position == other.Position && p.Method.Equal(other.Method)
}

func (p ParameterRef) String() string {
	return p.Method.String() + "#" + strconv.Itoa(p.Position)
}
