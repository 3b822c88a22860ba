package stabilize

import (
	"fmt"

	"github.com/google/uuid"

	"composition-cache/internal/reference"
)

//go:generate go tool stringer -type=ForwarderKind -trimprefix=Forward -output=forwarderkind_string.go

// ForwarderKind is the shape of a forwarding method.
type ForwarderKind uint8

const (
	ForwardFactory ForwarderKind = iota
	ForwardMethod
	ForwardFieldGet
	ForwardFieldSet
)

// Access is how a forwarder reaches the original member.
type Access uint8

const (
	// AccessDirect calls or selects the member by name.
	AccessDirect Access = iota
	// AccessLinkname calls a //go:linkname declaration bound to the member.
	AccessLinkname
	// AccessReflect addresses the field through reflect and unsafe.
	AccessReflect
)

// Param is one parameter of a forwarder.
type Param struct {
	Name string
	Type reference.TypeRef
}

// Forwarder is one generated method of a forwarders type.
type Forwarder struct {
	Kind ForwarderKind
	// Name is the method name on the forwarders type.
	Name string
	// Target is the name of the original function, method or field.
	Target string
	Access Access
	// Params include the receiver-turned-parameter "recv" for methods and fields.
	Params   []Param
	Variadic bool
	Results  []reference.TypeRef
	// PointerRecv marks an original method declared on a pointer receiver.
	PointerRecv bool
	// Ref is the token of the generated method.
	Ref reference.MethodRef
}

// TypeParam is a type parameter copied from the original declaration.
type TypeParam struct {
	Name       string
	Constraint reference.TypeRef
}

// SyntheticType is the generated counterpart of one original named type.
type SyntheticType struct {
	// Original is the generic definition of the original type.
	Original reference.TypeRef
	// Name is the alias name; the forwarders type is Name+"Forwarders".
	Name       string
	TypeParams []TypeParam
	Forwarders []*Forwarder

	module  reference.ModuleRef
	decl    reference.TypeRef // Original as derived from the loaded package
	byKey   map[string]*Forwarder
	methods map[string]struct{}
	sealed  bool
}

// Alias returns the token of the alias definition.
func (t *SyntheticType) Alias() reference.TypeRef {
	return reference.Named(t.module, t.Name, len(t.TypeParams))
}

// ForwardersType returns the token of the forwarders type definition.
func (t *SyntheticType) ForwardersType() reference.TypeRef {
	return reference.Named(t.module, t.ForwardersName(), len(t.TypeParams))
}

// ForwardersName returns the name of the forwarders type.
func (t *SyntheticType) ForwardersName() string {
	return t.Name + "Forwarders"
}

// Sealed reports whether the type accepts no more forwarders.
func (t *SyntheticType) Sealed() bool {
	return t.sealed
}

// Seal finalizes the type. Sealing twice is a no-op.
func (t *SyntheticType) Seal() {
	t.sealed = true
}

// Forwarder returns the forwarder emitted for the original member key.
func (t *SyntheticType) Forwarder(key string) (*Forwarder, bool) {
	f, ok := t.byKey[key]
	return f, ok
}

// add registers f under key and assigns its name and token.
func (t *SyntheticType) add(key string, f *Forwarder) error {
	if t.sealed {
		return fmt.Errorf("%w: %s", ErrSealed, t.Name)
	}

	f.Name = uniqueName(t.methods, f.Name)
	t.Forwarders = append(t.Forwarders, f)
	t.byKey[key] = f

	params := make([]reference.TypeRef, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Type
	}

	f.Ref = reference.MethodRef{
		DeclaringType: t.ForwardersType(),
		Name:          f.Name,
		Params:        params,
		Token:         uint32(len(t.Forwarders)),
	}

	return nil
}

// Module is the generated forwarding package.
type Module struct {
	cfg   Config
	id    uuid.UUID
	types []*SyntheticType
	byKey map[string]*SyntheticType
	names map[string]struct{}
	// pkgNames maps import paths seen while building to package names.
	pkgNames map[string]string
}

func newModule(cfg Config) *Module {
	return &Module{
		cfg:      cfg,
		id:       uuid.New(),
		byKey:    make(map[string]*SyntheticType),
		names:    make(map[string]struct{}),
		pkgNames: make(map[string]string),
	}
}

// Ref returns the module reference the rewritten tokens point into.
func (m *Module) Ref() reference.ModuleRef {
	return m.cfg.ModuleRef()
}

// ID returns the identity of this build of the module.
func (m *Module) ID() uuid.UUID {
	return m.id
}

// Config returns the configuration the module was built with.
func (m *Module) Config() Config {
	return m.cfg
}

// Types returns the synthetic types in creation order.
func (m *Module) Types() []*SyntheticType {
	return append([]*SyntheticType(nil), m.types...)
}

// Type returns the synthetic type of an original type definition.
func (m *Module) Type(original reference.TypeRef) (*SyntheticType, bool) {
	t, ok := m.byKey[original.Definition().Key()]
	return t, ok
}

// Seal seals the synthetic type of original. Unknown types are ignored.
func (m *Module) Seal(original reference.TypeRef) {
	if t, ok := m.Type(original); ok {
		t.Seal()
	}
}

// Finalize seals every synthetic type. It is idempotent.
func (m *Module) Finalize() {
	for _, t := range m.types {
		t.Seal()
	}
}

// Finalized reports whether every synthetic type is sealed.
func (m *Module) Finalized() bool {
	for _, t := range m.types {
		if !t.sealed {
			return false
		}
	}

	return true
}

func (m *Module) addType(original, decl reference.TypeRef, name string, params []TypeParam) *SyntheticType {
	name = uniqueName(m.names, name)
	m.names[name+"Forwarders"] = struct{}{}

	t := &SyntheticType{
		Original:   original,
		Name:       name,
		TypeParams: params,
		module:     m.Ref(),
		decl:       decl,
		byKey:      make(map[string]*Forwarder),
		methods:    make(map[string]struct{}),
	}

	m.types = append(m.types, t)
	m.byKey[original.Key()] = t

	return t
}

// uniqueName returns name, or name with the smallest numeric suffix not in
// used, and records the result.
func uniqueName(used map[string]struct{}, name string) string {
	candidate := name
	for i := 2; ; i++ {
		if _, taken := used[candidate]; !taken {
			break
		}

		candidate = fmt.Sprintf("%s%d", name, i)
	}

	used[candidate] = struct{}{}

	return candidate
}
