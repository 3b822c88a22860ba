package stabilize

import (
	"context"
	"errors"
	"fmt"
	"go/token"
	"go/types"

	"github.com/go-logr/logr"

	"composition-cache/internal/common"
	"composition-cache/internal/reference"
)

// Builder emits synthetic types and forwarders on demand and rewrites tokens
// to point at them. Requests are idempotent: asking twice for the same type
// or member returns what the first request built.
//
// A Builder is owned by a single stabilization pass. It is not safe for
// concurrent use.
type Builder struct {
	resolver *reference.Resolver
	factory  *reference.Factory
	module   *Module
	log      logr.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger reporting emitted declarations.
func WithLogger(log logr.Logger) Option {
	return func(b *Builder) { b.log = log }
}

// NewBuilder creates a Builder resolving original tokens through resolver.
func NewBuilder(resolver *reference.Resolver, cfg Config, opts ...Option) (*Builder, error) {
	if resolver == nil {
		return nil, errors.New("stabilization requires a resolver")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := &Builder{
		resolver: resolver,
		factory:  resolver.Factory(),
		module:   newModule(cfg),
		log:      logr.Discard(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b, nil
}

// Module returns the module under construction.
func (b *Builder) Module() *Module {
	return b.module
}

// Type returns the synthetic type of original's generic definition, creating
// it on first use.
func (b *Builder) Type(ctx context.Context, original reference.TypeRef) (*SyntheticType, error) {
	if original.Kind != reference.TypeKindNamed {
		return nil, unsupported(original.String(), "not a declared type")
	}

	def := original.Definition()
	if t, ok := b.module.byKey[def.Key()]; ok {
		return t, nil
	}

	if !token.IsExported(def.Name) {
		return nil, unsupported(def.String(), "unexported types cannot be aliased")
	}

	typ, err := b.resolver.ResolveType(ctx, def)
	if err != nil {
		return nil, err
	}

	obj, tparams := declaration(typ)
	if obj == nil {
		return nil, unsupported(def.String(), "not a declared type")
	}

	decl, err := b.factory.TypeName(obj)
	if err != nil {
		return nil, err
	}

	b.module.pkgNames[obj.Pkg().Path()] = obj.Pkg().Name()

	params := make([]TypeParam, tparams.Len())
	for i := range tparams.Len() {
		tp := tparams.At(i)

		c, err := b.constraint(def, tp.Constraint())
		if err != nil {
			return nil, err
		}

		params[i] = TypeParam{Name: tp.Obj().Name(), Constraint: c}
	}

	t := b.module.addType(def, decl, common.Identifier(obj.Pkg().Name())+def.Name, params)
	b.log.V(1).Info("emitted synthetic type", "original", def.String(), "name", t.Name)

	return t, nil
}

func declaration(t types.Type) (*types.TypeName, *types.TypeParamList) {
	switch tt := t.(type) {
	case *types.Named:
		return tt.Obj(), tt.TypeParams()
	case *types.Alias:
		return tt.Obj(), tt.TypeParams()
	default:
		return nil, nil
	}
}

// constraint converts a type parameter constraint. Only any, comparable,
// a single predeclared type or an exported named interface carry over.
func (b *Builder) constraint(owner reference.TypeRef, t types.Type) (reference.TypeRef, error) {
	if iface, ok := t.(*types.Interface); ok {
		switch {
		case iface.Empty():
			return reference.Basic("any"), nil
		case iface.IsImplicit() && iface.NumEmbeddeds() == 1:
			if basic, ok := iface.EmbeddedType(0).(*types.Basic); ok {
				return reference.Basic(basic.Name()), nil
			}
		}

		return reference.TypeRef{}, unsupported(owner.String(), "constraint %s has an unsupported shape", t)
	}

	ref, err := b.factory.Type(t)
	if err != nil {
		return reference.TypeRef{}, unsupported(owner.String(), "constraint %s: %v", t, err)
	}

	if ref.Kind == reference.TypeKindNamed && !exportedRef(ref) {
		return reference.TypeRef{}, unsupported(owner.String(), "constraint %s is not exported", t)
	}

	b.recordPackages(t)

	return ref, nil
}

// RewriteType returns t with every declared type replaced by its alias.
func (b *Builder) RewriteType(ctx context.Context, t reference.TypeRef) (reference.TypeRef, error) {
	switch t.Kind {
	case reference.TypeKindNamed:
		st, err := b.Type(ctx, t)
		if err != nil {
			return reference.TypeRef{}, err
		}

		args, err := b.rewriteTypes(ctx, t.Args)
		if err != nil {
			return reference.TypeRef{}, err
		}

		return reference.Named(b.module.Ref(), st.Name, len(st.TypeParams), args...), nil

	case reference.TypeKindPointer, reference.TypeKindSlice, reference.TypeKindArray, reference.TypeKindMap:
		args, err := b.rewriteTypes(ctx, t.Args)
		if err != nil {
			return reference.TypeRef{}, err
		}

		out := t
		out.Args = args

		return out, nil

	default:
		return t, nil
	}
}

func (b *Builder) rewriteTypes(ctx context.Context, refs []reference.TypeRef) ([]reference.TypeRef, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	out := make([]reference.TypeRef, len(refs))
	for i, ref := range refs {
		r, err := b.RewriteType(ctx, ref)
		if err != nil {
			return nil, err
		}

		out[i] = r
	}

	return out, nil
}

// Factory returns the forwarder of a factory function.
func (b *Builder) Factory(ctx context.Context, m reference.MethodRef) (*Forwarder, error) {
	if !m.Func {
		return nil, unsupported(m.String(), "importing constructors must be package-level factory functions")
	}

	st, err := b.Type(ctx, m.DeclaringType)
	if err != nil {
		return nil, err
	}

	key := "factory:" + m.Key()
	if f, ok := st.byKey[key]; ok {
		return f, nil
	}

	fn, err := b.resolver.ResolveMethod(ctx, m)
	if err != nil {
		return nil, err
	}

	sig := fn.Type().(*types.Signature)
	if n := sig.TypeParams().Len(); n != len(st.TypeParams) {
		return nil, unsupported(m.String(), "factory declares %d type parameters, its type declares %d", n, len(st.TypeParams))
	}

	access := AccessDirect
	if !fn.Exported() {
		if sig.TypeParams().Len() > 0 {
			return nil, unsupported(m.String(), "unexported generic functions cannot be linked")
		}

		access = AccessLinkname
	}

	params, results, err := b.signature(m.String(), sig, st)
	if err != nil {
		return nil, err
	}

	f := &Forwarder{
		Kind:     ForwardFactory,
		Name:     common.ExportedName(fn.Name()),
		Target:   fn.Name(),
		Access:   access,
		Params:   params,
		Variadic: sig.Variadic(),
		Results:  results,
	}

	return f, b.emit(st, key, f)
}

// Method returns the forwarder of a method. Factory functions are delegated
// to Factory.
func (b *Builder) Method(ctx context.Context, m reference.MethodRef) (*Forwarder, error) {
	if m.Func {
		return b.Factory(ctx, m)
	}

	st, err := b.Type(ctx, m.DeclaringType)
	if err != nil {
		return nil, err
	}

	key := "method:" + m.Key()
	if f, ok := st.byKey[key]; ok {
		return f, nil
	}

	fn, err := b.resolver.ResolveMethod(ctx, m)
	if err != nil {
		return nil, err
	}

	access := AccessDirect
	if !fn.Exported() {
		if len(st.TypeParams) > 0 {
			return nil, unsupported(m.String(), "unexported methods of generic types cannot be linked")
		}

		access = AccessLinkname
	}

	sig := fn.Type().(*types.Signature)
	_, ptr := sig.Recv().Type().(*types.Pointer)

	params, results, err := b.signature(m.String(), sig, st)
	if err != nil {
		return nil, err
	}

	f := &Forwarder{
		Kind:        ForwardMethod,
		Name:        common.ExportedName(fn.Name()),
		Target:      fn.Name(),
		Access:      access,
		Params:      append([]Param{{Name: "recv", Type: receiver(st, ptr)}}, params...),
		Variadic:    sig.Variadic(),
		Results:     results,
		PointerRecv: ptr,
	}

	return f, b.emit(st, key, f)
}

// Field returns the getter or setter forwarder of a struct field.
func (b *Builder) Field(ctx context.Context, fr reference.FieldRef) (*Forwarder, error) {
	st, err := b.Type(ctx, fr.DeclaringType)
	if err != nil {
		return nil, err
	}

	key := "field:" + fr.Key()
	if f, ok := st.byKey[key]; ok {
		return f, nil
	}

	v, err := b.resolver.ResolveField(ctx, fr)
	if err != nil {
		return nil, err
	}

	typ, err := b.siteType(fr.String(), v.Type(), st)
	if err != nil {
		return nil, err
	}

	access := AccessDirect
	if !v.Exported() {
		access = AccessReflect
	}

	f := &Forwarder{
		Target:      v.Name(),
		Access:      access,
		Params:      []Param{{Name: "recv", Type: receiver(st, true)}},
		PointerRecv: true,
	}

	if fr.Accessor == reference.AccessorSet {
		f.Kind = ForwardFieldSet
		f.Name = "Set" + common.ExportedName(v.Name())
		f.Params = append(f.Params, Param{Name: "value", Type: typ})
	} else {
		f.Kind = ForwardFieldGet
		f.Name = "Get" + common.ExportedName(v.Name())
		f.Results = []reference.TypeRef{typ}
	}

	return f, b.emit(st, key, f)
}

// Member returns the forwarder of a field accessor or method.
func (b *Builder) Member(ctx context.Context, m reference.MemberRef) (*Forwarder, error) {
	switch m.Kind {
	case reference.MemberField:
		return b.Field(ctx, m.Field)
	case reference.MemberMethod:
		return b.Method(ctx, m.Method)
	default:
		return nil, unsupported(m.String(), "invalid member")
	}
}

func (b *Builder) emit(st *SyntheticType, key string, f *Forwarder) error {
	if err := st.add(key, f); err != nil {
		return err
	}

	b.log.V(1).Info("emitted forwarder", "type", st.Name, "name", f.Name, "kind", f.Kind.String(), "access", int(f.Access))

	return nil
}

// signature converts parameters and results of sig, naming type parameters
// after the synthetic type's.
func (b *Builder) signature(subject string, sig *types.Signature, st *SyntheticType) ([]Param, []reference.TypeRef, error) {
	var params []Param
	for i := range sig.Params().Len() {
		ref, err := b.siteType(subject, sig.Params().At(i).Type(), st)
		if err != nil {
			return nil, nil, err
		}

		params = append(params, Param{Name: fmt.Sprintf("p%d", i), Type: ref})
	}

	var results []reference.TypeRef
	for i := range sig.Results().Len() {
		ref, err := b.siteType(subject, sig.Results().At(i).Type(), st)
		if err != nil {
			return nil, nil, err
		}

		results = append(results, ref)
	}

	return params, results, nil
}

// siteType converts a type appearing in a forwarded signature.
func (b *Builder) siteType(subject string, t types.Type, st *SyntheticType) (reference.TypeRef, error) {
	ref, err := b.factory.Type(t)
	if err != nil {
		return reference.TypeRef{}, unsupported(subject, "%v", err)
	}

	if !exportedRef(ref) {
		return reference.TypeRef{}, unsupported(subject, "signature mentions unexported type %s", ref)
	}

	b.recordPackages(t)

	return renameTypeParams(ref, st.TypeParams), nil
}

// recordPackages remembers the names of the packages declaring types in t.
func (b *Builder) recordPackages(t types.Type) {
	switch tt := t.(type) {
	case *types.Named:
		if pkg := tt.Obj().Pkg(); pkg != nil {
			b.module.pkgNames[pkg.Path()] = pkg.Name()
		}

		for i := range tt.TypeArgs().Len() {
			b.recordPackages(tt.TypeArgs().At(i))
		}
	case *types.Alias:
		if pkg := tt.Obj().Pkg(); pkg != nil {
			b.module.pkgNames[pkg.Path()] = pkg.Name()
		}

		for i := range tt.TypeArgs().Len() {
			b.recordPackages(tt.TypeArgs().At(i))
		}
	case *types.Pointer:
		b.recordPackages(tt.Elem())
	case *types.Slice:
		b.recordPackages(tt.Elem())
	case *types.Array:
		b.recordPackages(tt.Elem())
	case *types.Map:
		b.recordPackages(tt.Key())
		b.recordPackages(tt.Elem())
	}
}

// receiver returns the original type instantiated with the synthetic type
// parameters, as a pointer when ptr is set.
func receiver(st *SyntheticType, ptr bool) reference.TypeRef {
	args := make([]reference.TypeRef, len(st.TypeParams))
	for i, tp := range st.TypeParams {
		args[i] = reference.TypeParam(i, tp.Name)
	}

	if len(args) == 0 {
		args = nil
	}

	t := reference.Named(st.decl.Module, st.decl.Name, st.decl.Arity, args...)
	if ptr {
		return reference.PointerTo(t)
	}

	return t
}

// renameTypeParams renames type parameter references by position. Methods
// may rename the receiver's type parameters and generic factories declare
// their own; the generated code uses the type's names throughout.
func renameTypeParams(t reference.TypeRef, params []TypeParam) reference.TypeRef {
	if t.Kind == reference.TypeKindTypeParam {
		if t.Len < len(params) {
			return reference.TypeParam(t.Len, params[t.Len].Name)
		}

		return t
	}

	if len(t.Args) == 0 {
		return t
	}

	out := t
	out.Args = make([]reference.TypeRef, len(t.Args))
	for i, arg := range t.Args {
		out.Args[i] = renameTypeParams(arg, params)
	}

	return out
}

// exportedRef reports whether every declared type in t is exported.
func exportedRef(t reference.TypeRef) bool {
	if t.Kind == reference.TypeKindNamed && !token.IsExported(t.Name) {
		return false
	}

	for _, arg := range t.Args {
		if !exportedRef(arg) {
			return false
		}
	}

	return true
}
