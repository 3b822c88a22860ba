package reference

import (
	"context"
	"errors"
	"go/types"

	"github.com/go-logr/logr"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"composition-cache/internal/metrics"
)

// Resolver is the resolution context: it maps tokens to live go/types
// entities, loading packages on demand through a PackageLoader.
//
// Every token is looked up at most once per Resolver. Concurrent requests for
// the same token share one lookup and observe the identical result; requests
// for different tokens proceed in parallel. Failed lookups are cached too,
// except those caused by context cancellation.
type Resolver struct {
	loader  PackageLoader
	factory *Factory
	tctx    *types.Context
	log     logr.Logger
	metrics *metrics.Resolution

	results  *gocache.Cache
	packages *gocache.Cache
	flights  singleflight.Group
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for lookup tracing.
func WithLogger(log logr.Logger) Option {
	return func(r *Resolver) { r.log = log }
}

// WithMetrics attaches resolution collectors.
func WithMetrics(m *metrics.Resolution) Option {
	return func(r *Resolver) { r.metrics = m }
}

// NewResolver creates a Resolver backed by loader.
func NewResolver(loader PackageLoader, opts ...Option) *Resolver {
	r := &Resolver{
		loader:   loader,
		tctx:     types.NewContext(),
		log:      logr.Discard(),
		results:  gocache.New(gocache.NoExpiration, 0),
		packages: gocache.New(gocache.NoExpiration, 0),
	}
	r.factory = NewFactory(r.modulePathOf)

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Factory returns a token factory whose module paths come from the packages
// this resolver has loaded.
func (r *Resolver) Factory() *Factory {
	return r.factory
}

type result struct {
	value any
	err   error
}

// do runs lookup at most once for key and caches its result.
func (r *Resolver) do(kind, key string, lookup func() (any, error)) (any, error) {
	if cached, ok := r.results.Get(key); ok {
		r.metrics.Hit(kind)
		res := cached.(result)

		return res.value, res.err
	}

	v, _, _ := r.flights.Do(key, func() (any, error) {
		// A flight that finished between the cache check and Do already stored the result.
		if cached, ok := r.results.Get(key); ok {
			return cached.(result), nil
		}

		value, err := lookup()
		r.metrics.Lookup(kind, err)

		res := result{value: value, err: err}
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			r.results.Set(key, res, gocache.NoExpiration)
		}

		if err != nil {
			r.log.V(1).Info("lookup failed", "kind", kind, "key", key, "error", err.Error())
		} else {
			r.log.V(2).Info("resolved", "kind", kind, "key", key)
		}

		return res, nil
	})

	res := v.(result)

	return res.value, res.err
}

// Package loads the package behind module, verifying its module identity.
func (r *Resolver) Package(ctx context.Context, module ModuleRef) (*types.Package, error) {
	key := "pkg:" + module.ImportPath

	v, _, _ := r.flights.Do(key, func() (any, error) {
		if cached, ok := r.packages.Get(module.ImportPath); ok {
			return result{value: cached}, nil
		}

		pkg, err := r.loader.LoadPackage(ctx, module.ImportPath)
		if err != nil {
			return result{err: &ResolutionError{Token: module.String(), Reason: "package cannot be located", Err: err}}, nil
		}

		r.metrics.PackageLoaded()
		r.log.V(1).Info("loaded package", "path", module.ImportPath, "module", pkg.ModulePath)
		r.packages.Set(module.ImportPath, pkg, gocache.NoExpiration)

		return result{value: pkg}, nil
	})

	res := v.(result)
	if res.err != nil {
		return nil, res.err
	}

	pkg := res.value.(*Package)
	if module.ModulePath != "" && pkg.ModulePath != "" && module.ModulePath != pkg.ModulePath {
		return nil, resolutionErrorf(module, "package now belongs to module %s", pkg.ModulePath)
	}

	return pkg.Types, nil
}

func (r *Resolver) modulePathOf(importPath string) string {
	if cached, ok := r.packages.Get(importPath); ok {
		return cached.(*Package).ModulePath
	}

	return ""
}

// ResolveType returns the go/types type t denotes.
func (r *Resolver) ResolveType(ctx context.Context, t TypeRef) (types.Type, error) {
	v, err := r.do("type", "type:"+t.Key(), func() (any, error) {
		return r.lookupType(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	return v.(types.Type), nil
}

func (r *Resolver) lookupType(ctx context.Context, t TypeRef) (types.Type, error) {
	switch t.Kind {
	case TypeKindBasic:
		obj, ok := types.Universe.Lookup(t.Name).(*types.TypeName)
		if !ok {
			return nil, resolutionErrorf(t, "not a predeclared type")
		}

		return obj.Type(), nil

	case TypeKindNamed:
		obj, err := r.typeName(ctx, t)
		if err != nil {
			return nil, err
		}

		if len(t.Args) == 0 {
			return obj.Type(), nil
		}

		args, err := r.resolveTypes(ctx, t.Args)
		if err != nil {
			return nil, err
		}

		inst, err := types.Instantiate(r.tctx, obj.Type(), args, true)
		if err != nil {
			return nil, &ResolutionError{Token: t.String(), Reason: "instantiation failed", Err: err}
		}

		return inst, nil

	case TypeKindPointer, TypeKindSlice, TypeKindArray:
		elem, err := r.ResolveType(ctx, t.Args[0])
		if err != nil {
			return nil, err
		}

		switch t.Kind {
		case TypeKindPointer:
			return types.NewPointer(elem), nil
		case TypeKindSlice:
			return types.NewSlice(elem), nil
		default:
			return types.NewArray(elem, int64(t.Len)), nil
		}

	case TypeKindMap:
		args, err := r.resolveTypes(ctx, t.Args)
		if err != nil {
			return nil, err
		}

		return types.NewMap(args[0], args[1]), nil

	default:
		return nil, resolutionErrorf(t, "%s cannot be resolved outside its declaration", t.Kind)
	}
}

func (r *Resolver) resolveTypes(ctx context.Context, refs []TypeRef) ([]types.Type, error) {
	out := make([]types.Type, len(refs))
	for i, ref := range refs {
		t, err := r.ResolveType(ctx, ref)
		if err != nil {
			return nil, err
		}

		out[i] = t
	}

	return out, nil
}

// typeName finds the declaration of a named type's generic definition.
func (r *Resolver) typeName(ctx context.Context, t TypeRef) (*types.TypeName, error) {
	if t.Kind != TypeKindNamed {
		return nil, resolutionErrorf(t, "not a declared type")
	}

	pkg, err := r.Package(ctx, t.Module)
	if err != nil {
		return nil, err
	}

	obj, ok := pkg.Scope().Lookup(t.Name).(*types.TypeName)
	if !ok {
		return nil, resolutionErrorf(t, "type no longer exists")
	}

	if n := typeParams(obj.Type()).Len(); n != t.Arity {
		return nil, resolutionErrorf(t, "type now has %d type parameters, want %d", n, t.Arity)
	}

	return obj, nil
}

// ResolveMethod returns the method or factory function m denotes.
func (r *Resolver) ResolveMethod(ctx context.Context, m MethodRef) (*types.Func, error) {
	v, err := r.do("method", "method:"+m.Key(), func() (any, error) {
		return r.lookupMethod(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	return v.(*types.Func), nil
}

func (r *Resolver) lookupMethod(ctx context.Context, m MethodRef) (*types.Func, error) {
	decl, err := r.typeName(ctx, m.DeclaringType)
	if err != nil {
		return nil, err
	}

	var candidates []*types.Func
	if m.Func {
		scope := decl.Pkg().Scope()
		names := scope.Names()
		if i := int(m.Token) - 1; i >= 0 && i < len(names) && names[i] == m.Name {
			if fn, ok := scope.Lookup(names[i]).(*types.Func); ok {
				candidates = append(candidates, fn)
			}
		} else if fn, ok := scope.Lookup(m.Name).(*types.Func); ok {
			candidates = append(candidates, fn)
		}
	} else {
		named, ok := decl.Type().(*types.Named)
		if !ok {
			return nil, resolutionErrorf(m, "declaring type has no methods")
		}

		if i := int(m.Token) - 1; i >= 0 && i < named.NumMethods() && named.Method(i).Name() == m.Name {
			candidates = append(candidates, named.Method(i))
		} else {
			for i := range named.NumMethods() {
				if named.Method(i).Name() == m.Name {
					candidates = append(candidates, named.Method(i))
				}
			}
		}
	}

	if len(candidates) == 0 {
		return nil, resolutionErrorf(m, "member no longer exists")
	}

	want := m.SignatureKey()
	for _, fn := range candidates {
		var got MethodRef
		if m.Func {
			got, err = r.factory.Function(fn, decl)
		} else {
			got, err = r.factory.Method(fn)
		}

		if err == nil && got.SignatureKey() == want {
			return fn, nil
		}
	}

	return nil, resolutionErrorf(m, "no member with a matching signature")
}

// ResolveField returns the struct field f denotes.
func (r *Resolver) ResolveField(ctx context.Context, f FieldRef) (*types.Var, error) {
	v, err := r.do("field", "field:"+f.Key(), func() (any, error) {
		return r.lookupField(ctx, f)
	})
	if err != nil {
		return nil, err
	}

	return v.(*types.Var), nil
}

func (r *Resolver) lookupField(ctx context.Context, f FieldRef) (*types.Var, error) {
	decl, err := r.typeName(ctx, f.DeclaringType)
	if err != nil {
		return nil, err
	}

	st, ok := decl.Type().Underlying().(*types.Struct)
	if !ok {
		return nil, resolutionErrorf(f, "declaring type is no longer a struct")
	}

	if i := int(f.Token) - 1; i >= 0 && i < st.NumFields() && st.Field(i).Name() == f.Name {
		return st.Field(i), nil
	}

	for i := range st.NumFields() {
		if st.Field(i).Name() == f.Name {
			return st.Field(i), nil
		}
	}

	return nil, resolutionErrorf(f, "field no longer exists")
}

// ResolveMember returns the field or method m denotes.
func (r *Resolver) ResolveMember(ctx context.Context, m MemberRef) (types.Object, error) {
	switch m.Kind {
	case MemberField:
		return r.ResolveField(ctx, m.Field)
	case MemberMethod:
		return r.ResolveMethod(ctx, m.Method)
	default:
		return nil, resolutionErrorf(m, "invalid member kind")
	}
}

// ResolveParameter returns the parameter p denotes.
func (r *Resolver) ResolveParameter(ctx context.Context, p ParameterRef) (*types.Var, error) {
	fn, err := r.ResolveMethod(ctx, p.Method)
	if err != nil {
		return nil, err
	}

	params := fn.Type().(*types.Signature).Params()
	if p.Position < 0 || p.Position >= params.Len() {
		return nil, resolutionErrorf(p, "parameter position out of range")
	}

	return params.At(p.Position), nil
}
