package reference

import (
	"fmt"
	"go/types"
	"slices"
)

// Factory builds tokens from live go/types entities.
type Factory struct {
	modulePath func(importPath string) string
}

// NewFactory creates a Factory. modulePath maps an import path to the
// version-free module path that owns it; nil leaves module paths empty.
func NewFactory(modulePath func(importPath string) string) *Factory {
	if modulePath == nil {
		modulePath = func(string) string { return "" }
	}

	return &Factory{modulePath: modulePath}
}

// Module returns the ModuleRef of pkg.
func (f *Factory) Module(pkg *types.Package) ModuleRef {
	if pkg == nil {
		return ModuleRef{}
	}

	return ModuleRef{ImportPath: pkg.Path(), ModulePath: f.modulePath(pkg.Path())}
}

// Type converts t into a TypeRef.
func (f *Factory) Type(t types.Type) (TypeRef, error) {
	switch tt := t.(type) {
	case *types.Basic:
		if tt.Kind() == types.UnsafePointer || tt.Info()&types.IsUntyped != 0 {
			return TypeRef{}, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
		}

		return Basic(tt.Name()), nil

	case *types.Alias:
		obj := tt.Obj()
		if obj.Pkg() == nil {
			return Basic(obj.Name()), nil
		}

		args, err := f.typeList(tt.TypeArgs())
		if err != nil {
			return TypeRef{}, err
		}

		return Named(f.Module(obj.Pkg()), obj.Name(), tt.Origin().TypeParams().Len(), args...), nil

	case *types.Named:
		obj := tt.Obj()
		if obj.Pkg() == nil {
			return Basic(obj.Name()), nil
		}

		args, err := f.typeList(tt.TypeArgs())
		if err != nil {
			return TypeRef{}, err
		}

		return Named(f.Module(obj.Pkg()), obj.Name(), tt.Origin().TypeParams().Len(), args...), nil

	case *types.Pointer:
		elem, err := f.Type(tt.Elem())
		if err != nil {
			return TypeRef{}, err
		}

		return PointerTo(elem), nil

	case *types.Slice:
		elem, err := f.Type(tt.Elem())
		if err != nil {
			return TypeRef{}, err
		}

		return SliceOf(elem), nil

	case *types.Array:
		elem, err := f.Type(tt.Elem())
		if err != nil {
			return TypeRef{}, err
		}

		return ArrayOf(int(tt.Len()), elem), nil

	case *types.Map:
		key, err := f.Type(tt.Key())
		if err != nil {
			return TypeRef{}, err
		}

		elem, err := f.Type(tt.Elem())
		if err != nil {
			return TypeRef{}, err
		}

		return MapOf(key, elem), nil

	case *types.TypeParam:
		return TypeParam(tt.Index(), tt.Obj().Name()), nil

	case *types.Interface:
		if tt.Empty() {
			return Basic("any"), nil
		}
	}

	return TypeRef{}, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
}

func (f *Factory) typeList(list *types.TypeList) ([]TypeRef, error) {
	if list.Len() == 0 {
		return nil, nil
	}

	refs := make([]TypeRef, list.Len())
	for i := range list.Len() {
		ref, err := f.Type(list.At(i))
		if err != nil {
			return nil, err
		}

		refs[i] = ref
	}

	return refs, nil
}

// TypeName returns the definition reference of a declared type.
func (f *Factory) TypeName(obj *types.TypeName) (TypeRef, error) {
	if obj.Pkg() == nil {
		return Basic(obj.Name()), nil
	}

	return Named(f.Module(obj.Pkg()), obj.Name(), typeParams(obj.Type()).Len()), nil
}

// Method converts a method into a MethodRef. Methods of instantiated types
// are recorded against their generic origin.
func (f *Factory) Method(fn *types.Func) (MethodRef, error) {
	fn = fn.Origin()

	sig, ok := fn.Type().(*types.Signature)
	if !ok || sig.Recv() == nil {
		return MethodRef{}, fmt.Errorf("%s is not a method", fn.FullName())
	}

	named := receiverBase(sig.Recv().Type())
	if named == nil {
		return MethodRef{}, fmt.Errorf("%s: receiver is not a named type", fn.FullName())
	}

	decl, err := f.TypeName(named.Obj())
	if err != nil {
		return MethodRef{}, err
	}

	params, err := f.params(sig)
	if err != nil {
		return MethodRef{}, fmt.Errorf("%s: %w", fn.FullName(), err)
	}

	var token uint32
	for i := range named.NumMethods() {
		if named.Method(i) == fn {
			token = uint32(i + 1)
			break
		}
	}

	return MethodRef{DeclaringType: decl, Name: fn.Name(), Params: params, Token: token}, nil
}

// Function converts a package-level factory function constructing declaring
// into a MethodRef. Both must live in the same package.
func (f *Factory) Function(fn *types.Func, declaring *types.TypeName) (MethodRef, error) {
	sig, ok := fn.Type().(*types.Signature)
	if !ok || sig.Recv() != nil {
		return MethodRef{}, fmt.Errorf("%s is not a package-level function", fn.FullName())
	}

	if fn.Pkg() != declaring.Pkg() {
		return MethodRef{}, fmt.Errorf("%s: factory must be declared in %s", fn.FullName(), declaring.Pkg().Path())
	}

	decl, err := f.TypeName(declaring)
	if err != nil {
		return MethodRef{}, err
	}

	params, err := f.params(sig)
	if err != nil {
		return MethodRef{}, fmt.Errorf("%s: %w", fn.FullName(), err)
	}

	var token uint32
	if i, found := slices.BinarySearch(fn.Pkg().Scope().Names(), fn.Name()); found {
		token = uint32(i + 1)
	}

	return MethodRef{DeclaringType: decl, Name: fn.Name(), Params: params, Token: token, Func: true}, nil
}

func (f *Factory) params(sig *types.Signature) ([]TypeRef, error) {
	params := sig.Params()
	if params.Len() == 0 {
		return nil, nil
	}

	refs := make([]TypeRef, params.Len())
	for i := range params.Len() {
		ref, err := f.Type(params.At(i).Type())
		if err != nil {
			return nil, err
		}

		refs[i] = ref
	}

	return refs, nil
}

// Field converts the direct field name of the struct underlying declaring
// into a FieldRef.
func (f *Factory) Field(declaring *types.TypeName, name string, accessor Accessor) (FieldRef, error) {
	st, ok := declaring.Type().Underlying().(*types.Struct)
	if !ok {
		return FieldRef{}, fmt.Errorf("%s is not a struct type", declaring.Name())
	}

	decl, err := f.TypeName(declaring)
	if err != nil {
		return FieldRef{}, err
	}

	for i := range st.NumFields() {
		if st.Field(i).Name() == name {
			return FieldRef{DeclaringType: decl, Name: name, Token: uint32(i + 1), Accessor: accessor}, nil
		}
	}

	return FieldRef{}, fmt.Errorf("%s has no field %s", declaring.Name(), name)
}

// receiverBase returns the named type behind a receiver, dereferencing a pointer.
func receiverBase(t types.Type) *types.Named {
	if p, ok := t.(*types.Pointer); ok {
		t = p.Elem()
	}

	named, _ := t.(*types.Named)
	if named == nil {
		return nil
	}

	return named.Origin()
}

// typeParams returns the type parameters declared by a named type or alias.
func typeParams(t types.Type) *types.TypeParamList {
	switch tt := t.(type) {
	case *types.Named:
		return tt.Origin().TypeParams()
	case *types.Alias:
		return tt.Origin().TypeParams()
	default:
		return nil
	}
}
