package reference_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"composition-cache/internal/reference"
)

var widgets = reference.ModuleRef{ImportPath: "example.com/widgets", ModulePath: "example.com/widgets"}

func TestTypeRef_String(t *testing.T) {
	gadget := reference.Named(widgets, "Gadget", 0)
	box := reference.Named(widgets, "Box", 1, reference.PointerTo(gadget))

	assert.Equal(t, "int", reference.Basic("int").String())
	assert.Equal(t, "widgets.Gadget", gadget.String())
	assert.Equal(t, "*widgets.Box[*widgets.Gadget]", reference.PointerTo(box).String())
	assert.Equal(t, "map[string][]widgets.Gadget", reference.MapOf(reference.Basic("string"), reference.SliceOf(gadget)).String())
	assert.Equal(t, "[4]T", reference.ArrayOf(4, reference.TypeParam(0, "T")).String())
}

func TestTypeRef_KeyDistinguishesShapes(t *testing.T) {
	gadget := reference.Named(widgets, "Gadget", 0)
	refs := []reference.TypeRef{
		reference.Basic("int"),
		gadget,
		reference.Named(reference.ModuleRef{ImportPath: "example.com/widgets"}, "Gadget", 0),
		reference.Named(widgets, "Box", 1),
		reference.Named(widgets, "Box", 1, gadget),
		reference.PointerTo(gadget),
		reference.SliceOf(gadget),
		reference.ArrayOf(2, gadget),
		reference.ArrayOf(3, gadget),
		reference.MapOf(reference.Basic("string"), gadget),
		reference.TypeParam(0, "T"),
		reference.TypeParam(1, "T"),
		reference.TypeParam(0, "K"),
		reference.SliceOf(reference.TypeParam(0, "K")),
	}

	seen := make(map[string]int)
	for i, r := range refs {
		if j, dup := seen[r.Key()]; dup {
			t.Fatalf("refs %d and %d share key %q", j, i, r.Key())
		}
		seen[r.Key()] = i
	}
}

func TestTypeRef_Equal(t *testing.T) {
	a := reference.Named(widgets, "Box", 1, reference.Basic("int"))
	b := reference.Named(widgets, "Box", 1, reference.Basic("int"))
	c := reference.Named(widgets, "Box", 1, reference.Basic("string"))

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.Equal(t, a.Key(), b.Key())
	assert.True(t, reference.Named(widgets, "Box", 1).Equal(a.Definition()))
}

func TestTypeRef_SignatureKeyIgnoresModulePath(t *testing.T) {
	a := reference.Named(widgets, "Gadget", 0)
	b := reference.Named(reference.ModuleRef{ImportPath: widgets.ImportPath}, "Gadget", 0)

	assert.NotEqual(t, a.Key(), b.Key())
	assert.Equal(t, a.SignatureKey(), b.SignatureKey())
}

func TestTypeRef_SignatureKeyIgnoresTypeParamNames(t *testing.T) {
	box := func(param string) reference.MethodRef {
		return reference.MethodRef{
			DeclaringType: reference.Named(widgets, "Box", 1),
			Name:          "Put",
			Params:        []reference.TypeRef{reference.TypeParam(0, param)},
		}
	}

	assert.NotEqual(t, box("T").Key(), box("K").Key())
	assert.Equal(t, box("T").SignatureKey(), box("K").SignatureKey())
	assert.NotEqual(t, reference.TypeParam(0, "T").SignatureKey(), reference.TypeParam(1, "T").SignatureKey())
}

// typeRefs draws small, often colliding type references.
func typeRefs(depth int) *rapid.Generator[reference.TypeRef] {
	return rapid.Custom(func(t *rapid.T) reference.TypeRef {
		maxKind := 7
		if depth == 0 {
			maxKind = 2
		}

		switch rapid.IntRange(0, maxKind).Draw(t, "kind") {
		case 0:
			return reference.Basic(rapid.SampledFrom([]string{"int", "string"}).Draw(t, "basic"))
		case 1:
			module := rapid.SampledFrom([]reference.ModuleRef{widgets, {ImportPath: widgets.ImportPath}}).Draw(t, "module")
			return reference.Named(module, rapid.SampledFrom([]string{"Gadget", "Box"}).Draw(t, "name"), 0)
		case 2:
			return reference.TypeParam(rapid.IntRange(0, 1).Draw(t, "index"), rapid.SampledFrom([]string{"T", "K"}).Draw(t, "param"))
		case 3:
			return reference.PointerTo(typeRefs(depth-1).Draw(t, "elem"))
		case 4:
			return reference.SliceOf(typeRefs(depth-1).Draw(t, "elem"))
		case 5:
			return reference.ArrayOf(rapid.IntRange(2, 3).Draw(t, "len"), typeRefs(depth-1).Draw(t, "elem"))
		case 6:
			return reference.MapOf(typeRefs(depth-1).Draw(t, "key"), typeRefs(depth-1).Draw(t, "elem"))
		default:
			return reference.Named(widgets, "Box", 1, typeRefs(depth-1).Draw(t, "arg"))
		}
	})
}

func TestTypeRef_KeyMatchesEqual(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := typeRefs(2).Draw(t, "a")
		b := typeRefs(2).Draw(t, "b")

		if (a.Key() == b.Key()) != a.Equal(b) {
			t.Fatalf("%s and %s: keys %q and %q disagree with Equal=%v", a, b, a.Key(), b.Key(), a.Equal(b))
		}

		if err := a.Validate(); err != nil {
			t.Fatalf("generated %s is invalid: %v", a, err)
		}
	})
}

func TestTypeRef_Validate(t *testing.T) {
	gadget := reference.Named(widgets, "Gadget", 0)

	valid := []reference.TypeRef{
		reference.Basic("int"),
		gadget,
		reference.Named(widgets, "Box", 1),
		reference.Named(widgets, "Box", 1, gadget),
		reference.MapOf(reference.Basic("string"), reference.SliceOf(reference.PointerTo(gadget))),
		reference.ArrayOf(0, reference.TypeParam(0, "T")),
	}
	for _, ref := range valid {
		assert.NoError(t, ref.Validate(), ref.String())
	}

	invalid := map[string]reference.TypeRef{
		"zero":              {},
		"unknown kind":      {Kind: reference.TypeKind(42)},
		"unnamed basic":     reference.Basic(""),
		"named no package":  reference.Named(reference.ModuleRef{}, "Gadget", 0),
		"arity mismatch":    reference.Named(widgets, "Box", 1, gadget, gadget),
		"pointer no elem":   {Kind: reference.TypeKindPointer},
		"negative array":    reference.ArrayOf(-1, gadget),
		"map one type":      {Kind: reference.TypeKindMap, Args: []reference.TypeRef{gadget}},
		"unnamed param":     reference.TypeParam(0, ""),
		"nested zero":       reference.SliceOf(reference.TypeRef{}),
		"nested bad arg":    reference.Named(widgets, "Box", 1, reference.TypeRef{Kind: reference.TypeKindSlice}),
	}
	for name, ref := range invalid {
		assert.ErrorIs(t, ref.Validate(), reference.ErrInvalidReference, name)
	}

	// Malformed references still have keys and readable forms.
	assert.NotPanics(t, func() {
		_ = reference.TypeRef{Kind: reference.TypeKindMap}.Key()
		_ = reference.TypeRef{Kind: reference.TypeKindPointer}.String()
		_ = reference.TypeRef{Kind: reference.TypeKindSlice}.Elem()
	})
}

func TestMemberRefs_Validate(t *testing.T) {
	gadget := reference.Named(widgets, "Gadget", 0)
	method := reference.MethodRef{DeclaringType: gadget, Name: "Rename", Params: []reference.TypeRef{reference.Basic("string")}}
	field := reference.FieldRef{DeclaringType: gadget, Name: "Name", Accessor: reference.AccessorSet}

	assert.NoError(t, reference.MethodMember(method).Validate())
	assert.NoError(t, reference.FieldMember(field).Validate())
	assert.NoError(t, reference.ParameterRef{Method: method, Position: 0}.Validate())

	badParam := method
	badParam.Params = []reference.TypeRef{{Kind: reference.TypeKindPointer}}

	pointerDecl := method
	pointerDecl.DeclaringType = reference.PointerTo(gadget)

	badAccessor := field
	badAccessor.Accessor = 5

	unnamed := field
	unnamed.Name = ""

	for name, err := range map[string]error{
		"invalid member kind": reference.MemberRef{}.Validate(),
		"bad parameter type":  reference.MethodMember(badParam).Validate(),
		"pointer declaring":   pointerDecl.Validate(),
		"bad accessor":        badAccessor.Validate(),
		"unnamed field":       unnamed.Validate(),
		"negative position":   reference.ParameterRef{Method: method, Position: -1}.Validate(),
	} {
		assert.ErrorIs(t, err, reference.ErrInvalidReference, name)
	}
}

func TestMemberRef_Keys(t *testing.T) {
	gadget := reference.Named(widgets, "Gadget", 0)
	get := reference.FieldRef{DeclaringType: gadget, Name: "Name", Token: 1, Accessor: reference.AccessorGet}
	set := get
	set.Accessor = reference.AccessorSet
	method := reference.MethodRef{DeclaringType: gadget, Name: "Name", Token: 1}

	assert.NotEqual(t, get.Key(), set.Key())
	assert.NotEqual(t, reference.FieldMember(get).Key(), reference.MethodMember(method).Key())
	assert.False(t, reference.FieldMember(get).Equal(reference.MethodMember(method)))
	assert.True(t, reference.FieldMember(get).Equal(reference.FieldMember(get)))

	factory := method
	factory.Func = true
	assert.NotEqual(t, method.Key(), factory.Key())

	p0 := reference.ParameterRef{Method: method, Position: 0}
	p1 := reference.ParameterRef{Method: method, Position: 1}
	assert.NotEqual(t, p0.Key(), p1.Key())
	assert.False(t, p0.Equal(p1))
}

func TestMethodRef_SignatureKeyIgnoresToken(t *testing.T) {
	gadget := reference.Named(widgets, "Gadget", 0)
	a := reference.MethodRef{DeclaringType: gadget, Name: "Rename", Params: []reference.TypeRef{reference.Basic("string")}, Token: 3}
	b := a
	b.Token = 7

	assert.False(t, a.Equal(b))
	assert.Equal(t, a.SignatureKey(), b.SignatureKey())
	assert.Equal(t, "widgets.Gadget.Rename(string)", a.String())
}

func TestKinds_String(t *testing.T) {
	assert.Equal(t, "TypeKindNamed", reference.TypeKindNamed.String())
	assert.Equal(t, "MemberField", reference.MemberField.String())
	assert.Equal(t, "AccessorSet", reference.AccessorSet.String())
	assert.Equal(t, "TypeKind(99)", reference.TypeKind(99).String())
}
