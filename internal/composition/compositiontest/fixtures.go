// Package compositiontest builds part definitions over the reftest Widgets
// fixture for use in tests.
package compositiontest

import (
	"composition-cache/internal/composition"
	"composition-cache/internal/reference"
	"composition-cache/internal/reference/reftest"
)

// Widgets is the module of the reftest Widgets fixture.
var Widgets = reference.ModuleRef{ImportPath: reftest.WidgetsPath, ModulePath: reftest.WidgetsModule}

// Gadget returns the Gadget type reference.
func Gadget() reference.TypeRef {
	return reference.Named(Widgets, "Gadget", 0)
}

// Box returns the Box generic definition, or an instantiation with args.
func Box(args ...reference.TypeRef) reference.TypeRef {
	return reference.Named(Widgets, "Box", 1, args...)
}

// Method returns a method token on Gadget.
func Method(name string, token uint32, params ...reference.TypeRef) reference.MethodRef {
	return reference.MethodRef{DeclaringType: Gadget(), Name: name, Params: params, Token: token}
}

// NewGadget returns the token of the Gadget factory function.
func NewGadget() reference.MethodRef {
	return reference.MethodRef{
		DeclaringType: Gadget(),
		Name:          "NewGadget",
		Params:        []reference.TypeRef{reference.Basic("string"), reference.Basic("int")},
		Func:          true,
	}
}

// Field returns a field accessor token on Gadget.
func Field(name string, token uint32, accessor reference.Accessor) reference.FieldRef {
	return reference.FieldRef{DeclaringType: Gadget(), Name: name, Token: token, Accessor: accessor}
}

// FooPart is a part exporting contract "Foo" with metadata {"Priority": 1}
// and importing one "Foo" through a field, constrained by type identity.
func FooPart() composition.PartDefinition {
	imp := composition.ImportDefinition{
		ContractName: "Foo",
		Cardinality:  composition.ExactlyOne,
		Constraints: []composition.Constraint{
			composition.ExportTypeIdentityConstraint{TypeIdentityName: "Foo"},
		},
	}

	return composition.PartDefinition{
		Type: Gadget(),
		ExportedTypes: []composition.ExportDefinition{
			{
				ContractName: "Foo",
				Metadata:     composition.MustMetadata(composition.MetadataEntry{Key: "Priority", Value: 1}),
			},
		},
		ImportingMembers: []composition.ImportDefinitionBinding{
			composition.MemberBinding(imp, Gadget(), reference.Basic("string"), reference.Basic("string"),
				reference.FieldMember(Field("Name", 1, reference.AccessorSet))),
		},
		CreationPolicy: composition.CreationPolicyShared,
	}
}

// RichPart exercises every field and constraint variant of a part definition.
func RichPart() composition.PartDefinition {
	ctor := NewGadget()
	onSatisfied := Method("Rename", 1, reference.Basic("string"))
	box := Box(reference.PointerTo(Gadget()))

	view := composition.MetadataViewConstraint{Requirements: []composition.MetadataViewRequirement{
		{Name: "Priority", Type: reference.Basic("int"), Required: true},
		{Name: "Tags", Type: reference.SliceOf(reference.Basic("string")), Required: false},
	}}

	listImport := composition.ImportDefinition{
		ContractName: "Plugin",
		Cardinality:  composition.ZeroOrMore,
		Metadata:     composition.MustMetadata(composition.MetadataEntry{Key: "Lazy", Value: true}),
		Constraints: []composition.Constraint{
			view,
			composition.PartCreationPolicyConstraint{RequiredPolicy: composition.CreationPolicyNonShared},
			composition.ExportMetadataValueConstraint{Name: "Weights", Value: []float64{0.5, 1.5}},
		},
		SharingBoundaries: []string{"Request", "Session"},
	}

	ctorImport := composition.ImportDefinition{
		ContractName: "Name",
		Cardinality:  composition.ZeroOrOne,
		Constraints: []composition.Constraint{
			composition.ExportMetadataValueConstraint{Name: "Kind", Value: box},
		},
	}

	return composition.PartDefinition{
		Type: Gadget(),
		Metadata: composition.MustMetadata(
			composition.MetadataEntry{Key: "Name", Value: "gadget"},
			composition.MetadataEntry{Key: "Count", Value: int32(-7)},
			composition.MetadataEntry{Key: "Ratio", Value: 0.25},
			composition.MetadataEntry{Key: "Type", Value: box},
			composition.MetadataEntry{Key: "Nothing", Value: nil},
			composition.MetadataEntry{Key: "Bytes", Value: []byte{1, 2, 3}},
			composition.MetadataEntry{Key: "Big", Value: uint64(1) << 62},
		),
		ExportedTypes: []composition.ExportDefinition{
			{ContractName: "Gadget"},
			{ContractName: "Foo", Metadata: composition.MustMetadata(composition.MetadataEntry{Key: "Priority", Value: 1})},
		},
		ExportingMembers: []composition.MemberExports{
			{
				Member:  reference.MethodMember(Method("Describe", 2)),
				Exports: []composition.ExportDefinition{{ContractName: "Description"}},
			},
			{
				Member:  reference.FieldMember(Field("Count", 2, reference.AccessorGet)),
				Exports: []composition.ExportDefinition{{ContractName: "Count"}, {ContractName: "Size"}},
			},
		},
		ImportingMembers: []composition.ImportDefinitionBinding{
			composition.MemberBinding(listImport, Gadget(), reference.SliceOf(reference.Basic("string")), reference.Basic("string"),
				reference.FieldMember(Field("Tags", 3, reference.AccessorSet))),
		},
		SharingBoundary:      "Request",
		OnImportsSatisfied:   &onSatisfied,
		ImportingConstructor: &ctor,
		ImportingConstructorImports: []composition.ImportDefinitionBinding{
			composition.ParameterBinding(ctorImport, Gadget(), reference.Basic("string"), reference.Basic("string"),
				reference.ParameterRef{Method: ctor, Position: 0}),
		},
		CreationPolicy:            composition.CreationPolicyNonShared,
		IsSharingBoundaryInferred: true,
	}
}

// BoxPart is a part over the generic Box definition, exported through its
// Get method and built by the generic NewBox factory.
func BoxPart() composition.PartDefinition {
	get := reference.MethodRef{DeclaringType: Box(), Name: "Get", Token: 2}
	newBox := reference.MethodRef{
		DeclaringType: Box(),
		Name:          "NewBox",
		Params:        []reference.TypeRef{reference.TypeParam(0, "T")},
		Func:          true,
	}

	return composition.PartDefinition{
		Type: Box(),
		ExportingMembers: []composition.MemberExports{
			{Member: reference.MethodMember(get), Exports: []composition.ExportDefinition{{ContractName: "Item"}}},
		},
		ImportingMembers: []composition.ImportDefinitionBinding{
			composition.MemberBinding(
				composition.ImportDefinition{ContractName: "Item", Cardinality: composition.ExactlyOne},
				Box(), reference.TypeParam(0, "T"), reference.TypeParam(0, "T"),
				reference.FieldMember(reference.FieldRef{DeclaringType: Box(), Name: "Item", Token: 1, Accessor: reference.AccessorSet}),
			),
		},
		ImportingConstructor:        &newBox,
		ImportingConstructorImports: nil,
		CreationPolicy:              composition.CreationPolicyAny,
	}
}
