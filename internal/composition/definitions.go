package composition

import (
	"errors"
	"fmt"

	"composition-cache/internal/reference"
)

// ErrInvalidDefinition is returned when a definition breaks a structural invariant.
var ErrInvalidDefinition = errors.New("invalid definition")

// ExportDefinition is a capability offered by a part. Exports compare by
// contract name and metadata.
type ExportDefinition struct {
	ContractName string
	Metadata     Metadata
}

// ImportDefinition is a dependency required by a part.
type ImportDefinition struct {
	ContractName string
	Cardinality  Cardinality
	Metadata     Metadata
	Constraints  []Constraint
	// SharingBoundaries lists the boundaries a factory-style import requires
	// transitively.
	SharingBoundaries []string
}

// IsSatisfiedBy reports whether export matches the contract and every constraint.
func (d ImportDefinition) IsSatisfiedBy(export ExportDefinition) bool {
	if export.ContractName != d.ContractName {
		return false
	}

	for _, c := range d.Constraints {
		if !c.IsSatisfiedBy(export) {
			return false
		}
	}

	return true
}

// ImportDefinitionBinding ties an ImportDefinition to the site receiving the
// value: exactly one of Member and Parameter is set.
type ImportDefinitionBinding struct {
	Import ImportDefinition
	// PartType is the type of the part owning the import.
	PartType reference.TypeRef
	// SiteType is the declared type of the importing member or parameter.
	SiteType reference.TypeRef
	// SiteElementType is SiteType with any collection unwrapped.
	SiteElementType reference.TypeRef
	Member          *reference.MemberRef
	Parameter       *reference.ParameterRef
}

// MemberBinding binds an import to a field or setter method.
func MemberBinding(def ImportDefinition, partType, siteType, elemType reference.TypeRef, member reference.MemberRef) ImportDefinitionBinding {
	return ImportDefinitionBinding{
		Import:          def,
		PartType:        partType,
		SiteType:        siteType,
		SiteElementType: elemType,
		Member:          &member,
	}
}

// ParameterBinding binds an import to a parameter of an importing factory.
func ParameterBinding(def ImportDefinition, partType, siteType, elemType reference.TypeRef, param reference.ParameterRef) ImportDefinitionBinding {
	return ImportDefinitionBinding{
		Import:          def,
		PartType:        partType,
		SiteType:        siteType,
		SiteElementType: elemType,
		Parameter:       &param,
	}
}

// Validate checks the member/parameter exclusivity invariant.
func (b ImportDefinitionBinding) Validate() error {
	switch {
	case b.Member != nil && b.Parameter != nil:
		return fmt.Errorf("%w: import %q binds both a member and a parameter", ErrInvalidDefinition, b.Import.ContractName)
	case b.Member == nil && b.Parameter == nil:
		return fmt.Errorf("%w: import %q binds neither a member nor a parameter", ErrInvalidDefinition, b.Import.ContractName)
	case !b.Import.Cardinality.IsValid():
		return fmt.Errorf("%w: import %q has cardinality %d", ErrInvalidDefinition, b.Import.ContractName, b.Import.Cardinality)
	}

	site := func() error {
		if b.Member != nil {
			return b.Member.Validate()
		}

		return b.Parameter.Validate()
	}

	for _, check := range []func() error{b.PartType.Validate, b.SiteType.Validate, b.SiteElementType.Validate, site} {
		if err := check(); err != nil {
			return fmt.Errorf("%w: import %q: %w", ErrInvalidDefinition, b.Import.ContractName, err)
		}
	}

	return nil
}

// MemberExports lists the exports offered through one member of a part.
type MemberExports struct {
	Member  reference.MemberRef
	Exports []ExportDefinition
}

// PartDefinition describes one composable part.
type PartDefinition struct {
	Type             reference.TypeRef
	Metadata         Metadata
	ExportedTypes    []ExportDefinition
	ExportingMembers []MemberExports
	ImportingMembers []ImportDefinitionBinding
	// SharingBoundary is empty when the part is not a boundary.
	SharingBoundary    string
	OnImportsSatisfied *reference.MethodRef
	// ImportingConstructor and ImportingConstructorImports are set together.
	ImportingConstructor        *reference.MethodRef
	ImportingConstructorImports []ImportDefinitionBinding
	CreationPolicy              CreationPolicy
	IsSharingBoundaryInferred   bool
}

// IsShared reports whether instances of the part are shared.
func (p PartDefinition) IsShared() bool {
	return p.CreationPolicy == CreationPolicyShared
}

// IsInstantiable reports whether the engine knows how to construct the part.
func (p PartDefinition) IsInstantiable() bool {
	return p.ImportingConstructor != nil
}

// Imports returns the member imports followed by the constructor imports.
func (p PartDefinition) Imports() []ImportDefinitionBinding {
	out := make([]ImportDefinitionBinding, 0, len(p.ImportingMembers)+len(p.ImportingConstructorImports))
	out = append(out, p.ImportingMembers...)

	return append(out, p.ImportingConstructorImports...)
}

// Exports returns the type-level exports followed by every member export.
func (p PartDefinition) Exports() []ExportDefinition {
	out := append([]ExportDefinition(nil), p.ExportedTypes...)
	for _, me := range p.ExportingMembers {
		out = append(out, me.Exports...)
	}

	return out
}

// Validate checks the structural invariants of the part.
func (p PartDefinition) Validate() error {
	if p.Type.Kind != reference.TypeKindNamed {
		return fmt.Errorf("%w: part type %s is not a declared type", ErrInvalidDefinition, p.Type)
	}

	if p.ImportingConstructor == nil && p.ImportingConstructorImports != nil {
		return fmt.Errorf("%w: part %s has constructor imports without an importing constructor", ErrInvalidDefinition, p.Type)
	}

	if !p.CreationPolicy.IsValid() {
		return fmt.Errorf("%w: part %s has creation policy %d", ErrInvalidDefinition, p.Type, p.CreationPolicy)
	}

	if err := p.Type.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}

	for _, m := range []*reference.MethodRef{p.OnImportsSatisfied, p.ImportingConstructor} {
		if m == nil {
			continue
		}

		if err := m.Validate(); err != nil {
			return fmt.Errorf("%w: part %s: %w", ErrInvalidDefinition, p.Type, err)
		}
	}

	seen := make(map[string]struct{}, len(p.ExportingMembers))
	for _, me := range p.ExportingMembers {
		if err := me.Member.Validate(); err != nil {
			return fmt.Errorf("%w: part %s: %w", ErrInvalidDefinition, p.Type, err)
		}

		key := me.Member.Key()
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: part %s exports member %s twice", ErrInvalidDefinition, p.Type, me.Member)
		}
		seen[key] = struct{}{}
	}

	for _, b := range p.Imports() {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("part %s: %w", p.Type, err)
		}
	}

	if err := p.validateTypeValues(); err != nil {
		return fmt.Errorf("%w: part %s: %w", ErrInvalidDefinition, p.Type, err)
	}

	return nil
}

// validateTypeValues checks the type references carried as metadata values
// and constraint payloads.
func (p PartDefinition) validateTypeValues() error {
	metadata := []Metadata{p.Metadata}
	for _, e := range p.Exports() {
		metadata = append(metadata, e.Metadata)
	}

	var values []any
	for _, b := range p.Imports() {
		metadata = append(metadata, b.Import.Metadata)

		for _, c := range b.Import.Constraints {
			switch c := c.(type) {
			case MetadataViewConstraint:
				for _, r := range c.Requirements {
					values = append(values, r.Type)
				}
			case ExportMetadataValueConstraint:
				values = append(values, c.Value)
			}
		}
	}

	for _, m := range metadata {
		for _, v := range m.All() {
			values = append(values, v)
		}
	}

	for _, v := range values {
		if err := validateTypeValue(v); err != nil {
			return err
		}
	}

	return nil
}

func validateTypeValue(v any) error {
	switch v := v.(type) {
	case reference.TypeRef:
		return v.Validate()
	case []reference.TypeRef:
		for _, t := range v {
			if err := t.Validate(); err != nil {
				return err
			}
		}
	}

	return nil
}
