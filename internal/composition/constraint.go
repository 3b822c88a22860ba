package composition

import (
	"github.com/google/go-cmp/cmp"

	"composition-cache/internal/reference"
)

// Well-known export metadata keys consulted by constraints.
const (
	MetadataKeyExportTypeIdentity = "ExportTypeIdentity"
	MetadataKeyCreationPolicy     = "CreationPolicy"
)

// Constraint is an additional predicate an import imposes on candidate
// exports beyond contract-name matching.
//
// The set of implementations is closed: MetadataViewConstraint,
// ExportTypeIdentityConstraint, PartCreationPolicyConstraint and
// ExportMetadataValueConstraint. The cache format tags each one; adding a
// variant changes the format.
type Constraint interface {
	IsSatisfiedBy(export ExportDefinition) bool
	constraint()
}

// MetadataViewRequirement describes one property of a metadata view.
type MetadataViewRequirement struct {
	Name     string
	Type     reference.TypeRef
	Required bool
}

// MetadataViewConstraint requires the export metadata to carry every
// required property of a metadata view. Requirement names are unique.
type MetadataViewConstraint struct {
	Requirements []MetadataViewRequirement
}

// IsSatisfiedBy reports whether every required property is present.
func (c MetadataViewConstraint) IsSatisfiedBy(export ExportDefinition) bool {
	for _, r := range c.Requirements {
		if !r.Required {
			continue
		}

		if _, ok := export.Metadata.Get(r.Name); !ok {
			return false
		}
	}

	return true
}

// ExportTypeIdentityConstraint requires the exported type identity to equal
// TypeIdentityName.
type ExportTypeIdentityConstraint struct {
	TypeIdentityName string
}

// IsSatisfiedBy compares the export's type identity metadata.
func (c ExportTypeIdentityConstraint) IsSatisfiedBy(export ExportDefinition) bool {
	v, ok := export.Metadata.Get(MetadataKeyExportTypeIdentity)
	if !ok {
		return false
	}

	s, ok := v.(string)

	return ok && s == c.TypeIdentityName
}

// PartCreationPolicyConstraint requires an exporting part compatible with
// RequiredPolicy.
type PartCreationPolicyConstraint struct {
	RequiredPolicy CreationPolicy
}

// IsSatisfiedBy checks the export's creation policy metadata, stored as the
// policy name. Any on either side is compatible with everything.
func (c PartCreationPolicyConstraint) IsSatisfiedBy(export ExportDefinition) bool {
	if c.RequiredPolicy == CreationPolicyAny {
		return true
	}

	v, ok := export.Metadata.Get(MetadataKeyCreationPolicy)
	if !ok {
		return true
	}

	policy, ok := v.(string)
	if !ok {
		return false
	}

	return policy == CreationPolicyAny.String() || policy == c.RequiredPolicy.String()
}

// ExportMetadataValueConstraint requires a single named metadata value.
type ExportMetadataValueConstraint struct {
	Name  string
	Value any
}

// IsSatisfiedBy compares the named metadata value.
func (c ExportMetadataValueConstraint) IsSatisfiedBy(export ExportDefinition) bool {
	v, ok := export.Metadata.Get(c.Name)

	return ok && cmp.Equal(v, c.Value)
}

func (MetadataViewConstraint) constraint()        {}
func (ExportTypeIdentityConstraint) constraint()  {}
func (PartCreationPolicyConstraint) constraint()  {}
func (ExportMetadataValueConstraint) constraint() {}
