package cache

import (
	"errors"
	"fmt"

	"composition-cache/internal/codec"
	"composition-cache/internal/composition"
)

// ErrUnknownConstraint is returned when writing a constraint implementation
// outside the closed set the format knows how to tag.
var ErrUnknownConstraint = errors.New("unknown constraint type")

// Constraint variant tags. The numbering is part of the format.
const (
	tagMetadataView        uint8 = 1
	tagExportTypeIdentity  uint8 = 2
	tagPartCreationPolicy  uint8 = 3
	tagExportMetadataValue uint8 = 4
)

func writeConstraint(w *codec.Writer, c composition.Constraint) {
	switch c := c.(type) {
	case composition.MetadataViewConstraint:
		w.WriteUint8(tagMetadataView)
		codec.WriteList(w, c.Requirements, func(w *codec.Writer, req composition.MetadataViewRequirement) {
			w.WriteString(req.Name)
			writeTypeRef(w, req.Type)
			w.WriteBool(req.Required)
		})
	case composition.ExportTypeIdentityConstraint:
		w.WriteUint8(tagExportTypeIdentity)
		w.WriteString(c.TypeIdentityName)
	case composition.PartCreationPolicyConstraint:
		w.WriteUint8(tagPartCreationPolicy)
		w.WriteUint8(uint8(c.RequiredPolicy))
	case composition.ExportMetadataValueConstraint:
		w.WriteUint8(tagExportMetadataValue)
		w.WriteString(c.Name)
		writeValue(w, c.Value)
	default:
		w.Fail(fmt.Errorf("%w: %T", ErrUnknownConstraint, c))
	}
}

func readConstraint(r *codec.Reader) composition.Constraint {
	switch tag := r.ReadUint8(); tag {
	case tagMetadataView:
		reqs := codec.ReadList(r, func(r *codec.Reader) composition.MetadataViewRequirement {
			return composition.MetadataViewRequirement{
				Name:     r.ReadString(),
				Type:     readTypeRef(r),
				Required: r.ReadBool(),
			}
		})

		return composition.MetadataViewConstraint{Requirements: reqs}
	case tagExportTypeIdentity:
		return composition.ExportTypeIdentityConstraint{TypeIdentityName: r.ReadString()}
	case tagPartCreationPolicy:
		return composition.PartCreationPolicyConstraint{RequiredPolicy: readCreationPolicy(r)}
	case tagExportMetadataValue:
		return composition.ExportMetadataValueConstraint{Name: r.ReadString(), Value: readValue(r)}
	default:
		if r.Err() == nil {
			r.Fail(fmt.Sprintf("unknown constraint tag %d", tag), nil)
		}

		return nil
	}
}

func readCreationPolicy(r *codec.Reader) composition.CreationPolicy {
	p := composition.CreationPolicy(r.ReadUint8())
	if r.Err() == nil && !p.IsValid() {
		r.Fail("unknown creation policy "+p.String(), nil)
	}

	return p
}
