package cache

import (
	"composition-cache/internal/codec"
	"composition-cache/internal/composition"
	"composition-cache/internal/reference"
)

func writeMetadata(w *codec.Writer, m composition.Metadata) {
	codec.WriteList(w, m.Entries(), func(w *codec.Writer, e composition.MetadataEntry) {
		w.WriteString(e.Key)
		writeValue(w, e.Value)
	})
}

func readMetadata(r *codec.Reader) composition.Metadata {
	entries := codec.ReadList(r, func(r *codec.Reader) composition.MetadataEntry {
		return composition.MetadataEntry{Key: r.ReadString(), Value: readValue(r)}
	})
	if r.Err() != nil {
		return composition.Metadata{}
	}

	m, err := composition.NewMetadata(entries...)
	if err != nil {
		r.Fail("invalid metadata", err)
	}

	return m
}

func writeExport(w *codec.Writer, e composition.ExportDefinition) {
	w.WriteString(e.ContractName)
	writeMetadata(w, e.Metadata)
}

func readExport(r *codec.Reader) composition.ExportDefinition {
	return composition.ExportDefinition{ContractName: r.ReadString(), Metadata: readMetadata(r)}
}

func writeImport(w *codec.Writer, d composition.ImportDefinition) {
	w.WriteString(d.ContractName)
	w.WriteUint8(uint8(d.Cardinality))
	writeMetadata(w, d.Metadata)
	codec.WriteList(w, d.Constraints, writeConstraint)
	codec.WriteList(w, d.SharingBoundaries, (*codec.Writer).WriteString)
}

func readImport(r *codec.Reader) composition.ImportDefinition {
	d := composition.ImportDefinition{ContractName: r.ReadString()}

	d.Cardinality = composition.Cardinality(r.ReadUint8())
	if r.Err() == nil && !d.Cardinality.IsValid() {
		r.Fail("unknown cardinality "+d.Cardinality.String(), nil)
	}

	d.Metadata = readMetadata(r)
	d.Constraints = codec.ReadList(r, readConstraint)
	d.SharingBoundaries = codec.ReadList(r, (*codec.Reader).ReadString)

	return d
}

func writeBinding(w *codec.Writer, b composition.ImportDefinitionBinding) {
	writeImport(w, b.Import)
	writeTypeRef(w, b.PartType)
	writeTypeRef(w, b.SiteType)
	writeTypeRef(w, b.SiteElementType)

	w.WriteBool(b.Member != nil)
	if b.Member != nil {
		writeMemberRef(w, *b.Member)
	}

	w.WriteBool(b.Parameter != nil)
	if b.Parameter != nil {
		writeParameterRef(w, *b.Parameter)
	}
}

func readBinding(r *codec.Reader) composition.ImportDefinitionBinding {
	b := composition.ImportDefinitionBinding{
		Import:          readImport(r),
		PartType:        readTypeRef(r),
		SiteType:        readTypeRef(r),
		SiteElementType: readTypeRef(r),
	}

	if r.ReadBool() {
		m := readMemberRef(r)
		b.Member = &m
	}

	if r.ReadBool() {
		p := readParameterRef(r)
		b.Parameter = &p
	}

	return b
}

func writeOptionalMethod(w *codec.Writer, m *reference.MethodRef) {
	w.WriteBool(m != nil)
	if m != nil {
		writeMethodRef(w, *m)
	}
}

func readOptionalMethod(r *codec.Reader) *reference.MethodRef {
	if !r.ReadBool() {
		return nil
	}

	m := readMethodRef(r)

	return &m
}

// writePart writes a part definition in its fixed field order.
func writePart(w *codec.Writer, p composition.PartDefinition) {
	writeTypeRef(w, p.Type)
	writeMetadata(w, p.Metadata)
	codec.WriteList(w, p.ExportedTypes, writeExport)

	w.WriteCount(len(p.ExportingMembers))
	for _, me := range p.ExportingMembers {
		writeMemberRef(w, me.Member)
		codec.WriteList(w, me.Exports, writeExport)
	}

	codec.WriteList(w, p.ImportingMembers, writeBinding)
	w.WriteString(p.SharingBoundary)
	writeOptionalMethod(w, p.OnImportsSatisfied)

	w.WriteBool(p.ImportingConstructor != nil)
	if p.ImportingConstructor != nil {
		writeMethodRef(w, *p.ImportingConstructor)
		codec.WriteList(w, p.ImportingConstructorImports, writeBinding)
	}

	w.WriteUint8(uint8(p.CreationPolicy))
	w.WriteBool(p.IsSharingBoundaryInferred)
}

func readPart(r *codec.Reader) composition.PartDefinition {
	p := composition.PartDefinition{
		Type:          readTypeRef(r),
		Metadata:      readMetadata(r),
		ExportedTypes: codec.ReadList(r, readExport),
	}

	p.ExportingMembers = codec.ReadList(r, func(r *codec.Reader) composition.MemberExports {
		return composition.MemberExports{Member: readMemberRef(r), Exports: codec.ReadList(r, readExport)}
	})

	p.ImportingMembers = codec.ReadList(r, readBinding)
	p.SharingBoundary = r.ReadString()
	p.OnImportsSatisfied = readOptionalMethod(r)

	if r.ReadBool() {
		ctor := readMethodRef(r)
		p.ImportingConstructor = &ctor
		p.ImportingConstructorImports = codec.ReadList(r, readBinding)
	}

	p.CreationPolicy = readCreationPolicy(r)
	p.IsSharingBoundaryInferred = r.ReadBool()

	return p
}
