package stabilize

import (
	"context"
	"fmt"

	"composition-cache/internal/composition"
	"composition-cache/internal/reference"
)

// RewritePart returns a copy of p whose tokens point into the generated
// module: declared types become aliases and members become forwarders.
// Metadata and constraints are data and are left as they are.
func (b *Builder) RewritePart(ctx context.Context, p composition.PartDefinition) (composition.PartDefinition, error) {
	out := p

	var err error
	if out.Type, err = b.RewriteType(ctx, p.Type); err != nil {
		return composition.PartDefinition{}, err
	}

	if p.ExportingMembers != nil {
		out.ExportingMembers = make([]composition.MemberExports, len(p.ExportingMembers))
		for i, me := range p.ExportingMembers {
			f, err := b.Member(ctx, me.Member)
			if err != nil {
				return composition.PartDefinition{}, err
			}

			out.ExportingMembers[i] = composition.MemberExports{Member: reference.MethodMember(f.Ref), Exports: me.Exports}
		}
	}

	if out.ImportingMembers, err = b.rewriteBindings(ctx, p.ImportingMembers); err != nil {
		return composition.PartDefinition{}, err
	}

	if p.OnImportsSatisfied != nil {
		f, err := b.Method(ctx, *p.OnImportsSatisfied)
		if err != nil {
			return composition.PartDefinition{}, err
		}

		ref := f.Ref
		out.OnImportsSatisfied = &ref
	}

	if p.ImportingConstructor != nil {
		f, err := b.Factory(ctx, *p.ImportingConstructor)
		if err != nil {
			return composition.PartDefinition{}, err
		}

		ref := f.Ref
		out.ImportingConstructor = &ref
	}

	if out.ImportingConstructorImports, err = b.rewriteBindings(ctx, p.ImportingConstructorImports); err != nil {
		return composition.PartDefinition{}, err
	}

	return out, nil
}

func (b *Builder) rewriteBindings(ctx context.Context, bindings []composition.ImportDefinitionBinding) ([]composition.ImportDefinitionBinding, error) {
	if bindings == nil {
		return nil, nil
	}

	out := make([]composition.ImportDefinitionBinding, len(bindings))
	for i, bnd := range bindings {
		rewritten, err := b.rewriteBinding(ctx, bnd)
		if err != nil {
			return nil, err
		}

		out[i] = rewritten
	}

	return out, nil
}

func (b *Builder) rewriteBinding(ctx context.Context, bnd composition.ImportDefinitionBinding) (composition.ImportDefinitionBinding, error) {
	switch {
	case bnd.Parameter != nil:
		return composition.ImportDefinitionBinding{}, unsupported(bnd.Parameter.String(), "parameter import sites cannot be forwarded")
	case bnd.Member == nil:
		return composition.ImportDefinitionBinding{}, unsupported(fmt.Sprintf("import %q", bnd.Import.ContractName), "binding names neither a member nor a parameter")
	}

	f, err := b.Member(ctx, *bnd.Member)
	if err != nil {
		return composition.ImportDefinitionBinding{}, err
	}

	out := bnd
	member := reference.MethodMember(f.Ref)
	out.Member = &member

	for _, t := range []*reference.TypeRef{&out.PartType, &out.SiteType, &out.SiteElementType} {
		if *t, err = b.RewriteType(ctx, *t); err != nil {
			return composition.ImportDefinitionBinding{}, err
		}
	}

	return out, nil
}

// StabilizeCatalog rewrites every part of catalog into a new catalog whose
// tokens resolve into the returned module. The module is finalized; callers
// persist it with Module.Save.
func StabilizeCatalog(ctx context.Context, catalog *composition.Catalog, cfg Config, opts ...Option) (*composition.Catalog, *Module, error) {
	b, err := NewBuilder(catalog.Resolver(), cfg, opts...)
	if err != nil {
		return nil, nil, err
	}

	parts := catalog.Parts()
	rewritten := make([]composition.PartDefinition, 0, len(parts))

	for _, p := range parts {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		rp, err := b.RewritePart(ctx, p)
		if err != nil {
			return nil, nil, fmt.Errorf("stabilize part %s: %w", p.Type, err)
		}

		rewritten = append(rewritten, rp)
	}

	b.module.Finalize()

	out, err := composition.NewCatalog(catalog.Resolver()).AddParts(rewritten...)
	if err != nil {
		return nil, nil, err
	}

	b.log.Info("stabilized catalog", "parts", len(rewritten), "types", len(b.module.types), "module", b.module.Ref().String())

	return out.WithStabilizedModule(b.module.Ref()), b.module, nil
}
