// Package verify resolves every token of a catalog up front so a stale cache
// can be rejected before composition starts.
package verify

import (
	"context"
	"errors"
	"go/types"
	"slices"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"composition-cache/internal/composition"
	"composition-cache/internal/diagnostic"
	"composition-cache/internal/match"
	"composition-cache/internal/reference"
)

// Diagnostic codes reported by Catalog.
const (
	CodeUnresolvedType      = "unresolved-type"
	CodeUnresolvedMember    = "unresolved-member"
	CodeUnresolvedParameter = "unresolved-parameter"
	CodeUnresolvedMetadata  = "unresolved-metadata-type"
	CodeNotInstantiable     = "not-instantiable"
	CodeStabilized          = "stabilized"
)

const (
	defaultConcurrency = 8
	// suggestion thresholds for names that no longer resolve
	minSuggestionScore = 0.6
	maxSuggestions     = 3
)

type options struct {
	log         logr.Logger
	concurrency int
}

// Option configures Catalog.
type Option func(*options)

// WithLogger sets the logger reporting per-part progress.
func WithLogger(log logr.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithConcurrency bounds how many parts are verified at once.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// Catalog resolves every token of catalog through its resolver. Unresolvable
// types, members and parameters are errors; type references carried as
// metadata or constraint data are warnings. The returned error is non-nil
// only when ctx ends first.
func Catalog(ctx context.Context, catalog *composition.Catalog, opts ...Option) (diagnostic.Diagnostics, error) {
	o := options{log: logr.Discard(), concurrency: defaultConcurrency}
	for _, opt := range opts {
		opt(&o)
	}

	parts := catalog.Parts()
	perPart := make([]diagnostic.Diagnostics, len(parts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for i, p := range parts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			v := &partVerifier{resolver: catalog.Resolver(), part: p.Type.String()}
			v.verify(gctx, p)
			o.log.V(1).Info("verified part", "part", v.part, "errors", len(v.diags.Errors))
			perPart[i] = v.diags

			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return diagnostic.Diagnostics{}, err
	}

	var out diagnostic.Diagnostics
	if module, ok := catalog.StabilizedModule(); ok {
		out.AddInfo(CodeStabilized, "tokens resolve into a generated forwarding package", "", module.String())
	}

	for _, d := range perPart {
		out.Merge(d)
	}

	return out, nil
}

type partVerifier struct {
	resolver *reference.Resolver
	part     string
	diags    diagnostic.Diagnostics
}

func (v *partVerifier) verify(ctx context.Context, p composition.PartDefinition) {
	v.typ(ctx, p.Type)
	v.metadata(ctx, p.Metadata)

	for _, e := range p.ExportedTypes {
		v.metadata(ctx, e.Metadata)
	}

	for _, me := range p.ExportingMembers {
		v.member(ctx, me.Member)

		for _, e := range me.Exports {
			v.metadata(ctx, e.Metadata)
		}
	}

	for _, bnd := range p.Imports() {
		v.binding(ctx, bnd)
	}

	for _, m := range []*reference.MethodRef{p.OnImportsSatisfied, p.ImportingConstructor} {
		if m == nil {
			continue
		}

		v.member(ctx, reference.MethodMember(*m))
	}

	if !p.IsInstantiable() {
		v.diags.AddInfo(CodeNotInstantiable, "part has no importing constructor", v.part, "")
	}
}

func (v *partVerifier) binding(ctx context.Context, bnd composition.ImportDefinitionBinding) {
	for _, t := range []reference.TypeRef{bnd.PartType, bnd.SiteType, bnd.SiteElementType} {
		v.typ(ctx, t)
	}

	switch {
	case bnd.Member != nil:
		v.member(ctx, *bnd.Member)
	case bnd.Parameter != nil:
		if _, err := v.resolver.ResolveParameter(ctx, *bnd.Parameter); err != nil {
			v.fail(CodeUnresolvedParameter, bnd.Parameter.String(), err)
		}
	}

	v.metadata(ctx, bnd.Import.Metadata)

	for _, c := range bnd.Import.Constraints {
		switch c := c.(type) {
		case composition.MetadataViewConstraint:
			for _, r := range c.Requirements {
				v.dataType(ctx, r.Type)
			}
		case composition.ExportMetadataValueConstraint:
			v.value(ctx, c.Value)
		}
	}
}

// typ resolves t. Types mentioning type parameters only exist inside their
// declaration and are checked through the members that use them.
func (v *partVerifier) typ(ctx context.Context, t reference.TypeRef) {
	if t.IsZero() || hasTypeParam(t) {
		return
	}

	if _, err := v.resolver.ResolveType(ctx, t); err != nil {
		v.fail(CodeUnresolvedType, t.String(), err, v.typeSuggestions(ctx, t)...)
	}
}

func (v *partVerifier) member(ctx context.Context, m reference.MemberRef) {
	if _, err := v.resolver.ResolveMember(ctx, m); err != nil {
		v.fail(CodeUnresolvedMember, m.String(), err, v.memberSuggestions(ctx, m)...)
	}
}

// typeSuggestions lists declared types of the package with names close to t's.
func (v *partVerifier) typeSuggestions(ctx context.Context, t reference.TypeRef) []string {
	if t.Kind != reference.TypeKindNamed {
		return nil
	}

	pkg, err := v.resolver.Package(ctx, t.Module)
	if err != nil {
		return nil
	}

	var names []string
	for _, name := range pkg.Scope().Names() {
		if _, ok := pkg.Scope().Lookup(name).(*types.TypeName); ok {
			names = append(names, name)
		}
	}

	return suggest(t.Name, names)
}

// memberSuggestions lists methods and fields of the declaring type with
// names close to m's.
func (v *partVerifier) memberSuggestions(ctx context.Context, m reference.MemberRef) []string {
	decl := m.DeclaringType()

	if m.Kind == reference.MemberMethod && m.Method.Func {
		pkg, err := v.resolver.Package(ctx, decl.Module)
		if err != nil {
			return nil
		}

		var funcs []string
		for _, name := range pkg.Scope().Names() {
			if _, ok := pkg.Scope().Lookup(name).(*types.Func); ok {
				funcs = append(funcs, name)
			}
		}

		return suggest(m.Method.Name, funcs)
	}

	typ, err := v.resolver.ResolveType(ctx, decl.Definition())
	if err != nil {
		return nil
	}

	var names []string
	if named, ok := typ.(*types.Named); ok {
		for i := range named.NumMethods() {
			names = append(names, named.Method(i).Name())
		}
	}

	if st, ok := typ.Underlying().(*types.Struct); ok {
		for i := range st.NumFields() {
			names = append(names, st.Field(i).Name())
		}
	}

	name := m.Field.Name
	if m.Kind == reference.MemberMethod {
		name = m.Method.Name
	}

	return suggest(name, names)
}

// suggest returns close matches for name, or nothing when name still exists
// and the failure lies elsewhere.
func suggest(name string, names []string) []string {
	if slices.Contains(names, name) {
		return nil
	}

	return match.Suggest(name, names, minSuggestionScore, maxSuggestions)
}

func (v *partVerifier) metadata(ctx context.Context, m composition.Metadata) {
	for _, value := range m.All() {
		v.value(ctx, value)
	}
}

func (v *partVerifier) value(ctx context.Context, value any) {
	if t, ok := value.(reference.TypeRef); ok {
		v.dataType(ctx, t)
	}
}

func (v *partVerifier) dataType(ctx context.Context, t reference.TypeRef) {
	if t.IsZero() || hasTypeParam(t) {
		return
	}

	if _, err := v.resolver.ResolveType(ctx, t); err != nil {
		v.diags.AddWarning(CodeUnresolvedMetadata, reason(err), v.part, t.String())
	}
}

func (v *partVerifier) fail(code, token string, err error, suggestions ...string) {
	v.diags.AddError(code, reason(err), v.part, token, suggestions...)
}

// reason returns the resolution failure reason, or the whole error.
func reason(err error) string {
	var resErr *reference.ResolutionError
	if errors.As(err, &resErr) {
		return resErr.Reason
	}

	return err.Error()
}

func hasTypeParam(t reference.TypeRef) bool {
	if t.Kind == reference.TypeKindTypeParam {
		return true
	}

	for _, arg := range t.Args {
		if hasTypeParam(arg) {
			return true
		}
	}

	return false
}
