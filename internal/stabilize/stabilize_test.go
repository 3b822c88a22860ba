package stabilize_test

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"sort"
	"strings"
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"composition-cache/internal/composition"
	"composition-cache/internal/composition/compositiontest"
	"composition-cache/internal/reference"
	"composition-cache/internal/reference/reftest"
	"composition-cache/internal/stabilize"
)

type importerFunc func(path string) (*types.Package, error)

func (f importerFunc) Import(path string) (*types.Package, error) { return f(path) }

func newCatalog(t *testing.T, parts ...composition.PartDefinition) (*composition.Catalog, reference.StaticLoader) {
	t.Helper()

	loader := reftest.Widgets()
	c, err := composition.NewCatalog(reference.NewResolver(loader)).AddParts(parts...)
	require.NoError(t, err)

	return c, loader
}

func newBuilder(t *testing.T) (*stabilize.Builder, reference.StaticLoader) {
	t.Helper()

	loader := reftest.Widgets()
	b, err := stabilize.NewBuilder(reference.NewResolver(loader), stabilize.DefaultConfig(), stabilize.WithLogger(testr.New(t)))
	require.NoError(t, err)

	return b, loader
}

// typeCheck parses the generated Go files and type-checks them against deps.
func typeCheck(t *testing.T, cfg stabilize.Config, files []stabilize.GeneratedFile, deps ...*types.Package) *types.Package {
	t.Helper()

	fset := token.NewFileSet()

	var parsed []*ast.File
	for _, f := range files {
		if !strings.HasSuffix(f.Filename, ".go") {
			continue
		}

		file, err := parser.ParseFile(fset, f.Filename, f.Content, parser.ParseComments)
		require.NoError(t, err, "%s:\n%s", f.Filename, f.Content)
		parsed = append(parsed, file)
	}

	byPath := map[string]*types.Package{"unsafe": types.Unsafe}
	for _, dep := range deps {
		byPath[dep.Path()] = dep
	}

	conf := types.Config{
		GoVersion: "go1.24",
		Importer: importerFunc(func(path string) (*types.Package, error) {
			if pkg, ok := byPath[path]; ok {
				return pkg, nil
			}

			return nil, fmt.Errorf("unexpected import %q", path)
		}),
	}

	pkg, err := conf.Check(cfg.ImportPath, fset, parsed, nil)
	require.NoError(t, err)

	return pkg
}

// generatedResolver serves the Widgets fixture together with the generated package.
func generatedResolver(t *testing.T, loader reference.StaticLoader, m *stabilize.Module) *reference.Resolver {
	t.Helper()

	files, err := m.Render()
	require.NoError(t, err)

	cfg := m.Config()
	widgets := loader[reftest.WidgetsPath]
	pkg := typeCheck(t, cfg, files, widgets.Types)

	return reference.NewResolver(reference.StaticLoader{
		reftest.WidgetsPath: widgets,
		cfg.ImportPath:      {Types: pkg, ModulePath: cfg.ModulePath},
	})
}

func fileNames(files []stabilize.GeneratedFile) []string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Filename
	}

	return names
}

func fileContent(t *testing.T, files []stabilize.GeneratedFile, name string) string {
	t.Helper()

	for _, f := range files {
		if f.Filename == name {
			return string(f.Content)
		}
	}

	require.Failf(t, "missing generated file", "%s not in %v", name, fileNames(files))

	return ""
}

func TestStabilizeCatalog_FieldImport(t *testing.T) {
	catalog, _ := newCatalog(t, compositiontest.FooPart())

	stable, m, err := stabilize.StabilizeCatalog(context.Background(), catalog, stabilize.DefaultConfig())
	require.NoError(t, err)

	assert.True(t, m.Finalized())

	ref, ok := stable.StabilizedModule()
	require.True(t, ok)
	assert.Equal(t, m.Ref(), ref)

	st, ok := m.Type(compositiontest.Gadget())
	require.True(t, ok)
	assert.Equal(t, "WidgetsGadget", st.Name)
	assert.Equal(t, "WidgetsGadgetForwarders", st.ForwardersName())
	assert.Empty(t, st.TypeParams)

	require.Len(t, st.Forwarders, 1)
	f := st.Forwarders[0]
	assert.Equal(t, stabilize.ForwardFieldSet, f.Kind)
	assert.Equal(t, "SetName", f.Name)
	assert.Equal(t, stabilize.AccessDirect, f.Access)
	assert.Equal(t, uint32(1), f.Ref.Token)

	parts := stable.Parts()
	require.Len(t, parts, 1)

	part := parts[0]
	assert.Empty(t, cmp.Diff(st.Alias(), part.Type))

	require.Len(t, part.ImportingMembers, 1)
	bnd := part.ImportingMembers[0]
	require.NotNil(t, bnd.Member)
	assert.Equal(t, reference.MemberMethod, bnd.Member.Kind)
	assert.Empty(t, cmp.Diff(f.Ref, bnd.Member.Method))
	assert.Empty(t, cmp.Diff(st.Alias(), bnd.PartType))
	assert.Empty(t, cmp.Diff(reference.Basic("string"), bnd.SiteType))

	// Data is carried over untouched.
	original := compositiontest.FooPart()
	assert.Empty(t, cmp.Diff(original.ExportedTypes, part.ExportedTypes))
	assert.Empty(t, cmp.Diff(original.ImportingMembers[0].Import, bnd.Import))
	assert.Equal(t, original.CreationPolicy, part.CreationPolicy)
}

func TestStabilizeCatalog_GenericType(t *testing.T) {
	catalog, _ := newCatalog(t, compositiontest.BoxPart())

	stable, m, err := stabilize.StabilizeCatalog(context.Background(), catalog, stabilize.DefaultConfig())
	require.NoError(t, err)

	st, ok := m.Type(compositiontest.Box())
	require.True(t, ok)
	assert.Equal(t, "WidgetsBox", st.Name)
	require.Len(t, st.TypeParams, 1)
	assert.Equal(t, "T", st.TypeParams[0].Name)
	assert.Empty(t, cmp.Diff(reference.Named(compositiontest.Widgets, "Base", 0), st.TypeParams[0].Constraint))

	var names []string
	var kinds []stabilize.ForwarderKind
	for i, f := range st.Forwarders {
		names = append(names, f.Name)
		kinds = append(kinds, f.Kind)
		assert.Equal(t, uint32(i+1), f.Ref.Token, f.Name)
	}

	assert.Equal(t, []string{"Get", "SetItem", "NewBox"}, names)
	assert.Equal(t, []stabilize.ForwarderKind{stabilize.ForwardMethod, stabilize.ForwardFieldSet, stabilize.ForwardFactory}, kinds)

	newBox := st.Forwarders[2]
	assert.Empty(t, cmp.Diff([]reference.TypeRef{reference.TypeParam(0, "T")}, newBox.Ref.Params))
	assert.Empty(t, cmp.Diff([]reference.TypeRef{reference.PointerTo(compositiontest.Box(reference.TypeParam(0, "T")))}, newBox.Results))

	part := stable.Parts()[0]
	assert.Empty(t, cmp.Diff(reference.Named(m.Ref(), "WidgetsBox", 1), part.Type))
	require.NotNil(t, part.ImportingConstructor)
	assert.False(t, part.ImportingConstructor.Func)
	assert.Equal(t, "NewBox", part.ImportingConstructor.Name)
	assert.Empty(t, cmp.Diff(st.ForwardersType(), part.ImportingConstructor.DeclaringType))
	assert.Empty(t, cmp.Diff(reference.TypeParam(0, "T"), part.ImportingMembers[0].SiteType))

	files, err := m.Render()
	require.NoError(t, err)
	assert.Equal(t, []string{"module.go", "widgets_box_fwd.go"}, fileNames(files))

	src := fileContent(t, files, "widgets_box_fwd.go")
	assert.Contains(t, src, "type WidgetsBox[T widgets.Base] = widgets.Box[T]")
	assert.Contains(t, src, "type WidgetsBoxForwarders[T widgets.Base] struct{}")
	assert.Contains(t, src, "func (WidgetsBoxForwarders[T]) NewBox(p0 T) *widgets.Box[T] {")
	assert.Contains(t, src, "return widgets.NewBox[T](p0)")
	assert.Contains(t, src, "func (WidgetsBoxForwarders[T]) SetItem(recv *widgets.Box[T], value T) {")
}

func TestStabilizeCatalog_TokensResolveInGeneratedPackage(t *testing.T) {
	catalog, loader := newCatalog(t, compositiontest.FooPart(), compositiontest.BoxPart())
	ctx := context.Background()

	stable, m, err := stabilize.StabilizeCatalog(ctx, catalog, stabilize.DefaultConfig())
	require.NoError(t, err)

	r := generatedResolver(t, loader, m)

	for _, p := range stable.Parts() {
		_, err := r.ResolveType(ctx, p.Type)
		require.NoError(t, err, p.Type.String())

		for _, me := range p.ExportingMembers {
			obj, err := r.ResolveMember(ctx, me.Member)
			require.NoError(t, err, me.Member.String())
			assert.Equal(t, me.Member.Method.Name, obj.Name())
		}

		for _, bnd := range p.Imports() {
			obj, err := r.ResolveMember(ctx, *bnd.Member)
			require.NoError(t, err, bnd.Member.String())
			assert.Equal(t, bnd.Member.Method.Name, obj.Name())

			_, err = r.ResolveType(ctx, bnd.PartType)
			require.NoError(t, err)
		}

		if p.ImportingConstructor != nil {
			fn, err := r.ResolveMethod(ctx, *p.ImportingConstructor)
			require.NoError(t, err)
			assert.Equal(t, "NewBox", fn.Name())
		}
	}
}

func TestBuilder_ForwardersTypeCheckAndResolve(t *testing.T) {
	b, loader := newBuilder(t)
	ctx := context.Background()

	refs := []reference.MemberRef{
		reference.MethodMember(compositiontest.Method("Configure", 4, reference.SliceOf(reference.Basic("string")))),
		reference.MethodMember(compositiontest.Method("Describe", 2)),
		reference.MethodMember(compositiontest.NewGadget()),
		reference.FieldMember(compositiontest.Field("Count", 2, reference.AccessorGet)),
		reference.FieldMember(compositiontest.Field("Tags", 3, reference.AccessorSet)),
	}

	var forwarders []*stabilize.Forwarder
	for _, ref := range refs {
		f, err := b.Member(ctx, ref)
		require.NoError(t, err, ref.String())
		forwarders = append(forwarders, f)
	}

	assert.True(t, forwarders[0].Variadic)
	assert.True(t, forwarders[0].PointerRecv)
	assert.False(t, forwarders[1].PointerRecv)
	assert.Equal(t, stabilize.ForwardFactory, forwarders[2].Kind)
	assert.Equal(t, "GetCount", forwarders[3].Name)
	assert.Equal(t, "SetTags", forwarders[4].Name)

	b.Module().Finalize()

	files, err := b.Module().Render()
	require.NoError(t, err)

	src := fileContent(t, files, "widgets_gadget_fwd.go")
	assert.Contains(t, src, "func (WidgetsGadgetForwarders) Configure(recv *widgets.Gadget, p0 ...string) (int, error) {")
	assert.Contains(t, src, "return recv.Configure(p0...)")
	assert.Contains(t, src, "func (WidgetsGadgetForwarders) Describe(recv widgets.Gadget) string {")
	assert.Contains(t, src, "return widgets.NewGadget(p0, p1)")

	r := generatedResolver(t, loader, b.Module())
	for _, f := range forwarders {
		fn, err := r.ResolveMethod(ctx, f.Ref)
		require.NoError(t, err, f.Ref.String())
		assert.Equal(t, f.Name, fn.Name())
	}
}

func TestBuilder_Idempotent(t *testing.T) {
	b, _ := newBuilder(t)
	ctx := context.Background()

	first, err := b.Type(ctx, compositiontest.Gadget())
	require.NoError(t, err)

	again, err := b.Type(ctx, compositiontest.Gadget())
	require.NoError(t, err)
	assert.Same(t, first, again)

	describe := compositiontest.Method("Describe", 2)
	f1, err := b.Method(ctx, describe)
	require.NoError(t, err)

	f2, err := b.Method(ctx, describe)
	require.NoError(t, err)
	assert.Same(t, f1, f2)

	get, err := b.Field(ctx, compositiontest.Field("Count", 2, reference.AccessorGet))
	require.NoError(t, err)

	set, err := b.Field(ctx, compositiontest.Field("Count", 2, reference.AccessorSet))
	require.NoError(t, err)

	assert.Equal(t, uint32(1), f1.Ref.Token)
	assert.Equal(t, uint32(2), get.Ref.Token)
	assert.Equal(t, uint32(3), set.Ref.Token)
	assert.Len(t, first.Forwarders, 3)
	assert.Len(t, b.Module().Types(), 1)

	// Instantiations share the generic definition's synthetic type.
	box1, err := b.Type(ctx, compositiontest.Box(reference.PointerTo(compositiontest.Gadget())))
	require.NoError(t, err)

	box2, err := b.Type(ctx, compositiontest.Box())
	require.NoError(t, err)
	assert.Same(t, box1, box2)
	assert.Len(t, b.Module().Types(), 2)

	rewritten, err := b.RewriteType(ctx, reference.SliceOf(compositiontest.Box(reference.PointerTo(compositiontest.Gadget()))))
	require.NoError(t, err)

	want := reference.SliceOf(reference.Named(b.Module().Ref(), "WidgetsBox", 1,
		reference.PointerTo(reference.Named(b.Module().Ref(), "WidgetsGadget", 0))))
	assert.Empty(t, cmp.Diff(want, rewritten))
}

func TestStabilizeCatalog_RunsAreIsomorphic(t *testing.T) {
	ctx := context.Background()

	run := func() (*composition.Catalog, *stabilize.Module, []stabilize.GeneratedFile) {
		catalog, _ := newCatalog(t, compositiontest.FooPart(), compositiontest.BoxPart())

		stable, m, err := stabilize.StabilizeCatalog(ctx, catalog, stabilize.DefaultConfig())
		require.NoError(t, err)

		files, err := m.Render()
		require.NoError(t, err)

		return stable, m, files
	}

	c1, m1, files1 := run()
	c2, m2, files2 := run()

	assert.NotEqual(t, m1.ID(), m2.ID())
	assert.Empty(t, cmp.Diff(c1.Parts(), c2.Parts()))

	require.Equal(t, fileNames(files1), fileNames(files2))
	for i := range files1 {
		if files1[i].Filename == "module.go" {
			assert.Contains(t, string(files1[i].Content), m1.ID().String())
			continue
		}

		assert.Equal(t, string(files1[i].Content), string(files2[i].Content), files1[i].Filename)
	}
}

func TestStabilizeCatalog_ParameterBindingIsUnsupported(t *testing.T) {
	catalog, _ := newCatalog(t, compositiontest.RichPart())

	_, _, err := stabilize.StabilizeCatalog(context.Background(), catalog, stabilize.DefaultConfig())

	var unsupported *stabilize.UnsupportedBindingError
	require.ErrorAs(t, err, &unsupported)
	assert.Contains(t, unsupported.Reason, "parameter")
	assert.Contains(t, err.Error(), "stabilize part")
}

func TestStabilizeCatalog_CanceledContext(t *testing.T) {
	catalog, _ := newCatalog(t, compositiontest.FooPart())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := stabilize.StabilizeCatalog(ctx, catalog, stabilize.DefaultConfig())
	require.ErrorIs(t, err, context.Canceled)
}

func TestStabilizeCatalog_InvalidConfig(t *testing.T) {
	catalog, _ := newCatalog(t, compositiontest.FooPart())

	cfg := stabilize.DefaultConfig()
	cfg.PackageName = "not a name"

	_, _, err := stabilize.StabilizeCatalog(context.Background(), catalog, cfg)
	require.Error(t, err)
}

func TestModule_Sealing(t *testing.T) {
	b, _ := newBuilder(t)
	ctx := context.Background()

	describe := compositiontest.Method("Describe", 2)
	f, err := b.Method(ctx, describe)
	require.NoError(t, err)

	_, err = b.Module().Render()
	require.ErrorIs(t, err, stabilize.ErrNotFinalized)

	b.Module().Finalize()
	b.Module().Finalize()
	assert.True(t, b.Module().Finalized())

	// Already emitted forwarders are still served.
	again, err := b.Method(ctx, describe)
	require.NoError(t, err)
	assert.Same(t, f, again)

	_, err = b.Method(ctx, compositiontest.Method("Rename", 1, reference.Basic("string")))
	require.ErrorIs(t, err, stabilize.ErrSealed)

	b.Module().Seal(reference.Named(compositiontest.Widgets, "Pair", 2))
	assert.Len(t, b.Module().Types(), 1)

	// A type created after finalization reopens the module.
	_, err = b.Type(ctx, compositiontest.Box())
	require.NoError(t, err)
	assert.False(t, b.Module().Finalized())

	b.Module().Seal(compositiontest.Box())
	assert.True(t, b.Module().Finalized())
}

func TestBuilder_UnexportedMembers(t *testing.T) {
	b, _ := newBuilder(t)
	ctx := context.Background()

	reset, err := b.Method(ctx, compositiontest.Method("reset", 5))
	require.NoError(t, err)
	assert.Equal(t, stabilize.AccessLinkname, reset.Access)
	assert.Equal(t, "Reset", reset.Name)

	get, err := b.Field(ctx, compositiontest.Field("secret", 4, reference.AccessorGet))
	require.NoError(t, err)
	assert.Equal(t, stabilize.AccessReflect, get.Access)

	set, err := b.Field(ctx, compositiontest.Field("secret", 4, reference.AccessorSet))
	require.NoError(t, err)
	assert.Equal(t, "SetSecret", set.Name)

	b.Module().Finalize()

	files, err := b.Module().Render()
	require.NoError(t, err)
	assert.Equal(t, []string{"module.go", "widgets_gadget_fwd.go", "linkname.s"}, fileNames(files))

	src := fileContent(t, files, "widgets_gadget_fwd.go")
	assert.Contains(t, src, "//go:linkname linkWidgetsGadgetReset example.com/widgets.(*Gadget).reset")
	assert.Contains(t, src, "linkWidgetsGadgetReset(recv)")
	assert.Contains(t, src, `FieldByName("secret")`)
	assert.Contains(t, src, `"reflect"`)
	assert.Contains(t, src, `"unsafe"`)

	_, err = parser.ParseFile(token.NewFileSet(), "widgets_gadget_fwd.go", src, parser.ParseComments)
	require.NoError(t, err)
}

func TestBuilder_LinknameOnlyImportsUnsafeBlank(t *testing.T) {
	b, _ := newBuilder(t)

	_, err := b.Method(context.Background(), compositiontest.Method("reset", 5))
	require.NoError(t, err)

	b.Module().Finalize()

	files, err := b.Module().Render()
	require.NoError(t, err)

	src := fileContent(t, files, "widgets_gadget_fwd.go")
	assert.Contains(t, src, `_ "unsafe"`)
	assert.NotContains(t, src, `"reflect"`)
}

const shapesPath = "example.com/shapes"

const shapesSource = `package shapes

type Number interface{ ~int | ~float64 }

type Vec[T ~int | ~float64] struct{ Items []T }

type Num[T Number] struct{ V T }

type Exact[T int] struct{ V T }

type Plain struct{ n hidden }

func NewPlainOf[T any]() *Plain { return nil }

func (p Plain) Leak() hidden { return p.n }

type hidden struct{}

type Gen[T any] struct{ v T }

func (g *Gen[T]) peek() T { return g.v }

func newGen[T any]() *Gen[T] { return nil }
`

func TestBuilder_Shapes(t *testing.T) {
	shapes := reference.ModuleRef{ImportPath: shapesPath, ModulePath: shapesPath}
	loader := reference.StaticLoader{
		shapesPath: {Types: reftest.MustCheck(shapesPath, shapesSource), ModulePath: shapesPath},
	}

	plain := reference.Named(shapes, "Plain", 0)
	gen := reference.Named(shapes, "Gen", 1)

	tests := []struct {
		name    string
		build   func(ctx context.Context, b *stabilize.Builder) error
		wantErr string
	}{
		{
			name: "named constraint",
			build: func(ctx context.Context, b *stabilize.Builder) error {
				st, err := b.Type(ctx, reference.Named(shapes, "Num", 1))
				if err == nil && !st.TypeParams[0].Constraint.Equal(reference.Named(shapes, "Number", 0)) {
					return fmt.Errorf("constraint %s", st.TypeParams[0].Constraint)
				}

				return err
			},
		},
		{
			name: "predeclared constraint",
			build: func(ctx context.Context, b *stabilize.Builder) error {
				st, err := b.Type(ctx, reference.Named(shapes, "Exact", 1))
				if err == nil && !st.TypeParams[0].Constraint.Equal(reference.Basic("int")) {
					return fmt.Errorf("constraint %s", st.TypeParams[0].Constraint)
				}

				return err
			},
		},
		{
			name: "union constraint",
			build: func(ctx context.Context, b *stabilize.Builder) error {
				_, err := b.Type(ctx, reference.Named(shapes, "Vec", 1))
				return err
			},
			wantErr: "unsupported shape",
		},
		{
			name: "unexported type",
			build: func(ctx context.Context, b *stabilize.Builder) error {
				_, err := b.Type(ctx, reference.Named(shapes, "hidden", 0))
				return err
			},
			wantErr: "unexported",
		},
		{
			name: "factory type parameter mismatch",
			build: func(ctx context.Context, b *stabilize.Builder) error {
				_, err := b.Factory(ctx, reference.MethodRef{DeclaringType: plain, Name: "NewPlainOf", Func: true})
				return err
			},
			wantErr: "type parameters",
		},
		{
			name: "signature mentions unexported type",
			build: func(ctx context.Context, b *stabilize.Builder) error {
				_, err := b.Method(ctx, reference.MethodRef{DeclaringType: plain, Name: "Leak"})
				return err
			},
			wantErr: "unexported type",
		},
		{
			name: "unexported method of generic type",
			build: func(ctx context.Context, b *stabilize.Builder) error {
				_, err := b.Method(ctx, reference.MethodRef{DeclaringType: gen, Name: "peek"})
				return err
			},
			wantErr: "generic types",
		},
		{
			name: "unexported generic factory",
			build: func(ctx context.Context, b *stabilize.Builder) error {
				_, err := b.Factory(ctx, reference.MethodRef{DeclaringType: gen, Name: "newGen", Func: true})
				return err
			},
			wantErr: "unexported generic",
		},
		{
			name: "factory must be a function",
			build: func(ctx context.Context, b *stabilize.Builder) error {
				_, err := b.Factory(ctx, reference.MethodRef{DeclaringType: plain, Name: "Leak"})
				return err
			},
			wantErr: "package-level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := stabilize.NewBuilder(reference.NewResolver(loader), stabilize.DefaultConfig())
			require.NoError(t, err)

			err = tt.build(context.Background(), b)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}

			var unsupported *stabilize.UnsupportedBindingError
			require.ErrorAs(t, err, &unsupported)
			assert.Contains(t, unsupported.Reason, tt.wantErr)
		})
	}
}

func TestNewBuilder_Errors(t *testing.T) {
	_, err := stabilize.NewBuilder(nil, stabilize.DefaultConfig())
	require.Error(t, err)

	cfg := stabilize.DefaultConfig()
	cfg.ImportPath = ""

	_, err = stabilize.NewBuilder(reference.NewResolver(reftest.Widgets()), cfg)
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*stabilize.Config)
		wantErr bool
	}{
		{name: "default", mutate: func(*stabilize.Config) {}},
		{name: "nested import path", mutate: func(c *stabilize.Config) { c.ImportPath = "example.com/stable/gen" }},
		{name: "empty package name", mutate: func(c *stabilize.Config) { c.PackageName = "" }, wantErr: true},
		{name: "blank package name", mutate: func(c *stabilize.Config) { c.PackageName = "_" }, wantErr: true},
		{name: "package name starts with digit", mutate: func(c *stabilize.Config) { c.PackageName = "1stable" }, wantErr: true},
		{name: "empty import path", mutate: func(c *stabilize.Config) { c.ImportPath = "" }, wantErr: true},
		{name: "import path with space", mutate: func(c *stabilize.Config) { c.ImportPath = "example.com/a b" }, wantErr: true},
		{name: "missing module path", mutate: func(c *stabilize.Config) { c.ModulePath = "" }, wantErr: true},
		{name: "dot dot module path", mutate: func(c *stabilize.Config) { c.ModulePath = "example.com/../x" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := stabilize.DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestModule_Save(t *testing.T) {
	catalog, _ := newCatalog(t, compositiontest.FooPart(), compositiontest.BoxPart())

	_, m, err := stabilize.StabilizeCatalog(context.Background(), catalog, stabilize.DefaultConfig())
	require.NoError(t, err)

	dir := t.TempDir() + "/stable"
	require.NoError(t, m.Save(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var got []string
	for _, e := range entries {
		got = append(got, e.Name())
	}

	files, err := m.Render()
	require.NoError(t, err)

	want := fileNames(files)
	sort.Strings(want)
	assert.Equal(t, want, got)

	content, err := os.ReadFile(dir + "/module.go")
	require.NoError(t, err)
	assert.Contains(t, string(content), `const ImportPath = "example.com/stable"`)
}

func TestModule_SaveRemovesStaleFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/widgets_old_fwd.go", []byte("package stable\n"), 0o644))
	require.NoError(t, os.WriteFile(dir+"/linkname.s", nil, 0o644))
	require.NoError(t, os.WriteFile(dir+"/doc.go", []byte("package stable\n"), 0o644))

	catalog, _ := newCatalog(t, compositiontest.FooPart())

	_, m, err := stabilize.StabilizeCatalog(context.Background(), catalog, stabilize.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, m.Save(dir))

	assert.NoFileExists(t, dir+"/widgets_old_fwd.go")
	assert.NoFileExists(t, dir+"/linkname.s")
	assert.FileExists(t, dir+"/doc.go")
	assert.FileExists(t, dir+"/module.go")
	assert.FileExists(t, dir+"/widgets_gadget_fwd.go")
}

func TestModule_SaveRequiresFinalize(t *testing.T) {
	b, _ := newBuilder(t)

	_, err := b.Type(context.Background(), compositiontest.Gadget())
	require.NoError(t, err)

	dir := t.TempDir()
	require.ErrorIs(t, b.Module().Save(dir), stabilize.ErrNotFinalized)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
