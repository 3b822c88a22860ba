package cache_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"composition-cache/internal/cache"
	"composition-cache/internal/codec"
	"composition-cache/internal/composition"
	"composition-cache/internal/composition/compositiontest"
	"composition-cache/internal/metrics"
	"composition-cache/internal/reference"
	"composition-cache/internal/reference/reftest"
)

func newCatalog(t *testing.T, parts ...composition.PartDefinition) *composition.Catalog {
	t.Helper()

	c, err := composition.NewCatalog(reference.NewResolver(reftest.Widgets())).AddParts(parts...)
	require.NoError(t, err)

	return c
}

func save(t *testing.T, c *composition.Catalog) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, cache.SaveCatalog(&buf, c))

	return buf.Bytes()
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	original := newCatalog(t, compositiontest.RichPart(), compositiontest.BoxPart())
	resolver := reference.NewResolver(reftest.Widgets())

	loaded, err := cache.LoadCatalog(bytes.NewReader(save(t, original)), resolver)
	require.NoError(t, err)

	assert.Same(t, resolver, loaded.Resolver())
	if diff := cmp.Diff(original.Parts(), loaded.Parts()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	_, stabilized := loaded.StabilizedModule()
	assert.False(t, stabilized)
}

func TestSaveLoad_MetadataKeepsExactTypes(t *testing.T) {
	loaded, err := cache.LoadCatalog(bytes.NewReader(save(t, newCatalog(t, compositiontest.RichPart()))), nil)
	require.NoError(t, err)

	md := loaded.Parts()[0].Metadata

	count, _ := md.Get("Count")
	assert.IsType(t, int32(0), count)

	raw, _ := md.Get("Bytes")
	assert.Equal(t, []byte{1, 2, 3}, raw)

	nothing, ok := md.Get("Nothing")
	assert.True(t, ok)
	assert.Nil(t, nothing)

	typ, _ := md.Get("Type")
	assert.True(t, compositiontest.Box(reference.PointerTo(compositiontest.Gadget())).Equal(typ.(reference.TypeRef)))
}

func TestSaveLoad_FooScenario(t *testing.T) {
	data := save(t, newCatalog(t, compositiontest.FooPart()))

	// "Foo" appears as contract, import contract and type identity but is
	// written once.
	assert.Equal(t, 1, bytes.Count(data, []byte("\x03Foo")))

	loaded, err := cache.LoadCatalog(bytes.NewReader(data), nil)
	require.NoError(t, err)
	require.Equal(t, 1, loaded.Len())

	part := loaded.Parts()[0]
	require.Len(t, part.ExportedTypes, 1)
	assert.Equal(t, "Foo", part.ExportedTypes[0].ContractName)

	priority, ok := part.ExportedTypes[0].Metadata.Get("Priority")
	require.True(t, ok)
	assert.Equal(t, 1, priority)

	require.Len(t, part.ImportingMembers, 1)
	imp := part.ImportingMembers[0].Import
	assert.Equal(t, "Foo", imp.ContractName)
	assert.Equal(t, []composition.Constraint{composition.ExportTypeIdentityConstraint{TypeIdentityName: "Foo"}}, imp.Constraints)
	assert.Equal(t, []string{"Foo"}, loaded.Contracts())
}

func TestSaveLoad_DeterministicBytes(t *testing.T) {
	a := save(t, newCatalog(t, compositiontest.RichPart(), compositiontest.BoxPart()))
	b := save(t, newCatalog(t, compositiontest.RichPart(), compositiontest.BoxPart()))
	assert.Equal(t, a, b)
}

func TestLoadCatalog_EmptyCatalog(t *testing.T) {
	data := save(t, newCatalog(t))
	assert.Equal(t, []byte{0}, data)

	loaded, err := cache.LoadCatalog(bytes.NewReader(data), nil)
	require.NoError(t, err)
	assert.Zero(t, loaded.Len())
}

func TestLoadCatalog_Truncated(t *testing.T) {
	data := save(t, newCatalog(t, compositiontest.RichPart()))

	for _, cut := range []int{0, 1, len(data) / 2, len(data) - 1} {
		_, err := cache.LoadCatalog(bytes.NewReader(data[:cut]), nil)

		var decErr *codec.DecodeError
		require.ErrorAs(t, err, &decErr, "cut at %d", cut)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF, "cut at %d", cut)
	}
}

func TestLoadCatalog_TrailingData(t *testing.T) {
	data := append(save(t, newCatalog(t, compositiontest.FooPart())), 0)

	_, err := cache.LoadCatalog(bytes.NewReader(data), nil)

	var decErr *codec.DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, "trailing data after catalog", decErr.Reason)
}

// rogueConstraint satisfies composition.Constraint without being one of the
// tagged variants.
type rogueConstraint struct {
	composition.Constraint
}

func TestSaveCatalog_UnknownConstraint(t *testing.T) {
	part := compositiontest.FooPart()
	part.ImportingMembers[0].Import.Constraints = []composition.Constraint{rogueConstraint{}}

	var buf bytes.Buffer
	err := cache.SaveCatalog(&buf, newCatalog(t, part))
	require.ErrorIs(t, err, cache.ErrUnknownConstraint)
	assert.Contains(t, err.Error(), "rogueConstraint")
}

func TestSaveCatalog_UnsupportedValue(t *testing.T) {
	for name, value := range map[string]any{
		"channel":    make(chan int),
		"named enum": composition.CreationPolicyShared,
		"map":        map[string]int{"a": 1},
		"nested":     [][]int{{1}},
	} {
		part := compositiontest.FooPart()
		part.Metadata = composition.MustMetadata(composition.MetadataEntry{Key: "Bad", Value: value})

		var buf bytes.Buffer
		err := cache.SaveCatalog(&buf, newCatalog(t, part))
		assert.ErrorIs(t, err, cache.ErrUnsupportedValue, name)
	}
}

func TestSaveLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.bin")

	reg := metrics.NewCache()
	original := newCatalog(t, compositiontest.RichPart(), compositiontest.BoxPart())

	require.NoError(t, cache.SaveFile(path, original, cache.WithMetrics(reg)))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.InDelta(t, float64(info.Size()), testutil.ToFloat64(reg.BytesWritten), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(reg.PartsWritten), 0)

	loaded, err := cache.LoadFile(path, nil, cache.WithMetrics(reg))
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(original.Parts(), loaded.Parts()))
	assert.InDelta(t, float64(info.Size()), testutil.ToFloat64(reg.BytesRead), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(reg.PartsRead), 0)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestSaveFile_FailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.bin")

	part := compositiontest.FooPart()
	part.ImportingMembers[0].Import.Constraints = []composition.Constraint{rogueConstraint{}}

	err := cache.SaveFile(path, newCatalog(t, part))
	require.ErrorIs(t, err, cache.ErrUnknownConstraint)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := cache.LoadFile(filepath.Join(t.TempDir(), "absent.bin"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSaveLoad_MetadataProperty(t *testing.T) {
	types := []reference.TypeRef{
		reference.Basic("string"),
		compositiontest.Gadget(),
		compositiontest.Box(reference.PointerTo(compositiontest.Gadget())),
		reference.MapOf(reference.Basic("string"), reference.SliceOf(compositiontest.Gadget())),
	}

	value := rapid.OneOf(
		rapid.Just[any](nil),
		rapid.Bool().AsAny(),
		rapid.Int().AsAny(),
		rapid.Int16().AsAny(),
		rapid.Uint64().AsAny(),
		rapid.Float64Range(-1e12, 1e12).AsAny(),
		rapid.String().AsAny(),
		rapid.SampledFrom(types).AsAny(),
		rapid.SliceOfN(rapid.Int32(), 1, 8).AsAny(),
		rapid.SliceOfN(rapid.String(), 1, 8).AsAny(),
	)

	rapid.Check(t, func(t *rapid.T) {
		keys := rapid.SliceOfDistinct(rapid.StringMatching(`[A-Z][a-z]{0,6}`), func(s string) string { return s }).Draw(t, "keys")

		entries := make([]composition.MetadataEntry, len(keys))
		for i, k := range keys {
			entries[i] = composition.MetadataEntry{Key: k, Value: value.Draw(t, k)}
		}

		part := compositiontest.FooPart()
		part.Metadata = composition.MustMetadata(entries...)

		c, err := composition.NewCatalog(nil).AddParts(part)
		if err != nil {
			t.Fatalf("add parts: %v", err)
		}

		var buf bytes.Buffer
		if err := cache.SaveCatalog(&buf, c); err != nil {
			t.Fatalf("save: %v", err)
		}

		loaded, err := cache.LoadCatalog(&buf, nil)
		if err != nil {
			t.Fatalf("load: %v", err)
		}

		if diff := cmp.Diff(c.Parts(), loaded.Parts()); diff != "" {
			t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
		}
	})
}
