// Package reftest provides type-checked fixture packages and loader test
// doubles for code that resolves reference tokens.
package reftest

import (
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"sync"
	"time"

	"composition-cache/internal/reference"
)

// WidgetsPath is the import path of the Widgets fixture.
const WidgetsPath = "example.com/widgets"

// WidgetsModule is the module owning the Widgets fixture.
const WidgetsModule = "example.com/widgets"

// WidgetsSource is a self-contained package exercising every member shape a
// part graph can reference.
const WidgetsSource = `package widgets

type Base interface {
	ID() string
}

type Gadget struct {
	Name   string
	Count  int
	Tags   []string
	secret string
}

func NewGadget(name string, count int) *Gadget {
	return &Gadget{Name: name, Count: count}
}

func (g *Gadget) Rename(name string) { g.Name = name }

func (g Gadget) Describe() string { return g.Name }

func (g *Gadget) ID() string { return g.Name }

func (g *Gadget) Configure(opts ...string) (int, error) { return len(opts), nil }

func (g *Gadget) reset() { g.Count = 0 }

type Box[T Base] struct {
	Item  T
	Items []T
}

func NewBox[T Base](item T) *Box[T] { return &Box[T]{Item: item} }

func (b *Box[T]) Put(item T) { b.Item = item }

func (b *Box[T]) Get() T { return b.Item }

type Pair[K comparable, V any] struct {
	Key   K
	Value V
}

type Registry map[string][]*Gadget

type hidden struct{ n int }

type Stream chan int
`

// Check parses and type-checks src as the package at path. The source may
// not import other packages.
func Check(path, src string) (*types.Package, error) {
	fset := token.NewFileSet()

	file, err := parser.ParseFile(fset, path+"/src.go", src, 0)
	if err != nil {
		return nil, err
	}

	conf := types.Config{}

	return conf.Check(path, fset, []*ast.File{file}, nil)
}

// MustCheck is Check that panics on error.
func MustCheck(path, src string) *types.Package {
	pkg, err := Check(path, src)
	if err != nil {
		panic(err)
	}

	return pkg
}

// Widgets returns a loader serving a freshly type-checked Widgets fixture.
func Widgets() reference.StaticLoader {
	return reference.StaticLoader{
		WidgetsPath: {Types: MustCheck(WidgetsPath, WidgetsSource), ModulePath: WidgetsModule},
	}
}

// ModulePaths maps every package of loader to its module path.
func ModulePaths(loader reference.StaticLoader) func(string) string {
	return func(path string) string {
		if pkg, ok := loader[path]; ok {
			return pkg.ModulePath
		}

		return ""
	}
}

// CountingLoader wraps a loader and records how often each package is loaded.
type CountingLoader struct {
	Loader reference.PackageLoader
	// Delay slows every load down to widen race windows in concurrency tests.
	Delay time.Duration

	mu     sync.Mutex
	counts map[string]int
}

// LoadPackage counts the call and delegates to the wrapped loader.
func (l *CountingLoader) LoadPackage(ctx context.Context, importPath string) (*reference.Package, error) {
	l.mu.Lock()
	if l.counts == nil {
		l.counts = make(map[string]int)
	}
	l.counts[importPath]++
	l.mu.Unlock()

	if l.Delay > 0 {
		select {
		case <-time.After(l.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return l.Loader.LoadPackage(ctx, importPath)
}

// Count returns how many times importPath was loaded.
func (l *CountingLoader) Count(importPath string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.counts[importPath]
}
