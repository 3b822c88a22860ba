package reference

import (
	"context"
	"errors"
	"fmt"
	"go/types"

	"golang.org/x/tools/go/packages"
)

// LoadMode specifies what information to load from packages.
const LoadMode = packages.NeedName |
	packages.NeedTypes |
	packages.NeedModule |
	packages.NeedImports

// Package is a type-checked package together with its module identity.
type Package struct {
	Types      *types.Package
	ModulePath string // version-free module path, empty for the standard library
}

// PackageLoader locates and type-checks the package behind an import path.
// It is the capability the discovery layer provides to the resolver.
type PackageLoader interface {
	LoadPackage(ctx context.Context, importPath string) (*Package, error)
}

// PackagesLoader loads packages with golang.org/x/tools/go/packages.
type PackagesLoader struct {
	// Dir is the directory the go command runs in; empty means the current one.
	Dir string
	// BuildFlags are passed to the underlying build system (e.g., "-tags=integration").
	BuildFlags []string
	// Env overrides the environment of the go command when non-nil.
	Env []string
}

// LoadPackage loads and type-checks a single package.
func (l *PackagesLoader) LoadPackage(ctx context.Context, importPath string) (*Package, error) {
	cfg := &packages.Config{
		Mode:       LoadMode,
		Context:    ctx,
		Dir:        l.Dir,
		BuildFlags: l.BuildFlags,
		Env:        l.Env,
	}

	pkgs, err := packages.Load(cfg, importPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load package %s: %w", importPath, err)
	}

	if len(pkgs) != 1 {
		return nil, fmt.Errorf("pattern %s matched %d packages", importPath, len(pkgs))
	}

	pkg := pkgs[0]

	if len(pkg.Errors) > 0 {
		errs := make([]error, len(pkg.Errors))
		for i, e := range pkg.Errors {
			errs[i] = e
		}

		return nil, fmt.Errorf("package %s does not type-check: %w", importPath, errors.Join(errs...))
	}

	if pkg.Types == nil {
		return nil, fmt.Errorf("package %s has no type information", importPath)
	}

	loaded := &Package{Types: pkg.Types}
	if pkg.Module != nil {
		loaded.ModulePath = pkg.Module.Path
	}

	return loaded, nil
}

// StaticLoader serves packages that were type-checked by the caller, for
// instance by a discovery pass that already holds them in memory.
type StaticLoader map[string]*Package

// LoadPackage returns the registered package or an error.
func (l StaticLoader) LoadPackage(_ context.Context, importPath string) (*Package, error) {
	pkg, ok := l[importPath]
	if !ok {
		return nil, fmt.Errorf("package %s not found", importPath)
	}

	return pkg, nil
}
