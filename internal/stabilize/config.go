package stabilize

import (
	"errors"
	"fmt"
	"go/token"

	"golang.org/x/mod/module"

	"composition-cache/internal/reference"
)

// Config describes the generated package.
type Config struct {
	// PackageName is the name of the generated package.
	PackageName string
	// ImportPath is the import path the generated package is saved under.
	ImportPath string
	// ModulePath is the module owning ImportPath.
	ModulePath string
	// OutputDir receives a .unformatted.go sidecar when rendering fails to format.
	OutputDir string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		PackageName: "stable",
		ImportPath:  "example.com/stable",
		ModulePath:  "example.com/stable",
	}
}

// Validate checks the package name and paths.
func (c Config) Validate() error {
	if !token.IsIdentifier(c.PackageName) || c.PackageName == "_" {
		return fmt.Errorf("invalid package name %q", c.PackageName)
	}

	if err := module.CheckImportPath(c.ImportPath); err != nil {
		return fmt.Errorf("invalid import path: %w", err)
	}

	if c.ModulePath == "" {
		return errors.New("module path is required")
	}

	if err := module.CheckImportPath(c.ModulePath); err != nil {
		return fmt.Errorf("invalid module path: %w", err)
	}

	return nil
}

// ModuleRef returns the module the generated package belongs to.
func (c Config) ModuleRef() reference.ModuleRef {
	return reference.ModuleRef{ImportPath: c.ImportPath, ModulePath: c.ModulePath}
}
