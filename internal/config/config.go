package config

import (
	"fmt"
	"os"

	"golang.org/x/mod/module"
	"gopkg.in/yaml.v3"

	"composition-cache/internal/reference"
	"composition-cache/internal/stabilize"
)

// Defaults applied to optional fields.
const (
	DefaultVersion     = "1"
	DefaultCache       = "composition.cache"
	DefaultConcurrency = 8
	DefaultPackageName = "stable"
	DefaultOutputDir   = "stable"
)

// File is the root of a configuration file.
type File struct {
	Version   string          `yaml:"version"`
	Cache     string          `yaml:"cache,omitempty"`
	Loader    LoaderConfig    `yaml:"loader,omitempty"`
	Verify    VerifyConfig    `yaml:"verify,omitempty"`
	Stabilize StabilizeConfig `yaml:"stabilize,omitempty"`
}

// LoaderConfig configures package loading for resolution.
type LoaderConfig struct {
	// Dir is where the go command runs; empty means the current directory.
	Dir string `yaml:"dir,omitempty"`
	// BuildFlags accepts a single flag or a list.
	BuildFlags StringOrArray `yaml:"build_flags,omitempty"`
	// Env overrides the go command environment when set.
	Env []string `yaml:"env,omitempty"`
}

// VerifyConfig configures eager verification.
type VerifyConfig struct {
	Concurrency int `yaml:"concurrency,omitempty"`
}

// StabilizeConfig configures the generated forwarding package.
type StabilizeConfig struct {
	Package    string `yaml:"package,omitempty"`
	ImportPath string `yaml:"import_path,omitempty"`
	// ModulePath defaults to ImportPath.
	ModulePath string `yaml:"module_path,omitempty"`
	OutputDir  string `yaml:"output_dir,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *File {
	var f File
	applyDefaults(&f)

	return &f
}

// LoadFile loads and parses a YAML configuration file from the given path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return Parse(data)
}

// Parse parses YAML data into a File and validates it.
func Parse(data []byte) (*File, error) {
	var f File

	err := yaml.Unmarshal(data, &f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	applyDefaults(&f)

	if err := f.Validate(); err != nil {
		return nil, err
	}

	return &f, nil
}

// applyDefaults fills in default values for optional fields.
func applyDefaults(f *File) {
	if f.Version == "" {
		f.Version = DefaultVersion
	}

	if f.Cache == "" {
		f.Cache = DefaultCache
	}

	if f.Verify.Concurrency <= 0 {
		f.Verify.Concurrency = DefaultConcurrency
	}

	s := &f.Stabilize
	if s.Package == "" {
		s.Package = DefaultPackageName
	}

	if s.OutputDir == "" {
		s.OutputDir = DefaultOutputDir
	}

	if s.ModulePath == "" {
		s.ModulePath = s.ImportPath
	}
}

// Validate checks the version and any import paths that are set.
func (f *File) Validate() error {
	if f.Version != DefaultVersion {
		return fmt.Errorf("unsupported config version %q", f.Version)
	}

	if p := f.Stabilize.ImportPath; p != "" {
		if err := module.CheckImportPath(p); err != nil {
			return fmt.Errorf("stabilize.import_path: %w", err)
		}
	}

	if p := f.Stabilize.ModulePath; p != "" {
		if err := module.CheckImportPath(p); err != nil {
			return fmt.Errorf("stabilize.module_path: %w", err)
		}
	}

	return nil
}

// PackagesLoader returns the loader described by the loader section.
func (f *File) PackagesLoader() *reference.PackagesLoader {
	return &reference.PackagesLoader{
		Dir:        f.Loader.Dir,
		BuildFlags: f.Loader.BuildFlags,
		Env:        f.Loader.Env,
	}
}

// StabilizeConfig returns the generated package configuration. It is
// validated when stabilization starts.
func (f *File) StabilizeConfig() stabilize.Config {
	return stabilize.Config{
		PackageName: f.Stabilize.Package,
		ImportPath:  f.Stabilize.ImportPath,
		ModulePath:  f.Stabilize.ModulePath,
		OutputDir:   f.Stabilize.OutputDir,
	}
}

// Marshal serializes a File to YAML.
func Marshal(f *File) ([]byte, error) {
	return yaml.Marshal(f)
}
