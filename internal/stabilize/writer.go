package stabilize

import (
	"errors"
	"fmt"
	"go/format"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Save renders the module into dir, creating dir if needed. Generated files
// from an earlier run that the module no longer produces are removed, so the
// directory always holds exactly one consistent package. The module must be
// finalized.
func (m *Module) Save(dir string) error {
	files, err := m.Render()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	keep := make(map[string]struct{}, len(files))
	for _, f := range files {
		keep[f.Filename] = struct{}{}

		if err := os.WriteFile(filepath.Join(dir, f.Filename), f.Content, filePerm); err != nil {
			return fmt.Errorf("writing file %s: %w", f.Filename, err)
		}
	}

	return removeStale(dir, keep)
}

// removeStale deletes generated files in dir that are not in keep.
func removeStale(dir string, keep map[string]struct{}) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading output directory: %w", err)
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !isGenerated(name) {
			continue
		}

		if _, ok := keep[name]; ok {
			continue
		}

		if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing stale file %s: %w", name, err)
		}
	}

	return nil
}

func isGenerated(name string) bool {
	return strings.HasSuffix(name, fileSuffix) || name == linknameFile
}

// formatFile gofmts src. When that fails and an output directory is
// configured, the raw source is left there as <name>.unformatted.go and the
// error names it.
func (m *Module) formatFile(name string, src []byte) (GeneratedFile, error) {
	formatted, err := format.Source(src)
	if err == nil {
		return GeneratedFile{Filename: name, Content: formatted}, nil
	}

	err = fmt.Errorf("formatting %s: %w", name, err)

	if dir := m.cfg.OutputDir; dir != "" {
		sidecar := filepath.Join(dir, strings.TrimSuffix(name, ".go")+".unformatted.go")
		if os.MkdirAll(dir, dirPerm) == nil && os.WriteFile(sidecar, src, filePerm) == nil {
			err = fmt.Errorf("%w (unformatted source in %s)", err, sidecar)
		}
	}

	return GeneratedFile{Filename: name, Content: src}, err
}
