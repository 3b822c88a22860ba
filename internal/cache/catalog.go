package cache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"

	"composition-cache/internal/codec"
	"composition-cache/internal/composition"
	"composition-cache/internal/metrics"
	"composition-cache/internal/reference"
)

const (
	// objectsPerPart approximates distinct tokens and strings per part.
	objectsPerPart = 16
	// defaultReadEstimate pre-sizes tables when the part count is unknown.
	defaultReadEstimate = 256
)

// WriteCatalog writes the parts of catalog as a single counted list.
func WriteCatalog(w *codec.Writer, catalog *composition.Catalog) error {
	codec.WriteList(w, catalog.Parts(), writePart)

	return w.Err()
}

// ReadCatalog reads a counted list of parts and assembles a catalog bound to
// resolver.
func ReadCatalog(r *codec.Reader, resolver *reference.Resolver) (*composition.Catalog, error) {
	parts := codec.ReadList(r, readPart)
	if err := r.Err(); err != nil {
		return nil, err
	}

	catalog, err := composition.NewCatalog(resolver).AddParts(parts...)
	if err != nil {
		r.Fail("invalid part definition", err)
		return nil, r.Err()
	}

	return catalog, nil
}

type options struct {
	log     logr.Logger
	metrics *metrics.Cache
}

// Option configures a save or load pass.
type Option func(*options)

// WithLogger sets the logger reporting completed passes.
func WithLogger(log logr.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithMetrics attaches cache collectors.
func WithMetrics(m *metrics.Cache) Option {
	return func(o *options) { o.metrics = m }
}

func newOptions(opts []Option) options {
	o := options{log: logr.Discard()}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// SaveCatalog writes catalog to out in one pass.
func SaveCatalog(out io.Writer, catalog *composition.Catalog, opts ...Option) error {
	o := newOptions(opts)

	w := codec.NewWriter(out, catalog.Len()*objectsPerPart)
	if err := WriteCatalog(w, catalog); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}

	if err := w.Finish(); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}

	o.metrics.Saved(w.Offset(), catalog.Len())
	o.log.V(1).Info("saved catalog", "parts", catalog.Len(), "bytes", w.Offset())

	return nil
}

// LoadCatalog reads a catalog written by SaveCatalog from in. The stream must
// hold exactly one catalog.
func LoadCatalog(in io.Reader, resolver *reference.Resolver, opts ...Option) (*composition.Catalog, error) {
	o := newOptions(opts)

	r := codec.NewReader(in, defaultReadEstimate)
	catalog, err := ReadCatalog(r, resolver)
	if err == nil && !r.AtEOF() {
		r.Fail("trailing data after catalog", nil)
		err = r.Err()
	}

	if doneErr := r.Done(); err == nil {
		err = doneErr
	}

	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	o.metrics.Loaded(r.Offset(), catalog.Len())
	o.log.V(1).Info("loaded catalog", "parts", catalog.Len(), "bytes", r.Offset())

	return catalog, nil
}

// SaveFile writes catalog to path. The file is written next to its final
// location and renamed into place, so a failed save leaves no partial file.
func SaveFile(path string, catalog *composition.Catalog, opts ...Option) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}

	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	if err = SaveCatalog(f, catalog, opts...); err != nil {
		return err
	}

	if err = f.Close(); err != nil {
		return fmt.Errorf("close cache file: %w", err)
	}

	if err = os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("rename cache file: %w", err)
	}

	return nil
}

// LoadFile reads a catalog saved by SaveFile.
func LoadFile(path string, resolver *reference.Resolver, opts ...Option) (*composition.Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cache file: %w", err)
	}
	defer f.Close()

	return LoadCatalog(f, resolver, opts...)
}
