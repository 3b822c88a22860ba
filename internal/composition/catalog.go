package composition

import (
	"fmt"
	"slices"

	"github.com/google/go-cmp/cmp"

	"composition-cache/internal/reference"
)

// Catalog is an immutable set of part definitions together with the
// resolver that interprets every token inside them. Adding parts returns a
// new Catalog; the receiver is never modified and part values are shared.
type Catalog struct {
	parts    []PartDefinition
	index    map[string]int // part type key -> position in parts
	resolver *reference.Resolver

	stabilized *reference.ModuleRef
}

// NewCatalog returns an empty catalog bound to resolver.
func NewCatalog(resolver *reference.Resolver) *Catalog {
	return &Catalog{resolver: resolver}
}

// Resolver returns the resolution context of the catalog.
func (c *Catalog) Resolver() *reference.Resolver {
	return c.resolver
}

// Len returns the number of parts.
func (c *Catalog) Len() int {
	return len(c.parts)
}

// Parts returns the parts in insertion order.
func (c *Catalog) Parts() []PartDefinition {
	return slices.Clone(c.parts)
}

// Part returns the part defined for typ.
func (c *Catalog) Part(typ reference.TypeRef) (PartDefinition, bool) {
	i, ok := c.index[typ.Key()]
	if !ok {
		return PartDefinition{}, false
	}

	return c.parts[i], true
}

// AddParts returns the union of c and parts. A part identical to one already
// present is skipped; a different part for an already present type, or a part
// violating its invariants, is an error.
func (c *Catalog) AddParts(parts ...PartDefinition) (*Catalog, error) {
	next := &Catalog{
		parts:      slices.Grow(slices.Clone(c.parts), len(parts)),
		index:      make(map[string]int, len(c.parts)+len(parts)),
		resolver:   c.resolver,
		stabilized: c.stabilized,
	}

	for k, v := range c.index {
		next.index[k] = v
	}

	for _, p := range parts {
		if err := p.Validate(); err != nil {
			return nil, err
		}

		key := p.Type.Key()
		if i, ok := next.index[key]; ok {
			if cmp.Equal(next.parts[i], p) {
				continue
			}

			return nil, fmt.Errorf("%w: catalog already defines a different part for %s", ErrInvalidDefinition, p.Type)
		}

		next.index[key] = len(next.parts)
		next.parts = append(next.parts, p)
	}

	return next, nil
}

// AddCatalog returns the union of c and other's parts, bound to c's resolver.
func (c *Catalog) AddCatalog(other *Catalog) (*Catalog, error) {
	return c.AddParts(other.parts...)
}

// WithStabilizedModule returns a copy of c recording that its tokens resolve
// into the synthetic module. The fact is not part of the cache format.
func (c *Catalog) WithStabilizedModule(module reference.ModuleRef) *Catalog {
	next := *c
	next.stabilized = &module

	return &next
}

// StabilizedModule returns the synthetic module the catalog's tokens point
// into, if the catalog was produced by stabilization.
func (c *Catalog) StabilizedModule() (reference.ModuleRef, bool) {
	if c.stabilized == nil {
		return reference.ModuleRef{}, false
	}

	return *c.stabilized, true
}

// Contracts returns the distinct exported contract names in first-seen order.
func (c *Catalog) Contracts() []string {
	seen := make(map[string]struct{})

	var out []string
	for _, p := range c.parts {
		for _, e := range p.Exports() {
			if _, ok := seen[e.ContractName]; ok {
				continue
			}
			seen[e.ContractName] = struct{}{}
			out = append(out, e.ContractName)
		}
	}

	return out
}
