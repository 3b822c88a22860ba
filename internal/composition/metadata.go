package composition

import (
	"fmt"
	"iter"
	"slices"

	"github.com/google/go-cmp/cmp"
)

// MetadataEntry is one key/value pair of Metadata.
type MetadataEntry struct {
	Key   string
	Value any
}

// Metadata is an ordered, duplicate-free mapping of keys to values. The zero
// value is empty and ready to use. Metadata is immutable.
type Metadata struct {
	entries []MetadataEntry
	index   map[string]int
}

// NewMetadata builds Metadata from entries, preserving their order.
func NewMetadata(entries ...MetadataEntry) (Metadata, error) {
	if len(entries) == 0 {
		return Metadata{}, nil
	}

	m := Metadata{
		entries: slices.Clone(entries),
		index:   make(map[string]int, len(entries)),
	}

	for i, e := range entries {
		if _, dup := m.index[e.Key]; dup {
			return Metadata{}, fmt.Errorf("%w: duplicate metadata key %q", ErrInvalidDefinition, e.Key)
		}

		m.index[e.Key] = i
	}

	return m, nil
}

// MustMetadata is NewMetadata that panics on duplicate keys. It is intended
// for literals in discovery code and tests.
func MustMetadata(entries ...MetadataEntry) Metadata {
	m, err := NewMetadata(entries...)
	if err != nil {
		panic(err)
	}

	return m
}

// Len returns the number of entries.
func (m Metadata) Len() int {
	return len(m.entries)
}

// Get returns the value stored under key.
func (m Metadata) Get(key string) (any, bool) {
	i, ok := m.index[key]
	if !ok {
		return nil, false
	}

	return m.entries[i].Value, true
}

// Entries returns a copy of the entries in order.
func (m Metadata) Entries() []MetadataEntry {
	return slices.Clone(m.entries)
}

// All iterates over the entries in order.
func (m Metadata) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, e := range m.entries {
			if !yield(e.Key, e.Value) {
				return
			}
		}
	}
}

// With returns a copy of m with key set to value, appended if new.
func (m Metadata) With(key string, value any) Metadata {
	entries := m.Entries()
	if i, ok := m.index[key]; ok {
		entries[i].Value = value
	} else {
		entries = append(entries, MetadataEntry{Key: key, Value: value})
	}

	return MustMetadata(entries...)
}

// Equal reports whether both hold the same entries in the same order.
func (m Metadata) Equal(other Metadata) bool {
	return slices.EqualFunc(m.entries, other.entries, func(a, b MetadataEntry) bool {
		return a.Key == b.Key && cmp.Equal(a.Value, b.Value)
	})
}
