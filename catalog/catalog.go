// Package catalog loads message catalogs from disk and shares the parsed
// result through a Store so each catalog file is parsed once per store.
package catalog

import (
	"fmt"
	"sort"
)

// Catalog is the parsed content of one locale file: direct entries plus
// exactly one level of named sections. A name is either an entry or a
// section, never both.
type Catalog struct {
	Entries  map[string]string            `cbor:"entries"  json:"entries"`
	Sections map[string]map[string]string `cbor:"sections" json:"sections"`
}

// New returns an empty catalog ready for population.
func New() Catalog {
	return Catalog{
		Entries:  map[string]string{},
		Sections: map[string]map[string]string{},
	}
}

// Entry returns the direct entry stored under key.
func (c Catalog) Entry(key string) (string, bool) {
	v, ok := c.Entries[key]
	return v, ok
}

// Section returns the named section.
func (c Catalog) Section(name string) (map[string]string, bool) {
	s, ok := c.Sections[name]
	return s, ok
}

// Len is the number of messages in the catalog, sections included.
func (c Catalog) Len() int {
	n := len(c.Entries)
	for _, s := range c.Sections {
		n += len(s)
	}
	return n
}

// Keys lists every addressable message key in sorted order, sectioned keys
// rendered as "section.sub_key".
func (c Catalog) Keys() []string {
	keys := make([]string, 0, c.Len())
	for k := range c.Entries {
		keys = append(keys, k)
	}
	for name, s := range c.Sections {
		for k := range s {
			keys = append(keys, name+"."+k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Validate checks that no name is used both as an entry and as a section.
func (c Catalog) Validate() error {
	for name := range c.Sections {
		if _, clash := c.Entries[name]; clash {
			return fmt.Errorf("%q is both an entry and a section", name)
		}
	}
	return nil
}
