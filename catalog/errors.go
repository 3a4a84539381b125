package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrCatalogLoad matches every failure to read or parse a catalog file.
	ErrCatalogLoad = errors.New("catalog load failed")
	// ErrNotCached is returned by Store.GetItem for keys it does not hold.
	ErrNotCached = errors.New("catalog not cached")
	// ErrUnsupportedStore is returned by OpenStore for unknown DSN schemes.
	ErrUnsupportedStore = errors.New("unsupported catalog store")
	// ErrUnknownFormat is returned by ParserFor for unknown catalog formats.
	ErrUnknownFormat = errors.New("unknown catalog format")
)

// LoadError reports a catalog file that could not be read or parsed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("catalog: load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func (e *LoadError) Is(target error) bool {
	return target == ErrCatalogLoad
}
