package messageformat

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownKey     = errors.New("unknown key")
	ErrUnknownSection = errors.New("unknown section")
	ErrNoLocales      = errors.New("no locales given")
)

// Kind classifies a failed lookup.
type Kind int

const (
	KindUnknownKey Kind = iota + 1
	KindUnknownSection
)

func (k Kind) String() string {
	switch k {
	case KindUnknownKey:
		return "unknown key"
	case KindUnknownSection:
		return "unknown section"
	default:
		return "unknown"
	}
}

// LookupError is returned when a key cannot be resolved anywhere in a chain.
// Key is the key as requested; Section and Name are the fragments evaluated
// at the node that gave up: Name is the missing key or section.
type LookupError struct {
	Kind    Kind
	Key     string
	Section string
	Name    string
	Locale  string
}

func (e *LookupError) Error() string {
	if e.Kind == KindUnknownKey && e.Section != "" {
		return fmt.Sprintf("messageformat: unknown key %q in section %q", e.Name, e.Section)
	}
	return fmt.Sprintf("messageformat: %s %q", e.Kind, e.Name)
}

func (e *LookupError) Is(target error) bool {
	switch target {
	case ErrUnknownKey:
		return e.Kind == KindUnknownKey
	case ErrUnknownSection:
		return e.Kind == KindUnknownSection
	default:
		return false
	}
}
