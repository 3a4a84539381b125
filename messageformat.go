// Package messageformat resolves localized message templates by key.
//
// A MessageFormat is one node of a fallback chain: it owns the catalog of a
// single locale, loaded lazily through a shared catalog.Loader, and an
// optional link to the node consulted when a key is missing locally.
//
//	loader := catalog.NewLoader(catalog.NewMemoryStore())
//	en := messageformat.New(loader, "locales", "en")
//	enGB := messageformat.New(loader, "locales", "en-gb", messageformat.WithLink(en))
//	msg, err := enGB.Format(ctx, "plants.kingdom_size", 300)
package messageformat

import (
	"context"
	"strings"
	"sync"

	"github.com/pitabwire/messageformat/catalog"
	"github.com/pitabwire/messageformat/formatter"
)

// Separator splits a message key into section and sub-key.
const Separator = "."

// Formatter renders a resolved template with positional arguments.
type Formatter interface {
	FormatMessage(locale, template string, args []any) (string, error)
}

// FormatterFunc adapts a function to the Formatter interface.
type FormatterFunc func(locale, template string, args []any) (string, error)

func (f FormatterFunc) FormatMessage(locale, template string, args []any) (string, error) {
	return f(locale, template, args)
}

type options struct {
	link      *MessageFormat
	formatter Formatter
}

// Option configures a MessageFormat.
type Option func(*options)

// WithLink sets the node consulted for keys missing from this node's catalog.
func WithLink(link *MessageFormat) Option {
	return func(o *options) {
		o.link = link
	}
}

// WithFormatter replaces the default ICU style formatter.
func WithFormatter(f Formatter) Option {
	return func(o *options) {
		o.formatter = f
	}
}

// MessageFormat resolves keys against one locale's catalog and falls back
// along its link. Links are fixed at construction, so chains are acyclic.
type MessageFormat struct {
	loader       *catalog.Loader
	locale       string
	languageFile string
	link         *MessageFormat
	formatter    Formatter

	mu       sync.Mutex
	loaded   bool
	messages catalog.Catalog
}

// New creates the node for locale whose catalog lives in directory. Nothing
// is read until the first lookup. A nil loader gets a private in-memory
// store, which means no catalog sharing with other nodes.
func New(loader *catalog.Loader, directory, locale string, opts ...Option) *MessageFormat {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.formatter == nil {
		o.formatter = formatter.New()
	}
	if loader == nil {
		loader = catalog.NewLoader(catalog.NewMemoryStore())
	}

	return &MessageFormat{
		loader:       loader,
		locale:       locale,
		languageFile: loader.Path(directory, locale),
		link:         o.link,
		formatter:    o.formatter,
	}
}

// Locale returns the locale tag of this node.
func (m *MessageFormat) Locale() string {
	return m.locale
}

// LanguageFile returns the catalog file path computed at construction.
func (m *MessageFormat) LanguageFile() string {
	return m.languageFile
}

// Link returns the fallback node, or nil at the end of a chain.
func (m *MessageFormat) Link() *MessageFormat {
	return m.link
}

// Loaded reports whether the catalog has been loaded into this node.
func (m *MessageFormat) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

func (m *MessageFormat) ensureLoaded(ctx context.Context) (catalog.Catalog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded {
		return m.messages, nil
	}

	messages, err := m.loader.Load(ctx, m.languageFile)
	if err != nil {
		return catalog.Catalog{}, err
	}

	m.messages = messages
	m.loaded = true
	return messages, nil
}

// Get returns the raw template for key. Keys containing a dot address
// "section.sub_key", split on the first dot only. A key missing locally is
// looked up, whole, on the link; the error of the last node in the chain is
// returned unchanged.
func (m *MessageFormat) Get(ctx context.Context, key string) (string, error) {
	messages, err := m.ensureLoaded(ctx)
	if err != nil {
		return "", err
	}

	section, subKey, sectioned := strings.Cut(key, Separator)
	if !sectioned {
		if value, ok := messages.Entry(key); ok {
			return value, nil
		}
		if m.link != nil {
			return m.link.Get(ctx, key)
		}
		return "", &LookupError{Kind: KindUnknownKey, Key: key, Name: key, Locale: m.locale}
	}

	values, ok := messages.Section(section)
	if !ok {
		if m.link != nil {
			return m.link.Get(ctx, key)
		}
		return "", &LookupError{Kind: KindUnknownSection, Key: key, Section: section, Name: section, Locale: m.locale}
	}

	value, ok := values[subKey]
	if !ok {
		if m.link != nil {
			return m.link.Get(ctx, key)
		}
		return "", &LookupError{Kind: KindUnknownKey, Key: key, Section: section, Name: subKey, Locale: m.locale}
	}

	return value, nil
}

// Format resolves key and renders it with args in this node's locale, even
// when the template came from further down the chain.
func (m *MessageFormat) Format(ctx context.Context, key string, args ...any) (string, error) {
	template, err := m.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return m.formatter.FormatMessage(m.locale, template, args)
}
