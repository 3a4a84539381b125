package catalog

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pitabwire/util"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/pitabwire/messageformat/telemetry"
)

// KeyPrefix namespaces catalog entries inside a shared store.
const KeyPrefix = "messageformat:"

const (
	instrumentationName = "github.com/pitabwire/messageformat/catalog"
	pathSeparators      = "/" + string(filepath.Separator)
)

// CacheKey is the store key a catalog file is kept under.
func CacheKey(path string) string {
	return KeyPrefix + path
}

// Path names the catalog file of locale inside dir. Trailing separators on
// dir are dropped; nothing else about dir is normalised.
func Path(dir, locale, ext string) string {
	return strings.TrimRight(dir, pathSeparators) + string(filepath.Separator) + locale + ext
}

type loaderOptions struct {
	parser         Parser
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// LoaderOption configures a Loader.
type LoaderOption func(*loaderOptions)

// WithParser selects the catalog file format. INI is the default.
func WithParser(p Parser) LoaderOption {
	return func(o *loaderOptions) {
		o.parser = p
	}
}

// WithTracerProvider records load spans on tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) LoaderOption {
	return func(o *loaderOptions) {
		o.tracerProvider = tp
	}
}

// WithMeterProvider records load metrics on mp instead of the global provider.
func WithMeterProvider(mp metric.MeterProvider) LoaderOption {
	return func(o *loaderOptions) {
		o.meterProvider = mp
	}
}

// Loader reads catalogs through a Store. One Loader is meant to be shared by
// every resolver that should share parsed catalogs.
type Loader struct {
	store  Store
	parser Parser
	tracer telemetry.Tracer

	hits     metric.Int64Counter
	misses   metric.Int64Counter
	failures metric.Int64Counter
}

// NewLoader creates a loader over store.
func NewLoader(store Store, opts ...LoaderOption) *Loader {
	o := &loaderOptions{parser: INIParser{}}
	for _, opt := range opts {
		opt(o)
	}

	return &Loader{
		store:  store,
		parser: o.parser,
		tracer: telemetry.NewTracerFrom(o.tracerProvider, o.meterProvider, instrumentationName),
		hits: telemetry.DimensionlessMeasure(o.meterProvider, instrumentationName,
			"/cache_hits", "Catalogs served from the store"),
		misses: telemetry.DimensionlessMeasure(o.meterProvider, instrumentationName,
			"/cache_misses", "Catalogs parsed because the store did not hold them"),
		failures: telemetry.DimensionlessMeasure(o.meterProvider, instrumentationName,
			"/load_failures", "Catalog files that could not be parsed"),
	}
}

// Store returns the store catalogs are shared through.
func (l *Loader) Store() Store {
	return l.store
}

// Parser returns the parser used on store misses.
func (l *Loader) Parser() Parser {
	return l.parser
}

// Path names the catalog file of locale inside dir for this loader's format.
func (l *Loader) Path(dir, locale string) string {
	return Path(dir, locale, l.parser.Extension())
}

// Load returns the catalog stored for path, parsing the file and storing the
// result when the store does not have it. Parse failures come back as *LoadError.
func (l *Loader) Load(ctx context.Context, path string) (c Catalog, err error) {
	ctx, span := l.tracer.Start(ctx, "Load", trace.WithAttributes(
		telemetry.AttrPathKey.String(path),
		telemetry.AttrLocaleKey.String(l.localeOf(path)),
	))
	defer func() {
		l.tracer.End(ctx, span, err)
	}()

	key := CacheKey(path)
	log := util.Log(ctx).WithField("catalog", path)

	if cached, ok := l.cached(ctx, key, log); ok {
		l.hits.Add(ctx, 1)
		log.Debug("catalog served from store")
		return cached, nil
	}

	l.misses.Add(ctx, 1)

	c, err = l.parser.Parse(path)
	if err != nil {
		l.failures.Add(ctx, 1)
		return Catalog{}, &LoadError{Path: path, Err: err}
	}

	if setErr := l.store.SetItem(ctx, key, c); setErr != nil {
		log.WithError(setErr).Warn("could not store parsed catalog")
	}

	log.WithField("messages", c.Len()).Debug("catalog parsed")
	return c, nil
}

// localeOf recovers the locale tag from a path built by Path.
func (l *Loader) localeOf(path string) string {
	return strings.TrimSuffix(filepath.Base(path), l.parser.Extension())
}

func (l *Loader) cached(ctx context.Context, key string, log *util.LogEntry) (Catalog, bool) {
	has, err := l.store.HasItem(ctx, key)
	if err != nil {
		log.WithError(err).Warn("catalog store lookup failed, parsing instead")
		return Catalog{}, false
	}
	if !has {
		return Catalog{}, false
	}

	c, err := l.store.GetItem(ctx, key)
	if err != nil {
		log.WithError(err).Warn("catalog store read failed, parsing instead")
		return Catalog{}, false
	}
	return c, true
}
