package localization

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/pitabwire/util"
	"golang.org/x/text/language"
	"google.golang.org/grpc/metadata"

	"github.com/pitabwire/messageformat"
	"github.com/pitabwire/messageformat/catalog"
)

type contextKey string

func (c contextKey) String() string {
	return "messageformat/localization/" + string(c)
}

const ctxKeyLanguage = contextKey("languageKey")

// ErrNoDefaultLocale is returned when a registry is built without a default.
var ErrNoDefaultLocale = errors.New("localization: default locale is required")

// ToContext adds language to the current supplied context.
func ToContext(ctx context.Context, lang []string) context.Context {
	return context.WithValue(ctx, ctxKeyLanguage, lang)
}

// FromContext extracts language from the supplied context if any exist.
func FromContext(ctx context.Context) []string {
	languages, ok := ctx.Value(ctxKeyLanguage).([]string)
	if !ok {
		return nil
	}

	return languages
}

// Registry holds one resolver chain per supported locale and picks the chain
// best matching a caller's preferred languages.
type Registry struct {
	locales       []string
	defaultLocale string
	chains        map[string]*messageformat.MessageFormat
	matcher       language.Matcher
}

// NewRegistry builds a chain for every locale. A locale falls back to the
// supported locales it is derived from (en-gb to en) and then to
// defaultLocale. All chains read through loader, so each catalog file is
// parsed once.
func NewRegistry(
	loader *catalog.Loader,
	directory string,
	locales []string,
	defaultLocale string,
	opts ...messageformat.Option,
) (*Registry, error) {
	if defaultLocale == "" {
		return nil, ErrNoDefaultLocale
	}

	supported := dedupe(append([]string{defaultLocale}, locales...))
	tags := make([]language.Tag, len(supported))
	for i, l := range supported {
		tags[i] = language.Make(l)
	}

	r := &Registry{
		locales:       supported,
		defaultLocale: defaultLocale,
		chains:        make(map[string]*messageformat.MessageFormat, len(supported)),
		matcher:       language.NewMatcher(tags),
	}

	for i, l := range supported {
		order := append([]string{l}, ancestors(tags[i], supported, tags)...)
		order = append(order, defaultLocale)
		order = append(order, ancestors(tags[0], supported, tags)...)

		chain, err := messageformat.Chain(loader, directory, dedupe(order), opts...)
		if err != nil {
			return nil, err
		}
		r.chains[l] = chain
	}

	return r, nil
}

// ancestors lists the supported locales tag derives from, closest first.
func ancestors(tag language.Tag, supported []string, tags []language.Tag) []string {
	var out []string
	for p := tag.Parent(); !p.IsRoot(); p = p.Parent() {
		for i, t := range tags {
			if t.String() == p.String() {
				out = append(out, supported[i])
			}
		}
	}
	return out
}

func dedupe(locales []string) []string {
	seen := make(map[string]struct{}, len(locales))
	out := make([]string, 0, len(locales))
	for _, l := range locales {
		if _, ok := seen[l]; ok || l == "" {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

// Locales returns the supported locales, default first.
func (r *Registry) Locales() []string {
	return r.locales
}

// DefaultLocale returns the locale used when nothing better matches.
func (r *Registry) DefaultLocale() string {
	return r.defaultLocale
}

// Chain returns the chain headed by locale, or nil if it is not supported.
func (r *Registry) Chain(locale string) *messageformat.MessageFormat {
	return r.chains[locale]
}

// Resolve returns the chain best matching languages, given in preference
// order. Unparseable or unsupported languages fall through to the default.
func (r *Registry) Resolve(languages ...string) *messageformat.MessageFormat {
	var desired []language.Tag
	for _, l := range languages {
		tag, err := language.Parse(strings.TrimSpace(l))
		if err == nil {
			desired = append(desired, tag)
		}
	}
	if len(desired) == 0 {
		return r.chains[r.defaultLocale]
	}

	_, index, confidence := r.matcher.Match(desired...)
	if confidence == language.No {
		return r.chains[r.defaultLocale]
	}
	return r.chains[r.locales[index]]
}

// Preload loads every catalog the registry can reach.
func (r *Registry) Preload(ctx context.Context, concurrency int) error {
	heads := make([]*messageformat.MessageFormat, 0, len(r.locales))
	for _, l := range r.locales {
		heads = append(heads, r.chains[l])
	}
	return messageformat.Preload(ctx, concurrency, heads...)
}

// Translate formats key for the languages carried by request, which may be
// an *http.Request, a context.Context, a string or a []string. When the
// message cannot be produced the failure is logged and key is returned.
func (r *Registry) Translate(ctx context.Context, request any, key string, args ...any) string {
	var languageSlice []string

	switch v := request.(type) {
	case *http.Request:
		languageSlice = ExtractLanguageFromHTTPRequest(v)

	case context.Context:
		languageSlice = FromContext(v)
		if len(languageSlice) == 0 {
			languageSlice = ExtractLanguageFromGrpcRequest(v)
		}

	case string:
		languageSlice = []string{v}

	case []string:
		languageSlice = v

	default:
		logger := util.Log(ctx).WithField("key", key)
		logger.Warn("Translate -- no valid request object found, use string, []string, context or http.Request")
		languageSlice = FromContext(ctx)
	}

	chain := r.Resolve(languageSlice...)
	message, err := chain.Format(ctx, key, args...)
	if err != nil {
		util.Log(ctx).WithError(err).
			WithField("key", key).
			WithField("locale", chain.Locale()).
			Error("Translate -- could not perform translation")
		return key
	}

	return message
}

// ExtractLanguageFromHTTPRequest returns the "lang" form value, if any,
// followed by the Accept-Language preferences.
func ExtractLanguageFromHTTPRequest(req *http.Request) []string {
	lang := req.FormValue("lang")

	acceptedLang := ExtractLanguageFromHTTPHeader(req.Header)

	var languages []string
	if lang != "" {
		languages = append(languages, lang)
	}

	return append(languages, acceptedLang...)
}

// ExtractLanguageFromHTTPHeader returns the Accept-Language preferences,
// highest quality first.
func ExtractLanguageFromHTTPHeader(req http.Header) []string {
	return parseAcceptLanguage(req.Get("Accept-Language"))
}

// ExtractLanguageFromGrpcRequest reads the accept-language metadata entry.
func ExtractLanguageFromGrpcRequest(ctx context.Context) []string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return []string{}
	}

	header, ok := md["accept-language"]
	if !ok || len(header) == 0 {
		return []string{}
	}
	return parseAcceptLanguage(header[0])
}

func parseAcceptLanguage(header string) []string {
	if strings.TrimSpace(header) == "" {
		return []string{}
	}

	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return []string{}
	}

	languages := make([]string, 0, len(tags))
	for _, t := range tags {
		languages = append(languages, t.String())
	}
	return languages
}
