package messageformat_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/pitabwire/messageformat"
	"github.com/pitabwire/messageformat/catalog"
)

type countingParser struct {
	catalog.Parser
	parses atomic.Int64
}

func (p *countingParser) Parse(path string) (catalog.Catalog, error) {
	p.parses.Add(1)
	return p.Parser.Parse(path)
}

type MessageFormatTestSuite struct {
	suite.Suite
	dir string
}

func TestMessageFormatTestSuite(t *testing.T) {
	suite.Run(t, new(MessageFormatTestSuite))
}

func (s *MessageFormatTestSuite) SetupSuite() {
	dir, err := filepath.Abs("testdata")
	s.Require().NoError(err)
	s.dir = dir
}

func (s *MessageFormatTestSuite) newLoader() (*catalog.Loader, *countingParser) {
	parser := &countingParser{Parser: catalog.INIParser{}}
	return catalog.NewLoader(catalog.NewMemoryStore(), catalog.WithParser(parser)), parser
}

// chain returns the en-gb node linked to en, both on one loader.
func (s *MessageFormatTestSuite) chain(loader *catalog.Loader) (*messageformat.MessageFormat, *messageformat.MessageFormat) {
	en := messageformat.New(loader, s.dir, "en")
	enGB := messageformat.New(loader, s.dir, "en-gb", messageformat.WithLink(en))
	return enGB, en
}

func (s *MessageFormatTestSuite) TestAccessors() {
	loader, parser := s.newLoader()
	enGB, en := s.chain(loader)

	s.Equal("en", en.Locale())
	s.Equal("en-gb", enGB.Locale())
	s.Equal(filepath.Join(s.dir, "en.ini"), en.LanguageFile())
	s.Equal(filepath.Join(s.dir, "en-gb.ini"), enGB.LanguageFile())
	s.Nil(en.Link())
	s.Same(en, enGB.Link())

	s.False(en.Loaded())
	s.False(enGB.Loaded())
	s.Zero(parser.parses.Load(), "construction must not read catalogs")
}

func (s *MessageFormatTestSuite) TestLanguageFileTrimsTrailingSeparators() {
	node := messageformat.New(nil, s.dir+"//", "en")
	s.Equal(filepath.Join(s.dir, "en.ini"), node.LanguageFile())
}

func (s *MessageFormatTestSuite) TestGet() {
	ctx := context.Background()
	loader, _ := s.newLoader()
	enGB, en := s.chain(loader)

	testCases := []struct {
		name string
		node *messageformat.MessageFormat
		key  string
		want string
	}{
		{name: "direct key", node: en, key: "application_name", want: "Tests - {0}"},
		{name: "sectioned key", node: en, key: "plants.kingdom_size", want: "{0,number,integer} thousand plants"},
		{name: "local direct key wins", node: enGB, key: "application_name", want: "Tests: {0}"},
		{name: "local sectioned key wins", node: enGB, key: "animals.kingdom_name", want: "Animalia"},
		{name: "direct key falls back", node: enGB, key: "application_version", want: "v1.0.0"},
		{name: "missing section falls back", node: enGB, key: "plants.kingdom_name", want: "Plants"},
		{name: "missing sub key falls back", node: enGB, key: "animals.kingdom_size", want: "{0,number,integer} thousand animals"},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			got, err := tc.node.Get(ctx, tc.key)
			s.Require().NoError(err)
			s.Equal(tc.want, got)
		})
	}
}

func (s *MessageFormatTestSuite) TestGetErrors() {
	ctx := context.Background()
	loader, _ := s.newLoader()
	enGB, en := s.chain(loader)

	testCases := []struct {
		name    string
		node    *messageformat.MessageFormat
		key     string
		target  error
		message string
		want    messageformat.LookupError
	}{
		{
			name:    "unknown direct key",
			node:    en,
			key:     "dogs",
			target:  messageformat.ErrUnknownKey,
			message: `messageformat: unknown key "dogs"`,
			want:    messageformat.LookupError{Kind: messageformat.KindUnknownKey, Key: "dogs", Name: "dogs", Locale: "en"},
		},
		{
			name:    "unknown section",
			node:    en,
			key:     "bananas.colour",
			target:  messageformat.ErrUnknownSection,
			message: `messageformat: unknown section "bananas"`,
			want: messageformat.LookupError{
				Kind: messageformat.KindUnknownSection, Key: "bananas.colour", Section: "bananas", Name: "bananas", Locale: "en",
			},
		},
		{
			name:    "unknown key in known section",
			node:    en,
			key:     "plants.status",
			target:  messageformat.ErrUnknownKey,
			message: `messageformat: unknown key "status" in section "plants"`,
			want: messageformat.LookupError{
				Kind: messageformat.KindUnknownKey, Key: "plants.status", Section: "plants", Name: "status", Locale: "en",
			},
		},
		{
			name:    "sub key is split once",
			node:    en,
			key:     "plants.kingdom_name.extra",
			target:  messageformat.ErrUnknownKey,
			message: `messageformat: unknown key "kingdom_name.extra" in section "plants"`,
			want: messageformat.LookupError{
				Kind: messageformat.KindUnknownKey, Key: "plants.kingdom_name.extra", Section: "plants",
				Name: "kingdom_name.extra", Locale: "en",
			},
		},
		{
			name:    "raised by the last node of a chain",
			node:    enGB,
			key:     "animals.status",
			target:  messageformat.ErrUnknownKey,
			message: `messageformat: unknown key "status" in section "animals"`,
			want: messageformat.LookupError{
				Kind: messageformat.KindUnknownKey, Key: "animals.status", Section: "animals", Name: "status", Locale: "en",
			},
		},
		{
			name:    "unknown direct key through a chain",
			node:    enGB,
			key:     "dogs",
			target:  messageformat.ErrUnknownKey,
			message: `messageformat: unknown key "dogs"`,
			want:    messageformat.LookupError{Kind: messageformat.KindUnknownKey, Key: "dogs", Name: "dogs", Locale: "en"},
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			got, err := tc.node.Get(ctx, tc.key)
			s.Empty(got)
			s.Require().ErrorIs(err, tc.target)
			s.EqualError(err, tc.message)

			var lookupErr *messageformat.LookupError
			s.Require().ErrorAs(err, &lookupErr)
			s.Equal(tc.want, *lookupErr)
		})
	}
}

func (s *MessageFormatTestSuite) TestUnknownSectionIsNotUnknownKey() {
	_, err := messageformat.New(nil, s.dir, "en").Get(context.Background(), "bananas.colour")
	s.Require().Error(err)
	s.NotErrorIs(err, messageformat.ErrUnknownKey)
}

func (s *MessageFormatTestSuite) TestFormat() {
	ctx := context.Background()
	loader, _ := s.newLoader()
	enGB, en := s.chain(loader)

	testCases := []struct {
		name string
		node *messageformat.MessageFormat
		key  string
		args []any
		want string
	}{
		{name: "positional argument", node: en, key: "application_name", args: []any{"Alpha"}, want: "Tests - Alpha"},
		{name: "local template", node: enGB, key: "application_name", args: []any{"Alpha"}, want: "Tests: Alpha"},
		{name: "integer argument", node: en, key: "plants.kingdom_size", args: []any{300}, want: "300 thousand plants"},
		{name: "fallback template", node: enGB, key: "plants.kingdom_size", args: []any{300}, want: "300 thousand plants"},
		{name: "no arguments", node: en, key: "application_version", want: "v1.0.0"},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			got, err := tc.node.Format(ctx, tc.key, tc.args...)
			s.Require().NoError(err)
			s.Equal(tc.want, got)
		})
	}
}

func (s *MessageFormatTestSuite) TestFormatUsesCallingLocale() {
	ctx := context.Background()

	var locales []string
	record := messageformat.FormatterFunc(func(locale, template string, _ []any) (string, error) {
		locales = append(locales, locale)
		return template, nil
	})

	loader, _ := s.newLoader()
	en := messageformat.New(loader, s.dir, "en", messageformat.WithFormatter(record))
	enGB := messageformat.New(loader, s.dir, "en-gb", messageformat.WithLink(en), messageformat.WithFormatter(record))

	got, err := enGB.Format(ctx, "plants.kingdom_name")
	s.Require().NoError(err)
	s.Equal("Plants", got)

	_, err = en.Format(ctx, "plants.kingdom_name")
	s.Require().NoError(err)

	s.Equal([]string{"en-gb", "en"}, locales)
}

func (s *MessageFormatTestSuite) TestFormatErrors() {
	ctx := context.Background()
	errBroken := errors.New("broken template")
	failing := messageformat.FormatterFunc(func(string, string, []any) (string, error) {
		return "", errBroken
	})
	called := false
	spy := messageformat.FormatterFunc(func(_, template string, _ []any) (string, error) {
		called = true
		return template, nil
	})

	_, err := messageformat.New(nil, s.dir, "en", messageformat.WithFormatter(failing)).
		Format(ctx, "application_name", "Alpha")
	s.Require().ErrorIs(err, errBroken)
	s.Equal(errBroken, err, "formatter errors are returned unchanged")

	_, err = messageformat.New(nil, s.dir, "en", messageformat.WithFormatter(spy)).Format(ctx, "plants.missing")
	s.Require().ErrorIs(err, messageformat.ErrUnknownKey)
	s.False(called, "formatter must not run when the lookup fails")
}

func (s *MessageFormatTestSuite) TestSharedStoreParsesOnce() {
	ctx := context.Background()
	loader, parser := s.newLoader()

	first := messageformat.New(loader, s.dir, "en")
	second := messageformat.New(loader, s.dir, "en")

	_, err := first.Get(ctx, "application_name")
	s.Require().NoError(err)
	_, err = first.Get(ctx, "plants.kingdom_name")
	s.Require().NoError(err)
	_, err = second.Get(ctx, "animals.kingdom_name")
	s.Require().NoError(err)

	s.Equal(int64(1), parser.parses.Load())

	has, err := loader.Store().HasItem(ctx, catalog.CacheKey(first.LanguageFile()))
	s.Require().NoError(err)
	s.True(has)
}

func (s *MessageFormatTestSuite) TestStoredCatalogReusedVerbatim() {
	ctx := context.Background()
	loader, parser := s.newLoader()
	node := messageformat.New(loader, s.dir, "en")

	stored := catalog.Catalog{
		Entries:  map[string]string{"application_name": "From the store"},
		Sections: map[string]map[string]string{},
	}
	s.Require().NoError(loader.Store().SetItem(ctx, catalog.CacheKey(node.LanguageFile()), stored))

	got, err := node.Get(ctx, "application_name")
	s.Require().NoError(err)
	s.Equal("From the store", got)

	_, err = node.Get(ctx, "plants.kingdom_name")
	s.Require().ErrorIs(err, messageformat.ErrUnknownSection)
	s.Zero(parser.parses.Load())
}

func (s *MessageFormatTestSuite) TestLoadFailureIsRetried() {
	ctx := context.Background()
	dir := s.T().TempDir()
	loader, parser := s.newLoader()
	node := messageformat.New(loader, dir, "fr")

	_, err := node.Get(ctx, "application_name")
	s.Require().ErrorIs(err, catalog.ErrCatalogLoad)
	var loadErr *catalog.LoadError
	s.Require().ErrorAs(err, &loadErr)
	s.Equal(node.LanguageFile(), loadErr.Path)
	s.False(node.Loaded())

	s.Require().NoError(os.WriteFile(node.LanguageFile(), []byte("application_name = \"Essais - {0}\"\n"), 0o600))

	got, err := node.Format(ctx, "application_name", "Alpha")
	s.Require().NoError(err)
	s.Equal("Essais - Alpha", got)
	s.True(node.Loaded())
	s.Equal(int64(2), parser.parses.Load())
}

func (s *MessageFormatTestSuite) TestBrokenLinkSurfacesOnlyWhenReached() {
	ctx := context.Background()
	loader, _ := s.newLoader()
	missing := messageformat.New(loader, s.T().TempDir(), "en")
	enGB := messageformat.New(loader, s.dir, "en-gb", messageformat.WithLink(missing))

	got, err := enGB.Get(ctx, "application_name")
	s.Require().NoError(err)
	s.Equal("Tests: {0}", got)

	_, err = enGB.Get(ctx, "application_version")
	s.Require().ErrorIs(err, catalog.ErrCatalogLoad)
}

func (s *MessageFormatTestSuite) TestConcurrentLookupsLoadOnce() {
	ctx := context.Background()
	loader, parser := s.newLoader()
	enGB, _ := s.chain(loader)

	var wg sync.WaitGroup
	for range 32 {
		wg.Go(func() {
			got, err := enGB.Get(ctx, "plants.kingdom_name")
			s.NoError(err)
			s.Equal("Plants", got)
		})
	}
	wg.Wait()

	s.Equal(int64(2), parser.parses.Load(), "one parse per catalog file")
}

func (s *MessageFormatTestSuite) TestChain() {
	loader, _ := s.newLoader()

	head, err := messageformat.Chain(loader, s.dir, []string{"en-gb", "en"})
	s.Require().NoError(err)
	s.Equal("en-gb", head.Locale())
	s.Require().NotNil(head.Link())
	s.Equal("en", head.Link().Locale())
	s.Nil(head.Link().Link())
	s.Len(head.Nodes(), 2)

	got, err := head.Format(context.Background(), "application_version")
	s.Require().NoError(err)
	s.Equal("v1.0.0", got)

	_, err = messageformat.Chain(loader, s.dir, nil)
	s.Require().ErrorIs(err, messageformat.ErrNoLocales)
}

func (s *MessageFormatTestSuite) TestPreload() {
	ctx := context.Background()
	loader, parser := s.newLoader()

	head, err := messageformat.Chain(loader, s.dir, []string{"en-gb", "en"})
	s.Require().NoError(err)
	s.Require().NoError(messageformat.Preload(ctx, 2, head, head.Link()))

	for _, n := range head.Nodes() {
		s.True(n.Loaded(), n.Locale())
	}
	s.Equal(int64(2), parser.parses.Load())

	s.Require().NoError(messageformat.Preload(ctx, 0))

	missing := messageformat.New(loader, s.T().TempDir(), "fr", messageformat.WithLink(head))
	err = messageformat.Preload(ctx, 0, missing)
	s.Require().ErrorIs(err, catalog.ErrCatalogLoad)
	s.False(missing.Loaded())
}
