package localization_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/pitabwire/messageformat/catalog"
	"github.com/pitabwire/messageformat/localization"
	lconnect "github.com/pitabwire/messageformat/localization/interceptors/connect"
	lgrpc "github.com/pitabwire/messageformat/localization/interceptors/grpc"
	lhttp "github.com/pitabwire/messageformat/localization/interceptors/http"
)

type LocalizationTestSuite struct {
	suite.Suite
	registry *localization.Registry
}

func TestLocalizationSuite(t *testing.T) {
	suite.Run(t, &LocalizationTestSuite{})
}

func (s *LocalizationTestSuite) SetupTest() {
	dir, err := filepath.Abs("testdata")
	s.Require().NoError(err)

	loader := catalog.NewLoader(catalog.NewMemoryStore())
	s.registry, err = localization.NewRegistry(loader, dir, []string{"en-gb", "sw", "en"}, "en")
	s.Require().NoError(err)
}

func (s *LocalizationTestSuite) TestRegistryChains() {
	s.Equal([]string{"en", "en-gb", "sw"}, s.registry.Locales())
	s.Equal("en", s.registry.DefaultLocale())
	s.Nil(s.registry.Chain("fr"))

	testCases := []struct {
		locale string
		chain  []string
	}{
		{locale: "en", chain: []string{"en"}},
		{locale: "en-gb", chain: []string{"en-gb", "en"}},
		{locale: "sw", chain: []string{"sw", "en"}},
	}

	for _, tc := range testCases {
		s.Run(tc.locale, func() {
			head := s.registry.Chain(tc.locale)
			s.Require().NotNil(head)

			var got []string
			for _, n := range head.Nodes() {
				got = append(got, n.Locale())
			}
			s.Equal(tc.chain, got)
		})
	}

	_, err := localization.NewRegistry(nil, "testdata", []string{"en"}, "")
	s.Require().ErrorIs(err, localization.ErrNoDefaultLocale)
}

func (s *LocalizationTestSuite) TestResolve() {
	testCases := []struct {
		name      string
		languages []string
		want      string
	}{
		{name: "no preference", want: "en"},
		{name: "exact match", languages: []string{"sw"}, want: "sw"},
		{name: "case insensitive", languages: []string{"en-GB"}, want: "en-gb"},
		{name: "unsupported", languages: []string{"fr"}, want: "en"},
		{name: "unparseable", languages: []string{"not a tag!"}, want: "en"},
		{name: "first supported preference", languages: []string{"fr", "sw"}, want: "sw"},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.Equal(tc.want, s.registry.Resolve(tc.languages...).Locale())
		})
	}
}

func (s *LocalizationTestSuite) TestTranslate() {
	ctx := context.Background()

	testCases := []struct {
		name    string
		request any
		key     string
		args    []any
		want    string
	}{
		{name: "string language", request: "sw", key: "greeting", args: []any{"Air"}, want: "Air haina chochote"},
		{name: "language slice", request: []string{"en-GB"}, key: "farewell", want: "Cheerio"},
		{name: "regional falls back to base", request: "en-gb", key: "greeting", args: []any{"Air"}, want: "Air has nothing"},
		{name: "falls back to default", request: "sw", key: "farewell", want: "Goodbye"},
		{name: "sectioned key", request: "sw", key: "orders.count", args: []any{3}, want: "Una oda 3"},
		{
			name:    "context languages",
			request: localization.ToContext(ctx, []string{"sw"}),
			key:     "greeting",
			args:    []any{"Air"},
			want:    "Air haina chochote",
		},
		{
			name:    "grpc metadata",
			request: metadata.NewIncomingContext(ctx, metadata.Pairs("accept-language", "en-GB")),
			key:     "farewell",
			want:    "Cheerio",
		},
		{name: "unknown request type", request: 42, key: "farewell", want: "Goodbye"},
		{name: "missing key returns key", request: "sw", key: "orders.missing", want: "orders.missing"},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.Equal(tc.want, s.registry.Translate(ctx, tc.request, tc.key, tc.args...))
		})
	}
}

func (s *LocalizationTestSuite) TestTranslateHTTPRequest() {
	req := httptest.NewRequest(http.MethodGet, "/?lang=sw", nil)
	req.Header.Set("Accept-Language", "en-GB")
	s.Equal("Air haina chochote", s.registry.Translate(req.Context(), req, "greeting", "Air"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "en-GB;q=0.9, sw;q=0.4")
	s.Equal("Cheerio", s.registry.Translate(req.Context(), req, "farewell"))
}

func (s *LocalizationTestSuite) TestPreload() {
	s.Require().NoError(s.registry.Preload(context.Background(), 2))
	for _, l := range s.registry.Locales() {
		for _, n := range s.registry.Chain(l).Nodes() {
			s.True(n.Loaded(), n.Locale())
		}
	}
}

func (s *LocalizationTestSuite) TestExtractLanguage() {
	header := http.Header{}
	s.Empty(localization.ExtractLanguageFromHTTPHeader(header))

	header.Set("Accept-Language", "sw;q=0.8, en-GB")
	s.Equal([]string{"en-GB", "sw"}, localization.ExtractLanguageFromHTTPHeader(header))

	req := httptest.NewRequest(http.MethodGet, "/?lang=fr", nil)
	req.Header = header
	s.Equal([]string{"fr", "en-GB", "sw"}, localization.ExtractLanguageFromHTTPRequest(req))

	s.Empty(localization.ExtractLanguageFromGrpcRequest(context.Background()))
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("accept-language", "sw"))
	s.Equal([]string{"sw"}, localization.ExtractLanguageFromGrpcRequest(ctx))

	s.Nil(localization.FromContext(context.Background()))
}

func (s *LocalizationTestSuite) TestHTTPMiddleware() {
	var got []string
	handler := lhttp.LanguageHTTPMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = localization.FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/?lang=sw", nil)
	req.Header.Set("Accept-Language", "en")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	s.Equal([]string{"sw", "en"}, got)
}

func (s *LocalizationTestSuite) TestGrpcUnaryInterceptor() {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("accept-language", "sw, en"))

	var got []string
	_, err := lgrpc.LanguageUnaryInterceptor()(ctx, nil, &grpc.UnaryServerInfo{},
		func(ctx context.Context, _ any) (any, error) {
			got = localization.FromContext(ctx)
			return nil, nil
		})
	s.Require().NoError(err)
	s.Equal([]string{"sw", "en"}, got)
}

type fakeServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f *fakeServerStream) Context() context.Context {
	return f.ctx
}

func (s *LocalizationTestSuite) TestGrpcStreamInterceptor() {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("accept-language", "en-GB"))

	var got []string
	err := lgrpc.LanguageStreamInterceptor()(nil, &fakeServerStream{ctx: ctx}, &grpc.StreamServerInfo{},
		func(_ any, stream grpc.ServerStream) error {
			got = localization.FromContext(stream.Context())
			return nil
		})
	s.Require().NoError(err)
	s.Equal([]string{"en-GB"}, got)
}

func (s *LocalizationTestSuite) TestConnectInterceptor() {
	interceptor := lconnect.NewLanguageInterceptor()

	req := connect.NewRequest(&struct{}{})
	req.Header().Set("Accept-Language", "sw")

	var got []string
	next := interceptor.WrapUnary(func(ctx context.Context, _ connect.AnyRequest) (connect.AnyResponse, error) {
		got = localization.FromContext(ctx)
		return connect.NewResponse(&struct{}{}), nil
	})

	_, err := next(context.Background(), req)
	s.Require().NoError(err)
	s.Equal([]string{"sw"}, got)
}
