package connect

import (
	"context"

	"connectrpc.com/connect"

	"github.com/pitabwire/messageformat/localization"
)

// LanguageInterceptor implements connect.Interceptor, placing the request
// languages in the handler context.
type LanguageInterceptor struct{}

var _ connect.Interceptor = (*LanguageInterceptor)(nil)

// NewLanguageInterceptor creates a new language interceptor.
func NewLanguageInterceptor() *LanguageInterceptor {
	return &LanguageInterceptor{}
}

func (l *LanguageInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			return next(ctx, req)
		}

		languages := localization.ExtractLanguageFromHTTPHeader(req.Header())
		return next(localization.ToContext(ctx, languages), req)
	}
}

// WrapStreamingClient is a pass-through; languages are a server concern.
func (l *LanguageInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (l *LanguageInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		languages := localization.ExtractLanguageFromHTTPHeader(conn.RequestHeader())
		return next(localization.ToContext(ctx, languages), conn)
	}
}
