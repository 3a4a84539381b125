package grpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/pitabwire/messageformat/localization"
)

// LanguageUnaryInterceptor Simple grpc interceptor to extract the language supplied via metadata.
func LanguageUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any,
		_ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		l := localization.ExtractLanguageFromGrpcRequest(ctx)
		if len(l) > 0 {
			ctx = localization.ToContext(ctx, l)
		}

		return handler(ctx, req)
	}
}

// LanguageStreamInterceptor places the languages from the stream metadata in the stream context.
func LanguageStreamInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, _ *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx := ss.Context()
		l := localization.ExtractLanguageFromGrpcRequest(ctx)
		if len(l) == 0 {
			return handler(srv, ss)
		}

		ctx = localization.ToContext(ctx, l)

		return handler(srv, &serverStreamWrapper{ctx, ss})
	}
}

// serverStreamWrapper overrides the context of a server stream.
type serverStreamWrapper struct {
	ctx context.Context
	grpc.ServerStream
}

func (s *serverStreamWrapper) Context() context.Context {
	return s.ctx
}
