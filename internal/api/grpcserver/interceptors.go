package grpcserver

import (
	"context"
	"log/slog"
	"net"
	"time"

	"service_market/internal/platform/ratelimiter"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

func loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	slog.Info("gRPC call",
		slog.String("method", info.FullMethod),
		slog.String("code", status.Code(err).String()),
		slog.Duration("took", time.Since(start)))
	return resp, err
}

// rateLimitInterceptor charges the caller's host bucket and, for
// instructions, the bucket of the signer the request names.
func rateLimitInterceptor(limiter *ratelimiter.KeyLimiter) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		now := time.Now()
		for _, key := range rateKeys(ctx, req) {
			if !limiter.Allow(key, now) {
				return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
			}
		}
		return handler(ctx, req)
	}
}

// signedRequest is implemented by instruction requests.
type signedRequest interface {
	signer() string
}

func rateKeys(ctx context.Context, req any) []string {
	keys := []string{"host:" + peerHost(ctx)}
	if sr, ok := req.(signedRequest); ok && sr.signer() != "" {
		keys = append(keys, "signer:"+sr.signer())
	}
	return keys
}

// peerHost drops the port so reconnecting does not buy a fresh bucket.
func peerHost(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	addr := p.Addr.String()
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
