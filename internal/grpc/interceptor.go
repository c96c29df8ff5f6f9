package grpcserver

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// NewUnaryLoggingInterceptor logs every unary call with its code and duration.
// Methods listed in quiet are logged at debug level (e.g., health checks).
func NewUnaryLoggingInterceptor(log logrus.FieldLogger, quiet ...string) grpc.UnaryServerInterceptor {
	skip := make(map[string]struct{}, len(quiet))
	for _, m := range quiet {
		skip[strings.TrimSpace(m)] = struct{}{}
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		entry := log.WithFields(logrus.Fields{
			"method":   info.FullMethod,
			"code":     status.Code(err).String(),
			"duration": time.Since(start),
		})
		switch {
		case err != nil:
			entry.WithError(err).Warn("grpc call failed")
		case hasKey(skip, info.FullMethod):
			entry.Debug("grpc call")
		default:
			entry.Info("grpc call")
		}
		return resp, err
	}
}

func hasKey(m map[string]struct{}, k string) bool {
	_, ok := m[k]
	return ok
}
