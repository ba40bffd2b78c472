package grpc

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const bearerPrefix = "Bearer "

// AuthInterceptor rejects report calls that do not carry the API token in
// the authorization metadata, either bare or as "Bearer <token>".
// Rejected calls are logged with the method and reason, never the token.
func AuthInterceptor(apiToken string, logger logrus.FieldLogger) grpc.UnaryServerInterceptor {
	log := logger.WithField("component", "grpc_auth")

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		reject := func(reason string) (interface{}, error) {
			log.WithFields(logrus.Fields{
				"method": info.FullMethod,
				"reason": reason,
			}).Warn("call rejected")
			return nil, status.Error(codes.Unauthenticated, reason)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return reject("missing metadata")
		}

		authHeaders := md.Get("authorization")
		if len(authHeaders) == 0 {
			return reject("missing authorization header")
		}

		token := strings.TrimPrefix(authHeaders[0], bearerPrefix)
		if subtle.ConstantTimeCompare([]byte(token), []byte(apiToken)) != 1 {
			return reject("invalid token")
		}

		return handler(ctx, req)
	}
}
