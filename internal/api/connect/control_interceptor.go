// Package connect provides Connect RPC service implementations.
package connect

import (
	"context"
	"crypto/subtle"

	"connectrpc.com/connect"

	"github.com/osa030/vibechef/internal/api/playerv1/playerv1connect"
)

const (
	// ControlTokenHeader is the header name for the control token.
	ControlTokenHeader = "X-Control-Token"
)

// Procedures callable without a token.
var openProcedures = map[string]bool{
	playerv1connect.PlayerServiceGetStateProcedure:  true,
	playerv1connect.PlayerServiceSubscribeProcedure: true,
}

// NewControlAuthInterceptor creates an interceptor that validates the control token
// on control RPCs. An empty token leaves every RPC open.
func NewControlAuthInterceptor(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if token == "" || openProcedures[req.Spec().Procedure] {
				return next(ctx, req)
			}

			got := req.Header().Get(ControlTokenHeader)
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				return nil, connect.NewError(connect.CodeUnauthenticated, nil)
			}

			return next(ctx, req)
		}
	}
}

// NewControlTokenClientInterceptor creates a client interceptor that sends token
// with every unary call.
func NewControlTokenClientInterceptor(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if token != "" && req.Spec().IsClient {
				req.Header().Set(ControlTokenHeader, token)
			}
			return next(ctx, req)
		}
	}
}
