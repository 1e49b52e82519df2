package connect

import (
	"context"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"

	"github.com/osa030/vibechef/internal/app/playback"
	"github.com/osa030/vibechef/internal/app/player"
	"github.com/osa030/vibechef/internal/app/provider"
)

// toConnectError maps player and engine errors to Connect codes.
func toConnectError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, playback.ErrInvalidSelection),
		errors.Is(err, playback.ErrInvalidSeek),
		errors.Is(err, player.ErrEmptyMood),
		errors.Is(err, player.ErrInvalidCount):
		return connect.NewError(connect.CodeInvalidArgument, err)

	case errors.Is(err, provider.ErrNoCandidates):
		return connect.NewError(connect.CodeUnavailable, err)

	case errors.Is(err, player.ErrAllFiltered):
		return connect.NewError(connect.CodeNotFound, err)

	case errors.Is(err, playback.ErrClosed), errors.Is(err, player.ErrManagerClosed):
		return connect.NewError(connect.CodeUnavailable, err)

	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)

	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)

	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
