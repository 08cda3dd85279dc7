package laads

import (
	"context"
	"errors"
	"net"

	"github.com/robert-malhotra/blackmarble/internal/retry"
)

var (
	// ErrAuthentication is returned when the archive rejects the bearer token.
	ErrAuthentication = errors.New("authentication rejected by archive")

	// ErrTileNotFound is returned when the archive has no file for a tile and date.
	ErrTileNotFound = errors.New("tile not found in archive")

	// ErrTransient is returned for failures worth retrying: server errors,
	// throttling and timeouts.
	ErrTransient = errors.New("transient archive failure")

	// ErrMissingToken is returned when no bearer token was supplied.
	ErrMissingToken = errors.New("missing bearer token")
)

// Classify maps archive errors onto retry kinds. Authentication failures and
// missing tiles are terminal; throttling, server errors and network timeouts
// are transient.
func Classify(err error) retry.Kind {
	switch {
	case err == nil:
		return retry.Success
	case errors.Is(err, ErrAuthentication), errors.Is(err, ErrTileNotFound), errors.Is(err, ErrMissingToken):
		return retry.Terminal
	case errors.Is(err, ErrTransient), errors.Is(err, context.DeadlineExceeded):
		return retry.Transient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return retry.Transient
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return retry.Transient
	}
	return retry.Terminal
}
