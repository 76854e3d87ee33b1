package ports

import "github.com/pkg/errors"

// ErrUpstream matches, via errors.Is, any transport or non-2xx failure of the
// upstream SAP API.
var ErrUpstream = errors.New("upstream unavailable")

type upstreamError struct{ cause error }

func (e *upstreamError) Error() string        { return e.cause.Error() }
func (e *upstreamError) Unwrap() error        { return e.cause }
func (e *upstreamError) Is(target error) bool { return target == ErrUpstream }

// Upstream marks err as an upstream failure. The message is unchanged.
func Upstream(err error) error {
	if err == nil {
		return nil
	}
	return &upstreamError{cause: err}
}
