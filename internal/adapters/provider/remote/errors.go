package remote

import "errors"

// Sentinel kinds for remote provider errors.
var (
	ErrBaseURLRequired  = errors.New("remote provider base url is required")
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrMalformedRecord  = errors.New("malformed attribution record")
)
