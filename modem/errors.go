package modem

import "errors"

var (
	// ErrNoDialer is returned when a Session is constructed without a Dialer.
	//
	// This indicates a configuration error. A Dialer is required in order to
	// establish a connection to the modem.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrNotInitialized is returned when an operation is attempted on a
	// Session that has no transport.
	//
	// This can occur if the Dialer returned a nil Transport or if the
	// Session was not created via New.
	ErrNotInitialized = errors.New("modem not initialized")

	// ErrAlreadyClosed is returned when Close is called on a Session that
	// has already been closed, or when a closed Session is used.
	ErrAlreadyClosed = errors.New("modem already closed")

	// ErrEmptyPattern is returned when a Transaction carries an empty
	// response pattern.
	//
	// An empty string is contained in any response, so accepting it would
	// turn every exchange into an immediate success.
	ErrEmptyPattern = errors.New("empty response pattern")

	// ErrNoLine is returned by the hard reset sequence when one of the
	// power control lines is not configured.
	ErrNoLine = errors.New("power control line not configured")
)
