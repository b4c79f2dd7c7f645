package http1

import "errors"

// Sentinel errors for the line reader, header parser, and request-line
// parser (C1/C2/C4). Mirrors the teacher's http11/errors.go convention of
// pre-declared sentinel errors checked with errors.Is, rather than an
// enumerated error-kind type.
var (
	// ErrLineTooLong is returned by ReadLine when the terminator is not
	// seen before the caller's buffer fills.
	ErrLineTooLong = errors.New("http1: line exceeds buffer length")

	// ErrMalformedHeaderBlock is returned by ParseHeaders when reading a
	// header line fails before the terminating empty line is reached.
	ErrMalformedHeaderBlock = errors.New("http1: malformed header block")

	// ErrInvalidRequestLine indicates the request line could not be split
	// into method, URI, and version fields.
	ErrInvalidRequestLine = errors.New("http1: invalid request line")

	// ErrMethodNotAllowed indicates a method outside {GET, POST, PUT,
	// DELETE}.
	ErrMethodNotAllowed = errors.New("http1: method not allowed")
)
