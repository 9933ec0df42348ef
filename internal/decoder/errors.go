package decoder

import "fmt"

// ParserError is the error type the decoder returns: a malformed header, a
// bitstream that cannot be rebuilt, or a cursor run past the end of the
// reconstructed bitstream while decoding the first sample. A failure inside
// a later tick is not returned: DecodeSamples stops at that tick and returns
// the samples decoded before it with a nil error. When a ParserError is
// returned, the caller's contract is to discard the session and move on to
// the next one.
type ParserError struct {
	Reason string
}

func (e *ParserError) Error() string {
	return fmt.Sprintf("decoder: %s", e.Reason)
}

func newParserError(format string, args ...any) error {
	return &ParserError{Reason: fmt.Sprintf(format, args...)}
}

var errCursorOutOfRange = &ParserError{Reason: "cursor read past end of bitstream"}
