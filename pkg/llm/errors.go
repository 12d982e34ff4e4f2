package llm

import "errors"

// ErrMissingAnswer is returned when a response payload is well-formed but does
// not carry an assistant answer where the wire format expects one.
var ErrMissingAnswer = errors.New("missing answer content")
