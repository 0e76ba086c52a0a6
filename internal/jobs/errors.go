package jobs

import "fmt"

// ErrorKind classifies every failure the command surface or a worker stage
// can produce.
type ErrorKind string

const (
	KindInvalidInput    ErrorKind = "invalid_input"
	KindUnauthorized    ErrorKind = "unauthorized"
	KindNotFound        ErrorKind = "not_found"
	KindBusy            ErrorKind = "busy"
	KindFetchError      ErrorKind = "fetch_error"
	KindTranscribeError ErrorKind = "transcribe_error"
	KindRenderError     ErrorKind = "render_error"
	KindParseError      ErrorKind = "parse_error"
	KindIOError         ErrorKind = "io_error"
	KindInternal        ErrorKind = "internal"
)

// Error pairs an ErrorKind with its cause.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// errKind wraps err with a kind.
func errKind(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func errKindf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the ErrorKind from an error, defaulting to internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindInternal
}
