package render

import "fmt"

// ErrorKind classifies user-visible render failures.
type ErrorKind string

const (
	KindCapability   ErrorKind = "capability"
	KindConstruction ErrorKind = "construction"
	KindAcquisition  ErrorKind = "acquisition"
)

const (
	msgCapability   = "Accelerated drawing is not available on this surface."
	msgConstruction = "Graph renderer failed to initialize."
	msgAcquisition  = "Failed to load graph renderer."
)

// Error is a render failure confined to the graph panel. Resize, fit and
// teardown failures never become an Error.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Err }

func capabilityError(err error) *Error {
	return &Error{Kind: KindCapability, Msg: msgCapability, Err: err}
}

// constructionError keeps the backend's message when it has one.
func constructionError(err error) *Error {
	msg := msgConstruction
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return &Error{Kind: KindConstruction, Msg: msg, Err: err}
}

func acquisitionError(err error) *Error {
	return &Error{Kind: KindAcquisition, Msg: msgAcquisition, Err: err}
}

// panicError converts a recovered panic from backend code into an error.
func panicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}
