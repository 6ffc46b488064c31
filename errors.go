package tf2

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Kind classifies every failure of the buffer. The kinds are mutually
// exclusive.
type Kind int

const (
	// KindNone is the kind of a nil error.
	KindNone Kind = iota
	// KindInvalidArgument is malformed input to a write: a bad frame name,
	// self-parenting, a cycle, non-finite numbers or a degenerate rotation.
	KindInvalidArgument
	// KindLookup is a query referencing a frame the buffer has never seen.
	KindLookup
	// KindConnectivity is a query between frames (or through a fixed frame)
	// that are not part of the same tree.
	KindConnectivity
	// KindExtrapolation is a query at a time outside the retained samples of
	// some edge on the path.
	KindExtrapolation
	// KindInternal is any other failure, distinguishable only by its message.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInvalidArgument:
		return "invalid argument"
	case KindLookup:
		return "lookup"
	case KindConnectivity:
		return "connectivity"
	case KindExtrapolation:
		return "extrapolation"
	case KindInternal:
		return "internal"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Sentinel errors matching each classified Kind. Every *TransformError unwraps
// to exactly one of them:
//
//	if errors.Is(err, tf2.ErrExtrapolation) {
//		// wait for more data
//	}
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrLookup          = errors.New("lookup")
	ErrConnectivity    = errors.New("connectivity")
	ErrExtrapolation   = errors.New("extrapolation")
)

// ErrClosed is returned by every method of a Buffer after Close.
var ErrClosed = errors.New("tf2: use of closed buffer")

// A TransformError carries the Kind of a failure together with a
// human-readable message.
type TransformError struct {
	Kind Kind
	Msg  string
}

func (e *TransformError) Error() string { return e.Msg }

// Unwrap returns the sentinel error of e's Kind (or nil for unclassified
// kinds).
func (e *TransformError) Unwrap() error {
	switch e.Kind {
	case KindInvalidArgument:
		return ErrInvalidArgument
	case KindLookup:
		return ErrLookup
	case KindConnectivity:
		return ErrConnectivity
	case KindExtrapolation:
		return ErrExtrapolation
	default:
		return nil
	}
}

func errorf(kind Kind, format string, args ...any) error {
	return &TransformError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// MaxMessageLength bounds the diagnostic returned by Classify, in bytes.
const MaxMessageLength = 256

// Classify maps err onto its Kind and a diagnostic message of at most
// MaxMessageLength bytes. It is the single point where callers on the other
// side of an API boundary (e.g. a C ABI or an RPC) translate the buffer's
// errors into their own conventions.
//
// A nil error classifies as KindNone with an empty message; errors that did not
// originate from the buffer classify as KindInternal.
func Classify(err error) (Kind, string) {
	if err == nil {
		return KindNone, ""
	}
	kind := KindInternal
	var te *TransformError
	if errors.As(err, &te) {
		kind = te.Kind
	}
	return kind, truncate(err.Error(), MaxMessageLength)
}

// truncate shortens s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
