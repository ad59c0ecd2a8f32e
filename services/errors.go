package services

import "errors"

// Kind classifies a domain failure so callers can map it to a user-facing
// response without string matching.
type Kind uint8

const (
	KindUnexpected Kind = iota
	KindInvalidRange
	KindOverlap
	KindInsufficientHours
	KindNotFound
	KindConflict
	KindUnauthenticated
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRange:
		return "invalid_range"
	case KindOverlap:
		return "overlap"
	case KindInsufficientHours:
		return "insufficient_hours"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	default:
		return "unexpected"
	}
}

// Error is a domain error carrying a Kind.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// E builds a domain error of the given kind.
func E(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// KindOf extracts the Kind from err, returning KindUnexpected for foreign errors.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnexpected
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
