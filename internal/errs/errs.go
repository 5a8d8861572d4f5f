package errs

import "errors"

// Kinds. Every domain error wraps exactly one of these.
var (
	ErrValidation = errors.New("validation")
	ErrPermission = errors.New("permission denied")
	ErrInvariant  = errors.New("invariant violation")
	ErrNotFound   = errors.New("not found")
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindPermission
	KindInvariant
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPermission:
		return "permission"
	case KindInvariant:
		return "invariant"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// KindOf classifies err. Permission wins over invariant for errors that carry
// both identities (e.g. a non-owner unstake).
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrPermission):
		return KindPermission
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvariant):
		return KindInvariant
	case errors.Is(err, ErrValidation):
		return KindValidation
	default:
		return KindUnknown
	}
}
