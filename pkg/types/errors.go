package types

import (
	"errors"
	"fmt"
)

// Lifecycle operation errors. Operations return these (possibly wrapped);
// compare with errors.Is.
var (
	ErrNotFound         = errors.New("ticket not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNameConflict     = errors.New("ticket name already exists")
	ErrEmptyName        = errors.New("name must not be empty")
	ErrStillInUse       = errors.New("ticket is in use")
	ErrInvalidPayload   = errors.New("invalid ticket payload")
	ErrInvalidID        = errors.New("invalid ticket ID")
	ErrInvalidLocation  = errors.New("invalid location")
	ErrInvalidGrant     = errors.New("invalid permission grant")
	ErrInternal         = errors.New("internal error")
)

// ErrRestoreConflict is returned when restoring a ticket would duplicate the
// name of an active ticket. It wraps ErrNameConflict.
var ErrRestoreConflict = fmt.Errorf("%w: restore blocked by an active ticket", ErrNameConflict)

// Code is the abstract result of a lifecycle operation.
type Code int

// Result codes.
const (
	CodeSuccess Code = iota
	CodeNotFound
	CodePermissionDenied
	CodeNameConflict
	CodeEmptyName
	CodeStillInUse
	CodeInvalid
	CodeInternalError
)

var codeNames = map[Code]string{
	CodeSuccess:          "success",
	CodeNotFound:         "not_found",
	CodePermissionDenied: "permission_denied",
	CodeNameConflict:     "name_conflict",
	CodeEmptyName:        "empty_name",
	CodeStillInUse:       "still_in_use",
	CodeInvalid:          "invalid",
	CodeInternalError:    "internal_error",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// CodeOf maps an operation error to its result code. A nil error is
// CodeSuccess; errors outside the taxonomy are CodeInternalError.
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return CodeSuccess
	case errors.Is(err, ErrInternal):
		return CodeInternalError
	case errors.Is(err, ErrPermissionDenied):
		return CodePermissionDenied
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidID):
		return CodeNotFound
	case errors.Is(err, ErrNameConflict):
		return CodeNameConflict
	case errors.Is(err, ErrEmptyName):
		return CodeEmptyName
	case errors.Is(err, ErrStillInUse):
		return CodeStillInUse
	case errors.Is(err, ErrInvalidPayload), errors.Is(err, ErrInvalidLocation),
		errors.Is(err, ErrInvalidGrant):
		return CodeInvalid
	default:
		return CodeInternalError
	}
}
