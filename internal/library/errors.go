// internal/library/errors.go
package library

import (
	"errors"
	"fmt"
)

// Kind classifies expected business-rule violations. Anything outside this
// set (storage failures, corrupt records) travels as a plain wrapped error.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindDuplicate
	KindNotFound
	KindAmbiguous
	KindConflict
	KindAlreadyLoaned
	KindLimitExceeded
)

// Error is a business-rule violation with a message that can be spoken back
// to the user as-is.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is a business error of the given kind.
func IsKind(err error, kind Kind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == kind
}

// AsDomain unwraps err into a business Error, if it is one.
func AsDomain(err error) (*Error, bool) {
	var de *Error
	ok := errors.As(err, &de)
	return de, ok
}
