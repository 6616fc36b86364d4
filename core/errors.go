package core

import (
	"github.com/pkg/errors"
)

// Storage errors. Repositories wrap driver errors into one of these so services can
// present them without knowing the database in use.
var (
	ErrNotFound             = errors.New("record not found")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrUniqueViolation      = errors.New("unique constraint violation")
	ErrForeignKeyViolation  = errors.New("foreign key violation")
	ErrNoFieldsToUpdate     = errors.New("No fields to update")
	ErrUnknownTable         = errors.New("Unknown table")
	errTranslatedPermission = "Permission denied: you do not have access to this record"
	errTranslatedUnique     = "A record with this value already exists"
	errTranslatedForeignKey = "This record references a related record that does not exist or is still in use"
	errTranslatedNotFound   = "Record not found"
)

// TranslateError turns storage errors into messages fit for an end user.
func TranslateError(err error) string {
	if err == nil {
		return ""
	}
	switch errors.Cause(err) {
	case ErrPermissionDenied:
		return errTranslatedPermission
	case ErrUniqueViolation:
		return errTranslatedUnique
	case ErrForeignKeyViolation:
		return errTranslatedForeignKey
	case ErrNotFound:
		return errTranslatedNotFound
	}
	if verr, ok := errors.Cause(err).(*ValidationError); ok {
		return verr.Error()
	}
	return err.Error()
}

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	var s *shutdown
	return errors.As(err, &s)
}
