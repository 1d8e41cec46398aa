package ldap

import (
	"errors"
	"fmt"

	"github.com/KilimcininKorOglu/obacore/internal/dn"
)

// DirectoryError is an error that maps onto an LDAP result.
type DirectoryError struct {
	Code      ResultCode
	Message   string
	MatchedDN dn.DN
	Err       error
}

// NewDirectoryError creates a DirectoryError with the given code and message.
func NewDirectoryError(code ResultCode, message string) *DirectoryError {
	return &DirectoryError{Code: code, Message: message}
}

// WrapDirectoryError attaches a result code to err.
func WrapDirectoryError(code ResultCode, message string, err error) *DirectoryError {
	return &DirectoryError{Code: code, Message: message, Err: err}
}

// Error implements the error interface.
func (e *DirectoryError) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	default:
		return e.Code.String()
	}
}

// Unwrap returns the wrapped error.
func (e *DirectoryError) Unwrap() error {
	return e.Err
}

// ResultCodeOf returns the result code carried by err, or fallback when err
// does not carry one.
func ResultCodeOf(err error, fallback ResultCode) ResultCode {
	var de *DirectoryError
	if errors.As(err, &de) {
		return de.Code
	}
	return fallback
}

// MessageOf returns the client-facing message carried by err.
func MessageOf(err error) string {
	var de *DirectoryError
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return err.Error()
}
