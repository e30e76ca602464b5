package utils

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrorRecordNotFound = errors.New("record not found")

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}

// ErrorKind classifies failures so handlers can translate them to HTTP
// statuses without inspecting messages. Repositories and workflows return
// kind-tagged errors; the boundary maps kinds only.
type ErrorKind string

const (
	ErrorKindNotFound   ErrorKind = "not_found"
	ErrorKindConflict   ErrorKind = "conflict"
	ErrorKindForbidden  ErrorKind = "forbidden"
	ErrorKindDomain     ErrorKind = "domain"
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindExternal   ErrorKind = "external"
	ErrorKindFatal      ErrorKind = "fatal"
)

// AppError carries a kind plus optional per-field messages (domain and
// validation failures name the offending fields).
type AppError struct {
	Kind    ErrorKind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func NewNotFoundError(message string) *AppError {
	return &AppError{Kind: ErrorKindNotFound, Message: message}
}

func NewConflictError(message string) *AppError {
	return &AppError{Kind: ErrorKindConflict, Message: message}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{Kind: ErrorKindForbidden, Message: message}
}

func NewDomainError(message string, fields map[string]string) *AppError {
	return &AppError{Kind: ErrorKindDomain, Message: message, Fields: fields}
}

func NewValidationError(message string, fields map[string]string) *AppError {
	return &AppError{Kind: ErrorKindValidation, Message: message, Fields: fields}
}

func NewExternalError(message string, err error) *AppError {
	return &AppError{Kind: ErrorKindExternal, Message: message, Err: err}
}

// KindOf resolves the ErrorKind for any error. Untagged errors are Fatal;
// the ORM's not-found sentinel maps to NotFound.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	if errors.Is(err, ErrorRecordNotFound) {
		return ErrorKindNotFound
	}
	return ErrorKindFatal
}

// HTTPStatus maps an error to the response code defined for its kind.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case ErrorKindNotFound:
		return http.StatusNotFound
	case ErrorKindConflict:
		return http.StatusConflict
	case ErrorKindForbidden:
		return http.StatusForbidden
	case ErrorKindDomain:
		return http.StatusBadRequest
	case ErrorKindValidation:
		return http.StatusUnprocessableEntity
	case ErrorKindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorFields returns the per-field messages of a tagged error, or nil.
func ErrorFields(err error) map[string]string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Fields
	}
	return nil
}
