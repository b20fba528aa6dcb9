// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Data-source errors. Transient failures (rate limit, timeout, 5xx)
	// may be retried; permanent ones (bad symbol, auth) must not be.
	ErrDataSourceTransient = &Error{Code: "DATA_SOURCE_TRANSIENT", Message: "transient data source failure"}
	ErrDataSourcePermanent = &Error{Code: "DATA_SOURCE_PERMANENT", Message: "permanent data source failure"}
	ErrSymbolNotFound      = &Error{Code: "SYMBOL_NOT_FOUND", Message: "symbol not found"}

	// Normalization errors
	ErrEmptySeries = &Error{Code: "EMPTY_SERIES", Message: "normalization produced no usable points"}

	// Fact-pack builder errors
	ErrFactPackBuild   = &Error{Code: "FACT_PACK_BUILD", Message: "required source failed"}
	ErrFactPackTimeout = &Error{Code: "FACT_PACK_TIMEOUT", Message: "fact pack build deadline exceeded"}

	// Analysis errors
	ErrSchemaValidation    = &Error{Code: "SCHEMA_VALIDATION", Message: "response failed schema validation"}
	ErrAnalysisUnavailable = &Error{Code: "ANALYSIS_UNAVAILABLE", Message: "analysis failed on primary and fallback models"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// LLM errors
	ErrLLMFailed  = &Error{Code: "LLM_FAILED", Message: "LLM request failed"}
	ErrLLMTimeout = &Error{Code: "LLM_TIMEOUT", Message: "LLM request timeout"}
)
