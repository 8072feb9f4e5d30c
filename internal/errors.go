package internal

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType classifies transfer and persistence failures
type ErrorType int

const (
	ErrInvalidURL ErrorType = iota
	ErrAuth
	ErrRateLimited
	ErrNetworkTimeout
	ErrAutomationStepTimeout
	ErrInvalidResponse
	ErrShareEmpty
	ErrPersistence
	ErrUnsupportedPlatform
)

// ErrorSeverity represents the severity of an error
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

// TransferError is a provider or persistence failure with enough context
// for the audit log and the end-of-run report
type TransferError struct {
	Code       int                    `json:"code"`
	Message    string                 `json:"message"`
	Type       ErrorType              `json:"type"`
	Severity   ErrorSeverity          `json:"severity"`
	URL        string                 `json:"url,omitempty"`
	Suggestion string                 `json:"suggestion,omitempty"`
	Context    map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *TransferError) Error() string {
	parts := []string{fmt.Sprintf("transfer error (code: %d, type: %s)", e.Code, e.Type.String())}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	return strings.Join(parts, " - ")
}

// DetailedError returns a multi-line message with all available context
func (e *TransferError) DetailedError() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s Error", e.Severity.String(), e.Type.String()))
	if e.Code != 0 {
		parts = append(parts, fmt.Sprintf("Code: %d", e.Code))
	}
	if e.Message != "" {
		parts = append(parts, fmt.Sprintf("Message: %s", e.Message))
	}
	if e.URL != "" {
		parts = append(parts, fmt.Sprintf("URL: %s", redactSensitiveURL(e.URL)))
	}
	if len(e.Context) > 0 {
		contextParts := make([]string, 0, len(e.Context))
		for k, v := range e.Context {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("Context: %s", strings.Join(contextParts, ", ")))
	}
	if e.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("Suggestion: %s", e.Suggestion))
	}
	return strings.Join(parts, "\n")
}

// String returns the string representation of ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrInvalidURL:
		return "InvalidURL"
	case ErrAuth:
		return "Auth"
	case ErrRateLimited:
		return "RateLimited"
	case ErrNetworkTimeout:
		return "NetworkTimeout"
	case ErrAutomationStepTimeout:
		return "AutomationStepTimeout"
	case ErrInvalidResponse:
		return "InvalidResponse"
	case ErrShareEmpty:
		return "ShareEmpty"
	case ErrPersistence:
		return "Persistence"
	case ErrUnsupportedPlatform:
		return "UnsupportedPlatform"
	default:
		return "Unknown"
	}
}

// String returns the string representation of ErrorSeverity
func (es ErrorSeverity) String() string {
	switch es {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// NewTransferError creates a TransferError with defaults derived from the type
func NewTransferError(code int, message string, errorType ErrorType) *TransferError {
	return &TransferError{
		Code:       code,
		Message:    message,
		Type:       errorType,
		Severity:   defaultSeverity(errorType),
		Suggestion: defaultSuggestion(errorType),
		Context:    make(map[string]interface{}),
	}
}

// WithSuggestion overrides the default suggestion
func (e *TransferError) WithSuggestion(suggestion string) *TransferError {
	e.Suggestion = suggestion
	return e
}

// WithURL attaches URL context (redacted when printed)
func (e *TransferError) WithURL(url string) *TransferError {
	e.URL = url
	return e
}

// WithContext adds a context key/value pair
func (e *TransferError) WithContext(key string, value interface{}) *TransferError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// IsCritical reports whether processing must stop rather than continue
// with the next queued item. Only persistence failures qualify: once the
// store is unreliable the queue's consistency cannot be guaranteed.
func (e *TransferError) IsCritical() bool {
	return e.Severity == SeverityCritical
}

// IsPersistenceError reports whether err is (or wraps) a store failure
func IsPersistenceError(err error) bool {
	var te *TransferError
	if errors.As(err, &te) {
		return te.Type == ErrPersistence
	}
	return false
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field      string      `json:"field"`
	Message    string      `json:"message"`
	Value      interface{} `json:"value,omitempty"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	parts := []string{fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)}
	if e.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("Suggestion: %s", e.Suggestion))
	}
	return strings.Join(parts, " - ")
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NewValidationErrorWithValue creates a ValidationError carrying the bad value
func NewValidationErrorWithValue(field, message string, value interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// WithSuggestion adds a suggestion to the validation error
func (e *ValidationError) WithSuggestion(suggestion string) *ValidationError {
	e.Suggestion = suggestion
	return e
}

func defaultSuggestion(errorType ErrorType) string {
	switch errorType {
	case ErrInvalidURL:
		return "Provide a valid share URL, e.g. https://pan.quark.cn/s/abcd1234"
	case ErrAuth:
		return "Check the extraction code, or refresh the cached session cookies"
	case ErrRateLimited:
		return "The provider is throttling; rerun later or raise the pacing delay"
	case ErrNetworkTimeout:
		return "Check connectivity and retry; a proxy can help with blocked regions"
	case ErrAutomationStepTimeout:
		return "The expected page control never appeared; the session cookies may have expired"
	case ErrInvalidResponse:
		return "The provider API may have changed or the share was removed"
	case ErrShareEmpty:
		return "The share has no listable files; it may have been taken down"
	case ErrPersistence:
		return "Check that the database file is writable and not locked by another process"
	case ErrUnsupportedPlatform:
		return "No adapter is registered for this platform"
	default:
		return ""
	}
}

func defaultSeverity(errorType ErrorType) ErrorSeverity {
	switch errorType {
	case ErrRateLimited, ErrNetworkTimeout, ErrAutomationStepTimeout:
		return SeverityWarning
	case ErrPersistence:
		return SeverityCritical
	default:
		return SeverityError
	}
}

// redactSensitiveURL strips query parameters which may carry passcodes
func redactSensitiveURL(url string) string {
	if strings.Contains(url, "?") {
		return strings.SplitN(url, "?", 2)[0] + "?[REDACTED]"
	}
	return url
}

// Common constructors

// NewInvalidURLError flags a share URL the platform parser rejected
func NewInvalidURLError(url string, reason string) *TransferError {
	return NewTransferError(400, fmt.Sprintf("invalid share URL: %s", reason), ErrInvalidURL).WithURL(url)
}

// NewAuthError flags a rejected or missing passcode / expired session
func NewAuthError(message string) *TransferError {
	return NewTransferError(401, message, ErrAuth)
}

// NewRateLimitedError flags provider throttling
func NewRateLimitedError(message string) *TransferError {
	return NewTransferError(429, message, ErrRateLimited)
}

// NewNetworkTimeoutError flags a remote call exceeding its bound
func NewNetworkTimeoutError(operation string) *TransferError {
	return NewTransferError(408, fmt.Sprintf("network timeout during %s", operation), ErrNetworkTimeout)
}

// NewAutomationTimeoutError flags a missing UI control within its wait bound
func NewAutomationTimeoutError(step string) *TransferError {
	return NewTransferError(408, fmt.Sprintf("page control not found: %s", step), ErrAutomationStepTimeout)
}

// NewInvalidResponseError flags an unparseable or error-status provider reply
func NewInvalidResponseError(code int, message string) *TransferError {
	return NewTransferError(code, message, ErrInvalidResponse)
}

// NewShareEmptyError flags a share with no transferable entries
func NewShareEmptyError(pwdID string) *TransferError {
	return NewTransferError(404, fmt.Sprintf("share %s has no transferable entries", pwdID), ErrShareEmpty)
}

// NewPersistenceError wraps a store failure; always critical
func NewPersistenceError(operation string, err error) *TransferError {
	return NewTransferError(500, fmt.Sprintf("store %s failed: %v", operation, err), ErrPersistence)
}
