package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents network-related errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeParsing represents HTML parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypePersistence represents history or snapshot write errors
	ErrorTypePersistence ErrorType = "persistence"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// ScanError is the error type shared by the scanner, the cycle runner and the stores.
// Brand is empty for errors that are not tied to a single brand.
type ScanError struct {
	Type    ErrorType
	Brand   string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *ScanError) Error() string {
	prefix := fmt.Sprintf("[%s]", e.Type)
	if e.Brand != "" {
		prefix += " " + e.Brand + ":"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s - %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s", prefix, e.Message)
}

// Unwrap returns the underlying error
func (e *ScanError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *ScanError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypePersistence:
		return true
	default:
		return false
	}
}

// New creates a new ScanError
func New(errType ErrorType, brand, message string, err error) *ScanError {
	return &ScanError{
		Type:    errType,
		Brand:   brand,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(brand, message string, err error) *ScanError {
	return New(ErrorTypeNetwork, brand, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(brand, message string, err error) *ScanError {
	return New(ErrorTypeParsing, brand, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(brand string, retryAfter string) *ScanError {
	message := "rate limited"
	if retryAfter != "" {
		message = fmt.Sprintf("rate limited; retry after %s", retryAfter)
	}
	return New(ErrorTypeRateLimit, brand, message, nil)
}

// NewBlocked reports a fetch skipped because the brand is inside its block window
func NewBlocked(brand string, window time.Duration) *ScanError {
	message := fmt.Sprintf("blocked for %v after rate limiting", window)
	return New(ErrorTypeRateLimit, brand, message, nil)
}

// NewPublisher creates a new publisher error
func NewPublisher(message string, err error) *ScanError {
	return New(ErrorTypePublisher, "", message, err)
}

// NewPersistence creates a new persistence error
func NewPersistence(message string, err error) *ScanError {
	return New(ErrorTypePersistence, "", message, err)
}

// NewValidation creates a new validation error
func NewValidation(brand, message string, err error) *ScanError {
	return New(ErrorTypeValidation, brand, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ScanError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// IsType reports whether err wraps a ScanError of the given type
func IsType(err error, errType ErrorType) bool {
	var scanErr *ScanError
	if stderrors.As(err, &scanErr) {
		return scanErr.Type == errType
	}
	return false
}

// IsRetryable reports whether err wraps a retryable ScanError
func IsRetryable(err error) bool {
	var scanErr *ScanError
	if stderrors.As(err, &scanErr) {
		return scanErr.IsRetryable()
	}
	return false
}

// WithBrand fills in the brand of a ScanError that was raised without one
func WithBrand(err error, brand string) error {
	var scanErr *ScanError
	if stderrors.As(err, &scanErr) && scanErr.Brand == "" {
		scanErr.Brand = brand
	}
	return err
}
