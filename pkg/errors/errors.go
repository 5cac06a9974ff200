package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeConfiguration represents startup configuration errors; these abort the process
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeFetch represents network and fetch errors
	ErrorTypeFetch ErrorType = "fetch"
	// ErrorTypeExtraction represents page extraction errors; the affected item is dropped
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypePagination represents pagination-count parse errors; the page's pagination is dropped
	ErrorTypePagination ErrorType = "pagination"
	// ErrorTypeRateLimit represents rate limiting by the remote site
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeStorage represents database errors; these abort the run
	ErrorTypeStorage ErrorType = "storage"
)

// ScrapeError is the error type carried through the crawl pipeline
type ScrapeError struct {
	Type    ErrorType
	Domain  string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Domain, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Domain, e.Message)
}

// Unwrap returns the underlying error
func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether the error must abort the run rather than drop an item
func (e *ScrapeError) IsFatal() bool {
	switch e.Type {
	case ErrorTypeConfiguration, ErrorTypeStorage:
		return true
	default:
		return false
	}
}

// New creates a new ScrapeError
func New(errType ErrorType, domain, message string, err error) *ScrapeError {
	return &ScrapeError{
		Type:    errType,
		Domain:  domain,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ScrapeError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// NewFetch creates a new fetch error
func NewFetch(domain, message string, err error) *ScrapeError {
	return New(ErrorTypeFetch, domain, message, err)
}

// NewExtraction creates a new extraction error
func NewExtraction(domain, message string, err error) *ScrapeError {
	return New(ErrorTypeExtraction, domain, message, err)
}

// NewPagination creates a new pagination-count parse error
func NewPagination(domain, message string, err error) *ScrapeError {
	return New(ErrorTypePagination, domain, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(domain string, duration time.Duration) *ScrapeError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, domain, message, nil)
}

// NewStorage creates a new storage error
func NewStorage(message string, err error) *ScrapeError {
	return New(ErrorTypeStorage, "", message, err)
}

// ErrDropPage signals that a detail page cannot be scraped. The item is
// dropped and logged; the crawl continues.
var ErrDropPage = errors.New("page cannot be scraped")

// DropPage wraps ErrDropPage with a reason
func DropPage(domain, reason string) error {
	return fmt.Errorf("%s: %s: %w", domain, reason, ErrDropPage)
}

// IsDrop reports whether err signals a dropped page
func IsDrop(err error) bool {
	return errors.Is(err, ErrDropPage)
}

// IsFatal reports whether err must abort the run
func IsFatal(err error) bool {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.IsFatal()
	}
	return false
}
