// ============================================================================
// Fractor Core Types - WorkResult and error taxonomy
// ============================================================================
//
// Package: pkg/fractor
// File: result.go
// Purpose: The outcome of processing one Work item, and the taxonomy used to
// classify failures (spec.md §3, §4.1).
//
// ============================================================================

package fractor

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
)

// ErrorCategory classifies a failure for retry/alerting purposes.
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryTimeout    ErrorCategory = "timeout"
	CategoryNetwork    ErrorCategory = "network"
	CategoryResource   ErrorCategory = "resource"
	CategoryBusiness   ErrorCategory = "business"
	CategorySystem     ErrorCategory = "system"
	CategoryUnknown    ErrorCategory = "unknown"
)

// ErrorSeverity ranks how urgently a failure needs attention.
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "critical"
	SeverityError    ErrorSeverity = "error"
	SeverityWarning  ErrorSeverity = "warning"
	SeverityInfo     ErrorSeverity = "info"
)

// Retriable categories per spec.md §3.
var retriableCategories = map[ErrorCategory]bool{
	CategoryTimeout:  true,
	CategoryNetwork:  true,
	CategoryResource: true,
}

// WorkResult is the outcome of processing one Work item: either a success
// carrying an arbitrary result payload, or a classified failure.
type WorkResult struct {
	work    Work
	success bool
	result  interface{}

	errMessage  string
	errCode     string
	category    ErrorCategory
	severity    ErrorSeverity
	errContext  map[string]interface{}
	suggestion  string
	stackTrace  string
}

// NewSuccess wraps a raw result value produced by a Worker.
func NewSuccess(w Work, result interface{}) WorkResult {
	return WorkResult{work: w, success: true, result: result}
}

// NewFailure builds a WorkResult from a raw error, inferring category and
// severity from the error's shape per the table in spec.md §4.1. Overrides
// win when non-zero.
func NewFailure(w Work, err error, overrideCategory ErrorCategory, overrideSeverity ErrorSeverity) WorkResult {
	category := overrideCategory
	severity := overrideSeverity
	if category == "" {
		category = classifyCategory(err)
	}
	if severity == "" {
		severity = classifySeverity(category, err)
	}

	wr := WorkResult{
		work:       w,
		success:    false,
		category:   category,
		severity:   severity,
		errContext: make(map[string]interface{}),
	}
	if err != nil {
		wr.errMessage = err.Error()
	}
	wr.suggestion = suggestFor(category)
	return wr
}

// classifyCategory infers an ErrorCategory from the shape of err, per the
// classification table in spec.md §4.1.
func classifyCategory(err error) ErrorCategory {
	if err == nil {
		return CategoryUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "timeout") || strings.Contains(err.Error(), "deadline exceeded") {
		return CategoryTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return CategoryNetwork
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset") || strings.Contains(msg, "no such host") {
		return CategoryNetwork
	}

	if errors.Is(err, os.ErrNotExist) {
		return CategoryResource
	}
	if strings.Contains(msg, "out of memory") || strings.Contains(msg, "no space left") || strings.Contains(msg, "cannot allocate memory") {
		return CategoryResource
	}

	if strings.Contains(msg, "stack overflow") {
		return CategorySystem
	}

	var typeErr *TypeValidationError
	if errors.As(err, &typeErr) {
		return CategoryValidation
	}
	if strings.Contains(msg, "invalid argument") || strings.Contains(msg, "invalid type") {
		return CategoryValidation
	}

	return CategoryUnknown
}

func classifySeverity(category ErrorCategory, err error) ErrorSeverity {
	switch category {
	case CategoryResource, CategorySystem:
		return SeverityCritical
	case CategoryValidation, CategoryTimeout, CategoryNetwork, CategoryBusiness, CategoryUnknown:
		return SeverityError
	default:
		return SeverityError
	}
}

func suggestFor(category ErrorCategory) string {
	switch category {
	case CategoryTimeout:
		return "increase the per-item timeout or investigate slow downstream calls"
	case CategoryNetwork:
		return "check connectivity to the dependency and retry"
	case CategoryResource:
		return "free memory/disk or reduce concurrent worker count"
	case CategoryValidation:
		return "check the work input against the worker's expected schema"
	case CategorySystem:
		return "inspect worker host logs for a crash"
	default:
		return ""
	}
}

// TypeValidationError is a convenience error type worker authors can return
// to get CategoryValidation classification without relying on substring
// matching.
type TypeValidationError struct {
	Message string
}

func (e *TypeValidationError) Error() string { return e.Message }

// WithContext attaches free-form debugging context to a failure result.
func (wr WorkResult) WithContext(ctx map[string]interface{}) WorkResult {
	wr.errContext = ctx
	return wr
}

// WithErrorCode attaches a machine-readable error code.
func (wr WorkResult) WithErrorCode(code string) WorkResult {
	wr.errCode = code
	return wr
}

// WithStackTrace attaches a captured stack trace string.
func (wr WorkResult) WithStackTrace(trace string) WorkResult {
	wr.stackTrace = trace
	return wr
}

func (wr WorkResult) Work() Work                          { return wr.work }
func (wr WorkResult) Success() bool                       { return wr.success }
func (wr WorkResult) Result() interface{}                 { return wr.result }
func (wr WorkResult) ErrorMessage() string                { return wr.errMessage }
func (wr WorkResult) ErrorCode() string                   { return wr.errCode }
func (wr WorkResult) Category() ErrorCategory             { return wr.category }
func (wr WorkResult) Severity() ErrorSeverity             { return wr.severity }
func (wr WorkResult) Context() map[string]interface{}     { return wr.errContext }
func (wr WorkResult) Suggestion() string                  { return wr.suggestion }
func (wr WorkResult) StackTrace() string                  { return wr.stackTrace }

// Retriable reports whether this failure's category is worth a
// producer-side retry: timeout, network, or resource.
func (wr WorkResult) Retriable() bool {
	if wr.success {
		return false
	}
	return retriableCategories[wr.category]
}
