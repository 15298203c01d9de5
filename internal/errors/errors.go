package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ValidationError indicates an invalid configuration or change-set
	ValidationError ErrorCode = "VALIDATION_ERROR"
	// EmptyInput indicates that no changes were supplied
	EmptyInput ErrorCode = "EMPTY_INPUT"
	// OperationError indicates an invalid merge/split/reorder/relabel request
	OperationError ErrorCode = "OPERATION_ERROR"
	// InvalidSplit indicates a split on a boundary with fewer than two files
	InvalidSplit ErrorCode = "INVALID_SPLIT"
	// InvariantViolation indicates a strategy that breaks partition or ordering invariants
	InvariantViolation ErrorCode = "INVARIANT_VIOLATION"
	// GitFailed indicates a git command failed
	GitFailed ErrorCode = "GIT_FAILED"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditConfig suggests changing a configuration value
	EditConfig FixActionType = "edit-config"
	// UseFlag suggests passing a CLI flag
	UseFlag FixActionType = "use-flag"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type" yaml:"type"`
	Command     string        `json:"command,omitempty" yaml:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty" yaml:"safe,omitempty"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Field       string        `json:"field,omitempty" yaml:"field,omitempty"`
}

// Error is a stagewise error with code, message, and suggestions
type Error struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new Error
func New(code ErrorCode, message string, cause error, suggestedFixes []FixAction) *Error {
	return &Error{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: suggestedFixes,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error carrying the same code, so errors.Is works with
// code-only targets such as &Error{Code: EmptyInput}.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// NewValidationError reports an invalid configuration field or input record
func NewValidationError(field, message string) *Error {
	return New(ValidationError, fmt.Sprintf("%s: %s", field, message), nil, []FixAction{
		{
			Type:        EditConfig,
			Field:       field,
			Description: "Fix the value in .stagewise/config.toml or the matching flag",
		},
	}).WithDetails(map[string]string{"field": field})
}

// NewEmptyInputError reports a change-set with nothing to plan
func NewEmptyInputError() *Error {
	return New(EmptyInput, "no changes to plan", nil, GetSuggestedFixes(EmptyInput))
}

// NewOperationError reports a rejected mutation
func NewOperationError(op, message string) *Error {
	return New(OperationError, fmt.Sprintf("%s: %s", op, message), nil, nil).
		WithDetails(map[string]string{"operation": op})
}

// NewInvalidSplitError reports a split on a boundary that cannot be divided
func NewInvalidSplitError(boundaryID string, fileCount int) *Error {
	return New(InvalidSplit,
		fmt.Sprintf("boundary %s has %d file(s); split needs at least 2", boundaryID, fileCount),
		nil, nil).WithDetails(map[string]interface{}{"boundary": boundaryID, "files": fileCount})
}

// NewInvariantError wraps the aggregated invariant violations of a strategy
func NewInvariantError(cause error) *Error {
	return New(InvariantViolation, "staging strategy violates invariants", cause, nil)
}

// CodeOf returns the code of the first *Error in err's chain, or InternalError
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return InternalError
}

// HasCode reports whether err carries the given code
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	EmptyInput: {
		{
			Type:        RunCommand,
			Command:     "git status --short",
			Safe:        true,
			Description: "Check that the working tree has uncommitted changes",
		},
		{
			Type:        EditConfig,
			Field:       "ignorePatterns",
			Description: "Ignore patterns may be filtering out every changed file",
		},
	},
	OperationError: {
		{
			Type:        UseFlag,
			Command:     "reorder:<ref>:<index>:force",
			Description: "Override dependency order explicitly",
		},
	},
	GitFailed: {
		{
			Type:        RunCommand,
			Command:     "git status",
			Safe:        true,
			Description: "Verify you're in a git repository",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
