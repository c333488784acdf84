package lazysql

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for query composition and execution.
var (
	// ErrCompose is returned when a query cannot be rendered to SQL text,
	// e.g. it has no columns, no tables or an unknown ORDER BY direction.
	ErrCompose = errors.New("lazysql: cannot compose query")

	// ErrDuplicateAlias is returned when a table or column alias is added
	// to a query that already holds the same alias.
	ErrDuplicateAlias = errors.New("lazysql: duplicate alias")
)

// ComposeError describes why a query could not be composed.
type ComposeError struct {
	Clause string // Clause being rendered (e.g. "columns", "order by", "where")
	Reason string
}

// Error returns the error string.
func (e *ComposeError) Error() string {
	if e.Clause != "" {
		return fmt.Sprintf("lazysql: compose %s: %s", e.Clause, e.Reason)
	}
	return fmt.Sprintf("lazysql: compose: %s", e.Reason)
}

// Is reports whether the target error matches ComposeError.
// This allows errors.Is(composeErr, ErrCompose) to return true.
func (e *ComposeError) Is(err error) bool {
	return err == ErrCompose
}

// NewComposeError returns a new ComposeError for the given clause.
func NewComposeError(clause, format string, args ...any) *ComposeError {
	return &ComposeError{Clause: clause, Reason: fmt.Sprintf(format, args...)}
}

// IsComposeError returns true if the error is a ComposeError.
func IsComposeError(err error) bool {
	if err == nil {
		return false
	}
	var e *ComposeError
	return errors.As(err, &e) || errors.Is(err, ErrCompose)
}

// DuplicateAliasError is returned when an alias is registered twice
// in the same clause of a query.
type DuplicateAliasError struct {
	Clause string // "from" or "columns"
	Alias  string
}

// Error returns the error string.
func (e *DuplicateAliasError) Error() string {
	return fmt.Sprintf("lazysql: duplicate alias %q in %s clause", e.Alias, e.Clause)
}

// Is reports whether the target error matches DuplicateAliasError.
func (e *DuplicateAliasError) Is(err error) bool {
	return err == ErrDuplicateAlias
}

// NewDuplicateAliasError returns a new DuplicateAliasError.
func NewDuplicateAliasError(clause, alias string) *DuplicateAliasError {
	return &DuplicateAliasError{Clause: clause, Alias: alias}
}

// IsDuplicateAlias returns true if the error is a DuplicateAliasError.
func IsDuplicateAlias(err error) bool {
	if err == nil {
		return false
	}
	var e *DuplicateAliasError
	return errors.As(err, &e) || errors.Is(err, ErrDuplicateAlias)
}

// QueryError wraps a driver error with the statement that caused it.
type QueryError struct {
	Op    string // Operation (e.g., "fetch all", "fetch value", "execute")
	Query string // Composed SQL, empty if composition failed
	Err   error  // Underlying error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	if e.Query != "" {
		return fmt.Sprintf("lazysql: %s %q: %v", e.Op, e.Query, e.Err)
	}
	return fmt.Sprintf("lazysql: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError returns a new QueryError.
func NewQueryError(op, query string, err error) *QueryError {
	return &QueryError{Op: op, Query: query, Err: err}
}

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "lazysql: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("lazysql: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors, so errors.Is and errors.As
// inspect every one of them.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}
