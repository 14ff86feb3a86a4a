package service

import (
	"errors"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"bookswap/internal/tree"
)

// Sentinel errors returned by CategoryService. Match with errors.Is.
var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("category not found")
	ErrInvalidParent = errors.New("parent category does not exist")
	ErrSelfParent    = errors.New("category cannot be its own parent")
	ErrCycleDetected = errors.New("new parent is a descendant of the category")
	ErrDuplicate     = errors.New("category name already exists under this parent")
	ErrHasChildren   = errors.New("category has subcategories")
	ErrInUse         = errors.New("category is referenced by books")

	// ErrInternalConsistency is returned when the stored graph is already
	// corrupted (for example a parent loop written outside the service).
	ErrInternalConsistency = tree.ErrInternalConsistency
)

// ValidationError carries per-field messages for rejected input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Is allows errors.Is() to match against ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// fieldError builds a ValidationError for a single field.
func fieldError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// toValidationError converts ozzo-validation output into a ValidationError.
// Errors that are not field validation errors are returned unchanged.
func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for field, ferr := range verrs {
		fields[field] = ferr.Error()
	}
	return &ValidationError{Fields: fields}
}

// Error kinds reported to clients and used as metric outcome labels.
const (
	KindValidation          = "validation"
	KindNotFound            = "not_found"
	KindInvalidParent       = "invalid_parent"
	KindSelfParent          = "self_parent"
	KindCycleDetected       = "cycle_detected"
	KindDuplicate           = "duplicate"
	KindHasChildren         = "has_children"
	KindInUse               = "in_use"
	KindInternalConsistency = "internal_consistency"
	KindInternal            = "internal"
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrValidation, KindValidation},
	{ErrNotFound, KindNotFound},
	{ErrInvalidParent, KindInvalidParent},
	{ErrSelfParent, KindSelfParent},
	{ErrCycleDetected, KindCycleDetected},
	{ErrDuplicate, KindDuplicate},
	{ErrHasChildren, KindHasChildren},
	{ErrInUse, KindInUse},
	{ErrInternalConsistency, KindInternalConsistency},
}

// Kind classifies an error returned by CategoryService. Unrecognised
// errors are KindInternal; nil is "".
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
