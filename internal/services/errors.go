package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrResourceLimit = errors.New("resource limit reached")
	ErrDuplicateJob  = errors.New("duplicate job")
	ErrJobNotFound   = errors.New("job not found")
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrTimeout       = errors.New("timeout")
	ErrInternal      = errors.New("internal error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrInternal
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ErrorDetails carries the user-facing pieces of a classified error.
type ErrorDetails struct {
	Category string
	Message  string
}

// Details extracts a category label and a human-readable message from a
// wrapped error. The message is what callers surface through GetResult.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Category: "internal", Message: strings.TrimSpace(err.Error())}
	switch {
	case errors.Is(err, ErrResourceLimit):
		details.Category = "resource_limit"
	case errors.Is(err, ErrDuplicateJob):
		details.Category = "duplicate_job"
	case errors.Is(err, ErrJobNotFound):
		details.Category = "not_found"
	case errors.Is(err, ErrExternalTool):
		details.Category = "external_tool"
	case errors.Is(err, ErrValidation):
		details.Category = "validation"
	case errors.Is(err, ErrConfiguration):
		details.Category = "configuration"
	case errors.Is(err, ErrTimeout):
		details.Category = "timeout"
	}
	return details
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
