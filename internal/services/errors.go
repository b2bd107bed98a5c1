package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConnectivity  = errors.New("connectivity error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTransient     = errors.New("transient failure")
	ErrExternal      = errors.New("external service error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later outcome classification. The marker should
// be one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind names the failure class of an error for logs and outcome mapping.
type Kind string

const (
	KindNone          Kind = ""
	KindValidation    Kind = "validation"
	KindConfiguration Kind = "configuration"
	KindConnectivity  Kind = "connectivity"
	KindNotFound      Kind = "not_found"
	KindExternal      Kind = "external"
	KindTransient     Kind = "transient"
)

// Classify maps an error to its failure class. Unknown errors are transient.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrConnectivity):
		return KindConnectivity
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrExternal):
		return KindExternal
	default:
		return KindTransient
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
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
