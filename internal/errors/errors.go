// Copyright (C) 2026 MicroKVM Project. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package errors defines the updater's failure taxonomy. Every fatal
// pipeline error is classified by Kind so the top level can report
// which stage failed and whether the device was mutated.
package errors

import (
	"errors"
	"fmt"
)

// Kind defines the category of error.
type Kind int

const (
	KindUnknown Kind = iota
	KindInternal
	// KindValidation covers malformed configuration.
	KindValidation
	// KindServiceControl: the managed service could not be stopped.
	// Raised before any filesystem mutation.
	KindServiceControl
	// KindStaging: the staging area could not be prepared.
	KindStaging
	// KindArchive: the firmware bundle is malformed or contains
	// entries escaping the staging area.
	KindArchive
	// KindFetch: network failure or content-type mismatch on either
	// remote endpoint.
	KindFetch
	// KindInstall: promotion or auxiliary-library placement failed.
	// The old tree may already have moved to the backup path.
	KindInstall
	// KindRead: the version file is missing post-install. Non-fatal;
	// the new tree is already live.
	KindRead
)

func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "internal"
	case KindValidation:
		return "validation"
	case KindServiceControl:
		return "service_control"
	case KindStaging:
		return "staging"
	case KindArchive:
		return "archive"
	case KindFetch:
		return "fetch"
	case KindInstall:
		return "install"
	case KindRead:
		return "read"
	default:
		return "unknown"
	}
}

// Error is a classified updater error.
type Error struct {
	Kind       Kind
	Message    string
	Underlying error
	Attributes map[string]any
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Underlying)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// New creates a new Error of the specified kind.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// Errorf creates a new Error of the specified kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error as a new Error of the specified kind.
func Wrap(err error, kind Kind, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: msg, Underlying: err}
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, kind Kind, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Underlying: err}
}

// Attr attaches an attribute to an error. If the error is not an *Error,
// it is wrapped as KindInternal first.
func Attr(err error, key string, val any) error {
	if err == nil {
		return nil
	}

	var e *Error
	if !errors.As(err, &e) {
		e = &Error{
			Kind:       KindInternal,
			Message:    err.Error(),
			Underlying: err,
		}
	}

	if e.Attributes == nil {
		e.Attributes = make(map[string]any)
	}
	e.Attributes[key] = val
	return e
}

// GetKind returns the Kind of the error, or KindUnknown for foreign errors.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind at its outermost
// classified layer.
func IsKind(err error, kind Kind) bool {
	return GetKind(err) == kind
}

// GetAttributes collects attributes from the error chain. Outer
// attributes win on key collision.
func GetAttributes(err error) map[string]any {
	attrs := make(map[string]any)
	var e *Error

	tempErr := err
	for tempErr != nil {
		if errors.As(tempErr, &e) {
			for k, v := range e.Attributes {
				if _, ok := attrs[k]; !ok {
					attrs[k] = v
				}
			}
			tempErr = e.Underlying
		} else {
			break
		}
	}

	return attrs
}
