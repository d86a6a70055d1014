// ABOUTME: Error taxonomy shared by ingestion, retrieval, memory and routing
// ABOUTME: Every user-visible failure is rendered as a structured kind plus message
package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure so callers can pick a remediation
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindExtraction        ErrorKind = "extraction"
	KindChunking          ErrorKind = "chunking"
	KindEmbedding         ErrorKind = "embedding"
	KindRetrievalDegraded ErrorKind = "retrieval_degraded"
	KindCredential        ErrorKind = "credential"
	KindModel             ErrorKind = "model"
	KindNetwork           ErrorKind = "network"
	KindNotFound          ErrorKind = "not_found"
	KindStorage           ErrorKind = "storage"
	KindInternal          ErrorKind = "internal"
)

// Error is a classified failure. Message is safe to show to a user;
// Err carries the underlying cause for logs.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same kind, so errors.Is(err, &Error{Kind: KindChunking}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// NewError creates a classified error without an underlying cause
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind. A nil err yields nil.
func Wrap(kind ErrorKind, err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// PublicMessage returns a message suitable for end users. Storage and
// unclassified failures never leak their internals.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "internal error"
	}
	switch e.Kind {
	case KindStorage, KindInternal:
		return "internal error"
	case KindCredential:
		if e.Message == "" {
			return "language model credentials are missing or invalid"
		}
	}
	return e.Message
}

// Convenience constructors for the most common kinds

func ValidationError(format string, args ...interface{}) *Error {
	return NewError(KindValidation, format, args...)
}

func ChunkingError(err error, message string) error {
	return Wrap(KindChunking, err, message)
}

func EmbeddingError(err error, message string) error {
	return Wrap(KindEmbedding, err, message)
}
