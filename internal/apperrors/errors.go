// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package apperrors defines the closed set of error kinds shared by the sync
// and migration core.
//
// Callers branch on [Kind] instead of on error names or messages: retry
// allow-lists, conflict auto-resolution and checkpoint handling all consult
// [KindOf]. Foreign errors (drivers, transports) are mapped into a kind at the
// boundary that produced them.
package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNetwork
	KindTimeout
	KindRateLimited
	KindQuotaExceeded
	// KindAutoResolvableConflict groups uniqueness violations: another writer
	// already produced the same end state.
	KindAutoResolvableConflict
	// KindRequiresUserResolution groups version and optimistic-locking
	// conflicts. These must reach a human and are never retried silently.
	KindRequiresUserResolution
	KindNotFound
	KindLockAcquisition
	KindCheckpointCorrupt
	KindCancelled
)

var kindNames = map[Kind]string{
	KindUnknown:                "unknown",
	KindValidation:             "validation",
	KindNetwork:                "network",
	KindTimeout:                "timeout",
	KindRateLimited:            "rate_limited",
	KindQuotaExceeded:          "quota_exceeded",
	KindAutoResolvableConflict: "auto_resolvable_conflict",
	KindRequiresUserResolution: "requires_user_resolution",
	KindNotFound:               "not_found",
	KindLockAcquisition:        "lock_acquisition",
	KindCheckpointCorrupt:      "checkpoint_corrupt",
	KindCancelled:              "cancelled",
}

// String returns the snake_case name used in configuration allow-lists.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// ParseKind maps a configuration name back to a [Kind].
func ParseKind(name string) (Kind, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return KindUnknown, false
}

// Error is a classified error. Op names the failing operation and Field the
// offending input for validation errors.
type Error struct {
	Kind  Kind
	Op    string
	Field string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Field != "" {
		fmt.Fprintf(&b, " (%s)", e.Field)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an [Error] of the given kind.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap classifies err under kind. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Validation returns a validation error naming the offending field.
func Validation(op, field, msg string) *Error {
	return &Error{Kind: KindValidation, Op: op, Field: field, Msg: msg}
}

// KindOf returns the kind of the outermost classified error in err's chain,
// or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsTransient reports whether err is worth retrying after a backoff.
func IsTransient(err error) bool {
	switch KindOf(err) {
	case KindNetwork, KindTimeout, KindRateLimited:
		return true
	}
	return false
}

// FieldOf returns the offending field of a validation error, if any.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}
