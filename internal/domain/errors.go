// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates invalid caller input.
var ErrValidation = errors.New("validation error")

// ErrUpstream indicates a remote dependency failed or returned an unusable response.
var ErrUpstream = errors.New("upstream error")
