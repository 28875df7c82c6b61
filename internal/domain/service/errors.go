package service

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below through errors.Is
var (
	ErrResourceInit = errors.New("resource initialization failed")
	ErrInference    = errors.New("inference failed")
	ErrInvalidInput = errors.New("invalid input")
)

// ResourceInitError reports that a named pipeline could not be constructed
type ResourceInitError struct {
	Model string
	Cause error
}

func (e *ResourceInitError) Error() string {
	return fmt.Sprintf("failed to load pipeline %q: %v", e.Model, e.Cause)
}

func (e *ResourceInitError) Unwrap() error { return e.Cause }

func (e *ResourceInitError) Is(target error) bool { return target == ErrResourceInit }

// InferenceError reports that a loaded pipeline rejected or failed a request
type InferenceError struct {
	Model string
	Cause error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference with %q failed: %v", e.Model, e.Cause)
}

func (e *InferenceError) Unwrap() error { return e.Cause }

func (e *InferenceError) Is(target error) bool { return target == ErrInference }

// InvalidInputError reports a caller-side validation failure
type InvalidInputError struct {
	Field  string
	Reason string
	Cause  error
}

func (e *InvalidInputError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid %s: %s: %v", e.Field, e.Reason, e.Cause)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Unwrap() error { return e.Cause }

func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }
