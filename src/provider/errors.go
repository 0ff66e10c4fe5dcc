package provider

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyBuildID  = errors.New("build ID is required")
	ErrUnsafeBuildID = errors.New("build ID must be a single path element")
	ErrBuildNotFound = errors.New("build not found")
	ErrRateLimited   = errors.New("rate limited")
)

// InputError reports a user-correctable problem with the request itself.
type InputError struct {
	Field string
	Err   error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// NotFoundError reports a build ID that is absent from every index.
type NotFoundError struct {
	BuildID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("build %s not found in any snapshot", e.BuildID)
}

func (e *NotFoundError) Unwrap() error { return ErrBuildNotFound }

// TransientNetworkError wraps timeouts, connection failures and retryable
// HTTP statuses. Callers may retry these with backoff.
type TransientNetworkError struct {
	URL string
	Err error
}

func (e *TransientNetworkError) Error() string {
	return fmt.Sprintf("transient network error for %s: %v", e.URL, e.Err)
}

func (e *TransientNetworkError) Unwrap() error { return e.Err }

// RemoteFormatError reports a response whose shape could not be understood:
// undecodable JSON, unparsable HTML or an unexpected HTTP status.
type RemoteFormatError struct {
	URL string
	Err error
}

func (e *RemoteFormatError) Error() string {
	return fmt.Sprintf("unexpected response from %s: %v", e.URL, e.Err)
}

func (e *RemoteFormatError) Unwrap() error { return e.Err }

// LocalIOError reports a failure of the local disk (permissions, space,
// collisions). These are surfaced to the operator.
type LocalIOError struct {
	Path string
	Err  error
}

func (e *LocalIOError) Error() string {
	return fmt.Sprintf("local I/O error on %s: %v", e.Path, e.Err)
}

func (e *LocalIOError) Unwrap() error { return e.Err }

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	var te *TransientNetworkError
	return errors.As(err, &te)
}

// UserError wraps errors with user-friendly messages
type UserError struct {
	Message string
	Hint    string
	Err     error
}

func (e *UserError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n\nHint: " + e.Hint
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n\nDetails: %v", e.Err)
	}
	return msg
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// WrapError converts pipeline errors to user-friendly messages
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	var (
		inputErr     *InputError
		notFoundErr  *NotFoundError
		transientErr *TransientNetworkError
		formatErr    *RemoteFormatError
		ioErr        *LocalIOError
	)

	switch {
	case errors.As(err, &inputErr) && errors.Is(err, ErrUnsafeBuildID):
		return &UserError{
			Message: "Please put in a valid build ID",
			Hint:    "Build IDs name a single directory; they cannot contain '/', '\\' or be '.' or '..'.",
			Err:     err,
		}
	case errors.As(err, &inputErr):
		return &UserError{
			Message: "Have you forgotten to submit a build ID?",
			Hint:    "Pass the build ID shown by the CI orchestrator, e.g. `arcalog build 1712345678901234567`.",
			Err:     err,
		}
	case errors.As(err, &notFoundErr):
		return &UserError{
			Message: "Please put in a valid build ID",
			Hint:    "Run a collection step first (`arcalog collect --collect prow`) so the build appears in a snapshot.",
			Err:     err,
		}
	case errors.As(err, &transientErr):
		return &UserError{
			Message: "The CI orchestrator could not be reached",
			Hint:    "Check network connectivity and retry; timeouts are controlled by http.timeout in the config file.",
			Err:     err,
		}
	case errors.As(err, &formatErr):
		return &UserError{
			Message: "The CI orchestrator returned an unexpected response",
			Hint:    "Check that the configured location serves a prowjobs.js document or HTML directory listings.",
			Err:     err,
		}
	case errors.As(err, &ioErr):
		return &UserError{
			Message: "Local storage failed",
			Hint:    "Check free disk space and permissions of the data directory.",
			Err:     err,
		}
	}

	return err
}
