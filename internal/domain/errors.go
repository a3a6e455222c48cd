package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrNotModified     = errors.New("not modified")
	ErrSessionBusy     = errors.New("session has a turn in progress")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrDuplicateName   = errors.New("duplicate name")
)

// ErrorKind classifies errors for callers deciding on status codes and retries.
type ErrorKind string

const (
	KindNotFound        ErrorKind = "not_found"
	KindForbidden       ErrorKind = "forbidden"
	KindConflict        ErrorKind = "conflict"
	KindInvalidArgument ErrorKind = "invalid_argument"
	KindRegistryLookup  ErrorKind = "registry_lookup"
	KindUpstream        ErrorKind = "upstream"
	KindPersistence     ErrorKind = "persistence"
	KindInternal        ErrorKind = "internal"
)

// RegistryLookupError means a judge references a function that is not registered.
type RegistryLookupError struct {
	Kind FunctionKind
	Name string
}

func (e *RegistryLookupError) Error() string {
	return fmt.Sprintf("no %s registered under %q", e.Kind, e.Name)
}

func (e *RegistryLookupError) Unwrap() error { return ErrNotFound }

// UpstreamError wraps a completion provider failure.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// PersistenceError wraps a failed session write.
type PersistenceError struct {
	SessionID string
	Fields    []string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist session %s [%s]: %v", e.SessionID, strings.Join(e.Fields, ","), e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Kind classifies err. Typed errors win over the sentinels they wrap.
func Kind(err error) ErrorKind {
	var (
		lookup  *RegistryLookupError
		up      *UpstreamError
		persist *PersistenceError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &lookup):
		return KindRegistryLookup
	case errors.As(err, &up):
		return KindUpstream
	case errors.As(err, &persist):
		return KindPersistence
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrSessionBusy), errors.Is(err, ErrNotModified), errors.Is(err, ErrDuplicateName):
		return KindConflict
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	}
	return KindInternal
}
