package web

import "fmt"

// HostError represents an error raised by the web host or one of its contexts
type HostError struct {
	Code    string
	Message string
	Cause   error
}

func (e *HostError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *HostError) Unwrap() error {
	return e.Cause
}

// Is matches another HostError with the same code
func (e *HostError) Is(target error) bool {
	t, ok := target.(*HostError)
	return ok && t.Code == e.Code
}

// MalformedPathError is returned for resource paths that do not start with "/"
func MalformedPathError(path string) *HostError {
	return &HostError{
		Code:    "MALFORMED_PATH",
		Message: fmt.Sprintf("resource path '%s' must start with '/'", path),
	}
}

// ResourceError wraps a failure of the underlying filesystem
func ResourceError(path string, err error) *HostError {
	return &HostError{
		Code:    "RESOURCE_ERROR",
		Message: fmt.Sprintf("cannot resolve resource '%s'", path),
		Cause:   err,
	}
}

// DuplicateListenerError is returned when an application listener is registered twice
func DuplicateListenerError(name string) *HostError {
	return &HostError{
		Code:    "DUPLICATE_LISTENER",
		Message: fmt.Sprintf("application listener '%s' already registered", name),
	}
}

// IllegalStateError is returned for mutations that the current state forbids
func IllegalStateError(op string, state State) *HostError {
	return &HostError{
		Code:    "ILLEGAL_STATE",
		Message: fmt.Sprintf("cannot %s in state %s", op, state),
	}
}

// TypeNotFoundError is returned when the loader has no factory for a name
func TypeNotFoundError(name string) *HostError {
	return &HostError{
		Code:    "TYPE_NOT_FOUND",
		Message: fmt.Sprintf("no type registered as '%s'", name),
	}
}

// InvalidArgumentError is returned for nil or empty arguments
func InvalidArgumentError(msg string) *HostError {
	return &HostError{
		Code:    "INVALID_ARGUMENT",
		Message: msg,
	}
}

// ListenerTypeError is returned when a listener instance has the wrong type
func ListenerTypeError(name string, instance interface{}) *HostError {
	return &HostError{
		Code:    "LISTENER_TYPE_ERROR",
		Message: fmt.Sprintf("listener '%s' of type %T does not implement ApplicationListener", name, instance),
	}
}

// HandlerTypeError is returned when a handler instance is not an http.Handler
func HandlerTypeError(name string, instance interface{}) *HostError {
	return &HostError{
		Code:    "HANDLER_TYPE_ERROR",
		Message: fmt.Sprintf("handler '%s' of type %T does not implement http.Handler", name, instance),
	}
}

// StartupError wraps the failure that aborted an application's startup
func StartupError(name string, err error) *HostError {
	return &HostError{
		Code:    "STARTUP_FAILED",
		Message: fmt.Sprintf("context '%s' failed to start", name),
		Cause:   err,
	}
}

// ConfigError wraps invalid host configuration
func ConfigError(msg string, err error) *HostError {
	return &HostError{
		Code:    "CONFIGURATION_ERROR",
		Message: msg,
		Cause:   err,
	}
}
