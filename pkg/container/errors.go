package container

import (
	"fmt"
	"strings"
)

// ContainerError represents an error that occurred in the container
type ContainerError struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface
func (e *ContainerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the cause of the error
func (e *ContainerError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a ContainerError carrying the same code
func (e *ContainerError) Is(target error) bool {
	t, ok := target.(*ContainerError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// ErrorWithCode builds a ContainerError from a code and a formatted message
func ErrorWithCode(code string, format string, args ...interface{}) *ContainerError {
	return &ContainerError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// ComponentNotFoundError returns an error for when a component is not found
func ComponentNotFoundError(name string) *ContainerError {
	return &ContainerError{
		Code:    "COMPONENT_NOT_FOUND",
		Message: fmt.Sprintf("component with name '%s' not found", name),
	}
}

// ComponentAlreadyRegisteredError returns an error for when a component is already registered
func ComponentAlreadyRegisteredError(name string) *ContainerError {
	return &ContainerError{
		Code:    "COMPONENT_ALREADY_REGISTERED",
		Message: fmt.Sprintf("component with name '%s' already registered", name),
	}
}

// CircularDependencyError returns an error for when a circular dependency is detected
func CircularDependencyError(cycle []string) *ContainerError {
	return &ContainerError{
		Code:    "CIRCULAR_DEPENDENCY",
		Message: fmt.Sprintf("circular dependency detected: %s", strings.Join(cycle, " -> ")),
	}
}

// ComponentInitializationError returns an error for when a component fails to initialize
func ComponentInitializationError(name string, err error) *ContainerError {
	return &ContainerError{
		Code:    "COMPONENT_INITIALIZATION_FAILED",
		Message: fmt.Sprintf("component '%s' failed to initialize", name),
		Cause:   err,
	}
}

// ComponentStartError returns an error for when a component panics while starting
func ComponentStartError(name string, cause interface{}) *ContainerError {
	return &ContainerError{
		Code:    "COMPONENT_START_FAILED",
		Message: fmt.Sprintf("component '%s' failed to start: %v", name, cause),
	}
}

// ComponentTypeError returns an error for when a component has an unexpected type
func ComponentTypeError(name string, expected, actual string) *ContainerError {
	return &ContainerError{
		Code:    "COMPONENT_TYPE_ERROR",
		Message: fmt.Sprintf("component '%s' is not of expected type: expected %s, got %s", name, expected, actual),
	}
}

// InjectionError returns an error for when a field of an injected object cannot be filled
func InjectionError(typeName, field string, err error) *ContainerError {
	return &ContainerError{
		Code:    "INJECTION_FAILED",
		Message: fmt.Sprintf("cannot inject field '%s' of %s", field, typeName),
		Cause:   err,
	}
}

// ConfigurationError returns an error for when configuration is invalid
func ConfigurationError(msg string, cause error) *ContainerError {
	return &ContainerError{
		Code:    "CONFIGURATION_ERROR",
		Message: msg,
		Cause:   cause,
	}
}

// ContainerStateError returns an error for operations that are not valid in the current state
func ContainerStateError(op string, state string) *ContainerError {
	return &ContainerError{
		Code:    "INVALID_STATE",
		Message: fmt.Sprintf("cannot %s while container is %s", op, state),
	}
}

// PostConstructError wraps the error returned by the PostConstruct hook of target
func PostConstructError(target interface{}, err error) *ContainerError {
	return &ContainerError{
		Code:    "POST_CONSTRUCT_FAILED",
		Message: fmt.Sprintf("post construct of %T failed", target),
		Cause:   err,
	}
}
