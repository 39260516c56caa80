package webbeans

import "fmt"

const (
	CodeMarkerLookup         = "MARKER_LOOKUP_FAILED"
	CodeListenerRegistration = "LISTENER_REGISTRATION_FAILED"
	CodeValveInsertion       = "VALVE_INSERTION_FAILED"
	CodePipelineRegistration = "PIPELINE_REGISTRATION_FAILED"
	CodeInstanceManagerWrap  = "INSTANCE_MANAGER_WRAP_FAILED"
	CodeBootstrap            = "BOOTSTRAP_FAILED"
)

// LifecycleError is the single failure returned for a lifecycle event that
// could not be handled. The context may be left partially mutated.
type LifecycleError struct {
	Code      string
	EventType string
	Context   string
	Cause     error
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("[%s] handling %s for context '%s': %v", e.Code, e.EventType, e.Context, e.Cause)
}

func (e *LifecycleError) Unwrap() error {
	return e.Cause
}

// Is matches another LifecycleError with the same code
func (e *LifecycleError) Is(target error) bool {
	t, ok := target.(*LifecycleError)
	return ok && t.Code == e.Code
}

func lifecycleError(code, eventType, context string, cause error) *LifecycleError {
	return &LifecycleError{
		Code:      code,
		EventType: eventType,
		Context:   context,
		Cause:     cause,
	}
}
