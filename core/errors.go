package core

import "fmt"

// ValidationError reports malformed or missing caller input. It is raised
// before any state mutation, so a rejected request never touches the
// conversation store.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// UpstreamError wraps a failure from an external service (network, timeout,
// quota, malformed response). Service names the upstream for log and error
// payload routing.
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s upstream: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// ConfigurationError reports invalid startup configuration. It is fatal:
// the process must refuse to start rather than fail per-request later.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s: %s", e.Setting, e.Reason)
}
