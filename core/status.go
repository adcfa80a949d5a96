package core

import "errors"

// ErrNotOK is the generic failure status. Every configuration error wraps it,
// so callers that only care about OK / NOT_OK can use errors.Is(err, ErrNotOK).
var ErrNotOK = errors.New("not ok")

var (
	ErrNilConfig       = errors.New("nil configuration")
	ErrNilHandler      = errors.New("nil interrupt handler")
	ErrFeatureDisabled = errors.New("interrupt feature disabled")
	ErrZeroDelay       = errors.New("delay shorter than one timer tick")
	ErrWrongMode       = errors.New("operation not valid in configured mode")
	ErrNotConfigured   = errors.New("channel not configured")
	ErrOwnedSource     = errors.New("source is armed by its own driver")
	ErrTierConflict    = errors.New("priority differs from the shared peripheral tier")
)

// ConfigError reports the step that rejected a configuration.
type ConfigError struct {
	Op    string // operation, e.g. "timer1.init"
	Field string // offending field, e.g. "prescaler"
	Value int    // offending raw value
	Err   error  // specific cause, wraps into ErrNotOK
}

func (e *ConfigError) Error() string {
	msg := e.Op + ": "
	if e.Field != "" {
		msg += e.Field + "=" + itoa(e.Value) + ": "
	}
	if e.Err != nil {
		return msg + e.Err.Error()
	}
	return msg + "out of range"
}

func (e *ConfigError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrNotOK}
	}
	return []error{e.Err, ErrNotOK}
}

func rangeError(op, field string, value int) error {
	return &ConfigError{Op: op, Field: field, Value: value}
}

func causeError(op string, err error) error {
	return &ConfigError{Op: op, Err: err}
}

// firstError returns the first non-nil error. Initialization sequences run
// every validation step and keep the earliest failure.
func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
