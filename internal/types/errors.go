package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAccessDenied is returned when a settings token is unknown, stale or
// forged. It is fatal for the request and no partial data is returned.
var ErrAccessDenied = errors.New("access denied")

// ConfigError is a developer-facing failure caused by malformed settings or
// missing declarations. It is never silently defaulted.
type ConfigError struct {
	Component string
	Message   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error (%s): %s", e.Component, e.Message)
}

// ValidationError is a single user-correctable problem with one submitted
// token or referenced record.
type ValidationError struct {
	Field   string `json:"field,omitempty"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

// ValidationErrors accumulates every error for a submission so one bad field
// does not hide the others.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return strings.Join(msgs, "; ")
}

// Messages returns the plain message of each error in order.
func (e ValidationErrors) Messages() []string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Message
	}
	return msgs
}

// WithField returns a copy of e with Field set on every entry that lacks one.
func (e ValidationErrors) WithField(field string) ValidationErrors {
	out := make(ValidationErrors, len(e))
	for i, v := range e {
		if v.Field == "" {
			v.Field = field
		}
		out[i] = v
	}
	return out
}
