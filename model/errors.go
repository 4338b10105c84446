package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
)

// InvalidStateError indicates the configuration snapshot cannot produce a
// usable state. The message is operator facing and names every offending
// configuration option, so a single pass over the configuration fixes them all.
type InvalidStateError struct {
	// Fields lists the configuration options that failed validation.
	Fields []string
	// Reason carries a message for failures not tied to a single option.
	Reason string
}

func (e *InvalidStateError) Error() string {
	if len(e.Fields) == 0 {
		return e.Reason
	}
	msg := fmt.Sprintf("invalid configuration: %s", strings.Join(e.Fields, ", "))
	if e.Reason != "" {
		msg = e.Reason + "; " + msg
	}
	return msg
}

// ModeError indicates the backend origin could not be determined.
type ModeError struct {
	Reason string
}

func (e *ModeError) Error() string { return e.Reason }

// invalidState flattens an aggregated validation failure into a single
// InvalidStateError. Validator errors contribute the configuration option
// names they are tagged with; anything else contributes its message.
func invalidState(err error) *InvalidStateError {
	var (
		fields  []string
		reasons []string
	)
	seen := map[string]bool{}
	addField := func(name string) {
		if !seen[name] {
			seen[name] = true
			fields = append(fields, name)
		}
	}
	for _, e := range flatten(err) {
		var verrs validator.ValidationErrors
		if errors.As(e, &verrs) {
			for _, fe := range verrs {
				addField(fe.Field())
			}
			continue
		}
		var stateErr *InvalidStateError
		if errors.As(e, &stateErr) {
			for _, name := range stateErr.Fields {
				addField(name)
			}
			if stateErr.Reason != "" {
				reasons = append(reasons, stateErr.Reason)
			}
			continue
		}
		reasons = append(reasons, e.Error())
	}
	sort.Strings(fields)
	return &InvalidStateError{Fields: fields, Reason: strings.Join(reasons, "; ")}
}

// prefixFields qualifies the option names of a validation failure with a key
// prefix. Sections shared between the HTTP and TCP routes carry unprefixed
// field tags; their errors must still name the option the operator set.
func prefixFields(err error, prefix string) error {
	if err == nil || prefix == "" {
		return err
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, prefix+fe.Field())
	}
	return &InvalidStateError{Fields: fields}
}

func flatten(err error) []error {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		var out []error
		for _, e := range merr.Errors {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return []error{err}
}
