package executor

import (
	"errors"
	"fmt"

	"github.com/apiflow/apiflow/pkg/dotpath"
	"github.com/apiflow/apiflow/pkg/tplengine"
)

// ErrorKind is the machine-readable classification attached to FAILED
// step results. The kinds are mutually exclusive.
type ErrorKind string

const (
	KindStateResolution ErrorKind = "state_resolution"
	KindTemplate        ErrorKind = "template"
	KindDispatch        ErrorKind = "dispatch"
	KindExtraction      ErrorKind = "extraction"
	KindValidation      ErrorKind = "validation"
	KindCancelled       ErrorKind = "cancelled"
)

// StepError is the single error type the step executor converts into a
// FAILED StepResult. HTTPStatus is zero when no response was received.
type StepError struct {
	Kind       ErrorKind
	ToolID     string
	URL        string
	HTTPStatus int
	Reason     string
	Err        error
}

func (e *StepError) Error() string {
	msg := e.Reason
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.HTTPStatus != 0 && e.URL != "":
		return fmt.Sprintf("tool %s: HTTP %d from %s: %s", e.ToolID, e.HTTPStatus, e.URL, msg)
	case e.URL != "":
		return fmt.Sprintf("tool %s: %s (%s)", e.ToolID, msg, e.URL)
	case e.ToolID != "":
		return fmt.Sprintf("tool %s: %s", e.ToolID, msg)
	default:
		return msg
	}
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// ResolutionError reports a reference expression that could not be
// resolved against user inputs or recorded step outputs.
type ResolutionError struct {
	Ref    string
	Reason string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve %q: %s", e.Ref, e.Reason)
}

// classify maps an arbitrary step-level error onto its taxonomy kind.
func classify(err error) ErrorKind {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Kind
	}
	var resErr *ResolutionError
	if errors.As(err, &resErr) {
		return KindStateResolution
	}
	var tplErr *tplengine.MissingKeyError
	if errors.As(err, &tplErr) {
		return KindTemplate
	}
	var pathErr *dotpath.Error
	if errors.As(err, &pathErr) {
		return KindStateResolution
	}
	return KindDispatch
}
