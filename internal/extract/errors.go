package extract

import (
	"errors"
	"fmt"
)

// Stage identifies which half of the two-stage pipeline failed.
type Stage string

const (
	StageText     Stage = "text"
	StageAnalysis Stage = "analysis"
)

// Cause classifies an extraction failure. Every per-file row in the output
// carries one of these as its failure reason.
type Cause string

const (
	CauseEmptyPage            Cause = "empty_page"
	CauseIoError              Cause = "io_error"
	CauseSchemaMismatch       Cause = "schema_mismatch"
	CauseAPIError             Cause = "api_error"
	CauseCredentialsExhausted Cause = "all_credentials_exhausted"
)

// Error is the gateway's failure type. Fatal errors halt the whole run;
// everything else is recorded as a failed row and the run continues.
type Error struct {
	Stage Stage
	Cause Cause
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("extract: %s stage: %s", e.Stage, e.Cause)
	}
	return fmt.Sprintf("extract: %s stage: %s: %v", e.Stage, e.Cause, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Fatal reports whether this failure ends the run rather than just the file.
func (e *Error) Fatal() bool {
	return e.Cause == CauseCredentialsExhausted
}

// IsFatal reports whether err carries a run-fatal extraction failure.
func IsFatal(err error) bool {
	var ee *Error
	return errors.As(err, &ee) && ee.Fatal()
}

// CauseOf returns the failure cause in err's chain, or "" if err is not an
// extraction error.
func CauseOf(err error) Cause {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Cause
	}
	return ""
}
