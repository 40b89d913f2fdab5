package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the vision boundary. Both are hard failures: there
// is no substitute for visual vehicle identification.
var (
	// ErrVisionUnavailable means the image-understanding service could
	// not be reached or did not answer within its deadline.
	ErrVisionUnavailable = errors.New("vision service unavailable")

	// ErrVisionSchema means the service answered with output that does
	// not match the expected structure. Hard-fail rather than silently
	// defaulting.
	ErrVisionSchema = errors.New("vision response violates expected schema")
)

// HardFailure wraps an error that must fail the whole analysis request.
type HardFailure struct {
	Stage string
	Err   error
}

func (e *HardFailure) Error() string {
	return fmt.Sprintf("hard failure in %s: %v", e.Stage, e.Err)
}

func (e *HardFailure) Unwrap() error { return e.Err }

// Hard wraps err as a request-fatal failure attributed to a stage.
func Hard(stage string, err error) error {
	return &HardFailure{Stage: stage, Err: err}
}

// IsHardFailure reports whether err is (or wraps) a HardFailure.
func IsHardFailure(err error) bool {
	var hf *HardFailure
	return errors.As(err, &hf)
}
