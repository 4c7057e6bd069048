package estimation

import (
	"errors"
	"fmt"
)

// Status is the outcome of the pre-flight check. The numeric values are
// part of the output format.
type Status int

const (
	StatusOK                          Status = 0
	StatusSizeInvalid                 Status = 100
	StatusInputVectorSizeMismatch     Status = 101
	StatusTransParamVectorSizeInvalid Status = 102
	StatusValueInvalid                Status = 200
	StatusConfigValueInvalid          Status = 201
	StatusTransParamProbInvalid       Status = 202
	StatusHMMSetupError               Status = 300
	StatusConsistencyError            Status = 400
	StatusPhraseDurationMismatch      Status = 401
	StatusNoSolution                  Status = 500
	StatusNoFile                      Status = 600
)

var statusNames = map[Status]string{
	StatusOK:                          "ok",
	StatusSizeInvalid:                 "size invalid",
	StatusInputVectorSizeMismatch:     "input vector size mismatch",
	StatusTransParamVectorSizeInvalid: "transition parameter vector size invalid",
	StatusValueInvalid:                "value invalid",
	StatusConfigValueInvalid:          "config value invalid",
	StatusTransParamProbInvalid:       "transition parameter probability invalid",
	StatusHMMSetupError:               "hmm setup error",
	StatusConsistencyError:            "consistency error",
	StatusPhraseDurationMismatch:      "phrase duration mismatch",
	StatusNoSolution:                  "no solution",
	StatusNoFile:                      "no file",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Error implements error so a Status can be returned and matched with errors.As.
func (s Status) Error() string {
	return fmt.Sprintf("estimation status %d: %s", int(s), s.String())
}

// StatusOf extracts the Status carried by err. It returns StatusOK for nil
// and false when err carries no Status.
func StatusOf(err error) (Status, bool) {
	if err == nil {
		return StatusOK, true
	}
	var s Status
	if errors.As(err, &s) {
		return s, true
	}
	return 0, false
}

var (
	// ErrNoPath is returned when no end state is reachable at the last frame
	// during decoding.
	ErrNoPath = errors.New("estimation: no admissible path")
	// ErrNotPrepared is returned when an operation needs Prepare to have succeeded.
	ErrNotPrepared = errors.New("estimation: estimator not prepared")
)
