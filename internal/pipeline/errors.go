package pipeline

import (
	"errors"
	"fmt"

	"github.com/kluster66/invoice-extractor/constants"
	"github.com/kluster66/invoice-extractor/internal/llm/bedrock"
)

// StageError is the terminal failure of one document: the stage that failed and why.
type StageError struct {
	Stage constants.Stage
	// Kind is the provider sub-kind for model invocation failures, empty otherwise.
	Kind  bedrock.ErrorKind
	Cause error
}

func (e *StageError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s (%s): %v", e.Stage, e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Cause)
}

func (e *StageError) Unwrap() error { return e.Cause }

func stageErr(stage constants.Stage, err error) *StageError {
	return &StageError{Stage: stage, Kind: bedrock.KindOf(err), Cause: err}
}

// StageOf returns the failing stage carried by err, or "" if none.
func StageOf(err error) constants.Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
