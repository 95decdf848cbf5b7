package pipeline

import (
	"fmt"
	"strings"
)

// DuplicateStageError is returned when a stage name is registered twice.
type DuplicateStageError struct {
	Name string
}

func (e *DuplicateStageError) Error() string {
	return fmt.Sprintf("stage %q already registered", e.Name)
}

// SealedRegistryError is returned when registering after the execution
// order has been finalized.
type SealedRegistryError struct {
	Name string
}

func (e *SealedRegistryError) Error() string {
	return fmt.Sprintf("registry is sealed: cannot register stage %q", e.Name)
}

// CyclicOrderingError is returned by Finalize when the declared ordering
// constraints contain a cycle. Stages lists the names that could not be
// placed in any valid order.
type CyclicOrderingError struct {
	Stages []string
}

func (e *CyclicOrderingError) Error() string {
	return fmt.Sprintf("cyclic stage ordering constraints: %s", strings.Join(e.Stages, ", "))
}

// StageExecutionError wraps a fault raised by a stage handler. The pipeline
// aborts and surfaces it to the caller; it is never swallowed or retried.
type StageExecutionError struct {
	Stage string
	Err   error
}

func (e *StageExecutionError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageExecutionError) Unwrap() error {
	return e.Err
}
