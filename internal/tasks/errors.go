package tasks

import "fmt"

// ValidationError reports a malformed submission payload.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	return e.Detail
}

// AlreadyExistsError reports a duplicate task id.
type AlreadyExistsError struct {
	ID string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("task with ID %q already exists", e.ID)
}

// MissingDependencyError reports a dependency id with no task row,
// carrying the offending id.
type MissingDependencyError struct {
	ID string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("dependency task %q does not exist", e.ID)
}

// CycleError reports that the proposed edges would close a dependency loop.
type CycleError struct {
	TaskID string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("task dependency cycle detected for task %q", e.TaskID)
}
