package enums

import "fmt"

// TaskState is the lifecycle state the backend reports for a computation.
type TaskState string

const (
	TaskStateSuccess    TaskState = "SUCCESS"
	TaskStateProcessing TaskState = "PROCESSING"
	TaskStateFailed     TaskState = "FAILED"
)

var validTaskStates = []TaskState{
	TaskStateSuccess,
	TaskStateProcessing,
	TaskStateFailed,
}

// String implements fmt.Stringer.
func (s TaskState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TaskState.
func (s TaskState) IsValid() bool {
	for _, candidate := range validTaskStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further status checks are needed.
func (s TaskState) IsTerminal() bool {
	return s == TaskStateSuccess || s == TaskStateFailed
}

// ParseTaskState converts raw input into a TaskState.
func ParseTaskState(value string) (TaskState, error) {
	for _, candidate := range validTaskStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid task state %q", value)
}
