package types

import (
	"encoding/json"

	"github.com/angelmondragon/insights/pkg/enums"
)

// TaskStatus is a backend reply to either a submission or a status check.
// Token is only set on PROCESSING submissions.
type TaskStatus struct {
	State enums.TaskState
	Data  json.RawMessage
	Token string
	Error string
}
