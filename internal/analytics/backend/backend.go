package backend

import (
	"context"

	"github.com/angelmondragon/insights/internal/analytics/types"
)

// Backend is the asynchronous computation service behind the resolver.
//
// Submit answers SUCCESS with inline data when the result is already computed,
// or PROCESSING with a poll token. PollStatus answers SUCCESS with data,
// PROCESSING, or FAILED with an optional message. Implementations report
// transport problems as errors and pass reply shapes through unvalidated.
type Backend interface {
	Submit(ctx context.Context, desc types.RequestDescriptor) (types.TaskStatus, error)
	PollStatus(ctx context.Context, token string) (types.TaskStatus, error)
}
