package poller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/insights/internal/analytics/types"
	"github.com/angelmondragon/insights/pkg/enums"
	pkgerrors "github.com/angelmondragon/insights/pkg/errors"
)

// DefaultInterval is the pause between two status checks.
const DefaultInterval = 2 * time.Second

// ErrMaxWait is returned when a configured overall deadline passes first.
var ErrMaxWait = errors.New("polling exceeded max wait")

// StatusChecker is the status half of the backend protocol.
type StatusChecker interface {
	PollStatus(ctx context.Context, token string) (types.TaskStatus, error)
}

// Poller drives status checks for one token until a terminal state.
type Poller struct {
	checker  StatusChecker
	interval time.Duration
	maxWait  time.Duration
	observe  func(enums.TaskState)
}

// Option configures a Poller.
type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithMaxWait bounds the whole wait. Zero keeps polling until cancellation.
func WithMaxWait(d time.Duration) Option {
	return func(p *Poller) {
		if d >= 0 {
			p.maxWait = d
		}
	}
}

// WithObserver is called with the state of every completed check.
func WithObserver(fn func(enums.TaskState)) Option {
	return func(p *Poller) {
		p.observe = fn
	}
}

func New(checker StatusChecker, opts ...Option) *Poller {
	p := &Poller{checker: checker, interval: DefaultInterval}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Wait checks the token every interval and returns the first terminal status.
// The next check is scheduled only once the previous one has returned, so two
// checks for the same token never overlap. A failed check ends the wait without
// retrying. Once ctx is done no status is returned, only ctx.Err().
func (p *Poller) Wait(ctx context.Context, token string) (types.TaskStatus, error) {
	if strings.TrimSpace(token) == "" {
		return types.TaskStatus{}, types.ProtocolError("poll token is empty")
	}

	var deadline <-chan time.Time
	if p.maxWait > 0 {
		dl := time.NewTimer(p.maxWait)
		defer dl.Stop()
		deadline = dl.C
	}

	tick := time.NewTimer(p.interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return types.TaskStatus{}, ctx.Err()
		case <-deadline:
			return types.TaskStatus{}, pkgerrors.Wrap(pkgerrors.CodeDependency, ErrMaxWait, fmt.Sprintf("no terminal state after %s", p.maxWait))
		case <-tick.C:
		}

		status, err := p.checker.PollStatus(ctx, token)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.TaskStatus{}, ctxErr
		}
		if err != nil {
			return types.TaskStatus{}, err
		}
		if p.observe != nil {
			p.observe(status.State)
		}

		switch status.State {
		case enums.TaskStateSuccess, enums.TaskStateFailed:
			return status, nil
		case enums.TaskStateProcessing:
			tick.Reset(p.interval)
		default:
			return types.TaskStatus{}, types.ProtocolError(fmt.Sprintf("unexpected poll status %q", status.State))
		}
	}
}
