package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PollScheduler satisfies the service layer's scheduling contract for
// deployments where the polling Dispatcher is the only trigger mechanism.
// There is no external queue to enqueue into: the store itself is the
// schedule, so Schedule only mints a handle and Cancel only forgets it.
// The handle is kept on the reminder row (task_id) for parity with
// deployments that back the contract with a real task queue.
type PollScheduler struct {
	mu      sync.Mutex
	handles map[string]string // handle -> reminder ID
}

// NewPollScheduler returns an empty PollScheduler.
func NewPollScheduler() *PollScheduler {
	return &PollScheduler{handles: make(map[string]string)}
}

// Schedule records the registration and returns an opaque handle.
func (p *PollScheduler) Schedule(ctx context.Context, reminderID string, at time.Time) (string, error) {
	handle := uuid.NewString()
	p.mu.Lock()
	p.handles[handle] = reminderID
	p.mu.Unlock()
	return handle, nil
}

// Cancel drops the registration. Unknown handles are not an error; the
// dispatcher's claim query already ignores cancelled reminders.
func (p *PollScheduler) Cancel(ctx context.Context, handle string) error {
	p.mu.Lock()
	delete(p.handles, handle)
	p.mu.Unlock()
	return nil
}
