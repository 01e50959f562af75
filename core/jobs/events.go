package jobs

import (
	"context"
	"time"

	"aistudio/model"
)

// Event reports a job status change.
type Event struct {
	Kind      model.JobKind   `json:"kind"`
	JobID     int64           `json:"jobId"`
	ProjectID int64           `json:"projectId"`
	Status    model.JobStatus `json:"status"`
	Error     string          `json:"error,omitempty"`
	Time      time.Time       `json:"time"`
}

// Notifier receives job events. Implementations must not block for long;
// they run on the goroutine that processes the job.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, event Event)

func (f NotifierFunc) Notify(ctx context.Context, event Event) { f(ctx, event) }

// Notifiers fans an event out to every non-nil notifier in order.
type Notifiers []Notifier

func (n Notifiers) Notify(ctx context.Context, event Event) {
	for _, notifier := range n {
		if notifier != nil {
			notifier.Notify(ctx, event)
		}
	}
}
