package queue

import "context"

// Job binds a message type to its worker. One job instance handles every
// message of its type, concurrently across workers, so handlers must be
// safe for concurrent use.
type Job interface {
	// Name identifies the job in logs.
	Name() string

	// Type is the message type this job consumes.
	Type() string

	// Handle processes one delivery. A returned error requeues the
	// message until the retry limit is reached.
	Handle(ctx context.Context, payload interface{}) error
}
