package job

import "errors"

var (
	// ErrEmptyQueue indicates a job was constructed without a queue name.
	ErrEmptyQueue = errors.New("job queue name cannot be empty")

	// ErrEmptyEntityID indicates a job was constructed without an entity.
	ErrEmptyEntityID = errors.New("job entity ID cannot be empty")

	// ErrEmptyPayload indicates DecodePayload was called on a job without one.
	ErrEmptyPayload = errors.New("job has no payload")

	// ErrNoJobToClaim is returned by Claim when no job is ready. Workers
	// treat it as a normal empty poll, not a failure.
	ErrNoJobToClaim = errors.New("no job available to claim")

	// ErrNotProcessing indicates a state update was attempted on a job that
	// is not currently claimed.
	ErrNotProcessing = errors.New("job is not in processing state")

	// ErrNilQueue indicates a Runner was constructed without a queue.
	ErrNilQueue = errors.New("queue cannot be nil")

	// ErrNoHandlers indicates Start was called before any handler was
	// registered.
	ErrNoHandlers = errors.New("no handlers registered")

	// ErrDuplicateHandler indicates two handlers were registered for the
	// same queue.
	ErrDuplicateHandler = errors.New("handler already registered for queue")

	// ErrRunnerStarted indicates Start was called twice.
	ErrRunnerStarted = errors.New("runner already started")

	// ErrRunnerNotStarted indicates Stop was called before Start.
	ErrRunnerNotStarted = errors.New("runner not started")
)
