// Package scheduler owns deferred publication: it validates and records a
// publish schedule, enqueues the delayed job that will execute it, and
// handles cooperative cancellation. It also runs the background sweeps
// that keep the pipeline healthy (stuck-job requeue, expired-hold release).
//
// Cancellation never touches the queue entry. The job fires regardless and
// the publish processor re-checks persisted state at execution time; the
// cancelled status and a superseded job token both make it a no-op.
package scheduler
