// Package job defines the durable job queue used by the content pipeline.
//
// A Job is a unit of asynchronous work bound to an order (its entity). Jobs
// are claimed by workers with a time-bound lock, report coarse progress, and
// are retried with exponential backoff until MaxRetries is exhausted. The
// Queue interface abstracts the backing store; the Runner drives a pool of
// workers that claim and dispatch jobs to registered handlers.
package job
