// Package service exposes the pipeline's application surface: fire-and-
// forget enqueue operations for purchases and regenerations, the
// synchronous quality-control path for admin edits, job-state reads, and
// the admin review operations.
//
// Services return sentinel errors for expected conditions so callers can
// branch with errors.Is; unexpected failures are wrapped in
// PipelineServiceError with the failing operation attached.
package service
