// Package processor contains the job handlers that drive the content
// pipeline: article generation, backlink integration, and scheduled
// publishing. Each handler consumes one queue, owns the order state
// transitions for its step, and reports coarse progress through the job.
//
// Handlers catch every failure at their boundary: they persist a terminal
// FAILED order status, send a best-effort failure notification, then return
// the error so the queue records the attempt. Redelivered jobs are safe to
// re-run; each handler checks persisted state before acting.
package processor
