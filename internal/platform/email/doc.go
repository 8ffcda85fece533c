// Package email delivers customer notifications over Postmark's
// transactional API. Each pipeline event maps to a subject and body
// template rendered from the job payload.
//
// When Postmark is not configured the pipeline still runs: NewNotifier
// returns a logging notifier so sends show up in the logs instead of a
// mailbox.
package email
