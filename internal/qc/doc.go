// Package qc implements the quality-control loop that gates generated
// content: it orchestrates the Generator and QualityChecker across a
// bounded number of attempts, enforces deterministic hard constraints on
// links, and persists at most one passing article version. Failed attempts
// are retried in memory and never stored.
package qc
