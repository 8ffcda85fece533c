// Package store provides abstractions for data persistence: the store
// interfaces the pipeline depends on, shared sentinel errors, and the
// transaction helper. Implementations live in internal/platform/postgres.
package store
