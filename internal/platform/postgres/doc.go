// Package postgres provides PostgreSQL implementations of the store
// interfaces and of the durable job queue. Each store accepts a
// store.DBTX, so the same implementation works against a connection
// pool or inside a caller-managed transaction via WithTx.
package postgres
