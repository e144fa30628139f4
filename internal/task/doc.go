// Package task contains the asynchronous job processing core: the Runner
// polls for eligible pending jobs and dispatches them to workers, and the
// Engine executes a single attempt with retry classification and
// exactly-once artifact persistence.
package task
