// Package redisq holds the Redis-backed coordination pieces: the job
// intake list that wakes the worker ahead of its poll tick, and the
// pub/sub bus that carries job update events to gateway processes.
package redisq
