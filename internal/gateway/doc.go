// Package gateway implements the live update surface: a WebSocket hub
// that receives job update events from the event bus and pushes them to
// the connections owned by each job's user.
package gateway
