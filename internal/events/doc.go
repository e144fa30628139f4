// Package events defines the job update event model and the publisher and
// subscriber interfaces used to fan job state changes out to live clients.
package events
