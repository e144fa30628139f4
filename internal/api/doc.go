// Package api contains the HTTP handlers, request/response models, and
// error mapping for the public REST surface. Handlers stay thin: they
// decode and validate requests, call the service layer, and translate
// errors to status codes through MapErrorToStatusCode.
package api
