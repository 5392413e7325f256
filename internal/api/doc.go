// Package api exposes the HTTP surface of the task service: request
// decoding and validation, routing, authentication middleware, and the
// translation of service errors into safe JSON responses.
package api
