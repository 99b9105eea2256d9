// Package jenkins is an HTTP client for a Jenkins master.
//
// Connections are stateless per operation: Connect resolves a server
// URL, verifies the credentials with an identity check and returns a
// Client whose methods map one-to-one onto the Jenkins HTTP API (job
// lookup, job creation from a pipeline config document, build trigger
// with queue resolution, console streaming by byte offset).
//
// StartJob and StreamConsole never return Go errors for conditions the
// caller must surface to a user: a missing job, a build stuck in the
// queue or an exhausted streaming budget all come back as structured
// results with a status field.
package jenkins
