// Package pipeline composes the Jenkins client and the metadata store
// into the user-facing deploy and run actions.
//
// The Coordinator verifies templates against the catalog, connects to
// the named Jenkins server per operation, creates or replaces jobs from
// Jenkinsfile text, triggers builds, follows their console output and
// records the resulting execution lifecycle in the store. It also runs
// ad-hoc shell commands through a throwaway job built from an embedded
// parameterized pipeline.
package pipeline
