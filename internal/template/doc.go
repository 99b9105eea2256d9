// Package template keeps the on-disk Jenkinsfiles and the metadata
// catalog consistent.
//
// The filesystem is authoritative for template existence: a template is
// a file <templates_dir>/<name>.Jenkinsfile, and the store holds its
// description, version counter and timestamps. The Manager offers the
// read/write/edit operations (with unified diff previews), the
// scaffolder generates a starting Jenkinsfile from a description, and
// the Watcher feeds filesystem changes back into catalog
// reconciliation so the store converges without waiting for the next
// listing.
package template
