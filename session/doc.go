// Package session tracks the concurrently active audio interactions
// between children and their toys. The manager enforces a concurrency
// ceiling by evicting the oldest session rather than rejecting new ones,
// sweeps idle sessions on a background loop, and hands ended sessions to
// a pluggable persister for history.
package session
