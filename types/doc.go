// Package types holds the shared error taxonomy used across the teddyd
// backend. Error codes are stable strings so they can cross the API
// boundary unchanged.
package types
