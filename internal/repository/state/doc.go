// Package state persists the last successful install as JSON on disk.
//
// The installer consults the record to skip a run when the resolved tag is
// already installed from the same repository, and rewrites it after every
// successful activation.
package state
