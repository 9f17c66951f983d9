// Package apt invokes the system package manager to install a downloaded
// Debian package, with a single dependency-repair-and-retry pass on failure.
package apt
