// Package selfupdate replaces the installer's own executable with the
// newest stable release of its repository, enforcing a SHA-512 checksum
// when a sidecar asset is published.
package selfupdate
