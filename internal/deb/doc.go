// Package deb derives install metadata from a downloaded Debian package:
// the package name from the control file and the systemd unit name from the
// *.service files shipped in the archive. Both values can be overridden by
// the caller; dpkg-deb does the actual archive reading.
package deb
