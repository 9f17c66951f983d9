// Package systemd enables and restarts the service unit shipped by the
// installed package, verifying it ends up active and surfacing recent
// journal entries when it does not.
package systemd
