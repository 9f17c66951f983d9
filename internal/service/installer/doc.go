// Package installer orchestrates the install pipeline: resolve a release
// across candidate repositories, select and download a .deb asset, derive
// the package and unit names, install through apt, and activate the systemd
// unit. A marker file guards against concurrent runs, with stale-marker
// recovery via process inspection.
package installer
