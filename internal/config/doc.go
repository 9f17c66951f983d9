// Package config defines installer settings and provides helpers to load,
// validate and save them in YAML format.
//
// The Config type holds the candidate repository list, the release channel,
// the asset name pattern and the install overrides. A missing settings file
// at the default location is not an error: built-in defaults apply.
package config
