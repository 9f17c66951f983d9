// Package release talks to the GitHub releases API.
//
// It provides a typed client for the release-listing and tag endpoints,
// channel-aware release resolution across an ordered list of candidate
// repositories, asset selection by regular expression, and a retried,
// atomic asset download.
//
// Selection is deterministic: the API's returned order (assumed
// reverse-chronological) breaks all ties, and the first candidate
// repository yielding a usable release wins.
package release
