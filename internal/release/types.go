package release

import "regexp"

// Asset is a single downloadable file attached to a release.
type Asset struct {
	// Name is the filename of the release asset.
	Name string `json:"name"`
	// BrowserDownloadURL is the public URL for downloading the asset.
	BrowserDownloadURL string `json:"browser_download_url"`
}

// Release models the fields of a GitHub release this tool acts on.
type Release struct {
	// TagName is the git tag the release was published from.
	TagName string `json:"tag_name"`
	// Prerelease marks the release as a pre-release.
	Prerelease bool `json:"prerelease"`
	// Draft marks an unpublished release; drafts are never selected.
	Draft bool `json:"draft"`
	// Assets are the downloadable files in API-provided order.
	Assets []Asset `json:"assets"`
}

// Target is the outcome of resolution: the repository that won the
// candidate iteration and the release chosen from it.
type Target struct {
	// Repository is the owner/name identifier of the chosen candidate.
	Repository string
	// Release is the chosen release.
	Release *Release
}

// SelectAsset returns the first asset whose name matches the pattern,
// in API list order. The boolean reports whether a match was found.
func SelectAsset(rel *Release, pattern *regexp.Regexp) (Asset, bool) {
	for _, a := range rel.Assets {
		if pattern.MatchString(a.Name) {
			return a, true
		}
	}

	return Asset{}, false
}
