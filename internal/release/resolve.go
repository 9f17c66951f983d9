package release

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cpugovernor/debrel/internal/logger"
)

// Channel is the release maturity selector.
type Channel string

const (
	// ChannelStable prefers published non-prerelease entries.
	ChannelStable Channel = "stable"
	// ChannelPre prefers pre-release entries.
	ChannelPre Channel = "pre"
)

// errNoUsableRelease is returned for a candidate whose release list
// contains nothing but drafts (or nothing at all).
var errNoUsableRelease = errors.New("no usable release")

// Resolve iterates the candidate repositories in order and returns the first
// one yielding a release. An explicit tag bypasses channel logic entirely:
// only the exact tagged release is accepted, and a candidate without it fails.
func Resolve(ctx context.Context, client *Client, candidates []string, channel Channel, tag string) (*Target, error) {
	var attempts []string

	for _, candidate := range candidates {
		owner, repo, err := splitRepository(candidate)
		if err != nil {
			return nil, err
		}

		rel, err := resolveCandidate(ctx, client, owner, repo, channel, tag)
		if err != nil {
			logger.InfoKV(ctx, "Candidate yielded no release",
				"repository", candidate, "reason", err.Error())

			attempts = append(attempts, fmt.Sprintf("%s: %v", candidate, err))

			continue
		}

		logger.InfoKV(ctx, "Resolved release",
			"repository", candidate, "tag", rel.TagName, "prerelease", rel.Prerelease)

		return &Target{Repository: candidate, Release: rel}, nil
	}

	return nil, fmt.Errorf("no candidate repository yielded a release (channel=%s, tag=%q): %s",
		channel, tag, strings.Join(attempts, "; "))
}

// resolveCandidate selects a release from a single repository.
func resolveCandidate(ctx context.Context, client *Client, owner, repo string, channel Channel, tag string) (*Release, error) {
	if tag != "" {
		rel, err := client.ReleaseByTag(ctx, owner, repo, tag)
		if err != nil {
			return nil, err
		}

		if rel.Draft {
			return nil, errNoUsableRelease
		}

		return rel, nil
	}

	releases, err := client.ListReleases(ctx, owner, repo)
	if err != nil {
		return nil, err
	}

	return pickByChannel(releases, channel)
}

// pickByChannel applies the channel preference with mutual fallback.
// "Newest" means first in the API's returned order.
func pickByChannel(releases []Release, channel Channel) (*Release, error) {
	var newestStable, newestPre *Release

	for i := range releases {
		rel := &releases[i]
		if rel.Draft {
			continue
		}

		if rel.Prerelease {
			if newestPre == nil {
				newestPre = rel
			}
		} else if newestStable == nil {
			newestStable = rel
		}

		if newestStable != nil && newestPre != nil {
			break
		}
	}

	preferred, fallback := newestStable, newestPre
	if channel == ChannelPre {
		preferred, fallback = newestPre, newestStable
	}

	if preferred != nil {
		return preferred, nil
	}

	if fallback != nil {
		return fallback, nil
	}

	return nil, errNoUsableRelease
}

// splitRepository parses an owner/name identifier.
func splitRepository(repository string) (owner, repo string, err error) {
	parts := strings.Split(repository, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repository %q must have the owner/name form", repository)
	}

	return parts[0], parts[1], nil
}
