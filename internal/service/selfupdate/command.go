package selfupdate

import (
	"bytes"
	"context"
	"crypto"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/cpugovernor/debrel/internal/logger"
	"github.com/cpugovernor/debrel/internal/release"
	"github.com/cpugovernor/debrel/internal/version"

	// Ensure SHA512 is available for checksum verification.
	_ "crypto/sha512"
)

const (
	// defaultRepository hosts the installer's own releases.
	defaultRepository = "cpugovernor/debrel"

	// checksumSuffix names the optional checksum sidecar asset.
	checksumSuffix = ".sha512"

	// checksumFunction is used to verify the downloaded binary.
	checksumFunction crypto.Hash = crypto.SHA512

	// binaryMode is applied to the replaced executable.
	binaryMode os.FileMode = 0o755
)

var errMalformedChecksum = errors.New("malformed checksum sidecar")

// Options are inputs accepted by the self-update entry point.
type Options struct {
	// Repository overrides the repository the installer updates itself from.
	Repository string
	// Token is the release API bearer token.
	Token string
	// APIBaseURL points at a different API endpoint (GitHub Enterprise).
	APIBaseURL string
}

// Run replaces the running executable with the newest stable release of the
// installer itself. The binary asset is named debrel_<os>_<arch>; when a
// .sha512 sidecar is published alongside it, the checksum is enforced.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "self-update")

	repository := opts.Repository
	if repository == "" {
		repository = defaultRepository
	}

	clientOptions := []release.Option{release.WithToken(opts.Token)}
	if opts.APIBaseURL != "" {
		clientOptions = append(clientOptions, release.WithBaseURL(opts.APIBaseURL))
	}

	client := release.NewClient(clientOptions...)

	target, err := release.Resolve(ctx, client, []string{repository}, release.ChannelStable, "")
	if err != nil {
		return fmt.Errorf("resolve own release: %w", err)
	}

	if isCurrentVersion(target.Release.TagName) {
		logger.InfoKV(ctx, "Already running the newest release", "tag", target.Release.TagName)
		return nil
	}

	assetName := fmt.Sprintf("debrel_%s_%s", runtime.GOOS, runtime.GOARCH)

	asset, ok := release.SelectAsset(target.Release, exactNamePattern(assetName))
	if !ok {
		return fmt.Errorf("release %s carries no %s asset", target.Release.TagName, assetName)
	}

	temporaryDirectory, err := os.MkdirTemp("", "debrel-self-update-")
	if err != nil {
		return fmt.Errorf("create temporary directory: %w", err)
	}

	defer func() {
		_ = os.RemoveAll(temporaryDirectory)
	}()

	binaryPath := filepath.Join(temporaryDirectory, assetName)
	if err = client.Download(ctx, asset.BrowserDownloadURL, binaryPath, 0, 0); err != nil {
		return err
	}

	checksum, err := fetchChecksum(ctx, client, target.Release, assetName, temporaryDirectory)
	if err != nil {
		return err
	}

	return apply(ctx, binaryPath, checksum, target.Release.TagName)
}

// isCurrentVersion compares the release tag against the embedded build version.
func isCurrentVersion(tag string) bool {
	return strings.TrimPrefix(tag, "v") == version.Short()
}

// exactNamePattern matches exactly one asset name.
func exactNamePattern(name string) *regexp.Regexp {
	return regexp.MustCompile("^" + regexp.QuoteMeta(name) + "$")
}

// fetchChecksum downloads and decodes the .sha512 sidecar when published.
// A release without a sidecar yields a nil checksum, disabling verification.
func fetchChecksum(ctx context.Context, client *release.Client, rel *release.Release, assetName, dir string) ([]byte, error) {
	sidecar, ok := release.SelectAsset(rel, exactNamePattern(assetName+checksumSuffix))
	if !ok {
		logger.Warn(ctx, "No checksum sidecar published, skipping verification")
		return nil, nil
	}

	sidecarPath := filepath.Join(dir, sidecar.Name)
	if err := client.Download(ctx, sidecar.BrowserDownloadURL, sidecarPath, 0, 0); err != nil {
		return nil, err
	}

	contents, err := os.ReadFile(sidecarPath) //nolint:gosec // Path is under our own temp dir.
	if err != nil {
		return nil, err
	}

	return ParseChecksum(contents)
}

// ParseChecksum extracts the hex digest from a `sha512sum` style sidecar line.
func ParseChecksum(contents []byte) ([]byte, error) {
	fields := strings.Fields(string(contents))
	if len(fields) == 0 {
		return nil, errMalformedChecksum
	}

	digest, err := hex.DecodeString(fields[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedChecksum, err)
	}

	if len(digest) != checksumFunction.Size() {
		return nil, fmt.Errorf("%w: digest is %d bytes, want %d",
			errMalformedChecksum, len(digest), checksumFunction.Size())
	}

	return digest, nil
}

// apply replaces the running executable with the downloaded binary.
func apply(ctx context.Context, binaryPath string, checksum []byte, tag string) error {
	data, err := os.ReadFile(binaryPath) //nolint:gosec // Path is under our own temp dir.
	if err != nil {
		return err
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate own executable: %w", err)
	}

	options := goupdate.Options{
		TargetPath: executable,
		TargetMode: binaryMode,
	}
	if checksum != nil {
		options.Checksum = checksum
		options.Hash = checksumFunction
	}

	if err = goupdate.Apply(bytes.NewReader(data), options); err != nil {
		return fmt.Errorf("apply self-update: %w", err)
	}

	oldPath := executable + ".old"
	if _, err = os.Stat(oldPath); err == nil {
		_ = os.Remove(oldPath)
	}

	logger.InfoKV(ctx, "Self-update applied", "tag", tag, "executable", executable)

	return nil
}
