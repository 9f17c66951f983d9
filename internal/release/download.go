package release

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/cpugovernor/debrel/internal/logger"
)

// Download fetches downloadURL into outPath with a fixed retry budget and a
// fixed delay between attempts. The file is written to a temporary name in
// the destination directory and renamed into place only after a complete,
// successful transfer.
func (c *Client) Download(ctx context.Context, downloadURL, outPath string, retries int, delay time.Duration) error {
	if outPath == "" {
		return fmt.Errorf("outPath is empty")
	}

	if retries < 0 {
		retries = 0
	}

	if delay <= 0 {
		delay = time.Second
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), uint64(retries)),
		ctx,
	)

	attempt := 0
	operation := func() error {
		attempt++

		err := c.downloadOnce(ctx, downloadURL, outPath)
		if err != nil {
			logger.WarnKV(ctx, "Download attempt failed",
				"attempt", attempt, "url", downloadURL, "error", err.Error())
		}

		return err
	}

	if err := backoff.Retry(operation, policy); err != nil {
		return fmt.Errorf("download %s after %d attempt(s): %w", downloadURL, attempt, err)
	}

	return nil
}

// downloadOnce performs a single transfer with an atomic rename at the end.
func (c *Client) downloadOnce(ctx context.Context, downloadURL, outPath string) error {
	dir := filepath.Dir(outPath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, ".debrel-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpName := tmp.Name()

	// Best-effort cleanup: if we fail prior to rename, remove the temp file.
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err = c.streamTo(ctx, downloadURL, tmp); err != nil {
		return err
	}

	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err = os.Rename(tmpName, outPath); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

// streamTo copies the content at downloadURL into w.
// The asset URL may redirect to a CDN; the Authorization header is only
// meaningful on the initial request.
func (c *Client) streamTo(ctx context.Context, downloadURL string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, http.NoBody)
	if err != nil {
		return err
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download asset: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return fmt.Errorf("download asset: status=%s body=%s", resp.Status, string(b))
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("stream asset: %w", err)
	}

	return nil
}
