// Package media downloads remote assets into a local blob directory. The
// pipeline in internal/service decides what to attach; this package only
// moves bytes.
package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"mls_syncer/internal/domain"
)

type Store struct {
	dir         string
	httpClient  *http.Client
	maxAttempts int
	logger      *slog.Logger
}

func NewStore(dir string, timeout time.Duration, maxAttempts int, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Store{
		dir:         dir,
		httpClient:  &http.Client{Timeout: timeout},
		maxAttempts: maxAttempts,
		logger:      logger,
	}, nil
}

// Fetch downloads url into a temporary file and returns its path. The
// caller owns the temp file and must Remove it on every path.
func (s *Store) Fetch(ctx context.Context, url string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		path, err := s.fetchOnce(ctx, url)
		if err == nil {
			return path, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		if attempt < s.maxAttempts {
			s.logger.Warn("media download failed, retrying",
				"url", url,
				"attempt", attempt,
				"error", err,
			)
		}
	}
	return "", &domain.MediaError{URL: url, Err: lastErr}
}

func (s *Store) fetchOnce(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(s.dir, "download-*")
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}

	return tmp.Name(), nil
}

// Persist moves a temp download into its durable location under the blob
// dir and returns the storage path.
func (s *Store) Persist(tmpPath, name string) (string, error) {
	dest := filepath.Join(s.dir, name)
	if err := os.Rename(tmpPath, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// Remove deletes a temp artifact. Missing files are fine: Persist renames
// the temp file away on success.
func (s *Store) Remove(tmpPath string) {
	if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove temp file", "path", tmpPath, "error", err)
	}
}
