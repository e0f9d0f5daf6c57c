package report

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/KaramelBytes/eqviz-cli/internal/logging"
	"github.com/KaramelBytes/eqviz-cli/internal/upload"
	"github.com/KaramelBytes/eqviz-cli/internal/utils"
	"go.uber.org/zap"
)

// DefaultFileName is used when no output path is configured.
const DefaultFileName = "equipment_report.pdf"

// AuthError indicates the report endpoint refused the credentials (401/403).
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: status=%d", e.StatusCode)
}

// Downloader fetches the report and saves it to disk.
type Downloader struct {
	httpClient *http.Client
	url        string
	username   string
	password   string
	logger     *zap.Logger
}

// NewDownloader returns a downloader for url. Empty username disables basic auth.
func NewDownloader(url string, timeout time.Duration, username, password string, logger *zap.Logger) *Downloader {
	return &Downloader{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		username:   username,
		password:   password,
		logger:     logging.OrNop(logger),
	}
}

// Download GETs the report and writes it atomically to dest, returning the
// number of bytes written.
func (d *Downloader) Download(ctx context.Context, dest string) (int, error) {
	if dest == "" {
		dest = DefaultFileName
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if d.username != "" {
		req.SetBasicAuth(d.username, d.password)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, &upload.ConnectionError{Endpoint: d.url, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return 0, &AuthError{StatusCode: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 8<<10))
		return 0, &upload.RequestError{StatusCode: resp.StatusCode}
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, &upload.ConnectionError{Endpoint: d.url, Err: fmt.Errorf("read report: %w", err)}
	}
	if err := utils.SafeWriteFile(dest, b); err != nil {
		return 0, err
	}
	d.logger.Info("report saved",
		zap.String("path", dest),
		zap.Int("bytes", len(b)),
		zap.String("content_type", resp.Header.Get("Content-Type")))
	return len(b), nil
}
