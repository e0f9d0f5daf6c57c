package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/KaramelBytes/eqviz-cli/internal/logging"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is where the analysis service listens unless configured otherwise.
	DefaultBaseURL = "http://127.0.0.1:8000"
	// DefaultUploadPath is the analysis endpoint.
	DefaultUploadPath = "/api/upload/"
	// FileField is the multipart part name the service reads the CSV from.
	FileField = "file"
)

// Response is a successful reply from the analysis endpoint.
type Response struct {
	StatusCode int
	Body       string
	RequestID  string
}

// Transport performs the upload request. Client is the HTTP implementation.
type Transport interface {
	Upload(ctx context.Context, file SelectedFile, requestID string) (*Response, error)
}

// Client posts CSV files to the analysis service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	uploadPath string
	logger     *zap.Logger
}

// NewClient returns a client for baseURL. A zero timeout means the request
// may wait indefinitely. No retries are performed.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		uploadPath: DefaultUploadPath,
		logger:     logging.OrNop(logger),
	}
}

// WithUploadPath overrides the endpoint path.
func (c *Client) WithUploadPath(p string) *Client {
	if p != "" {
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		c.uploadPath = p
	}
	return c
}

// Endpoint returns the full upload URL.
func (c *Client) Endpoint() string { return c.baseURL + c.uploadPath }

// Upload sends one multipart POST. Non-2xx statuses yield *RequestError and
// transport failures yield *ConnectionError; on success the body is returned
// as text without interpretation.
func (c *Client) Upload(ctx context.Context, file SelectedFile, requestID string) (*Response, error) {
	body, contentType, err := multipartBody(file)
	if err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}
	endpoint := c.Endpoint()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if requestID != "" {
		req.Header.Set("X-Request-Id", requestID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("upload transport failure",
			zap.String("endpoint", endpoint),
			zap.String("request_id", requestID),
			zap.Error(err))
		return nil, &ConnectionError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// drain so the connection can be reused; content is not used
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 8<<10))
		rerr := &RequestError{StatusCode: resp.StatusCode, RequestID: requestID}
		c.logger.Debug("upload rejected", zap.String("detail", rerr.Detail()))
		return nil, rerr
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ConnectionError{Endpoint: endpoint, Err: fmt.Errorf("read response: %w", err)}
	}
	c.logger.Debug("upload response received",
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(b)),
		zap.Duration("elapsed", time.Since(start)))
	return &Response{StatusCode: resp.StatusCode, Body: string(b), RequestID: requestID}, nil
}

func multipartBody(file SelectedFile) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(FileField, file.Name)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(file.Content); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
