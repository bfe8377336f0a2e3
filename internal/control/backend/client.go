package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/cuongbtq/mission-control/internal/control/domain"
)

const (
	defaultUploadPath     = "/upload"
	defaultStatusPath     = "/status/{job_id}"
	defaultRequestTimeout = 30 * time.Second

	jobIDPlaceholder = "{job_id}"
	fileField        = "file"
	maxErrorBody     = 512
)

// ErrRejected is the generic description of a refused submission.
var ErrRejected = errors.New("backend rejected source material")

// Config holds the endpoints of the processing backend.
type Config struct {
	BaseURL    string
	UploadPath string
	StatusPath string
	// RequestTimeout bounds each status request. Uploads are bounded only by
	// the caller's context.
	RequestTimeout time.Duration
}

// StatusResponse is the decoded body of the status endpoint.
type StatusResponse struct {
	Status string         `json:"status"`
	Result *domain.Result `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

type submitResponse struct {
	JobID string `json:"job_id"`
}

// Client talks to the accept-job and status endpoints.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a backend client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, errors.New("backend client: base url required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend client: invalid base url %q", cfg.BaseURL)
	}
	if cfg.UploadPath == "" {
		cfg.UploadPath = defaultUploadPath
	}
	if cfg.StatusPath == "" {
		cfg.StatusPath = defaultStatusPath
	}
	if !strings.Contains(cfg.StatusPath, jobIDPlaceholder) {
		return nil, fmt.Errorf("backend client: status path %q must contain %s", cfg.StatusPath, jobIDPlaceholder)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}

	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Submit uploads the artifact as a single multipart payload and returns the
// job ID assigned by the backend.
func (c *Client) Submit(ctx context.Context, artifact domain.Artifact) (string, error) {
	src, err := artifact.Open()
	if err != nil {
		return "", &domain.SubmissionRejectedError{Err: fmt.Errorf("open artifact: %w", err)}
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		defer src.Close()
		pw.CloseWithError(writeMultipart(mw, artifact.Name(), src))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.cfg.UploadPath), pr)
	if err != nil {
		pr.Close()
		return "", &domain.SubmissionRejectedError{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		pr.Close()
		return "", &domain.SubmissionRejectedError{Err: err}
	}
	defer resp.Body.Close()
	// The server may answer before draining the upload.
	pr.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &domain.SubmissionRejectedError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %s", ErrRejected, errorText(resp.Body, resp.Status)),
		}
	}

	var payload submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", &domain.SubmissionRejectedError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("decode response: %w", err),
		}
	}
	jobID := strings.TrimSpace(payload.JobID)
	if jobID == "" {
		return "", &domain.SubmissionRejectedError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: empty job_id", ErrRejected),
		}
	}
	return jobID, nil
}

// Status fetches the current stage of a job.
func (c *Client) Status(ctx context.Context, jobID string) (StatusResponse, error) {
	var empty StatusResponse
	if strings.TrimSpace(jobID) == "" {
		return empty, errors.New("backend status: job id required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	path := strings.ReplaceAll(c.cfg.StatusPath, jobIDPlaceholder, url.PathEscape(jobID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path), nil)
	if err != nil {
		return empty, fmt.Errorf("backend status: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return empty, fmt.Errorf("backend status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return empty, fmt.Errorf("backend status: http %d: %s", resp.StatusCode, errorText(resp.Body, resp.Status))
	}

	var status StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return empty, fmt.Errorf("backend status: decode response: %w", err)
	}
	return status, nil
}

// endpoint joins path onto the base URL without re-escaping it.
func (c *Client) endpoint(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.cfg.BaseURL + path
}

func writeMultipart(mw *multipart.Writer, name string, src io.Reader) error {
	head := make([]byte, 3072)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read artifact: %w", err)
	}
	head = head[:n]

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, fileField, escapeQuotes(name)))
	h.Set("Content-Type", mimetype.Detect(head).String())

	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create part: %w", err)
	}
	if _, err := part.Write(head); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return mw.Close()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

type errorBody struct {
	Detail string `json:"detail"`
	Error  string `json:"error"`
}

// errorText extracts a short description from an error response.
func errorText(r io.Reader, fallback string) string {
	raw, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		if msg := strings.TrimSpace(body.Detail); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(body.Error); msg != "" {
			return msg
		}
	}
	if text := strings.TrimSpace(string(raw)); text != "" {
		return text
	}
	return fallback
}
