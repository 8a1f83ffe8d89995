package jobapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"apexgrab/internal/domain"
	"apexgrab/internal/infra"
)

// ErrEmptyJobID indicates that /start answered without a usable job id.
var ErrEmptyJobID = errors.New("jobapi: empty job id")

// Options configures the job server client.
type Options struct {
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls against the job server contract.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	logger         *infra.Logger
	requestTimeout time.Duration
}

type startResponse struct {
	JobID string `json:"job_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
// The HTTP client carries no global timeout because downloads may run for a
// long time; JSON calls are bounded by RequestTimeout instead.
func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("jobapi: base url is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("jobapi: invalid base url %q", opts.BaseURL)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Client{
		baseURL:        baseURL,
		httpClient:     httpClient,
		logger:         logger,
		requestTimeout: timeout,
	}, nil
}

// BaseURL returns the normalized server root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Submit posts the request as a multipart form to /start and returns the job handle.
func (c *Client) Submit(ctx context.Context, req domain.JobRequest) (domain.JobHandle, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, field := range req.FormFields() {
		if err := mw.WriteField(field.Name, field.Value); err != nil {
			return "", fmt.Errorf("jobapi: encode field %s: %w", field.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("jobapi: encode form: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/start", &body)
	if err != nil {
		return "", fmt.Errorf("jobapi: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	raw, err := c.do(httpReq)
	if err != nil {
		return "", err
	}
	var decoded startResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("jobapi: decode start response: %w", err)
	}
	jobID := strings.TrimSpace(decoded.JobID)
	if jobID == "" {
		return "", ErrEmptyJobID
	}
	c.logger.Debug().
		Str("job_id", jobID).
		Str("tool", string(req.Tool)).
		Msg("jobapi: job submitted")
	return domain.JobHandle(jobID), nil
}

// Status fetches the current progress of a job.
func (c *Client) Status(ctx context.Context, handle domain.JobHandle) (domain.JobStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.jobURL("status", handle), nil)
	if err != nil {
		return domain.JobStatus{}, fmt.Errorf("jobapi: build request: %w", err)
	}
	raw, err := c.do(httpReq)
	if err != nil {
		return domain.JobStatus{}, err
	}
	var status domain.JobStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return domain.JobStatus{}, fmt.Errorf("jobapi: decode status: %w", err)
	}
	return status, nil
}

// Cancel asks the server to stop a job. The response body is ignored.
func (c *Client) Cancel(ctx context.Context, handle domain.JobHandle) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.jobURL("cancel", handle), nil)
	if err != nil {
		return fmt.Errorf("jobapi: build request: %w", err)
	}
	_, err = c.do(httpReq)
	return err
}

// DownloadURL returns the address the finished artifact is served from.
func (c *Client) DownloadURL(handle domain.JobHandle) string {
	return c.jobURL("download", handle)
}

// Artifact is an open download stream. Callers must close Body.
type Artifact struct {
	Body        io.ReadCloser
	Filename    string
	ContentType string
	Size        int64
}

// Open starts streaming the artifact of a ready job.
func (c *Client) Open(ctx context.Context, handle domain.JobHandle) (*Artifact, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.DownloadURL(handle), nil)
	if err != nil {
		return nil, fmt.Errorf("jobapi: build download request: %w", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("jobapi: download: %w", err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, statusError(resp.StatusCode, raw)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &Artifact{
		Body:        resp.Body,
		Filename:    attachmentName(resp.Header.Get("Content-Disposition"), handle, contentType),
		ContentType: contentType,
		Size:        resp.ContentLength,
	}, nil
}

func (c *Client) jobURL(action string, handle domain.JobHandle) string {
	return c.baseURL + "/" + action + "/" + url.PathEscape(string(handle))
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jobapi: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("jobapi: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode, raw)
	}
	return raw, nil
}

func statusError(code int, raw []byte) error {
	var detail errorResponse
	if err := json.Unmarshal(raw, &detail); err == nil && detail.Error != "" {
		return fmt.Errorf("jobapi: status %d: %s", code, detail.Error)
	}
	return fmt.Errorf("jobapi: status %d: %s", code, strings.TrimSpace(string(raw)))
}

// attachmentName picks a local filename for a download. The server's
// Content-Disposition wins; otherwise the job id plus an extension guessed
// from the content type.
func attachmentName(disposition string, handle domain.JobHandle, contentType string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := path.Base(strings.ReplaceAll(params["filename"], "\\", "/")); name != "" && name != "." && name != "/" {
				return name
			}
		}
	}
	name := string(handle)
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
			name += exts[0]
		}
	}
	return name
}
