// Package importer forwards CSV files to the external ingestion service.
// Files are streamed as multipart form posts after BOM stripping and UTF-8
// sanitization; concurrent imports are bounded by a Limiter. Batch
// processing happens in the ingestion service, which answers either with a
// plain success or with a job id whose status lives on the batch dashboard.
package importer

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/fastro/internal/logging"
)

var (
	ErrNoFile       = errors.New("no file provided")
	ErrEmptyFile    = errors.New("empty file")
	ErrFileTooLarge = errors.New("file too large")
	ErrRejected     = errors.New("import rejected")
	ErrNoEndpoint   = errors.New("import endpoint not configured")
)

// DefaultDelimiter is the field delimiter sent when none is chosen.
const DefaultDelimiter = ","

// DefaultBatchThreshold is the file size above which batch processing is
// switched on automatically.
const DefaultBatchThreshold = 2 << 20

// Request is one file to import.
type Request struct {
	Table              string
	Filename           string
	File               io.Reader
	Size               int64 // Bytes, or 0 when unknown
	Delimiter          string
	SkipHeader         bool
	UseBatchProcessing bool
}

// Result is the ingestion service's answer.
type Result struct {
	Success   bool   `json:"success"`
	JobID     string `json:"jobId,omitempty"`
	Message   string `json:"message,omitempty"`
	Batch     bool   `json:"batch"`
	StatusURL string `json:"statusUrl,omitempty"`
}

// Config configures a Client.
type Config struct {
	Endpoint       string        // Ingestion URL receiving the multipart post
	DashboardURL   string        // Batch processor dashboard
	MaxBytes       int64         // Largest accepted file; 0 disables the check
	BatchThreshold int64         // Auto batch above this size; 0 uses the default
	Timeout        time.Duration // Whole request timeout
}

// Client posts files to the ingestion service.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *Limiter
}

// NewClient creates a client. A nil limiter allows unbounded concurrency.
func NewClient(cfg Config, limiter *Limiter) *Client {
	if cfg.BatchThreshold <= 0 {
		cfg.BatchThreshold = DefaultBatchThreshold
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
	}
}

// Enabled reports whether an endpoint is configured.
func (c *Client) Enabled() bool {
	return c.cfg.Endpoint != ""
}

// ShouldBatch reports whether a file of size bytes should use batch
// processing.
func (c *Client) ShouldBatch(size int64) bool {
	return size > c.cfg.BatchThreshold
}

// JobURL returns the dashboard link of a batch job.
func (c *Client) JobURL(jobID string) string {
	if c.cfg.DashboardURL == "" || jobID == "" {
		return ""
	}
	return strings.TrimRight(c.cfg.DashboardURL, "/") + "/jobs/" + url.PathEscape(jobID)
}

// Import streams req to the ingestion service.
func (c *Client) Import(ctx context.Context, req Request) (Result, error) {
	if !c.Enabled() {
		return Result{}, ErrNoEndpoint
	}
	if req.File == nil {
		return Result{}, ErrNoFile
	}
	if c.cfg.MaxBytes > 0 && req.Size > c.cfg.MaxBytes {
		return Result{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, req.Size, c.cfg.MaxBytes)
	}
	if req.Delimiter == "" {
		req.Delimiter = DefaultDelimiter
	}
	if req.Size > 0 && c.ShouldBatch(req.Size) {
		req.UseBatchProcessing = true
	}

	body := bufio.NewReader(Sanitize(req.File))
	if _, err := body.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return Result{}, ErrEmptyFile
		}
		return Result{}, fmt.Errorf("read file: %w", err)
	}

	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx); err != nil {
			return Result{}, err
		}
		defer c.limiter.Release()
	}

	logger := logging.WithFields(ctx, "table", req.Table, "file", req.Filename)
	start := time.Now()
	counter := NewCountingReader(body, req.Size)

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(mw, req, counter, c.cfg.MaxBytes))
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, pr)
	if err != nil {
		pr.Close()
		return Result{}, fmt.Errorf("build import request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		pr.Close()
		return Result{}, fmt.Errorf("post import: %w", err)
	}
	defer resp.Body.Close()

	res, err := decodeResult(resp)
	if err != nil {
		logger.Warn("import failed", "status", resp.StatusCode, "error", err)
		return Result{}, err
	}
	res.Batch = req.UseBatchProcessing
	res.StatusURL = c.JobURL(res.JobID)

	logger.Info("import forwarded",
		"bytes", counter.BytesRead(),
		"batch", res.Batch,
		"job_id", res.JobID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func writeForm(mw *multipart.Writer, req Request, file io.Reader, maxBytes int64) error {
	name := req.Filename
	if name == "" {
		name = req.Table + ".csv"
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}

	src := file
	if maxBytes > 0 {
		src = io.LimitReader(file, maxBytes+1)
	}
	n, err := io.Copy(part, src)
	if err != nil {
		return err
	}
	if maxBytes > 0 && n > maxBytes {
		return ErrFileTooLarge
	}

	fields := [][2]string{
		{"useBatchProcessing", strconv.FormatBool(req.UseBatchProcessing)},
		{"skipHeader", strconv.FormatBool(req.SkipHeader)},
		{"delimiter", req.Delimiter},
		{"table", req.Table},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return err
		}
	}
	return mw.Close()
}

type wireResult struct {
	Success *bool  `json:"success"`
	JobID   string `json:"jobId"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func decodeResult(resp *http.Response) (Result, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("read import response: %w", err)
	}

	var w wireResult
	jsonErr := json.Unmarshal(raw, &w)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := w.Error
		if msg == "" {
			msg = w.Message
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return Result{}, fmt.Errorf("%w: %s", ErrRejected, msg)
	}
	if jsonErr != nil {
		return Result{}, fmt.Errorf("%w: malformed response", ErrRejected)
	}
	if w.Success != nil && !*w.Success {
		return Result{}, fmt.Errorf("%w: %s", ErrRejected, w.Error)
	}
	return Result{Success: true, JobID: w.JobID, Message: w.Message}, nil
}
