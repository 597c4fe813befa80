// Package api wraps all network calls to the analysis backend.
// It exposes typed operations and holds no job state; orchestration
// lives in the monitor and the views.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codescope/internal/config"
	"github.com/codescope/internal/domain"
	"github.com/codescope/internal/report"
	"go.uber.org/zap"
)

// Client is the sole point of contact with the analysis backend.
type Client struct {
	config       *config.BackendConfig
	httpClient   *http.Client
	uploadClient *http.Client
	logger       *zap.Logger
}

// New creates a new backend client.
func New(cfg *config.BackendConfig, logger *zap.Logger) *Client {
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		uploadClient: &http.Client{
			Timeout: cfg.UploadTimeout,
		},
		logger: logger.Named("api_client"),
	}
}

// Wire shapes of the backend contract.

type uploadedFileRecord struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

type uploadResponse struct {
	Files      []uploadedFileRecord `json:"files"`
	UploadDir  string               `json:"upload_dir"`
	TotalFiles int                  `json:"total_files"`
}

type analyzeRequest struct {
	FilePaths []string `json:"file_paths"`
	Detailed  bool     `json:"detailed"`
	RAG       bool     `json:"rag"`
}

// analyzeResponse covers both reply shapes the backend is known to
// emit depending on its version.
type analyzeResponse struct {
	Success      bool   `json:"success"`
	JobID        string `json:"job_id"`
	ResultsCount int    `json:"results_count"`
	Status       string `json:"status"`
	Message      string `json:"message"`
}

type statusResponse struct {
	JobID          string  `json:"job_id"`
	Status         string  `json:"status"`
	Progress       float64 `json:"progress"`
	Message        string  `json:"message"`
	StartTime      float64 `json:"start_time"`
	CompletionTime float64 `json:"completion_time,omitempty"`
}

type resultsResponse struct {
	JobID          string              `json:"job_id"`
	Results        []report.FileRecord `json:"results"`
	TotalTime      float64             `json:"total_time"`
	CompletionTime float64             `json:"completion_time"`
}

type chatStartRequest struct {
	UploadDir string `json:"upload_dir,omitempty"`
}

type chatStartResponse struct {
	SessionID    string          `json:"session_id"`
	CodebaseInfo json.RawMessage `json:"codebase_info"`
}

type chatMessageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatMessageResponse struct {
	Response struct {
		Content             string   `json:"content"`
		Confidence          float64  `json:"confidence"`
		Source              string   `json:"source"`
		ProcessingTime      float64  `json:"processing_time"`
		FollowUpSuggestions []string `json:"follow_up_suggestions"`
		RelatedFiles        []string `json:"related_files"`
	} `json:"response"`
}

// errorResponse is the backend's uniform error body.
type errorResponse struct {
	Detail string `json:"detail"`
}

// StartResponse is the acknowledgement of a job submission.
type StartResponse struct {
	JobID   string
	Status  domain.JobStatus
	Message string
}

// UploadFiles uploads local files as one multipart batch. The optional
// onProgress callback receives the overall percent sent so far.
func (c *Client) UploadFiles(ctx context.Context, paths []string, onProgress func(percent int)) (*domain.UploadResponse, error) {
	if len(paths) == 0 {
		return nil, domain.WrapError("upload", domain.ErrUpload, false)
	}

	body, contentType, err := buildMultipartBody(paths)
	if err != nil {
		return nil, domain.WrapError("upload_build", err, false)
	}

	reader := &progressReader{
		r:     bytes.NewReader(body),
		total: int64(len(body)),
		fn:    onProgress,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/upload", reader)
	if err != nil {
		return nil, domain.WrapError("upload_request", err, false)
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(body))

	c.logger.Debug("uploading files",
		zap.Int("file_count", len(paths)),
		zap.Int("body_size", len(body)),
	)

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		return nil, domain.WrapError("upload", domain.ErrUpload, false)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.WrapError("upload_read", domain.ErrUpload, false)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, domain.WrapDetail("upload", domain.ErrUpload, extractDetail(respBody), false)
	}

	var decoded uploadResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, domain.WrapError("upload_decode", domain.ErrUpload, false)
	}

	out := &domain.UploadResponse{UploadDir: decoded.UploadDir}
	for _, f := range decoded.Files {
		out.Files = append(out.Files, domain.UploadedItem{
			ID:         f.Path,
			Name:       f.Name,
			Size:       f.Size,
			MIMEType:   f.Type,
			State:      domain.UploadCompleted,
			Progress:   100,
			ServerPath: f.Path,
		})
	}

	c.logger.Info("upload completed",
		zap.Int("file_count", len(out.Files)),
		zap.String("upload_dir", out.UploadDir),
	)

	return out, nil
}

// StartAnalysis submits a job with a pre-generated identifier and the
// server-side file paths to analyze, requesting detailed and
// retrieval-augmented analysis.
func (c *Client) StartAnalysis(ctx context.Context, filePaths []string, jobID string) (*StartResponse, error) {
	reqBody := analyzeRequest{FilePaths: filePaths, Detailed: true, RAG: true}

	var decoded analyzeResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/analyze/"+jobID, reqBody, &decoded, "start_analysis", domain.ErrAnalysisStart)
	if err != nil {
		return nil, err
	}

	out := &StartResponse{
		JobID:   decoded.JobID,
		Status:  domain.ParseJobStatus(decoded.Status),
		Message: decoded.Message,
	}
	if out.JobID == "" {
		out.JobID = jobID
	}

	c.logger.Info("analysis started",
		zap.String("job_id", out.JobID),
		zap.Int("file_count", len(filePaths)),
	)

	return out, nil
}

// GetAnalysisStatus reads a point-in-time job snapshot.
func (c *Client) GetAnalysisStatus(ctx context.Context, jobID string) (*domain.AnalysisJob, error) {
	var decoded statusResponse
	err := c.doJSON(ctx, http.MethodGet, "/api/status/"+jobID, nil, &decoded, "get_status", domain.ErrStatusFetch)
	if err != nil {
		return nil, err
	}

	job := &domain.AnalysisJob{
		JobID:     decoded.JobID,
		Status:    domain.ParseJobStatus(decoded.Status),
		Progress:  int(decoded.Progress),
		Message:   decoded.Message,
		StartTime: unixToTime(decoded.StartTime),
	}
	if job.JobID == "" {
		job.JobID = jobID
	}
	if decoded.CompletionTime > 0 {
		completed := unixToTime(decoded.CompletionTime)
		job.CompletionTime = &completed
	}

	return job, nil
}

// GetAnalysisResults fetches the raw backend result shape and applies
// the result transform, yielding the immutable display aggregate.
func (c *Client) GetAnalysisResults(ctx context.Context, jobID string) (*domain.AnalysisResult, error) {
	var decoded resultsResponse
	err := c.doJSON(ctx, http.MethodGet, "/api/results/"+jobID, nil, &decoded, "get_results", domain.ErrResultsFetch)
	if err != nil {
		return nil, err
	}

	completedAt := unixToTime(decoded.CompletionTime)
	if decoded.CompletionTime == 0 {
		completedAt = time.Now()
	}
	totalTime := time.Duration(decoded.TotalTime * float64(time.Second))

	return report.Build(jobID, decoded.Results, totalTime, completedAt), nil
}

// StartChatSession opens a conversational context, optionally scoped
// to an uploaded or cloned codebase.
func (c *Client) StartChatSession(ctx context.Context, uploadDir string) (*domain.ChatSession, error) {
	reqBody := chatStartRequest{UploadDir: uploadDir}

	var decoded chatStartResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/chat/start", reqBody, &decoded, "chat_start", domain.ErrChatSession)
	if err != nil {
		return nil, err
	}

	return &domain.ChatSession{
		SessionID:    decoded.SessionID,
		CodebaseInfo: rawToString(decoded.CodebaseInfo),
	}, nil
}

// SendChatMessage performs one synchronous chat exchange. The full
// assistant reply arrives as one payload; there is no token streaming.
func (c *Client) SendChatMessage(ctx context.Context, sessionID, text string) (*domain.ChatResponse, error) {
	reqBody := chatMessageRequest{SessionID: sessionID, Message: text}

	var decoded chatMessageResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/chat/message", reqBody, &decoded, "chat_message", domain.ErrChatMessage)
	if err != nil {
		return nil, err
	}

	return &domain.ChatResponse{
		Content:        decoded.Response.Content,
		Confidence:     decoded.Response.Confidence,
		Source:         decoded.Response.Source,
		ProcessingTime: decoded.Response.ProcessingTime,
		FollowUps:      decoded.Response.FollowUpSuggestions,
		RelatedFiles:   decoded.Response.RelatedFiles,
	}, nil
}

// doJSON executes one JSON request with retry on transient failures,
// mapping non-success statuses to the operation's sentinel error with
// the backend's detail string attached.
func (c *Client) doJSON(ctx context.Context, method, path string, reqBody, out any, op string, sentinel error) error {
	var encoded []byte
	if reqBody != nil {
		var err error
		encoded, err = json.Marshal(reqBody)
		if err != nil {
			return domain.WrapError(op+"_marshal", err, false)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			backoff := time.Duration(attempt*attempt) * time.Second
			c.logger.Debug("retrying request",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return domain.WrapError(op, ctx.Err(), false)
			case <-time.After(backoff):
			}
		}

		lastErr = c.executeJSON(ctx, method, path, encoded, out, op, sentinel)
		if lastErr == nil {
			return nil
		}
		if !domain.IsRetryable(lastErr) {
			return lastErr
		}
	}

	return lastErr
}

// executeJSON performs a single request/decode round trip.
func (c *Client) executeJSON(ctx context.Context, method, path string, encoded []byte, out any, op string, sentinel error) error {
	var bodyReader io.Reader
	if encoded != nil {
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, bodyReader)
	if err != nil {
		return domain.WrapError(op+"_request", err, false)
	}
	if encoded != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return domain.WrapError(op, ctx.Err(), false)
		}
		return domain.WrapError(op, sentinel, true)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.WrapError(op+"_read", sentinel, true)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := extractDetail(respBody)
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		c.logger.Warn("backend error",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.String("detail", detail),
		)
		return domain.WrapDetail(op, sentinel, detail, retryable)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return domain.WrapError(op+"_decode", sentinel, false)
		}
	}

	return nil
}

// extractDetail pulls the backend's {detail} string out of an error
// body, falling back to a trimmed copy of the raw body.
func extractDetail(body []byte) string {
	var decoded errorResponse
	if err := json.Unmarshal(body, &decoded); err == nil && decoded.Detail != "" {
		return decoded.Detail
	}
	return truncate(strings.TrimSpace(string(body)), 200)
}

// buildMultipartBody assembles the upload body with one "files" part
// per local file.
func buildMultipartBody(paths []string) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, "", fmt.Errorf("open %s: %w", path, err)
		}

		part, err := writer.CreateFormFile("files", filepath.Base(path))
		if err != nil {
			f.Close()
			return nil, "", err
		}
		if _, err := io.Copy(part, f); err != nil {
			f.Close()
			return nil, "", fmt.Errorf("read %s: %w", path, err)
		}
		f.Close()
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), writer.FormDataContentType(), nil
}

// progressReader reports overall percent sent through the callback.
type progressReader struct {
	r     io.Reader
	total int64
	sent  int64
	fn    func(percent int)
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	p.sent += int64(n)
	if p.fn != nil && p.total > 0 {
		p.fn(int(p.sent * 100 / p.total))
	}
	return n, err
}

func unixToTime(secs float64) time.Time {
	if secs == 0 {
		return time.Time{}
	}
	return time.Unix(int64(secs), int64((secs-float64(int64(secs)))*1e9))
}

// rawToString renders codebase_info for display: plain strings are
// unquoted, anything else is kept as compact JSON.
func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
