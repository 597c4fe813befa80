// Package fakebackend is an in-process stand-in for the analysis
// service, implementing the consumed HTTP and WebSocket contract for
// integration tests. It is never linked into a shipped binary.
package fakebackend

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// StatusFrame is one scripted reply of the status endpoint.
type StatusFrame struct {
	Status   string
	Progress float64
	Message  string
}

// ProgressFrame is one scripted push-channel frame.
type ProgressFrame struct {
	Type     string  `json:"type"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message"`
}

// FileRecord mirrors the backend's per-file result shape on the wire.
type FileRecord = map[string]any

// Server is the scriptable fake backend.
type Server struct {
	// URL is the HTTP base URL; WSURL the WebSocket base URL.
	URL   string
	WSURL string

	ts       *httptest.Server
	upgrader websocket.Upgrader

	mu             sync.Mutex
	statusFrames   map[string][]StatusFrame
	statusIndex    map[string]int
	results        map[string][]FileRecord
	progressFrames map[string][]ProgressFrame
	holdProgress   bool
	forcedErrors   map[string]forced
	chatReply      string
	uploadDir      string

	// UploadedNames records the file names received by the upload
	// endpoint, in order.
	UploadedNames []string

	// AnalyzeCalls records the job ids submitted for analysis.
	AnalyzeCalls []string

	// ChatMessages records the texts received by the chat endpoint.
	ChatMessages []string
}

type forced struct {
	status int
	detail string
}

// New starts a fake backend. Callers own Close.
func New() *Server {
	gin.SetMode(gin.TestMode)

	s := &Server{
		statusFrames:   map[string][]StatusFrame{},
		statusIndex:    map[string]int{},
		results:        map[string][]FileRecord{},
		progressFrames: map[string][]ProgressFrame{},
		forcedErrors:   map[string]forced{},
		chatReply:      "Looks fine to me.",
		uploadDir:      "/srv/uploads/batch-1",
	}

	router := gin.New()
	router.Use(requestIDMiddleware())

	router.POST("/api/upload", s.handleUpload)
	router.POST("/api/analyze/:jobID", s.handleAnalyze)
	router.GET("/api/status/:jobID", s.handleStatus)
	router.GET("/api/results/:jobID", s.handleResults)
	router.POST("/api/chat/start", s.handleChatStart)
	router.POST("/api/chat/message", s.handleChatMessage)
	router.GET("/api/progress/:jobID", s.handleProgress)

	s.ts = httptest.NewServer(router)
	s.URL = s.ts.URL
	s.WSURL = "ws" + strings.TrimPrefix(s.ts.URL, "http")
	return s
}

// Close shuts the server down.
func (s *Server) Close() {
	s.ts.Close()
}

// ScriptStatus sets the status endpoint's reply sequence for a job;
// the final frame repeats once the sequence is exhausted.
func (s *Server) ScriptStatus(jobID string, frames ...StatusFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusFrames[jobID] = frames
	s.statusIndex[jobID] = 0
}

// ScriptResults sets the results payload for a job.
func (s *Server) ScriptResults(jobID string, records []FileRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[jobID] = records
}

// ScriptProgress sets the frames pushed over the progress channel.
// When hold is true the connection stays open after the last frame.
func (s *Server) ScriptProgress(jobID string, hold bool, frames ...ProgressFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progressFrames[jobID] = frames
	s.holdProgress = hold
}

// ScriptChatReply sets the assistant reply text.
func (s *Server) ScriptChatReply(reply string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatReply = reply
}

// FailWith forces an endpoint ("upload", "analyze", "status",
// "results", "chat_start", "chat_message") to reply with the given
// HTTP status and detail string.
func (s *Server) FailWith(op string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forcedErrors[op] = forced{status: status, detail: detail}
}

func (s *Server) forcedError(c *gin.Context, op string) bool {
	s.mu.Lock()
	f, ok := s.forcedErrors[op]
	s.mu.Unlock()
	if !ok {
		return false
	}
	c.JSON(f.status, gin.H{"detail": f.detail})
	return true
}

func (s *Server) handleUpload(c *gin.Context) {
	if s.forcedError(c, "upload") {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid multipart form"})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "no files provided"})
		return
	}

	s.mu.Lock()
	uploadDir := s.uploadDir
	out := make([]gin.H, 0, len(files))
	for _, f := range files {
		s.UploadedNames = append(s.UploadedNames, f.Filename)
		out = append(out, gin.H{
			"name": f.Filename,
			"path": uploadDir + "/" + f.Filename,
			"size": f.Size,
			"type": f.Header.Get("Content-Type"),
		})
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"files":       out,
		"upload_dir":  uploadDir,
		"total_files": len(out),
	})
}

func (s *Server) handleAnalyze(c *gin.Context) {
	if s.forcedError(c, "analyze") {
		return
	}

	jobID := c.Param("jobID")

	var body struct {
		FilePaths []string `json:"file_paths"`
		Detailed  bool     `json:"detailed"`
		RAG       bool     `json:"rag"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}

	s.mu.Lock()
	s.AnalyzeCalls = append(s.AnalyzeCalls, jobID)
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"job_id":        jobID,
		"results_count": len(body.FilePaths),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	if s.forcedError(c, "status") {
		return
	}

	jobID := c.Param("jobID")

	s.mu.Lock()
	frames := s.statusFrames[jobID]
	if len(frames) == 0 {
		s.mu.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"detail": "job not found: " + jobID})
		return
	}
	idx := s.statusIndex[jobID]
	frame := frames[idx]
	if idx < len(frames)-1 {
		s.statusIndex[jobID] = idx + 1
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"job_id":     jobID,
		"status":     frame.Status,
		"progress":   frame.Progress,
		"message":    frame.Message,
		"start_time": float64(time.Now().Add(-time.Minute).Unix()),
	})
}

func (s *Server) handleResults(c *gin.Context) {
	if s.forcedError(c, "results") {
		return
	}

	jobID := c.Param("jobID")

	s.mu.Lock()
	records, ok := s.results[jobID]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "results not found: " + jobID})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id":          jobID,
		"results":         records,
		"total_time":      4.2,
		"completion_time": float64(time.Now().Unix()),
	})
}

func (s *Server) handleChatStart(c *gin.Context) {
	if s.forcedError(c, "chat_start") {
		return
	}

	var body struct {
		UploadDir string `json:"upload_dir"`
	}
	_ = c.ShouldBindJSON(&body)

	info := "no codebase loaded"
	if body.UploadDir != "" {
		info = "codebase at " + body.UploadDir
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":    "sess-1",
		"codebase_info": info,
	})
}

func (s *Server) handleChatMessage(c *gin.Context) {
	if s.forcedError(c, "chat_message") {
		return
	}

	var body struct {
		SessionID string `json:"session_id"`
		Message   string `json:"message"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}

	s.mu.Lock()
	s.ChatMessages = append(s.ChatMessages, body.Message)
	reply := s.chatReply
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"response": gin.H{
			"content":               reply,
			"confidence":            0.92,
			"source":                "rag",
			"processing_time":       0.31,
			"follow_up_suggestions": []string{"Ask about test coverage"},
			"related_files":         []string{"src/main.py"},
		},
	})
}

func (s *Server) handleProgress(c *gin.Context) {
	jobID := c.Param("jobID")

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.mu.Lock()
	frames := s.progressFrames[jobID]
	hold := s.holdProgress
	s.mu.Unlock()

	for _, frame := range frames {
		if err := conn.WriteJSON(frame); err != nil {
			return
		}
	}

	if hold {
		// Keep the channel open until the client goes away; reads only
		// ever return once the peer closes.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}

// requestIDMiddleware ensures each request has a unique ID, mirroring
// what the real backend stamps on replies.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = time.Now().Format("20060102150405.000000")
		}
		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}
