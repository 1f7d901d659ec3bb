package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"github.com/GriffinCanCode/markread/internal/app"
	"github.com/GriffinCanCode/markread/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/markread/internal/ipc"
	"github.com/GriffinCanCode/markread/internal/loader"
	"github.com/GriffinCanCode/markread/internal/webview"
	"github.com/GriffinCanCode/markread/internal/ws"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	window  Window
	hub     *ws.Handler
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(window Window, hub *ws.Handler, metrics *monitoring.Metrics, logger *zap.Logger) *Handlers {
	return &Handlers{
		window:  window,
		hub:     hub,
		metrics: metrics,
		logger:  logger.Named("handlers"),
	}
}

// OpenRequest selects a document by local path or remote URL.
type OpenRequest struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// Root renders the displayed document as a page.
func (h *Handlers) Root(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := renderPage(c.Writer, h.window.Title(), h.window.State()); err != nil {
		h.logger.Error("failed to render page", zap.Error(err))
	}
}

// Document returns the displayed document as JSON.
func (h *Handlers) Document(c *gin.Context) {
	state := h.window.State()
	if state.Empty() {
		c.JSON(http.StatusNotFound, gin.H{"error": "no document"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"window_title": h.window.Title(),
		"document":     state,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	state := h.window.State()
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"window": gin.H{
			"title":    h.window.Title(),
			"version":  state.Version,
			"document": !state.Empty(),
		},
		"clients": h.hub.Clients(),
		"metrics": h.metrics.Snapshot(),
	})
}

// Console returns the surface's captured console output.
func (h *Handlers) Console(c *gin.Context) {
	entries := h.window.Console()
	if entries == nil {
		entries = []webview.LogEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// Files lists the documents under the dir query parameter.
func (h *Handlers) Files(c *gin.Context) {
	dir := c.Query("dir")
	if dir == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dir is required"})
		return
	}

	files, err := h.window.List(c.Request.Context(), dir)
	if err != nil {
		h.fail(c, err)
		return
	}
	if files == nil {
		files = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"dir": dir, "files": files})
}

// Open loads a document from a path or URL and shows it.
func (h *Handlers) Open(c *gin.Context) {
	var req OpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid open request format"})
		return
	}
	if (req.Path == "") == (req.URL == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one of path or url is required"})
		return
	}

	ctx := c.Request.Context()
	var err error
	if req.Path != "" {
		err = h.window.OpenFile(ctx, req.Path)
	} else {
		err = h.window.OpenURL(ctx, req.URL)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondState(c)
}

// Drop accepts a multipart file and drops it onto the surface.
func (h *Handlers) Drop(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, loader.MaxFileSize+1<<20)

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if header.Size > loader.MaxFileSize {
		h.fail(c, loader.ErrTooLarge)
		return
	}

	f, err := header.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		h.fail(c, err)
		return
	}
	text, err := loader.DecodeText(data)
	if err != nil {
		h.fail(c, err)
		return
	}

	filename := filepath.Base(header.Filename)
	if err := h.window.Drop(c.Request.Context(), filename, text); err != nil {
		h.fail(c, err)
		return
	}
	h.respondState(c)
}

// Reload recreates the surface and shows the current document again.
func (h *Handlers) Reload(c *gin.Context) {
	if err := h.window.Reload(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	h.respondState(c)
}

func (h *Handlers) respondState(c *gin.Context) {
	state := h.window.State()
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"title":    state.Title,
		"filename": state.Filename,
		"version":  state.Version,
		"words":    state.Words,
	})
}

func (h *Handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, loader.ErrTooLarge), errors.As(err, &maxBytes),
		errors.Is(err, ipc.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, loader.ErrNotText):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, loader.ErrUnsupportedURL):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrNotLoaded):
		return http.StatusUnprocessableEntity
	case errors.Is(err, app.ErrClosed), errors.Is(err, ipc.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, webview.ErrScriptTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ipc.ErrTransport), errors.Is(err, ipc.ErrNoSuchChannel):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
