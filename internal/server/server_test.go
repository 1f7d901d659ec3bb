package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/GriffinCanCode/markread/internal/app"
	"github.com/GriffinCanCode/markread/internal/infrastructure/config"
	"github.com/GriffinCanCode/markread/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/markread/internal/ipc"
	"github.com/GriffinCanCode/markread/internal/loader"
	"github.com/GriffinCanCode/markread/internal/webview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	server  *Server
	manager *app.Manager
	metrics *monitoring.Metrics
	handler http.Handler
}

func newFixture(t *testing.T, mutate ...func(*config.Config)) fixture {
	t.Helper()
	cfg := config.Default()
	cfg.Logging.Development = true
	for _, m := range mutate {
		m(cfg)
	}

	metrics := monitoring.NewMetrics()
	manager, err := app.NewManager(context.Background(), app.Options{
		WebView:  webview.DefaultConfig(),
		Loader:   loader.DefaultConfig(),
		Recorder: metrics,
	})
	require.NoError(t, err)

	srv := NewServer(cfg, manager, metrics, nil)
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		_ = manager.Close()
	})
	return fixture{server: srv, manager: manager, metrics: metrics, handler: srv.Handler()}
}

func (f fixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func (f fixture) postJSON(path string, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return f.do(req)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func multipartDrop(t *testing.T, name string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/drop", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestRootEmpty(t *testing.T) {
	f := newFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "<title>MarkRead</title>")
	assert.Contains(t, w.Body.String(), "Open a Markdown file")

	w = f.do(httptest.NewRequest(http.MethodGet, "/document", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOpenPath(t *testing.T) {
	f := newFixture(t)
	path := writeDoc(t, "notes.md", "# Notes\n\n## Part one\n\nSome *text*.\n")

	w := f.postJSON("/open", OpenRequest{Path: path})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "notes.md", body["title"])
	assert.Equal(t, "notes.md", body["filename"])

	w = f.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	page := w.Body.String()
	assert.Contains(t, page, "<title>notes.md - MarkRead</title>")
	assert.Contains(t, page, "<em>text</em>")
	assert.Contains(t, page, `href="#part-one"`)

	w = f.do(httptest.NewRequest(http.MethodGet, "/document", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "notes.md - MarkRead", decode(t, w)["window_title"])
}

func TestOpenURL(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# Remote doc\n"))
	}))
	defer remote.Close()
	f := newFixture(t)

	w := f.postJSON("/open", OpenRequest{URL: remote.URL + "/docs/remote.md"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "remote.md", decode(t, w)["filename"])
	assert.Equal(t, "remote.md - MarkRead", f.manager.Title())
}

func TestOpenErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body any
		want int
	}{
		{name: "neither", body: OpenRequest{}, want: http.StatusBadRequest},
		{name: "both", body: OpenRequest{Path: "a.md", URL: "http://x/a.md"}, want: http.StatusBadRequest},
		{name: "missing file", body: OpenRequest{Path: filepath.Join(t.TempDir(), "nope.md")}, want: http.StatusUnprocessableEntity},
		{name: "unsupported scheme", body: OpenRequest{URL: "file:///etc/hosts"}, want: http.StatusBadRequest},
		{name: "not json", body: "{", want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.postJSON("/open", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.Contains(t, decode(t, w), "error")
		})
	}
	assert.Equal(t, "MarkRead", f.manager.Title())
}

func TestDrop(t *testing.T) {
	f := newFixture(t)

	w := f.do(multipartDrop(t, "dropped.md", []byte("# Dropped\n\nhello")))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "dropped.md", decode(t, w)["filename"])

	assert.Eventually(t, func() bool {
		return f.manager.Title() == "dropped.md - MarkRead"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDropRejects(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/drop", strings.NewReader(""))
	w := f.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	png := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}
	w = f.do(multipartDrop(t, "image.png", png))
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestFiles(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.md"), []byte("1"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "two.markdown"), []byte("2"), 0o644))

	w := f.do(httptest.NewRequest(http.MethodGet, "/files?dir="+dir, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"one.md", "sub/two.markdown"}, decode(t, w)["files"])

	w = f.do(httptest.NewRequest(http.MethodGet, "/files", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReload(t *testing.T) {
	f := newFixture(t)
	path := writeDoc(t, "keep.md", "# Keep me")
	require.Equal(t, http.StatusOK, f.postJSON("/open", OpenRequest{Path: path}).Code)

	w := f.do(httptest.NewRequest(http.MethodPost, "/reload", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "keep.md", body["filename"])
	assert.EqualValues(t, 1, body["version"])
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)
	path := writeDoc(t, "m.md", "# Metrics")
	require.Equal(t, http.StatusOK, f.postJSON("/open", OpenRequest{Path: path}).Code)

	w := f.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, true, body["window"].(map[string]any)["document"])

	w = f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	text := w.Body.String()
	assert.Contains(t, text, "markread_documents_rendered_total 1")
	assert.Contains(t, text, fmt.Sprintf(`markread_ipc_messages_sent_total{direction="%s",mode="%s"} 1`, ipc.HostToSurface, ipc.ModeInline))
	assert.Contains(t, text, `markread_http_requests_total{method="POST",path="/open",status="200"} 1`)

	w = f.do(httptest.NewRequest(http.MethodGet, "/console", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w), "entries")
}

func TestRateLimitOnOpen(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.RateLimit.RequestsPerSecond = 1
		c.RateLimit.Burst = 1
	})

	assert.Equal(t, http.StatusBadRequest, f.postJSON("/open", OpenRequest{}).Code)
	assert.Equal(t, http.StatusTooManyRequests, f.postJSON("/open", OpenRequest{}).Code)

	// Other routes are not limited.
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, f.do(httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
	}
}

func TestGzipPage(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := f.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", loader.ErrTooLarge), http.StatusRequestEntityTooLarge},
		{ipc.PayloadTooLarge("dropfile", 10, 5), http.StatusRequestEntityTooLarge},
		{loader.ErrNotText, http.StatusUnsupportedMediaType},
		{app.ErrNotLoaded, http.StatusUnprocessableEntity},
		{app.ErrClosed, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{ipc.Transport("markdown", errors.New("gone")), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
