package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/GriffinCanCode/markread/internal/ipc"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	m := NewMetrics()

	m.RecordSend(ipc.HostToSurface, ipc.ModeInline, 120)
	m.RecordSend(ipc.HostToSurface, ipc.ModeChunked, 4000)
	for i := 0; i < 5; i++ {
		m.RecordFragment(ipc.HostToSurface)
	}
	m.RecordReceive(ipc.SurfaceToHost, ipc.ModeInline)
	m.RecordDrop(ipc.HostToSurface, ipc.KindMalformedPayload)
	m.RecordListenerFailure("dropfile")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesSent.WithLabelValues(ipc.HostToSurface, ipc.ModeChunked)))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.Fragments.WithLabelValues(ipc.HostToSurface)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesReceived.WithLabelValues(ipc.SurfaceToHost, ipc.ModeInline)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Drops.WithLabelValues(ipc.HostToSurface, string(ipc.KindMalformedPayload))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ListenerFailures.WithLabelValues("dropfile")))

	s := m.Snapshot()
	assert.Equal(t, int64(2), s.MessagesSent)
	assert.Equal(t, int64(1), s.MessagesRecv)
	assert.Equal(t, int64(1), s.Drops)
}

func TestPrivateRegistry(t *testing.T) {
	// Two instances must not collide on registration.
	a, b := NewMetrics(), NewMetrics()
	a.IncDocuments()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.DocumentsRendered))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.DocumentsRendered))

	families, err := a.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	router.GET("/metrics", m.GinHandler())
	router.GET("/status", m.StatusHandler())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/ping", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "markread_http_requests_total")
	assert.Contains(t, w.Body.String(), "markread_uptime_seconds")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_errors":1`)
}

func TestWSGauge(t *testing.T) {
	m := NewMetrics()
	m.IncWSConnections()
	m.IncWSConnections()
	m.DecWSConnections()
	m.RecordWSMessage("document")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.WSConnections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WSMessages.WithLabelValues("document")))
	assert.Equal(t, int64(1), m.Snapshot().Clients)
}
