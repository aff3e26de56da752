package admission

import (
	"bufio"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leoska/gameapi/internal/metrics"
	"github.com/leoska/gameapi/pkg/config"
)

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return w.Body.String()
}

func TestListener_RejectWritesStatusLine(t *testing.T) {
	c := NewController(referenceConfig(), zap.NewNop())
	l := &Listener{controller: c, writeTimeout: time.Second, logger: zap.NewNop()}

	server, client := net.Pipe()
	defer client.Close()

	go l.reject(server)

	data, err := io.ReadAll(client)
	require.NoError(t, err)
	assert.Equal(t, TooManyRequests, string(data))
}

func TestListener_OnlyAdmittedConnectionsAreAccepted(t *testing.T) {
	inner, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	cfg := config.AdmissionConfig{Enabled: true, Window: time.Minute, MaxAttempts: 2}
	l := NewListener(inner, NewController(cfg, zap.NewNop()), time.Second)
	defer l.Close()

	var accepted atomic.Int32
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			accepted.Add(1)
			_, _ = conn.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n"))
			_ = conn.Close()
		}
	}()

	for i := 0; i < 2; i++ {
		line := dialAndReadLine(t, inner.Addr().String())
		assert.Equal(t, "HTTP/1.1 200 OK", line, "connection %d", i+1)
	}

	// The third connection is reset by the server; depending on timing the
	// client sees the 429 line or only the reset.
	line := dialAndReadLine(t, inner.Addr().String())
	assert.NotEqual(t, "HTTP/1.1 200 OK", line)
	if line != "" {
		assert.Equal(t, "HTTP/1.1 429 Too Many Requests", line)
	}

	assert.Eventually(t, func() bool { return accepted.Load() == 2 }, time.Second, 10*time.Millisecond)
}

func TestListener_AcceptErrorPropagates(t *testing.T) {
	inner, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	l := NewListener(inner, NewController(referenceConfig(), zap.NewNop()), 0)
	require.NoError(t, l.Close())

	_, err = l.Accept()
	assert.Error(t, err)
}

func TestRemoteHost(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	// net.Pipe addresses are not host:port pairs
	assert.Equal(t, "pipe", remoteHost(server))
}

func dialAndReadLine(t *testing.T, addr string) string {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return strings.TrimSpace(line)
}
