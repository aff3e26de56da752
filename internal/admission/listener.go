package admission

import (
	"net"
	"time"

	"go.uber.org/zap"
)

// TooManyRequests is written verbatim to a rejected socket before it is
// closed.
const TooManyRequests = "HTTP/1.1 429 Too Many Requests\r\n\r\n"

// Listener wraps a net.Listener and only hands admitted connections to the
// caller. Rejected connections get the 429 status line and are reset.
type Listener struct {
	net.Listener

	controller   *Controller
	writeTimeout time.Duration
	logger       *zap.Logger
}

// NewListener wraps inner with admission control.
func NewListener(inner net.Listener, controller *Controller, writeTimeout time.Duration) *Listener {
	if writeTimeout <= 0 {
		writeTimeout = time.Second
	}
	return &Listener{
		Listener:     inner,
		controller:   controller,
		writeTimeout: writeTimeout,
		logger:       controller.logger,
	}
}

// Accept blocks until an admitted connection arrives or the inner listener
// fails.
func (l *Listener) Accept() (net.Conn, error) {
	for {
		conn, err := l.Listener.Accept()
		if err != nil {
			return nil, err
		}

		if l.controller.Admit(remoteHost(conn)) {
			return conn, nil
		}

		go l.reject(conn)
	}
}

func (l *Listener) reject(conn net.Conn) {
	_ = conn.SetWriteDeadline(time.Now().Add(l.writeTimeout))
	if _, err := conn.Write([]byte(TooManyRequests)); err != nil {
		l.logger.Debug("Failed to write rejection", zap.Error(err))
	}

	// Linger 0 makes Close send RST instead of a graceful FIN.
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetLinger(0)
	}
	_ = conn.Close()
}

func remoteHost(conn net.Conn) string {
	addr := conn.RemoteAddr()
	if addr == nil {
		return ""
	}
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP.String()
	}
	if host, _, err := net.SplitHostPort(addr.String()); err == nil {
		return host
	}
	return addr.String()
}
