// Package transport implements the duplex binary-message connection
// Uplink peers exchange frames over: a WebSocket upgrade carried on a
// plain TCP listener, with a static HTML fallback for plain GET
// requests that never ask for the upgrade.
package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"

	"nhooyr.io/websocket"
)

const (
	readLimitBytes = 64 * 1024 * 1024
	upgradePath    = "/"
)

// Conn is one duplex binary-frame connection to a peer. Reads and
// writes correspond 1:1 with logical frames; the transport guarantees
// in-order delivery within one direction.
type Conn interface {
	ReadFrame(ctx context.Context) ([]byte, error)
	WriteFrame(ctx context.Context, data []byte) error
	Close() error
	RemoteAddr() string
}

// wsConn adapts a *websocket.Conn to Conn.
type wsConn struct {
	ws     *websocket.Conn
	remote string
	closed atomic.Bool
}

func (c *wsConn) ReadFrame(ctx context.Context) ([]byte, error) {
	typ, data, err := c.ws.Read(ctx)
	if err != nil {
		return nil, err
	}
	if typ != websocket.MessageBinary {
		return nil, fmt.Errorf("transport: unexpected non-binary message")
	}
	return data, nil
}

func (c *wsConn) WriteFrame(ctx context.Context, data []byte) error {
	return c.ws.Write(ctx, websocket.MessageBinary, data)
}

func (c *wsConn) RemoteAddr() string { return c.remote }

func (c *wsConn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.ws.Close(websocket.StatusNormalClosure, "connection closed")
}

// Dial connects to a peer's WebSocket listener at ws://addr.
func Dial(ctx context.Context, addr string) (Conn, error) {
	url := wsURL(addr)
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("transport dial %s: %w", addr, err)
	}
	conn.SetReadLimit(readLimitBytes)
	return &wsConn{ws: conn, remote: addr}, nil
}

func wsURL(addr string) string {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		return addr
	}
	return "ws://" + addr + upgradePath
}

// Listener accepts inbound peer connections, serving the static
// welcome page to plain HTTP requests that never ask for a WebSocket
// upgrade.
type Listener struct {
	netLn  net.Listener
	server *http.Server
	connCh chan Conn
	errCh  chan error
	closed atomic.Bool
}

// Listen starts a TCP listener at addr and begins serving HTTP/WebSocket
// upgrade requests on it.
func Listen(addr string) (*Listener, error) {
	netLn, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport listen %s: %w", addr, err)
	}

	l := &Listener{
		netLn:  netLn,
		connCh: make(chan Conn, 16),
		errCh:  make(chan error, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(upgradePath, l.handle)
	l.server = &http.Server{Handler: mux}

	go func() {
		if err := l.server.Serve(netLn); err != nil && !l.closed.Load() {
			l.errCh <- err
		}
	}()

	return l, nil
}

func (l *Listener) handle(w http.ResponseWriter, r *http.Request) {
	if !isUpgradeRequest(r) {
		if r.Method != http.MethodGet {
			if hj, ok := w.(http.Hijacker); ok {
				if c, _, err := hj.Hijack(); err == nil {
					c.Close()
				}
			}
			return
		}
		serveWelcomePage(w)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	conn.SetReadLimit(readLimitBytes)

	peer := &wsConn{ws: conn, remote: r.RemoteAddr}
	select {
	case l.connCh <- peer:
	default:
		conn.Close(websocket.StatusTryAgainLater, "accept queue full")
	}
}

// isUpgradeRequest reports whether r asks for a WebSocket upgrade,
// the Go equivalent of peeking the raw TCP stream for an
// "Upgrade: websocket" header before the HTTP framing is parsed.
func isUpgradeRequest(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// Accept waits for and returns the next inbound connection.
func (l *Listener) Accept(ctx context.Context) (Conn, error) {
	select {
	case conn := <-l.connCh:
		return conn, nil
	case err := <-l.errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Addr returns the listener's bound address.
func (l *Listener) Addr() net.Addr { return l.netLn.Addr() }

// Close shuts down the listener.
func (l *Listener) Close() error {
	if l.closed.Swap(true) {
		return nil
	}
	return l.server.Close()
}
