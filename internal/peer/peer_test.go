package peer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/uplink-tool/uplink/internal/lineio"
	"github.com/uplink-tool/uplink/internal/transport"
)

// pipeConn is an in-memory transport.Conn backed by channels, used in
// pairs to simulate a connection between two peers without a real
// socket.
type pipeConn struct {
	out    chan []byte
	in     chan []byte
	mu     sync.Mutex
	closed bool
}

func newPipePair() (transport.Conn, transport.Conn) {
	ab := make(chan []byte, 16)
	ba := make(chan []byte, 16)
	a := &pipeConn{out: ab, in: ba}
	b := &pipeConn{out: ba, in: ab}
	return a, b
}

func (c *pipeConn) ReadFrame(ctx context.Context) ([]byte, error) {
	select {
	case data, ok := <-c.in:
		if !ok {
			return nil, io.EOF
		}
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *pipeConn) WriteFrame(ctx context.Context, data []byte) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return io.ErrClosedPipe
	}
	select {
	case c.out <- append([]byte(nil), data...):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *pipeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.out)
	}
	return nil
}

func (c *pipeConn) RemoteAddr() string { return "pipe" }

type recordingPrinter struct {
	mu    sync.Mutex
	lines []string
}

func (p *recordingPrinter) Printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lines = append(p.lines, fmt.Sprintf(format, args...))
}

func (p *recordingPrinter) contains(substr string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, l := range p.lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

// blockingReader never returns, simulating an operator who has not
// typed anything yet; it only unblocks when the test closes done.
type blockingReader struct {
	done chan struct{}
}

func (r *blockingReader) Read(p []byte) (int, error) {
	<-r.done
	return 0, io.EOF
}

func TestHandleConnectionReturnsTrueOnLineSourceEOF(t *testing.T) {
	connA, connB := newPipePair()
	defer connB.Close()

	peerA := New(Config{Passphrase: []byte("shared-secret"), NoEnvelope: true})
	outA := &recordingPrinter{}
	linesA := lineio.NewSource(strings.NewReader(""))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lineEOF := peerA.handleConnection(ctx, connA, linesA, outA)
	if !lineEOF {
		t.Fatal("expected handleConnection to report line-source EOF")
	}
}

func TestHandleConnectionReturnsFalseOnTransportError(t *testing.T) {
	connA, connB := newPipePair()

	peerA := New(Config{Passphrase: []byte("shared-secret"), NoEnvelope: true})
	outA := &recordingPrinter{}

	reader := &blockingReader{done: make(chan struct{})}
	linesA := lineio.NewSource(reader)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connB.Close()

	lineEOF := peerA.handleConnection(ctx, connA, linesA, outA)
	if lineEOF {
		t.Fatal("expected handleConnection to report a transport-side end, not line EOF")
	}
	close(reader.done)
}

func TestEchoRoundTripBetweenTwoReceivers(t *testing.T) {
	connA, connB := newPipePair()
	defer connA.Close()
	defer connB.Close()

	peerA := New(Config{Passphrase: []byte("shared-secret"), NoEnvelope: true})
	peerB := New(Config{Passphrase: []byte("shared-secret"), NoEnvelope: true})

	outA := &recordingPrinter{}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sndA, rcvA := peerA.wireConnection(connA, outA)
	_, rcvB := peerB.wireConnection(connB, &recordingPrinter{})

	go func() {
		for {
			frame, err := connB.ReadFrame(ctx)
			if err != nil {
				return
			}
			rcvB.HandleFrame(ctx, frame)
		}
	}()
	go func() {
		for {
			frame, err := connA.ReadFrame(ctx)
			if err != nil {
				return
			}
			rcvA.HandleFrame(ctx, frame)
		}
	}()

	sndA.HandleLine(ctx, "ECHO hi")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if outA.contains("hi") {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected echo reply printed on A, got %v", outA.lines)
}
