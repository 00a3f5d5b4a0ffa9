// Package peer glues the sender, receiver, session state, and
// transport together into the single symmetric role both ends of an
// Uplink connection play: dialing or listening is the only asymmetry.
package peer

import (
	"context"
	"log/slog"
	"os"

	"github.com/uplink-tool/uplink/internal/executor"
	"github.com/uplink-tool/uplink/internal/lineio"
	"github.com/uplink-tool/uplink/internal/receiver"
	"github.com/uplink-tool/uplink/internal/sender"
	"github.com/uplink-tool/uplink/internal/session"
	"github.com/uplink-tool/uplink/internal/transport"
)

// Config carries the flags and shared secret both the sender and
// receiver need.
type Config struct {
	Passphrase []byte
	NoExec     bool
	NoTransfer bool
	NoEnvelope bool
	Logger     *slog.Logger
}

// Peer owns one process's configuration and executor. Both listener
// and connector modes construct one of these; the only difference is
// how connections are established.
type Peer struct {
	cfg      Config
	executor *executor.Executor
}

// New returns a Peer ready to serve or connect.
func New(cfg Config) *Peer {
	return &Peer{
		cfg:      cfg,
		executor: executor.New(),
	}
}

// RunListener accepts connections at addr forever, handling one at a
// time, until the line source reaches EOF or ctx is cancelled.
func (p *Peer) RunListener(ctx context.Context, addr string, lines *lineio.Source, out sender.Printer) error {
	ln, err := transport.Listen(addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	for {
		conn, err := ln.Accept(ctx)
		if err != nil {
			return err
		}

		if lineEOF := p.handleConnection(ctx, conn, lines, out); lineEOF {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// RunConnector dials addr, handles the connection, and on loss waits
// reconnectDelay before dialing again, until the line source reaches
// EOF or ctx is cancelled.
func (p *Peer) RunConnector(ctx context.Context, addr string, lines *lineio.Source, out sender.Printer) error {
	for {
		conn, err := transport.Dial(ctx, addr)
		if err != nil {
			p.logf("connect failed", "error", err)
		} else if lineEOF := p.handleConnection(ctx, conn, lines, out); lineEOF {
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := waitToReconnect(ctx); err != nil {
			return err
		}
	}
}

// handleConnection runs the receiver loop and the sender's line loop
// concurrently over one connection. Whichever ends first (a transport
// error on receive, or EOF/error on the line source) cancels the
// other's context and ends the connection; the sibling goroutine may
// be left running against the now-closed connection, matching the
// fire-and-forget shutdown the rest of this design follows. Returns
// true if the line source itself reached EOF, signaling the caller to
// stop entirely rather than reconnect.
func (p *Peer) handleConnection(ctx context.Context, conn transport.Conn, lines *lineio.Source, out sender.Printer) bool {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer conn.Close()

	snd, rcv := p.wireConnection(conn, out)

	recvDone := make(chan struct{}, 1)
	go func() {
		for {
			frame, err := conn.ReadFrame(connCtx)
			if err != nil {
				recvDone <- struct{}{}
				return
			}
			rcv.HandleFrame(connCtx, frame)
		}
	}()

	sendDone := make(chan bool, 1)
	go func() {
		for {
			line, err := lines.Next()
			if err != nil {
				sendDone <- true
				return
			}
			if connCtx.Err() != nil {
				sendDone <- false
				return
			}
			snd.HandleLine(connCtx, line)
		}
	}()

	select {
	case <-recvDone:
		return false
	case eof := <-sendDone:
		return eof
	}
}

// wireConnection builds the sender and receiver for one connection,
// sharing a session state created empty for this connection and this
// peer's executor. Split out of handleConnection so tests can drive the
// pair directly without the loop/select plumbing around it.
func (p *Peer) wireConnection(conn transport.Conn, out sender.Printer) (*sender.Sender, *receiver.Receiver) {
	state := session.New()
	snd := &sender.Sender{
		Passphrase: p.cfg.Passphrase,
		NoEnvelope: p.cfg.NoEnvelope,
		State:      state,
		Writer:     conn,
		Out:        out,
		ReadFile:   readLocalFile,
		Logger:     p.cfg.Logger,
	}
	rcv := &receiver.Receiver{
		Passphrase: p.cfg.Passphrase,
		Flags: receiver.Flags{
			NoExec:     p.cfg.NoExec,
			NoTransfer: p.cfg.NoTransfer,
			NoEnvelope: p.cfg.NoEnvelope,
		},
		State:     state,
		Executor:  p.executor,
		Writer:    conn,
		Responses: snd,
		Logger:    p.cfg.Logger,
	}
	return snd, rcv
}

// readLocalFile reads a local file for PutFile's eager-read step. A
// failure yields nil, matching the empty-data-on-failure rule.
func readLocalFile(path string) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return data
}

func (p *Peer) logf(msg string, args ...any) {
	if p.cfg.Logger != nil {
		p.cfg.Logger.Error(msg, args...)
	}
}
