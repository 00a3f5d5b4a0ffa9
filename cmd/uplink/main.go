// Package main provides the CLI entry point for Uplink.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/uplink-tool/uplink/internal/config"
	"github.com/uplink-tool/uplink/internal/lineio"
	"github.com/uplink-tool/uplink/internal/logging"
	"github.com/uplink-tool/uplink/internal/peer"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := logging.NewLogger("info", "text")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	p := peer.New(peer.Config{
		Passphrase: []byte(cfg.Passphrase),
		NoExec:     cfg.NoExec,
		NoTransfer: cfg.NoTransfer,
		NoEnvelope: cfg.NoEnvelope,
		Logger:     logger,
	})

	lines := lineio.NewSource(os.Stdin)
	out := &stdoutPrinter{w: bufio.NewWriter(os.Stdout)}
	defer out.w.Flush()

	switch cfg.Mode {
	case config.ModeServer:
		err = p.RunListener(ctx, cfg.Address, lines, out)
	case config.ModeClient:
		err = p.RunConnector(ctx, cfg.Address, lines, out)
	}

	out.w.Flush()

	if err != nil && ctx.Err() == nil {
		logger.Error("exiting", logging.KeyError, err)
		os.Exit(1)
	}
}

// stdoutPrinter implements sender.Printer by writing formatted lines
// to stdout, flushing after every write so output appears promptly
// even though the underlying writer is buffered.
type stdoutPrinter struct {
	w *bufio.Writer
}

func (p *stdoutPrinter) Printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
	p.w.Flush()
}
