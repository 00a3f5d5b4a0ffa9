// Package sender implements the line-source-driven command sender and
// the response handler that installs handshake results.
package sender

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/uplink-tool/uplink/internal/crypto"
	"github.com/uplink-tool/uplink/internal/envelope"
	"github.com/uplink-tool/uplink/internal/framepipe"
	"github.com/uplink-tool/uplink/internal/message"
	"github.com/uplink-tool/uplink/internal/session"
)

// FrameWriter sends one outgoing wire frame. Implemented by the
// transport connection; sharing one FrameWriter between a Sender and a
// receiver keeps writes serialized behind the transport's own mutex.
type FrameWriter interface {
	WriteFrame(ctx context.Context, data []byte) error
}

// Printer receives the lines the sender prints for the operator (local
// echoes, advisories, errors). Kept as an interface so tests can
// capture output without touching stdout.
type Printer interface {
	Printf(format string, args ...any)
}

// HelpText is printed locally when the operator types H or HELP;
// nothing is sent on the wire.
const HelpText = `Commands:
  ECHO <message>            echo a message
  LIST                      list files in the peer's working directory
  WHOAMI                    current user on the peer
  INFO                      system summary of the peer
  PWD                       working directory of the peer
  USERS                     accounts on the peer
  NETSTAT                   active connections on the peer
  NETWORK                   network interfaces of the peer
  GET <remote> <local>      download a file from the peer
  PUT <local> <remote>      upload a file to the peer
  EXEC <command>            run a shell command on the peer
  HELP                      show this text
`

// Sender parses operator command lines, enforces envelope readiness,
// and emits frames.
type Sender struct {
	Passphrase []byte
	NoEnvelope bool
	State      *session.State
	Writer     FrameWriter
	Out        Printer
	ReadFile   ReadFileFunc
	Logger     *slog.Logger
}

// HandleLine parses and, if ready, sends one line of operator input.
func (s *Sender) HandleLine(ctx context.Context, line string) {
	cmd, err := ParseCommand(line, s.ReadFile)
	if err != nil {
		if IsEmptyLine(err) {
			return
		}
		if err == ErrHelp {
			s.Out.Printf("%s", HelpText)
			return
		}
		s.Out.Printf("error: %v\n", err)
		return
	}

	s.send(ctx, cmd)
}

func (s *Sender) send(ctx context.Context, cmd message.Command) {
	if !s.NoEnvelope {
		snap := s.State.Snapshot()
		if !snap.Ready() {
			s.sendHandshake(ctx)
			s.Out.Printf("[!] Session key or public key not available. Initiating handshake...\n")
			s.Out.Printf("[+] Handshake initiated. Please try the command again after the handshake completes.\n")
			return
		}

		commandBytes, err := json.Marshal(cmd)
		if err != nil {
			s.Out.Printf("error: %v\n", err)
			return
		}

		env, err := envelope.Seal(snap.PeerPublicKey, commandBytes, snap.SessionKey)
		if err != nil {
			s.Out.Printf("error: %v\n", err)
			return
		}

		envBytes, err := envelope.Marshal(env)
		if err != nil {
			s.Out.Printf("error: %v\n", err)
			return
		}

		s.encodeAndSend(ctx, envBytes)
		return
	}

	commandBytes, err := json.Marshal(cmd)
	if err != nil {
		s.Out.Printf("error: %v\n", err)
		return
	}
	s.encodeAndSend(ctx, commandBytes)
}

// sendHandshake emits a bare Handshake Command over the no-envelope
// path: handshakes bootstrap the envelope and can never themselves be
// envelope-wrapped.
func (s *Sender) sendHandshake(ctx context.Context) {
	commandBytes, err := json.Marshal(message.Unit(message.CommandHandshake))
	if err != nil {
		s.logError("marshal handshake command", err)
		return
	}
	s.encodeAndSend(ctx, commandBytes)
}

func (s *Sender) encodeAndSend(ctx context.Context, payload []byte) {
	wire, err := framepipe.Encode(payload, s.Passphrase)
	if err != nil {
		s.logError("encode frame", err)
		return
	}
	if err := s.Writer.WriteFrame(ctx, wire); err != nil {
		s.logError("write frame", err)
		return
	}
}

func (s *Sender) logError(action string, err error) {
	if s.Logger != nil {
		s.Logger.Error(action, "error", err)
	}
}

// HandleResponse dispatches an inbound Response per its variant,
// printing content or writing file data, and installing handshake
// results into the shared session state.
func (s *Sender) HandleResponse(resp message.Response, writeFile func(path string, data []byte) error) {
	switch resp.Kind {
	case message.ResponseMessage:
		s.Out.Printf("%s", resp.Content)
	case message.ResponseCommandOutput:
		s.Out.Printf("Command output:\n%s\n", resp.Output)
	case message.ResponseFileList:
		for _, f := range resp.Files {
			s.Out.Printf("%s\n", f)
		}
		s.Out.Printf("\n")
	case message.ResponseUserList:
		for _, u := range resp.Users {
			s.Out.Printf("%s\n", u)
		}
		s.Out.Printf("\n")
	case message.ResponseFileData:
		if writeFile != nil {
			if err := writeFile(resp.FilePath, resp.Data); err != nil {
				s.Out.Printf("error writing %s: %v\n", resp.FilePath, err)
			}
		}
	case message.ResponseHandshake:
		s.installHandshake(resp.PublicKeyPEM)
	default:
		s.Out.Printf("unrecognized response\n")
	}
}

func (s *Sender) installHandshake(publicKeyPEM []byte) {
	pub, err := crypto.DecodePublicKeyPEM(publicKeyPEM)
	if err != nil {
		s.logError("decode handshake public key", err)
		return
	}
	s.State.SetPeerPublicKey(pub)

	sessionKey, err := crypto.GenerateSessionKey()
	if err != nil {
		s.logError("generate session key", err)
		return
	}
	s.State.SetSessionKey(sessionKey)

	s.Out.Printf("[+] Peer public key installed.\n")
	s.Out.Printf("[+] Session key generated and installed.\n")
}
