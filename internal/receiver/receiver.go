// Package receiver implements the per-frame decrypt, classify, and
// dispatch algorithm shared by both ends of a connection: decode the
// wire frame, determine whether it carries an Envelope, a Command, or
// a Response, and act accordingly.
package receiver

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/uplink-tool/uplink/internal/crypto"
	"github.com/uplink-tool/uplink/internal/envelope"
	"github.com/uplink-tool/uplink/internal/executor"
	"github.com/uplink-tool/uplink/internal/framepipe"
	"github.com/uplink-tool/uplink/internal/message"
	"github.com/uplink-tool/uplink/internal/session"
	"github.com/uplink-tool/uplink/internal/sysinfo"
)

// Denial text is canonical per the capability-gating rules; both peers
// must emit it byte-for-byte since it is itself wire content.
const (
	execDisabledMessage     = "Peer has disabled executing commands."
	transferDisabledMessage = "Transfer is disallowed (--no-transfer flag)."
)

// FrameWriter sends one outgoing wire frame.
type FrameWriter interface {
	WriteFrame(ctx context.Context, data []byte) error
}

// ResponseHandler reacts to an inbound Response: printing content,
// writing file data, or installing handshake key material. Satisfied
// by *sender.Sender without an import cycle.
type ResponseHandler interface {
	HandleResponse(resp message.Response, writeFile func(path string, data []byte) error)
}

// Flags are the capability gates read from configuration.
type Flags struct {
	NoExec     bool
	NoTransfer bool
	NoEnvelope bool
}

// Receiver owns the decrypt/classify/dispatch algorithm for one
// connection.
type Receiver struct {
	Passphrase []byte
	Flags      Flags
	State      *session.State
	Executor   *executor.Executor
	Writer     FrameWriter
	Responses  ResponseHandler
	Logger     *slog.Logger
}

// HandleFrame decodes and dispatches one inbound wire frame. It never
// returns an error for per-frame problems (decryption, malformed JSON,
// protocol-sequence violations) — those are logged and the frame is
// dropped. A failed write of the reply to the sink is logged as well.
func (r *Receiver) HandleFrame(ctx context.Context, data []byte) {
	plaintext, ok := r.decodeFrame(data)
	if !ok {
		return
	}
	r.dispatch(ctx, plaintext, true)
}

// decodeFrame implements §4.6 step 1-2: in envelope mode with a
// session key present, try the session-key AEAD layer first; on
// failure or absence fall back to the passphrase frame pipeline (the
// path a handshake travels before a session key exists). When a
// session key is present, a session-key AEAD layer found inside the
// passphrase frame (the layering sendResponse produces) is removed too.
func (r *Receiver) decodeFrame(data []byte) (plaintext []byte, ok bool) {
	if r.Flags.NoEnvelope {
		plaintext, err := framepipe.Decode(data, r.Passphrase)
		if err != nil {
			r.logf("decryption failed", "error", err)
			return nil, false
		}
		return plaintext, true
	}

	snap := r.State.Snapshot()
	if snap.SessionKey != nil {
		if sealed, err := crypto.AEADDecrypt(snap.SessionKey, data); err == nil {
			plaintext, err := framepipe.Decode(sealed, r.Passphrase)
			if err == nil {
				return plaintext, true
			}
		}
	}

	plaintext, err := framepipe.Decode(data, r.Passphrase)
	if err != nil {
		r.logf("decryption failed", "error", err)
		return nil, false
	}
	if snap.SessionKey != nil {
		if opened, err := crypto.AEADDecrypt(snap.SessionKey, plaintext); err == nil {
			return opened, true
		}
	}
	return plaintext, true
}

// dispatch classifies plaintext by structural priority Envelope >
// Command > Response and acts. topLevel distinguishes the
// top-level call (where a bare Command is restricted to Handshake in
// envelope mode) from the recursive call after opening an Envelope
// (where any Command is legal, since the envelope itself proves
// possession of the session key).
func (r *Receiver) dispatch(ctx context.Context, plaintext []byte, topLevel bool) {
	switch {
	case envelope.LooksLikeEnvelope(plaintext):
		r.handleEnvelope(ctx, plaintext)
	case message.LooksLikeCommand(plaintext):
		var cmd message.Command
		if err := json.Unmarshal(plaintext, &cmd); err != nil {
			r.logf("unexpected message format", "error", err)
			return
		}
		if topLevel && !r.Flags.NoEnvelope && cmd.Kind != message.CommandHandshake {
			r.logf("bare command outside envelope, dropping", "kind", cmd.Kind)
			return
		}
		r.handleCommand(ctx, cmd)
	case message.LooksLikeResponse(plaintext):
		var resp message.Response
		if err := json.Unmarshal(plaintext, &resp); err != nil {
			r.logf("unexpected message format", "error", err)
			return
		}
		if r.Responses != nil {
			r.Responses.HandleResponse(resp, r.writeResponseFile)
		}
	default:
		r.logf("unexpected message format")
	}
}

func (r *Receiver) writeResponseFile(path string, data []byte) error {
	return r.Executor.WriteFile(path, data)
}

// handleEnvelope opens an Envelope under the local private key,
// installs the recovered session key, and recurses on the decrypted
// command bytes.
func (r *Receiver) handleEnvelope(ctx context.Context, plaintext []byte) {
	env, err := envelope.Unmarshal(plaintext)
	if err != nil {
		r.logf("unexpected message format", "error", err)
		return
	}

	snap := r.State.Snapshot()
	if snap.LocalPrivateKey == nil {
		r.logf("envelope received before local handshake key exists, dropping")
		return
	}

	sessionKey, commandBytes, err := envelope.Open(snap.LocalPrivateKey, env)
	if err != nil {
		r.logf("envelope decryption failed", "error", err)
		return
	}
	r.State.SetSessionKey(sessionKey)

	r.dispatch(ctx, commandBytes, false)
}

// handleCommand executes the capability method for cmd and emits the
// resulting Response.
func (r *Receiver) handleCommand(ctx context.Context, cmd message.Command) {
	resp := r.runCommand(ctx, cmd)
	r.sendResponse(ctx, resp)
}

func (r *Receiver) runCommand(ctx context.Context, cmd message.Command) message.Response {
	if r.Flags.NoExec && isExecGated(cmd.Kind) {
		return message.Message(execDisabledMessage)
	}
	if r.Flags.NoTransfer && isTransferGated(cmd.Kind) {
		return message.Message(transferDisabledMessage)
	}

	switch cmd.Kind {
	case message.CommandEcho:
		return message.Message("[+] " + cmd.Message)
	case message.CommandHandshake:
		return r.handleHandshake()
	case message.CommandListFiles:
		files, err := r.Executor.ListFiles()
		if err != nil {
			return message.Message(err.Error())
		}
		return message.FileList(files)
	case message.CommandWhoami:
		name, err := r.Executor.Whoami()
		if err != nil {
			return message.Message(err.Error())
		}
		return message.Message(name)
	case message.CommandPwd:
		dir, err := r.Executor.Pwd()
		if err != nil {
			return message.Message(err.Error())
		}
		return message.Message(dir)
	case message.CommandUsers:
		users, err := r.Executor.Users()
		if err != nil {
			return message.Message(err.Error())
		}
		return message.UserList(users)
	case message.CommandInfo:
		return message.Message(sysinfo.Collect().String())
	case message.CommandNetstat:
		out, err := sysinfo.Netstat()
		if err != nil {
			return message.Message(err.Error())
		}
		return message.Message(out)
	case message.CommandNetwork:
		out, err := sysinfo.Network()
		if err != nil {
			return message.Message(err.Error())
		}
		return message.Message(out)
	case message.CommandGetFile:
		data, err := r.Executor.ReadFile(cmd.RemotePath)
		if err != nil {
			return message.Message(err.Error())
		}
		return message.FileData(cmd.LocalPath, data)
	case message.CommandPutFile:
		if err := r.Executor.WriteFile(cmd.RemotePath, cmd.Data); err != nil {
			return message.Message(err.Error())
		}
		return message.Message("File " + cmd.UpPath + " uploaded successfully.")
	case message.CommandExecute:
		out, err := r.Executor.RunShell(ctx, cmd.Exec)
		if err != nil {
			return message.Message(err.Error())
		}
		return message.CommandOutput(out)
	default:
		return message.Message("unknown command")
	}
}

func (r *Receiver) handleHandshake() message.Response {
	priv, err := crypto.GenerateKeyPair()
	if err != nil {
		return message.Message(err.Error())
	}
	r.State.SetLocalPrivateKey(priv)
	pem := crypto.EncodePublicKeyPEM(&priv.PublicKey)
	return message.Handshake(pem)
}

func isExecGated(kind message.CommandKind) bool {
	switch kind {
	case message.CommandInfo, message.CommandWhoami, message.CommandPwd,
		message.CommandUsers, message.CommandNetstat, message.CommandNetwork,
		message.CommandExecute:
		return true
	default:
		return false
	}
}

func isTransferGated(kind message.CommandKind) bool {
	switch kind {
	case message.CommandListFiles, message.CommandGetFile, message.CommandPutFile:
		return true
	default:
		return false
	}
}

// sendResponse serializes resp, optionally AEAD-seals it under the
// current session key (envelope mode with a key installed), then
// passes it through the passphrase frame pipeline and writes it.
func (r *Receiver) sendResponse(ctx context.Context, resp message.Response) {
	body, err := json.Marshal(resp)
	if err != nil {
		r.logf("marshal response failed", "error", err)
		return
	}

	if !r.Flags.NoEnvelope {
		snap := r.State.Snapshot()
		if snap.SessionKey != nil {
			sealed, err := crypto.AEADEncrypt(snap.SessionKey, body)
			if err != nil {
				r.logf("seal response failed", "error", err)
				return
			}
			body = sealed
		}
	}

	wire, err := framepipe.Encode(body, r.Passphrase)
	if err != nil {
		r.logf("encode response failed", "error", err)
		return
	}
	if err := r.Writer.WriteFrame(ctx, wire); err != nil {
		r.logf("write response failed", "error", err)
	}
}

func (r *Receiver) logf(msg string, args ...any) {
	if r.Logger != nil {
		r.Logger.Warn(msg, args...)
	}
}
