// Package message defines the Command and Response wire types and their
// externally-tagged JSON encoding (variant name as key, payload as
// object value; unit variants as a bare JSON string).
package message

import (
	"encoding/json"
	"fmt"
)

// CommandKind identifies a Command variant.
type CommandKind string

const (
	CommandEcho      CommandKind = "Echo"
	CommandListFiles CommandKind = "ListFiles"
	CommandWhoami    CommandKind = "Whoami"
	CommandInfo      CommandKind = "Info"
	CommandPwd       CommandKind = "Pwd"
	CommandUsers     CommandKind = "Users"
	CommandNetstat   CommandKind = "Netstat"
	CommandNetwork   CommandKind = "Network"
	CommandHandshake CommandKind = "Handshake"
	CommandGetFile   CommandKind = "GetFile"
	CommandPutFile   CommandKind = "PutFile"
	CommandExecute   CommandKind = "Execute"
)

// unitCommands serialize as a bare JSON string of their variant name.
var unitCommands = map[CommandKind]bool{
	CommandListFiles: true,
	CommandWhoami:    true,
	CommandInfo:      true,
	CommandPwd:       true,
	CommandUsers:     true,
	CommandNetstat:   true,
	CommandNetwork:   true,
	CommandHandshake: true,
}

// Command is the tagged union of every request a peer can send.
type Command struct {
	Kind CommandKind

	// Echo
	Message string

	// GetFile
	RemotePath string
	LocalPath  string

	// PutFile
	UpPath string
	Data   []byte

	// Execute
	Exec string
}

// Echo builds an Echo command.
func Echo(message string) Command { return Command{Kind: CommandEcho, Message: message} }

// GetFile builds a GetFile command.
func GetFile(remotePath, localPath string) Command {
	return Command{Kind: CommandGetFile, RemotePath: remotePath, LocalPath: localPath}
}

// PutFile builds a PutFile command. remotePath is the destination path
// on the receiving peer; data is the local file contents read eagerly
// by the sender.
func PutFile(remotePath, upPath string, data []byte) Command {
	return Command{Kind: CommandPutFile, RemotePath: remotePath, UpPath: upPath, Data: data}
}

// Execute builds an Execute command.
func Execute(command string) Command { return Command{Kind: CommandExecute, Exec: command} }

// Unit builds a Command for a variant that carries no payload
// (ListFiles, Whoami, Info, Pwd, Users, Netstat, Network, Handshake).
func Unit(kind CommandKind) Command { return Command{Kind: kind} }

type echoPayload struct {
	Message string `json:"message"`
}

type getFilePayload struct {
	RemotePath string `json:"remote_path"`
	LocalPath  string `json:"local_path"`
}

type putFilePayload struct {
	RemotePath string `json:"remote_path"`
	UpPath     string `json:"up_path"`
	Data       []byte `json:"data"`
}

type executePayload struct {
	Command string `json:"command"`
}

// MarshalJSON encodes c as an externally-tagged JSON value.
func (c Command) MarshalJSON() ([]byte, error) {
	if unitCommands[c.Kind] {
		return json.Marshal(string(c.Kind))
	}

	var payload interface{}
	switch c.Kind {
	case CommandEcho:
		payload = echoPayload{Message: c.Message}
	case CommandGetFile:
		payload = getFilePayload{RemotePath: c.RemotePath, LocalPath: c.LocalPath}
	case CommandPutFile:
		payload = putFilePayload{RemotePath: c.RemotePath, UpPath: c.UpPath, Data: c.Data}
	case CommandExecute:
		payload = executePayload{Command: c.Exec}
	default:
		return nil, fmt.Errorf("message: unknown command kind %q", c.Kind)
	}

	return json.Marshal(map[string]interface{}{string(c.Kind): payload})
}

// UnmarshalJSON decodes an externally-tagged Command.
func (c *Command) UnmarshalJSON(data []byte) error {
	var unit string
	if err := json.Unmarshal(data, &unit); err == nil {
		kind := CommandKind(unit)
		if !unitCommands[kind] {
			return fmt.Errorf("message: %q is not a unit command", unit)
		}
		*c = Command{Kind: kind}
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("message: not a command: %w", err)
	}
	if len(obj) != 1 {
		return fmt.Errorf("message: command object must have exactly one key, got %d", len(obj))
	}

	for key, raw := range obj {
		kind := CommandKind(key)
		switch kind {
		case CommandEcho:
			var p echoPayload
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			*c = Command{Kind: kind, Message: p.Message}
		case CommandGetFile:
			var p getFilePayload
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			*c = Command{Kind: kind, RemotePath: p.RemotePath, LocalPath: p.LocalPath}
		case CommandPutFile:
			var p putFilePayload
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			*c = Command{Kind: kind, RemotePath: p.RemotePath, UpPath: p.UpPath, Data: p.Data}
		case CommandExecute:
			var p executePayload
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			*c = Command{Kind: kind, Exec: p.Command}
		default:
			return fmt.Errorf("message: unknown command variant %q", key)
		}
	}
	return nil
}

// LooksLikeCommand reports whether data structurally matches a Command:
// either a recognized unit-variant string, or a single-key object whose
// key is a recognized struct-variant name.
func LooksLikeCommand(data []byte) bool {
	var unit string
	if err := json.Unmarshal(data, &unit); err == nil {
		return unitCommands[CommandKind(unit)]
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil || len(obj) != 1 {
		return false
	}
	for key := range obj {
		switch CommandKind(key) {
		case CommandEcho, CommandGetFile, CommandPutFile, CommandExecute:
			return true
		}
	}
	return false
}
