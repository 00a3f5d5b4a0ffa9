package sender

import (
	"fmt"
	"strings"

	"github.com/uplink-tool/uplink/internal/message"
)

// tokenTable maps every recognized uppercase alias to the Command kind
// it selects.
var tokenTable = map[string]message.CommandKind{
	"TEXT": message.CommandEcho, "ECHO": message.CommandEcho, "PRINT": message.CommandEcho, "MSG": message.CommandEcho, "T": message.CommandEcho,
	"L": message.CommandListFiles, "LIST": message.CommandListFiles, "LS": message.CommandListFiles, "DIR": message.CommandListFiles,
	"ID": message.CommandWhoami, "WHOAMI": message.CommandWhoami, "WHO": message.CommandWhoami, "W": message.CommandWhoami,
	"PWD": message.CommandPwd, "WHERE": message.CommandPwd,
	"USERS": message.CommandUsers,
	"NETSTAT": message.CommandNetstat,
	"N": message.CommandNetwork, "NETWORK": message.CommandNetwork, "IFCONFIG": message.CommandNetwork, "IPCONFIG": message.CommandNetwork,
	"SYSTEM": message.CommandInfo, "INFO": message.CommandInfo, "SYSTEMINFO": message.CommandInfo, "UNAME": message.CommandInfo,
	"D": message.CommandGetFile, "GET": message.CommandGetFile, "DOWNLOAD": message.CommandGetFile,
	"U": message.CommandPutFile, "PUT": message.CommandPutFile, "UPLOAD": message.CommandPutFile,
	"E": message.CommandExecute, "X": message.CommandExecute, "SHELL": message.CommandExecute, "EXEC": message.CommandExecute, "RUN": message.CommandExecute, "CMD": message.CommandExecute,
}

// helpTokens print local help and emit nothing on the wire.
var helpTokens = map[string]bool{"H": true, "HELP": true}

// ReadFileFunc reads a local file's contents for PutFile. A read
// failure yields empty data, not an error, matching the eager-read
// semantics of PutFile's argument parsing.
type ReadFileFunc func(path string) []byte

// ParseCommand parses one line of operator input into a Command.
// Returns an error describing why the line could not be parsed
// (unknown token, missing arguments); the caller should print it and
// continue, never send anything.
func ParseCommand(line string, readFile ReadFileFunc) (message.Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return message.Command{}, errEmptyLine
	}

	token, rest := splitFirstToken(line)
	upper := strings.ToUpper(token)
	if helpTokens[upper] {
		return message.Command{}, ErrHelp
	}

	kind, ok := tokenTable[upper]
	if !ok {
		return message.Command{}, fmt.Errorf("unknown command: %s", token)
	}

	switch kind {
	case message.CommandEcho:
		return message.Echo(rest), nil
	case message.CommandListFiles, message.CommandWhoami, message.CommandPwd, message.CommandUsers, message.CommandNetstat, message.CommandNetwork, message.CommandInfo:
		return message.Unit(kind), nil
	case message.CommandGetFile:
		remote, local, err := splitTwoArgs(rest)
		if err != nil {
			return message.Command{}, err
		}
		return message.GetFile(remote, local), nil
	case message.CommandPutFile:
		local, remote, err := splitTwoArgs(rest)
		if err != nil {
			return message.Command{}, err
		}
		data := readFile(local)
		return message.PutFile(remote, local, data), nil
	case message.CommandExecute:
		return message.Execute(rest), nil
	default:
		return message.Command{}, fmt.Errorf("unhandled command kind: %s", kind)
	}
}

var errEmptyLine = fmt.Errorf("empty line")

// ErrHelp is returned by ParseCommand when the line is a help-token
// request (H, HELP): the sender should print its help text locally and
// emit nothing on the wire.
var ErrHelp = fmt.Errorf("help requested")

// IsEmptyLine reports whether err is the sentinel ParseCommand returns
// for a blank line, which the sender should silently skip rather than
// report as a parse error.
func IsEmptyLine(err error) bool { return err == errEmptyLine }

func splitFirstToken(line string) (token, rest string) {
	idx := strings.IndexAny(line, " \t")
	if idx < 0 {
		return line, ""
	}
	return line[:idx], strings.TrimSpace(line[idx+1:])
}

// splitTwoArgs splits rest on the first whitespace run into exactly two
// non-empty parts, required by GetFile/PutFile.
func splitTwoArgs(rest string) (first, second string, err error) {
	idx := strings.IndexAny(rest, " \t")
	if idx <= 0 || strings.TrimSpace(rest[idx+1:]) == "" {
		return "", "", fmt.Errorf("expected two arguments, got: %q", rest)
	}
	return rest[:idx], strings.TrimSpace(rest[idx+1:]), nil
}
