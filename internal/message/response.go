package message

import (
	"encoding/json"
	"fmt"
)

// ResponseKind identifies a Response variant.
type ResponseKind string

const (
	ResponseMessage       ResponseKind = "Message"
	ResponseFileList      ResponseKind = "FileList"
	ResponseUserList      ResponseKind = "UserList"
	ResponseFileData      ResponseKind = "FileData"
	ResponseCommandOutput ResponseKind = "CommandOutput"
	ResponseHandshake     ResponseKind = "Handshake"
)

// Response is the tagged union of every reply a peer can send.
type Response struct {
	Kind ResponseKind

	// Message
	Content string

	// FileList
	Files []string

	// UserList
	Users []string

	// FileData
	FilePath string
	Data     []byte

	// CommandOutput
	Output string

	// Handshake
	PublicKeyPEM []byte
}

// Message builds a Message response.
func Message(content string) Response { return Response{Kind: ResponseMessage, Content: content} }

// FileList builds a FileList response.
func FileList(files []string) Response { return Response{Kind: ResponseFileList, Files: files} }

// UserList builds a UserList response.
func UserList(users []string) Response { return Response{Kind: ResponseUserList, Users: users} }

// FileData builds a FileData response. filePath carries the local
// destination path when this is the reply to a GetFile request.
func FileData(filePath string, data []byte) Response {
	return Response{Kind: ResponseFileData, FilePath: filePath, Data: data}
}

// CommandOutput builds a CommandOutput response.
func CommandOutput(output string) Response {
	return Response{Kind: ResponseCommandOutput, Output: output}
}

// Handshake builds a Handshake response carrying a PEM-encoded public key.
func Handshake(publicKeyPEM []byte) Response {
	return Response{Kind: ResponseHandshake, PublicKeyPEM: publicKeyPEM}
}

type contentPayload struct {
	Content string `json:"content"`
}

type fileListPayload struct {
	Files []string `json:"files"`
}

type userListPayload struct {
	Users []string `json:"users"`
}

type fileDataPayload struct {
	FilePath string `json:"file_path"`
	Data     []byte `json:"data"`
}

type outputPayload struct {
	Output string `json:"output"`
}

type handshakePayload struct {
	PublicKey []byte `json:"public_key"`
}

// MarshalJSON encodes r as an externally-tagged JSON value.
func (r Response) MarshalJSON() ([]byte, error) {
	var payload interface{}
	switch r.Kind {
	case ResponseMessage:
		payload = contentPayload{Content: r.Content}
	case ResponseFileList:
		payload = fileListPayload{Files: r.Files}
	case ResponseUserList:
		payload = userListPayload{Users: r.Users}
	case ResponseFileData:
		payload = fileDataPayload{FilePath: r.FilePath, Data: r.Data}
	case ResponseCommandOutput:
		payload = outputPayload{Output: r.Output}
	case ResponseHandshake:
		payload = handshakePayload{PublicKey: r.PublicKeyPEM}
	default:
		return nil, fmt.Errorf("message: unknown response kind %q", r.Kind)
	}
	return json.Marshal(map[string]interface{}{string(r.Kind): payload})
}

// UnmarshalJSON decodes an externally-tagged Response.
func (r *Response) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("message: not a response: %w", err)
	}
	if len(obj) != 1 {
		return fmt.Errorf("message: response object must have exactly one key, got %d", len(obj))
	}

	for key, raw := range obj {
		kind := ResponseKind(key)
		switch kind {
		case ResponseMessage:
			var p contentPayload
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			*r = Response{Kind: kind, Content: p.Content}
		case ResponseFileList:
			var p fileListPayload
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			*r = Response{Kind: kind, Files: p.Files}
		case ResponseUserList:
			var p userListPayload
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			*r = Response{Kind: kind, Users: p.Users}
		case ResponseFileData:
			var p fileDataPayload
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			*r = Response{Kind: kind, FilePath: p.FilePath, Data: p.Data}
		case ResponseCommandOutput:
			var p outputPayload
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			*r = Response{Kind: kind, Output: p.Output}
		case ResponseHandshake:
			var p handshakePayload
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			*r = Response{Kind: kind, PublicKeyPEM: p.PublicKey}
		default:
			return fmt.Errorf("message: unknown response variant %q", key)
		}
	}
	return nil
}

// LooksLikeResponse reports whether data structurally matches a
// Response: a single-key object whose key is a recognized variant name.
func LooksLikeResponse(data []byte) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil || len(obj) != 1 {
		return false
	}
	for key := range obj {
		switch ResponseKind(key) {
		case ResponseMessage, ResponseFileList, ResponseUserList, ResponseFileData, ResponseCommandOutput, ResponseHandshake:
			return true
		}
	}
	return false
}
