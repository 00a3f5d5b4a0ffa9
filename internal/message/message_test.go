package message

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestUnitCommandMarshalsAsBareString(t *testing.T) {
	data, err := json.Marshal(Unit(CommandWhoami))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"Whoami"` {
		t.Fatalf("got %s, want %q", data, `"Whoami"`)
	}
}

func TestEchoMarshalsAsTaggedObject(t *testing.T) {
	data, err := json.Marshal(Echo("hello"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"Echo":{"message":"hello"}}`
	if string(data) != want {
		t.Fatalf("got %s, want %s", data, want)
	}
}

func TestCommandRoundTrip(t *testing.T) {
	cases := []Command{
		Echo("hello world"),
		Unit(CommandListFiles),
		Unit(CommandHandshake),
		GetFile("/remote/a.txt", "/local/a.txt"),
		PutFile("/remote/b.txt", "/local/b.txt", []byte("data")),
		Execute("uname -a"),
	}
	for _, c := range cases {
		data, err := json.Marshal(c)
		if err != nil {
			t.Fatalf("marshal %v: %v", c.Kind, err)
		}
		if !LooksLikeCommand(data) {
			t.Fatalf("%s did not classify as a command", data)
		}

		var decoded Command
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unmarshal %v: %v", c.Kind, err)
		}
		if !reflect.DeepEqual(decoded, c) {
			t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, c)
		}
	}
}

func TestResponseRoundTrip(t *testing.T) {
	cases := []Response{
		Message("hi"),
		FileList([]string{"a.txt", "b.txt"}),
		UserList([]string{"root", "alice"}),
		FileData("/local/dest.txt", []byte("payload")),
		CommandOutput("total 0\n"),
		Handshake([]byte("-----BEGIN RSA PUBLIC KEY-----\n...\n-----END RSA PUBLIC KEY-----\n")),
	}
	for _, r := range cases {
		data, err := json.Marshal(r)
		if err != nil {
			t.Fatalf("marshal %v: %v", r.Kind, err)
		}
		if !LooksLikeResponse(data) {
			t.Fatalf("%s did not classify as a response", data)
		}

		var decoded Response
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unmarshal %v: %v", r.Kind, err)
		}
		if !reflect.DeepEqual(decoded, r) {
			t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, r)
		}
	}
}

func TestClassificationIsMutuallyExclusive(t *testing.T) {
	cmd, _ := json.Marshal(Echo("hi"))
	if LooksLikeResponse(cmd) {
		t.Fatal("Command should not classify as Response")
	}

	resp, _ := json.Marshal(Message("hi"))
	if LooksLikeCommand(resp) {
		t.Fatal("Response should not classify as Command")
	}
}
