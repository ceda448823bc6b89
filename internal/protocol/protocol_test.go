package protocol

import (
	"testing"

	"github.com/go-test/deep"
)

func TestTextCodecVerify(t *testing.T) {
	tests := map[string]struct {
		input []byte
		want  bool
	}{
		"plain ascii":        {[]byte("login alice hunter2"), true},
		"multibyte utf8":     {[]byte("héllo wörld"), true},
		"invalid utf8":       {[]byte{0xff, 0xfe}, false},
		"embedded nul":       {[]byte{'h', 'i', 0, '!'}, false},
		"empty":              {[]byte{}, true},
		"newline terminated": {[]byte("ping\r\n"), true},
	}

	codec := TextCodec{}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := codec.Verify(tt.input); got != tt.want {
				t.Errorf("Verify(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTextCodecRoundTrip(t *testing.T) {
	codec := TextCodec{}
	for _, text := range []string{"ping", "login alice hunter2", "héllo"} {
		encoded, err := codec.Encode(text)
		if err != nil {
			t.Fatalf("encode error: %v", err)
		}
		decoded, err := codec.Decode(encoded)
		if err != nil {
			t.Fatalf("decode error: %v", err)
		}
		if decoded != text {
			t.Errorf("round trip of %q produced %q", text, decoded)
		}
	}
}

func TestTextCodecEncodeRejectsTrailingNewline(t *testing.T) {
	// Decode trims trailing line endings, so encoding one would break the
	// round-trip guarantee.
	codec := TextCodec{}
	for _, text := range []string{"ping\n", "ping\r\n", "ping\r"} {
		if _, err := codec.Encode(text); err == nil {
			t.Errorf("expected an error encoding %q", text)
		}
	}

	// Interior newlines are representable and round-trip intact.
	encoded, err := codec.Encode("line one\nline two")
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}
	decoded, err := codec.Decode(encoded)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if decoded != "line one\nline two" {
		t.Errorf("round trip produced %q", decoded)
	}
}

func TestTextMessageRouting(t *testing.T) {
	tests := map[string]struct {
		text      string
		wantType  string
		wantEmpty bool
		wantArgs  []string
	}{
		"command with args": {
			text: "LOGIN alice hunter2", wantType: "login", wantArgs: []string{"alice", "hunter2"},
		},
		"bare command": {text: "ping", wantType: "ping"},
		"blank":        {text: "   ", wantType: "", wantEmpty: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			m := NewTextMessage(tt.text).(*TextMessage)
			if m.Type() != tt.wantType {
				t.Errorf("Type() = %q, want %q", m.Type(), tt.wantType)
			}
			if m.Empty() != tt.wantEmpty {
				t.Errorf("Empty() = %v, want %v", m.Empty(), tt.wantEmpty)
			}
			if diff := deep.Equal(tt.wantArgs, m.Args()); diff != nil {
				t.Errorf("Args() mismatch: %v", diff)
			}
		})
	}
}

func TestJSONCodecVerify(t *testing.T) {
	codec := JSONCodec{}

	if !codec.Verify([]byte(`  {"type":"chat"}`)) {
		t.Error("expected leading-whitespace object to verify")
	}
	if codec.Verify([]byte("plain text")) {
		t.Error("expected plain text not to verify")
	}
	if codec.Verify([]byte{}) {
		t.Error("expected empty input not to verify")
	}
}

func TestJSONCodecDecodeMalformed(t *testing.T) {
	// Verify's peek accepts this, so Decode must report it as a false
	// positive rather than an error.
	decoded, err := JSONCodec{}.Decode([]byte(`{"type":`))
	if err != nil {
		t.Fatalf("malformed json should not be an error, got %v", err)
	}
	if decoded != nil {
		t.Fatalf("malformed json should decode to nil, got %v", decoded)
	}
}

func TestJSONCodecRoundTrip(t *testing.T) {
	codec := JSONCodec{}
	value := map[string]any{"type": "chat", "text": "hello", "room": "lobby"}

	encoded, err := codec.Encode(value)
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}
	decoded, err := codec.Decode(encoded)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if diff := deep.Equal(value, decoded); diff != nil {
		t.Errorf("round trip mismatch: %v", diff)
	}
}

func TestJSONMessage(t *testing.T) {
	decoded, err := JSONCodec{}.Decode([]byte(`{"type":"login","username":"alice","password":"x"}`))
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}

	m := NewJSONMessage(decoded).(*JSONMessage)
	if m.Type() != "login" {
		t.Errorf("Type() = %q, want login", m.Type())
	}
	if !m.Valid() || m.Empty() {
		t.Errorf("expected valid non-empty message, got valid=%v empty=%v", m.Valid(), m.Empty())
	}
	if m.Field("username") != "alice" {
		t.Errorf("Field(username) = %q", m.Field("username"))
	}

	untyped := NewJSONMessage(map[string]any{"text": "hi"}).(*JSONMessage)
	if untyped.Valid() {
		t.Error("an envelope without a type tag should not be valid")
	}
}

func TestFrameCodecVerify(t *testing.T) {
	codec := FrameCodec{}

	frame, err := codec.Encode(&Frame{Opcode: 0x0042, Body: []byte("payload")})
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}

	if !codec.Verify(frame) {
		t.Error("encoded frame should verify")
	}
	if codec.Verify(frame[:len(frame)-1]) {
		t.Error("truncated frame should not verify")
	}
	if codec.Verify([]byte{1, 2}) {
		t.Error("undersized input should not verify")
	}
}

func TestFrameCodecRoundTrip(t *testing.T) {
	codec := FrameCodec{}
	frames := []*Frame{
		{Opcode: 0x0001, Body: []byte("a")},
		{Opcode: 0xBEEF, Body: []byte("some larger body with bytes \x00\x01\x02")},
	}

	for _, frame := range frames {
		encoded, err := codec.Encode(frame)
		if err != nil {
			t.Fatalf("encode error: %v", err)
		}
		decoded, err := codec.Decode(encoded)
		if err != nil {
			t.Fatalf("decode error: %v", err)
		}
		if diff := deep.Equal(frame, decoded); diff != nil {
			t.Errorf("round trip mismatch: %v", diff)
		}
	}
}

func TestFrameCodecRejectsOversizedBody(t *testing.T) {
	if _, err := (FrameCodec{}).Encode(&Frame{Body: make([]byte, 0x10000)}); err == nil {
		t.Error("expected an error for a body exceeding the length field")
	}
}

func TestFrameMessageRouting(t *testing.T) {
	m := NewFrameMessage(&Frame{Opcode: 0x0042}).(*FrameMessage)
	if m.Type() != "frame/0x0042" {
		t.Errorf("Type() = %q, want frame/0x0042", m.Type())
	}
	if m.Empty() {
		t.Error("decoded frame message should not be empty")
	}

	bad := NewFrameMessage("not a frame").(*FrameMessage)
	if !bad.Empty() || bad.Valid() {
		t.Error("non-frame payload should produce an empty, invalid message")
	}
}
