// Package protocol contains the wire formats the stock server registers:
// a newline-friendly text format used as the default fallback, a JSON
// envelope, and a length-prefixed binary frame. Each format is self
// contained; the socket runtime only ever sees them through the Codec and
// Message interfaces.
package protocol

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sablehq/sable/internal/socket"
)

// TextCodec handles plain UTF-8 text commands of the form
// "<command> [args...]". It is the designated fallback format.
type TextCodec struct{}

func (TextCodec) Name() string { return "text" }

// Verify accepts any valid UTF-8 that contains no NUL bytes.
func (TextCodec) Verify(data []byte) bool {
	if !utf8.Valid(data) {
		return false
	}
	for _, b := range data {
		if b == 0 {
			return false
		}
	}
	return true
}

// Encode rejects strings with trailing newline characters: Decode strips
// them from inbound lines, so such a value could not survive a round trip.
func (TextCodec) Encode(v any) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("text codec can only encode strings, got %T", v)
	}
	if strings.HasSuffix(s, "\n") || strings.HasSuffix(s, "\r") {
		return nil, errors.New("text codec cannot encode a trailing newline")
	}
	return []byte(s), nil
}

func (TextCodec) Decode(data []byte) (any, error) {
	if !utf8.Valid(data) {
		return nil, nil
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// TextMessage routes by its first whitespace-separated token, lowercased, so
// "LOGIN alice hunter2" reaches the handler registered for "login".
type TextMessage struct {
	text string
}

func NewTextMessage(decoded any) socket.Message {
	text, _ := decoded.(string)
	return &TextMessage{text: text}
}

func (m *TextMessage) Type() string {
	fields := strings.Fields(m.text)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

func (m *TextMessage) Valid() bool { return true }

func (m *TextMessage) Empty() bool { return strings.TrimSpace(m.text) == "" }

func (m *TextMessage) Payload() any { return m.text }

// Text returns the full message text.
func (m *TextMessage) Text() string { return m.text }

// Args returns the tokens following the command.
func (m *TextMessage) Args() []string {
	fields := strings.Fields(m.text)
	if len(fields) <= 1 {
		return nil
	}
	return fields[1:]
}

// TextFormat pairs the codec with its message factory.
func TextFormat() *socket.Format {
	return &socket.Format{Codec: TextCodec{}, NewMessage: NewTextMessage}
}
