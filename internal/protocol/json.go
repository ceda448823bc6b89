package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/sablehq/sable/internal/socket"
)

// JSONCodec handles messages shaped as a JSON object with a "type" field,
// e.g. {"type":"chat","text":"hi"}.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

// Verify only peeks at the first non-whitespace byte; full validation is
// Decode's job.
func (JSONCodec) Verify(data []byte) bool {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '{':
			return true
		default:
			return false
		}
	}
	return false
}

func (JSONCodec) Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding json message: %w", err)
	}
	return data, nil
}

// Decode returns (nil, nil) for data that is not actually well-formed JSON:
// Verify's peek is cheap by contract, so false positives are expected here.
func (JSONCodec) Decode(data []byte) (any, error) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, nil
	}
	return fields, nil
}

// JSONMessage routes by the envelope's "type" field.
type JSONMessage struct {
	fields map[string]any
}

func NewJSONMessage(decoded any) socket.Message {
	fields, _ := decoded.(map[string]any)
	return &JSONMessage{fields: fields}
}

func (m *JSONMessage) Type() string {
	t, _ := m.fields["type"].(string)
	return t
}

// Valid reports whether the envelope carries a routable type tag.
func (m *JSONMessage) Valid() bool { return m.Type() != "" }

func (m *JSONMessage) Empty() bool { return len(m.fields) == 0 }

func (m *JSONMessage) Payload() any { return m.fields }

// Field returns one envelope field as a string.
func (m *JSONMessage) Field(name string) string {
	v, _ := m.fields[name].(string)
	return v
}

// JSONFormat pairs the codec with its message factory.
func JSONFormat() *socket.Format {
	return &socket.Format{Codec: JSONCodec{}, NewMessage: NewJSONMessage}
}
