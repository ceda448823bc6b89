package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/sablehq/sable/internal/socket"
)

// frameHeaderSize is the fixed preamble of the binary format: a little-endian
// uint16 total length followed by a uint16 opcode.
const frameHeaderSize = 4

// Frame is the decoded form of one binary frame.
type Frame struct {
	Opcode uint16
	Body   []byte
}

// FrameCodec handles length-prefixed binary frames. The length field covers
// the whole frame including the header, which is what lets Verify reject
// frames of the wrong size cheaply.
type FrameCodec struct{}

func (FrameCodec) Name() string { return "frame" }

func (FrameCodec) Verify(data []byte) bool {
	if len(data) < frameHeaderSize || len(data) > 0xFFFF {
		return false
	}
	return int(binary.LittleEndian.Uint16(data[0:2])) == len(data)
}

func (FrameCodec) Encode(v any) ([]byte, error) {
	frame, ok := v.(*Frame)
	if !ok {
		return nil, fmt.Errorf("frame codec can only encode *Frame, got %T", v)
	}

	size := frameHeaderSize + len(frame.Body)
	if size > 0xFFFF {
		return nil, fmt.Errorf("frame body of %d bytes exceeds the length field", len(frame.Body))
	}

	data := make([]byte, size)
	binary.LittleEndian.PutUint16(data[0:2], uint16(size))
	binary.LittleEndian.PutUint16(data[2:4], frame.Opcode)
	copy(data[frameHeaderSize:], frame.Body)
	return data, nil
}

func (FrameCodec) Decode(data []byte) (any, error) {
	if len(data) < frameHeaderSize {
		return nil, nil
	}
	if int(binary.LittleEndian.Uint16(data[0:2])) != len(data) {
		return nil, nil
	}

	body := make([]byte, len(data)-frameHeaderSize)
	copy(body, data[frameHeaderSize:])
	return &Frame{
		Opcode: binary.LittleEndian.Uint16(data[2:4]),
		Body:   body,
	}, nil
}

// FrameMessage routes by opcode, rendered as "frame/0x%04x".
type FrameMessage struct {
	frame *Frame
}

func NewFrameMessage(decoded any) socket.Message {
	frame, _ := decoded.(*Frame)
	return &FrameMessage{frame: frame}
}

// FrameType renders an opcode as the message type handlers register under.
func FrameType(opcode uint16) string {
	return fmt.Sprintf("frame/0x%04x", opcode)
}

func (m *FrameMessage) Type() string {
	if m.frame == nil {
		return ""
	}
	return FrameType(m.frame.Opcode)
}

func (m *FrameMessage) Valid() bool { return m.frame != nil }

func (m *FrameMessage) Empty() bool { return m.frame == nil }

func (m *FrameMessage) Payload() any { return m.frame }

// Frame returns the decoded frame.
func (m *FrameMessage) Frame() *Frame { return m.frame }

// FrameFormat pairs the codec with its message factory.
func FrameFormat() *socket.Format {
	return &socket.Format{Codec: FrameCodec{}, NewMessage: NewFrameMessage}
}
