package socket

// Message is a decoded inbound message ready for dispatch.
type Message interface {
	// Type is the logical type tag used to route the message to handlers.
	Type() string
	// Valid reports whether the payload passed the codec's structural checks.
	Valid() bool
	// Empty reports whether the message carries no content. Empty messages
	// are logged and skipped, never dispatched.
	Empty() bool
	// Payload returns the codec's decoded value.
	Payload() any
}
