// Package wsgate implements the WebSocket protocol (RFC 6455): the opening
// handshake, frame codec, and a channel-driven connection manager. Accept and
// Dial produce a Conn whose Send/Receive API deals in whole messages; framing,
// masking, fragmentation, and control-frame handling happen behind it.
package wsgate

// MessageType distinguishes the two data message kinds.
type MessageType uint8

const (
	TextMessage MessageType = iota + 1
	BinaryMessage
)

// Message is a complete, reassembled WebSocket message. Text messages carry
// valid UTF-8; a received text message that fails validation never surfaces
// here (the connection is failed with status 1007 instead).
type Message struct {
	Type    MessageType
	Payload []byte
}

// NewTextMessage wraps s in a text message.
func NewTextMessage(s string) Message {
	return Message{Type: TextMessage, Payload: []byte(s)}
}

// NewBinaryMessage wraps p in a binary message. The slice is not copied.
func NewBinaryMessage(p []byte) Message {
	return Message{Type: BinaryMessage, Payload: p}
}

func (m Message) IsText() bool   { return m.Type == TextMessage }
func (m Message) IsBinary() bool { return m.Type == BinaryMessage }

// Text returns the payload as a string.
func (m Message) Text() string { return string(m.Payload) }
