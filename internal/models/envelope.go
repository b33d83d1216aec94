package models

// Frame types exchanged over the realtime socket.
const (
	FrameRegister = "register"
	FrameMessage  = "message"
	FrameSystem   = "system"
)

// ClientFrame is what a connected client writes on the socket.
type ClientFrame struct {
	Type        string   `json:"type"`
	Sender      int      `json:"sender,omitempty"`
	Recipient   int      `json:"recipient,omitempty"`
	Content     string   `json:"content,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
}

// Envelope is a transient live frame pushed through the relay. It carries
// no conversation id; durability is the conversation store's job.
type Envelope struct {
	Type      string   `json:"type"`
	Sender    int      `json:"sender,omitempty"`
	Recipient int      `json:"recipient,omitempty"`
	Text      string   `json:"text,omitempty"`
	Message   *Message `json:"message,omitempty"`
}

// SystemEnvelope builds an ack or error frame addressed to one user.
func SystemEnvelope(recipient int, text string) Envelope {
	return Envelope{Type: FrameSystem, Recipient: recipient, Text: text}
}

// MessageEnvelope wraps a persisted message for live delivery.
func MessageEnvelope(msg Message) Envelope {
	m := msg
	return Envelope{
		Type:      FrameMessage,
		Sender:    msg.SenderID,
		Recipient: msg.RecipientID,
		Message:   &m,
	}
}
