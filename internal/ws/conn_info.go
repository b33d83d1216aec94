package ws

import "time"

// ConnInfo is the identity and tracing context captured at handshake
// time, attached to every event the session emits.
type ConnInfo struct {
	ConnID      string
	UserID      int
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
