// Package gateway speaks to the chat platform: an HTTP API for outbound
// replies and a websocket feed for inbound messages.
package gateway

// Message is one inbound chat event from the websocket feed.
type Message struct {
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	Text      string `json:"text"`
}

// ReplyRequest is the outbound payload for both text and image replies.
type ReplyRequest struct {
	Type      string `json:"type"`
	ChannelID string `json:"channel_id"`
	Data      string `json:"data"`
}

// HealthResponse is the gateway liveness probe payload.
type HealthResponse struct {
	Status string `json:"status"`
}

type WebSocketState int

const (
	WSStateDisconnected WebSocketState = iota
	WSStateConnecting
	WSStateConnected
	WSStateReconnecting
	WSStateFailed
)

func (s WebSocketState) String() string {
	switch s {
	case WSStateConnecting:
		return "connecting"
	case WSStateConnected:
		return "connected"
	case WSStateReconnecting:
		return "reconnecting"
	case WSStateFailed:
		return "failed"
	default:
		return "disconnected"
	}
}
