// Package hub fans render messages out to websocket viewers, grouped by session,
// using a channel-based register/unregister/broadcast loop.
package hub

// Message is one encoded payload for every viewer of a topic.
type Message struct {
	Topic string
	Data  []byte
}

// NewMessage creates a message for the given topic from pre-encoded bytes.
func NewMessage(topic string, data []byte) Message {
	return Message{Topic: topic, Data: data}
}
