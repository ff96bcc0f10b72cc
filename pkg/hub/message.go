// Package hub fans JSON messages out to websocket clients over channels.
// Slow clients are dropped rather than allowed to stall the broadcaster.
package hub

import "encoding/json"

// Message is one broadcast payload. Topic lets a client tell streams apart.
type Message struct {
	Topic string
	Data  []byte
}

// NewMessage encodes v as JSON under topic.
func NewMessage(topic string, v any) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return Message{Topic: topic, Data: data}, nil
}
