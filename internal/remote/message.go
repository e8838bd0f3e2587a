// Package remote carries debug control changes between the debug panel and
// the rendering process over a websocket.
package remote

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/janessatran/portal/internal/debug"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Path is the endpoint the server mounts the websocket on.
const Path = "/controls"

// Message types.
const (
	TypeSnapshot = "snapshot"
	TypeSet      = "set"
	TypeAck      = "ack"
	TypeError    = "error"
)

// ControlState is a control with its current value.
type ControlState struct {
	debug.Control
	Value interface{} `json:"value"`
}

// Message is the single envelope used in both directions. ID pairs a set
// with its ack or error.
type Message struct {
	Type     string         `json:"type"`
	ID       uint64         `json:"id,omitempty"`
	Name     string         `json:"name,omitempty"`
	Value    interface{}    `json:"value,omitempty"`
	Error    string         `json:"error,omitempty"`
	Controls []ControlState `json:"controls,omitempty"`
}

func encode(m Message) ([]byte, error) { return json.Marshal(m) }

func decode(data []byte) (Message, error) {
	var m Message
	err := json.Unmarshal(data, &m)
	return m, err
}
