// Package protocol defines the wire vocabulary spoken with the musicbox
// server: the outbound and inbound envelopes, the closed command and event
// sets, and the decoded domain state.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Envelope discriminator tags. Outbound frames are Request or Command,
// inbound frames are Response or Event.
const (
	TypeRequest  = "Request"
	TypeCommand  = "Command"
	TypeResponse = "Response"
	TypeEvent    = "Event"
)

// Request is the outbound correlated-request envelope. Data is opaque at
// this layer; the endpoint's schema gives it meaning on the way back.
type Request struct {
	Type string          `json:"type"`
	ID   uint64          `json:"id"`
	Path string          `json:"path"`
	Data json.RawMessage `json:"data,omitempty"`
}

// CommandEnvelope is the outbound fire-and-forget envelope.
type CommandEnvelope struct {
	Type    string  `json:"type"`
	Command Command `json:"command"`
}

// ServerMessage is the inbound envelope. Exactly one of Response or Event is
// populated, per Type. Both payloads stay raw until decoded by the caller.
type ServerMessage struct {
	Type     string          `json:"type"`
	ID       uint64          `json:"id"`
	Response json.RawMessage `json:"response"`
	Event    json.RawMessage `json:"event"`
}

// DecodeServerMessage parses an inbound frame and rejects unknown envelope
// tags as protocol errors.
func DecodeServerMessage(data []byte) (ServerMessage, error) {
	var msg ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ServerMessage{}, fmt.Errorf("malformed frame: %w", err)
	}
	switch msg.Type {
	case TypeResponse, TypeEvent:
		return msg, nil
	default:
		return ServerMessage{}, fmt.Errorf("unknown envelope tag %q", msg.Type)
	}
}

// EncodeRequest frames a correlated request for the wire.
func EncodeRequest(id uint64, path string, data json.RawMessage) ([]byte, error) {
	return json.Marshal(Request{Type: TypeRequest, ID: id, Path: path, Data: data})
}

// EncodeCommand frames a fire-and-forget command for the wire.
func EncodeCommand(cmd Command) ([]byte, error) {
	if !KnownCommand(cmd.Type) {
		return nil, fmt.Errorf("unknown command tag %q", cmd.Type)
	}
	return json.Marshal(CommandEnvelope{Type: TypeCommand, Command: cmd})
}
