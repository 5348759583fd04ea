// Package wsserver serves hotkey notifications to UI observers over
// WebSocket.
//
// # Frame protocol
//
// Every server frame is a JSON text message:
//
//	{"type":"hotkey-triggered","id":"<uuid>","at":"<RFC3339>","payload":{...}}
//
// Clients may send {"action":"subscribe"|"unsubscribe","events":[...]} to
// narrow the event types they receive. New clients receive every type.
package wsserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	EventHotkeyTriggered = "hotkey-triggered"
	EventEngineState     = "engine-state"
	EventConfigReloaded  = "config-reloaded"
	EventError           = "error"
)

// knownEvents lists the types a client may subscribe to.
var knownEvents = map[string]bool{
	EventHotkeyTriggered: true,
	EventEngineState:     true,
	EventConfigReloaded:  true,
}

// Notification is one server-to-client frame.
type Notification struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// TriggeredPayload is the payload of EventHotkeyTriggered.
type TriggeredPayload struct {
	HotkeyID    int       `json:"hotkey_id"`
	Action      string    `json:"action"`
	DisplayName string    `json:"display_name"`
	Binding     string    `json:"binding"`
	TriggeredAt time.Time `json:"triggered_at"`
}

// EngineStatePayload is the payload of EventEngineState.
type EngineStatePayload struct {
	State     string `json:"state"`
	HookAlive bool   `json:"hook_alive"`
	Detail    string `json:"detail,omitempty"`
}

// ConfigReloadedPayload is the payload of EventConfigReloaded.
type ConfigReloadedPayload struct {
	Hotkeys int    `json:"hotkeys"`
	Error   string `json:"error,omitempty"`
}

// EncodeNotification builds a frame of eventType with a fresh id.
func EncodeNotification(eventType string, payload any, at time.Time) ([]byte, error) {
	if eventType == "" {
		return nil, errors.New("wsserver: encode notification: event type must not be empty")
	}
	n := Notification{Type: eventType, ID: uuid.NewString(), At: at.UTC()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("wsserver: encode %s payload: %w", eventType, err)
		}
		n.Payload = raw
	}
	return json.Marshal(n)
}

// DecodeNotification parses a frame produced by EncodeNotification.
func DecodeNotification(frame []byte) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(frame, &n); err != nil {
		return Notification{}, fmt.Errorf("wsserver: decode notification: %w", err)
	}
	if n.Type == "" {
		return Notification{}, errors.New("wsserver: decode notification: missing type")
	}
	return n, nil
}
