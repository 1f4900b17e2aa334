package model

import "encoding/json"

// Sync message types. Subscribers ignore unknown types; they are not errors.
const (
	MsgAuth           = "auth"
	MsgPing           = "ping"
	MsgPong           = "pong"
	MsgConnected      = "connected"
	MsgUpdateTime     = "updateTime"
	MsgUpdatePause    = "updatePause"
	MsgUpdatePlaylist = "updatePlaylist"
	MsgSwitchVideo    = "switchVideo"
	MsgUpdateUserList = "updateUserList"
)

// SyncMessage is the wire envelope for both transports: {"type", "payload"}.
// Payload stays raw so a message can be relayed without re-encoding and
// decoded per type on receipt.
type SyncMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewSyncMessage builds an envelope, marshalling payload. A nil payload
// produces a bare {"type": ...} message.
func NewSyncMessage(msgType string, payload any) (SyncMessage, error) {
	msg := SyncMessage{Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return SyncMessage{}, err
		}
		msg.Payload = raw
	}
	return msg, nil
}

// DecodePayload unmarshals the payload into v.
func (m SyncMessage) DecodePayload(v any) error {
	return json.Unmarshal(m.Payload, v)
}

// AuthPayload is sent by duplex clients as their first message.
type AuthPayload struct {
	UserID uint `json:"userId"`
	RoomID uint `json:"roomId"`
}

// UpdateTimePayload carries a full authoritative play-status replacement.
type UpdateTimePayload struct {
	RoomID    uint    `json:"roomId"`
	UserID    uint    `json:"userId"`
	Paused    bool    `json:"paused"`
	Time      float64 `json:"time"`
	Timestamp int64   `json:"timestamp"`
	VideoID   uint    `json:"videoId"`
}

// UpdatePausePayload carries a pause/resume transition. Time is left at its
// last authoritative value; receivers extrapolate.
type UpdatePausePayload struct {
	RoomID    uint  `json:"roomId"`
	UserID    uint  `json:"userId"`
	Paused    bool  `json:"paused"`
	Timestamp int64 `json:"timestamp"`
}

// SwitchVideoPayload announces the active playlist item changed and playback
// restarted from zero.
type SwitchVideoPayload struct {
	RoomID    uint  `json:"roomId"`
	VideoID   uint  `json:"videoId"`
	Timestamp int64 `json:"timestamp"`
}

// RoomPayload is the payload of refresh notifications (updatePlaylist,
// updateUserList): clients re-query the named room over HTTP.
type RoomPayload struct {
	RoomID uint `json:"roomId"`
}
