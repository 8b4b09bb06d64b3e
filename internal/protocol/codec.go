package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrBadEnvelope = errors.New("bad envelope")
var ErrUnknownType = errors.New("unknown message type")
var ErrBadPayload = errors.New("bad payload")

type envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type decodeFunc func(json.RawMessage) (Message, error)

var registry = map[EventType]decodeFunc{
	EvtCreateRoom:     decoder[CreateRoom](),
	EvtJoinRoom:       decoder[JoinRoom](),
	EvtRename:         decoder[Rename](),
	EvtLeaveRoom:      decoder[LeaveRoom](),
	EvtPlayerReady:    decoder[PlayerReady](),
	EvtRoomCreated:    decoder[RoomCreated](),
	EvtRoomJoinResult: decoder[RoomJoinResult](),
	EvtRoomClosed:     decoder[RoomClosed](),
	EvtPlayerRename:   decoder[PlayerRename](),
	EvtMessage:        decoder[Notice](),
	EvtGameStart:      decoder[GameStart](),
	EvtGameRoll:       decoder[GameRoll](),
	EvtGameSelect:     decoder[GameSelect](),
	EvtGameTurnLost:   decoder[GameTurnLost](),
	EvtGameTurnScored: decoder[GameTurnScored](),
	EvtGameWon:        decoder[GameWon](),
}

func decoder[T Message]() decodeFunc {
	return func(raw json.RawMessage) (Message, error) {
		var m T
		if len(raw) == 0 || string(raw) == "null" {
			return m, nil
		}
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		return m, nil
	}
}

// Encode wraps a message in its typed envelope.
func Encode(m Message) ([]byte, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Type(), err)
	}
	return json.Marshal(envelope{Type: m.Type(), Payload: payload})
}

// Decode parses an envelope and returns the concrete message value.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}
	decode, ok := registry[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	m, err := decode(env.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return m, nil
}
