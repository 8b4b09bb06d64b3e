package protocol

import (
	"github.com/DoyleJ11/farkle-backend/internal/dice"
	"github.com/DoyleJ11/farkle-backend/internal/engine"
)

type EventType string

const (
	// Client -> Server
	EvtCreateRoom  EventType = "create_room"
	EvtJoinRoom    EventType = "join_room"
	EvtRename      EventType = "rename"
	EvtLeaveRoom   EventType = "leave_room"
	EvtPlayerReady EventType = "player_ready"

	// Server -> Client
	EvtRoomCreated    EventType = "room_created"
	EvtRoomJoinResult EventType = "room_join_result"
	EvtRoomClosed     EventType = "room_closed"
	EvtPlayerRename   EventType = "player_rename"
	EvtMessage        EventType = "message"
	EvtGameStart      EventType = "game_start"

	// Both directions, relayed between peers
	EvtGameRoll       EventType = "game_roll"
	EvtGameSelect     EventType = "game_select"
	EvtGameTurnLost   EventType = "game_turn_lost"
	EvtGameTurnScored EventType = "game_turn_scored"
	EvtGameWon        EventType = "game_won"
)

// IsGameEvent reports events that the relay forwards between peers.
func IsGameEvent(t EventType) bool {
	switch t {
	case EvtGameRoll, EvtGameSelect, EvtGameTurnLost, EvtGameTurnScored, EvtGameWon:
		return true
	}
	return false
}

type Role string

const (
	RoleNone      Role = ""
	RoleCreator   Role = "creator"
	RoleOpponent  Role = "opponent"
	RoleSpectator Role = "spectator"
)

func (r Role) Playing() bool { return r == RoleCreator || r == RoleOpponent }

// Side maps a playing role to its board index. The creator always plays first.
func (r Role) Side() (engine.Player, bool) {
	switch r {
	case RoleCreator:
		return engine.PlayerOne, true
	case RoleOpponent:
		return engine.PlayerTwo, true
	}
	return 0, false
}

// Other returns the opposing playing role.
func (r Role) Other() Role {
	switch r {
	case RoleCreator:
		return RoleOpponent
	case RoleOpponent:
		return RoleCreator
	}
	return RoleNone
}

// Message is implemented by every event payload in this package.
type Message interface {
	Type() EventType
}

type CreateRoom struct {
	DisplayName string `json:"displayName"`
}

type JoinRoom struct {
	RoomID      string `json:"roomId"`
	DisplayName string `json:"displayName"`
}

type Rename struct {
	DisplayName string `json:"displayName"`
}

type LeaveRoom struct{}

type PlayerReady struct{}

type RoomCreated struct {
	RoomID string `json:"roomId"`
}

type RoomJoinResult struct {
	OK          bool   `json:"ok"`
	Role        Role   `json:"role,omitempty"`
	CreatorName string `json:"creatorName,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

type RoomClosed struct{}

type PlayerRename struct {
	Role Role   `json:"role"`
	Name string `json:"name"`
}

// Notice is an informational line for the player, such as "Opponent joined".
type Notice struct {
	Text string `json:"text"`
}

type GameStart struct{}

type DieProps struct {
	Value      int  `json:"value"`
	IsSelected bool `json:"isSelected"`
	IsStored   bool `json:"isStored"`
}

type GameRoll struct {
	Dice        [engine.DiceCount]DieProps `json:"dice"`
	StoredScore int                        `json:"storedScore"`
}

type GameSelect struct {
	DieIndex   int  `json:"dieIndex"`
	IsSelected bool `json:"isSelected"`
}

type GameTurnLost struct{}

type GameTurnScored struct {
	TotalScore [2]int `json:"totalScore"`
}

type GameWon struct {
	TotalScore [2]int `json:"totalScore"`
}

func (CreateRoom) Type() EventType     { return EvtCreateRoom }
func (JoinRoom) Type() EventType       { return EvtJoinRoom }
func (Rename) Type() EventType         { return EvtRename }
func (LeaveRoom) Type() EventType      { return EvtLeaveRoom }
func (PlayerReady) Type() EventType    { return EvtPlayerReady }
func (RoomCreated) Type() EventType    { return EvtRoomCreated }
func (RoomJoinResult) Type() EventType { return EvtRoomJoinResult }
func (RoomClosed) Type() EventType     { return EvtRoomClosed }
func (PlayerRename) Type() EventType   { return EvtPlayerRename }
func (Notice) Type() EventType         { return EvtMessage }
func (GameStart) Type() EventType      { return EvtGameStart }
func (GameRoll) Type() EventType       { return EvtGameRoll }
func (GameSelect) Type() EventType     { return EvtGameSelect }
func (GameTurnLost) Type() EventType   { return EvtGameTurnLost }
func (GameTurnScored) Type() EventType { return EvtGameTurnScored }
func (GameWon) Type() EventType        { return EvtGameWon }

// NewGameRoll captures a board's dice for the peer.
func NewGameRoll(states [engine.DiceCount]engine.DieState, storedScore int) GameRoll {
	m := GameRoll{StoredScore: storedScore}
	for i, s := range states {
		m.Dice[i] = DieProps{Value: int(s.Value), IsSelected: s.Selected, IsStored: s.Stored}
	}
	return m
}

func (m GameRoll) DiceStates() [engine.DiceCount]engine.DieState {
	var out [engine.DiceCount]engine.DieState
	for i, d := range m.Dice {
		out[i] = engine.DieState{Value: dice.Value(d.Value), Selected: d.IsSelected, Stored: d.IsStored}
	}
	return out
}
