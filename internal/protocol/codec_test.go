package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/farkle-backend/internal/dice"
	"github.com/DoyleJ11/farkle-backend/internal/engine"
)

func TestDecode_WireFormat(t *testing.T) {
	cases := []struct {
		name string
		data string
		want Message
	}{
		{
			name: "join room",
			data: `{"type":"join_room","payload":{"roomId":"ABC123","displayName":"Ann"}}`,
			want: JoinRoom{RoomID: "ABC123", DisplayName: "Ann"},
		},
		{
			name: "select",
			data: `{"type":"game_select","payload":{"dieIndex":3,"isSelected":true}}`,
			want: GameSelect{DieIndex: 3, IsSelected: true},
		},
		{
			name: "ready without payload",
			data: `{"type":"player_ready"}`,
			want: PlayerReady{},
		},
		{
			name: "turn scored",
			data: `{"type":"game_turn_scored","payload":{"totalScore":[350,0]}}`,
			want: GameTurnScored{TotalScore: [2]int{350, 0}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode([]byte(tc.data))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	assert.ErrorIs(t, err, ErrBadEnvelope)

	_, err = Decode([]byte(`{"type":"fly_away"}`))
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = Decode([]byte(`{"type":"game_select","payload":{"dieIndex":"three"}}`))
	assert.ErrorIs(t, err, ErrBadPayload)
}

func TestEncode_RoomJoinResultFailure(t *testing.T) {
	data, err := Encode(RoomJoinResult{Reason: "room not found"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"room_join_result","payload":{"ok":false,"reason":"room not found"}}`, string(data))
}

func TestGameRoll_CarriesBoard(t *testing.T) {
	states := [engine.DiceCount]engine.DieState{
		{Value: dice.One, Stored: true},
		{Value: dice.Five, Selected: true},
		{Value: dice.Two}, {Value: dice.Three}, {Value: dice.Four}, {Value: dice.Six},
	}

	data, err := Encode(NewGameRoll(states, 100))
	require.NoError(t, err)

	m, err := Decode(data)
	require.NoError(t, err)
	roll, ok := m.(GameRoll)
	require.True(t, ok)
	assert.Equal(t, states, roll.DiceStates())
	assert.Equal(t, 100, roll.StoredScore)
}

func TestRole(t *testing.T) {
	side, ok := RoleOpponent.Side()
	require.True(t, ok)
	assert.Equal(t, engine.PlayerTwo, side)

	_, ok = RoleSpectator.Side()
	assert.False(t, ok)
	assert.Equal(t, RoleCreator, RoleOpponent.Other())
	assert.True(t, IsGameEvent(EvtGameWon))
	assert.False(t, IsGameEvent(EvtPlayerReady))
}
