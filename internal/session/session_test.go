package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DoyleJ11/farkle-backend/internal/protocol"
)

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"  Ann  ", "Ann"},
		{"", DefaultName},
		{" \t\n", DefaultName},
		{"Bo\x00b", "Bob"},
		{"Jose\u0301", "Jos\u00e9"},
		{strings.Repeat("x", 30), strings.Repeat("x", MaxNameLen)},
		{strings.Repeat("é", 25), strings.Repeat("é", MaxNameLen)},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeName(tc.in), "input %q", tc.in)
	}
}

func TestSession_AttachDetach(t *testing.T) {
	s := New("")
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, DefaultName, s.Name())
	assert.Equal(t, "Ann", s.Rename(" Ann "))

	s.Attach("ABC123", protocol.RoleCreator)
	assert.False(t, s.Detach("ZZZ999"), "attached elsewhere")
	assert.Equal(t, Info{ID: s.ID(), Name: "Ann", RoomID: "ABC123", Role: protocol.RoleCreator}, s.Snapshot())

	assert.True(t, s.Detach("ABC123"))
	info := s.Snapshot()
	assert.Empty(t, info.RoomID)
	assert.Equal(t, protocol.RoleNone, info.Role)
}
