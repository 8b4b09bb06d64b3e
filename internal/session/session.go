package session

import (
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/DoyleJ11/farkle-backend/internal/protocol"
)

const (
	MaxNameLen  = 24
	DefaultName = "Player"
)

// Session is one websocket connection's identity and room membership.
type Session struct {
	mu     sync.Mutex
	id     string
	name   string
	roomID string
	role   protocol.Role
}

// Info is a copy of a session's fields.
type Info struct {
	ID     string
	Name   string
	RoomID string
	Role   protocol.Role
}

// New creates a session. An empty id gets a random one.
func New(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{id: id, name: DefaultName}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Rename sets the display name and returns the stored form.
func (s *Session) Rename(name string) string {
	name = NormalizeName(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
	return name
}

// NormalizeName composes, trims and caps a display name. Control characters
// are dropped and an empty result falls back to DefaultName.
func NormalizeName(name string) string {
	name = norm.NFC.String(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)

	if r := []rune(name); len(r) > MaxNameLen {
		name = strings.TrimSpace(string(r[:MaxNameLen]))
	}
	if name == "" {
		return DefaultName
	}
	return name
}

func (s *Session) Attach(roomID string, role protocol.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomID = roomID
	s.role = role
}

// Detach clears the membership if the session is still in roomID.
func (s *Session) Detach(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roomID != roomID {
		return false
	}
	s.roomID = ""
	s.role = protocol.RoleNone
	return true
}

func (s *Session) Snapshot() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{ID: s.id, Name: s.name, RoomID: s.roomID, Role: s.role}
}
