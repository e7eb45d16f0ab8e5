// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/itoloop/itoserver/game"
	"github.com/itoloop/itoserver/network"
)

// Session is one websocket subscriber. A session belongs to at most one room
// at a time, identified by the room code it subscribed to.
type Session struct {
	ID         string
	Conn       network.Connection
	DeviceID   string
	RoomCode   string
	CreatedAt  time.Time
	LastActive time.Time
	mutex      sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
	}
}

// Subscribe binds the session to a room code.
func (s *Session) Subscribe(deviceID, roomCode string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.DeviceID = deviceID
	s.RoomCode = game.NormalizeRoomCode(roomCode)
}

// Unsubscribe detaches the session from its room.
func (s *Session) Unsubscribe() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.RoomCode = ""
}

// Room returns the code the session is subscribed to, empty if none.
func (s *Session) Room() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.RoomCode
}

func (s *Session) Send(msgID uint16, data []byte) error {
	s.LastActive = time.Now()
	return s.Conn.Send(msgID, data)
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

// GetByRoomCode returns every session subscribed to a room.
func (m *Manager) GetByRoomCode(roomCode string) []*Session {
	roomCode = game.NormalizeRoomCode(roomCode)

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.Room() == roomCode {
			result = append(result, session)
		}
	}
	return result
}

// Count returns the number of connected sessions, for metrics.
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
