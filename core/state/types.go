package state

import "time"

// Frame is one active conversation on a user's stack.
type Frame struct {
	Conversation string
	State        string
}

// Session stores the conversation stack and temporary data for a user.
// An empty Stack means the user is idle.
type Session struct {
	Stack   []Frame
	Data    map[string]any
	Touched time.Time
}

// Depth reports how many conversations are active.
func (s *Session) Depth() int {
	return len(s.Stack)
}

// Idle reports whether no conversation is active.
func (s *Session) Idle() bool {
	return len(s.Stack) == 0
}

// Top returns the innermost frame.
func (s *Session) Top() (Frame, bool) {
	if len(s.Stack) == 0 {
		return Frame{}, false
	}
	return s.Stack[len(s.Stack)-1], true
}

// Reset clears the stack and all temporary data.
func (s *Session) Reset() {
	s.Stack = nil
	s.Data = make(map[string]any)
}

// Clone returns a copy that shares nothing mutable with s.
// Data values are copied shallowly.
func (s *Session) Clone() *Session {
	out := &Session{
		Data:    make(map[string]any, len(s.Data)),
		Touched: s.Touched,
	}
	if len(s.Stack) > 0 {
		out.Stack = append([]Frame(nil), s.Stack...)
	}
	for k, v := range s.Data {
		out.Data[k] = v
	}
	return out
}

// Store keeps sessions and serializes access per user.
type Store interface {
	// Get returns a copy of the user's session, or a new idle one.
	Get(userID int64) *Session
	// Put replaces the user's session with a copy of s.
	Put(userID int64, s *Session)
	// Lock acquires the user's lock and returns the release function.
	Lock(userID int64) (unlock func())
}
