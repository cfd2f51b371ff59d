package intake

import (
	"github.com/m3rciful/photogeo/core/telegram/state"
)

const (
	// StateIdle is the initial state; the user has not issued a begin command.
	StateIdle = state.StateIdle
	// StateAwaitingPhoto waits for exactly one photo.
	StateAwaitingPhoto state.State = "awaiting_photo"
	// StateAwaitingLocation holds an accepted photo and waits for its location.
	StateAwaitingLocation state.State = "awaiting_location"
)

// PhotoRef points to an accepted photo.
type PhotoRef struct {
	// AssetRef is the platform file id.
	AssetRef string
	// LocalRef is where the download collaborator stored the file.
	LocalRef string
}

// Session is the conversation state of one user. Values are copied, never shared.
type Session struct {
	UserID       int64
	State        state.State
	PendingPhoto *PhotoRef
}

// NewSession returns the idle session a user starts with.
func NewSession(userID int64) Session {
	return Session{UserID: userID, State: StateIdle}
}

// NewSessionStore returns a store that creates idle sessions on first access.
func NewSessionStore() *state.Store[Session] {
	return state.NewStore(NewSession)
}

// Advance moves the session to st. Entering any state other than
// AwaitingLocation drops the pending photo.
func (s Session) Advance(st state.State, photo *PhotoRef) Session {
	s.State = st
	if st != StateAwaitingLocation {
		photo = nil
	}
	if photo != nil {
		p := *photo
		photo = &p
	}
	s.PendingPhoto = photo
	return s
}

// Reset returns the idle session.
func (s Session) Reset() Session {
	return NewSession(s.UserID)
}
