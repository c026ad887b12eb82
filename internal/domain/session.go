package domain

import "time"

// Message levels for flash messages.
const (
	MessageSuccess = "success"
	MessageError   = "error"
)

// Message is a one-shot notice shown on the next rendered page.
type Message struct {
	Level string `json:"level" dynamodbav:"level"`
	Text  string `json:"text" dynamodbav:"text"`
}

// Session is the server-side state of one browser session.
// The cookie only carries a signed reference to SessionID.
type Session struct {
	SessionID         string    `json:"id" dynamodbav:"session_id"`
	Username          string    `json:"username,omitempty" dynamodbav:"username"`
	OAuth2State       string    `json:"oauth2_state,omitempty" dynamodbav:"oauth2_state"`
	OAuth2RedirectURI string    `json:"oauth2_redirect_uri,omitempty" dynamodbav:"oauth2_redirect_uri"`
	Flash             []Message `json:"flash,omitempty" dynamodbav:"flash"`
	CreatedAt         time.Time `json:"created" dynamodbav:"created_at"`
	ExpiresAt         int64     `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
}

// Authenticated reports whether a user is logged in on this session.
func (s *Session) Authenticated() bool {
	return s != nil && s.Username != ""
}

func (s *Session) AddFlash(level, text string) {
	s.Flash = append(s.Flash, Message{Level: level, Text: text})
}

// PopFlash returns pending messages and clears them.
func (s *Session) PopFlash() []Message {
	msgs := s.Flash
	s.Flash = nil
	return msgs
}
