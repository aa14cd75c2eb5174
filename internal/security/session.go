package security

import (
	"crypto/sha256"
	"encoding/gob"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	sessionName = "evidence_session"
	userIDKey   = "user_id"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Message is a one-shot notice shown on the next rendered page.
type Message struct {
	Level Level
	Text  string
}

func init() {
	gob.Register(Message{})
}

type SessionStore struct {
	store *sessions.CookieStore
}

func NewSessionStore(secret string, secure bool) *SessionStore {
	authKey := sessionKey(secret)
	encKey := sessionKey(secret + "encryption")
	store := sessions.NewCookieStore(authKey, encKey)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 14,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionStore{store: store}
}

func sessionKey(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// session never fails: an unreadable cookie (rotated secret, tampering) yields a
// fresh session.
func (s *SessionStore) session(r *http.Request) *sessions.Session {
	sess, _ := s.store.Get(r, sessionName)
	return sess
}

func (s *SessionStore) Login(w http.ResponseWriter, r *http.Request, userID int) error {
	sess := s.session(r)
	sess.Values[userIDKey] = userID
	return sess.Save(r, w)
}

// Logout forgets the signed-in account but keeps the session so a flash can
// still be delivered.
func (s *SessionStore) Logout(w http.ResponseWriter, r *http.Request) error {
	sess := s.session(r)
	delete(sess.Values, userIDKey)
	return sess.Save(r, w)
}

func (s *SessionStore) UserID(r *http.Request) (int, bool) {
	id, ok := s.session(r).Values[userIDKey].(int)
	return id, ok && id > 0
}

func (s *SessionStore) AddFlash(w http.ResponseWriter, r *http.Request, level Level, text string) error {
	sess := s.session(r)
	sess.AddFlash(Message{Level: level, Text: text})
	return sess.Save(r, w)
}

// Flashes drains the pending messages.
func (s *SessionStore) Flashes(w http.ResponseWriter, r *http.Request) []Message {
	sess := s.session(r)
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	msgs := make([]Message, 0, len(raw))
	for _, f := range raw {
		if m, ok := f.(Message); ok {
			msgs = append(msgs, m)
		}
	}
	_ = sess.Save(r, w)
	return msgs
}
