// Package flash implements one-shot notices: a severity-tagged message is
// attached to the response and consumed on the next rendered page.
package flash

import (
	"encoding/gob"
	"net/http"

	"github.com/gorilla/sessions"
)

const cookieName = "uzshop_flash"

const (
	LevelSuccess = "success"
	LevelError   = "error"
	LevelWarning = "warning"
)

// Notice is a single one-shot message.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

func init() {
	gob.Register(Notice{})
}

// Store keeps notices in a signed cookie between requests.
type Store struct {
	cookies *sessions.CookieStore
}

func NewStore(secret string) *Store {
	cs := sessions.NewCookieStore([]byte(secret))
	cs.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &Store{cookies: cs}
}

func (s *Store) add(w http.ResponseWriter, r *http.Request, level, msg string) {
	// Get never fails fatally: a bad cookie just yields a fresh session.
	sess, _ := s.cookies.Get(r, cookieName)
	sess.AddFlash(Notice{Level: level, Message: msg})
	sess.Save(r, w)
}

func (s *Store) Success(w http.ResponseWriter, r *http.Request, msg string) {
	s.add(w, r, LevelSuccess, msg)
}

func (s *Store) Error(w http.ResponseWriter, r *http.Request, msg string) {
	s.add(w, r, LevelError, msg)
}

func (s *Store) Warning(w http.ResponseWriter, r *http.Request, msg string) {
	s.add(w, r, LevelWarning, msg)
}

// Pop returns all pending notices and clears them.
func (s *Store) Pop(w http.ResponseWriter, r *http.Request) []Notice {
	sess, _ := s.cookies.Get(r, cookieName)
	flashes := sess.Flashes()
	if len(flashes) == 0 {
		return nil
	}
	sess.Save(r, w)

	notices := make([]Notice, 0, len(flashes))
	for _, f := range flashes {
		if n, ok := f.(Notice); ok {
			notices = append(notices, n)
		}
	}
	return notices
}
