package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	SessionTTL    = 24 * time.Hour
	SessionCookie = "session_id"
)

// SessionStore wraps Redis for session management. Each session maps
// sessionID -> userID, and a per-user set indexes the user's live sessions
// so a credential change can revoke all of them at once.
type SessionStore struct {
	rdb *redis.Client
}

func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb}
}

func sessionKey(sid string) string { return "session:" + sid }
func userKey(userID string) string { return "user_sessions:" + userID }

// Create stores a new session and indexes it under the user.
func (s *SessionStore) Create(ctx context.Context, userID string) (string, error) {
	sid := uuid.New().String()
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, sessionKey(sid), userID, SessionTTL)
	pipe.SAdd(ctx, userKey(userID), sid)
	pipe.Expire(ctx, userKey(userID), SessionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}
	return sid, nil
}

// Get returns the userID for a session, or "" if not found / expired.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (string, error) {
	val, err := s.rdb.Get(ctx, sessionKey(sessionID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

// Delete removes a session and its index entry.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	userID, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, sessionKey(sessionID))
	if userID != "" {
		pipe.SRem(ctx, userKey(userID), sessionID)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// InvalidateOthers revokes every session of the user except keepSID.
// Called after a password change: sessions established with the old
// credential die, the changing request's own session survives.
func (s *SessionStore) InvalidateOthers(ctx context.Context, userID, keepSID string) error {
	sids, err := s.rdb.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	for _, sid := range sids {
		if sid == keepSID {
			continue
		}
		pipe.Del(ctx, sessionKey(sid))
		pipe.SRem(ctx, userKey(userID), sid)
	}
	_, err = pipe.Exec(ctx)
	return err
}
