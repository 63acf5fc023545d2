package repository

import (
	"context"
	"sync"
	"time"

	"github.com/rocketscienceinc/tripptrapp/internal/apperror"
	"github.com/rocketscienceinc/tripptrapp/internal/tictactoe"
)

// Session binds one GameController to the id a client reconnects with.
type Session struct {
	ID       string
	Game     *tictactoe.GameController
	LastSeen time.Time
}

type SessionRepository interface {
	CreateOrUpdate(ctx context.Context, session *Session) error
	GetByID(ctx context.Context, id string) (*Session, error)
	DeleteByID(ctx context.Context, id string) error
	// Touch records activity on a session.
	Touch(ctx context.Context, id string, at time.Time) error
	// IdleSince returns every session last seen before deadline.
	IdleSince(ctx context.Context, deadline time.Time) ([]*Session, error)
	Count(ctx context.Context) (int, error)
}

type memorySessions struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionRepository() SessionRepository {
	return &memorySessions{
		sessions: make(map[string]*Session),
	}
}

func (that *memorySessions) CreateOrUpdate(_ context.Context, session *Session) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.sessions[session.ID] = session

	return nil
}

func (that *memorySessions) GetByID(_ context.Context, id string) (*Session, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	session, ok := that.sessions[id]
	if !ok {
		return &Session{}, apperror.ErrSessionNotFound
	}

	return session, nil
}

func (that *memorySessions) DeleteByID(_ context.Context, id string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.sessions[id]; !ok {
		return apperror.ErrSessionNotFound
	}
	delete(that.sessions, id)

	return nil
}

func (that *memorySessions) Touch(_ context.Context, id string, at time.Time) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	session, ok := that.sessions[id]
	if !ok {
		return apperror.ErrSessionNotFound
	}
	session.LastSeen = at

	return nil
}

func (that *memorySessions) IdleSince(_ context.Context, deadline time.Time) ([]*Session, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	var idle []*Session
	for _, session := range that.sessions {
		if session.LastSeen.Before(deadline) {
			idle = append(idle, session)
		}
	}

	return idle, nil
}

func (that *memorySessions) Count(_ context.Context) (int, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.sessions), nil
}
