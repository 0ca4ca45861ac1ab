package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Alwanly/social-hub/internal/models"
	authentication "github.com/Alwanly/social-hub/pkg/auth"
	"github.com/Alwanly/social-hub/pkg/logger"
	"github.com/Alwanly/social-hub/pkg/wrapper"
	"go.uber.org/zap"
)

// Store is the single source of truth for the signed-in user.
type Store struct {
	identity  Identity
	profiles  Profiles
	persister Persister
	logger    *logger.CanonicalLogger
	now       func() time.Time

	mu        sync.RWMutex
	current   *Session
	listeners map[int]Listener
	order     []int
	nextID    int

	ready     chan struct{}
	readyOnce sync.Once
}

func NewStore(identity Identity, profiles Profiles, persister Persister, log *logger.CanonicalLogger) *Store {
	if persister == nil {
		persister = NewMemoryPersister()
	}
	return &Store{
		identity:  identity,
		profiles:  profiles,
		persister: persister,
		logger:    log,
		now:       time.Now,
		listeners: make(map[int]Listener),
		ready:     make(chan struct{}),
	}
}

// Init loads the persisted session, refreshing it when it is about to expire.
// A session that cannot be refreshed is dropped. It broadcasts
// EventInitialSession exactly once.
func (s *Store) Init(ctx context.Context, window time.Duration) error {
	defer s.readyOnce.Do(func() { close(s.ready) })

	saved, err := s.persister.Load(ctx)
	if err != nil {
		s.broadcast(EventInitialSession, nil)
		return fmt.Errorf("load session: %w", err)
	}

	if saved.Active() && s.expiresWithin(saved, window) {
		refreshed, rerr := s.identity.Refresh(ctx, saved.RefreshToken)
		if rerr != nil {
			s.logger.Warn("stored session could not be refreshed", zap.Error(rerr))
			saved = nil
			if cerr := s.persister.Clear(ctx); cerr != nil {
				s.logger.Error("failed to clear stored session", zap.Error(cerr))
			}
		} else {
			saved = refreshed
			if serr := s.persister.Save(ctx, saved); serr != nil {
				s.logger.Error("failed to persist refreshed session", zap.Error(serr))
			}
		}
	}
	if !saved.Active() {
		saved = nil
	}

	s.mu.Lock()
	s.current = saved
	s.mu.Unlock()

	if saved != nil {
		s.logger.Info("session restored", zap.String(logger.FieldUserID, saved.User.ID))
	}
	s.broadcast(EventInitialSession, saved)
	return nil
}

// Ready is closed once Init has run.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Current returns the last known session or nil. It never blocks.
func (s *Store) Current() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone()
}

// OnChange registers l and returns a function that removes it.
func (s *Store) OnChange(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.order = append(s.order, id)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.listeners, id)
			for i, v := range s.order {
				if v == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

// SignUp creates the account and then the profile row. An active session is
// stored first so the insert runs under the new user's token. A failed
// profile insert does not undo the account; it comes back as a warning.
func (s *Store) SignUp(ctx context.Context, in SignUpInput) wrapper.Result[*Session] {
	metadata := map[string]any{"username": in.Username, "full_name": in.FullName}
	sess, err := s.identity.SignUp(ctx, in.Email, in.Password, metadata)
	if err != nil {
		return wrapper.Fail[*Session](err)
	}
	if sess == nil || sess.User.ID == "" {
		return wrapper.Fail[*Session](fmt.Errorf("sign-up returned no user"))
	}

	if sess.Active() {
		s.setSession(ctx, EventSignedIn, sess)
	}
	result := wrapper.Ok(sess.clone())

	profile := models.Profile{
		ID:       sess.User.ID,
		Email:    in.Email,
		Username: in.Username,
		FullName: in.FullName,
	}
	if perr := s.profiles.CreateProfile(ctx, profile).Err(); perr != nil {
		s.logger.Error("profile insert after sign-up failed",
			zap.String(logger.FieldUserID, sess.User.ID),
			zap.Error(perr),
		)
		result = result.WithWarning("account created but profile could not be saved: " + perr.Error())
	}
	return result
}

func (s *Store) SignIn(ctx context.Context, email, password string) wrapper.Result[*Session] {
	sess, err := s.identity.SignIn(ctx, email, password)
	if err != nil {
		return wrapper.Fail[*Session](err)
	}
	s.setSession(ctx, EventSignedIn, sess)
	return wrapper.Ok(sess.clone())
}

// SignOut always clears the local session. A failed remote revoke is
// reported as a warning.
func (s *Store) SignOut(ctx context.Context) wrapper.Result[struct{}] {
	cur := s.Current()
	if cur == nil {
		return wrapper.Fail[struct{}](ErrNoSession)
	}

	result := wrapper.Ok(struct{}{})
	if err := s.identity.SignOut(ctx, cur.AccessToken); err != nil {
		s.logger.Warn("remote sign-out failed", zap.String(logger.FieldUserID, cur.User.ID), zap.Error(err))
		result = result.WithWarning("remote sign-out failed: " + err.Error())
	}

	s.setSession(ctx, EventSignedOut, nil)
	return result
}

func (s *Store) ResetPassword(ctx context.Context, email string) wrapper.Result[struct{}] {
	if err := s.identity.Recover(ctx, email); err != nil {
		return wrapper.Fail[struct{}](err)
	}
	s.broadcast(EventPasswordRecovery, s.Current())
	return wrapper.Ok(struct{}{})
}

func (s *Store) UpdatePassword(ctx context.Context, newPassword string) wrapper.Result[User] {
	cur := s.Current()
	if cur == nil {
		return wrapper.Fail[User](ErrNoSession)
	}

	user, err := s.identity.UpdateUser(ctx, cur.AccessToken, UserAttributes{Password: newPassword})
	if err != nil {
		return wrapper.Fail[User](err)
	}

	cur.User = *user
	s.setSession(ctx, EventUserUpdated, cur)
	return wrapper.Ok(*user)
}

func (s *Store) UpdateProfile(ctx context.Context, fields models.ProfileUpdate) wrapper.Result[models.Profile] {
	cur := s.Current()
	if cur == nil {
		return wrapper.Fail[models.Profile](ErrNoSession)
	}

	res := s.profiles.UpdateProfile(ctx, cur.User.ID, fields)
	if res.IsOK() {
		s.broadcast(EventUserUpdated, cur)
	}
	return res
}

// Refresh renews the tokens when they expire within window. An identity that
// rejects the refresh token ends the session.
func (s *Store) Refresh(ctx context.Context, window time.Duration) wrapper.Result[*Session] {
	cur := s.Current()
	if cur == nil {
		return wrapper.Fail[*Session](ErrNoSession)
	}
	if !s.expiresWithin(cur, window) {
		return wrapper.Ok(cur)
	}

	next, err := s.identity.Refresh(ctx, cur.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			s.logger.Warn("refresh token rejected, signing out", zap.String(logger.FieldUserID, cur.User.ID))
			s.setSession(ctx, EventSignedOut, nil)
		}
		return wrapper.Fail[*Session](err)
	}

	s.setSession(ctx, EventTokenRefreshed, next)
	return wrapper.Ok(next.clone())
}

// AccessToken returns the current access token or ErrNoSession.
func (s *Store) AccessToken() (string, error) {
	cur := s.Current()
	if cur == nil {
		return "", ErrNoSession
	}
	return cur.AccessToken, nil
}

// Lookup reports the user id when token is the current, unexpired access
// token.
func (s *Store) Lookup(token string) (string, bool) {
	cur := s.Current()
	if !cur.Active() || token == "" {
		return "", false
	}
	if subtle.ConstantTimeCompare([]byte(cur.AccessToken), []byte(token)) != 1 {
		return "", false
	}
	if !cur.ExpiresAt.IsZero() && !s.now().Before(cur.ExpiresAt) {
		return "", false
	}
	return cur.User.ID, true
}

// Close drops every listener.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = make(map[int]Listener)
	s.order = nil
}

func (s *Store) expiresWithin(sess *Session, window time.Duration) bool {
	now := s.now()
	if !sess.ExpiresAt.IsZero() {
		return sess.ExpiresAt.Before(now.Add(window))
	}
	claims, err := authentication.ParseUnverified(sess.AccessToken)
	if err != nil {
		return true
	}
	return claims.ExpiresWithin(now, window)
}

func (s *Store) setSession(ctx context.Context, ev Event, sess *Session) {
	s.mu.Lock()
	s.current = sess.clone()
	s.mu.Unlock()

	var err error
	if sess == nil {
		err = s.persister.Clear(ctx)
	} else {
		err = s.persister.Save(ctx, sess)
	}
	if err != nil {
		s.logger.Error("failed to persist session", zap.String("event", string(ev)), zap.Error(err))
	}

	s.broadcast(ev, sess)
}

// broadcast calls listeners in registration order, outside the lock.
func (s *Store) broadcast(ev Event, sess *Session) {
	s.mu.RLock()
	listeners := make([]Listener, 0, len(s.order))
	for _, id := range s.order {
		listeners = append(listeners, s.listeners[id])
	}
	s.mu.RUnlock()

	for _, l := range listeners {
		l(ev, sess.clone())
	}
}
