package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/maruel/ksid"
	"github.com/maruel/portalemu/internal/config"
)

// sessionTTL is the lifetime advertised in minted tokens.
const sessionTTL = time.Hour

// AuthEvent is passed to OnAuthStateChange callbacks.
type AuthEvent string

// Auth events.
const (
	SignedIn  AuthEvent = "SIGNED_IN"
	SignedOut AuthEvent = "SIGNED_OUT"
)

// User is the authenticated identity.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Aud   string `json:"aud"`
}

// Session is a signed-in session.
type Session struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	ExpiresAt   int64  `json:"expires_at"`
	User        User   `json:"user"`
}

// Credentials are accepted by SignInWithPassword and otherwise ignored.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Auth always resolves to one demo identity. Sign in and sign out always
// succeed.
type Auth struct {
	user   User
	secret []byte
	now    func() time.Time

	mu      sync.Mutex
	session *Session
	subs    map[int]func(AuthEvent, *Session)
	nextSub int
}

func newAuth(u config.DemoUser, secret []byte) *Auth {
	return &Auth{
		user:   User{ID: u.ID, Email: u.Email, Role: u.Role, Aud: "authenticated"},
		secret: secret,
		now:    time.Now,
		subs:   make(map[int]func(AuthEvent, *Session)),
	}
}

// GetUser returns the demo user.
func (a *Auth) GetUser(ctx context.Context) *User {
	u := a.user
	return &u
}

// GetSession returns the current session, minting one if needed.
func (a *Auth) GetSession(ctx context.Context) (*Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		s, err := a.mint()
		if err != nil {
			return nil, err
		}
		a.session = s
	}
	s := *a.session
	return &s, nil
}

// SignInWithPassword starts a new session for the demo user, whatever the
// credentials.
func (a *Auth) SignInWithPassword(ctx context.Context, creds Credentials) (*Session, error) {
	a.mu.Lock()
	s, err := a.mint()
	if err != nil {
		a.mu.Unlock()
		return nil, err
	}
	a.session = s
	cbs := a.callbacks()
	a.mu.Unlock()
	slog.InfoContext(ctx, "signed in", "user", a.user.Email, "as", creds.Email)
	a.notify(cbs, SignedIn, s)
	return s, nil
}

// SignOut drops the current session.
func (a *Auth) SignOut(ctx context.Context) {
	a.mu.Lock()
	a.session = nil
	cbs := a.callbacks()
	a.mu.Unlock()
	slog.InfoContext(ctx, "signed out", "user", a.user.Email)
	a.notify(cbs, SignedOut, nil)
}

// Subscription cancels an OnAuthStateChange registration.
type Subscription struct {
	a  *Auth
	id int
}

// Unsubscribe stops delivering events. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.a.mu.Lock()
	defer s.a.mu.Unlock()
	delete(s.a.subs, s.id)
}

// OnAuthStateChange calls cb synchronously after every sign in and sign out.
func (a *Auth) OnAuthStateChange(cb func(event AuthEvent, s *Session)) *Subscription {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextSub++
	a.subs[a.nextSub] = cb
	return &Subscription{a: a, id: a.nextSub}
}

// Verify parses a token minted by this stub and returns its claims.
func (a *Auth) Verify(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// mint signs a new session token. a.mu must be held.
func (a *Auth) mint() (*Session, error) {
	now := a.now()
	exp := now.Add(sessionTTL)
	claims := jwt.MapClaims{
		"sub":   a.user.ID,
		"email": a.user.Email,
		"role":  a.user.Role,
		"aud":   a.user.Aud,
		"sid":   ksid.NewID().String(),
		"exp":   exp.Unix(),
		"iat":   now.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}
	return &Session{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(sessionTTL.Seconds()),
		ExpiresAt:   exp.Unix(),
		User:        a.user,
	}, nil
}

// callbacks snapshots subscribers. a.mu must be held.
func (a *Auth) callbacks() []func(AuthEvent, *Session) {
	out := make([]func(AuthEvent, *Session), 0, len(a.subs))
	for id := 1; id <= a.nextSub; id++ {
		if cb, ok := a.subs[id]; ok {
			out = append(out, cb)
		}
	}
	return out
}

func (a *Auth) notify(cbs []func(AuthEvent, *Session), ev AuthEvent, s *Session) {
	for _, cb := range cbs {
		var cp *Session
		if s != nil {
			c := *s
			cp = &c
		}
		cb(ev, cp)
	}
}
