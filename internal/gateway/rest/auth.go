package rest

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"wallhub/internal/gateway"
	"wallhub/internal/models"
	"wallhub/internal/notifications"
	"wallhub/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Auth is the GoTrue session store. Sessions live in memory only and are
// never refreshed automatically: when the access token expires the session
// is dropped and TOKEN_EXPIRED is published.
type Auth struct {
	c *Client
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	User         *models.User `json:"user"`

	// Sign-up without auto-confirm returns the bare user.
	ID    string `json:"id"`
	Email string `json:"email"`
}

// GetSession returns the in-memory session, or nil when signed out or expired.
func (a *Auth) GetSession(ctx context.Context) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.c.mu.Lock()
	s := a.c.session
	if s != nil && s.Expired(a.c.now()) {
		a.c.session = nil
		s = nil
	}
	a.c.mu.Unlock()
	if s == nil {
		return nil, nil
	}

	// Confirm the token is still accepted and pick up profile changes.
	var user models.User
	err := a.c.do(ctx, request{
		capability: "auth",
		operation:  "get_user",
		method:     fiber.MethodGet,
		path:       authPath + "/user",
	}, &user)
	if err != nil {
		return nil, err
	}
	cp := *s
	cp.User = &user
	return &cp, nil
}

// SignInWithPassword exchanges credentials for a session.
func (a *Auth) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	var tok tokenResponse
	err := a.c.do(ctx, request{
		capability: "auth",
		operation:  "sign_in",
		method:     fiber.MethodPost,
		path:       authPath + "/token",
		query:      url.Values{"grant_type": {"password"}},
		json:       map[string]string{"email": email, "password": password},
	}, &tok)
	if err != nil {
		return nil, err
	}
	s := a.c.sessionFrom(tok)
	a.c.setSession(s, models.EventSignedIn)
	return s, nil
}

// SignUp registers an account. When the backend requires email
// confirmation no session is returned and no event is published.
func (a *Auth) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	var tok tokenResponse
	err := a.c.do(ctx, request{
		capability: "auth",
		operation:  "sign_up",
		method:     fiber.MethodPost,
		path:       authPath + "/signup",
		json:       map[string]string{"email": email, "password": password},
	}, &tok)
	if err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, nil
	}
	s := a.c.sessionFrom(tok)
	a.c.setSession(s, models.EventSignedIn)
	return s, nil
}

// SignOut revokes the session remotely and always drops it locally.
func (a *Auth) SignOut(ctx context.Context) error {
	a.c.mu.RLock()
	signedIn := a.c.session != nil
	a.c.mu.RUnlock()

	var err error
	if signedIn {
		err = a.c.do(ctx, request{
			capability: "auth",
			operation:  "sign_out",
			method:     fiber.MethodPost,
			path:       authPath + "/logout",
		}, nil)
	}
	a.c.setSession(nil, models.EventSignedOut)
	return err
}

// OnAuthStateChange registers fn for every auth transition.
func (a *Auth) OnAuthStateChange(fn gateway.AuthListener) func() {
	return a.c.hub.Subscribe(notifications.AuthListener(fn))
}

func (c *Client) sessionFrom(tok tokenResponse) *models.Session {
	user := tok.User
	if user == nil && tok.ID != "" {
		user = &models.User{ID: tok.ID, Email: tok.Email}
	}
	return &models.Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    c.expiryOf(tok),
		User:         user,
	}
}

// expiryOf prefers the exp claim of the access token and falls back to the
// expiry fields of the token response.
func (c *Client) expiryOf(tok tokenResponse) time.Time {
	if exp, ok := tokenExpiry(tok.AccessToken); ok {
		return exp
	}
	switch {
	case tok.ExpiresAt > 0:
		return time.Unix(tok.ExpiresAt, 0)
	case tok.ExpiresIn > 0:
		return c.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	}
	return time.Time{}
}

// tokenExpiry reads the exp claim without verifying the signature. The
// signing key belongs to the backend; the client only needs the deadline.
func tokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// setSession replaces the session, re-arms the expiry timer and publishes
// event outside the lock.
func (c *Client) setSession(s *models.Session, event models.AuthEvent) {
	c.mu.Lock()
	c.session = s
	if c.expiryTimer != nil {
		c.expiryTimer.Stop()
		c.expiryTimer = nil
	}
	if s != nil && !s.ExpiresAt.IsZero() {
		c.expiryTimer = time.AfterFunc(s.ExpiresAt.Sub(c.now()), func() { c.expire(s) })
	}
	c.mu.Unlock()

	c.hub.Publish(event, s)
}

func (c *Client) expire(s *models.Session) {
	c.mu.Lock()
	if c.session != s {
		c.mu.Unlock()
		return
	}
	c.session = nil
	c.expiryTimer = nil
	c.mu.Unlock()

	observability.Logger.Info("access token expired, session dropped",
		slog.Time("expired_at", s.ExpiresAt))
	c.hub.Publish(models.EventTokenExpired, nil)
}
