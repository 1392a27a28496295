package application

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/localborga/milling-orders/internal/domains/operators/domain"
	"github.com/localborga/milling-orders/internal/domains/operators/ports"
)

// DefaultTokenTTL is how long an operator token stays valid.
const DefaultTokenTTL = 8 * time.Hour

const issuer = "localborga/milling-orders"

// Config carries the operator credentials. Empty values leave login disabled.
type Config struct {
	AdminPassword string
	SigningSecret string
	TokenTTL      time.Duration
}

type claims struct {
	jwt.RegisteredClaims
	Role domain.Role `json:"role"`
}

// Service issues and verifies HS256 operator tokens. When a SessionStore is present,
// each token is backed by a session row so logout revokes it before expiry.
type Service struct {
	cfg      Config
	sessions ports.SessionStore
	now      func() time.Time
}

type Option func(*Service)

func WithSessionStore(store ports.SessionStore) Option {
	return func(s *Service) {
		s.sessions = store
	}
}

// WithClock overrides the time source for deterministic testing.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(cfg Config, opts ...Option) *Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	s := &Service{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Service) configured() bool {
	return s.cfg.AdminPassword != "" && s.cfg.SigningSecret != ""
}

// Login exchanges the admin password for a signed token.
func (s *Service) Login(ctx context.Context, password string) (*domain.Token, error) {
	if !s.configured() {
		return nil, ErrMisconfigured
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.AdminPassword)) != 1 {
		return nil, ErrAuthentication
	}
	now := s.now().UTC()
	session := domain.Session{
		ID:        uuid.NewString(),
		Role:      domain.RoleAdmin,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.TokenTTL),
	}
	if s.sessions != nil {
		if err := s.sessions.Save(ctx, session); err != nil {
			return nil, fmt.Errorf("save operator session: %w", err)
		}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   string(session.Role),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
		Role: session.Role,
	})
	signed, err := token.SignedString([]byte(s.cfg.SigningSecret))
	if err != nil {
		return nil, fmt.Errorf("sign operator token: %w", err)
	}
	return &domain.Token{Value: signed, ExpiresAt: session.ExpiresAt}, nil
}

// Authenticate verifies the token signature, expiry and role, then checks it was not revoked.
func (s *Service) Authenticate(ctx context.Context, raw string) (*domain.Principal, error) {
	if s.cfg.SigningSecret == "" {
		return nil, ErrMisconfigured
	}
	parsed := &claims{}
	_, err := jwt.ParseWithClaims(raw, parsed, func(*jwt.Token) (interface{}, error) {
		return []byte(s.cfg.SigningSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	if parsed.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("%w: role %q", ErrAuthentication, parsed.Role)
	}
	principal := &domain.Principal{SessionID: parsed.ID, Role: parsed.Role}
	if parsed.ExpiresAt != nil {
		principal.ExpiresAt = parsed.ExpiresAt.Time
	}
	if s.sessions == nil {
		return principal, nil
	}
	session, err := s.sessions.Get(ctx, parsed.ID)
	switch {
	case errors.Is(err, ports.ErrSessionNotFound):
		return nil, fmt.Errorf("%w: session revoked", ErrAuthentication)
	case err != nil:
		return nil, fmt.Errorf("load operator session: %w", err)
	case session.Expired(s.now()):
		return nil, fmt.Errorf("%w: session expired", ErrAuthentication)
	}
	return principal, nil
}

// Logout revokes the session behind a valid token.
func (s *Service) Logout(ctx context.Context, raw string) error {
	principal, err := s.Authenticate(ctx, raw)
	if err != nil {
		return err
	}
	if s.sessions == nil {
		return nil
	}
	return s.sessions.Delete(ctx, principal.SessionID)
}

var _ ports.Service = (*Service)(nil)
