package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/config"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/model"
)

var (
	// ErrInvalidToken is returned for every API token failure. Unknown,
	// expired and revoked tokens are deliberately indistinguishable.
	ErrInvalidToken = errors.New("invalid or expired token")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid or expired session")
)

// LegacyRateLimit is the per-minute budget attached to the legacy shared key.
const LegacyRateLimit = 1000

const (
	DefaultSessionTTL = 24 * time.Hour
	lastUsedTimeout   = 5 * time.Second
	jwtIssuer         = "chatwoot-mcp"
)

// TokenPrincipal identifies the caller behind a validated API token.
type TokenPrincipal struct {
	TokenID            string
	UserID             string
	Name               string
	Permissions        model.Permissions
	RateLimitPerMinute int
	Legacy             bool
}

// ActorID returns the identifier recorded in audit logs.
func (p *TokenPrincipal) ActorID() string {
	if p.Legacy {
		return "legacy"
	}
	return p.TokenID
}

// SessionPrincipal identifies an admin panel user behind a session JWT.
type SessionPrincipal struct {
	SessionID string
	User      *model.User
}

// AuthOptions configures an AuthService.
type AuthOptions struct {
	JWTSecret    string
	LegacyAPIKey string
	SessionTTL   time.Duration
	BcryptCost   int
	Logger       *slog.Logger
}

// AuthService validates API tokens and admin sessions.
type AuthService struct {
	store      *config.Store
	jwtSecret  []byte
	legacyKey  []byte
	sessionTTL time.Duration
	cost       int
	logger     *slog.Logger
	now        func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

func NewAuthService(store *config.Store, opts AuthOptions) *AuthService {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &AuthService{
		store:      store,
		jwtSecret:  []byte(opts.JWTSecret),
		sessionTTL: opts.SessionTTL,
		cost:       opts.BcryptCost,
		logger:     opts.Logger,
		now:        time.Now,
	}
	if opts.LegacyAPIKey != "" {
		s.legacyKey = []byte(opts.LegacyAPIKey)
	}
	return s
}

// ValidateToken resolves a plaintext API token to its principal. The legacy
// shared key, when configured, grants full access. Otherwise every stored
// token sharing the plaintext's prefix is checked by bcrypt and the first
// usable match wins.
func (s *AuthService) ValidateToken(ctx context.Context, plaintext string) (*TokenPrincipal, error) {
	if plaintext == "" {
		return nil, ErrInvalidToken
	}

	if s.legacyKey != nil && subtle.ConstantTimeCompare([]byte(plaintext), s.legacyKey) == 1 {
		return &TokenPrincipal{
			TokenID:            "legacy",
			Name:               "legacy",
			Permissions:        model.FullAccess(),
			RateLimitPerMinute: LegacyRateLimit,
			Legacy:             true,
		}, nil
	}

	if len(plaintext) < model.TokenPrefixLength {
		return nil, ErrInvalidToken
	}

	candidates, err := s.store.ListTokensByPrefix(ctx, plaintext[:model.TokenPrefixLength])
	if err != nil {
		s.logger.Error("token lookup failed", "error", err)
		return nil, ErrInvalidToken
	}

	now := s.now()
	for i := range candidates {
		tok := &candidates[i]
		if !tok.Usable(now) {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(tok.TokenHash), []byte(plaintext)) != nil {
			continue
		}

		// Update last used timestamp (fire and forget)
		go s.touchToken(tok.ID, now)

		return &TokenPrincipal{
			TokenID:            tok.ID,
			UserID:             tok.UserID,
			Name:               tok.Name,
			Permissions:        tok.Permissions,
			RateLimitPerMinute: tok.RateLimitPerMinute,
		}, nil
	}
	return nil, ErrInvalidToken
}

func (s *AuthService) touchToken(id string, at time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), lastUsedTimeout)
	defer cancel()
	if err := s.store.TouchTokenLastUsed(ctx, id, at); err != nil {
		s.logger.Debug("update token last_used failed", "token_id", id, "error", err)
	}
}

// Login checks a username/password pair and opens a new session. The
// returned string is the signed session credential.
func (s *AuthService) Login(ctx context.Context, username, password, ip, userAgent string) (string, *model.User, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, config.ErrNotFound) {
			return "", nil, fmt.Errorf("load user: %w", err)
		}
		// Spend the same time as a real comparison so unknown usernames
		// cannot be told apart by latency.
		bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		return "", nil, ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return "", nil, ErrInvalidCredentials
	}

	now := s.now().UTC()
	sess := &model.Session{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    user.ID,
		IP:        ip,
		UserAgent: userAgent,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return "", nil, fmt.Errorf("create session: %w", err)
	}

	token, err := s.issueSessionJWT(user, sess)
	if err != nil {
		return "", nil, fmt.Errorf("sign session: %w", err)
	}

	if err := s.store.TouchUserLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("record login time failed", "user_id", user.ID, "error", err)
	}
	user.LastLoginAt = &now
	return token, user, nil
}

func (s *AuthService) dummy() []byte {
	s.dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), s.cost)
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

// ValidateSession verifies a session JWT and confirms that the session row
// still exists, is unexpired, and belongs to an active user.
func (s *AuthService) ValidateSession(ctx context.Context, tokenStr string) (*SessionPrincipal, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidSession
	}

	sess, err := s.store.GetSession(ctx, claims.ID)
	if err != nil {
		return nil, ErrInvalidSession
	}
	if !sess.ExpiresAt.After(s.now()) || sess.UserID != claims.Subject {
		return nil, ErrInvalidSession
	}

	user, err := s.store.GetUser(ctx, sess.UserID)
	if err != nil || !user.IsActive {
		return nil, ErrInvalidSession
	}
	return &SessionPrincipal{SessionID: sess.ID, User: user}, nil
}

// Logout ends a session.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.store.DeleteSession(ctx, sessionID)
}

// SessionTTL returns how long newly issued sessions remain valid.
func (s *AuthService) SessionTTL() time.Duration {
	return s.sessionTTL
}

func (s *AuthService) issueSessionJWT(user *model.User, sess *model.Session) (string, error) {
	claims := sessionClaims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
			Issuer:    jwtIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

type sessionClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}
