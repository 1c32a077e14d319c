// Package access gates author write-access to a pending story. The secret is
// a per-story password, distinct from any platform-wide authentication: only
// its bcrypt hash is stored, and a successful verification exchanges the
// password for a short-lived story-scoped bearer token.
package access

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"vomprater-server/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// PasswordLength is the length of generated story passwords.
const PasswordLength = 14

// passwordCharset deliberately omits ambiguous characters (0/O, 1/l/I) since
// authors retype the password from an email.
const passwordCharset = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789!#$%&*+-=?@"

// Claims are the story-scoped token claims.
type Claims struct {
	StoryID string `json:"storyId"`
	jwt.RegisteredClaims
}

// Service issues and verifies story passwords and access tokens.
type Service struct {
	secret   []byte
	tokenTTL time.Duration
	logger   *zap.Logger
}

// NewService creates the access service. The signing secret must not be empty.
func NewService(secret string, tokenTTL time.Duration, logger *zap.Logger) (*Service, error) {
	if secret == "" {
		return nil, errors.New("story token secret cannot be empty")
	}
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		logger:   logger.Named("Access"),
	}, nil
}

// GeneratePassword returns a random password from the fixed charset. The
// plaintext is handed to the mailer exactly once and never logged or stored.
func GeneratePassword() (string, error) {
	buf := make([]byte, PasswordLength)
	max := big.NewInt(int64(len(passwordCharset)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate password: %w", err)
		}
		buf[i] = passwordCharset[n.Int64()]
	}
	return string(buf), nil
}

// HashPassword returns the bcrypt hash to persist against the story.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPassword reports whether the supplied password matches the stored hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IssueToken signs a bearer token scoped to the given story id.
func (s *Service) IssueToken(storyID uuid.UUID) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		StoryID: storyID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		s.logger.Error("Failed to sign story access token", zap.Error(err))
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken checks signature and expiry and returns the story id the token
// is scoped to. Verification is stateless: expiry is the only cancellation
// mechanism.
func (s *Service) VerifyToken(tokenString string) (uuid.UUID, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		s.logger.Warn("Token verification failed", zap.String("tokenSnippet", tokenSnippet(tokenString)), zap.Error(err))
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return uuid.Nil, models.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return uuid.Nil, models.ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return uuid.Nil, models.ErrTokenInvalid
		}
		return uuid.Nil, fmt.Errorf("%w: %v", models.ErrTokenInvalid, err)
	}
	if !token.Valid {
		return uuid.Nil, models.ErrTokenInvalid
	}

	storyID, err := uuid.Parse(claims.StoryID)
	if err != nil || storyID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: story id missing", models.ErrTokenInvalid)
	}
	return storyID, nil
}

// tokenSnippet returns a log-safe prefix of the token.
func tokenSnippet(tokenString string) string {
	limit := 15
	if len(tokenString) > limit {
		return tokenString[:limit] + "..."
	}
	return tokenString
}
