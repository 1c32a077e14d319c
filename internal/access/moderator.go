package access

import (
	"errors"
	"fmt"
	"slices"

	"vomprater-server/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// ModeratorClaims are the claims of a platform moderator token. Moderator
// tokens are issued by the gallery's identity provider, not by this service;
// we only verify them.
type ModeratorClaims struct {
	UserID string   `json:"userId"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// IsModerator reports whether the claims carry a moderating role.
func (c *ModeratorClaims) IsModerator() bool {
	return slices.Contains(c.Roles, "moderator") || slices.Contains(c.Roles, "admin")
}

// ModeratorVerifier verifies platform moderator tokens.
type ModeratorVerifier struct {
	secret []byte
	logger *zap.Logger
}

// NewModeratorVerifier creates a verifier. The secret must not be empty.
func NewModeratorVerifier(secret string, logger *zap.Logger) (*ModeratorVerifier, error) {
	if secret == "" {
		return nil, errors.New("moderator token secret cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModeratorVerifier{
		secret: []byte(secret),
		logger: logger.Named("ModeratorVerifier"),
	}, nil
}

// VerifyToken checks signature and expiry and returns the claims.
func (v *ModeratorVerifier) VerifyToken(tokenString string) (*ModeratorClaims, error) {
	log := v.logger.With(zap.String("tokenSnippet", tokenSnippet(tokenString)))
	claims := &ModeratorClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			log.Warn("Unexpected signing method", zap.Any("alg", token.Header["alg"]))
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		log.Warn("Failed to parse or verify moderator token", zap.Error(err))
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, models.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, models.ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, models.ErrTokenInvalid
		}
		return nil, fmt.Errorf("%w: %v", models.ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, models.ErrTokenInvalid
	}

	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: user id missing", models.ErrTokenInvalid)
	}
	return claims, nil
}
