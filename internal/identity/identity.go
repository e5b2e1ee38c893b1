// Package identity materializes the authenticated caller of a request.
//
// The backend is not a login system. An upstream layer authenticates users
// and issues HS256 tokens; this package only verifies the signature and
// turns the claims into the context the controllers authorize against.
package identity

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ipupy-tesoreria/backend/internal/authz"
)

var (
	ErrTokenMissing = errors.New("no bearer token was sent")
	ErrTokenInvalid = errors.New("the bearer token is invalid")
)

// Claims is the token payload. The subject is the actor id.
type Claims struct {
	Role     string   `json:"role"`
	ChurchID string   `json:"church_id,omitempty"`
	FundIDs  []string `json:"fund_ids,omitempty"`
	jwt.StandardClaims
}

// Sign issues a token for the given identity. Production tokens come from
// the upstream login system with the same secret, this is for tooling and
// tests.
func Sign(secret string, identity authz.Context, lifetime time.Duration) (string, error) {
	claims := Claims{
		Role: string(identity.Role),
		StandardClaims: jwt.StandardClaims{
			Subject:   identity.ActorID.String(),
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: time.Now().Add(lifetime).Unix(),
		},
	}

	if identity.ChurchID != nil {
		claims.ChurchID = identity.ChurchID.String()
	}

	for _, id := range identity.FundIDs {
		claims.FundIDs = append(claims.FundIDs, id.String())
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Parse verifies a token and returns the identity it carries.
func Parse(secret, token string) (authz.Context, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}

		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return authz.Context{}, ErrTokenInvalid
	}

	actor, err := uuid.Parse(claims.Subject)
	if err != nil {
		return authz.Context{}, fmt.Errorf("%w: the subject is not an id", ErrTokenInvalid)
	}

	identity := authz.Context{
		ActorID: actor,
		Role:    authz.Role(claims.Role),
	}

	if claims.ChurchID != "" {
		id, err := uuid.Parse(claims.ChurchID)
		if err != nil {
			return authz.Context{}, fmt.Errorf("%w: the church id is not an id", ErrTokenInvalid)
		}
		identity.ChurchID = &id
	}

	for _, raw := range claims.FundIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return authz.Context{}, fmt.Errorf("%w: a fund id is not an id", ErrTokenInvalid)
		}
		identity.FundIDs = append(identity.FundIDs, id)
	}

	return identity, nil
}

// contextKey is where the middleware stores the identity in the gin context.
const contextKey = "identity"

// Middleware verifies the bearer token of every request and stores the
// identity for the handlers. Preflight requests pass through since browsers
// do not send credentials on them.
func Middleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrTokenMissing.Error()})
			return
		}

		identity, err := Parse(secret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.Set(contextKey, identity)
		c.Next()
	}
}

// FromContext returns the identity the middleware stored for this request.
func FromContext(c *gin.Context) (authz.Context, bool) {
	value, ok := c.Get(contextKey)
	if !ok {
		return authz.Context{}, false
	}

	identity, ok := value.(authz.Context)
	return identity, ok
}
