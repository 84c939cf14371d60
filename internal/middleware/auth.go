package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gamassss/shortlink/internal/logger"
	"github.com/gamassss/shortlink/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const ownerIDKey = "owner_id"

var errMissingSecret = errors.New("token verification is not configured")

// Authenticator turns a bearer token issued by the identity provider into an
// owner ID. It never looks users up; the token subject is the owner.
type Authenticator struct {
	secret []byte
	issuer string
}

func NewAuthenticator(secret, issuer string) *Authenticator {
	return &Authenticator{
		secret: []byte(secret),
		issuer: issuer,
	}
}

// Authenticate resolves the owner when a bearer token is present. Requests
// without one continue anonymously; requests with a bad one are rejected.
func (a *Authenticator) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			response.Unauthorized(c, "malformed authorization header")
			c.Abort()
			return
		}

		ownerID, err := a.verify(tokenString)
		if err != nil {
			logger.FromContext(c.Request.Context()).Warn("Rejected bearer token", "error", err)
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}

		c.Set(ownerIDKey, ownerID)
		c.Next()
	}
}

// IssueToken signs a token for ownerID. The identity provider owns issuance
// in production; this exists for local tooling and tests.
func (a *Authenticator) IssueToken(ownerID string, ttl time.Duration) (string, error) {
	if len(a.secret) == 0 {
		return "", errMissingSecret
	}

	now := time.Now()
	claims := &jwt.RegisteredClaims{
		Subject:   ownerID,
		Issuer:    a.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authenticator) verify(tokenString string) (string, error) {
	if len(a.secret) == 0 {
		return "", errMissingSecret
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("token has no subject")
	}

	return claims.Subject, nil
}

// RequireOwner rejects anonymous requests.
func RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		if OwnerID(c) == "" {
			response.Unauthorized(c, "authentication required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// OwnerID returns the authenticated owner, or "" for anonymous requests.
func OwnerID(c *gin.Context) string {
	return c.GetString(ownerIDKey)
}
