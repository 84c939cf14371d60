package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthRouter(auth *Authenticator, protected bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(auth.Authenticate())

	handlers := []gin.HandlerFunc{}
	if protected {
		handlers = append(handlers, RequireOwner())
	}
	handlers = append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, OwnerID(c))
	})
	router.GET("/whoami", handlers...)

	return router
}

func doWhoami(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthenticate_ValidToken(t *testing.T) {
	auth := NewAuthenticator("s3cret", "shortlink")
	token, err := auth.IssueToken("user-42", time.Hour)
	require.NoError(t, err)

	w := doWhoami(setupAuthRouter(auth, true), "Bearer "+token)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-42", w.Body.String())
}

func TestAuthenticate_AnonymousAllowedWhenOptional(t *testing.T) {
	auth := NewAuthenticator("s3cret", "")

	w := doWhoami(setupAuthRouter(auth, false), "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestRequireOwner_RejectsAnonymous(t *testing.T) {
	auth := NewAuthenticator("s3cret", "")

	w := doWhoami(setupAuthRouter(auth, true), "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticate_RejectsBadTokens(t *testing.T) {
	auth := NewAuthenticator("s3cret", "shortlink")
	other := NewAuthenticator("other-secret", "shortlink")
	wrongIssuer := NewAuthenticator("s3cret", "someone-else")

	forged, err := other.IssueToken("user-42", time.Hour)
	require.NoError(t, err)
	expired, err := auth.IssueToken("user-42", -time.Minute)
	require.NoError(t, err)
	misissued, err := wrongIssuer.IssueToken("user-42", time.Hour)
	require.NoError(t, err)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user-42"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	router := setupAuthRouter(auth, false)
	for name, header := range map[string]string{
		"forged":       "Bearer " + forged,
		"expired":      "Bearer " + expired,
		"wrong issuer": "Bearer " + misissued,
		"alg none":     "Bearer " + unsigned,
		"not bearer":   "Basic dXNlcjpwYXNz",
		"garbage":      "Bearer not-a-jwt",
	} {
		t.Run(name, func(t *testing.T) {
			w := doWhoami(router, header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAuthenticate_NoSecretRejectsTokens(t *testing.T) {
	auth := NewAuthenticator("", "")

	_, err := auth.IssueToken("user-42", time.Hour)
	assert.Error(t, err)

	w := doWhoami(setupAuthRouter(auth, false), "Bearer whatever")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
