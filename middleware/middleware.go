package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// ProfileCookie holds the anonymous profile id of a browser.
	ProfileCookie = "pt_profile"

	profileKey    = "profileID"
	addressKey    = "validatedAddress"
	profileMaxAge = 365 * 24 * 60 * 60
)

// BasicAuth returns a middleware that implements HTTP Basic Authentication
func BasicAuth() gin.HandlerFunc {
	username := os.Getenv("AUTH_USERNAME")
	password := os.Getenv("AUTH_PASSWORD")

	return func(c *gin.Context) {
		// Skip auth if credentials not configured
		if username == "" || password == "" {
			c.Next()
			return
		}

		user, pass, hasAuth := c.Request.BasicAuth()
		if !hasAuth {
			c.Header("WWW-Authenticate", `Basic realm="PolyTraders"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication_required",
			})
			return
		}

		usernameMatch := subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1
		passwordMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(password)) == 1

		if !usernameMatch || !passwordMatch {
			c.Header("WWW-Authenticate", `Basic realm="PolyTraders"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid_credentials",
			})
			return
		}

		c.Next()
	}
}

// Profile resolves the caller's profile id from the profile cookie, issuing
// a new one when the cookie is missing or malformed.
func Profile() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(ProfileCookie)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(ProfileCookie, id, profileMaxAge, "/", "", false, true)
		}
		c.Set(profileKey, id)
		c.Next()
	}
}

// ProfileID returns the profile id set by Profile.
func ProfileID(c *gin.Context) string {
	return c.GetString(profileKey)
}

// ValidateAddress validates that the named path parameter is a 0x-prefixed
// Ethereum address and stores its lowercase form.
func ValidateAddress(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		addr := strings.ToLower(strings.TrimSpace(c.Param(param)))
		if !IsValidEthAddress(addr) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_address",
				"message": "address must be 0x followed by 40 hex characters",
			})
			return
		}
		c.Set(addressKey, addr)
		c.Next()
	}
}

// Address returns the address stored by ValidateAddress.
func Address(c *gin.Context) string {
	return c.GetString(addressKey)
}

// IsValidEthAddress checks if a string is a valid 0x-prefixed Ethereum address
func IsValidEthAddress(addr string) bool {
	addr = strings.TrimSpace(addr)
	if !strings.HasPrefix(addr, "0x") && !strings.HasPrefix(addr, "0X") {
		return false
	}
	return common.IsHexAddress(addr)
}

// RequestLogger logs one line per request.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		event := logger.Info()
		switch {
		case status >= http.StatusInternalServerError:
			event = logger.Error()
		case status >= http.StatusBadRequest:
			event = logger.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}
