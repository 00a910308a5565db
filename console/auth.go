// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package console

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// CredentialChecker tells if the provided credentials are valid.
type CredentialChecker interface {
	CheckCredentials(username, password string) bool
}

// BasicCredentials accepts a single username and password.
type BasicCredentials struct {
	Username string
	Password string
}

// CheckCredentials compares the provided credentials in constant time.
func (bc BasicCredentials) CheckCredentials(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(bc.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(bc.Password)) == 1
	return userOK && passOK
}

// unauthenticatedPaths are reachable without credentials. The WebSocket
// endpoint checks a token instead.
var unauthenticatedPaths = map[string]bool{
	"/api/v0/health": true,
	"/api/v0/ws":     true,
}

// basicAuthentication is a middleware checking Basic credentials with
// the configured checker. Without checker, everything is allowed.
func (c *Component) basicAuthentication() gin.HandlerFunc {
	return func(gc *gin.Context) {
		if c.checker == nil || unauthenticatedPaths[gc.Request.URL.Path] {
			gc.Next()
			return
		}
		username, password, ok := gc.Request.BasicAuth()
		if ok && c.checker.CheckCredentials(username, password) {
			gc.Next()
			return
		}
		c.metrics.authFailures.Inc()
		gc.Header("WWW-Authenticate", `Basic realm="unifimon"`)
		gc.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized."})
	}
}

// wsToken returns the WebSocket token for the hour containing now,
// shifted by offset hours.
func (c *Component) wsToken(now time.Time, offset int64) string {
	hour := now.Unix()/3600 + offset
	raw := fmt.Sprintf("%s:%s:%d", c.config.Username, c.config.Password, hour)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])[:32]
}

// validWSToken accepts the token of the current hour and the previous one.
func (c *Component) validWSToken(token string) bool {
	if c.checker == nil {
		return true
	}
	now := c.d.Clock.Now()
	for _, offset := range []int64{0, -1} {
		if subtle.ConstantTimeCompare([]byte(token), []byte(c.wsToken(now, offset))) == 1 {
			return true
		}
	}
	return false
}

func (c *Component) authTokenHandlerFunc(gc *gin.Context) {
	if c.checker == nil {
		gc.JSON(http.StatusOK, gin.H{"token": ""})
		return
	}
	gc.JSON(http.StatusOK, gin.H{"token": c.wsToken(c.d.Clock.Now(), 0)})
}

func (c *Component) wsHandlerFunc(gc *gin.Context) {
	if !c.validWSToken(gc.Query("token")) {
		c.metrics.authFailures.Inc()
		gc.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid token."})
		return
	}
	c.d.Hub.ServeHTTP(gc.Writer, gc.Request)
}
