package middleware

import (
	"errors"
	"strings"

	"safaisetu/lifecycle"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	callerKey = "caller"
	// AdminRole is the value of the role claim that grants verification rights.
	AdminRole = "admin"
)

// AdminClaim resolves the caller from a Bearer token signed with secret
// (HS256). It never rejects a request: a missing or invalid token yields an
// anonymous caller, leaving the authorization decision to the lifecycle
// engine. If issuer is set, the iss claim must match it.
func AdminClaim(secret []byte, issuer string) gin.HandlerFunc {
	if len(secret) == 0 {
		log.Warn("ADMIN_JWT_SECRET is not set, no caller will be granted admin rights")
	}
	return func(c *gin.Context) {
		caller := lifecycle.Anonymous
		if tokenString := extractToken(c.GetHeader("Authorization")); tokenString != "" && len(secret) > 0 {
			parsed, err := parseCaller(tokenString, secret, issuer)
			if err != nil {
				log.Warnf("Rejected admin token from %s: %v", c.ClientIP(), err)
			} else {
				caller = parsed
			}
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

// CallerFrom returns the caller resolved by AdminClaim.
func CallerFrom(c *gin.Context) lifecycle.Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(lifecycle.Caller); ok {
			return caller
		}
	}
	return lifecycle.Anonymous
}

func parseCaller(tokenString string, secret []byte, issuer string) (lifecycle.Caller, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return lifecycle.Anonymous, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return lifecycle.Anonymous, errors.New("invalid token claims")
	}
	sub, _ := claims.GetSubject()
	role, _ := claims["role"].(string)
	return lifecycle.Caller{Subject: sub, IsAdmin: role == AdminRole}, nil
}

// extractToken extracts the token from the Authorization header
func extractToken(authHeader string) string {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
