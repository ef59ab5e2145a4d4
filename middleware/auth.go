package middleware

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// claims struct to hold JWT custom claims
type claims struct {
	Email string `json:"sub"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

func parseToken(tokenString, jwtSigningKey, issuer string) (*claims, error) {
	var opts []jwt.ParserOption
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSigningKey), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return c, nil
}

// Identity attaches the caller's identity when a bearer token is present.
// Exam sessions work anonymously, so a missing header is fine; a present but
// invalid token is rejected. An empty issuer disables the issuer check.
func Identity(jwtSigningKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && strings.ToLower(parts[0]) == "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}
		cl, err := parseToken(parts[1], jwtSigningKey, issuer)
		if err != nil {
			log.Printf("JWT parsing error: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		c.Set("user_email", cl.Email)
		c.Set("user_role", cl.Role)
		c.Next()
	}
}

// BotAuth guards the bot API with a shared static token. The bot is a trusted
// backend-to-backend caller and receives questions with solutions.
func BotAuth(botToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if botToken == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Bot API disabled"})
			return
		}
		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && strings.ToLower(parts[0]) == "bearer") || parts[1] != botToken {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid bot token"})
			return
		}
		c.Next()
	}
}

// Logger middleware for request logging
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		t := time.Now()
		c.Next()
		latency := time.Since(t)
		log.Printf("[dinomed] %s %s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Request.Proto, c.Writer.Status(), latency)
	}
}
