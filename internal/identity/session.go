// Package identity resolves the caller's session from a bearer token.
// Identity is optional everywhere: a missing or invalid token yields an
// anonymous session, never an error.
package identity

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Profile is the user identity carried inside the token.
type Profile struct {
	UserID string
	Email  string
	Name   string
}

// Session is the resolved caller identity for one request.
type Session struct {
	Authenticated bool
	Profile       Profile
}

// Anonymous is the session used when no valid token is presented.
func Anonymous() Session {
	return Session{}
}

// Resolver parses HS256 bearer tokens into sessions.
type Resolver struct {
	secret []byte
}

func NewResolver(secret string) *Resolver {
	return &Resolver{secret: []byte(secret)}
}

// FromAuthorizationHeader resolves a session from an Authorization header
// value ("Bearer <token>").
func (r *Resolver) FromAuthorizationHeader(header string) Session {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return Anonymous()
	}
	return r.FromToken(strings.TrimSpace(parts[1]))
}

// FromToken resolves a session from a raw JWT.
func (r *Resolver) FromToken(tokenString string) Session {
	if tokenString == "" || len(r.secret) == 0 {
		return Anonymous()
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return r.secret, nil
	})
	if err != nil || !token.Valid {
		return Anonymous()
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Anonymous()
	}

	session := Session{Authenticated: true}
	if id, ok := claims["id"].(string); ok {
		session.Profile.UserID = id
	}
	if email, ok := claims["email"].(string); ok {
		session.Profile.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		session.Profile.Name = name
	}
	if session.Profile.UserID == "" {
		// A token that identifies nobody is as good as no token.
		return Anonymous()
	}
	return session
}
