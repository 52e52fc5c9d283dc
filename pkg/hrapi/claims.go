package hrapi

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v4"
)

// Claims is the token payload issued by the HR backend's login endpoint.
type Claims struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// DecodeClaims extracts the identity claims from an issued token without
// verifying the signature. The agent is a token consumer, not a verifier;
// the backend validates the token on every request.
func DecodeClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	return claims, nil
}

// Identity returns the operator email carried in the claims, falling back
// to the username and then the subject.
func (c *Claims) Identity() (string, error) {
	switch {
	case c.Email != "":
		return c.Email, nil
	case c.Username != "":
		return c.Username, nil
	case c.Subject != "":
		return c.Subject, nil
	}
	return "", errors.New("token carries no identity claim")
}
