package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"valet-ticketing/internal/identity"
)

// ActorClaims are the identity fields the credential service embeds in
// every token. The core trusts them as already authenticated.
type ActorClaims struct {
	Sub          string `json:"sub"`
	Username     string `json:"username"`
	Role         string `json:"role"`
	PointID      string `json:"point_id"`
	SupervisorID string `json:"supervisor_id"`
}

// ExtractTokenFromRequest extracts a bearer token from the Authorization
// header.
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header is missing")
	}

	// Bearer token format: "Bearer {token}"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("authorization header format must be 'Bearer {token}'")
	}

	return parts[1], nil
}

// ParseActorClaims parses the token into actor claims. With a secret the
// HMAC signature is verified; without one the token is parsed unverified,
// for deployments where an upstream gateway already validated it.
func ParseActorClaims(tokenString, secret string) (*ActorClaims, error) {
	if tokenString == "" {
		return nil, errors.New("empty token")
	}

	var mapClaims jwt.MapClaims
	if secret != "" {
		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to verify token: %w", err)
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return nil, errors.New("invalid token claims")
		}
		mapClaims = claims
	} else {
		token, _, err := new(jwt.Parser).ParseUnverified(tokenString, jwt.MapClaims{})
		if err != nil {
			return nil, fmt.Errorf("failed to parse token: %w", err)
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return nil, errors.New("invalid token claims")
		}
		mapClaims = claims
	}

	actorClaims := &ActorClaims{
		Sub:          stringClaim(mapClaims, "sub"),
		Username:     stringClaim(mapClaims, "username"),
		Role:         stringClaim(mapClaims, "role"),
		PointID:      stringClaim(mapClaims, "point_id"),
		SupervisorID: stringClaim(mapClaims, "supervisor_id"),
	}
	if actorClaims.Sub == "" {
		return nil, errors.New("subject claim not found in token")
	}
	return actorClaims, nil
}

// Actor converts claims into an identity.Actor, normalizing the role.
// Legacy tokens carry mixed-case or padded role strings.
func (c *ActorClaims) Actor() (identity.Actor, error) {
	role, ok := identity.ParseRole(c.Role)
	if !ok {
		return identity.Actor{}, fmt.Errorf("unrecognized role %q", c.Role)
	}
	return identity.Actor{
		ID:           c.Sub,
		Username:     c.Username,
		Role:         role,
		PointID:      c.PointID,
		SupervisorID: c.SupervisorID,
	}, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
