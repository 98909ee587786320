package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"

	"valet-ticketing/internal/config"
	"valet-ticketing/internal/identity"
	"valet-ticketing/internal/logger"
)

type contextKey string

const actorKey contextKey = "actor"

// UserLookup confirms an actor id resolves to a live user row. It returns
// sql.ErrNoRows when the actor was deleted.
type UserLookup func(id string) error

// Middleware authenticates every request: bearer extraction, token
// verification (OIDC when an issuer is configured, signed JWT otherwise),
// role normalization, and a cached existence check so deleted actors are
// cut off. Requests with no usable identity are rejected here, before any
// scope resolution.
func Middleware(cfg config.AuthConfig, cache *ActorCache, lookup UserLookup, log *logger.Logger) func(http.Handler) http.Handler {
	var verifier *oidc.IDTokenVerifier
	if cfg.OIDCIssuer != "" {
		provider, err := oidc.NewProvider(context.Background(), cfg.OIDCIssuer)
		if err != nil {
			panic(fmt.Sprintf("Failed to create OIDC provider: %v", err))
		}
		verifier = provider.Verifier(&oidc.Config{SkipClientIDCheck: true})
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				http.Error(w, "not authorized: "+err.Error(), http.StatusUnauthorized)
				return
			}

			var claims *ActorClaims
			if verifier != nil {
				idToken, err := verifier.Verify(r.Context(), rawToken)
				if err != nil {
					http.Error(w, "invalid token", http.StatusUnauthorized)
					return
				}
				var c ActorClaims
				if err := idToken.Claims(&c); err != nil {
					http.Error(w, "failed to parse claims", http.StatusUnauthorized)
					return
				}
				claims = &c
			} else {
				claims, err = ParseActorClaims(rawToken, cfg.JWTSecret)
				if err != nil {
					http.Error(w, "invalid token", http.StatusUnauthorized)
					return
				}
			}

			actor, err := claims.Actor()
			if err != nil {
				if log != nil {
					log.LogAuth("REJECT", fmt.Sprintf("actor %s: %v", claims.Sub, err))
				}
				http.Error(w, "not authorized", http.StatusUnauthorized)
				return
			}

			if lookup != nil && !cache.Known(r.Context(), actor.ID) {
				if err := lookup(actor.ID); err != nil {
					if errors.Is(err, sql.ErrNoRows) {
						if log != nil {
							log.LogAuth("REJECT", fmt.Sprintf("actor %s no longer exists", actor.ID))
						}
						http.Error(w, "not authorized", http.StatusUnauthorized)
						return
					}
					// Store unavailable: fail closed.
					http.Error(w, "internal server error", http.StatusInternalServerError)
					return
				}
				cache.Mark(r.Context(), actor.ID)
			}

			ctx := context.WithValue(r.Context(), actorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorFromContext returns the authenticated actor, or a zero Actor for
// unauthenticated requests (which every permission check denies).
func ActorFromContext(ctx context.Context) identity.Actor {
	if actor, ok := ctx.Value(actorKey).(identity.Actor); ok {
		return actor
	}
	return identity.Actor{}
}

// WithActor injects an actor into a context, used by tests.
func WithActor(ctx context.Context, actor identity.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}
