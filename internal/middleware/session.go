package middleware

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
)

type ContextKey string

const SessionIDKey ContextKey = "simSessionID"

const sessionKey = "simSessionID"

// SimSession gives every client a stable simulation id stored in its scs session.
// Must run inside sessionManager.LoadAndSave.
func SimSession(sessionManager *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			idStr := sessionManager.GetString(r.Context(), sessionKey)

			id, err := uuid.Parse(idStr)
			if err != nil {
				id = uuid.New()
				sessionManager.Put(r.Context(), sessionKey, id.String())
			}

			ctx := context.WithValue(r.Context(), SessionIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetSessionIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	val := ctx.Value(SessionIDKey)
	if val == nil {
		return uuid.Nil, false
	}

	id, ok := val.(uuid.UUID)
	return id, ok
}
