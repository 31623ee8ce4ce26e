package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/nordicloop/nordicloop-backend/api/responses"
	pkgerrors "github.com/nordicloop/nordicloop-backend/pkg/errors"
	"github.com/nordicloop/nordicloop-backend/pkg/logger"
)

const (
	userIDHeader    = "X-User-Id"
	companyIDHeader = "X-Company-Id"
	actorRoleHeader = "X-Actor-Role"
)

// Identity trusts the identity headers stamped by the edge proxy after
// it has verified the session, and seeds the request context with them.
// Requests that reach this service without a company id are rejected.
func Identity(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			companyID := strings.TrimSpace(r.Header.Get(companyIDHeader))
			if companyID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
				return
			}
			if _, err := uuid.Parse(companyID); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid company id"))
				return
			}

			ctx := context.WithValue(r.Context(), ctxCompanyID, companyID)

			userID := strings.TrimSpace(r.Header.Get(userIDHeader))
			if userID != "" {
				if _, err := uuid.Parse(userID); err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id"))
					return
				}
				ctx = context.WithValue(ctx, ctxUserID, userID)
			}

			role := strings.TrimSpace(r.Header.Get(actorRoleHeader))
			if role != "" {
				ctx = context.WithValue(ctx, ctxRole, role)
			}

			if logg != nil {
				fields := map[string]any{"company_id": companyID}
				if userID != "" {
					fields["user_id"] = userID
				}
				if role != "" {
					fields["actor_role"] = role
				}
				ctx = logg.WithFields(ctx, fields)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
