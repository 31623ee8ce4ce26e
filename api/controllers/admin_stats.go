package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/nordicloop/nordicloop-backend/api/responses"
	"github.com/nordicloop/nordicloop-backend/internal/stats"
	statstypes "github.com/nordicloop/nordicloop-backend/internal/stats/types"
	pkgerrors "github.com/nordicloop/nordicloop-backend/pkg/errors"
	"github.com/nordicloop/nordicloop-backend/pkg/logger"
)

const defaultStatsWindow = 30 * 24 * time.Hour

// AdminPaymentStats returns platform settlement KPIs over a date range.
// Defaults to the trailing 30 days when no range is given.
func AdminPaymentStats(svc stats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "stats backend not configured"))
			return
		}

		end := time.Now().UTC()
		start := end.Add(-defaultStatsWindow)

		if raw := strings.TrimSpace(r.URL.Query().Get("end")); raw != "" {
			parsed, err := parseStatsTime(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid end"))
				return
			}
			end = parsed
			start = end.Add(-defaultStatsWindow)
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("start")); raw != "" {
			parsed, err := parseStatsTime(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid start"))
				return
			}
			start = parsed
		}

		resp, err := svc.Stats(r.Context(), statstypes.StatsRequest{Start: start, End: end})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func parseStatsTime(raw string) (time.Time, error) {
	if parsed, err := time.Parse("2006-01-02", raw); err == nil {
		return parsed.UTC(), nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}
