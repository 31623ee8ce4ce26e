package controllers

import (
	"net/http"

	"github.com/nordicloop/nordicloop-backend/api/middleware"
	"github.com/nordicloop/nordicloop-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "private", "status": "ok"}
		if company := middleware.CompanyIDFromContext(r.Context()); company != "" {
			payload["company_id"] = company
		}
		responses.WriteSuccess(w, payload)
	}
}

func AdminPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "admin", "status": "ok"}
		if company := middleware.CompanyIDFromContext(r.Context()); company != "" {
			payload["company_id"] = company
		}
		responses.WriteSuccess(w, payload)
	}
}
