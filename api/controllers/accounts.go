package controllers

import (
	"net/http"

	"github.com/nordicloop/nordicloop-backend/api/responses"
	"github.com/nordicloop/nordicloop-backend/api/validators"
	"github.com/nordicloop/nordicloop-backend/internal/accounts"
	pkgerrors "github.com/nordicloop/nordicloop-backend/pkg/errors"
	"github.com/nordicloop/nordicloop-backend/pkg/logger"
)

type onboardAccountRequest struct {
	Country string `json:"country" validate:"omitempty,len=2"`
	Email   string `json:"email" validate:"omitempty,email"`
}

// SellerAccountOnboard opens a gateway account for the calling company.
func SellerAccountOnboard(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "accounts service unavailable"))
			return
		}

		companyID, err := companyFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req onboardAccountRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.Onboard(r.Context(), accounts.OnboardInput{
			CompanyID: companyID,
			Country:   req.Country,
			Email:     req.Email,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, account)
	}
}

// SellerAccountProfile returns the calling company's gateway account state.
func SellerAccountProfile(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "accounts service unavailable"))
			return
		}

		companyID, err := companyFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.Get(r.Context(), companyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, account)
	}
}

// SellerAccountRefresh pulls the latest account snapshot from the
// gateway instead of waiting for the next account.updated webhook.
func SellerAccountRefresh(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "accounts service unavailable"))
			return
		}

		companyID, err := companyFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.Refresh(r.Context(), companyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, account)
	}
}
