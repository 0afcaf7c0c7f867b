package controllers

import (
	"net/http"
	"strings"

	"github.com/bananabill/backend/api/responses"
	"github.com/bananabill/backend/api/validators"
	"github.com/bananabill/backend/internal/farmers"
	pkgerrors "github.com/bananabill/backend/pkg/errors"
	"github.com/bananabill/backend/pkg/logger"
	"github.com/bananabill/backend/pkg/pagination"
)

type farmerRequest struct {
	Name    string `json:"name" validate:"required,min=1"`
	Mobile  string `json:"mobile,omitempty" validate:"omitempty,min=6,max=15"`
	Village string `json:"village,omitempty"`
	Address string `json:"address,omitempty"`
}

// FarmerCreate registers a farmer in the directory.
func FarmerCreate(svc *farmers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "farmer service unavailable"))
			return
		}

		var payload farmerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		farmer, err := svc.Create(r.Context(), farmers.CreateFarmerInput{
			Name:    payload.Name,
			Mobile:  payload.Mobile,
			Village: payload.Village,
			Address: payload.Address,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, farmer)
	}
}

// FarmerGet returns one farmer by id.
func FarmerGet(svc *farmers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "farmerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		farmer, err := svc.Resolve(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, farmer)
	}
}

// FarmerUpdate replaces the directory fields. A blank name keeps the
// stored one.
func FarmerUpdate(svc *farmers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "farmerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload farmerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		farmer, err := svc.Update(r.Context(), id, farmers.UpdateFarmerInput{
			Name:    payload.Name,
			Mobile:  payload.Mobile,
			Village: payload.Village,
			Address: payload.Address,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, farmer)
	}
}

// FarmerList lists the directory alphabetically, or looks one farmer up
// when a mobile number is given.
func FarmerList(svc *farmers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if mobile := strings.TrimSpace(r.URL.Query().Get("mobile")); mobile != "" {
			farmer, err := svc.FindByMobile(r.Context(), mobile)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, farmer)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.List(r.Context(), limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"farmers": rows})
	}
}
