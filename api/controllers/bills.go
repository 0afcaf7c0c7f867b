package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bananabill/backend/api/middleware"
	"github.com/bananabill/backend/api/responses"
	"github.com/bananabill/backend/api/validators"
	"github.com/bananabill/backend/internal/bills"
	"github.com/bananabill/backend/pkg/enums"
	pkgerrors "github.com/bananabill/backend/pkg/errors"
	"github.com/bananabill/backend/pkg/logger"
	"github.com/bananabill/backend/pkg/pagination"
)

const dateLayout = "2006-01-02"

type billWriteRequest struct {
	FarmerID      uuid.UUID       `json:"farmer_id" validate:"required"`
	VehicleNumber string          `json:"vehicle_number,omitempty"`
	GrossWeight   decimal.Decimal `json:"gross_weight" validate:"required"`
	PattiWeight   decimal.Decimal `json:"patti_weight"`
	BoxCount      int             `json:"box_count" validate:"min=0"`
	TutWastage    decimal.Decimal `json:"tut_wastage"`
	RatePerKg     decimal.Decimal `json:"rate_per_kg" validate:"required"`
	Majuri        decimal.Decimal `json:"majuri"`
	DueDate       *time.Time      `json:"due_date,omitempty"`
}

type billUpdateRequest struct {
	billWriteRequest
	ExpectedVersion int64 `json:"expected_version" validate:"min=0"`
}

// BillCreate cuts a new bill: the figures run through the weighment
// formula and the bill gets the next number in the monthly sequence.
func BillCreate(svc *bills.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bill service unavailable"))
			return
		}

		var payload billWriteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bill, err := svc.Create(r.Context(), bills.CreateBillInput{
			FarmerID:      payload.FarmerID,
			VehicleNumber: validators.SanitizeString(payload.VehicleNumber, 32),
			GrossWeight:   payload.GrossWeight,
			PattiWeight:   payload.PattiWeight,
			BoxCount:      payload.BoxCount,
			TutWastage:    payload.TutWastage,
			RatePerKg:     payload.RatePerKg,
			Majuri:        payload.Majuri,
			DueDate:       payload.DueDate,
			ActorID:       middleware.UserIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, bill)
	}
}

// BillGet returns one bill by id.
func BillGet(svc *bills.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := billIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bill, err := svc.GetByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bill)
	}
}

// BillUpdate replaces the bill's figures and recalculates every derived
// column. The caller must echo the version it last read.
func BillUpdate(svc *bills.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := billIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload billUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bill, err := svc.Update(r.Context(), id, bills.UpdateBillInput{
			FarmerID:        payload.FarmerID,
			VehicleNumber:   validators.SanitizeString(payload.VehicleNumber, 32),
			GrossWeight:     payload.GrossWeight,
			PattiWeight:     payload.PattiWeight,
			BoxCount:        payload.BoxCount,
			TutWastage:      payload.TutWastage,
			RatePerKg:       payload.RatePerKg,
			Majuri:          payload.Majuri,
			DueDate:         payload.DueDate,
			ExpectedVersion: payload.ExpectedVersion,
			ActorID:         middleware.UserIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bill)
	}
}

// BillDelete removes a bill outright. Payment history rows go with it.
func BillDelete(svc *bills.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := billIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

type billListResponse struct {
	Bills      any    `json:"bills"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// BillList serves every read mode from one endpoint. A bill number returns
// the single match, filter params run a search, and the bare endpoint pages
// newest first with an opaque cursor.
func BillList(svc *bills.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if number := strings.TrimSpace(q.Get("number")); number != "" {
			bill, err := svc.GetByNumber(r.Context(), number)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, bill)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if farmerRaw := strings.TrimSpace(q.Get("farmer_id")); farmerRaw != "" {
			farmerID, parseErr := uuid.Parse(farmerRaw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid farmer id"))
				return
			}
			rows, listErr := svc.ListByFarmer(r.Context(), farmerID, pagination.NormalizeLimit(limit))
			if listErr != nil {
				responses.WriteError(r.Context(), logg, w, listErr)
				return
			}
			responses.WriteSuccess(w, billListResponse{Bills: rows})
			return
		}

		if q.Get("recent") == "true" {
			rows, listErr := svc.ListRecent(r.Context(), pagination.NormalizeLimit(limit))
			if listErr != nil {
				responses.WriteError(r.Context(), logg, w, listErr)
				return
			}
			responses.WriteSuccess(w, billListResponse{Bills: rows})
			return
		}

		if q.Get("unpaid") == "true" {
			rows, listErr := svc.ListUnpaid(r.Context(), pagination.NormalizeLimit(limit))
			if listErr != nil {
				responses.WriteError(r.Context(), logg, w, listErr)
				return
			}
			responses.WriteSuccess(w, billListResponse{Bills: rows})
			return
		}

		filters, hasFilters, err := searchFiltersFromQuery(r, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if hasFilters {
			rows, searchErr := svc.Search(r.Context(), filters)
			if searchErr != nil {
				responses.WriteError(r.Context(), logg, w, searchErr)
				return
			}
			responses.WriteSuccess(w, billListResponse{Bills: rows})
			return
		}

		rows, next, err := svc.ListPage(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: q.Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, billListResponse{Bills: rows, NextCursor: next})
	}
}

// BillStats summarizes the day's cutting and the outstanding book.
func BillStats(svc *bills.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		today, err := svc.CountToday(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unpaidCount, err := svc.CountUnpaid(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unpaidTotal, err := svc.TotalUnpaidAmount(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"bills_today":  today,
			"unpaid_bills": unpaidCount,
			"unpaid_total": unpaidTotal,
		})
	}
}

type billDueDateRequest struct {
	DueDate time.Time `json:"due_date" validate:"required"`
}

// BillSetDueDate stamps the payout due date the reminder worker watches.
func BillSetDueDate(svc *bills.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := billIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload billDueDateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bill, err := svc.SetDueDate(r.Context(), id, payload.DueDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bill)
	}
}

// FarmerBillReport aggregates a farmer's billing position.
func FarmerBillReport(svc *bills.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		farmerID, err := uuidParam(r, "farmerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.FarmerReport(r.Context(), farmerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

func searchFiltersFromQuery(r *http.Request, limit int) (bills.SearchFilters, bool, error) {
	q := r.URL.Query()
	filters := bills.SearchFilters{Limit: limit}
	has := false

	if mobile := strings.TrimSpace(q.Get("mobile")); mobile != "" {
		filters.FarmerMobile = mobile
		has = true
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status, err := enums.ParsePaymentStatus(strings.ToUpper(raw))
		if err != nil {
			return filters, false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status").WithDetails(map[string]any{"field": "status"})
		}
		filters.Status = status
		has = true
	}
	if raw := strings.TrimSpace(q.Get("start")); raw != "" {
		start, err := time.Parse(dateLayout, raw)
		if err != nil {
			return filters, false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid start date").WithDetails(map[string]any{"field": "start"})
		}
		filters.Start = &start
		has = true
	}
	if raw := strings.TrimSpace(q.Get("end")); raw != "" {
		end, err := time.Parse(dateLayout, raw)
		if err != nil {
			return filters, false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid end date").WithDetails(map[string]any{"field": "end"})
		}
		// make the end date inclusive
		endOfDay := end.Add(24*time.Hour - time.Nanosecond)
		filters.End = &endOfDay
		has = true
	}

	return filters, has, nil
}

func billIDParam(r *http.Request) (uuid.UUID, error) {
	return uuidParam(r, "billId")
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid id").WithDetails(map[string]any{"field": name})
	}
	return id, nil
}
