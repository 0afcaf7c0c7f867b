package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/bananabill/backend/api/middleware"
	"github.com/bananabill/backend/api/responses"
	"github.com/bananabill/backend/api/validators"
	"github.com/bananabill/backend/internal/payments"
	"github.com/bananabill/backend/pkg/enums"
	pkgerrors "github.com/bananabill/backend/pkg/errors"
	"github.com/bananabill/backend/pkg/logger"
)

type recordPaymentRequest struct {
	Amount         decimal.Decimal `json:"amount" validate:"required"`
	Method         string          `json:"method,omitempty"`
	TransactionRef string          `json:"transaction_ref,omitempty"`
	Notes          string          `json:"notes,omitempty"`
}

// PaymentRecord applies one payment against a bill. Amounts accumulate;
// paying past the net amount books the excess as advance.
func PaymentRecord(svc *payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		billID, err := billIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload recordPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bill, err := svc.RecordPayment(r.Context(), payments.RecordPaymentInput{
			BillID:         billID,
			Amount:         payload.Amount,
			Method:         validators.SanitizeString(payload.Method, 32),
			TransactionRef: validators.SanitizeString(payload.TransactionRef, 64),
			Notes:          validators.SanitizeString(payload.Notes, 256),
			ActorID:        middleware.UserIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bill)
	}
}

// PaymentMarkPaid settles the bill in one stroke: paid becomes exactly the
// net amount, whatever was recorded before.
func PaymentMarkPaid(svc *payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		billID, err := billIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bill, err := svc.MarkAsPaid(r.Context(), billID, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bill)
	}
}

type paymentStatusRequest struct {
	Status     string           `json:"status" validate:"required"`
	PaidAmount *decimal.Decimal `json:"paid_amount,omitempty"`
}

// PaymentStatusUpdate overrides the payment status directly. The override
// lands in the history trail as an adjustment.
func PaymentStatusUpdate(svc *payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		billID, err := billIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload paymentStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bill, err := svc.UpdatePaymentStatus(
			r.Context(),
			billID,
			enums.PaymentStatus(payload.Status),
			payload.PaidAmount,
			middleware.UserIDFromContext(r.Context()),
		)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bill)
	}
}

// PaymentHistory lists the bill's ledger entries newest first.
func PaymentHistory(svc *payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		billID, err := billIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.History(r.Context(), billID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"payments": rows})
	}
}
