package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bananabill/backend/api/controllers"
	"github.com/bananabill/backend/api/middleware"
	"github.com/bananabill/backend/internal/bills"
	"github.com/bananabill/backend/internal/farmers"
	"github.com/bananabill/backend/internal/payments"
	"github.com/bananabill/backend/pkg/config"
	"github.com/bananabill/backend/pkg/db"
	"github.com/bananabill/backend/pkg/logger"
	pkgredis "github.com/bananabill/backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP pkgredis.Pinger,
	idemStore pkgredis.IdempotencyStore,
	billService *bills.Service,
	paymentService *payments.Service,
	farmerService *farmers.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/bills", func(r chi.Router) {
			r.Post("/", controllers.BillCreate(billService, logg))
			r.Get("/", controllers.BillList(billService, logg))

			r.Route("/{billId}", func(r chi.Router) {
				r.Get("/", controllers.BillGet(billService, logg))
				r.Put("/", controllers.BillUpdate(billService, logg))
				r.Delete("/", controllers.BillDelete(billService, logg))
				r.Put("/due-date", controllers.BillSetDueDate(billService, logg))

				r.Post("/payments", controllers.PaymentRecord(paymentService, logg))
				r.Get("/payments", controllers.PaymentHistory(paymentService, logg))
				r.Post("/paid", controllers.PaymentMarkPaid(paymentService, logg))
				r.Put("/payment-status", controllers.PaymentStatusUpdate(paymentService, logg))
			})
		})

		r.Route("/farmers", func(r chi.Router) {
			r.Post("/", controllers.FarmerCreate(farmerService, logg))
			r.Get("/", controllers.FarmerList(farmerService, logg))

			r.Route("/{farmerId}", func(r chi.Router) {
				r.Get("/", controllers.FarmerGet(farmerService, logg))
				r.Put("/", controllers.FarmerUpdate(farmerService, logg))
			})
		})

		r.Get("/reports/farmer/{farmerId}", controllers.FarmerBillReport(billService, logg))
		r.Get("/dashboard/summary", controllers.BillStats(billService, logg))
	})

	return r
}
