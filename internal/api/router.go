package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/bitbazaar/marketplace-backend/internal/api/httpx"
	"github.com/bitbazaar/marketplace-backend/internal/api/validate"
	"github.com/bitbazaar/marketplace-backend/internal/config"
	"github.com/bitbazaar/marketplace-backend/internal/metrics"
	"github.com/bitbazaar/marketplace-backend/internal/middleware"
	"github.com/bitbazaar/marketplace-backend/internal/models"
	"github.com/bitbazaar/marketplace-backend/internal/services"
)

type Deps struct {
	Cfg        config.Config
	AccountSvc *services.AccountService
	ItemSvc    *services.ItemService
	OrderSvc   *services.OrderService
	AuthMW     *middleware.AuthMiddleware
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics, middleware.RateLimit(d.Cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// ---------- auth ----------
		r.Post("/auth/register", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Email           string `json:"email"`
				Password        string `json:"password"`
				Role            string `json:"role"`
				ExternalAddress string `json:"external_address"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httpx.WriteError(w, http.StatusBadRequest, "validation_error", "bad request", nil)
				return
			}
			var errs validate.Errs
			if e := validate.Required("email", req.Email); e != nil {
				errs = append(errs, *e)
			}
			if e := validate.OneOf("role", req.Role, string(models.RoleBuyer), string(models.RoleSeller)); e != nil {
				errs = append(errs, *e)
			}
			if len(errs) > 0 {
				httpx.WriteError(w, http.StatusBadRequest, "validation_error", errs.Error(), errs)
				return
			}
			a, err := d.AccountSvc.Register(r.Context(), req.Email, req.Password, models.Role(req.Role), req.ExternalAddress)
			if err != nil {
				httpx.WriteAppError(w, err)
				return
			}
			httpx.WriteJSON(w, http.StatusCreated, a)
		})

		r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Email    string `json:"email"`
				Password string `json:"password"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httpx.WriteError(w, http.StatusBadRequest, "validation_error", "bad request", nil)
				return
			}
			token, exp, err := d.AccountSvc.Login(r.Context(), req.Email, req.Password)
			if err != nil {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials", nil)
				return
			}
			httpx.WriteJSON(w, http.StatusOK, map[string]any{"token": token, "expires_at": exp})
		})

		// ---------- items ----------
		r.Get("/items", func(w http.ResponseWriter, r *http.Request) {
			items, err := d.ItemSvc.List(r.Context())
			if err != nil {
				httpx.WriteAppError(w, err)
				return
			}
			httpx.WriteJSON(w, http.StatusOK, items)
		})

		r.Group(func(r chi.Router) {
			r.Use(d.AuthMW.Auth)

			r.With(middleware.RequireRole(string(models.RoleSeller))).Post("/items", func(w http.ResponseWriter, r *http.Request) {
				sellerID, _ := middleware.AccountID(r.Context())
				var req struct {
					Title string `json:"title"`
					Price int64  `json:"price"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					httpx.WriteError(w, http.StatusBadRequest, "validation_error", "bad request", nil)
					return
				}
				var errs validate.Errs
				if e := validate.Required("title", req.Title); e != nil {
					errs = append(errs, *e)
				}
				if e := validate.MinInt("price", req.Price, 1); e != nil {
					errs = append(errs, *e)
				}
				if len(errs) > 0 {
					httpx.WriteError(w, http.StatusBadRequest, "validation_error", errs.Error(), errs)
					return
				}
				it, err := d.ItemSvc.Create(r.Context(), sellerID, req.Title, req.Price)
				if err != nil {
					httpx.WriteAppError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusCreated, it)
			})

			r.With(middleware.RequireRole(string(models.RoleSeller))).Delete("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
				sellerID, _ := middleware.AccountID(r.Context())
				if err := d.ItemSvc.Deactivate(r.Context(), chi.URLParam(r, "id"), sellerID); err != nil {
					httpx.WriteAppError(w, err)
					return
				}
				w.WriteHeader(http.StatusNoContent)
			})

			// ---------- orders ----------
			r.Post("/orders", func(w http.ResponseWriter, r *http.Request) {
				buyerID, _ := middleware.AccountID(r.Context())
				var req struct {
					ItemID  string `json:"item_id"`
					PayRail string `json:"pay_rail"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					httpx.WriteError(w, http.StatusBadRequest, "validation_error", "bad request", nil)
					return
				}
				var errs validate.Errs
				if e := validate.Required("item_id", req.ItemID); e != nil {
					errs = append(errs, *e)
				}
				if e := validate.OneOf("pay_rail", req.PayRail, string(models.RailInternal), string(models.RailExternal)); e != nil {
					errs = append(errs, *e)
				}
				if len(errs) > 0 {
					httpx.WriteError(w, http.StatusBadRequest, "validation_error", errs.Error(), errs)
					return
				}
				res, err := d.OrderSvc.Purchase(r.Context(), buyerID, req.ItemID, models.PayRail(req.PayRail))
				if err != nil {
					httpx.WriteAppError(w, err)
					return
				}
				status := http.StatusCreated
				if res.Order.Status == models.OrderPending {
					status = http.StatusAccepted
				}
				httpx.WriteJSON(w, status, res)
			})

			r.Get("/orders", func(w http.ResponseWriter, r *http.Request) {
				buyerID, _ := middleware.AccountID(r.Context())
				limit, offset := 50, 0
				if v := r.URL.Query().Get("limit"); v != "" {
					if n, err := strconv.Atoi(v); err == nil && n > 0 {
						limit = n
					}
				}
				if v := r.URL.Query().Get("offset"); v != "" {
					if n, err := strconv.Atoi(v); err == nil && n >= 0 {
						offset = n
					}
				}
				orders, err := d.OrderSvc.List(r.Context(), buyerID, limit, offset)
				if err != nil {
					httpx.WriteAppError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, orders)
			})

			r.Get("/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
				buyerID, _ := middleware.AccountID(r.Context())
				o, err := d.OrderSvc.Get(r.Context(), buyerID, chi.URLParam(r, "id"))
				if err != nil {
					httpx.WriteAppError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, o)
			})

			r.Get("/orders/{id}/credential", func(w http.ResponseWriter, r *http.Request) {
				buyerID, _ := middleware.AccountID(r.Context())
				t, err := d.OrderSvc.Credential(r.Context(), buyerID, chi.URLParam(r, "id"))
				if err != nil {
					httpx.WriteAppError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, t)
			})

			// ---------- downloads ----------
			r.Get("/downloads/{token}", func(w http.ResponseWriter, r *http.Request) {
				t, err := d.OrderSvc.Redeem(r.Context(), chi.URLParam(r, "token"))
				if err != nil {
					httpx.WriteAppError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, map[string]any{
					"order_id": t.OrderID,
					"message":  "download authorized; token is now spent",
				})
			})

			// ---------- balances ----------
			r.Get("/balances/current", func(w http.ResponseWriter, r *http.Request) {
				id, _ := middleware.AccountID(r.Context())
				a, err := d.AccountSvc.Get(r.Context(), id)
				if err != nil {
					httpx.WriteAppError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, map[string]any{"account_id": a.ID, "internal_balance": a.InternalBalance})
			})

			r.Post("/balances/deposit", func(w http.ResponseWriter, r *http.Request) {
				id, _ := middleware.AccountID(r.Context())
				var req struct {
					Amount int64 `json:"amount"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					httpx.WriteError(w, http.StatusBadRequest, "validation_error", "bad request", nil)
					return
				}
				a, err := d.AccountSvc.Deposit(r.Context(), id, req.Amount)
				if err != nil {
					httpx.WriteAppError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, a)
			})
		})
	})

	return r
}
