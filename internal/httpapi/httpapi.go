package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"herbmanager/backend/internal/domain"
	"herbmanager/backend/internal/service"
	"herbmanager/backend/internal/store"
	"herbmanager/backend/internal/xid"
)

const (
	msgInvalidID   = "المعرف غير صحيح"
	msgInvalidYear = "السنة غير صحيحة"
	msgInvalidProd = "المنتج غير صحيح"
	msgInvalidJSON = "صيغة الطلب غير صحيحة"
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	loginLimiter  *attemptLimiter
}

// New wires the REST surface. A nil auth leaves every route open.
func New(svc *service.Service, auth *AuthManager, allowedOrigin string) *API {
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)

	mux.HandleFunc("/api/v1/categories", a.requireAuth(a.handleCategories))
	mux.HandleFunc("/api/v1/products", a.requireAuth(a.handleProducts))
	mux.HandleFunc("/api/v1/products/", a.requireAuth(a.handleProductActions))
	mux.HandleFunc("/api/v1/suppliers", a.requireAuth(a.handleSuppliers))
	mux.HandleFunc("/api/v1/invoices", a.requireAuth(a.handleInvoices))
	mux.HandleFunc("/api/v1/invoices/", a.requireAuth(a.handleInvoiceActions))
	mux.HandleFunc("/api/v1/statistics", a.requireAuth(a.handleStatistics))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	if a.auth == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		if actor.Role != adminRole {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "time": time.Now().UTC().Format(time.RFC3339)})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if a.auth == nil {
		writeError(w, http.StatusNotFound, errors.New("authentication is disabled"))
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		categories, err := a.service.ListCategories(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, categories)
	case http.MethodPost:
		var req domain.CategoryRequest
		if err := decodeJSON(r, &req); err != nil {
			writeBadJSON(w, err)
			return
		}
		category, err := a.service.CreateCategory(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, category)
	case http.MethodPatch:
		var req domain.CategoryRequest
		if err := decodeJSON(r, &req); err != nil {
			writeBadJSON(w, err)
			return
		}
		category, err := a.service.UpdateCategory(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, category)
	case http.MethodDelete:
		id, err := queryID(r)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if err := a.service.DeleteCategory(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		writeMessage(w, "Category deleted")
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		products, err := a.service.ListProducts(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, products)
	case http.MethodPost:
		var req domain.ProductRequest
		if err := decodeJSON(r, &req); err != nil {
			writeBadJSON(w, err)
			return
		}
		product, err := a.service.CreateProduct(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, product)
	case http.MethodPatch:
		var req domain.ProductRequest
		if err := decodeJSON(r, &req); err != nil {
			writeBadJSON(w, err)
			return
		}
		product, err := a.service.UpdateProduct(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, product)
	case http.MethodDelete:
		id, err := queryID(r)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if err := a.service.DeleteProduct(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		writeMessage(w, "Product deleted")
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleProductActions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r.URL.Path, "/api/v1/products/")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		product, err := a.service.GetProduct(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, product)
	case http.MethodPatch, http.MethodPut:
		var req domain.ProductRequest
		if err := decodeJSON(r, &req); err != nil {
			writeBadJSON(w, err)
			return
		}
		req.ID = id
		product, err := a.service.UpdateProduct(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, product)
	case http.MethodDelete:
		if err := a.service.DeleteProduct(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		writeMessage(w, "Product deleted")
	default:
		writeMethodNotAllowed(w)
	}
}

// handleSuppliers multiplexes on the body shape: a supplierId with an amount
// is a ledger operation, anything else is plain supplier CRUD.
func (a *API) handleSuppliers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		suppliers, err := a.service.ListSuppliers(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, suppliers)
	case http.MethodPost:
		var req domain.SupplierRequest
		if err := decodeJSON(r, &req); err != nil {
			writeBadJSON(w, err)
			return
		}
		if req.DebtAmount != nil || req.SupplierID != 0 {
			inv, err := a.service.AccrueDebt(r.Context(), req)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"message": "Debt added to supplier", "invoice": inv})
			return
		}
		supplier, err := a.service.CreateSupplier(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, supplier)
	case http.MethodPatch:
		var req domain.SupplierRequest
		if err := decodeJSON(r, &req); err != nil {
			writeBadJSON(w, err)
			return
		}
		if req.PaymentAmount != nil || req.SupplierID != 0 {
			result, err := a.service.RecordPayment(r.Context(), req)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"message": "Payment registered", "payment": result})
			return
		}
		supplier, err := a.service.UpdateSupplier(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, supplier)
	case http.MethodDelete:
		id, err := queryID(r)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if err := a.service.DeleteSupplier(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		writeMessage(w, "Supplier deleted")
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleInvoices(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		filter, err := invoiceFilter(r)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		invoices, err := a.service.ListInvoices(r.Context(), filter)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, invoices)
	case http.MethodPost:
		var req domain.InvoiceRequest
		if err := decodeJSON(r, &req); err != nil {
			writeBadJSON(w, err)
			return
		}
		created, err := a.service.CreateInvoice(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleInvoiceActions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r.URL.Path, "/api/v1/invoices/")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		inv, err := a.service.GetInvoice(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, inv)
	case http.MethodPut:
		var req domain.InvoiceRequest
		if err := decodeJSON(r, &req); err != nil {
			writeBadJSON(w, err)
			return
		}
		inv, err := a.service.ReplaceInvoice(r.Context(), id, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, inv)
	case http.MethodPatch:
		var req domain.PaidAmountRequest
		if err := decodeJSON(r, &req); err != nil {
			writeBadJSON(w, err)
			return
		}
		inv, err := a.service.UpdateInvoicePaidAmount(r.Context(), id, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, inv)
	case http.MethodDelete:
		if err := a.service.DeleteInvoice(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		writeMessage(w, "Invoice deleted")
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleStatistics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	var query domain.StatisticsQuery
	if raw := strings.TrimSpace(r.URL.Query().Get("year")); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			writeServiceError(w, store.Invalid("year", msgInvalidYear))
			return
		}
		query.Year = year
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("productId")); raw != "" {
		productID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeServiceError(w, store.Invalid("productId", msgInvalidProd))
			return
		}
		query.ProductID = &productID
	}

	stats, err := a.service.Statistics(r.Context(), query)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" || len(requestID) > 128 {
			requestID = xid.New("req")
		}

		w.Header().Set("X-Request-ID", requestID)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("%s %s %d %s rid=%s", r.Method, r.URL.Path, rec.status, time.Since(startedAt), requestID)
	})
}

func invoiceFilter(r *http.Request) (domain.InvoiceFilter, error) {
	var filter domain.InvoiceFilter
	for key, dest := range map[string]*int{"year": &filter.Year, "beforeYear": &filter.BeforeYear} {
		raw := strings.TrimSpace(r.URL.Query().Get(key))
		if raw == "" {
			continue
		}
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return domain.InvoiceFilter{}, store.Invalid(key, msgInvalidYear)
		}
		*dest = parsed
	}
	return filter, nil
}

func queryID(r *http.Request) (int64, error) {
	return parseID(r.URL.Query().Get("id"))
}

func pathID(path string, prefix string) (int64, error) {
	raw := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if strings.Contains(raw, "/") {
		return 0, store.ErrNotFound
	}
	return parseID(raw)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id < 1 {
		return 0, store.Invalid("id", msgInvalidID)
	}
	return id, nil
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func writeBadJSON(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, errors.New("request body too large"))
		return
	}
	log.Printf("[httpapi] bad request body: %v", err)
	writeError(w, http.StatusBadRequest, errors.New(msgInvalidJSON))
}

// writeServiceError maps service and store errors onto HTTP statuses.
// Validation is checked first since a ValidationError may also wrap a cause.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *store.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": verr.Message, "field": verr.Field})
	case errors.Is(err, store.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, store.ErrInUse):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, map[string]any{"message": msg})
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx responses carry a generic message; the cause is logged here.
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
