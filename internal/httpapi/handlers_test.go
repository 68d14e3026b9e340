package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"herbmanager/backend/internal/service"
	"herbmanager/backend/internal/store/memory"
)

// newTestAPI builds an open API over the seeded in-memory store so handler
// tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()
	return New(service.New(memory.NewSeeded(), nil), nil, "*")
}

// newAuthTestAPI is newTestAPI with admin bearer auth switched on.
func newAuthTestAPI(t *testing.T, password string) *API {
	t.Helper()
	auth := NewAuthManager("test-secret-key-that-is-long-enough", time.Hour, "admin", mustHashPassword(t, password))
	return New(service.New(memory.NewSeeded(), nil), auth, "*")
}

// mustHashPassword generates a bcrypt hash of the given password or fails the test.
func mustHashPassword(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(hash)
}

func doJSON(t *testing.T, handler http.Handler, method string, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		if raw, ok := payload.(string); ok {
			body.WriteString(raw)
		} else if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dest); err != nil {
		t.Fatalf("decode body: %v (raw %q)", err, rec.Body.String())
	}
}

func TestHandleHealth(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := doJSON(t, handler, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	decodeBody(t, rec, &body)
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestInvoiceLifecycleOverHTTP(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/invoices", `{
		"supplierId": 1,
		"invoiceDate": "2025-03-04",
		"paidAmount": 5,
		"items": [
			{"productId": 1, "quantity": 2, "purchasePrice": 10, "sellingPrice": 15},
			{"productId": 2, "quantity": 1, "purchasePrice": 7.5, "sellingPrice": 9}
		]
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var created struct {
		InvoiceID   int64  `json:"invoiceId"`
		TotalAmount string `json:"totalAmount"`
		Remaining   string `json:"remaining"`
	}
	decodeBody(t, rec, &created)
	if created.TotalAmount != "27.5" || created.Remaining != "22.5" {
		t.Fatalf("unexpected totals %+v", created)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/invoices/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get expected 200, got %d", rec.Code)
	}
	var inv struct {
		Items []struct {
			ID          int64  `json:"id"`
			ProductName string `json:"productName"`
		} `json:"items"`
	}
	decodeBody(t, rec, &inv)
	if len(inv.Items) != 2 || inv.Items[0].ProductName == "" {
		t.Fatalf("unexpected items %+v", inv.Items)
	}

	rec = doJSON(t, handler, http.MethodPut, "/api/v1/invoices/1", map[string]any{
		"supplierId":  1,
		"invoiceDate": "2025-03-05",
		"paidAmount":  "5",
		"items": []map[string]any{
			{"id": inv.Items[0].ID, "quantity": "3", "purchasePrice": "10", "sellingPrice": "15"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("replace expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var replaced struct {
		TotalAmount string            `json:"totalAmount"`
		Items       []json.RawMessage `json:"items"`
	}
	decodeBody(t, rec, &replaced)
	if replaced.TotalAmount != "30" || len(replaced.Items) != 1 {
		t.Fatalf("unexpected replace result total=%s items=%d", replaced.TotalAmount, len(replaced.Items))
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/v1/invoices/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete expected 200, got %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/invoices/1", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete expected 404, got %d", rec.Code)
	}
}

func TestStatusMapping(t *testing.T) {
	handler := newTestAPI(t).Handler()

	debt := doJSON(t, handler, http.MethodPost, "/api/v1/suppliers", `{"supplierId": 1, "debtAmount": 40, "debtDate": "2025-01-02"}`)
	if debt.Code != http.StatusCreated {
		t.Fatalf("accrue debt expected 201, got %d (body: %s)", debt.Code, debt.Body.String())
	}

	tests := []struct {
		name   string
		method string
		target string
		body   any
		want   int
	}{
		{"missing items", http.MethodPost, "/api/v1/invoices", `{"supplierId":1,"invoiceDate":"2025-01-01","items":[]}`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/v1/invoices", `{"supplier":1}`, http.StatusBadRequest},
		{"bad id", http.MethodGet, "/api/v1/invoices/abc", nil, http.StatusBadRequest},
		{"unknown invoice", http.MethodGet, "/api/v1/invoices/999", nil, http.StatusNotFound},
		{"unknown product on create", http.MethodPost, "/api/v1/invoices", `{"supplierId":1,"invoiceDate":"2025-01-01","items":[{"productId":999,"quantity":1,"purchasePrice":1}]}`, http.StatusNotFound},
		{"unresolved item", http.MethodPut, "/api/v1/invoices/1", `{"supplierId":1,"invoiceDate":"2025-01-01","items":[{"quantity":1,"purchasePrice":1}]}`, http.StatusBadRequest},
		{"supplier with invoices", http.MethodDelete, "/api/v1/suppliers?id=1", nil, http.StatusConflict},
		{"delete without id", http.MethodDelete, "/api/v1/products", nil, http.StatusBadRequest},
		{"bad statistics year", http.MethodGet, "/api/v1/statistics?year=abc", nil, http.StatusBadRequest},
		{"method not allowed", http.MethodPost, "/api/v1/statistics", nil, http.StatusMethodNotAllowed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, handler, tc.method, tc.target, tc.body)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d (body: %s)", tc.want, rec.Code, rec.Body.String())
			}
			var body map[string]any
			decodeBody(t, rec, &body)
			if _, ok := body["error"]; !ok {
				t.Fatalf("expected error field in %v", body)
			}
		})
	}
}

func TestValidationErrorCarriesFieldAndMessage(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/invoices", `{"invoiceDate":"2025-01-01","items":[{"productId":1,"quantity":1,"purchasePrice":1}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body map[string]string
	decodeBody(t, rec, &body)
	if body["field"] != "supplierId" || body["error"] == "" {
		t.Fatalf("unexpected validation body %v", body)
	}
}

func TestSupplierPaymentOverHTTP(t *testing.T) {
	handler := newTestAPI(t).Handler()

	for _, payload := range []string{
		`{"supplierId": 2, "debtAmount": 50, "debtDate": "2025-01-01"}`,
		`{"supplierId": 2, "debtAmount": 30, "debtDate": "2025-02-01"}`,
	} {
		if rec := doJSON(t, handler, http.MethodPost, "/api/v1/suppliers", payload); rec.Code != http.StatusCreated {
			t.Fatalf("accrue expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
		}
	}

	rec := doJSON(t, handler, http.MethodPatch, "/api/v1/suppliers", `{"supplierId": 2, "paymentAmount": 60}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("payment expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var body struct {
		Payment struct {
			Allocations []struct {
				Amount    string `json:"amount"`
				Remaining string `json:"remaining"`
			} `json:"allocations"`
			Unapplied string `json:"unapplied"`
		} `json:"payment"`
	}
	decodeBody(t, rec, &body)
	if len(body.Payment.Allocations) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(body.Payment.Allocations))
	}
	if body.Payment.Allocations[0].Amount != "50" || body.Payment.Allocations[1].Amount != "10" {
		t.Fatalf("unexpected allocations %+v", body.Payment.Allocations)
	}
	if body.Payment.Allocations[1].Remaining != "20" {
		t.Fatalf("expected remaining 20, got %s", body.Payment.Allocations[1].Remaining)
	}
}

func TestSupplierCRUDOverHTTP(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/suppliers", `{"name": "مورد جديد", "phone": "0660000000"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var created struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, rec, &created)

	rec = doJSON(t, handler, http.MethodPatch, "/api/v1/suppliers", map[string]any{"id": created.ID, "name": "مورد معدل"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/v1/suppliers?id=3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestProductRoutes(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/products", `{"name": "ورق غار", "categoryId": 1, "unit": "kg"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPatch, "/api/v1/products/7", `{"name": "ورق غار مجفف", "categoryId": 2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPatch, "/api/v1/products/7", `{"name": "x", "categoryId": 0}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid category expected 400, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/products/7", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get expected 200, got %d", rec.Code)
	}
	var product struct {
		Name       string `json:"name"`
		CategoryID *int64 `json:"categoryId"`
	}
	decodeBody(t, rec, &product)
	if product.Name != "ورق غار مجفف" || product.CategoryID == nil || *product.CategoryID != 2 {
		t.Fatalf("unexpected product %+v", product)
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/v1/products/7", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete expected 200, got %d", rec.Code)
	}
}

func TestStatisticsRoute(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/invoices", `{
		"supplierId": 1, "invoiceDate": "2024-05-10",
		"items": [{"productId": 3, "quantity": 4, "purchasePrice": 2, "sellingPrice": 3}]
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/statistics?year=2024&productId=3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("statistics expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var stats struct {
		Year         int `json:"year"`
		ProductStats []struct {
			Month int `json:"month"`
		} `json:"productStats"`
		TopProducts  []json.RawMessage `json:"topProducts"`
		ProductsList []json.RawMessage `json:"productsList"`
	}
	decodeBody(t, rec, &stats)
	if stats.Year != 2024 || len(stats.ProductStats) != 1 || stats.ProductStats[0].Month != 5 {
		t.Fatalf("unexpected statistics %+v", stats)
	}
	if len(stats.TopProducts) != 1 || len(stats.ProductsList) != 6 {
		t.Fatalf("expected 1 top product and 6 products, got %d and %d", len(stats.TopProducts), len(stats.ProductsList))
	}
}

func TestCategoriesRoute(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/categories", `{"name": "بذور"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create expected 201, got %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/categories", nil)
	var categories []map[string]any
	decodeBody(t, rec, &categories)
	if len(categories) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(categories))
	}
	rec = doJSON(t, handler, http.MethodDelete, "/api/v1/categories?id=1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete expected 200, got %d", rec.Code)
	}
}
