package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"zooops/backend/internal/domain"
	"zooops/backend/internal/service"
	"zooops/backend/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, nil, nil)
	auth := NewAuthManager("test-secret-key", time.Hour, repo)

	return New(svc, auth, "*")
}

func loginAs(t *testing.T, api *API, username string, password string) string {
	t.Helper()

	body, _ := json.Marshal(domain.LoginRequest{Username: username, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	api.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login as %s failed, status %d (body: %s)", username, rec.Code, rec.Body.String())
	}

	var payload domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if payload.AccessToken == "" {
		t.Fatal("expected access token in login response")
	}
	return payload.AccessToken
}

func doJSON(t *testing.T, api *API, method string, path string, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLoginWrongPassword(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{
		Username: "manager",
		Password: "not-it",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestProtectedEndpointRequiresToken(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodGet, "/api/v1/animals", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rec.Code)
	}
}

func TestHandleRetailSale(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/retail/sales", token, domain.SaleRequest{
		Shop:             domain.ShopGiftShop,
		ItemID:           "item-plush-lion",
		Quantity:         2,
		TotalAmountCents: 4000,
		PaymentMethod:    "card",
		EmployeeID:       "emp-cashier-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var resp domain.SaleResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode sale response: %v", err)
	}
	if resp.SaleID == "" {
		t.Fatal("expected a sale id")
	}
}

func TestHandleRetailSaleForbiddenForKeeper(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "keeper", "keeper123")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/retail/sales", token, domain.SaleRequest{
		Shop:             domain.ShopGiftShop,
		ItemID:           "item-plush-lion",
		Quantity:         1,
		TotalAmountCents: 2000,
		PaymentMethod:    "cash",
		EmployeeID:       "emp-keeper-01",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleRetailSaleInsufficientStock(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/retail/sales", token, domain.SaleRequest{
		Shop:             domain.ShopCafe,
		ItemID:           "item-sandwich",
		Quantity:         100000,
		TotalAmountCents: 550,
		PaymentMethod:    "cash",
		EmployeeID:       "emp-cashier-01",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleRetailSaleUnknownItem(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/retail/sales", token, domain.SaleRequest{
		Shop:             domain.ShopCafe,
		ItemID:           "item-unicorn",
		Quantity:         1,
		TotalAmountCents: 100,
		PaymentMethod:    "cash",
		EmployeeID:       "emp-cashier-01",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleRetailSaleRejectsUnknownFields(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/retail/sales", token, map[string]any{
		"shop":     domain.ShopCafe,
		"item_id":  "item-coffee",
		"quantity": 1,
		"surprise": true,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}
}

func TestHandleDailyRevenueSerializesNulls(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "manager", "manager123")
	today := time.Now().UTC().Format("2006-01-02")

	rec := doJSON(t, api, http.MethodGet, "/api/v1/reports/revenue/daily?date="+today, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body map[string]*int64
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	for _, key := range []string{"ticket_revenue_cents", "gift_shop_revenue_cents", "food_revenue_cents"} {
		value, present := body[key]
		if !present {
			t.Fatalf("expected %s to be present in the report", key)
		}
		if value != nil {
			t.Fatalf("expected %s to be null on an empty day, got %d", key, *value)
		}
	}
}

func TestHandleDailyRevenueForbiddenForCashier(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")

	rec := doJSON(t, api, http.MethodGet, "/api/v1/reports/revenue/daily?date=2024-03-10", token, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestHandleMonthlyRevenueRequiresParams(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "manager", "manager123")

	rec := doJSON(t, api, http.MethodGet, "/api/v1/reports/revenue/monthly", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without year/month, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/reports/revenue/monthly?year=2024&month=2", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleAnimalsRolePolicy(t *testing.T) {
	api := newTestAPI(t)

	keeperToken := loginAs(t, api, "keeper", "keeper123")
	rec := doJSON(t, api, http.MethodGet, "/api/v1/animals", keeperToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("keeper list animals: expected 200, got %d", rec.Code)
	}

	cashierToken := loginAs(t, api, "cashier", "cashier123")
	rec = doJSON(t, api, http.MethodGet, "/api/v1/animals", cashierToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("cashier list animals: expected 403, got %d", rec.Code)
	}
}

func TestHandleAnimalUpdateAndGet(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "keeper", "keeper123")

	rec := doJSON(t, api, http.MethodPut, "/api/v1/animals/ani-otter-01", token, map[string]any{
		"status": "quarantined",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update animal: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/animals/ani-otter-01", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get animal: expected 200, got %d", rec.Code)
	}
	var animal domain.Animal
	if err := json.NewDecoder(rec.Body).Decode(&animal); err != nil {
		t.Fatalf("decode animal: %v", err)
	}
	if animal.Status != domain.AnimalStatusQuarantined {
		t.Fatalf("expected quarantined, got %s", animal.Status)
	}
}

func TestHandleAnimalNotFound(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "manager", "manager123")

	rec := doJSON(t, api, http.MethodGet, "/api/v1/animals/ani-nope", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleTicketsBooking(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/tickets", token, domain.TicketBookRequest{
		CustomerID: "cus-01",
		VisitDate:  "2026-10-01",
		TicketType: "adult",
		PriceCents: 2500,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/tickets?limit=10", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string][]domain.Ticket
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode tickets: %v", err)
	}
	if len(body["tickets"]) != 1 {
		t.Fatalf("expected 1 ticket, got %d", len(body["tickets"]))
	}
}

func TestHandleAuditLogsManagerOnly(t *testing.T) {
	api := newTestAPI(t)

	cashierToken := loginAs(t, api, "cashier", "cashier123")
	rec := doJSON(t, api, http.MethodGet, "/api/v1/audit-logs", cashierToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier, got %d", rec.Code)
	}

	managerToken := loginAs(t, api, "manager", "manager123")
	rec = doJSON(t, api, http.MethodGet, "/api/v1/audit-logs", managerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for manager, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleMethodNotAllowed(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")

	rec := doJSON(t, api, http.MethodDelete, "/api/v1/retail/sales", token, nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
