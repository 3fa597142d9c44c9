package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"content-paygate/internal/domain"
	"content-paygate/internal/domain/model"
	"content-paygate/internal/domain/ports/repository"
	infraredis "content-paygate/internal/infra/redis"
	"content-paygate/internal/usecase"
)

type mockPaymentUC struct {
	createIntent *model.PaymentIntent
	createURL    string
	createErr    error

	verifyOutcome *usecase.VerificationOutcome
	verifyErr     error

	statusPurchase *model.Purchase
	statusErr      error
}

func (m *mockPaymentUC) CreatePaymentRequest(_ context.Context, _, _ string, _ *int64, _ model.Chain) (*model.PaymentIntent, string, error) {
	return m.createIntent, m.createURL, m.createErr
}

func (m *mockPaymentUC) VerifyPayment(_ context.Context, _, _ string) (*usecase.VerificationOutcome, error) {
	return m.verifyOutcome, m.verifyErr
}

func (m *mockPaymentUC) PaymentStatus(_ context.Context, _ string) (*model.Purchase, error) {
	return m.statusPurchase, m.statusErr
}

func (m *mockPaymentUC) ExpirePending(_ context.Context, _ int) (int, error) { return 0, nil }

type mockWalletPurchases struct {
	purchases []*model.Purchase
	err       error
}

func (m *mockWalletPurchases) Create(_ context.Context, _ repository.Tx, _ *model.Purchase) error {
	return nil
}

func (m *mockWalletPurchases) FindByID(_ context.Context, _ repository.Tx, _ string) (*model.Purchase, error) {
	return nil, domain.ErrNotFound
}

func (m *mockWalletPurchases) FindByTransactionSignature(_ context.Context, _ repository.Tx, _ string) (*model.Purchase, error) {
	return nil, domain.ErrNotFound
}

func (m *mockWalletPurchases) ListByWallet(_ context.Context, _ repository.Tx, _ string, _, _ int) ([]*model.Purchase, error) {
	return m.purchases, m.err
}

func newTestServer(uc *mockPaymentUC, purchases repository.PurchaseRepository) *Server {
	logger := zerolog.Nop()
	if purchases == nil {
		purchases = &mockWalletPurchases{}
	}
	return NewServer(uc, purchases, nil, &logger)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func testIntent(t *testing.T) *model.PaymentIntent {
	t.Helper()
	intent, err := model.NewPaymentIntent("m1", "c1", 1_000_000_000, "SOL", model.ChainSolana,
		"7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU", 15*time.Minute)
	if err != nil {
		t.Fatalf("new intent: %v", err)
	}
	return intent
}

func TestCreatePaymentRequestHandler(t *testing.T) {
	t.Run("success returns 201 with payment details", func(t *testing.T) {
		intent := testIntent(t)
		srv := newTestServer(&mockPaymentUC{createIntent: intent, createURL: "solana:xyz"}, nil)

		rec := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/payments/create-payment-request",
			map[string]string{"merchantId": "m1", "contentId": "c1"})

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		var resp createPaymentResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.PaymentIntentID != intent.ID || resp.Memo != intent.Memo ||
			resp.PaymentURL != "solana:xyz" || resp.Amount != intent.Amount {
			t.Errorf("response = %+v", resp)
		}
	})

	t.Run("missing fields are rejected", func(t *testing.T) {
		srv := newTestServer(&mockPaymentUC{}, nil)
		rec := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/payments/create-payment-request",
			map[string]string{"merchantId": "m1"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("invalid json is rejected", func(t *testing.T) {
		srv := newTestServer(&mockPaymentUC{}, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/create-payment-request",
			strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("unknown content maps to 404", func(t *testing.T) {
		srv := newTestServer(&mockPaymentUC{createErr: domain.ErrNotFound}, nil)
		rec := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/payments/create-payment-request",
			map[string]string{"merchantId": "m1", "contentId": "nope"})
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("missing payout address maps to 400", func(t *testing.T) {
		srv := newTestServer(&mockPaymentUC{createErr: domain.ErrNoPayoutAddress}, nil)
		rec := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/payments/create-payment-request",
			map[string]string{"merchantId": "m1", "contentId": "c1"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("internal errors are reduced to a generic 500", func(t *testing.T) {
		srv := newTestServer(&mockPaymentUC{createErr: fmt.Errorf("%w: pool exhausted", domain.ErrOperationFailed)}, nil)
		rec := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/payments/create-payment-request",
			map[string]string{"merchantId": "m1", "contentId": "c1"})
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
		if strings.Contains(rec.Body.String(), "pool exhausted") {
			t.Error("internal error detail leaked to the client")
		}
	})
}

func TestVerifyPaymentHandler(t *testing.T) {
	t.Run("success returns the outcome", func(t *testing.T) {
		srv := newTestServer(&mockPaymentUC{verifyOutcome: &usecase.VerificationOutcome{
			Status: "confirmed", PurchaseID: "p1", AccessToken: "jwt",
		}}, nil)
		rec := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/payments/verify-payment",
			map[string]string{"paymentIntentId": "i1", "txSignature": "sig"})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var out usecase.VerificationOutcome
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if out.AccessToken != "jwt" || out.PurchaseID != "p1" {
			t.Errorf("outcome = %+v", out)
		}
	})

	t.Run("verification failure carries the sanitized reason", func(t *testing.T) {
		srv := newTestServer(&mockPaymentUC{
			verifyErr: fmt.Errorf("%w: amount mismatch: expected 10, received 5", domain.ErrVerificationFailed),
		}, nil)
		rec := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/payments/verify-payment",
			map[string]string{"paymentIntentId": "i1", "txSignature": "sig"})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "amount mismatch") {
			t.Error("sanitized reason missing from error body")
		}
	})

	t.Run("expired intent maps to 400", func(t *testing.T) {
		srv := newTestServer(&mockPaymentUC{verifyErr: domain.ErrIntentExpired}, nil)
		rec := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/payments/verify-payment",
			map[string]string{"paymentIntentId": "i1", "txSignature": "sig"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("missing fields are rejected", func(t *testing.T) {
		srv := newTestServer(&mockPaymentUC{}, nil)
		rec := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/payments/verify-payment",
			map[string]string{"paymentIntentId": "i1"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestPaymentStatusHandler(t *testing.T) {
	t.Run("settled purchase", func(t *testing.T) {
		now := time.Now().UTC()
		srv := newTestServer(&mockPaymentUC{statusPurchase: &model.Purchase{
			ID: "p1", ContentID: "c1", MerchantID: "m1", Chain: model.ChainSolana,
			Amount: 100, Currency: "SOL", ConfirmedAt: now,
		}}, nil)
		rec := doJSON(t, srv.Router(), http.MethodGet, "/api/v1/payments/payment-status?tx=sig", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"status":"confirmed"`) {
			t.Errorf("body = %s", rec.Body.String())
		}
		if strings.Contains(rec.Body.String(), "accessToken") {
			t.Error("status endpoint must not echo access tokens")
		}
	})

	t.Run("unknown signature", func(t *testing.T) {
		srv := newTestServer(&mockPaymentUC{statusErr: domain.ErrNotFound}, nil)
		rec := doJSON(t, srv.Router(), http.MethodGet, "/api/v1/payments/payment-status?tx=sig", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "not_found") {
			t.Errorf("body = %s", rec.Body.String())
		}
	})

	t.Run("missing tx parameter", func(t *testing.T) {
		srv := newTestServer(&mockPaymentUC{}, nil)
		rec := doJSON(t, srv.Router(), http.MethodGet, "/api/v1/payments/payment-status", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestListPurchasesHandler(t *testing.T) {
	t.Run("lists wallet purchases without tokens", func(t *testing.T) {
		purchases := &mockWalletPurchases{purchases: []*model.Purchase{
			{ID: "p1", PayerAddress: "w1", AccessToken: "secret-jwt", Chain: model.ChainSolana},
		}}
		srv := newTestServer(&mockPaymentUC{}, purchases)
		rec := doJSON(t, srv.Router(), http.MethodGet, "/api/v1/purchases?wallet=w1", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if strings.Contains(rec.Body.String(), "secret-jwt") {
			t.Error("listing leaked an access token")
		}
		if !strings.Contains(rec.Body.String(), `"purchaseId":"p1"`) {
			t.Errorf("body = %s", rec.Body.String())
		}
	})

	t.Run("missing wallet parameter", func(t *testing.T) {
		srv := newTestServer(&mockPaymentUC{}, nil)
		rec := doJSON(t, srv.Router(), http.MethodGet, "/api/v1/purchases", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

// ---- rate limiting ----

type fakeRedis struct {
	counts  map[string]int64
	incrErr error
}

func (f *fakeRedis) Ping(context.Context) error { return nil }
func (f *fakeRedis) Set(context.Context, string, interface{}, time.Duration) error {
	return nil
}
func (f *fakeRedis) Get(context.Context, string) (string, error) { return "", nil }
func (f *fakeRedis) Incr(_ context.Context, key string) (int64, error) {
	if f.incrErr != nil {
		return 0, f.incrErr
	}
	if f.counts == nil {
		f.counts = make(map[string]int64)
	}
	f.counts[key]++
	return f.counts[key], nil
}
func (f *fakeRedis) Expire(context.Context, string, time.Duration) error { return nil }
func (f *fakeRedis) Del(context.Context, ...string) error                { return nil }
func (f *fakeRedis) Close() error                                        { return nil }

func TestRateLimiting(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("requests over the window limit get 429", func(t *testing.T) {
		limiter := infraredis.NewRateLimiter(&fakeRedis{})
		srv := NewServer(&mockPaymentUC{statusErr: domain.ErrNotFound}, &mockWalletPurchases{}, limiter, &logger)
		router := srv.Router()

		var last int
		for i := 0; i < statusLimit+1; i++ {
			rec := doJSON(t, router, http.MethodGet, "/api/v1/payments/payment-status?tx=sig", nil)
			last = rec.Code
		}
		if last != http.StatusTooManyRequests {
			t.Errorf("status = %d, want 429 after exceeding the limit", last)
		}
	})

	t.Run("limiter errors fail open", func(t *testing.T) {
		limiter := infraredis.NewRateLimiter(&fakeRedis{incrErr: fmt.Errorf("connection refused")})
		srv := NewServer(&mockPaymentUC{statusErr: domain.ErrNotFound}, &mockWalletPurchases{}, limiter, &logger)

		rec := doJSON(t, srv.Router(), http.MethodGet, "/api/v1/payments/payment-status?tx=sig", nil)
		if rec.Code == http.StatusTooManyRequests {
			t.Error("request was limited although redis is down")
		}
	})
}
