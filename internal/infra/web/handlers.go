package web

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"content-paygate/internal/domain"
	"content-paygate/internal/domain/model"
)

var validate = validator.New()

type createPaymentRequest struct {
	MerchantID string `json:"merchantId" validate:"required"`
	ContentID  string `json:"contentId" validate:"required"`
	Price      *int64 `json:"price" validate:"omitempty,gt=0"`
	Chain      string `json:"chain" validate:"omitempty,min=1"`
}

type createPaymentResponse struct {
	PaymentIntentID string    `json:"paymentIntentId"`
	Memo            string    `json:"memo"`
	Nonce           string    `json:"nonce"`
	Recipient       string    `json:"recipient"`
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency"`
	Chain           string    `json:"chain"`
	PaymentURL      string    `json:"paymentUrl"`
	ExpiresAt       time.Time `json:"expiresAt"`
}

func (s *Server) createPaymentRequestHandler(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "merchantId and contentId are required")
		return
	}

	intent, paymentURL, err := s.paymentUC.CreatePaymentRequest(r.Context(), req.MerchantID, req.ContentID, req.Price, model.Chain(req.Chain))
	if err != nil {
		s.respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createPaymentResponse{
		PaymentIntentID: intent.ID,
		Memo:            intent.Memo,
		Nonce:           intent.Nonce,
		Recipient:       intent.RecipientAddress,
		Amount:          intent.Amount,
		Currency:        intent.Currency,
		Chain:           string(intent.Chain),
		PaymentURL:      paymentURL,
		ExpiresAt:       intent.ExpiresAt,
	})
}

type verifyPaymentRequest struct {
	PaymentIntentID string `json:"paymentIntentId" validate:"required"`
	TxSignature     string `json:"txSignature" validate:"required"`
}

func (s *Server) verifyPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "paymentIntentId and txSignature are required")
		return
	}

	outcome, err := s.paymentUC.VerifyPayment(r.Context(), req.PaymentIntentID, req.TxSignature)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

type purchaseView struct {
	PurchaseID  string     `json:"purchaseId"`
	ContentID   string     `json:"contentId"`
	MerchantID  string     `json:"merchantId"`
	Chain       string     `json:"chain"`
	Amount      int64      `json:"amount"`
	Currency    string     `json:"currency"`
	ConfirmedAt time.Time  `json:"confirmedAt"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

func (s *Server) paymentStatusHandler(w http.ResponseWriter, r *http.Request) {
	tx := r.URL.Query().Get("tx")
	if tx == "" {
		writeError(w, http.StatusBadRequest, "tx query parameter is required")
		return
	}

	purchase, err := s.paymentUC.PaymentStatus(r.Context(), tx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"status": "not_found"})
			return
		}
		s.respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Status   string       `json:"status"`
		Purchase purchaseView `json:"purchase"`
	}{
		Status:   "confirmed",
		Purchase: toPurchaseView(purchase),
	})
}

// listPurchasesHandler returns a paginated purchase history for a payer
// wallet. Access tokens are deliberately not echoed back here.
func (s *Server) listPurchasesHandler(w http.ResponseWriter, r *http.Request) {
	wallet := r.URL.Query().Get("wallet")
	if wallet == "" {
		writeError(w, http.StatusBadRequest, "wallet query parameter is required")
		return
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	purchases, err := s.purchases.ListByWallet(r.Context(), nil, wallet, offset, limit)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.respondError(w, err)
		return
	}

	views := make([]purchaseView, 0, len(purchases))
	for _, p := range purchases {
		views = append(views, toPurchaseView(p))
	}
	writeJSON(w, http.StatusOK, struct {
		Data   []purchaseView `json:"data"`
		Limit  int            `json:"limit"`
		Offset int            `json:"offset"`
	}{
		Data:   views,
		Limit:  limit,
		Offset: offset,
	})
}

func toPurchaseView(p *model.Purchase) purchaseView {
	return purchaseView{
		PurchaseID:  p.ID,
		ContentID:   p.ContentID,
		MerchantID:  p.MerchantID,
		Chain:       string(p.Chain),
		Amount:      p.Amount,
		Currency:    p.Currency,
		ConfirmedAt: p.ConfirmedAt,
		ExpiresAt:   p.ExpiresAt,
	}
}

// respondError maps domain errors to HTTP statuses. Messages carried on the
// bad-request family are already sanitized by the usecase layer; anything
// else is logged and reduced to a generic 500.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrUnsupportedChain),
		errors.Is(err, domain.ErrNoPayoutAddress),
		errors.Is(err, domain.ErrVerificationFailed),
		errors.Is(err, domain.ErrIntentExpired),
		errors.Is(err, domain.ErrAlreadyProcessed):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
