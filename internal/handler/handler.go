package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/honeynil/AdaPayAcquirer/internal/models"
	service "github.com/honeynil/AdaPayAcquirer/internal/services"
	pkgerrors "github.com/honeynil/AdaPayAcquirer/pkg/errors"
)

const WebhookPath = "/payment/adapay/webhook"

type Handler struct {
	service service.PaymentService
}

func NewHandler(s service.PaymentService) *Handler {
	return &Handler{service: s}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods("GET")
}

func (h *Handler) RegisterWebhookRoutes(r *mux.Router) {
	r.HandleFunc(WebhookPath, h.Webhook).Methods("POST")
}

func (h *Handler) RegisterProtectedRoutes(r *mux.Router) {
	r.HandleFunc("/payments", h.CreatePayment).Methods("POST")
	r.HandleFunc("/payments/sync", h.SyncPayments).Methods("POST")
	r.HandleFunc("/payments/{reference}", h.GetPayment).Methods("GET")
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req service.CreatePaymentInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	created, err := h.service.CreatePayment(r.Context(), req)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	reference := mux.Vars(r)["reference"]
	data, err := h.service.StatusInfo(r.Context(), reference)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	h.writeJSON(w, http.StatusOK, data)
}

func (h *Handler) SyncPayments(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.SyncPayments(r.Context())
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// Webhook always answers 200 once the body is readable, so the gateway does
// not retry events this service chose to drop.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	var event models.WebhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		slog.Error("failed to decode webhook", "error", err)
		h.writeError(w, http.StatusBadRequest, pkgerrors.ErrInvalidWebhookPayload)
		return
	}

	processed := h.service.HandleWebhook(r.Context(), event)
	h.writeJSON(w, http.StatusOK, map[string]bool{"processed": processed})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pkgerrors.ErrInvalidAmount),
		errors.Is(err, pkgerrors.ErrInvalidReference),
		errors.Is(err, pkgerrors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, pkgerrors.ErrTransactionExists),
		errors.Is(err, pkgerrors.ErrWebhookModeEnabled):
		return http.StatusConflict
	case errors.Is(err, pkgerrors.ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, pkgerrors.ErrConversionUnavailable),
		errors.Is(err, pkgerrors.ErrGatewayUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, pkgerrors.ErrTransactionLocked):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
