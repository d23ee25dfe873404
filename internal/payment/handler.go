package payment

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/MrDuking/talktodoc-backend-sub000/internal/appointments"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/httpx"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/middleware"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/transport"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/validation"
)

type Handler struct {
	service *Service
	val     *validation.Validator
	log     *slog.Logger
}

func NewHandler(service *Service, val *validation.Validator, log *slog.Logger) *Handler {
	return &Handler{
		service: service,
		val:     val,
		log:     log,
	}
}

func (h *Handler) CreateURL(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	actor, _ := middleware.ActorFromContext(r.Context())

	var req CreateURLRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	res, err := h.service.CreatePaymentURL(ctx, actor.ID, clientIP(r), req)
	if err != nil {
		switch {
		case errors.Is(err, appointments.ErrInvalidID):
			transport.WriteError(w, http.StatusBadRequest, "invalid id", nil)
		case errors.Is(err, appointments.ErrNotFoundOrDenied):
			transport.WriteError(w, http.StatusNotFound, "appointment not found or access denied", nil)
		case errors.Is(err, ErrAppointmentNotPayable):
			transport.WriteError(w, http.StatusConflict, "appointment is not awaiting payment", nil)
		default:
			log.Error("payment create url: error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	log.Info("payment create url: ok", slog.String("order_id", res.OrderID))
	transport.WriteJSON(w, http.StatusCreated, res)
}

// Callback serves both the browser return URL and the server-to-server IPN.
// The gateway sends everything in the query string.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	params := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	result, err := h.service.HandleCallback(ctx, params)
	if err != nil {
		log.Error("payment callback: error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	transport.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req RefundRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	txn, err := h.service.Refund(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrOrderNotFound):
			transport.WriteError(w, http.StatusNotFound, "order not found", nil)
		case errors.Is(err, ErrOrderNotRefundable):
			transport.WriteError(w, http.StatusConflict, "order is not in a refundable state", nil)
		default:
			log.Error("payment refund: error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	log.Info("payment refund: ok", slog.String("order_id", req.OrderID))
	transport.WriteJSON(w, http.StatusOK, txn)
}

func (h *Handler) AppendLedgerEntry(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req LedgerEntryRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	txn, err := h.service.AppendLedgerEntry(ctx, req)
	if err != nil {
		log.Error("payment ledger: error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("payment ledger: ok", slog.String("type", txn.Type), slog.String("transaction_id", txn.ID))
	transport.WriteJSON(w, http.StatusCreated, txn)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	page, err := httpx.ParsePageQuery(r.URL.Query(), 20, 100)
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	items, err := h.service.ListOrders(ctx, strings.TrimSpace(r.URL.Query().Get("status")), page.Limit, page.Offset())
	if err != nil {
		log.Error("payment orders list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	transport.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	page, err := httpx.ParsePageQuery(r.URL.Query(), 20, 100)
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	filter := TransactionFilter{
		Type:   strings.TrimSpace(r.URL.Query().Get("type")),
		UserID: strings.TrimSpace(r.URL.Query().Get("userId")),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	items, total, err := h.service.ListTransactions(ctx, filter, page.Limit, page.Offset())
	if err != nil {
		log.Error("payment transactions list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	transport.WritePage(w, items, page.Page, page.Limit, total)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *Handler) logWithRequest(r *http.Request) *slog.Logger {
	if r == nil {
		return h.log
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return h.log.With(slog.String("request_id", id))
	}
	return h.log
}
