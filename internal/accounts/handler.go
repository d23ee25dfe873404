package accounts

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

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

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req RegisterRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("accounts register: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("accounts register: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	acc, err := h.service.Register(ctx, req)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			log.Warn("accounts register: email exists")
			transport.WriteError(w, http.StatusConflict, "email already registered", nil)
			return
		}
		log.Error("accounts register: error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("accounts register: ok", slog.String("account_id", acc.ID), slog.String("role", acc.Role))
	transport.WriteJSON(w, http.StatusCreated, acc)
}

func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req VerifyOTPRequest
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

	if err := h.service.VerifyOTP(ctx, req); err != nil {
		switch {
		case errors.Is(err, ErrInvalidOTP):
			log.Warn("accounts verify: invalid otp")
			transport.WriteError(w, http.StatusBadRequest, "invalid or expired code", nil)
		case errors.Is(err, ErrNotFound):
			transport.WriteError(w, http.StatusNotFound, "account not found", nil)
		default:
			log.Error("accounts verify: error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	log.Info("accounts verify: ok")
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req LoginRequest
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

	pair, acc, err := h.service.Login(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			log.Warn("accounts login: invalid credentials")
			transport.WriteError(w, http.StatusUnauthorized, "invalid email or password", nil)
		case errors.Is(err, ErrNotVerified):
			log.Warn("accounts login: not verified")
			transport.WriteError(w, http.StatusForbidden, "account not verified", nil)
		default:
			log.Error("accounts login: error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	log.Info("accounts login: ok", slog.String("account_id", acc.ID))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"tokens":  pair,
		"account": acc,
	})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req RefreshRequest
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

	pair, err := h.service.Refresh(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			transport.WriteError(w, http.StatusUnauthorized, "invalid refresh token", nil)
			return
		}
		log.Error("accounts refresh: error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	transport.WriteJSON(w, http.StatusOK, pair)
}

func (h *Handler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req struct {
		Email string `json:"email" validate:"required,email"`
	}
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

	if err := h.service.ResendOTP(ctx, req.Email); err != nil {
		if errors.Is(err, ErrNotFound) {
			transport.WriteError(w, http.StatusNotFound, "account not found", nil)
			return
		}
		log.Error("accounts resend otp: error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		transport.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	acc, err := h.service.Get(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidID) {
			transport.WriteError(w, http.StatusNotFound, "account not found", nil)
			return
		}
		h.logWithRequest(r).Error("accounts me: error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	transport.WriteJSON(w, http.StatusOK, acc)
}

// ListByRole returns a list handler with the role fixed, backing the
// /api/v1/{patients,doctors,employees} collections.
func (h *Handler) ListByRole(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := h.logWithRequest(r)

		page, err := httpx.ParsePageQuery(r.URL.Query(), 20, 100, "name", "email", "createdAt")
		if err != nil {
			transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		filter := ListFilter{
			Role:        role,
			Name:        strings.TrimSpace(r.URL.Query().Get("name")),
			SpecialtyID: strings.TrimSpace(r.URL.Query().Get("specialtyId")),
		}

		ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
		defer cancel()

		items, total, err := h.service.List(ctx, filter, page.Sort, page.Desc, page.Limit, page.Offset())
		if err != nil {
			log.Error("accounts list: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
			return
		}

		log.Info("accounts list: ok", slog.String("role", role), slog.Int("count", len(items)))
		transport.WritePage(w, items, page.Page, page.Limit, total)
	}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	acc, err := h.service.Get(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidID):
			transport.WriteError(w, http.StatusBadRequest, "invalid id", nil)
		case errors.Is(err, ErrNotFound):
			transport.WriteError(w, http.StatusNotFound, "account not found", nil)
		default:
			log.Error("accounts get: error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	transport.WriteJSON(w, http.StatusOK, acc)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	actor, _ := middleware.ActorFromContext(r.Context())
	if actor.Role != RoleAdmin && actor.Role != RoleEmployee && actor.ID != id {
		transport.WriteError(w, http.StatusForbidden, "forbidden", nil)
		return
	}

	var req UpdateRequest
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

	acc, err := h.service.Update(ctx, id, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidID):
			transport.WriteError(w, http.StatusBadRequest, "invalid id", nil)
		case errors.Is(err, ErrNotFound):
			transport.WriteError(w, http.StatusNotFound, "account not found", nil)
		default:
			log.Error("accounts update: error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	log.Info("accounts update: ok", slog.String("account_id", id))
	transport.WriteJSON(w, http.StatusOK, acc)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.service.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, ErrInvalidID):
			transport.WriteError(w, http.StatusBadRequest, "invalid id", nil)
		case errors.Is(err, ErrNotFound):
			transport.WriteError(w, http.StatusNotFound, "account not found", nil)
		default:
			log.Error("accounts delete: error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	log.Info("accounts delete: ok", slog.String("account_id", id))
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
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
