package cases

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrDuking/talktodoc-backend-sub000/internal/accounts"
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

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	actor, _ := middleware.ActorFromContext(r.Context())

	var req CreateRequest
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

	c, err := h.service.Create(ctx, actor.ID, req)
	if err != nil {
		log.Error("cases create: error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("cases create: ok", slog.String("case_id", c.ID))
	transport.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	actor, _ := middleware.ActorFromContext(r.Context())
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	c, err := h.service.Get(ctx, actor.ID, actor.Role, id)
	if err != nil {
		h.writeCaseError(w, log, "cases get", err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) UpdateForm(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	actor, _ := middleware.ActorFromContext(r.Context())
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	var req UpdateFormRequest
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

	c, err := h.service.UpdateForm(ctx, actor.ID, actor.Role, id, req)
	if err != nil {
		h.writeCaseError(w, log, "cases update form", err)
		return
	}

	log.Info("cases update form: ok", slog.String("case_id", c.ID))
	transport.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) AdvanceStatus(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	actor, _ := middleware.ActorFromContext(r.Context())
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	var req StatusRequest
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

	c, err := h.service.AdvanceStatus(ctx, actor.ID, actor.Role, id, req.Status)
	if err != nil {
		h.writeCaseError(w, log, "cases status", err)
		return
	}

	log.Info("cases status: ok", slog.String("case_id", c.ID), slog.String("status", c.Status))
	transport.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	actor, _ := middleware.ActorFromContext(r.Context())
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	var req AssignRequest
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

	c, err := h.service.Assign(ctx, actor.ID, actor.Role, id, req.DoctorID)
	if err != nil {
		h.writeCaseError(w, log, "cases assign", err)
		return
	}

	log.Info("cases assign: ok", slog.String("case_id", c.ID), slog.String("doctor_id", req.DoctorID))
	transport.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) AddOffer(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	actor, _ := middleware.ActorFromContext(r.Context())
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	var req AddOfferRequest
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

	c, err := h.service.AddOffer(ctx, actor.ID, actor.Role, id, req)
	if err != nil {
		if errors.Is(err, ErrUnknownMedicine) {
			transport.WriteError(w, http.StatusUnprocessableEntity, err.Error(), nil)
			return
		}
		h.writeCaseError(w, log, "cases add offer", err)
		return
	}

	log.Info("cases add offer: ok", slog.String("case_id", c.ID))
	transport.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	actor, _ := middleware.ActorFromContext(r.Context())
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.service.Delete(ctx, actor.ID, actor.Role, id); err != nil {
		h.writeCaseError(w, log, "cases delete", err)
		return
	}

	log.Info("cases delete: ok", slog.String("case_id", id))
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	actor, _ := middleware.ActorFromContext(r.Context())

	page, err := httpx.ParsePageQuery(r.URL.Query(), 20, 100)
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	filter := ListFilter{Status: strings.TrimSpace(r.URL.Query().Get("status"))}
	switch actor.Role {
	case accounts.RolePatient:
		filter.PatientID = actor.ID
	case accounts.RoleDoctor:
		filter.DoctorID = actor.ID
	default:
		filter.PatientID = strings.TrimSpace(r.URL.Query().Get("patientId"))
		filter.DoctorID = strings.TrimSpace(r.URL.Query().Get("doctorId"))
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	items, total, err := h.service.List(ctx, filter, page.Limit, page.Offset())
	if err != nil {
		log.Error("cases list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	transport.WritePage(w, items, page.Page, page.Limit, total)
}

func (h *Handler) writeCaseError(w http.ResponseWriter, log *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidID):
		transport.WriteError(w, http.StatusBadRequest, "invalid id", nil)
	case errors.Is(err, ErrNotFoundOrDenied):
		transport.WriteError(w, http.StatusNotFound, "case not found or access denied", nil)
	case errors.Is(err, ErrStatusBackwards):
		transport.WriteError(w, http.StatusConflict, "case status can only advance", nil)
	default:
		log.Error(op+": error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
	}
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
